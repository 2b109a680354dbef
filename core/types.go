package core

// MoveKind names the category of a move.
type MoveKind string

const (
	MoveKindChange MoveKind = "change"
	MoveKindSwap   MoveKind = "swap"
)

// Move is an atomic, reversible transformation of the working solution.
type Move interface {
	Kind() MoveKind
	// PlanningEntities returns the domain entities the move affects.
	PlanningEntities() []any
}

// MaterializedSolution is an immutable snapshot of the working solution.
// Snapshots with equal fingerprints are the same solution.
type MaterializedSolution interface {
	Fingerprint() string
}

// Candidate is an admitted move. Snapshot is set once it has been
// materialized and Score once the evaluator has ranked it.
type Candidate struct {
	Move     Move
	Snapshot MaterializedSolution
	Score    Score
}

// Bucket is a sampled set of candidates with their average score.
type Bucket struct {
	Solutions    []MaterializedSolution
	AverageScore Score
}

// Empty reports whether the bucket holds no solution.
func (b Bucket) Empty() bool { return len(b.Solutions) == 0 }
