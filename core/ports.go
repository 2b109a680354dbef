package core

import (
	"context"
	"iter"
)

// UndoToken is returned by WorkingSolution.ApplyMove and reverts exactly that application.
type UndoToken any

// WorkingSolution is the single mutable solution a run searches over.
// Applying a move and undoing it must leave score and snapshot unchanged.
type WorkingSolution interface {
	ApplyMove(m Move) UndoToken
	Undo(t UndoToken)
	Snapshot() MaterializedSolution
	CurrentScore() Score
}

// MoveSource produces the candidate moves of one step.
type MoveSource interface {
	Moves(ctx context.Context) iter.Seq[Move]
	// NeverEnding reports whether Moves may yield forever.
	NeverEnding() bool
}

// NeighbourhoodEvaluator ranks a batch of materialized candidates. It is an
// external, possibly privacy-preserving, service.
type NeighbourhoodEvaluator interface {
	// BestOf returns the best candidate and its score, or a nil solution when there is none.
	BestOf(ctx context.Context, candidates []MaterializedSolution) (MaterializedSolution, Score, error)
	// AboveThreshold returns every candidate whose fitness is within ratio of the best.
	AboveThreshold(ctx context.Context, candidates []MaterializedSolution, ratio float64) (Bucket, error)
	// TopFraction returns the best fraction of the candidates.
	TopFraction(ctx context.Context, candidates []MaterializedSolution, fraction float64) (Bucket, error)
}

// ConstraintValidator checks hard constraints over the entities a move touches.
type ConstraintValidator interface {
	SatisfiesConstraints(entities []any) bool
}

// ConstraintValidatorFunc adapts a function to ConstraintValidator.
type ConstraintValidatorFunc func(entities []any) bool

func (f ConstraintValidatorFunc) SatisfiesConstraints(entities []any) bool { return f(entities) }
