package testkit

import (
	"context"
	"iter"
	"math/rand"

	"github.com/snow-ghost/forager/core"
)

// ChangeMove reassigns one entity.
type ChangeMove struct {
	Entity int
	To     int
}

func (m ChangeMove) Kind() core.MoveKind { return core.MoveKindChange }

func (m ChangeMove) PlanningEntities() []any {
	return []any{Entity{Index: m.Entity, Slot: m.To}}
}

// SwapMove exchanges the slots of two entities.
type SwapMove struct {
	Left, Right int
}

func (m SwapMove) Kind() core.MoveKind { return core.MoveKindSwap }

func (m SwapMove) PlanningEntities() []any {
	return []any{Entity{Index: m.Left, Slot: -1}, Entity{Index: m.Right, Slot: -1}}
}

// ListSource yields the same finite list of moves every step.
type ListSource []core.Move

func (l ListSource) Moves(ctx context.Context) iter.Seq[core.Move] {
	return func(yield func(core.Move) bool) {
		for _, m := range l {
			if ctx.Err() != nil || !yield(m) {
				return
			}
		}
	}
}

func (ListSource) NeverEnding() bool { return false }

// StepSource yields Steps[i] on the i-th call to Moves and nothing once the
// script is exhausted.
type StepSource struct {
	Steps [][]core.Move
	calls int
}

func (s *StepSource) Moves(ctx context.Context) iter.Seq[core.Move] {
	var moves []core.Move
	if s.calls < len(s.Steps) {
		moves = s.Steps[s.calls]
	}
	s.calls++
	return ListSource(moves).Moves(ctx)
}

func (*StepSource) NeverEnding() bool { return false }

// RandomSource draws change and swap moves for a Problem. With Count zero it
// never ends.
type RandomSource struct {
	Problem   *Problem
	Rand      *rand.Rand
	Count     int
	SwapRatio float64
}

func (r *RandomSource) Moves(ctx context.Context) iter.Seq[core.Move] {
	return func(yield func(core.Move) bool) {
		entities := len(r.Problem.Preferred)
		if entities == 0 {
			return
		}
		for i := 0; r.Count == 0 || i < r.Count; i++ {
			if ctx.Err() != nil {
				return
			}
			var m core.Move
			if entities > 1 && r.Rand.Float64() < r.SwapRatio {
				left := r.Rand.Intn(entities)
				right := (left + 1 + r.Rand.Intn(entities-1)) % entities
				m = SwapMove{Left: left, Right: right}
			} else {
				m = ChangeMove{Entity: r.Rand.Intn(entities), To: r.Rand.Intn(r.Problem.Slots)}
			}
			if !yield(m) {
				return
			}
		}
	}
}

func (r *RandomSource) NeverEnding() bool { return r.Count == 0 }

// NewRand returns a deterministic random source.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
