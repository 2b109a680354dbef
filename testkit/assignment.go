// Package testkit provides a small assignment domain for exercising the
// forager: entities are assigned to slots, each entity prefers one slot and
// every slot has a capacity.
package testkit

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"

	"github.com/snow-ghost/forager/core"
)

// Entity is the planning entity moves report to the constraint validator.
type Entity struct {
	Index int
	Slot  int
}

// Problem is an immutable assignment problem.
type Problem struct {
	// Preferred holds the preferred slot of every entity.
	Preferred []int
	Slots     int
	// Capacity bounds the entities per slot; 0 means unlimited.
	Capacity int
}

// NewProblem returns a Problem over len(preferred) entities.
func NewProblem(preferred []int, slots, capacity int) *Problem {
	return &Problem{Preferred: append([]int(nil), preferred...), Slots: slots, Capacity: capacity}
}

// RandomProblem builds a problem with random preferences.
func RandomProblem(rng *rand.Rand, entities, slots, capacity int) *Problem {
	preferred := make([]int, entities)
	for i := range preferred {
		preferred[i] = rng.Intn(slots)
	}
	return &Problem{Preferred: preferred, Slots: slots, Capacity: capacity}
}

// Score returns the hard/soft score of assignment: the hard level counts slot
// overflow, the soft level the distance to the preferred slots.
func (p *Problem) Score(assignment []int) core.HardSoftScore {
	var hard, soft float64
	if p.Capacity > 0 {
		load := make(map[int]int, p.Slots)
		for _, s := range assignment {
			load[s]++
		}
		for _, n := range load {
			if n > p.Capacity {
				hard -= float64(n - p.Capacity)
			}
		}
	}
	for i, s := range assignment {
		soft -= math.Abs(float64(s - p.Preferred[i]))
	}
	return core.NewHardSoftScore(hard, soft)
}

// NewSolution returns a working solution starting from initial, or from every
// entity in slot 0 when initial is nil.
func (p *Problem) NewSolution(initial []int) *Solution {
	values := make([]int, len(p.Preferred))
	copy(values, initial)
	s := &Solution{problem: p, values: values}
	s.score = p.Score(values)
	return s
}

// Solution is a mutable working solution.
type Solution struct {
	problem *Problem
	values  []int
	score   core.HardSoftScore
	applied int
}

type changeUndo struct {
	entity int
	from   int
}

type swapUndo struct {
	left, right int
}

// ApplyMove performs a ChangeMove or SwapMove and returns its undo token.
func (s *Solution) ApplyMove(m core.Move) core.UndoToken {
	s.applied++
	switch mv := m.(type) {
	case ChangeMove:
		undo := changeUndo{entity: mv.Entity, from: s.values[mv.Entity]}
		s.values[mv.Entity] = mv.To
		s.score = s.problem.Score(s.values)
		return undo
	case SwapMove:
		s.values[mv.Left], s.values[mv.Right] = s.values[mv.Right], s.values[mv.Left]
		s.score = s.problem.Score(s.values)
		return swapUndo{left: mv.Left, right: mv.Right}
	}
	panic(fmt.Sprintf("testkit: unsupported move %T", m))
}

// Undo reverts the application that returned t.
func (s *Solution) Undo(t core.UndoToken) {
	switch u := t.(type) {
	case changeUndo:
		s.values[u.entity] = u.from
	case swapUndo:
		s.values[u.left], s.values[u.right] = s.values[u.right], s.values[u.left]
	default:
		panic(fmt.Sprintf("testkit: unsupported undo token %T", t))
	}
	s.score = s.problem.Score(s.values)
}

// Snapshot copies the current assignment.
func (s *Solution) Snapshot() core.MaterializedSolution {
	return Snapshot{Values: append([]int(nil), s.values...), score: s.score}
}

func (s *Solution) CurrentScore() core.Score { return s.score }

// Values returns a copy of the current assignment.
func (s *Solution) Values() []int { return append([]int(nil), s.values...) }

// Applied counts every ApplyMove call, undone or not.
func (s *Solution) Applied() int { return s.applied }

// Problem returns the problem s solves.
func (s *Solution) Problem() *Problem { return s.problem }

// Snapshot is an immutable assignment.
type Snapshot struct {
	Values []int
	score  core.HardSoftScore
}

// Fingerprint renders the assignment, e.g. "1,0,2".
func (s Snapshot) Fingerprint() string {
	parts := make([]string, len(s.Values))
	for i, v := range s.Values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// Score returns the score the assignment had when it was taken.
func (s Snapshot) Score() core.Score { return s.score }

// Fingerprints is a convenience for asserting on snapshots.
func Fingerprints(solutions []core.MaterializedSolution) []string {
	out := make([]string, len(solutions))
	for i, s := range solutions {
		out[i] = s.Fingerprint()
	}
	return out
}

// BrokenUndo wraps a Solution and forgets to undo swaps.
type BrokenUndo struct {
	*Solution
}

func (b BrokenUndo) Undo(t core.UndoToken) {
	if _, ok := t.(swapUndo); ok {
		return
	}
	b.Solution.Undo(t)
}
