// Package acceptor holds the admission filters that gate a move before it
// enters a step's candidate pool.
package acceptor

import (
	"fmt"

	"github.com/snow-ghost/forager/core"
)

// Acceptor decides whether a selected move is admitted as a candidate.
// Implementations are read-only checks.
type Acceptor interface {
	IsAccepted(move core.Move) bool
}

// Kind selects an Acceptor implementation from configuration.
type Kind string

const (
	KindAcceptAll       Kind = "accept-all"
	KindHardConstraints Kind = "hard-constraints"
)

// AssignmentProblemType flags balanced assignment problems, where every
// balanced state is reachable through swap moves alone.
type AssignmentProblemType string

const (
	Unbalanced AssignmentProblemType = "unbalanced"
	Balanced   AssignmentProblemType = "balanced"
)

// AcceptAll admits every move.
type AcceptAll struct{}

func (AcceptAll) IsAccepted(core.Move) bool { return true }

// HardConstraints admits moves whose affected entities satisfy the hard
// constraints. On balanced problems only swap moves are admitted.
type HardConstraints struct {
	validator core.ConstraintValidator
	problem   AssignmentProblemType
}

// NewHardConstraints returns a hard-constraint filter. The validator is required.
func NewHardConstraints(validator core.ConstraintValidator, problem AssignmentProblemType) (*HardConstraints, error) {
	if validator == nil {
		return nil, fmt.Errorf("%w: hard-constraints acceptor needs a constraint validator", core.ErrConfiguration)
	}
	switch problem {
	case "":
		problem = Unbalanced
	case Unbalanced, Balanced:
	default:
		return nil, fmt.Errorf("%w: unknown assignment problem type %q", core.ErrConfiguration, problem)
	}
	return &HardConstraints{validator: validator, problem: problem}, nil
}

func (h *HardConstraints) IsAccepted(move core.Move) bool {
	ok := h.validator.SatisfiesConstraints(move.PlanningEntities())
	if h.problem == Balanced {
		return ok && move.Kind() == core.MoveKindSwap
	}
	return ok
}

// New builds the acceptor named by kind. The validator is only used by KindHardConstraints.
func New(kind Kind, validator core.ConstraintValidator, problem AssignmentProblemType) (Acceptor, error) {
	switch kind {
	case "", KindAcceptAll:
		return AcceptAll{}, nil
	case KindHardConstraints:
		return NewHardConstraints(validator, problem)
	default:
		return nil, fmt.Errorf("%w: unknown acceptor kind %q", core.ErrConfiguration, kind)
	}
}
