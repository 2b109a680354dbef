package core

import "errors"

var (
	// ErrConfiguration marks every construction-time configuration problem.
	ErrConfiguration = errors.New("configuration error")
	// ErrMissingParameter is returned when a metaheuristic parameter was not supplied.
	ErrMissingParameter = errors.New("missing required parameter")
	// ErrNegativeTemperature is returned when a starting temperature level is negative.
	ErrNegativeTemperature = errors.New("negative temperature level")
	// ErrNeverEndingUnbounded is returned when an unbounded admitted-count limit meets a never-ending move source.
	ErrNeverEndingUnbounded = errors.New("unbounded accepted count limit with a never-ending move source")
	// ErrUndoAsymmetry is returned when undoing a move did not restore the working solution.
	ErrUndoAsymmetry = errors.New("undo did not restore the working solution")
	// ErrLeaseHeld is returned when the working solution is materialized re-entrantly.
	ErrLeaseHeld = errors.New("working solution lease already held")
	// ErrEvaluatorUnavailable is returned when the neighbourhood evaluator cannot be reached.
	ErrEvaluatorUnavailable = errors.New("neighbourhood evaluator unavailable")
)
