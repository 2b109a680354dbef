package forager

import (
	"fmt"
	"sync/atomic"

	"github.com/snow-ghost/forager/core"
)

// lease grants exclusive access to the working solution for one
// apply→snapshot→undo cycle or one permanent apply.
type lease struct {
	ws     core.WorkingSolution
	verify bool
	held   atomic.Bool
}

func (l *lease) acquire() error {
	if !l.held.CompareAndSwap(false, true) {
		return core.ErrLeaseHeld
	}
	return nil
}

func (l *lease) release() { l.held.Store(false) }

// materialize snapshots the solution m leads to and restores the working solution.
func (l *lease) materialize(m core.Move) (core.MaterializedSolution, error) {
	if err := l.acquire(); err != nil {
		return nil, err
	}
	defer l.release()

	var before core.MaterializedSolution
	var beforeScore core.Score
	if l.verify {
		before = l.ws.Snapshot()
		beforeScore = l.ws.CurrentScore()
	}

	token := l.ws.ApplyMove(m)
	snapshot := l.ws.Snapshot()
	l.ws.Undo(token)

	if l.verify {
		after := l.ws.Snapshot()
		afterScore := l.ws.CurrentScore()
		if after.Fingerprint() != before.Fingerprint() || afterScore.Compare(beforeScore) != 0 {
			return nil, fmt.Errorf("%w: %s move left score %s (was %s)", core.ErrUndoAsymmetry, m.Kind(), afterScore, beforeScore)
		}
	}
	return snapshot, nil
}

// apply performs m on the working solution without undoing it.
func (l *lease) apply(m core.Move) error {
	if err := l.acquire(); err != nil {
		return err
	}
	defer l.release()
	l.ws.ApplyMove(m)
	return nil
}
