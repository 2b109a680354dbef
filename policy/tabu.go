package policy

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/snow-ghost/forager/core"
)

type tabu struct {
	size    int
	history *lru.Cache[string, struct{}]
}

func (t *tabu) phaseStarted() error {
	history, err := lru.New[string, struct{}](t.size)
	if err != nil {
		return fmt.Errorf("failed to create tabu history: %w", err)
	}
	t.history = history
	return nil
}

func (t *tabu) isAccepted(step Step, winner *core.Candidate) bool {
	if winner.Snapshot == nil || !t.history.Contains(winner.Snapshot.Fingerprint()) {
		return true
	}
	// aspiration
	return core.IsAtLeast(winner.Score, step.LastScore)
}

// stepEnded appends every admitted candidate, evicting the oldest beyond capacity.
func (t *tabu) stepEnded(snapshots []core.MaterializedSolution) {
	for _, s := range snapshots {
		t.history.Add(s.Fingerprint(), struct{}{})
	}
}

func (t *tabu) phaseEnded() {
	if t.history != nil {
		t.history.Purge()
	}
}
