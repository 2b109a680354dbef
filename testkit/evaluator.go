package testkit

import (
	"context"
	"fmt"

	"github.com/snow-ghost/forager/core"
)

// Response is one canned evaluator answer. Pick indexes the offered
// candidates; bucket calls return BucketSize candidates starting at Pick.
type Response struct {
	Empty      bool
	Pick       int
	BucketSize int
	Score      core.Score
	Err        error
}

// ScriptedEvaluator answers evaluator calls from Responses in order and
// reports an empty result once they run out.
type ScriptedEvaluator struct {
	Responses []Response
	// Seen records the candidates of every call.
	Seen [][]core.MaterializedSolution
}

func (s *ScriptedEvaluator) next(candidates []core.MaterializedSolution) Response {
	s.Seen = append(s.Seen, append([]core.MaterializedSolution(nil), candidates...))
	i := len(s.Seen) - 1
	if i >= len(s.Responses) {
		return Response{Empty: true}
	}
	return s.Responses[i]
}

func (s *ScriptedEvaluator) BestOf(_ context.Context, candidates []core.MaterializedSolution) (core.MaterializedSolution, core.Score, error) {
	r := s.next(candidates)
	if r.Err != nil {
		return nil, nil, r.Err
	}
	if r.Empty || len(candidates) == 0 {
		return nil, nil, nil
	}
	return candidates[r.Pick%len(candidates)], r.Score, nil
}

func (s *ScriptedEvaluator) AboveThreshold(_ context.Context, candidates []core.MaterializedSolution, _ float64) (core.Bucket, error) {
	return s.bucket(s.next(candidates), candidates)
}

func (s *ScriptedEvaluator) TopFraction(_ context.Context, candidates []core.MaterializedSolution, _ float64) (core.Bucket, error) {
	return s.bucket(s.next(candidates), candidates)
}

func (s *ScriptedEvaluator) bucket(r Response, candidates []core.MaterializedSolution) (core.Bucket, error) {
	if r.Err != nil {
		return core.Bucket{}, r.Err
	}
	if r.Empty || len(candidates) == 0 {
		return core.Bucket{}, nil
	}
	start := r.Pick % len(candidates)
	end := min(start+max(r.BucketSize, 1), len(candidates))
	return core.Bucket{
		Solutions:    append([]core.MaterializedSolution(nil), candidates[start:end]...),
		AverageScore: r.Score,
	}, nil
}

// ScoreSnapshot scores a testkit Snapshot; it is the score function of an
// in-process evaluator over this domain.
func ScoreSnapshot(_ context.Context, s core.MaterializedSolution) (core.Score, error) {
	snap, ok := s.(Snapshot)
	if !ok {
		return nil, fmt.Errorf("testkit: cannot score %T", s)
	}
	return snap.Score(), nil
}
