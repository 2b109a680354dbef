package forager

import (
	"context"
	"errors"
	"testing"

	"github.com/snow-ghost/forager/acceptor"
	"github.com/snow-ghost/forager/core"
	"github.com/snow-ghost/forager/policy"
	"github.com/snow-ghost/forager/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hs(hard, soft float64) core.HardSoftScore { return core.NewHardSoftScore(hard, soft) }

func newTestForager(t *testing.T, cfg Config, ws core.WorkingSolution, pcfg policy.Config, ev core.NeighbourhoodEvaluator) *Forager {
	t.Helper()
	pol, err := policy.New(pcfg, testkit.NewRand(1), nil)
	require.NoError(t, err)
	f, err := New(cfg, Deps{
		WorkingSolution: ws,
		Acceptor:        acceptor.AcceptAll{},
		Policy:          pol,
		Evaluator:       ev,
		Rand:            testkit.NewRand(2),
	})
	require.NoError(t, err)
	return f
}

func threeSlots() *testkit.Solution {
	return testkit.NewProblem([]int{2, 2}, 3, 0).NewSolution(nil)
}

func TestNew_Validation(t *testing.T) {
	pol, err := policy.New(policy.Config{Kind: policy.HillClimbing}, nil, nil)
	require.NoError(t, err)
	deps := Deps{
		WorkingSolution: threeSlots(),
		Acceptor:        acceptor.AcceptAll{},
		Policy:          pol,
		Evaluator:       &testkit.ScriptedEvaluator{},
	}

	tests := []struct {
		name   string
		mutate func(*Config, *Deps)
	}{
		{"zero limit", func(c *Config, _ *Deps) { c.AcceptedCountLimit = 0 }},
		{"unknown mode", func(c *Config, _ *Deps) { c.EvaluationMode = "worst" }},
		{"threshold out of range", func(c *Config, _ *Deps) {
			c.EvaluationMode = EvaluateAboveThreshold
			c.EvaluationThreshold = 1.5
		}},
		{"zero fraction", func(c *Config, _ *Deps) {
			c.EvaluationMode = EvaluateTopFraction
			c.TopFraction = 0
		}},
		{"no acceptor", func(_ *Config, d *Deps) { d.Acceptor = nil }},
		{"no evaluator", func(_ *Config, d *Deps) { d.Evaluator = nil }},
		{"no policy", func(_ *Config, d *Deps) { d.Policy = nil }},
		{"no working solution", func(_ *Config, d *Deps) { d.WorkingSolution = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, d := DefaultConfig(), deps
			tt.mutate(&cfg, &d)
			_, err := New(cfg, d)
			assert.ErrorIs(t, err, core.ErrConfiguration)
		})
	}

	_, err = New(DefaultConfig(), deps)
	assert.NoError(t, err)
}

func TestRunStep_UnboundedWithNeverEndingSource(t *testing.T) {
	ws := threeSlots()
	cfg := DefaultConfig()
	cfg.AcceptedCountLimit = Unbounded
	f := newTestForager(t, cfg, ws, policy.Config{Kind: policy.HillClimbing}, &testkit.ScriptedEvaluator{})
	require.NoError(t, f.StartPhase(ws.CurrentScore()))

	source := &testkit.RandomSource{Problem: ws.Problem(), Rand: testkit.NewRand(3)}
	_, err := f.RunStep(context.Background(), source, 0)
	assert.ErrorIs(t, err, core.ErrNeverEndingUnbounded)

	assert.NoError(t, f.CheckSource(testkit.ListSource{}))
}

func TestRunStep_StopsAtAcceptedCountLimit(t *testing.T) {
	ws := threeSlots()
	cfg := DefaultConfig()
	cfg.AcceptedCountLimit = 3
	ev := &testkit.ScriptedEvaluator{Responses: []testkit.Response{{Pick: 0, Score: hs(0, -3)}}}
	f := newTestForager(t, cfg, ws, policy.Config{Kind: policy.HillClimbing}, ev)
	require.NoError(t, f.StartPhase(ws.CurrentScore()))

	source := &testkit.RandomSource{Problem: ws.Problem(), Rand: testkit.NewRand(3)}
	out, err := f.RunStep(context.Background(), source, 0)
	require.NoError(t, err)

	assert.Equal(t, int64(3), out.Statistic.SelectedMoveCount)
	assert.Equal(t, int64(3), out.Statistic.AdmittedMoveCount)
	assert.Equal(t, 3, ws.Applied())
}

func TestOfferMove_CountsSelectedAndAdmitted(t *testing.T) {
	ws := threeSlots()
	pol, err := policy.New(policy.Config{Kind: policy.HillClimbing}, nil, nil)
	require.NoError(t, err)
	swapsOnly, err := acceptor.NewHardConstraints(core.ConstraintValidatorFunc(func([]any) bool { return true }), acceptor.Balanced)
	require.NoError(t, err)
	f, err := New(DefaultConfig(), Deps{WorkingSolution: ws, Acceptor: swapsOnly, Policy: pol, Evaluator: &testkit.ScriptedEvaluator{}})
	require.NoError(t, err)
	require.NoError(t, f.StartPhase(ws.CurrentScore()))

	f.StartStep(0)
	assert.False(t, f.OfferMove(testkit.ChangeMove{Entity: 0, To: 1}))
	assert.True(t, f.OfferMove(testkit.SwapMove{Left: 0, Right: 1}))
	assert.False(t, f.OfferMove(testkit.ChangeMove{Entity: 1, To: 2}))

	assert.Equal(t, int64(3), f.SelectedMoveCount())
	assert.Equal(t, int64(1), f.AdmittedMoveCount())
	assert.False(t, f.ShouldStopCollecting())
}

func TestRunStep_HillClimbingCommitAndReplay(t *testing.T) {
	ws := threeSlots()
	ev := &testkit.ScriptedEvaluator{Responses: []testkit.Response{
		{Pick: 0, Score: hs(0, 100)},
		{Pick: 0, Score: hs(0, 120)},
		{Pick: 0, Score: hs(0, 90)},
	}}
	f := newTestForager(t, DefaultConfig(), ws, policy.Config{Kind: policy.HillClimbing}, ev)
	require.NoError(t, f.StartPhase(ws.CurrentScore()))
	ctx := context.Background()
	source := testkit.ListSource{testkit.ChangeMove{Entity: 0, To: 1}}

	first, err := f.RunStep(ctx, source, 0)
	require.NoError(t, err)
	assert.True(t, first.Committed)
	assert.Equal(t, hs(0, 100), first.Winner.Score)

	second, err := f.RunStep(ctx, source, 0)
	require.NoError(t, err)
	assert.True(t, second.Committed)
	assert.Equal(t, hs(0, 120), second.Winner.Score)

	third, err := f.RunStep(ctx, source, 0)
	require.NoError(t, err)
	assert.False(t, third.Committed)
	assert.Same(t, second.Winner, third.Winner)
	assert.Equal(t, hs(0, 120), third.Statistic.StepScore)
	assert.False(t, third.Statistic.FoundNewSolution)
}

func TestRunStep_EmptyEvaluationReplays(t *testing.T) {
	ws := threeSlots()
	ev := &testkit.ScriptedEvaluator{Responses: []testkit.Response{
		{Pick: 0, Score: hs(0, -3)},
		{Empty: true},
	}}
	f := newTestForager(t, DefaultConfig(), ws, policy.Config{Kind: policy.HillClimbing}, ev)
	require.NoError(t, f.StartPhase(ws.CurrentScore()))
	ctx := context.Background()
	source := testkit.ListSource{testkit.ChangeMove{Entity: 0, To: 1}}

	first, err := f.RunStep(ctx, source, 0)
	require.NoError(t, err)
	second, err := f.RunStep(ctx, source, 0)
	require.NoError(t, err)

	assert.False(t, second.Committed)
	assert.Same(t, first.Winner, second.Winner)
	assert.Equal(t, first.Statistic.StepScore, second.Statistic.StepScore)
	assert.Nil(t, second.Statistic.BucketSize)
}

func TestRunStep_WorseWinnerAfterEmptyFirstStepIsRejected(t *testing.T) {
	ws := threeSlots()
	start := ws.CurrentScore()
	ev := &testkit.ScriptedEvaluator{Responses: []testkit.Response{
		{Empty: true},
		{Pick: 0, Score: start.Subtract(hs(0, 50))},
	}}
	f := newTestForager(t, DefaultConfig(), ws, policy.Config{Kind: policy.HillClimbing}, ev)
	require.NoError(t, f.StartPhase(start))
	ctx := context.Background()
	source := testkit.ListSource{testkit.ChangeMove{Entity: 0, To: 1}}

	first, err := f.RunStep(ctx, source, 0)
	require.NoError(t, err)
	assert.False(t, first.Committed)

	second, err := f.RunStep(ctx, source, 0)
	require.NoError(t, err)
	assert.False(t, second.Committed)
	assert.Nil(t, second.Winner)
	assert.Equal(t, start, second.Statistic.StepScore)
	assert.Equal(t, start, f.LastScore())
}

func TestRunStep_NoAdmittedMovesSkipsEvaluator(t *testing.T) {
	ws := threeSlots()
	ev := &testkit.ScriptedEvaluator{}
	f := newTestForager(t, DefaultConfig(), ws, policy.Config{Kind: policy.HillClimbing}, ev)
	require.NoError(t, f.StartPhase(ws.CurrentScore()))

	out, err := f.RunStep(context.Background(), testkit.ListSource{}, 0)
	require.NoError(t, err)
	assert.Nil(t, out.Winner)
	assert.False(t, out.Committed)
	assert.Equal(t, ws.CurrentScore(), out.Statistic.StepScore)
	assert.Empty(t, ev.Seen)
}

func TestRunStep_BucketSampling(t *testing.T) {
	ws := threeSlots()
	cfg := DefaultConfig()
	cfg.EvaluationMode = EvaluateAboveThreshold
	cfg.BreakTieRandomly = false
	ev := &testkit.ScriptedEvaluator{Responses: []testkit.Response{
		{Pick: 1, BucketSize: 2, Score: hs(0, -1.5)},
	}}
	f := newTestForager(t, cfg, ws, policy.Config{Kind: policy.HillClimbing}, ev)
	require.NoError(t, f.StartPhase(ws.CurrentScore()))

	source := testkit.ListSource{
		testkit.ChangeMove{Entity: 0, To: 1},
		testkit.ChangeMove{Entity: 0, To: 2},
		testkit.ChangeMove{Entity: 1, To: 2},
	}
	out, err := f.RunStep(context.Background(), source, 0)
	require.NoError(t, err)

	require.NotNil(t, out.Statistic.BucketSize)
	assert.Equal(t, 2, *out.Statistic.BucketSize)
	assert.Equal(t, testkit.ChangeMove{Entity: 0, To: 2}, out.Winner.Move)
	assert.Equal(t, hs(0, -1.5), out.Winner.Score)
}

func TestRunStep_RandomTieBreakIsReproducible(t *testing.T) {
	pick := func() core.Move {
		ws := threeSlots()
		cfg := DefaultConfig()
		cfg.EvaluationMode = EvaluateTopFraction
		ev := &testkit.ScriptedEvaluator{Responses: []testkit.Response{
			{Pick: 0, BucketSize: 3, Score: hs(0, -2)},
		}}
		f := newTestForager(t, cfg, ws, policy.Config{Kind: policy.HillClimbing}, ev)
		require.NoError(t, f.StartPhase(ws.CurrentScore()))
		source := testkit.ListSource{
			testkit.ChangeMove{Entity: 0, To: 1},
			testkit.ChangeMove{Entity: 0, To: 2},
			testkit.ChangeMove{Entity: 1, To: 2},
		}
		out, err := f.RunStep(context.Background(), source, 0)
		require.NoError(t, err)
		return out.Winner.Move
	}
	assert.Equal(t, pick(), pick())
}

func TestRunStep_DuplicateSnapshotsKeepFirstCandidate(t *testing.T) {
	ws := threeSlots()
	ev := &testkit.ScriptedEvaluator{Responses: []testkit.Response{{Pick: 0, Score: hs(0, -2)}}}
	f := newTestForager(t, DefaultConfig(), ws, policy.Config{Kind: policy.HillClimbing}, ev)
	require.NoError(t, f.StartPhase(ws.CurrentScore()))

	// both entities sit in slot 0, so swapping them is a no-op like a change to slot 0
	source := testkit.ListSource{
		testkit.SwapMove{Left: 0, Right: 1},
		testkit.ChangeMove{Entity: 0, To: 0},
	}
	out, err := f.RunStep(context.Background(), source, 0)
	require.NoError(t, err)

	require.Len(t, ev.Seen, 1)
	assert.Len(t, ev.Seen[0], 1)
	assert.Equal(t, testkit.SwapMove{Left: 0, Right: 1}, out.Winner.Move)
}

func TestRunStep_UndoAsymmetryAborts(t *testing.T) {
	p := testkit.NewProblem([]int{2, 2}, 3, 0)
	ws := testkit.BrokenUndo{Solution: p.NewSolution([]int{0, 1})}
	f := newTestForager(t, DefaultConfig(), ws, policy.Config{Kind: policy.HillClimbing}, &testkit.ScriptedEvaluator{})
	require.NoError(t, f.StartPhase(ws.CurrentScore()))

	_, err := f.RunStep(context.Background(), testkit.ListSource{testkit.SwapMove{Left: 0, Right: 1}}, 0)
	assert.ErrorIs(t, err, core.ErrUndoAsymmetry)
}

func TestRunStep_EvaluatorErrorIsWrapped(t *testing.T) {
	ws := threeSlots()
	boom := errors.New("boom")
	ev := &testkit.ScriptedEvaluator{Responses: []testkit.Response{{Err: boom}}}
	f := newTestForager(t, DefaultConfig(), ws, policy.Config{Kind: policy.HillClimbing}, ev)
	require.NoError(t, f.StartPhase(ws.CurrentScore()))

	_, err := f.RunStep(context.Background(), testkit.ListSource{testkit.ChangeMove{Entity: 0, To: 1}}, 0)
	assert.ErrorIs(t, err, boom)
}

func TestRunStep_TabuHistoryHoldsEveryAdmittedSnapshot(t *testing.T) {
	ws := threeSlots()
	ev := &testkit.ScriptedEvaluator{Responses: []testkit.Response{{Pick: 0, Score: hs(0, -3)}}}
	f := newTestForager(t, DefaultConfig(), ws, policy.Config{Kind: policy.TabuSearch, TabuListSize: 10}, ev)
	require.NoError(t, f.StartPhase(ws.CurrentScore()))

	source := testkit.ListSource{
		testkit.ChangeMove{Entity: 0, To: 1},
		testkit.ChangeMove{Entity: 1, To: 2},
	}
	_, err := f.RunStep(context.Background(), source, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"1,0", "0,2"}, f.Policy().TabuHistory())
}

func TestPhase_IterationsAndReset(t *testing.T) {
	ws := threeSlots()
	ev := &testkit.ScriptedEvaluator{}
	f := newTestForager(t, DefaultConfig(), ws, policy.Config{Kind: policy.HillClimbing}, ev)
	require.NoError(t, f.StartPhase(ws.CurrentScore()))

	for i := 0; i < 4; i++ {
		_, err := f.RunStep(context.Background(), testkit.ListSource{}, 0)
		require.NoError(t, err)
	}
	f.EndPhase()
	assert.Equal(t, 4, f.Statistics().Iterations)
	assert.Len(t, f.Statistics().Steps, 4)
	assert.Equal(t, 4, f.Statistics().Steps[3].StepIndex)

	require.NoError(t, f.StartPhase(ws.CurrentScore()))
	assert.Equal(t, 0, f.Iterations())
	assert.Nil(t, f.LastCommitted())
	assert.Empty(t, f.Statistics().Steps)
}
