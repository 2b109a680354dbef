// Package stats records per-step and per-phase observations of a local search.
// The records are for observability only; no control decision reads them.
package stats

import (
	"time"

	"github.com/snow-ghost/forager/core"
)

// StepStatistic describes one step.
type StepStatistic struct {
	StepIndex int `json:"step_index"`
	// StepScore is the committed score after the step.
	StepScore core.Score `json:"step_score"`
	// ThresholdScore is the step-counting threshold or water level in force for the verdict.
	ThresholdScore core.Score `json:"threshold_score,omitempty"`
	// BucketSize is set when the winner was sampled from an evaluation bucket.
	BucketSize        *int  `json:"bucket_size,omitempty"`
	FoundNewSolution  bool  `json:"found_new_solution"`
	SelectedMoveCount int64 `json:"selected_move_count"`
	AdmittedMoveCount int64 `json:"admitted_move_count"`
}

// PhaseStatistics collects the steps of one phase.
type PhaseStatistics struct {
	Steps      []StepStatistic `json:"steps"`
	Iterations int             `json:"iterations"`
}

// Add appends a step record.
func (p *PhaseStatistics) Add(s StepStatistic) {
	p.Steps = append(p.Steps, s)
}

// Reset clears the phase statistics.
func (p *PhaseStatistics) Reset() {
	p.Steps = nil
	p.Iterations = 0
}

// Summary condenses a phase.
type Summary struct {
	Steps         int        `json:"steps"`
	NewSolutions  int        `json:"new_solutions"`
	Replays       int        `json:"replays"`
	AcceptedRatio float64    `json:"accepted_ratio"`
	BestStepScore core.Score `json:"best_step_score,omitempty"`
}

// Summary returns counts of committed and replayed steps and the best step score.
func (p *PhaseStatistics) Summary() Summary {
	s := Summary{Steps: len(p.Steps)}
	for _, st := range p.Steps {
		if st.FoundNewSolution {
			s.NewSolutions++
		} else {
			s.Replays++
		}
		if st.StepScore != nil && (s.BestStepScore == nil || st.StepScore.Compare(s.BestStepScore) > 0) {
			s.BestStepScore = st.StepScore
		}
	}
	if s.Steps > 0 {
		s.AcceptedRatio = float64(s.NewSolutions) / float64(s.Steps)
	}
	return s
}

// Recorder receives statistics as they are produced.
type Recorder interface {
	RecordStep(policy string, step StepStatistic, evaluation time.Duration)
	RecordPhase(policy string, phase *PhaseStatistics)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) RecordStep(string, StepStatistic, time.Duration) {}

func (NopRecorder) RecordPhase(string, *PhaseStatistics) {}
