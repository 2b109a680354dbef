package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Score is an ordered, possibly multi-level value. Higher is better.
// Implementations are immutable; every arithmetic method returns a new value.
type Score interface {
	// Compare returns -1, 0 or 1 when the receiver is worse, equal or better than other.
	Compare(other Score) int
	Add(other Score) Score
	Subtract(other Score) Score
	Multiply(factor float64) Score
	Negate() Score
	// Levels decomposes the score into its numeric levels, most significant first.
	Levels() []float64
	String() string
}

// ScoreDefinition knows how to build scores of one shape.
type ScoreDefinition interface {
	Zero() Score
	LevelCount() int
	Parse(text string) (Score, error)
}

// HardSoftScore is a two-level score compared lexicographically, hard level first.
type HardSoftScore struct {
	Hard float64 `json:"hard" yaml:"hard"`
	Soft float64 `json:"soft" yaml:"soft"`
}

// NewHardSoftScore returns a HardSoftScore.
func NewHardSoftScore(hard, soft float64) HardSoftScore {
	return HardSoftScore{Hard: hard, Soft: soft}
}

func (s HardSoftScore) Compare(other Score) int {
	o := other.(HardSoftScore)
	switch {
	case s.Hard < o.Hard:
		return -1
	case s.Hard > o.Hard:
		return 1
	case s.Soft < o.Soft:
		return -1
	case s.Soft > o.Soft:
		return 1
	}
	return 0
}

func (s HardSoftScore) Add(other Score) Score {
	o := other.(HardSoftScore)
	return HardSoftScore{Hard: s.Hard + o.Hard, Soft: s.Soft + o.Soft}
}

func (s HardSoftScore) Subtract(other Score) Score {
	o := other.(HardSoftScore)
	return HardSoftScore{Hard: s.Hard - o.Hard, Soft: s.Soft - o.Soft}
}

func (s HardSoftScore) Multiply(factor float64) Score {
	return HardSoftScore{Hard: s.Hard * factor, Soft: s.Soft * factor}
}

func (s HardSoftScore) Negate() Score {
	return HardSoftScore{Hard: -s.Hard, Soft: -s.Soft}
}

func (s HardSoftScore) Levels() []float64 {
	return []float64{s.Hard, s.Soft}
}

func (s HardSoftScore) String() string {
	return formatLevel(s.Hard) + "hard/" + formatLevel(s.Soft) + "soft"
}

func formatLevel(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// HardSoftDefinition is the ScoreDefinition of HardSoftScore.
type HardSoftDefinition struct{}

func (HardSoftDefinition) Zero() Score { return HardSoftScore{} }

func (HardSoftDefinition) LevelCount() int { return 2 }

// Parse reads scores written as "<hard>hard/<soft>soft", e.g. "0hard/500soft" or "-2hard/-7.5soft".
func (HardSoftDefinition) Parse(text string) (Score, error) {
	hardText, softText, ok := strings.Cut(strings.TrimSpace(text), "/")
	if !ok || !strings.HasSuffix(hardText, "hard") || !strings.HasSuffix(softText, "soft") {
		return nil, fmt.Errorf("score %q does not match <n>hard/<n>soft", text)
	}
	hard, err := strconv.ParseFloat(strings.TrimSuffix(hardText, "hard"), 64)
	if err != nil {
		return nil, fmt.Errorf("score %q: hard level: %w", text, err)
	}
	soft, err := strconv.ParseFloat(strings.TrimSuffix(softText, "soft"), 64)
	if err != nil {
		return nil, fmt.Errorf("score %q: soft level: %w", text, err)
	}
	if math.IsNaN(hard) || math.IsNaN(soft) {
		return nil, fmt.Errorf("score %q: NaN level", text)
	}
	return HardSoftScore{Hard: hard, Soft: soft}, nil
}

// IsAtLeast reports whether s >= other.
func IsAtLeast(s, other Score) bool { return s.Compare(other) >= 0 }

// Magnitude returns s when it is not below zero in score order, otherwise s negated.
func Magnitude(s Score) Score {
	zero := s.Subtract(s)
	if s.Compare(zero) < 0 {
		return s.Negate()
	}
	return s
}

// Average returns the arithmetic mean of scores, or nil for an empty slice.
func Average(scores []Score) Score {
	if len(scores) == 0 {
		return nil
	}
	sum := scores[0]
	for _, s := range scores[1:] {
		sum = sum.Add(s)
	}
	return sum.Multiply(1 / float64(len(scores)))
}
