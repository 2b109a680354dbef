package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHardSoftScore_CompareIsLexicographic(t *testing.T) {
	assert.Equal(t, 1, NewHardSoftScore(0, -100).Compare(NewHardSoftScore(-1, 500)))
	assert.Equal(t, -1, NewHardSoftScore(0, 90).Compare(NewHardSoftScore(0, 100)))
	assert.Equal(t, 0, NewHardSoftScore(-2, 3).Compare(NewHardSoftScore(-2, 3)))
}

func TestHardSoftScore_Arithmetic(t *testing.T) {
	s := NewHardSoftScore(-1, 500)
	assert.Equal(t, NewHardSoftScore(-1, 502.5), s.Add(NewHardSoftScore(0, 2.5)))
	assert.Equal(t, NewHardSoftScore(-1, 490), s.Subtract(NewHardSoftScore(0, 10)))
	assert.Equal(t, NewHardSoftScore(-0.5, 250), s.Multiply(0.5))
	assert.Equal(t, NewHardSoftScore(1, -500), s.Negate())
	assert.Equal(t, []float64{-1, 500}, s.Levels())
	assert.Equal(t, "-1hard/500soft", s.String())
}

func TestHardSoftDefinition_Parse(t *testing.T) {
	def := HardSoftDefinition{}

	s, err := def.Parse("0hard/500soft")
	require.NoError(t, err)
	assert.Equal(t, NewHardSoftScore(0, 500), s)

	s, err = def.Parse(" -2hard/-7.5soft ")
	require.NoError(t, err)
	assert.Equal(t, NewHardSoftScore(-2, -7.5), s)

	for _, bad := range []string{"", "500", "0hard", "xhard/1soft", "1hard/ysoft", "1soft/1hard"} {
		_, err := def.Parse(bad)
		assert.Error(t, err, bad)
	}
}

func TestMagnitude(t *testing.T) {
	assert.Equal(t, NewHardSoftScore(0, 500), Magnitude(NewHardSoftScore(0, 500)))
	assert.Equal(t, NewHardSoftScore(0, 500), Magnitude(NewHardSoftScore(0, -500)))
	// lexicographically negative because of the hard level
	assert.Equal(t, NewHardSoftScore(1, -20), Magnitude(NewHardSoftScore(-1, 20)))
}

func TestAverage(t *testing.T) {
	assert.Nil(t, Average(nil))
	avg := Average([]Score{NewHardSoftScore(0, 10), NewHardSoftScore(-2, 20)})
	assert.Equal(t, NewHardSoftScore(-1, 15), avg)
}
