package acceptor

import (
	"testing"

	"github.com/snow-ghost/forager/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMove struct {
	kind     core.MoveKind
	entities []any
}

func (m stubMove) Kind() core.MoveKind     { return m.kind }
func (m stubMove) PlanningEntities() []any { return m.entities }

func allowEven() core.ConstraintValidator {
	return core.ConstraintValidatorFunc(func(entities []any) bool {
		for _, e := range entities {
			if e.(int)%2 != 0 {
				return false
			}
		}
		return true
	})
}

func TestAcceptAll(t *testing.T) {
	assert.True(t, AcceptAll{}.IsAccepted(stubMove{kind: core.MoveKindChange}))
}

func TestHardConstraints_NilValidator(t *testing.T) {
	_, err := NewHardConstraints(nil, Unbalanced)
	require.ErrorIs(t, err, core.ErrConfiguration)
}

func TestHardConstraints_UnknownProblemType(t *testing.T) {
	_, err := NewHardConstraints(allowEven(), "lopsided")
	require.ErrorIs(t, err, core.ErrConfiguration)
}

func TestHardConstraints_Unbalanced(t *testing.T) {
	a, err := NewHardConstraints(allowEven(), Unbalanced)
	require.NoError(t, err)

	assert.True(t, a.IsAccepted(stubMove{kind: core.MoveKindChange, entities: []any{2, 4}}))
	assert.False(t, a.IsAccepted(stubMove{kind: core.MoveKindChange, entities: []any{2, 3}}))
	assert.True(t, a.IsAccepted(stubMove{kind: core.MoveKindSwap, entities: []any{0}}))
}

func TestHardConstraints_BalancedOnlySwaps(t *testing.T) {
	a, err := NewHardConstraints(allowEven(), Balanced)
	require.NoError(t, err)

	assert.False(t, a.IsAccepted(stubMove{kind: core.MoveKindChange, entities: []any{2}}))
	assert.True(t, a.IsAccepted(stubMove{kind: core.MoveKindSwap, entities: []any{2}}))
	assert.False(t, a.IsAccepted(stubMove{kind: core.MoveKindSwap, entities: []any{1}}))
}

func TestNew(t *testing.T) {
	a, err := New("", nil, "")
	require.NoError(t, err)
	assert.IsType(t, AcceptAll{}, a)

	a, err = New(KindHardConstraints, allowEven(), Balanced)
	require.NoError(t, err)
	assert.IsType(t, &HardConstraints{}, a)

	_, err = New(KindHardConstraints, nil, Balanced)
	require.ErrorIs(t, err, core.ErrConfiguration)

	_, err = New("maybe", nil, "")
	require.ErrorIs(t, err, core.ErrConfiguration)
}
