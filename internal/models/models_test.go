package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSpreadKind(t *testing.T) {
	for _, alias := range []string{"single", "one", "one_card", "card", "1"} {
		kind, err := ParseSpreadKind(alias)
		require.NoError(t, err, alias)
		assert.Equal(t, SpreadSingle, kind)
	}
	for _, alias := range []string{"three", "three_card", "three_cards", "3"} {
		kind, err := ParseSpreadKind(alias)
		require.NoError(t, err, alias)
		assert.Equal(t, SpreadThree, kind)
	}

	_, err := ParseSpreadKind("celtic_cross")
	assert.ErrorIs(t, err, ErrUnknownSpreadKind)
}

func TestSpreadKind_RequiredPositions(t *testing.T) {
	assert.Equal(t, 1, SpreadSingle.RequiredPositions())
	assert.Equal(t, 3, SpreadThree.RequiredPositions())
}

func TestOrientation_Label(t *testing.T) {
	assert.Equal(t, "прямая", OrientationUpright.Label())
	assert.Equal(t, "перевернутая", OrientationReversed.Label())
}

func TestSession_CardsInOrder(t *testing.T) {
	sess := &Session{
		Kind: SpreadThree,
		Cards: map[int]DrawnCard{
			3: {Card: Card{Name: "Мир"}},
			1: {Card: Card{Name: "Маг"}},
			2: {Card: Card{Name: "Звезда"}},
		},
	}
	cards := sess.CardsInOrder()
	require.Len(t, cards, 3)
	assert.Equal(t, "Маг", cards[0].Name)
	assert.Equal(t, "Звезда", cards[1].Name)
	assert.Equal(t, "Мир", cards[2].Name)
}

func TestGenerationResult_Usable(t *testing.T) {
	assert.True(t, GenerationResult{Kind: ResultValidated}.Usable())
	assert.True(t, GenerationResult{Kind: ResultFallbackAccepted}.Usable())
	assert.False(t, GenerationResult{Kind: ResultLocalFallback}.Usable())
	assert.False(t, GenerationResult{Kind: ResultFailed}.Usable())
}

func TestErrorClass_Permanent(t *testing.T) {
	assert.True(t, ErrClassNotFound.Permanent())
	assert.True(t, ErrClassUnauthorized.Permanent())
	assert.False(t, ErrClassRateLimit.Permanent())
	assert.False(t, ErrClassTimeout.Permanent())
}

func TestBackendError_Unwrap(t *testing.T) {
	inner := ErrModelInCooldown
	berr := &BackendError{Class: ErrClassAPI, Model: "m1", Err: inner}
	assert.ErrorIs(t, berr, inner)
	assert.Contains(t, berr.Error(), "m1")
}
