package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/pedido-service/internal/apperrors"
)

func TestParseItemsRejectsMissingOrEmpty(t *testing.T) {
	for name, raw := range map[string]string{
		"absent":     ``,
		"null":       `null`,
		"object":     `{"id":1}`,
		"string":     `"1,2"`,
		"empty list": `[]`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseItems(json.RawMessage(raw))
			assert.True(t, apperrors.IsKind(err, apperrors.KindBadRequest), "got %v", err)
		})
	}
}

func TestParseItemsBareIDs(t *testing.T) {
	set, err := ParseItems(json.RawMessage(`[3, 1, 3, 2]`))
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 1, 2}, set.IDs)
	assert.Equal(t, map[uint64]int{1: 1, 2: 1, 3: 1}, set.Quantity)
}

func TestParseItemsPairsLastWriteWins(t *testing.T) {
	set, err := ParseItems(json.RawMessage(`[{"id":1,"quantidade":3},{"id":1,"quantidade":5}]`))
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, set.IDs)
	assert.Equal(t, 5, set.Quantity[1])
}

func TestParseItemsPairsCoercion(t *testing.T) {
	set, err := ParseItems(json.RawMessage(`[
		{"id":"4","quantidade":"2"},
		{"id":5},
		{"id":6,"quantidade":"lots"},
		{"id":7,"quantidade":0},
		{"id":8,"quantity":9},
		{"id":9,"quantidade":2.7},
		{"id":"x","quantidade":3},
		{"quantidade":3}
	]`))
	require.NoError(t, err)
	assert.Equal(t, []uint64{4, 5, 6, 7, 8, 9}, set.IDs)
	assert.Equal(t, map[uint64]int{4: 2, 5: 1, 6: 1, 7: 1, 8: 9, 9: 2}, set.Quantity)
}

func TestParseItemsShapeFromFirstElement(t *testing.T) {
	// first element is an object, so the numeric 2 is read as a pair and skipped
	set, err := ParseItems(json.RawMessage(`[{"id":1,"quantidade":2}, 2]`))
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, set.IDs)

	// first element is a number, so every element is read as a bare id
	set, err = ParseItems(json.RawMessage(`[2, {"id":1}]`))
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, set.IDs)
}
