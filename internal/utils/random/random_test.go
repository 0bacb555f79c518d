package random

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPick(t *testing.T) {
	items := []string{"a", "b", "c"}

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		picked, err := Pick(items)
		require.NoError(t, err)
		assert.Contains(t, items, picked)
		seen[picked] = true
	}
	// За 100 попыток из трех элементов все должны встретиться
	assert.Len(t, seen, 3)
}

func TestPick_Empty(t *testing.T) {
	_, err := Pick([]string{})
	assert.Error(t, err)
}

func TestPick_Single(t *testing.T) {
	picked, err := Pick([]int{7})
	require.NoError(t, err)
	assert.Equal(t, 7, picked)
}

func TestShuffle_KeepsElements(t *testing.T) {
	original := []int{1, 2, 3, 4, 5}
	shuffled := make([]int, len(original))
	copy(shuffled, original)

	require.NoError(t, Shuffle(shuffled))
	assert.ElementsMatch(t, original, shuffled)
}
