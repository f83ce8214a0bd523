package similarity

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFallback(size int) *FallbackRanker {
	vocab := make([]string, size)
	pos := make(map[string]int, size)
	for i := range vocab {
		word := fmt.Sprintf("word%03d", i)
		vocab[i] = word
		pos[word] = i
	}
	return NewFallbackRanker(vocab, pos, nil)
}

func TestFallbackExactShortCircuit(t *testing.T) {
	t.Parallel()
	f := newTestFallback(500)

	rank, sim, remote := f.Evaluate(context.Background(), "ocean", "ocean")
	assert.Equal(t, 1, rank)
	assert.Equal(t, 1.0, sim)
	assert.False(t, remote)
}

func TestFallbackRankBounds(t *testing.T) {
	t.Parallel()
	f := newTestFallback(500)
	ctx := context.Background()

	pairs := [][2]string{
		{"ocean", "oceans"},
		{"ocean", "oceanic"},
		{"ocean", "mountain"},
		{"ocean", "xylophone"},
	}
	for _, pair := range pairs {
		rank, sim, _ := f.Evaluate(ctx, pair[0], pair[1])
		assert.GreaterOrEqual(t, rank, 2, "%q vs %q", pair[0], pair[1])
		assert.LessOrEqual(t, rank, 500)
		assert.GreaterOrEqual(t, sim, 0.0)
		assert.Less(t, sim, 1.0)
	}
}

func TestFallbackNearIdenticalRanksLow(t *testing.T) {
	t.Parallel()
	f := newTestFallback(2000)
	ctx := context.Background()

	near, _, _ := f.Evaluate(ctx, "backpack", "backpacking")
	far, _, _ := f.Evaluate(ctx, "backpack", "jellyfish")
	assert.Less(t, near, far)
	assert.Less(t, near, 200, "near-identical guess should land near the head")
}

func TestRankForScoreIsMonotonic(t *testing.T) {
	t.Parallel()
	f := newTestFallback(1000)

	prev := f.rankForScore(0)
	for _, score := range []float64{0.1, 0.3, 0.5, 0.7, 0.9, 0.99} {
		rank := f.rankForScore(score)
		assert.LessOrEqual(t, rank, prev, "rank must not grow as score grows")
		prev = rank
	}
	assert.Equal(t, 2, f.rankForScore(0.999999))
}

func TestFrequencyProxyIsStable(t *testing.T) {
	t.Parallel()
	f := newTestFallback(100)

	require.Equal(t, f.frequencyProxy("word000"), f.frequencyProxy("word000"))
	assert.Greater(t, f.frequencyProxy("word000"), f.frequencyProxy("word099"))
	// Unknown words hash to a stable value.
	assert.Equal(t, f.frequencyProxy("unlisted"), f.frequencyProxy("unlisted"))
}

func TestLevenshtein(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, levenshtein("same", "same"))
	assert.Equal(t, 4, levenshtein("", "four"))
	assert.Equal(t, 1, levenshtein("cat", "cart"))
	assert.Equal(t, 3, levenshtein("kitten", "sitting"))
}
