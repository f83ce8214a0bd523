package similarity

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// Vectors chosen so cosine(dog,puppy)=0.9 and cosine(dog,cat)=0.3.
const testEmbeddings = `{
	"dim": 2,
	"vectors": {
		"dog":   [1.0, 0.0],
		"puppy": [0.9, 0.4358898943540674],
		"cat":   [0.3, 0.9539392014169456]
	}
}`

func newSemanticService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(Config{
		VocabPath:      writeFixture(t, "vocab.txt", "cat\ndog\npuppy\n"),
		EmbeddingsPath: writeFixture(t, "embeddings.json", testEmbeddings),
		Logger:         zerolog.Nop(),
	})
	require.NoError(t, err)
	require.True(t, svc.SemanticEnabled())
	return svc
}

func newFallbackService(t *testing.T, vocab string) *Service {
	t.Helper()
	svc, err := NewService(Config{
		VocabPath: writeFixture(t, "vocab.txt", vocab),
		Logger:    zerolog.Nop(),
	})
	require.NoError(t, err)
	require.False(t, svc.SemanticEnabled())
	return svc
}

func TestBuildRoundRanksByCosineSimilarity(t *testing.T) {
	t.Parallel()
	svc := newSemanticService(t)

	round := svc.BuildRound("dog")
	require.True(t, round.Semantic)
	assert.Equal(t, "dog", round.Target)
	assert.Equal(t, 3, round.Size())

	rank, ok := round.RankOf("dog")
	require.True(t, ok)
	assert.Equal(t, 1, rank)

	rank, ok = round.RankOf("puppy")
	require.True(t, ok)
	assert.Equal(t, 2, rank)

	rank, ok = round.RankOf("cat")
	require.True(t, ok)
	assert.Equal(t, 3, rank)
}

func TestBuildRoundIsDeterministic(t *testing.T) {
	t.Parallel()
	svc := newSemanticService(t)

	first := svc.BuildRound("dog")
	second := svc.BuildRound("dog")
	assert.Equal(t, first.ordered, second.ordered)
	assert.Equal(t, first.sims, second.sims)
}

func TestBuildRoundRanksAreUnique(t *testing.T) {
	t.Parallel()
	svc := newSemanticService(t)

	round := svc.BuildRound("puppy")
	seen := make(map[int]string)
	for _, word := range round.ordered {
		rank, ok := round.RankOf(word)
		require.True(t, ok)
		prev, dup := seen[rank]
		require.False(t, dup, "rank %d shared by %q and %q", rank, prev, word)
		seen[rank] = word
	}
	assert.Len(t, seen, round.Size())
}

func TestEvaluateExactMatch(t *testing.T) {
	t.Parallel()
	svc := newSemanticService(t)
	ctx := context.Background()

	for _, target := range []string{"cat", "dog", "puppy"} {
		round := svc.BuildRound(target)
		res, err := round.Evaluate(ctx, target)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Rank)
		assert.Equal(t, 1.0, res.Similarity)
		assert.Equal(t, ModeExact, res.Mode)
		assert.Equal(t, "exact", res.ColorBand)
	}
}

func TestEvaluateResolvesInflections(t *testing.T) {
	t.Parallel()
	svc := newSemanticService(t)
	round := svc.BuildRound("dog")

	res, err := round.Evaluate(context.Background(), "puppies")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Rank)
	assert.Equal(t, ModeSemantic, res.Mode)
	assert.Equal(t, "puppy", res.ResolvedWord)
	assert.Equal(t, "puppy", res.CanonicalWord)
	assert.InDelta(t, 0.9, res.Similarity, 1e-6)

	res, err = round.Evaluate(context.Background(), "Dogs!")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rank)
	assert.Equal(t, ModeExact, res.Mode)
}

func TestEvaluateRejectsBadInput(t *testing.T) {
	t.Parallel()
	svc := newSemanticService(t)
	round := svc.BuildRound("dog")

	_, err := round.Evaluate(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyGuess)

	_, err = round.Evaluate(context.Background(), "zyzzyva")
	var unknown UnknownWordError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "zyzzyva", unknown.Word)
}

func TestFallbackOnlyRound(t *testing.T) {
	t.Parallel()
	svc := newFallbackService(t, "cat\ndog\npuppy\nhorse\nhouse\n")
	ctx := context.Background()

	round := svc.BuildRound("dog")
	require.False(t, round.Semantic)
	assert.Equal(t, 1, round.Size())

	res, err := round.Evaluate(ctx, "dog")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rank)
	assert.Equal(t, ModeExact, res.Mode)

	res, err = round.Evaluate(ctx, "puppy")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Rank, 2)
	assert.Equal(t, ModeFallback, res.Mode)
	assert.True(t, res.Approx)

	// Out-of-vocabulary guesses are still rejected in degraded mode.
	_, err = round.Evaluate(ctx, "zeppelin")
	var unknown UnknownWordError
	assert.ErrorAs(t, err, &unknown)
}

func TestPickTargetStaysInVocabulary(t *testing.T) {
	t.Parallel()
	svc := newSemanticService(t)

	for i := 0; i < 50; i++ {
		target := svc.PickTarget()
		_, ok := svc.vocabSet[target]
		assert.True(t, ok, "target %q outside vocabulary", target)
	}
}

func TestResolveAliasPrefersRepresentative(t *testing.T) {
	t.Parallel()
	svc := newFallbackService(t, "dog\ndogs\npuppy\n")

	assert.Equal(t, "dog", svc.ResolveAlias("dogs"))
	assert.Equal(t, "dog", svc.ResolveAlias("dog"))
	assert.Equal(t, "puppy", svc.ResolveAlias("puppies"))
}

func TestCosineSimilarity(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 2}, []float32{2, 4}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, cosineSimilarity([]float32{0, 0}, []float32{1, 1}))
	assert.Equal(t, 0.0, cosineSimilarity([]float32{1}, []float32{1, 1}))
}
