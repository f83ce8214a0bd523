package similarity

import (
	"context"
	"hash/fnv"
	"math"
)

// Curve exponent mapping blended scores to ranks. Near-identical guesses
// land near rank 2, dissimilar guesses spread toward the vocabulary tail.
const fallbackCurve = 1.45

// Weight of the remote relatedness score when it is available.
const remoteWeight = 0.35

// FallbackRanker scores guesses lexically when no semantic rank exists for
// them: n-gram overlap, edit distance, common prefix, and a frequency proxy,
// optionally blended with a remote relatedness lookup. Stateless per call and
// safe for concurrent use.
type FallbackRanker struct {
	vocabSize int
	vocabPos  map[string]int
	oracle    *Oracle
}

func NewFallbackRanker(vocabulary []string, vocabPos map[string]int, oracle *Oracle) *FallbackRanker {
	return &FallbackRanker{
		vocabSize: len(vocabulary),
		vocabPos:  vocabPos,
		oracle:    oracle,
	}
}

// Evaluate ranks guess against target. The returned flag reports whether a
// remote relatedness score was blended in. An exact match short-circuits to
// rank 1 before any scoring.
func (f *FallbackRanker) Evaluate(ctx context.Context, target, guess string) (rank int, similarity float64, usedRemote bool) {
	if guess == target {
		return 1, 1, false
	}

	score := f.localScore(target, guess)

	if f.oracle != nil {
		if remote, ok := f.oracle.Relatedness(ctx, target, guess); ok {
			score = clamp01((1-remoteWeight)*score + remoteWeight*remote)
			usedRemote = true
		}
	}

	return f.rankForScore(score), score, usedRemote
}

// LocalRank scores without consulting the remote oracle. Used for hint
// sampling, where a network call per candidate would be absurd.
func (f *FallbackRanker) LocalRank(target, guess string) int {
	if guess == target {
		return 1
	}
	return f.rankForScore(f.localScore(target, guess))
}

// rankForScore maps a blended score in [0,1) to a rank via a convex curve.
func (f *FallbackRanker) rankForScore(score float64) int {
	spread := f.vocabSize - 2
	if spread < 0 {
		spread = 0
	}
	rank := int(math.Floor(math.Pow(1-score, fallbackCurve)*float64(spread))) + 2
	if rank < 2 {
		rank = 2
	}
	return rank
}

func (f *FallbackRanker) localScore(target, guess string) float64 {
	gram := 0.5*gramOverlap(target, guess, 2) + 0.5*gramOverlap(target, guess, 3)
	edit := editSimilarity(target, guess)
	prefix := prefixRatio(target, guess)
	freq := f.frequencyProxy(guess)

	return clamp01(0.38*gram + 0.27*edit + 0.20*prefix + 0.15*freq)
}

// frequencyProxy prefers common words: vocabulary position when known, a
// stable hash otherwise.
func (f *FallbackRanker) frequencyProxy(word string) float64 {
	if f.vocabSize == 0 {
		return 0
	}
	if pos, ok := f.vocabPos[word]; ok {
		return 1 - float64(pos)/float64(f.vocabSize)
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(word))
	return float64(h.Sum32()%1000) / 1000
}

// gramOverlap is Jaccard-style overlap between the padded n-gram sets of two
// strings.
func gramOverlap(a, b string, n int) float64 {
	gramsA := ngrams(a, n)
	gramsB := ngrams(b, n)
	if len(gramsA) == 0 || len(gramsB) == 0 {
		return 0
	}
	hits := 0
	for gram := range gramsA {
		if _, ok := gramsB[gram]; ok {
			hits++
		}
	}
	larger := len(gramsA)
	if len(gramsB) > larger {
		larger = len(gramsB)
	}
	return float64(hits) / float64(larger)
}

func ngrams(value string, n int) map[string]struct{} {
	padded := " " + value + " "
	if len(padded) < n {
		return nil
	}
	grams := make(map[string]struct{}, len(padded))
	for i := 0; i+n <= len(padded); i++ {
		grams[padded[i:i+n]] = struct{}{}
	}
	return grams
}

// editSimilarity is 1 - levenshtein/maxlen.
func editSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longer := len(a)
	if len(b) > longer {
		longer = len(b)
	}
	if longer == 0 {
		return 0
	}
	return 1 - float64(levenshtein(a, b))/float64(longer)
}

func levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

func prefixRatio(a, b string) float64 {
	limit := len(a)
	if len(b) < limit {
		limit = len(b)
	}
	common := 0
	for common < limit && a[common] == b[common] {
		common++
	}
	longer := len(a)
	if len(b) > longer {
		longer = len(b)
	}
	if longer == 0 {
		return 0
	}
	return float64(common) / float64(longer)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v >= 1 {
		return 0.999999
	}
	return v
}
