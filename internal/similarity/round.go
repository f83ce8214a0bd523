package similarity

import (
	"context"
	"math/rand"

	"github.com/raylou15/context-clues/internal/words"
)

// Mode tags how a guess was evaluated.
type Mode string

const (
	ModeExact          Mode = "exact"
	ModeSemantic       Mode = "semantic"
	ModeFallback       Mode = "fallback"
	ModeFallbackRemote Mode = "fallback+remote"
	ModeHint           Mode = "hint"
)

// Result is the outcome of evaluating one guess against a round's target.
type Result struct {
	Rank          int
	Similarity    float64
	Approx        bool
	Mode          Mode
	ResolvedWord  string
	CanonicalWord string
	ColorBand     string
}

// Round binds a target word to its similarity-sorted rank table. Immutable
// once built; safe for concurrent evaluation.
type Round struct {
	Target   string
	Semantic bool

	ordered []string       // ordered[i] has rank i+1
	ranks   map[string]int // word -> rank
	sims    []float64      // sims[i] is the similarity at rank i+1
	svc     *Service
}

// Size is the number of ranked words this round.
func (r *Round) Size() int { return len(r.ordered) }

// RankOf looks a word up in the round's rank table.
func (r *Round) RankOf(word string) (int, bool) {
	rank, ok := r.ranks[word]
	return rank, ok
}

// Evaluate normalizes a raw guess, resolves it through the alias map, and
// classifies it: exact match, semantic rank from the table, or fallback
// scoring. Unrecognized words and empty input are rejected with an error and
// produce no Result.
func (r *Round) Evaluate(ctx context.Context, rawGuess string) (Result, error) {
	display, canonical := words.Normalize(rawGuess)
	if canonical == "" {
		return Result{}, ErrEmptyGuess
	}

	resolved := r.svc.ResolveAlias(canonical)
	if _, known := r.svc.vocabSet[resolved]; !known {
		if display == "" {
			display = canonical
		}
		return Result{}, UnknownWordError{Word: display}
	}

	if resolved == r.Target {
		return Result{
			Rank:          1,
			Similarity:    1,
			Mode:          ModeExact,
			ResolvedWord:  resolved,
			CanonicalWord: canonical,
			ColorBand:     ColorBandForRank(1),
		}, nil
	}

	if rank, ok := r.ranks[resolved]; ok {
		sim := 0.0
		if rank-1 < len(r.sims) {
			sim = r.sims[rank-1]
		}
		return Result{
			Rank:          rank,
			Similarity:    sim,
			Mode:          ModeSemantic,
			ResolvedWord:  resolved,
			CanonicalWord: canonical,
			ColorBand:     ColorBandForRank(rank),
		}, nil
	}

	rank, sim, usedRemote := r.svc.fallback.Evaluate(ctx, r.Target, resolved)
	mode := ModeFallback
	if usedRemote {
		mode = ModeFallbackRemote
	}
	return Result{
		Rank:          rank,
		Similarity:    sim,
		Approx:        rank > 1,
		Mode:          mode,
		ResolvedWord:  resolved,
		CanonicalWord: canonical,
		ColorBand:     ColorBandForRank(rank),
	}, nil
}

// HintCandidates returns up to poolSize distinct words whose rank falls in
// [2, maxRank], skipping excluded words. For fallback-only rounds it samples
// a bounded random subset of the vocabulary and scores each locally.
func (r *Round) HintCandidates(maxRank, poolSize int, exclude func(string) bool) []string {
	if poolSize <= 0 {
		return nil
	}

	if r.Semantic {
		limit := maxRank
		if limit > len(r.ordered) {
			limit = len(r.ordered)
		}
		candidates := make([]string, 0, poolSize)
		for i := 1; i < limit; i++ { // start at rank 2
			word := r.ordered[i]
			if exclude != nil && exclude(word) {
				continue
			}
			candidates = append(candidates, word)
			if len(candidates) == poolSize {
				break
			}
		}
		return candidates
	}

	// Fallback-only: score a bounded random sample of the vocabulary and
	// keep whatever lands inside the helpful band.
	const sampleBudget = 150
	vocab := r.svc.vocabulary
	candidates := make([]string, 0, poolSize)
	for sampled, i := range rand.Perm(len(vocab)) {
		if sampled >= sampleBudget || len(candidates) == poolSize {
			break
		}
		word := vocab[i]
		if word == r.Target {
			continue
		}
		if exclude != nil && exclude(word) {
			continue
		}
		rank := r.svc.fallback.LocalRank(r.Target, word)
		if rank >= 2 && rank <= maxRank {
			candidates = append(candidates, word)
		}
	}
	return candidates
}

// ScoreLocal ranks a known vocabulary word without consulting the remote
// oracle. Hints are scored through here so that handing one out never costs a
// network round trip.
func (r *Round) ScoreLocal(word string) (int, float64) {
	if word == r.Target {
		return 1, 1
	}
	if rank, ok := r.ranks[word]; ok {
		sim := 0.0
		if rank-1 < len(r.sims) {
			sim = r.sims[rank-1]
		}
		return rank, sim
	}
	return r.svc.fallback.LocalRank(r.Target, word), r.svc.fallback.localScore(r.Target, word)
}

// ColorBandForRank buckets a rank into the client's warm/cold color scale.
func ColorBandForRank(rank int) string {
	switch {
	case rank == 1:
		return "exact"
	case rank <= 50:
		return "green"
	case rank <= 500:
		return "yellow"
	default:
		return "red"
	}
}
