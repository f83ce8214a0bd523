// Package similarity ranks a fixed vocabulary by semantic closeness to a
// hidden target word and classifies incoming guesses against that ranking,
// with a lexical fallback when embeddings are unavailable.
package similarity

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"

	"github.com/rs/zerolog"

	"github.com/raylou15/context-clues/internal/words"
)

// Config carries load-time settings for the rank service.
type Config struct {
	VocabPath      string
	EmbeddingsPath string
	Oracle         *Oracle
	Logger         zerolog.Logger
}

// Service loads the vocabulary and embedding table once per process and
// builds per-round rank tables. Read-only after Load, so it is shared across
// all rooms without locking.
type Service struct {
	log zerolog.Logger

	vocabulary []string            // full vocabulary, fixed sorted order
	vocabSet   map[string]struct{} // membership for guess validation
	vocabPos   map[string]int      // position in vocabulary, frequency proxy
	aliases    map[string]string   // canonical key -> representative surface form

	vectors  map[string][]float32
	rankable []string // vocabulary members with an embedding vector
	dim      int
	semantic bool

	fallback *FallbackRanker
}

type embeddingsFile struct {
	Dim     int                  `json:"dim"`
	Vectors map[string][]float32 `json:"vectors"`
}

// NewService loads the vocabulary (required) and embeddings (optional) from
// cfg. A missing or empty embeddings file degrades to fallback-only mode
// rather than failing startup.
func NewService(cfg Config) (*Service, error) {
	s := &Service{
		log: cfg.Logger.With().Str("component", "similarity").Logger(),
	}

	vocab, err := loadVocabulary(cfg.VocabPath)
	if err != nil {
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}
	if len(vocab) == 0 {
		return nil, fmt.Errorf("vocabulary %s is empty after filtering", cfg.VocabPath)
	}

	s.vocabulary = vocab
	s.vocabSet = make(map[string]struct{}, len(vocab))
	s.vocabPos = make(map[string]int, len(vocab))
	for i, word := range vocab {
		s.vocabSet[word] = struct{}{}
		s.vocabPos[word] = i
	}
	s.aliases = buildAliasMap(vocab)
	s.fallback = NewFallbackRanker(vocab, s.vocabPos, cfg.Oracle)

	s.loadEmbeddings(cfg.EmbeddingsPath)

	return s, nil
}

func loadVocabulary(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return words.BuildVocabulary(lines), nil
}

// loadEmbeddings fills in the semantic half of the service. Any failure here
// leaves the service in fallback-only mode; it never errors out.
func (s *Service) loadEmbeddings(path string) {
	if path == "" {
		s.log.Warn().Msg("no embeddings path configured; semantic mode disabled")
		return
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("embeddings unavailable; semantic mode disabled")
		return
	}

	var file embeddingsFile
	if err := json.Unmarshal(raw, &file); err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("embeddings unreadable; semantic mode disabled")
		return
	}
	if len(file.Vectors) == 0 {
		s.log.Warn().Str("path", path).Msg("embeddings file has no vectors; semantic mode disabled")
		return
	}

	dim := file.Dim
	vectors := make(map[string][]float32, len(file.Vectors))
	for word, vec := range file.Vectors {
		if dim == 0 {
			dim = len(vec)
		}
		if len(vec) != dim {
			s.log.Warn().Str("word", word).Int("len", len(vec)).Int("dim", dim).Msg("skipping vector with mismatched dimension")
			continue
		}
		vectors[word] = vec
	}

	rankable := make([]string, 0, len(vectors))
	for _, word := range s.vocabulary {
		if _, ok := vectors[word]; ok {
			rankable = append(rankable, word)
		}
	}
	if len(rankable) == 0 {
		s.log.Warn().Msg("no vocabulary word has an embedding; semantic mode disabled")
		return
	}

	s.vectors = vectors
	s.rankable = rankable
	s.dim = dim
	s.semantic = true
	s.log.Info().Int("words", len(rankable)).Int("vocabulary", len(s.vocabulary)).Int("dim", dim).Msg("semantic ranking enabled")
}

// buildAliasMap groups vocabulary words by canonical key and picks one
// representative surface form per bucket.
func buildAliasMap(vocabulary []string) map[string]string {
	buckets := make(map[string][]string)
	for _, word := range vocabulary {
		canonical := words.Canonicalize(word)
		if canonical == "" {
			continue
		}
		buckets[canonical] = append(buckets[canonical], word)
	}

	aliases := make(map[string]string, len(buckets))
	for canonical, forms := range buckets {
		aliases[canonical] = words.ChooseRepresentative(forms, canonical)
	}
	return aliases
}

// SemanticEnabled reports whether an embedding table was loaded.
func (s *Service) SemanticEnabled() bool { return s.semantic }

// VocabularySize is the full vocabulary size, fallback words included.
func (s *Service) VocabularySize() int { return len(s.vocabulary) }

// ResolveAlias maps any surface form to its bucket representative. Words
// without a bucket resolve to their own canonical form.
func (s *Service) ResolveAlias(word string) string {
	canonical := words.Canonicalize(word)
	if canonical == "" {
		return ""
	}
	if representative, ok := s.aliases[canonical]; ok {
		return representative
	}
	return canonical
}

// PickTarget returns a uniformly random target word. In semantic mode only
// words with a known embedding are eligible.
func (s *Service) PickTarget() string {
	pool := s.vocabulary
	if s.semantic {
		pool = s.rankable
	}
	if len(pool) == 0 {
		return "context"
	}
	return pool[rand.Intn(len(pool))]
}

// BuildRound resolves the target and computes the round's rank table: cosine
// similarity of every rankable word against the target, sorted descending,
// ties broken by the vocabulary's fixed order. If semantic mode is off or the
// target has no vector, the round is fallback-only with a trivial table.
func (s *Service) BuildRound(targetWord string) *Round {
	target := s.ResolveAlias(targetWord)

	targetVec, ok := s.vectors[target]
	if !s.semantic || !ok {
		return &Round{
			Target:   target,
			Semantic: false,
			ordered:  []string{target},
			ranks:    map[string]int{target: 1},
			sims:     []float64{1},
			svc:      s,
		}
	}

	type scored struct {
		word string
		sim  float64
	}
	list := make([]scored, len(s.rankable))
	for i, word := range s.rankable {
		list[i] = scored{word: word, sim: cosineSimilarity(targetVec, s.vectors[word])}
	}
	// SliceStable keeps vocabulary order on similarity ties, so repeated
	// builds of the same round are identical.
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].sim > list[j].sim
	})

	round := &Round{
		Target:   target,
		Semantic: true,
		ordered:  make([]string, len(list)),
		ranks:    make(map[string]int, len(list)),
		sims:     make([]float64, len(list)),
		svc:      s,
	}
	for i, item := range list {
		round.ordered[i] = item.word
		round.ranks[item.word] = i + 1
		round.sims[i] = item.sim
	}

	s.verifyRankTable(round)
	return round
}

// verifyRankTable spot-checks a freshly built table and logs when something
// looks off. Never fails the round.
func (s *Service) verifyRankTable(round *Round) {
	minimum := len(s.rankable) * 9 / 10
	if len(round.ranks) < minimum {
		s.log.Warn().Int("table", len(round.ranks)).Int("rankable", len(s.rankable)).Msg("rank table smaller than expected")
	}

	if len(round.ordered) < 2 {
		return
	}
	seen := make(map[int]struct{}, 5)
	for i := 0; i < 5; i++ {
		word := round.ordered[rand.Intn(len(round.ordered))]
		seen[round.ranks[word]] = struct{}{}
	}
	if len(seen) <= 1 {
		s.log.Warn().Str("target", round.Target).Msg("sampled ranks are identical; check embeddings")
	}
}

// cosineSimilarity is dot(a,b) / (|a|*|b|), 0 when either magnitude is zero.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		magA += x * x
		magB += y * y
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
