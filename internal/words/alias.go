package words

import (
	"math"
	"sort"
	"strings"
)

// suffixPenalty scores how inflected a surface form looks. Lower is better.
// Only the first matching suffix applies.
var suffixPenalties = []struct {
	suffix        string
	penalty       float64
	intrinsicSafe bool
}{
	{"ies", 80, false},
	{"es", 60, false},
	{"s", 40, true},
	{"ed", 30, false},
	{"ing", 25, false},
}

// scoreCandidate ranks a surface form as the representative for a canonical
// key. The canonical form itself always wins; otherwise less-inflected and
// shorter forms are preferred.
func scoreCandidate(word, canonical string) float64 {
	if word == "" {
		return math.Inf(1)
	}
	if word == canonical {
		return math.Inf(-1)
	}

	var score float64
	for _, sp := range suffixPenalties {
		if !strings.HasSuffix(word, sp.suffix) {
			continue
		}
		if sp.intrinsicSafe {
			if _, intrinsic := sSuffixExceptions[word]; intrinsic {
				continue
			}
		}
		score += sp.penalty
		break
	}

	if len(word) > len(canonical) {
		score += float64(len(word) - len(canonical))
	}
	score += 0.5 * float64(len(word))

	return score
}

// ChooseRepresentative picks a single surface form to stand for an alias
// bucket. Pure and order-independent: ties break by suffix penalty, then
// length, then lexical order, so results do not depend on vocabulary load
// order.
func ChooseRepresentative(candidates []string, canonical string) string {
	unique := make([]string, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, word := range candidates {
		if word == "" {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		unique = append(unique, word)
	}
	if len(unique) == 0 {
		return canonical
	}
	if canonical != "" {
		if _, ok := seen[canonical]; ok {
			return canonical
		}
	}

	sort.Slice(unique, func(i, j int) bool {
		si, sj := scoreCandidate(unique[i], canonical), scoreCandidate(unique[j], canonical)
		if si != sj {
			return si < sj
		}
		if len(unique[i]) != len(unique[j]) {
			return len(unique[i]) < len(unique[j])
		}
		return unique[i] < unique[j]
	})
	return unique[0]
}
