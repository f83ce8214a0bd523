package words

import "sort"

// Common non-English tokens that slip into frequency-derived word lists.
var foreignStopwords = map[string]struct{}{
	"que": {}, "qui": {}, "como": {}, "con": {}, "sin": {},
	"una": {}, "uno": {}, "las": {}, "los": {}, "para": {},
	"por": {}, "pero": {}, "dans": {}, "avec": {}, "sans": {},
	"pour": {}, "vous": {}, "nous": {}, "der": {}, "die": {},
	"das": {}, "und": {}, "nicht": {}, "ein": {}, "eine": {},
	"les": {}, "des": {}, "gli": {}, "della": {},
}

// IsAllowedVocabToken reports whether a cleaned token may enter the
// vocabulary: at least three letters, plain ASCII English, and not a known
// foreign stopword.
func IsAllowedVocabToken(token string) bool {
	if len(token) < 3 {
		return false
	}
	if !tokenPattern.MatchString(token) {
		return false
	}
	if _, stop := foreignStopwords[token]; stop {
		return false
	}
	return true
}

// BuildVocabulary filters raw word-list lines into a deduplicated, sorted
// vocabulary. The fixed sort order is what makes rank ties deterministic
// later on.
func BuildVocabulary(lines []string) []string {
	set := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		token := cleanToken(line)
		if !IsAllowedVocabToken(token) {
			continue
		}
		set[token] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for token := range set {
		out = append(out, token)
	}
	sort.Strings(out)
	return out
}
