// Package words canonicalizes raw guess text so inflected forms of a word
// collapse to a single identity, and filters raw word lists into a playable
// vocabulary.
package words

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var tokenPattern = regexp.MustCompile(`^[a-z]+(?:'[a-z]+)?$`)

var irregularSingulars = map[string]string{
	"men":      "man",
	"women":    "woman",
	"children": "child",
	"mice":     "mouse",
	"geese":    "goose",
	"teeth":    "tooth",
	"feet":     "foot",
	"people":   "person",
	"indices":  "index",
	"matrices": "matrix",
	"dice":     "die",
	"oxen":     "ox",
	"data":     "datum",
	"criteria": "criterion",
	"media":    "medium",
}

// Words that end in "s" without being plurals.
var sSuffixExceptions = map[string]struct{}{
	"glass":    {},
	"class":    {},
	"bass":     {},
	"grass":    {},
	"press":    {},
	"chess":    {},
	"guess":    {},
	"news":     {},
	"thesis":   {},
	"analysis": {},
	"crisis":   {},
	"series":   {},
	"species":  {},
}

// Normalize cleans raw guess text and returns both a display form (lowercased,
// whitespace-collapsed, punctuation-stripped, apostrophes preserved) and a
// canonical form with every token singularized. The canonical form is the
// dedup key for "already guessed"; normalizing an already-canonical word
// returns it unchanged.
func Normalize(raw string) (display, canonical string) {
	tokens := Tokenize(raw)
	if len(tokens) == 0 {
		return "", ""
	}

	display = strings.Join(tokens, " ")

	reduced := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if s := singularize(token); s != "" {
			reduced = append(reduced, s)
		}
	}
	canonical = strings.Join(reduced, " ")
	if canonical == "" {
		canonical = display
	}
	return display, canonical
}

// Canonicalize is shorthand for the canonical half of Normalize.
func Canonicalize(raw string) string {
	_, canonical := Normalize(raw)
	return canonical
}

// Tokenize splits raw input into cleaned lowercase tokens, dropping anything
// that is not a plain English token.
func Tokenize(raw string) []string {
	fields := strings.Fields(raw)
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		token := cleanToken(field)
		if token == "" || !tokenPattern.MatchString(token) {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}

// cleanToken lowercases, folds diacritics via NFKD decomposition, and trims
// leading/trailing characters outside [a-z'].
func cleanToken(raw string) string {
	decomposed := norm.NFKD.String(strings.ToLower(raw))

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}

	return strings.TrimFunc(b.String(), func(r rune) bool {
		return (r < 'a' || r > 'z') && r != '\''
	})
}

func isConsonant(b byte) bool {
	switch b {
	case 'a', 'e', 'i', 'o', 'u':
		return false
	}
	return b >= 'b' && b <= 'z'
}

// undoubleFinalConsonant turns "runn" back into "run" after stripping a
// suffix like -ing or -ed.
func undoubleFinalConsonant(value string) string {
	if len(value) < 4 {
		return value
	}
	last := value[len(value)-1]
	prev := value[len(value)-2]
	if last == prev && isConsonant(last) {
		return value[:len(value)-1]
	}
	return value
}

var sibilantPlural = regexp.MustCompile(`(ches|shes|sses|xes|zes|oes)$`)

// singularize reduces a single token to a best-effort lemma. Irregular forms
// are looked up first, then suffix rules apply in priority order.
func singularize(token string) string {
	if token == "" {
		return ""
	}
	if singular, ok := irregularSingulars[token]; ok {
		return singular
	}
	if _, ok := sSuffixExceptions[token]; ok {
		return token
	}

	if strings.HasSuffix(token, "ies") && len(token) > 4 {
		return token[:len(token)-3] + "y"
	}

	if strings.HasSuffix(token, "ves") && len(token) > 4 {
		base := token[:len(token)-3]
		if strings.HasSuffix(base, "i") {
			return base[:len(base)-1] + "ife"
		}
		return base + "f"
	}

	if sibilantPlural.MatchString(token) && len(token) > 4 {
		return token[:len(token)-2]
	}

	if strings.HasSuffix(token, "s") && len(token) > 3 &&
		!strings.HasSuffix(token, "ss") && !strings.HasSuffix(token, "us") && !strings.HasSuffix(token, "is") {
		return token[:len(token)-1]
	}

	if strings.HasSuffix(token, "ing") && len(token) > 5 {
		if base := undoubleFinalConsonant(token[:len(token)-3]); len(base) > 2 {
			return base
		}
	}

	if strings.HasSuffix(token, "ed") && len(token) > 4 {
		if base := undoubleFinalConsonant(token[:len(token)-2]); len(base) > 2 {
			return base
		}
	}

	return token
}
