package retrieval

import (
	"strings"
	"unicode"
)

// maxKeywords bounds the OR-query sent to the text index.
const maxKeywords = 12

// stopwords are question words that match every corpus document.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {}, "that": {}, "this": {}, "what": {},
	"which": {}, "where": {}, "when": {}, "how": {}, "show": {}, "give": {}, "list": {}, "find": {},
	"are": {}, "was": {}, "were": {}, "did": {}, "does": {}, "have": {}, "has": {}, "all": {},
	"any": {}, "can": {}, "you": {}, "near": {}, "between": {}, "about": {}, "into": {}, "over": {},
	"last": {}, "same": {}, "data": {}, "please": {}, "tell": {}, "there": {}, "their": {},
}

// Keywords lowercases text and returns its distinct words of three or more letters or
// digits, stopwords removed, in order of appearance.
func Keywords(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return r > unicode.MaxASCII || (!unicode.IsLetter(r) && !unicode.IsDigit(r))
	})

	seen := make(map[string]struct{}, len(words))
	var out []string
	for _, w := range words {
		if len(w) < 3 {
			continue
		}
		if _, ok := stopwords[w]; ok {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}
