package index

import "strings"

// Tokenize lowercases and whitespace-splits text. No stemming, no stop
// words.
func Tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// tokenSet returns the distinct tokens of text.
func tokenSet(text string) map[string]struct{} {
	tokens := Tokenize(text)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}
