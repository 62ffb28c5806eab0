package usecase

import "strings"

// Normalize splits raw ingredient text on commas and trims surrounding
// whitespace from each token, preserving order. It does not deduplicate,
// lowercase or drop empty tokens: the result always has
// strings.Count(raw, ",")+1 elements.
func Normalize(raw string) []string {
	tokens := strings.Split(raw, ",")
	for i, token := range tokens {
		tokens[i] = strings.TrimSpace(token)
	}
	return tokens
}
