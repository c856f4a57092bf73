// Package mentions extracts @username tokens from post content.
package mentions

import "strings"

// Tokens returns the mention tokens found in content, without the leading
// '@', in order of first appearance. A token is '@' followed by a maximal
// run of non-whitespace characters; duplicate tokens are collapsed. Whether
// a token names a real user is decided later, against the user directory.
func Tokens(content string) []string {
	var (
		tokens []string
		seen   = map[string]struct{}{}
	)
	for _, word := range strings.Fields(content) {
		i := strings.IndexByte(word, '@')
		if i < 0 {
			continue
		}
		token := word[i+1:]
		if token == "" {
			continue
		}
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		tokens = append(tokens, token)
	}
	return tokens
}
