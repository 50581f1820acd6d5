package match

import "strings"

// globMeta holds the metacharacters that start a glob expression.
const globMeta = "*?[{"

// IsGlobPattern reports whether s contains glob metacharacters.
// Escape sequences are not supported; a backslash is a literal character.
func IsGlobPattern(s string) bool {
	return strings.ContainsAny(s, globMeta)
}

// DerivePrefix extracts the longest static key prefix from a glob
// pattern, truncated to the last complete path segment. The prefix can
// be handed to a listing call to narrow the candidate set before
// pattern matching.
//
// Examples:
//
//	"data/2024/**/*.parquet" → "data/2024/"
//	"*.json"                 → ""
//	"logs/app-?/current"     → "logs/"
//	"exact/path/file.txt"    → "exact/path/file.txt"
func DerivePrefix(pattern string) string {
	meta := strings.IndexAny(pattern, globMeta)
	if meta == -1 {
		return pattern
	}
	if meta == 0 {
		return ""
	}

	// Truncate to the last complete segment so "data/2024-*" derives
	// "data/" rather than the partial segment "data/2024-".
	prefix := pattern[:meta]
	if slash := strings.LastIndex(prefix, "/"); slash >= 0 {
		return prefix[:slash+1]
	}
	return ""
}

// EnsureTrailingSlash appends "/" when key is non-empty and lacks one.
// Used to normalize prefixes so sibling keys sharing leading characters
// are not swept into a listing.
func EnsureTrailingSlash(key string) string {
	if key == "" || strings.HasSuffix(key, "/") {
		return key
	}
	return key + "/"
}
