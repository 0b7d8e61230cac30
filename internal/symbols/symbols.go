// Package symbols normalizes ticker symbols and holds benchmark universes.
package symbols

import "strings"

// Normalize trims and uppercases a ticker
func Normalize(sym string) string {
	return strings.ToUpper(strings.TrimSpace(sym))
}

// NormalizeList normalizes tickers, dropping blanks and keeping the order
// of first occurrence
func NormalizeList(syms []string) []string {
	out := make([]string, 0, len(syms))
	seen := make(map[string]bool, len(syms))
	for _, s := range syms {
		s = Normalize(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// Union normalizes and merges ticker lists in order
func Union(lists ...[]string) []string {
	var all []string
	for _, l := range lists {
		all = append(all, l...)
	}
	return NormalizeList(all)
}

// IsValid reports whether sym looks like a listed ticker: letters, digits,
// '.' or '-', at most 10 characters
func IsValid(sym string) bool {
	if len(sym) == 0 || len(sym) > 10 {
		return false
	}
	for _, c := range sym {
		if !((c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '.' || c == '-') {
			return false
		}
	}
	return true
}
