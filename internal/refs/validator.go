package refs

import "strings"

// DefaultExcludedPrefixes are the system-owned subtrees whose entities never
// surface as nested results.
var DefaultExcludedPrefixes = []string{
	"/system",
	"/templates",
	"/layout",
}

// Validator filters discovered candidates by path before they earn a
// full-field fetch.
type Validator struct {
	prefixes []string
}

// NewValidator builds a Validator. With no arguments the default excluded
// prefixes apply.
func NewValidator(prefixes ...string) *Validator {
	if len(prefixes) == 0 {
		prefixes = DefaultExcludedPrefixes
	}
	lowered := make([]string, len(prefixes))
	for i, p := range prefixes {
		lowered[i] = strings.ToLower(p)
	}
	return &Validator{prefixes: lowered}
}

// Accept reports whether a candidate with the given resolved path may
// proceed. Empty paths and system-owned subtrees are rejected. Matching is
// case-insensitive because the stores treat paths that way.
func (v *Validator) Accept(path string) bool {
	if path == "" {
		return false
	}
	p := strings.ToLower(path)
	for _, prefix := range v.prefixes {
		if strings.HasPrefix(p, prefix) {
			return false
		}
	}
	return true
}
