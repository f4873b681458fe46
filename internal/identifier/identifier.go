// Package identifier defines the canonical textual form of content item
// identifiers and the operations the pipeline performs on them: normalization,
// free-text discovery, and ordered deduplicated collection.
//
// Every identifier crossing a package boundary is canonical: uppercase,
// brace-stripped, 8-4-4-4-12 hyphenated. Canonical form is the sole key used
// for map lookups and membership tests anywhere in the pipeline.
package identifier

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// ID is a canonical content item identifier.
type ID string

// String returns the canonical text.
func (id ID) String() string { return string(id) }

// IsZero reports whether id is the empty identifier.
func (id ID) IsZero() bool { return id == "" }

// pattern matches the hyphenated identifier text form, with or without
// surrounding braces, in any letter case.
var pattern = regexp.MustCompile(`\{?[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}\}?`)

// Normalize canonicalizes raw identifier text. It accepts braced and unbraced
// forms in any letter case. ok is false when raw is not a well-formed
// identifier.
func Normalize(raw string) (id ID, ok bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "}")
	u, err := uuid.Parse(s)
	if err != nil {
		return "", false
	}
	return ID(strings.ToUpper(u.String())), true
}

// MustNormalize is Normalize for statically known input; it panics on
// malformed text. Intended for defaults and tests.
func MustNormalize(raw string) ID {
	id, ok := Normalize(raw)
	if !ok {
		panic("identifier: malformed identifier " + raw)
	}
	return id
}

// FindAll scans free text for embedded identifiers and returns them in
// canonical form, in order of first appearance, deduplicated. Matches may be
// brace-delimited or bare and in any letter case.
func FindAll(text string) []ID {
	matches := pattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]ID, 0, len(matches))
	seen := make(map[ID]struct{}, len(matches))
	for _, m := range matches {
		id, ok := Normalize(m)
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Set is an insertion-ordered, deduplicated identifier collection.
type Set struct {
	order []ID
	seen  map[ID]struct{}
}

// NewSet creates a Set seeded with ids, preserving first-appearance order.
func NewSet(ids ...ID) *Set {
	s := &Set{seen: make(map[ID]struct{}, len(ids))}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add appends id unless it is already present or zero. It reports whether the
// set grew.
func (s *Set) Add(id ID) bool {
	if id.IsZero() {
		return false
	}
	if _, ok := s.seen[id]; ok {
		return false
	}
	if s.seen == nil {
		s.seen = make(map[ID]struct{})
	}
	s.seen[id] = struct{}{}
	s.order = append(s.order, id)
	return true
}

// Contains reports membership.
func (s *Set) Contains(id ID) bool {
	_, ok := s.seen[id]
	return ok
}

// Values returns the members in insertion order. The returned slice is a
// copy.
func (s *Set) Values() []ID {
	out := make([]ID, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the member count.
func (s *Set) Len() int { return len(s.order) }
