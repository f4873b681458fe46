// Package refs discovers the reference graph hidden in authoring field text.
//
// There is no explicit reference schema: any field value may embed item
// identifiers, braced or bare. The extractor scans every non-system field of
// every authoring projection and records, per discovered child, the set of
// parents that mention it. The result is a plain child-to-parents map; the
// extractor never recurses past the entities it was given, so cyclic and
// self references need no special handling.
package refs

import (
	"strings"

	"github.com/hanpama/contentgraph/internal/identifier"
	"github.com/hanpama/contentgraph/internal/query"
)

// DefaultSystemFields are the metadata field names never scanned for
// references: creation, update, ownership, workflow, and revision markers.
// Names carrying the host's "__" system marker are skipped regardless.
var DefaultSystemFields = []string{
	"Created",
	"Created By",
	"Updated",
	"Updated By",
	"Owner",
	"Workflow",
	"Workflow State",
	"Revision",
	"Lock",
	"Security",
}

// displayNameField is the optional field projected onto parent references.
const displayNameField = "Display Name"

// ParentRef identifies one entity that references a discovered child.
type ParentRef struct {
	ID          identifier.ID `json:"id"`
	Name        string        `json:"name"`
	Path        string        `json:"path"`
	DisplayName string        `json:"displayName,omitempty"`
}

// Graph is the outcome of one extraction pass.
type Graph struct {
	// Candidates are discovered identifiers not already in the main set, in
	// discovery order. Only these proceed to the nested fetch.
	Candidates []identifier.ID
	// Parents maps every discovered child, including already-known ones, to
	// the entities referencing it, deduplicated by parent id.
	Parents map[identifier.ID][]ParentRef
}

// Extractor scans authoring projections for embedded references.
type Extractor struct {
	systemFields map[string]struct{}
}

// NewExtractor builds an Extractor. With no arguments the default system
// field set applies.
func NewExtractor(systemFields ...string) *Extractor {
	if len(systemFields) == 0 {
		systemFields = DefaultSystemFields
	}
	set := make(map[string]struct{}, len(systemFields))
	for _, f := range systemFields {
		set[f] = struct{}{}
	}
	return &Extractor{systemFields: set}
}

func (e *Extractor) scannable(fieldName string) bool {
	if strings.HasPrefix(fieldName, "__") {
		return false
	}
	_, system := e.systemFields[fieldName]
	return !system
}

// Extract scans items in order and builds the reference graph. known is the
// main identifier set: ids already in it are never queued as candidates, but
// their parent linkage is still recorded.
func (e *Extractor) Extract(items []query.Projection, known *identifier.Set) Graph {
	g := Graph{Parents: map[identifier.ID][]ParentRef{}}
	queued := identifier.NewSet()

	for _, item := range items {
		parent := ParentRef{ID: item.ID, Name: item.Name, Path: item.Path}
		if dn, ok := item.FieldValue(displayNameField); ok {
			parent.DisplayName = dn
		}

		for _, f := range item.Fields {
			if !e.scannable(f.Name) {
				continue
			}
			for _, child := range identifier.FindAll(f.Value) {
				if !hasParent(g.Parents[child], parent.ID) {
					g.Parents[child] = append(g.Parents[child], parent)
				}
				if known.Contains(child) {
					continue
				}
				if queued.Add(child) {
					g.Candidates = append(g.Candidates, child)
				}
			}
		}
	}
	return g
}

func hasParent(refs []ParentRef, id identifier.ID) bool {
	for _, r := range refs {
		if r.ID == id {
			return true
		}
	}
	return false
}
