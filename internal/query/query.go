// Package query renders the batched lookup documents sent to the authoring
// and live stores and decodes their alias-keyed responses into entity
// projections.
//
// A batch is a list of {alias, identifier, language} tuples. Aliases are
// positional within a pass ("a0", "a1", ... for the primary pass, "n0", ...
// for the nested pass, "p0", ... for path lookups) so one round trip serves
// the whole batch and the response keys back onto it.
package query

import (
	"fmt"

	"github.com/hanpama/contentgraph/internal/identifier"
)

// Source labels which store a projection came from.
type Source string

const (
	SourceAuthoring Source = "authoring"
	SourceLive      Source = "live"
)

// Field is one name/value pair on an entity. Order follows the store's
// response.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Projection is the per-store view of one entity.
type Projection struct {
	ID           identifier.ID `json:"id"`
	Name         string        `json:"name"`
	Path         string        `json:"path"`
	TemplateName string        `json:"templateName"`
	Language     string        `json:"language"`
	Version      int           `json:"version"`
	Fields       []Field       `json:"fields,omitempty"`
	Source       Source        `json:"source"`
}

// FieldValue returns the value of the named field and whether it is present.
func (p Projection) FieldValue(name string) (string, bool) {
	for _, f := range p.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Spec is one item lookup within a batch.
type Spec struct {
	Alias    string
	ID       identifier.ID
	Language string
}

// PathSpec is one absolute-path lookup within a path-resolution batch.
type PathSpec struct {
	Alias string
	Path  string
}

// Specs builds positional item specs for ids using the given alias prefix.
func Specs(prefix string, ids []identifier.ID, language string) []Spec {
	out := make([]Spec, len(ids))
	for i, id := range ids {
		out[i] = Spec{Alias: fmt.Sprintf("%s%d", prefix, i), ID: id, Language: language}
	}
	return out
}

// PathSpecs builds positional path specs using the given alias prefix.
func PathSpecs(prefix string, paths []string) []PathSpec {
	out := make([]PathSpec, len(paths))
	for i, p := range paths {
		out[i] = PathSpec{Alias: fmt.Sprintf("%s%d", prefix, i), Path: p}
	}
	return out
}
