package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hanpama/contentgraph/internal/identifier"
	"github.com/hanpama/contentgraph/internal/language"
)

// RenderAuthoring renders the full-field authoring (master database) batch
// document. One aliased item lookup per spec, addressed by database +
// identifier + language.
func RenderAuthoring(database string, specs []Spec) (string, error) {
	return renderAuthoring(database, specs, true)
}

// RenderAuthoringLight renders the authoring batch document without field
// values. The nested-candidate validation pass uses it so rejected candidates
// never cost a full-field fetch.
func RenderAuthoringLight(database string, specs []Spec) (string, error) {
	return renderAuthoring(database, specs, false)
}

func renderAuthoring(database string, specs []Spec, withFields bool) (string, error) {
	if len(specs) == 0 {
		return "", fmt.Errorf("render authoring: empty batch")
	}
	var b strings.Builder
	b.WriteString("query {\n")
	for _, s := range specs {
		fmt.Fprintf(&b, "  %s: item(where: { database: %s, itemId: %s, language: %s }) {\n",
			s.Alias, quote(database), quote(string(s.ID)), quote(s.Language))
		b.WriteString("    itemId\n    name\n    path\n    version\n")
		b.WriteString("    template { name }\n")
		b.WriteString("    language { name }\n")
		if withFields {
			b.WriteString("    fields(ownFields: false) { nodes { name value } }\n")
		}
		b.WriteString("  }\n")
	}
	b.WriteString("}\n")
	return validated(b.String())
}

// RenderLive renders the live (published endpoint) batch document. One
// aliased item lookup per spec, addressed by identifier + language.
func RenderLive(specs []Spec) (string, error) {
	if len(specs) == 0 {
		return "", fmt.Errorf("render live: empty batch")
	}
	var b strings.Builder
	b.WriteString("query {\n")
	for _, s := range specs {
		fmt.Fprintf(&b, "  %s: item(path: %s, language: %s) {\n",
			s.Alias, quote(string(s.ID)), quote(s.Language))
		b.WriteString("    id\n    name\n    path\n    version\n")
		b.WriteString("    template { name }\n")
		b.WriteString("    language { name }\n")
		b.WriteString("    fields { name value }\n")
		b.WriteString("  }\n")
	}
	b.WriteString("}\n")
	return validated(b.String())
}

// RenderPathLookup renders the path-resolution batch document against the
// authoring store: one aliased lookup per absolute path, projecting only the
// item identifier. Path queries are scoped to the tenant's site collection,
// so the tenant context id is required.
func RenderPathLookup(database string, contextID identifier.ID, specs []PathSpec, language string) (string, error) {
	if len(specs) == 0 {
		return "", fmt.Errorf("render path lookup: empty batch")
	}
	var b strings.Builder
	b.WriteString("query {\n")
	for _, s := range specs {
		fmt.Fprintf(&b, "  %s: item(where: { database: %s, contextId: %s, path: %s, language: %s }) { itemId }\n",
			s.Alias, quote(database), quote(string(contextID)), quote(s.Path), quote(language))
	}
	b.WriteString("}\n")
	return validated(b.String())
}

// validated parses the rendered document so a render bug fails here instead
// of surfacing as a backend 400 mid-cycle.
func validated(doc string) (string, error) {
	if _, err := language.ParseQuery(doc); err != nil {
		return "", fmt.Errorf("render: invalid document: %w", err)
	}
	return doc, nil
}

// quote emits a GraphQL string literal. Go's quoting rules are a superset of
// what identifiers, paths, and language tags need.
func quote(s string) string { return strconv.Quote(s) }
