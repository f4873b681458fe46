// Package hostctx extracts the pipeline's inputs from the host-supplied page
// and application contexts.
//
// The host owns both context shapes and may omit or relocate fields between
// releases, so every value is probed through an explicit, prioritized rule
// list rather than a single hard-coded location. Rules are plain data and the
// extractor is testable without any real host.
package hostctx

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hanpama/contentgraph/internal/identifier"
)

var (
	// ErrContextUnavailable reports that the host context lookup itself
	// failed. Fatal to the cycle.
	ErrContextUnavailable = errors.New("hostctx: page context unavailable")

	// ErrNoIdentifiers reports that extraction yielded zero identifiers and
	// the caller supplied no override list. Fatal to the cycle.
	ErrNoIdentifiers = errors.New("hostctx: no identifiers in page context")

	// ErrContextIDUnresolved reports that the tenant/security context id
	// could not be derived. Non-fatal; it only disables local-path
	// resolution for the cycle.
	ErrContextIDUnresolved = errors.New("hostctx: context id unresolved")
)

// Provider is the host side of context discovery. Both calls return opaque
// blobs whose shape is host-controlled.
type Provider interface {
	PageContext(ctx context.Context) (map[string]any, error)
	AppContext(ctx context.Context) (map[string]any, error)
}

// Rule names one candidate location of a value inside a context blob, as a
// path of nested map keys.
type Rule struct {
	Path []string
}

// R is shorthand for building a Rule.
func R(path ...string) Rule { return Rule{Path: path} }

// probe walks blob along the rule path. ok is false when any segment is
// missing or not a map.
func probe(blob map[string]any, r Rule) (any, bool) {
	var cur any = blob
	for _, seg := range r.Path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// firstString returns the first rule that yields a non-empty string.
func firstString(blob map[string]any, rules []Rule) (string, bool) {
	for _, r := range rules {
		if v, ok := probe(blob, r); ok {
			if s, ok := v.(string); ok && s != "" {
				return s, true
			}
		}
	}
	return "", false
}

// firstList returns the first rule that yields a non-empty list.
func firstList(blob map[string]any, rules []Rule) ([]any, bool) {
	for _, r := range rules {
		if v, ok := probe(blob, r); ok {
			if l, ok := v.([]any); ok && len(l) > 0 {
				return l, true
			}
		}
	}
	return nil, false
}

// PageInfo is everything the pipeline needs from the page context.
type PageInfo struct {
	// ItemID is the current entity; it is also IDs[0] when present.
	ItemID identifier.ID
	// Path is the page's absolute path, the base for local-path resolution.
	Path string
	// Language is the active language, "en" when the host omits it.
	Language string
	// IDs is the initial identifier list: current entity first, then
	// datasources that are already identifiers, in discovery order.
	IDs []identifier.ID
	// LocalPaths are page-relative datasource paths still needing
	// resolution, deduplicated in discovery order.
	LocalPaths []string
}

// Extractor derives pipeline inputs from a Provider. The zero value is not
// usable; construct with New.
type Extractor struct {
	itemRules  []Rule
	pathRules  []Rule
	langRules  []Rule
	rendRules  []Rule
	ctxIDRules []Rule
}

// Option adjusts an Extractor.
type Option func(*Extractor)

// WithItemRules replaces the current-item id rules.
func WithItemRules(rules ...Rule) Option { return func(e *Extractor) { e.itemRules = rules } }

// WithPathRules replaces the page path rules.
func WithPathRules(rules ...Rule) Option { return func(e *Extractor) { e.pathRules = rules } }

// WithLanguageRules replaces the language rules.
func WithLanguageRules(rules ...Rule) Option { return func(e *Extractor) { e.langRules = rules } }

// WithRenderingRules replaces the rules locating the rendering list.
func WithRenderingRules(rules ...Rule) Option { return func(e *Extractor) { e.rendRules = rules } }

// WithContextIDRules replaces the tenant context id rules.
func WithContextIDRules(rules ...Rule) Option { return func(e *Extractor) { e.ctxIDRules = rules } }

// New builds an Extractor with the default rule lists, adjusted by opts.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		itemRules:  []Rule{R("route", "itemId"), R("itemId"), R("item", "id")},
		pathRules:  []Rule{R("route", "path"), R("path"), R("item", "path")},
		langRules:  []Rule{R("route", "language"), R("language"), R("site", "language")},
		rendRules:  []Rule{R("route", "renderings"), R("renderings")},
		ctxIDRules: []Rule{R("siteContext", "contextId"), R("contextId"), R("app", "contextId")},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Page extracts the initial identifier set, local datasource paths, page
// path, and language from the provider's page context.
func (e *Extractor) Page(ctx context.Context, p Provider) (*PageInfo, error) {
	blob, err := p.PageContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContextUnavailable, err)
	}
	if blob == nil {
		return nil, ErrContextUnavailable
	}

	info := &PageInfo{Language: "en"}
	if lang, ok := firstString(blob, e.langRules); ok {
		info.Language = lang
	}
	if path, ok := firstString(blob, e.pathRules); ok {
		info.Path = path
	}

	ids := identifier.NewSet()
	if raw, ok := firstString(blob, e.itemRules); ok {
		if id, ok := identifier.Normalize(raw); ok {
			info.ItemID = id
			ids.Add(id)
		}
	}

	seenPaths := map[string]struct{}{}
	if list, ok := firstList(blob, e.rendRules); ok {
		for _, entry := range list {
			ds, ok := datasourceOf(entry)
			if !ok {
				continue
			}
			if id, ok := identifier.Normalize(ds); ok {
				ids.Add(id)
				continue
			}
			if strings.HasPrefix(ds, "/") {
				// Already absolute; nothing to resolve and nothing to
				// fetch by id.
				continue
			}
			if _, dup := seenPaths[ds]; dup {
				continue
			}
			seenPaths[ds] = struct{}{}
			info.LocalPaths = append(info.LocalPaths, ds)
		}
	}

	info.IDs = ids.Values()
	if len(info.IDs) == 0 {
		return nil, ErrNoIdentifiers
	}
	return info, nil
}

// datasourceOf reads the datasource string from one rendering entry. The
// host emits either a map with a "dataSource" key or a bare string.
func datasourceOf(entry any) (string, bool) {
	switch v := entry.(type) {
	case string:
		return v, v != ""
	case map[string]any:
		if s, ok := v["dataSource"].(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// ContextID derives the tenant/security context id from the provider's
// application context.
func (e *Extractor) ContextID(ctx context.Context, p Provider) (identifier.ID, error) {
	blob, err := p.AppContext(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrContextIDUnresolved, err)
	}
	raw, ok := firstString(blob, e.ctxIDRules)
	if !ok {
		return "", ErrContextIDUnresolved
	}
	id, ok := identifier.Normalize(raw)
	if !ok {
		return "", fmt.Errorf("%w: malformed id %q", ErrContextIDUnresolved, raw)
	}
	return id, nil
}
