// Package resolve turns page-relative datasource paths into absolute
// identifiers through an ordered cascade of path-construction strategies.
//
// Each strategy builds one absolute candidate per still-unresolved relative
// path and the whole set is looked up in a single batched call, so the
// cascade costs at most one round trip per strategy regardless of how many
// paths are pending. A path resolved by one strategy is never overwritten by
// a later one.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hanpama/contentgraph/internal/eventbus"
	"github.com/hanpama/contentgraph/internal/events"
	"github.com/hanpama/contentgraph/internal/identifier"
	"github.com/hanpama/contentgraph/internal/query"
)

// groupingPrefix is the UI-grouping scheme some hosts prepend to local
// datasource paths. Strategies 3 and 4 strip it.
const groupingPrefix = "local:"

// Lookup is the batched path-lookup channel, implemented by the authoring
// client.
type Lookup interface {
	LookupPaths(ctx context.Context, contextID identifier.ID, specs []query.PathSpec, language string) (map[string]identifier.ID, error)
}

// Resolved maps each requested relative path to its absolute identifier. A
// zero identifier means every strategy was exhausted for that path.
type Resolved map[string]identifier.ID

// Unresolved returns the paths no strategy could resolve.
func (r Resolved) Unresolved() []string {
	var out []string
	for p, id := range r {
		if id.IsZero() {
			out = append(out, p)
		}
	}
	return out
}

type strategy struct {
	name  string
	build func(pagePath, rel string) string
}

// Resolver runs the strategy cascade over a Lookup.
type Resolver struct {
	lookup     Lookup
	log        *slog.Logger
	strategies []strategy
}

// New wires a Resolver with the standard four-strategy cascade. A nil logger
// falls back to slog.Default.
func New(lookup Lookup, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		lookup: lookup,
		log:    log,
		strategies: []strategy{
			{name: "child", build: func(page, rel string) string {
				return joinPath(page, rel)
			}},
			{name: "data-child", build: func(page, rel string) string {
				return joinPath(page, "Data", rel)
			}},
			{name: "stripped", build: func(page, rel string) string {
				return joinPath(page, stripGrouping(rel))
			}},
			{name: "data-stripped", build: func(page, rel string) string {
				return joinPath(page, "Data", stripGrouping(rel))
			}},
		},
	}
}

// Strategies returns the cascade's strategy names in order.
func (r *Resolver) Strategies() []string {
	out := make([]string, len(r.strategies))
	for i, s := range r.strategies {
		out[i] = s.name
	}
	return out
}

// ResolveAll resolves rels against pagePath. Every requested path is a key
// of the result; exhausted paths keep a zero identifier. The cascade returns
// as soon as every path is resolved, and a failed strategy lookup is logged
// and skipped, never fatal.
func (r *Resolver) ResolveAll(ctx context.Context, rels []string, pagePath string, contextID identifier.ID, language string) Resolved {
	out := make(Resolved, len(rels))
	var pending []string
	for _, rel := range rels {
		if _, dup := out[rel]; dup {
			continue
		}
		out[rel] = ""
		pending = append(pending, rel)
	}
	if len(pending) == 0 {
		return out
	}

	start := time.Now()
	eventbus.Publish(ctx, events.PathResolveStart{Paths: len(pending)})
	defer func() {
		eventbus.Publish(ctx, events.PathResolveFinish{
			Resolved:   len(out) - len(out.Unresolved()),
			Unresolved: len(out.Unresolved()),
			Duration:   time.Since(start),
		})
	}()

	for _, st := range r.strategies {
		specs := make([]query.PathSpec, len(pending))
		for i, rel := range pending {
			specs[i] = query.PathSpec{Alias: alias(i), Path: st.build(pagePath, rel)}
		}
		found, err := r.lookup.LookupPaths(ctx, contextID, specs, language)
		eventbus.Publish(ctx, events.PathResolveStrategy{
			Strategy: st.name, Resolved: len(found), Remaining: len(pending) - len(found), Err: err,
		})
		if err != nil {
			r.log.Warn("path strategy lookup failed", "strategy", st.name, "paths", len(pending), "error", err)
			continue
		}

		// Write-once merge: only still-unresolved entries are filled.
		var next []string
		for i, rel := range pending {
			if id, ok := found[alias(i)]; ok && !id.IsZero() {
				out[rel] = id
				continue
			}
			next = append(next, rel)
		}
		pending = next
		if len(pending) == 0 {
			return out
		}
	}

	for _, rel := range pending {
		r.log.Warn("path resolution exhausted", "path", rel)
	}
	return out
}

func alias(i int) string { return fmt.Sprintf("p%d", i) }

func stripGrouping(rel string) string {
	s := strings.TrimPrefix(rel, groupingPrefix)
	return strings.TrimPrefix(s, "/")
}

// joinPath joins path segments with single slashes, tolerating stray
// leading/trailing slashes on the inputs.
func joinPath(parts ...string) string {
	var segs []string
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p != "" {
			segs = append(segs, p)
		}
	}
	return "/" + strings.Join(segs, "/")
}
