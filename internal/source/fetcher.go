package source

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hanpama/contentgraph/internal/eventbus"
	"github.com/hanpama/contentgraph/internal/events"
	"github.com/hanpama/contentgraph/internal/identifier"
	"github.com/hanpama/contentgraph/internal/query"
)

// Result is the joined outcome of one dual-source batch. A failed channel is
// reported on its error field with an empty map; the other channel's data is
// unaffected. Errors here never abort a cycle.
type Result struct {
	Authoring map[string]query.Projection
	Live      map[string]query.Projection

	AuthoringErr error
	LiveErr      error
}

// Fetcher fans one identifier batch out to the authoring and live channels
// concurrently and joins before returning.
type Fetcher struct {
	authoring *Authoring
	live      *Live
	log       *slog.Logger
}

// NewFetcher wires a Fetcher. live may be nil, in which case every batch
// degrades to authoring-only data. A nil logger falls back to slog.Default.
func NewFetcher(authoring *Authoring, live *Live, log *slog.Logger) *Fetcher {
	if log == nil {
		log = slog.Default()
	}
	return &Fetcher{authoring: authoring, live: live, log: log}
}

// Fetch runs both batched lookups in parallel. An empty spec list
// short-circuits with no network call on either channel.
func (f *Fetcher) Fetch(ctx context.Context, contextID identifier.ID, specs []query.Spec) Result {
	res := Result{
		Authoring: map[string]query.Projection{},
		Live:      map[string]query.Projection{},
	}
	if len(specs) == 0 {
		return res
	}

	// Deliberately not errgroup.WithContext: one channel failing must not
	// cancel the other. The group is used only as a join.
	var g errgroup.Group
	g.Go(func() error {
		items, err := f.fetchOne(ctx, "authoring", specs, func() (map[string]query.Projection, error) {
			return f.authoring.FetchItems(ctx, specs)
		})
		res.Authoring, res.AuthoringErr = items, err
		return nil
	})
	g.Go(func() error {
		if f.live == nil {
			return nil
		}
		items, err := f.fetchOne(ctx, "live", specs, func() (map[string]query.Projection, error) {
			return f.live.FetchItems(ctx, contextID, specs)
		})
		res.Live, res.LiveErr = items, err
		return nil
	})
	_ = g.Wait()
	return res
}

func (f *Fetcher) fetchOne(ctx context.Context, name string, specs []query.Spec, run func() (map[string]query.Projection, error)) (map[string]query.Projection, error) {
	start := time.Now()
	eventbus.Publish(ctx, events.SourceQueryStart{Source: name, Items: len(specs)})
	items, err := run()
	eventbus.Publish(ctx, events.SourceQueryFinish{Source: name, Items: len(items), Err: err, Duration: time.Since(start)})
	if err != nil {
		f.log.Warn("source query degraded", "source", name, "items", len(specs), "error", err)
		return map[string]query.Projection{}, err
	}
	return items, nil
}
