// Package pipeline orchestrates the content-resolution cycle: context
// extraction, local-path resolution, the dual-source primary fetch,
// reference discovery, nested validation and fetch, and the final merge into
// one unified response.
//
// One cycle owns its accumulators privately and publishes to shared state
// only at its successful terminal step. Re-invoking while a cycle is in
// flight starts an independent cycle; nothing is cancelled, and when both
// complete the last one to finish wins. There are no retries: a degraded
// source or unresolved path stays that way for the rest of the cycle.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hanpama/contentgraph/internal/cycleid"
	"github.com/hanpama/contentgraph/internal/eventbus"
	"github.com/hanpama/contentgraph/internal/events"
	"github.com/hanpama/contentgraph/internal/hostctx"
	"github.com/hanpama/contentgraph/internal/identifier"
	"github.com/hanpama/contentgraph/internal/query"
	"github.com/hanpama/contentgraph/internal/refs"
	"github.com/hanpama/contentgraph/internal/resolve"
	"github.com/hanpama/contentgraph/internal/source"
)

// Service runs resolution cycles and holds the last published result.
type Service struct {
	provider  hostctx.Provider
	extractor *hostctx.Extractor
	authoring *source.Authoring
	fetcher   *source.Fetcher
	resolver  *resolve.Resolver
	refs      *refs.Extractor
	validator *refs.Validator
	language  string
	log       *slog.Logger

	mu        sync.Mutex
	published *Summary
	pubErr    error
	running   atomic.Int32
}

// Option adjusts a Service.
type Option func(*Service)

// WithLogger sets the logger used for degradation warnings.
func WithLogger(log *slog.Logger) Option { return func(s *Service) { s.log = log } }

// WithExtractor replaces the host-context extractor.
func WithExtractor(e *hostctx.Extractor) Option { return func(s *Service) { s.extractor = e } }

// WithSystemFields replaces the system-field exclusion set used during
// reference discovery.
func WithSystemFields(fields ...string) Option {
	return func(s *Service) { s.refs = refs.NewExtractor(fields...) }
}

// WithExcludedPrefixes replaces the path prefixes that disqualify nested
// candidates.
func WithExcludedPrefixes(prefixes ...string) Option {
	return func(s *Service) { s.validator = refs.NewValidator(prefixes...) }
}

// WithDefaultLanguage sets the language used when a cycle bypasses context
// discovery. Default "en".
func WithDefaultLanguage(lang string) Option { return func(s *Service) { s.language = lang } }

// New wires a Service. provider may be nil when only explicit-identifier
// cycles will run; live may be nil to run authoring-only.
func New(provider hostctx.Provider, authoring *source.Authoring, live *source.Live, opts ...Option) (*Service, error) {
	if authoring == nil {
		return nil, fmt.Errorf("pipeline: authoring channel is required")
	}
	s := &Service{
		provider:  provider,
		extractor: hostctx.New(),
		authoring: authoring,
		refs:      refs.NewExtractor(),
		validator: refs.NewValidator(),
		language:  "en",
		log:       slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	s.fetcher = source.NewFetcher(authoring, live, s.log)
	s.resolver = resolve.New(authoring, s.log)
	return s, nil
}

// RunFullCycle executes the whole pipeline from ambient page context.
func (s *Service) RunFullCycle(ctx context.Context) (*Summary, error) {
	return s.run(ctx, nil, false, "context")
}

// RunForIdentifiers executes the pipeline for an explicit identifier list,
// bypassing context discovery. Malformed entries are dropped with a warning;
// an effectively empty list is fatal exactly like empty context extraction.
func (s *Service) RunForIdentifiers(ctx context.Context, rawIDs []string) (*Summary, error) {
	ids := make([]identifier.ID, 0, len(rawIDs))
	for _, raw := range rawIDs {
		id, ok := identifier.Normalize(raw)
		if !ok {
			s.log.Warn("dropping malformed identifier", "id", raw)
			continue
		}
		ids = append(ids, id)
	}
	return s.run(ctx, ids, true, "explicit")
}

// Current returns the shared state as last published.
func (s *Service) Current() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Result: s.published, Err: s.pubErr, InFlight: s.running.Load() > 0}
}

// Reset clears the published result and error.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published, s.pubErr = nil, nil
}

func (s *Service) run(ctx context.Context, override []identifier.ID, explicit bool, trigger string) (*Summary, error) {
	ctx, _ = cycleid.Ensure(ctx)
	s.running.Add(1)
	defer s.running.Add(-1)

	start := time.Now()
	eventbus.Publish(ctx, events.CycleStart{Trigger: trigger, IDs: len(override)})

	c := &cycle{svc: s, state: StateIdle}
	sum, err := c.run(ctx, override, explicit)

	finish := events.CycleFinish{Err: err, Duration: time.Since(start)}
	if sum != nil {
		finish.Records = len(sum.Records)
		finish.Nested = sum.Counts.Nested
	}
	eventbus.Publish(ctx, finish)

	// Publication is the only shared-state mutation. A fatal error clears
	// any previously published result; success overwrites it. Concurrent
	// cycles race here, last write wins.
	s.mu.Lock()
	if err != nil {
		s.published, s.pubErr = nil, err
	} else {
		s.published, s.pubErr = sum, nil
	}
	s.mu.Unlock()
	return sum, err
}

// cycle is the private accumulator of one run. Nothing in it is visible
// outside until publication.
type cycle struct {
	svc   *Service
	state State

	language  string
	pagePath  string
	currentID identifier.ID
	contextID identifier.ID

	ids        *identifier.Set
	localPaths []string
	resolved   resolve.Resolved

	authoring map[identifier.ID]query.Projection
	live      map[identifier.ID]query.Projection
	parents   map[identifier.ID][]refs.ParentRef

	nestedCount     int
	unresolvedPaths int
	degraded        []string
}

func (c *cycle) run(ctx context.Context, override []identifier.ID, explicit bool) (*Summary, error) {
	c.authoring = map[identifier.ID]query.Projection{}
	c.live = map[identifier.ID]query.Projection{}
	c.parents = map[identifier.ID][]refs.ParentRef{}

	if err := c.extractContext(ctx, override, explicit); err != nil {
		return nil, err
	}
	c.resolveContextID(ctx)
	c.resolveLocalPaths(ctx)
	c.fetchPrimary(ctx)
	candidates := c.extractReferences()
	c.validateAndFetchNested(ctx, candidates)
	return c.merge(), nil
}

func (c *cycle) extractContext(ctx context.Context, override []identifier.ID, explicit bool) error {
	c.state = StateExtractingContext
	if explicit {
		if len(override) == 0 {
			return fmt.Errorf("pipeline: empty override list: %w", hostctx.ErrNoIdentifiers)
		}
		c.ids = identifier.NewSet(override...)
		c.currentID = override[0]
		c.language = c.svc.language
		return nil
	}
	if c.svc.provider == nil {
		return fmt.Errorf("pipeline: no provider: %w", hostctx.ErrContextUnavailable)
	}
	info, err := c.svc.extractor.Page(ctx, c.svc.provider)
	if err != nil {
		return err
	}
	c.ids = identifier.NewSet(info.IDs...)
	c.currentID = info.ItemID
	if c.currentID.IsZero() {
		c.currentID = info.IDs[0]
	}
	c.language = info.Language
	c.pagePath = info.Path
	c.localPaths = info.LocalPaths
	return nil
}

func (c *cycle) resolveContextID(ctx context.Context) {
	c.state = StateResolvingContextID
	if c.svc.provider == nil {
		return
	}
	id, err := c.svc.extractor.ContextID(ctx, c.svc.provider)
	if err != nil {
		c.svc.log.Warn("context id unresolved, local-path resolution disabled for this cycle", "error", err)
		c.note("context id: %v", err)
		return
	}
	c.contextID = id
}

func (c *cycle) resolveLocalPaths(ctx context.Context) {
	c.state = StateResolvingLocalPaths
	if len(c.localPaths) == 0 {
		return
	}
	if c.contextID.IsZero() || c.pagePath == "" {
		c.unresolvedPaths = len(c.localPaths)
		return
	}
	c.resolved = c.svc.resolver.ResolveAll(ctx, c.localPaths, c.pagePath, c.contextID, c.language)
	for _, rel := range c.localPaths {
		if id := c.resolved[rel]; !id.IsZero() {
			c.ids.Add(id)
		}
	}
	c.unresolvedPaths = len(c.resolved.Unresolved())
	if c.unresolvedPaths > 0 {
		c.note("%d local path(s) unresolved", c.unresolvedPaths)
	}
}

func (c *cycle) fetchPrimary(ctx context.Context) {
	c.state = StateFetchingPrimary
	specs := query.Specs("a", c.ids.Values(), c.language)
	res := c.svc.fetcher.Fetch(ctx, c.contextID, specs)
	c.keep(specs, res)
}

// keep merges one dual-source result into the cycle, re-keying the
// positional aliases by the canonical identifier each alias was requested
// for. Keying by identifier rather than position keeps asymmetric responses
// (an id present in one store only) from pairing the wrong entities.
func (c *cycle) keep(specs []query.Spec, res source.Result) {
	byAlias := make(map[string]identifier.ID, len(specs))
	for _, sp := range specs {
		byAlias[sp.Alias] = sp.ID
	}
	for alias, proj := range res.Authoring {
		if id, ok := byAlias[alias]; ok {
			c.authoring[id] = proj
		}
	}
	for alias, proj := range res.Live {
		if id, ok := byAlias[alias]; ok {
			c.live[id] = proj
		}
	}
	if res.AuthoringErr != nil {
		c.note("authoring: %v", res.AuthoringErr)
	}
	if res.LiveErr != nil {
		c.note("live: %v", res.LiveErr)
	}
}

func (c *cycle) extractReferences() []identifier.ID {
	c.state = StateExtractingReferences
	var ordered []query.Projection
	for _, id := range c.ids.Values() {
		if p, ok := c.authoring[id]; ok {
			ordered = append(ordered, p)
		}
	}
	g := c.svc.refs.Extract(ordered, c.ids)
	c.parents = g.Parents
	return g.Candidates
}

func (c *cycle) validateAndFetchNested(ctx context.Context, candidates []identifier.ID) {
	c.state = StateValidatingAndFetchingNested
	if len(candidates) == 0 {
		return
	}

	// Light pass: paths only, so rejected candidates never cost a
	// full-field fetch.
	light, err := c.svc.authoring.FetchItemsLight(ctx, query.Specs("v", candidates, c.language))
	if err != nil {
		c.svc.log.Warn("nested validation lookup failed, skipping nested entities", "candidates", len(candidates), "error", err)
		c.note("nested validation: %v", err)
		return
	}
	byID := make(map[identifier.ID]query.Projection, len(light))
	for _, p := range light {
		byID[p.ID] = p
	}

	var accepted []identifier.ID
	for _, id := range candidates {
		p, ok := byID[id]
		if !ok || !c.svc.validator.Accept(p.Path) {
			continue
		}
		accepted = append(accepted, id)
	}
	if len(accepted) == 0 {
		return
	}

	specs := query.Specs("n", accepted, c.language)
	res := c.svc.fetcher.Fetch(ctx, c.contextID, specs)
	c.keep(specs, res)
	for _, id := range accepted {
		c.ids.Add(id)
	}
	c.nestedCount = len(accepted)
}

func (c *cycle) merge() *Summary {
	c.state = StateMerging
	unified := c.ids.Values()
	sum := &Summary{
		Records:  make([]Record, 0, len(unified)),
		Language: c.language,
		Degraded: c.degraded,
		byID:     make(map[identifier.ID]*Record, len(unified)),
	}
	for _, id := range unified {
		rec := Record{
			ID:        id,
			IsCurrent: id == c.currentID,
			Parents:   []refs.ParentRef{},
		}
		if p, ok := c.authoring[id]; ok {
			cp := p
			rec.Authoring = &cp
		}
		if p, ok := c.live[id]; ok {
			cp := p
			rec.Live = &cp
			sum.Counts.WithLive++
		}
		if parents, ok := c.parents[id]; ok {
			rec.Parents = parents
		}
		rec.VersionMismatch = rec.Authoring != nil && rec.Live != nil &&
			rec.Authoring.Version != rec.Live.Version
		sum.Records = append(sum.Records, rec)
		sum.byID[id] = &sum.Records[len(sum.Records)-1]
	}
	sum.Counts.Total = len(sum.Records)
	sum.Counts.Nested = c.nestedCount
	sum.Counts.UnresolvedPaths = c.unresolvedPaths
	c.state = StateBuilt
	return sum
}

func (c *cycle) note(format string, args ...any) {
	c.degraded = append(c.degraded, fmt.Sprintf(format, args...))
}
