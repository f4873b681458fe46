// Package source implements the two store channels and the dual-source
// fetcher that fans a batch out to both of them.
package source

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hanpama/contentgraph/internal/identifier"
	"github.com/hanpama/contentgraph/internal/query"
)

// QueryExecutor is the host's mutation-style API channel into the authoring
// store. It executes one GraphQL document and returns the response's data
// object. Implementations are host-owned; the pipeline never constructs the
// underlying client.
type QueryExecutor interface {
	ExecuteQuery(ctx context.Context, document string) (json.RawMessage, error)
}

// Authoring is the editable-store channel, addressed by database +
// identifier + language.
type Authoring struct {
	exec     QueryExecutor
	database string
}

// NewAuthoring wires the authoring channel over the host executor. database
// defaults to "master".
func NewAuthoring(exec QueryExecutor, database string) (*Authoring, error) {
	if exec == nil {
		return nil, fmt.Errorf("authoring: nil executor")
	}
	if database == "" {
		database = "master"
	}
	return &Authoring{exec: exec, database: database}, nil
}

// FetchItems runs one batched full-field lookup and returns the alias-keyed
// projections. Aliases that resolved to nothing are absent.
func (a *Authoring) FetchItems(ctx context.Context, specs []query.Spec) (map[string]query.Projection, error) {
	doc, err := query.RenderAuthoring(a.database, specs)
	if err != nil {
		return nil, err
	}
	data, err := a.exec.ExecuteQuery(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("authoring query: %w", err)
	}
	return query.DecodeAuthoring(data)
}

// FetchItemsLight runs one batched lookup without field values, for the
// nested-candidate validation pass.
func (a *Authoring) FetchItemsLight(ctx context.Context, specs []query.Spec) (map[string]query.Projection, error) {
	doc, err := query.RenderAuthoringLight(a.database, specs)
	if err != nil {
		return nil, err
	}
	data, err := a.exec.ExecuteQuery(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("authoring light query: %w", err)
	}
	return query.DecodeAuthoring(data)
}

// LookupPaths runs one batched path lookup and returns the alias-keyed
// identifiers of the paths that resolved.
func (a *Authoring) LookupPaths(ctx context.Context, contextID identifier.ID, specs []query.PathSpec, language string) (map[string]identifier.ID, error) {
	doc, err := query.RenderPathLookup(a.database, contextID, specs, language)
	if err != nil {
		return nil, err
	}
	data, err := a.exec.ExecuteQuery(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("authoring path lookup: %w", err)
	}
	return query.DecodePathLookup(data)
}
