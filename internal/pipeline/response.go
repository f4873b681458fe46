package pipeline

import (
	"github.com/hanpama/contentgraph/internal/identifier"
	"github.com/hanpama/contentgraph/internal/query"
	"github.com/hanpama/contentgraph/internal/refs"
)

// Record pairs one identifier's authoring and live projections with
// everything discovered about it during the cycle.
type Record struct {
	ID identifier.ID `json:"id"`

	// Authoring and Live are nil when the store had no data for the id,
	// whether because the entity is absent there or because that source
	// degraded this cycle.
	Authoring *query.Projection `json:"authoring,omitempty"`
	Live      *query.Projection `json:"live,omitempty"`

	// VersionMismatch is set when both projections exist and disagree on
	// the version number.
	VersionMismatch bool `json:"versionMismatch"`

	// Parents are the entities whose field text references this one. Empty,
	// never nil, when nothing references it.
	Parents []refs.ParentRef `json:"parents"`

	// IsCurrent marks the originally requested current entity.
	IsCurrent bool `json:"isCurrent"`
}

// Counts summarizes one cycle.
type Counts struct {
	Total           int `json:"total"`
	WithLive        int `json:"withLive"`
	Nested          int `json:"nested"`
	UnresolvedPaths int `json:"unresolvedPaths"`
}

// Summary is the unified response of one completed cycle. Records follow the
// unified identifier order: originals in discovery order, then resolved
// local datasources, then validated nested entities.
type Summary struct {
	Records  []Record `json:"records"`
	Counts   Counts   `json:"counts"`
	Language string   `json:"language"`

	// Degraded lists the non-fatal failures absorbed during the cycle, one
	// human-readable entry per failure.
	Degraded []string `json:"degraded,omitempty"`

	byID map[identifier.ID]*Record
}

// Lookup returns the record for id, if any.
func (s *Summary) Lookup(id identifier.ID) (*Record, bool) {
	r, ok := s.byID[id]
	return r, ok
}

// Snapshot is the consumer-facing view of the service's shared state.
type Snapshot struct {
	// Result is the last published summary, nil after a fatal error or
	// before the first completed cycle.
	Result *Summary
	// Err is the fatal error that cleared the result, if any.
	Err error
	// InFlight reports whether any cycle is currently running.
	InFlight bool
}
