// Package events defines the structs published on the event bus at pipeline
// boundaries. Subscribers (tracing, logging) consume them; the pipeline never
// depends on who is listening.
package events

import (
	"net/http"
	"time"
)

// CycleStart is emitted when a resolution cycle begins.
type CycleStart struct {
	// Trigger is "context" for ambient-context cycles or "explicit" for
	// caller-supplied identifier lists.
	Trigger string
	IDs     int
}

// CycleFinish is emitted when a resolution cycle ends, successfully or not.
type CycleFinish struct {
	Err      error
	Records  int
	Nested   int
	Duration time.Duration
}

// SourceQueryStart is emitted before one batched store query.
type SourceQueryStart struct {
	Source string // "authoring" or "live"
	Items  int
}

// SourceQueryFinish is emitted after one batched store query completes.
type SourceQueryFinish struct {
	Source   string
	Items    int
	Err      error
	Duration time.Duration
}

// PathResolveStart is emitted before the path-resolution cascade runs.
type PathResolveStart struct {
	Paths int
}

// PathResolveStrategy is emitted after each strategy's batched lookup.
type PathResolveStrategy struct {
	Strategy  string
	Resolved  int
	Remaining int
	Err       error
}

// PathResolveFinish is emitted after the cascade ends.
type PathResolveFinish struct {
	Resolved   int
	Unresolved int
	Duration   time.Duration
}

// HTTPStart is emitted when the HTTP surface receives a request.
type HTTPStart struct {
	Request *http.Request
}

// HTTPFinish is emitted after the HTTP surface handled a request.
type HTTPFinish struct {
	Request  *http.Request
	Status   int
	Duration time.Duration
}
