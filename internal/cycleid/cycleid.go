// Package cycleid stamps a random id onto the context of each resolution
// cycle so event subscribers can correlate the events of one cycle.
package cycleid

import (
	"context"
	"math/rand"
)

type key struct{}

// NewContext returns a copy of parent carrying a fresh cycle id, and the id.
func NewContext(parent context.Context) (context.Context, int64) {
	id := rand.Int63()
	return context.WithValue(parent, key{}, id), id
}

// Ensure returns ctx unchanged when it already carries a cycle id, otherwise
// a copy with a fresh one.
func Ensure(ctx context.Context) (context.Context, int64) {
	if id, ok := FromContext(ctx); ok {
		return ctx, id
	}
	return NewContext(ctx)
}

// FromContext extracts the cycle id from ctx.
func FromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(key{}).(int64)
	return id, ok
}
