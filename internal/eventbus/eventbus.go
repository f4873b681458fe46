// Package eventbus is a minimal in-process pub/sub keyed by event type.
// Publishing with no bus installed, or with no subscriber for the event's
// type, is free.
package eventbus

import (
	"context"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"
)

// Handler processes events of type T.
type Handler[T any] func(context.Context, T)

type erased func(context.Context, any)

// Bus dispatches events to handlers registered for their dynamic type.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[reflect.Type][]entry
}

type entry struct {
	id int
	fn erased
}

// New creates an empty Bus.
func New() *Bus { return &Bus{handlers: make(map[reflect.Type][]entry)} }

func (b *Bus) subscribe(t reflect.Type, fn erased) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers[t] = append(b.handlers[t], entry{id: id, fn: fn})
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		hs := slices.DeleteFunc(b.handlers[t], func(e entry) bool { return e.id == id })
		if len(hs) == 0 {
			delete(b.handlers, t)
		} else {
			b.handlers[t] = hs
		}
	}
}

func (b *Bus) emit(ctx context.Context, e any) {
	if b == nil {
		return
	}
	b.mu.RLock()
	hs := slices.Clone(b.handlers[reflect.TypeOf(e)])
	b.mu.RUnlock()
	for _, h := range hs {
		h.fn(ctx, e)
	}
}

var global atomic.Pointer[Bus]

// Use installs b as the global bus. Passing nil disables event publishing.
func Use(b *Bus) { global.Store(b) }

// Subscribe registers h for events of type T on the global bus.
func Subscribe[T any](h Handler[T]) (unsubscribe func()) {
	b := global.Load()
	if b == nil {
		return func() {}
	}
	t := reflect.TypeOf((*T)(nil)).Elem()
	return b.subscribe(t, func(ctx context.Context, v any) { h(ctx, v.(T)) })
}

// Publish sends e to the global bus.
func Publish[T any](ctx context.Context, e T) {
	if b := global.Load(); b != nil {
		b.emit(ctx, e)
	}
}
