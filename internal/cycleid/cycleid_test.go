package cycleid

import (
	"context"
	"testing"
)

func TestContextRoundTrip(t *testing.T) {
	ctx, id := NewContext(context.Background())
	got, ok := FromContext(ctx)
	if !ok || got != id {
		t.Fatalf("expected %d from context, got %d ok=%v", id, got, ok)
	}
	if _, ok := FromContext(context.Background()); ok {
		t.Fatalf("unexpected id in empty context")
	}
}

func TestEnsure(t *testing.T) {
	ctx, id := Ensure(context.Background())
	ctx2, id2 := Ensure(ctx)
	if ctx2 != ctx || id2 != id {
		t.Fatalf("Ensure must reuse an existing cycle id")
	}
}
