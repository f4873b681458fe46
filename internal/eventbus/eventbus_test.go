package eventbus

import (
	"context"
	"testing"
)

type ping struct{ n int }
type pong struct{}

func TestSubscribePublish(t *testing.T) {
	Use(New())
	defer Use(nil)

	var got []int
	unsub := Subscribe(func(_ context.Context, e ping) { got = append(got, e.n) })
	Subscribe(func(_ context.Context, e pong) { t.Fatal("wrong type delivered") })

	Publish(context.Background(), ping{n: 1})
	Publish(context.Background(), ping{n: 2})
	unsub()
	Publish(context.Background(), ping{n: 3})

	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("got %v", got)
	}
}

func TestPublishWithoutBus(t *testing.T) {
	Use(nil)
	// Must be a no-op, not a panic.
	Publish(context.Background(), ping{n: 1})
	if unsub := Subscribe(func(context.Context, ping) {}); unsub == nil {
		t.Fatal("nil unsubscribe")
	}
}
