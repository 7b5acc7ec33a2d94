package dedupe

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryFirst(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	g := NewInMemory(time.Minute)
	g.now = func() time.Time { return now }
	ctx := context.Background()

	if first, _ := g.First(ctx, "stamp:U1:1.1"); !first {
		t.Fatal("expected first sighting")
	}
	if first, _ := g.First(ctx, "stamp:U1:1.1"); first {
		t.Fatal("expected repeat to be reported")
	}
	if first, _ := g.First(ctx, "stamp:U1:1.2"); !first {
		t.Fatal("expected a different key to be new")
	}

	now = now.Add(time.Minute)
	if first, _ := g.First(ctx, "stamp:U1:1.1"); !first {
		t.Fatal("expected key to be forgotten after the ttl")
	}
}
