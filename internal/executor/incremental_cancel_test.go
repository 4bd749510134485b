package executor

import (
	"context"
	"testing"
	"time"
)

const cancelSDL = `
type Query {
  items: [Item]
}

type Item {
  heavy: String
}
`

func TestCancel_Close_StopsOutstandingWork(t *testing.T) {
	sch := mustBuildSchema(t, cancelSDL)
	log := &callLog{}
	started := make(chan struct{}, 16)
	release := make(chan struct{})
	setResolver(t, sch, "Item", "heavy", func(ctx context.Context, source any, args map[string]any) (any, error) {
		log.record("Item.heavy")
		started <- struct{}{}
		select {
		case <-release:
		case <-ctx.Done():
		}
		return "done", nil
	})
	exec := NewExecutor(sch)
	doc := mustParseQuery(t, `{ items @stream(initialCount: 0) { heavy } }`)

	root := map[string]any{"items": []any{
		map[string]any{}, map[string]any{}, map[string]any{}, map[string]any{},
	}}
	res := exec.ExecuteIncremental(context.Background(), doc, "", nil, root)
	if !res.HasNext {
		t.Fatalf("HasNext = false, want true")
	}

	// Wait until the first item's resolver is in flight, then abandon the
	// stream while it blocks.
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatalf("first resolver never started")
	}
	res.Close()
	close(release)

	// Closing unblocks Next immediately.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, ok := res.Next(ctx); ok {
		t.Fatalf("Next returned a patch after Close")
	}

	// Items are completed strictly one at a time, so at most the in-flight
	// resolver and one lookahead item can have started.
	time.Sleep(50 * time.Millisecond)
	if n := log.count(); n > 2 {
		t.Fatalf("%d resolvers ran after Close, want at most 2", n)
	}
}

func TestCancel_ContextCancellation_StopsExecution(t *testing.T) {
	sch := mustBuildSchema(t, cancelSDL)
	log := &callLog{}
	setResolver(t, sch, "Item", "heavy", func(ctx context.Context, source any, args map[string]any) (any, error) {
		log.record("Item.heavy")
		return "done", nil
	})
	exec := NewExecutor(sch)
	doc := mustParseQuery(t, `{ items { heavy } }`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	root := map[string]any{"items": []any{map[string]any{}, map[string]any{}}}
	res := exec.ExecuteRequest(ctx, doc, "", nil, root)

	if log.count() != 0 {
		t.Fatalf("resolvers ran under a cancelled context")
	}
	if len(res.Errors) == 0 {
		t.Fatalf("expected cancellation errors")
	}
}
