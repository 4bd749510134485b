package executor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

const streamSDL = `
type Query {
  numbers: [Int]
  friends: [Friend]
}

type Friend {
  name: String
}
`

func TestStream_InitialCountThenOnePatchPerItem(t *testing.T) {
	sch := mustBuildSchema(t, streamSDL)
	exec := NewExecutor(sch)
	doc := mustParseQuery(t, `{ numbers @stream(label: "nums", initialCount: 2) }`)

	root := map[string]any{"numbers": []any{1, 2, 3, 4, 5}}
	res := exec.ExecuteIncremental(context.Background(), doc, "", nil, root)
	if got := dataJSON(t, res.Initial.Data); got != `{"numbers":[1,2]}` {
		t.Fatalf("initial data = %s", got)
	}
	if !res.HasNext {
		t.Fatalf("HasNext = false, want true")
	}

	patches := drainPatches(t, res)
	if len(patches) != 3 {
		t.Fatalf("got %d patches, want 3", len(patches))
	}
	for i, p := range patches {
		item := p.Incremental[0]
		if item.Label != "nums" {
			t.Fatalf("patch %d label = %q", i, item.Label)
		}
		wantPath := fmt.Sprintf(`["numbers",%d]`, i+2)
		if got := dataJSON(t, item.Path); got != wantPath {
			t.Fatalf("patch %d path = %s, want %s", i, got, wantPath)
		}
		wantItems := fmt.Sprintf(`[%d]`, i+3)
		if got := dataJSON(t, item.Items); got != wantItems {
			t.Fatalf("patch %d items = %s, want %s", i, got, wantItems)
		}
		wantNext := i < len(patches)-1
		if p.HasNext != wantNext {
			t.Fatalf("patch %d hasNext = %v, want %v", i, p.HasNext, wantNext)
		}
	}
}

func TestStream_ChannelSource_ItemsInIndexOrder(t *testing.T) {
	sch := mustBuildSchema(t, streamSDL)
	ch := make(chan any, 4)
	setResolver(t, sch, "Query", "numbers", func(ctx context.Context, source any, args map[string]any) (any, error) {
		return ch, nil
	})
	exec := NewExecutor(sch)
	doc := mustParseQuery(t, `{ numbers @stream }`)

	go func() {
		for i := 1; i <= 4; i++ {
			time.Sleep(5 * time.Millisecond)
			ch <- i
		}
		close(ch)
	}()

	res := exec.ExecuteIncremental(context.Background(), doc, "", nil, nil)
	if got := dataJSON(t, res.Initial.Data); got != `{"numbers":[]}` {
		t.Fatalf("initial data = %s", got)
	}

	patches := drainPatches(t, res)
	if len(patches) != 4 {
		t.Fatalf("got %d patches, want 4", len(patches))
	}
	for i, p := range patches {
		wantItems := fmt.Sprintf(`[%d]`, i+1)
		if got := dataJSON(t, p.Incremental[0].Items); got != wantItems {
			t.Fatalf("patch %d items = %s, want %s", i, got, wantItems)
		}
	}
	if patches[len(patches)-1].HasNext {
		t.Fatalf("final patch has HasNext = true")
	}
}

func TestStream_ObjectItems_CompleteSelections(t *testing.T) {
	sch := mustBuildSchema(t, streamSDL)
	exec := NewExecutor(sch)
	doc := mustParseQuery(t, `{ friends @stream(initialCount: 1) { name } }`)

	root := map[string]any{"friends": []any{
		map[string]any{"name": "ada"},
		map[string]any{"name": "grace"},
	}}
	res := exec.ExecuteIncremental(context.Background(), doc, "", nil, root)
	if got := dataJSON(t, res.Initial.Data); got != `{"friends":[{"name":"ada"}]}` {
		t.Fatalf("initial data = %s", got)
	}

	patches := drainPatches(t, res)
	if len(patches) != 1 {
		t.Fatalf("got %d patches, want 1", len(patches))
	}
	if got := dataJSON(t, patches[0].Incremental[0].Items); got != `[{"name":"grace"}]` {
		t.Fatalf("items = %s", got)
	}
}

func TestStream_SourceError_EndsStreamWithError(t *testing.T) {
	sch := mustBuildSchema(t, streamSDL)
	setResolver(t, sch, "Query", "numbers", func(ctx context.Context, source any, args map[string]any) (any, error) {
		return &failingIterator{after: 2}, nil
	})
	exec := NewExecutor(sch)
	doc := mustParseQuery(t, `{ numbers @stream(initialCount: 1) }`)

	res := exec.ExecuteIncremental(context.Background(), doc, "", nil, nil)
	if got := dataJSON(t, res.Initial.Data); got != `{"numbers":[10]}` {
		t.Fatalf("initial data = %s", got)
	}

	patches := drainPatches(t, res)
	if len(patches) != 2 {
		t.Fatalf("got %d patches, want 2", len(patches))
	}
	if got := dataJSON(t, patches[0].Incremental[0].Items); got != `[20]` {
		t.Fatalf("first patch items = %s", got)
	}
	last := patches[1].Incremental[0]
	if len(last.Errors) != 1 || last.Errors[0].Message != "disk error" {
		t.Fatalf("final patch errors = %v", last.Errors)
	}
	if patches[1].HasNext {
		t.Fatalf("final patch has HasNext = true")
	}
}

func TestStream_EmptyRemainder_DeliversTerminalPatch(t *testing.T) {
	sch := mustBuildSchema(t, streamSDL)
	setResolver(t, sch, "Query", "numbers", func(ctx context.Context, source any, args map[string]any) (any, error) {
		return &slowEOFIterator{items: []any{7}, lag: 100 * time.Millisecond}, nil
	})
	exec := NewExecutor(sch)
	doc := mustParseQuery(t, `{ numbers @stream(initialCount: 1) }`)

	res := exec.ExecuteIncremental(context.Background(), doc, "", nil, nil)
	if got := dataJSON(t, res.Initial.Data); got != `{"numbers":[7]}` {
		t.Fatalf("initial data = %s", got)
	}
	if !res.HasNext {
		t.Fatalf("HasNext = false, want true")
	}

	// The remainder turns out empty, but the stream promised hasNext: a
	// terminal patch must still arrive.
	patches := drainPatches(t, res)
	if len(patches) != 1 {
		t.Fatalf("got %d patches, want 1", len(patches))
	}
	if len(patches[0].Incremental) != 0 {
		t.Fatalf("terminal patch carries items: %v", patches[0].Incremental)
	}
	if patches[0].HasNext {
		t.Fatalf("terminal patch has HasNext = true")
	}
}

func TestStream_ExecuteRequest_IgnoresDirective(t *testing.T) {
	sch := mustBuildSchema(t, streamSDL)
	exec := NewExecutor(sch)
	doc := mustParseQuery(t, `{ numbers @stream(initialCount: 1) }`)

	root := map[string]any{"numbers": []any{1, 2, 3}}
	res := exec.ExecuteRequest(context.Background(), doc, "", nil, root)
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if got := dataJSON(t, res.Data); got != `{"numbers":[1,2,3]}` {
		t.Fatalf("data = %s", got)
	}
}

// slowEOFIterator yields its items immediately but takes lag to report
// exhaustion.
type slowEOFIterator struct {
	items []any
	lag   time.Duration
	n     int
}

func (it *slowEOFIterator) Next(ctx context.Context) (any, bool, error) {
	if it.n < len(it.items) {
		v := it.items[it.n]
		it.n++
		return v, true, nil
	}
	select {
	case <-time.After(it.lag):
	case <-ctx.Done():
	}
	return nil, false, nil
}

func (it *slowEOFIterator) Close() {}

// failingIterator yields 10, 20, ... then fails.
type failingIterator struct {
	n     int
	after int
}

func (it *failingIterator) Next(ctx context.Context) (any, bool, error) {
	if it.n >= it.after {
		return nil, false, errors.New("disk error")
	}
	it.n++
	return it.n * 10, true, nil
}

func (it *failingIterator) Close() {}
