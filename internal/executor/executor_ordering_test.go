package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

const orderingSDL = `
type Query {
  a: String
  b: String
  c: String
}

type Mutation {
  bump: Int
}
`

func TestOrdering_KeyOrder_IndependentOfCompletionOrder(t *testing.T) {
	sch := mustBuildSchema(t, orderingSDL)
	delays := map[string]time.Duration{"a": 30 * time.Millisecond, "b": 0, "c": 15 * time.Millisecond}
	for name := range delays {
		name := name
		setResolver(t, sch, "Query", name, func(ctx context.Context, source any, args map[string]any) (any, error) {
			time.Sleep(delays[name])
			return name, nil
		})
	}
	exec := NewExecutor(sch)
	doc := mustParseQuery(t, `{ a b c }`)

	res := exec.ExecuteRequest(context.Background(), doc, "", nil, nil)
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	// a completes last but still leads the response.
	want := `{"a":"a","b":"b","c":"c"}`
	if got := dataJSON(t, res.Data); got != want {
		t.Fatalf("data = %s, want %s", got, want)
	}
}

func TestOrdering_ErrorOrder_IsSelectionOrder(t *testing.T) {
	sch := mustBuildSchema(t, orderingSDL)
	delays := map[string]time.Duration{"a": 30 * time.Millisecond, "b": 0, "c": 15 * time.Millisecond}
	for name := range delays {
		name := name
		setResolver(t, sch, "Query", name, func(ctx context.Context, source any, args map[string]any) (any, error) {
			time.Sleep(delays[name])
			return nil, errors.New("fail " + name)
		})
	}
	exec := NewExecutor(sch)
	doc := mustParseQuery(t, `{ a b c }`)

	res := exec.ExecuteRequest(context.Background(), doc, "", nil, nil)

	wantErrs := []GraphQLError{
		{Message: "fail a", Path: Path{"a"}},
		{Message: "fail b", Path: Path{"b"}},
		{Message: "fail c", Path: Path{"c"}},
	}
	if diff := cmp.Diff(wantErrs, res.Errors, ignoreLocations); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestOrdering_MutationRootFields_RunSerially(t *testing.T) {
	sch := mustBuildSchema(t, orderingSDL)
	counter := 0
	setResolver(t, sch, "Mutation", "bump", func(ctx context.Context, source any, args map[string]any) (any, error) {
		// A data race here would be caught under -race if root fields
		// overlapped; serial execution also makes values deterministic.
		counter++
		return counter, nil
	})
	exec := NewExecutor(sch)
	doc := mustParseQuery(t, `mutation { first: bump second: bump third: bump }`)

	res := exec.ExecuteRequest(context.Background(), doc, "", nil, nil)
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	want := `{"first":1,"second":2,"third":3}`
	if got := dataJSON(t, res.Data); got != want {
		t.Fatalf("data = %s, want %s", got, want)
	}
}
