package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

const errorsSDL = `
type Query {
  safe: String
  boom: String
  outer: Outer
  strict: Strict
}

type Outer {
  inner: Inner
}

type Inner {
  required: String!
}

type Strict {
  value: String!
}
`

// ignoreLocations drops source positions from error comparisons; they are
// asserted separately.
var ignoreLocations = cmpopts.IgnoreFields(GraphQLError{}, "Locations")

func TestErrors_ResolverFailure_SiblingsSurvive(t *testing.T) {
	sch := mustBuildSchema(t, errorsSDL)
	setResolver(t, sch, "Query", "safe", func(ctx context.Context, source any, args map[string]any) (any, error) {
		return "ok", nil
	})
	setResolver(t, sch, "Query", "boom", func(ctx context.Context, source any, args map[string]any) (any, error) {
		return nil, errors.New("kaboom")
	})
	exec := NewExecutor(sch)
	doc := mustParseQuery(t, `{ safe boom }`)

	res := exec.ExecuteRequest(context.Background(), doc, "", nil, nil)

	wantErrs := []GraphQLError{{Message: "kaboom", Path: Path{"boom"}}}
	if diff := cmp.Diff(wantErrs, res.Errors, ignoreLocations); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if len(res.Errors[0].Locations) == 0 {
		t.Fatalf("error carries no location")
	}
	if got := dataJSON(t, res.Data); got != `{"safe":"ok","boom":null}` {
		t.Fatalf("data = %s", got)
	}
}

func TestErrors_ResolverPanic_BecomesFieldError(t *testing.T) {
	sch := mustBuildSchema(t, errorsSDL)
	setResolver(t, sch, "Query", "boom", func(ctx context.Context, source any, args map[string]any) (any, error) {
		panic("unexpected state")
	})
	exec := NewExecutor(sch)
	doc := mustParseQuery(t, `{ boom }`)

	res := exec.ExecuteRequest(context.Background(), doc, "", nil, nil)
	if len(res.Errors) != 1 {
		t.Fatalf("errors = %v, want exactly one", res.Errors)
	}
	if got := dataJSON(t, res.Data); got != `{"boom":null}` {
		t.Fatalf("data = %s", got)
	}
}

func TestErrors_NonNullPropagation_NearestNullableAncestor(t *testing.T) {
	sch := mustBuildSchema(t, errorsSDL)
	exec := NewExecutor(sch)
	doc := mustParseQuery(t, `{ outer { inner { required } } }`)

	root := map[string]any{"outer": map[string]any{"inner": map[string]any{}}}
	res := exec.ExecuteRequest(context.Background(), doc, "", nil, root)

	wantErrs := []GraphQLError{{
		Message: "Cannot return null for non-nullable field outer.inner.required",
		Path:    Path{"outer", "inner", "required"},
	}}
	if diff := cmp.Diff(wantErrs, res.Errors, ignoreLocations); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	// inner is nullable, so the violation stops there.
	if got := dataJSON(t, res.Data); got != `{"outer":{"inner":null}}` {
		t.Fatalf("data = %s", got)
	}
}

func TestErrors_NonNullPropagation_NoNullableAncestor_NullsData(t *testing.T) {
	sch := mustBuildSchema(t, `
		type Query {
			strict: Strict!
		}
		type Strict {
			value: String!
		}
	`)
	exec := NewExecutor(sch)
	doc := mustParseQuery(t, `{ strict { value } }`)

	root := map[string]any{"strict": map[string]any{}}
	res := exec.ExecuteRequest(context.Background(), doc, "", nil, root)

	if len(res.Errors) != 1 {
		t.Fatalf("errors = %v, want exactly one", res.Errors)
	}
	if res.Data != nil {
		t.Fatalf("data = %v, want null", res.Data)
	}
}

func TestErrors_ResolverErrorOnNonNull_ReportedOnce(t *testing.T) {
	sch := mustBuildSchema(t, errorsSDL)
	setResolver(t, sch, "Strict", "value", func(ctx context.Context, source any, args map[string]any) (any, error) {
		return nil, errors.New("nope")
	})
	exec := NewExecutor(sch)
	doc := mustParseQuery(t, `{ strict { value } }`)

	root := map[string]any{"strict": map[string]any{}}
	res := exec.ExecuteRequest(context.Background(), doc, "", nil, root)

	// The resolver error at strict.value is not doubled by the non-null
	// violation it causes.
	wantErrs := []GraphQLError{{Message: "nope", Path: Path{"strict", "value"}}}
	if diff := cmp.Diff(wantErrs, res.Errors, ignoreLocations); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if got := dataJSON(t, res.Data); got != `{"strict":null}` {
		t.Fatalf("data = %s", got)
	}
}

func TestErrors_UnknownOperation_IsRequestError(t *testing.T) {
	sch := mustBuildSchema(t, errorsSDL)
	exec := NewExecutor(sch)
	doc := mustParseQuery(t, `query A { safe } query B { safe }`)

	res := exec.ExecuteRequest(context.Background(), doc, "C", nil, nil)
	if len(res.Errors) != 1 || res.Data != nil {
		t.Fatalf("result = %+v, want single request error with null data", res)
	}

	// Unnamed selection is ambiguous with two operations.
	res = exec.ExecuteRequest(context.Background(), doc, "", nil, nil)
	if len(res.Errors) != 1 || res.Data != nil {
		t.Fatalf("result = %+v, want single request error with null data", res)
	}
}
