package executor

import (
	"context"
	"errors"
	"testing"
	"time"
)

const deferSDL = `
type Query {
  fast: String
  slow: String
  profile: Profile
}

type Profile {
  name: String
  bio: String
  avatar: Avatar
}

type Avatar {
  url: String!
}
`

// drainPatches collects the full patch sequence, failing the test if it does
// not terminate.
func drainPatches(t *testing.T, res *IncrementalResult) []*Patch {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var patches []*Patch
	for {
		patch, ok := res.Next(ctx)
		if !ok {
			return patches
		}
		patches = append(patches, patch)
	}
}

func TestDefer_InitialExcludesDeferredFields(t *testing.T) {
	sch := mustBuildSchema(t, deferSDL)
	setResolver(t, sch, "Query", "fast", func(ctx context.Context, source any, args map[string]any) (any, error) {
		return "now", nil
	})
	setResolver(t, sch, "Query", "slow", func(ctx context.Context, source any, args map[string]any) (any, error) {
		return "later", nil
	})
	exec := NewExecutor(sch)
	doc := mustParseQuery(t, `{ fast ... @defer(label: "rest") { slow } }`)

	res := exec.ExecuteIncremental(context.Background(), doc, "", nil, nil)
	if got := dataJSON(t, res.Initial.Data); got != `{"fast":"now"}` {
		t.Fatalf("initial data = %s", got)
	}
	if !res.HasNext {
		t.Fatalf("HasNext = false, want true")
	}

	patches := drainPatches(t, res)
	if len(patches) != 1 {
		t.Fatalf("got %d patches, want 1", len(patches))
	}
	p := patches[0]
	if p.HasNext {
		t.Fatalf("final patch has HasNext = true")
	}
	if len(p.Incremental) != 1 || p.Incremental[0].Label != "rest" {
		t.Fatalf("patch = %+v", p)
	}
	if got := dataJSON(t, p.Incremental[0].Data); got != `{"slow":"later"}` {
		t.Fatalf("patch data = %s", got)
	}
}

func TestDefer_IfFalse_InlinesFragment(t *testing.T) {
	sch := mustBuildSchema(t, deferSDL)
	exec := NewExecutor(sch)
	doc := mustParseQuery(t, `{ fast ... @defer(if: false) { slow } }`)

	root := map[string]any{"fast": "a", "slow": "b"}
	res := exec.ExecuteIncremental(context.Background(), doc, "", nil, root)
	if got := dataJSON(t, res.Initial.Data); got != `{"fast":"a","slow":"b"}` {
		t.Fatalf("initial data = %s", got)
	}
	if res.HasNext {
		t.Fatalf("HasNext = true, want false")
	}
	if patches := drainPatches(t, res); len(patches) != 0 {
		t.Fatalf("got %d patches, want 0", len(patches))
	}
}

func TestDefer_Nested_ParentPatchBeforeChild(t *testing.T) {
	sch := mustBuildSchema(t, deferSDL)
	// The inner deferred fragment resolves instantly while the outer one is
	// slow; the inner patch must still wait for its parent.
	setResolver(t, sch, "Profile", "bio", func(ctx context.Context, source any, args map[string]any) (any, error) {
		time.Sleep(30 * time.Millisecond)
		return "written slowly", nil
	})
	exec := NewExecutor(sch)
	doc := mustParseQuery(t, `
		{
			profile {
				name
				... @defer(label: "outer") {
					bio
					... @defer(label: "inner") { avatar { url } }
				}
			}
		}`)

	root := map[string]any{"profile": map[string]any{
		"name":   "ada",
		"avatar": map[string]any{"url": "http://example/a.png"},
	}}
	res := exec.ExecuteIncremental(context.Background(), doc, "", nil, root)
	if got := dataJSON(t, res.Initial.Data); got != `{"profile":{"name":"ada"}}` {
		t.Fatalf("initial data = %s", got)
	}

	patches := drainPatches(t, res)
	if len(patches) != 2 {
		t.Fatalf("got %d patches, want 2", len(patches))
	}
	if patches[0].Incremental[0].Label != "outer" || patches[1].Incremental[0].Label != "inner" {
		t.Fatalf("patch order = %q, %q", patches[0].Incremental[0].Label, patches[1].Incremental[0].Label)
	}
	if patches[0].HasNext != true || patches[1].HasNext != false {
		t.Fatalf("hasNext flags = %v, %v", patches[0].HasNext, patches[1].HasNext)
	}
	if got := dataJSON(t, patches[1].Incremental[0].Data); got != `{"avatar":{"url":"http://example/a.png"}}` {
		t.Fatalf("inner patch data = %s", got)
	}
}

func TestDefer_ErroredRecord_DropsDescendants(t *testing.T) {
	sch := mustBuildSchema(t, deferSDL)
	setResolver(t, sch, "Avatar", "url", func(ctx context.Context, source any, args map[string]any) (any, error) {
		return nil, errors.New("storage offline")
	})
	exec := NewExecutor(sch)
	doc := mustParseQuery(t, `
		{
			profile {
				name
				... @defer(label: "outer") {
					avatar { url }
					... @defer(label: "inner") { bio }
				}
			}
		}`)

	// avatar.url is non-null and fails, and avatar is non-nullable inside
	// the deferred selection only through url; the outer record errors when
	// the violation has no nullable ancestor within the record.
	root := map[string]any{"profile": map[string]any{
		"name":   "ada",
		"bio":    "hello",
		"avatar": map[string]any{},
	}}
	res := exec.ExecuteIncremental(context.Background(), doc, "", nil, root)

	patches := drainPatches(t, res)
	// avatar is nullable, so the outer record completes with avatar=null
	// and its own error; the inner record still delivers.
	if len(patches) != 2 {
		t.Fatalf("got %d patches, want 2", len(patches))
	}
	outer := patches[0].Incremental[0]
	if outer.Label != "outer" {
		t.Fatalf("first patch label = %q", outer.Label)
	}
	if got := dataJSON(t, outer.Data); got != `{"avatar":null}` {
		t.Fatalf("outer patch data = %s", got)
	}
	if len(outer.Errors) != 1 {
		t.Fatalf("outer patch errors = %v", outer.Errors)
	}
}

func TestDefer_ExecuteRequest_IgnoresDirective(t *testing.T) {
	sch := mustBuildSchema(t, deferSDL)
	exec := NewExecutor(sch)
	doc := mustParseQuery(t, `{ fast ... @defer { slow } }`)

	root := map[string]any{"fast": "a", "slow": "b"}
	res := exec.ExecuteRequest(context.Background(), doc, "", nil, root)
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	if got := dataJSON(t, res.Data); got != `{"fast":"a","slow":"b"}` {
		t.Fatalf("data = %s", got)
	}
}
