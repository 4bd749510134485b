package executor

import (
	"encoding/json"
	"sync"
	"testing"

	language "github.com/ModernAnimal/graphql-core/internal/language"
	schema "github.com/ModernAnimal/graphql-core/internal/schema"
)

// mustParseQuery parses a GraphQL query and fails the test on error.
func mustParseQuery(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	d, err := language.ParseQuery(q)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return d
}

// mustBuildSchema builds a schema from SDL and fails the test on error.
func mustBuildSchema(t *testing.T, sdl string) *schema.Schema {
	t.Helper()
	doc, err := language.ParseSchema("test.graphql", sdl)
	if err != nil {
		t.Fatalf("parse schema: %v", err)
	}
	s, err := schema.BuildFromSDL(doc)
	if err != nil {
		t.Fatalf("build schema: %v", err)
	}
	return s
}

// setResolver attaches a resolver to a schema field.
func setResolver(t *testing.T, s *schema.Schema, typeName, fieldName string, fn schema.ResolveFunc) {
	t.Helper()
	typ := s.Types[typeName]
	if typ == nil {
		t.Fatalf("type %s not in schema", typeName)
	}
	f := typ.GetField(fieldName)
	if f == nil {
		t.Fatalf("field %s.%s not in schema", typeName, fieldName)
	}
	f.Resolve = fn
}

// dataJSON marshals a value for comparison. Response objects marshal with
// keys in selection order, so comparing JSON text asserts key order too.
func dataJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

// callLog records resolver invocations across goroutines.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) record(name string) {
	l.mu.Lock()
	l.calls = append(l.calls, name)
	l.mu.Unlock()
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func (l *callLog) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}
