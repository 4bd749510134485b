package executor

import (
	"context"

	"github.com/dolmen-go/jsonmap"

	language "github.com/ModernAnimal/graphql-core/internal/language"
)

// ErrorLocation points at a line and column in the request document.
type ErrorLocation struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// GraphQLError represents an error that occurred during execution
type GraphQLError struct {
	Message    string          `json:"message"`
	Locations  []ErrorLocation `json:"locations,omitempty"`
	Path       Path            `json:"path,omitempty"`
	Extensions map[string]any  `json:"extensions,omitempty"`
}

func (e GraphQLError) Error() string {
	return e.Message
}

// locatedError builds a GraphQLError carrying the response path and, when
// available, the AST position of the failing node.
func locatedError(message string, pos *language.Position, path Path) GraphQLError {
	err := GraphQLError{Message: message, Path: path}
	if pos != nil {
		err.Locations = []ErrorLocation{{Line: pos.Line, Column: pos.Column}}
	}
	return err
}

// ExecutionResult represents the result of executing a GraphQL operation.
type ExecutionResult struct {
	Data   any            `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

// PatchItem is one deferred-fragment or stream-item delivery inside a Patch.
// Deferred fragments carry Data; stream items carry Items.
type PatchItem struct {
	ID     int              `json:"id"`
	Label  string           `json:"label,omitempty"`
	Path   Path             `json:"path"`
	Data   *jsonmap.Ordered `json:"data,omitempty"`
	Items  []any            `json:"items,omitempty"`
	Errors []GraphQLError   `json:"errors,omitempty"`
}

// Patch is one entry of the incremental result stream.
type Patch struct {
	Incremental []PatchItem `json:"incremental,omitempty"`
	Completed   []int       `json:"completed,omitempty"`
	HasNext     bool        `json:"hasNext"`
}

// IncrementalResult is an initial result plus a lazily-produced sequence of
// patches. HasNext reports whether any patches will follow the initial
// result; when false, Next returns immediately with ok=false.
type IncrementalResult struct {
	Initial *ExecutionResult
	HasNext bool

	pub *publisher
}

// Next blocks until the next patch is available. It returns ok=false once
// the stream has terminated or Close was called. The final patch of a
// well-formed stream carries HasNext=false.
func (r *IncrementalResult) Next(ctx context.Context) (*Patch, bool) {
	if r.pub == nil {
		return nil, false
	}
	return r.pub.next(ctx)
}

// Close abandons the stream. Not-yet-started deferred and streamed work is
// discarded without invoking further resolvers, and any open event or item
// sources are released.
func (r *IncrementalResult) Close() {
	if r.pub != nil {
		r.pub.close()
	}
}

// errBag accumulates field errors for one subtree of the traversal. Each
// concurrently executing subtree owns its own bag; bags are merged at join
// points in selection order so the final error list is deterministic.
type errBag struct {
	errs []GraphQLError
}

func (b *errBag) add(err GraphQLError) {
	b.errs = append(b.errs, err)
}

func (b *errBag) merge(other *errBag) {
	b.errs = append(b.errs, other.errs...)
}

// hasErrorAtPath reports whether an error at exactly this path was already
// recorded; used to avoid doubling up non-null violation reports.
func (b *errBag) hasErrorAtPath(path Path) bool {
	key := path.String()
	for _, err := range b.errs {
		if err.Path.String() == key {
			return true
		}
	}
	return false
}
