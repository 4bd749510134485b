package executor

import (
	"context"
	"time"

	"github.com/ModernAnimal/graphql-core/internal/eventbus"
	"github.com/ModernAnimal/graphql-core/internal/events"
	language "github.com/ModernAnimal/graphql-core/internal/language"
	"github.com/ModernAnimal/graphql-core/internal/reqid"
	schema "github.com/ModernAnimal/graphql-core/internal/schema"
)

// Executor executes parsed operation documents against a schema. It is
// stateless across requests and safe for concurrent use.
type Executor struct {
	schema *schema.Schema
	opts   options
}

type options struct {
	fieldResolver     FieldResolveFunc
	typeResolver      TypeResolveFunc
	subscribeResolver SubscribeResolveFunc
}

// Option configures an Executor.
type Option func(*options)

// WithFieldResolver replaces the default source-shape resolver for fields
// that have no resolver attached in the schema.
func WithFieldResolver(fn FieldResolveFunc) Option {
	return func(o *options) { o.fieldResolver = fn }
}

// WithTypeResolver sets the fallback concrete-type resolver for abstract
// types that have no ResolveType of their own.
func WithTypeResolver(fn TypeResolveFunc) Option {
	return func(o *options) { o.typeResolver = fn }
}

// WithSubscribeResolver sets the fallback event-source resolver for
// subscription root fields that have no Subscribe of their own.
func WithSubscribeResolver(fn SubscribeResolveFunc) Option {
	return func(o *options) { o.subscribeResolver = fn }
}

// NewExecutor creates an executor bound to a schema.
func NewExecutor(s *schema.Schema, opts ...Option) *Executor {
	e := &Executor{schema: s}
	for _, opt := range opts {
		opt(&e.opts)
	}
	return e
}

// ExecuteRequest executes a query or mutation operation and returns the
// complete result in one piece. Defer and stream directives in the document
// are treated as delivery hints and ignored: every field resolves in the
// synchronous result.
func (e *Executor) ExecuteRequest(
	ctx context.Context,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
	rootValue any,
) *ExecutionResult {
	if _, ok := reqid.FromContext(ctx); !ok {
		ctx, _ = reqid.NewContext(ctx)
	}

	ec, errRes := e.prepare(document, operationName, variableValues, rootValue, nil)
	if errRes != nil {
		return errRes
	}

	start := time.Now()
	eventbus.Publish(ctx, events.ExecutionStart{
		OperationName: ec.operation.Name,
		OperationType: string(ec.operation.Operation),
	})
	result := ec.executeOperation(ctx)
	eventbus.Publish(ctx, events.ExecutionFinish{
		OperationName: ec.operation.Name,
		OperationType: string(ec.operation.Operation),
		ErrorCount:    len(result.Errors),
		Duration:      time.Since(start),
	})
	return result
}

// ExecuteIncremental executes a query or mutation operation honoring defer
// and stream directives. The initial result contains everything outside
// deferred fragments and the first initialCount items of each streamed
// list; the remainder arrives as patches through the returned result.
//
// The caller must either drain the patch sequence or call Close.
func (e *Executor) ExecuteIncremental(
	ctx context.Context,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
	rootValue any,
) *IncrementalResult {
	if _, ok := reqid.FromContext(ctx); !ok {
		ctx, _ = reqid.NewContext(ctx)
	}

	pub := newPublisher(ctx)
	ec, errRes := e.prepare(document, operationName, variableValues, rootValue, pub)
	if errRes != nil {
		pub.close()
		return &IncrementalResult{Initial: errRes}
	}

	start := time.Now()
	eventbus.Publish(ctx, events.ExecutionStart{
		OperationName: ec.operation.Name,
		OperationType: string(ec.operation.Operation),
	})
	initial := ec.executeOperation(ctx)
	eventbus.Publish(ctx, events.ExecutionFinish{
		OperationName: ec.operation.Name,
		OperationType: string(ec.operation.Operation),
		ErrorCount:    len(initial.Errors),
		Duration:      time.Since(start),
	})

	hasNext := pub.sealInitial()
	return &IncrementalResult{Initial: initial, HasNext: hasNext, pub: pub}
}
