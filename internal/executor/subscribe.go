package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/ModernAnimal/graphql-core/internal/eventbus"
	"github.com/ModernAnimal/graphql-core/internal/events"
	language "github.com/ModernAnimal/graphql-core/internal/language"
	"github.com/ModernAnimal/graphql-core/internal/reqid"
)

// SubscriptionStream maps an event source to a sequence of execution
// results, one per source event. Events are pulled lazily: no execution
// happens until Next is called.
type SubscriptionStream struct {
	exec          *Executor
	document      *language.QueryDocument
	operationName string
	variables     map[string]any
	source        Iterator
	done          bool
}

// Subscribe sets up a subscription. It resolves the root field's event
// source exactly once; setup failures are returned as a request-level
// error result with a nil stream.
func (e *Executor) Subscribe(
	ctx context.Context,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
	rootValue any,
) (*SubscriptionStream, *ExecutionResult) {
	if _, ok := reqid.FromContext(ctx); !ok {
		ctx, _ = reqid.NewContext(ctx)
	}

	ec, errRes := e.prepare(document, operationName, variableValues, rootValue, nil)
	if errRes != nil {
		return nil, errRes
	}
	if ec.operation.Operation != language.Subscription {
		return nil, requestError("operation is not a subscription")
	}
	rootType, errRes := ec.rootType()
	if errRes != nil {
		return nil, errRes
	}

	col := ec.collectFields(rootType, ec.operation.SelectionSet)
	if len(col.set.groups) != 1 {
		return nil, requestError("subscription operations must have exactly one root field")
	}
	g := col.set.groups[0]
	field := g.fields[0]
	fieldDef := rootType.GetField(field.Name)
	if fieldDef == nil {
		return nil, requestError(fmt.Sprintf("Cannot query field '%s' on type '%s'", field.Name, rootType.Name))
	}

	argErrs := &errBag{}
	args := ec.coerceArgumentValues(fieldDef, field, Path{g.responseName}, argErrs)
	if len(argErrs.errs) > 0 {
		return nil, &ExecutionResult{Errors: argErrs.errs}
	}

	var (
		source any
		err    error
	)
	switch {
	case fieldDef.Subscribe != nil:
		source, err = fieldDef.Subscribe(ctx, rootValue, args)
	case e.opts.subscribeResolver != nil:
		source, err = e.opts.subscribeResolver(ctx, rootType.Name, field.Name, rootValue, args)
	default:
		err = fmt.Errorf("no subscribe resolver for field '%s'", field.Name)
	}
	if err != nil {
		return nil, &ExecutionResult{Errors: []GraphQLError{
			locatedError(err.Error(), field.Position, Path{g.responseName}),
		}}
	}

	it, ok := asIterator(source)
	if !ok {
		return nil, requestError(fmt.Sprintf("subscription field '%s' did not return an event source", field.Name))
	}

	return &SubscriptionStream{
		exec:          e,
		document:      document,
		operationName: operationName,
		variables:     variableValues,
		source:        it,
	}, nil
}

// Next blocks for the next source event and executes the subscription
// selection against it, with the event as the root value. Field errors in
// one event's execution surface in that event's result and do not end the
// stream; a source error ends the stream with a final error result, after
// which Next reports the stream as closed.
func (s *SubscriptionStream) Next(ctx context.Context) (*ExecutionResult, bool) {
	if s.done {
		return nil, false
	}
	event, more, err := s.source.Next(ctx)
	if err != nil {
		s.done = true
		s.source.Close()
		return requestError(err.Error()), true
	}
	if !more {
		s.done = true
		return nil, false
	}

	// Fresh per-event state: nothing carries over between events.
	ec, errRes := s.exec.prepare(s.document, s.operationName, s.variables, event, nil)
	if errRes != nil {
		return errRes, true
	}

	start := time.Now()
	result := ec.executeOperation(ctx)
	eventbus.Publish(ctx, events.SubscriptionEvent{
		OperationName: ec.operation.Name,
		ErrorCount:    len(result.Errors),
		Duration:      time.Since(start),
	})
	return result, true
}

// Close releases the event source. A blocked Next observes the end of the
// stream once the source unblocks.
func (s *SubscriptionStream) Close() {
	s.source.Close()
}
