package executor

import (
	"context"
	"fmt"

	"github.com/dolmen-go/jsonmap"

	language "github.com/ModernAnimal/graphql-core/internal/language"
	schema "github.com/ModernAnimal/graphql-core/internal/schema"
)

// execContext holds the per-request state shared across one traversal: the
// schema, the fragment definitions of the document, the coerced variable
// values, the configured resolvers and, when incremental delivery was
// requested, the publisher owning the record forest.
//
// An execContext lives for exactly one request or one subscription event and
// is never shared across concurrent requests. The traversal that owns it may
// fan out into per-field goroutines; those communicate results and errors
// back through their own accumulators, never by mutating shared state.
type execContext struct {
	exec           *Executor
	schema         *schema.Schema
	document       *language.QueryDocument
	operation      *language.OperationDefinition
	variableValues map[string]any
	rootValue      any
	pub            *publisher
}

// prepare selects the operation, coerces variables and resolves the root
// type. Any failure is a request-level error: it aborts before any resolver
// runs and surfaces as the sole entry in errors with data=null.
func (e *Executor) prepare(
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
	rootValue any,
	pub *publisher,
) (*execContext, *ExecutionResult) {
	operation := getOperation(document, operationName)
	if operation == nil {
		return nil, requestError("operation not found")
	}

	coercedVariableValues, err := coerceVariableValues(e.schema, operation, variableValues)
	if err != nil {
		return nil, requestError(err.Error())
	}

	return &execContext{
		exec:           e,
		schema:         e.schema,
		document:       document,
		operation:      operation,
		variableValues: coercedVariableValues,
		rootValue:      rootValue,
		pub:            pub,
	}, nil
}

// rootType resolves the root object type for the operation being executed.
func (ec *execContext) rootType() (*schema.Type, *ExecutionResult) {
	var rootType *schema.Type
	switch ec.operation.Operation {
	case language.Query:
		rootType = ec.schema.GetQueryType()
	case language.Mutation:
		rootType = ec.schema.GetMutationType()
	case language.Subscription:
		rootType = ec.schema.GetSubscriptionType()
	default:
		return nil, requestError(fmt.Sprintf("unsupported operation type: %s", ec.operation.Operation))
	}
	if rootType == nil {
		return nil, requestError(fmt.Sprintf("root type not found for %s operation", ec.operation.Operation))
	}
	return rootType, nil
}

// executeOperation runs the operation's top-level selection. Mutation root
// fields execute strictly one at a time in document order; everything else
// resolves sibling fields concurrently.
func (ec *execContext) executeOperation(ctx context.Context) *ExecutionResult {
	rootType, errRes := ec.rootType()
	if errRes != nil {
		return errRes
	}
	serial := ec.operation.Operation == language.Mutation

	errs := &errBag{}
	data, failed := ec.executeSelectionSet(ctx, rootType, ec.operation.SelectionSet, ec.rootValue, Path{}, serial, rootRecord, errs)
	return ec.buildResponse(data, failed, errs)
}

// buildResponse assembles the final {data, errors} shape, applying the
// root-level non-null propagation rule: a violation with no nullable
// ancestor nulls the entire data.
func (ec *execContext) buildResponse(data *jsonmap.Ordered, failed bool, errs *errBag) *ExecutionResult {
	res := &ExecutionResult{Errors: errs.errs}
	if res.Errors == nil {
		res.Errors = []GraphQLError{}
	}
	if !failed {
		res.Data = data
	}
	return res
}

func requestError(message string) *ExecutionResult {
	return &ExecutionResult{Errors: []GraphQLError{{Message: message}}}
}

// getOperation retrieves the operation from the document. An empty name is
// only allowed when the document declares exactly one operation.
func getOperation(document *language.QueryDocument, operationName string) *language.OperationDefinition {
	if operationName == "" {
		if len(document.Operations) == 1 {
			return document.Operations[0]
		}
		return nil
	}
	for _, op := range document.Operations {
		if op.Name == operationName {
			return op
		}
	}
	return nil
}
