package executor

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/dolmen-go/jsonmap"

	language "github.com/ModernAnimal/graphql-core/internal/language"
	schema "github.com/ModernAnimal/graphql-core/internal/schema"
)

// executeSelectionSet executes a selection set against an object value and
// returns the assembled response object. failed=true signals a non-null
// violation that the caller must propagate: the object's value is discarded
// and becomes null at the nearest nullable ancestor.
func (ec *execContext) executeSelectionSet(
	ctx context.Context,
	objectType *schema.Type,
	selectionSet language.SelectionSet,
	source any,
	path Path,
	serial bool,
	rec recordID,
	errs *errBag,
) (*jsonmap.Ordered, bool) {
	col := ec.collectFields(objectType, selectionSet)
	return ec.executeCollected(ctx, objectType, col, source, path, serial, rec, errs)
}

func (ec *execContext) executeCollected(
	ctx context.Context,
	objectType *schema.Type,
	col *collectedFields,
	source any,
	path Path,
	serial bool,
	rec recordID,
	errs *errBag,
) (*jsonmap.Ordered, bool) {
	data, failed := ec.executeGroups(ctx, objectType, col.set, source, path, serial, rec, errs)
	if failed {
		// The enclosing value is being nulled out; deferred work under it
		// would patch into discarded data, so it is never scheduled.
		return nil, true
	}
	for _, dg := range col.deferred {
		ec.scheduleDeferred(objectType, source, path, rec, dg)
	}
	return data, false
}

type fieldOutcome struct {
	value any
	errs  *errBag
}

// executeGroups resolves every field group of one object. In concurrent
// mode all resolutions start before any is awaited; the assembled object
// preserves response-key order regardless of completion order, and error
// bags are merged in selection order so the error list is deterministic.
func (ec *execContext) executeGroups(
	ctx context.Context,
	objectType *schema.Type,
	set *groupedFieldSet,
	source any,
	path Path,
	serial bool,
	rec recordID,
	errs *errBag,
) (*jsonmap.Ordered, bool) {
	outcomes := make([]fieldOutcome, len(set.groups))

	if serial {
		for i, g := range set.groups {
			bag := &errBag{}
			v := ec.executeField(ctx, objectType, source, g, appendPath(path, g.responseName), rec, bag)
			outcomes[i] = fieldOutcome{value: v, errs: bag}
		}
	} else {
		var wg sync.WaitGroup
		for i, g := range set.groups {
			wg.Add(1)
			go func(i int, g *fieldGroup) {
				defer wg.Done()
				bag := &errBag{}
				v := ec.executeField(ctx, objectType, source, g, appendPath(path, g.responseName), rec, bag)
				outcomes[i] = fieldOutcome{value: v, errs: bag}
			}(i, g)
		}
		wg.Wait()
	}

	for _, o := range outcomes {
		errs.merge(o.errs)
	}

	result := newResponseMap(len(set.groups))
	for i, g := range set.groups {
		field := g.fields[0]
		if field.Name == "__typename" {
			responseMapSet(result, g.responseName, outcomes[i].value)
			continue
		}
		fieldDef := objectType.GetField(field.Name)
		if fieldDef == nil {
			// Unknown field; the error was recorded during execution.
			continue
		}
		v := outcomes[i].value
		if schema.IsNonNull(fieldDef.Type) && isNullish(v) {
			return nil, true
		}
		if isNullish(v) {
			responseMapSet(result, g.responseName, nil)
		} else {
			responseMapSet(result, g.responseName, v)
		}
	}
	return result, false
}

// executeField resolves one field group: coerce arguments, invoke the
// resolver, complete the value. All failures are caught here and recorded
// as located errors; they never abort sibling fields.
func (ec *execContext) executeField(
	ctx context.Context,
	objectType *schema.Type,
	source any,
	g *fieldGroup,
	path Path,
	rec recordID,
	errs *errBag,
) any {
	field := g.fields[0]

	if field.Name == "__typename" {
		return objectType.Name
	}

	fieldDef := objectType.GetField(field.Name)
	if fieldDef == nil {
		errs.add(locatedError(
			fmt.Sprintf("Cannot query field '%s' on type '%s'", field.Name, objectType.Name),
			field.Position, path))
		return nil
	}

	args := ec.coerceArgumentValues(fieldDef, field, path, errs)

	resolved, err := ec.resolveFieldValue(ctx, objectType, fieldDef, field, source, args)
	if err != nil {
		errs.add(locatedError(err.Error(), field.Position, path))
		return nil
	}
	return ec.completeValue(ctx, fieldDef.Type, g.fields, resolved, path, rec, errs)
}

// resolveFieldValue invokes the field's resolver: the schema-attached one,
// the executor-wide override, or the default source-shape resolver. Panics
// are recovered and reported as field errors.
func (ec *execContext) resolveFieldValue(
	ctx context.Context,
	objectType *schema.Type,
	fieldDef *schema.Field,
	field *language.Field,
	source any,
	args map[string]any,
) (value any, err error) {
	if cerr := ctx.Err(); cerr != nil {
		return nil, cerr
	}
	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = resolverPanicError(objectType.Name, field.Name, r)
		}
	}()
	if fieldDef.Resolve != nil {
		return fieldDef.Resolve(ctx, source, args)
	}
	resolver := ec.exec.opts.fieldResolver
	if resolver == nil {
		resolver = DefaultFieldResolver
	}
	return resolver(ctx, objectType.Name, field.Name, source, args)
}

// completeValue resolves a field's raw value into a response-shaped value,
// dispatching on the structural kind of the declared type.
func (ec *execContext) completeValue(
	ctx context.Context,
	fieldType *schema.TypeRef,
	fields []*language.Field,
	result any,
	path Path,
	rec recordID,
	errs *errBag,
) any {
	if schema.IsNonNull(fieldType) {
		if isNullish(result) {
			if !errs.hasErrorAtPath(path) {
				errs.add(locatedError(
					fmt.Sprintf("Cannot return null for non-nullable field %s", path.String()),
					fields[0].Position, path))
			}
			return nil
		}
		completed := ec.completeValue(ctx, schema.Unwrap(fieldType), fields, result, path, rec, errs)
		if isNullish(completed) {
			// Error already recorded at the failing path; propagate only.
			return nil
		}
		return completed
	}

	if isNullish(result) {
		return nil
	}

	if schema.IsList(fieldType) {
		return ec.completeListValue(ctx, fieldType, fields, result, path, rec, errs)
	}

	namedType := schema.GetNamedType(fieldType)
	typeObj := ec.schema.Types[namedType]
	if typeObj == nil {
		errs.add(locatedError(fmt.Sprintf("Unknown type: %s", namedType), fields[0].Position, path))
		return nil
	}

	switch typeObj.Kind {
	case schema.TypeKindScalar, schema.TypeKindEnum:
		serialized, err := serializeLeafValue(typeObj, result)
		if err != nil {
			errs.add(locatedError(err.Error(), fields[0].Position, path))
			return nil
		}
		return serialized
	case schema.TypeKindObject:
		return ec.completeObjectValue(ctx, typeObj, fields, result, path, rec, errs)
	case schema.TypeKindInterface, schema.TypeKindUnion:
		return ec.completeAbstractValue(ctx, typeObj, fields, result, path, rec, errs)
	default:
		errs.add(locatedError(fmt.Sprintf("Cannot complete value of unexpected type: %s", typeObj.Kind), fields[0].Position, path))
		return nil
	}
}

// completeListValue completes a list value. With a live @stream directive,
// items beyond initialCount are not completed synchronously; the remainder
// of the sequence is handed to the incremental publisher.
func (ec *execContext) completeListValue(
	ctx context.Context,
	listType *schema.TypeRef,
	fields []*language.Field,
	result any,
	path Path,
	rec recordID,
	errs *errBag,
) any {
	inner := schema.Unwrap(listType)
	label, initialCount, streamed := ec.streamInfo(fields[0])

	it, ok := asIterator(result)
	if !ok {
		items, err := materializeList(result)
		if err != nil {
			errs.add(locatedError(err.Error(), fields[0].Position, path))
			return nil
		}
		it = &sliceIterator{items: items}
	}

	completed := make([]any, 0)
	index := 0
	for {
		if streamed && index >= initialCount {
			ec.scheduleStream(it, inner, fields, label, path, rec, index)
			return completed
		}
		item, more, err := it.Next(ctx)
		if err != nil {
			it.Close()
			errs.add(locatedError(err.Error(), fields[0].Position, appendPath(path, index)))
			return nil
		}
		if !more {
			it.Close()
			return completed
		}
		v := ec.completeValue(ctx, inner, fields, item, appendPath(path, index), rec, errs)
		if schema.IsNonNull(inner) && isNullish(v) {
			// A non-nullable element nulled out; the list itself is null.
			// The error was recorded by the element's completion.
			it.Close()
			return nil
		}
		completed = append(completed, v)
		index++
	}
}

func materializeList(result any) ([]any, error) {
	if direct, ok := result.([]any); ok {
		return direct, nil
	}
	rv := reflect.ValueOf(result)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("Expected list value, got %T", result)
	}
	items := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		items[i] = rv.Index(i).Interface()
	}
	return items, nil
}

func (ec *execContext) completeObjectValue(
	ctx context.Context,
	objectType *schema.Type,
	fields []*language.Field,
	result any,
	path Path,
	rec recordID,
	errs *errBag,
) any {
	sub := mergeSelectionSets(fields)
	data, failed := ec.executeSelectionSet(ctx, objectType, sub, result, path, false, rec, errs)
	if failed {
		return nil
	}
	return data
}

// completeAbstractValue resolves the concrete object type for an
// interface/union value, then completes it as a composite.
func (ec *execContext) completeAbstractValue(
	ctx context.Context,
	abstractType *schema.Type,
	fields []*language.Field,
	result any,
	path Path,
	rec recordID,
	errs *errBag,
) any {
	typeName, err := ec.resolveConcreteTypeName(ctx, abstractType, result)
	if err != nil {
		errs.add(locatedError(err.Error(), fields[0].Position, path))
		return nil
	}
	objectType := ec.schema.Types[typeName]
	if objectType == nil || objectType.Kind != schema.TypeKindObject {
		errs.add(locatedError(
			fmt.Sprintf("Abstract type %s must resolve to an Object type at runtime. Got: %s", abstractType.Name, typeName),
			fields[0].Position, path))
		return nil
	}
	if !ec.schema.IsSubType(abstractType.Name, typeName) {
		errs.add(locatedError(
			fmt.Sprintf("Runtime type %s is not a possible type for %s", typeName, abstractType.Name),
			fields[0].Position, path))
		return nil
	}
	return ec.completeObjectValue(ctx, objectType, fields, result, path, rec, errs)
}

func (ec *execContext) resolveConcreteTypeName(ctx context.Context, abstractType *schema.Type, value any) (string, error) {
	if abstractType.ResolveType != nil {
		return abstractType.ResolveType(ctx, value)
	}
	if tr := ec.exec.opts.typeResolver; tr != nil {
		return tr(ctx, abstractType.Name, value)
	}
	for _, name := range ec.schema.PossibleTypesOf(abstractType.Name) {
		t := ec.schema.Types[name]
		if t != nil && t.IsTypeOf != nil && t.IsTypeOf(ctx, value) {
			return name, nil
		}
	}
	if m, ok := value.(map[string]any); ok {
		if typename, ok := m["__typename"].(string); ok {
			return typename, nil
		}
	}
	return "", fmt.Errorf("cannot resolve concrete type for abstract type %s", abstractType.Name)
}

// serializeLeafValue serializes a scalar or enum value via the type's
// serialize operation. Custom scalars without one pass through untouched.
func serializeLeafValue(typeObj *schema.Type, value any) (any, error) {
	if typeObj.Kind == schema.TypeKindEnum {
		name, ok := value.(string)
		if stringer, isStringer := value.(fmt.Stringer); !ok && isStringer {
			name, ok = stringer.String(), true
		}
		if !ok || !typeObj.HasEnumValue(name) {
			return nil, fmt.Errorf("Enum %s cannot represent value: %v", typeObj.Name, value)
		}
		return name, nil
	}
	if typeObj.Serialize != nil {
		return typeObj.Serialize(value)
	}
	return value, nil
}

// mergeSelectionSets merges selection sets from multiple fields
func mergeSelectionSets(fields []*language.Field) language.SelectionSet {
	var merged language.SelectionSet
	for _, f := range fields {
		merged = append(merged, f.SelectionSet...)
	}
	return merged
}

// isNullish returns true for nil interfaces and typed nils (map, slice, ptr, interface)
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
