package executor

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// FieldResolveFunc resolves a field's raw value.
//
// objectType is the GraphQL type name (e.g. "User") and field the field name
// on that type. For root fields objectType is the root type name. source is
// the parent object value (nil for root fields unless a root value was
// supplied) and args the map of argument names to already-coerced Go values.
//
// Resolvers may block; the executor invokes resolvers for sibling fields
// concurrently except for top-level mutation fields, which run strictly in
// document order. Implementations must not mutate source or args.
type FieldResolveFunc func(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error)

// TypeResolveFunc resolves the concrete object type name for a value of an
// abstract type (interface or union). The returned name must be a possible
// type of abstractType in the schema.
type TypeResolveFunc func(ctx context.Context, abstractType string, value any) (string, error)

// SubscribeResolveFunc produces the event source for a subscription root
// field. The returned value must be a channel of events or an Iterator.
type SubscribeResolveFunc func(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error)

// Iterator is a pull-based sequence of values. List fields may resolve to an
// Iterator instead of a slice, in which case elements are completed as they
// are produced; subscription sources may be Iterators as well.
type Iterator interface {
	// Next returns the next value. ok=false means the sequence is
	// exhausted; a non-nil error ends the sequence with a failure.
	Next(ctx context.Context) (value any, ok bool, err error)
	// Close releases the underlying source. It must be safe to call more
	// than once and concurrently with Next.
	Close()
}

// DefaultFieldResolver resolves a field from the shape of the source value:
// map key, exported struct field, or niladic method, in that order. A func
// value found under a map key is invoked. This is the behavior applied when
// neither the schema field nor the executor configures a resolver.
func DefaultFieldResolver(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	if source == nil {
		return nil, nil
	}
	if m, ok := source.(map[string]any); ok {
		v := m[field]
		return callIfFunc(ctx, v, args)
	}

	rv := reflect.ValueOf(source)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		v := rv.MapIndex(reflect.ValueOf(field))
		if !v.IsValid() {
			return nil, nil
		}
		return callIfFunc(ctx, v.Interface(), args)
	case reflect.Struct:
		if f := fieldByNameFold(rv, field); f.IsValid() {
			return callIfFunc(ctx, f.Interface(), args)
		}
		if m := methodByNameFold(reflect.ValueOf(source), field); m.IsValid() {
			return callIfFunc(ctx, m.Interface(), args)
		}
		return nil, nil
	default:
		return nil, nil
	}
}

func fieldByNameFold(rv reflect.Value, name string) reflect.Value {
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		if strings.EqualFold(sf.Name, name) {
			return rv.Field(i)
		}
	}
	return reflect.Value{}
}

func methodByNameFold(rv reflect.Value, name string) reflect.Value {
	t := rv.Type()
	for i := 0; i < t.NumMethod(); i++ {
		if strings.EqualFold(t.Method(i).Name, name) {
			return rv.Method(i)
		}
	}
	return reflect.Value{}
}

// callIfFunc invokes resolver-shaped func values found on the source.
// Supported shapes: func() V, func() (V, error), func(ctx) (V, error) and
// func(ctx, args) (V, error). Anything else is returned as-is.
func callIfFunc(ctx context.Context, v any, args map[string]any) (any, error) {
	switch fn := v.(type) {
	case nil:
		return nil, nil
	case func() any:
		return fn(), nil
	case func() (any, error):
		return fn()
	case func(context.Context) (any, error):
		return fn(ctx)
	case func(context.Context, map[string]any) (any, error):
		return fn(ctx, args)
	default:
		return v, nil
	}
}

// resolverPanicError converts a recovered resolver panic into an error.
func resolverPanicError(objectType, field string, recovered any) error {
	if err, ok := recovered.(error); ok {
		return fmt.Errorf("panic in resolver for %s.%s: %w", objectType, field, err)
	}
	return fmt.Errorf("panic in resolver for %s.%s: %v", objectType, field, recovered)
}

// asIterator adapts an event or list source value into an Iterator.
// Channels of any element type are supported via reflection.
func asIterator(v any) (Iterator, bool) {
	switch src := v.(type) {
	case Iterator:
		return src, true
	case <-chan any:
		return newChanIterator(reflect.ValueOf(src)), true
	case chan any:
		return newChanIterator(reflect.ValueOf(src)), true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Chan && rv.Type().ChanDir() != reflect.SendDir {
		return newChanIterator(rv), true
	}
	return nil, false
}

type chanIterator struct {
	ch     reflect.Value
	closed chan struct{}
	once   func()
}

func newChanIterator(ch reflect.Value) *chanIterator {
	closed := make(chan struct{})
	var once sync.Once
	return &chanIterator{
		ch:     ch,
		closed: closed,
		once:   func() { once.Do(func() { close(closed) }) },
	}
}

func (it *chanIterator) Next(ctx context.Context) (any, bool, error) {
	chosen, recv, ok := reflect.Select([]reflect.SelectCase{
		{Dir: reflect.SelectRecv, Chan: it.ch},
		{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ctx.Done())},
		{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(it.closed)},
	})
	switch chosen {
	case 0:
		if !ok {
			return nil, false, nil
		}
		return recv.Interface(), true, nil
	case 1:
		return nil, false, ctx.Err()
	default:
		return nil, false, nil
	}
}

func (it *chanIterator) Close() { it.once() }

// sliceIterator walks an already-materialized item slice.
type sliceIterator struct {
	items []any
	pos   int
}

func (it *sliceIterator) Next(ctx context.Context) (any, bool, error) {
	if it.pos >= len(it.items) {
		return nil, false, nil
	}
	v := it.items[it.pos]
	it.pos++
	return v, true, nil
}

func (it *sliceIterator) Close() {}
