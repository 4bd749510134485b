package schema

import (
	"fmt"
	"math"
	"strconv"
)

var stringType = &Type{
	Name:        "String",
	Kind:        TypeKindScalar,
	Description: "The `String` scalar type represents textual data, represented as UTF-8 character sequences.",
	Serialize:   serializeString,
	builtin:     true,
}

var intType = &Type{
	Name:        "Int",
	Kind:        TypeKindScalar,
	Description: "The `Int` scalar type represents non-fractional signed whole numeric values.",
	Serialize:   serializeInt,
	builtin:     true,
}

var floatType = &Type{
	Name:        "Float",
	Kind:        TypeKindScalar,
	Description: "The `Float` scalar type represents signed double-precision fractional values.",
	Serialize:   serializeFloat,
	builtin:     true,
}

var booleanType = &Type{
	Name:        "Boolean",
	Kind:        TypeKindScalar,
	Description: "The `Boolean` scalar type represents `true` or `false`.",
	Serialize:   serializeBoolean,
	builtin:     true,
}

var idType = &Type{
	Name:        "ID",
	Kind:        TypeKindScalar,
	Description: "The `ID` scalar type represents a unique identifier, often used to refetch an object or as a key for caching.",
	Serialize:   serializeID,
	builtin:     true,
}

func serializeString(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return fmt.Sprintf("%v", v), nil
	}
}

func serializeInt(value any) (any, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		if v > math.MaxInt32 || v < math.MinInt32 {
			return nil, fmt.Errorf("Int cannot represent value out of 32-bit range: %d", v)
		}
		return int(v), nil
	case float64:
		if v != math.Trunc(v) || v > math.MaxInt32 || v < math.MinInt32 {
			return nil, fmt.Errorf("Int cannot represent non-integer value: %v", v)
		}
		return int(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		if i, err := strconv.Atoi(v); err == nil {
			return i, nil
		}
	}
	return nil, fmt.Errorf("Int cannot represent value: %v (%T)", value, value)
}

func serializeFloat(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, nil
		}
	}
	return nil, fmt.Errorf("Float cannot represent value: %v (%T)", value, value)
}

func serializeBoolean(value any) (any, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case int:
		return v != 0, nil
	}
	return nil, fmt.Errorf("Boolean cannot represent value: %v (%T)", value, value)
}

func serializeID(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case fmt.Stringer:
		return v.String(), nil
	}
	return nil, fmt.Errorf("ID cannot represent value: %v (%T)", value, value)
}

var includeDirective = &Directive{
	Name:        "include",
	Description: "Directs the executor to include this field or fragment only when the `if` argument is true.",
	Locations:   []string{"FIELD", "FRAGMENT_SPREAD", "INLINE_FRAGMENT"},
	Arguments: []*InputValue{
		{
			Name:        "if",
			Description: "Included when true.",
			Type:        NonNullType(NamedType("Boolean")),
		},
	},
	builtin: true,
}

var skipDirective = &Directive{
	Name:        "skip",
	Description: "Directs the executor to skip this field or fragment when the `if` argument is true.",
	Locations:   []string{"FIELD", "FRAGMENT_SPREAD", "INLINE_FRAGMENT"},
	Arguments: []*InputValue{
		{
			Name:        "if",
			Description: "Skipped when true.",
			Type:        NonNullType(NamedType("Boolean")),
		},
	},
	builtin: true,
}

var deferDirective = &Directive{
	Name:        "defer",
	Description: "Directs the executor to deliver this fragment as a later incremental patch instead of in the initial response.",
	Locations:   []string{"FRAGMENT_SPREAD", "INLINE_FRAGMENT"},
	Arguments: []*InputValue{
		{
			Name:         "if",
			Description:  "Deferred when true.",
			Type:         NonNullType(NamedType("Boolean")),
			DefaultValue: true,
		},
		{
			Name:        "label",
			Description: "Unique name to correlate the patch with this fragment.",
			Type:        NamedType("String"),
		},
	},
	builtin: true,
}

var streamDirective = &Directive{
	Name:        "stream",
	Description: "Directs the executor to deliver list items beyond `initialCount` as later incremental patches, in index order.",
	Locations:   []string{"FIELD"},
	Arguments: []*InputValue{
		{
			Name:         "if",
			Description:  "Streamed when true.",
			Type:         NonNullType(NamedType("Boolean")),
			DefaultValue: true,
		},
		{
			Name:        "label",
			Description: "Unique name to correlate patches with this field.",
			Type:        NamedType("String"),
		},
		{
			Name:         "initialCount",
			Description:  "Number of items delivered in the initial response.",
			Type:         NamedType("Int"),
			DefaultValue: 0,
		},
	},
	builtin: true,
}
