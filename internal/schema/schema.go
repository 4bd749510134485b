package schema

import (
	"context"
	"sort"
)

// ResolveFunc produces the raw value for a field from its parent source value
// and coerced arguments. It may block; the executor invokes resolvers for
// sibling fields concurrently except for top-level mutation fields.
type ResolveFunc func(ctx context.Context, source any, args map[string]any) (any, error)

// SubscribeFunc produces the event source for a subscription root field.
// The returned value must be a channel of events or an executor.Iterator.
type SubscribeFunc func(ctx context.Context, source any, args map[string]any) (any, error)

// SerializeFunc serializes a scalar or enum internal value to a JSON-safe
// Go value.
type SerializeFunc func(value any) (any, error)

// TypeResolveFunc resolves the concrete object type name for a value of an
// abstract type.
type TypeResolveFunc func(ctx context.Context, value any) (string, error)

// IsTypeOfFunc reports whether a value belongs to a given object type. Used
// to probe possible types of an abstract type when no TypeResolveFunc is set.
type IsTypeOfFunc func(ctx context.Context, value any) bool

// Schema represents the complete GraphQL schema
type Schema struct {
	QueryType        string
	MutationType     string
	SubscriptionType string
	Types            map[string]*Type // All named types keyed by name
	Directives       map[string]*Directive
	Description      string
}

// NewSchema creates an empty schema pre-populated with the builtin scalar
// types and the builtin executable directives.
func NewSchema(description string) *Schema {
	s := &Schema{
		Types:       make(map[string]*Type),
		Directives:  make(map[string]*Directive),
		Description: description,
	}
	// Every schema gets its own copies; builtins are never shared across
	// schema instances.
	for _, t := range []*Type{stringType, intType, floatType, booleanType, idType} {
		cp := *t
		s.AddType(&cp)
	}
	for _, d := range []*Directive{includeDirective, skipDirective, deferDirective, streamDirective} {
		s.AddDirective(cloneDirective(d))
	}
	return s
}

func cloneDirective(d *Directive) *Directive {
	cp := *d
	cp.Locations = append([]string(nil), d.Locations...)
	cp.Arguments = make([]*InputValue, len(d.Arguments))
	for i, a := range d.Arguments {
		av := *a
		cp.Arguments[i] = &av
	}
	return &cp
}

func (s *Schema) SetQueryType(name string) *Schema        { s.QueryType = name; return s }
func (s *Schema) SetMutationType(name string) *Schema     { s.MutationType = name; return s }
func (s *Schema) SetSubscriptionType(name string) *Schema { s.SubscriptionType = name; return s }

// AddType registers a named type, replacing any previous type with that name.
func (s *Schema) AddType(t *Type) *Schema {
	if s.Types == nil {
		s.Types = make(map[string]*Type)
	}
	s.Types[t.Name] = t
	return s
}

// AddDirective registers a directive definition.
func (s *Schema) AddDirective(d *Directive) *Schema {
	if s.Directives == nil {
		s.Directives = make(map[string]*Directive)
	}
	s.Directives[d.Name] = d
	return s
}

// GetQueryType returns the root query type (may be nil if absent)
func (s *Schema) GetQueryType() *Type { return s.Types[s.QueryType] }

// GetMutationType returns the root mutation type (may be nil if absent)
func (s *Schema) GetMutationType() *Type { return s.Types[s.MutationType] }

// GetSubscriptionType returns the root subscription type (may be nil if absent)
func (s *Schema) GetSubscriptionType() *Type { return s.Types[s.SubscriptionType] }

// IsSubType reports whether concrete satisfies the type condition named by
// abstract: the names are equal, concrete implements the interface, or
// concrete is a member of the union.
func (s *Schema) IsSubType(abstract, concrete string) bool {
	if abstract == concrete {
		return true
	}
	abstractType := s.Types[abstract]
	if abstractType == nil {
		return false
	}
	switch abstractType.Kind {
	case TypeKindUnion:
		for _, name := range abstractType.PossibleTypes {
			if name == concrete {
				return true
			}
		}
	case TypeKindInterface:
		concreteType := s.Types[concrete]
		if concreteType == nil {
			return false
		}
		for _, name := range concreteType.Interfaces {
			if name == abstract {
				return true
			}
		}
	}
	return false
}

// PossibleTypesOf returns the concrete object type names that satisfy the
// given abstract type, in a stable order.
func (s *Schema) PossibleTypesOf(abstract string) []string {
	abstractType := s.Types[abstract]
	if abstractType == nil {
		return nil
	}
	if abstractType.Kind == TypeKindUnion || len(abstractType.PossibleTypes) > 0 {
		return abstractType.PossibleTypes
	}
	if abstractType.Kind != TypeKindInterface {
		return nil
	}
	var names []string
	for name, t := range s.Types {
		if t.Kind == TypeKindObject && s.IsSubType(abstract, name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Type is a named GraphQL type (object, interface, union, scalar, enum, input)
type Type struct {
	Name           string
	Kind           TypeKind
	Description    string
	Fields         []*Field      // For OBJECT and INTERFACE
	Interfaces     []string      // For OBJECT and INTERFACE (implemented/extended)
	PossibleTypes  []string      // For INTERFACE and UNION
	EnumValues     []*EnumValue  // For ENUM
	InputFields    []*InputValue // For INPUT_OBJECT
	SpecifiedByURL *string
	OneOf          bool

	// Serialize converts internal scalar/enum values to response values.
	// Nil means identity for custom scalars; builtins carry their own.
	Serialize SerializeFunc `json:"-"`
	// ResolveType resolves the concrete type of an abstract-typed value.
	ResolveType TypeResolveFunc `json:"-"`
	// IsTypeOf probes whether a value belongs to this object type.
	IsTypeOf IsTypeOfFunc `json:"-"`

	// builtin marks the predeclared scalar types; they are implied by every
	// schema and never rendered.
	builtin bool
}

// NewType creates a named type of the given kind.
func NewType(name string, kind TypeKind, description string) *Type {
	return &Type{Name: name, Kind: kind, Description: description}
}

func (t *Type) AddField(f *Field) *Type {
	t.Fields = append(t.Fields, f)
	return t
}

func (t *Type) AddInterface(name string) *Type {
	t.Interfaces = append(t.Interfaces, name)
	return t
}

func (t *Type) AddPossibleType(name string) *Type {
	t.PossibleTypes = append(t.PossibleTypes, name)
	return t
}

func (t *Type) AddEnumValue(v *EnumValue) *Type {
	t.EnumValues = append(t.EnumValues, v)
	return t
}

func (t *Type) AddInputField(f *InputValue) *Type {
	t.InputFields = append(t.InputFields, f)
	return t
}

// GetField returns the field definition with the given name, or nil.
func (t *Type) GetField(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// HasEnumValue reports whether name is a declared value of this enum type.
func (t *Type) HasEnumValue(name string) bool {
	for _, v := range t.EnumValues {
		if v.Name == name {
			return true
		}
	}
	return false
}

// Field represents a field on an object or interface
type Field struct {
	Name              string
	Description       string
	Type              *TypeRef
	Arguments         []*InputValue
	IsDeprecated      bool
	DeprecationReason string

	// Resolve produces the field's raw value. Nil falls back to the
	// executor's configured or default resolver.
	Resolve ResolveFunc `json:"-"`
	// Subscribe produces the event source for subscription root fields.
	Subscribe SubscribeFunc `json:"-"`
}

// TypeKind represents the kind of GraphQL type
type TypeKind string

const (
	TypeKindScalar      TypeKind = "SCALAR"
	TypeKindObject      TypeKind = "OBJECT"
	TypeKindInterface   TypeKind = "INTERFACE"
	TypeKindUnion       TypeKind = "UNION"
	TypeKindEnum        TypeKind = "ENUM"
	TypeKindInputObject TypeKind = "INPUT_OBJECT"
)

// TypeRef represents a reference to a type (can be wrapped)
type TypeRef struct {
	Kind   TypeRefKind
	OfType *TypeRef // For List and NonNull
	Named  string   // For named types
}

type TypeRefKind string

const (
	TypeRefKindNamed   TypeRefKind = "NAMED"
	TypeRefKindList    TypeRefKind = "LIST"
	TypeRefKindNonNull TypeRefKind = "NON_NULL"
)

func (t *TypeRef) IsNonNull() bool {
	return t != nil && t.Kind == TypeRefKindNonNull
}

func (t *TypeRef) IsList() bool {
	if t.Kind == TypeRefKindList {
		return true
	}
	if t.Kind == TypeRefKindNonNull && t.OfType != nil {
		return t.OfType.Kind == TypeRefKindList
	}
	return false
}

func (t *TypeRef) Unwrap() *TypeRef {
	if t.Kind == TypeRefKindNonNull || t.Kind == TypeRefKindList {
		return t.OfType
	}
	return t
}

func (t *TypeRef) GetNamedType() string {
	current := t
	for current != nil {
		if current.Named != "" {
			return current.Named
		}
		current = current.OfType
	}
	return ""
}

// String renders the type reference in SDL notation, e.g. "[Int!]!".
func (t *TypeRef) String() string {
	if t == nil {
		return ""
	}
	switch t.Kind {
	case TypeRefKindNonNull:
		return t.OfType.String() + "!"
	case TypeRefKindList:
		return "[" + t.OfType.String() + "]"
	default:
		return t.Named
	}
}

type EnumValue struct {
	Name              string
	Description       string
	IsDeprecated      bool
	DeprecationReason string
}

type InputValue struct {
	Name              string
	Description       string
	Type              *TypeRef
	DefaultValue      any
	IsDeprecated      bool
	DeprecationReason string
}

type Directive struct {
	Name         string
	Description  string
	Locations    []string
	Arguments    []*InputValue
	IsRepeatable bool

	builtin bool
}

func NonNullType(t *TypeRef) *TypeRef { return &TypeRef{Kind: TypeRefKindNonNull, OfType: t} }
func ListType(t *TypeRef) *TypeRef    { return &TypeRef{Kind: TypeRefKindList, OfType: t} }
func NamedType(name string) *TypeRef  { return &TypeRef{Kind: TypeRefKindNamed, Named: name} }

// IsNonNull reports whether the type is wrapped with Non-Null.
func IsNonNull(t *TypeRef) bool { return t != nil && t.IsNonNull() }

// IsList reports whether the type is (or is wrapped by) a list type.
func IsList(t *TypeRef) bool { return t != nil && t.IsList() }

// Unwrap removes one layer of Non-Null or List wrapping and returns the inner type.
func Unwrap(t *TypeRef) *TypeRef { return t.Unwrap() }

// GetNamedType returns the innermost named type for the given reference.
func GetNamedType(t *TypeRef) string { return t.GetNamedType() }
