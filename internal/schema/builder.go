package schema

import (
	"fmt"
	"slices"
	"strconv"

	language "github.com/ModernAnimal/graphql-core/internal/language"
)

// BuildFromSDL builds an executable schema from a parsed SDL document.
// Type and schema extensions are merged into their base definitions. Resolver
// functions are attached afterwards by the caller (Type.GetField et al.).
func BuildFromSDL(doc *language.SchemaDocument) (*Schema, error) {
	s := NewSchema(describe(doc))

	defs := make(language.DefinitionList, 0, len(doc.Definitions))
	defs = append(defs, doc.Definitions...)
	for _, ext := range doc.Extensions {
		i := -1
		for j, d := range defs {
			if d.Name == ext.Name {
				i = j
				break
			}
		}
		if i < 0 {
			return nil, fmt.Errorf("cannot extend unknown type %q", ext.Name)
		}
		base := defs[i]
		if base.Kind != ext.Kind {
			return nil, fmt.Errorf("cannot extend %s %q as %s", base.Kind, base.Name, ext.Kind)
		}
		// Merge into a copy; the caller's parsed document is left untouched.
		merged := *base
		merged.Fields = slices.Concat(base.Fields, ext.Fields)
		merged.Interfaces = slices.Concat(base.Interfaces, ext.Interfaces)
		merged.Types = slices.Concat(base.Types, ext.Types)
		merged.EnumValues = slices.Concat(base.EnumValues, ext.EnumValues)
		defs[i] = &merged
	}

	for _, def := range defs {
		t, err := buildDefinition(def)
		if err != nil {
			return nil, err
		}
		s.AddType(t)
	}
	for _, dir := range doc.Directives {
		s.AddDirective(buildDirective(dir))
	}
	if err := linkPossibleTypes(s); err != nil {
		return nil, err
	}
	applyRootTypes(s, doc)
	return s, nil
}

func describe(doc *language.SchemaDocument) string {
	for _, sd := range doc.Schema {
		if sd.Description != "" {
			return sd.Description
		}
	}
	return ""
}

func applyRootTypes(s *Schema, doc *language.SchemaDocument) {
	// Implicit roots by conventional name, then explicit schema declarations.
	for _, name := range []string{"Query", "Mutation", "Subscription"} {
		if t, ok := s.Types[name]; ok && t.Kind == TypeKindObject {
			switch name {
			case "Query":
				s.SetQueryType(name)
			case "Mutation":
				s.SetMutationType(name)
			case "Subscription":
				s.SetSubscriptionType(name)
			}
		}
	}
	declared := append(append([]*language.SchemaDefinition{}, doc.Schema...), doc.SchemaExtension...)
	for _, sd := range declared {
		for _, op := range sd.OperationTypes {
			switch op.Operation {
			case language.Query:
				s.SetQueryType(op.Type)
			case language.Mutation:
				s.SetMutationType(op.Type)
			case language.Subscription:
				s.SetSubscriptionType(op.Type)
			}
		}
	}
}

func buildDefinition(def *language.Definition) (*Type, error) {
	switch def.Kind {
	case language.Object, language.Interface:
		kind := TypeKindObject
		if def.Kind == language.Interface {
			kind = TypeKindInterface
		}
		t := NewType(def.Name, kind, def.Description)
		for _, iface := range def.Interfaces {
			t.AddInterface(iface)
		}
		for _, fd := range def.Fields {
			f, err := buildField(fd)
			if err != nil {
				return nil, err
			}
			t.AddField(f)
		}
		return t, nil
	case language.Union:
		t := NewType(def.Name, TypeKindUnion, def.Description)
		for _, member := range def.Types {
			t.AddPossibleType(member)
		}
		return t, nil
	case language.Enum:
		t := NewType(def.Name, TypeKindEnum, def.Description)
		for _, ev := range def.EnumValues {
			value := &EnumValue{Name: ev.Name, Description: ev.Description}
			if d := ev.Directives.ForName("deprecated"); d != nil {
				value.IsDeprecated = true
				value.DeprecationReason = directiveReason(d)
			}
			t.AddEnumValue(value)
		}
		return t, nil
	case language.Scalar:
		t := NewType(def.Name, TypeKindScalar, def.Description)
		if d := def.Directives.ForName("specifiedBy"); d != nil {
			if arg := d.Arguments.ForName("url"); arg != nil {
				url := arg.Value.Raw
				t.SpecifiedByURL = &url
			}
		}
		return t, nil
	case language.InputObject:
		t := NewType(def.Name, TypeKindInputObject, def.Description)
		for _, fd := range def.Fields {
			t.AddInputField(&InputValue{
				Name:         fd.Name,
				Description:  fd.Description,
				Type:         TypeRefFromAST(fd.Type),
				DefaultValue: literalToGo(fd.DefaultValue),
			})
		}
		if def.Directives.ForName("oneOf") != nil {
			t.OneOf = true
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unsupported definition kind: %s", def.Kind)
	}
}

func buildField(fd *language.FieldDefinition) (*Field, error) {
	f := &Field{
		Name:        fd.Name,
		Description: fd.Description,
		Type:        TypeRefFromAST(fd.Type),
	}
	for _, ad := range fd.Arguments {
		f.Arguments = append(f.Arguments, &InputValue{
			Name:         ad.Name,
			Description:  ad.Description,
			Type:         TypeRefFromAST(ad.Type),
			DefaultValue: literalToGo(ad.DefaultValue),
		})
	}
	if d := fd.Directives.ForName("deprecated"); d != nil {
		f.IsDeprecated = true
		f.DeprecationReason = directiveReason(d)
	}
	return f, nil
}

func buildDirective(dd *language.DirectiveDefinition) *Directive {
	d := &Directive{
		Name:         dd.Name,
		Description:  dd.Description,
		IsRepeatable: dd.IsRepeatable,
	}
	for _, loc := range dd.Locations {
		d.Locations = append(d.Locations, string(loc))
	}
	for _, ad := range dd.Arguments {
		d.Arguments = append(d.Arguments, &InputValue{
			Name:         ad.Name,
			Description:  ad.Description,
			Type:         TypeRefFromAST(ad.Type),
			DefaultValue: literalToGo(ad.DefaultValue),
		})
	}
	return d
}

func directiveReason(d *language.Directive) string {
	if arg := d.Arguments.ForName("reason"); arg != nil {
		return arg.Value.Raw
	}
	return ""
}

// linkPossibleTypes records, for every interface, the object types
// implementing it. Union member lists come directly from their definitions.
func linkPossibleTypes(s *Schema) error {
	for name, t := range s.Types {
		if t.Kind != TypeKindObject {
			continue
		}
		for _, iface := range t.Interfaces {
			it, ok := s.Types[iface]
			if !ok || it.Kind != TypeKindInterface {
				return fmt.Errorf("type %q implements unknown interface %q", name, iface)
			}
		}
	}
	for _, t := range s.Types {
		if t.Kind == TypeKindInterface {
			t.PossibleTypes = s.PossibleTypesOf(t.Name)
		}
	}
	return nil
}

// TypeRefFromAST converts an AST type reference into the schema model.
func TypeRefFromAST(t *language.Type) *TypeRef {
	if t == nil {
		return nil
	}
	if t.NonNull {
		return NonNullType(TypeRefFromAST(&language.Type{NamedType: t.NamedType, Elem: t.Elem}))
	}
	if t.NamedType != "" {
		return NamedType(t.NamedType)
	}
	if t.Elem != nil {
		return ListType(TypeRefFromAST(t.Elem))
	}
	return nil
}

// literalToGo converts a constant AST value (no variables) to a Go value.
func literalToGo(value *language.Value) any {
	if value == nil {
		return nil
	}
	switch value.Kind {
	case language.IntValue:
		iv, _ := strconv.Atoi(value.Raw)
		return iv
	case language.FloatValue:
		fv, _ := strconv.ParseFloat(value.Raw, 64)
		return fv
	case language.StringValue, language.BlockValue, language.EnumValue:
		return value.Raw
	case language.BooleanValue:
		return value.Raw == "true"
	case language.NullValue:
		return nil
	case language.ListValue:
		out := make([]any, len(value.Children))
		for i, c := range value.Children {
			out[i] = literalToGo(c.Value)
		}
		return out
	case language.ObjectValue:
		m := make(map[string]any, len(value.Children))
		for _, f := range value.Children {
			m[f.Name] = literalToGo(f.Value)
		}
		return m
	default:
		return nil
	}
}
