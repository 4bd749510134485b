package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Render produces SDL from the schema. Output is deterministic: types and
// directives are sorted lexicographically; builtins are omitted.
func Render(s *Schema) string {
	if s == nil {
		return ""
	}
	var b strings.Builder

	if s.QueryType != "" || s.MutationType != "" || s.SubscriptionType != "" {
		if !defaultRootNames(s) {
			b.WriteString("schema {\n")
			if s.QueryType != "" {
				fmt.Fprintf(&b, "  query: %s\n", s.QueryType)
			}
			if s.MutationType != "" {
				fmt.Fprintf(&b, "  mutation: %s\n", s.MutationType)
			}
			if s.SubscriptionType != "" {
				fmt.Fprintf(&b, "  subscription: %s\n", s.SubscriptionType)
			}
			b.WriteString("}\n\n")
		}
	}

	typeNames := make([]string, 0, len(s.Types))
	for name, typ := range s.Types {
		if isBuiltinType(typ) {
			continue
		}
		typeNames = append(typeNames, name)
	}
	sort.Strings(typeNames)
	for _, name := range typeNames {
		renderType(&b, s.Types[name])
	}

	directiveNames := make([]string, 0, len(s.Directives))
	for name, d := range s.Directives {
		if isBuiltinDirective(d) {
			continue
		}
		directiveNames = append(directiveNames, name)
	}
	sort.Strings(directiveNames)
	for _, name := range directiveNames {
		renderDirective(&b, s.Directives[name])
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func defaultRootNames(s *Schema) bool {
	return (s.QueryType == "" || s.QueryType == "Query") &&
		(s.MutationType == "" || s.MutationType == "Mutation") &&
		(s.SubscriptionType == "" || s.SubscriptionType == "Subscription")
}

func isBuiltinType(t *Type) bool {
	return t.builtin
}

func isBuiltinDirective(d *Directive) bool {
	return d.builtin
}

func renderType(b *strings.Builder, t *Type) {
	renderDescription(b, t.Description, "")
	switch t.Kind {
	case TypeKindScalar:
		b.WriteString("scalar " + t.Name)
		if t.SpecifiedByURL != nil {
			fmt.Fprintf(b, " @specifiedBy(url: %s)", strconv.Quote(*t.SpecifiedByURL))
		}
		b.WriteString("\n\n")
	case TypeKindEnum:
		b.WriteString("enum " + t.Name + " {\n")
		for _, v := range t.EnumValues {
			renderDescription(b, v.Description, "  ")
			b.WriteString("  " + v.Name)
			renderDeprecated(b, v.IsDeprecated, v.DeprecationReason)
			b.WriteString("\n")
		}
		b.WriteString("}\n\n")
	case TypeKindUnion:
		b.WriteString("union " + t.Name)
		if len(t.PossibleTypes) > 0 {
			b.WriteString(" = " + strings.Join(t.PossibleTypes, " | "))
		}
		b.WriteString("\n\n")
	case TypeKindInputObject:
		b.WriteString("input " + t.Name)
		if t.OneOf {
			b.WriteString(" @oneOf")
		}
		b.WriteString(" {\n")
		for _, f := range t.InputFields {
			renderDescription(b, f.Description, "  ")
			b.WriteString("  " + f.Name + ": " + f.Type.String())
			renderDefault(b, f.DefaultValue)
			b.WriteString("\n")
		}
		b.WriteString("}\n\n")
	case TypeKindObject, TypeKindInterface:
		if t.Kind == TypeKindObject {
			b.WriteString("type " + t.Name)
		} else {
			b.WriteString("interface " + t.Name)
		}
		if len(t.Interfaces) > 0 {
			b.WriteString(" implements " + strings.Join(t.Interfaces, " & "))
		}
		b.WriteString(" {\n")
		for _, f := range t.Fields {
			renderDescription(b, f.Description, "  ")
			b.WriteString("  " + f.Name)
			renderArguments(b, f.Arguments)
			b.WriteString(": " + f.Type.String())
			renderDeprecated(b, f.IsDeprecated, f.DeprecationReason)
			b.WriteString("\n")
		}
		b.WriteString("}\n\n")
	}
}

func renderDirective(b *strings.Builder, d *Directive) {
	renderDescription(b, d.Description, "")
	b.WriteString("directive @" + d.Name)
	renderArguments(b, d.Arguments)
	if d.IsRepeatable {
		b.WriteString(" repeatable")
	}
	b.WriteString(" on " + strings.Join(d.Locations, " | "))
	b.WriteString("\n\n")
}

func renderArguments(b *strings.Builder, args []*InputValue) {
	if len(args) == 0 {
		return
	}
	b.WriteString("(")
	for i, a := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.Name + ": " + a.Type.String())
		renderDefault(b, a.DefaultValue)
	}
	b.WriteString(")")
}

func renderDefault(b *strings.Builder, v any) {
	if v == nil {
		return
	}
	b.WriteString(" = " + renderValue(v))
}

func renderDeprecated(b *strings.Builder, deprecated bool, reason string) {
	if !deprecated {
		return
	}
	b.WriteString(" @deprecated")
	if reason != "" {
		fmt.Fprintf(b, "(reason: %s)", strconv.Quote(reason))
	}
}

func renderDescription(b *strings.Builder, desc, indent string) {
	if desc == "" {
		return
	}
	b.WriteString(indent + `"""` + "\n")
	for _, line := range strings.Split(desc, "\n") {
		b.WriteString(indent + line + "\n")
	}
	b.WriteString(indent + `"""` + "\n")
}

// renderValue renders a Go value as an SDL literal. Strings are quoted
// unless they look like enum values already rendered by the builder.
func renderValue(v any) string {
	switch val := v.(type) {
	case string:
		if isEnumLike(val) {
			return val
		}
		return strconv.Quote(val)
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = renderValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + renderValue(val[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprintf("%v", v)
	}
}

func isEnumLike(s string) bool {
	if s == "" || s == "true" || s == "false" || s == "null" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9'):
		default:
			return false
		}
	}
	return true
}
