package executor

import (
	language "github.com/ModernAnimal/graphql-core/internal/language"
	schema "github.com/ModernAnimal/graphql-core/internal/schema"
)

// fieldGroup is an ordered sequence of AST field nodes sharing one response
// key. All nodes in a group resolve against the same field definition.
type fieldGroup struct {
	responseName string
	fields       []*language.Field
}

// groupedFieldSet preserves response-key order of first occurrence across
// the merged selection; this order is the authoritative key order of the
// resulting object.
type groupedFieldSet struct {
	groups []*fieldGroup
	index  map[string]int
}

func newGroupedFieldSet() *groupedFieldSet {
	return &groupedFieldSet{index: make(map[string]int)}
}

func (g *groupedFieldSet) add(responseName string, field *language.Field) {
	if idx, exists := g.index[responseName]; exists {
		g.groups[idx].fields = append(g.groups[idx].fields, field)
		return
	}
	g.index[responseName] = len(g.groups)
	g.groups = append(g.groups, &fieldGroup{responseName: responseName, fields: []*language.Field{field}})
}

// deferredGroup is the field bundle of one live @defer fragment, collected
// separately from the immediate group. Nested @defer fragments at the same
// selection level become nested deferred groups.
type deferredGroup struct {
	label     string
	collected *collectedFields
}

// collectedFields is the output of field collection for one selection set:
// the immediate groups plus any deferred bundles discovered at this level.
type collectedFields struct {
	set      *groupedFieldSet
	deferred []*deferredGroup
}

// collectFields groups a selection set by response key, applying
// @skip/@include against coerced variables, inlining fragments whose type
// condition is satisfied by objectType, and splitting off live @defer
// fragments when incremental delivery is enabled.
func (ec *execContext) collectFields(objectType *schema.Type, selectionSet language.SelectionSet) *collectedFields {
	out := &collectedFields{set: newGroupedFieldSet()}
	ec.collectFieldsImpl(objectType, selectionSet, out, make(map[string]bool))
	return out
}

func (ec *execContext) collectFieldsImpl(
	objectType *schema.Type,
	selectionSet language.SelectionSet,
	out *collectedFields,
	visitedFragments map[string]bool,
) {
	for _, selection := range selectionSet {
		switch sel := selection.(type) {
		case *language.Field:
			if !ec.shouldIncludeNode(sel.Directives) {
				continue
			}
			responseName := sel.Alias
			if responseName == "" {
				responseName = sel.Name
			}
			out.set.add(responseName, sel)

		case *language.InlineFragment:
			if !ec.shouldIncludeNode(sel.Directives) {
				continue
			}
			if !ec.typeConditionApplies(sel.TypeCondition, objectType) {
				continue
			}
			if label, deferred := ec.deferInfo(sel.Directives); deferred {
				out.deferred = append(out.deferred, ec.collectDeferred(label, objectType, sel.SelectionSet))
				continue
			}
			ec.collectFieldsImpl(objectType, sel.SelectionSet, out, visitedFragments)

		case *language.FragmentSpread:
			if !ec.shouldIncludeNode(sel.Directives) {
				continue
			}
			if visitedFragments[sel.Name] {
				continue
			}
			fragmentDef := ec.document.Fragments.ForName(sel.Name)
			if fragmentDef == nil {
				continue
			}
			if !ec.typeConditionApplies(fragmentDef.TypeCondition, objectType) {
				continue
			}
			if !ec.shouldIncludeNode(fragmentDef.Directives) {
				continue
			}
			if label, deferred := ec.deferInfo(sel.Directives); deferred {
				out.deferred = append(out.deferred, ec.collectDeferred(label, objectType, fragmentDef.SelectionSet))
				continue
			}
			visitedFragments[sel.Name] = true
			ec.collectFieldsImpl(objectType, fragmentDef.SelectionSet, out, visitedFragments)
		}
	}
}

// collectDeferred collects one @defer fragment's selection into its own
// bundle. Fragment visiting restarts inside the bundle: the deferred subtree
// is an independent unit of work.
func (ec *execContext) collectDeferred(label string, objectType *schema.Type, selectionSet language.SelectionSet) *deferredGroup {
	collected := &collectedFields{set: newGroupedFieldSet()}
	ec.collectFieldsImpl(objectType, selectionSet, collected, make(map[string]bool))
	return &deferredGroup{label: label, collected: collected}
}

// typeConditionApplies reports whether a fragment's type condition is
// satisfied by the concrete type being visited.
func (ec *execContext) typeConditionApplies(condition string, objectType *schema.Type) bool {
	if condition == "" || condition == objectType.Name {
		return true
	}
	return ec.schema.IsSubType(condition, objectType.Name)
}

// shouldIncludeNode evaluates @skip/@include against coerced variables.
func (ec *execContext) shouldIncludeNode(directives language.DirectiveList) bool {
	if skip := directives.ForName("skip"); skip != nil {
		if v, ok := ec.directiveArgument(skip, "if").(bool); ok && v {
			return false
		}
	}
	if include := directives.ForName("include"); include != nil {
		if v, ok := ec.directiveArgument(include, "if").(bool); ok && !v {
			return false
		}
	}
	return true
}

// deferInfo reports whether a fragment carries a live @defer directive.
// Defer is ignored entirely when incremental delivery is not enabled for
// this request; the directive is a delivery hint, not a semantic change.
func (ec *execContext) deferInfo(directives language.DirectiveList) (label string, deferred bool) {
	if ec.pub == nil {
		return "", false
	}
	d := directives.ForName("defer")
	if d == nil {
		return "", false
	}
	if v, ok := ec.directiveArgument(d, "if").(bool); ok && !v {
		return "", false
	}
	label, _ = ec.directiveArgument(d, "label").(string)
	return label, true
}

// streamInfo reports whether a field carries a live @stream directive and
// its initial item count.
func (ec *execContext) streamInfo(field *language.Field) (label string, initialCount int, streamed bool) {
	if ec.pub == nil {
		return "", 0, false
	}
	d := field.Directives.ForName("stream")
	if d == nil {
		return "", 0, false
	}
	if v, ok := ec.directiveArgument(d, "if").(bool); ok && !v {
		return "", 0, false
	}
	label, _ = ec.directiveArgument(d, "label").(string)
	if n, ok := ec.directiveArgument(d, "initialCount").(int); ok && n > 0 {
		initialCount = n
	}
	return label, initialCount, true
}

func (ec *execContext) directiveArgument(directive *language.Directive, argName string) any {
	for _, arg := range directive.Arguments {
		if arg.Name == argName {
			return valueFromASTWithVars(arg.Value, ec.variableValues)
		}
	}
	return nil
}
