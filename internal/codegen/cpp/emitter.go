package cpp

import (
	"fmt"
	"strings"

	"github.com/openmpp/ompc/internal/symtab"
)

// Options controls emission choices that vary per model build rather than
// per entity.
type Options struct {
	// EventTrace enables the wrapper time/implement functions that emit
	// structured trace messages before forwarding to the model's own
	// functions (spec.md §4.6: "If event_trace option is on").
	EventTrace bool
}

// Emitter renders resolved entities from one symbol table into C++ class
// bodies.
type Emitter struct {
	table *symtab.Table
	opts  Options
}

// New returns an Emitter over tbl (after RunPasses and wiring.Wire have
// both completed) using opts.
func New(tbl *symtab.Table, opts Options) *Emitter {
	return &Emitter{table: tbl, opts: opts}
}

// EmitEntityClass renders the full generated class body for one entity:
// grouped data members, lifecycle functions, event instances, and the
// check_time guard.
func (e *Emitter) EmitEntityClass(ent *symtab.EntitySymbol) (string, error) {
	if ent.PPAttributes == nil {
		return "", fmt.Errorf("cpp: entity %q has not completed om_assign_members (PPAttributes is nil)", ent.Name)
	}

	var out strings.Builder
	fmt.Fprintf(&out, "// Generated entity class: %s\n", ent.Name)
	fmt.Fprintf(&out, "class %s : public Entity<%s>\n{\npublic:\n", ent.Name, ent.Name)

	e.emitDataMembers(&out, ent)
	out.WriteString("\n")
	e.emitLifecycleFunctions(&out, ent)
	out.WriteString("\n")
	e.emitSideEffects(&out, ent)
	e.emitNotify(&out, ent)
	e.emitEvents(&out, ent)
	out.WriteString("\n")
	e.emitCheckTime(&out, ent)

	out.WriteString("};\n")
	return out.String(), nil
}

// emitDataMembers writes one declaration per attribute, grouped by
// LayoutGroup with a section comment naming the group, in the fixed group
// order id/time/age/model-declared/generated/internal so that members a
// debugger is most likely to need sit first.
func (e *Emitter) emitDataMembers(out *strings.Builder, ent *symtab.EntitySymbol) {
	groups := groupMembers(ent.PPAttributes)
	order := []LayoutGroup{LayoutID, LayoutTime, LayoutAge, LayoutModelDeclared, LayoutGenerated, LayoutInternal}
	for _, g := range order {
		members := groups[g]
		fmt.Fprintf(out, "    // %s\n", g)
		if len(members) == 0 {
			continue
		}
		for _, a := range members {
			e.emitInjectionSite(out, a.Name, a.Pos)
			fmt.Fprintf(out, "    %s %s;\n", cppType(a.Type), a.Name)
		}
	}
}

// emitInjectionSite writes the "// injection_description" comment and,
// when pos carries a known source location, the #line directive that
// makes compiler diagnostics on the generated fragment point back to the
// model source that produced it (spec.md §4.6).
func (e *Emitter) emitInjectionSite(out *strings.Builder, symbolName string, pos symtab.Pos) {
	fmt.Fprintf(out, "    // injection_description: %s\n", symbolName)
	if pos.File != "" && pos.Line > 0 {
		fmt.Fprintf(out, "    #line %d \"%s\"\n", pos.Line, pos.File)
	}
}

// cppType renders the C++ member type for a resolved attribute type,
// preferring the symbol's own declared name (it already holds the
// original "double"/"Time"/classification-name text) and falling back to
// a category default only for a still-unresolved Unknown.
func cppType(t *symtab.TypeSymbol) string {
	if t == nil {
		return "double"
	}
	if t.Name != "" {
		return t.Name
	}
	switch t.Category {
	case symtab.TypeBool:
		return "bool"
	case symtab.TypeString:
		return "string"
	case symtab.TypeTime:
		return "Time"
	default:
		return "double"
	}
}
