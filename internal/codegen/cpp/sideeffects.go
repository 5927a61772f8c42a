package cpp

import (
	"fmt"
	"strings"

	"github.com/openmpp/ompc/internal/symtab"
)

// emitSideEffects writes one om_side_effects_<attr> member function per
// attribute that internal/wiring populated a SideEffectsFn for; the
// notify_<attr> functions are written separately by emitNotify.
// An attribute with an empty SideEffectsFn/NotifyFn gets no function at
// all: most attributes in a model are never the target of a dependency, an
// event's time function, or a table increment, and emitting an empty body
// for every one of them would bury the generated class in boilerplate the
// original compiler doesn't produce either.
func (e *Emitter) emitSideEffects(out *strings.Builder, ent *symtab.EntitySymbol) {
	for _, a := range ent.PPAttributes {
		if len(a.SideEffectsFn) == 0 {
			continue
		}
		fmt.Fprintf(out, "    // Assignment side effects for %s\n", a.Name)
		fmt.Fprintf(out, "    void om_side_effects_%s(%s om_old, %s om_new)\n    {\n", a.Name, cppType(a.Type), cppType(a.Type))
		for _, stmt := range a.SideEffectsFn {
			fmt.Fprintf(out, "        %s\n", stmt.Render())
		}
		out.WriteString("    }\n\n")
	}
}

// emitNotify writes one notify_<attr> member function per attribute that
// internal/wiring populated a NotifyFn for: the call the entity's assignment
// member makes after the attribute's new value has already been stored and
// every om_side_effects_ function for it has already run.
func (e *Emitter) emitNotify(out *strings.Builder, ent *symtab.EntitySymbol) {
	for _, a := range ent.PPAttributes {
		if len(a.NotifyFn) == 0 {
			continue
		}
		fmt.Fprintf(out, "    // Assignment notification for %s\n", a.Name)
		fmt.Fprintf(out, "    void notify_%s()\n    {\n", a.Name)
		for _, stmt := range a.NotifyFn {
			fmt.Fprintf(out, "        %s\n", stmt.Render())
		}
		out.WriteString("    }\n\n")
	}
}
