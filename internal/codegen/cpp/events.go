package cpp

import (
	"fmt"
	"strings"

	"github.com/openmpp/ompc/internal/symtab"
)

// eventMemory reports whether evt's implement function takes an int
// payload, which selects MemoryEvent<...> over Event<...> (spec.md §4.6).
// EntityEventSymbol records no payload, so this always reports false and
// every event, including the synthesized self-scheduling one, is emitted
// as Event<...>.
func eventMemory(evt *symtab.EntityEventSymbol) bool {
	return false
}

// emitEvents writes one Event<...>/MemoryEvent<...> instance per resolved
// event, and (when EventTrace is on) a wrapper pair of time/implement
// functions around the developer-supplied ones.
func (e *Emitter) emitEvents(out *strings.Builder, ent *symtab.EntitySymbol) {
	for i, evt := range ent.PPEvents {
		eventID := i
		modgenEventNum := i

		template := "Event<"
		if eventMemory(evt) {
			template = "MemoryEvent<"
		}
		fmt.Fprintf(out, "    %s%s, %d, %d, %d, &%s, &%s> %s;\n",
			template, ent.Name, eventID, evt.Priority, modgenEventNum,
			implementFuncName(ent, evt), timeFuncName(ent, evt), evt.Name)

		if e.opts.EventTrace {
			e.emitEventTraceWrappers(out, ent, evt, eventID)
		}
	}
}

func timeFuncName(ent *symtab.EntitySymbol, evt *symtab.EntityEventSymbol) string {
	if evt.TimeFunc != "" {
		return evt.TimeFunc
	}
	return "om_" + evt.Name + "_time"
}

func implementFuncName(ent *symtab.EntitySymbol, evt *symtab.EntityEventSymbol) string {
	if evt.ImplementFunc != "" {
		return evt.ImplementFunc
	}
	return "om_" + evt.Name + "_implement"
}

// emitEventTraceWrappers writes the cover functions the original compiler
// calls "om_cover_<fn>": forward to the developer's time/implement
// function, emitting a structured trace message (entity kind, entity id,
// age, case seed, event name, event id, time fields, message tag) around
// the call.
func (e *Emitter) emitEventTraceWrappers(out *strings.Builder, ent *symtab.EntitySymbol, evt *symtab.EntityEventSymbol, eventID int) {
	implFn := implementFuncName(ent, evt)
	timeFn := timeFuncName(ent, evt)

	fmt.Fprintf(out, "    Time om_cover_%s()\n    {\n", timeFn)
	fmt.Fprintf(out, "        Time t = %s();\n", timeFn)
	out.WriteString("        if (event_trace_on) {\n")
	fmt.Fprintf(out, "            event_trace_msg(\"%s\", (int)entity_id, (double)age, GetCaseSeed(), \"%s\", %d, (double)t, BaseEntity::et_msg_type::eQueueEvent);\n",
		ent.Name, evt.Name, eventID)
	out.WriteString("        }\n")
	out.WriteString("        return t;\n    }\n\n")

	fmt.Fprintf(out, "    void om_cover_%s()\n    {\n", implFn)
	out.WriteString("        if (event_trace_on) {\n")
	fmt.Fprintf(out, "            event_trace_msg(\"%s\", (int)entity_id, (double)age, GetCaseSeed(), \"%s\", %d, BaseEntity::et_msg_type::eImplementEvent);\n",
		ent.Name, evt.Name, eventID)
	out.WriteString("        }\n")
	fmt.Fprintf(out, "        %s();\n", implFn)
	out.WriteString("    }\n\n")
}
