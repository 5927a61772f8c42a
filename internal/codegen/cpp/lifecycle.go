package cpp

import (
	"fmt"
	"strings"

	"github.com/openmpp/ompc/internal/cppstmt"
	"github.com/openmpp/ompc/internal/symtab"
)

// emitLifecycleFunctions writes the fixed set of entity lifecycle
// functions named in spec.md §4.6, each generated by walking one of the
// entity's resolved collections rather than hand-written per model.
func (e *Emitter) emitLifecycleFunctions(out *strings.Builder, ent *symtab.EntitySymbol) {
	funcs := []struct {
		name string
		doc  string
		body cppstmt.Block
	}{
		{"om_initialize_data_members", "Initialization of data members before the entity enters simulation.", e.bodyInitializeDataMembers(ent)},
		{"om_initialize_time_and_age", "Initialize the time and age of the entity.", e.bodyInitializeTimeAndAge()},
		{"om_check_starting_time", "Check that the starting value of time is valid.", e.bodyCheckStartingTime(ent)},
		{"om_initialize_events", "Force event time calculation for each event when the entity enters simulation.", e.bodyInitializeEvents(ent)},
		{"om_finalize_events", "Remove each event from the event queue when the entity leaves simulation.", e.bodyFinalizeEvents(ent)},
		{"om_initialize_entity_sets", "Insert the entity into each entity set it belongs to.", e.bodyInitializeEntitySets(ent)},
		{"om_finalize_entity_sets", "Remove the entity from each entity set it belongs to.", e.bodyFinalizeEntitySets(ent)},
		{"om_initialize_tables", "Initialize the entity's increment in each table when it enters simulation.", e.bodyInitializeTables(ent)},
		{"om_finalize_tables", "Finish the entity's pending increments in each table when it leaves simulation.", e.bodyFinalizeTables(ent)},
		{"om_finalize_links", "Set all links in the entity to nullptr when it leaves simulation.", e.bodyFinalizeLinks(ent)},
		{"om_finalize_multilinks", "Empty all multilinks in the entity when it leaves simulation.", e.bodyFinalizeMultilinks(ent)},
		{"om_start_trace", "Perform trace operations at the start of the entity's lifecycle.", e.bodyStartTrace(ent)},
	}

	for _, f := range funcs {
		fmt.Fprintf(out, "    // %s\n", f.doc)
		fmt.Fprintf(out, "    void %s()\n    {\n", f.name)
		for _, stmt := range f.body {
			fmt.Fprintf(out, "        %s\n", stmt.Render())
		}
		out.WriteString("    }\n\n")
	}
}

func (e *Emitter) bodyInitializeDataMembers(ent *symtab.EntitySymbol) cppstmt.Block {
	var b cppstmt.Block
	for _, a := range ent.PPAttributes {
		if a.Kind != symtab.AttrSimple || a.Formula == "" {
			continue
		}
		b = b.Append(cppstmt.Stmt{Kind: cppstmt.Assign, Target: a.Name, Expr: a.Formula})
	}
	return b
}

func (e *Emitter) bodyInitializeTimeAndAge() cppstmt.Block {
	return cppstmt.Block{
		{Kind: cppstmt.Assign, Target: "time", Expr: "0"},
		{Kind: cppstmt.Assign, Target: "age", Expr: "0"},
	}
}

// bodyCheckStartingTime mirrors the original compiler's check_starting_time
// body: raise a structured simulation exception when starting time isn't
// finite.
func (e *Emitter) bodyCheckStartingTime(ent *symtab.EntitySymbol) cppstmt.Block {
	return cppstmt.Block{
		{Kind: cppstmt.Raw, Expr: "if (!std::isfinite((double)time)) {"},
		{Kind: cppstmt.Raw, Expr: `    throw openm::SimulationException(LT("error : invalid starting time in new ") + "` + ent.Name + `");`},
		{Kind: cppstmt.Raw, Expr: "}"},
	}
}

func (e *Emitter) bodyInitializeEvents(ent *symtab.EntitySymbol) cppstmt.Block {
	var b cppstmt.Block
	for _, evt := range ent.PPEvents {
		b = b.Append(cppstmt.Stmt{Kind: cppstmt.Call, Expr: evt.Name + ".make_dirty()"})
	}
	return b
}

func (e *Emitter) bodyFinalizeEvents(ent *symtab.EntitySymbol) cppstmt.Block {
	var b cppstmt.Block
	for _, evt := range ent.PPEvents {
		b = b.Append(cppstmt.Stmt{Kind: cppstmt.Call, Expr: evt.Name + ".make_zombie()"})
	}
	return b
}

func (e *Emitter) bodyInitializeEntitySets(ent *symtab.EntitySymbol) cppstmt.Block {
	var b cppstmt.Block
	for _, ref := range ent.Sets {
		set := ref.Resolve()
		if set == nil || set.EntitySet == nil {
			continue
		}
		b = b.Append(cppstmt.Stmt{Kind: cppstmt.Comment, Expr: set.EntitySet.Name})
		guarded := set.EntitySet.Filter != ""
		if guarded {
			b = b.Append(cppstmt.Stmt{Kind: cppstmt.Raw, Expr: "if (" + set.EntitySet.Filter + ") {"})
		}
		b = b.Append(cppstmt.Stmt{Kind: cppstmt.Call, Expr: "om_insert_" + set.EntitySet.Name + "()"})
		if guarded {
			b = b.Append(cppstmt.Stmt{Kind: cppstmt.Raw, Expr: "}"})
		}
	}
	return b
}

func (e *Emitter) bodyFinalizeEntitySets(ent *symtab.EntitySymbol) cppstmt.Block {
	var b cppstmt.Block
	for _, ref := range ent.Sets {
		set := ref.Resolve()
		if set == nil || set.EntitySet == nil {
			continue
		}
		b = b.Append(cppstmt.Stmt{Kind: cppstmt.Comment, Expr: set.EntitySet.Name})
		guarded := set.EntitySet.Filter != ""
		if guarded {
			b = b.Append(cppstmt.Stmt{Kind: cppstmt.Raw, Expr: "if (" + set.EntitySet.Filter + ") {"})
		}
		b = b.Append(cppstmt.Stmt{Kind: cppstmt.Call, Expr: "om_erase_" + set.EntitySet.Name + "()"})
		if guarded {
			b = b.Append(cppstmt.Stmt{Kind: cppstmt.Raw, Expr: "}"})
		}
	}
	return b
}

func (e *Emitter) bodyInitializeTables(ent *symtab.EntitySymbol) cppstmt.Block {
	var b cppstmt.Block
	for _, ref := range ent.Tables {
		t := ref.Resolve()
		if t == nil || t.Table == nil {
			continue
		}
		b = b.Append(cppstmt.Stmt{Kind: cppstmt.Comment, Expr: t.Table.Name})
		b = b.Append(cppstmt.Stmt{Kind: cppstmt.Raw, Expr: "{"})
		if t.Table.Filter != "" {
			b = b.Append(cppstmt.Stmt{Kind: cppstmt.Raw, Expr: "auto & filter = " + t.Table.Filter + ";"})
		} else {
			b = b.Append(cppstmt.Stmt{Kind: cppstmt.Raw, Expr: "const bool filter = true; // table has no filter"})
		}
		b = b.Append(cppstmt.Stmt{Kind: cppstmt.Raw, Expr: "auto & incr = om_" + t.Table.Name + "_increment;"})
		b = b.Append(cppstmt.Stmt{Kind: cppstmt.Call, Expr: "incr.set_filter(filter)"})
		b = b.Append(cppstmt.Stmt{Kind: cppstmt.Call, Expr: "incr.initialize_increment()"})
		b = b.Append(cppstmt.Stmt{Kind: cppstmt.Raw, Expr: "}"})
	}
	return b
}

func (e *Emitter) bodyFinalizeTables(ent *symtab.EntitySymbol) cppstmt.Block {
	var b cppstmt.Block
	for _, ref := range ent.Tables {
		t := ref.Resolve()
		if t == nil || t.Table == nil {
			continue
		}
		b = b.Append(cppstmt.Stmt{Kind: cppstmt.Comment, Expr: t.Table.Name})
		b = b.Append(cppstmt.Stmt{Kind: cppstmt.Raw, Expr: "{"})
		b = b.Append(cppstmt.Stmt{Kind: cppstmt.Raw, Expr: "auto & incr = om_" + t.Table.Name + "_increment;"})
		b = b.Append(cppstmt.Stmt{Kind: cppstmt.Call, Expr: "incr.finalize_increment()"})
		b = b.Append(cppstmt.Stmt{Kind: cppstmt.Raw, Expr: "}"})
	}
	return b
}

func (e *Emitter) bodyFinalizeLinks(ent *symtab.EntitySymbol) cppstmt.Block {
	var b cppstmt.Block
	for _, a := range ent.PPAttributes {
		if a.Kind != symtab.AttrLink {
			continue
		}
		b = b.Append(cppstmt.Stmt{Kind: cppstmt.Assign, Target: a.Name, Expr: "nullptr"})
	}
	return b
}

func (e *Emitter) bodyFinalizeMultilinks(ent *symtab.EntitySymbol) cppstmt.Block {
	var b cppstmt.Block
	for _, a := range ent.PPAttributes {
		if a.Kind != symtab.AttrMultilinkAggregate {
			continue
		}
		b = b.Append(cppstmt.Stmt{Kind: cppstmt.Call, Expr: a.Name + ".clear()"})
	}
	return b
}

func (e *Emitter) bodyStartTrace(ent *symtab.EntitySymbol) cppstmt.Block {
	if !e.opts.EventTrace {
		return nil
	}
	return cppstmt.Block{
		{Kind: cppstmt.Raw, Expr: "if (event_trace_on) {"},
		{Kind: cppstmt.Call, Expr: `event_trace_msg("` + ent.Name + `", (int)entity_id, (double)age, GetCaseSeed())`},
		{Kind: cppstmt.Raw, Expr: "}"},
	}
}
