// Package wiring is the semantic middle-end: it walks identifier/pointer
// uses snapshotted from parsing and turns them into dependency edges —
// which attributes' side-effect functions must run when another attribute
// changes, which events get re-scheduled, and which table increments
// collapse into a shared observation-collection slot.
package wiring

import (
	"math"
	"sort"

	"github.com/openmpp/ompc/internal/cppstmt"
	"github.com/openmpp/ompc/internal/parsectx"
	"github.com/openmpp/ompc/internal/symtab"
)

// EventPrioritySelfScheduling is the fixed priority assigned to every
// synthesized self-scheduling event: one below the maximum representable
// int32, so every user-defined priority (required non-negative) sorts
// before it at equal simulated time.
const EventPrioritySelfScheduling int32 = math.MaxInt32 - 1

// Wire runs the full middle-end over every symbol in tbl, using uses
// (typically parsectx.Context.IdentifierUses / PointerUses, snapshotted at
// the point parsing finished) to resolve which attribute reads live inside
// which function body.
func Wire(tbl *symtab.Table, identifierUses map[string][]parsectx.IdentifierUse, pointerUses map[string][]parsectx.PointerAccess) {
	wireSideEffects(tbl, identifierUses)
	wireReciprocalLinks(tbl, pointerUses)
	wireTableIncrements(tbl)
	synthesizeSelfSchedulingEvents(tbl)
	assignObsCollectionIndices(tbl)
}

// wireSideEffects registers, for every other attribute of the same entity,
// that every Derived/Identity attribute whose formula mentions its name
// depends on it,
// then wires the central middle-end job: event dirty-propagation. For every
// identifier an event's time function reads that names an attribute of the
// event's entity, that attribute's side-effects function gets an
// om_active-guarded make_dirty() call on the event, so assigning the
// attribute re-schedules the event.
func wireSideEffects(tbl *symtab.Table, identifierUses map[string][]parsectx.IdentifierUse) {
	wireDerivedAttributeDependencies(tbl)
	wireEventDirtyPropagation(tbl, identifierUses)
}

func wireDerivedAttributeDependencies(tbl *symtab.Table) {
	for _, sym := range tbl.Symbols() {
		if sym.Kind != symtab.KindAttribute || sym.Attribute == nil {
			continue
		}
		derived := sym.Attribute
		if derived.Kind != symtab.AttrDerived && derived.Kind != symtab.AttrIdentity {
			continue
		}
		entityRef := derived.Entity
		entitySym := entityRef.Resolve()
		if entitySym == nil || entitySym.Entity == nil {
			continue
		}
		for _, memberRef := range entitySym.Entity.Attributes {
			member := memberRef.Resolve()
			if member == nil || member.Attribute == nil || member.Attribute == derived {
				continue
			}
			if mentionsIdentifier(derived.Formula, member.Attribute.Name) {
				member.Attribute.AddDependent(tbl.Ref(entitySym.Name + "::" + derived.Name))
				derived.SideEffectsFn = derived.SideEffectsFn.Append(cppstmt.Stmt{
					Kind: cppstmt.Comment,
					Expr: "recompute triggered by " + member.Attribute.Name,
				})
			}
		}
	}
}

// wireEventDirtyPropagation walks every event's recorded time-function
// identifier uses and, for each one naming an attribute of the event's own
// entity, injects the dirty-propagation pair into that attribute's
// side-effects function: the marker comment the original compiler emits,
// followed by the guarded make_dirty() call that re-queues the event.
func wireEventDirtyPropagation(tbl *symtab.Table, identifierUses map[string][]parsectx.IdentifierUse) {
	for _, sym := range tbl.Symbols() {
		if sym.Kind != symtab.KindEntity || sym.Entity == nil {
			continue
		}
		ent := sym.Entity
		for _, evtRef := range ent.Events {
			evtSym := evtRef.Resolve()
			if evtSym == nil || evtSym.Event == nil || evtSym.Event.TimeFunc == "" {
				continue
			}
			evt := evtSym.Event
			key := ent.Name + "::" + evt.TimeFunc

			seen := make(map[string]bool)
			for _, use := range identifierUses[key] {
				if seen[use.Name] {
					continue
				}
				memberSym := tbl.Lookup(ent.Name + "::" + use.Name)
				if memberSym == nil || memberSym.Attribute == nil {
					continue
				}
				seen[use.Name] = true

				memberSym.Attribute.SideEffectsFn = memberSym.Attribute.SideEffectsFn.Append(
					cppstmt.Stmt{Kind: cppstmt.Comment, Expr: "Recalculate time to event " + evt.Name},
					cppstmt.Stmt{Kind: cppstmt.Raw, Expr: "if (om_active) " + evt.Name + ".make_dirty();"},
				)
				evt.AddChangingAttribute(tbl.Ref(ent.Name + "::" + use.Name))
			}
		}
	}
}

// wireTableIncrements wires the table-increment half of the middle-end: a
// dimension-classifying attribute's change must re-cell the table's pending
// increment, a filter attribute's change must re-evaluate the filter, and
// the measured attribute's notify function must finish the pending
// increment once the entity's other side effects have all run.
func wireTableIncrements(tbl *symtab.Table) {
	for _, sym := range tbl.Symbols() {
		if sym.Kind != symtab.KindTable || sym.Table == nil {
			continue
		}
		t := sym.Table
		if len(t.Increments) == 0 {
			continue
		}
		incrVar := "om_" + t.Name + "_increment"

		for _, dimRef := range t.Dimensions {
			dimSym := dimRef.Resolve()
			if dimSym == nil || dimSym.Dimension == nil {
				continue
			}
			attrSym := dimSym.Dimension.Attribute.Resolve()
			if attrSym == nil || attrSym.Attribute == nil {
				continue
			}
			attrSym.Attribute.SideEffectsFn = attrSym.Attribute.SideEffectsFn.Append(
				cppstmt.Stmt{Kind: cppstmt.Comment, Expr: "Recalculate cell for table " + t.Name},
				cppstmt.Stmt{Kind: cppstmt.Call, Expr: incrVar + ".set_cell(current_cell())"},
				cppstmt.Stmt{Kind: cppstmt.Call, Expr: incrVar + ".start_pending()"},
			)
		}

		if t.Filter != "" {
			if entSym := t.Entity.Resolve(); entSym != nil && entSym.Entity != nil {
				for _, memberRef := range entSym.Entity.Attributes {
					member := memberRef.Resolve()
					if member == nil || member.Attribute == nil {
						continue
					}
					if !mentionsIdentifier(t.Filter, member.Attribute.Name) {
						continue
					}
					member.Attribute.SideEffectsFn = member.Attribute.SideEffectsFn.Append(
						cppstmt.Stmt{Kind: cppstmt.Comment, Expr: "Recalculate filter for table " + t.Name},
						cppstmt.Stmt{Kind: cppstmt.Call, Expr: incrVar + ".set_filter(" + t.Filter + ")"},
						cppstmt.Stmt{Kind: cppstmt.Call, Expr: incrVar + ".start_pending()"},
					)
				}
			}
		}

		for _, inc := range t.Increments {
			measure := inc.Attribute.Resolve()
			if measure == nil || measure.Attribute == nil {
				continue
			}
			measure.Attribute.NotifyFn = measure.Attribute.NotifyFn.Append(
				cppstmt.Stmt{Kind: cppstmt.Comment, Expr: "Finish pending increment for table " + t.Name},
				cppstmt.Stmt{Kind: cppstmt.Call, Expr: incrVar + ".finish_pending()"},
			)
		}
	}
}

// mentionsIdentifier does a conservative whole-word scan of formula for
// name, good enough for the formula-is-already-tokenized-by-the-parser
// case this middle-end receives; full C++ expression parsing belongs to
// internal/codegen/cpp's emission, not dependency discovery.
func mentionsIdentifier(formula, name string) bool {
	if formula == "" || name == "" {
		return false
	}
	for i := 0; i+len(name) <= len(formula); i++ {
		if formula[i:i+len(name)] != name {
			continue
		}
		beforeOK := i == 0 || !isIdentByte(formula[i-1])
		afterOK := i+len(name) == len(formula) || !isIdentByte(formula[i+len(name)])
		if beforeOK && afterOK {
			return true
		}
	}
	return false
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// wireReciprocalLinks registers NotifyFn augmentation for AttrLink
// attributes discovered via "A->B" pointer accesses gathered during
// parsing: when A's link target changes, B (the reciprocal side) must be
// notified. Multilink attributes are not handled here.
func wireReciprocalLinks(tbl *symtab.Table, pointerUses map[string][]parsectx.PointerAccess) {
	for fn, accesses := range pointerUses {
		for _, acc := range accesses {
			linkSym := tbl.Lookup(acc.Base + "::" + acc.Field)
			if linkSym == nil || linkSym.Attribute == nil {
				continue
			}
			if linkSym.Attribute.Kind != symtab.AttrLink {
				continue
			}
			linkSym.Attribute.NotifyFn = linkSym.Attribute.NotifyFn.Append(cppstmt.Stmt{
				Kind: cppstmt.Comment,
				Expr: "reciprocal notify from " + fn,
			})
		}
	}
}

// synthesizeSelfSchedulingEvents creates one event per entity owning at
// least one self-scheduling derived attribute (an AttrDerived attribute
// whose formula mentions "self_scheduling_int" as a whole word; no other
// helper name is recognized), fixed at EventPrioritySelfScheduling.
func synthesizeSelfSchedulingEvents(tbl *symtab.Table) {
	for _, sym := range tbl.Symbols() {
		if sym.Kind != symtab.KindEntity || sym.Entity == nil {
			continue
		}
		ent := sym.Entity
		hasSelfScheduling := false
		for _, ref := range ent.Attributes {
			attrSym := ref.Resolve()
			if attrSym == nil || attrSym.Attribute == nil {
				continue
			}
			if attrSym.Attribute.Kind == symtab.AttrDerived && mentionsIdentifier(attrSym.Attribute.Formula, "self_scheduling_int") {
				hasSelfScheduling = true
				break
			}
		}
		if !hasSelfScheduling {
			continue
		}
		name := ent.Name + "::om_ss_event"
		eventSym := tbl.Morph(name, symtab.KindEvent, ent.Pos)
		eventSym.Event = &symtab.EntityEventSymbol{
			Name: "om_ss_event", Pos: ent.Pos, Entity: tbl.Ref(ent.Name),
			TimeFunc: "timeSelfScheduling", ImplementFunc: "implementSelfScheduling",
			SelfScheduling: true, Priority: EventPrioritySelfScheduling,
		}
		ent.Events = append(ent.Events, tbl.Ref(name))
	}
}

// obsKey is the (IncrementKind, Timing, Attribute) deduplication key used
// to assign ObsCollectionIndex: two increments with the same key share one
// observation-collection slot instead of each allocating their own.
type obsKey struct {
	kind      symtab.IncrementKind
	timing    symtab.IncrementTiming
	attribute string
}

// assignObsCollectionIndices deduplicates every Increment across every
// table by (IncrementKind, Timing, Attribute) and assigns each unique key
// a stable, sorted-order ObsCollectionIndex.
func assignObsCollectionIndices(tbl *symtab.Table) {
	seen := make(map[obsKey]int)
	keys := make([]obsKey, 0)

	var allIncrements []*symtab.Increment
	for _, sym := range tbl.Symbols() {
		if sym.Kind != symtab.KindTable || sym.Table == nil {
			continue
		}
		allIncrements = append(allIncrements, sym.Table.Increments...)
	}

	for _, inc := range allIncrements {
		k := obsKey{kind: inc.Kind, timing: inc.Timing, attribute: inc.Attribute.Name()}
		if _, ok := seen[k]; !ok {
			seen[k] = 0
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].kind != keys[j].kind {
			return keys[i].kind < keys[j].kind
		}
		if keys[i].timing != keys[j].timing {
			return keys[i].timing < keys[j].timing
		}
		return keys[i].attribute < keys[j].attribute
	})
	for idx, k := range keys {
		seen[k] = idx
	}

	for _, inc := range allIncrements {
		k := obsKey{kind: inc.Kind, timing: inc.Timing, attribute: inc.Attribute.Name()}
		inc.ObsCollectionIndex = seen[k]
	}
}
