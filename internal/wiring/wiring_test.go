package wiring

import (
	"testing"

	"github.com/openmpp/ompc/internal/parsectx"
	"github.com/openmpp/ompc/internal/symtab"
)

func TestWireSideEffectsLinksDerivedToDependency(t *testing.T) {
	tbl := symtab.New()

	tbl.Morph("Person::age", symtab.KindAttribute, symtab.Pos{}).Attribute = &symtab.AttributeSymbol{
		Name: "age", Entity: tbl.Ref("Person"), Kind: symtab.AttrSimple,
	}
	tbl.Morph("Person::is_adult", symtab.KindAttribute, symtab.Pos{}).Attribute = &symtab.AttributeSymbol{
		Name: "is_adult", Entity: tbl.Ref("Person"), Kind: symtab.AttrDerived, Formula: "age >= 18",
	}
	tbl.Morph("Person", symtab.KindEntity, symtab.Pos{}).Entity = &symtab.EntitySymbol{
		Name: "Person", Attributes: []symtab.Ref{tbl.Ref("Person::age"), tbl.Ref("Person::is_adult")},
	}

	Wire(tbl, nil, nil)

	ageAttr := tbl.Lookup("Person::age").Attribute
	if len(ageAttr.Dependents()) != 1 || ageAttr.Dependents()[0].Name() != "Person::is_adult" {
		t.Fatalf("expected Person::age to list Person::is_adult as dependent, got %+v", ageAttr.Dependents())
	}
}

func TestSynthesizeSelfSchedulingEventCreatedOnlyWhenNeeded(t *testing.T) {
	tbl := symtab.New()
	tbl.Morph("Person::next_event_time", symtab.KindAttribute, symtab.Pos{}).Attribute = &symtab.AttributeSymbol{
		Name: "next_event_time", Entity: tbl.Ref("Person"), Kind: symtab.AttrDerived,
		Formula: "self_scheduling_int(foo)",
	}
	tbl.Morph("Person", symtab.KindEntity, symtab.Pos{}).Entity = &symtab.EntitySymbol{
		Name: "Person", Attributes: []symtab.Ref{tbl.Ref("Person::next_event_time")},
	}
	tbl.Morph("Firm", symtab.KindEntity, symtab.Pos{}).Entity = &symtab.EntitySymbol{Name: "Firm"}

	Wire(tbl, nil, nil)

	personSym := tbl.Lookup("Person::om_ss_event")
	if personSym == nil || personSym.Event.Priority != EventPrioritySelfScheduling {
		t.Fatalf("expected Person::om_ss_event synthesized with fixed priority, got %+v", personSym)
	}
	if tbl.Lookup("Firm::om_ss_event") != nil {
		t.Fatalf("did not expect a self-scheduling event for Firm")
	}
}

func TestWireEventDirtyPropagationInjectsMakeDirty(t *testing.T) {
	tbl := symtab.New()

	tbl.Morph("Person::alive", symtab.KindAttribute, symtab.Pos{}).Attribute = &symtab.AttributeSymbol{
		Name: "alive", Entity: tbl.Ref("Person"), Kind: symtab.AttrSimple,
	}
	tbl.Morph("Person::death_event", symtab.KindEvent, symtab.Pos{}).Event = &symtab.EntityEventSymbol{
		Name: "death_event", Entity: tbl.Ref("Person"), TimeFunc: "timeDeathEvent",
	}
	tbl.Morph("Person", symtab.KindEntity, symtab.Pos{}).Entity = &symtab.EntitySymbol{
		Name:       "Person",
		Attributes: []symtab.Ref{tbl.Ref("Person::alive")},
		Events:     []symtab.Ref{tbl.Ref("Person::death_event")},
	}

	identifierUses := map[string][]parsectx.IdentifierUse{
		"Person::timeDeathEvent": {{Name: "alive"}, {Name: "alive"}},
	}

	Wire(tbl, identifierUses, nil)

	aliveAttr := tbl.Lookup("Person::alive").Attribute
	body := aliveAttr.SideEffectsFn
	if len(body) != 2 {
		t.Fatalf("expected exactly one comment+make_dirty pair (deduped), got %d statements: %+v", len(body), body)
	}
	if body[0].Render() != "// Recalculate time to event death_event" {
		t.Fatalf("unexpected marker comment: %q", body[0].Render())
	}
	if body[1].Render() != "if (om_active) death_event.make_dirty();" {
		t.Fatalf("unexpected dirty-propagation statement: %q", body[1].Render())
	}

	evt := tbl.Lookup("Person::death_event").Event
	if len(evt.ChangingAttributes()) != 1 || evt.ChangingAttributes()[0].Name() != "Person::alive" {
		t.Fatalf("expected death_event to record alive as a changing attribute, got %+v", evt.ChangingAttributes())
	}
}

func TestWireTableIncrementsWiresCellFilterAndNotify(t *testing.T) {
	tbl := symtab.New()

	tbl.Morph("Person::sex", symtab.KindAttribute, symtab.Pos{}).Attribute = &symtab.AttributeSymbol{
		Name: "sex", Entity: tbl.Ref("Person"), Kind: symtab.AttrSimple,
	}
	tbl.Morph("Person::alive", symtab.KindAttribute, symtab.Pos{}).Attribute = &symtab.AttributeSymbol{
		Name: "alive", Entity: tbl.Ref("Person"), Kind: symtab.AttrSimple,
	}
	tbl.Morph("Person::age", symtab.KindAttribute, symtab.Pos{}).Attribute = &symtab.AttributeSymbol{
		Name: "age", Entity: tbl.Ref("Person"), Kind: symtab.AttrSimple,
	}
	tbl.Morph("Person", symtab.KindEntity, symtab.Pos{}).Entity = &symtab.EntitySymbol{
		Name: "Person",
		Attributes: []symtab.Ref{
			tbl.Ref("Person::sex"), tbl.Ref("Person::alive"), tbl.Ref("Person::age"),
		},
	}
	tbl.Morph("Person::sex_dim", symtab.KindDimension, symtab.Pos{}).Dimension = &symtab.DimensionSymbol{
		Name: "sex_dim", Table: tbl.Ref("PersonTable"), Attribute: tbl.Ref("Person::sex"),
	}
	tableSym := tbl.Morph("PersonTable", symtab.KindTable, symtab.Pos{})
	tableSym.Table = &symtab.TableSymbol{
		Name: "PersonTable", Entity: tbl.Ref("Person"), Filter: "alive",
		Dimensions: []symtab.Ref{tbl.Ref("Person::sex_dim")},
		Increments: []*symtab.Increment{
			{Kind: symtab.IncrementSum, Timing: symtab.TimingEvent, Attribute: tbl.Ref("Person::age")},
		},
	}

	Wire(tbl, nil, nil)

	sexAttr := tbl.Lookup("Person::sex").Attribute
	if len(sexAttr.SideEffectsFn) != 3 {
		t.Fatalf("expected sex's side effects to set_cell and start_pending, got %+v", sexAttr.SideEffectsFn)
	}
	if sexAttr.SideEffectsFn[1].Render() != "om_PersonTable_increment.set_cell(current_cell());" {
		t.Fatalf("unexpected set_cell statement: %q", sexAttr.SideEffectsFn[1].Render())
	}
	if sexAttr.SideEffectsFn[2].Render() != "om_PersonTable_increment.start_pending();" {
		t.Fatalf("unexpected start_pending statement: %q", sexAttr.SideEffectsFn[2].Render())
	}

	aliveAttr := tbl.Lookup("Person::alive").Attribute
	if len(aliveAttr.SideEffectsFn) != 3 {
		t.Fatalf("expected alive's side effects to set_filter and start_pending, got %+v", aliveAttr.SideEffectsFn)
	}
	if aliveAttr.SideEffectsFn[1].Render() != "om_PersonTable_increment.set_filter(alive);" {
		t.Fatalf("unexpected set_filter statement: %q", aliveAttr.SideEffectsFn[1].Render())
	}

	ageAttr := tbl.Lookup("Person::age").Attribute
	if len(ageAttr.NotifyFn) != 2 {
		t.Fatalf("expected age's notify function to finish the pending increment, got %+v", ageAttr.NotifyFn)
	}
	if ageAttr.NotifyFn[1].Render() != "om_PersonTable_increment.finish_pending();" {
		t.Fatalf("unexpected finish_pending statement: %q", ageAttr.NotifyFn[1].Render())
	}
}

func TestAssignObsCollectionIndicesDedupesByCompositeKey(t *testing.T) {
	tbl := symtab.New()
	tableSym := tbl.Morph("PersonTable", symtab.KindTable, symtab.Pos{})
	tableSym.Table = &symtab.TableSymbol{Name: "PersonTable"}

	inc1 := &symtab.Increment{Kind: symtab.IncrementSum, Timing: symtab.TimingEvent, Attribute: tbl.Ref("Person::age")}
	inc2 := &symtab.Increment{Kind: symtab.IncrementSum, Timing: symtab.TimingEvent, Attribute: tbl.Ref("Person::age")}
	inc3 := &symtab.Increment{Kind: symtab.IncrementAvg, Timing: symtab.TimingEvent, Attribute: tbl.Ref("Person::age")}
	tableSym.Table.Increments = []*symtab.Increment{inc1, inc2, inc3}

	Wire(tbl, nil, nil)

	if inc1.ObsCollectionIndex != inc2.ObsCollectionIndex {
		t.Fatalf("expected identical (kind,timing,attribute) increments to share an index")
	}
	if inc1.ObsCollectionIndex == inc3.ObsCollectionIndex {
		t.Fatalf("expected a different kind to get a distinct index")
	}
}
