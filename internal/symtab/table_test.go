package symtab

import (
	"testing"

	"github.com/openmpp/ompc/internal/diag"
)

func TestRefForwardReferenceThenMorph(t *testing.T) {
	tbl := New()
	ref := tbl.Ref("Person")
	if sym := ref.Resolve(); sym == nil || sym.Kind != KindUnknown {
		t.Fatalf("expected Unknown placeholder, got %+v", sym)
	}

	morphed := tbl.Morph("Person", KindEntity, Pos{File: "m.mpp", Line: 1})
	morphed.Entity = &EntitySymbol{Name: "Person"}

	if sym := ref.Resolve(); sym == nil || sym.Kind != KindEntity {
		t.Fatalf("expected Ref to observe morphed kind, got %+v", sym)
	}
	if tbl.MorphCount() != 1 {
		t.Fatalf("expected MorphCount 1, got %d", tbl.MorphCount())
	}
}

func TestSymbolsDeterministicOrder(t *testing.T) {
	tbl := New()
	tbl.Morph("Zebra", KindEntity, Pos{})
	tbl.Morph("Apple", KindEntity, Pos{})
	tbl.Morph("Int", KindType, Pos{})

	syms := tbl.Symbols()
	if len(syms) != 3 {
		t.Fatalf("expected 3 symbols, got %d", len(syms))
	}
	// KindType (1) sorts before KindEntity (2); within KindEntity, Apple < Zebra.
	if syms[0].Name != "Int" || syms[1].Name != "Apple" || syms[2].Name != "Zebra" {
		t.Fatalf("unexpected order: %v", []string{syms[0].Name, syms[1].Name, syms[2].Name})
	}
}

func TestResolveDataTypesFixpointPropagatesParentType(t *testing.T) {
	tbl := New()

	intSym := tbl.Morph("int", KindType, Pos{})
	intSym.Type = &TypeSymbol{Name: "int", Category: TypeNumeric}

	parentSym := tbl.Morph("Person::age", KindAttribute, Pos{})
	parentSym.Attribute = &AttributeSymbol{Name: "age", Type: &TypeSymbol{Category: TypeNumeric}}

	childType := &TypeSymbol{Category: TypeUnknown, TargetEntity: tbl.Ref("Person::age")}
	childSym := tbl.Morph("Person::derived_age", KindAttribute, Pos{})
	childSym.Attribute = &AttributeSymbol{Name: "derived_age", Type: childType}

	var diags diag.Diagnostics
	tbl.RunPasses([]Pass{PassResolveDataTypes}, &diags)

	if childType.Category != TypeNumeric {
		t.Fatalf("expected child type resolved to Numeric, got %v", childType.Category)
	}
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %+v", diags.Items())
	}
}

func TestFixpointQuiescesImmediatelyWhenNothingUnresolved(t *testing.T) {
	tbl := New()
	tbl.MaxFixpointIterations = 1
	tbl.Morph("Person::age", KindAttribute, Pos{}).Attribute = &AttributeSymbol{
		Name: "age", Type: &TypeSymbol{Category: TypeNumeric},
	}

	var diags diag.Diagnostics
	tbl.RunPasses([]Pass{PassResolveDataTypes}, &diags)
	if diags.HasFatal() {
		t.Fatalf("expected no fatal when nothing mutates (quiescent on first pass)")
	}
}

func TestFixpointUnresolvableCycleQuiescesWithoutFatal(t *testing.T) {
	tbl := New()
	tbl.MaxFixpointIterations = 2

	// Two attributes whose types each target the other: both stay Unknown
	// forever, so Resolve never succeeds and mutated never turns true.
	tbl.Morph("A", KindAttribute, Pos{}).Attribute = &AttributeSymbol{
		Name: "a", Type: &TypeSymbol{Category: TypeUnknown, TargetEntity: tbl.Ref("B")},
	}
	tbl.Morph("B", KindAttribute, Pos{}).Attribute = &AttributeSymbol{
		Name: "b", Type: &TypeSymbol{Category: TypeUnknown, TargetEntity: tbl.Ref("A")},
	}

	var diags diag.Diagnostics
	tbl.RunPasses([]Pass{PassResolveDataTypes}, &diags)
	// Neither side ever resolves, so PostParse reports mutated=false every
	// iteration and the pass quiesces on iteration 1 without hitting the cap.
	if diags.HasFatal() {
		t.Fatalf("expected a stuck-but-non-mutating cycle to quiesce without a fatal, got %+v", diags.Items())
	}
}

func TestEntityPostParseSnapshotsMembers(t *testing.T) {
	tbl := New()

	attrSym := tbl.Morph("Person::age", KindAttribute, Pos{})
	attrSym.Attribute = &AttributeSymbol{Name: "age"}

	entSym := tbl.Morph("Person", KindEntity, Pos{})
	entSym.Entity = &EntitySymbol{Name: "Person", Attributes: []Ref{tbl.Ref("Person::age")}}

	var diags diag.Diagnostics
	tbl.RunPasses([]Pass{PassAssignMembers}, &diags)

	if len(entSym.Entity.PPAttributes) != 1 || entSym.Entity.PPAttributes[0].Name != "age" {
		t.Fatalf("expected PPAttributes snapshot, got %+v", entSym.Entity.PPAttributes)
	}
}
