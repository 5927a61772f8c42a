package symtab

import "github.com/openmpp/ompc/internal/cppstmt"

// EntitySymbol is the populated variant for KindEntity: an openM++ actor
// (Person, Firm, ...) with a flat list of member attributes, events, and
// the entity sets/tables that enumerate it.
type EntitySymbol struct {
	Name       string
	Pos        Pos
	Attributes []Ref // member AttributeSymbol refs, in declaration order
	Events     []Ref
	Sets       []Ref // EntitySetSymbol refs this entity populates
	Tables     []Ref // TableSymbol refs keyed to this entity

	// PPAttributes is the pass-4 (eAssignMembers) snapshot: resolved
	// pointers rather than handles, safe to use from pass 5 onward.
	PPAttributes []*AttributeSymbol
	PPEvents     []*EntityEventSymbol
}

// PostParse snapshots member handles into PP fields during PassAssignMembers.
func (e *EntitySymbol) PostParse(pass Pass, t *Table) (bool, error) {
	if pass != PassAssignMembers || e.PPAttributes != nil {
		return false, nil
	}
	for _, ref := range e.Attributes {
		if sym := ref.Resolve(); sym != nil && sym.Attribute != nil {
			e.PPAttributes = append(e.PPAttributes, sym.Attribute)
		}
	}
	for _, ref := range e.Events {
		if sym := ref.Resolve(); sym != nil && sym.Event != nil {
			e.PPEvents = append(e.PPEvents, sym.Event)
		}
	}
	return true, nil
}

// AttributeKind distinguishes the attribute variants spec.md §3 enumerates.
type AttributeKind int

const (
	AttrBuiltin AttributeKind = iota
	AttrSimple
	AttrIdentity
	AttrDerived
	AttrLink
	AttrMultilinkAggregate
)

// AttributeSymbol is the populated variant for KindAttribute.
type AttributeSymbol struct {
	Name   string
	Pos    Pos
	Entity Ref
	Kind   AttributeKind
	Type   *TypeSymbol

	// Derived/Identity formula source, present only for those kinds.
	Formula string

	// Label/Note are language-indexed per the //LABEL and /*NOTE*/
	// side-channels (language code -> text).
	Label map[int]string
	Note  map[int]string

	// SideEffectsFn and NotifyFn are appended to by internal/wiring as
	// dependent attributes/tables are discovered, then rendered verbatim by
	// internal/codegen/cpp.
	SideEffectsFn cppstmt.Block
	NotifyFn      cppstmt.Block

	// dependents are the attributes whose side-effect function must run
	// when this attribute changes; populated during PassPopulateDependencies.
	dependents []Ref
}

// AddDependent registers that dep's side-effect function depends on this
// attribute's value, avoiding duplicate entries.
func (a *AttributeSymbol) AddDependent(dep Ref) {
	for _, existing := range a.dependents {
		if existing.Name() == dep.Name() {
			return
		}
	}
	a.dependents = append(a.dependents, dep)
}

// Dependents returns the attributes registered via AddDependent.
func (a *AttributeSymbol) Dependents() []Ref { return a.dependents }

// PostParse resolves this attribute's Unknown type against its own formula
// target during pass 5, and is otherwise a no-op (dependency wiring proper
// happens in internal/wiring, which operates on the resolved table).
func (a *AttributeSymbol) PostParse(pass Pass, t *Table) (bool, error) {
	if pass != PassResolveDataTypes || a.Type == nil {
		return false, nil
	}
	return a.Type.PostParse(pass, t)
}

// EntityEventSymbol is the populated variant for KindEvent: a time(..) /
// implement(..) pair plus the synthesized self-scheduling priority when
// applicable (spec.md §8 decision: EventPrioritySelfScheduling).
type EntityEventSymbol struct {
	Name            string
	Pos             Pos
	Entity          Ref
	TimeFunc        string
	ImplementFunc   string
	SelfScheduling  bool
	Priority        int32
	TraceEnabled    bool
	changingAttrs   []Ref // attributes this event's time function reads
}

func (e *EntityEventSymbol) PostParse(pass Pass, t *Table) (bool, error) { return false, nil }

// AddChangingAttribute registers an attribute whose change should
// re-evaluate this event's scheduled time, avoiding duplicate entries.
func (e *EntityEventSymbol) AddChangingAttribute(attr Ref) {
	for _, existing := range e.changingAttrs {
		if existing.Name() == attr.Name() {
			return
		}
	}
	e.changingAttrs = append(e.changingAttrs, attr)
}

// ChangingAttributes returns the attributes registered via AddChangingAttribute.
func (e *EntityEventSymbol) ChangingAttributes() []Ref { return e.changingAttrs }

// TableKind distinguishes a directly-declared entity table from one derived
// by expression over other tables.
type TableKind int

const (
	TableEntity TableKind = iota
	TableDerived
)

// TableSymbol is the populated variant for KindTable.
type TableSymbol struct {
	Name       string
	Pos        Pos
	Kind       TableKind
	Entity     Ref // zero Ref for TableDerived
	Filter     string
	Dimensions []Ref // DimensionSymbol refs, in declaration order
	Increments []*Increment

	Label map[int]string
	Note  map[int]string
}

func (tb *TableSymbol) PostParse(pass Pass, t *Table) (bool, error) { return false, nil }

// DimensionSymbol is the populated variant for KindDimension: one axis of a
// table, classified by an attribute whose type must be Classification,
// Range, Partition, or Enumeration.
type DimensionSymbol struct {
	Name      string
	Pos       Pos
	Table     Ref
	Attribute Ref
	Position  int
}

func (d *DimensionSymbol) PostParse(pass Pass, t *Table) (bool, error) { return false, nil }

// EntitySetSymbol is the populated variant for KindEntitySet: a filtered,
// optionally-ordered collection view over one entity kind.
type EntitySetSymbol struct {
	Name      string
	Pos       Pos
	Entity    Ref
	Filter    string
	OrderExpr string
}

func (es *EntitySetSymbol) PostParse(pass Pass, t *Table) (bool, error) { return false, nil }

// ParameterSymbol is the populated variant for KindParameter: a scenario
// input value, fixed at build time or overridable per scenario.
type ParameterSymbol struct {
	Name       string
	Pos        Pos
	Type       *TypeSymbol
	Dimensions []Ref
	IsFixed    bool // true once is_fixed_parameter_value applies (parsectx)
	IsScenario bool // true once is_scenario_parameter_value applies

	Label map[int]string
	Note  map[int]string
}

func (p *ParameterSymbol) PostParse(pass Pass, t *Table) (bool, error) { return false, nil }

// IncrementKind distinguishes the table-cell accumulator functions spec.md
// §3 enumerates (mirrors the OM_* aggregation vocabulary in SPEC_FULL §6).
type IncrementKind int

const (
	IncrementSum IncrementKind = iota
	IncrementAvg
	IncrementCount
	IncrementMin
	IncrementMax
	IncrementVar
	IncrementSD
	IncrementSE
	IncrementCV
)

// IncrementTiming distinguishes an event-triggered observation from one
// taken at the start/end of an entity's lifetime.
type IncrementTiming int

const (
	TimingEvent IncrementTiming = iota
	TimingEntrance
	TimingExit
)

// Increment is the populated variant for KindIncrement: one table-cell
// accumulator, deduplicated during wiring by (Kind, Timing, Attribute).
type Increment struct {
	Name      string
	Pos       Pos
	Table     Ref
	Kind      IncrementKind
	Timing    IncrementTiming
	Attribute Ref

	// ObsCollectionIndex is assigned during internal/wiring once increments
	// sharing the same (Kind, Timing, Attribute) key are deduplicated.
	ObsCollectionIndex int
}

func (i *Increment) PostParse(pass Pass, t *Table) (bool, error) { return false, nil }
