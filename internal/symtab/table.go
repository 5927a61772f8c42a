// Package symtab implements the process-wide symbol table: a map from
// declared name to a tagged-union Symbol record, plus the staged post-parse
// pass pipeline that resolves forward references and populates derived
// (PP-prefixed) fields.
package symtab

import (
	"fmt"
	"sort"

	"github.com/openmpp/ompc/internal/diag"
)

// Pos is re-exported from diag so callers never convert between packages.
type Pos = diag.Pos

// Kind classifies a Symbol's populated variant.
type Kind int

const (
	KindUnknown Kind = iota
	KindType
	KindEntity
	KindAttribute
	KindEvent
	KindTable
	KindDimension
	KindEntitySet
	KindParameter
	KindIncrement
)

func (k Kind) String() string {
	switch k {
	case KindType:
		return "Type"
	case KindEntity:
		return "Entity"
	case KindAttribute:
		return "Attribute"
	case KindEvent:
		return "Event"
	case KindTable:
		return "Table"
	case KindDimension:
		return "Dimension"
	case KindEntitySet:
		return "EntitySet"
	case KindParameter:
		return "Parameter"
	case KindIncrement:
		return "Increment"
	default:
		return "Unknown"
	}
}

// Pass is a post-parse resolution stage, run in this fixed order over every
// symbol in the table.
type Pass int

const (
	PassCreateForeignTypes Pass = iota
	PassCreateEntityTables
	PassResolveSymbols
	PassAssignMembers
	PassResolveDataTypes // fixpoint pass: repeated until quiescent
	PassResolveFunctors
	PassPopulateDependencies
)

func (p Pass) String() string {
	names := [...]string{
		"CreateForeignTypes", "CreateEntityTables", "ResolveSymbols",
		"AssignMembers", "ResolveDataTypes", "ResolveFunctors", "PopulateDependencies",
	}
	if int(p) < len(names) {
		return names[p]
	}
	return "Pass(?)"
}

// AllPasses is the full ordered pipeline run by a build.
var AllPasses = []Pass{
	PassCreateForeignTypes,
	PassCreateEntityTables,
	PassResolveSymbols,
	PassAssignMembers,
	PassResolveDataTypes,
	PassResolveFunctors,
	PassPopulateDependencies,
}

// PostParser is implemented by a Symbol variant that participates in a
// given post-parse pass. mutated reports whether the call changed the
// symbol's resolved state, which the fixpoint pass (PassResolveDataTypes)
// uses to decide whether another iteration is needed.
type PostParser interface {
	PostParse(pass Pass, t *Table) (mutated bool, err error)
}

// Symbol is a tagged-union record behind a stable string handle: the name
// never changes identity even when the concrete variant behind it morphs
// from a forward-reference placeholder into its final declared kind.
type Symbol struct {
	Name       string
	Kind       Kind
	Pos        Pos
	MorphCount int

	Type      *TypeSymbol
	Entity    *EntitySymbol
	Attribute *AttributeSymbol
	Event     *EntityEventSymbol
	Table     *TableSymbol
	Dimension *DimensionSymbol
	EntitySet *EntitySetSymbol
	Parameter *ParameterSymbol
	Increment *Increment
}

// PostParse dispatches to whichever populated variant implements PostParser.
func (s *Symbol) PostParse(pass Pass, t *Table) (bool, error) {
	var pp PostParser
	switch s.Kind {
	case KindType:
		pp = s.Type
	case KindEntity:
		pp = s.Entity
	case KindAttribute:
		pp = s.Attribute
	case KindEvent:
		pp = s.Event
	case KindTable:
		pp = s.Table
	case KindDimension:
		pp = s.Dimension
	case KindEntitySet:
		pp = s.EntitySet
	case KindParameter:
		pp = s.Parameter
	case KindIncrement:
		pp = s.Increment
	default:
		return false, nil
	}
	if pp == nil {
		return false, nil
	}
	return pp.PostParse(pass, t)
}

// Ref is a handle to a symbol that may not exist yet (forward reference).
// Resolve looks up the live record at the point of use rather than holding
// a pointer that would dangle across a morph.
type Ref struct {
	table *Table
	name  string
}

// Name returns the referenced symbol's name, valid even before resolution.
func (r Ref) Name() string { return r.name }

// Resolve returns the current symbol behind this handle, or nil if it has
// never been declared.
func (r Ref) Resolve() *Symbol {
	if r.table == nil {
		return nil
	}
	return r.table.symbols[r.name]
}

// Table is the process-wide symbol map for a single build.
type Table struct {
	symbols    map[string]*Symbol
	morphCount int

	// MaxFixpointIterations bounds pass 5 (PassResolveDataTypes); exceeding
	// it is a fatal build error rather than an infinite loop.
	MaxFixpointIterations int
}

// New returns an empty table ready to accept placeholders and declarations.
func New() *Table {
	return &Table{
		symbols:               make(map[string]*Symbol),
		MaxFixpointIterations: 64,
	}
}

// Ref returns a handle to name, creating an KindUnknown placeholder symbol
// if it has never been seen before (a forward reference).
func (t *Table) Ref(name string) Ref {
	if _, ok := t.symbols[name]; !ok {
		t.symbols[name] = &Symbol{Name: name, Kind: KindUnknown}
	}
	return Ref{table: t, name: name}
}

// Lookup returns the symbol named name, or nil if it has never been declared.
func (t *Table) Lookup(name string) *Symbol {
	return t.symbols[name]
}

// Morph replaces the placeholder (or previous declaration) at name with a
// concrete kind, preserving the map key identity so every existing Ref to
// it observes the new variant on its next Resolve call.
func (t *Table) Morph(name string, kind Kind, pos Pos) *Symbol {
	sym, ok := t.symbols[name]
	if !ok {
		sym = &Symbol{Name: name}
		t.symbols[name] = sym
	}
	sym.Kind = kind
	sym.Pos = pos
	sym.MorphCount++
	t.morphCount++
	return sym
}

// MorphCount is the total number of morph operations performed on this
// table, used by pass 5's fixpoint detection.
func (t *Table) MorphCount() int { return t.morphCount }

// Symbols returns every symbol in the table, sorted by (Kind, Name) — the
// deterministic emission order spec.md §9 requires.
func (t *Table) Symbols() []*Symbol {
	out := make([]*Symbol, 0, len(t.symbols))
	for _, s := range t.symbols {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// RunPasses runs each pass in order over every symbol in deterministic
// order. PassResolveDataTypes repeats until no symbol reports a mutation,
// bounded by MaxFixpointIterations.
func (t *Table) RunPasses(passes []Pass, diags *diag.Diagnostics) {
	for _, pass := range passes {
		if pass == PassResolveDataTypes {
			t.runFixpoint(pass, diags)
			continue
		}
		t.runOnce(pass, diags)
	}
}

func (t *Table) runOnce(pass Pass, diags *diag.Diagnostics) {
	for _, sym := range t.Symbols() {
		if _, err := sym.PostParse(pass, t); err != nil {
			diags.Errorf(diag.PhaseResolve, sym.Pos, sym.Name, "%s", err)
		}
	}
}

func (t *Table) runFixpoint(pass Pass, diags *diag.Diagnostics) {
	for iter := 0; ; iter++ {
		if iter >= t.MaxFixpointIterations {
			diags.Fatalf(diag.PhaseResolve, Pos{}, "",
				"%s did not converge after %d iterations", pass, t.MaxFixpointIterations)
			return
		}
		mutatedAny := false
		for _, sym := range t.Symbols() {
			mutated, err := sym.PostParse(pass, t)
			if err != nil {
				diags.Errorf(diag.PhaseResolve, sym.Pos, sym.Name, "%s", err)
			}
			mutatedAny = mutatedAny || mutated
		}
		if !mutatedAny {
			return
		}
	}
}

// UnresolvedError is returned by a PostParse implementation when it cannot
// yet resolve a dependency; the fixpoint pass retries until the dependency
// morphs into something resolvable or the iteration cap is hit.
type UnresolvedError struct {
	Symbol string
	Needs  string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("%s: unresolved reference to %s", e.Symbol, e.Needs)
}
