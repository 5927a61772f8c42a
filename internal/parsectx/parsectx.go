// Package parsectx holds the mutable state threaded through a single parse:
// scope stacks, brace/paren/bracket nesting, the function index built while
// walking captured C++ chunks, and RNG stream-call bookkeeping. It is a
// plain struct constructed once by the driver and passed by pointer — the
// same coordinating role a parser-global would play, without the global.
package parsectx

import (
	"sort"

	"github.com/openmpp/ompc/internal/diag"
	"github.com/openmpp/ompc/internal/lexer"
	"github.com/openmpp/ompc/internal/symtab"
)

// Pos is re-exported so callers never convert between packages.
type Pos = diag.Pos

// ScopeContext is the current declaration scope: which entity, table,
// derived table, entity set, classification, partition, and parameter a
// nested statement is being parsed inside of. Pushed on a stack so that
// nested island constructs restore the enclosing scope correctly.
type ScopeContext struct {
	Entity         symtab.Ref
	Table          symtab.Ref
	DerivedTable   symtab.Ref
	EntitySet      symtab.Ref
	Classification symtab.Ref
	Partition      symtab.Ref
	Parameter      symtab.Ref
}

// FunctionInfo is one entry in the FunctionIndex.
type FunctionInfo struct {
	QualifiedName string
	Params        []string
	Pos           Pos
}

// PointerAccess is one "Base->Field" expression found while gathering a
// function body.
type PointerAccess struct {
	Base  string
	Field string
	Pos   Pos
}

// IdentifierUse is one bare identifier reference found while gathering a
// function body.
type IdentifierUse struct {
	Name string
	Pos  Pos
}

// StreamCall is one recognized call to a configured RNG-stream function
// with a literal first-argument stream number.
type StreamCall struct {
	Function string
	Number   int
	Pos      Pos
}

// Context is threaded through the parser and, via the lexer's chunk
// scanner, through every captured C++ body.
type Context struct {
	scopes []ScopeContext

	BraceLevel   int
	ParenLevel   int
	BracketLevel int

	IsFixedParameterValue    bool
	IsScenarioParameterValue bool

	// GatherMode is true while accumulating a function body's BodyTokens,
	// IdentifierUses, and PointerUses.
	GatherMode     bool
	BodyTokens     []lexer.Token
	currentFunc    string

	FunctionIndex   map[string]FunctionInfo
	IdentifierUses  map[string][]IdentifierUse // per function
	PointerUses     map[string][]PointerAccess // per function

	RNGFunctionNames map[string]bool
	StreamCalls      []StreamCall

	Diags *diag.Diagnostics
}

// New returns a Context ready to parse one module, configured with the
// fixed vocabulary of recognized RNG-stream function names.
func New(rngFunctionNames []string, diags *diag.Diagnostics) *Context {
	names := make(map[string]bool, len(rngFunctionNames))
	for _, n := range rngFunctionNames {
		names[n] = true
	}
	return &Context{
		scopes:           []ScopeContext{{}},
		FunctionIndex:    make(map[string]FunctionInfo),
		IdentifierUses:   make(map[string][]IdentifierUse),
		PointerUses:      make(map[string][]PointerAccess),
		RNGFunctionNames: names,
		Diags:            diags,
	}
}

// Scope returns the current (innermost) scope.
func (c *Context) Scope() *ScopeContext { return &c.scopes[len(c.scopes)-1] }

// PushScope copies the current scope onto the stack so nested constructs
// can override individual fields and still restore the enclosing ones.
func (c *Context) PushScope() {
	cur := *c.Scope()
	c.scopes = append(c.scopes, cur)
}

// PopScope restores the enclosing scope. A pop below the outermost scope is
// a parser bug, not a user-facing error, so it panics.
func (c *Context) PopScope() {
	if len(c.scopes) <= 1 {
		panic("parsectx: PopScope on outermost scope")
	}
	c.scopes = c.scopes[:len(c.scopes)-1]
}

// InitializeForModule resets per-module counters and scope before parsing
// a new source file, mirroring the original compiler's per-module reset
// without the global-state coupling.
func (c *Context) InitializeForModule() {
	c.BraceLevel, c.ParenLevel, c.BracketLevel = 0, 0, 0
	c.scopes = []ScopeContext{{}}
	c.GatherMode = false
	c.BodyTokens = nil
	c.currentFunc = ""
}

// BeginFunction opens gather mode for a function whose prototype
// "Name1::Name2(params)" or "Name2(params)" just closed its brace at outer
// level, recording it in FunctionIndex.
func (c *Context) BeginFunction(qualifiedName string, params []string, pos Pos) {
	c.FunctionIndex[qualifiedName] = FunctionInfo{QualifiedName: qualifiedName, Params: params, Pos: pos}
	c.currentFunc = qualifiedName
	c.GatherMode = true
	c.BodyTokens = nil
}

// EndFunction closes gather mode, leaving IdentifierUses/PointerUses
// populated under the function's qualified name.
func (c *Context) EndFunction() {
	c.GatherMode = false
	c.currentFunc = ""
	c.BodyTokens = nil
}

// RecordIdentifierUse registers one identifier reference within the
// function currently being gathered. A no-op outside gather mode.
func (c *Context) RecordIdentifierUse(name string, pos Pos) {
	if !c.GatherMode {
		return
	}
	c.IdentifierUses[c.currentFunc] = append(c.IdentifierUses[c.currentFunc], IdentifierUse{Name: name, Pos: pos})
}

// RecordPointerUse registers one "Base->Field" access within the function
// currently being gathered. A no-op outside gather mode.
func (c *Context) RecordPointerUse(base, field string, pos Pos) {
	if !c.GatherMode {
		return
	}
	c.PointerUses[c.currentFunc] = append(c.PointerUses[c.currentFunc],
		PointerAccess{Base: base, Field: field, Pos: pos})
}

// RecordStreamCall registers a call to an RNG-stream function. A
// non-literal stream number argument is a fatal resolution error
// (spec.md §7); the caller passes literalArg=false to report it.
func (c *Context) RecordStreamCall(function string, number int, pos Pos, literalArg bool) {
	if !c.RNGFunctionNames[function] {
		return
	}
	if !literalArg {
		c.Diags.Fatalf(diag.PhaseResolve, pos, function, "RNG stream argument must be a literal integer")
		return
	}
	c.StreamCalls = append(c.StreamCalls, StreamCall{Function: function, Number: number, Pos: pos})
}

// ReportDuplicateStreams collects every RNG stream number used more than
// once across the whole parse and reports them together, once, at the end
// of parsing — not at first encounter, so a single run surfaces every
// duplicate instead of only the first.
func (c *Context) ReportDuplicateStreams() {
	byNumber := make(map[int][]StreamCall)
	for _, sc := range c.StreamCalls {
		byNumber[sc.Number] = append(byNumber[sc.Number], sc)
	}

	numbers := make([]int, 0, len(byNumber))
	for n := range byNumber {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	for _, n := range numbers {
		calls := byNumber[n]
		if len(calls) < 2 {
			continue
		}
		for _, sc := range calls {
			c.Diags.Errorf(diag.PhaseResolve, sc.Pos, sc.Function,
				"RNG stream %d used more than once across the model (%d uses)", n, len(calls))
		}
	}
}
