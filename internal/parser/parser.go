// Package parser is the recursive-descent, grammar-directed driver over the
// lexer's token stream. It builds symtab.Symbol records for every top-level
// declaration form the model DSL supports, morphing forward-reference
// placeholders in place as they are declared.
package parser

import (
	"strconv"

	"github.com/openmpp/ompc/internal/diag"
	"github.com/openmpp/ompc/internal/lexer"
	"github.com/openmpp/ompc/internal/parsectx"
	"github.com/openmpp/ompc/internal/symtab"
)

// topLevelKeywords are the declaration keywords the parser resynchronizes
// to after an error, so one malformed declaration fails the build without
// aborting the rest of the module (spec.md §7).
var topLevelKeywords = map[string]bool{
	"entity": true, "classification": true, "range": true, "partition": true,
	"table": true, "parameters": true, "entity_set": true, "use": true,
}

// Parser drives one module's token stream into symtab declarations.
type Parser struct {
	lex   *lexer.Lexer
	ctx   *parsectx.Context
	table *symtab.Table
	diags *diag.Diagnostics

	tok lexer.Token
}

// New constructs a Parser over lex, sharing ctx and table across every
// module in a build so cross-module forward references resolve.
func New(lex *lexer.Lexer, ctx *parsectx.Context, table *symtab.Table, diags *diag.Diagnostics) *Parser {
	p := &Parser{lex: lex, ctx: ctx, table: table, diags: diags}
	p.advance()
	return p
}

func (p *Parser) advance() { p.tok = p.lex.Next() }

func (p *Parser) at(kind lexer.Kind, text string) bool {
	return p.tok.Kind == kind && (text == "" || p.tok.Text == text)
}

func (p *Parser) expect(text string) bool {
	if p.at(lexer.Punct, text) || p.at(lexer.Ident, text) {
		p.advance()
		return true
	}
	p.errorf("expected %q, found %q", text, p.tok.Text)
	return false
}

func (p *Parser) errorf(format string, args ...any) {
	p.diags.Errorf(diag.PhaseParse, p.tok.Pos, "", format, args...)
}

// resync skips tokens until EOF or the next top-level declaration keyword,
// so a single malformed declaration doesn't cascade into spurious errors
// across the rest of the module.
func (p *Parser) resync() {
	for p.tok.Kind != lexer.EOF {
		if p.tok.Kind == lexer.Ident && topLevelKeywords[p.tok.Text] {
			return
		}
		p.advance()
	}
}

// MorphSymbol looks up-or-creates the placeholder at name and replaces its
// concrete kind in place; the map key (identity) never changes, so every
// existing Ref to name observes the new variant.
func (p *Parser) MorphSymbol(name string, kind symtab.Kind, pos symtab.Pos) *symtab.Symbol {
	return p.table.Morph(name, kind, pos)
}

// NamedSymbol is MorphSymbol for declarations that always own their name
// outright (entities, tables, parameters): identical mechanics, named
// separately because the grammar reaches for it at a different point
// (a declaration header, not an attribute/member inside one).
func (p *Parser) NamedSymbol(name string, kind symtab.Kind, pos symtab.Pos) *symtab.Symbol {
	return p.table.Morph(name, kind, pos)
}

// Parse consumes top-level declarations until EOF, resynchronizing past any
// declaration that fails to parse.
func (p *Parser) Parse() {
	for p.tok.Kind != lexer.EOF {
		if p.tok.Kind != lexer.Ident {
			p.errorf("expected a top-level declaration, found %q", p.tok.Text)
			p.advance()
			continue
		}
		errCountBefore := len(p.diags.Items())
		switch p.tok.Text {
		case "entity":
			p.parseEntity()
		case "classification":
			p.parseClassification()
		case "range":
			p.parseRange()
		case "partition":
			p.parsePartition()
		case "table":
			p.parseTable()
		case "parameters":
			p.parseParameters()
		case "entity_set":
			p.parseEntitySet()
		case "use":
			p.parseUse()
		default:
			p.errorf("unrecognized top-level keyword %q", p.tok.Text)
			p.advance()
		}
		if len(p.diags.Items()) > errCountBefore {
			p.resync()
		}
	}
}

// parseUse consumes `use "path/to/module.mpp";` without attaching file
// inclusion semantics here — module ordering is the build driver's concern
// (cmd/ompc), this just keeps the grammar from choking on the directive.
func (p *Parser) parseUse() {
	p.advance() // "use"
	if p.tok.Kind == lexer.String {
		p.advance()
	} else {
		p.errorf("expected a quoted module path after 'use'")
	}
	p.expect(";")
}

func (p *Parser) parseEntity() {
	pos := p.tok.Pos
	p.advance() // "entity"
	if p.tok.Kind != lexer.Ident {
		p.errorf("expected entity name")
		return
	}
	name := p.tok.Text
	p.advance()

	sym := p.NamedSymbol(name, symtab.KindEntity, pos)
	ent := &symtab.EntitySymbol{Name: name, Pos: pos}
	sym.Entity = ent

	p.ctx.PushScope()
	p.ctx.Scope().Entity = p.table.Ref(name)
	defer p.ctx.PopScope()

	if !p.expect("{") {
		return
	}
	for !p.at(lexer.Punct, "}") && p.tok.Kind != lexer.EOF {
		attr := p.parseAttributeDecl(name)
		if attr != nil {
			ent.Attributes = append(ent.Attributes, p.table.Ref(name+"::"+attr.Name))
		}
	}
	p.expect("}")
	p.expect(";")
}

// attributeKeywords map a leading declaration-kind keyword to the attribute
// variant it introduces; a bare type name (int, double, Time, ...) is a
// Simple attribute instead and is handled by the default case.
var attributeKeywords = map[string]symtab.AttributeKind{
	"derived":  symtab.AttrDerived,
	"identity": symtab.AttrIdentity,
	"link":     symtab.AttrLink,
}

func (p *Parser) parseAttributeDecl(entityName string) *symtab.AttributeSymbol {
	pos := p.tok.Pos
	kind := symtab.AttrSimple
	if k, ok := attributeKeywords[p.tok.Text]; ok {
		kind = k
		p.advance()
	}

	if p.tok.Kind != lexer.Ident {
		p.errorf("expected a type name in attribute declaration")
		p.advance()
		return nil
	}
	typeName := p.tok.Text
	p.advance()

	var formula string
	if kind == symtab.AttrDerived || kind == symtab.AttrIdentity {
		if !p.expect("(") {
			return nil
		}
		formula = p.captureBalancedUntil(")")
		p.expect(")")
	}

	if p.tok.Kind != lexer.Ident {
		p.errorf("expected attribute name")
		return nil
	}
	name := p.tok.Text
	p.advance()
	p.expect(";")

	qualified := entityName + "::" + name
	sym := p.MorphSymbol(qualified, symtab.KindAttribute, pos)
	attr := &symtab.AttributeSymbol{
		Name:    name,
		Pos:     pos,
		Entity:  p.table.Ref(entityName),
		Kind:    kind,
		Formula: formula,
		Label:   map[int]string{},
		Note:    map[int]string{},
	}
	attr.Type = p.resolveType(typeName)
	sym.Attribute = attr
	return attr
}

// resolveType returns the TypeSymbol for a named type, creating an
// Unknown-tagged placeholder that pass 5 resolves if it hasn't been
// declared yet (classification/range/partition/enumeration names are often
// forward references to a later declaration in the same module).
func (p *Parser) resolveType(name string) *symtab.TypeSymbol {
	if builtin, ok := builtinTypes[name]; ok {
		return &symtab.TypeSymbol{Name: name, Category: builtin}
	}
	ref := p.table.Ref(name)
	if sym := ref.Resolve(); sym != nil && sym.Type != nil {
		return sym.Type
	}
	return &symtab.TypeSymbol{Name: name, Category: symtab.TypeUnknown, TargetEntity: ref}
}

var builtinTypes = map[string]symtab.TypeCategory{
	"bool": symtab.TypeBool, "int": symtab.TypeNumeric, "double": symtab.TypeNumeric,
	"float": symtab.TypeNumeric, "Time": symtab.TypeTime, "string": symtab.TypeString,
}

func (p *Parser) parseClassification() {
	pos := p.tok.Pos
	p.advance() // "classification"
	if p.tok.Kind != lexer.Ident {
		p.errorf("expected classification name")
		return
	}
	name := p.tok.Text
	p.advance()

	sym := p.NamedSymbol(name, symtab.KindType, pos)
	ts := &symtab.TypeSymbol{Name: name, Category: symtab.TypeClassification}

	if !p.expect("{") {
		return
	}
	for !p.at(lexer.Punct, "}") && p.tok.Kind != lexer.EOF {
		if p.tok.Kind == lexer.Ident {
			ts.Members = append(ts.Members, p.tok.Text)
			p.advance()
		}
		if p.at(lexer.Punct, ",") {
			p.advance()
		}
	}
	p.expect("}")
	p.expect(";")
	sym.Type = ts
}

func (p *Parser) parseRange() {
	pos := p.tok.Pos
	p.advance() // "range"
	if p.tok.Kind != lexer.Ident {
		p.errorf("expected range name")
		return
	}
	name := p.tok.Text
	p.advance()

	sym := p.NamedSymbol(name, symtab.KindType, pos)
	ts := &symtab.TypeSymbol{Name: name, Category: symtab.TypeRange}

	if !p.expect("{") {
		return
	}
	if lo, ok := p.parseIntLiteral(); ok {
		ts.LowerBound = lo
	}
	p.expect(",")
	if hi, ok := p.parseIntLiteral(); ok {
		ts.UpperBound = hi
	}
	p.expect("}")
	p.expect(";")
	sym.Type = ts
}

func (p *Parser) parsePartition() {
	pos := p.tok.Pos
	p.advance() // "partition"
	if p.tok.Kind != lexer.Ident {
		p.errorf("expected partition name")
		return
	}
	name := p.tok.Text
	p.advance()

	sym := p.NamedSymbol(name, symtab.KindType, pos)
	ts := &symtab.TypeSymbol{Name: name, Category: symtab.TypePartition}

	if !p.expect("{") {
		return
	}
	for !p.at(lexer.Punct, "}") && p.tok.Kind != lexer.EOF {
		if p.tok.Kind == lexer.Int || p.tok.Kind == lexer.Float {
			if f, err := strconv.ParseFloat(p.tok.Text, 64); err == nil {
				ts.Bounds = append(ts.Bounds, f)
			}
			p.advance()
		}
		if p.at(lexer.Punct, ",") {
			p.advance()
		}
	}
	p.expect("}")
	p.expect(";")
	sym.Type = ts
}

func (p *Parser) parseIntLiteral() (int, bool) {
	if p.tok.Kind != lexer.Int {
		p.errorf("expected an integer literal")
		return 0, false
	}
	n, err := strconv.Atoi(p.tok.Text)
	p.advance()
	return n, err == nil
}

func (p *Parser) parseParameters() {
	p.advance() // "parameters"
	if !p.expect("{") {
		return
	}
	for !p.at(lexer.Punct, "}") && p.tok.Kind != lexer.EOF {
		p.parseParameterDecl()
	}
	p.expect("}")
	p.expect(";")
}

func (p *Parser) parseParameterDecl() {
	pos := p.tok.Pos
	if p.tok.Kind != lexer.Ident {
		p.errorf("expected a parameter type")
		p.advance()
		return
	}
	typeName := p.tok.Text
	p.advance()

	if p.tok.Kind != lexer.Ident {
		p.errorf("expected a parameter name")
		return
	}
	name := p.tok.Text
	p.advance()
	p.expect(";")

	sym := p.NamedSymbol(name, symtab.KindParameter, pos)
	sym.Parameter = &symtab.ParameterSymbol{
		Name:  name,
		Pos:   pos,
		Type:  p.resolveType(typeName),
		Label: map[int]string{},
		Note:  map[int]string{},

		IsFixed:    p.ctx.IsFixedParameterValue,
		IsScenario: p.ctx.IsScenarioParameterValue,
	}
}

func (p *Parser) parseEntitySet() {
	pos := p.tok.Pos
	p.advance() // "entity_set"
	if p.tok.Kind != lexer.Ident {
		p.errorf("expected entity name")
		return
	}
	entityName := p.tok.Text
	p.advance()

	if p.tok.Kind != lexer.Ident {
		p.errorf("expected entity set name")
		return
	}
	name := p.tok.Text
	p.advance()

	var filter string
	if p.at(lexer.Punct, "(") {
		p.advance()
		filter = p.captureBalancedUntil(")")
		p.expect(")")
	}
	p.expect(";")

	sym := p.NamedSymbol(name, symtab.KindEntitySet, pos)
	sym.EntitySet = &symtab.EntitySetSymbol{
		Name: name, Pos: pos, Entity: p.table.Ref(entityName), Filter: filter,
	}
}

func (p *Parser) parseTable() {
	pos := p.tok.Pos
	p.advance() // "table"
	if p.tok.Kind != lexer.Ident {
		p.errorf("expected entity name")
		return
	}
	entityName := p.tok.Text
	p.advance()

	if p.tok.Kind != lexer.Ident {
		p.errorf("expected table name")
		return
	}
	name := p.tok.Text
	p.advance()

	sym := p.NamedSymbol(name, symtab.KindTable, pos)
	tbl := &symtab.TableSymbol{
		Name: name, Pos: pos, Kind: symtab.TableEntity,
		Entity: p.table.Ref(entityName), Label: map[int]string{}, Note: map[int]string{},
	}

	if !p.expect("{") {
		return
	}
	dimPos := 0
	for !p.at(lexer.Punct, "}") && p.tok.Kind != lexer.EOF {
		if p.tok.Kind == lexer.Ident {
			dimSym := p.MorphSymbol(name+"::"+p.tok.Text, symtab.KindDimension, p.tok.Pos)
			dimSym.Dimension = &symtab.DimensionSymbol{
				Name: p.tok.Text, Pos: p.tok.Pos, Table: p.table.Ref(name),
				Attribute: p.table.Ref(entityName + "::" + p.tok.Text), Position: dimPos,
			}
			tbl.Dimensions = append(tbl.Dimensions, p.table.Ref(name+"::"+p.tok.Text))
			dimPos++
			p.advance()
		}
		if p.at(lexer.Punct, ",") {
			p.advance()
		}
	}
	p.expect("}")
	p.expect(";")
	sym.Table = tbl
}

// captureBalancedUntil returns the text of the tokens up to (but not
// consuming) the first occurrence of closer at the current nesting depth,
// joined by single spaces (so "age*2" comes back as "age * 2"),
// used for derived-attribute formulas and entity-set filter expressions
// that the parser treats as opaque C++ until the middle-end needs them.
func (p *Parser) captureBalancedUntil(closer string) string {
	depth := 0
	var text string
	for p.tok.Kind != lexer.EOF {
		if p.at(lexer.Punct, closer) && depth == 0 {
			return text
		}
		if p.at(lexer.Punct, "(") {
			depth++
		}
		if p.at(lexer.Punct, ")") {
			depth--
		}
		if text != "" {
			text += " "
		}
		text += p.tok.Text
		p.advance()
	}
	return text
}
