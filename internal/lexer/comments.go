package lexer

import (
	"strconv"
	"strings"
)

// DirectiveKind identifies which comment side-channel a Directive came from.
type DirectiveKind int

const (
	DirectiveLabel DirectiveKind = iota
	DirectiveName
	DirectiveNote
)

// Directive is a parsed //LABEL, //NAME, or /*NOTE*/ side-channel.
//
// Symbol is already rewritten from "Entity.member" to the symbol-table key
// "Entity::member" form (spec.md §4.1).
type Directive struct {
	Kind   DirectiveKind
	Symbol string
	Lang   string // empty for NAME
	Text   string
	Pos    Pos
}

// LTCall is a captured first-argument string literal to the LT(...)
// localization function, excluding any call whose position falls under a
// configured bundled-runtime-header prefix.
type LTCall struct {
	Pos  Pos
	Text string
}

// Comments accumulates every comment-derived side-channel discovered while
// scanning one or more files.
type Comments struct {
	// Line holds every "//" comment keyed by (file, line); column is
	// always 0 per spec.md §4.1.
	Line map[Pos]string
	// Block holds every "/*...*/" comment keyed by its start position.
	Block map[Pos]string

	Directives []Directive
	Strings    []LTCall
}

func newComments() *Comments {
	return &Comments{
		Line:  make(map[Pos]string),
		Block: make(map[Pos]string),
	}
}

// recordLine stores a "//" comment and parses any directive it carries.
// Only LABEL and NAME are recognized in line comments (spec.md §4.1).
func (c *Comments) recordLine(pos Pos, body string) {
	key := Pos{File: pos.File, Line: pos.Line}
	c.Line[key] = body
	if d, ok := parseDirective(body, key, true); ok {
		c.Directives = append(c.Directives, d)
	}
}

// recordBlock stores a "/*...*/" comment and parses any NOTE directive it
// carries (NOTE is C-style only, per spec.md §4.1).
func (c *Comments) recordBlock(pos Pos, body string) {
	c.Block[pos] = body
	if d, ok := parseDirective(body, pos, false); ok {
		c.Directives = append(c.Directives, d)
	}
}

// parseDirective recognizes LABEL(<sym>, <lang>) <text>, NAME(<sym>) <shortname>,
// and (block comments only) NOTE(<sym>, <lang>) <text>.
func parseDirective(body string, pos Pos, isLine bool) (Directive, bool) {
	body = strings.TrimSpace(body)

	switch {
	case strings.HasPrefix(body, "LABEL("):
		return parseSymLangDirective(body, "LABEL(", DirectiveLabel, pos)
	case strings.HasPrefix(body, "NAME("):
		return parseSymOnlyDirective(body, "NAME(", pos)
	case !isLine && strings.HasPrefix(body, "NOTE("):
		return parseSymLangDirective(body, "NOTE(", DirectiveNote, pos)
	}
	return Directive{}, false
}

func parseSymLangDirective(body, prefix string, kind DirectiveKind, pos Pos) (Directive, bool) {
	rest := body[len(prefix):]
	close := strings.IndexByte(rest, ')')
	if close < 0 {
		return Directive{}, false
	}
	head := rest[:close]
	text := strings.TrimSpace(rest[close+1:])

	parts := strings.SplitN(head, ",", 2)
	sym := normalizeSymbolRef(strings.TrimSpace(parts[0]))
	lang := ""
	if len(parts) == 2 {
		lang = strings.TrimSpace(parts[1])
	}
	if sym == "" {
		return Directive{}, false
	}
	return Directive{Kind: kind, Symbol: sym, Lang: lang, Text: text, Pos: pos}, true
}

func parseSymOnlyDirective(body, prefix string, pos Pos) (Directive, bool) {
	rest := body[len(prefix):]
	close := strings.IndexByte(rest, ')')
	if close < 0 {
		return Directive{}, false
	}
	sym := normalizeSymbolRef(strings.TrimSpace(rest[:close]))
	text := strings.TrimSpace(rest[close+1:])
	if sym == "" || text == "" {
		return Directive{}, false
	}
	return Directive{Kind: DirectiveName, Symbol: sym, Text: text, Pos: pos}, true
}

// normalizeSymbolRef rewrites "Entity.member" to the symbol table's
// "Entity::member" key form; anything without a dot is returned unchanged.
func normalizeSymbolRef(sym string) string {
	if i := strings.IndexByte(sym, '.'); i > 0 {
		return sym[:i] + "::" + sym[i+1:]
	}
	return sym
}

// quoteNumber parses a directive language code that looks numeric (e.g.
// the "0" in "NOTE(Sym, 0)"), trimming surrounding space. It is unexported
// and only the package's own tests call it.
func quoteNumber(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return n, true
}
