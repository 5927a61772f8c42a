// Package cppstmt is the small statement intermediate representation shared
// between internal/wiring (which appends to it while resolving
// dependencies) and internal/codegen/cpp (which renders it to text). Having
// a neutral IR keeps the two concerns from depending on each other.
package cppstmt

// Kind classifies a Stmt.
type Kind int

const (
	// Assign renders as "Target = Expr;".
	Assign Kind = iota
	// Call renders as "Expr;" verbatim (Expr already includes arguments).
	Call
	// Comment renders as "// Expr".
	Comment
	// Raw renders Expr exactly as given, with no trailing semicolon added.
	Raw
)

// Stmt is one statement appended to a side-effect, notify, or lifecycle
// function body under construction.
type Stmt struct {
	Kind   Kind
	Target string // only meaningful for Assign
	Expr   string
}

// Render returns the C++ source text for one statement, including
// indentation-free trailing punctuation; the emitter is responsible for
// indentation when joining a function body.
func (s Stmt) Render() string {
	switch s.Kind {
	case Assign:
		return s.Target + " = " + s.Expr + ";"
	case Call:
		return s.Expr + ";"
	case Comment:
		return "// " + s.Expr
	default:
		return s.Expr
	}
}

// Block is an ordered sequence of statements, e.g. one attribute's
// side-effect function body.
type Block []Stmt

// Append adds stmts to the end of the block and returns the block, so
// callers can chain construction the way the wiring pass accumulates a
// side-effect function across several contributing rules.
func (b Block) Append(stmts ...Stmt) Block {
	return append(b, stmts...)
}
