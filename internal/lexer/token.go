// Package lexer scans openM++ model source (the entity-oriented DSL plus
// embedded C++) into a token stream, recording comment side-channels
// (//LABEL, //NAME, /*NOTE*/) and translatable-string literals as it goes.
package lexer

import "github.com/openmpp/ompc/internal/diag"

// Pos is a source location; re-exported from diag so callers never need to
// convert between the two packages' position types.
type Pos = diag.Pos

// Kind classifies a Token.
type Kind int

const (
	EOF Kind = iota
	Ident
	Int
	Float
	String
	Punct
	// CppChunk is emitted for a verbatim run of C++ captured between a
	// recognized function prototype's opening and closing braces.
	CppChunk
)

func (k Kind) String() string {
	switch k {
	case EOF:
		return "EOF"
	case Ident:
		return "Ident"
	case Int:
		return "Int"
	case Float:
		return "Float"
	case String:
		return "String"
	case Punct:
		return "Punct"
	case CppChunk:
		return "CppChunk"
	default:
		return "Unknown"
	}
}

// Token is one lexical unit.
type Token struct {
	Kind Kind
	Text string
	Pos  Pos
}
