package lexer

import (
	"github.com/coregx/ahocorasick"
)

// ChunkMatch is one hit of the prescan vocabulary inside a captured chunk,
// expressed as a byte offset into Chunk.Text so parsectx can walk forward
// from there token by token.
type ChunkMatch struct {
	Pattern string
	Offset  int
}

// Chunk is a verbatim run of C++ captured between a recognized function
// prototype's opening brace and its matching closing brace.
type Chunk struct {
	Text    string
	Pos     Pos
	Matches []ChunkMatch
}

// ChunkScanner prefilters captured C++ chunks for a fixed vocabulary of
// RNG-stream function names plus the "LT" localization marker, ahead of the
// slower token-by-token walk internal/parsectx performs to pull out literal
// arguments (spec.md §4 domain stack, §5.2 RNG stream calls).
type ChunkScanner struct {
	automaton *ahocorasick.Automaton
}

// NewChunkScanner builds a scanner over rngFunctionNames plus "LT". The
// automaton is built once per compiler invocation and reused across every
// captured chunk in the build.
func NewChunkScanner(rngFunctionNames []string) (*ChunkScanner, error) {
	patterns := make([]string, 0, len(rngFunctionNames)+1)
	patterns = append(patterns, rngFunctionNames...)
	patterns = append(patterns, "LT")

	automaton, err := ahocorasick.NewBuilder().
		AddStrings(patterns).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return nil, err
	}
	return &ChunkScanner{automaton: automaton}, nil
}

func (s *ChunkScanner) scan(text string) []ChunkMatch {
	if s == nil || s.automaton == nil {
		return nil
	}
	hits := s.automaton.FindAllOverlapping([]byte(text))
	matches := make([]ChunkMatch, 0, len(hits))
	for _, h := range hits {
		matches = append(matches, ChunkMatch{Pattern: text[h.Start:h.End], Offset: h.Start})
	}
	return matches
}

// ScanCppChunk captures verbatim text starting just after an already-consumed
// opening brace, tracking string/char literals and comments so that braces
// inside them never perturb the depth count, and returns once the matching
// closing brace is consumed. If scanner is non-nil the captured text is
// prefiltered for the RNG/LT vocabulary before being handed back.
func (l *Lexer) ScanCppChunk(scanner *ChunkScanner) Chunk {
	start := l.pos()
	bodyStart := l.off
	depth := 1

	for !l.atEOF() && depth > 0 {
		switch l.peek() {
		case '{':
			depth++
			l.advance()
		case '}':
			depth--
			if depth == 0 {
				break
			}
			l.advance()
		case '"', '\'':
			l.skipCppLiteral()
		case '/':
			if l.peekAt(1) == '/' {
				l.scanLineComment()
			} else if l.peekAt(1) == '*' {
				l.scanBlockComment()
			} else {
				l.advance()
			}
		default:
			l.advance()
		}
	}

	text := string(l.src[bodyStart:l.off])
	if !l.atEOF() {
		l.advance() // consume the matching '}'
	}

	chunk := Chunk{Text: text, Pos: start}
	if scanner != nil {
		chunk.Matches = scanner.scan(text)
	}
	return chunk
}

// skipCppLiteral advances past a C++ string or char literal (including
// escapes) without interpreting its contents as DSL tokens.
func (l *Lexer) skipCppLiteral() {
	quote := l.advance()
	for !l.atEOF() && l.peek() != quote {
		if l.peek() == '\\' {
			l.advance()
			if !l.atEOF() {
				l.advance()
			}
			continue
		}
		l.advance()
	}
	if !l.atEOF() {
		l.advance()
	}
}
