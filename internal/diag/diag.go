// Package diag provides the diagnostic accumulation used across every
// compiler phase: parsing, symbol resolution, SQL validation, and I/O.
package diag

import (
	"fmt"
	"strings"
)

// Severity classifies a Diagnostic by how it affects the build.
type Severity int

const (
	// SeverityWarning is logged but never fails the build.
	SeverityWarning Severity = iota
	// SeverityError fails the build but processing continues within the
	// current phase so that further errors in the same module surface too.
	SeverityError
	// SeverityFatal aborts the current phase immediately.
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Phase identifies which stage of the pipeline raised a Diagnostic.
type Phase string

const (
	PhaseLex        Phase = "lex"
	PhaseParse      Phase = "parse"
	PhaseResolve    Phase = "resolve"
	PhaseWiring     Phase = "wiring"
	PhaseCodegenCpp Phase = "codegen-cpp"
	PhaseCodegenSQL Phase = "codegen-sql"
	PhaseMarkup     Phase = "markup"
	PhaseIO         Phase = "io"
)

// Pos is a source location: file path plus 1-based line/column.
type Pos struct {
	File string
	Line int
	Col  int
}

func (p Pos) String() string {
	if p.File == "" {
		return ""
	}
	if p.Col > 0 {
		return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
	}
	return fmt.Sprintf("%s:%d", p.File, p.Line)
}

// Diagnostic is a single reported problem, carrying enough context to log
// and to decide whether the build should continue.
type Diagnostic struct {
	Severity Severity
	Phase    Phase
	Pos      Pos
	Symbol   string
	Message  string
}

func (d Diagnostic) Error() string {
	var sb strings.Builder
	sb.WriteString(d.Severity.String())
	sb.WriteByte(' ')
	sb.WriteString(string(d.Phase))
	if s := d.Pos.String(); s != "" {
		sb.WriteByte(' ')
		sb.WriteString(s)
	}
	if d.Symbol != "" {
		sb.WriteString(" [")
		sb.WriteString(d.Symbol)
		sb.WriteString("]")
	}
	sb.WriteString(": ")
	sb.WriteString(d.Message)
	return sb.String()
}

// Diagnostics accumulates Diagnostic values across a phase or a whole build.
// It is not safe for concurrent use without external synchronization; the
// compiler is single-threaded (spec-level invariant), so none is provided.
type Diagnostics struct {
	items []Diagnostic
}

// Add appends a Diagnostic.
func (d *Diagnostics) Add(item Diagnostic) {
	d.items = append(d.items, item)
}

// Warnf records a SeverityWarning diagnostic.
func (d *Diagnostics) Warnf(phase Phase, pos Pos, symbol, format string, args ...any) {
	d.Add(Diagnostic{Severity: SeverityWarning, Phase: phase, Pos: pos, Symbol: symbol, Message: fmt.Sprintf(format, args...)})
}

// Errorf records a SeverityError diagnostic.
func (d *Diagnostics) Errorf(phase Phase, pos Pos, symbol, format string, args ...any) {
	d.Add(Diagnostic{Severity: SeverityError, Phase: phase, Pos: pos, Symbol: symbol, Message: fmt.Sprintf(format, args...)})
}

// Fatalf records a SeverityFatal diagnostic.
func (d *Diagnostics) Fatalf(phase Phase, pos Pos, symbol, format string, args ...any) {
	d.Add(Diagnostic{Severity: SeverityFatal, Phase: phase, Pos: pos, Symbol: symbol, Message: fmt.Sprintf(format, args...)})
}

// Items returns every accumulated Diagnostic in reporting order.
func (d *Diagnostics) Items() []Diagnostic {
	return d.items
}

// HasErrors reports whether any Error or Fatal diagnostic was recorded.
func (d *Diagnostics) HasErrors() bool {
	for _, it := range d.items {
		if it.Severity >= SeverityError {
			return true
		}
	}
	return false
}

// HasFatal reports whether any Fatal diagnostic was recorded.
func (d *Diagnostics) HasFatal() bool {
	for _, it := range d.items {
		if it.Severity == SeverityFatal {
			return true
		}
	}
	return false
}

// WorstSeverity returns the highest Severity seen, or SeverityWarning if
// nothing was recorded (used by the driver to pick a process exit code).
func (d *Diagnostics) WorstSeverity() Severity {
	worst := SeverityWarning
	for _, it := range d.items {
		if it.Severity > worst {
			worst = it.Severity
		}
	}
	return worst
}

// Merge appends every item from other onto d, in order.
func (d *Diagnostics) Merge(other *Diagnostics) {
	if other == nil {
		return
	}
	d.items = append(d.items, other.items...)
}

// CountBySeverity returns how many diagnostics of each severity were recorded.
func (d *Diagnostics) CountBySeverity() map[Severity]int {
	out := map[Severity]int{}
	for _, it := range d.items {
		out[it.Severity]++
	}
	return out
}
