package diag

import "testing"

func TestDiagnosticsWorstSeverity(t *testing.T) {
	var d Diagnostics
	d.Warnf(PhaseParse, Pos{File: "model.mpp", Line: 3}, "Person.alive", "unused attribute")
	if d.WorstSeverity() != SeverityWarning {
		t.Fatalf("expected SeverityWarning, got %v", d.WorstSeverity())
	}
	if d.HasErrors() {
		t.Fatalf("warnings alone must not count as errors")
	}

	d.Errorf(PhaseResolve, Pos{File: "model.mpp", Line: 10}, "Person.age", "unresolved type")
	if !d.HasErrors() {
		t.Fatalf("expected HasErrors true after Errorf")
	}
	if d.WorstSeverity() != SeverityError {
		t.Fatalf("expected SeverityError, got %v", d.WorstSeverity())
	}

	d.Fatalf(PhaseCodegenSQL, Pos{}, "", "digest collision")
	if !d.HasFatal() {
		t.Fatalf("expected HasFatal true after Fatalf")
	}
	if d.WorstSeverity() != SeverityFatal {
		t.Fatalf("expected SeverityFatal, got %v", d.WorstSeverity())
	}

	counts := d.CountBySeverity()
	if counts[SeverityWarning] != 1 || counts[SeverityError] != 1 || counts[SeverityFatal] != 1 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}

func TestDiagnosticErrorString(t *testing.T) {
	d := Diagnostic{
		Severity: SeverityError,
		Phase:    PhaseResolve,
		Pos:      Pos{File: "person.mpp", Line: 42},
		Symbol:   "Person::age",
		Message:  "unresolved type",
	}
	got := d.Error()
	want := "ERROR resolve person.mpp:42 [Person::age]: unresolved type"
	if got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestMerge(t *testing.T) {
	var a, b Diagnostics
	a.Warnf(PhaseLex, Pos{}, "", "a")
	b.Errorf(PhaseLex, Pos{}, "", "b")
	a.Merge(&b)
	if len(a.Items()) != 2 {
		t.Fatalf("expected 2 items after merge, got %d", len(a.Items()))
	}
}
