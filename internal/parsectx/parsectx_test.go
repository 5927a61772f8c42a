package parsectx

import (
	"testing"

	"github.com/openmpp/ompc/internal/diag"
)

func TestScopePushPopRestoresEnclosing(t *testing.T) {
	var diags diag.Diagnostics
	c := New(nil, &diags)

	c.Scope().Entity = c.Scope().Entity // no-op, just exercising accessor
	c.PushScope()
	c.Scope().Table = c.Scope().Table
	c.PopScope()

	if len(c.scopes) != 1 {
		t.Fatalf("expected to return to outermost scope, got depth %d", len(c.scopes))
	}
}

func TestPopScopeOnOutermostPanics(t *testing.T) {
	var diags diag.Diagnostics
	c := New(nil, &diags)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected PopScope on outermost scope to panic")
		}
	}()
	c.PopScope()
}

func TestGatherModeRecordsUsesOnlyWhileActive(t *testing.T) {
	var diags diag.Diagnostics
	c := New(nil, &diags)

	c.RecordIdentifierUse("age", Pos{File: "f", Line: 1})
	if len(c.IdentifierUses) != 0 {
		t.Fatalf("expected no uses recorded outside gather mode")
	}

	c.BeginFunction("Person::Start", nil, Pos{File: "f", Line: 2})
	c.RecordIdentifierUse("age", Pos{File: "f", Line: 3})
	c.RecordPointerUse("this", "age", Pos{File: "f", Line: 4})
	c.EndFunction()

	if len(c.IdentifierUses["Person::Start"]) != 1 {
		t.Fatalf("expected 1 identifier use recorded, got %d", len(c.IdentifierUses["Person::Start"]))
	}
	if len(c.PointerUses["Person::Start"]) != 1 {
		t.Fatalf("expected 1 pointer use recorded, got %d", len(c.PointerUses["Person::Start"]))
	}
	if _, ok := c.FunctionIndex["Person::Start"]; !ok {
		t.Fatalf("expected FunctionIndex entry for Person::Start")
	}
}

func TestRecordStreamCallRejectsNonLiteral(t *testing.T) {
	var diags diag.Diagnostics
	c := New([]string{"RandomUniform"}, &diags)

	c.RecordStreamCall("RandomUniform", 0, Pos{File: "f", Line: 1}, false)
	if !diags.HasFatal() {
		t.Fatalf("expected a fatal diagnostic for a non-literal stream argument")
	}
	if len(c.StreamCalls) != 0 {
		t.Fatalf("expected no stream call recorded for a rejected non-literal argument")
	}
}

func TestReportDuplicateStreamsReportsEveryDuplicateTogether(t *testing.T) {
	var diags diag.Diagnostics
	c := New([]string{"RandomUniform"}, &diags)

	c.RecordStreamCall("RandomUniform", 3, Pos{File: "a", Line: 1}, true)
	c.RecordStreamCall("RandomUniform", 3, Pos{File: "b", Line: 2}, true)
	c.RecordStreamCall("RandomUniform", 7, Pos{File: "c", Line: 3}, true)

	c.ReportDuplicateStreams()

	errCount := 0
	for _, item := range diags.Items() {
		if item.Severity == diag.SeverityError {
			errCount++
		}
	}
	if errCount != 2 {
		t.Fatalf("expected one error per duplicate use (2), got %d", errCount)
	}
}

func TestIgnoresStreamCallsToUnconfiguredFunctions(t *testing.T) {
	var diags diag.Diagnostics
	c := New([]string{"RandomUniform"}, &diags)

	c.RecordStreamCall("SomeOtherFunc", 1, Pos{}, true)
	if len(c.StreamCalls) != 0 {
		t.Fatalf("expected unconfigured function call to be ignored")
	}
}
