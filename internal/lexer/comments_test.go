package lexer

import "testing"

func TestParseDirectiveLabel(t *testing.T) {
	c := newComments()
	c.recordLine(Pos{File: "m.mpp", Line: 5}, "LABEL(Person.alive, EN) Whether the person is alive")

	if len(c.Directives) != 1 {
		t.Fatalf("expected 1 directive, got %d", len(c.Directives))
	}
	d := c.Directives[0]
	if d.Kind != DirectiveLabel || d.Symbol != "Person::alive" || d.Lang != "EN" {
		t.Fatalf("unexpected directive: %+v", d)
	}
	if d.Text != "Whether the person is alive" {
		t.Fatalf("unexpected text: %q", d.Text)
	}
}

func TestParseDirectiveName(t *testing.T) {
	c := newComments()
	c.recordLine(Pos{File: "m.mpp", Line: 8}, "NAME(Person.years_employed) yrs_emp")

	if len(c.Directives) != 1 {
		t.Fatalf("expected 1 directive, got %d", len(c.Directives))
	}
	d := c.Directives[0]
	if d.Kind != DirectiveName || d.Symbol != "Person::years_employed" || d.Text != "yrs_emp" {
		t.Fatalf("unexpected directive: %+v", d)
	}
}

func TestParseDirectiveNoteBlockOnly(t *testing.T) {
	c := newComments()
	// NOTE in a line comment is not recognized.
	c.recordLine(Pos{File: "m.mpp", Line: 1}, "NOTE(Person.age, EN) ignored in line comments")
	if len(c.Directives) != 0 {
		t.Fatalf("expected NOTE to be ignored in a line comment, got %+v", c.Directives)
	}

	c.recordBlock(Pos{File: "m.mpp", Line: 2}, "NOTE(Person.age, EN) detailed note text")
	if len(c.Directives) != 1 || c.Directives[0].Kind != DirectiveNote {
		t.Fatalf("expected NOTE directive from block comment, got %+v", c.Directives)
	}
}

func TestNormalizeSymbolRef(t *testing.T) {
	cases := map[string]string{
		"Person.age": "Person::age",
		"Person":     "Person",
		"":           "",
	}
	for in, want := range cases {
		if got := normalizeSymbolRef(in); got != want {
			t.Fatalf("normalizeSymbolRef(%q) = %q, want %q", in, got, want)
		}
	}
}

// quoteNumber parses a numeric language code (e.g. a raw LCID instead of
// "EN") and rejects a non-numeric one.
func TestQuoteNumber(t *testing.T) {
	n, ok := quoteNumber(" 1033 ")
	if !ok || n != 1033 {
		t.Fatalf("quoteNumber(1033) = (%d, %v), want (1033, true)", n, ok)
	}
	if _, ok := quoteNumber("EN"); ok {
		t.Fatalf("quoteNumber(EN) should fail")
	}
}
