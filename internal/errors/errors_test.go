package errors

import (
	"strings"
	"testing"
)

func TestFormatMatchesWireShape(t *testing.T) {
	d := Diagnostic{
		Severity: SeverityError,
		File:     "a.es",
		Line:     3,
		Column:   5,
		Source:   "  x = y +",
		Message:  "unexpected end of expression",
	}
	got := d.Format("ejsc")
	want := "ejsc: a.es: 3: error: unexpected end of expression\n"
	if !strings.HasPrefix(got, want) {
		t.Fatalf("got %q, want prefix %q", got, want)
	}
	lines := strings.Split(got, "\n")
	if len(lines) < 3 {
		t.Fatalf("expected source+caret lines, got %q", got)
	}
	caret := lines[2]
	if !strings.HasSuffix(caret, "^") {
		t.Fatalf("expected caret line to end in ^, got %q", caret)
	}
}

func TestFormatWithoutLine(t *testing.T) {
	d := Diagnostic{Severity: SeverityFatal, File: "a.es", Message: "out of memory"}
	got := d.Format("ejsc")
	want := "ejsc: a.es: 0: fatal error: out of memory\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestStatusCapsAccumulation(t *testing.T) {
	var st Status
	for i := 0; i < MaxAccumulated+10; i++ {
		st.Add(Diagnostic{Severity: SeverityError, Message: "e"})
	}
	if len(st.Diagnostics) != MaxAccumulated {
		t.Fatalf("expected %d accumulated diagnostics, got %d", MaxAccumulated, len(st.Diagnostics))
	}
	if st.Errors != MaxAccumulated+10 {
		t.Fatalf("expected full error count to keep incrementing, got %d", st.Errors)
	}
}

func TestStatusFatalAlwaysSurfaces(t *testing.T) {
	var st Status
	for i := 0; i < MaxAccumulated+5; i++ {
		st.Add(Diagnostic{Severity: SeverityError, Message: "e"})
	}
	st.Add(Diagnostic{Severity: SeverityFatal, Message: "boom"})
	last := st.Diagnostics[len(st.Diagnostics)-1]
	if last.Severity != SeverityFatal {
		t.Fatalf("expected fatal diagnostic to surface past the cap, got %+v", last)
	}
}

func TestNoOut(t *testing.T) {
	var st Status
	if st.NoOut() {
		t.Fatalf("expected NoOut false with no errors")
	}
	st.Add(Diagnostic{Severity: SeverityWarning, Message: "w"})
	if st.NoOut() {
		t.Fatalf("warnings alone should not suppress output")
	}
	st.Add(Diagnostic{Severity: SeverityError, Message: "e"})
	if !st.NoOut() {
		t.Fatalf("expected NoOut true after an error")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	diags := []Diagnostic{
		{Severity: SeverityError, File: "a.es", Line: 1, Column: 2, Message: "bad"},
		{Severity: SeverityWarning, File: "b.es", Line: 5, Column: 1, Message: "meh"},
	}
	doc, err := ToJSON(diags)
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	got := FromJSON(doc)
	if len(got) != 2 {
		t.Fatalf("expected 2 diagnostics round-tripped, got %d", len(got))
	}
	if got[0].File != "a.es" || got[1].File != "b.es" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}
