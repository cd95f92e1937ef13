package diag

import (
	"strings"
	"testing"
)

func span(line, col int) Span {
	return Span{Start: Position{Line: line, Column: col}}
}

func TestDiagnosticError(t *testing.T) {
	d := Diagnostic{Severity: SeverityError, Span: span(3, 7), Message: "unexpected token"}
	got := d.Error()
	want := "3:7: error: unexpected token"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestDiagnosticErrorNoSpan(t *testing.T) {
	d := Diagnostic{Severity: SeverityWarning, Message: "unused variable 'x'"}
	got := d.Error()
	want := "warning: unused variable 'x'"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestFormatWithContext(t *testing.T) {
	source := "fn main() {\n    let x = ;\n}"
	d := Diagnostic{Severity: SeverityError, Span: span(2, 13), Message: "expected expression"}

	got := d.FormatWithContext(source)

	if !strings.Contains(got, "error: expected expression") {
		t.Errorf("missing message in:\n%s", got)
	}
	if !strings.Contains(got, "--> line 2:13") {
		t.Errorf("missing location in:\n%s", got)
	}
	if !strings.Contains(got, "let x = ;") {
		t.Errorf("missing source line in:\n%s", got)
	}
	if !strings.Contains(got, "^") {
		t.Errorf("missing caret in:\n%s", got)
	}
}

func TestFormatWithContextCaretColumn(t *testing.T) {
	source := "let y = 1 +"
	d := Diagnostic{Severity: SeverityError, Span: span(1, 11), Message: "expected expression"}

	got := d.FormatWithContext(source)

	// The caret line is "   | " followed by col-1 spaces and "^".
	var caretLine string
	for _, line := range strings.Split(got, "\n") {
		if strings.Contains(line, "^") {
			caretLine = line
		}
	}
	if caretLine == "" {
		t.Fatalf("no caret line in:\n%s", got)
	}
	wantCaret := "   | " + strings.Repeat(" ", 10) + "^"
	if caretLine != wantCaret {
		t.Errorf("caret line = %q, want %q", caretLine, wantCaret)
	}
}

func TestFormatWithContextOutOfRange(t *testing.T) {
	d := Diagnostic{Severity: SeverityError, Span: span(99, 1), Message: "oops"}
	got := d.FormatWithContext("one line only")
	if got != d.Error() {
		t.Errorf("out-of-range line should fall back to Error(), got %q", got)
	}
}

func TestListAccumulation(t *testing.T) {
	var l List
	l.AddWarning(span(1, 1), "first")
	if l.HasErrors() {
		t.Error("warnings alone should not report HasErrors")
	}
	l.AddError(span(2, 5), "second")
	l.AddErrorf(span(3, 1), "third %d", 42)

	if l.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", l.Len())
	}
	if !l.HasErrors() {
		t.Error("HasErrors() = false after AddError")
	}
	if got := l.Errors().Len(); got != 2 {
		t.Errorf("Errors().Len() = %d, want 2", got)
	}
	if l[2].Message != "third 42" {
		t.Errorf("formatted message = %q", l[2].Message)
	}
}

func TestListOrderPreserved(t *testing.T) {
	var l List
	msgs := []string{"a", "b", "c", "d"}
	for i, m := range msgs {
		l.AddError(span(i+1, 1), m)
	}
	for i, m := range msgs {
		if l[i].Message != m {
			t.Errorf("diagnostic %d = %q, want %q", i, l[i].Message, m)
		}
	}
}

func TestListError(t *testing.T) {
	var l List
	l.AddError(span(1, 2), "bad thing")
	if got := l.Error(); got != "1:2: error: bad thing" {
		t.Errorf("single-element Error() = %q", got)
	}
	l.AddError(span(2, 1), "another")
	if got := l.Error(); !strings.Contains(got, "and 1 more") {
		t.Errorf("multi-element Error() = %q", got)
	}
}

func TestFormatAll(t *testing.T) {
	source := "let a = 1;\nlet b = ;"
	var l List
	l.AddError(span(2, 9), "expected expression")
	l.AddWarning(span(1, 5), "unused variable 'a'")

	out := l.FormatAll(source)
	if !strings.Contains(out, "error: expected expression") {
		t.Errorf("missing error in:\n%s", out)
	}
	if !strings.Contains(out, "warning: unused variable 'a'") {
		t.Errorf("missing warning in:\n%s", out)
	}
}
