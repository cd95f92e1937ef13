// Package diag provides structured, source-located compiler diagnostics.
//
// Every stage of the compiler (lexer, parser, resolver) reports problems
// as Diagnostic records appended to a List. Diagnostics are accumulated
// rather than returned as errors so a single compile can report every
// independent problem in one batch.
package diag

import (
	"fmt"
	"strings"
)

// Severity classifies a diagnostic.
type Severity uint8

const (
	SeverityNote Severity = iota
	SeverityWarning
	SeverityError
)

// String returns the lowercase severity name.
func (s Severity) String() string {
	switch s {
	case SeverityNote:
		return "note"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Position represents a position in source code.
// Offset is the byte offset from the start of the source.
type Position struct {
	Line   int
	Column int
	Offset int
}

// Span represents a source code location span.
type Span struct {
	Start Position
	End   Position
}

// Diagnostic is a single compiler message with severity and location.
type Diagnostic struct {
	Severity Severity
	Span     Span
	Message  string
}

// Error implements the error interface.
func (d Diagnostic) Error() string {
	if d.Span.Start.Line == 0 {
		return fmt.Sprintf("%s: %s", d.Severity, d.Message)
	}
	return fmt.Sprintf("%d:%d: %s: %s", d.Span.Start.Line, d.Span.Start.Column, d.Severity, d.Message)
}

// FormatWithContext renders the diagnostic with the offending source line
// and a caret pointing at the error column.
func (d Diagnostic) FormatWithContext(source string) string {
	if source == "" || d.Span.Start.Line == 0 {
		return d.Error()
	}

	lines := strings.Split(source, "\n")
	lineNum := d.Span.Start.Line
	if lineNum < 1 || lineNum > len(lines) {
		return d.Error()
	}

	line := lines[lineNum-1]
	col := d.Span.Start.Column
	if col < 1 {
		col = 1
	}
	if col > len(line)+1 {
		col = len(line) + 1
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s\n", d.Severity, d.Message)
	fmt.Fprintf(&sb, "  --> line %d:%d\n", lineNum, col)
	sb.WriteString("   |\n")
	fmt.Fprintf(&sb, "%3d| %s\n", lineNum, line)
	fmt.Fprintf(&sb, "   | %s^\n", strings.Repeat(" ", col-1))

	return sb.String()
}

// List is an ordered collection of diagnostics.
type List []Diagnostic

// Error implements the error interface for use as a combined failure value.
func (l List) Error() string {
	errs := l.errorCount()
	switch {
	case len(l) == 0:
		return "no diagnostics"
	case len(l) == 1:
		return l[0].Error()
	default:
		return fmt.Sprintf("%s (and %d more diagnostics, %d errors total)", l[0].Error(), len(l)-1, errs)
	}
}

func (l List) errorCount() int {
	n := 0
	for _, d := range l {
		if d.Severity == SeverityError {
			n++
		}
	}
	return n
}

// Add appends a diagnostic.
func (l *List) Add(severity Severity, span Span, message string) {
	*l = append(*l, Diagnostic{Severity: severity, Span: span, Message: message})
}

// AddError appends an error-severity diagnostic.
func (l *List) AddError(span Span, message string) {
	l.Add(SeverityError, span, message)
}

// AddErrorf appends an error-severity diagnostic with a formatted message.
func (l *List) AddErrorf(span Span, format string, args ...any) {
	l.Add(SeverityError, span, fmt.Sprintf(format, args...))
}

// AddWarning appends a warning-severity diagnostic.
func (l *List) AddWarning(span Span, message string) {
	l.Add(SeverityWarning, span, message)
}

// HasErrors reports whether any error-severity diagnostic was recorded.
func (l List) HasErrors() bool {
	for _, d := range l {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Len returns the number of diagnostics.
func (l List) Len() int {
	return len(l)
}

// Errors returns only the error-severity diagnostics.
func (l List) Errors() List {
	var out List
	for _, d := range l {
		if d.Severity == SeverityError {
			out = append(out, d)
		}
	}
	return out
}

// FormatAll renders every diagnostic with source context.
func (l List) FormatAll(source string) string {
	var sb strings.Builder
	for i, d := range l {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(d.FormatWithContext(source))
	}
	return sb.String()
}
