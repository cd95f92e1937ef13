package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pterm/pterm"

	"github.com/gogpu/wgslc"
	"github.com/gogpu/wgslc/diag"
	"github.com/gogpu/wgslc/ir"
)

var (
	errorStyle   = pterm.NewStyle(pterm.FgRed, pterm.Bold)
	warningStyle = pterm.NewStyle(pterm.FgYellow, pterm.Bold)
	noteStyle    = pterm.NewStyle(pterm.FgCyan)
	headerStyle  = pterm.NewStyle(pterm.FgLightGreen, pterm.Bold)
	dimStyle     = pterm.NewStyle(pterm.FgGray)
)

func printError(msg string) {
	fmt.Fprintln(os.Stderr, errorStyle.Sprint("error")+": "+msg)
}

// reportFailure prints a failed compile. CompileError carries the whole
// diagnostic batch with source context; anything else prints as a plain
// error line.
func reportFailure(path string, err error) {
	var ce *wgslc.CompileError
	if !errors.As(err, &ce) {
		printError(fmt.Sprintf("%s: %v", path, err))
		return
	}
	printDiagnostics(path, ce.Source, ce.Diagnostics)
	errs := len(ce.Diagnostics.Errors())
	fmt.Fprintln(os.Stderr)
	fmt.Fprintf(os.Stderr, "%s: %d error(s)\n", errorStyle.Sprint("compilation failed"), errs)
}

func printDiagnostics(path, source string, list diag.List) {
	for _, d := range list {
		style := noteStyle
		switch d.Severity {
		case diag.SeverityError:
			style = errorStyle
		case diag.SeverityWarning:
			style = warningStyle
		}
		loc := path
		if d.Span.Start.Line > 0 {
			loc = fmt.Sprintf("%s:%d:%d", path, d.Span.Start.Line, d.Span.Start.Column)
		}
		fmt.Fprintf(os.Stderr, "%s %s: %s\n",
			dimStyle.Sprint(loc+":"), style.Sprint(d.Severity.String()), d.Message)
		if ctx := contextLines(source, d); ctx != "" {
			fmt.Fprintln(os.Stderr, ctx)
		}
	}
}

// contextLines renders the offending source line with a caret under the
// diagnostic's column, or "" when the span has no usable location.
func contextLines(source string, d diag.Diagnostic) string {
	lineNum := d.Span.Start.Line
	if source == "" || lineNum == 0 {
		return ""
	}
	lines := strings.Split(source, "\n")
	if lineNum < 1 || lineNum > len(lines) {
		return ""
	}
	line := lines[lineNum-1]
	col := d.Span.Start.Column
	if col < 1 {
		col = 1
	}
	if col > len(line)+1 {
		col = len(line) + 1
	}
	return fmt.Sprintf("%3d| %s\n   | %s^", lineNum, line, strings.Repeat(" ", col-1))
}

func printSummary(path string, result *wgslc.Result) {
	fmt.Printf("%s %s: %d entry point(s)\n",
		headerStyle.Sprint("ok"), path, len(result.Reflection.EntryPoints))

	for _, ep := range result.Reflection.EntryPoints {
		fmt.Printf("  %s %s", ep.Stage, pterm.Bold.Sprint(ep.Name))
		if ep.Stage == ir.StageCompute {
			fmt.Printf(" @workgroup_size(%d, %d, %d)", ep.WorkgroupSize[0], ep.WorkgroupSize[1], ep.WorkgroupSize[2])
		}
		fmt.Println()
		for _, b := range ep.Bindings {
			fmt.Printf("    %s %s: %s\n",
				dimStyle.Sprintf("@group(%d) @binding(%d)", b.Group, b.Binding), b.Name, b.Kind)
		}
	}

	if len(result.Renames) > 0 {
		fmt.Printf("  %d declaration(s) renamed\n", len(result.Renames))
	}
}
