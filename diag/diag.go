// Package diag collects compiler diagnostics across all five phases
// into one ordered list, per spec.md 4.5's "all errors funnel through
// a shared Diagnostics collector." Grounded on verify/lint.go's
// []Issue/RunLint accumulation pattern, generalized from a single
// lint pass to every compiler phase and rendered both as plain text
// (spec.md 7) and as a go-pretty table for interactive use.
package diag

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/evochora/evochora/token"
)

// Severity classifies a Diagnostic. Only Error prevents artifact
// emission; Info and Warning are surfaced but non-fatal.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "INFO"
	case Warning:
		return "WARNING"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Diagnostic is one reported compiler finding.
type Diagnostic struct {
	Severity Severity
	Pos      token.Position
	Message  string
}

// String renders a diagnostic as "[SEVERITY] file:line: message" per
// spec.md 7.
func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %s:%d: %s", d.Severity, d.Pos.File, d.Pos.Line, d.Message)
}

// Diagnostics accumulates findings across every compiler phase. A zero
// value is ready to use.
type Diagnostics struct {
	items []Diagnostic
}

// Add appends a diagnostic.
func (d *Diagnostics) Add(sev Severity, pos token.Position, format string, args ...any) {
	d.items = append(d.items, Diagnostic{Severity: sev, Pos: pos, Message: fmt.Sprintf(format, args...)})
}

// Info records a non-fatal informational note.
func (d *Diagnostics) Info(pos token.Position, format string, args ...any) {
	d.Add(Info, pos, format, args...)
}

// Warning records a non-fatal finding.
func (d *Diagnostics) Warning(pos token.Position, format string, args ...any) {
	d.Add(Warning, pos, format, args...)
}

// Error records a fatal finding: its presence blocks artifact emission.
func (d *Diagnostics) Error(pos token.Position, format string, args ...any) {
	d.Add(Error, pos, format, args...)
}

// HasErrors reports whether any diagnostic is at Error severity.
func (d *Diagnostics) HasErrors() bool {
	for _, it := range d.items {
		if it.Severity == Error {
			return true
		}
	}
	return false
}

// All returns every diagnostic recorded so far, in reporting order.
func (d *Diagnostics) All() []Diagnostic {
	return d.items
}

// String renders every diagnostic, one per line.
func (d *Diagnostics) String() string {
	lines := make([]string, len(d.items))
	for i, it := range d.items {
		lines[i] = it.String()
	}
	return strings.Join(lines, "\n")
}

// Table renders the diagnostics as a go-pretty table for interactive
// (non-machine) consumption.
func (d *Diagnostics) Table() string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Severity", "File", "Line", "Message"})
	for _, it := range d.items {
		t.AppendRow(table.Row{it.Severity, it.Pos.File, it.Pos.Line, it.Message})
	}
	return t.Render()
}
