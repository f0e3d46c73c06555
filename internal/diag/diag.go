// Package diag collects and renders compiler diagnostics.
package diag

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Severity defines the importance of a diagnostic.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "info"
	case SevWarning:
		return "warning"
	case SevError:
		return "error"
	}
	return "unknown"
}

// Diagnostic is one reported issue. Subject names the part of the design the
// issue is about, e.g. "comb" or "sync sys".
type Diagnostic struct {
	Severity Severity `json:"-"`
	Level    string   `json:"level"`
	Subject  string   `json:"subject,omitempty"`
	Message  string   `json:"message"`
}

// Reporter writes diagnostics as they arrive and counts them by severity.
// It is safe for concurrent use.
type Reporter struct {
	mu     sync.Mutex
	w      io.Writer
	format string
	counts [SevError + 1]int
	colors map[Severity]*color.Color
}

// NewReporter returns a reporter writing to w. format is "text" or "json";
// anything else falls back to text. Text output is coloured only when w is a
// terminal.
func NewReporter(w io.Writer, format string) *Reporter {
	if w == nil {
		w = io.Discard
	}
	if format != "json" {
		format = "text"
	}
	r := &Reporter{
		w:      w,
		format: format,
		colors: map[Severity]*color.Color{
			SevInfo:    color.New(color.FgCyan),
			SevWarning: color.New(color.FgYellow, color.Bold),
			SevError:   color.New(color.FgRed, color.Bold),
		},
	}
	tty := isTerminal(w)
	for _, c := range r.colors {
		if tty {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return r
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Report records and prints d.
func (r *Reporter) Report(d Diagnostic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.Severity <= SevError {
		r.counts[d.Severity]++
	}
	d.Level = d.Severity.String()
	if r.format == "json" {
		data, err := json.Marshal(d)
		if err != nil {
			return
		}
		fmt.Fprintf(r.w, "%s\n", data)
		return
	}
	label := r.colors[d.Severity].Sprint(d.Level)
	if d.Subject != "" {
		fmt.Fprintf(r.w, "%s: %s: %s\n", label, d.Subject, d.Message)
		return
	}
	fmt.Fprintf(r.w, "%s: %s\n", label, d.Message)
}

// Error reports an error about subject.
func (r *Reporter) Error(subject, msg string) {
	r.Report(Diagnostic{Severity: SevError, Subject: subject, Message: msg})
}

// Errorf reports a formatted error about subject.
func (r *Reporter) Errorf(subject, format string, args ...interface{}) {
	r.Error(subject, fmt.Sprintf(format, args...))
}

// Warning reports a warning about subject.
func (r *Reporter) Warning(subject, msg string) {
	r.Report(Diagnostic{Severity: SevWarning, Subject: subject, Message: msg})
}

// Count returns how many diagnostics of severity sev were reported.
func (r *Reporter) Count(sev Severity) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sev > SevError {
		return 0
	}
	return r.counts[sev]
}

// HasErrors reports whether any error was reported.
func (r *Reporter) HasErrors() bool {
	return r.Count(SevError) > 0
}
