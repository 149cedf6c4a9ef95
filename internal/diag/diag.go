// Package diag implements the diagnostic sink shared by the lexer, parser,
// and lowering pass. It collects errors tagged with a source location and
// never aborts the pipeline itself — callers decide how to recover.
package diag

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/monty-lang/monty/internal/token"
)

// Error is one recorded diagnostic.
type Error struct {
	Message string
	Loc     token.SourceLoc
}

// Sink accumulates errors in the order they were reported.
type Sink struct {
	errors []Error
}

// New returns an empty Sink.
func New() *Sink {
	return &Sink{}
}

// Report records a diagnostic at loc. It does not print or abort.
func (s *Sink) Report(loc token.SourceLoc, format string, args ...interface{}) {
	s.errors = append(s.errors, Error{
		Message: fmt.Sprintf(format, args...),
		Loc:     loc,
	})
}

// HasErrors reports whether any diagnostics have been recorded.
func (s *Sink) HasErrors() bool {
	return len(s.errors) > 0
}

// Errors returns the recorded diagnostics in insertion order.
func (s *Sink) Errors() []Error {
	return s.errors
}

// Print writes every recorded diagnostic to w as "Error at <line>:<col>:
// <message>", in insertion order. Output is colorized red when w is a
// terminal.
func (s *Sink) Print(w io.Writer) {
	red := color.New(color.FgRed)
	red.DisableColor()
	if f, ok := w.(interface{ Fd() uintptr }); ok && isatty.IsTerminal(f.Fd()) {
		red.EnableColor()
	}

	for _, e := range s.errors {
		red.Fprintf(w, "Error at %d:%d: %s\n", e.Loc.Line, e.Loc.Col, e.Message)
	}
}
