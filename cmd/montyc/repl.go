package main

import (
	"fmt"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/monty-lang/monty/internal/ast"
	"github.com/monty-lang/monty/internal/backend/llvmir"
	"github.com/monty-lang/monty/internal/diag"
	"github.com/monty-lang/monty/internal/driver"
	"github.com/monty-lang/monty/internal/lexer"
	"github.com/monty-lang/monty/internal/lower"
	"github.com/monty-lang/monty/internal/parser"
	"github.com/monty-lang/monty/internal/source"
)

// Colors mirror akashmaji946-go-mix/repl/repl.go's palette: red for
// errors, yellow for results, cyan for session chrome.
var (
	redColor    = color.New(color.FgRed)
	yellowColor = color.New(color.FgYellow)
	cyanColor   = color.New(color.FgCyan)
)

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive read-eval-print loop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl()
		},
	}
}

// runRepl evaluates one line at a time against a single, long-lived JIT
// module, so definitions and installed operators from earlier lines
// remain visible to later ones -- the same accumulate-across-forms model
// internal/driver uses for a whole file, just fed one line at a time.
func runRepl() error {
	rl, err := readline.New("monty> ")
	if err != nil {
		return fmt.Errorf("montyc: starting repl: %w", err)
	}
	defer rl.Close()

	cyanColor.Println("monty repl -- Ctrl+D to exit")

	jit, err := llvmir.NewJIT("repl")
	if err != nil {
		return fmt.Errorf("montyc: %w", err)
	}
	defer jit.Dispose()

	prec := ast.NewPrecedenceTable()
	low := lower.New(jit.Module, llvmir.NewBuilder(), prec, diag.New())

	for {
		line, err := rl.Readline()
		if err != nil {
			fmt.Println()
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		rl.SaveHistory(line)
		evalLine(jit, low, prec, line)
	}
}

func evalLine(jit *llvmir.JIT, low *lower.Lowerer, prec *ast.PrecedenceTable, line string) {
	sink := diag.New()
	low.SetSink(sink)

	lex := lexer.New(source.New(strings.NewReader(line)), sink)
	p := parser.New(lex, prec, sink)

	d := driver.New(p, low, jit.Module, sink, driver.Options{
		Run: jit,
		Out: yellowWriter{},
	})
	d.Run()

	for _, e := range sink.Errors() {
		redColor.Printf("Error at %d:%d: %s\n", e.Loc.Line, e.Loc.Col, e.Message)
	}
}

// yellowWriter routes the driver's per-form dump/evaluation output through
// the yellow color akashmaji946-go-mix's repl.go uses for results.
type yellowWriter struct{}

func (yellowWriter) Write(p []byte) (int, error) {
	yellowColor.Print(string(p))
	return len(p), nil
}
