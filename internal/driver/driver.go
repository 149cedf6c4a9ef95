// Package driver implements the top-level processing loop (spec.md §4.8):
// read one top-level form, lower it, report or recover from failure, and
// repeat until the token stream is exhausted.
package driver

import (
	"fmt"
	"io"
	"os"

	"github.com/davecgh/go-spew/spew"

	"github.com/monty-lang/monty/internal/ast"
	"github.com/monty-lang/monty/internal/diag"
	"github.com/monty-lang/monty/internal/ir"
	"github.com/monty-lang/monty/internal/lower"
	"github.com/monty-lang/monty/internal/parser"
	"github.com/monty-lang/monty/internal/token"
)

// IRDumper is implemented by back-ends that can render their module as
// text, for the per-form debug dump (SPEC_FULL.md §3; extends
// original_source/src/driver.cpp's fnIR->print(llvm::errs()) from
// definitions-only to externs too).
type IRDumper interface {
	Dump() string
}

// Runner is implemented by back-ends that can JIT-execute a zero-argument
// function immediately, for montyc --run / repl (DESIGN.md Open Question
// 1: AOT is the primary mode, JIT the kept secondary one).
type Runner interface {
	RunAnon(fn ir.Function) (float64, error)
}

// Options controls side effects the Driver performs as it lowers forms.
// Token dumping is the lexer's own concern (Lexer.Dump); it is not
// repeated here.
type Options struct {
	DumpAST bool
	DumpIR  bool
	// Run, if non-nil, JIT-executes every anonymous top-level expression
	// and prints its result.
	Run Runner
	// Out receives dumps and evaluation results; defaults to os.Stderr.
	Out io.Writer
}

// Driver owns one parse/lower session over a single token stream.
type Driver struct {
	p    *parser.Parser
	low  *lower.Lowerer
	mod  ir.Module
	sink *diag.Sink
	opt  Options
}

// New creates a Driver. p and low must share the same precedence table
// (spec.md §4.7) and sink.
func New(p *parser.Parser, low *lower.Lowerer, mod ir.Module, sink *diag.Sink, opt Options) *Driver {
	if opt.Out == nil {
		opt.Out = os.Stderr
	}
	return &Driver{p: p, low: low, mod: mod, sink: sink, opt: opt}
}

// Run processes every top-level form until the token stream ends,
// mirroring original_source/src/driver.cpp's process/handle* dispatch.
func (d *Driver) Run() {
	for {
		cur := d.p.Cur()
		switch {
		case cur.Kind == token.End:
			return
		case cur.Kind == token.Char && cur.Ch == ';':
			// Bare top-level semicolons are ignored (original driver.cpp's
			// "case ';': parser.getNextToken(); break;").
			d.p.Synchronize()
		default:
			d.handleTopLevel()
		}
	}
}

func (d *Driver) handleTopLevel() {
	fn, proto, ok := d.p.ParseTopLevel()
	if !ok {
		d.p.Synchronize()
		return
	}

	switch {
	case proto != nil:
		d.handleExtern(proto)
	case fn.Prototype.Name == ast.AnonName:
		d.handleTopLevelExpr(fn)
	default:
		d.handleDefinition(fn)
	}
}

func (d *Driver) handleExtern(proto *ast.Prototype) {
	d.dumpAST(proto)
	fnIR, ok := d.low.LowerExtern(proto)
	if !ok {
		return
	}
	d.dumpForm("Read extern", fnIR)
}

func (d *Driver) handleDefinition(fn *ast.Function) {
	d.dumpAST(fn)
	fnIR, ok := d.low.LowerFunction(fn)
	if !ok {
		return
	}
	d.dumpForm("Read function definition", fnIR)
}

func (d *Driver) handleTopLevelExpr(fn *ast.Function) {
	d.dumpAST(fn)
	fnIR, ok := d.low.LowerFunction(fn)
	if !ok {
		return
	}
	d.dumpForm("Read top-level expression", fnIR)

	if d.opt.Run == nil {
		return
	}
	result, err := d.opt.Run.RunAnon(fnIR)
	// Remove the evaluated function so the next top-level expression can
	// reuse the reserved anonymous name in the same module.
	d.mod.Erase(fnIR)
	if err != nil {
		fmt.Fprintf(d.opt.Out, "evaluation failed: %v\n", err)
		return
	}
	fmt.Fprintln(d.opt.Out, result)
}

func (d *Driver) dumpForm(label string, fnIR ir.Function) {
	fmt.Fprintf(d.opt.Out, "%s: %s\n", label, fnIR.Name())
	if !d.opt.DumpIR {
		return
	}
	if dumper, ok := d.mod.(IRDumper); ok {
		fmt.Fprintln(d.opt.Out, dumper.Dump())
	}
}

func (d *Driver) dumpAST(v interface{}) {
	if d.opt.DumpAST {
		spew.Fdump(d.opt.Out, v)
	}
}
