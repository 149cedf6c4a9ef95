// Command montyc compiles a monty source file to a native executable, or
// drops into an interactive repl (spec.md §6.2; flag surface and
// validation errors grounded on original_source/include/cli.hpp and
// src/cli.cpp, cobra wiring adopted from conneroisu-gix's go.mod).
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/monty-lang/monty/internal/ast"
	"github.com/monty-lang/monty/internal/backend/llvmir"
	"github.com/monty-lang/monty/internal/diag"
	"github.com/monty-lang/monty/internal/driver"
	"github.com/monty-lang/monty/internal/lexer"
	"github.com/monty-lang/monty/internal/lower"
	"github.com/monty-lang/monty/internal/parser"
	"github.com/monty-lang/monty/internal/source"
	montyruntime "github.com/monty-lang/monty/runtime"
)

var (
	outputPath  string
	compileOnly bool
	dumpAST     bool
	dumpTokens  bool
	dumpIR      bool
	runAnon     bool
	ccPath      string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "montyc [source file]",
		Short:        "Compile a monty source file to a native executable",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(args[0])
		},
	}
	root.Flags().StringVarP(&outputPath, "output", "o", "a.out", "output executable path")
	root.Flags().BoolVarP(&compileOnly, "compile-only", "c", false, "compile to an object file only, do not link")
	root.Flags().BoolVar(&dumpAST, "ast", false, "dump the AST for each top-level form")
	root.Flags().BoolVar(&dumpTokens, "tokens", false, "dump every token as it is lexed")
	root.Flags().BoolVar(&dumpIR, "llvm", false, "dump the module's LLVM IR after each form")
	root.Flags().BoolVar(&runAnon, "run", false, "JIT-execute anonymous top-level expressions instead of emitting an object file")
	root.Flags().StringVar(&ccPath, "cc", "clang++", "compiler used to link the runtime into the final executable")
	root.AddCommand(newReplCmd())
	return root
}

func runCompile(srcPath string) error {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("montyc: reading %s: %w", srcPath, err)
	}

	sink := diag.New()
	prec := ast.NewPrecedenceTable()
	lex := lexer.New(source.New(strings.NewReader(string(data))), sink)
	lex.Dump = dumpTokens
	p := parser.New(lex, prec, sink)

	moduleName := strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))

	var d *driver.Driver
	var mod *llvmir.Module
	var jit *llvmir.JIT

	if runAnon {
		jit, err = llvmir.NewJIT(moduleName)
		if err != nil {
			return fmt.Errorf("montyc: %w", err)
		}
		defer jit.Dispose()
		mod = jit.Module
		low := lower.New(mod, llvmir.NewBuilder(), prec, sink)
		d = driver.New(p, low, mod, sink, driver.Options{DumpAST: dumpAST, DumpIR: dumpIR, Run: jit})
	} else {
		mod = llvmir.NewModule(moduleName)
		low := lower.New(mod, llvmir.NewBuilder(), prec, sink)
		d = driver.New(p, low, mod, sink, driver.Options{DumpAST: dumpAST, DumpIR: dumpIR})
	}

	d.Run()
	sink.Print(os.Stderr)
	if sink.HasErrors() {
		return fmt.Errorf("montyc: compilation failed")
	}
	if runAnon {
		return nil
	}
	return emit(mod, moduleName)
}

// emit writes an object file and, unless compileOnly, links it against the
// embedded runtime into outputPath (spec.md §6.4; linking logic lives in
// internal/driver, grounded on original_source/src/driver.cpp's
// linkToRuntime/cleanUp).
func emit(mod *llvmir.Module, moduleName string) error {
	objPath := outputPath + ".o"
	if err := mod.EmitObject(objPath); err != nil {
		return fmt.Errorf("montyc: %w", err)
	}
	if compileOnly {
		return os.Rename(objPath, outputPath)
	}
	defer driver.CleanUp(objPath)

	runtimePath, cleanup, err := writeEmbeddedRuntime(moduleName)
	if err != nil {
		return fmt.Errorf("montyc: %w", err)
	}
	defer cleanup()

	return driver.LinkObject(ccPath, objPath, runtimePath, outputPath)
}

// writeEmbeddedRuntime materializes the embedded runtime C source (see
// runtime.Source) to a temp file, since the external C compiler needs a
// real path to compile against, not an in-process byte slice.
func writeEmbeddedRuntime(moduleName string) (path string, cleanup func(), err error) {
	f, err := os.CreateTemp("", moduleName+"-runtime-*.c")
	if err != nil {
		return "", nil, fmt.Errorf("staging runtime source: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(montyruntime.Source); err != nil {
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("staging runtime source: %w", err)
	}
	return f.Name(), func() { os.Remove(f.Name()) }, nil
}
