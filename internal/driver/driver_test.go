package driver

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monty-lang/monty/internal/ast"
	"github.com/monty-lang/monty/internal/diag"
	"github.com/monty-lang/monty/internal/ir"
	"github.com/monty-lang/monty/internal/lexer"
	"github.com/monty-lang/monty/internal/lower"
	"github.com/monty-lang/monty/internal/parser"
	"github.com/monty-lang/monty/internal/source"
)

// A tiny fake back-end, just enough to drive the loop and exercise the
// dump/run hooks; see internal/lower's own fake for the fuller rationale.

type fakeValue struct{}

func (v *fakeValue) IsNil() bool { return v == nil }

type fakeBlock struct {
	name string
	fn   *fakeFunction
}

func (b *fakeBlock) Parent() ir.Function { return b.fn }

type fakeFunction struct {
	name   string
	params int
	blocks []*fakeBlock
}

func (f *fakeFunction) Name() string    { return f.name }
func (f *fakeFunction) ParamCount() int { return f.params }
func (f *fakeFunction) Param(int) ir.Value {
	return &fakeValue{}
}
func (f *fakeFunction) EntryBlock() ir.Block {
	if len(f.blocks) == 0 {
		return nil
	}
	return f.blocks[0]
}
func (f *fakeFunction) IsDefined() bool { return len(f.blocks) > 0 }

type fakeModule struct {
	funcs map[string]*fakeFunction
}

func newFakeModule() *fakeModule { return &fakeModule{funcs: map[string]*fakeFunction{}} }

func (m *fakeModule) DeclareFunction(name string, paramCount int) ir.Function {
	if fn, ok := m.funcs[name]; ok {
		return fn
	}
	fn := &fakeFunction{name: name, params: paramCount}
	m.funcs[name] = fn
	return fn
}
func (m *fakeModule) NamedFunction(name string) ir.Function {
	if fn, ok := m.funcs[name]; ok {
		return fn
	}
	return nil
}
func (m *fakeModule) AppendBlock(fn ir.Function, name string) ir.Block {
	ff := fn.(*fakeFunction)
	b := &fakeBlock{name: name, fn: ff}
	ff.blocks = append(ff.blocks, b)
	return b
}
func (m *fakeModule) Verify(fn ir.Function) error { return nil }
func (m *fakeModule) Erase(fn ir.Function)        { delete(m.funcs, fn.Name()) }

// Dump satisfies the driver's optional IRDumper interface.
func (m *fakeModule) Dump() string {
	return fmt.Sprintf("; %d functions", len(m.funcs))
}

type fakeBuilder struct{}

func (b *fakeBuilder) SetInsertPoint(ir.Block)                        {}
func (b *fakeBuilder) SetInsertPointBefore(ir.Block)                  {}
func (b *fakeBuilder) ConstFloat(float64) ir.Value                    { return &fakeValue{} }
func (b *fakeBuilder) Alloca(string) ir.Value                         { return &fakeValue{} }
func (b *fakeBuilder) Load(ir.Value, string) ir.Value                 { return &fakeValue{} }
func (b *fakeBuilder) Store(ir.Value, ir.Value)                       {}
func (b *fakeBuilder) FAdd(ir.Value, ir.Value, string) ir.Value       { return &fakeValue{} }
func (b *fakeBuilder) FSub(ir.Value, ir.Value, string) ir.Value       { return &fakeValue{} }
func (b *fakeBuilder) FMul(ir.Value, ir.Value, string) ir.Value       { return &fakeValue{} }
func (b *fakeBuilder) FCmpULT(ir.Value, ir.Value, string) ir.Value    { return &fakeValue{} }
func (b *fakeBuilder) FCmpONE(ir.Value, ir.Value, string) ir.Value    { return &fakeValue{} }
func (b *fakeBuilder) UIToFP(ir.Value, string) ir.Value               { return &fakeValue{} }
func (b *fakeBuilder) Br(ir.Block)                                    {}
func (b *fakeBuilder) CondBr(ir.Value, ir.Block, ir.Block)            {}
func (b *fakeBuilder) Phi([]ir.Value, []ir.Block, string) ir.Value    { return &fakeValue{} }
func (b *fakeBuilder) Call(fn ir.Function, args []ir.Value, name string) ir.Value {
	return &fakeValue{}
}
func (b *fakeBuilder) Ret(ir.Value) {}

// fakeRunner records every anonymous expression it was asked to evaluate.
type fakeRunner struct{ calls int }

func (r *fakeRunner) RunAnon(fn ir.Function) (float64, error) {
	r.calls++
	return 42, nil
}

func newDriver(t *testing.T, src string, opt Options) (*Driver, *diag.Sink, *bytes.Buffer) {
	t.Helper()
	sink := diag.New()
	prec := ast.NewPrecedenceTable()
	l := lexer.New(source.New(strings.NewReader(src)), sink)
	p := parser.New(l, prec, sink)
	mod := newFakeModule()
	low := lower.New(mod, &fakeBuilder{}, prec, sink)

	var out bytes.Buffer
	opt.Out = &out
	return New(p, low, mod, sink, opt), sink, &out
}

func TestDriver_DefinitionThenCall(t *testing.T) {
	d, sink, out := newDriver(t, "fn square(x) x*x; square(3);", Options{})
	d.Run()
	assert.False(t, sink.HasErrors())
	assert.Contains(t, out.String(), "Read function definition: square")
	assert.Contains(t, out.String(), "Read top-level expression: "+ast.AnonName)
}

func TestDriver_ExternDumped(t *testing.T) {
	d, sink, out := newDriver(t, "using cos(x);", Options{})
	d.Run()
	assert.False(t, sink.HasErrors())
	assert.Contains(t, out.String(), "Read extern: cos")
}

func TestDriver_SemicolonsIgnored(t *testing.T) {
	d, sink, _ := newDriver(t, ";;; fn f(x) x;;;", Options{})
	d.Run()
	assert.False(t, sink.HasErrors())
}

func TestDriver_RecoversFromParseError(t *testing.T) {
	d, sink, out := newDriver(t, "fn (x) x; fn ok(x) x;", Options{})
	d.Run()
	require.True(t, sink.HasErrors())
	assert.Contains(t, out.String(), "Read function definition: ok")
}

func TestDriver_RunEvaluatesAnonymousExpressions(t *testing.T) {
	runner := &fakeRunner{}
	d, sink, out := newDriver(t, "1 + 2;", Options{Run: runner})
	d.Run()
	assert.False(t, sink.HasErrors())
	assert.Equal(t, 1, runner.calls)
	assert.Contains(t, out.String(), "42")
}

func TestDriver_DumpIRIncludesModuleText(t *testing.T) {
	d, sink, out := newDriver(t, "fn f(x) x;", Options{DumpIR: true})
	d.Run()
	assert.False(t, sink.HasErrors())
	assert.Contains(t, out.String(), "; 1 functions")
}
