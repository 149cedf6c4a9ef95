// Package llvmir is the one concrete internal/ir implementation shipped in
// this repository: it constructs real LLVM IR via github.com/ajsnow/llvm,
// the teacher's own binding, and can either JIT an anonymous expression
// immediately or emit an object file for the driver to link (spec.md §6.4).
package llvmir

import (
	"fmt"

	"github.com/ajsnow/llvm"

	"github.com/monty-lang/monty/internal/ir"
)

// Value wraps an llvm.Value behind the ir.Value contract.
type Value struct{ v llvm.Value }

func (v Value) IsNil() bool { return v.v.IsNil() }

func unwrap(v ir.Value) llvm.Value {
	if v == nil {
		return llvm.Value{}
	}
	return v.(Value).v
}

func unwrapAll(vs []ir.Value) []llvm.Value {
	out := make([]llvm.Value, len(vs))
	for i, v := range vs {
		out[i] = unwrap(v)
	}
	return out
}

// Block wraps an llvm.BasicBlock.
type Block struct {
	blk llvm.BasicBlock
	fn  *Function
}

func (b *Block) Parent() ir.Function { return b.fn }

// Function wraps an llvm.Value known to be a function.
type Function struct{ val llvm.Value }

func (f *Function) Name() string    { return f.val.Name() }
func (f *Function) ParamCount() int { return f.val.ParamsCount() }
func (f *Function) Param(i int) ir.Value {
	return Value{f.val.Params()[i]}
}
func (f *Function) EntryBlock() ir.Block {
	entry := f.val.EntryBasicBlock()
	if entry.IsNil() {
		return nil
	}
	return &Block{blk: entry, fn: f}
}
func (f *Function) IsDefined() bool { return f.val.BasicBlocksCount() != 0 }

// Builder wraps an llvm.Builder, the sole insertion-point cursor for a
// Module.
type Builder struct{ b llvm.Builder }

// NewBuilder creates a fresh LLVM builder, unattached to any block.
func NewBuilder() *Builder {
	return &Builder{b: llvm.NewBuilder()}
}

func (b *Builder) SetInsertPoint(blk ir.Block) {
	b.b.SetInsertPointAtEnd(blk.(*Block).blk)
}

func (b *Builder) SetInsertPointBefore(entry ir.Block) {
	blk := entry.(*Block).blk
	b.b.SetInsertPoint(blk, blk.FirstInstruction())
}

func (b *Builder) ConstFloat(v float64) ir.Value {
	return Value{llvm.ConstFloat(llvm.DoubleType(), v)}
}

func (b *Builder) Alloca(name string) ir.Value {
	return Value{b.b.CreateAlloca(llvm.DoubleType(), name)}
}

func (b *Builder) Load(cell ir.Value, name string) ir.Value {
	return Value{b.b.CreateLoad(unwrap(cell), name)}
}

func (b *Builder) Store(val, cell ir.Value) {
	b.b.CreateStore(unwrap(val), unwrap(cell))
}

func (b *Builder) FAdd(l, r ir.Value, name string) ir.Value {
	return Value{b.b.CreateFAdd(unwrap(l), unwrap(r), name)}
}

func (b *Builder) FSub(l, r ir.Value, name string) ir.Value {
	return Value{b.b.CreateFSub(unwrap(l), unwrap(r), name)}
}

func (b *Builder) FMul(l, r ir.Value, name string) ir.Value {
	return Value{b.b.CreateFMul(unwrap(l), unwrap(r), name)}
}

// FCmpULT uses LLVM's unordered-less-than predicate: NaN compares true, so
// a comparison involving an un-evaluatable operand still yields a definite
// boolean rather than propagating a "neither less nor not-less" trap.
func (b *Builder) FCmpULT(l, r ir.Value, name string) ir.Value {
	return Value{b.b.CreateFCmp(llvm.FloatULT, unwrap(l), unwrap(r), name)}
}

func (b *Builder) FCmpONE(l, r ir.Value, name string) ir.Value {
	return Value{b.b.CreateFCmp(llvm.FloatONE, unwrap(l), unwrap(r), name)}
}

func (b *Builder) UIToFP(v ir.Value, name string) ir.Value {
	return Value{b.b.CreateUIToFP(unwrap(v), llvm.DoubleType(), name)}
}

func (b *Builder) Br(target ir.Block) {
	b.b.CreateBr(target.(*Block).blk)
}

func (b *Builder) CondBr(cond ir.Value, then, els ir.Block) {
	b.b.CreateCondBr(unwrap(cond), then.(*Block).blk, els.(*Block).blk)
}

func (b *Builder) Phi(incoming []ir.Value, blocks []ir.Block, name string) ir.Value {
	phi := b.b.CreatePHI(llvm.DoubleType(), name)
	blks := make([]llvm.BasicBlock, len(blocks))
	for i, blk := range blocks {
		blks[i] = blk.(*Block).blk
	}
	phi.AddIncoming(unwrapAll(incoming), blks)
	return Value{phi}
}

func (b *Builder) Call(fn ir.Function, args []ir.Value, name string) ir.Value {
	return Value{b.b.CreateCall(fn.(*Function).val, unwrapAll(args), name)}
}

func (b *Builder) Ret(v ir.Value) {
	b.b.CreateRet(unwrap(v))
}

// Module wraps an llvm.Module together with the function pass manager used
// to optimize each function as it is completed.
type Module struct {
	mod llvm.Module
	fpm llvm.PassManager
}

// NewModule creates an empty LLVM module named name and a function pass
// manager over it, with optimize.go's pass list already registered.
func NewModule(name string) *Module {
	mod := llvm.NewModule(name)
	m := &Module{mod: mod, fpm: llvm.NewFunctionPassManagerForModule(mod)}
	installPasses(&m.fpm)
	m.fpm.InitializeFunc()
	return m
}

func (m *Module) DeclareFunction(name string, paramCount int) ir.Function {
	if existing := m.mod.NamedFunction(name); !existing.IsNil() {
		return &Function{existing}
	}
	params := make([]llvm.Type, paramCount)
	for i := range params {
		params[i] = llvm.DoubleType()
	}
	fnType := llvm.FunctionType(llvm.DoubleType(), params, false)
	fn := llvm.AddFunction(m.mod, name, fnType)
	return &Function{fn}
}

func (m *Module) NamedFunction(name string) ir.Function {
	fn := m.mod.NamedFunction(name)
	if fn.IsNil() {
		return nil
	}
	return &Function{fn}
}

func (m *Module) AppendBlock(fn ir.Function, name string) ir.Block {
	f := fn.(*Function)
	blk := llvm.AddBasicBlock(f.val, name)
	return &Block{blk: blk, fn: f}
}

func (m *Module) Verify(fn ir.Function) error {
	f := fn.(*Function)
	if err := llvm.VerifyFunction(f.val, llvm.PrintMessageAction); err != nil {
		return err
	}
	m.fpm.RunFunc(f.val)
	return nil
}

func (m *Module) Erase(fn ir.Function) {
	fn.(*Function).val.EraseFromParentAsFunction()
}

// Dump renders the module's textual IR, used by the driver's per-form
// debug dump (spec.md §4.8, SPEC_FULL.md §3).
func (m *Module) Dump() string {
	return m.mod.String()
}

// EmitObject writes a native object file for this module to path, for the
// driver's AOT pipeline (spec.md §1, §6.4).
func (m *Module) EmitObject(path string) error {
	llvm.InitializeNativeTarget()
	llvm.InitializeNativeAsmPrinter()

	triple := llvm.DefaultTargetTriple()
	target, err := llvm.GetTargetFromTriple(triple)
	if err != nil {
		return fmt.Errorf("llvmir: resolving target triple %q: %w", triple, err)
	}

	tm := target.CreateTargetMachine(triple, "generic", "",
		llvm.CodeGenLevelDefault, llvm.RelocDefault, llvm.CodeModelDefault)
	defer tm.Dispose()

	if err := llvm.VerifyModule(m.mod, llvm.PrintMessageAction); err != nil {
		return fmt.Errorf("llvmir: module verification failed: %w", err)
	}

	if err := tm.EmitToFile(m.mod, path, llvm.ObjectFile); err != nil {
		return fmt.Errorf("llvmir: emitting object code: %w", err)
	}
	return nil
}
