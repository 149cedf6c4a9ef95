// Package lower implements the semantic lowering pass (spec.md §4.5-§4.7):
// it walks an AST and emits calls against the internal/ir contract,
// maintaining the prototype table, the named-value environment, and the
// shared precedence table's user-operator installations as it goes.
package lower

import (
	"fmt"

	"github.com/monty-lang/monty/internal/ast"
	"github.com/monty-lang/monty/internal/diag"
	"github.com/monty-lang/monty/internal/ir"
	"github.com/monty-lang/monty/internal/token"
)

// binding is a named-value environment entry saved for restoration when a
// Let expression's scope closes.
type binding struct {
	name string
	prev ir.Value
	had  bool
}

// Lowerer owns the state that survives across top-level forms: the
// prototype table and the named-value environment's restore bookkeeping.
// The IR module/builder it targets may be swapped out between forms (e.g.
// by a JIT embedder that creates a fresh module per top-level expression,
// spec.md §4.7/§9) via Reset.
type Lowerer struct {
	module ir.Module
	build  ir.Builder
	prec   *ast.PrecedenceTable
	sink   *diag.Sink

	prototypes map[string]*ast.Prototype
	env        map[string]ir.Value

	curFunc    ir.Function
	curBlock   ir.Block
	entryBlock ir.Block
}

// New creates a Lowerer targeting module/builder, sharing prec (mutated
// here, read by the parser) and sink.
func New(module ir.Module, build ir.Builder, prec *ast.PrecedenceTable, sink *diag.Sink) *Lowerer {
	return &Lowerer{
		module:     module,
		build:      build,
		prec:       prec,
		sink:       sink,
		prototypes: map[string]*ast.Prototype{},
	}
}

// Reset retargets the Lowerer at a new module/builder, leaving the
// prototype table intact -- "the IR module by itself is not authoritative
// for what is declared in the program" (spec.md §9).
func (lw *Lowerer) Reset(module ir.Module, build ir.Builder) {
	lw.module = module
	lw.build = build
}

// SetSink redirects future diagnostics to sink, leaving all other state
// (prototype table, named-value environment) untouched -- used by a REPL
// that wants a fresh error list per line while function definitions and
// the precedence table persist across lines.
func (lw *Lowerer) SetSink(sink *diag.Sink) {
	lw.sink = sink
}

func toLoc(p ast.Pos) token.SourceLoc {
	return token.SourceLoc{Line: p.Line, Col: p.Col}
}

// LowerExtern lowers a using-declaration: records it in the prototype
// table and declares it in the current module (spec.md §4.8).
func (lw *Lowerer) LowerExtern(proto *ast.Prototype) (ir.Function, bool) {
	p := *proto
	lw.prototypes[p.Name] = &p
	fn := lw.declare(&p)
	return fn, fn != nil
}

// LowerFunction lowers a full function definition (spec.md §4.5-§4.7).
func (lw *Lowerer) LowerFunction(fn *ast.Function) (ir.Function, bool) {
	lw.env = map[string]ir.Value{}

	proto := fn.Prototype
	lw.prototypes[proto.Name] = &proto

	// Install the operator into the shared precedence table before the
	// body is lowered: this is the single point at which a user-defined
	// binary operator becomes usable (spec.md §4.7, §9).
	if proto.Kind == ast.BinaryOp {
		if opChar, ok := proto.OperatorChar(); ok {
			lw.prec.Set(opChar, proto.Precedence)
		}
	}

	if existing := lw.module.NamedFunction(proto.Name); existing != nil {
		if existing.IsDefined() {
			lw.sink.Report(toLoc(proto.Pos), "redefinition of function")
			return nil, false
		}
		if existing.ParamCount() != len(proto.Params) {
			lw.sink.Report(toLoc(proto.Pos), "redefinition of function with different number of args")
			return nil, false
		}
	}

	fnIR := lw.declare(&proto)
	if fnIR == nil {
		return nil, false
	}

	entry := lw.module.AppendBlock(fnIR, "entry")
	lw.build.SetInsertPoint(entry)
	lw.curFunc = fnIR
	lw.curBlock = entry
	lw.entryBlock = entry

	for i, name := range proto.Params {
		cell := lw.allocaCell(name)
		lw.build.Store(fnIR.Param(i), cell)
		lw.env[name] = cell
	}

	bodyVal := lw.lowerExpr(fn.Body)
	if isNil(bodyVal) {
		lw.module.Erase(fnIR)
		return nil, false
	}
	lw.build.Ret(bodyVal)

	if err := lw.module.Verify(fnIR); err != nil {
		lw.sink.Report(toLoc(proto.Pos), "function verification failed: %v", err)
		lw.module.Erase(fnIR)
		return nil, false
	}
	return fnIR, true
}

func (lw *Lowerer) declare(proto *ast.Prototype) ir.Function {
	return lw.module.DeclareFunction(proto.Name, len(proto.Params))
}

// getFunction implements spec.md §4.7's get_function: look the name up in
// the current module first, then re-materialize it from the prototype
// table on demand.
func (lw *Lowerer) getFunction(name string) (ir.Function, bool) {
	if fn := lw.module.NamedFunction(name); fn != nil {
		return fn, true
	}
	if proto, ok := lw.prototypes[name]; ok {
		return lw.declare(proto), true
	}
	return nil, false
}

// allocaCell allocates a stack slot in the current function's entry block
// without disturbing the builder's current insertion point, mirroring the
// teacher's createEntryBlockAlloca (which uses a throwaway second Builder
// for exactly this reason).
func (lw *Lowerer) allocaCell(name string) ir.Value {
	lw.build.SetInsertPointBefore(lw.entryBlock)
	cell := lw.build.Alloca(name)
	lw.build.SetInsertPoint(lw.curBlock)
	return cell
}

func isNil(v ir.Value) bool {
	return v == nil || v.IsNil()
}

// lowerExpr is the exhaustive type switch that replaces per-node codegen
// methods (spec.md §9 "Polymorphic AST"). Every case returns exactly one
// ir.Value, or a nil-reporting Value with a diagnostic already recorded.
func (lw *Lowerer) lowerExpr(e ast.Expr) ir.Value {
	switch n := e.(type) {
	case *ast.Number:
		return lw.build.ConstFloat(n.Val)

	case *ast.Variable:
		cell, ok := lw.env[n.Name]
		if !ok {
			lw.sink.Report(toLoc(n.Pos), "Unknown variable name")
			return nil
		}
		return lw.build.Load(cell, n.Name)

	case *ast.Unary:
		operand := lw.lowerExpr(n.Operand)
		if isNil(operand) {
			return nil
		}
		fn, ok := lw.getFunction("unary" + string(n.Op))
		if !ok {
			lw.sink.Report(toLoc(n.Pos), "Unknown unary operator")
			return nil
		}
		return lw.build.Call(fn, []ir.Value{operand}, "unop")

	case *ast.Binary:
		return lw.lowerBinary(n)

	case *ast.If:
		return lw.lowerIf(n)

	case *ast.Let:
		return lw.lowerLet(n)

	case *ast.Call:
		return lw.lowerCall(n)

	default:
		panic(fmt.Sprintf("lower: unhandled Expr type %T", e))
	}
}

func (lw *Lowerer) lowerBinary(n *ast.Binary) ir.Value {
	if n.Op == '=' {
		return lw.lowerAssign(n)
	}

	l := lw.lowerExpr(n.Lhs)
	r := lw.lowerExpr(n.Rhs)
	if isNil(l) || isNil(r) {
		return nil
	}

	switch n.Op {
	case '+':
		return lw.build.FAdd(l, r, "addtmp")
	case '-':
		return lw.build.FSub(l, r, "subtmp")
	case '*':
		return lw.build.FMul(l, r, "multmp")
	case '<':
		cmp := lw.build.FCmpULT(l, r, "cmptmp")
		return lw.build.UIToFP(cmp, "booltmp")
	default:
		fn, ok := lw.getFunction("binary" + string(n.Op))
		if !ok {
			// The parser only ever emits a Binary node for an operator
			// character present in the precedence table, and an operator
			// only enters that table once its defining function has been
			// lowered (spec.md §4.7) -- so a missing "binary"+op function
			// here means the earlier invariant was violated, not a
			// user-facing error.
			panic(fmt.Sprintf("lower: no function for binary operator %q", n.Op))
		}
		return lw.build.Call(fn, []ir.Value{l, r}, "binop")
	}
}

func (lw *Lowerer) lowerAssign(n *ast.Binary) ir.Value {
	dest, ok := n.Lhs.(*ast.Variable)
	if !ok {
		lw.sink.Report(toLoc(n.Pos), "destination of '=' must be a variable")
		return nil
	}

	val := lw.lowerExpr(n.Rhs)
	if isNil(val) {
		return nil
	}

	cell, ok := lw.env[dest.Name]
	if !ok {
		lw.sink.Report(toLoc(dest.Pos), "Unknown variable name")
		return nil
	}

	lw.build.Store(val, cell)
	return val
}

func (lw *Lowerer) lowerIf(n *ast.If) ir.Value {
	condVal := lw.lowerExpr(n.Cond)
	if isNil(condVal) {
		return nil
	}
	zero := lw.build.ConstFloat(0)
	cond := lw.build.FCmpONE(condVal, zero, "ifcond")

	thenBlk := lw.module.AppendBlock(lw.curFunc, "then")
	elseBlk := lw.module.AppendBlock(lw.curFunc, "else")
	mergeBlk := lw.module.AppendBlock(lw.curFunc, "merge")
	lw.build.CondBr(cond, thenBlk, elseBlk)

	lw.build.SetInsertPoint(thenBlk)
	lw.curBlock = thenBlk
	thenVal := lw.lowerExpr(n.ThenBranch)
	if isNil(thenVal) {
		return nil
	}
	lw.build.Br(mergeBlk)
	thenEndBlk := lw.curBlock // lowering ThenBranch may itself add blocks

	lw.build.SetInsertPoint(elseBlk)
	lw.curBlock = elseBlk
	elseVal := lw.lowerExpr(n.ElseBranch)
	if isNil(elseVal) {
		return nil
	}
	lw.build.Br(mergeBlk)
	elseEndBlk := lw.curBlock

	lw.build.SetInsertPoint(mergeBlk)
	lw.curBlock = mergeBlk
	return lw.build.Phi([]ir.Value{thenVal, elseVal}, []ir.Block{thenEndBlk, elseEndBlk}, "iftmp")
}

func (lw *Lowerer) lowerLet(n *ast.Let) ir.Value {
	var restore []binding
	for _, b := range n.Bindings {
		var val ir.Value
		if b.Init != nil {
			val = lw.lowerExpr(b.Init)
			if isNil(val) {
				lw.popBindings(restore)
				return nil
			}
		} else {
			val = lw.build.ConstFloat(0)
		}

		cell := lw.allocaCell(b.Name)
		lw.build.Store(val, cell)

		prev, had := lw.env[b.Name]
		restore = append(restore, binding{name: b.Name, prev: prev, had: had})
		lw.env[b.Name] = cell
	}

	bodyVal := lw.lowerExpr(n.Body)
	lw.popBindings(restore)
	if isNil(bodyVal) {
		return nil
	}
	return bodyVal
}

// popBindings restores the named-value environment to what it was before
// a Let pushed its bindings, on every exit path including early failures
// (spec.md §5, §8 "Let bindings are perfectly stack-like").
func (lw *Lowerer) popBindings(restore []binding) {
	for i := len(restore) - 1; i >= 0; i-- {
		b := restore[i]
		if b.had {
			lw.env[b.name] = b.prev
		} else {
			delete(lw.env, b.name)
		}
	}
}

func (lw *Lowerer) lowerCall(n *ast.Call) ir.Value {
	fn, ok := lw.getFunction(n.Callee)
	if !ok {
		lw.sink.Report(toLoc(n.Pos), "Unknown function referenced")
		return nil
	}
	if fn.ParamCount() != len(n.Args) {
		lw.sink.Report(toLoc(n.Pos), "Incorrect # arguments passed")
		return nil
	}

	args := make([]ir.Value, len(n.Args))
	for i, a := range n.Args {
		v := lw.lowerExpr(a)
		if isNil(v) {
			return nil
		}
		args[i] = v
	}
	return lw.build.Call(fn, args, "calltmp")
}
