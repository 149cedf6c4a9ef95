// Package ir declares the abstract IR-builder contract a back-end must
// satisfy (spec.md §6.3). internal/lower depends only on these interfaces;
// internal/backend/llvmir is the one concrete implementation shipped here,
// but any type satisfying Module/Builder/Function/Block/Value may be
// substituted -- including, per spec.md §9's open question, a JIT that
// creates a fresh Module per top-level form.
package ir

// Value is an opaque handle to an IR value of type double, or the zero
// Value representing "no value" (a lowering failure that has already been
// reported to the diagnostic sink).
type Value interface {
	IsNil() bool
}

// Block is an opaque handle to a basic block within a Function.
type Block interface {
	// Parent returns the Function this block belongs to.
	Parent() Function
}

// Function is a declared or defined function of signature (double, ...)
// -> double.
type Function interface {
	Name() string
	ParamCount() int
	// Param returns the IR value of the i'th parameter.
	Param(i int) Value
	// EntryBlock returns the function's first basic block, or nil if the
	// function has not yet been given a body.
	EntryBlock() Block
	// IsDefined reports whether the function already has a body (one or
	// more basic blocks), as opposed to being a bare declaration.
	IsDefined() bool
}

// Builder constructs instructions at a single, movable insertion point.
type Builder interface {
	// SetInsertPoint moves the insertion point to the end of b.
	SetInsertPoint(b Block)
	// SetInsertPointBefore moves the insertion point to immediately before
	// the first instruction of the function's entry block, used to emit
	// parameter/let-binding stack-slot allocations there regardless of
	// where the builder is currently pointed (spec.md §4.5).
	SetInsertPointBefore(entry Block)

	ConstFloat(v float64) Value

	// Alloca allocates a stack slot ("cell") of type double, named name.
	Alloca(name string) Value
	Load(cell Value, name string) Value
	Store(val, cell Value)

	FAdd(l, r Value, name string) Value
	FSub(l, r Value, name string) Value
	FMul(l, r Value, name string) Value
	// FCmpULT is unordered-less-than, used for '<'.
	FCmpULT(l, r Value, name string) Value
	// FCmpONE is ordered-not-equal, used to test an If condition against
	// 0.0.
	FCmpONE(l, r Value, name string) Value
	// UIToFP widens an i1 boolean to a double (false -> 0.0, true -> 1.0).
	UIToFP(v Value, name string) Value

	Br(target Block)
	CondBr(cond Value, then, els Block)
	// Phi creates a two-input phi node selecting among incoming values
	// based on which predecessor block control arrived from.
	Phi(incoming []Value, blocks []Block, name string) Value

	Call(fn Function, args []Value, name string) Value
	Ret(v Value)
}

// Module owns functions and the blocks within them.
type Module interface {
	// DeclareFunction declares (or returns the existing declaration of) a
	// function named name with paramCount double parameters.
	DeclareFunction(name string, paramCount int) Function
	// NamedFunction returns the function already declared/defined as name
	// in this module, or nil if none exists.
	NamedFunction(name string) Function
	// AppendBlock creates and appends a new basic block to fn.
	AppendBlock(fn Function, name string) Block

	// Verify validates fn after its body has been constructed.
	Verify(fn Function) error
	// Erase removes fn from the module, used when lowering its body
	// failed (spec.md §4.5: "on failure the partially-emitted function is
	// removed from the module").
	Erase(fn Function)
}
