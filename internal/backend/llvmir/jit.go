package llvmir

import (
	"fmt"

	"github.com/ajsnow/llvm"

	"github.com/monty-lang/monty/internal/ir"
)

// JIT wraps an llvm.ExecutionEngine over a Module, used by the driver's
// --run/repl path to evaluate anonymous top-level expressions immediately
// instead of emitting and linking an object file (spec.md §9's "AOT is the
// primary mode" decision keeps this as the secondary one, see DESIGN.md
// Open Question 1).
type JIT struct {
	Module *Module
	engine llvm.ExecutionEngine
}

// NewJIT creates a fresh module named name and its execution engine, and
// adds the engine's target data to the module's function pass manager the
// way the teacher's package-level optimize() does.
func NewJIT(name string) (*JIT, error) {
	llvm.InitializeNativeTarget()
	m := NewModule(name)

	engine, err := llvm.NewExecutionEngine(m.mod)
	if err != nil {
		return nil, fmt.Errorf("llvmir: creating JIT execution engine: %w", err)
	}

	m.fpm.Add(engine.TargetData())

	return &JIT{Module: m, engine: engine}, nil
}

// RunAnon invokes a zero-argument function (an anonymous top-level
// expression's lowered form) and returns its double result.
func (j *JIT) RunAnon(fn ir.Function) (float64, error) {
	f, ok := fn.(*Function)
	if !ok {
		return 0, fmt.Errorf("llvmir: RunAnon given a non-llvmir Function")
	}
	result := j.engine.RunFunction(f.val, nil)
	return result.Float(llvm.DoubleType()), nil
}

// Dispose releases the execution engine's native resources.
func (j *JIT) Dispose() {
	j.engine.Dispose()
}
