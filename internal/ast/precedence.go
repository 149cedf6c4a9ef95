package ast

// PrecedenceTable maps a single operator character to its binding power.
// It is shared mutable state (spec.md §3, §5): the parser only reads it;
// the lowering pass is the sole writer, installing a user-defined binary
// operator's precedence the moment its defining function is lowered, never
// during parsing.
type PrecedenceTable struct {
	prec map[byte]int
}

// NewPrecedenceTable returns a table with the language's built-in
// operators: '=' at 2, '<' at 10, '+'/'-' at 20, '*' at 40.
func NewPrecedenceTable() *PrecedenceTable {
	return &PrecedenceTable{
		prec: map[byte]int{
			'=': 2,
			'<': 10,
			'+': 20,
			'-': 20,
			'*': 40,
		},
	}
}

// Lookup returns the precedence of op and whether it is bound at all.
func (t *PrecedenceTable) Lookup(op byte) (int, bool) {
	p, ok := t.prec[op]
	return p, ok
}

// Set installs or overwrites op's precedence. Called only from the
// lowering pass (spec.md §4.7).
func (t *PrecedenceTable) Set(op byte, precedence int) {
	t.prec[op] = precedence
}
