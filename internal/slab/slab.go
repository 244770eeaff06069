// Package slab implements the arena that owns every node produced while
// parsing and compiling an expression. Nodes are never referenced by
// pointer; callers hold small integer handles into one of the three typed
// regions (expressions, values, instructions) and look them up through the
// Slab. This keeps parsing and compilation allocation-cheap and makes a
// compiled expression trivially relocatable for debugging (see Dump/Load).
package slab

import "fmt"

// ExprH is a handle to an Expression in the expression region.
type ExprH int

// ValueH is a handle to a Value in the value region.
type ValueH int

// InstrH is a handle to an Instruction in the instruction region.
type InstrH int

// Limits bounds the capacity of each arena region. Pushing past a region's
// capacity fails with ErrOverflow.
type Limits struct {
	Exprs  int
	Values int
	Instrs int
}

// DefaultLimits returns the capacities used when a caller does not supply
// its own.
func DefaultLimits() Limits {
	return Limits{Exprs: 64, Values: 32, Instrs: 128}
}

// ErrOverflow is returned by Push when a region is at capacity.
type ErrOverflow struct {
	Region string
}

func (e ErrOverflow) Error() string {
	return fmt.Sprintf("slab overflow: %s region is full", e.Region)
}

// Slab owns every Expression, Value, and Instruction produced by a single
// parse-compile-eval cycle, plus a reusable scratch buffer used for
// namespace cache-key construction.
type Slab struct {
	limits Limits

	exprs  []Expression
	values []Value
	instrs []Instruction
	taken  []bool

	Scratch []byte
}

// New creates an empty Slab with the given region capacities.
func New(limits Limits) *Slab {
	s := &Slab{limits: limits}
	s.reset()
	return s
}

func (s *Slab) reset() {
	s.exprs = make([]Expression, 0, s.limits.Exprs)
	s.values = make([]Value, 0, s.limits.Values)
	s.instrs = make([]Instruction, 0, s.limits.Instrs)
	s.taken = make([]bool, 0, s.limits.Instrs)
	s.Scratch = s.Scratch[:0]
}

// Clear empties all three regions in place. It is called automatically at
// the start of every parse; any handle obtained before a Clear is invalid
// afterwards. Clearing explicitly (rather than allocating a new Slab) lets
// callers reuse the backing arrays across many parse-compile-eval cycles.
func (s *Slab) Clear() {
	s.exprs = s.exprs[:0]
	s.values = s.values[:0]
	s.instrs = s.instrs[:0]
	s.taken = s.taken[:0]
	s.Scratch = s.Scratch[:0]
}

// Limits returns the capacities this Slab was constructed with.
func (s *Slab) Limits() Limits {
	return s.limits
}

// PushExpr stores e in the expression region and returns its handle.
func (s *Slab) PushExpr(e Expression) (ExprH, error) {
	if len(s.exprs) >= s.limits.Exprs {
		return 0, ErrOverflow{Region: "expression"}
	}
	s.exprs = append(s.exprs, e)
	return ExprH(len(s.exprs) - 1), nil
}

// PushValue stores v in the value region and returns its handle.
func (s *Slab) PushValue(v Value) (ValueH, error) {
	if len(s.values) >= s.limits.Values {
		return 0, ErrOverflow{Region: "value"}
	}
	s.values = append(s.values, v)
	return ValueH(len(s.values) - 1), nil
}

// PushInstr stores i in the instruction region and returns its handle.
func (s *Slab) PushInstr(i Instruction) (InstrH, error) {
	if len(s.instrs) >= s.limits.Instrs {
		return 0, ErrOverflow{Region: "instruction"}
	}
	s.instrs = append(s.instrs, i)
	s.taken = append(s.taken, false)
	return InstrH(len(s.instrs) - 1), nil
}

// GetExpr returns a pointer to the Expression referenced by h. The pointer
// is only valid until the next Clear.
func (s *Slab) GetExpr(h ExprH) *Expression {
	return &s.exprs[h]
}

// GetValue returns a pointer to the Value referenced by h.
func (s *Slab) GetValue(h ValueH) *Value {
	return &s.values[h]
}

// GetInstr returns a pointer to the Instruction referenced by h.
func (s *Slab) GetInstr(h InstrH) *Instruction {
	return &s.instrs[h]
}

// TakeInstr logically removes the instruction at h from the active set and
// returns a copy of it, so the compiler can rebuild a replacement from its
// inner handles without aliasing the slot it came from. The slot itself is
// never reused within the same parse-compile cycle; Push always appends.
func (s *Slab) TakeInstr(h InstrH) Instruction {
	taken := s.instrs[h]
	s.taken[h] = true
	return taken
}

// InstrTaken reports whether the instruction at h has been taken. It exists
// for introspection (tests, Dump) and is not required by the compiler.
func (s *Slab) InstrTaken(h InstrH) bool {
	return s.taken[h]
}

// NumExprs, NumValues, and NumInstrs report the current live count of each
// region, used by Dump and by tests asserting on arena growth.
func (s *Slab) NumExprs() int  { return len(s.exprs) }
func (s *Slab) NumValues() int { return len(s.values) }
func (s *Slab) NumInstrs() int { return len(s.instrs) }
