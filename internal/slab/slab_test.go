package slab

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Slab_PushExpr_overflow(t *testing.T) {
	assert := assert.New(t)

	s := New(Limits{Exprs: 2, Values: 2, Instrs: 2})

	_, err := s.PushExpr(Expression{})
	assert.NoError(err)
	_, err = s.PushExpr(Expression{})
	assert.NoError(err)

	_, err = s.PushExpr(Expression{})
	assert.ErrorIs(err, ErrOverflow{Region: "expression"})
}

func Test_Slab_PushValue_overflow(t *testing.T) {
	assert := assert.New(t)

	s := New(Limits{Exprs: 2, Values: 1, Instrs: 2})

	_, err := s.PushValue(Value{Kind: VConstant, Const: 1})
	assert.NoError(err)

	_, err = s.PushValue(Value{Kind: VConstant, Const: 2})
	assert.ErrorIs(err, ErrOverflow{Region: "value"})
}

func Test_Slab_PushInstr_overflow(t *testing.T) {
	assert := assert.New(t)

	s := New(Limits{Exprs: 2, Values: 2, Instrs: 1})

	_, err := s.PushInstr(Instruction{Kind: IConst, Const: 1})
	assert.NoError(err)

	_, err = s.PushInstr(Instruction{Kind: IConst, Const: 2})
	assert.ErrorIs(err, ErrOverflow{Region: "instruction"})
}

func Test_Slab_Clear_resetsAllRegionsAndHandlesAreInvalid(t *testing.T) {
	assert := assert.New(t)

	s := New(DefaultLimits())

	_, err := s.PushExpr(Expression{})
	assert.NoError(err)
	_, err = s.PushValue(Value{Kind: VConstant, Const: 1})
	assert.NoError(err)
	_, err = s.PushInstr(Instruction{Kind: IConst, Const: 1})
	assert.NoError(err)

	s.Clear()

	assert.Equal(0, s.NumExprs())
	assert.Equal(0, s.NumValues())
	assert.Equal(0, s.NumInstrs())
}

func Test_Slab_GetExpr_GetValue_GetInstr_roundTrip(t *testing.T) {
	assert := assert.New(t)

	s := New(DefaultLimits())

	eh, err := s.PushExpr(Expression{First: 3})
	assert.NoError(err)
	vh, err := s.PushValue(Value{Kind: VConstant, Const: 42})
	assert.NoError(err)
	ih, err := s.PushInstr(Instruction{Kind: IConst, Const: 42})
	assert.NoError(err)

	assert.Equal(ValueH(3), s.GetExpr(eh).First)
	assert.Equal(42.0, s.GetValue(vh).Const)
	assert.Equal(42.0, s.GetInstr(ih).Const)
}

func Test_Slab_TakeInstr_marksTakenAndReturnsCopy(t *testing.T) {
	assert := assert.New(t)

	s := New(DefaultLimits())

	h, err := s.PushInstr(Instruction{Kind: IConst, Const: 7})
	assert.NoError(err)

	assert.False(s.InstrTaken(h))

	taken := s.TakeInstr(h)
	assert.Equal(7.0, taken.Const)
	assert.True(s.InstrTaken(h))
}

func Test_Slab_DefaultLimits(t *testing.T) {
	assert := assert.New(t)

	lim := DefaultLimits()
	assert.Equal(64, lim.Exprs)
	assert.Equal(32, lim.Values)
	assert.Equal(128, lim.Instrs)
}

func Test_BinaryOp_String(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("+", Add.String())
	assert.Equal("^", Exp.String())
	assert.Equal("?", BinaryOp(999).String())
}

func Test_BinaryOp_IsComparison(t *testing.T) {
	assert := assert.New(t)

	for _, op := range []BinaryOp{NE, EQ, GTE, LTE, GT, LT} {
		assert.True(op.IsComparison(), "expected %v to be a comparison", op)
	}
	for _, op := range []BinaryOp{Or, And, Add, Sub, Mul, Div, Mod, Exp} {
		assert.False(op.IsComparison(), "expected %v to not be a comparison", op)
	}
}

func Test_BuiltinArity_Accepts(t *testing.T) {
	testCases := []struct {
		name   string
		arity  BuiltinArity
		n      int
		expect bool
	}{
		{name: "exact arity, below", arity: BuiltinArity{1, 1}, n: 0, expect: false},
		{name: "exact arity, met", arity: BuiltinArity{1, 1}, n: 1, expect: true},
		{name: "exact arity, above", arity: BuiltinArity{1, 1}, n: 2, expect: false},
		{name: "ranged arity, below range", arity: BuiltinArity{1, 2}, n: 0, expect: false},
		{name: "ranged arity, in range", arity: BuiltinArity{1, 2}, n: 2, expect: true},
		{name: "unbounded arity, many args", arity: BuiltinArity{1, -1}, n: 50, expect: true},
		{name: "unbounded arity, zero args", arity: BuiltinArity{1, -1}, n: 0, expect: false},
		{name: "zero arity", arity: BuiltinArity{0, 0}, n: 0, expect: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, tc.arity.Accepts(tc.n))
		})
	}
}

func Test_Builtins_table_hasEveryDocumentedName(t *testing.T) {
	assert := assert.New(t)

	names := []string{
		"int", "ceil", "floor", "abs", "sign", "log", "round", "min", "max",
		"e", "pi", "sin", "cos", "tan", "asin", "acos", "atan",
		"sinh", "cosh", "tanh", "asinh", "acosh", "atanh",
	}
	for _, n := range names {
		_, ok := Builtins[n]
		assert.True(ok, "expected builtin %q to be registered", n)
	}
	assert.Len(Builtins, len(names))
}
