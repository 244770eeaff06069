package slab

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Slab_Dump_Load_roundTrip(t *testing.T) {
	assert := assert.New(t)

	s := New(DefaultLimits())

	leftH, err := s.PushInstr(Instruction{Kind: IConst, Const: 2})
	assert.NoError(err)
	addH, err := s.PushInstr(Instruction{Kind: IAdd, Left: leftH, Right: ConstIC(3)})
	assert.NoError(err)
	_, err = s.PushInstr(Instruction{Kind: INeg, Operand: addH})
	assert.NoError(err)

	data, err := s.Dump()
	assert.NoError(err)
	assert.NotEmpty(data)

	loaded := New(DefaultLimits())
	assert.NoError(loaded.Load(data))

	assert.Equal(s.NumInstrs(), loaded.NumInstrs())
	for i := 0; i < s.NumInstrs(); i++ {
		want := s.GetInstr(InstrH(i))
		got := loaded.GetInstr(InstrH(i))
		assert.Equal(want.Kind, got.Kind)
		assert.Equal(want.Const, got.Const)
		assert.Equal(want.Left, got.Left)
		assert.Equal(want.Right, got.Right)
		assert.Equal(want.Operand, got.Operand)
	}
}

func Test_Slab_Dump_refusesUnsafeVar(t *testing.T) {
	assert := assert.New(t)

	s := New(DefaultLimits())

	ptr := new(float64)
	_, err := s.PushInstr(Instruction{Kind: IUnsafeVar, Name: "x", UnsafePtr: ptr})
	assert.NoError(err)

	_, err = s.Dump()
	assert.Error(err)
}

func Test_Slab_Dump_preservesTakenFlags(t *testing.T) {
	assert := assert.New(t)

	s := New(DefaultLimits())

	h, err := s.PushInstr(Instruction{Kind: IConst, Const: 1})
	assert.NoError(err)
	s.TakeInstr(h)

	data, err := s.Dump()
	assert.NoError(err)

	loaded := New(DefaultLimits())
	assert.NoError(loaded.Load(data))
	assert.True(loaded.InstrTaken(h))
}
