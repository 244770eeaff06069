package slab

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/dekarrin/rezi"
)

// Dump and Load give a compiled instruction region a trivial binary
// serialization for offline debugging. Only the instruction region is
// captured: that's the arena a Compiler has already folded and flattened,
// so it's the form worth inspecting later without re-parsing the original
// expression text.
//
// IUnsafeVar instructions hold a live *float64 into the parser's own
// process and cannot be serialized; Dump refuses a slab containing one.

type instrSnapshot struct {
	Kind  int
	Const float64
	Name  string
	Args  []int

	PrintLiterals  []string
	PrintIsLiteral []bool
	PrintInstrs    []int

	Operand int
	Left    int

	Right icSnapshot
	A     icSnapshot
	B     icSnapshot
}

type icSnapshot struct {
	IsConst bool
	Const   float64
	Instr   int
}

type snapshot struct {
	Instrs []instrSnapshot
	Taken  []bool
}

// Dump renders s's instruction region to REZI-encoded bytes.
func (s *Slab) Dump() ([]byte, error) {
	snap := snapshot{
		Instrs: make([]instrSnapshot, len(s.instrs)),
		Taken:  append([]bool(nil), s.taken...),
	}

	for i, in := range s.instrs {
		if in.Kind == IUnsafeVar {
			return nil, fmt.Errorf("slab: cannot dump instruction %d: IUnsafeVar holds a live pointer", i)
		}

		snap.Instrs[i] = instrSnapshot{
			Kind:    int(in.Kind),
			Const:   in.Const,
			Name:    in.Name,
			Args:    instrHSliceToInts(in.Args),
			Operand: int(in.Operand),
			Left:    int(in.Left),
			Right:   icToSnapshot(in.Right),
			A:       icToSnapshot(in.A),
			B:       icToSnapshot(in.B),
		}

		for _, pi := range in.PrintItems {
			snap.Instrs[i].PrintLiterals = append(snap.Instrs[i].PrintLiterals, pi.Literal)
			snap.Instrs[i].PrintIsLiteral = append(snap.Instrs[i].PrintIsLiteral, pi.IsLiteral)
			snap.Instrs[i].PrintInstrs = append(snap.Instrs[i].PrintInstrs, int(pi.Instr))
		}
	}

	return rezi.EncBinary(snap), nil
}

// Load replaces s's instruction region with the contents previously
// produced by Dump, discarding any expressions, values, and instructions
// currently held. The Slab's region capacities are not checked against the
// loaded data; a dump produced by a differently-sized Slab loads fine as
// long as it fits in memory.
func (s *Slab) Load(data []byte) error {
	var snap snapshot
	if _, err := rezi.DecBinary(data, &snap); err != nil {
		return fmt.Errorf("slab: load: %w", err)
	}

	s.exprs = s.exprs[:0]
	s.values = s.values[:0]
	s.instrs = make([]Instruction, len(snap.Instrs))
	s.taken = append([]bool(nil), snap.Taken...)

	for i, sn := range snap.Instrs {
		in := Instruction{
			Kind:    InstrKind(sn.Kind),
			Const:   sn.Const,
			Name:    sn.Name,
			Args:    intsToInstrHSlice(sn.Args),
			Operand: InstrH(sn.Operand),
			Left:    InstrH(sn.Left),
			Right:   snapshotToIC(sn.Right),
			A:       snapshotToIC(sn.A),
			B:       snapshotToIC(sn.B),
		}

		for j := range sn.PrintLiterals {
			in.PrintItems = append(in.PrintItems, PrintInstr{
				Literal:   sn.PrintLiterals[j],
				IsLiteral: sn.PrintIsLiteral[j],
				Instr:     InstrH(sn.PrintInstrs[j]),
			})
		}

		s.instrs[i] = in
	}

	return nil
}

func icToSnapshot(ic IC) icSnapshot {
	return icSnapshot{IsConst: ic.IsConst, Const: ic.Const, Instr: int(ic.Instr)}
}

func snapshotToIC(sn icSnapshot) IC {
	return IC{IsConst: sn.IsConst, Const: sn.Const, Instr: InstrH(sn.Instr)}
}

func instrHSliceToInts(hs []InstrH) []int {
	out := make([]int, len(hs))
	for i, h := range hs {
		out[i] = int(h)
	}
	return out
}

func intsToInstrHSlice(is []int) []InstrH {
	out := make([]InstrH, len(is))
	for i, v := range is {
		out[i] = InstrH(v)
	}
	return out
}

// The wire layout below is fixed-width big-endian fields with
// count-prefixed strings and slices, so a dump written on one machine
// reads back identically on any other.

func encInt(buf []byte, v int) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(int64(v)))
	return append(buf, b[:]...)
}

func encFloat(buf []byte, v float64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
	return append(buf, b[:]...)
}

func encBool(buf []byte, v bool) []byte {
	if v {
		return append(buf, 1)
	}
	return append(buf, 0)
}

func encString(buf []byte, s string) []byte {
	buf = encInt(buf, len(s))
	return append(buf, s...)
}

// decoder reads the fields written by the enc* helpers back in order,
// latching the first failure so callers can check err once at the end.
type decoder struct {
	data []byte
	err  error
}

func (d *decoder) fail() {
	if d.err == nil {
		d.err = fmt.Errorf("unexpected end of data")
	}
}

func (d *decoder) readInt() int {
	if d.err != nil {
		return 0
	}
	if len(d.data) < 8 {
		d.fail()
		return 0
	}
	v := int64(binary.BigEndian.Uint64(d.data[:8]))
	d.data = d.data[8:]
	return int(v)
}

func (d *decoder) readFloat() float64 {
	if d.err != nil {
		return 0
	}
	if len(d.data) < 8 {
		d.fail()
		return 0
	}
	v := math.Float64frombits(binary.BigEndian.Uint64(d.data[:8]))
	d.data = d.data[8:]
	return v
}

func (d *decoder) readBool() bool {
	if d.err != nil {
		return false
	}
	if len(d.data) < 1 {
		d.fail()
		return false
	}
	v := d.data[0] != 0
	d.data = d.data[1:]
	return v
}

func (d *decoder) readString() string {
	n := d.readInt()
	if d.err != nil {
		return ""
	}
	if n < 0 || len(d.data) < n {
		d.fail()
		return ""
	}
	s := string(d.data[:n])
	d.data = d.data[n:]
	return s
}

func (sn icSnapshot) appendTo(buf []byte) []byte {
	buf = encBool(buf, sn.IsConst)
	buf = encFloat(buf, sn.Const)
	return encInt(buf, sn.Instr)
}

func (d *decoder) readIC() icSnapshot {
	var sn icSnapshot
	sn.IsConst = d.readBool()
	sn.Const = d.readFloat()
	sn.Instr = d.readInt()
	return sn
}

// MarshalBinary implements encoding.BinaryMarshaler so a snapshot can be
// handed to rezi.EncBinary.
func (sn instrSnapshot) MarshalBinary() ([]byte, error) {
	var buf []byte
	buf = encInt(buf, sn.Kind)
	buf = encFloat(buf, sn.Const)
	buf = encString(buf, sn.Name)

	buf = encInt(buf, len(sn.Args))
	for _, a := range sn.Args {
		buf = encInt(buf, a)
	}

	buf = encInt(buf, len(sn.PrintLiterals))
	for i := range sn.PrintLiterals {
		buf = encString(buf, sn.PrintLiterals[i])
		buf = encBool(buf, sn.PrintIsLiteral[i])
		buf = encInt(buf, sn.PrintInstrs[i])
	}

	buf = encInt(buf, sn.Operand)
	buf = encInt(buf, sn.Left)
	buf = sn.Right.appendTo(buf)
	buf = sn.A.appendTo(buf)
	buf = sn.B.appendTo(buf)
	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler for rezi.DecBinary.
func (sn *instrSnapshot) UnmarshalBinary(data []byte) error {
	d := &decoder{data: data}

	sn.Kind = d.readInt()
	sn.Const = d.readFloat()
	sn.Name = d.readString()

	numArgs := d.readInt()
	sn.Args = nil
	for i := 0; i < numArgs && d.err == nil; i++ {
		sn.Args = append(sn.Args, d.readInt())
	}

	numPrints := d.readInt()
	sn.PrintLiterals, sn.PrintIsLiteral, sn.PrintInstrs = nil, nil, nil
	for i := 0; i < numPrints && d.err == nil; i++ {
		sn.PrintLiterals = append(sn.PrintLiterals, d.readString())
		sn.PrintIsLiteral = append(sn.PrintIsLiteral, d.readBool())
		sn.PrintInstrs = append(sn.PrintInstrs, d.readInt())
	}

	sn.Operand = d.readInt()
	sn.Left = d.readInt()
	sn.Right = d.readIC()
	sn.A = d.readIC()
	sn.B = d.readIC()
	return d.err
}

func (s snapshot) MarshalBinary() ([]byte, error) {
	var buf []byte

	buf = encInt(buf, len(s.Instrs))
	for _, in := range s.Instrs {
		inData, err := in.MarshalBinary()
		if err != nil {
			return nil, err
		}
		buf = encInt(buf, len(inData))
		buf = append(buf, inData...)
	}

	buf = encInt(buf, len(s.Taken))
	for _, tk := range s.Taken {
		buf = encBool(buf, tk)
	}
	return buf, nil
}

func (s *snapshot) UnmarshalBinary(data []byte) error {
	d := &decoder{data: data}

	numInstrs := d.readInt()
	s.Instrs = nil
	for i := 0; i < numInstrs && d.err == nil; i++ {
		inLen := d.readInt()
		if d.err != nil {
			break
		}
		if inLen < 0 || len(d.data) < inLen {
			d.fail()
			break
		}
		var in instrSnapshot
		if err := in.UnmarshalBinary(d.data[:inLen]); err != nil {
			return err
		}
		d.data = d.data[inLen:]
		s.Instrs = append(s.Instrs, in)
	}

	numTaken := d.readInt()
	s.Taken = nil
	for i := 0; i < numTaken && d.err == nil; i++ {
		s.Taken = append(s.Taken, d.readBool())
	}
	return d.err
}
