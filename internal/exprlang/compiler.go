package exprlang

import (
	"math"

	"github.com/dekarrin/exprlang/internal/slab"
)

// file compiler.go turns a flat Expression into a compact Instruction
// tree. It performs three families of optimization along the way:
// algebraic simplification (Sub becomes Add+Neg, Div becomes
// Mul+Inv), constant folding (an operation over all-constant operands
// collapses to a single IConst at compile time, including calls into the
// Namespace when every argument folds to a constant), and operator
// flattening (nested Add/Mul operands are gathered into one list so all
// their constants fold into a single term, and the remaining operands are
// rebuilt as one left-nested chain of binary IAdd/IMul nodes).
//
// The algorithm never builds a tree over the flat Expression directly.
// Instead it repeatedly finds the lowest-precedence BinaryOp present in
// the current slice and splits only at occurrences of that exact
// operator, recursing into each side; the comparison operators are the
// one exception, treated as a single equal-precedence group chained
// pairwise left to right.

// Compiler lowers Expressions parsed into a Slab into Instructions,
// folding constants and, for whole-call constant folding, consulting ns.
// ns may be nil if the expression is known not to reference any variable
// or user function; any such reference will then fail to fold and
// survive into the compiled form as an IVar/IFunc to be resolved at
// eval time.
type Compiler struct {
	s  *slab.Slab
	ns Namespace
}

// NewCompiler creates a Compiler that reads parsed nodes from and writes
// compiled instructions into s, resolving constant-foldable calls
// against ns.
func NewCompiler(s *slab.Slab, ns Namespace) *Compiler {
	return &Compiler{s: s, ns: ns}
}

// Compile lowers the expression rooted at root and returns a handle to
// its final instruction.
func (c *Compiler) Compile(root slab.ExprH) (slab.InstrH, error) {
	instr, err := c.compileExprH(root)
	if err != nil {
		return 0, err
	}
	return c.push(instr)
}

func (c *Compiler) push(instr slab.Instruction) (slab.InstrH, error) {
	h, err := c.s.PushInstr(instr)
	if err != nil {
		return 0, slabOverflowErr("instruction")
	}
	return h, nil
}

func (c *Compiler) instrToIC(instr slab.Instruction) (slab.IC, error) {
	if instr.Kind == slab.IConst {
		return slab.ConstIC(instr.Const), nil
	}
	h, err := c.push(instr)
	if err != nil {
		return slab.IC{}, err
	}
	return slab.HandleIC(h), nil
}

func boolToF(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// exprSlice is a view over a run of an Expression's pairs: "first
// followed by however many pairs remain after splitting". It never
// copies Value/Pair data, only the ValueH/Pair slice boundaries.
type exprSlice struct {
	first slab.ValueH
	pairs []slab.Pair
}

// split partitions es at every pair whose operator is exactly op,
// leaving every other pair attached to whichever sub-slice precedes it.
func split(es exprSlice, op slab.BinaryOp) []exprSlice {
	out := []exprSlice{{first: es.first}}
	for _, p := range es.pairs {
		if p.Op == op {
			out = append(out, exprSlice{first: p.Val})
		} else {
			last := &out[len(out)-1]
			last.pairs = append(last.pairs, p)
		}
	}
	return out
}

// splitMulti is split generalized to a set of operators, additionally
// returning the operator that caused each split point, in order; it is
// used only for the comparison group where every member shares one
// precedence level.
func splitMulti(es exprSlice, set map[slab.BinaryOp]bool) ([]exprSlice, []slab.BinaryOp) {
	xss := []exprSlice{{first: es.first}}
	var ops []slab.BinaryOp
	for _, p := range es.pairs {
		if set[p.Op] {
			xss = append(xss, exprSlice{first: p.Val})
			ops = append(ops, p.Op)
		} else {
			last := &xss[len(xss)-1]
			last.pairs = append(last.pairs, p)
		}
	}
	return xss, ops
}

func (c *Compiler) compileExprH(h slab.ExprH) (slab.Instruction, error) {
	e := c.s.GetExpr(h)
	return c.compileSlice(exprSlice{first: e.First, pairs: e.Pairs})
}

func (c *Compiler) compileValueH(h slab.ValueH) (slab.Instruction, error) {
	return c.compileValue(c.s.GetValue(h))
}

var comparisonOps = map[slab.BinaryOp]bool{
	slab.EQ: true, slab.NE: true, slab.LT: true,
	slab.GT: true, slab.LTE: true, slab.GTE: true,
}

// compileSlice is the re-association entry point: find the
// lowest-precedence operator present, and hand off to the process*
// method for that operator family.
func (c *Compiler) compileSlice(es exprSlice) (slab.Instruction, error) {
	if len(es.pairs) == 0 {
		return c.compileValueH(es.first)
	}

	lowest := es.pairs[0].Op
	for _, p := range es.pairs[1:] {
		if p.Op < lowest {
			lowest = p.Op
		}
	}

	if lowest.IsComparison() {
		return c.processComparisons(es)
	}

	switch lowest {
	case slab.Or:
		return c.processOr(es)
	case slab.And:
		return c.processAnd(es)
	case slab.Add:
		return c.processAddition(es)
	case slab.Sub:
		return c.processSubtraction(es)
	case slab.Mul:
		return c.processMultiplication(es)
	case slab.Div:
		return c.processDivision(es)
	case slab.Mod:
		return c.processMod(es)
	case slab.Exp:
		return c.processExp(es)
	default:
		return slab.Instruction{}, unreachableErr("compileSlice: unknown lowest operator")
	}
}

func (c *Compiler) processComparisons(es exprSlice) (slab.Instruction, error) {
	xss, ops := splitMulti(es, comparisonOps)

	out, err := c.compileSlice(xss[0])
	if err != nil {
		return slab.Instruction{}, err
	}

	for i, op := range ops {
		instr, err := c.compileSlice(xss[i+1])
		if err != nil {
			return slab.Instruction{}, err
		}

		if out.Kind == slab.IConst && instr.Kind == slab.IConst {
			l, r := out.Const, instr.Const
			var res bool
			switch op {
			case slab.EQ:
				res = nearlyEqual(l, r)
			case slab.NE:
				res = !nearlyEqual(l, r)
			case slab.LT:
				res = l < r
			case slab.GT:
				res = l > r
			case slab.LTE:
				res = l <= r
			case slab.GTE:
				res = l >= r
			}
			out = slab.Instruction{Kind: slab.IConst, Const: boolToF(res)}
			continue
		}

		aIC, err := c.instrToIC(out)
		if err != nil {
			return slab.Instruction{}, err
		}
		bIC, err := c.instrToIC(instr)
		if err != nil {
			return slab.Instruction{}, err
		}
		var kind slab.InstrKind
		switch op {
		case slab.EQ:
			kind = slab.IEQ
		case slab.NE:
			kind = slab.INE
		case slab.LT:
			kind = slab.ILT
		case slab.GT:
			kind = slab.IGT
		case slab.LTE:
			kind = slab.ILTE
		case slab.GTE:
			kind = slab.IGTE
		}
		out = slab.Instruction{Kind: kind, A: aIC, B: bIC}
	}
	return out, nil
}

// processOr short-circuits: a non-zero constant operand that comes before
// any non-constant operand ends compilation immediately with that
// constant, matching the evaluator's own short-circuit behavior at
// runtime. Zero constants before that point are dropped; once a
// non-constant operand has been seen, every later operand, constant or
// not, is chained into an IOr.
func (c *Compiler) processOr(es exprSlice) (slab.Instruction, error) {
	xss := split(es, slab.Or)
	out := slab.Instruction{Kind: slab.IConst, Const: 0}
	outSet := false
	for _, xs := range xss {
		instr, err := c.compileSlice(xs)
		if err != nil {
			return slab.Instruction{}, err
		}
		if outSet {
			lh, err := c.push(out)
			if err != nil {
				return slab.Instruction{}, err
			}
			ic, err := c.instrToIC(instr)
			if err != nil {
				return slab.Instruction{}, err
			}
			out = slab.Instruction{Kind: slab.IOr, Left: lh, Right: ic}
		} else if instr.Kind == slab.IConst {
			if !nearlyZero(instr.Const) {
				return instr, nil
			}
		} else {
			out = instr
			outSet = true
		}
	}
	return out, nil
}

// processAnd short-circuits on the first zero constant operand.
func (c *Compiler) processAnd(es exprSlice) (slab.Instruction, error) {
	xss := split(es, slab.And)
	out := slab.Instruction{Kind: slab.IConst, Const: 1}
	outSet := false
	for _, xs := range xss {
		instr, err := c.compileSlice(xs)
		if err != nil {
			return slab.Instruction{}, err
		}
		if instr.Kind == slab.IConst && nearlyZero(instr.Const) {
			return instr, nil
		}
		if outSet {
			if out.Kind == slab.IConst {
				// out is a non-zero constant so far; this operand wins.
				out = instr
			} else {
				lh, err := c.push(out)
				if err != nil {
					return slab.Instruction{}, err
				}
				ic, err := c.instrToIC(instr)
				if err != nil {
					return slab.Instruction{}, err
				}
				out = slab.Instruction{Kind: slab.IAnd, Left: lh, Right: ic}
			}
		} else {
			out = instr
			outSet = true
		}
	}
	return out, nil
}

func (c *Compiler) negWrap(instr slab.Instruction) (slab.Instruction, error) {
	switch instr.Kind {
	case slab.IConst:
		return slab.Instruction{Kind: slab.IConst, Const: -instr.Const}, nil
	case slab.INeg:
		return c.s.TakeInstr(instr.Operand), nil
	default:
		h, err := c.push(instr)
		if err != nil {
			return slab.Instruction{}, err
		}
		return slab.Instruction{Kind: slab.INeg, Operand: h}, nil
	}
}

func (c *Compiler) notWrap(instr slab.Instruction) (slab.Instruction, error) {
	switch instr.Kind {
	case slab.IConst:
		return slab.Instruction{Kind: slab.IConst, Const: boolToF(nearlyZero(instr.Const))}, nil
	case slab.INot:
		return c.s.TakeInstr(instr.Operand), nil
	default:
		h, err := c.push(instr)
		if err != nil {
			return slab.Instruction{}, err
		}
		return slab.Instruction{Kind: slab.INot, Operand: h}, nil
	}
}

func (c *Compiler) invWrap(instr slab.Instruction) (slab.Instruction, error) {
	switch instr.Kind {
	case slab.IConst:
		return slab.Instruction{Kind: slab.IConst, Const: 1 / instr.Const}, nil
	case slab.IInv:
		return c.s.TakeInstr(instr.Operand), nil
	default:
		h, err := c.push(instr)
		if err != nil {
			return slab.Instruction{}, err
		}
		return slab.Instruction{Kind: slab.IInv, Operand: h}, nil
	}
}

// compileAdd folds every IConst in instrs into one running sum and
// combines every remaining non-constant instruction into a left-nested
// IAdd spine, appending the folded sum as its final term (unless it is
// zero within the nearlyZero tolerance, in which case it is dropped
// entirely).
func (c *Compiler) compileAdd(instrs []slab.Instruction) (slab.Instruction, error) {
	out := slab.Instruction{Kind: slab.IConst, Const: 0}
	outSet := false
	constSum := 0.0
	for _, instr := range instrs {
		if instr.Kind == slab.IConst {
			constSum += instr.Const
		} else if outSet {
			lh, err := c.push(out)
			if err != nil {
				return slab.Instruction{}, err
			}
			ic, err := c.instrToIC(instr)
			if err != nil {
				return slab.Instruction{}, err
			}
			out = slab.Instruction{Kind: slab.IAdd, Left: lh, Right: ic}
		} else {
			out = instr
			outSet = true
		}
	}
	if !nearlyZero(constSum) {
		if outSet {
			lh, err := c.push(out)
			if err != nil {
				return slab.Instruction{}, err
			}
			out = slab.Instruction{Kind: slab.IAdd, Left: lh, Right: slab.ConstIC(constSum)}
		} else {
			out = slab.Instruction{Kind: slab.IConst, Const: constSum}
		}
	}
	return out, nil
}

func (c *Compiler) compileMul(instrs []slab.Instruction) (slab.Instruction, error) {
	out := slab.Instruction{Kind: slab.IConst, Const: 1}
	outSet := false
	constProd := 1.0
	for _, instr := range instrs {
		if instr.Kind == slab.IConst {
			constProd *= instr.Const
		} else if outSet {
			lh, err := c.push(out)
			if err != nil {
				return slab.Instruction{}, err
			}
			ic, err := c.instrToIC(instr)
			if err != nil {
				return slab.Instruction{}, err
			}
			out = slab.Instruction{Kind: slab.IMul, Left: lh, Right: ic}
		} else {
			out = instr
			outSet = true
		}
	}
	if !nearlyEqual(constProd, 1) {
		if outSet {
			lh, err := c.push(out)
			if err != nil {
				return slab.Instruction{}, err
			}
			out = slab.Instruction{Kind: slab.IMul, Left: lh, Right: slab.ConstIC(constProd)}
		} else {
			out = slab.Instruction{Kind: slab.IConst, Const: constProd}
		}
	}
	return out, nil
}

// pushAddLeaves re-opens an already-built IAdd via TakeInstr and appends
// its two operands as leaves, recursing if either side is itself an
// IAdd. This is what lets "x - 1 + 2 - 3" collapse into one flat sum
// instead of a chain of three binary nodes.
func (c *Compiler) pushAddLeaves(instrs []slab.Instruction, left slab.InstrH, right slab.IC) []slab.Instruction {
	if right.IsConst {
		instrs = append(instrs, slab.Instruction{Kind: slab.IConst, Const: right.Const})
	} else {
		rinstr := c.s.TakeInstr(right.Instr)
		if rinstr.Kind == slab.IAdd {
			instrs = c.pushAddLeaves(instrs, rinstr.Left, rinstr.Right)
		} else {
			instrs = append(instrs, rinstr)
		}
	}

	linstr := c.s.TakeInstr(left)
	if linstr.Kind == slab.IAdd {
		instrs = c.pushAddLeaves(instrs, linstr.Left, linstr.Right)
	} else {
		instrs = append(instrs, linstr)
	}
	return instrs
}

func (c *Compiler) pushMulLeaves(instrs []slab.Instruction, left slab.InstrH, right slab.IC) []slab.Instruction {
	if right.IsConst {
		instrs = append(instrs, slab.Instruction{Kind: slab.IConst, Const: right.Const})
	} else {
		rinstr := c.s.TakeInstr(right.Instr)
		if rinstr.Kind == slab.IMul {
			instrs = c.pushMulLeaves(instrs, rinstr.Left, rinstr.Right)
		} else {
			instrs = append(instrs, rinstr)
		}
	}

	linstr := c.s.TakeInstr(left)
	if linstr.Kind == slab.IMul {
		instrs = c.pushMulLeaves(instrs, linstr.Left, linstr.Right)
	} else {
		instrs = append(instrs, linstr)
	}
	return instrs
}

func (c *Compiler) processAddition(es exprSlice) (slab.Instruction, error) {
	xss := split(es, slab.Add)
	instrs := make([]slab.Instruction, 0, len(xss))
	for _, xs := range xss {
		instr, err := c.compileSlice(xs)
		if err != nil {
			return slab.Instruction{}, err
		}
		if instr.Kind == slab.IAdd {
			instrs = c.pushAddLeaves(instrs, instr.Left, instr.Right)
		} else {
			instrs = append(instrs, instr)
		}
	}
	return c.compileAdd(instrs)
}

// processSubtraction does not flatten: an operand that compiles to an
// IAdd (a parenthesized sum, for instance) is kept as a single term, and
// the constants inside it are not merged with the other operands'.
func (c *Compiler) processSubtraction(es exprSlice) (slab.Instruction, error) {
	xss := split(es, slab.Sub)
	instrs := make([]slab.Instruction, 0, len(xss))
	for i, xs := range xss {
		instr, err := c.compileSlice(xs)
		if err != nil {
			return slab.Instruction{}, err
		}
		if i == 0 {
			instrs = append(instrs, instr)
		} else {
			neg, err := c.negWrap(instr)
			if err != nil {
				return slab.Instruction{}, err
			}
			instrs = append(instrs, neg)
		}
	}
	return c.compileAdd(instrs)
}

func (c *Compiler) processMultiplication(es exprSlice) (slab.Instruction, error) {
	xss := split(es, slab.Mul)
	instrs := make([]slab.Instruction, 0, len(xss))
	for _, xs := range xss {
		instr, err := c.compileSlice(xs)
		if err != nil {
			return slab.Instruction{}, err
		}
		if instr.Kind == slab.IMul {
			instrs = c.pushMulLeaves(instrs, instr.Left, instr.Right)
		} else {
			instrs = append(instrs, instr)
		}
	}
	return c.compileMul(instrs)
}

func (c *Compiler) processDivision(es exprSlice) (slab.Instruction, error) {
	xss := split(es, slab.Div)
	instrs := make([]slab.Instruction, 0, len(xss))
	for i, xs := range xss {
		instr, err := c.compileSlice(xs)
		if err != nil {
			return slab.Instruction{}, err
		}
		if i == 0 {
			instrs = append(instrs, instr)
		} else {
			inv, err := c.invWrap(instr)
			if err != nil {
				return slab.Instruction{}, err
			}
			instrs = append(instrs, inv)
		}
	}
	return c.compileMul(instrs)
}

func (c *Compiler) processMod(es exprSlice) (slab.Instruction, error) {
	xss := split(es, slab.Mod)
	out := slab.Instruction{Kind: slab.IConst, Const: 0}
	outSet := false
	for _, xs := range xss {
		instr, err := c.compileSlice(xs)
		if err != nil {
			return slab.Instruction{}, err
		}
		if !outSet {
			out = instr
			outSet = true
			continue
		}
		if out.Kind == slab.IConst && instr.Kind == slab.IConst {
			out = slab.Instruction{Kind: slab.IConst, Const: math.Mod(out.Const, instr.Const)}
			continue
		}
		aIC, err := c.instrToIC(out)
		if err != nil {
			return slab.Instruction{}, err
		}
		bIC, err := c.instrToIC(instr)
		if err != nil {
			return slab.Instruction{}, err
		}
		out = slab.Instruction{Kind: slab.IMod, A: aIC, B: bIC}
	}
	return out, nil
}

// processExp makes exponentiation right-associative by compiling and
// folding the split operands in reverse order.
func (c *Compiler) processExp(es exprSlice) (slab.Instruction, error) {
	xss := split(es, slab.Exp)
	out := slab.Instruction{Kind: slab.IConst, Const: 0}
	outSet := false
	for i := len(xss) - 1; i >= 0; i-- {
		instr, err := c.compileSlice(xss[i])
		if err != nil {
			return slab.Instruction{}, err
		}
		if !outSet {
			out = instr
			outSet = true
			continue
		}
		if out.Kind == slab.IConst && instr.Kind == slab.IConst {
			out = slab.Instruction{Kind: slab.IConst, Const: math.Pow(instr.Const, out.Const)}
			continue
		}
		baseIC, err := c.instrToIC(instr)
		if err != nil {
			return slab.Instruction{}, err
		}
		powIC, err := c.instrToIC(out)
		if err != nil {
			return slab.Instruction{}, err
		}
		out = slab.Instruction{Kind: slab.IExp, A: baseIC, B: powIC}
	}
	return out, nil
}

// compileValue dispatches on a Value's Kind. Unary operators and
// parentheses are noops or single wrappers around their inner compile;
// calls route through either the fixed builtin table or, falling
// through, a caller-supplied Namespace.
func (c *Compiler) compileValue(v *slab.Value) (slab.Instruction, error) {
	switch v.Kind {
	case slab.VConstant:
		return slab.Instruction{Kind: slab.IConst, Const: v.Const}, nil

	case slab.VPos:
		return c.compileValueH(v.Inner)

	case slab.VNeg:
		instr, err := c.compileValueH(v.Inner)
		if err != nil {
			return slab.Instruction{}, err
		}
		return c.negWrap(instr)

	case slab.VNot:
		instr, err := c.compileValueH(v.Inner)
		if err != nil {
			return slab.Instruction{}, err
		}
		return c.notWrap(instr)

	case slab.VParens:
		return c.compileExprH(v.Paren)

	case slab.VVar:
		return slab.Instruction{Kind: slab.IVar, Name: v.Name}, nil

	case slab.VUnsafeVar:
		return slab.Instruction{Kind: slab.IUnsafeVar, Name: v.Name, UnsafePtr: v.UnsafePtr}, nil

	case slab.VFunc:
		return c.compileCustomFn(v.Name, v.Args)

	case slab.VBuiltin:
		return c.compileBuiltin(v)

	case slab.VPrint:
		return c.compilePrint(v.PrintItems)

	default:
		return slab.Instruction{}, unreachableErr("compileValue: unknown value kind")
	}
}

// compileCustomFn constant-folds user function calls: if every argument
// folds to a constant, the call is made right now against ns and, if ns
// recognizes the name, the whole call collapses to IConst. This makes a
// user namespace's function resolution an observable part of
// compilation, not just evaluation.
func (c *Compiler) compileCustomFn(name string, argExprs []slab.ExprH) (slab.Instruction, error) {
	compiled := make([]slab.Instruction, len(argExprs))
	fargs := make([]float64, 0, len(argExprs))
	allConst := true
	for i, ae := range argExprs {
		instr, err := c.compileExprH(ae)
		if err != nil {
			return slab.Instruction{}, err
		}
		compiled[i] = instr
		if instr.Kind == slab.IConst {
			fargs = append(fargs, instr.Const)
		} else {
			allConst = false
		}
	}

	if allConst && c.ns != nil {
		if v, ok := c.ns.Lookup(name, fargs, c.s.Scratch); ok {
			return slab.Instruction{Kind: slab.IConst, Const: v}, nil
		}
	}

	args := make([]slab.InstrH, len(compiled))
	for i, instr := range compiled {
		h, err := c.push(instr)
		if err != nil {
			return slab.Instruction{}, err
		}
		args[i] = h
	}
	return slab.Instruction{Kind: slab.IFunc, Name: name, Args: args}, nil
}

func (c *Compiler) compilePrint(items []slab.PrintItem) (slab.Instruction, error) {
	out := make([]slab.PrintInstr, len(items))
	for i, pi := range items {
		if pi.IsLiteral {
			out[i] = slab.PrintInstr{Literal: pi.Literal, IsLiteral: true}
			continue
		}
		instr, err := c.compileExprH(pi.Expr)
		if err != nil {
			return slab.Instruction{}, err
		}
		h, err := c.push(instr)
		if err != nil {
			return slab.Instruction{}, err
		}
		out[i] = slab.PrintInstr{Instr: h}
	}
	return slab.Instruction{Kind: slab.IPrint, PrintItems: out}, nil
}

// unaryBuiltins maps a one-argument builtin straight to its compiled
// instruction kind and its constant-folding implementation.
var unaryBuiltins = map[slab.BuiltinID]struct {
	Kind slab.InstrKind
	Fold func(float64) float64
}{
	slab.BuiltinInt:   {slab.IInt, math.Trunc},
	slab.BuiltinCeil:  {slab.ICeil, math.Ceil},
	slab.BuiltinFloor: {slab.IFloor, math.Floor},
	slab.BuiltinAbs:   {slab.IAbs, math.Abs},
	slab.BuiltinSign:  {slab.ISign, signum},
	slab.BuiltinSin:   {slab.ISin, math.Sin},
	slab.BuiltinCos:   {slab.ICos, math.Cos},
	slab.BuiltinTan:   {slab.ITan, math.Tan},
	slab.BuiltinASin:  {slab.IASin, math.Asin},
	slab.BuiltinACos:  {slab.IACos, math.Acos},
	slab.BuiltinATan:  {slab.IATan, math.Atan},
	slab.BuiltinSinH:  {slab.ISinH, math.Sinh},
	slab.BuiltinCosH:  {slab.ICosH, math.Cosh},
	slab.BuiltinTanH:  {slab.ITanH, math.Tanh},
	slab.BuiltinASinH: {slab.IASinH, math.Asinh},
	slab.BuiltinACosH: {slab.IACosH, math.Acosh},
	slab.BuiltinATanH: {slab.IATanH, math.Atanh},
}

func (c *Compiler) compileBuiltin(v *slab.Value) (slab.Instruction, error) {
	switch v.Builtin {
	case slab.BuiltinE:
		return slab.Instruction{Kind: slab.IConst, Const: math.E}, nil
	case slab.BuiltinPi:
		return slab.Instruction{Kind: slab.IConst, Const: math.Pi}, nil
	case slab.BuiltinLog:
		return c.compileLog(v.Args)
	case slab.BuiltinRound:
		return c.compileRound(v.Args)
	case slab.BuiltinMin:
		return c.compileMinMax(v.Args, slab.IMin, foldMin)
	case slab.BuiltinMax:
		return c.compileMinMax(v.Args, slab.IMax, foldMax)
	default:
		bf, ok := unaryBuiltins[v.Builtin]
		if !ok {
			return slab.Instruction{}, unreachableErr("compileBuiltin: unmapped builtin")
		}
		return c.compileUnaryFn(v.Args[0], bf.Kind, bf.Fold)
	}
}

func (c *Compiler) compileUnaryFn(argExpr slab.ExprH, kind slab.InstrKind, fold func(float64) float64) (slab.Instruction, error) {
	instr, err := c.compileExprH(argExpr)
	if err != nil {
		return slab.Instruction{}, err
	}
	if instr.Kind == slab.IConst {
		return slab.Instruction{Kind: slab.IConst, Const: fold(instr.Const)}, nil
	}
	h, err := c.push(instr)
	if err != nil {
		return slab.Instruction{}, err
	}
	return slab.Instruction{Kind: kind, Operand: h}, nil
}

// compileLog handles the optional base argument: log(x) is base 10,
// log(b, x) uses b. Base 2 and base 10 route to math.Log2/math.Log10 so
// those common cases stay exact rather than going through the general
// change-of-base formula.
func (c *Compiler) compileLog(args []slab.ExprH) (slab.Instruction, error) {
	base := slab.Instruction{Kind: slab.IConst, Const: 10}
	ofIdx := 0
	if len(args) == 2 {
		var err error
		base, err = c.compileExprH(args[0])
		if err != nil {
			return slab.Instruction{}, err
		}
		ofIdx = 1
	}
	of, err := c.compileExprH(args[ofIdx])
	if err != nil {
		return slab.Instruction{}, err
	}
	if base.Kind == slab.IConst && of.Kind == slab.IConst {
		return slab.Instruction{Kind: slab.IConst, Const: logBase(base.Const, of.Const)}, nil
	}
	baseIC, err := c.instrToIC(base)
	if err != nil {
		return slab.Instruction{}, err
	}
	ofIC, err := c.instrToIC(of)
	if err != nil {
		return slab.Instruction{}, err
	}
	return slab.Instruction{Kind: slab.ILog, A: baseIC, B: ofIC}, nil
}

// compileRound handles the optional modulus argument: round(x) rounds
// to the nearest integer, round(m, x) rounds to the nearest multiple of
// m, half away from zero.
func (c *Compiler) compileRound(args []slab.ExprH) (slab.Instruction, error) {
	modulus := slab.Instruction{Kind: slab.IConst, Const: 1}
	ofIdx := 0
	if len(args) == 2 {
		var err error
		modulus, err = c.compileExprH(args[0])
		if err != nil {
			return slab.Instruction{}, err
		}
		ofIdx = 1
	}
	of, err := c.compileExprH(args[ofIdx])
	if err != nil {
		return slab.Instruction{}, err
	}
	if modulus.Kind == slab.IConst && of.Kind == slab.IConst {
		return slab.Instruction{Kind: slab.IConst, Const: roundTo(of.Const, modulus.Const)}, nil
	}
	ofIC, err := c.instrToIC(of)
	if err != nil {
		return slab.Instruction{}, err
	}
	modIC, err := c.instrToIC(modulus)
	if err != nil {
		return slab.Instruction{}, err
	}
	return slab.Instruction{Kind: slab.IRound, A: ofIC, B: modIC}, nil
}

// compileMinMax folds every constant argument into a single running
// best (tracked separately from the non-constant operands) and only
// then, if any non-constant operand remains, attaches that folded
// constant as the final term of the IMin/IMax chain. fold reduces the
// accumulated constants the same NaN-propagating way foldMin/foldMax
// reduce the interpreter's argument slice, so a NaN anywhere in the
// constant arguments is never silently displaced by a later non-NaN
// constant.
func (c *Compiler) compileMinMax(args []slab.ExprH, kind slab.InstrKind, fold func([]float64) float64) (slab.Instruction, error) {
	first, err := c.compileExprH(args[0])
	if err != nil {
		return slab.Instruction{}, err
	}
	rest := make([]slab.Instruction, 0, len(args)-1)
	for _, a := range args[1:] {
		instr, err := c.compileExprH(a)
		if err != nil {
			return slab.Instruction{}, err
		}
		rest = append(rest, instr)
	}

	var out slab.Instruction
	outSet := false
	var consts []float64
	if first.Kind == slab.IConst {
		consts = append(consts, first.Const)
	} else {
		out, outSet = first, true
	}

	for _, instr := range rest {
		if instr.Kind == slab.IConst {
			consts = append(consts, instr.Const)
		} else if outSet {
			lh, err := c.push(out)
			if err != nil {
				return slab.Instruction{}, err
			}
			rh, err := c.push(instr)
			if err != nil {
				return slab.Instruction{}, err
			}
			out = slab.Instruction{Kind: kind, Left: lh, Right: slab.HandleIC(rh)}
		} else {
			out, outSet = instr, true
		}
	}

	if len(consts) > 0 {
		constBest := fold(consts)
		if outSet {
			lh, err := c.push(out)
			if err != nil {
				return slab.Instruction{}, err
			}
			out = slab.Instruction{Kind: kind, Left: lh, Right: slab.ConstIC(constBest)}
		} else {
			out = slab.Instruction{Kind: slab.IConst, Const: constBest}
		}
	}
	return out, nil
}
