package exprlang

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/dekarrin/exprlang/internal/slab"
	"github.com/dekarrin/exprlang/internal/util"
)

// file eval.go implements two evaluation strategies over the same Slab:
//
//   - EvalInstr walks a compiled Instruction tree (the output of
//     Compiler.Compile). This is the fast path: most of the arithmetic
//     has already been folded away at compile time.
//   - EvalExpr walks the raw parsed Expression/Value tree directly,
//     without compiling first. It is slower per call but cheaper
//     overall for an expression that will only ever be evaluated once,
//     since it skips building the Instruction arena entirely.
//
// Both preserve AND/OR short-circuit evaluation: the right operand is
// never evaluated, and the namespace never consulted for it, unless the
// left operand's truthiness requires it.

// Evaluator runs either style of evaluation against one Slab, resolving
// variables and calls against ns.
type Evaluator struct {
	s  *slab.Slab
	ns Namespace
}

// NewEvaluator creates an Evaluator reading from s and resolving lookups
// against ns. ns may be nil if the expression is known to reference no
// variable or function; any reference encountered then fails lookup and
// evaluation errors with Undefined.
func NewEvaluator(s *slab.Slab, ns Namespace) *Evaluator {
	return &Evaluator{s: s, ns: ns}
}

func (ev *Evaluator) lookup(name string, args []float64) (float64, error) {
	if ev.ns != nil {
		if v, ok := ev.ns.Lookup(name, args, ev.s.Scratch); ok {
			return v, nil
		}
	}
	return 0, undefinedErr(name)
}

// EvalInstr evaluates the compiled instruction at h.
func (ev *Evaluator) EvalInstr(h slab.InstrH) (float64, error) {
	return ev.evalInstr(ev.s.GetInstr(h))
}

func (ev *Evaluator) evalIC(ic slab.IC) (float64, error) {
	if ic.IsConst {
		return ic.Const, nil
	}
	return ev.EvalInstr(ic.Instr)
}

func (ev *Evaluator) evalInstr(in *slab.Instruction) (float64, error) {
	switch in.Kind {
	case slab.IConst:
		return in.Const, nil

	case slab.IVar:
		return ev.lookup(in.Name, nil)
	case slab.IUnsafeVar:
		return *in.UnsafePtr, nil
	case slab.IFunc:
		args := make([]float64, len(in.Args))
		for i, ah := range in.Args {
			v, err := ev.EvalInstr(ah)
			if err != nil {
				return 0, err
			}
			args[i] = v
		}
		return ev.lookup(in.Name, args)

	case slab.INeg:
		v, err := ev.EvalInstr(in.Operand)
		return -v, err
	case slab.INot:
		v, err := ev.EvalInstr(in.Operand)
		return boolToF(nearlyZero(v)), err
	case slab.IInv:
		v, err := ev.EvalInstr(in.Operand)
		return 1 / v, err

	case slab.IAdd:
		l, err := ev.EvalInstr(in.Left)
		if err != nil {
			return 0, err
		}
		r, err := ev.evalIC(in.Right)
		return l + r, err
	case slab.IMul:
		l, err := ev.EvalInstr(in.Left)
		if err != nil {
			return 0, err
		}
		r, err := ev.evalIC(in.Right)
		return l * r, err

	case slab.IOr:
		l, err := ev.EvalInstr(in.Left)
		if err != nil {
			return 0, err
		}
		if !nearlyZero(l) {
			return l, nil
		}
		return ev.evalIC(in.Right)
	case slab.IAnd:
		l, err := ev.EvalInstr(in.Left)
		if err != nil {
			return 0, err
		}
		if nearlyZero(l) {
			return l, nil
		}
		return ev.evalIC(in.Right)

	case slab.IMin:
		l, err := ev.EvalInstr(in.Left)
		if err != nil {
			return 0, err
		}
		r, err := ev.evalIC(in.Right)
		if err != nil {
			return 0, err
		}
		return nanMin2(l, r), nil
	case slab.IMax:
		l, err := ev.EvalInstr(in.Left)
		if err != nil {
			return 0, err
		}
		r, err := ev.evalIC(in.Right)
		if err != nil {
			return 0, err
		}
		return nanMax2(l, r), nil

	case slab.IMod:
		a, err := ev.evalIC(in.A)
		if err != nil {
			return 0, err
		}
		b, err := ev.evalIC(in.B)
		return math.Mod(a, b), err
	case slab.IExp:
		base, err := ev.evalIC(in.A)
		if err != nil {
			return 0, err
		}
		power, err := ev.evalIC(in.B)
		return math.Pow(base, power), err
	case slab.ILog:
		base, err := ev.evalIC(in.A)
		if err != nil {
			return 0, err
		}
		of, err := ev.evalIC(in.B)
		return logBase(base, of), err
	case slab.IRound:
		of, err := ev.evalIC(in.A)
		if err != nil {
			return 0, err
		}
		modulus, err := ev.evalIC(in.B)
		return roundTo(of, modulus), err

	case slab.ILT:
		return ev.evalCompare(in, func(l, r float64) bool { return l < r })
	case slab.ILTE:
		return ev.evalCompare(in, func(l, r float64) bool { return l <= r })
	case slab.IGT:
		return ev.evalCompare(in, func(l, r float64) bool { return l > r })
	case slab.IGTE:
		return ev.evalCompare(in, func(l, r float64) bool { return l >= r })
	case slab.IEQ:
		return ev.evalCompare(in, nearlyEqual)
	case slab.INE:
		return ev.evalCompare(in, func(l, r float64) bool { return !nearlyEqual(l, r) })

	case slab.IInt:
		v, err := ev.EvalInstr(in.Operand)
		return math.Trunc(v), err
	case slab.ICeil:
		v, err := ev.EvalInstr(in.Operand)
		return math.Ceil(v), err
	case slab.IFloor:
		v, err := ev.EvalInstr(in.Operand)
		return math.Floor(v), err
	case slab.IAbs:
		v, err := ev.EvalInstr(in.Operand)
		return math.Abs(v), err
	case slab.ISign:
		v, err := ev.EvalInstr(in.Operand)
		return signum(v), err
	case slab.ISin:
		v, err := ev.EvalInstr(in.Operand)
		return math.Sin(v), err
	case slab.ICos:
		v, err := ev.EvalInstr(in.Operand)
		return math.Cos(v), err
	case slab.ITan:
		v, err := ev.EvalInstr(in.Operand)
		return math.Tan(v), err
	case slab.IASin:
		v, err := ev.EvalInstr(in.Operand)
		return math.Asin(v), err
	case slab.IACos:
		v, err := ev.EvalInstr(in.Operand)
		return math.Acos(v), err
	case slab.IATan:
		v, err := ev.EvalInstr(in.Operand)
		return math.Atan(v), err
	case slab.ISinH:
		v, err := ev.EvalInstr(in.Operand)
		return math.Sinh(v), err
	case slab.ICosH:
		v, err := ev.EvalInstr(in.Operand)
		return math.Cosh(v), err
	case slab.ITanH:
		v, err := ev.EvalInstr(in.Operand)
		return math.Tanh(v), err
	case slab.IASinH:
		v, err := ev.EvalInstr(in.Operand)
		return math.Asinh(v), err
	case slab.IACosH:
		v, err := ev.EvalInstr(in.Operand)
		return math.Acosh(v), err
	case slab.IATanH:
		v, err := ev.EvalInstr(in.Operand)
		return math.Atanh(v), err

	case slab.IPrint:
		return ev.evalPrintInstr(in.PrintItems)

	default:
		return 0, unreachableErr("evalInstr: unknown instruction kind")
	}
}

func (ev *Evaluator) evalCompare(in *slab.Instruction, cmp func(l, r float64) bool) (float64, error) {
	l, err := ev.evalIC(in.A)
	if err != nil {
		return 0, err
	}
	r, err := ev.evalIC(in.B)
	if err != nil {
		return 0, err
	}
	return boolToF(cmp(l, r)), nil
}

func (ev *Evaluator) evalPrintInstr(items []slab.PrintInstr) (float64, error) {
	var last float64
	parts := make([]string, 0, len(items))
	for _, it := range items {
		if it.IsLiteral {
			parts = append(parts, it.Literal)
			continue
		}
		v, err := ev.EvalInstr(it.Instr)
		if err != nil {
			return 0, err
		}
		parts = append(parts, strconv.FormatFloat(v, 'g', -1, 64))
		last = v
	}
	printLine(parts)
	return last, nil
}

// printLine writes one print() call's items, space-separated, to standard
// error with a trailing newline. Diagnostic output goes to stderr so it
// never mixes into whatever the embedding program writes to stdout.
func printLine(parts []string) {
	fmt.Fprintln(os.Stderr, strings.Join(parts, " "))
}

// EvalExpr evaluates the parsed (uncompiled) expression rooted at h
// directly, without ever materializing an Instruction.
func (ev *Evaluator) EvalExpr(h slab.ExprH) (float64, error) {
	e := ev.s.GetExpr(h)
	return ev.evalSlice(exprSlice{first: e.First, pairs: e.Pairs})
}

func (ev *Evaluator) evalValueH(h slab.ValueH) (float64, error) {
	return ev.evalValue(ev.s.GetValue(h))
}

// evalSlice re-associates the same way Compiler.compileSlice does,
// except it computes a float64 immediately instead of building an
// Instruction, and it short-circuits AND/OR exactly as the compiled form
// would at runtime. A comparison chain evaluates every one of its
// operands.
func (ev *Evaluator) evalSlice(es exprSlice) (float64, error) {
	if len(es.pairs) == 0 {
		return ev.evalValueH(es.first)
	}

	lowest := es.pairs[0].Op
	for _, p := range es.pairs[1:] {
		if p.Op < lowest {
			lowest = p.Op
		}
	}

	if lowest.IsComparison() {
		return ev.evalComparisons(es)
	}

	switch lowest {
	case slab.Or:
		return ev.evalOr(es)
	case slab.And:
		return ev.evalAnd(es)
	case slab.Add:
		return ev.evalAdd(es)
	case slab.Sub:
		return ev.evalSub(es)
	case slab.Mul:
		return ev.evalMul(es)
	case slab.Div:
		return ev.evalDiv(es)
	case slab.Mod:
		return ev.evalMod(es)
	case slab.Exp:
		return ev.evalExp(es)
	default:
		return 0, unreachableErr("evalSlice: unknown lowest operator")
	}
}

func (ev *Evaluator) evalOr(es exprSlice) (float64, error) {
	for _, xs := range split(es, slab.Or) {
		v, err := ev.evalSlice(xs)
		if err != nil {
			return 0, err
		}
		if !nearlyZero(v) {
			return v, nil
		}
	}
	return 0, nil
}

func (ev *Evaluator) evalAnd(es exprSlice) (float64, error) {
	var last float64
	for _, xs := range split(es, slab.And) {
		v, err := ev.evalSlice(xs)
		if err != nil {
			return 0, err
		}
		if nearlyZero(v) {
			return v, nil
		}
		last = v
	}
	return last, nil
}

// evalAdd and evalMul reduce right-to-left, like evalExp; subtraction and
// division reduce left-to-right in evalSub and evalDiv below.
func (ev *Evaluator) evalAdd(es exprSlice) (float64, error) {
	xss := split(es, slab.Add)
	sum, err := ev.evalSlice(xss[len(xss)-1])
	if err != nil {
		return 0, err
	}
	for i := len(xss) - 2; i >= 0; i-- {
		v, err := ev.evalSlice(xss[i])
		if err != nil {
			return 0, err
		}
		sum = v + sum
	}
	return sum, nil
}

func (ev *Evaluator) evalMul(es exprSlice) (float64, error) {
	xss := split(es, slab.Mul)
	prod, err := ev.evalSlice(xss[len(xss)-1])
	if err != nil {
		return 0, err
	}
	for i := len(xss) - 2; i >= 0; i-- {
		v, err := ev.evalSlice(xss[i])
		if err != nil {
			return 0, err
		}
		prod = v * prod
	}
	return prod, nil
}

func (ev *Evaluator) evalSub(es exprSlice) (float64, error) {
	xss := split(es, slab.Sub)
	out, err := ev.evalSlice(xss[0])
	if err != nil {
		return 0, err
	}
	for _, xs := range xss[1:] {
		v, err := ev.evalSlice(xs)
		if err != nil {
			return 0, err
		}
		out -= v
	}
	return out, nil
}

func (ev *Evaluator) evalDiv(es exprSlice) (float64, error) {
	xss := split(es, slab.Div)
	out, err := ev.evalSlice(xss[0])
	if err != nil {
		return 0, err
	}
	for _, xs := range xss[1:] {
		v, err := ev.evalSlice(xs)
		if err != nil {
			return 0, err
		}
		out /= v
	}
	return out, nil
}

func (ev *Evaluator) evalMod(es exprSlice) (float64, error) {
	xss := split(es, slab.Mod)
	out, err := ev.evalSlice(xss[0])
	if err != nil {
		return 0, err
	}
	for _, xs := range xss[1:] {
		v, err := ev.evalSlice(xs)
		if err != nil {
			return 0, err
		}
		out = math.Mod(out, v)
	}
	return out, nil
}

func (ev *Evaluator) evalExp(es exprSlice) (float64, error) {
	xss := split(es, slab.Exp)
	out, err := ev.evalSlice(xss[len(xss)-1])
	if err != nil {
		return 0, err
	}
	for i := len(xss) - 2; i >= 0; i-- {
		base, err := ev.evalSlice(xss[i])
		if err != nil {
			return 0, err
		}
		out = math.Pow(base, out)
	}
	return out, nil
}

func (ev *Evaluator) evalComparisons(es exprSlice) (float64, error) {
	xss, ops := splitMulti(es, comparisonOps)
	out, err := ev.evalSlice(xss[0])
	if err != nil {
		return 0, err
	}
	for i, op := range ops {
		r, err := ev.evalSlice(xss[i+1])
		if err != nil {
			return 0, err
		}
		var res bool
		switch op {
		case slab.EQ:
			res = nearlyEqual(out, r)
		case slab.NE:
			res = !nearlyEqual(out, r)
		case slab.LT:
			res = out < r
		case slab.GT:
			res = out > r
		case slab.LTE:
			res = out <= r
		case slab.GTE:
			res = out >= r
		}
		out = boolToF(res)
	}
	return out, nil
}

func (ev *Evaluator) evalValue(v *slab.Value) (float64, error) {
	switch v.Kind {
	case slab.VConstant:
		return v.Const, nil
	case slab.VPos:
		return ev.evalValueH(v.Inner)
	case slab.VNeg:
		inner, err := ev.evalValueH(v.Inner)
		return -inner, err
	case slab.VNot:
		inner, err := ev.evalValueH(v.Inner)
		return boolToF(nearlyZero(inner)), err
	case slab.VParens:
		return ev.EvalExpr(v.Paren)
	case slab.VVar:
		return ev.lookup(v.Name, nil)
	case slab.VUnsafeVar:
		return *v.UnsafePtr, nil
	case slab.VFunc:
		args := make([]float64, len(v.Args))
		for i, ah := range v.Args {
			a, err := ev.EvalExpr(ah)
			if err != nil {
				return 0, err
			}
			args[i] = a
		}
		return ev.lookup(v.Name, args)
	case slab.VBuiltin:
		return ev.evalBuiltinValue(v)
	case slab.VPrint:
		return ev.evalPrintValue(v.PrintItems)
	default:
		return 0, unreachableErr("evalValue: unknown value kind")
	}
}

func (ev *Evaluator) evalPrintValue(items []slab.PrintItem) (float64, error) {
	var last float64
	parts := make([]string, 0, len(items))
	for _, it := range items {
		if it.IsLiteral {
			parts = append(parts, it.Literal)
			continue
		}
		v, err := ev.EvalExpr(it.Expr)
		if err != nil {
			return 0, err
		}
		parts = append(parts, strconv.FormatFloat(v, 'g', -1, 64))
		last = v
	}
	printLine(parts)
	return last, nil
}

func (ev *Evaluator) evalBuiltinValue(v *slab.Value) (float64, error) {
	switch v.Builtin {
	case slab.BuiltinE:
		return math.E, nil
	case slab.BuiltinPi:
		return math.Pi, nil
	case slab.BuiltinLog:
		base := 10.0
		ofIdx := 0
		if len(v.Args) == 2 {
			var err error
			base, err = ev.EvalExpr(v.Args[0])
			if err != nil {
				return 0, err
			}
			ofIdx = 1
		}
		of, err := ev.EvalExpr(v.Args[ofIdx])
		return logBase(base, of), err
	case slab.BuiltinRound:
		modulus := 1.0
		ofIdx := 0
		if len(v.Args) == 2 {
			var err error
			modulus, err = ev.EvalExpr(v.Args[0])
			if err != nil {
				return 0, err
			}
			ofIdx = 1
		}
		of, err := ev.EvalExpr(v.Args[ofIdx])
		return roundTo(of, modulus), err
	case slab.BuiltinMin, slab.BuiltinMax:
		vals := make([]float64, len(v.Args))
		for i, ah := range v.Args {
			val, err := ev.EvalExpr(ah)
			if err != nil {
				return 0, err
			}
			vals[i] = val
		}
		if v.Builtin == slab.BuiltinMin {
			return foldMin(vals), nil
		}
		return foldMax(vals), nil
	default:
		arg, err := ev.EvalExpr(v.Args[0])
		if err != nil {
			return 0, err
		}
		fold, ok := unaryBuiltins[v.Builtin]
		if !ok {
			return 0, unreachableErr("evalBuiltinValue: unmapped builtin")
		}
		return fold.Fold(arg), nil
	}
}

// VarNames walks the compiled instruction at root and returns the set of
// distinct variable and function names it references - a bare variable
// contributes its own name, and a call contributes both its own name
// and whatever its arguments reference in turn. Every branch is walked,
// including the right side of And/Or that evaluation might short-circuit
// past, so the result is the full set of names an evaluation could ever
// need resolved.
func VarNames(s *slab.Slab, root slab.InstrH) util.StringSet {
	dst := util.NewStringSet()
	collectVarNames(s, root, dst)
	return dst
}

func collectVarNames(s *slab.Slab, h slab.InstrH, dst util.StringSet) {
	in := s.GetInstr(h)
	switch in.Kind {
	case slab.IVar, slab.IUnsafeVar:
		dst.Add(in.Name)

	case slab.IFunc:
		dst.Add(in.Name)
		for _, ah := range in.Args {
			collectVarNames(s, ah, dst)
		}

	case slab.IConst:
		// no operand

	case slab.INeg, slab.INot, slab.IInv,
		slab.IInt, slab.ICeil, slab.IFloor, slab.IAbs, slab.ISign,
		slab.ISin, slab.ICos, slab.ITan, slab.IASin, slab.IACos, slab.IATan,
		slab.ISinH, slab.ICosH, slab.ITanH, slab.IASinH, slab.IACosH, slab.IATanH:
		collectVarNames(s, in.Operand, dst)

	case slab.ILT, slab.ILTE, slab.IEQ, slab.INE, slab.IGTE, slab.IGT,
		slab.IMod, slab.IExp, slab.ILog, slab.IRound:
		collectICVarNames(s, in.A, dst)
		collectICVarNames(s, in.B, dst)

	case slab.IAdd, slab.IMul, slab.IOr, slab.IAnd, slab.IMin, slab.IMax:
		collectVarNames(s, in.Left, dst)
		collectICVarNames(s, in.Right, dst)

	case slab.IPrint:
		for _, pi := range in.PrintItems {
			if !pi.IsLiteral {
				collectVarNames(s, pi.Instr, dst)
			}
		}
	}
}

func collectICVarNames(s *slab.Slab, ic slab.IC, dst util.StringSet) {
	if ic.IsConst {
		return
	}
	collectVarNames(s, ic.Instr, dst)
}
