package slab

// BinaryOp is a binary operator token, ordered low-to-high precedence. The
// ordering itself is load-bearing: the compiler's precedence layering finds
// the lowest-precedence operator present in an Expression's pairs by
// comparing BinaryOp values directly.
type BinaryOp int

const (
	Or BinaryOp = iota
	And
	NE
	EQ
	GTE
	LTE
	GT
	LT
	Add
	Sub
	Mul
	Div
	Mod
	Exp
)

var binaryOpNames = map[BinaryOp]string{
	Or: "||", And: "&&", NE: "!=", EQ: "==", GTE: ">=", LTE: "<=", GT: ">", LT: "<",
	Add: "+", Sub: "-", Mul: "*", Div: "/", Mod: "%", Exp: "^",
}

func (op BinaryOp) String() string {
	if n, ok := binaryOpNames[op]; ok {
		return n
	}
	return "?"
}

// IsComparison reports whether op is one of the six comparison operators,
// which the compiler and interpreter both treat as a single precedence
// group (so "a<b<c" chains left-to-right rather than being illegal).
func (op BinaryOp) IsComparison() bool {
	switch op {
	case NE, EQ, GTE, LTE, GT, LT:
		return true
	}
	return false
}

// Pair is one (operator, operand) step in an Expression's flat sequence.
type Pair struct {
	Op  BinaryOp
	Val ValueH
}

// Expression is "Value (BinaryOp Value)*" — a flat sequence rather than a
// pre-built tree, so that the compiler and the interpreter are each free to
// re-associate it according to the operator's associativity rules.
type Expression struct {
	First ValueH
	Pairs []Pair
}

// ValueKind tags the active variant of a Value.
type ValueKind int

const (
	VConstant ValueKind = iota
	VPos                // unary +
	VNeg                // unary -
	VNot                // unary !
	VParens             // ( Expression ) or [ Expression ]
	VVar                // bare identifier
	VUnsafeVar          // identifier pre-registered against a live *float64
	VFunc               // user-defined call
	VBuiltin            // one of the fixed built-in functions
	VPrint              // print(...)
)

// PrintItem is one argument of a print() call: either a literal string
// lexed from a quoted token, or an expression to be evaluated.
type PrintItem struct {
	Literal   string
	IsLiteral bool
	Expr      ExprH
}

// Value is a tagged variant over the parse-tree value kinds. Only the
// fields relevant to Kind are populated.
type Value struct {
	Kind ValueKind

	// VConstant
	Const float64

	// VPos, VNeg, VNot: operand is another Value.
	Inner ValueH

	// VParens: operand is a full sub-expression.
	Paren ExprH

	// VVar, VUnsafeVar, VFunc, VBuiltin: the identifier used.
	Name string

	// VFunc, VBuiltin: call arguments.
	Args []ExprH

	// VUnsafeVar: the pointer this variable was bound to at parse time.
	UnsafePtr *float64

	// VBuiltin: which fixed builtin Name resolved to.
	Builtin BuiltinID

	// VPrint
	PrintItems []PrintItem
}

// InstrKind tags the active variant of a compiled Instruction.
type InstrKind int

const (
	IConst InstrKind = iota
	IVar
	IUnsafeVar
	IFunc
	IPrint

	INeg
	INot
	IInv

	IAdd
	IMul
	IOr
	IAnd
	IMin
	IMax

	IMod
	IExp
	ILT
	ILTE
	IEQ
	INE
	IGTE
	IGT
	ILog
	IRound

	IInt
	ICeil
	IFloor
	IAbs
	ISign
	ISin
	ICos
	ITan
	IASin
	IACos
	IATan
	ISinH
	ICosH
	ITanH
	IASinH
	IACosH
	IATanH
)

// IC ("instruction or constant") packs a binary instruction's right operand
// so that a constant right-hand side never costs a handle indirection or an
// arena lookup on the hot path.
type IC struct {
	IsConst bool
	Const   float64
	Instr   InstrH
}

// ConstIC builds an IC directly holding a constant.
func ConstIC(v float64) IC { return IC{IsConst: true, Const: v} }

// HandleIC builds an IC referencing a compiled instruction.
func HandleIC(h InstrH) IC { return IC{Instr: h} }

// Instruction is a tagged variant over the compiled instruction set. As
// with Value, only the fields relevant to Kind are populated.
type Instruction struct {
	Kind InstrKind

	// IConst
	Const float64

	// IVar, IUnsafeVar, IFunc
	Name string

	// IUnsafeVar
	UnsafePtr *float64

	// IFunc
	Args []InstrH

	// IPrint
	PrintItems []PrintInstr

	// INeg, INot, IInv and the unary fixed functions (IInt..IATanH): the
	// single wrapped operand.
	Operand InstrH

	// IAdd, IMul, IOr, IAnd, IMin, IMax: primary left operand plus a packed
	// right-hand IC.
	Left  InstrH
	Right IC

	// IMod, IExp, comparisons, ILog, IRound: two packed operands. For
	// IMod/IRound, A is dividend/value and B is divisor/modulus. For IExp, A
	// is base and B is power. For ILog, A is base and B is the argument.
	A IC
	B IC
}

// PrintInstr is the compiled form of a PrintItem.
type PrintInstr struct {
	Literal   string
	IsLiteral bool
	Instr     InstrH
}
