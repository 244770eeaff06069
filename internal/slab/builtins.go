package slab

// BuiltinID identifies one of the fixed, always-available functions.
// Built-ins take precedence over any caller-defined function with the
// same name.
type BuiltinID int

const (
	BuiltinInt BuiltinID = iota
	BuiltinCeil
	BuiltinFloor
	BuiltinAbs
	BuiltinSign
	BuiltinLog
	BuiltinRound
	BuiltinMin
	BuiltinMax
	BuiltinE
	BuiltinPi
	BuiltinSin
	BuiltinCos
	BuiltinTan
	BuiltinASin
	BuiltinACos
	BuiltinATan
	BuiltinSinH
	BuiltinCosH
	BuiltinTanH
	BuiltinASinH
	BuiltinACosH
	BuiltinATanH
)

// BuiltinArity describes the argument counts a builtin will accept. Min and
// Max are inclusive; Max of -1 means unbounded (min/max take one or more).
type BuiltinArity struct {
	Min, Max int
}

// Builtins maps every recognized built-in name (case-sensitive) to its
// identity and accepted arity.
var Builtins = map[string]struct {
	ID    BuiltinID
	Arity BuiltinArity
}{
	"int":   {BuiltinInt, BuiltinArity{1, 1}},
	"ceil":  {BuiltinCeil, BuiltinArity{1, 1}},
	"floor": {BuiltinFloor, BuiltinArity{1, 1}},
	"abs":   {BuiltinAbs, BuiltinArity{1, 1}},
	"sign":  {BuiltinSign, BuiltinArity{1, 1}},
	"log":   {BuiltinLog, BuiltinArity{1, 2}},
	"round": {BuiltinRound, BuiltinArity{1, 2}},
	"min":   {BuiltinMin, BuiltinArity{1, -1}},
	"max":   {BuiltinMax, BuiltinArity{1, -1}},
	"e":     {BuiltinE, BuiltinArity{0, 0}},
	"pi":    {BuiltinPi, BuiltinArity{0, 0}},

	"sin":    {BuiltinSin, BuiltinArity{1, 1}},
	"cos":    {BuiltinCos, BuiltinArity{1, 1}},
	"tan":    {BuiltinTan, BuiltinArity{1, 1}},
	"asin":   {BuiltinASin, BuiltinArity{1, 1}},
	"acos":   {BuiltinACos, BuiltinArity{1, 1}},
	"atan":   {BuiltinATan, BuiltinArity{1, 1}},
	"sinh":   {BuiltinSinH, BuiltinArity{1, 1}},
	"cosh":   {BuiltinCosH, BuiltinArity{1, 1}},
	"tanh":   {BuiltinTanH, BuiltinArity{1, 1}},
	"asinh":  {BuiltinASinH, BuiltinArity{1, 1}},
	"acosh":  {BuiltinACosH, BuiltinArity{1, 1}},
	"atanh":  {BuiltinATanH, BuiltinArity{1, 1}},
}

// Accepts reports whether n arguments are valid for this arity.
func (a BuiltinArity) Accepts(n int) bool {
	if n < a.Min {
		return false
	}
	if a.Max == -1 {
		return true
	}
	return n <= a.Max
}
