// Package exprlang is the easy, "batteries-included" front door onto the
// embeddable algebraic expression evaluator implemented in
// internal/exprlang and internal/slab. Most callers only need three
// things from this package: Options to size and configure a Slab, a
// Namespace implementation to resolve variables and custom functions,
// and either Eval for a one-shot call or Parser/Compiler/Evaluator for
// the "parse once, evaluate many times against varying namespaces" fast
// path the core is built around.
package exprlang

import (
	coreexpr "github.com/dekarrin/exprlang/internal/exprlang"
	"github.com/dekarrin/exprlang/internal/slab"
	"github.com/dekarrin/exprlang/internal/util"
)

// Namespace resolves bare identifiers and user-defined function calls.
// See internal/exprlang.Namespace for the full contract.
type Namespace = coreexpr.Namespace

// CacheableNamespace is a Namespace that additionally lets callers
// seed, overwrite, and invalidate cached entries.
type CacheableNamespace = coreexpr.CacheableNamespace

// CallbackFunc adapts a plain function into a Namespace.
type CallbackFunc = coreexpr.CallbackFunc

// MapNamespace resolves bare variables from a map and rejects every
// call that passes arguments.
type MapNamespace = coreexpr.MapNamespace

// EmptyNamespace rejects every lookup.
type EmptyNamespace = coreexpr.EmptyNamespace

// CachedNamespace memoizes an inner CallbackFunc's results, and
// implements CacheableNamespace so a caller can invalidate individual
// entries or the whole cache.
type CachedNamespace = coreexpr.CachedNamespace

// NewCachedNamespace wraps cb so repeated lookups of the same (name,
// args) pair are only computed once when cb resolves them; rejected
// lookups are not cached.
func NewCachedNamespace(cb CallbackFunc) *CachedNamespace {
	return coreexpr.NewCachedNamespace(cb)
}

// Error is the error type returned from every entry point in this
// module. Compare its Kind field, or call FullMessage for a rendering
// with a source cursor.
type Error = coreexpr.Error

// ErrorKind tags which failure Error describes.
type ErrorKind = coreexpr.ErrorKind

// The full closed taxonomy of ErrorKind values, re-exported so callers
// never need to import internal/exprlang directly to branch on one.
const (
	KindEOF                     = coreexpr.KindEOF
	KindEofWhileParsing         = coreexpr.KindEofWhileParsing
	KindExpected                = coreexpr.KindExpected
	KindUtf8ErrorWhileParsing   = coreexpr.KindUtf8ErrorWhileParsing
	KindInvalidValue            = coreexpr.KindInvalidValue
	KindParseF                  = coreexpr.KindParseF
	KindUnparsedTokensRemaining = coreexpr.KindUnparsedTokensRemaining
	KindTooLong                 = coreexpr.KindTooLong
	KindTooDeep                 = coreexpr.KindTooDeep
	KindSlabOverflow            = coreexpr.KindSlabOverflow
	KindWrongArgs               = coreexpr.KindWrongArgs
	KindUndefined               = coreexpr.KindUndefined
	KindAlreadyExists           = coreexpr.KindAlreadyExists
	KindUnreachable             = coreexpr.KindUnreachable
)

// Options bundles the arena capacities, parser limits, and feature
// gates that tune parsing and compilation.
type Options = coreexpr.Options

// Features toggles grammar extensions that are off unless explicitly
// requested: spelled-out and/or, NaN/inf literals, and unsafe vars.
type Features = coreexpr.Features

// ParseLimits bounds how much work a single parse may do.
type ParseLimits = coreexpr.ParseLimits

// DefaultOptions returns the standard defaults: a 64/32/128 Slab, a
// 4096-byte/32-deep parse limit, and every feature gate off.
func DefaultOptions() Options { return coreexpr.DefaultOptions() }

// DefaultParseLimits returns the 4096-byte/32-deep defaults alone.
func DefaultParseLimits() ParseLimits { return coreexpr.DefaultParseLimits() }

// Parser drives parsing of expression source into a Slab. Reuse one
// Parser (and its RegisterUnsafeVar bindings) across many calls to
// Parse.
type Parser = coreexpr.Parser

// NewParser creates a Parser configured by opts.
func NewParser(opts Options) *Parser { return coreexpr.NewParser(opts) }

// Compiler lowers a parsed Expression into a compact Instruction,
// folding constants and consulting a Namespace for any call whose
// arguments are all constant.
type Compiler = coreexpr.Compiler

// NewCompiler creates a Compiler reading from s and folding constant
// calls against ns, which may be nil.
func NewCompiler(s *slab.Slab, ns Namespace) *Compiler {
	return coreexpr.NewCompiler(s, ns)
}

// Evaluator runs either a compiled Instruction (EvalInstr) or a raw
// parsed Expression (EvalExpr) against a Slab, resolving lookups
// against a Namespace.
type Evaluator = coreexpr.Evaluator

// NewEvaluator creates an Evaluator reading from s and resolving
// lookups against ns, which may be nil.
func NewEvaluator(s *slab.Slab, ns Namespace) *Evaluator {
	return coreexpr.NewEvaluator(s, ns)
}

// VarNames returns the set of distinct variable and function names the
// compiled instruction at root references.
func VarNames(s *slab.Slab, root slab.InstrH) util.StringSet {
	return coreexpr.VarNames(s, root)
}

// Eval parses, compiles, and evaluates expr in one call against a
// throwaway Slab sized by opts, resolving lookups against ns. This is
// the "ez" one-shot helper: for repeated evaluation of the same
// expression text, parse and compile once with Parser/Compiler instead
// and call Evaluator.EvalInstr per namespace.
func Eval(expr string, opts Options, ns Namespace) (float64, error) {
	s := slab.New(opts.SlabLimits)

	p := NewParser(opts)
	root, err := p.Parse(s, expr)
	if err != nil {
		return 0, err
	}

	c := NewCompiler(s, ns)
	instr, err := c.Compile(root)
	if err != nil {
		return 0, err
	}

	ev := NewEvaluator(s, ns)
	return ev.EvalInstr(instr)
}

// EvalDefault is Eval with DefaultOptions().
func EvalDefault(expr string, ns Namespace) (float64, error) {
	return Eval(expr, DefaultOptions(), ns)
}

// Interpret parses and directly evaluates expr without compiling,
// against a throwaway Slab sized by opts. It costs more per call than
// Eval for an expression that will be evaluated more than once, since
// it re-walks the raw parse tree every time, but it is cheaper for an
// expression evaluated exactly once since it never builds the
// Instruction arena.
func Interpret(expr string, opts Options, ns Namespace) (float64, error) {
	s := slab.New(opts.SlabLimits)

	p := NewParser(opts)
	root, err := p.Parse(s, expr)
	if err != nil {
		return 0, err
	}

	ev := NewEvaluator(s, ns)
	return ev.EvalExpr(root)
}
