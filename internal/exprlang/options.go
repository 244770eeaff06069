package exprlang

import "github.com/dekarrin/exprlang/internal/slab"

// Features toggles grammar extensions that are off by default so that the
// core grammar stays fixed unless a caller opts in.
type Features struct {
	// KeywordAndOr allows the spelled-out "and"/"or" keyword forms of &&/||.
	KeywordAndOr bool

	// KeywordConstants allows bare "NaN" and "inf" (optionally signed)
	// literals in addition to the numeric grammar.
	KeywordConstants bool

	// UnsafeVars allows identifiers pre-registered via
	// Parser.RegisterUnsafeVar to resolve to a live *float64 instead of a
	// namespace lookup.
	UnsafeVars bool
}

// ParseLimits bounds how much work the parser will do on a single input:
// MaxInputBytes rejects oversized input before scanning even begins, and
// MaxDepth bounds recursive-descent nesting (parenthesized groups, nested
// unary operators, nested calls).
type ParseLimits struct {
	MaxInputBytes int
	MaxDepth      int
}

// DefaultParseLimits returns the standard limits: 4096 bytes, 32 levels of
// nesting.
func DefaultParseLimits() ParseLimits {
	return ParseLimits{MaxInputBytes: 4096, MaxDepth: 32}
}

// Options bundles everything that tunes parsing: the arena capacities to
// hand to slab.New, the length/depth guards, and the feature gates.
type Options struct {
	SlabLimits  slab.Limits
	ParseLimits ParseLimits
	Features    Features
}

// DefaultOptions returns the standard capacities and limits with every
// feature gate disabled.
func DefaultOptions() Options {
	return Options{
		SlabLimits:  slab.DefaultLimits(),
		ParseLimits: DefaultParseLimits(),
	}
}
