package exprlang

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dekarrin/exprlang/internal/slab"
)

func parseExpr(t *testing.T, src string, opts Options) (*slab.Slab, slab.ExprH, error) {
	t.Helper()
	s := slab.New(opts.SlabLimits)
	p := NewParser(opts)
	h, err := p.Parse(s, src)
	return s, h, err
}

func Test_Parser_flatPairsSequence(t *testing.T) {
	assert := assert.New(t)

	s, h, err := parseExpr(t, "1 + 2 * 3 - 4", DefaultOptions())
	assert.NoError(err)

	e := s.GetExpr(h)
	assert.Len(e.Pairs, 3)
	assert.Equal(slab.Add, e.Pairs[0].Op)
	assert.Equal(slab.Mul, e.Pairs[1].Op)
	assert.Equal(slab.Sub, e.Pairs[2].Op)
}

func Test_Parser_parens(t *testing.T) {
	assert := assert.New(t)

	s, h, err := parseExpr(t, "(1 + 2) * 3", DefaultOptions())
	assert.NoError(err)

	e := s.GetExpr(h)
	assert.Len(e.Pairs, 1)
	first := s.GetValue(e.First)
	assert.Equal(slab.VParens, first.Kind)
}

func Test_Parser_bracketsAsParens(t *testing.T) {
	assert := assert.New(t)

	_, h, err := parseExpr(t, "[1 + 2] * 3", DefaultOptions())
	assert.NoError(err)
	assert.NotZero(h + 1) // handle is valid (0 is a legitimate handle too)
}

func Test_Parser_unaryOperators(t *testing.T) {
	testCases := []struct {
		name string
		src  string
		kind slab.ValueKind
	}{
		{name: "unary plus", src: "+1", kind: slab.VPos},
		{name: "unary minus", src: "-1", kind: slab.VNeg},
		{name: "logical not", src: "!1", kind: slab.VNot},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			s, h, err := parseExpr(t, tc.src, DefaultOptions())
			assert.NoError(err)
			v := s.GetValue(s.GetExpr(h).First)
			assert.Equal(tc.kind, v.Kind)
		})
	}
}

func Test_Parser_bareIdentIsVar(t *testing.T) {
	assert := assert.New(t)

	s, h, err := parseExpr(t, "x", DefaultOptions())
	assert.NoError(err)

	v := s.GetValue(s.GetExpr(h).First)
	assert.Equal(slab.VVar, v.Kind)
	assert.Equal("x", v.Name)
}

func Test_Parser_builtinCallResolvesOverUserFunc(t *testing.T) {
	assert := assert.New(t)

	s, h, err := parseExpr(t, "sin(1)", DefaultOptions())
	assert.NoError(err)

	v := s.GetValue(s.GetExpr(h).First)
	assert.Equal(slab.VBuiltin, v.Kind)
	assert.Equal(slab.BuiltinSin, v.Builtin)
}

func Test_Parser_unknownCallIsUserFunc(t *testing.T) {
	assert := assert.New(t)

	s, h, err := parseExpr(t, "myFunc(1, 2)", DefaultOptions())
	assert.NoError(err)

	v := s.GetValue(s.GetExpr(h).First)
	assert.Equal(slab.VFunc, v.Kind)
	assert.Equal("myFunc", v.Name)
	assert.Len(v.Args, 2)
}

func Test_Parser_builtinWrongArity(t *testing.T) {
	assert := assert.New(t)

	_, _, err := parseExpr(t, "sin(1, 2)", DefaultOptions())
	assert.Error(err)

	var exprErr Error
	assert.ErrorAs(err, &exprErr)
	assert.Equal(KindWrongArgs, exprErr.Kind)
}

func Test_Parser_printFunc(t *testing.T) {
	assert := assert.New(t)

	s, h, err := parseExpr(t, `print("x is ", x)`, DefaultOptions())
	assert.NoError(err)

	v := s.GetValue(s.GetExpr(h).First)
	assert.Equal(slab.VPrint, v.Kind)
	assert.Len(v.PrintItems, 2)
	assert.True(v.PrintItems[0].IsLiteral)
	assert.Equal("x is ", v.PrintItems[0].Literal)
	assert.False(v.PrintItems[1].IsLiteral)
}

func Test_Parser_printFuncRejectsFormatStrings(t *testing.T) {
	assert := assert.New(t)

	_, _, err := parseExpr(t, `print("%d")`, DefaultOptions())
	assert.Error(err)
}

// Test_Parser_printFunc_percentOnlyRejectedInLeadingPosition documents
// that only a *leading* string argument reserves the future printf-style
// mode; a '%' appearing in a later string argument is an ordinary literal.
func Test_Parser_printFunc_percentOnlyRejectedInLeadingPosition(t *testing.T) {
	assert := assert.New(t)

	s, h, err := parseExpr(t, `print(1, "100%")`, DefaultOptions())
	assert.NoError(err)

	v := s.GetValue(s.GetExpr(h).First)
	assert.Equal(slab.VPrint, v.Kind)
	assert.Len(v.PrintItems, 2)
	assert.True(v.PrintItems[1].IsLiteral)
	assert.Equal("100%", v.PrintItems[1].Literal)
}

func Test_Parser_stringEscapes(t *testing.T) {
	assert := assert.New(t)

	s, h, err := parseExpr(t, `print("a\nb\tc")`, DefaultOptions())
	assert.NoError(err)

	v := s.GetValue(s.GetExpr(h).First)
	assert.Equal("a\nb\tc", v.PrintItems[0].Literal)
}

func Test_Parser_keywordConstants_gatedByFeature(t *testing.T) {
	assert := assert.New(t)

	opts := DefaultOptions()
	s, h, err := parseExpr(t, "NaN", opts)
	assert.NoError(err)
	v := s.GetValue(s.GetExpr(h).First)
	assert.Equal(slab.VVar, v.Kind, "with the feature off, NaN is just a variable named NaN")

	opts.Features.KeywordConstants = true
	s, h, err = parseExpr(t, "NaN", opts)
	assert.NoError(err)
	v = s.GetValue(s.GetExpr(h).First)
	assert.Equal(slab.VConstant, v.Kind)
}

func Test_Parser_unsafeVars(t *testing.T) {
	assert := assert.New(t)

	opts := DefaultOptions()
	opts.Features.UnsafeVars = true

	p := NewParser(opts)
	x := 3.0
	p.RegisterUnsafeVar("x", &x)

	s := slab.New(opts.SlabLimits)
	h, err := p.Parse(s, "x")
	assert.NoError(err)

	v := s.GetValue(s.GetExpr(h).First)
	assert.Equal(slab.VUnsafeVar, v.Kind)
	assert.Same(&x, v.UnsafePtr)
}

func Test_Parser_tooLong(t *testing.T) {
	assert := assert.New(t)

	opts := DefaultOptions()
	opts.ParseLimits.MaxInputBytes = 4

	_, _, err := parseExpr(t, "12345", opts)
	assert.Error(err)
	var exprErr Error
	assert.ErrorAs(err, &exprErr)
	assert.Equal(KindTooLong, exprErr.Kind)
}

func Test_Parser_tooDeep(t *testing.T) {
	assert := assert.New(t)

	opts := DefaultOptions()
	opts.ParseLimits.MaxInputBytes = 1 << 20
	opts.ParseLimits.MaxDepth = 8
	opts.SlabLimits.Exprs = 1 << 16
	opts.SlabLimits.Values = 1 << 16

	deep := ""
	for i := 0; i < 20; i++ {
		deep += "("
	}
	deep += "1"
	for i := 0; i < 20; i++ {
		deep += ")"
	}

	_, _, err := parseExpr(t, deep, opts)
	assert.Error(err)
	var exprErr Error
	assert.ErrorAs(err, &exprErr)
	assert.Equal(KindTooDeep, exprErr.Kind)
}

func Test_Parser_emptyInputIsEOF(t *testing.T) {
	assert := assert.New(t)

	_, _, err := parseExpr(t, "", DefaultOptions())
	assert.Error(err)
	var exprErr Error
	assert.ErrorAs(err, &exprErr)
	assert.Equal(KindEOF, exprErr.Kind)
}

// Test_Parser_reparseProducesEqualStructure parses the same source twice
// into one Slab; the second Parse clears the arena, so the two roots must
// come out structurally identical.
func Test_Parser_reparseProducesEqualStructure(t *testing.T) {
	assert := assert.New(t)

	const src = "1 + x * sin(y - 2)"

	opts := DefaultOptions()
	s := slab.New(opts.SlabLimits)
	p := NewParser(opts)

	root1, err := p.Parse(s, src)
	assert.NoError(err)
	first1 := *s.GetExpr(root1)
	numExprs1, numValues1 := s.NumExprs(), s.NumValues()

	root2, err := p.Parse(s, src)
	assert.NoError(err)

	assert.Equal(root1, root2)
	assert.Equal(first1, *s.GetExpr(root2))
	assert.Equal(numExprs1, s.NumExprs())
	assert.Equal(numValues1, s.NumValues())
}

func Test_Parser_unparsedTokensRemaining(t *testing.T) {
	assert := assert.New(t)

	_, _, err := parseExpr(t, "1 2", DefaultOptions())
	assert.Error(err)
	var exprErr Error
	assert.ErrorAs(err, &exprErr)
	assert.Equal(KindUnparsedTokensRemaining, exprErr.Kind)
}

func Test_Parser_eofWhileParsingValue(t *testing.T) {
	assert := assert.New(t)

	_, _, err := parseExpr(t, "1 +", DefaultOptions())
	assert.Error(err)
	var exprErr Error
	assert.ErrorAs(err, &exprErr)
	assert.Equal(KindEofWhileParsing, exprErr.Kind)
}
