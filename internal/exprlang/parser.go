package exprlang

import (
	"math"
	"strconv"
	"strings"

	"github.com/dekarrin/exprlang/internal/slab"
)

// keywordConstant recognizes the optional NaN/inf keyword literals gated by
// Features.KeywordConstants. Matching is case-insensitive.
func keywordConstant(text string) (float64, bool) {
	switch strings.ToLower(text) {
	case "nan":
		return math.NaN(), true
	case "inf":
		return math.Inf(1), true
	}
	return 0, false
}

// file parser.go is a hand-written recursive-descent parser. It never
// builds a precedence-aware tree itself: each Expression is stored as a
// flat "first (op value)*" sequence, and re-associating that sequence
// according to operator precedence and associativity is left to the
// compiler (internal/exprlang/compiler.go) and the interpreter
// (internal/exprlang/eval.go).

var binaryTokens = map[tokenClass]slab.BinaryOp{
	tkOrOr: slab.Or, tkKeywordOr: slab.Or,
	tkAndAnd: slab.And, tkKeywordAnd: slab.And,
	tkNotEq: slab.NE, tkEq: slab.EQ,
	tkGreaterEq: slab.GTE, tkLessEq: slab.LTE,
	tkGreater: slab.GT, tkLess: slab.LT,
	tkPlus: slab.Add, tkMinus: slab.Sub,
	tkStar: slab.Mul, tkSlash: slab.Div,
	tkPercent: slab.Mod, tkCaret: slab.Exp,
}

// Parser drives one parse over a fixed input buffer into a Slab. A Parser
// is reusable across many calls to Parse as long as the caller is content
// to share the unsafe-var registrations between them.
type Parser struct {
	opts       Options
	unsafeVars map[string]*float64
}

// NewParser creates a Parser with the given Options.
func NewParser(opts Options) *Parser {
	return &Parser{opts: opts, unsafeVars: make(map[string]*float64)}
}

// RegisterUnsafeVar binds name to ptr so that future parses (with
// Features.UnsafeVars enabled) resolve bare references to name directly to
// *ptr instead of asking the namespace. The caller guarantees ptr outlives
// every compiled instruction produced from this point on.
func (p *Parser) RegisterUnsafeVar(name string, ptr *float64) {
	p.unsafeVars[name] = ptr
}

type parser struct {
	s      *slab.Slab
	lx     *lexer
	opts   Options
	unsafe map[string]*float64
	cur    token
	depth  int
}

// Parse clears s and parses src into it, returning a handle to the root
// Expression. Any handle obtained from a prior parse on s is invalid after
// this call.
func (p *Parser) Parse(s *slab.Slab, src string) (slab.ExprH, error) {
	s.Clear()

	if len(src) > p.opts.ParseLimits.MaxInputBytes {
		return 0, tooLongErr()
	}

	pr := &parser{
		s:      s,
		lx:     newLexer([]byte(src), p.opts.Features),
		opts:   p.opts,
		unsafe: p.unsafeVars,
	}

	tok, err := pr.lx.next()
	if err != nil {
		return 0, err
	}
	pr.cur = tok

	if pr.cur.class == tkEnd {
		return 0, eofErr()
	}

	root, err := pr.parseExpression()
	if err != nil {
		return 0, err
	}

	if pr.cur.class != tkEnd {
		return 0, unparsedTokensErr(pr.cur.lexeme)
	}

	return root, nil
}

func (pr *parser) advance() error {
	tok, err := pr.lx.next()
	if err != nil {
		return err
	}
	pr.cur = tok
	return nil
}

func (pr *parser) enter() error {
	pr.depth++
	if pr.depth > pr.opts.ParseLimits.MaxDepth {
		return tooDeepErr()
	}
	return nil
}

func (pr *parser) leave() {
	pr.depth--
}

func (pr *parser) pushExpr(e slab.Expression) (slab.ExprH, error) {
	h, err := pr.s.PushExpr(e)
	if err != nil {
		return 0, slabOverflowErr("expression")
	}
	return h, nil
}

func (pr *parser) pushValue(v slab.Value) (slab.ValueH, error) {
	h, err := pr.s.PushValue(v)
	if err != nil {
		return 0, slabOverflowErr("value")
	}
	return h, nil
}

// parseExpression implements "Value (BinaryOp Value)*" exactly as
// written: it never looks at precedence, it just gathers the flat
// sequence.
func (pr *parser) parseExpression() (slab.ExprH, error) {
	if err := pr.enter(); err != nil {
		return 0, err
	}
	defer pr.leave()

	first, err := pr.parseValue()
	if err != nil {
		return 0, err
	}

	var pairs []slab.Pair
	for {
		op, ok := binaryTokens[pr.cur.class]
		if !ok {
			break
		}
		if err := pr.advance(); err != nil {
			return 0, err
		}
		val, err := pr.parseValue()
		if err != nil {
			return 0, err
		}
		pairs = append(pairs, slab.Pair{Op: op, Val: val})
	}

	return pr.pushExpr(slab.Expression{First: first, Pairs: pairs})
}

func (pr *parser) parseValue() (slab.ValueH, error) {
	if err := pr.enter(); err != nil {
		return 0, err
	}
	defer pr.leave()

	switch pr.cur.class {
	case tkNumber:
		return pr.parseConstant()
	case tkPlus:
		if err := pr.advance(); err != nil {
			return 0, err
		}
		inner, err := pr.parseValue()
		if err != nil {
			return 0, err
		}
		return pr.pushValue(slab.Value{Kind: slab.VPos, Inner: inner})
	case tkMinus:
		if err := pr.advance(); err != nil {
			return 0, err
		}
		inner, err := pr.parseValue()
		if err != nil {
			return 0, err
		}
		return pr.pushValue(slab.Value{Kind: slab.VNeg, Inner: inner})
	case tkBang:
		if err := pr.advance(); err != nil {
			return 0, err
		}
		inner, err := pr.parseValue()
		if err != nil {
			return 0, err
		}
		return pr.pushValue(slab.Value{Kind: slab.VNot, Inner: inner})
	case tkParenOpen:
		return pr.parseParens(tkParenClose)
	case tkBracketOpen:
		return pr.parseParens(tkBracketClose)
	case tkIdent:
		if pr.opts.Features.KeywordConstants {
			if f, ok := keywordConstant(pr.cur.lexeme); ok {
				if err := pr.advance(); err != nil {
					return 0, err
				}
				return pr.pushValue(slab.Value{Kind: slab.VConstant, Const: f})
			}
		}
		return pr.parseStdFunc()
	case tkEnd:
		return 0, eofWhileParsing("value")
	default:
		return 0, invalidValueErr(pr.cur.line, pr.cur.pos, pr.cur.fullLine)
	}
}

func (pr *parser) parseParens(close tokenClass) (slab.ValueH, error) {
	if err := pr.advance(); err != nil { // consume '(' or '['
		return 0, err
	}
	inner, err := pr.parseExpression()
	if err != nil {
		return 0, err
	}
	if pr.cur.class != close {
		return 0, expectedErr(close.String(), pr.cur.line, pr.cur.pos, pr.cur.fullLine)
	}
	if err := pr.advance(); err != nil {
		return 0, err
	}
	return pr.pushValue(slab.Value{Kind: slab.VParens, Paren: inner})
}

func (pr *parser) parseConstant() (slab.ValueH, error) {
	line, pos, fullLine := pr.cur.line, pr.cur.pos, pr.cur.fullLine
	text := pr.cur.lexeme
	if err := pr.advance(); err != nil {
		return 0, err
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, parseFErr(text, line, pos, fullLine)
	}
	return pr.pushValue(slab.Value{Kind: slab.VConstant, Const: f})
}

// parseStdFunc resolves identifiers: a bare identifier becomes Var (or
// UnsafeVar); one followed by '(' or '[' is resolved against "print",
// then the builtin table, then falls through to a user Func.
func (pr *parser) parseStdFunc() (slab.ValueH, error) {
	name := pr.cur.lexeme
	if err := pr.advance(); err != nil {
		return 0, err
	}

	if pr.cur.class != tkParenOpen && pr.cur.class != tkBracketOpen {
		if pr.opts.Features.UnsafeVars {
			if ptr, ok := pr.unsafe[name]; ok {
				return pr.pushValue(slab.Value{Kind: slab.VUnsafeVar, Name: name, UnsafePtr: ptr})
			}
		}
		return pr.pushValue(slab.Value{Kind: slab.VVar, Name: name})
	}

	closing := tkParenClose
	if pr.cur.class == tkBracketOpen {
		closing = tkBracketClose
	}

	if strings.EqualFold(name, "print") {
		return pr.parsePrintFunc(closing)
	}
	if err := pr.advance(); err != nil {
		return 0, err
	}

	args, err := pr.parseArgList(closing)
	if err != nil {
		return 0, err
	}

	if bi, ok := slab.Builtins[name]; ok {
		if !bi.Arity.Accepts(len(args)) {
			return 0, wrongArgsErr(name + "() called with " + strconv.Itoa(len(args)) + " arguments")
		}
		return pr.pushValue(slab.Value{Kind: slab.VBuiltin, Name: name, Args: args, Builtin: bi.ID})
	}

	return pr.pushValue(slab.Value{Kind: slab.VFunc, Name: name, Args: args})
}

// parseArgList parses a comma-or-semicolon separated argument list up to
// (and consuming) the closing token. An empty list is permitted.
func (pr *parser) parseArgList(closing tokenClass) ([]slab.ExprH, error) {
	var args []slab.ExprH

	if pr.cur.class == closing {
		if err := pr.advance(); err != nil {
			return nil, err
		}
		return args, nil
	}

	for {
		arg, err := pr.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		if pr.cur.class == tkSeparator {
			if err := pr.advance(); err != nil {
				return nil, err
			}
			continue
		}
		if pr.cur.class == closing {
			if err := pr.advance(); err != nil {
				return nil, err
			}
			return args, nil
		}
		return nil, expectedErr("',' or "+closing.String(), pr.cur.line, pr.cur.pos, pr.cur.fullLine)
	}
}

func (pr *parser) parsePrintFunc(closing tokenClass) (slab.ValueH, error) {
	if err := pr.advance(); err != nil { // consume '(' or '['
		return 0, err
	}

	var items []slab.PrintItem

	if pr.cur.class == closing {
		if err := pr.advance(); err != nil {
			return 0, err
		}
		return pr.pushValue(slab.Value{Kind: slab.VPrint, PrintItems: items})
	}

	for {
		if pr.cur.class == tkString {
			lit := unquote(pr.cur.lexeme)
			if len(items) == 0 && strings.Contains(lit, "%") {
				return 0, wrongArgsErr("printf-style format strings are not implemented")
			}
			items = append(items, slab.PrintItem{Literal: lit, IsLiteral: true})
			if err := pr.advance(); err != nil {
				return 0, err
			}
		} else {
			expr, err := pr.parseExpression()
			if err != nil {
				return 0, err
			}
			items = append(items, slab.PrintItem{Expr: expr})
		}

		if pr.cur.class == tkSeparator {
			if err := pr.advance(); err != nil {
				return 0, err
			}
			continue
		}
		if pr.cur.class == closing {
			if err := pr.advance(); err != nil {
				return 0, err
			}
			return pr.pushValue(slab.Value{Kind: slab.VPrint, PrintItems: items})
		}
		return 0, expectedErr("',' or "+closing.String(), pr.cur.line, pr.cur.pos, pr.cur.fullLine)
	}
}

// unquote strips the surrounding quotes from a lexed string token and
// resolves the two supported escapes, \n and \t.
func unquote(lexeme string) string {
	inner := lexeme[1 : len(lexeme)-1]
	var b strings.Builder
	for i := 0; i < len(inner); i++ {
		if inner[i] == '\\' && i+1 < len(inner) {
			switch inner[i+1] {
			case 'n':
				b.WriteByte('\n')
				i++
				continue
			case 't':
				b.WriteByte('\t')
				i++
				continue
			}
		}
		b.WriteByte(inner[i])
	}
	return b.String()
}
