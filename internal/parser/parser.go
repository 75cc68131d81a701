package parser

import (
	"fmt"
	"strconv"

	"github.com/LegoTypes/synthformula/internal/types"
)

// aggregateFunctions are the call sites where a sole string-literal argument
// is treated as a collection-query literal rather than a plain string
// (§4.1 "the argument of an aggregate call has the shape pattern:value").
var aggregateFunctions = map[string]bool{
	"sum": true, "avg": true, "mean": true, "count": true,
	"min": true, "max": true, "std": true, "var": true,
}

// precedence is the binding-power table for Pratt parsing (§4.1 grammar).
// Higher values bind more tightly.
var precedence = map[TokenKind]int{
	TokOr:  10,
	TokAnd: 20,

	TokEq: 30, TokNotEq: 30,
	TokLt: 30, TokLe: 30, TokGt: 30, TokGe: 30,

	TokPlus: 40, TokMinus: 40,
	TokMult: 50, TokDiv: 50, TokMod: 50,

	TokDot: 70,
}

// Parser is a recursive-descent / Pratt parser over formula text.
type Parser struct {
	lexer   *Lexer
	cur     Token
	source  string
	arena   *types.NodeArena
}

// NewParser creates a parser for the given formula text.
func NewParser(input string) *Parser {
	p := &Parser{lexer: NewLexer(input), source: input, arena: types.NewNodeArena()}
	p.advance()
	return p
}

// Parse parses the full formula text into an Expression, or returns a
// *types.Error describing the first parse failure (§4.1 "returns an AST or
// fails with ParseError(position, message)").
func Parse(formula string) (*types.Expression, error) {
	p := NewParser(formula)
	return p.Parse()
}

// Parse drives this parser instance to completion.
func (p *Parser) Parse() (*types.Expression, error) {
	if p.cur.Kind == TokError {
		return nil, p.lexer.Error()
	}
	if p.cur.Kind == TokEOF {
		return nil, types.NewError(types.ErrSyntaxError, "empty formula").WithPosition(0)
	}

	node, err := p.parseConditional()
	if err != nil {
		return nil, err
	}
	if p.cur.Kind != TokEOF {
		return nil, p.errorf(types.ErrSyntaxError, "unexpected trailing token: %s", p.cur.Value)
	}
	return types.NewExpression(node, p.source, p.arena), nil
}

func (p *Parser) advance() {
	p.cur = p.lexer.Next()
	if p.cur.Kind == TokError {
		// surfaced by Parse()/parseExpression via lexer.Error()
	}
}

func (p *Parser) expect(k TokenKind) (Token, error) {
	if p.cur.Kind != k {
		return Token{}, p.errorf(types.ErrExpectedToken, "expected %s, got %s", k, p.cur.Kind)
	}
	t := p.cur
	p.advance()
	return t, nil
}

func (p *Parser) errorf(code types.ErrorCode, format string, args ...interface{}) error {
	return types.NewError(code, fmt.Sprintf(format, args...)).WithPosition(p.cur.Position)
}

// parseConditional parses both accepted conditional spellings and desugars
// them to the same Conditional AST variant (SPEC_FULL §4 open-question
// decision): `cond ? then : else` and `then if cond else els`.
func (p *Parser) parseConditional() (*types.ASTNode, error) {
	left, err := p.parseBinary(0)
	if err != nil {
		return nil, err
	}

	if p.cur.Kind == TokQuestion {
		pos := p.cur.Position
		p.advance()
		then, err := p.parseConditional()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokColon); err != nil {
			return nil, err
		}
		els, err := p.parseConditional()
		if err != nil {
			return nil, err
		}
		return types.NewConditional(p.arena, pos, left, then, els), nil
	}

	if p.cur.Kind == TokIf {
		pos := p.cur.Position
		p.advance()
		cond, err := p.parseBinary(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokElse); err != nil {
			return nil, err
		}
		els, err := p.parseConditional()
		if err != nil {
			return nil, err
		}
		return types.NewConditional(p.arena, pos, cond, left, els), nil
	}

	return left, nil
}

// parseBinary implements Pratt/precedence-climbing for the arithmetic,
// comparison, and logical operators (§4.1).
func (p *Parser) parseBinary(minPrec int) (*types.ASTNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		prec, ok := precedence[p.cur.Kind]
		if !ok || prec < minPrec || p.cur.Kind == TokDot {
			break
		}
		op := p.cur
		p.advance()
		right, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		left = types.NewBinaryOp(p.arena, op.Position, opText(op.Kind), left, right)
	}
	return left, nil
}

func (p *Parser) parseUnary() (*types.ASTNode, error) {
	switch p.cur.Kind {
	case TokMinus:
		pos := p.cur.Position
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return types.NewUnaryOp(p.arena, pos, "-", operand), nil
	case TokNot:
		pos := p.cur.Position
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return types.NewUnaryOp(p.arena, pos, "not", operand), nil
	default:
		return p.parsePostfix()
	}
}

// parsePostfix parses a primary expression followed by any number of
// member-access (`.field`) suffixes (§4.1 "member access (dot)").
func (p *Parser) parsePostfix() (*types.ASTNode, error) {
	node, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == TokDot {
		pos := p.cur.Position
		p.advance()
		name, err := p.expect(TokName)
		if err != nil {
			return nil, err
		}
		node = types.NewMemberAccess(p.arena, pos, node, name.Value)
	}
	return node, nil
}

func (p *Parser) parsePrimary() (*types.ASTNode, error) {
	tok := p.cur
	switch tok.Kind {
	case TokNumber:
		p.advance()
		v, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, types.NewError(types.ErrSyntaxError, "invalid numeric literal").WithPosition(tok.Position)
		}
		return types.NewLiteral(p.arena, tok.Position, types.Number(v)), nil
	case TokString:
		p.advance()
		return types.NewLiteral(p.arena, tok.Position, types.String(tok.Value)), nil
	case TokBoolean:
		p.advance()
		return types.NewLiteral(p.arena, tok.Position, types.Bool(tok.Value == "true")), nil
	case TokName:
		return p.parseNameOrCall()
	case TokLParen:
		p.advance()
		inner, err := p.parseConditional()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRParen); err != nil {
			return nil, err
		}
		return inner, nil
	default:
		return nil, p.errorf(types.ErrSyntaxError, "unexpected token: %s", tok.Value)
	}
}

func (p *Parser) parseNameOrCall() (*types.ASTNode, error) {
	tok := p.cur
	p.advance()
	if p.cur.Kind != TokLParen {
		return types.NewName(p.arena, tok.Position, tok.Value), nil
	}

	p.advance() // consume '('
	var args []*types.ASTNode
	if p.cur.Kind != TokRParen {
		for {
			arg, err := p.parseConditional()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.cur.Kind != TokComma {
				break
			}
			p.advance()
		}
	}
	closeParen, err := p.expect(TokRParen)
	if err != nil {
		return nil, err
	}

	if aggregateFunctions[tok.Value] && len(args) == 1 && args[0].Kind == types.NodeLiteral &&
		args[0].Literal.Kind == types.KindString {
		raw, _ := args[0].Literal.Text()
		args[0] = types.NewCollectionQuery(p.arena, args[0].Position, raw)
	}

	callee := types.NewName(p.arena, tok.Position, tok.Value)
	return types.NewCall(p.arena, closeParen.Position, callee, args), nil
}

func opText(k TokenKind) string {
	switch k {
	case TokPlus:
		return "+"
	case TokMinus:
		return "-"
	case TokMult:
		return "*"
	case TokDiv:
		return "/"
	case TokMod:
		return "%"
	case TokEq:
		return "=="
	case TokNotEq:
		return "!="
	case TokLt:
		return "<"
	case TokLe:
		return "<="
	case TokGt:
		return ">"
	case TokGe:
		return ">="
	case TokAnd:
		return "and"
	case TokOr:
		return "or"
	default:
		return ""
	}
}
