package kconfig

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

type tokKind uint8

const (
	tokIdent tokKind = iota
	tokString
	tokAnd
	tokOr
	tokNot
	tokEq
	tokNeq
	tokLParen
	tokRParen
	tokEOF
)

type token struct {
	kind tokKind
	text string
}

// tokenize splits a single expression fragment (the tail of a
// "depends on", "default ... if", "select ... if", or "prompt ... if"
// line) into tokens. Quoted strings keep their interior verbatim.
func tokenize(s string) ([]token, error) {
	var toks []token
	r := []rune(s)
	i, n := 0, len(r)
	for i < n {
		c := r[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen})
			i++
		case c == '!':
			if i+1 < n && r[i+1] == '=' {
				toks = append(toks, token{kind: tokNeq})
				i += 2
			} else {
				toks = append(toks, token{kind: tokNot})
				i++
			}
		case c == '=':
			toks = append(toks, token{kind: tokEq})
			i++
		case c == '&' && i+1 < n && r[i+1] == '&':
			toks = append(toks, token{kind: tokAnd})
			i += 2
		case c == '|' && i+1 < n && r[i+1] == '|':
			toks = append(toks, token{kind: tokOr})
			i += 2
		case c == '"':
			j := i + 1
			for j < n && r[j] != '"' {
				j++
			}
			if j >= n {
				return nil, errors.Errorf("unterminated string in %q", s)
			}
			toks = append(toks, token{kind: tokString, text: string(r[i+1 : j])})
			i = j + 1
		default:
			j := i
			for j < n && !strings.ContainsRune(" \t()!&|=\"", r[j]) {
				j++
			}
			if j == i {
				return nil, errors.Errorf("unexpected character %q in %q", string(c), s)
			}
			toks = append(toks, token{kind: tokIdent, text: string(r[i:j])})
			i = j
		}
	}
	toks = append(toks, token{kind: tokEOF})
	return toks, nil
}

// exprParser is a small recursive-descent parser over the precedence
// chain `!` > `&&` > `||`, with parenthesized grouping and `=`/`!=`
// comparisons binding tighter than all of the above (they only ever
// appear directly around a single identifier/string pair).
type exprParser struct {
	table *SymbolTable
	toks  []token
	pos   int
}

func parseExprString(table *SymbolTable, s string) (*Expr, error) {
	toks, err := tokenize(s)
	if err != nil {
		return nil, err
	}
	p := &exprParser{table: table, toks: toks}
	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, errors.Errorf("unexpected trailing tokens after %q", s)
	}
	return e, nil
}

func (p *exprParser) peek() token {
	return p.toks[p.pos]
}

func (p *exprParser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *exprParser) parseOr() (*Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Expr{Tag: ExprOr, A: left, B: right}
	}
	return left, nil
}

func (p *exprParser) parseAnd() (*Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &Expr{Tag: ExprAnd, A: left, B: right}
	}
	return left, nil
}

func (p *exprParser) parseUnary() (*Expr, error) {
	if p.peek().kind == tokNot {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Expr{Tag: ExprNot, A: operand}, nil
	}
	return p.parsePrimary()
}

func (p *exprParser) parsePrimary() (*Expr, error) {
	switch p.peek().kind {
	case tokLParen:
		p.next()
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, errors.New("expected closing parenthesis")
		}
		p.next()
		return e, nil
	case tokIdent, tokString:
		lhs := p.next()
		lhsExpr := p.resolveOperand(lhs)
		switch p.peek().kind {
		case tokEq, tokNeq:
			opTok := p.next()
			if p.peek().kind != tokIdent && p.peek().kind != tokString {
				return nil, errors.New("expected identifier or string after comparison operator")
			}
			rhs := p.next()
			rhsExpr := p.resolveOperand(rhs)
			tag := ExprEqual
			if opTok.kind == tokNeq {
				tag = ExprUnequal
			}
			return &Expr{Tag: tag, A: lhsExpr, B: rhsExpr}, nil
		default:
			return lhsExpr, nil
		}
	default:
		return nil, fmt.Errorf("unexpected token parsing expression")
	}
}

func (p *exprParser) resolveOperand(t token) *Expr {
	if t.kind == tokString {
		return ConstExpr(t.text)
	}
	switch t.text {
	case "y":
		return SymbolExpr(SymYes)
	case "m":
		return SymbolExpr(SymMod)
	case "n":
		return SymbolExpr(SymNo)
	default:
		return SymbolExpr(p.table.GetOrCreate(t.text))
	}
}
