package selection

import (
	"fmt"
	"strings"

	apperr "github.com/rasbt/screenlamp/pkg/errors"
)

// Grammar:
//
//	selection := group [ "-->" group ]
//	group     := term { "|" term }
//	term      := atom { "&" atom }
//	atom      := "(" ( column OP literal | group ) ")"
type parser struct {
	src  string
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) errorf(t token, format string, args ...any) error {
	return apperr.Config("selection %q: %s at offset %d", p.src, fmt.Sprintf(format, args...), t.pos)
}

func (p *parser) expect(k tokKind, what string) (token, error) {
	t := p.next()
	if t.kind != k {
		return t, p.errorf(t, "expected %s, found %q", what, t.text)
	}
	return t, nil
}

func (p *parser) group() (*Expr, error) {
	left, err := p.term()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.next()
		right, err := p.term()
		if err != nil {
			return nil, err
		}
		left = &Expr{Kind: NodeOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) term() (*Expr, error) {
	left, err := p.atom()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		right, err := p.atom()
		if err != nil {
			return nil, err
		}
		left = &Expr{Kind: NodeAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) atom() (*Expr, error) {
	if _, err := p.expect(tokLParen, "'('"); err != nil {
		return nil, err
	}
	var (
		e   *Expr
		err error
	)
	if p.peek().kind == tokIdent {
		e, err = p.comparison()
	} else {
		e, err = p.group()
	}
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRParen, "')'"); err != nil {
		return nil, err
	}
	return e, nil
}

func (p *parser) comparison() (*Expr, error) {
	col := p.next()
	opTok, err := p.expect(tokOp, "comparison operator")
	if err != nil {
		return nil, err
	}
	lit := p.next()
	e := &Expr{Kind: NodeCompare, Column: col.text, Op: opTok.op}
	switch lit.kind {
	case tokNumber:
		e.Lit = Literal{Num: lit.num}
	case tokString:
		e.Lit = Literal{IsString: true, Str: lit.text}
	default:
		return nil, p.errorf(lit, "expected literal after %s %s, found %q", col.text, opTok.text, lit.text)
	}
	return e, nil
}

// Parse checks the syntax of src without binding it to a schema.
func Parse(src string) (*Selection, error) {
	if strings.TrimSpace(src) == "" {
		return nil, apperr.Config("selection is empty")
	}
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks}
	sel := &Selection{Source: src}
	g, err := p.group()
	if err != nil {
		return nil, err
	}
	sel.Groups = append(sel.Groups, g)
	if p.peek().kind == tokArrow {
		p.next()
		g, err := p.group()
		if err != nil {
			return nil, err
		}
		sel.Groups = append(sel.Groups, g)
	}
	if t := p.peek(); t.kind != tokEOF {
		if t.kind == tokArrow {
			return nil, p.errorf(t, "at most one '-->' is allowed")
		}
		return nil, p.errorf(t, "unexpected %q", t.text)
	}
	return sel, nil
}

// Compile parses src and binds every column against schema. Unknown
// columns and literal/column kind mismatches are config errors.
func Compile(src string, schema Schema) (*Selection, error) {
	sel, err := Parse(src)
	if err != nil {
		return nil, err
	}
	var bindErr error
	for _, g := range sel.Groups {
		g.walk(func(e *Expr) {
			if bindErr != nil || e.Kind != NodeCompare {
				return
			}
			idx, ok := schema.Index(e.Column)
			if !ok {
				bindErr = apperr.Config("selection %q: unknown column %q (known: %s)", src, e.Column, strings.Join(schema.Names(), ", "))
				return
			}
			switch schema[idx].Kind {
			case KindNumber:
				if e.Lit.IsString {
					bindErr = apperr.Config("selection %q: column %q is numeric, got string literal %s", src, e.Column, e.Lit)
					return
				}
			case KindString:
				if !e.Lit.IsString {
					bindErr = apperr.Config("selection %q: column %q is text, got numeric literal %s", src, e.Column, e.Lit)
					return
				}
			}
			e.col = idx
		})
	}
	if bindErr != nil {
		return nil, bindErr
	}
	return sel, nil
}
