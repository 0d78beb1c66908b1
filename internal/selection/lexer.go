package selection

import (
	"strconv"

	apperr "github.com/rasbt/screenlamp/pkg/errors"
)

type tokKind int

const (
	tokEOF tokKind = iota
	tokLParen
	tokRParen
	tokIdent
	tokOp
	tokNumber
	tokString
	tokAnd
	tokOr
	tokArrow
)

type token struct {
	kind tokKind
	text string
	num  float64
	op   CmpOp
	pos  int
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9') || c == '.'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func lex(src string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, text: "(", pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, text: ")", pos: i})
			i++
		case c == '&':
			toks = append(toks, token{kind: tokAnd, text: "&", pos: i})
			i++
		case c == '|':
			toks = append(toks, token{kind: tokOr, text: "|", pos: i})
			i++
		case c == '-' && i+2 < len(src) && src[i+1] == '-' && src[i+2] == '>':
			toks = append(toks, token{kind: tokArrow, text: "-->", pos: i})
			i += 3
		case c == '=' || c == '!' || c == '<' || c == '>':
			t, n, err := lexOp(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, t)
			i += n
		case c == '\'' || c == '"':
			j := i + 1
			for j < len(src) && src[j] != c {
				j++
			}
			if j >= len(src) {
				return nil, apperr.Config("selection %q: unterminated string at offset %d", src, i)
			}
			toks = append(toks, token{kind: tokString, text: src[i+1 : j], pos: i})
			i = j + 1
		case isDigit(c) || c == '.' || ((c == '-' || c == '+') && i+1 < len(src) && (isDigit(src[i+1]) || src[i+1] == '.')):
			j := i + 1
			for j < len(src) {
				d := src[j]
				if isDigit(d) || d == '.' {
					j++
					continue
				}
				if (d == 'e' || d == 'E') && j+1 < len(src) {
					j++
					if src[j] == '-' || src[j] == '+' {
						j++
					}
					continue
				}
				break
			}
			v, err := strconv.ParseFloat(src[i:j], 64)
			if err != nil {
				return nil, apperr.Config("selection %q: bad number %q", src, src[i:j])
			}
			toks = append(toks, token{kind: tokNumber, text: src[i:j], num: v, pos: i})
			i = j
		case isIdentStart(c):
			j := i + 1
			for j < len(src) && isIdentPart(src[j]) {
				j++
			}
			toks = append(toks, token{kind: tokIdent, text: src[i:j], pos: i})
			i = j
		default:
			return nil, apperr.Config("selection %q: unexpected %q at offset %d", src, string(c), i)
		}
	}
	toks = append(toks, token{kind: tokEOF, pos: len(src)})
	return toks, nil
}

func lexOp(src string, i int) (token, int, error) {
	two := ""
	if i+1 < len(src) {
		two = src[i : i+2]
	}
	switch two {
	case "==":
		return token{kind: tokOp, text: two, op: CmpEq, pos: i}, 2, nil
	case "!=":
		return token{kind: tokOp, text: two, op: CmpNe, pos: i}, 2, nil
	case "<=":
		return token{kind: tokOp, text: two, op: CmpLe, pos: i}, 2, nil
	case ">=":
		return token{kind: tokOp, text: two, op: CmpGe, pos: i}, 2, nil
	}
	switch src[i] {
	case '<':
		return token{kind: tokOp, text: "<", op: CmpLt, pos: i}, 1, nil
	case '>':
		return token{kind: tokOp, text: ">", op: CmpGt, pos: i}, 1, nil
	}
	return token{}, 0, apperr.Config("selection %q: bad operator at offset %d", src, i)
}
