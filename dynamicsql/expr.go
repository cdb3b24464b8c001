package dynamicsql

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/wolfleong/gobatis/merr"
)

// Expression evaluation: a minimal property-and-boolean
// language over the current Context bindings. Grammar (lowest to highest
// precedence):
//
//	expr    := or
//	or      := and ( "||" and )*
//	and     := not ( "&&" not )*
//	not     := "!" not | cmp
//	cmp     := add ( ("==" | "!=" | "<=" | ">=" | "<" | ">") add )?
//	add     := primary
//	primary := "(" or ")" | literal | path
//
// This is intentionally small: it covers the boolean `test` expressions
// used by <if>/<when>, the iterable expressions used by <foreach>, and the
// value expressions used by ${...}/<bind>.
type exprParser struct {
	s   string
	pos int
	ctx *Context
}

// EvalBool evaluates expr to a boolean using the truthy rules: booleans
// as themselves, numbers as != 0, other non-null as true, null as false.
func EvalBool(expr string, ctx *Context) (bool, error) {
	v, err := EvalValue(expr, ctx)
	if err != nil {
		return false, err
	}
	return truthy(v), nil
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	default:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return rv.Int() != 0
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return rv.Uint() != 0
		case reflect.Float32, reflect.Float64:
			return rv.Float() != 0
		}
		return true
	}
}

// EvalValue evaluates expr to an arbitrary value, used by ${...} expansion,
// <bind>, and as the boolean sub-evaluator.
func EvalValue(expr string, ctx *Context) (any, error) {
	p := &exprParser{s: strings.TrimSpace(expr), ctx: ctx}
	v, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.s) {
		return nil, merr.Wrapf(merr.ErrUnknownProperty, "unexpected trailing input in expression %q", expr)
	}
	return v, nil
}

func (p *exprParser) parseOr() (any, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		if p.consume("||") {
			right, err := p.parseAnd()
			if err != nil {
				return nil, err
			}
			left = truthy(left) || truthy(right)
			continue
		}
		return left, nil
	}
}

func (p *exprParser) parseAnd() (any, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpace()
		if p.consume("&&") {
			right, err := p.parseNot()
			if err != nil {
				return nil, err
			}
			left = truthy(left) && truthy(right)
			continue
		}
		return left, nil
	}
}

func (p *exprParser) parseNot() (any, error) {
	p.skipSpace()
	if p.consume("!") {
		v, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return !truthy(v), nil
	}
	return p.parseCmp()
}

func (p *exprParser) parseCmp() (any, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	for _, op := range []string{"==", "!=", "<=", ">=", "<", ">"} {
		if p.consume(op) {
			right, err := p.parsePrimary()
			if err != nil {
				return nil, err
			}
			return compare(op, left, right), nil
		}
	}
	return left, nil
}

func (p *exprParser) parsePrimary() (any, error) {
	p.skipSpace()
	if p.pos >= len(p.s) {
		return nil, merr.Wrapf(merr.ErrUnknownProperty, "unexpected end of expression")
	}
	c := p.s[p.pos]
	switch {
	case c == '(':
		p.pos++
		v, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if !p.consume(")") {
			return nil, merr.Wrapf(merr.ErrUnknownProperty, "missing closing paren")
		}
		return v, nil
	case c == '\'' || c == '"':
		return p.parseStringLit(c)
	case c == '-' || (c >= '0' && c <= '9'):
		return p.parseNumberLit()
	default:
		return p.parseIdentOrPath()
	}
}

func (p *exprParser) parseStringLit(quote byte) (any, error) {
	p.pos++
	start := p.pos
	for p.pos < len(p.s) && p.s[p.pos] != quote {
		p.pos++
	}
	if p.pos >= len(p.s) {
		return nil, merr.Wrapf(merr.ErrUnknownProperty, "unterminated string literal")
	}
	lit := p.s[start:p.pos]
	p.pos++
	return lit, nil
}

func (p *exprParser) parseNumberLit() (any, error) {
	start := p.pos
	if p.s[p.pos] == '-' {
		p.pos++
	}
	for p.pos < len(p.s) && (isDigit(p.s[p.pos]) || p.s[p.pos] == '.') {
		p.pos++
	}
	lit := p.s[start:p.pos]
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return nil, merr.Wrapf(err, "invalid numeric literal %q", lit)
	}
	return f, nil
}

func (p *exprParser) parseIdentOrPath() (any, error) {
	start := p.pos
	for p.pos < len(p.s) && isIdentChar(p.s[p.pos]) {
		p.pos++
	}
	ident := p.s[start:p.pos]
	switch ident {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "null":
		return nil, nil
	case "":
		return nil, merr.Wrapf(merr.ErrUnknownProperty, "expected identifier at position %d", start)
	}
	v, _ := p.ctx.Lookup(ident)
	return v, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isIdentChar(c byte) bool {
	return c == '.' || c == '_' || c == '[' || c == ']' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || isDigit(c)
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.s) && p.s[p.pos] == ' ' {
		p.pos++
	}
}

func (p *exprParser) consume(tok string) bool {
	if strings.HasPrefix(p.s[p.pos:], tok) {
		p.pos += len(tok)
		return true
	}
	return false
}

func compare(op string, left, right any) bool {
	if lf, rf, ok := asFloats(left, right); ok {
		switch op {
		case "==":
			return lf == rf
		case "!=":
			return lf != rf
		case "<":
			return lf < rf
		case "<=":
			return lf <= rf
		case ">":
			return lf > rf
		case ">=":
			return lf >= rf
		}
	}
	ls, rs := fmt.Sprint(left), fmt.Sprint(right)
	if left == nil {
		ls = ""
	}
	if right == nil {
		rs = ""
	}
	switch op {
	case "==":
		return left == nil && right == nil || ls == rs && left != nil && right != nil
	case "!=":
		return !(left == nil && right == nil || ls == rs && left != nil && right != nil)
	case "<":
		return ls < rs
	case "<=":
		return ls <= rs
	case ">":
		return ls > rs
	case ">=":
		return ls >= rs
	}
	return false
}

func asFloats(a, b any) (float64, float64, bool) {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	return af, bf, aok && bok
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case int32:
		return float64(t), true
	}
	return 0, false
}
