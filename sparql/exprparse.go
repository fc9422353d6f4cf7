package sparql

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/cayleygraph/quad"

	"github.com/poiesic/quadkv/graph"
)

// builtins maps function names to their accepted argument counts. A max
// of -1 means variadic.
var builtins = map[string][2]int{
	"BOUND":       {1, 1},
	"IF":          {3, 3},
	"COALESCE":    {1, -1},
	"ISIRI":       {1, 1},
	"ISURI":       {1, 1},
	"ISBLANK":     {1, 1},
	"ISLITERAL":   {1, 1},
	"ISNUMERIC":   {1, 1},
	"STR":         {1, 1},
	"LANG":        {1, 1},
	"DATATYPE":    {1, 1},
	"STRLEN":      {1, 1},
	"UCASE":       {1, 1},
	"LCASE":       {1, 1},
	"CONTAINS":    {2, 2},
	"STRSTARTS":   {2, 2},
	"STRENDS":     {2, 2},
	"CONCAT":      {0, -1},
	"REGEX":       {2, 3},
	"SAMETERM":    {2, 2},
	"LANGMATCHES": {2, 2},
}

var aggregates = map[string]bool{
	"COUNT": true, "SUM": true, "MIN": true, "MAX": true, "AVG": true,
	"SAMPLE": true, "GROUP_CONCAT": true,
}

var casts = map[quad.IRI]bool{
	graph.XSDString:  true,
	graph.XSDBoolean: true,
	graph.XSDInteger: true,
	graph.XSDDecimal: true,
	graph.XSDDouble:  true,
}

// parseConstraint reads the argument of FILTER.
func (p *parser) parseConstraint() (expression, error) {
	if p.isPunct("(") {
		return p.parseBracketted()
	}
	tok := p.peek()
	if tok.kind == tokIdent || tok.kind == tokIRI || tok.kind == tokPName {
		return p.parsePrimary()
	}
	return nil, p.unexpected("constraint")
}

func (p *parser) parseBracketted() (expression, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return expr, nil
}

func (p *parser) parseExpression() (expression, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.acceptPunct("||") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = exprLogical{l: left, r: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (expression, error) {
	left, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for p.acceptPunct("&&") {
		right, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		left = exprLogical{and: true, l: left, r: right}
	}
	return left, nil
}

func (p *parser) parseRelational() (expression, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	tok := p.peek()
	if tok.kind == tokPunct {
		switch tok.text {
		case "=", "!=", "<", ">", "<=", ">=":
			p.next()
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			return exprCompare{op: tok.text, l: left, r: right}, nil
		}
	}
	negate := false
	if p.isKeyword("NOT") && p.peekAt(1).kind == tokIdent && strings.EqualFold(p.peekAt(1).text, "IN") {
		p.next()
		negate = true
	}
	if p.acceptKeyword("IN") {
		list, err := p.parseArgList()
		if err != nil {
			return nil, err
		}
		return exprIn{x: left, list: list, negate: negate}, nil
	}
	return left, nil
}

func (p *parser) parseAdditive() (expression, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		var op byte
		switch {
		case p.acceptPunct("+"):
			op = '+'
		case p.acceptPunct("-"):
			op = '-'
		default:
			return left, nil
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = exprArith{op: op, l: left, r: right}
	}
}

func (p *parser) parseMultiplicative() (expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var op byte
		switch {
		case p.acceptPunct("*"):
			op = '*'
		case p.acceptPunct("/"):
			op = '/'
		default:
			return left, nil
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = exprArith{op: op, l: left, r: right}
	}
}

func (p *parser) parseUnary() (expression, error) {
	switch {
	case p.acceptPunct("!"):
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return exprNot{x: x}, nil
	case p.acceptPunct("-"):
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return exprNeg{x: x}, nil
	case p.acceptPunct("+"):
		return p.parseUnary()
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (expression, error) {
	tok := p.peek()
	switch tok.kind {
	case tokPunct:
		if tok.text == "(" {
			return p.parseBracketted()
		}
	case tokVar:
		p.next()
		return exprVar{name: tok.text}, nil
	case tokIRI, tokPName:
		iri, err := p.parseIRIRef()
		if err != nil {
			return nil, err
		}
		if !p.isPunct("(") {
			return exprConst{value: iri}, nil
		}
		if !casts[iri] {
			return nil, p.unsupported(tok, "function "+string(iri))
		}
		args, err := p.parseArgList()
		if err != nil {
			return nil, err
		}
		if len(args) != 1 {
			return nil, p.errorf(tok, "cast takes one argument")
		}
		return exprCast{to: iri, x: args[0]}, nil
	case tokIdent:
		name := strings.ToUpper(tok.text)
		if name == "TRUE" || name == "FALSE" {
			p.next()
			return exprConst{value: boolValue(name == "TRUE")}, nil
		}
		if aggregates[name] {
			return nil, p.unsupported(tok, "aggregate "+name)
		}
		if name == "EXISTS" || name == "NOT" {
			return nil, p.unsupported(tok, "EXISTS")
		}
		arity, ok := builtins[name]
		if !ok {
			return nil, p.errorf(tok, "unknown function %q", tok.text)
		}
		p.next()
		args, err := p.parseArgList()
		if err != nil {
			return nil, err
		}
		if len(args) < arity[0] || arity[1] >= 0 && len(args) > arity[1] {
			return nil, p.errorf(tok, "%s takes %s arguments", name, arityText(arity))
		}
		call := exprCall{name: name, args: args}
		if name == "BOUND" {
			if _, ok := args[0].(exprVar); !ok {
				return nil, p.errorf(tok, "BOUND requires a variable")
			}
		}
		if name == "REGEX" {
			call.re = precompileRegex(args)
		}
		return call, nil
	}
	v, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}
	return exprConst{value: v}, nil
}

func (p *parser) parseArgList() ([]expression, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var args []expression
	if p.acceptPunct(")") {
		return args, nil
	}
	for {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.acceptPunct(")") {
			return args, nil
		}
		if err := p.expectPunct(","); err != nil {
			return nil, err
		}
	}
}

func arityText(arity [2]int) string {
	switch {
	case arity[1] < 0:
		return "at least " + strconv.Itoa(arity[0])
	case arity[0] == arity[1]:
		return strconv.Itoa(arity[0])
	}
	return strconv.Itoa(arity[0]) + " or " + strconv.Itoa(arity[1])
}

func precompileRegex(args []expression) *regexp.Regexp {
	pattern, ok := args[1].(exprConst)
	if !ok {
		return nil
	}
	ps, _, ok := stringArg(pattern.value)
	if !ok {
		return nil
	}
	var flags string
	if len(args) > 2 {
		f, ok := args[2].(exprConst)
		if !ok {
			return nil
		}
		if flags, _, ok = stringArg(f.value); !ok {
			return nil
		}
	}
	re, err := compileRegex(ps, flags)
	if err != nil {
		return nil
	}
	return re
}
