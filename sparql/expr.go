package sparql

import (
	"cmp"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cayleygraph/quad"

	"github.com/poiesic/quadkv/graph"
)

const rdfLangString = quad.IRI("http://www.w3.org/1999/02/22-rdf-syntax-ns#langString")

type expression interface {
	eval(sol Solution) (quad.Value, error)
}

type exprVar struct{ name string }

type exprConst struct{ value quad.Value }

type exprNot struct{ x expression }

type exprNeg struct{ x expression }

type exprLogical struct {
	and  bool
	l, r expression
}

type exprCompare struct {
	op   string
	l, r expression
}

type exprArith struct {
	op   byte
	l, r expression
}

type exprIn struct {
	x      expression
	list   []expression
	negate bool
}

type exprCall struct {
	name string
	args []expression
	re   *regexp.Regexp // precompiled when REGEX has constant arguments
}

type exprCast struct {
	to quad.IRI
	x  expression
}

func (e exprVar) eval(sol Solution) (quad.Value, error) {
	if v, ok := sol[e.name]; ok && v != nil {
		return v, nil
	}
	return nil, errTypeError
}

func (e exprConst) eval(Solution) (quad.Value, error) { return e.value, nil }

func (e exprNot) eval(sol Solution) (quad.Value, error) {
	v, err := e.x.eval(sol)
	if err != nil {
		return nil, err
	}
	b, err := ebv(v)
	if err != nil {
		return nil, err
	}
	return boolValue(!b), nil
}

func (e exprNeg) eval(sol Solution) (quad.Value, error) {
	v, err := e.x.eval(sol)
	if err != nil {
		return nil, err
	}
	n, ok := toNumber(v)
	if !ok {
		return nil, errTypeError
	}
	n.i, n.f = -n.i, -n.f
	return n.value(), nil
}

// eval applies the SPARQL error-tolerant truth tables: an error on one
// side is absorbed when the other side decides the result.
func (e exprLogical) eval(sol Solution) (quad.Value, error) {
	l, lerr := evalBool(e.l, sol)
	r, rerr := evalBool(e.r, sol)
	if e.and {
		switch {
		case lerr == nil && !l, rerr == nil && !r:
			return boolValue(false), nil
		case lerr == nil && rerr == nil:
			return boolValue(true), nil
		}
		return nil, errTypeError
	}
	switch {
	case lerr == nil && l, rerr == nil && r:
		return boolValue(true), nil
	case lerr == nil && rerr == nil:
		return boolValue(false), nil
	}
	return nil, errTypeError
}

func (e exprCompare) eval(sol Solution) (quad.Value, error) {
	l, err := e.l.eval(sol)
	if err != nil {
		return nil, err
	}
	r, err := e.r.eval(sol)
	if err != nil {
		return nil, err
	}
	ok, err := compareValues(e.op, l, r)
	if err != nil {
		return nil, err
	}
	return boolValue(ok), nil
}

func (e exprArith) eval(sol Solution) (quad.Value, error) {
	lv, err := e.l.eval(sol)
	if err != nil {
		return nil, err
	}
	rv, err := e.r.eval(sol)
	if err != nil {
		return nil, err
	}
	l, lok := toNumber(lv)
	r, rok := toNumber(rv)
	if !lok || !rok {
		return nil, errTypeError
	}
	kind := max(l.kind, r.kind)
	if e.op == '/' && kind == numInteger {
		kind = numDecimal
	}
	out := number{kind: kind}
	if kind == numInteger {
		switch e.op {
		case '+':
			out.i = l.i + r.i
		case '-':
			out.i = l.i - r.i
		case '*':
			out.i = l.i * r.i
		}
		out.f = float64(out.i)
		return out.value(), nil
	}
	switch e.op {
	case '+':
		out.f = l.f + r.f
	case '-':
		out.f = l.f - r.f
	case '*':
		out.f = l.f * r.f
	case '/':
		if r.f == 0 && kind != numDouble {
			return nil, errTypeError
		}
		out.f = l.f / r.f
	}
	return out.value(), nil
}

func (e exprIn) eval(sol Solution) (quad.Value, error) {
	v, err := e.x.eval(sol)
	if err != nil {
		return nil, err
	}
	var sawErr bool
	for _, item := range e.list {
		iv, err := item.eval(sol)
		if err != nil {
			sawErr = true
			continue
		}
		eq, err := compareValues("=", v, iv)
		if err != nil {
			sawErr = true
			continue
		}
		if eq {
			return boolValue(!e.negate), nil
		}
	}
	if sawErr {
		return nil, errTypeError
	}
	return boolValue(e.negate), nil
}

func (e exprCast) eval(sol Solution) (quad.Value, error) {
	v, err := e.x.eval(sol)
	if err != nil {
		return nil, err
	}
	lex, ok := lexicalForm(v)
	if !ok {
		return nil, errTypeError
	}
	switch e.to {
	case graph.XSDString:
		return quad.String(lex), nil
	case graph.XSDBoolean:
		if n, ok := toNumber(v); ok {
			return boolValue(n.f != 0), nil
		}
		switch lex {
		case "true", "1":
			return boolValue(true), nil
		case "false", "0":
			return boolValue(false), nil
		}
	case graph.XSDInteger:
		if n, ok := toNumber(v); ok {
			return number{kind: numInteger, i: int64(n.f), f: math.Trunc(n.f)}.value(), nil
		}
		if i, err := strconv.ParseInt(strings.TrimSpace(lex), 10, 64); err == nil {
			return number{kind: numInteger, i: i, f: float64(i)}.value(), nil
		}
	case graph.XSDDecimal, graph.XSDDouble:
		kind := numDecimal
		if e.to == graph.XSDDouble {
			kind = numDouble
		}
		if b, isBool := v.(quad.TypedString); isBool && b.Type == graph.XSDBoolean {
			if b.Value == "true" || b.Value == "1" {
				return number{kind: kind, f: 1}.value(), nil
			}
			return number{kind: kind}.value(), nil
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(lex), 64); err == nil {
			return number{kind: kind, f: f}.value(), nil
		}
	}
	return nil, errTypeError
}

func (e exprCall) eval(sol Solution) (quad.Value, error) {
	switch e.name {
	case "BOUND":
		v, ok := e.args[0].(exprVar)
		if !ok {
			return nil, errTypeError
		}
		_, bound := sol[v.name]
		return boolValue(bound), nil
	case "IF":
		cond, err := evalBool(e.args[0], sol)
		if err != nil {
			return nil, err
		}
		if cond {
			return e.args[1].eval(sol)
		}
		return e.args[2].eval(sol)
	case "COALESCE":
		for _, arg := range e.args {
			if v, err := arg.eval(sol); err == nil {
				return v, nil
			}
		}
		return nil, errTypeError
	}

	args := make([]quad.Value, len(e.args))
	for i, arg := range e.args {
		v, err := arg.eval(sol)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	switch e.name {
	case "ISIRI", "ISURI":
		_, ok := args[0].(quad.IRI)
		return boolValue(ok), nil
	case "ISBLANK":
		_, ok := args[0].(quad.BNode)
		return boolValue(ok), nil
	case "ISLITERAL":
		return boolValue(graph.IsLiteral(args[0])), nil
	case "ISNUMERIC":
		_, ok := toNumber(args[0])
		return boolValue(ok), nil
	case "STR":
		lex, ok := lexicalForm(args[0])
		if !ok {
			return nil, errTypeError
		}
		return quad.String(lex), nil
	case "LANG":
		switch v := graph.Canonical(args[0]).(type) {
		case quad.LangString:
			return quad.String(v.Lang), nil
		case quad.String, quad.TypedString:
			return quad.String(""), nil
		}
		return nil, errTypeError
	case "DATATYPE":
		switch v := graph.Canonical(args[0]).(type) {
		case quad.String:
			return graph.XSDString, nil
		case quad.TypedString:
			return v.Type, nil
		case quad.LangString:
			return rdfLangString, nil
		}
		return nil, errTypeError
	case "STRLEN":
		s, _, ok := stringArg(args[0])
		if !ok {
			return nil, errTypeError
		}
		n := int64(len([]rune(s)))
		return number{kind: numInteger, i: n, f: float64(n)}.value(), nil
	case "UCASE", "LCASE":
		s, lang, ok := stringArg(args[0])
		if !ok {
			return nil, errTypeError
		}
		if e.name == "UCASE" {
			s = strings.ToUpper(s)
		} else {
			s = strings.ToLower(s)
		}
		return withLang(s, lang), nil
	case "CONTAINS", "STRSTARTS", "STRENDS":
		a, _, aok := stringArg(args[0])
		b, _, bok := stringArg(args[1])
		if !aok || !bok {
			return nil, errTypeError
		}
		switch e.name {
		case "CONTAINS":
			return boolValue(strings.Contains(a, b)), nil
		case "STRSTARTS":
			return boolValue(strings.HasPrefix(a, b)), nil
		default:
			return boolValue(strings.HasSuffix(a, b)), nil
		}
	case "CONCAT":
		var b strings.Builder
		var lang string
		for i, arg := range args {
			s, l, ok := stringArg(arg)
			if !ok {
				return nil, errTypeError
			}
			if i == 0 {
				lang = l
			} else if l != lang {
				lang = ""
			}
			b.WriteString(s)
		}
		return withLang(b.String(), lang), nil
	case "REGEX":
		text, _, ok := stringArg(args[0])
		if !ok {
			return nil, errTypeError
		}
		re := e.re
		if re == nil {
			pattern, _, ok := stringArg(args[1])
			if !ok {
				return nil, errTypeError
			}
			var flags string
			if len(args) > 2 {
				if flags, _, ok = stringArg(args[2]); !ok {
					return nil, errTypeError
				}
			}
			var err error
			if re, err = compileRegex(pattern, flags); err != nil {
				return nil, errTypeError
			}
		}
		return boolValue(re.MatchString(text)), nil
	case "SAMETERM":
		return boolValue(graph.Canonical(args[0]) == graph.Canonical(args[1])), nil
	case "LANGMATCHES":
		tag, _, tok := stringArg(args[0])
		rng, _, rok := stringArg(args[1])
		if !tok || !rok {
			return nil, errTypeError
		}
		return boolValue(langMatches(tag, rng)), nil
	}
	return nil, errTypeError
}

func compileRegex(pattern, flags string) (*regexp.Regexp, error) {
	var prefix string
	for _, f := range flags {
		switch f {
		case 'i', 's', 'm':
			prefix += string(f)
		case 'q':
			pattern = regexp.QuoteMeta(pattern)
		default:
			return nil, errTypeError
		}
	}
	if prefix != "" {
		pattern = "(?" + prefix + ")" + pattern
	}
	return regexp.Compile(pattern)
}

func langMatches(tag, rng string) bool {
	tag, rng = strings.ToLower(tag), strings.ToLower(rng)
	if rng == "*" {
		return tag != ""
	}
	return tag == rng || strings.HasPrefix(tag, rng+"-")
}

func evalBool(e expression, sol Solution) (bool, error) {
	v, err := e.eval(sol)
	if err != nil {
		return false, err
	}
	return ebv(v)
}

// ebv computes the effective boolean value of a term.
func ebv(v quad.Value) (bool, error) {
	switch t := graph.Canonical(v).(type) {
	case quad.String:
		return t != "", nil
	case quad.TypedString:
		if t.Type == graph.XSDBoolean {
			return t.Value == "true" || t.Value == "1", nil
		}
		if n, ok := toNumber(t); ok {
			return n.f != 0 && !math.IsNaN(n.f), nil
		}
	}
	return false, errTypeError
}

func boolValue(b bool) quad.Value {
	return quad.TypedString{Value: quad.String(strconv.FormatBool(b)), Type: graph.XSDBoolean}
}

type numKind int

const (
	numInteger numKind = iota
	numDecimal
	numDouble
)

type number struct {
	kind numKind
	i    int64
	f    float64
}

func (n number) value() quad.Value {
	switch n.kind {
	case numInteger:
		return quad.TypedString{Value: quad.String(strconv.FormatInt(n.i, 10)), Type: graph.XSDInteger}
	case numDecimal:
		return quad.TypedString{Value: quad.String(strconv.FormatFloat(n.f, 'f', -1, 64)), Type: graph.XSDDecimal}
	default:
		return quad.TypedString{Value: quad.String(strconv.FormatFloat(n.f, 'E', -1, 64)), Type: graph.XSDDouble}
	}
}

var integerTypes = map[string]bool{
	"integer": true, "int": true, "long": true, "short": true, "byte": true,
	"nonNegativeInteger": true, "positiveInteger": true,
	"nonPositiveInteger": true, "negativeInteger": true,
	"unsignedLong": true, "unsignedInt": true, "unsignedShort": true, "unsignedByte": true,
}

func toNumber(v quad.Value) (number, bool) {
	t, ok := graph.Canonical(v).(quad.TypedString)
	if !ok || !strings.HasPrefix(string(t.Type), graph.XSDNamespace) {
		return number{}, false
	}
	local := strings.TrimPrefix(string(t.Type), graph.XSDNamespace)
	lex := strings.TrimSpace(string(t.Value))
	switch {
	case integerTypes[local]:
		i, err := strconv.ParseInt(lex, 10, 64)
		if err != nil {
			return number{}, false
		}
		return number{kind: numInteger, i: i, f: float64(i)}, true
	case local == "decimal":
		f, err := strconv.ParseFloat(lex, 64)
		if err != nil {
			return number{}, false
		}
		return number{kind: numDecimal, f: f}, true
	case local == "double" || local == "float":
		f, err := strconv.ParseFloat(lex, 64)
		if err != nil {
			switch lex {
			case "INF":
				f = math.Inf(1)
			case "-INF":
				f = math.Inf(-1)
			case "NaN":
				f = math.NaN()
			default:
				return number{}, false
			}
		}
		return number{kind: numDouble, f: f}, true
	}
	return number{}, false
}

// lexicalForm returns the string form of an IRI or literal.
func lexicalForm(v quad.Value) (string, bool) {
	switch t := graph.Canonical(v).(type) {
	case quad.IRI:
		return string(t), true
	case quad.String:
		return string(t), true
	case quad.TypedString:
		return string(t.Value), true
	case quad.LangString:
		return string(t.Value), true
	}
	return "", false
}

// stringArg accepts simple literals, xsd:string and language-tagged
// strings, the argument types of the SPARQL string functions.
func stringArg(v quad.Value) (s, lang string, ok bool) {
	switch t := graph.Canonical(v).(type) {
	case quad.String:
		return string(t), "", true
	case quad.LangString:
		return string(t.Value), t.Lang, true
	}
	return "", "", false
}

func withLang(s, lang string) quad.Value {
	if lang != "" {
		return quad.LangString{Value: quad.String(s), Lang: lang}
	}
	return quad.String(s)
}

// compareValues implements the SPARQL comparison operators.
func compareValues(op string, a, b quad.Value) (bool, error) {
	a, b = graph.Canonical(a), graph.Canonical(b)
	c, err := orderedCompare(a, b)
	if err != nil {
		switch op {
		case "=":
			return a == b, nil
		case "!=":
			return a != b, nil
		}
		return false, err
	}
	switch op {
	case "=":
		return c == 0, nil
	case "!=":
		return c != 0, nil
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	case ">=":
		return c >= 0, nil
	}
	return false, errTypeError
}

// orderedCompare compares two values of a mutually comparable type and
// reports a type error otherwise.
func orderedCompare(a, b quad.Value) (int, error) {
	if an, ok := toNumber(a); ok {
		bn, ok := toNumber(b)
		if !ok {
			return 0, errTypeError
		}
		if an.kind == numInteger && bn.kind == numInteger {
			return cmp.Compare(an.i, bn.i), nil
		}
		if math.IsNaN(an.f) || math.IsNaN(bn.f) {
			return 0, errTypeError
		}
		return cmp.Compare(an.f, bn.f), nil
	}
	if as, alang, ok := stringArg(a); ok {
		bs, blang, ok := stringArg(b)
		if !ok || !strings.EqualFold(alang, blang) {
			return 0, errTypeError
		}
		return strings.Compare(as, bs), nil
	}
	at, aok := a.(quad.TypedString)
	bt, bok := b.(quad.TypedString)
	if !aok || !bok || at.Type != bt.Type {
		return 0, errTypeError
	}
	switch at.Type {
	case graph.XSDBoolean:
		return cmp.Compare(boolRank(at.Value), boolRank(bt.Value)), nil
	case graph.XSDDateTime:
		ta, errA := time.Parse(time.RFC3339Nano, string(at.Value))
		tb, errB := time.Parse(time.RFC3339Nano, string(bt.Value))
		if errA != nil || errB != nil {
			return 0, errTypeError
		}
		return ta.Compare(tb), nil
	}
	return 0, errTypeError
}

func boolRank(s quad.String) int {
	if s == "true" || s == "1" {
		return 1
	}
	return 0
}
