package sparql

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/cayleygraph/quad"
	"github.com/cayleygraph/quad/voc/rdf"

	"github.com/poiesic/quadkv/graph"
)

type parser struct {
	toks     []token
	pos      int
	prefixes map[string]string
	base     *url.URL

	// Blank nodes in WHERE clauses act as variables; in data blocks and
	// templates they are constant labels.
	bnodesAsVars bool
	anon         int

	vars []string
	seen map[string]bool
}

func newParser(text string) (*parser, error) {
	toks, err := tokenize(text)
	if err != nil {
		return nil, err
	}
	return &parser{
		toks:     toks,
		prefixes: make(map[string]string),
		seen:     make(map[string]bool),
	}, nil
}

// parse reads one query or a sequence of update operations. Exactly one
// of the returned ASTs is non-nil on success.
func parse(text string) (*queryAST, *updateAST, error) {
	p, err := newParser(text)
	if err != nil {
		return nil, nil, err
	}
	if err := p.parsePrologue(); err != nil {
		return nil, nil, err
	}
	switch {
	case p.isKeyword("SELECT"), p.isKeyword("ASK"), p.isKeyword("CONSTRUCT"), p.isKeyword("DESCRIBE"):
		q, err := p.parseQuery()
		if err != nil {
			return nil, nil, err
		}
		return q, nil, nil
	default:
		u, err := p.parseUpdate()
		if err != nil {
			return nil, nil, err
		}
		return nil, u, nil
	}
}

// token helpers

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) peekAt(n int) token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) next() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) isKeyword(kw string) bool {
	tok := p.peek()
	return tok.kind == tokIdent && strings.EqualFold(tok.text, kw)
}

func (p *parser) isPunct(s string) bool {
	tok := p.peek()
	return tok.kind == tokPunct && tok.text == s
}

func (p *parser) acceptKeyword(kw string) bool {
	if p.isKeyword(kw) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) acceptPunct(s string) bool {
	if p.isPunct(s) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expectKeyword(kw string) error {
	if !p.acceptKeyword(kw) {
		return p.unexpected(kw)
	}
	return nil
}

func (p *parser) expectPunct(s string) error {
	if !p.acceptPunct(s) {
		return p.unexpected(fmt.Sprintf("%q", s))
	}
	return nil
}

func (p *parser) errorf(tok token, format string, args ...any) error {
	return &SyntaxError{Line: tok.line, Column: tok.col, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) unexpected(want string) error {
	tok := p.peek()
	if tok.kind == tokEOF {
		return p.errorf(tok, "expected %s, found end of input", want)
	}
	return p.errorf(tok, "expected %s, found %s %q", want, tok.kind, tok.text)
}

func (p *parser) unsupported(tok token, what string) error {
	return fmt.Errorf("%w: %s (line %d, column %d)", ErrUnsupported, what, tok.line, tok.col)
}

func (p *parser) noteVar(name string) {
	if strings.HasPrefix(name, "_:") || p.seen[name] {
		return
	}
	p.seen[name] = true
	p.vars = append(p.vars, name)
}

// prologue

func (p *parser) parsePrologue() error {
	for {
		switch {
		case p.acceptKeyword("PREFIX"):
			tok := p.next()
			if tok.kind != tokPName || !strings.HasSuffix(tok.text, ":") {
				return p.errorf(tok, "expected prefix name, found %q", tok.text)
			}
			iri, err := p.parseIRIRef()
			if err != nil {
				return err
			}
			p.prefixes[strings.TrimSuffix(tok.text, ":")] = string(iri)
		case p.acceptKeyword("BASE"):
			tok := p.next()
			if tok.kind != tokIRI {
				return p.errorf(tok, "expected base IRI, found %q", tok.text)
			}
			base, err := url.Parse(p.resolve(tok.text))
			if err != nil {
				return p.errorf(tok, "invalid base IRI: %v", err)
			}
			p.base = base
		default:
			return nil
		}
	}
}

func (p *parser) resolve(ref string) string {
	if p.base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil || u.IsAbs() {
		return ref
	}
	return p.base.ResolveReference(u).String()
}

func (p *parser) parseIRIRef() (quad.IRI, error) {
	tok := p.next()
	switch tok.kind {
	case tokIRI:
		return quad.IRI(p.resolve(tok.text)), nil
	case tokPName:
		return p.expand(tok)
	}
	return "", p.errorf(tok, "expected IRI, found %q", tok.text)
}

func (p *parser) expand(tok token) (quad.IRI, error) {
	prefix, local, _ := strings.Cut(tok.text, ":")
	ns, ok := p.prefixes[prefix]
	if !ok {
		return "", p.errorf(tok, "undefined prefix %q", prefix)
	}
	return quad.IRI(ns + local), nil
}

// queries

func (p *parser) parseQuery() (*queryAST, error) {
	q := &queryAST{limit: -1}
	p.bnodesAsVars = true

	switch tok := p.next(); strings.ToUpper(tok.text) {
	case "SELECT":
		q.form = formSelect
		if err := p.parseSelectClause(q); err != nil {
			return nil, err
		}
	case "ASK":
		q.form = formAsk
	case "CONSTRUCT":
		q.form = formConstruct
		if p.isPunct("{") {
			p.bnodesAsVars = false
			tmpl, err := p.parseTemplate()
			if err != nil {
				return nil, err
			}
			p.bnodesAsVars = true
			for _, qp := range tmpl {
				if !qp.g.isZero() {
					return nil, p.errorf(p.peek(), "GRAPH is not allowed in a CONSTRUCT template")
				}
				q.template = append(q.template, qp.triplePattern)
			}
		}
	case "DESCRIBE":
		q.form = formDescribe
		if p.acceptPunct("*") {
			q.star = true
		} else {
			for p.peek().kind == tokVar || p.peek().kind == tokIRI || p.peek().kind == tokPName {
				n, err := p.parseTerm()
				if err != nil {
					return nil, err
				}
				q.describe = append(q.describe, n)
			}
			if len(q.describe) == 0 {
				return nil, p.unexpected("variable or IRI")
			}
		}
	}

	if tok := p.peek(); p.isKeyword("FROM") {
		return nil, p.unsupported(tok, "FROM dataset clauses")
	}

	hasWhere := p.acceptKeyword("WHERE")
	if hasWhere || p.isPunct("{") {
		where, err := p.parseGroup()
		if err != nil {
			return nil, err
		}
		q.where = where
	} else if q.form != formDescribe {
		return nil, p.unexpected("WHERE clause")
	}

	if q.form == formConstruct && q.template == nil {
		// CONSTRUCT WHERE: the pattern is its own template.
		if q.where == nil || len(q.where.filters) > 0 {
			return nil, p.errorf(p.peek(), "CONSTRUCT WHERE requires a basic graph pattern")
		}
		for _, el := range q.where.elements {
			bgp, ok := el.(bgpElem)
			if !ok {
				return nil, p.errorf(p.peek(), "CONSTRUCT WHERE requires a basic graph pattern")
			}
			q.template = append(q.template, bgp.patterns...)
		}
	}

	if err := p.parseModifiers(q); err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, p.errorf(tok, "unexpected %q after query", tok.text)
	}
	q.vars = p.vars
	if q.form == formSelect && q.star {
		for _, name := range q.vars {
			q.projection = append(q.projection, projection{name: name})
		}
	}
	return q, nil
}

func (p *parser) parseSelectClause(q *queryAST) error {
	if p.acceptKeyword("DISTINCT") {
		q.distinct = true
	} else if p.acceptKeyword("REDUCED") {
		q.reduced = true
	}
	if p.acceptPunct("*") {
		q.star = true
		return nil
	}
	for {
		tok := p.peek()
		switch {
		case tok.kind == tokVar:
			p.next()
			q.projection = append(q.projection, projection{name: tok.text})
		case p.isPunct("("):
			p.next()
			expr, err := p.parseExpression()
			if err != nil {
				return err
			}
			if err := p.expectKeyword("AS"); err != nil {
				return err
			}
			v := p.next()
			if v.kind != tokVar {
				return p.errorf(v, "expected variable after AS")
			}
			if err := p.expectPunct(")"); err != nil {
				return err
			}
			q.projection = append(q.projection, projection{name: v.text, expr: expr})
		default:
			if len(q.projection) == 0 {
				return p.unexpected("projection")
			}
			return nil
		}
	}
}

func (p *parser) parseModifiers(q *queryAST) error {
	if tok := p.peek(); p.isKeyword("GROUP") || p.isKeyword("HAVING") {
		return p.unsupported(tok, "aggregation")
	}
	if p.acceptKeyword("ORDER") {
		if err := p.expectKeyword("BY"); err != nil {
			return err
		}
	conditions:
		for {
			var cond orderCondition
			switch {
			case p.isKeyword("ASC"), p.isKeyword("DESC"):
				cond.desc = strings.EqualFold(p.next().text, "DESC")
				expr, err := p.parseBracketted()
				if err != nil {
					return err
				}
				cond.expr = expr
			case p.peek().kind == tokVar:
				cond.expr = exprVar{name: p.next().text}
			case p.isPunct("("):
				expr, err := p.parseBracketted()
				if err != nil {
					return err
				}
				cond.expr = expr
			case p.peek().kind == tokIdent && p.peekAt(1).kind == tokPunct && p.peekAt(1).text == "(":
				expr, err := p.parsePrimary()
				if err != nil {
					return err
				}
				cond.expr = expr
			default:
				if len(q.orderBy) == 0 {
					return p.unexpected("order condition")
				}
				break conditions
			}
			q.orderBy = append(q.orderBy, cond)
		}
	}
	for i := 0; i < 2; i++ {
		switch {
		case p.acceptKeyword("LIMIT"):
			n, err := p.parseNonNegative()
			if err != nil {
				return err
			}
			q.limit = n
		case p.acceptKeyword("OFFSET"):
			n, err := p.parseNonNegative()
			if err != nil {
				return err
			}
			q.offset = n
		}
	}
	return nil
}

func (p *parser) parseNonNegative() (int, error) {
	tok := p.next()
	if tok.kind != tokInteger {
		return 0, p.errorf(tok, "expected integer, found %q", tok.text)
	}
	n, err := strconv.Atoi(tok.text)
	if err != nil {
		return 0, p.errorf(tok, "invalid integer %q", tok.text)
	}
	return n, nil
}

// group patterns

func (p *parser) parseGroup() (*groupPattern, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	if tok := p.peek(); p.isKeyword("SELECT") {
		return nil, p.unsupported(tok, "subqueries")
	}
	g := &groupPattern{}
	for !p.acceptPunct("}") {
		tok := p.peek()
		switch {
		case tok.kind == tokEOF:
			return nil, p.unexpected(`"}"`)
		case p.acceptKeyword("FILTER"):
			expr, err := p.parseConstraint()
			if err != nil {
				return nil, err
			}
			g.filters = append(g.filters, expr)
		case p.acceptKeyword("OPTIONAL"):
			sub, err := p.parseGroup()
			if err != nil {
				return nil, err
			}
			g.elements = append(g.elements, optionalElem{group: sub})
		case p.acceptKeyword("MINUS"):
			sub, err := p.parseGroup()
			if err != nil {
				return nil, err
			}
			g.elements = append(g.elements, minusElem{group: sub})
		case p.acceptKeyword("GRAPH"):
			gn, err := p.parseVarOrIRI()
			if err != nil {
				return nil, err
			}
			sub, err := p.parseGroup()
			if err != nil {
				return nil, err
			}
			g.elements = append(g.elements, graphElem{graph: gn, group: sub})
		case p.acceptKeyword("BIND"):
			el, err := p.parseBind()
			if err != nil {
				return nil, err
			}
			g.elements = append(g.elements, el)
		case p.acceptKeyword("VALUES"):
			el, err := p.parseValues()
			if err != nil {
				return nil, err
			}
			g.elements = append(g.elements, el)
		case p.isKeyword("SERVICE"), p.isKeyword("EXISTS"), p.isKeyword("NOT"):
			return nil, p.unsupported(tok, strings.ToUpper(tok.text))
		case p.isPunct("{"):
			sub, err := p.parseGroup()
			if err != nil {
				return nil, err
			}
			if !p.isKeyword("UNION") {
				g.elements = append(g.elements, subGroupElem{group: sub})
				break
			}
			union := unionElem{branches: []*groupPattern{sub}}
			for p.acceptKeyword("UNION") {
				branch, err := p.parseGroup()
				if err != nil {
					return nil, err
				}
				union.branches = append(union.branches, branch)
			}
			g.elements = append(g.elements, union)
		case p.startsTerm():
			patterns, err := p.parseTriplesBlock()
			if err != nil {
				return nil, err
			}
			g.elements = append(g.elements, bgpElem{patterns: patterns})
			continue
		default:
			return nil, p.errorf(tok, "unexpected %q in group pattern", tok.text)
		}
		p.acceptPunct(".")
	}
	return g, nil
}

func (p *parser) startsTerm() bool {
	tok := p.peek()
	switch tok.kind {
	case tokVar, tokIRI, tokPName, tokBNode, tokString, tokInteger, tokDecimal, tokDouble:
		return true
	case tokPunct:
		return tok.text == "["
	case tokIdent:
		return strings.EqualFold(tok.text, "true") || strings.EqualFold(tok.text, "false")
	}
	return false
}

// parseTriplesBlock reads triples separated by "." until something that
// is not a triple follows.
func (p *parser) parseTriplesBlock() ([]triplePattern, error) {
	var out []triplePattern
	for p.startsTerm() {
		triples, err := p.parseTriplesSameSubject()
		if err != nil {
			return nil, err
		}
		out = append(out, triples...)
		if !p.acceptPunct(".") {
			break
		}
	}
	return out, nil
}

func (p *parser) parseTriplesSameSubject() ([]triplePattern, error) {
	subject, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	var out []triplePattern
	for {
		verb, err := p.parseVerb()
		if err != nil {
			return nil, err
		}
		for {
			object, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			out = append(out, triplePattern{s: subject, p: verb, o: object})
			if !p.acceptPunct(",") {
				break
			}
		}
		if !p.acceptPunct(";") {
			return out, nil
		}
		for p.acceptPunct(";") {
		}
		if p.isPunct(".") || p.isPunct("}") || p.peek().kind == tokEOF {
			return out, nil
		}
	}
}

func (p *parser) parseVerb() (node, error) {
	if p.isKeyword("a") {
		p.next()
		return constNode(quad.IRI(rdf.Type).Full()), nil
	}
	if p.isPunct("^") {
		return node{}, p.unsupported(p.peek(), "property paths")
	}
	verb, err := p.parseVarOrIRI()
	if err != nil {
		return node{}, err
	}
	if tok := p.peek(); p.isPunct("/") || p.isPunct("|") || p.isPunct("*") {
		return node{}, p.unsupported(tok, "property paths")
	}
	return verb, nil
}

func (p *parser) parseVarOrIRI() (node, error) {
	tok := p.peek()
	switch tok.kind {
	case tokVar:
		p.next()
		p.noteVar(tok.text)
		return varNode(tok.text), nil
	case tokIRI, tokPName:
		iri, err := p.parseIRIRef()
		if err != nil {
			return node{}, err
		}
		return constNode(iri), nil
	}
	return node{}, p.unexpected("variable or IRI")
}

// parseTerm reads a variable, IRI, blank node or literal.
func (p *parser) parseTerm() (node, error) {
	tok := p.peek()
	switch tok.kind {
	case tokVar, tokIRI, tokPName:
		return p.parseVarOrIRI()
	case tokBNode:
		p.next()
		return p.blankNode(tok.text), nil
	case tokPunct:
		if tok.text == "[" {
			p.next()
			if !p.acceptPunct("]") {
				return node{}, p.unsupported(tok, "blank node property lists")
			}
			p.anon++
			return p.blankNode(fmt.Sprintf("anon%d", p.anon)), nil
		}
	}
	v, err := p.parseLiteral()
	if err != nil {
		return node{}, err
	}
	return constNode(v), nil
}

func (p *parser) blankNode(label string) node {
	if p.bnodesAsVars {
		return varNode("_:" + label)
	}
	return constNode(quad.BNode(label))
}

// parseLiteral reads a string, numeric or boolean literal. A leading sign
// is folded into numeric literals.
func (p *parser) parseLiteral() (quad.Value, error) {
	tok := p.next()
	switch tok.kind {
	case tokString:
		if lt := p.peek(); lt.kind == tokLangTag {
			p.next()
			return quad.LangString{Value: quad.String(tok.text), Lang: lt.text}, nil
		}
		if p.acceptPunct("^^") {
			dt, err := p.parseIRIRef()
			if err != nil {
				return nil, err
			}
			if dt == graph.XSDString {
				return quad.String(tok.text), nil
			}
			return quad.TypedString{Value: quad.String(tok.text), Type: dt}, nil
		}
		return quad.String(tok.text), nil
	case tokInteger, tokDecimal, tokDouble:
		return numericLiteral(tok.kind, tok.text), nil
	case tokPunct:
		if (tok.text == "-" || tok.text == "+") && isNumberToken(p.peek().kind) {
			num := p.next()
			text := num.text
			if tok.text == "-" {
				text = "-" + text
			}
			return numericLiteral(num.kind, text), nil
		}
	case tokIdent:
		switch strings.ToLower(tok.text) {
		case "true":
			return quad.TypedString{Value: "true", Type: graph.XSDBoolean}, nil
		case "false":
			return quad.TypedString{Value: "false", Type: graph.XSDBoolean}, nil
		}
	}
	if tok.kind == tokEOF {
		return nil, p.errorf(tok, "expected term, found end of input")
	}
	return nil, p.errorf(tok, "expected term, found %s %q", tok.kind, tok.text)
}

func isNumberToken(k tokenKind) bool {
	return k == tokInteger || k == tokDecimal || k == tokDouble
}

func numericLiteral(kind tokenKind, text string) quad.Value {
	dt := graph.XSDInteger
	switch kind {
	case tokDecimal:
		dt = graph.XSDDecimal
	case tokDouble:
		dt = graph.XSDDouble
	}
	return quad.TypedString{Value: quad.String(strings.TrimPrefix(text, "+")), Type: dt}
}

func (p *parser) parseBind() (element, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("AS"); err != nil {
		return nil, err
	}
	tok := p.next()
	if tok.kind != tokVar {
		return nil, p.errorf(tok, "expected variable after AS")
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	p.noteVar(tok.text)
	return bindElem{expr: expr, name: tok.text}, nil
}

func (p *parser) parseValues() (element, error) {
	var el valuesElem
	multi := p.acceptPunct("(")
	for {
		tok := p.peek()
		if tok.kind != tokVar {
			break
		}
		p.next()
		p.noteVar(tok.text)
		el.names = append(el.names, tok.text)
		if !multi {
			break
		}
	}
	if len(el.names) == 0 && !multi {
		return nil, p.unexpected("variable")
	}
	if multi {
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
	}
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	for !p.acceptPunct("}") {
		if multi {
			if err := p.expectPunct("("); err != nil {
				return nil, err
			}
		}
		var row []quad.Value
		for (multi && !p.isPunct(")")) || (!multi && len(row) == 0) {
			if p.acceptKeyword("UNDEF") {
				row = append(row, nil)
				continue
			}
			tok := p.peek()
			var v quad.Value
			var err error
			if tok.kind == tokIRI || tok.kind == tokPName {
				v, err = p.parseIRIRef()
			} else {
				v, err = p.parseLiteral()
			}
			if err != nil {
				return nil, err
			}
			row = append(row, v)
		}
		if multi {
			p.next()
		}
		if len(row) != len(el.names) {
			return nil, p.errorf(p.peek(), "VALUES row has %d terms, want %d", len(row), len(el.names))
		}
		el.rows = append(el.rows, row)
	}
	return el, nil
}

// updates

func (p *parser) parseUpdate() (*updateAST, error) {
	u := &updateAST{}
	for {
		if err := p.parsePrologue(); err != nil {
			return nil, err
		}
		if p.peek().kind == tokEOF {
			break
		}
		op, err := p.parseUpdateOp()
		if err != nil {
			return nil, err
		}
		u.ops = append(u.ops, op)
		if !p.acceptPunct(";") {
			break
		}
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, p.errorf(tok, "unexpected %q after update", tok.text)
	}
	if len(u.ops) == 0 {
		return nil, p.errorf(p.peek(), "empty request")
	}
	return u, nil
}

func (p *parser) parseUpdateOp() (updateOp, error) {
	tok := p.peek()
	switch {
	case p.isKeyword("INSERT") && p.peekAt(1).kind == tokIdent && strings.EqualFold(p.peekAt(1).text, "DATA"):
		p.pos += 2
		quads, err := p.parseQuadData()
		if err != nil {
			return nil, err
		}
		return insertDataOp{quads: quads}, nil

	case p.isKeyword("DELETE") && p.peekAt(1).kind == tokIdent && strings.EqualFold(p.peekAt(1).text, "DATA"):
		p.pos += 2
		quads, err := p.parseQuadData()
		if err != nil {
			return nil, err
		}
		return deleteDataOp{quads: quads}, nil

	case p.isKeyword("DELETE") && p.peekAt(1).kind == tokIdent && strings.EqualFold(p.peekAt(1).text, "WHERE"):
		p.pos += 2
		p.bnodesAsVars = true
		patterns, err := p.parseTemplate()
		if err != nil {
			return nil, err
		}
		return deleteWhereOp{patterns: patterns}, nil

	case p.isKeyword("WITH"), p.isKeyword("DELETE"), p.isKeyword("INSERT"):
		return p.parseModify()

	case p.acceptKeyword("CLEAR"), p.acceptKeyword("DROP"):
		op := clearOp{silent: p.acceptKeyword("SILENT")}
		switch {
		case p.acceptKeyword("DEFAULT"):
			op.target = targetDefault
		case p.acceptKeyword("NAMED"):
			op.target = targetNamed
		case p.acceptKeyword("ALL"):
			op.target = targetAll
		default:
			if err := p.expectKeyword("GRAPH"); err != nil {
				return nil, err
			}
			iri, err := p.parseIRIRef()
			if err != nil {
				return nil, err
			}
			op.target = targetGraph
			op.graph = iri
		}
		return op, nil

	case p.acceptKeyword("CREATE"):
		p.acceptKeyword("SILENT")
		if err := p.expectKeyword("GRAPH"); err != nil {
			return nil, err
		}
		iri, err := p.parseIRIRef()
		if err != nil {
			return nil, err
		}
		return createOp{graph: iri}, nil

	case p.isKeyword("LOAD"), p.isKeyword("ADD"), p.isKeyword("MOVE"), p.isKeyword("COPY"):
		return nil, p.unsupported(tok, strings.ToUpper(tok.text))
	}
	if tok.kind == tokEOF {
		return nil, p.errorf(tok, "expected query or update, found end of input")
	}
	return nil, p.errorf(tok, "expected query or update, found %q", tok.text)
}

func (p *parser) parseModify() (updateOp, error) {
	var op modifyOp
	if p.acceptKeyword("WITH") {
		iri, err := p.parseIRIRef()
		if err != nil {
			return nil, err
		}
		op.with = iri
	}
	p.bnodesAsVars = false
	if p.acceptKeyword("DELETE") {
		tmpl, err := p.parseTemplate()
		if err != nil {
			return nil, err
		}
		op.deletes = tmpl
	}
	if p.acceptKeyword("INSERT") {
		tmpl, err := p.parseTemplate()
		if err != nil {
			return nil, err
		}
		op.inserts = tmpl
	}
	if op.deletes == nil && op.inserts == nil {
		return nil, p.unexpected("DELETE or INSERT")
	}
	if tok := p.peek(); p.isKeyword("USING") {
		return nil, p.unsupported(tok, "USING clauses")
	}
	if err := p.expectKeyword("WHERE"); err != nil {
		return nil, err
	}
	p.bnodesAsVars = true
	where, err := p.parseGroup()
	if err != nil {
		return nil, err
	}
	op.where = where
	return op, nil
}

// parseQuadData reads a ground quad block. Variables are rejected.
func (p *parser) parseQuadData() ([]quadPattern, error) {
	p.bnodesAsVars = false
	start := p.peek()
	quads, err := p.parseTemplate()
	if err != nil {
		return nil, err
	}
	for _, q := range quads {
		if q.s.isVar() || q.p.isVar() || q.o.isVar() || q.g.isVar() {
			return nil, p.errorf(start, "variables are not allowed in data blocks")
		}
	}
	return quads, nil
}

// parseTemplate reads "{ triples (GRAPH g { triples })* }".
func (p *parser) parseTemplate() ([]quadPattern, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	out := []quadPattern{}
	for !p.acceptPunct("}") {
		switch {
		case p.acceptKeyword("GRAPH"):
			g, err := p.parseVarOrIRI()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct("{"); err != nil {
				return nil, err
			}
			triples, err := p.parseTriplesBlock()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct("}"); err != nil {
				return nil, err
			}
			for _, t := range triples {
				out = append(out, quadPattern{triplePattern: t, g: g})
			}
			p.acceptPunct(".")
		case p.startsTerm():
			triples, err := p.parseTriplesBlock()
			if err != nil {
				return nil, err
			}
			for _, t := range triples {
				out = append(out, quadPattern{triplePattern: t})
			}
		default:
			return nil, p.unexpected(`triple or "}"`)
		}
	}
	return out, nil
}
