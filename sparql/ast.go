package sparql

import "github.com/cayleygraph/quad"

// node is a position in a triple pattern: a constant term or a variable.
type node struct {
	value quad.Value
	name  string
}

func constNode(v quad.Value) node { return node{value: v} }

func varNode(name string) node { return node{name: name} }

func (n node) isVar() bool { return n.value == nil && n.name != "" }

func (n node) isZero() bool { return n.value == nil && n.name == "" }

type triplePattern struct {
	s, p, o node
}

// quadPattern is a template or data triple scoped to a graph. A zero
// graph node means the default graph.
type quadPattern struct {
	triplePattern
	g node
}

type element interface{ element() }

type bgpElem struct{ patterns []triplePattern }

type optionalElem struct{ group *groupPattern }

type unionElem struct{ branches []*groupPattern }

type minusElem struct{ group *groupPattern }

type graphElem struct {
	graph node
	group *groupPattern
}

type bindElem struct {
	expr expression
	name string
}

type valuesElem struct {
	names []string
	rows  [][]quad.Value // nil entries are UNDEF
}

type subGroupElem struct{ group *groupPattern }

func (bgpElem) element()      {}
func (optionalElem) element() {}
func (unionElem) element()    {}
func (minusElem) element()    {}
func (graphElem) element()    {}
func (bindElem) element()     {}
func (valuesElem) element()   {}
func (subGroupElem) element() {}

type groupPattern struct {
	elements []element
	filters  []expression
}

type form int

const (
	formSelect form = iota
	formAsk
	formConstruct
	formDescribe
)

type projection struct {
	name string
	expr expression // nil for a plain variable
}

type orderCondition struct {
	expr expression
	desc bool
}

type queryAST struct {
	form       form
	distinct   bool
	reduced    bool
	star       bool
	projection []projection
	template   []triplePattern
	describe   []node
	where      *groupPattern
	orderBy    []orderCondition
	limit      int // negative means no limit
	offset     int
	vars       []string // in-scope variables in order of first appearance
}

type updateOp interface{ updateOp() }

type insertDataOp struct{ quads []quadPattern }

type deleteDataOp struct{ quads []quadPattern }

type deleteWhereOp struct{ patterns []quadPattern }

type modifyOp struct {
	with    quad.Value
	deletes []quadPattern
	inserts []quadPattern
	where   *groupPattern
}

type graphTarget int

const (
	targetGraph graphTarget = iota
	targetDefault
	targetNamed
	targetAll
)

type clearOp struct {
	target graphTarget
	graph  quad.Value
	silent bool
}

type createOp struct{ graph quad.Value }

func (insertDataOp) updateOp()  {}
func (deleteDataOp) updateOp()  {}
func (deleteWhereOp) updateOp() {}
func (modifyOp) updateOp()      {}
func (clearOp) updateOp()       {}
func (createOp) updateOp()      {}

type updateAST struct {
	ops []updateOp
}
