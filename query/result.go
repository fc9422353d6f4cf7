package query

import (
	"github.com/cayleygraph/quad"
)

// ResultType names the variant of a Result.
type ResultType string

const (
	TypeBindings ResultType = "bindings"
	TypeBoolean  ResultType = "boolean"
	TypeQuads    ResultType = "quads"
	TypeVoid     ResultType = "void"
)

// Result is one of *BindingsResult, *BooleanResult, *QuadsResult or
// *VoidResult.
type Result interface {
	Type() ResultType
	sealed()
}

// Binding maps variable names, without the leading "?", to terms.
// Unbound variables are absent.
type Binding map[string]quad.Value

// BindingsResult is produced by SELECT.
type BindingsResult struct {
	Vars     []string
	Bindings *Stream[Binding]
}

// BooleanResult is produced by ASK.
type BooleanResult struct {
	Value bool
}

// QuadsResult is produced by CONSTRUCT and DESCRIBE.
type QuadsResult struct {
	Quads *Stream[quad.Quad]
}

// VoidResult is produced by updates.
type VoidResult struct{}

func (*BindingsResult) Type() ResultType { return TypeBindings }
func (*BooleanResult) Type() ResultType  { return TypeBoolean }
func (*QuadsResult) Type() ResultType    { return TypeQuads }
func (*VoidResult) Type() ResultType     { return TypeVoid }

func (*BindingsResult) sealed() {}
func (*BooleanResult) sealed()  {}
func (*QuadsResult) sealed()    {}
func (*VoidResult) sealed()     {}
