package graph

import (
	"strconv"
	"time"

	"github.com/cayleygraph/quad"
)

// XSD datatype IRIs used for canonical literals.
const (
	XSDNamespace = "http://www.w3.org/2001/XMLSchema#"

	XSDString   = quad.IRI(XSDNamespace + "string")
	XSDBoolean  = quad.IRI(XSDNamespace + "boolean")
	XSDInteger  = quad.IRI(XSDNamespace + "integer")
	XSDDecimal  = quad.IRI(XSDNamespace + "decimal")
	XSDDouble   = quad.IRI(XSDNamespace + "double")
	XSDDateTime = quad.IRI(XSDNamespace + "dateTime")
)

// Canonical converts native literal values into typed strings and folds an
// explicit xsd:string literal into the equivalent simple literal. Every
// other term is unchanged. A nil value stays nil.
func Canonical(v quad.Value) quad.Value {
	switch t := v.(type) {
	case quad.Int:
		return quad.TypedString{Value: quad.String(strconv.FormatInt(int64(t), 10)), Type: XSDInteger}
	case quad.Float:
		return quad.TypedString{Value: quad.String(strconv.FormatFloat(float64(t), 'E', -1, 64)), Type: XSDDouble}
	case quad.Bool:
		return quad.TypedString{Value: quad.String(strconv.FormatBool(bool(t))), Type: XSDBoolean}
	case quad.Time:
		return quad.TypedString{Value: quad.String(time.Time(t).UTC().Format(time.RFC3339Nano)), Type: XSDDateTime}
	case quad.TypedString:
		if t.Type == XSDString {
			return t.Value
		}
		return v
	default:
		return v
	}
}

// CanonicalQuad canonicalizes all four components of q.
func CanonicalQuad(q quad.Quad) quad.Quad {
	return quad.Quad{
		Subject:   Canonical(q.Subject),
		Predicate: Canonical(q.Predicate),
		Object:    Canonical(q.Object),
		Label:     Canonical(q.Label),
	}
}

// IsLiteral reports whether v is a literal term.
func IsLiteral(v quad.Value) bool {
	switch v.(type) {
	case quad.String, quad.TypedString, quad.LangString,
		quad.Int, quad.Float, quad.Bool, quad.Time:
		return true
	}
	return false
}
