package sparql

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/cayleygraph/quad"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/quadkv/graph"
)

const ex = "http://example.org/"

const seedData = `PREFIX ex: <http://example.org/>
INSERT DATA {
  ex:alice ex:name "Alice" ; ex:age 30 ; ex:knows ex:bob .
  ex:bob ex:name "Bob" ; ex:age 25 .
  ex:carol ex:name "Carol"@en .
  GRAPH ex:g1 { ex:alice ex:likes ex:tea }
  GRAPH ex:g2 { ex:bob ex:likes ex:coffee }
}`

func iri(local string) quad.IRI { return quad.IRI(ex + local) }

func integer(s string) quad.Value {
	return quad.TypedString{Value: quad.String(s), Type: graph.XSDInteger}
}

func seeded(t *testing.T) *graph.Store {
	t.Helper()
	ds := graph.NewStore()
	exec(t, ds, seedData)
	require.Equal(t, 8, ds.Len())
	return ds
}

func exec(t *testing.T, ds *graph.Store, text string) (*Prepared, Payload) {
	t.Helper()
	prep, err := NewEngine().Query(context.Background(), text, ds)
	require.NoError(t, err)
	payload, err := prep.Execute(context.Background())
	require.NoError(t, err)
	return prep, payload
}

func selectRows(t *testing.T, ds *graph.Store, text string) []Solution {
	t.Helper()
	prep, payload := exec(t, ds, "PREFIX ex: <http://example.org/>\n"+text)
	require.Equal(t, KindBindings, prep.Kind())
	return slices.Collect(payload.Bindings)
}

func column(rows []Solution, name string) []quad.Value {
	out := make([]quad.Value, len(rows))
	for i, row := range rows {
		out[i] = row[name]
	}
	return out
}

func TestSelect_BasicPatternAndOrder(t *testing.T) {
	ds := seeded(t)
	rows := selectRows(t, ds, `SELECT ?name WHERE { ?p ex:name ?name } ORDER BY ?name`)
	assert.Equal(t, []quad.Value{
		quad.String("Alice"),
		quad.String("Bob"),
		quad.LangString{Value: "Carol", Lang: "en"},
	}, column(rows, "name"))
}

func TestSelect_Variables(t *testing.T) {
	ds := seeded(t)
	prep, err := NewEngine().Query(context.Background(),
		`PREFIX ex: <http://example.org/> SELECT ?p ?n WHERE { ?p ex:name ?n }`, ds)
	require.NoError(t, err)
	assert.Equal(t, []string{"p", "n"}, prep.Variables())

	prep, err = NewEngine().Query(context.Background(),
		`PREFIX ex: <http://example.org/> SELECT * WHERE { ?p ex:name ?n . _:x ex:age ?a }`, ds)
	require.NoError(t, err)
	assert.Equal(t, []string{"p", "n", "a"}, prep.Variables(), "blank nodes are not projected")
}

func TestSelect_NumericFilter(t *testing.T) {
	ds := seeded(t)
	rows := selectRows(t, ds, `SELECT ?p WHERE { ?p ex:age ?a FILTER(?a > 26) }`)
	assert.Equal(t, []quad.Value{iri("alice")}, column(rows, "p"))
}

func TestSelect_Optional(t *testing.T) {
	ds := seeded(t)
	rows := selectRows(t, ds, `SELECT ?p ?a WHERE { ?p ex:name ?n OPTIONAL { ?p ex:age ?a } } ORDER BY ?p`)
	require.Len(t, rows, 3)
	assert.Equal(t, []quad.Value{iri("alice"), iri("bob"), iri("carol")}, column(rows, "p"))
	assert.Equal(t, integer("30"), rows[0]["a"])
	assert.Equal(t, integer("25"), rows[1]["a"])
	_, bound := rows[2]["a"]
	assert.False(t, bound)
}

func TestSelect_OptionalWithBoundFilter(t *testing.T) {
	ds := seeded(t)
	rows := selectRows(t, ds, `SELECT ?p WHERE { ?p ex:name ?n OPTIONAL { ?p ex:age ?a } FILTER(!BOUND(?a)) }`)
	assert.Equal(t, []quad.Value{iri("carol")}, column(rows, "p"))
}

func TestSelect_Union(t *testing.T) {
	ds := seeded(t)
	rows := selectRows(t, ds, `SELECT ?x WHERE { { ?x ex:age 30 } UNION { ?x ex:age 25 } }`)
	assert.ElementsMatch(t, []quad.Value{iri("alice"), iri("bob")}, column(rows, "x"))
}

func TestSelect_Minus(t *testing.T) {
	ds := seeded(t)
	rows := selectRows(t, ds, `SELECT ?p WHERE { ?p ex:name ?n MINUS { ?p ex:age ?a } }`)
	assert.Equal(t, []quad.Value{iri("carol")}, column(rows, "p"))
}

func TestSelect_BindArithmetic(t *testing.T) {
	ds := seeded(t)
	rows := selectRows(t, ds, `SELECT ?p ?older WHERE { ?p ex:age ?a BIND(?a + 1 AS ?older) } ORDER BY ?a`)
	require.Len(t, rows, 2)
	assert.Equal(t, iri("bob"), rows[0]["p"])
	assert.Equal(t, integer("26"), rows[0]["older"])
	assert.Equal(t, integer("31"), rows[1]["older"])
}

func TestSelect_Values(t *testing.T) {
	ds := seeded(t)
	rows := selectRows(t, ds, `SELECT ?n WHERE { VALUES ?p { ex:bob } ?p ex:name ?n }`)
	assert.Equal(t, []quad.Value{quad.String("Bob")}, column(rows, "n"))
}

func TestSelect_GraphPatterns(t *testing.T) {
	ds := seeded(t)

	rows := selectRows(t, ds, `SELECT ?g ?o WHERE { GRAPH ?g { ?s ex:likes ?o } } ORDER BY ?g`)
	assert.Equal(t, []quad.Value{iri("g1"), iri("g2")}, column(rows, "g"))
	assert.Equal(t, []quad.Value{iri("tea"), iri("coffee")}, column(rows, "o"))

	rows = selectRows(t, ds, `SELECT ?o WHERE { GRAPH ex:g1 { ?s ex:likes ?o } }`)
	assert.Equal(t, []quad.Value{iri("tea")}, column(rows, "o"))

	rows = selectRows(t, ds, `SELECT ?o WHERE { ?s ex:likes ?o }`)
	assert.Empty(t, rows, "default graph excludes named graphs")
}

func TestSelect_StringFunctions(t *testing.T) {
	ds := seeded(t)

	rows := selectRows(t, ds, `SELECT ?n WHERE { ?p ex:name ?n FILTER regex(?n, "^a", "i") }`)
	assert.Equal(t, []quad.Value{quad.String("Alice")}, column(rows, "n"))

	rows = selectRows(t, ds, `SELECT ?p WHERE { ?p ex:name ?n FILTER(LANG(?n) = "en") }`)
	assert.Equal(t, []quad.Value{iri("carol")}, column(rows, "p"))

	rows = selectRows(t, ds, `SELECT (STRLEN(?n) AS ?len) (UCASE(?n) AS ?up) WHERE { ex:alice ex:name ?n }`)
	require.Len(t, rows, 1)
	assert.Equal(t, integer("5"), rows[0]["len"])
	assert.Equal(t, quad.String("ALICE"), rows[0]["up"])

	rows = selectRows(t, ds, `SELECT ?p WHERE { ?p ex:name ?n FILTER(?n IN ("Bob", "Nobody")) }`)
	assert.Equal(t, []quad.Value{iri("bob")}, column(rows, "p"))
}

func TestLanguageTagCaseIsKept(t *testing.T) {
	ds := graph.NewStore()
	exec(t, ds, `PREFIX ex: <http://example.org/> INSERT DATA { ex:s ex:label "colour"@en-GB }`)
	assert.True(t, ds.Has(quad.Quad{
		Subject:   iri("s"),
		Predicate: iri("label"),
		Object:    quad.LangString{Value: "colour", Lang: "en-GB"},
	}))

	rows := selectRows(t, ds, `SELECT ?l WHERE { ?s ex:label ?l FILTER(?l = "colour"@en-gb) }`)
	assert.Len(t, rows, 1)

	rows = selectRows(t, ds, `SELECT ?l WHERE { ?s ex:label ?l FILTER(langMatches(lang(?l), "EN")) }`)
	assert.Len(t, rows, 1)

	rows = selectRows(t, ds, `SELECT (lang(?l) AS ?tag) WHERE { ?s ex:label ?l }`)
	assert.Equal(t, []quad.Value{quad.String("en-GB")}, column(rows, "tag"))
}

func TestSelect_DistinctLimitOffset(t *testing.T) {
	ds := seeded(t)

	rows := selectRows(t, ds, `SELECT DISTINCT ?g WHERE { GRAPH ?g { ?s ?p ?o } }`)
	assert.Len(t, rows, 2)

	rows = selectRows(t, ds, `SELECT ?n WHERE { ?p ex:name ?n } ORDER BY ?n LIMIT 1 OFFSET 1`)
	assert.Equal(t, []quad.Value{quad.String("Bob")}, column(rows, "n"))

	rows = selectRows(t, ds, `SELECT ?n WHERE { ?p ex:name ?n } ORDER BY DESC(?n) LIMIT 1`)
	assert.Equal(t, []quad.Value{quad.LangString{Value: "Carol", Lang: "en"}}, column(rows, "n"))
}

func TestAsk(t *testing.T) {
	ds := seeded(t)

	prep, payload := exec(t, ds, `PREFIX ex: <http://example.org/> ASK { ex:alice ex:knows ex:bob }`)
	assert.Equal(t, KindBoolean, prep.Kind())
	assert.True(t, payload.Boolean)

	_, payload = exec(t, ds, `PREFIX ex: <http://example.org/> ASK { ex:bob ex:knows ex:alice }`)
	assert.False(t, payload.Boolean)
}

func TestConstruct(t *testing.T) {
	ds := seeded(t)

	prep, payload := exec(t, ds, `PREFIX ex: <http://example.org/>
		CONSTRUCT { ?y ex:knownBy ?x } WHERE { ?x ex:knows ?y }`)
	assert.Equal(t, KindQuads, prep.Kind())
	assert.Equal(t, []quad.Quad{{Subject: iri("bob"), Predicate: iri("knownBy"), Object: iri("alice")}},
		slices.Collect(payload.Quads))

	_, payload = exec(t, ds, `PREFIX ex: <http://example.org/> CONSTRUCT WHERE { ?s ex:age ?a }`)
	assert.Len(t, slices.Collect(payload.Quads), 2)
}

func TestConstruct_BlankNodesArePerSolution(t *testing.T) {
	ds := seeded(t)
	_, payload := exec(t, ds, `PREFIX ex: <http://example.org/>
		CONSTRUCT { _:b ex:about ?p } WHERE { ?p ex:age ?a }`)
	quads := slices.Collect(payload.Quads)
	require.Len(t, quads, 2)
	assert.IsType(t, quad.BNode(""), quads[0].Subject)
	assert.NotEqual(t, quads[0].Subject, quads[1].Subject)
}

func TestDescribe(t *testing.T) {
	ds := seeded(t)
	prep, payload := exec(t, ds, `PREFIX ex: <http://example.org/> DESCRIBE ex:bob`)
	assert.Equal(t, KindQuads, prep.Kind())
	quads := slices.Collect(payload.Quads)
	assert.Len(t, quads, 2)
	for _, q := range quads {
		assert.Equal(t, iri("bob"), q.Subject)
	}
}

func TestUpdate_InsertAndDeleteData(t *testing.T) {
	ds := seeded(t)

	prep, _ := exec(t, ds, `PREFIX ex: <http://example.org/> DELETE DATA { ex:bob ex:age 25 }`)
	assert.Equal(t, KindVoid, prep.Kind())
	assert.False(t, ds.Has(quad.Quad{Subject: iri("bob"), Predicate: iri("age"), Object: integer("25")}))
	assert.Equal(t, 7, ds.Len())

	exec(t, ds, `PREFIX ex: <http://example.org/>
		INSERT DATA { ex:bob ex:age 26 } ;
		DELETE DATA { GRAPH ex:g2 { ex:bob ex:likes ex:coffee } }`)
	assert.True(t, ds.Has(quad.Quad{Subject: iri("bob"), Predicate: iri("age"), Object: integer("26")}))
	assert.False(t, ds.Has(quad.Quad{Subject: iri("bob"), Predicate: iri("likes"), Object: iri("coffee"), Label: iri("g2")}))
}

func TestUpdate_InsertDataBlankNode(t *testing.T) {
	ds := graph.NewStore()
	exec(t, ds, `INSERT DATA { _:b <http://example.org/p> "x" }`)
	quads := ds.Quads()
	require.Len(t, quads, 1)
	assert.IsType(t, quad.BNode(""), quads[0].Subject)
}

func TestUpdate_DeleteWhere(t *testing.T) {
	ds := seeded(t)
	exec(t, ds, `PREFIX ex: <http://example.org/> DELETE WHERE { GRAPH ?g { ?s ex:likes ?o } }`)
	assert.Empty(t, ds.Graphs())
	assert.Equal(t, 6, ds.Len())
}

func TestUpdate_ModifyWith(t *testing.T) {
	ds := seeded(t)
	exec(t, ds, `PREFIX ex: <http://example.org/>
		WITH ex:g1
		DELETE { ?s ex:likes ?o }
		INSERT { ?s ex:likes ex:water }
		WHERE { ?s ex:likes ?o }`)
	assert.True(t, ds.Has(quad.Quad{Subject: iri("alice"), Predicate: iri("likes"), Object: iri("water"), Label: iri("g1")}))
	assert.False(t, ds.Has(quad.Quad{Subject: iri("alice"), Predicate: iri("likes"), Object: iri("tea"), Label: iri("g1")}))
	assert.True(t, ds.Has(quad.Quad{Subject: iri("bob"), Predicate: iri("likes"), Object: iri("coffee"), Label: iri("g2")}),
		"other graphs are untouched")
}

func TestUpdate_InsertWhere(t *testing.T) {
	ds := seeded(t)
	exec(t, ds, `PREFIX ex: <http://example.org/>
		INSERT { ?p ex:adult true } WHERE { ?p ex:age ?a FILTER(?a >= 18) }`)
	rows := selectRows(t, ds, `SELECT ?p WHERE { ?p ex:adult true } ORDER BY ?p`)
	assert.Equal(t, []quad.Value{iri("alice"), iri("bob")}, column(rows, "p"))
}

func TestUpdate_ClearAndDrop(t *testing.T) {
	ds := seeded(t)
	exec(t, ds, `CLEAR GRAPH <http://example.org/g1>`)
	assert.Equal(t, []quad.Value{iri("g2")}, ds.Graphs())

	exec(t, ds, `CLEAR DEFAULT`)
	assert.Equal(t, 1, ds.Len())

	exec(t, ds, `CREATE GRAPH <http://example.org/g3> ; DROP NAMED`)
	assert.Equal(t, 0, ds.Len())

	ds = seeded(t)
	exec(t, ds, `DROP ALL`)
	assert.Equal(t, 0, ds.Len())
}

func TestSyntaxErrorPosition(t *testing.T) {
	_, err := NewEngine().Query(context.Background(), "SELECT ?x\nWHERE { ?x <p> }", graph.NewStore())
	var syn *SyntaxError
	require.ErrorAs(t, err, &syn)
	assert.Equal(t, 2, syn.Line)
	assert.Equal(t, 16, syn.Column)
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"undefined prefix":  `SELECT ?x WHERE { ?x ex:p ?y }`,
		"unterminated":      `SELECT ?x WHERE { ?x <p> "abc }`,
		"missing where":     `SELECT ?x`,
		"trailing garbage":  `ASK { ?s ?p ?o } nonsense`,
		"data with var":     `INSERT DATA { ?s <p> <o> }`,
		"unknown function":  `SELECT ?x WHERE { ?x <p> ?y FILTER(frobnicate(?y)) }`,
		"empty":             ``,
		"bound needs a var": `ASK { ?s ?p ?o FILTER(BOUND("x")) }`,
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewEngine().Query(context.Background(), text, graph.NewStore())
			var syn *SyntaxError
			assert.ErrorAs(t, err, &syn)
		})
	}
}

func TestUnsupportedOperations(t *testing.T) {
	for _, text := range []string{
		`LOAD <http://example.org/data.nq>`,
		`SELECT (COUNT(*) AS ?n) WHERE { ?s ?p ?o }`,
		`SELECT ?s WHERE { ?s <p>/<q> ?o }`,
		`SELECT ?s WHERE { ?s ?p ?o } GROUP BY ?s`,
	} {
		_, err := NewEngine().Query(context.Background(), text, graph.NewStore())
		assert.True(t, errors.Is(err, ErrUnsupported), "%s: %v", text, err)
	}
}

func TestCanceledContext(t *testing.T) {
	ds := seeded(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEngine().Query(ctx, `ASK { ?s ?p ?o }`, ds)
	assert.ErrorIs(t, err, context.Canceled)

	prep, err := NewEngine().Query(context.Background(), `DELETE WHERE { ?s ?p ?o }`, ds)
	require.NoError(t, err)
	_, err = prep.Execute(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 8, ds.Len())
}

func TestBaseResolution(t *testing.T) {
	ds := graph.NewStore()
	exec(t, ds, `BASE <http://example.org/> INSERT DATA { <alice> <name> "Alice" }`)
	assert.True(t, ds.Has(quad.Quad{Subject: iri("alice"), Predicate: iri("name"), Object: quad.String("Alice")}))
}
