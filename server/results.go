package server

import (
	"time"

	"github.com/cayleygraph/quad"

	"github.com/poiesic/quadkv/core"
	"github.com/poiesic/quadkv/graph"
	"github.com/poiesic/quadkv/query"
)

// resultsDocument is the SPARQL 1.1 Query Results JSON document.
type resultsDocument struct {
	Head    resultsHead  `json:"head"`
	Results *resultsBody `json:"results,omitempty"`
	Boolean *bool        `json:"boolean,omitempty"`
}

type resultsHead struct {
	Vars []string `json:"vars,omitempty"`
}

type resultsBody struct {
	Bindings []map[string]jsonTerm `json:"bindings"`
}

type jsonTerm struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Lang     string `json:"xml:lang,omitempty"`
	Datatype string `json:"datatype,omitempty"`
}

func bindingsDocument(res *query.BindingsResult) resultsDocument {
	body := &resultsBody{Bindings: []map[string]jsonTerm{}}
	for b := range res.Bindings.All() {
		row := make(map[string]jsonTerm, len(b))
		for name, v := range b {
			row[name] = termJSON(v)
		}
		body.Bindings = append(body.Bindings, row)
	}
	return resultsDocument{Head: resultsHead{Vars: res.Vars}, Results: body}
}

func termJSON(v quad.Value) jsonTerm {
	switch t := graph.Canonical(v).(type) {
	case quad.IRI:
		return jsonTerm{Type: "uri", Value: string(t)}
	case quad.BNode:
		return jsonTerm{Type: "bnode", Value: string(t)}
	case quad.String:
		return jsonTerm{Type: "literal", Value: string(t)}
	case quad.LangString:
		return jsonTerm{Type: "literal", Value: string(t.Value), Lang: t.Lang}
	case quad.TypedString:
		return jsonTerm{Type: "literal", Value: string(t.Value), Datatype: string(t.Type)}
	}
	return jsonTerm{Type: "literal", Value: v.String()}
}

type commitJSON struct {
	Key       string     `json:"key"`
	Digest    string     `json:"digest"`
	Size      int        `json:"size"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

func commitDocument(c *core.Commit) commitJSON {
	out := commitJSON{Key: c.Key.String(), Digest: c.Digest, Size: c.Size}
	if !c.ExpiresAt.IsZero() {
		out.ExpiresAt = &c.ExpiresAt
	}
	return out
}
