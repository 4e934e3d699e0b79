// Package rdfgraph projects engine task output into an RDF statement set
// and serializes it as RDF/XML, N-Quads, JSON-LD or Turtle.
//
// Task output is a JSON array of records:
//
//	[{"__record_id": "\"urn:1\"",
//	  "__record_data": [{"http://example/title": "Hello"}, ...]}]
//
// Each record id becomes a subject, each key of each "__record_data" object a
// predicate. String values that parse as absolute IRIs become IRI objects,
// everything else a plain literal.
package rdfgraph

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/knakk/rdf"
	"go.uber.org/zap"

	"github.com/teranos/tpu/errors"
	"github.com/teranos/tpu/logger"
)

// RDFType is the rdf:type predicate
const RDFType = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

const (
	recordIDField   = "__record_id"
	recordDataField = "__record_data"
	typeKeySuffix   = "rdf-syntax-ns#type"
)

// Value is the object of a statement: IRI or Literal
type Value interface {
	String() string
	isValue()
}

// IRI is an absolute resource identifier
type IRI string

func (i IRI) String() string { return string(i) }
func (IRI) isValue()         {}

// Literal is a plain string literal
type Literal string

func (l Literal) String() string { return string(l) }
func (Literal) isValue()         {}

// Statement is one subject/predicate/object triple
type Statement struct {
	Subject   IRI
	Predicate IRI
	Object    Value
}

// Graph is the statement set projected from one task output. Statements
// keep document order and hold no duplicates.
type Graph struct {
	// Name is the named-graph IRI used as quad context, empty for the default graph
	Name string
	// Statements in first-seen order
	Statements []Statement
	// Unhandled counts fields skipped because of their value shape
	Unhandled int

	seen map[Statement]struct{}
}

// NewGraph creates an empty graph with the given name
func NewGraph(name string) *Graph {
	return &Graph{Name: name, seen: make(map[Statement]struct{})}
}

// Add appends s unless an equal statement is already present.
// Reports whether s was added.
func (g *Graph) Add(s Statement) bool {
	if g.seen == nil {
		g.seen = make(map[Statement]struct{})
	}
	if _, ok := g.seen[s]; ok {
		return false
	}
	g.seen[s] = struct{}{}
	g.Statements = append(g.Statements, s)
	return true
}

// Len returns the number of statements
func (g *Graph) Len() int {
	return len(g.Statements)
}

// Empty reports whether the graph holds no statements
func (g *Graph) Empty() bool {
	return len(g.Statements) == 0
}

// Project converts a task output record array into a Graph named graphName.
// Empty output yields an empty graph. Records without an id or with a
// "__record_data" that is not an array fail with ErrMalformedResponse.
func Project(records []byte, graphName string, log *zap.SugaredLogger) (*Graph, error) {
	log = logger.OrNop(log)
	g := NewGraph(graphName)

	records = bytes.TrimSpace(records)
	if len(records) == 0 {
		return g, nil
	}
	if records[0] != '[' {
		return nil, errors.NewMalformedResponseError("task output is not a JSON array")
	}

	var (
		index   int
		projErr error
	)
	_, err := jsonparser.ArrayEach(records, func(record []byte, dataType jsonparser.ValueType, _ int, _ error) {
		index++
		if projErr != nil {
			return
		}
		if dataType != jsonparser.Object {
			projErr = errors.NewMalformedResponseError("record %d is not an object", index)
			return
		}
		projErr = projectRecord(g, record, index, log)
	})
	if projErr != nil {
		return nil, projErr
	}
	if err != nil {
		return nil, errors.NewMalformedResponseError("task output is not a JSON array: %s", err)
	}

	log.Debugw("Projected task output",
		logger.FieldRecords, index,
		logger.FieldStatements, g.Len(),
		"unhandled", g.Unhandled)
	return g, nil
}

func projectRecord(g *Graph, record []byte, index int, log *zap.SugaredLogger) error {
	rawID, err := jsonparser.GetString(record, recordIDField)
	if err != nil {
		return errors.NewMalformedResponseError("record %d has no %s", index, recordIDField)
	}
	subject, ok := parseIRI(rawID)
	if !ok {
		return errors.NewMalformedResponseError("record %d: id %q is not an IRI", index, stripQuotes(rawID))
	}

	data, dataType, _, err := jsonparser.Get(record, recordDataField)
	if err != nil || dataType != jsonparser.Array {
		return errors.NewMalformedResponseError("record %s: %s is not an array", subject, recordDataField)
	}

	var fieldErr error
	_, err = jsonparser.ArrayEach(data, func(triple []byte, dataType jsonparser.ValueType, _ int, _ error) {
		if fieldErr != nil {
			return
		}
		if dataType != jsonparser.Object {
			g.Unhandled++
			log.Debugw("Unhandled value type", "subject", subject, "type", dataType.String())
			return
		}
		fieldErr = jsonparser.ObjectEach(triple, func(key, value []byte, dataType jsonparser.ValueType, _ int) error {
			predicate, err := jsonparser.ParseString(key)
			if err != nil {
				return errors.NewMalformedResponseError("record %s: undecodable key", subject)
			}
			projectField(g, subject, predicate, value, dataType, log)
			return nil
		})
	})
	if fieldErr != nil {
		return fieldErr
	}
	if err != nil {
		return errors.NewMalformedResponseError("record %s: %s", subject, err)
	}
	return nil
}

// projectField emits the statements for one key/value pair
func projectField(g *Graph, subject IRI, key string, value []byte, dataType jsonparser.ValueType, log *zap.SugaredLogger) {
	if strings.HasSuffix(key, typeKeySuffix) {
		class, ok := stringIRI(value, dataType)
		if !ok {
			g.Unhandled++
			log.Debugw("Unhandled rdf:type value", "subject", subject, "type", dataType.String())
			return
		}
		g.Add(Statement{Subject: subject, Predicate: RDFType, Object: class})
		return
	}

	predicate, ok := parseIRI(key)
	if !ok {
		g.Unhandled++
		log.Debugw("Predicate is not an IRI", "subject", subject, "predicate", key)
		return
	}

	switch dataType {
	case jsonparser.String:
		object, err := objectValue(value)
		if err != nil {
			g.Unhandled++
			return
		}
		g.Add(Statement{Subject: subject, Predicate: predicate, Object: object})
	case jsonparser.Array:
		jsonparser.ArrayEach(value, func(element []byte, dataType jsonparser.ValueType, _ int, _ error) {
			if dataType != jsonparser.String {
				g.Unhandled++
				log.Debugw("Unhandled array element", "subject", subject, "predicate", predicate, "type", dataType.String())
				return
			}
			object, err := objectValue(element)
			if err != nil {
				g.Unhandled++
				return
			}
			g.Add(Statement{Subject: subject, Predicate: predicate, Object: object})
		})
	default:
		g.Unhandled++
		log.Debugw("Unhandled value type", "subject", subject, "predicate", predicate, "type", dataType.String())
	}
}

// objectValue decodes a raw JSON string and applies the IRI-else-literal rule
func objectValue(raw []byte) (Value, error) {
	s, err := jsonparser.ParseString(raw)
	if err != nil {
		return nil, err
	}
	if iri, ok := parseIRI(s); ok {
		return iri, nil
	}
	return Literal(stripQuotes(s)), nil
}

func stringIRI(raw []byte, dataType jsonparser.ValueType) (IRI, bool) {
	if dataType != jsonparser.String {
		return "", false
	}
	s, err := jsonparser.ParseString(raw)
	if err != nil {
		return "", false
	}
	return parseIRI(s)
}

// parseIRI strips quotes and accepts s when it is an absolute URL that is
// also a valid IRI term.
func parseIRI(s string) (IRI, bool) {
	s = stripQuotes(s)
	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() {
		return "", false
	}
	if _, err := rdf.NewIRI(s); err != nil {
		return "", false
	}
	return IRI(s), true
}

func stripQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, "")
}
