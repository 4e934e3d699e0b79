package rdfgraph

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/knakk/rdf"
	"github.com/piprate/json-gold/ld"

	"github.com/teranos/tpu/errors"
)

// Format is an RDF serialization, named by its configuration token
type Format string

const (
	FormatXML    Format = "xml"
	FormatNQuads Format = "nquads"
	FormatJSONLD Format = "jsonld"
	FormatTurtle Format = "ttl"
)

// ParseFormat maps a configuration token to a Format.
// Unknown tokens fall back to RDF/XML.
func ParseFormat(token string) Format {
	switch f := Format(strings.ToLower(strings.TrimSpace(token))); f {
	case FormatXML, FormatNQuads, FormatJSONLD, FormatTurtle:
		return f
	default:
		return FormatXML
	}
}

// Extension is the file name suffix for the format
func (f Format) Extension() string {
	return string(ParseFormat(string(f)))
}

// Serialize writes the graph to w in the given format
func (g *Graph) Serialize(w io.Writer, format Format) error {
	switch ParseFormat(string(format)) {
	case FormatNQuads:
		return g.writeNQuads(w)
	case FormatJSONLD:
		return g.writeJSONLD(w)
	case FormatTurtle:
		return g.writeTurtle(w)
	default:
		return g.writeRDFXML(w)
	}
}

// triples converts the statements to rdf terms
func (g *Graph) triples() ([]rdf.Triple, error) {
	triples := make([]rdf.Triple, 0, len(g.Statements))
	for _, s := range g.Statements {
		subj, err := rdf.NewIRI(string(s.Subject))
		if err != nil {
			return nil, errors.Wrapf(err, "subject %s", s.Subject)
		}
		pred, err := rdf.NewIRI(string(s.Predicate))
		if err != nil {
			return nil, errors.Wrapf(err, "predicate %s", s.Predicate)
		}

		var obj rdf.Object
		switch o := s.Object.(type) {
		case IRI:
			obj, err = rdf.NewIRI(string(o))
		case Literal:
			obj, err = rdf.NewLiteral(string(o))
		default:
			err = errors.Newf("unsupported object %T", s.Object)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "object of %s %s", s.Subject, s.Predicate)
		}

		triples = append(triples, rdf.Triple{Subj: subj, Pred: pred, Obj: obj})
	}
	return triples, nil
}

func (g *Graph) writeTurtle(w io.Writer) error {
	triples, err := g.triples()
	if err != nil {
		return err
	}
	enc := rdf.NewTripleEncoder(w, rdf.Turtle)
	if err := enc.EncodeAll(triples); err != nil {
		return errors.Wrap(err, "failed to encode turtle")
	}
	return errors.Wrap(enc.Close(), "failed to flush turtle")
}

// writeNQuads places every statement in the graph's named graph.
// An unnamed graph is written as plain N-Triples, which is valid N-Quads.
func (g *Graph) writeNQuads(w io.Writer) error {
	triples, err := g.triples()
	if err != nil {
		return err
	}

	if g.Name == "" {
		enc := rdf.NewTripleEncoder(w, rdf.NTriples)
		if err := enc.EncodeAll(triples); err != nil {
			return errors.Wrap(err, "failed to encode n-triples")
		}
		return errors.Wrap(enc.Close(), "failed to flush n-triples")
	}

	ctx, err := rdf.NewIRI(g.Name)
	if err != nil {
		return errors.Wrapf(errors.ErrInvalidRequest, "graph name %q is not an IRI", g.Name)
	}
	quads := make([]rdf.Quad, len(triples))
	for i, t := range triples {
		quads[i] = rdf.Quad{Triple: t, Ctx: ctx}
	}
	enc := rdf.NewQuadEncoder(w, rdf.NQuads)
	if err := enc.EncodeAll(quads); err != nil {
		return errors.Wrap(err, "failed to encode n-quads")
	}
	return errors.Wrap(enc.Close(), "failed to flush n-quads")
}

// writeJSONLD converts the N-Quads form to expanded JSON-LD
func (g *Graph) writeJSONLD(w io.Writer) error {
	var nquads bytes.Buffer
	if err := g.writeNQuads(&nquads); err != nil {
		return err
	}

	proc := ld.NewJsonLdProcessor()
	opts := ld.NewJsonLdOptions("")
	opts.Format = "application/n-quads"
	doc, err := proc.FromRDF(nquads.String(), opts)
	if err != nil {
		return errors.Wrap(err, "failed to convert to JSON-LD")
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(doc), "failed to write JSON-LD")
}
