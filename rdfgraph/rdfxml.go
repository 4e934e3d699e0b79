package rdfgraph

import (
	"bufio"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/teranos/tpu/errors"
)

const rdfNS = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"

// qname is a predicate split into namespace and local name
type qname struct {
	ns    string
	local string
}

// splitPredicate splits an IRI after its last '#' or '/' (or ':' for URNs)
// so that the remainder is a valid XML local name.
func splitPredicate(iri string) (qname, bool) {
	i := strings.LastIndexAny(iri, "#/:")
	if i < 0 || i == len(iri)-1 {
		return qname{}, false
	}
	local := iri[i+1:]
	if !isNCName(local) {
		return qname{}, false
	}
	return qname{ns: iri[:i+1], local: local}, true
}

func isNCName(s string) bool {
	for i, r := range s {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && (r == '-' || r == '.' || unicode.IsDigit(r)):
		default:
			return false
		}
	}
	return s != ""
}

// writeRDFXML writes one rdf:Description per run of statements sharing a subject
func (g *Graph) writeRDFXML(w io.Writer) error {
	prefixes := map[string]string{rdfNS: "rdf"}
	var order []string
	names := make([]qname, len(g.Statements))
	for i, s := range g.Statements {
		q, ok := splitPredicate(string(s.Predicate))
		if !ok {
			return errors.Wrapf(errors.ErrInvalidRequest, "predicate %s cannot be written as RDF/XML", s.Predicate)
		}
		if _, known := prefixes[q.ns]; !known {
			prefixes[q.ns] = fmt.Sprintf("ns%d", len(order))
			order = append(order, q.ns)
		}
		names[i] = q
	}

	bw := bufio.NewWriter(w)
	bw.WriteString(xml.Header)
	bw.WriteString(`<rdf:RDF xmlns:rdf="` + rdfNS + `"`)
	for _, ns := range order {
		bw.WriteString("\n\txmlns:" + prefixes[ns] + `="`)
		xml.EscapeText(bw, []byte(ns))
		bw.WriteString(`"`)
	}
	bw.WriteString(">\n")

	var current IRI
	for i, s := range g.Statements {
		if i == 0 || s.Subject != current {
			if i > 0 {
				bw.WriteString("\t</rdf:Description>\n")
			}
			current = s.Subject
			bw.WriteString("\t<rdf:Description rdf:about=\"")
			xml.EscapeText(bw, []byte(s.Subject))
			bw.WriteString("\">\n")
		}

		tag := prefixes[names[i].ns] + ":" + names[i].local
		switch o := s.Object.(type) {
		case IRI:
			bw.WriteString("\t\t<" + tag + ` rdf:resource="`)
			xml.EscapeText(bw, []byte(o))
			bw.WriteString("\"/>\n")
		case Literal:
			bw.WriteString("\t\t<" + tag + ">")
			xml.EscapeText(bw, []byte(o))
			bw.WriteString("</" + tag + ">\n")
		}
	}
	if len(g.Statements) > 0 {
		bw.WriteString("\t</rdf:Description>\n")
	}
	bw.WriteString("</rdf:RDF>\n")

	return errors.Wrap(bw.Flush(), "failed to write RDF/XML")
}
