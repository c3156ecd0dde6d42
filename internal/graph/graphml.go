package graph

import (
	"encoding/xml"
	"io"
	"sort"
	"strconv"
	"strings"
)

// GraphML interchange format. Node document sets are serialized as sorted
// lists; set ordering does not round-trip.

type graphmlDoc struct {
	XMLName xml.Name     `xml:"graphml"`
	Xmlns   string       `xml:"xmlns,attr"`
	Keys    []graphmlKey `xml:"key"`
	Graph   graphmlGraph `xml:"graph"`
}

type graphmlKey struct {
	ID   string `xml:"id,attr"`
	For  string `xml:"for,attr"`
	Name string `xml:"attr.name,attr"`
	Type string `xml:"attr.type,attr"`
}

type graphmlGraph struct {
	EdgeDefault string        `xml:"edgedefault,attr"`
	Nodes       []graphmlNode `xml:"node"`
	Edges       []graphmlEdge `xml:"edge"`
}

type graphmlNode struct {
	ID   string        `xml:"id,attr"`
	Data []graphmlData `xml:"data"`
}

type graphmlEdge struct {
	Source string        `xml:"source,attr"`
	Target string        `xml:"target,attr"`
	Data   []graphmlData `xml:"data"`
}

type graphmlData struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

// WriteGraphML serializes the graph in GraphML form for external tooling.
func (g *Graph) WriteGraphML(w io.Writer) error {
	doc := graphmlDoc{
		Xmlns: "http://graphml.graphdrawing.org/xmlns",
		Keys: []graphmlKey{
			{ID: "type", For: "node", Name: "type", Type: "string"},
			{ID: "frequency", For: "node", Name: "frequency", Type: "int"},
			{ID: "papers", For: "node", Name: "papers", Type: "string"},
			{ID: "relation", For: "edge", Name: "relation", Type: "string"},
			{ID: "paper", For: "edge", Name: "paper", Type: "string"},
			{ID: "relevance", For: "edge", Name: "relevance", Type: "double"},
		},
		Graph: graphmlGraph{EdgeDefault: "directed"},
	}

	names := make([]string, 0, len(g.Nodes))
	for name := range g.Nodes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		n := g.Nodes[name]
		docs := make([]string, 0, len(n.Docs))
		for id := range n.Docs {
			docs = append(docs, id)
		}
		sort.Strings(docs)

		doc.Graph.Nodes = append(doc.Graph.Nodes, graphmlNode{
			ID: name,
			Data: []graphmlData{
				{Key: "type", Value: n.Type},
				{Key: "frequency", Value: itoa(n.Frequency)},
				{Key: "papers", Value: strings.Join(docs, ",")},
			},
		})
	}

	for _, e := range g.Edges {
		doc.Graph.Edges = append(doc.Graph.Edges, graphmlEdge{
			Source: e.Source,
			Target: e.Target,
			Data: []graphmlData{
				{Key: "relation", Value: e.Relation},
				{Key: "paper", Value: e.DocID},
				{Key: "relevance", Value: ftoa(e.Relevance)},
			},
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return enc.Encode(doc)
}

func itoa(n int) string { return strconv.Itoa(n) }

func ftoa(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }
