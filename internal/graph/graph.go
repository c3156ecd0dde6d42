// Package graph builds the typed entity multigraph from analyzed documents.
package graph

import (
	"sort"

	"github.com/rcliao/discovery-agent/internal/model"
)

// Node types.
const (
	TypeMaterial = "material"
	TypeProperty = "property"
	TypeMethod   = "method"
)

// Relation kinds.
const (
	RelHasProperty = "has_property"
	RelStudies     = "studies"
)

// Node is an entity in the knowledge graph. Nodes are deduplicated by name;
// repeated mentions increment Frequency and extend the supporting-document
// set.
type Node struct {
	Name      string
	Type      string
	Frequency int
	Docs      map[string]bool
}

// Edge is one directed relation occurrence. The same (source, target) pair
// may carry many edges; multiplicity is meaningful for pattern mining.
type Edge struct {
	Source    string
	Target    string
	Relation  string
	DocID     string
	Relevance float64
}

// Graph is an arena of nodes keyed by entity name plus an edge list.
type Graph struct {
	Nodes map[string]*Node
	Edges []Edge
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{Nodes: make(map[string]*Node)}
}

// Build rebuilds the graph from the given documents. Prior state is
// discarded; a build is never incremental.
func (g *Graph) Build(docs []model.Document) {
	g.Nodes = make(map[string]*Node)
	g.Edges = nil

	for _, doc := range docs {
		for _, m := range doc.Materials {
			g.upsert(m, TypeMaterial, doc.ID)
		}
		for _, p := range doc.Properties {
			g.upsert(p, TypeProperty, doc.ID)
		}
		for _, m := range doc.Methods {
			g.upsert(m, TypeMethod, doc.ID)
		}

		// material -> property for entities studied together
		for _, m := range doc.Materials {
			for _, p := range doc.Properties {
				g.Edges = append(g.Edges, Edge{
					Source:    m,
					Target:    p,
					Relation:  RelHasProperty,
					DocID:     doc.ID,
					Relevance: doc.Relevance,
				})
			}
		}

		// method -> material for methods applied to materials
		for _, meth := range doc.Methods {
			for _, m := range doc.Materials {
				g.Edges = append(g.Edges, Edge{
					Source:    meth,
					Target:    m,
					Relation:  RelStudies,
					DocID:     doc.ID,
					Relevance: doc.Relevance,
				})
			}
		}
	}
}

func (g *Graph) upsert(name, nodeType, docID string) {
	n, ok := g.Nodes[name]
	if !ok {
		n = &Node{Name: name, Type: nodeType, Docs: make(map[string]bool)}
		g.Nodes[name] = n
	}
	n.Frequency++
	n.Docs[docID] = true
}

// HasEdge reports whether at least one edge connects source to target with
// the given relation.
func (g *Graph) HasEdge(source, target, relation string) bool {
	for _, e := range g.Edges {
		if e.Source == source && e.Target == target && e.Relation == relation {
			return true
		}
	}
	return false
}

// NodesByType returns node names of the given type sorted by frequency
// descending, ties broken by name for determinism.
func (g *Graph) NodesByType(nodeType string) []string {
	var names []string
	for name, n := range g.Nodes {
		if n.Type == nodeType {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		fi, fj := g.Nodes[names[i]].Frequency, g.Nodes[names[j]].Frequency
		if fi != fj {
			return fi > fj
		}
		return names[i] < names[j]
	})
	return names
}

// Degree counts edges touching the named node in either direction.
func (g *Graph) Degree(name string) int {
	d := 0
	for _, e := range g.Edges {
		if e.Source == name {
			d++
		}
		if e.Target == name {
			d++
		}
	}
	return d
}

// ConnectedNode pairs a node with its degree in Stats output.
type ConnectedNode struct {
	Node        string `json:"node"`
	Connections int    `json:"connections"`
	Type        string `json:"type"`
}

// Stats summarizes the graph. Computed on demand, never cached.
type Stats struct {
	TotalNodes    int             `json:"total_nodes"`
	TotalEdges    int             `json:"total_edges"`
	Materials     int             `json:"num_materials"`
	Properties    int             `json:"num_properties"`
	Methods       int             `json:"num_methods"`
	MostConnected []ConnectedNode `json:"most_connected,omitempty"`
}

// Statistics computes node and edge counts plus the top-10 nodes by degree.
func (g *Graph) Statistics() Stats {
	st := Stats{
		TotalNodes: len(g.Nodes),
		TotalEdges: len(g.Edges),
	}
	for _, n := range g.Nodes {
		switch n.Type {
		case TypeMaterial:
			st.Materials++
		case TypeProperty:
			st.Properties++
		case TypeMethod:
			st.Methods++
		}
	}

	if len(g.Nodes) == 0 {
		return st
	}

	degrees := make([]ConnectedNode, 0, len(g.Nodes))
	for name, n := range g.Nodes {
		degrees = append(degrees, ConnectedNode{
			Node:        name,
			Connections: g.Degree(name),
			Type:        n.Type,
		})
	}
	sort.Slice(degrees, func(i, j int) bool {
		if degrees[i].Connections != degrees[j].Connections {
			return degrees[i].Connections > degrees[j].Connections
		}
		return degrees[i].Node < degrees[j].Node
	})
	if len(degrees) > 10 {
		degrees = degrees[:10]
	}
	st.MostConnected = degrees
	return st
}
