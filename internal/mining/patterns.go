// Package mining extracts frequent patterns and research gaps from the
// knowledge graph.
package mining

import (
	"fmt"
	"sort"

	"github.com/rcliao/discovery-agent/internal/graph"
)

// PairCount is a co-occurring entity pair with its edge multiplicity.
type PairCount struct {
	Pair  string `json:"pair"`
	Count int    `json:"count"`
}

// EntityCount is an entity with its mention frequency.
type EntityCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// PatternReport holds the frequent co-occurrence patterns of one graph
// snapshot.
type PatternReport struct {
	MaterialPropertyPairs []PairCount   `json:"material_property_pairs"`
	MaterialMethodPairs   []PairCount   `json:"material_method_pairs"`
	TopMaterials          []EntityCount `json:"top_materials"`
	TopProperties         []EntityCount `json:"top_properties"`
	TopMethods            []EntityCount `json:"top_methods"`
}

const (
	maxPairs    = 20
	maxEntities = 15
)

// Patterns counts edge multiplicities per (source, target) pair and entity
// frequencies, keeping entries at or above minFrequency.
func Patterns(g *graph.Graph, minFrequency int) PatternReport {
	var report PatternReport

	report.MaterialPropertyPairs = countPairs(g, graph.RelHasProperty, minFrequency)
	report.MaterialMethodPairs = countPairs(g, graph.RelStudies, minFrequency)

	report.TopMaterials = topEntities(g, graph.TypeMaterial, minFrequency)
	report.TopProperties = topEntities(g, graph.TypeProperty, minFrequency)
	report.TopMethods = topEntities(g, graph.TypeMethod, minFrequency)

	return report
}

func countPairs(g *graph.Graph, relation string, minFrequency int) []PairCount {
	counts := make(map[[2]string]int)
	for _, e := range g.Edges {
		if e.Relation == relation {
			counts[[2]string{e.Source, e.Target}]++
		}
	}

	pairs := make([]PairCount, 0, len(counts))
	for pair, count := range counts {
		if count >= minFrequency {
			pairs = append(pairs, PairCount{
				Pair:  fmt.Sprintf("%s -> %s", pair[0], pair[1]),
				Count: count,
			})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].Count != pairs[j].Count {
			return pairs[i].Count > pairs[j].Count
		}
		return pairs[i].Pair < pairs[j].Pair
	})
	if len(pairs) > maxPairs {
		pairs = pairs[:maxPairs]
	}
	return pairs
}

func topEntities(g *graph.Graph, nodeType string, minFrequency int) []EntityCount {
	var entities []EntityCount
	for _, name := range g.NodesByType(nodeType) {
		if freq := g.Nodes[name].Frequency; freq >= minFrequency {
			entities = append(entities, EntityCount{Name: name, Count: freq})
		}
	}
	if len(entities) > maxEntities {
		entities = entities[:maxEntities]
	}
	return entities
}
