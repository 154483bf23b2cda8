package workflow

import (
	"fmt"
	"log/slog"

	"dario.cat/mergo"
)

// DefaultsProvider supplies per-type configuration defaults applied during
// graph normalization. It is a collaborator, not part of the engine: the
// engine never validates configuration beyond merging what it is given.
type DefaultsProvider interface {
	Defaults(nodeType string) map[string]any
}

// Normalize prepares a raw graph for execution. It fails only on a graph with
// zero nodes; everything else is repaired in place:
//   - edges referencing unknown node ids are dropped with a warning,
//   - blank edge ids get the synthetic id "source-target",
//   - per-type defaults are merged under each node's parameters (explicit
//     values win over defaults).
//
// Missing or incomplete configuration never blocks execution; executors run
// with whatever parameters are present.
func Normalize(g Graph, defaults DefaultsProvider) (Graph, error) {
	if len(g.Nodes) == 0 {
		return Graph{}, fmt.Errorf("graph has no nodes")
	}

	known := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		known[n.ID] = true
	}

	edges := make([]Edge, 0, len(g.Edges))
	for _, e := range g.Edges {
		if !known[e.Source] || !known[e.Target] {
			slog.Warn("Dropping edge with unknown endpoint", "edge", e.ID, "source", e.Source, "target", e.Target)
			continue
		}
		if e.ID == "" {
			e.ID = e.Source + "-" + e.Target
		}
		edges = append(edges, e)
	}

	nodes := make([]Node, len(g.Nodes))
	copy(nodes, g.Nodes)
	if defaults != nil {
		for i := range nodes {
			d := defaults.Defaults(nodes[i].Type)
			if len(d) == 0 {
				continue
			}
			params := nodes[i].Data.Parameters
			if params == nil {
				params = make(map[string]any, len(d))
			}
			if err := mergo.Merge(&params, d); err != nil {
				slog.Warn("Could not merge defaults for node", "node", nodes[i].ID, "type", nodes[i].Type, "error", err)
			}
			nodes[i].Data.Parameters = params
		}
	}

	return Graph{Nodes: nodes, Edges: edges}, nil
}
