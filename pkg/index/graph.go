package index

import (
	"sort"

	"github.com/lankalegal/neethi/pkg/models"
)

// graph is the adjacency representation of the entity graph.
type graph struct {
	nodes map[string]models.GraphNode
	out   map[string][]models.GraphEdge
	in    map[string][]models.GraphEdge
}

func buildGraph(g models.EntityGraph) *graph {
	built := &graph{
		nodes: make(map[string]models.GraphNode, len(g.Nodes)),
		out:   make(map[string][]models.GraphEdge),
		in:    make(map[string][]models.GraphEdge),
	}
	for _, node := range g.Nodes {
		built.nodes[node.ID] = node
	}
	for _, edge := range g.Edges {
		built.out[edge.Source] = append(built.out[edge.Source], edge)
		built.in[edge.Target] = append(built.in[edge.Target], edge)
	}
	return built
}

// export flattens the graph back to its wire form in deterministic order.
func (g *graph) export() models.EntityGraph {
	out := models.EntityGraph{}

	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		out.Nodes = append(out.Nodes, g.nodes[id])
	}

	// Edge sources are not guaranteed to be nodes: annotations may point at
	// chunk ids, so walk the adjacency keys rather than the node set.
	sources := make([]string, 0, len(g.out))
	for src := range g.out {
		sources = append(sources, src)
	}
	sort.Strings(sources)
	for _, src := range sources {
		out.Edges = append(out.Edges, g.out[src]...)
	}
	sort.Slice(out.Edges, func(i, j int) bool {
		if out.Edges[i].Source != out.Edges[j].Source {
			return out.Edges[i].Source < out.Edges[j].Source
		}
		if out.Edges[i].Target != out.Edges[j].Target {
			return out.Edges[i].Target < out.Edges[j].Target
		}
		return out.Edges[i].Relation < out.Edges[j].Relation
	})

	return out
}

// GraphQuery returns the subgraph reachable from nodeID within depth hops,
// following edges in both directions. Nodes and edges come back in
// deterministic order; an unknown node yields an empty graph.
func (ix *Index) GraphQuery(nodeID string, depth int) models.EntityGraph {
	snap := ix.current()
	g := snap.graph

	if _, ok := g.nodes[nodeID]; !ok || depth < 0 {
		return models.EntityGraph{}
	}

	visited := map[string]struct{}{nodeID: {}}
	edgeSeen := make(map[models.GraphEdge]struct{})
	frontier := []string{nodeID}

	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		var next []string
		for _, id := range frontier {
			for _, edge := range g.out[id] {
				edgeSeen[edge] = struct{}{}
				if _, ok := visited[edge.Target]; !ok {
					visited[edge.Target] = struct{}{}
					next = append(next, edge.Target)
				}
			}
			for _, edge := range g.in[id] {
				edgeSeen[edge] = struct{}{}
				if _, ok := visited[edge.Source]; !ok {
					visited[edge.Source] = struct{}{}
					next = append(next, edge.Source)
				}
			}
		}
		frontier = next
	}

	result := models.EntityGraph{}
	ids := make([]string, 0, len(visited))
	for id := range visited {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if node, ok := g.nodes[id]; ok {
			result.Nodes = append(result.Nodes, node)
		}
	}

	edges := make([]models.GraphEdge, 0, len(edgeSeen))
	for edge := range edgeSeen {
		edges = append(edges, edge)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		if edges[i].Target != edges[j].Target {
			return edges[i].Target < edges[j].Target
		}
		return edges[i].Relation < edges[j].Relation
	})
	result.Edges = edges

	return result
}
