package memory

import (
	"sort"
	"strings"
)

// Graph is a tiny directed-edge store derived from memory texts. It is not
// independently persisted: replaying all memory texts through Update in order
// reproduces the exact same edge set.
type Graph struct {
	edges map[string]map[string]struct{}
}

func NewGraph() *Graph {
	return &Graph{edges: make(map[string]map[string]struct{})}
}

// Update parses one of two textual patterns, "A -> B" or "A is B"
// (case-insensitive, both sides trimmed), and adds the directed edge
// lower(A) -> lower(B) when both sides are non-empty. Texts matching neither
// pattern are ignored.
func (g *Graph) Update(text string) {
	lowered := strings.ToLower(text)

	var a, b string
	if idx := strings.Index(lowered, "->"); idx >= 0 {
		a = strings.TrimSpace(lowered[:idx])
		b = strings.TrimSpace(lowered[idx+len("->"):])
	} else if idx := strings.Index(lowered, " is "); idx >= 0 {
		a = strings.TrimSpace(lowered[:idx])
		b = strings.TrimSpace(lowered[idx+len(" is "):])
	} else {
		return
	}

	if a == "" || b == "" {
		return
	}
	set, ok := g.edges[a]
	if !ok {
		set = make(map[string]struct{})
		g.edges[a] = set
	}
	set[b] = struct{}{}
}

// Neighbors tokenizes query by whitespace, seeds the walk with tokens that
// exist as graph nodes, and breadth-first expands up to depth hops. The
// returned slice holds every newly reached node, seeds excluded, sorted for
// determinism.
func (g *Graph) Neighbors(query string, depth int) []string {
	if depth <= 0 {
		depth = 1
	}

	seeds := make(map[string]struct{})
	for _, token := range strings.Fields(strings.ToLower(query)) {
		if _, ok := g.edges[token]; ok {
			seeds[token] = struct{}{}
		}
	}

	found := make(map[string]struct{})
	for seed := range seeds {
		frontier := map[string]struct{}{seed: {}}
		for hop := 0; hop < depth; hop++ {
			next := make(map[string]struct{})
			for node := range frontier {
				for nb := range g.edges[node] {
					if _, isSeed := seeds[nb]; isSeed {
						continue
					}
					if _, seen := found[nb]; seen {
						continue
					}
					found[nb] = struct{}{}
					next[nb] = struct{}{}
				}
			}
			frontier = next
		}
	}

	out := make([]string, 0, len(found))
	for node := range found {
		out = append(out, node)
	}
	sort.Strings(out)
	return out
}

// Rebuild clears the edge set and replays Update over texts in order.
// Idempotent: edges are a set union, so repeated rebuilds over the same
// texts always produce the same graph.
func (g *Graph) Rebuild(texts []string) {
	g.edges = make(map[string]map[string]struct{})
	for _, text := range texts {
		g.Update(text)
	}
}

// NodeCount returns the number of nodes with at least one outgoing edge.
func (g *Graph) NodeCount() int {
	return len(g.edges)
}

// EdgeSet returns a copy of the adjacency map, used by tests to compare
// incremental updates against a full rebuild.
func (g *Graph) EdgeSet() map[string][]string {
	out := make(map[string][]string, len(g.edges))
	for node, set := range g.edges {
		targets := make([]string, 0, len(set))
		for t := range set {
			targets = append(targets, t)
		}
		sort.Strings(targets)
		out[node] = targets
	}
	return out
}
