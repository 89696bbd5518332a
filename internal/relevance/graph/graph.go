// Package graph turns a document set into a self-contained directed link
// graph: every edge points at a document of the same corpus and no node links
// to itself.
package graph

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/internal/relevance/document"
)

// Graph maps a document id to its sorted, de-duplicated in-corpus neighbours.
type Graph map[string][]string

// Build constructs the link graph for docs. Links to identifiers outside docs
// and self references are dropped. An empty corpus yields an empty graph.
func Build(docs []document.Document) Graph {
	ids := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		ids[doc.ID()] = struct{}{}
	}
	g := make(Graph, len(docs))
	for _, doc := range docs {
		self := doc.ID()
		seen := make(map[string]struct{})
		neighbors := make([]string, 0, len(doc.Links()))
		for _, link := range doc.Links() {
			if link == self {
				continue
			}
			if _, ok := ids[link]; !ok {
				continue
			}
			if _, dup := seen[link]; dup {
				continue
			}
			seen[link] = struct{}{}
			neighbors = append(neighbors, link)
		}
		sort.Strings(neighbors)
		g[self] = neighbors
	}
	return g
}

// Nodes returns every node id in ascending order.
func (g Graph) Nodes() []string {
	nodes := make([]string, 0, len(g))
	for id := range g {
		nodes = append(nodes, id)
	}
	sort.Strings(nodes)
	return nodes
}

func (g Graph) OutDegree(id string) int {
	return len(g[id])
}

// Edges returns the total number of edges.
func (g Graph) Edges() int {
	n := 0
	for _, neighbors := range g {
		n += len(neighbors)
	}
	return n
}

// Dangling returns the sorted ids of nodes without outbound edges.
func (g Graph) Dangling() []string {
	var dangling []string
	for _, id := range g.Nodes() {
		if len(g[id]) == 0 {
			dangling = append(dangling, id)
		}
	}
	return dangling
}

// Reverse returns the in-neighbour lists of every node, each sorted. Nodes
// without inbound edges map to an empty slice.
func (g Graph) Reverse() Graph {
	rev := make(Graph, len(g))
	for id := range g {
		rev[id] = nil
	}
	for _, from := range g.Nodes() {
		for _, to := range g[from] {
			rev[to] = append(rev[to], from)
		}
	}
	return rev
}
