package graph

import (
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/internal/relevance/document"
)

func doc(uri string, links ...string) document.Document {
	return document.Static{URI: uri, OutLinks: links, Words: []string{"x"}}
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name string
		docs []document.Document
		want Graph
	}{
		{
			name: "empty corpus",
			docs: nil,
			want: Graph{},
		},
		{
			name: "cycle",
			docs: []document.Document{doc("a", "b"), doc("b", "c"), doc("c", "a")},
			want: Graph{"a": {"b"}, "b": {"c"}, "c": {"a"}},
		},
		{
			name: "drops self loops and external links",
			docs: []document.Document{
				doc("a", "a", "b", "http://elsewhere"),
				doc("b"),
			},
			want: Graph{"a": {"b"}, "b": {}},
		},
		{
			name: "collapses duplicate links and sorts",
			docs: []document.Document{doc("a", "c", "b", "c", "b"), doc("b"), doc("c")},
			want: Graph{"a": {"b", "c"}, "b": {}, "c": {}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Build(tt.docs)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d nodes, want %d", len(got), len(tt.want))
			}
			for id, want := range tt.want {
				if !reflect.DeepEqual(normalize(got[id]), normalize(want)) {
					t.Errorf("node %s: got %v, want %v", id, got[id], want)
				}
			}
		})
	}
}

func normalize(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

func TestEveryEdgeStaysInCorpus(t *testing.T) {
	g := Build([]document.Document{
		doc("a", "b", "z", "a"),
		doc("b", "a", "y"),
		doc("c", "x"),
	})
	for from, neighbors := range g {
		for _, to := range neighbors {
			if to == from {
				t.Errorf("self loop on %s", from)
			}
			if _, ok := g[to]; !ok {
				t.Errorf("edge %s -> %s leaves the corpus", from, to)
			}
		}
	}
	if g.Edges() != 2 {
		t.Errorf("Edges() = %d, want 2", g.Edges())
	}
	if got := g.Dangling(); !reflect.DeepEqual(got, []string{"c"}) {
		t.Errorf("Dangling() = %v", got)
	}
}

func TestReverse(t *testing.T) {
	g := Build([]document.Document{doc("a", "c"), doc("b", "c", "a"), doc("c")})
	rev := g.Reverse()
	if !reflect.DeepEqual(rev["c"], []string{"a", "b"}) {
		t.Errorf("in-neighbours of c = %v", rev["c"])
	}
	if !reflect.DeepEqual(rev["a"], []string{"b"}) {
		t.Errorf("in-neighbours of a = %v", rev["a"])
	}
	if len(rev["b"]) != 0 {
		t.Errorf("in-neighbours of b = %v", rev["b"])
	}
	if !reflect.DeepEqual(g.Nodes(), []string{"a", "b", "c"}) {
		t.Errorf("Nodes() = %v", g.Nodes())
	}
	if g.OutDegree("b") != 2 {
		t.Errorf("OutDegree(b) = %d", g.OutDegree("b"))
	}
}
