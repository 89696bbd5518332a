package tfidf

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/internal/relevance/document"
	apperrors "github.com/Adithya-Monish-Kumar-K/search-relevance-engine/pkg/errors"
)

func doc(uri string, words ...string) document.Document {
	return document.Static{URI: uri, Words: words}
}

func mustBuild(t *testing.T, docs ...document.Document) *Model {
	t.Helper()
	m, err := Build(docs, 2)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return m
}

func TestTermFrequencies(t *testing.T) {
	tf := TermFrequencies([]string{"cat", "cat", "bird", "dog"})
	want := map[string]float64{"cat": 0.5, "bird": 0.25, "dog": 0.25}
	if len(tf) != len(want) {
		t.Fatalf("got %v", tf)
	}
	for term, w := range want {
		if tf[term] != w {
			t.Errorf("tf(%s) = %v, want %v", term, tf[term], w)
		}
	}
	if len(TermFrequencies(nil)) != 0 {
		t.Error("empty input should give an empty vector")
	}
}

func TestIDFAndVectors(t *testing.T) {
	m := mustBuild(t,
		doc("doc1", "cat", "dog"),
		doc("doc2", "cat", "cat", "bird"),
	)
	if idf, ok := m.IDF("dog"); !ok || math.Abs(idf-math.Log(2)) > 1e-12 {
		t.Errorf("idf(dog) = %v, %v; want ln 2", idf, ok)
	}
	if idf, ok := m.IDF("cat"); !ok || idf != 0 {
		t.Errorf("idf(cat) = %v, %v; want 0", idf, ok)
	}
	if _, ok := m.IDF("fish"); ok {
		t.Error("fish should be unknown")
	}
	v2, ok := m.Vector("doc2")
	if !ok {
		t.Fatal("doc2 vector missing")
	}
	if want := (1.0 / 3) * math.Log(2); math.Abs(v2["bird"]-want) > 1e-12 {
		t.Errorf("tfidf(bird, doc2) = %v, want %v", v2["bird"], want)
	}
	if m.Len() != 2 || m.Terms() != 3 {
		t.Errorf("Len() = %d, Terms() = %d", m.Len(), m.Terms())
	}
}

func TestUbiquitousTermHasZeroWeight(t *testing.T) {
	m := mustBuild(t,
		doc("a", "the", "quick", "fox"),
		doc("b", "the", "lazy", "dog"),
		doc("c", "the", "the", "end"),
	)
	for _, id := range []string{"a", "b", "c"} {
		v, _ := m.Vector(id)
		if v["the"] != 0 {
			t.Errorf("weight of 'the' in %s = %v, want 0", id, v["the"])
		}
	}
}

func TestRelevanceScenario(t *testing.T) {
	m := mustBuild(t,
		doc("doc1", "cat", "dog"),
		doc("doc2", "cat", "cat", "bird"),
	)
	r1, err := m.Relevance([]string{"dog"}, "doc1")
	if err != nil {
		t.Fatalf("Relevance: %v", err)
	}
	if r1 <= 0 {
		t.Errorf("relevance(dog, doc1) = %v, want > 0", r1)
	}
	// cat has idf 0, so doc1's vector points along dog only.
	if math.Abs(r1-1) > 1e-12 {
		t.Errorf("relevance(dog, doc1) = %v, want 1", r1)
	}
	r2, err := m.Relevance([]string{"dog"}, "doc2")
	if err != nil {
		t.Fatalf("Relevance: %v", err)
	}
	if r2 != 0 {
		t.Errorf("relevance(dog, doc2) = %v, want 0", r2)
	}
}

func TestRelevanceUnknownQueryTerm(t *testing.T) {
	m := mustBuild(t,
		doc("doc1", "cat", "dog"),
		doc("doc2", "cat", "cat", "bird"),
	)
	withUnknown, err := m.Relevance([]string{"dog", "unicorn"}, "doc1")
	if err != nil {
		t.Fatalf("Relevance: %v", err)
	}
	if withUnknown <= 0 || withUnknown > 1+1e-12 {
		t.Errorf("relevance = %v, want in (0,1]", withUnknown)
	}
	onlyUnknown, err := m.Relevance([]string{"unicorn"}, "doc1")
	if err != nil {
		t.Fatalf("Relevance: %v", err)
	}
	if onlyUnknown != 0 {
		t.Errorf("relevance(unicorn) = %v, want 0", onlyUnknown)
	}
}

func TestRelevanceZeroDenominator(t *testing.T) {
	m := mustBuild(t,
		doc("a", "same", "words"),
		doc("b", "same", "words"),
	)
	tests := []struct {
		name  string
		query []string
	}{
		{"empty query", nil},
		{"all zero weights", []string{"same"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Relevance(tt.query, "a")
			if err != nil {
				t.Fatalf("Relevance: %v", err)
			}
			if got != 0 {
				t.Errorf("relevance = %v, want 0", got)
			}
		})
	}
}

func TestRelevanceUnknownDocument(t *testing.T) {
	m := mustBuild(t, doc("a", "x"))
	if _, err := m.Relevance([]string{"x"}, "missing"); !errors.Is(err, apperrors.ErrDocumentNotFound) {
		t.Fatalf("err = %v, want ErrDocumentNotFound", err)
	}
}

func TestCosineBoundsAndSelfSimilarity(t *testing.T) {
	corpus := []document.Document{
		doc("go", "go", "gopher", "channel", "goroutine", "channel"),
		doc("rust", "rust", "borrow", "checker", "crab"),
		doc("java", "java", "jvm", "garbage", "collector", "bean"),
		doc("mixed", "go", "rust", "java", "compiler"),
		doc("gc", "garbage", "collector", "goroutine", "jvm"),
	}
	m := mustBuild(t, corpus...)
	for _, target := range corpus {
		self, err := m.Relevance(target.Terms(), target.ID())
		if err != nil {
			t.Fatalf("Relevance: %v", err)
		}
		for _, other := range corpus {
			score, err := m.Relevance(target.Terms(), other.ID())
			if err != nil {
				t.Fatalf("Relevance: %v", err)
			}
			if score < -1e-12 || score > 1+1e-12 {
				t.Errorf("relevance(%s terms, %s) = %v out of [0,1]", target.ID(), other.ID(), score)
			}
			if score > self+1e-12 {
				t.Errorf("%s scores %v against %s terms, above self-similarity %v",
					other.ID(), score, target.ID(), self)
			}
		}
	}
}

func TestBuildRejectsDegenerateInput(t *testing.T) {
	tests := []struct {
		name string
		docs []document.Document
	}{
		{"empty corpus", nil},
		{"document without terms", []document.Document{doc("a", "x"), doc("b")}},
		{"duplicate id", []document.Document{doc("a", "x"), doc("a", "y")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Build(tt.docs, 1); !errors.Is(err, apperrors.ErrInvalidInput) {
				t.Fatalf("err = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestBuildIsDeterministicAcrossWorkers(t *testing.T) {
	var docs []document.Document
	vocab := []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta", "eta", "theta"}
	for i := 0; i < 200; i++ {
		words := make([]string, 0, 6)
		for j := 0; j < 6; j++ {
			words = append(words, vocab[(i*j+i+j)%len(vocab)])
		}
		docs = append(docs, doc(fmt.Sprintf("d%03d", i), words...))
	}
	one, err := Build(docs, 1)
	if err != nil {
		t.Fatalf("Build(1): %v", err)
	}
	many, err := Build(docs, 16)
	if err != nil {
		t.Fatalf("Build(16): %v", err)
	}
	for _, d := range docs {
		a, _ := one.Vector(d.ID())
		b, _ := many.Vector(d.ID())
		if len(a) != len(b) {
			t.Fatalf("%s: vector sizes differ", d.ID())
		}
		for term, w := range a {
			if b[term] != w {
				t.Fatalf("%s/%s: %v vs %v", d.ID(), term, w, b[term])
			}
		}
	}
}
