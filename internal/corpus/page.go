// Package corpus loads the static page set the relevance engine is built
// from. Pages come from a JSON-lines file, a Postgres table or a Kafka topic
// snapshot; every loader returns tokenized, de-duplicated pages ready to hand
// to relevance.Build.
package corpus

import (
	"context"
	"log/slog"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/internal/relevance"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-engine/internal/tokenizer"
)

// Page is one crawled page. Terms are derived from Title and Body once, when
// the page is prepared, and never change afterwards.
type Page struct {
	URI   string   `json:"uri"`
	Title string   `json:"title,omitempty"`
	Body  string   `json:"body"`
	Links []string `json:"links,omitempty"`

	terms []string
}

// NewPage builds a prepared page.
func NewPage(uri, title, body string, links []string) *Page {
	p := &Page{URI: uri, Title: title, Body: body, Links: links}
	p.prepare()
	return p
}

func (p *Page) prepare() {
	p.terms = tokenizer.Terms(p.Title + " " + p.Body)
}

func (p *Page) ID() string { return p.URI }

func (p *Page) Terms() []string { return p.terms }

// document adapts Page to relevance.Document. Page keeps the exported Links
// field for JSON, so the interface method lives on this wrapper.
type document struct{ *Page }

func (d document) Links() []string { return d.Page.Links }

// Documents returns pages as engine documents, sharing the underlying pages.
func Documents(pages []*Page) []relevance.Document {
	docs := make([]relevance.Document, len(pages))
	for i, p := range pages {
		docs[i] = document{p}
	}
	return docs
}

// prepareAll tokenizes pages on up to workers goroutines (0 = NumCPU).
func prepareAll(ctx context.Context, pages []*Page, workers int) error {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, p := range pages {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p.prepare()
			return nil
		})
	}
	return g.Wait()
}

// Dedupe keeps the last page for every URI and drops pages without terms or
// without a URI, so the result satisfies the engine's input rules. Output is
// ordered by URI.
func Dedupe(pages []*Page) []*Page {
	logger := slog.Default().With("component", "corpus")
	byURI := make(map[string]*Page, len(pages))
	var duplicates, empty, anonymous int
	for _, p := range pages {
		if p.URI == "" {
			anonymous++
			continue
		}
		if _, seen := byURI[p.URI]; seen {
			duplicates++
		}
		byURI[p.URI] = p
	}
	out := make([]*Page, 0, len(byURI))
	for _, p := range byURI {
		if len(p.terms) == 0 {
			empty++
			logger.Debug("dropping page without terms", "uri", p.URI)
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URI < out[j].URI })
	if duplicates+empty+anonymous > 0 {
		logger.Warn("pages dropped from corpus",
			"duplicates", duplicates,
			"without_terms", empty,
			"without_uri", anonymous,
			"kept", len(out),
		)
	}
	return out
}
