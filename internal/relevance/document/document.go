// Package document defines the read-only view of a page that the relevance
// engine consumes.
package document

// Document is an immutable record identified by its URI. Links may point
// outside the corpus; Terms is the tokenized text and only its multiset of
// counts matters to the engine.
type Document interface {
	ID() string
	Links() []string
	Terms() []string
}

// Static is a plain Document value, handy for tests and for callers that
// already hold tokenized text.
type Static struct {
	URI      string
	OutLinks []string
	Words    []string
}

func (s Static) ID() string      { return s.URI }
func (s Static) Links() []string { return s.OutLinks }
func (s Static) Terms() []string { return s.Words }
