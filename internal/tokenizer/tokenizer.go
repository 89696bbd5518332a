// Package tokenizer turns page text and raw queries into the terms the
// relevance engine counts. Text is lower-cased, split on anything that is not
// a letter or digit, stripped of stop-words and reduced by a small suffix
// stemmer, so a page and a query that say the same thing produce the same
// terms.
package tokenizer

import (
	"strings"
	"unicode"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "this": {}, "but": {}, "they": {},
	"have": {}, "had": {}, "what": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "their": {}, "if": {}, "each": {},
	"do": {}, "not": {}, "no": {}, "so": {}, "can": {},
}

// suffixRule rewrites a trailing suffix when the result keeps at least minLen
// bytes. Rules are tried in order and the first applicable one wins.
type suffixRule struct {
	suffix      string
	replacement string
	minLen      int
}

var suffixRules = []suffixRule{
	{"ational", "ate", 2},
	{"tional", "tion", 2},
	{"encies", "ence", 2},
	{"ances", "ance", 2},
	{"ments", "ment", 2},
	{"izing", "ize", 2},
	{"ating", "ate", 2},
	{"iness", "y", 2},
	{"ously", "ous", 2},
	{"ively", "ive", 2},
	{"eness", "ene", 2},
	{"tion", "t", 3},
	{"sion", "s", 3},
	{"ying", "y", 2},
	{"ling", "l", 3},
	{"ies", "y", 2},
	{"ing", "", 3},
	{"ers", "er", 2},
	{"est", "", 3},
	{"ful", "", 3},
	{"ous", "", 3},
	{"ess", "", 3},
	{"ble", "", 3},
	{"ed", "", 3},
	{"er", "", 3},
	{"ly", "", 3},
	{"es", "", 3},
	{"ss", "ss", 2},
	{"s", "", 3},
}

// Token is a normalised term and its position among the kept terms.
type Token struct {
	Term     string
	Position int
}

// Options controls normalisation. The zero value is the default pipeline.
type Options struct {
	// KeepStopWords disables stop-word removal.
	KeepStopWords bool
	// NoStem leaves words unstemmed.
	NoStem bool
	// MinLength drops words shorter than this many bytes before stemming.
	// Zero means 2.
	MinLength int
}

// Tokenizer applies a fixed set of Options. It holds no mutable state and is
// safe for concurrent use.
type Tokenizer struct {
	opts Options
}

func New(opts Options) *Tokenizer {
	if opts.MinLength <= 0 {
		opts.MinLength = 2
	}
	return &Tokenizer{opts: opts}
}

var defaultTokenizer = New(Options{})

// Tokenize runs the default pipeline over text.
func Tokenize(text string) []Token {
	return defaultTokenizer.Tokenize(text)
}

// Terms runs the default pipeline and returns only the terms, in order.
func Terms(text string) []string {
	return defaultTokenizer.Terms(text)
}

func (t *Tokenizer) Tokenize(text string) []Token {
	var tokens []Token
	t.each(text, func(term string) {
		tokens = append(tokens, Token{Term: term, Position: len(tokens)})
	})
	return tokens
}

func (t *Tokenizer) Terms(text string) []string {
	var terms []string
	t.each(text, func(term string) {
		terms = append(terms, term)
	})
	return terms
}

func (t *Tokenizer) each(text string, emit func(string)) {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, word := range words {
		if len(word) < t.opts.MinLength {
			continue
		}
		if !t.opts.KeepStopWords {
			if _, stop := stopWords[word]; stop {
				continue
			}
		}
		if !t.opts.NoStem {
			word = Stem(word)
		}
		if word != "" {
			emit(word)
		}
	}
}

// Stem strips the first matching suffix from word.
func Stem(word string) string {
	for _, rule := range suffixRules {
		if !strings.HasSuffix(word, rule.suffix) {
			continue
		}
		if stemmed := word[:len(word)-len(rule.suffix)] + rule.replacement; len(stemmed) >= rule.minLen {
			return stemmed
		}
	}
	return word
}

// IsStopWord reports whether word, already lower-cased, is ignored by the
// default pipeline.
func IsStopWord(word string) bool {
	_, ok := stopWords[word]
	return ok
}
