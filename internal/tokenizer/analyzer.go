package tokenizer

import (
	"log"

	"github.com/reiver/go-porterstemmer"
	"golang.org/x/text/unicode/norm"

	"github.com/amankumarsingh77/bow_bench/config"
)

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true, "is": true, "are": true, "in": true,
	"on": true, "it": true, "this": true, "that": true, "to": true, "for": true, "of": true, "with": true,
}

// Analyzer is an optional post-processing chain over per-document term
// counts. A nil Analyzer is the identity, which is the default: the
// canonical matrix semantics depend on the raw tokenizer only.
type Analyzer struct {
	filterStop bool
	stem       bool
}

func NewAnalyzer(cfg *config.AnalyzerConfig) *Analyzer {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	return &Analyzer{
		filterStop: cfg.FilterStopwords,
		stem:       cfg.Stem,
	}
}

// Apply rewrites a term-count map through the configured chain, merging
// counts of terms that collapse onto the same output term.
func (a *Analyzer) Apply(counts map[string]int) map[string]int {
	if a == nil {
		return counts
	}
	out := make(map[string]int, len(counts))
	for term, n := range counts {
		t := norm.NFC.String(term)
		if a.filterStop && stopWords[t] {
			continue
		}
		if a.stem {
			t = stemTerm(t)
		}
		if t == "" {
			continue
		}
		out[t] += n
	}
	return out
}

func stemTerm(term string) (stemmed string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("WARNING: Recovered from panic while stemming term '%s': %v", term, r)
			stemmed = term
		}
	}()
	stemmed = porterstemmer.StemString(term)
	if stemmed == "" {
		return term
	}
	return stemmed
}
