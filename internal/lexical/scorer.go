// Package lexical implements the keyword fallback scorer used when vector
// search is unavailable or finds nothing.
package lexical

import (
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"visarag/internal/domain"
)

// Scoring constants. The resulting score is an unbounded additive value:
// meaningful for ranking within a single call, never comparable to the
// vector path's similarity scores.
const (
	minTermLen       = 3
	occurrenceWeight = 0.5
	presenceBonus    = 1.0
	titleBonus       = 2.0
	anchorBonus      = 0.5
)

// anchorTerms mark a document as on-topic for the study-abroad domain.
// A country-tagged document containing any of them earns a small boost.
var anchorTerms = []string{"visa", "study", "university", "college", "education"}

// Scorer ranks corpus documents against a query by term matching.
type Scorer struct {
	log zerolog.Logger
}

// NewScorer creates a Scorer.
func NewScorer(log zerolog.Logger) *Scorer {
	return &Scorer{log: log.With().Str("component", "lexical").Logger()}
}

// Terms tokenizes a query by whitespace, lowercases it and drops terms
// shorter than three characters. A query of only short terms produces no
// usable terms, which legitimately yields zero matches.
func Terms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	terms := fields[:0]
	for _, f := range fields {
		if len(f) >= minTermLen {
			terms = append(terms, f)
		}
	}
	return terms
}

// Score computes the relevance of one document for the given query terms.
func (s *Scorer) Score(doc domain.Document, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	text := strings.ToLower(doc.SearchableText())
	title := strings.ToLower(doc.Title)

	score := 0.0
	for _, term := range terms {
		if n := strings.Count(text, term); n > 0 {
			score += float64(n) * occurrenceWeight
			score += presenceBonus
		}
		if title != "" && strings.Contains(title, term) {
			score += titleBonus
		}
	}
	if score > 0 && doc.Country != "" {
		for _, anchor := range anchorTerms {
			if strings.Contains(text, anchor) {
				score += anchorBonus
				break
			}
		}
	}
	return score
}

// Search scores the given documents against the query, keeps only those
// with a positive score, and returns the top k in descending score order.
// An empty result is the correct "no lexical match" signal.
func (s *Scorer) Search(docs []domain.Document, query string, k int, country string) []domain.Candidate {
	if k <= 0 {
		return nil
	}
	terms := Terms(query)
	if len(terms) == 0 {
		return nil
	}
	filter := domain.NormalizeCountry(country)

	var scored []domain.Candidate
	for _, doc := range docs {
		if filter != "" && domain.NormalizeCountry(doc.Country) != filter {
			continue
		}
		if doc.Content == "" {
			continue
		}
		if sc := s.Score(doc, terms); sc > 0 {
			scored = append(scored, domain.Candidate{Score: sc, Document: doc})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > k {
		scored = scored[:k]
	}
	for i := range scored {
		scored[i].Rank = i + 1
	}
	s.log.Debug().Str("query", query).Str("country", filter).Int("results", len(scored)).Msg("lexical search")
	return scored
}
