package lexical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visarag/internal/domain"
	"visarag/internal/logger"
)

func TestTerms(t *testing.T) {
	assert.Equal(t, []string{"visa", "interview"}, Terms("Visa at an interview"))
	assert.Empty(t, Terms("to be or"))
	assert.Empty(t, Terms(""))
}

func TestScore(t *testing.T) {
	scorer := NewScorer(logger.Nop())

	doc := domain.Document{
		Content: "The visa interview takes place at the embassy. Bring your visa documents.",
		Title:   "Visa interview",
		Country: domain.CountryUSA,
	}
	terms := Terms("visa interview")

	// "visa" occurs twice in the content, "interview" once; each matched
	// term adds the presence bonus, both appear in the title, and the
	// country-tagged document contains an anchor term.
	got := scorer.Score(doc, terms)
	want := 2*occurrenceWeight + presenceBonus + titleBonus + // visa
		1*occurrenceWeight + presenceBonus + titleBonus + // interview
		anchorBonus
	assert.InDelta(t, want, got, 1e-9)
}

func TestScoreNoMatchIsZero(t *testing.T) {
	scorer := NewScorer(logger.Nop())
	doc := domain.Document{
		Content: "Student visa processing times vary.",
		Country: domain.CountryUK,
	}
	// The anchor bonus must not lift an otherwise unmatched document above
	// zero, or every on-topic document would match every query.
	assert.Zero(t, scorer.Score(doc, Terms("quantum entanglement")))
}

func TestSearchOrderingAndTopK(t *testing.T) {
	scorer := NewScorer(logger.Nop())
	docs := []domain.Document{
		{Content: "visa", Country: "usa"},
		{Content: "visa visa visa", Country: "usa"},
		{Content: "visa visa", Country: "usa"},
		{Content: "nothing relevant", Country: "usa"},
	}

	results := scorer.Search(docs, "visa", 2, "")
	require.Len(t, results, 2)
	assert.Equal(t, "visa visa visa", results[0].Document.Content)
	assert.Equal(t, "visa visa", results[1].Document.Content)
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, 2, results[1].Rank)
}

func TestSearchCountryFilter(t *testing.T) {
	scorer := NewScorer(logger.Nop())
	docs := []domain.Document{
		{Content: "visa rules in America", Country: "usa"},
		{Content: "visa rules in Britain", Country: "uk"},
		{Content: "visa rules, no country"},
	}

	results := scorer.Search(docs, "visa rules", 10, "UK")
	require.Len(t, results, 1)
	assert.Equal(t, "uk", results[0].Document.Country)

	// Documents without a country never satisfy an active filter.
	for _, r := range results {
		assert.NotEmpty(t, r.Document.Country)
	}
}

func TestSearchNoMatchesIsEmpty(t *testing.T) {
	scorer := NewScorer(logger.Nop())
	docs := []domain.Document{
		{Content: "study abroad guide", Country: "usa"},
	}
	assert.Empty(t, scorer.Search(docs, "zzzz qqqq", 5, ""))
	assert.Empty(t, scorer.Search(docs, "a an", 5, ""))
	assert.Empty(t, scorer.Search(docs, "study", 0, ""))
	assert.Empty(t, scorer.Search(nil, "study", 5, ""))
}
