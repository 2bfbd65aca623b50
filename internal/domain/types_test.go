package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayTitle(t *testing.T) {
	assert.Equal(t, "Visa FAQ", Document{Title: "Visa FAQ", Source: "usa/faq.jsonl"}.DisplayTitle())
	assert.Equal(t, "usa/faq.jsonl", Document{Source: "usa/faq.jsonl"}.DisplayTitle())
	assert.Equal(t, "Unknown", Document{}.DisplayTitle())
}

func TestSearchableText(t *testing.T) {
	doc := Document{
		Content: "You need an I-20 form.",
		Meta: map[string]any{
			"category": "paperwork",
			"priority": 2,
		},
	}
	// Only string meta values join the searchable text.
	assert.Equal(t, "You need an I-20 form. paperwork", doc.SearchableText())

	plain := Document{Content: "just content"}
	assert.Equal(t, "just content", plain.SearchableText())
}
