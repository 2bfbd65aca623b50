package domain

// Document is a single unit of retrievable knowledge loaded from the
// country-partitioned corpus or from a vector snapshot's metadata table.
type Document struct {
	Content string         `json:"content"`
	Title   string         `json:"title,omitempty"`
	Country string         `json:"country,omitempty"`
	Source  string         `json:"source,omitempty"`
	Line    int            `json:"source_line,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// DisplayTitle returns the document title, falling back to the source
// identifier when no title was provided.
func (d Document) DisplayTitle() string {
	if d.Title != "" {
		return d.Title
	}
	if d.Source != "" {
		return d.Source
	}
	return "Unknown"
}

// SearchableText returns the text the lexical scorer matches against:
// the content plus any auxiliary string fields carried in Meta.
func (d Document) SearchableText() string {
	if len(d.Meta) == 0 {
		return d.Content
	}
	text := d.Content
	for _, v := range d.Meta {
		if s, ok := v.(string); ok && s != "" {
			text += " " + s
		}
	}
	return text
}

// Candidate is a raw match produced by one of the search backends before
// country filtering and formatting.
type Candidate struct {
	Rank     int
	Score    float64
	Document Document
}

// Passage is the unit returned to callers of the retriever. Content may be
// truncated for display. Scores are only comparable within one result list;
// the vector and lexical paths use incompatible scales.
type Passage struct {
	Rank    int     `json:"rank"`
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
	Country string  `json:"country"`
	Source  string  `json:"source"`
}

// IndexInfo describes the state of the vector index for diagnostics.
type IndexInfo struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Ready         bool   `json:"ready"`
	DocumentCount int    `json:"document_count"`
	Dimension     int    `json:"dimension,omitempty"`
	CorpusSize    int    `json:"corpus_size"`
}
