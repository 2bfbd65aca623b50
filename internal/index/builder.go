package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"visarag/internal/chunker"
	"visarag/internal/domain"
	"visarag/internal/embedding"
)

// chunkThreshold is the content length, in bytes, above which a document is
// split into sentence chunks before embedding. Short FAQ-style entries are
// embedded whole.
const chunkThreshold = 1200

// Builder turns a loaded corpus into a Snapshot.
type Builder struct {
	embedder embedding.Embedder
	splitter *chunker.SentenceChunker
	log      zerolog.Logger
}

// NewBuilder creates a Builder around the given embedder.
func NewBuilder(embedder embedding.Embedder, splitter *chunker.SentenceChunker, log zerolog.Logger) *Builder {
	if splitter == nil {
		splitter = chunker.NewSentenceChunker(5, 1)
	}
	return &Builder{
		embedder: embedder,
		splitter: splitter,
		log:      log.With().Str("component", "index-builder").Logger(),
	}
}

// Build embeds every document and assembles the aligned snapshot. Oversized
// documents are chunked, each chunk becoming its own metadata row that keeps
// the parent's title, country and provenance. Documents that fail to embed
// are skipped with a warning; an entirely failed corpus is an error.
func (b *Builder) Build(ctx context.Context, version string, docs []domain.Document) (*Snapshot, error) {
	if len(docs) == 0 {
		return nil, errors.New("no documents to index")
	}

	rows := b.expand(docs)
	texts := make([]string, len(rows))
	for i, d := range rows {
		texts[i] = d.Content
	}
	if err := b.embedder.Prepare(texts); err != nil {
		return nil, fmt.Errorf("prepare embedder: %w", err)
	}

	snap := &Snapshot{Version: version}
	for i, row := range rows {
		vec, err := b.embedder.Embed(ctx, row.Content)
		if err != nil {
			b.log.Warn().Err(err).Str("source", row.Source).Int("line", row.Line).Msg("embed failed, document skipped")
			continue
		}
		if snap.Dimension == 0 {
			snap.Dimension = len(vec)
		}
		if len(vec) != snap.Dimension {
			b.log.Warn().Int("row", i).Int("got", len(vec)).Int("want", snap.Dimension).Msg("dimension mismatch, document skipped")
			continue
		}
		snap.Vectors = append(snap.Vectors, vec)
		snap.Documents = append(snap.Documents, row)
	}
	if len(snap.Vectors) == 0 {
		return nil, errors.New("no documents could be embedded")
	}
	b.log.Info().
		Str("version", version).
		Int("documents", len(docs)).
		Int("rows", len(snap.Vectors)).
		Int("dimension", snap.Dimension).
		Msg("snapshot built")
	return snap, nil
}

// expand replaces oversized documents with their chunks.
func (b *Builder) expand(docs []domain.Document) []domain.Document {
	var rows []domain.Document
	for _, doc := range docs {
		if doc.Content == "" {
			continue
		}
		if len(doc.Content) <= chunkThreshold {
			rows = append(rows, doc)
			continue
		}
		for _, piece := range b.splitter.Split(doc.Content) {
			chunk := doc
			chunk.Content = piece
			rows = append(rows, chunk)
		}
	}
	return rows
}
