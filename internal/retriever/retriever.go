// Package retriever is the public face of the retrieval engine. It wires
// the corpus, the vector engine and the lexical scorer behind a single
// Retrieve entry point that never fails: every internal error degrades to
// "try the next path", and the worst case is an empty result list.
package retriever

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"visarag/internal/corpus"
	"visarag/internal/domain"
	"visarag/internal/lexical"
	"visarag/internal/metrics"
	"visarag/internal/vectorstore"
)

const (
	// maxContentChars bounds the content of a returned passage; longer
	// content is cut and marked.
	maxContentChars = 500
	truncationMark  = "..."

	// overfetch is the multiplier applied to top_k on the vector path so
	// country filtering still has enough candidates to choose from.
	overfetch = 2

	// DefaultTopK matches the conversational layer's usual request size.
	DefaultTopK = 3
)

// Retriever orchestrates the two search paths. Construct it once at the
// composition root and share it; initialization is lazy and happens exactly
// once even under concurrent first calls.
type Retriever struct {
	loader  *corpus.Loader
	engine  *vectorstore.Engine
	scorer  *lexical.Scorer
	log     zerolog.Logger
	metrics *metrics.Metrics

	initOnce sync.Once
	docs     []domain.Document
}

// New creates a Retriever. engine and m may be nil: without an engine every
// query is served lexically, without metrics nothing is recorded.
func New(loader *corpus.Loader, engine *vectorstore.Engine, log zerolog.Logger, m *metrics.Metrics) *Retriever {
	return &Retriever{
		loader:  loader,
		engine:  engine,
		scorer:  lexical.NewScorer(log),
		log:     log.With().Str("component", "retriever").Logger(),
		metrics: m,
	}
}

// init loads the corpus and initializes the vector engine exactly once per
// process. Engine failure is a degraded-mode signal, logged and absorbed;
// it never reaches Retrieve's callers.
func (r *Retriever) init(ctx context.Context) {
	r.initOnce.Do(func() {
		docs, err := r.loader.LoadAll()
		if err != nil {
			r.log.Error().Err(err).Msg("corpus load failed")
		}
		r.docs = docs

		if r.engine == nil {
			return
		}
		if err := r.engine.Initialize(ctx); err != nil {
			r.log.Warn().Err(err).Msg("vector engine unavailable, lexical search only")
			r.metrics.ObserveInitFailure()
		}
	})
}

// Retrieve returns up to topK passages relevant to the query, optionally
// scoped to one country. The vector path is preferred; when it returns
// anything it wins outright, and the lexical path is consulted only when
// the vector path is unavailable or empty. Scores within one result list
// are descending and share one scale; they are never comparable across
// calls. Retrieve never panics and never returns an error: any failure
// degrades to fewer results, down to an empty list.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, country string) []domain.Passage {
	start := time.Now()
	r.init(ctx)

	if topK <= 0 || len(r.docs) == 0 {
		r.metrics.ObserveSearch(metrics.PathLexical, 0, time.Since(start))
		return nil
	}
	filter := domain.NormalizeCountry(country)

	if candidates := r.vectorSearch(ctx, query, topK, filter); len(candidates) > 0 {
		passages := format(candidates)
		r.metrics.ObserveSearch(metrics.PathVector, len(passages), time.Since(start))
		return passages
	}

	r.metrics.ObserveFallback()
	candidates := r.scorer.Search(r.docs, query, topK, filter)
	passages := format(candidates)
	r.metrics.ObserveSearch(metrics.PathLexical, len(passages), time.Since(start))
	r.log.Debug().
		Str("query", query).
		Str("country", filter).
		Int("results", len(passages)).
		Msg("retrieval served lexically")
	return passages
}

// vectorSearch runs the vector path: over-fetch, country-filter, truncate.
// Any error is logged and converted to an empty candidate list.
func (r *Retriever) vectorSearch(ctx context.Context, query string, topK int, filter string) []domain.Candidate {
	if r.engine == nil || !r.engine.IsAvailable() {
		return nil
	}
	candidates, err := r.engine.Search(ctx, query, topK*overfetch)
	if err != nil {
		r.log.Warn().Err(err).Str("query", query).Msg("vector search failed, falling back")
		return nil
	}
	filtered := candidates[:0]
	for _, c := range candidates {
		if filter != "" && domain.NormalizeCountry(c.Document.Country) != filter {
			continue
		}
		c.Rank = len(filtered) + 1
		filtered = append(filtered, c)
		if len(filtered) == topK {
			break
		}
	}
	return filtered
}

// ListAvailableCountries reports the country partitions present on disk.
func (r *Retriever) ListAvailableCountries() []string {
	return r.loader.Countries()
}

// CorpusStats reports file and document counts per country partition.
func (r *Retriever) CorpusStats() corpus.Stats {
	return r.loader.Stats()
}

// IndexInfo describes the engine and corpus state for health checks. Not
// used on the query path.
func (r *Retriever) IndexInfo(ctx context.Context) domain.IndexInfo {
	r.init(ctx)
	var info domain.IndexInfo
	if r.engine != nil {
		info = r.engine.Info()
	} else {
		info.Status = "lexical_only"
	}
	info.CorpusSize = len(r.docs)
	return info
}

// format converts ranked candidates into caller-facing passages, applying
// the display truncation.
func format(candidates []domain.Candidate) []domain.Passage {
	if len(candidates) == 0 {
		return nil
	}
	passages := make([]domain.Passage, len(candidates))
	for i, c := range candidates {
		content := c.Document.Content
		if len(content) > maxContentChars {
			cut := maxContentChars
			for cut > 0 && !utf8.RuneStart(content[cut]) {
				cut--
			}
			content = content[:cut] + truncationMark
		}
		passages[i] = domain.Passage{
			Rank:    i + 1,
			Title:   c.Document.DisplayTitle(),
			Content: content,
			Score:   c.Score,
			Country: c.Document.Country,
			Source:  c.Document.Source,
		}
	}
	return passages
}
