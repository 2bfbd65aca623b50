// Package vectorstore owns the vector search engine: the similarity index
// and its aligned document metadata, materialized once per process from a
// remote snapshot (or served by a Qdrant collection) and read-only
// afterwards.
package vectorstore

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"visarag/internal/domain"
	"visarag/internal/embedding"
	"visarag/internal/index"
	"visarag/internal/vectorstore/memory"
	"visarag/internal/vectorstore/qdrant"
)

// SearchError reports an unexpected failure inside the vector query path.
// The retriever treats it as "zero results from the vector path" and falls
// through to lexical search.
type SearchError struct {
	Stage string
	Err   error
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("vector search failed at %s: %v", e.Stage, e.Err)
}

func (e *SearchError) Unwrap() error { return e.Err }

// Engine performs embedding-based similarity search. A failed Initialize
// leaves the engine permanently unavailable for the process lifetime; the
// caller detects that through IsAvailable rather than per-query errors.
//
// Initialize must be externally serialized (the retriever guards it with
// its one-time init); after it returns, all state is read-only and every
// method is safe for concurrent use.
type Engine struct {
	embedder embedding.Embedder
	log      zerolog.Logger

	// snapshot mode
	store    *index.Store
	version  string
	cacheDir string
	mem      *memory.Store
	docs     []domain.Document

	// remote mode
	remote      *qdrant.Store
	remoteReady bool
	remoteCount int

	dimension int
}

// NewEngine creates a snapshot-backed engine. The snapshot is fetched from
// the store into cacheDir during Initialize.
func NewEngine(embedder embedding.Embedder, store *index.Store, version, cacheDir string, log zerolog.Logger) *Engine {
	return &Engine{
		embedder: embedder,
		store:    store,
		version:  version,
		cacheDir: cacheDir,
		log:      log.With().Str("component", "vector-engine").Logger(),
	}
}

// NewRemoteEngine creates an engine served by a Qdrant collection.
func NewRemoteEngine(embedder embedding.Embedder, remote *qdrant.Store, log zerolog.Logger) *Engine {
	return &Engine{
		embedder: embedder,
		remote:   remote,
		log:      log.With().Str("component", "vector-engine").Logger(),
	}
}

// LoadSnapshot installs an already-built snapshot directly, bypassing the
// remote store. Used by the index build path to serve what it just built.
func (e *Engine) LoadSnapshot(snap *index.Snapshot) error {
	mem := memory.NewStore()
	if err := mem.Init(snap.Dimension); err != nil {
		return err
	}
	if err := mem.Add(snap.Vectors); err != nil {
		return err
	}
	e.mem = mem
	e.docs = snap.Documents
	e.dimension = snap.Dimension
	e.version = snap.Version
	if e.cacheDir != "" {
		if err := index.MarkReady(e.cacheDir, snap.Version); err != nil {
			return err
		}
	}
	return nil
}

// Initialize materializes the index. Errors are returned for logging but
// must not be treated as fatal by callers: a failed initialization is the
// degraded-mode signal, observable via IsAvailable.
func (e *Engine) Initialize(ctx context.Context) error {
	if e.remote != nil {
		if err := e.remote.Ping(ctx); err != nil {
			return fmt.Errorf("qdrant unavailable: %w", err)
		}
		if n, err := e.remote.Count(ctx); err == nil {
			e.remoteCount = n
		}
		e.remoteReady = true
		e.log.Info().Int("points", e.remoteCount).Msg("remote vector backend ready")
		return nil
	}

	// Reuse a cached snapshot of the right version when present; otherwise
	// fetch both artifacts before loading anything.
	if v, ok := index.ReadyVersion(e.cacheDir); !ok || v != e.version {
		if err := index.ClearReady(e.cacheDir); err != nil {
			return err
		}
		if err := e.store.FetchToLocal(ctx, e.version, e.cacheDir); err != nil {
			return err
		}
	}
	snap, err := index.LoadSnapshot(e.cacheDir, e.version)
	if err != nil {
		return fmt.Errorf("load snapshot %s: %w", e.version, err)
	}
	if err := e.LoadSnapshot(snap); err != nil {
		return err
	}
	e.log.Info().
		Str("version", e.version).
		Int("documents", len(e.docs)).
		Int("dimension", e.dimension).
		Msg("vector index loaded")
	return nil
}

// IsAvailable reports whether the vector path can serve queries: index and
// metadata loaded, and the ready sentinel present for snapshot mode.
func (e *Engine) IsAvailable() bool {
	if e.remote != nil {
		return e.remoteReady
	}
	if e.mem == nil || e.docs == nil {
		return false
	}
	if e.cacheDir != "" {
		if v, ok := index.ReadyVersion(e.cacheDir); !ok || v != e.version {
			return false
		}
	}
	return true
}

// Search embeds the query and returns up to k candidates in the backend's
// native ranking order. An unavailable engine yields no results and no
// error; embedding and backend failures come back as *SearchError so the
// caller can fall back without masking real bugs as "no match".
func (e *Engine) Search(ctx context.Context, query string, k int) ([]domain.Candidate, error) {
	if !e.IsAvailable() || k <= 0 {
		return nil, nil
	}
	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &SearchError{Stage: "embed", Err: err}
	}
	if allZero(vec) {
		// The query shares no vocabulary with the index (local embedder
		// miss); similarity against it is meaningless.
		return nil, nil
	}

	if e.remote != nil {
		candidates, err := e.remote.Search(ctx, vec, k)
		if err != nil {
			return nil, &SearchError{Stage: "qdrant query", Err: err}
		}
		return candidates, nil
	}

	hits := e.mem.Search(vec, k)
	candidates := make([]domain.Candidate, 0, len(hits))
	for _, h := range hits {
		// Negative rows are the backend's "no match" sentinel; rows beyond
		// the metadata table would be index corruption. Neither surfaces.
		if h.Row < 0 || h.Row >= len(e.docs) {
			continue
		}
		candidates = append(candidates, domain.Candidate{
			Rank:     len(candidates) + 1,
			Score:    h.Score,
			Document: e.docs[h.Row],
		})
	}
	return candidates, nil
}

// Info describes the engine state for diagnostics.
func (e *Engine) Info() domain.IndexInfo {
	info := domain.IndexInfo{Version: e.version, Dimension: e.dimension}
	switch {
	case e.remote != nil && e.remoteReady:
		info.Status = "remote"
		info.Ready = true
		info.DocumentCount = e.remoteCount
	case e.IsAvailable():
		info.Status = "loaded"
		info.Ready = true
		info.DocumentCount = len(e.docs)
	default:
		info.Status = "not_ready"
	}
	return info
}

func allZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
