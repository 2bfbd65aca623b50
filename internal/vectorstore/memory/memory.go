// Package memory holds the in-process similarity index the engine searches
// after a snapshot has been materialized.
package memory

import (
	"errors"
	"sort"
	"sync"
)

// Hit is a single row match from a similarity search.
type Hit struct {
	Row   int
	Score float64
}

// Store is a brute-force inner-product index over L2-normalized vectors.
// After loading it is read-only and safe for concurrent searches.
type Store struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float64
}

// NewStore creates an empty store.
func NewStore() *Store { return &Store{} }

// Init sets the vector dimension and clears any loaded rows.
func (s *Store) Init(dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.vectors = nil
	return nil
}

// Add appends rows to the index. Row positions are assigned in load order
// and stay stable for the lifetime of the store.
func (s *Store) Add(vectors [][]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vectors {
		if len(v) != s.dimension {
			return errors.New("vector dimension mismatch")
		}
	}
	s.vectors = append(s.vectors, vectors...)
	return nil
}

// Len returns the number of indexed rows.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}

// Search returns the top-k rows by inner product with the query vector,
// in descending score order. Ties keep index order.
func (s *Store) Search(vector []float64, k int) []Hit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if k <= 0 || len(s.vectors) == 0 {
		return nil
	}
	hits := make([]Hit, len(s.vectors))
	for i, v := range s.vectors {
		hits[i] = Hit{Row: i, Score: dot(v, vector)}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k]
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
