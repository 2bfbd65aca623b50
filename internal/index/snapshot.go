// Package index manages versioned vector index snapshots: building them
// from the corpus, publishing them to an object store, and materializing
// them into a local cache for the search engine.
//
// A snapshot is a pair of artifacts under a version prefix:
//
//	<version>/vectors.bin     float32 matrix, one row per document
//	<version>/documents.jsonl metadata rows aligned 1:1 with matrix rows
//
// Row i of the matrix must resolve to metadata row i; loading fails if the
// two artifacts disagree on the row count.
package index

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"visarag/internal/domain"
)

const (
	// ArtifactVectors is the serialized vector matrix artifact name.
	ArtifactVectors = "vectors.bin"
	// ArtifactDocuments is the aligned metadata table artifact name.
	ArtifactDocuments = "documents.jsonl"

	vectorsMagic = "VSNP"
)

// Snapshot is an in-memory vector index: the matrix plus its aligned
// document metadata. Immutable once loaded.
type Snapshot struct {
	Version   string
	Dimension int
	Vectors   [][]float64
	Documents []domain.Document
}

// Write serializes the snapshot into dir as the two artifact files.
func (s *Snapshot) Write(dir string) error {
	if len(s.Vectors) != len(s.Documents) {
		return fmt.Errorf("snapshot misaligned: %d vectors, %d documents", len(s.Vectors), len(s.Documents))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	if err := writeVectors(filepath.Join(dir, ArtifactVectors), s.Dimension, s.Vectors); err != nil {
		return fmt.Errorf("write %s: %w", ArtifactVectors, err)
	}
	if err := writeDocuments(filepath.Join(dir, ArtifactDocuments), s.Documents); err != nil {
		return fmt.Errorf("write %s: %w", ArtifactDocuments, err)
	}
	return nil
}

// LoadSnapshot reads both artifacts from dir and validates their alignment.
func LoadSnapshot(dir, version string) (*Snapshot, error) {
	dim, vectors, err := readVectors(filepath.Join(dir, ArtifactVectors))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ArtifactVectors, err)
	}
	docs, err := readDocuments(filepath.Join(dir, ArtifactDocuments))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ArtifactDocuments, err)
	}
	if len(vectors) != len(docs) {
		return nil, fmt.Errorf("snapshot misaligned: %d vectors, %d documents", len(vectors), len(docs))
	}
	return &Snapshot{Version: version, Dimension: dim, Vectors: vectors, Documents: docs}, nil
}

func writeVectors(path string, dim int, vectors [][]float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := w.WriteString(vectorsMagic); err != nil {
		return err
	}
	header := []uint32{uint32(dim), uint32(len(vectors))}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return err
	}
	row := make([]float32, dim)
	for i, vec := range vectors {
		if len(vec) != dim {
			return fmt.Errorf("row %d has dimension %d, want %d", i, len(vec), dim)
		}
		for j, v := range vec {
			row[j] = float32(v)
		}
		if err := binary.Write(w, binary.LittleEndian, row); err != nil {
			return err
		}
	}
	return w.Flush()
}

func readVectors(path string) (int, [][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	magic := make([]byte, len(vectorsMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return 0, nil, err
	}
	if string(magic) != vectorsMagic {
		return 0, nil, fmt.Errorf("bad magic %q", magic)
	}
	header := make([]uint32, 2)
	if err := binary.Read(r, binary.LittleEndian, header); err != nil {
		return 0, nil, err
	}
	dim, count := int(header[0]), int(header[1])
	if dim <= 0 {
		return 0, nil, fmt.Errorf("invalid dimension %d", dim)
	}
	vectors := make([][]float64, count)
	row := make([]float32, dim)
	for i := 0; i < count; i++ {
		if err := binary.Read(r, binary.LittleEndian, row); err != nil {
			return 0, nil, fmt.Errorf("row %d: %w", i, err)
		}
		vec := make([]float64, dim)
		for j, v := range row {
			vec[j] = float64(v)
		}
		vectors[i] = vec
	}
	return dim, vectors, nil
}

func writeDocuments(path string, docs []domain.Document) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, doc := range docs {
		if err := enc.Encode(doc); err != nil {
			return err
		}
	}
	return w.Flush()
}

func readDocuments(path string) ([]domain.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var docs []domain.Document
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var doc domain.Document
		if err := json.Unmarshal([]byte(text), &doc); err != nil {
			// Metadata rows must stay aligned with matrix rows, so a bad
			// row is fatal here, unlike in the corpus loader.
			return nil, fmt.Errorf("metadata line %d: %w", line, err)
		}
		docs = append(docs, doc)
	}
	return docs, scanner.Err()
}
