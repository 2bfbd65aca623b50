// Package corpus loads the country-partitioned knowledge base from disk.
//
// The on-disk convention is one subdirectory per country under a root
// directory, each holding line-delimited JSON files with one document per
// line. A malformed line is skipped with a warning; it never aborts the
// rest of the load.
package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"visarag/internal/domain"
)

// nonCountryDirs are root subdirectories that hold shared or derived data
// rather than a country partition.
var nonCountryDirs = map[string]struct{}{
	"common":    {},
	"index":     {},
	"processed": {},
	"sources":   {},
}

// contentFields are tried in order when extracting the document body.
var contentFields = []string{"content", "text", "question", "answer", "description"}

// Loader reads JSONL documents from a corpus root directory.
type Loader struct {
	root string
	log  zerolog.Logger
}

// NewLoader creates a Loader for the given corpus root.
func NewLoader(root string, log zerolog.Logger) *Loader {
	return &Loader{root: root, log: log.With().Str("component", "corpus").Logger()}
}

// LoadAll reads every .jsonl file under the corpus root. Documents inside a
// country partition are stamped with that country; files elsewhere load as
// general documents. A missing root yields an empty corpus, not an error.
func (l *Loader) LoadAll() ([]domain.Document, error) {
	if _, err := os.Stat(l.root); err != nil {
		l.log.Warn().Str("root", l.root).Msg("corpus root not found")
		return nil, nil
	}
	var docs []domain.Document
	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".jsonl") {
			return nil
		}
		country := l.countryFor(path)
		loaded, err := l.loadFile(path, country)
		if err != nil {
			// An unreadable file is logged and skipped, like a bad line.
			l.log.Error().Err(err).Str("file", path).Msg("skipping unreadable corpus file")
			return nil
		}
		docs = append(docs, loaded...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk corpus root %s: %w", l.root, err)
	}
	l.log.Info().Int("documents", len(docs)).Str("root", l.root).Msg("corpus loaded")
	return docs, nil
}

// LoadCountry reads the .jsonl files of a single country partition.
func (l *Loader) LoadCountry(country string) ([]domain.Document, error) {
	canonical := domain.NormalizeCountry(country)
	dir := filepath.Join(l.root, dirName(canonical))
	if _, err := os.Stat(dir); err != nil {
		l.log.Warn().Str("country", canonical).Str("dir", dir).Msg("country partition not found")
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read country dir %s: %w", dir, err)
	}
	var docs []domain.Document
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		loaded, err := l.loadFile(filepath.Join(dir, e.Name()), canonical)
		if err != nil {
			l.log.Error().Err(err).Str("file", e.Name()).Msg("skipping unreadable corpus file")
			continue
		}
		docs = append(docs, loaded...)
	}
	return docs, nil
}

// Countries lists the country partitions present on disk, excluding the
// known non-country directories.
func (l *Loader) Countries() []string {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil
	}
	var countries []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, skip := nonCountryDirs[e.Name()]; skip {
			continue
		}
		countries = append(countries, domain.NormalizeCountry(e.Name()))
	}
	sort.Strings(countries)
	return countries
}

// Stats summarizes the on-disk corpus for diagnostics.
type Stats struct {
	Files     int            `json:"files"`
	Documents int            `json:"documents"`
	ByCountry map[string]int `json:"by_country"`
}

// Stats counts corpus files and loadable documents, broken down by country
// partition. General documents count under the empty key.
func (l *Loader) Stats() Stats {
	stats := Stats{ByCountry: make(map[string]int)}
	if _, err := os.Stat(l.root); err != nil {
		return stats
	}
	_ = filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(d.Name(), ".jsonl") {
			return nil
		}
		stats.Files++
		country := l.countryFor(path)
		docs, err := l.loadFile(path, country)
		if err != nil {
			return nil
		}
		stats.Documents += len(docs)
		stats.ByCountry[country] += len(docs)
		return nil
	})
	return stats
}

// loadFile parses one JSONL file. Each valid line becomes a Document tagged
// with its file path and line number; invalid lines are logged and skipped.
func (l *Loader) loadFile(path, country string) ([]domain.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var docs []domain.Document
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var raw map[string]any
		if err := json.Unmarshal([]byte(line), &raw); err != nil {
			l.log.Warn().Str("file", path).Int("line", lineNo).Err(err).Msg("invalid JSON line skipped")
			continue
		}
		doc, ok := documentFrom(raw, path, lineNo, country)
		if !ok {
			l.log.Warn().Str("file", path).Int("line", lineNo).Msg("document without text content skipped")
			continue
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return docs, err
	}
	return docs, nil
}

// documentFrom maps a parsed JSON object onto a Document. The body comes
// from the first non-empty content-equivalent field; remaining fields ride
// along unmodified in Meta. Documents with no body are rejected because
// they could never participate in scoring.
func documentFrom(raw map[string]any, path string, line int, country string) (domain.Document, bool) {
	doc := domain.Document{Source: path, Line: line, Country: country}

	var contentKey string
	for _, field := range contentFields {
		if s, ok := raw[field].(string); ok && strings.TrimSpace(s) != "" {
			doc.Content = s
			contentKey = field
			break
		}
	}
	if doc.Content == "" {
		return domain.Document{}, false
	}
	if title, ok := raw["title"].(string); ok {
		doc.Title = title
	}
	if doc.Country == "" {
		if c, ok := raw["country"].(string); ok {
			doc.Country = domain.NormalizeCountry(c)
		}
	}
	for k, v := range raw {
		switch k {
		case contentKey, "title", "country", "source_file", "source_line":
			continue
		}
		if doc.Meta == nil {
			doc.Meta = make(map[string]any)
		}
		doc.Meta[k] = v
	}
	return doc, true
}

// countryFor resolves the country partition a file path belongs to, or ""
// for files outside any partition.
func (l *Loader) countryFor(path string) string {
	rel, err := filepath.Rel(l.root, path)
	if err != nil {
		return ""
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 {
		return ""
	}
	if _, skip := nonCountryDirs[parts[0]]; skip {
		return ""
	}
	return domain.NormalizeCountry(parts[0])
}

// dirName converts a canonical country back to its directory spelling.
func dirName(country string) string {
	return strings.ReplaceAll(country, " ", "_")
}
