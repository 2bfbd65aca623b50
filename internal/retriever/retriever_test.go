package retriever

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visarag/internal/corpus"
	"visarag/internal/domain"
	"visarag/internal/embedding/tfidf"
	"visarag/internal/index"
	"visarag/internal/logger"
	"visarag/internal/metrics"
	"visarag/internal/vectorstore"
)

func writeCorpus(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"usa/faq.jsonl": `{"content":"The F-1 visa covers full time study in the United States.","title":"F-1 visa"}
{"content":"OPT lets students work in the United States after graduation.","title":"OPT"}
`,
		"uk/faq.jsonl": `{"content":"A Tier 4 student visa requires a CAS from a British university.","title":"Tier 4 visa"}
`,
		"australia/faq.jsonl": `{"content":"The subclass 500 student visa lets you study in Australia.","title":"Subclass 500"}
`,
	}
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

// newVectorRetriever assembles a retriever whose vector engine serves a
// snapshot built from the same corpus the loader reads.
func newVectorRetriever(t *testing.T, root string) (*Retriever, *metrics.Metrics) {
	t.Helper()
	loader := corpus.NewLoader(root, logger.Nop())
	docs, err := loader.LoadAll()
	require.NoError(t, err)
	require.NotEmpty(t, docs)

	emb := tfidf.NewEmbedder()
	builder := index.NewBuilder(emb, nil, logger.Nop())
	snap, err := builder.Build(context.Background(), "v1", docs)
	require.NoError(t, err)

	build := t.TempDir()
	require.NoError(t, snap.Write(build))
	storeRoot := t.TempDir()
	store := index.NewStore(index.NewDirStore(storeRoot), logger.Nop())
	require.NoError(t, store.Upload(context.Background(), "v1", build))

	engine := vectorstore.NewEngine(emb, store, "v1", t.TempDir(), logger.Nop())
	m := metrics.New(prometheus.NewRegistry())
	return New(loader, engine, logger.Nop(), m), m
}

// newLexicalRetriever assembles a retriever with no vector engine at all.
func newLexicalRetriever(t *testing.T, root string) (*Retriever, *metrics.Metrics) {
	t.Helper()
	loader := corpus.NewLoader(root, logger.Nop())
	m := metrics.New(prometheus.NewRegistry())
	return New(loader, nil, logger.Nop(), m), m
}

func TestRetrieveVectorPathWins(t *testing.T) {
	r, m := newVectorRetriever(t, writeCorpus(t))

	passages := r.Retrieve(context.Background(), "student visa United States", 2, "")
	require.NotEmpty(t, passages)
	assert.LessOrEqual(t, len(passages), 2)

	// The vector path produced results, so lexical search never ran.
	assert.Zero(t, testutil.ToFloat64(m.FallbacksTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchesTotal.WithLabelValues(metrics.PathVector)))
}

func TestRetrieveLexicalFallback(t *testing.T) {
	r, m := newLexicalRetriever(t, writeCorpus(t))

	passages := r.Retrieve(context.Background(), "Tier visa requirements", 3, "")
	require.NotEmpty(t, passages)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FallbacksTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchesTotal.WithLabelValues(metrics.PathLexical)))
}

func TestRetrieveCountryFilter(t *testing.T) {
	root := writeCorpus(t)
	for _, build := range []func(*testing.T, string) (*Retriever, *metrics.Metrics){newVectorRetriever, newLexicalRetriever} {
		r, _ := build(t, root)
		passages := r.Retrieve(context.Background(), "student visa study", 10, "UK")
		for _, p := range passages {
			assert.Equal(t, domain.CountryUK, domain.NormalizeCountry(p.Country))
		}
	}
}

func TestRetrieveUnknownCountryIsEmpty(t *testing.T) {
	r, _ := newVectorRetriever(t, writeCorpus(t))
	assert.Empty(t, r.Retrieve(context.Background(), "student visa", 3, "germany"))
}

func TestRetrieveTopKBound(t *testing.T) {
	r, _ := newVectorRetriever(t, writeCorpus(t))

	passages := r.Retrieve(context.Background(), "student visa study", 1, "")
	assert.Len(t, passages, 1)
	assert.Equal(t, 1, passages[0].Rank)

	assert.Nil(t, r.Retrieve(context.Background(), "student visa", 0, ""))
	assert.Nil(t, r.Retrieve(context.Background(), "student visa", -3, ""))
}

func TestRetrieveOrdering(t *testing.T) {
	r, _ := newVectorRetriever(t, writeCorpus(t))

	passages := r.Retrieve(context.Background(), "student visa study university", 4, "")
	for i := 1; i < len(passages); i++ {
		assert.GreaterOrEqual(t, passages[i-1].Score, passages[i].Score)
		assert.Equal(t, i+1, passages[i].Rank)
	}
}

func TestRetrieveDegradedEngine(t *testing.T) {
	root := writeCorpus(t)
	loader := corpus.NewLoader(root, logger.Nop())

	// The engine points at an empty store, so initialization fails and
	// every query must be served lexically.
	store := index.NewStore(index.NewDirStore(t.TempDir()), logger.Nop())
	engine := vectorstore.NewEngine(tfidf.NewEmbedder(), store, "v1", t.TempDir(), logger.Nop())
	m := metrics.New(prometheus.NewRegistry())
	r := New(loader, engine, logger.Nop(), m)

	passages := r.Retrieve(context.Background(), "Tier visa requirements", 3, "")
	require.NotEmpty(t, passages)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InitFailuresTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FallbacksTotal))
}

func TestRetrieveEmptyCorpus(t *testing.T) {
	r, _ := newLexicalRetriever(t, filepath.Join(t.TempDir(), "missing"))
	assert.Nil(t, r.Retrieve(context.Background(), "student visa", 3, ""))
}

func TestRetrieveNoMatchIsEmpty(t *testing.T) {
	r, _ := newLexicalRetriever(t, writeCorpus(t))
	assert.Empty(t, r.Retrieve(context.Background(), "quasar neutrino flux", 3, ""))
}

func TestRetrieveTruncatesLongContent(t *testing.T) {
	root := t.TempDir()
	long := strings.Repeat("Visa conditions apply to every student. ", 30)
	line := `{"content":"` + long + `","title":"Long"}` + "\n"
	require.NoError(t, os.MkdirAll(filepath.Join(root, "usa"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "usa", "faq.jsonl"), []byte(line), 0o644))

	r, _ := newLexicalRetriever(t, root)
	passages := r.Retrieve(context.Background(), "visa conditions student", 1, "")
	require.Len(t, passages, 1)
	assert.True(t, strings.HasSuffix(passages[0].Content, truncationMark))
	assert.Len(t, passages[0].Content, maxContentChars+len(truncationMark))
}

func TestRetrieveConcurrentColdStart(t *testing.T) {
	r, m := newVectorRetriever(t, writeCorpus(t))

	const workers = 16
	results := make([][]domain.Passage, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.Retrieve(context.Background(), "student visa United States", 2, "")
		}(i)
	}
	wg.Wait()

	for _, passages := range results {
		assert.NotEmpty(t, passages)
	}
	// Initialization ran exactly once despite the concurrent first calls.
	assert.Zero(t, testutil.ToFloat64(m.InitFailuresTotal))
}

func TestListAvailableCountries(t *testing.T) {
	r, _ := newLexicalRetriever(t, writeCorpus(t))
	assert.Equal(t, []string{domain.CountryAustralia, domain.CountryUK, domain.CountryUSA}, r.ListAvailableCountries())
}

func TestIndexInfo(t *testing.T) {
	r, _ := newVectorRetriever(t, writeCorpus(t))
	info := r.IndexInfo(context.Background())
	assert.True(t, info.Ready)
	assert.Equal(t, "loaded", info.Status)
	assert.Equal(t, 4, info.CorpusSize)

	lex, _ := newLexicalRetriever(t, writeCorpus(t))
	lexInfo := lex.IndexInfo(context.Background())
	assert.False(t, lexInfo.Ready)
	assert.Equal(t, "lexical_only", lexInfo.Status)
}
