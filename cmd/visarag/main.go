package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"visarag/internal/chunker"
	"visarag/internal/config"
	"visarag/internal/corpus"
	"visarag/internal/domain"
	"visarag/internal/embedding"
	"visarag/internal/embedding/openai"
	"visarag/internal/embedding/tfidf"
	"visarag/internal/index"
	"visarag/internal/logger"
	"visarag/internal/metrics"
	"visarag/internal/retriever"
	"visarag/internal/vectorstore"
	"visarag/internal/vectorstore/qdrant"
)

const usage = `Usage: visarag [flags] <command> [args]

Commands:
  query <text>   Retrieve passages for a question
  index          Build the snapshot from the corpus and publish it
  countries      List country partitions present in the corpus
  info           Show index and corpus status

Flags:
`

func main() {
	_ = godotenv.Load()

	var (
		cfgPath string
		country string
		topK    int
	)
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/visarag/config.yaml if not provided)")
	flag.StringVar(&country, "country", "", "Country filter for query (empty = detect from query text)")
	flag.IntVar(&topK, "k", 0, "Number of passages to return (default from config)")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if topK <= 0 {
		topK = cfg.Retriever.TopK
	}

	zlog := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	ctx := context.Background()

	loader := corpus.NewLoader(cfg.Corpus.Root, zlog)
	emb := buildEmbedder(cfg)

	switch args[0] {
	case "index":
		runIndex(ctx, cfg, loader, emb, zlog)
	case "query":
		if len(args) < 2 {
			log.Fatalf("query requires the question text")
		}
		query := strings.Join(args[1:], " ")
		if country == "" {
			country, _ = domain.DetectCountry(query)
		}
		prepareLocalEmbedder(emb, loader)
		r := assembleRetriever(ctx, cfg, loader, emb, zlog)
		printPassages(r.Retrieve(ctx, query, topK, country), country)
	case "countries":
		for _, c := range loader.Countries() {
			fmt.Println(c)
		}
	case "info":
		prepareLocalEmbedder(emb, loader)
		r := assembleRetriever(ctx, cfg, loader, emb, zlog)
		printInfo(r.IndexInfo(ctx), r.CorpusStats())
	default:
		log.Fatalf("unknown command: %s", args[0])
	}
}

func buildEmbedder(cfg *config.AppConfig) embedding.Embedder {
	switch cfg.Embedder.Type {
	case "tfidf", "":
		return tfidf.NewEmbedder()
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			log.Fatalf("openai embedder config missing")
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:   cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv: cfg.Embedder.OpenAI.APIKeyEnv,
			Model:     cfg.Embedder.OpenAI.Model,
			Timeout:   time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			log.Fatalf("openai embedder init failed: %v", err)
		}
		return client
	default:
		log.Fatalf("unknown embedder: %s", cfg.Embedder.Type)
		return nil
	}
}

// prepareLocalEmbedder fits a vocabulary embedder on the corpus so query
// vectors share the space the snapshot was built in. Remote embedders are
// stateless and need no fitting.
func prepareLocalEmbedder(emb embedding.Embedder, loader *corpus.Loader) {
	if emb.Name() != "tfidf" {
		return
	}
	docs, err := loader.LoadAll()
	if err != nil || len(docs) == 0 {
		return
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	_ = emb.Prepare(texts)
}

func buildObjectStore(ctx context.Context, cfg *config.AppConfig) index.ObjectStore {
	switch cfg.Index.Backend {
	case "local", "":
		return index.NewDirStore(cfg.Index.LocalRoot)
	case "gcs":
		if cfg.Index.Bucket == "" {
			log.Fatalf("gcs backend requires index.bucket")
		}
		store, err := index.NewGCSStore(ctx, cfg.Index.Bucket, cfg.Index.Prefix)
		if err != nil {
			log.Fatalf("gcs store init failed: %v", err)
		}
		return store
	default:
		log.Fatalf("unknown index backend: %s", cfg.Index.Backend)
		return nil
	}
}

func buildEngine(ctx context.Context, cfg *config.AppConfig, emb embedding.Embedder, zlog zerolog.Logger) *vectorstore.Engine {
	switch cfg.VectorStore.Type {
	case "snapshot", "":
		objects := buildObjectStore(ctx, cfg)
		store := index.NewStore(objects, zlog)
		return vectorstore.NewEngine(emb, store, cfg.Index.Version, cfg.Index.CacheDir, zlog)
	case "qdrant":
		if cfg.VectorStore.Qdrant == nil {
			log.Fatalf("qdrant config missing")
		}
		remote := qdrant.NewStore(qdrant.Config{
			URL:        cfg.VectorStore.Qdrant.URL,
			APIKey:     cfg.VectorStore.Qdrant.APIKey,
			Collection: cfg.VectorStore.Qdrant.Collection,
			Timeout:    time.Duration(cfg.VectorStore.Qdrant.TimeoutSecs) * time.Second,
		})
		return vectorstore.NewRemoteEngine(emb, remote, zlog)
	default:
		log.Fatalf("unknown vector store: %s", cfg.VectorStore.Type)
		return nil
	}
}

func assembleRetriever(ctx context.Context, cfg *config.AppConfig, loader *corpus.Loader, emb embedding.Embedder, zlog zerolog.Logger) *retriever.Retriever {
	engine := buildEngine(ctx, cfg, emb, zlog)
	m := metrics.New(prometheus.NewRegistry())
	return retriever.New(loader, engine, zlog, m)
}

// runIndex builds the snapshot from the corpus and publishes it: to the
// object store in snapshot mode, or straight into the collection in qdrant
// mode.
func runIndex(ctx context.Context, cfg *config.AppConfig, loader *corpus.Loader, emb embedding.Embedder, zlog zerolog.Logger) {
	docs, err := loader.LoadAll()
	if err != nil {
		log.Fatalf("corpus load failed: %v", err)
	}
	if len(docs) == 0 {
		log.Fatalf("corpus at %s is empty", cfg.Corpus.Root)
	}

	splitter := chunker.NewSentenceChunker(cfg.Chunker.SentencesPerChunk, cfg.Chunker.OverlapSentences)
	builder := index.NewBuilder(emb, splitter, zlog)
	snap, err := builder.Build(ctx, cfg.Index.Version, docs)
	if err != nil {
		log.Fatalf("index build failed: %v", err)
	}

	if cfg.VectorStore.Type == "qdrant" {
		if cfg.VectorStore.Qdrant == nil {
			log.Fatalf("qdrant config missing")
		}
		remote := qdrant.NewStore(qdrant.Config{
			URL:        cfg.VectorStore.Qdrant.URL,
			APIKey:     cfg.VectorStore.Qdrant.APIKey,
			Collection: cfg.VectorStore.Qdrant.Collection,
			Timeout:    time.Duration(cfg.VectorStore.Qdrant.TimeoutSecs) * time.Second,
		})
		if err := remote.Init(ctx, snap.Dimension); err != nil {
			log.Fatalf("qdrant init failed: %v", err)
		}
		if err := remote.Upsert(ctx, snap.Documents, snap.Vectors); err != nil {
			log.Fatalf("qdrant upsert failed: %v", err)
		}
		fmt.Printf("Indexed %d rows into qdrant collection %s\n", len(snap.Vectors), cfg.VectorStore.Qdrant.Collection)
		return
	}

	if err := snap.Write(cfg.Index.CacheDir); err != nil {
		log.Fatalf("snapshot write failed: %v", err)
	}
	objects := buildObjectStore(ctx, cfg)
	store := index.NewStore(objects, zlog)
	if err := store.Upload(ctx, cfg.Index.Version, cfg.Index.CacheDir); err != nil {
		log.Fatalf("snapshot upload failed: %v", err)
	}
	if err := index.MarkReady(cfg.Index.CacheDir, cfg.Index.Version); err != nil {
		log.Fatalf("mark ready failed: %v", err)
	}
	fmt.Printf("Published snapshot %s: %d rows, dimension %d\n", cfg.Index.Version, len(snap.Vectors), snap.Dimension)
}

func printPassages(passages []domain.Passage, country string) {
	if len(passages) == 0 {
		fmt.Println("No passages found.")
		return
	}
	if country != "" {
		fmt.Printf("Country filter: %s\n\n", country)
	}
	for _, p := range passages {
		fmt.Printf("%d. %s  (score=%.3f", p.Rank, p.Title, p.Score)
		if p.Country != "" {
			fmt.Printf(", %s", p.Country)
		}
		fmt.Println(")")
		fmt.Println(p.Content)
		fmt.Println()
	}
}

func printInfo(info domain.IndexInfo, stats corpus.Stats) {
	fmt.Printf("Status:     %s\n", info.Status)
	if info.Version != "" {
		fmt.Printf("Version:    %s\n", info.Version)
	}
	fmt.Printf("Ready:      %t\n", info.Ready)
	fmt.Printf("Documents:  %d\n", info.DocumentCount)
	if info.Dimension > 0 {
		fmt.Printf("Dimension:  %d\n", info.Dimension)
	}
	fmt.Printf("Corpus:     %d documents in %d files\n", stats.Documents, stats.Files)

	countries := make([]string, 0, len(stats.ByCountry))
	for c := range stats.ByCountry {
		countries = append(countries, c)
	}
	sort.Strings(countries)
	for _, c := range countries {
		name := c
		if name == "" {
			name = "general"
		}
		fmt.Printf("  %-12s %d\n", name, stats.ByCountry[c])
	}
}
