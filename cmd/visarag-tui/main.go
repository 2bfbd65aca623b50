package main

import (
	"context"
	"flag"
	"io"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"visarag/internal/config"
	"visarag/internal/corpus"
	"visarag/internal/embedding"
	"visarag/internal/embedding/openai"
	"visarag/internal/embedding/tfidf"
	"visarag/internal/index"
	"visarag/internal/logger"
	"visarag/internal/metrics"
	"visarag/internal/retriever"
	"visarag/internal/tui"
	"visarag/internal/vectorstore"
	"visarag/internal/vectorstore/qdrant"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/visarag/config.yaml if not provided)")
	flag.Parse()

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

	// The terminal belongs to the TUI; structured logs would corrupt it.
	zlog := logger.New(logger.Config{Level: cfg.Log.Level, Output: io.Discard})
	ctx := context.Background()

	loader := corpus.NewLoader(cfg.Corpus.Root, zlog)

	var emb embedding.Embedder
	switch cfg.Embedder.Type {
	case "tfidf", "":
		emb = tfidf.NewEmbedder()
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
		emb = client
	default:
		log.Fatalf("unknown embedder: %s", cfg.Embedder.Type)
	}

	if emb.Name() == "tfidf" {
		if docs, err := loader.LoadAll(); err == nil && len(docs) > 0 {
			texts := make([]string, len(docs))
			for i, d := range docs {
				texts[i] = d.Content
			}
			_ = emb.Prepare(texts)
		}
	}

	var engine *vectorstore.Engine
	switch cfg.VectorStore.Type {
	case "snapshot", "":
		var objects index.ObjectStore
		switch cfg.Index.Backend {
		case "local", "":
			objects = index.NewDirStore(cfg.Index.LocalRoot)
		case "gcs":
			store, err := index.NewGCSStore(ctx, cfg.Index.Bucket, cfg.Index.Prefix)
			if err != nil {
				log.Fatalf("gcs store init failed: %v", err)
			}
			objects = store
		default:
			log.Fatalf("unknown index backend: %s", cfg.Index.Backend)
		}
		engine = vectorstore.NewEngine(emb, index.NewStore(objects, zlog), cfg.Index.Version, cfg.Index.CacheDir, zlog)
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
		engine = vectorstore.NewRemoteEngine(emb, remote, zlog)
	default:
		log.Fatalf("unknown vector store: %s", cfg.VectorStore.Type)
	}

	r := retriever.New(loader, engine, zlog, metrics.New(prometheus.NewRegistry()))

	m := tui.New(r, cfg.Retriever.TopK)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		log.Fatal(err)
	}
}
