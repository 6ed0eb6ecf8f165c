package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/techcoach/careerkb/catalog"
	"github.com/techcoach/careerkb/classify"
	"github.com/techcoach/careerkb/config"
	"github.com/techcoach/careerkb/database"
	"github.com/techcoach/careerkb/embeddings"
	"github.com/techcoach/careerkb/ingest"
	"github.com/techcoach/careerkb/llm"
	"github.com/techcoach/careerkb/registry"
	"github.com/techcoach/careerkb/retrieve"
	"github.com/techcoach/careerkb/store"
	"github.com/techcoach/careerkb/vectorstore"
)

func main() {
	logger := log.New(os.Stderr, "careerkb: ", log.LstdFlags)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1], os.Args[2:], logger); err != nil {
		logger.Fatalf("%s failed: %v", os.Args[1], err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: careerkb <command> [flags]

commands:
  ingest       ingest a document file into the knowledge base
  search       search across all populated collections
  context      build a prompt-ready context block for a query
  collections  list the configured collections
  documents    list cataloged documents
  stats        show per-collection document and chunk counts
  reset        empty one collection, or all of them`)
}

func run(ctx context.Context, command string, args []string, logger *log.Logger) error {
	cfg := config.Load()

	docStore, cleanup, err := buildStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	switch command {
	case "ingest":
		return runIngest(ctx, docStore, args)
	case "search":
		return runSearch(ctx, docStore, args)
	case "context":
		return runContext(ctx, docStore, args)
	case "collections":
		return runCollections(ctx, docStore, args)
	case "documents":
		return runDocuments(ctx, docStore, args)
	case "stats":
		return runStats(ctx, docStore)
	case "reset":
		return runReset(ctx, docStore, args)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func buildStore(ctx context.Context, cfg config.Config, logger *log.Logger) (*store.DocumentStore, func(), error) {
	reg, err := registry.New()
	if err != nil {
		return nil, nil, fmt.Errorf("build collection registry: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := database.EnsureSchema(ctx, pool, cfg.Embeddings.Dimension); err != nil {
		pool.Close()
		return nil, nil, err
	}

	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	llmClient, err := llm.NewClient(cfg)
	if err != nil {
		// Classification degrades to the filename heuristic without a model.
		logger.Printf("language model unavailable, classification will use the filename heuristic: %v", err)
		llmClient = nil
	}

	files, err := ingest.NewFileStore(cfg.DocumentsDir, cfg.TempDir, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	vectors := vectorstore.NewPostgresStore(pool, embedder, logger)
	cat := catalog.NewPostgresStore(pool)
	classifier := classify.New(llmClient, reg, logger)
	pipeline := ingest.NewPipeline(classifier, vectors, cat, files, reg, cfg.MaxDocumentChars, logger)
	engine := retrieve.NewEngine(vectors, reg, logger)

	docStore := store.New(pipeline, engine, vectors, cat, files, reg, logger)
	if err := docStore.Start(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("restore collection state: %w", err)
	}
	return docStore, pool.Close, nil
}

func runIngest(ctx context.Context, docStore *store.DocumentStore, args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	path := fs.String("file", "", "path to the document to ingest")
	name := fs.String("name", "", "original filename override (defaults to the file's base name)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("-file is required")
	}

	abs, err := filepath.Abs(*path)
	if err != nil {
		return err
	}

	record, err := docStore.Ingest(ctx, ingest.RawDocument{
		SourcePath:       abs,
		OriginalFilename: *name,
	})
	if err != nil {
		return err
	}

	fmt.Printf("ingested %s\n", record.Filename)
	fmt.Printf("  id:          %s\n", record.ID)
	fmt.Printf("  collection:  %s\n", record.CollectionKey)
	fmt.Printf("  chunks:      %d\n", len(record.ChunkIDs))
	fmt.Printf("  description: %s\n", record.Description)
	return nil
}

func runSearch(ctx context.Context, docStore *store.DocumentStore, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	query := fs.String("query", "", "search query")
	topK := fs.Int("top-k", 5, "results per collection before merging")
	collections := fs.String("collections", "", "comma-separated collection keys (default: all populated)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *query == "" {
		return fmt.Errorf("-query is required")
	}

	results, err := docStore.Search(ctx, *query, splitKeys(*collections), *topK)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("no results")
		return nil
	}

	for _, result := range results {
		fmt.Printf("%2d. [%.3f] %s (%s)\n", result.RankOverall, result.Score, result.SourceFile, result.CollectionKey)
		fmt.Printf("    %s\n", snippet(result.Text, 160))
	}
	return nil
}

func runContext(ctx context.Context, docStore *store.DocumentStore, args []string) error {
	fs := flag.NewFlagSet("context", flag.ExitOnError)
	query := fs.String("query", "", "query to build context for")
	maxTokens := fs.Int("max-tokens", 2000, "approximate token budget")
	collections := fs.String("collections", "", "comma-separated collection keys (default: all populated)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *query == "" {
		return fmt.Errorf("-query is required")
	}

	block, err := docStore.BuildContext(ctx, *query, splitKeys(*collections), *maxTokens)
	if err != nil {
		return err
	}
	if block == "" {
		fmt.Println("no context available")
		return nil
	}
	fmt.Println(block)
	return nil
}

func runCollections(ctx context.Context, docStore *store.DocumentStore, args []string) error {
	fs := flag.NewFlagSet("collections", flag.ExitOnError)
	key := fs.String("key", "", "show one collection's current state")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *key != "" {
		info, err := docStore.CollectionInfo(ctx, *key)
		if err != nil {
			return err
		}
		state := "inactive"
		if info.Active {
			state = "active"
		}
		fmt.Printf("%s (%s)\n", info.Key, info.DisplayName)
		fmt.Printf("  %d documents, %d chunks, %s\n", info.Documents, info.Chunks, state)
		fmt.Printf("  chunk size %d, top-k %d\n", info.ChunkSize, info.SimilarityTopK)
		return nil
	}

	for _, def := range docStore.ListCollections() {
		fmt.Printf("%s (%s)\n", def.Key, def.DisplayName)
		fmt.Printf("  %s\n", def.Description)
		fmt.Printf("  chunk size %d, overlap %d, top-k %d\n", def.ChunkSize, def.ChunkOverlap, def.SimilarityTopK)
	}
	return nil
}

func runDocuments(ctx context.Context, docStore *store.DocumentStore, args []string) error {
	fs := flag.NewFlagSet("documents", flag.ExitOnError)
	collection := fs.String("collection", "", "limit to one collection")
	if err := fs.Parse(args); err != nil {
		return err
	}

	records, err := docStore.ListDocuments(ctx, *collection)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no documents")
		return nil
	}

	for _, record := range records {
		fmt.Printf("%s  %-20s %-40s %d chunks\n",
			record.ID, record.CollectionKey, record.Filename, len(record.ChunkIDs))
	}
	return nil
}

func runStats(ctx context.Context, docStore *store.DocumentStore) error {
	stats, err := docStore.Stats(ctx)
	if err != nil {
		return err
	}

	for _, cs := range stats.Collections {
		state := "inactive"
		if cs.Active {
			state = "active"
		}
		fmt.Printf("%-22s %4d documents %5d chunks  %s\n", cs.Key, cs.Documents, cs.Chunks, state)
	}
	fmt.Printf("total: %d documents, %d chunks\n", stats.TotalDocuments, stats.TotalChunks)
	return nil
}

func runReset(ctx context.Context, docStore *store.DocumentStore, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	collection := fs.String("collection", "", "collection to reset (empty resets all)")
	confirm := fs.Bool("yes", false, "confirm the reset")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !*confirm {
		return fmt.Errorf("reset is destructive; pass -yes to confirm")
	}

	if *collection == "" {
		if err := docStore.ResetAll(ctx); err != nil {
			return err
		}
		fmt.Println("all collections reset")
		return nil
	}

	if err := docStore.ResetCollection(ctx, *collection); err != nil {
		return err
	}
	fmt.Printf("collection %s reset\n", *collection)
	return nil
}

func splitKeys(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	keys := make([]string, 0, len(parts))
	for _, part := range parts {
		if key := strings.TrimSpace(part); key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

func snippet(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
