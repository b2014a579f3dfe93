// Command giuseppectl is the operations CLI: it trains and promotes model
// artifacts, seeds the knowledge graph, and ingests passages into the vector
// store.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/spf13/cobra"

	"github.com/josephvaleri/giuseppe-aisomm-sub000/engine/graph"
	"github.com/josephvaleri/giuseppe-aisomm-sub000/engine/semantic"
	"github.com/josephvaleri/giuseppe-aisomm-sub000/engine/training"
	"github.com/josephvaleri/giuseppe-aisomm-sub000/pkg/embed"
	"github.com/josephvaleri/giuseppe-aisomm-sub000/pkg/fn"
	"github.com/josephvaleri/giuseppe-aisomm-sub000/pkg/modelstore"
)

var (
	dbPath   string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "giuseppectl",
	Short: "Operations CLI for the Giuseppe question engine",
	Long: `giuseppectl manages the offline side of Giuseppe: training and promoting
model artifacts, seeding the wine knowledge graph, and ingesting passages
into the vector store.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if logLevel == "debug" {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", envOr("MODEL_DB_PATH", "giuseppe.db"), "path to the model store database")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (info, debug)")

	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(promoteCmd)
	rootCmd.AddCommand(listModelsCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(ingestCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func openStore() (*modelstore.Store, error) {
	return modelstore.Open(dbPath)
}

var trainEpochs int
var trainPromote bool

var trainCmd = &cobra.Command{
	Use:   "train [kind...]",
	Short: "Train new model artifacts from logged examples",
	Long: `Train fits a new linear model per kind from the logged training examples
and stores it as a fresh versioned artifact. Without arguments all kinds
(intent, reranker, route) are trained; kinds with too few examples fail
individually without stopping the others.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		kinds := training.Kinds
		if len(args) > 0 {
			kinds = make([]training.Kind, len(args))
			for i, a := range args {
				kinds[i] = training.Kind(a)
			}
		}

		opts := training.DefaultOptions()
		if trainEpochs > 0 {
			opts.Epochs = trainEpochs
		}
		opts.CreatedBy = "giuseppectl"
		pipeline := training.New(store, store, opts, slog.Default())

		ctx := cmd.Context()
		failed := 0
		for _, kind := range kinds {
			artifact, err := pipeline.Train(ctx, kind)
			if err != nil {
				failed++
				fmt.Fprintf(os.Stderr, "train %s: %v\n", kind, err)
				continue
			}
			fmt.Printf("trained %s v%d (accuracy %.3f, %d examples)\n",
				artifact.Kind, artifact.Version,
				artifact.Metrics["accuracy"], int(artifact.Metrics["n_samples"]))
		}

		if trainPromote {
			if err := pipeline.UpdateActiveVersions(ctx); err != nil {
				return err
			}
			fmt.Println("active pointers moved to newest artifacts")
		}
		if failed == len(kinds) {
			return fmt.Errorf("all %d kinds failed to train", failed)
		}
		return nil
	},
}

var promoteCmd = &cobra.Command{
	Use:   "promote [kind] [version]",
	Short: "Point a kind's active model at a specific version",
	Long: `Promote sets the active artifact for one kind. With no arguments it moves
every kind's pointer to its most recently created artifact.`,
	Args: cobra.RangeArgs(0, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		if len(args) == 0 {
			pipeline := training.New(store, store, training.DefaultOptions(), slog.Default())
			if err := pipeline.UpdateActiveVersions(ctx); err != nil {
				return err
			}
			fmt.Println("active pointers moved to newest artifacts")
			return nil
		}
		if len(args) != 2 {
			return fmt.Errorf("promote needs both kind and version, or neither")
		}

		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("version %q is not a number", args[1])
		}
		kind := training.Kind(args[0])
		if err := store.SetActiveVersion(ctx, kind, version); err != nil {
			return err
		}
		fmt.Printf("%s active version set to %d\n", kind, version)
		return nil
	},
}

var listModelsCmd = &cobra.Command{
	Use:   "list-models",
	Short: "List stored model artifacts and active versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		artifacts, err := store.ListArtifacts(ctx)
		if err != nil {
			return err
		}
		active, err := store.ActiveVersions(ctx)
		if err != nil {
			return err
		}

		if len(artifacts) == 0 {
			fmt.Println("no artifacts stored")
			return nil
		}
		for _, a := range artifacts {
			marker := ""
			if active[a.Kind] == a.Version {
				marker = " (active)"
			}
			fmt.Printf("%-10s v%-4d accuracy %.3f  %s  by %s%s\n",
				a.Kind, a.Version, a.Metrics["accuracy"],
				a.CreatedAt.Format("2006-01-02 15:04"), a.CreatedBy, marker)
		}
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the knowledge graph with the starter wine hierarchy",
	RunE: func(cmd *cobra.Command, args []string) error {
		driver, err := neo4j.NewDriverWithContext(
			envOr("NEO4J_URL", "neo4j://localhost:7687"),
			neo4j.BasicAuth(envOr("NEO4J_USER", "neo4j"), envOr("NEO4J_PASS", "password"), ""))
		if err != nil {
			return fmt.Errorf("neo4j driver: %w", err)
		}
		ctx := cmd.Context()
		defer driver.Close(ctx)

		if err := graph.New(driver).Seed(ctx); err != nil {
			return err
		}
		fmt.Println("knowledge graph seeded")
		return nil
	},
}

// ingestPassage is one line of the JSONL ingest format.
type ingestPassage struct {
	ID      string            `json:"id,omitempty"`
	Content string            `json:"content"`
	DocID   string            `json:"doc_id"`
	Source  string            `json:"source,omitempty"`
	Meta    map[string]string `json:"meta,omitempty"`
}

var ingestWorkers int

var ingestCmd = &cobra.Command{
	Use:   "ingest <passages.jsonl>",
	Short: "Embed and upsert passages into the vector store",
	Long: `Ingest reads one JSON passage per line ({"content": ..., "doc_id": ...,
"source": ...}), embeds each passage, and upserts the vectors into Qdrant.
Existing points for a doc_id are replaced.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		var passages []ingestPassage
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var p ingestPassage
			if err := json.Unmarshal(line, &p); err != nil {
				return fmt.Errorf("parse passage line: %w", err)
			}
			if p.Content == "" || p.DocID == "" {
				return fmt.Errorf("passage missing content or doc_id")
			}
			if p.ID == "" {
				p.ID = uuid.NewString()
			}
			passages = append(passages, p)
		}
		if err := scanner.Err(); err != nil {
			return err
		}
		if len(passages) == 0 {
			return fmt.Errorf("no passages in %s", args[0])
		}

		embedOpts := embed.DefaultOptions()
		embedOpts.BaseURL = envOr("EMBED_URL", embedOpts.BaseURL)
		embedOpts.Model = envOr("EMBED_MODEL", embedOpts.Model)
		embedder := embed.New(embedOpts)

		texts := fn.Map(passages, func(p ingestPassage) string { return p.Content })
		vectors, err := embedder.EmbedBatch(ctx, texts, ingestWorkers)
		if err != nil {
			return fmt.Errorf("embed passages: %w", err)
		}

		store, err := semantic.New(
			envOr("QDRANT_URL", "localhost:6334"),
			envOr("QDRANT_COLLECTION", "giuseppe_passages"))
		if err != nil {
			return fmt.Errorf("qdrant connect: %w", err)
		}
		defer store.Close()

		if err := store.EnsureCollection(ctx, len(vectors[0])); err != nil {
			return err
		}

		// Replace any prior points per document before upserting.
		for _, docID := range fn.Unique(fn.Map(passages, func(p ingestPassage) string { return p.DocID })) {
			if err := store.DeleteByDocID(ctx, docID); err != nil {
				return err
			}
		}

		records := make([]semantic.PassageRecord, len(passages))
		for i, p := range passages {
			payload := map[string]any{
				"content": p.Content,
				"doc_id":  p.DocID,
				"source":  p.Source,
			}
			for k, v := range p.Meta {
				payload[k] = v
			}
			records[i] = semantic.PassageRecord{ID: p.ID, Embedding: vectors[i], Payload: payload}
		}
		// Qdrant handles large batches, but chunking keeps individual
		// gRPC messages small for big corpora.
		for _, batch := range fn.Chunk(records, 128) {
			if err := store.Upsert(ctx, batch); err != nil {
				return err
			}
		}

		fmt.Printf("ingested %d passages across %d documents\n",
			len(passages), len(fn.Unique(fn.Map(passages, func(p ingestPassage) string { return p.DocID }))))
		return nil
	},
}

func init() {
	trainCmd.Flags().IntVar(&trainEpochs, "epochs", 0, "training epochs (default from pipeline)")
	trainCmd.Flags().BoolVar(&trainPromote, "promote", false, "move active pointers to the new artifacts")
	ingestCmd.Flags().IntVar(&ingestWorkers, "workers", 4, "concurrent embedding requests")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
