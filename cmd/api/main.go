// Package main implements the Giuseppe API server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/josephvaleri/giuseppe-aisomm-sub000/engine/answer"
	"github.com/josephvaleri/giuseppe-aisomm-sub000/engine/domain"
	"github.com/josephvaleri/giuseppe-aisomm-sub000/engine/features"
	"github.com/josephvaleri/giuseppe-aisomm-sub000/engine/graph"
	"github.com/josephvaleri/giuseppe-aisomm-sub000/engine/routing"
	"github.com/josephvaleri/giuseppe-aisomm-sub000/engine/semantic"
	"github.com/josephvaleri/giuseppe-aisomm-sub000/engine/synthesis"
	"github.com/josephvaleri/giuseppe-aisomm-sub000/pkg/embed"
	"github.com/josephvaleri/giuseppe-aisomm-sub000/pkg/metrics"
	"github.com/josephvaleri/giuseppe-aisomm-sub000/pkg/mid"
	"github.com/josephvaleri/giuseppe-aisomm-sub000/pkg/modelstore"
	"github.com/josephvaleri/giuseppe-aisomm-sub000/pkg/natsutil"
)

// DecisionSubject is the NATS subject route decisions are published on.
const DecisionSubject = "giuseppe.decisions"

// Config holds all environment-based configuration.
type Config struct {
	Port              string
	Neo4jURL          string
	Neo4jUser         string
	Neo4jPass         string
	QdrantURL         string
	Collection        string
	NATSURL           string
	EmbedURL          string
	EmbedModel        string
	ModelDBPath       string
	CORSOrigin        string
	TopK              int
	RedirectThreshold float64
}

func loadConfig() Config {
	return Config{
		Port:              envOr("PORT", "8080"),
		Neo4jURL:          envOr("NEO4J_URL", "neo4j://localhost:7687"),
		Neo4jUser:         envOr("NEO4J_USER", "neo4j"),
		Neo4jPass:         envOr("NEO4J_PASS", "password"),
		QdrantURL:         envOr("QDRANT_URL", "localhost:6334"),
		Collection:        envOr("QDRANT_COLLECTION", "giuseppe_passages"),
		NATSURL:           envOr("NATS_URL", nats.DefaultURL),
		EmbedURL:          envOr("EMBED_URL", "http://localhost:11434"),
		EmbedModel:        envOr("EMBED_MODEL", "nomic-embed-text"),
		ModelDBPath:       envOr("MODEL_DB_PATH", "giuseppe.db"),
		CORSOrigin:        envOr("CORS_ORIGIN", "*"),
		TopK:              envIntOr("TOP_K", 8),
		RedirectThreshold: envFloatOr("REDIRECT_THRESHOLD", routing.DefaultRedirectThreshold),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Model store (SQLite) ---
	store, err := modelstore.Open(cfg.ModelDBPath)
	if err != nil {
		return fmt.Errorf("open model store: %w", err)
	}
	defer store.Close()

	// --- Connect to Neo4j ---
	neo4jDriver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
	if err != nil {
		return fmt.Errorf("neo4j driver: %w", err)
	}
	defer neo4jDriver.Close(ctx)

	graphStore := graph.New(neo4jDriver)

	// --- Connect to Qdrant ---
	vectorStore, err := semantic.New(cfg.QdrantURL, cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant connect: %w", err)
	}
	defer vectorStore.Close()

	// --- Connect to NATS (optional; decisions are dropped without it) ---
	var publish answer.DecisionPublisher
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		logger.Warn("nats unavailable, decisions will not be published", "err", err)
	} else {
		defer nc.Close()
		publish = func(ctx context.Context, d domain.RouteDecision) error {
			return natsutil.Publish(ctx, nc, DecisionSubject, d)
		}
	}

	// --- Assemble the pipeline ---
	registry := metrics.New()

	// --- Dictionaries from the graph, seeds as fallback ---
	dicts := loadDictionaries(ctx, graphStore, logger)
	dictTerms := registry.Gauge("giuseppe_dictionary_terms", "entity dictionary terms currently loaded")
	dictTerms.Set(int64(dicts.Size()))

	router := routing.New(store, logger)
	synth := synthesis.New(graphStore, logger)

	embedOpts := embed.DefaultOptions()
	embedOpts.BaseURL = cfg.EmbedURL
	embedOpts.Model = cfg.EmbedModel
	embedder := embed.New(embedOpts)

	answerOpts := answer.DefaultOptions()
	answerOpts.TopK = cfg.TopK
	answerOpts.RedirectThreshold = cfg.RedirectThreshold

	svc := answer.New(
		router, synth, embedder, vectorStore, dicts,
		publish, answerOpts, logger, answer.NewMetrics(registry),
	)

	// --- Build HTTP server ---
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.Handle("GET /metrics", registry.Handler())
	mux.HandleFunc("POST /api/ask", handleAsk(svc, logger))
	mux.HandleFunc("POST /api/models/reload", handleReload(router, logger))

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("giuseppe-api"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// loadDictionaries pulls entity terms from the graph. Entity types the graph
// does not model yet, or cannot serve, keep their compiled-in seed terms.
func loadDictionaries(ctx context.Context, gs *graph.GraphStore, logger *slog.Logger) *features.Dictionaries {
	seed := features.SeedDictionaries()
	terms := make(map[domain.EntityType][]string, len(domain.EntityTypes))
	fromGraph := 0
	for _, et := range domain.EntityTypes {
		// Classifications (DOCG, AOC, ...) are not graph nodes.
		if et == domain.EntityClassification {
			for term := range seed.Terms(et) {
				terms[et] = append(terms[et], term)
			}
			continue
		}
		list, err := gs.EntityTerms(ctx, string(et))
		if err != nil || len(list) == 0 {
			if err != nil {
				logger.Warn("dictionary refresh failed, keeping seed terms", "entity", et, "err", err)
			}
			for term := range seed.Terms(et) {
				terms[et] = append(terms[et], term)
			}
			continue
		}
		terms[et] = list
		fromGraph += len(list)
	}
	logger.Info("dictionaries loaded", "graph_terms", fromGraph)
	return features.NewDictionaries(terms)
}

// --- Handlers ---

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// AskRequest is the JSON body for POST /api/ask.
type AskRequest struct {
	Question string `json:"question"`
	UserID   string `json:"user_id,omitempty"`
}

// AskResponse is the JSON response for POST /api/ask.
type AskResponse struct {
	Answer     string                 `json:"answer"`
	Source     string                 `json:"source"`
	Confidence float64                `json:"confidence"`
	DecisionID string                 `json:"decision_id"`
	Passages   []domain.RankedPassage `json:"passages,omitempty"`
}

func handleAsk(svc *answer.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		resp, err := svc.Answer(r.Context(), domain.Question{Text: req.Question, UserID: req.UserID})
		if err != nil {
			var verr *domain.ValidationError
			if errors.As(err, &verr) || errors.Is(err, domain.ErrInvalidQuestion) || errors.Is(err, domain.ErrQuestionTooShort) {
				http.Error(w, `{"error":"invalid question"}`, http.StatusBadRequest)
				return
			}
			logger.Error("answer pipeline failed", "err", err)
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(AskResponse{
			Answer:     resp.Answer,
			Source:     string(resp.Source),
			Confidence: resp.Decision.Confidence,
			DecisionID: resp.Decision.ID,
			Passages:   resp.Decision.Passages,
		})
	}
}

func handleReload(router *routing.Engine, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := router.Reload(r.Context()); err != nil {
			logger.Error("model reload failed", "err", err)
			http.Error(w, `{"error":"reload failed"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "reloaded"})
	}
}
