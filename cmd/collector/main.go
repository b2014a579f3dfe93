// Command collector subscribes to route-decision events and logs them as
// training examples. Feature vectors are recomputed from the decision payload
// with the same pure extractors the API used, so the stored examples match
// what the models will see at inference time.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"

	"github.com/josephvaleri/giuseppe-aisomm-sub000/engine/domain"
	"github.com/josephvaleri/giuseppe-aisomm-sub000/engine/features"
	"github.com/josephvaleri/giuseppe-aisomm-sub000/engine/training"
	"github.com/josephvaleri/giuseppe-aisomm-sub000/pkg/fn"
	"github.com/josephvaleri/giuseppe-aisomm-sub000/pkg/modelstore"
	"github.com/josephvaleri/giuseppe-aisomm-sub000/pkg/natsutil"
)

// DecisionSubject must match the publisher in cmd/api.
const DecisionSubject = "giuseppe.decisions"

// Config holds all environment-based configuration.
type Config struct {
	NATSURL     string
	ModelDBPath string
}

func loadConfig() Config {
	return Config{
		NATSURL:     envOr("NATS_URL", nats.DefaultURL),
		ModelDBPath: envOr("MODEL_DB_PATH", "giuseppe.db"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(loadConfig(), logger); err != nil {
		logger.Error("collector exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := modelstore.Open(cfg.ModelDBPath)
	if err != nil {
		return fmt.Errorf("open model store: %w", err)
	}
	defer store.Close()

	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return fmt.Errorf("nats connect: %w", err)
	}
	defer nc.Close()

	rec := newRecorder(store, features.SeedDictionaries(), logger)

	sub, err := natsutil.Subscribe(nc, DecisionSubject, func(ctx context.Context, d domain.RouteDecision) {
		rec.record(ctx, d)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", DecisionSubject, err)
	}
	defer sub.Unsubscribe()

	logger.Info("collector listening", "subject", DecisionSubject)
	<-ctx.Done()
	logger.Info("shutdown signal received")
	return nil
}

// exampleStore is the write boundary the recorder needs.
type exampleStore interface {
	AddExample(ctx context.Context, ex training.Example) error
}

// recorder converts decisions into stored training examples.
type recorder struct {
	store  exampleStore
	dicts  *features.Dictionaries
	logger *slog.Logger
}

func newRecorder(store exampleStore, dicts *features.Dictionaries, logger *slog.Logger) *recorder {
	return &recorder{store: store, dicts: dicts, logger: logger}
}

// record logs one intent example and one route example per decision.
// Labels are bootstrap heuristics: the intent label marks wine-domain
// questions, the route label marks decisions the joins path answered.
// Reranker examples need explicit user feedback and are not derivable here.
func (r *recorder) record(ctx context.Context, d domain.RouteDecision) {
	qf := features.ExtractQuestion(d.Question, r.dicts)

	// Empty passages carry no retrieval signal and would skew the
	// aggregate features toward zero.
	passages := fn.Filter(d.Passages, func(p domain.RankedPassage) bool { return p.Text != "" })
	candidates := make([]domain.CandidatePassage, len(passages))
	for i, p := range passages {
		candidates[i] = domain.CandidatePassage{
			Text:     p.Text,
			Score:    p.OriginalScore,
			SourceID: p.SourceID,
		}
	}
	rf := features.ExtractRetrieval(d.Question, candidates, r.dicts, features.DefaultSourceClassifier, features.AcceptanceRates{})
	rof := features.ExtractRoute(d.AnsweredByJoins, qf, rf)

	meta := map[string]string{"decision_id": d.ID}

	intentEx := training.Example{
		Kind:     training.KindIntent,
		Features: qf.Vector(),
		Label:    b2l(!d.RedirectNonWine),
		Meta:     meta,
	}
	if err := r.store.AddExample(ctx, intentEx); err != nil {
		r.logger.Error("store intent example", "decision_id", d.ID, "err", err)
	}

	routeEx := training.Example{
		Kind:     training.KindRoute,
		Features: rof.Vector(),
		Label:    b2l(d.AnsweredByJoins),
		Meta:     meta,
	}
	if err := r.store.AddExample(ctx, routeEx); err != nil {
		r.logger.Error("store route example", "decision_id", d.ID, "err", err)
	}

	r.logger.Info("decision recorded", "decision_id", d.ID, "passages", len(d.Passages))
}

func b2l(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
