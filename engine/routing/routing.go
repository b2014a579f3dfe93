// Package routing is the inference side of the model suite: it loads the
// active model per kind and produces intent scores, a reranked candidate
// ordering, and a routing confidence. Every learned path carries a
// deterministic fallback so the engine still answers when no model is
// trained or a model misbehaves.
package routing

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/josephvaleri/giuseppe-aisomm-sub000/engine/domain"
	"github.com/josephvaleri/giuseppe-aisomm-sub000/engine/features"
	"github.com/josephvaleri/giuseppe-aisomm-sub000/engine/model"
	"github.com/josephvaleri/giuseppe-aisomm-sub000/engine/training"
)

// DefaultRedirectThreshold is the non-domain score above which a question is
// redirected. Callers may override it per call.
const DefaultRedirectThreshold = 0.7

// Deterministic fallback constants, shared by the intent and route rules.
const (
	flagScoreHigh  = 0.8
	flagScoreLow   = 0.2
	routeHighConf  = 0.8
	routeLowConf   = 0.3
	routeTop1Floor = 0.7
)

// Engine holds the lazily-loaded model cache. Models are read-only once
// loaded and shared freely across concurrent requests.
type Engine struct {
	store  training.ArtifactStore
	logger *slog.Logger

	mu      sync.Mutex
	loaded  bool
	loadErr error
	models  map[training.Kind]*model.LinearModel
}

// New creates an Engine. Models are loaded on first use.
func New(store training.ArtifactStore, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:  store,
		logger: logger,
		models: map[training.Kind]*model.LinearModel{},
	}
}

// loadModels populates the cache at most once; concurrent first calls wait on
// a single load and never observe a partial cache. A load error is sticky
// until Reload.
func (e *Engine) loadModels(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loaded {
		return e.loadErr
	}
	e.loadErr = e.loadLocked(ctx)
	e.loaded = true
	return e.loadErr
}

// Reload discards the cache and loads the current active artifacts.
func (e *Engine) Reload(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loadErr = e.loadLocked(ctx)
	e.loaded = true
	return e.loadErr
}

func (e *Engine) loadLocked(ctx context.Context) error {
	fresh := map[training.Kind]*model.LinearModel{}

	active, err := e.store.ActiveVersions(ctx)
	if err != nil {
		e.models = fresh
		return err
	}

	for _, kind := range training.Kinds {
		version, ok := active[kind]
		if !ok {
			// No active artifact: the deterministic rule serves this kind.
			e.logger.Info("no active model, using deterministic rule", "kind", kind)
			continue
		}
		artifact, err := e.store.LoadArtifact(ctx, kind, version)
		if err != nil {
			e.models = fresh
			return err
		}
		m, err := model.Import(artifact.Weights, kind.Schema().Len(), model.ImportOptions{})
		if err != nil {
			e.models = fresh
			return err
		}
		fresh[kind] = m
		e.logger.Info("model loaded", "kind", kind, "version", version)
	}

	e.models = fresh
	return nil
}

func (e *Engine) modelFor(ctx context.Context, kind training.Kind) *model.LinearModel {
	if err := e.loadModels(ctx); err != nil {
		e.logger.Warn("model load failed, using deterministic rules", "err", err)
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.models[kind]
}

func flagScore(b bool) float64 {
	if b {
		return flagScoreHigh
	}
	return flagScoreLow
}

// PredictIntent scores each intent category. Without a trained model the
// rule-based flags double as a coarse classifier (0.8 set / 0.2 unset). With
// a model, a single shared scalar is reused across all categories; the schema
// is not yet per-category, so per-intent model scores would be fabricated.
func (e *Engine) PredictIntent(ctx context.Context, qf features.QuestionFeatures) domain.IntentScores {
	m := e.modelFor(ctx, training.KindIntent)
	if m == nil {
		return e.intentFromFlags(qf)
	}

	score := m.Predict(qf.Vector())
	if !isFinite(score) {
		e.logger.Warn("intent model produced non-finite score, falling back to flags", "score", score)
		return e.intentFromFlags(qf)
	}
	return domain.IntentScores{
		Pairing: score, Region: score, Grape: score, Cellar: score,
		Recommendation: score, Joke: score, NonDomain: score,
	}
}

func (e *Engine) intentFromFlags(qf features.QuestionFeatures) domain.IntentScores {
	return domain.IntentScores{
		Pairing:        flagScore(qf.Intents.Pairing),
		Region:         flagScore(qf.Intents.Region),
		Grape:          flagScore(qf.Intents.Grape),
		Cellar:         flagScore(qf.Intents.Cellar),
		Recommendation: flagScore(qf.Intents.Recommendation),
		Joke:           flagScore(qf.Intents.Joke),
		NonDomain:      flagScore(qf.Intents.NonDomain),
	}
}

// RerankCandidates reorders candidates by a learned relevance score. Without
// a reranker model (or with nothing to rank) candidates pass through in their
// original order with Score == OriginalScore.
func (e *Engine) RerankCandidates(ctx context.Context, candidates []domain.CandidatePassage, qf features.QuestionFeatures, rf features.RetrievalFeatures) []domain.RankedPassage {
	ranked := make([]domain.RankedPassage, len(candidates))
	for i, c := range candidates {
		ranked[i] = domain.RankedPassage{
			Text:          c.Text,
			SourceID:      c.SourceID,
			Score:         c.Score,
			OriginalScore: c.Score,
		}
	}
	if len(candidates) == 0 {
		return ranked
	}

	m := e.modelFor(ctx, training.KindReranker)
	if m == nil {
		return ranked
	}

	for i, c := range candidates {
		vec := features.RerankVector(qf, rf, len(c.Text), c.Score)
		score := m.Predict(vec)
		if !isFinite(score) {
			e.logger.Warn("reranker produced non-finite score, keeping original", "source_id", c.SourceID)
			score = c.Score
		}
		ranked[i].Score = score
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// PredictRoute returns the routing confidence in [0,1]. The deterministic
// rule applies when no router model is loaded; a non-finite model score also
// falls back to the rule, logged as a warning; a bad confidence would
// corrupt every downstream decision.
func (e *Engine) PredictRoute(ctx context.Context, rof features.RouteFeatures) float64 {
	m := e.modelFor(ctx, training.KindRoute)
	if m == nil {
		return routeRule(rof)
	}

	score := m.Predict(rof.Vector())
	if !isFinite(score) {
		e.logger.Warn("router produced non-finite score, using deterministic rule", "score", score)
		return routeRule(rof)
	}
	return score
}

func routeRule(rof features.RouteFeatures) float64 {
	if rof.CanAnswerFromJoins && rof.RetrievalConf > routeTop1Floor {
		return routeHighConf
	}
	return routeLowConf
}

// ShouldRedirectNonWine reports whether the non-domain intent score strictly
// exceeds the threshold. Pass DefaultRedirectThreshold unless tuned.
func ShouldRedirectNonWine(scores domain.IntentScores, threshold float64) bool {
	return scores.NonDomain > threshold
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
