package routing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"testing"

	"github.com/josephvaleri/giuseppe-aisomm-sub000/engine/domain"
	"github.com/josephvaleri/giuseppe-aisomm-sub000/engine/features"
	"github.com/josephvaleri/giuseppe-aisomm-sub000/engine/training"
)

// fakeStore serves canned artifacts per kind.
type fakeStore struct {
	artifacts map[training.Kind]training.Artifact
	loadErr   error
}

func (f *fakeStore) SaveArtifact(context.Context, training.Artifact) (int, error) {
	return 0, fmt.Errorf("read-only")
}

func (f *fakeStore) ListArtifacts(context.Context) ([]training.Artifact, error) {
	var out []training.Artifact
	for _, a := range f.artifacts {
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeStore) LoadArtifact(_ context.Context, kind training.Kind, version int) (training.Artifact, error) {
	if f.loadErr != nil {
		return training.Artifact{}, f.loadErr
	}
	a, ok := f.artifacts[kind]
	if !ok || a.Version != version {
		return training.Artifact{}, domain.ErrArtifactNotFound
	}
	return a, nil
}

func (f *fakeStore) ActiveVersions(context.Context) (map[training.Kind]int, error) {
	out := make(map[training.Kind]int)
	for kind, a := range f.artifacts {
		out[kind] = a.Version
	}
	return out, nil
}

func (f *fakeStore) SetActiveVersion(context.Context, training.Kind, int) error { return nil }

// weightsFor builds a stored weight map sized to a kind's schema, with every
// weight set to w.
func weightsFor(kind training.Kind, w, bias float64) map[string]float64 {
	out := make(map[string]float64)
	for i := 0; i < kind.Schema().Len(); i++ {
		out[fmt.Sprintf("feature_%d", i)] = w
	}
	out["bias"] = bias
	return out
}

func newEngine(store training.ArtifactStore) *Engine {
	return New(store, slog.Default())
}

func wineQuestion() features.QuestionFeatures {
	return features.ExtractQuestion("What grapes grow in Tuscany?", features.SeedDictionaries())
}

func TestPredictIntentWithoutModelUsesFlags(t *testing.T) {
	e := newEngine(&fakeStore{})
	scores := e.PredictIntent(context.Background(), wineQuestion())

	if scores.Grape != 0.8 || scores.Region != 0.8 {
		t.Fatalf("set flags should score 0.8: %+v", scores)
	}
	if scores.Joke != 0.2 || scores.NonDomain != 0.2 {
		t.Fatalf("unset flags should score 0.2: %+v", scores)
	}
}

func TestPredictIntentWithModel(t *testing.T) {
	store := &fakeStore{artifacts: map[training.Kind]training.Artifact{
		training.KindIntent: {
			Kind: training.KindIntent, Version: 1,
			Weights: weightsFor(training.KindIntent, 0, 2),
		},
	}}
	e := newEngine(store)
	scores := e.PredictIntent(context.Background(), wineQuestion())

	want := 1 / (1 + math.Exp(-2.0))
	if math.Abs(scores.Grape-want) > 1e-12 || scores.Grape != scores.NonDomain {
		t.Fatalf("scores = %+v, want shared scalar %v", scores, want)
	}
}

func TestPredictIntentNonFiniteFallsBack(t *testing.T) {
	weights := weightsFor(training.KindIntent, 0, 0)
	weights["feature_0"] = math.NaN()
	store := &fakeStore{artifacts: map[training.Kind]training.Artifact{
		training.KindIntent: {Kind: training.KindIntent, Version: 1, Weights: weights},
	}}
	e := newEngine(store)
	scores := e.PredictIntent(context.Background(), wineQuestion())

	// char_len is nonzero, so NaN weight poisons the score; the flag rule applies.
	if scores.Grape != 0.8 || scores.Joke != 0.2 {
		t.Fatalf("expected flag fallback, got %+v", scores)
	}
}

func TestRerankWithoutModelIsPassthrough(t *testing.T) {
	e := newEngine(&fakeStore{})
	candidates := []domain.CandidatePassage{
		{Text: "first", Score: 0.9, SourceID: "a"},
		{Text: "second", Score: 0.5, SourceID: "b"},
	}
	ranked := e.RerankCandidates(context.Background(), candidates, wineQuestion(), features.RetrievalFeatures{})

	if len(ranked) != 2 {
		t.Fatalf("got %d ranked, want 2", len(ranked))
	}
	for i, r := range ranked {
		if r.SourceID != candidates[i].SourceID {
			t.Fatalf("order changed without a model: %v", ranked)
		}
		if r.Score != r.OriginalScore || r.Score != candidates[i].Score {
			t.Fatalf("scores mutated without a model: %+v", r)
		}
	}
}

func TestRerankEmptyCandidates(t *testing.T) {
	e := newEngine(&fakeStore{})
	ranked := e.RerankCandidates(context.Background(), nil, wineQuestion(), features.RetrievalFeatures{})
	if len(ranked) != 0 {
		t.Fatalf("got %d ranked, want 0", len(ranked))
	}
}

func TestRerankWithModelKeepsOriginalScore(t *testing.T) {
	// original_score is the last schema field; weighting only it makes the
	// model prefer high retrieval scores, so order is predictable.
	weights := weightsFor(training.KindReranker, 0, 0)
	weights[fmt.Sprintf("feature_%d", features.RerankSchema.Index("original_score"))] = 10
	store := &fakeStore{artifacts: map[training.Kind]training.Artifact{
		training.KindReranker: {Kind: training.KindReranker, Version: 1, Weights: weights},
	}}
	e := newEngine(store)

	candidates := []domain.CandidatePassage{
		{Text: "weak", Score: 0.2, SourceID: "a"},
		{Text: "strong", Score: 0.9, SourceID: "b"},
	}
	ranked := e.RerankCandidates(context.Background(), candidates, wineQuestion(), features.RetrievalFeatures{})

	if ranked[0].SourceID != "b" {
		t.Fatalf("expected strong candidate first, got %v", ranked)
	}
	if ranked[0].OriginalScore != 0.9 || ranked[1].OriginalScore != 0.2 {
		t.Fatalf("original scores lost: %v", ranked)
	}
	if ranked[0].Score == ranked[0].OriginalScore {
		t.Fatal("model score should differ from the retrieval score")
	}
}

func TestPredictRouteDeterministicRule(t *testing.T) {
	e := newEngine(&fakeStore{})
	ctx := context.Background()

	cases := []struct {
		name string
		rof  features.RouteFeatures
		want float64
	}{
		{"joins and strong retrieval", features.RouteFeatures{CanAnswerFromJoins: true, RetrievalConf: 0.71}, 0.8},
		{"joins but weak retrieval", features.RouteFeatures{CanAnswerFromJoins: true, RetrievalConf: 0.7}, 0.3},
		{"no joins", features.RouteFeatures{CanAnswerFromJoins: false, RetrievalConf: 0.99}, 0.3},
		{"nothing", features.RouteFeatures{}, 0.3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := e.PredictRoute(ctx, tc.rof); got != tc.want {
				t.Fatalf("PredictRoute = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestPredictRouteNonFiniteFallsBackToRule(t *testing.T) {
	weights := weightsFor(training.KindRoute, 0, 0)
	weights["feature_1"] = math.NaN() // retrieval_confidence
	store := &fakeStore{artifacts: map[training.Kind]training.Artifact{
		training.KindRoute: {Kind: training.KindRoute, Version: 1, Weights: weights},
	}}
	e := newEngine(store)

	rof := features.RouteFeatures{CanAnswerFromJoins: true, RetrievalConf: 0.9}
	if got := e.PredictRoute(context.Background(), rof); got != 0.8 {
		t.Fatalf("PredictRoute = %v, want rule fallback 0.8", got)
	}
}

func TestLoadRejectsSchemaMismatch(t *testing.T) {
	store := &fakeStore{artifacts: map[training.Kind]training.Artifact{
		training.KindRoute: {
			Kind: training.KindRoute, Version: 1,
			Weights: map[string]float64{"feature_0": 1, "bias": 0},
		},
	}}
	e := newEngine(store)

	// Load fails, so the deterministic rule serves the request.
	rof := features.RouteFeatures{CanAnswerFromJoins: true, RetrievalConf: 0.9}
	if got := e.PredictRoute(context.Background(), rof); got != 0.8 {
		t.Fatalf("PredictRoute = %v, want 0.8 via rule after load failure", got)
	}
}

func TestReloadPicksUpNewArtifacts(t *testing.T) {
	store := &fakeStore{}
	e := newEngine(store)
	ctx := context.Background()

	rof := features.RouteFeatures{}
	if got := e.PredictRoute(ctx, rof); got != 0.3 {
		t.Fatalf("initial PredictRoute = %v, want 0.3", got)
	}

	store.artifacts = map[training.Kind]training.Artifact{
		training.KindRoute: {
			Kind: training.KindRoute, Version: 1,
			Weights: weightsFor(training.KindRoute, 0, 5),
		},
	}
	if err := e.Reload(ctx); err != nil {
		t.Fatal(err)
	}
	got := e.PredictRoute(ctx, rof)
	want := 1 / (1 + math.Exp(-5.0))
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("PredictRoute after reload = %v, want %v", got, want)
	}
}

func TestShouldRedirectNonWineBoundary(t *testing.T) {
	cases := []struct {
		score, threshold float64
		want             bool
	}{
		{0.71, 0.7, true},
		{0.7, 0.7, false}, // strictly greater, not >=
		{0.69, 0.7, false},
		{0.9, DefaultRedirectThreshold, true},
	}
	for _, tc := range cases {
		got := ShouldRedirectNonWine(domain.IntentScores{NonDomain: tc.score}, tc.threshold)
		if got != tc.want {
			t.Fatalf("ShouldRedirectNonWine(%v, %v) = %v, want %v", tc.score, tc.threshold, got, tc.want)
		}
	}
}
