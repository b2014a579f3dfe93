package modelstore

import (
	"context"
	"errors"
	"testing"

	"github.com/josephvaleri/giuseppe-aisomm-sub000/engine/domain"
	"github.com/josephvaleri/giuseppe-aisomm-sub000/engine/training"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveArtifactAssignsIncrementingVersions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := training.Artifact{
		Kind:      training.KindIntent,
		Weights:   map[string]float64{"feature_0": 0.5, "bias": -0.1},
		Schema:    []string{"char_len"},
		Metrics:   map[string]float64{"accuracy": 0.9},
		CreatedBy: "test",
	}

	v1, err := s.SaveArtifact(ctx, a)
	if err != nil {
		t.Fatal(err)
	}
	v2, err := s.SaveArtifact(ctx, a)
	if err != nil {
		t.Fatal(err)
	}
	if v1 != 1 || v2 != 2 {
		t.Fatalf("versions = %d, %d, want 1, 2", v1, v2)
	}

	// Versions are scoped per kind.
	a.Kind = training.KindRoute
	v, err := s.SaveArtifact(ctx, a)
	if err != nil {
		t.Fatal(err)
	}
	if v != 1 {
		t.Fatalf("route version = %d, want 1", v)
	}
}

func TestLoadArtifactRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := training.Artifact{
		Kind:      training.KindReranker,
		Weights:   map[string]float64{"feature_0": 1.25, "feature_1": -2.5, "bias": 0.75},
		Schema:    []string{"top1_score", "mean_score"},
		Metrics:   map[string]float64{"accuracy": 0.85, "n_samples": 120},
		CreatedBy: "pipeline",
	}
	v, err := s.SaveArtifact(ctx, in)
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.LoadArtifact(ctx, training.KindReranker, v)
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind != in.Kind || got.Version != v || got.CreatedBy != "pipeline" {
		t.Fatalf("unexpected artifact: %+v", got)
	}
	if got.Weights["feature_1"] != -2.5 || got.Weights["bias"] != 0.75 {
		t.Fatalf("weights = %v", got.Weights)
	}
	if len(got.Schema) != 2 || got.Schema[0] != "top1_score" {
		t.Fatalf("schema = %v", got.Schema)
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("created_at not set")
	}
}

func TestLoadArtifactNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.LoadArtifact(context.Background(), training.KindIntent, 99)
	if !errors.Is(err, domain.ErrArtifactNotFound) {
		t.Fatalf("err = %v, want ErrArtifactNotFound", err)
	}
}

func TestActiveVersionPointer(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := training.Artifact{
		Kind:    training.KindIntent,
		Weights: map[string]float64{"bias": 0},
		Schema:  []string{"x"},
		Metrics: map[string]float64{},
	}
	v1, _ := s.SaveArtifact(ctx, a)
	v2, _ := s.SaveArtifact(ctx, a)

	if err := s.SetActiveVersion(ctx, training.KindIntent, v1); err != nil {
		t.Fatal(err)
	}
	active, err := s.ActiveVersions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if active[training.KindIntent] != v1 {
		t.Fatalf("active = %d, want %d", active[training.KindIntent], v1)
	}

	// Repointing overwrites.
	if err := s.SetActiveVersion(ctx, training.KindIntent, v2); err != nil {
		t.Fatal(err)
	}
	active, _ = s.ActiveVersions(ctx)
	if active[training.KindIntent] != v2 {
		t.Fatalf("active = %d, want %d", active[training.KindIntent], v2)
	}
}

func TestSetActiveVersionRequiresArtifact(t *testing.T) {
	s := newTestStore(t)
	err := s.SetActiveVersion(context.Background(), training.KindRoute, 3)
	if !errors.Is(err, domain.ErrArtifactNotFound) {
		t.Fatalf("err = %v, want ErrArtifactNotFound", err)
	}
}

func TestExampleRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ex := training.Example{
			Kind:     training.KindRoute,
			Features: []float64{float64(i), 0.5, 1, 0, 0.25},
			Label:    float64(i % 2),
			Meta:     map[string]string{"question_id": "q1"},
		}
		if err := s.AddExample(ctx, ex); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.ListExamples(ctx, training.KindRoute, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d examples, want 3", len(got))
	}
	// Oldest first within the window.
	if got[0].Features[0] != 0 || got[2].Features[0] != 2 {
		t.Fatalf("order wrong: %v", got)
	}
	if got[0].Meta["question_id"] != "q1" {
		t.Fatalf("meta = %v", got[0].Meta)
	}
}

func TestListExamplesLimitKeepsNewest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		s.AddExample(ctx, training.Example{
			Kind:     training.KindIntent,
			Features: []float64{float64(i)},
			Label:    1,
		})
	}

	got, err := s.ListExamples(ctx, training.KindIntent, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d examples, want 2", len(got))
	}
	// The newest two, oldest first.
	if got[0].Features[0] != 3 || got[1].Features[0] != 4 {
		t.Fatalf("window wrong: %v", got)
	}
}

func TestListExamplesFiltersByKind(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.AddExample(ctx, training.Example{Kind: training.KindIntent, Features: []float64{1}, Label: 1})
	s.AddExample(ctx, training.Example{Kind: training.KindRoute, Features: []float64{2}, Label: 0})

	got, err := s.ListExamples(ctx, training.KindIntent, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Kind != training.KindIntent {
		t.Fatalf("got %v", got)
	}
}
