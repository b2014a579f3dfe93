package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/josephvaleri/giuseppe-aisomm-sub000/engine/domain"
	"github.com/josephvaleri/giuseppe-aisomm-sub000/engine/features"
	"github.com/josephvaleri/giuseppe-aisomm-sub000/engine/training"
)

type memStore struct {
	examples []training.Example
}

func (m *memStore) AddExample(_ context.Context, ex training.Example) error {
	m.examples = append(m.examples, ex)
	return nil
}

func TestRecorderLogsIntentAndRouteExamples(t *testing.T) {
	store := &memStore{}
	rec := newRecorder(store, features.SeedDictionaries(), slog.Default())

	rec.record(context.Background(), domain.RouteDecision{
		ID:              "d-1",
		Question:        "What grapes are used in Chianti Classico?",
		Confidence:      0.8,
		AnsweredByJoins: true,
		Passages: []domain.RankedPassage{
			{Text: "Chianti Classico tech sheet", Score: 0.9, OriginalScore: 0.9, SourceID: "doc-1"},
		},
	})

	if len(store.examples) != 2 {
		t.Fatalf("got %d examples, want 2", len(store.examples))
	}

	intent, route := store.examples[0], store.examples[1]
	if intent.Kind != training.KindIntent || route.Kind != training.KindRoute {
		t.Fatalf("kinds = %s, %s", intent.Kind, route.Kind)
	}
	if len(intent.Features) != features.QuestionSchema.Len() {
		t.Fatalf("intent features = %d, want %d", len(intent.Features), features.QuestionSchema.Len())
	}
	if len(route.Features) != features.RouteSchema.Len() {
		t.Fatalf("route features = %d, want %d", len(route.Features), features.RouteSchema.Len())
	}
	if intent.Label != 1 {
		t.Fatalf("intent label = %v, want 1 for a wine question", intent.Label)
	}
	if route.Label != 1 {
		t.Fatalf("route label = %v, want 1 for a joins-answered decision", route.Label)
	}
	if intent.Meta["decision_id"] != "d-1" {
		t.Fatalf("meta = %v", intent.Meta)
	}
}

func TestRecorderLabelsRedirects(t *testing.T) {
	store := &memStore{}
	rec := newRecorder(store, features.SeedDictionaries(), slog.Default())

	rec.record(context.Background(), domain.RouteDecision{
		ID:              "d-2",
		Question:        "How do I fix my laptop screen?",
		RedirectNonWine: true,
	})

	if store.examples[0].Label != 0 {
		t.Fatalf("intent label = %v, want 0 for redirected question", store.examples[0].Label)
	}
	if store.examples[1].Label != 0 {
		t.Fatalf("route label = %v, want 0 without joins answer", store.examples[1].Label)
	}
}
