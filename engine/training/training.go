// Package training implements the offline pipeline that fits, evaluates, and
// persists versioned model artifacts. It reads labeled examples from a store,
// trains one linear model per kind, and records a new artifact; promotion to
// "active" is a separate step so rollback never requires deleting artifacts.
package training

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/josephvaleri/giuseppe-aisomm-sub000/engine/domain"
	"github.com/josephvaleri/giuseppe-aisomm-sub000/engine/features"
	"github.com/josephvaleri/giuseppe-aisomm-sub000/engine/model"
)

// Kind identifies one trainable model family.
type Kind string

const (
	KindIntent   Kind = "intent"
	KindReranker Kind = "reranker"
	KindRoute    Kind = "route"
)

// Kinds lists all model kinds.
var Kinds = []Kind{KindIntent, KindReranker, KindRoute}

// Schema returns the feature schema a kind is trained against.
func (k Kind) Schema() *features.Schema {
	switch k {
	case KindIntent:
		return features.QuestionSchema
	case KindReranker:
		return features.RerankSchema
	case KindRoute:
		return features.RouteSchema
	default:
		return nil
	}
}

// Example is one stored labeled instance, tagged with its model kind.
type Example struct {
	Kind     Kind              `json:"kind"`
	Features []float64         `json:"features"`
	Label    float64           `json:"label"`
	Meta     map[string]string `json:"meta,omitempty"`
}

// Artifact is one immutable trained model record. Versions increase
// monotonically per kind; the active pointer lives separately.
type Artifact struct {
	Kind      Kind               `json:"kind"`
	Version   int                `json:"version"`
	Weights   map[string]float64 `json:"weights"`
	Schema    []string           `json:"features_schema"`
	Metrics   map[string]float64 `json:"metrics"`
	CreatedAt time.Time          `json:"created_at"`
	CreatedBy string             `json:"created_by"`
}

// ExampleStore is the read-only boundary to logged training examples.
type ExampleStore interface {
	ListExamples(ctx context.Context, kind Kind, limit int) ([]Example, error)
}

// ArtifactStore is the persistence boundary for model artifacts and the
// active-version pointer map.
type ArtifactStore interface {
	// SaveArtifact persists a new artifact, assigning version = max+1 for
	// its kind, and returns the assigned version. Single-writer.
	SaveArtifact(ctx context.Context, a Artifact) (int, error)
	ListArtifacts(ctx context.Context) ([]Artifact, error)
	LoadArtifact(ctx context.Context, kind Kind, version int) (Artifact, error)
	ActiveVersions(ctx context.Context) (map[Kind]int, error)
	SetActiveVersion(ctx context.Context, kind Kind, version int) error
}

// Options configures the training pipeline.
type Options struct {
	Epochs         int
	LearningRate   float64
	Regularization float64
	MaxExamples    int
	MinExamples    int
	CreatedBy      string
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		Epochs:         100,
		LearningRate:   model.DefaultLearningRate,
		Regularization: model.DefaultRegularization,
		MaxExamples:    5000,
		MinExamples:    10,
		CreatedBy:      "pipeline",
	}
}

// Pipeline trains and persists model artifacts.
type Pipeline struct {
	examples  ExampleStore
	artifacts ArtifactStore
	opts      Options
	logger    *slog.Logger
}

// New creates a Pipeline.
func New(examples ExampleStore, artifacts ArtifactStore, opts Options, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MinExamples <= 0 {
		opts.MinExamples = 10
	}
	if opts.MaxExamples <= 0 {
		opts.MaxExamples = 5000
	}
	if opts.Epochs <= 0 {
		opts.Epochs = 100
	}
	return &Pipeline{examples: examples, artifacts: artifacts, opts: opts, logger: logger}
}

// Train fits a new model for the kind and persists it as a fresh artifact.
// Fewer than MinExamples stored examples is a hard failure, not a warning.
func (p *Pipeline) Train(ctx context.Context, kind Kind) (Artifact, error) {
	if kind.Schema() == nil {
		return Artifact{}, fmt.Errorf("training: %q: %w", kind, domain.ErrUnknownModelKind)
	}

	examples, err := p.examples.ListExamples(ctx, kind, p.opts.MaxExamples)
	if err != nil {
		return Artifact{}, fmt.Errorf("training: list examples for %s: %w", kind, err)
	}
	if len(examples) < p.opts.MinExamples {
		return Artifact{}, fmt.Errorf("training: %s has %d examples, need %d: %w",
			kind, len(examples), p.opts.MinExamples, domain.ErrInsufficientData)
	}

	// Size the model to the stored example width, not the compiled schema,
	// so that artifacts stay loadable against the schema they were built for.
	width := len(examples[0].Features)
	m := model.New(width)
	m.LearningRate = p.opts.LearningRate
	m.Regularization = p.opts.Regularization

	train := make([]model.Example, len(examples))
	for i, ex := range examples {
		train[i] = model.Example{Features: ex.Features, Label: ex.Label}
	}
	m.Train(train, p.opts.Epochs)

	metrics := map[string]float64{
		"accuracy":  m.Accuracy(train),
		"n_samples": float64(len(train)),
		// Precision/recall await a held-out evaluation set.
		"precision": 0,
		"recall":    0,
	}

	artifact := Artifact{
		Kind:      kind,
		Weights:   m.ExportWeights(),
		Schema:    kind.Schema().Fields(),
		Metrics:   metrics,
		CreatedAt: time.Now().UTC(),
		CreatedBy: p.opts.CreatedBy,
	}

	version, err := p.artifacts.SaveArtifact(ctx, artifact)
	if err != nil {
		return Artifact{}, fmt.Errorf("training: save artifact for %s: %w", kind, err)
	}
	artifact.Version = version

	p.logger.Info("model trained",
		"kind", kind,
		"version", version,
		"examples", len(train),
		"accuracy", metrics["accuracy"],
	)
	return artifact, nil
}

// UpdateActiveVersions points each kind's active pointer at its most recently
// created artifact. Recency is by creation time, not quality; promotion by
// quality is a human decision made by inserting a newer artifact.
func (p *Pipeline) UpdateActiveVersions(ctx context.Context) error {
	artifacts, err := p.artifacts.ListArtifacts(ctx)
	if err != nil {
		return fmt.Errorf("training: list artifacts: %w", err)
	}

	sort.SliceStable(artifacts, func(i, j int) bool {
		if artifacts[i].CreatedAt.Equal(artifacts[j].CreatedAt) {
			return artifacts[i].Version < artifacts[j].Version
		}
		return artifacts[i].CreatedAt.Before(artifacts[j].CreatedAt)
	})

	newest := make(map[Kind]int)
	for _, a := range artifacts {
		newest[a.Kind] = a.Version
	}

	for kind, version := range newest {
		if err := p.artifacts.SetActiveVersion(ctx, kind, version); err != nil {
			return fmt.Errorf("training: set active %s=%d: %w", kind, version, err)
		}
		p.logger.Info("active model updated", "kind", kind, "version", version)
	}
	return nil
}
