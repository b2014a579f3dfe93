// Package model implements the fixed-width logistic scoring models used by
// the routing engine: a dot product over a feature vector passed through a
// sigmoid, trained by per-example gradient descent with L2 weight decay.
package model

import (
	"fmt"
	"math"

	"github.com/josephvaleri/giuseppe-aisomm-sub000/engine/domain"
)

// Default hyperparameters. Determinism is preferred over statistical
// optimality: training never shuffles.
const (
	DefaultLearningRate   = 0.05
	DefaultRegularization = 0.001
)

// Example is one labeled training instance.
type Example struct {
	Features []float64
	Label    float64
}

// LinearModel is a logistic scoring model over a fixed-width feature vector.
// Predict never mutates state, so a loaded model is safe for concurrent use.
type LinearModel struct {
	Weights []float64
	Bias    float64

	LearningRate   float64
	Regularization float64
}

// New creates a zero-initialized model sized to nFeatures.
func New(nFeatures int) *LinearModel {
	return &LinearModel{
		Weights:        make([]float64, nFeatures),
		LearningRate:   DefaultLearningRate,
		Regularization: DefaultRegularization,
	}
}

// Predict returns sigmoid(w·x + b). For finite inputs and weights the result
// is clamped into the open interval (0,1); a NaN from pathological weights is
// propagated so callers can detect it.
func (m *LinearModel) Predict(x []float64) float64 {
	z := m.Bias
	n := len(x)
	if len(m.Weights) < n {
		n = len(m.Weights)
	}
	for i := 0; i < n; i++ {
		z += m.Weights[i] * x[i]
	}
	p := 1 / (1 + math.Exp(-z))
	if math.IsNaN(p) {
		return p
	}
	// Underflow in exp can round the sigmoid to exactly 0 or 1.
	if p <= 0 {
		return math.SmallestNonzeroFloat64
	}
	if p >= 1 {
		return 1 - 1e-15
	}
	return p
}

// Train runs full-pass gradient descent: for each epoch, for each example in
// order, update weights by lr·(err·x − reg·w) and bias by lr·err.
func (m *LinearModel) Train(examples []Example, epochs int) {
	for epoch := 0; epoch < epochs; epoch++ {
		for _, ex := range examples {
			pred := m.Predict(ex.Features)
			err := ex.Label - pred
			n := len(ex.Features)
			if len(m.Weights) < n {
				n = len(m.Weights)
			}
			for i := 0; i < n; i++ {
				m.Weights[i] += m.LearningRate * (err*ex.Features[i] - m.Regularization*m.Weights[i])
			}
			m.Bias += m.LearningRate * err
		}
	}
}

// ExportWeights returns the weights as a named map (feature_<index> plus bias),
// the persistence format of model artifacts.
func (m *LinearModel) ExportWeights() map[string]float64 {
	out := make(map[string]float64, len(m.Weights)+1)
	for i, w := range m.Weights {
		out[fmt.Sprintf("feature_%d", i)] = w
	}
	out["bias"] = m.Bias
	return out
}

// ImportOptions controls artifact loading behavior.
type ImportOptions struct {
	// Compat tolerates a stored weight map whose width differs from the
	// schema: missing entries are zero-filled, extras dropped. Off by
	// default; a width mismatch is an error unless a backward-compatible
	// rollout explicitly needs the tolerance.
	Compat bool
}

// Import reconstructs a model from a named weight map against a schema of
// nFeatures fields.
func Import(weights map[string]float64, nFeatures int, opts ImportOptions) (*LinearModel, error) {
	stored := len(weights)
	if _, ok := weights["bias"]; ok {
		stored--
	}
	if stored != nFeatures && !opts.Compat {
		return nil, fmt.Errorf("model: artifact has %d weights, schema has %d fields: %w",
			stored, nFeatures, domain.ErrSchemaMismatch)
	}

	m := New(nFeatures)
	for i := 0; i < nFeatures; i++ {
		m.Weights[i] = weights[fmt.Sprintf("feature_%d", i)]
	}
	m.Bias = weights["bias"]
	return m, nil
}

// Accuracy computes the share of examples classified correctly at a 0.5
// decision threshold.
func (m *LinearModel) Accuracy(examples []Example) float64 {
	if len(examples) == 0 {
		return 0
	}
	correct := 0
	for _, ex := range examples {
		pred := 0.0
		if m.Predict(ex.Features) >= 0.5 {
			pred = 1.0
		}
		label := 0.0
		if ex.Label >= 0.5 {
			label = 1.0
		}
		if pred == label {
			correct++
		}
	}
	return float64(correct) / float64(len(examples))
}
