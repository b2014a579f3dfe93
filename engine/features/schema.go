// Package features builds the numeric feature vectors consumed by the linear
// models. Extraction is pure: identical inputs always yield identical vectors,
// so training and inference stay in parity.
package features

import (
	"fmt"

	"github.com/josephvaleri/giuseppe-aisomm-sub000/engine/domain"
)

// Schema is an ordered list of named numeric fields. The order is the
// structural contract shared between vectorization at inference time and the
// stored weights of a trained model.
type Schema struct {
	name   string
	fields []string
	index  map[string]int
}

// NewSchema creates a schema with the given field order.
func NewSchema(name string, fields []string) *Schema {
	idx := make(map[string]int, len(fields))
	for i, f := range fields {
		idx[f] = i
	}
	return &Schema{name: name, fields: fields, index: idx}
}

// Name returns the schema name.
func (s *Schema) Name() string { return s.name }

// Len returns the number of fields.
func (s *Schema) Len() int { return len(s.fields) }

// Fields returns the ordered field names. Callers must not mutate the slice.
func (s *Schema) Fields() []string { return s.fields }

// Index returns the position of a field, or -1 if unknown.
func (s *Schema) Index(field string) int {
	if i, ok := s.index[field]; ok {
		return i
	}
	return -1
}

// Validate checks a vector's length against the schema.
func (s *Schema) Validate(vec []float64) error {
	if len(vec) != len(s.fields) {
		return fmt.Errorf("features: schema %s expects %d fields, got %d: %w",
			s.name, len(s.fields), len(vec), domain.ErrSchemaMismatch)
	}
	return nil
}

// QuestionSchema is the fixed field order for question-level features.
var QuestionSchema = NewSchema("question", []string{
	"char_len",
	"token_count",
	"has_year",
	"has_price",
	"has_percent",
	"grape_matches",
	"appellation_matches",
	"region_matches",
	"country_matches",
	"wine_matches",
	"producer_matches",
	"classification_matches",
	"intent_pairing",
	"intent_region",
	"intent_grape",
	"intent_cellar",
	"intent_recommendation",
	"intent_joke",
	"intent_nondomain",
})

// RetrievalSchema is the fixed field order for retrieval-level features.
var RetrievalSchema = NewSchema("retrieval", []string{
	"top1_score",
	"mean_score",
	"score_gap",
	"jaccard_top1",
	"lcs_overlap",
	"dict_terms_top1",
	"src_tech_sheet",
	"src_review",
	"src_forum",
	"accept_rate_global",
	"accept_rate_user",
})

// RouteSchema is the fixed field order for routing features.
var RouteSchema = NewSchema("route", []string{
	"can_answer_from_joins",
	"retrieval_confidence",
	"intent_region",
	"intent_grape",
	"chunk_quality",
})

// RerankSchema is the extended per-candidate schema used by the reranker:
// question features, retrieval features, then candidate-specific fields.
var RerankSchema = NewSchema("rerank", append(append(
	append([]string{}, QuestionSchema.Fields()...),
	RetrievalSchema.Fields()...),
	"chunk_len", "original_score",
))

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
