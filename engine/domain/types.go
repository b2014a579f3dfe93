// Package domain defines core domain types, constants, and validation for the
// Giuseppe question engine. It acts as the validation gate at pipeline entry points.
package domain

import "time"

// Question represents a user question submitted to the engine.
type Question struct {
	Text   string `json:"text"`
	UserID string `json:"user_id,omitempty"`
}

// CandidatePassage is a retrieved passage considered as answer material.
// Score is the base similarity score assigned by retrieval and is never
// mutated by downstream stages.
type CandidatePassage struct {
	Text     string  `json:"text"`
	Score    float64 `json:"score"`
	SourceID string  `json:"source_id,omitempty"`
}

// RankedPassage is a candidate passage after reranking. OriginalScore keeps
// the retrieval similarity so ranking regressions stay diagnosable.
type RankedPassage struct {
	Text          string  `json:"text"`
	SourceID      string  `json:"source_id,omitempty"`
	Score         float64 `json:"score"`
	OriginalScore float64 `json:"original_score"`
}

// IntentScores holds one confidence per recognised intent category.
type IntentScores struct {
	Pairing        float64 `json:"pairing"`
	Region         float64 `json:"region"`
	Grape          float64 `json:"grape"`
	Cellar         float64 `json:"cellar"`
	Recommendation float64 `json:"recommendation"`
	Joke           float64 `json:"joke"`
	NonDomain      float64 `json:"non_domain"`
}

// RouteDecision is the routing output for one question. It is not persisted
// here; callers log it so decisions can become training examples later.
type RouteDecision struct {
	ID              string          `json:"id"`
	Question        string          `json:"question"`
	Confidence      float64         `json:"confidence"`
	AnsweredByJoins bool            `json:"answered_by_joins"`
	RedirectNonWine bool            `json:"redirect_non_wine"`
	Intents         IntentScores    `json:"intents"`
	Passages        []RankedPassage `json:"passages,omitempty"`
	DecidedAt       time.Time       `json:"decided_at"`
}

// EntityType identifies a dictionary of known domain terms.
type EntityType string

const (
	EntityGrape          EntityType = "grape"
	EntityAppellation    EntityType = "appellation"
	EntityRegion         EntityType = "region"
	EntityCountry        EntityType = "country"
	EntityWine           EntityType = "wine"
	EntityProducer       EntityType = "producer"
	EntityClassification EntityType = "classification"
)

// EntityTypes lists all dictionary types in a fixed order.
var EntityTypes = []EntityType{
	EntityGrape, EntityAppellation, EntityRegion, EntityCountry,
	EntityWine, EntityProducer, EntityClassification,
}

// WineColor is the categorical attribute used to group synthesized answers.
type WineColor string

const (
	ColorRed     WineColor = "red"
	ColorWhite   WineColor = "white"
	ColorRose    WineColor = "rose"
	ColorUnknown WineColor = ""
)
