// Package answer orchestrates the full question pipeline: embed the question,
// retrieve candidate passages, extract features, route, rerank, and pick
// between the structured synthesis path and retrieval. Every decision is
// published as an event so it can later become training data.
package answer

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/josephvaleri/giuseppe-aisomm-sub000/engine/domain"
	"github.com/josephvaleri/giuseppe-aisomm-sub000/engine/features"
	"github.com/josephvaleri/giuseppe-aisomm-sub000/engine/routing"
	"github.com/josephvaleri/giuseppe-aisomm-sub000/engine/semantic"
	"github.com/josephvaleri/giuseppe-aisomm-sub000/engine/synthesis"
	"github.com/josephvaleri/giuseppe-aisomm-sub000/pkg/fn"
	"github.com/josephvaleri/giuseppe-aisomm-sub000/pkg/metrics"
)

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher is the read boundary to the passage corpus.
type Searcher interface {
	Search(ctx context.Context, embedding []float32, topK int) ([]semantic.SearchResult, error)
}

// Synthesizer is the structured-knowledge answer path.
type Synthesizer interface {
	Synthesize(ctx context.Context, question string) synthesis.Result
}

// DecisionPublisher receives every route decision. Implementations must not
// block the answer path; publish failures are logged, never returned.
type DecisionPublisher func(ctx context.Context, d domain.RouteDecision) error

// Source identifies which path produced the answer.
type Source string

const (
	SourceSynthesis Source = "synthesis"
	SourceRetrieval Source = "retrieval"
	SourceRedirect  Source = "redirect"
	SourceNone      Source = "none"
)

// Response is the pipeline output for one question.
type Response struct {
	Answer   string               `json:"answer"`
	Source   Source               `json:"source"`
	Decision domain.RouteDecision `json:"decision"`
}

// Options configures the answer service.
type Options struct {
	TopK int
	// RedirectThreshold is compared strictly against the non-domain intent score.
	RedirectThreshold float64
	RedirectMessage   string
	// SynthesisFloor is the minimum routing confidence required to prefer
	// the structured path when synthesis can answer.
	SynthesisFloor float64
	Acceptance     features.AcceptanceRates
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		TopK:              8,
		RedirectThreshold: routing.DefaultRedirectThreshold,
		RedirectMessage:   "I'm Giuseppe, your sommelier. I can help with wine: grapes, regions, pairings, and your cellar.",
		SynthesisFloor:    0.5,
	}
}

// Metrics are the counters the service maintains.
type Metrics struct {
	Questions  *metrics.Counter
	Synthesis  *metrics.Counter
	Retrieval  *metrics.Counter
	Redirects  *metrics.Counter
	EmbedFails *metrics.Counter
	Latency    *metrics.Histogram
}

// NewMetrics registers answer-path metrics on the given registry.
func NewMetrics(reg *metrics.Registry) *Metrics {
	return &Metrics{
		Questions:  reg.Counter("giuseppe_questions_total", "Questions received"),
		Synthesis:  reg.Counter("giuseppe_answers_synthesis_total", "Answers served from the knowledge graph"),
		Retrieval:  reg.Counter("giuseppe_answers_retrieval_total", "Answers served from retrieved passages"),
		Redirects:  reg.Counter("giuseppe_redirects_total", "Non-wine questions redirected"),
		EmbedFails: reg.Counter("giuseppe_embed_failures_total", "Embedding backend failures"),
		Latency:    reg.Histogram("giuseppe_answer_seconds", "Answer pipeline latency", nil),
	}
}

// Service runs the answer pipeline.
type Service struct {
	router   *routing.Engine
	synth    Synthesizer
	embedder Embedder
	searcher Searcher
	dicts    *features.Dictionaries
	publish  DecisionPublisher
	opts     Options
	logger   *slog.Logger
	metrics  *Metrics
}

// New creates a Service. publish and metrics may be nil.
func New(
	router *routing.Engine,
	synth Synthesizer,
	embedder Embedder,
	searcher Searcher,
	dicts *features.Dictionaries,
	publish DecisionPublisher,
	opts Options,
	logger *slog.Logger,
	m *Metrics,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultOptions().TopK
	}
	if opts.RedirectThreshold <= 0 {
		opts.RedirectThreshold = routing.DefaultRedirectThreshold
	}
	if opts.RedirectMessage == "" {
		opts.RedirectMessage = DefaultOptions().RedirectMessage
	}
	if opts.SynthesisFloor <= 0 {
		opts.SynthesisFloor = DefaultOptions().SynthesisFloor
	}
	return &Service{
		router:   router,
		synth:    synth,
		embedder: embedder,
		searcher: searcher,
		dicts:    dicts,
		publish:  publish,
		opts:     opts,
		logger:   logger,
		metrics:  m,
	}
}

// Answer runs the full pipeline for one question.
func (s *Service) Answer(ctx context.Context, q domain.Question) (Response, error) {
	start := time.Now()
	if s.metrics != nil {
		s.metrics.Questions.Inc()
		defer s.metrics.Latency.Since(start)
	}

	if err := domain.ValidateQuestion(q); err != nil {
		return Response{}, err
	}

	qf := features.ExtractQuestion(q.Text, s.dicts)
	intents := s.router.PredictIntent(ctx, qf)

	decision := domain.RouteDecision{
		ID:        uuid.NewString(),
		Question:  q.Text,
		Intents:   intents,
		DecidedAt: time.Now().UTC(),
	}

	if routing.ShouldRedirectNonWine(intents, s.opts.RedirectThreshold) {
		decision.RedirectNonWine = true
		s.emit(ctx, decision)
		if s.metrics != nil {
			s.metrics.Redirects.Inc()
		}
		return Response{Answer: s.opts.RedirectMessage, Source: SourceRedirect, Decision: decision}, nil
	}

	candidates := s.retrieve(ctx, q.Text)
	rf := features.ExtractRetrieval(q.Text, candidates, s.dicts, features.DefaultSourceClassifier, s.opts.Acceptance)

	synthRes := s.synth.Synthesize(ctx, q.Text)
	rof := features.ExtractRoute(synthRes.CanAnswer, qf, rf)
	confidence := s.router.PredictRoute(ctx, rof)

	ranked := s.router.RerankCandidates(ctx, candidates, qf, rf)

	decision.Confidence = confidence
	decision.Passages = ranked

	if synthRes.CanAnswer && confidence >= s.opts.SynthesisFloor {
		decision.AnsweredByJoins = true
		s.emit(ctx, decision)
		if s.metrics != nil {
			s.metrics.Synthesis.Inc()
		}
		return Response{Answer: synthRes.Answer, Source: SourceSynthesis, Decision: decision}, nil
	}

	s.emit(ctx, decision)

	if len(ranked) == 0 {
		return Response{
			Answer:   "I don't have enough material to answer that yet. Could you rephrase, or ask about a grape, region, or pairing?",
			Source:   SourceNone,
			Decision: decision,
		}, nil
	}

	if s.metrics != nil {
		s.metrics.Retrieval.Inc()
	}
	return Response{Answer: ranked[0].Text, Source: SourceRetrieval, Decision: decision}, nil
}

// retrieve embeds and searches. Any dependency failure collapses to zero
// candidates so routing still produces a decision.
func (s *Service) retrieve(ctx context.Context, question string) []domain.CandidatePassage {
	if s.embedder == nil || s.searcher == nil {
		return nil
	}
	vec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		s.logger.Warn("embedding failed, routing without candidates", "error", err)
		if s.metrics != nil {
			s.metrics.EmbedFails.Inc()
		}
		return nil
	}
	hits, err := s.searcher.Search(ctx, vec, s.opts.TopK)
	if err != nil {
		s.logger.Warn("passage search failed, routing without candidates", "error", err)
		return nil
	}
	return fn.Map(hits, func(h semantic.SearchResult) domain.CandidatePassage {
		return domain.CandidatePassage{
			Text:     h.Content,
			Score:    float64(h.Score),
			SourceID: h.DocID,
		}
	})
}

func (s *Service) emit(ctx context.Context, d domain.RouteDecision) {
	if s.publish == nil {
		return
	}
	if err := s.publish(ctx, d); err != nil {
		s.logger.Warn("publish decision failed", "decision_id", d.ID, "error", err)
	}
}
