// Package embed provides an HTTP client for the text embedding backend.
// Requests are rate limited and routed through a circuit breaker so a
// struggling backend degrades the answer path instead of stalling it.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/josephvaleri/giuseppe-aisomm-sub000/pkg/fn"
	"github.com/josephvaleri/giuseppe-aisomm-sub000/pkg/resilience"
)

// Options configures the embedding client.
type Options struct {
	BaseURL string
	Model   string
	Timeout time.Duration
	// RPS caps requests per second to the backend; 0 disables limiting.
	RPS   float64
	Burst int
	Retry fn.RetryOpts
}

// DefaultOptions returns sensible defaults for a local backend.
func DefaultOptions() Options {
	return Options{
		BaseURL: "http://localhost:11434",
		Model:   "nomic-embed-text",
		Timeout: 30 * time.Second,
		RPS:     10,
		Burst:   5,
		Retry: fn.RetryOpts{
			MaxAttempts: 3,
			InitialWait: 500 * time.Millisecond,
			MaxWait:     5 * time.Second,
			Jitter:      true,
		},
	}
}

// Client calls the embedding backend over HTTP.
type Client struct {
	opts    Options
	http    *http.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
}

// New creates an embedding client.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	var limiter *rate.Limiter
	if opts.RPS > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}
	return &Client{
		opts: opts,
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter: limiter,
		breaker: resilience.NewBreaker(resilience.DefaultBreakerOpts),
	}
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed returns the embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("embed: rate limit wait: %w", err)
		}
	}

	result := resilience.CallResult(c.breaker, ctx, func(ctx context.Context) fn.Result[[]float32] {
		return fn.Retry(ctx, c.opts.Retry, func(ctx context.Context) fn.Result[[]float32] {
			return fn.FromPair(c.embedOnce(ctx, text))
		})
	})
	return result.Unwrap()
}

// EmbedBatch embeds texts with bounded concurrency, preserving order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string, workers int) ([][]float32, error) {
	results := fn.ParMapResult(texts, workers, func(text string) fn.Result[[]float32] {
		return fn.FromPair(c.Embed(ctx, text))
	})
	return fn.Collect(results).Unwrap()
}

func (c *Client) embedOnce(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: c.opts.Model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("embed: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.opts.BaseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("embed: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embed: backend status %d: %s", resp.StatusCode, b)
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("embed: decode response: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("embed: backend returned empty embedding")
	}
	return out.Embedding, nil
}
