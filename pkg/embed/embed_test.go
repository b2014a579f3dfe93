package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/josephvaleri/giuseppe-aisomm-sub000/pkg/fn"
)

func testOptions(baseURL string) Options {
	return Options{
		BaseURL: baseURL,
		Model:   "test-model",
		Timeout: 5 * time.Second,
		Retry:   fn.RetryOpts{MaxAttempts: 1, InitialWait: time.Millisecond},
	}
}

func TestEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Error(err)
		}
		if req.Model != "test-model" || req.Prompt != "sangiovese" {
			t.Errorf("unexpected request: %+v", req)
		}
		json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{0.1, 0.2, 0.3}})
	}))
	defer srv.Close()

	c := New(testOptions(srv.URL))
	got, err := c.Embed(context.Background(), "sangiovese")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0] != 0.1 {
		t.Fatalf("embedding = %v", got)
	}
}

func TestEmbedBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(testOptions(srv.URL))
	if _, err := c.Embed(context.Background(), "x"); err == nil {
		t.Fatal("expected error on backend 500")
	}
}

func TestEmbedEmptyEmbedding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embedResponse{})
	}))
	defer srv.Close()

	c := New(testOptions(srv.URL))
	if _, err := c.Embed(context.Background(), "x"); err == nil {
		t.Fatal("expected error on empty embedding")
	}
}

func TestEmbedRetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(embedResponse{Embedding: []float32{1}})
	}))
	defer srv.Close()

	opts := testOptions(srv.URL)
	opts.Retry.MaxAttempts = 3
	c := New(opts)

	got, err := c.Embed(context.Background(), "x")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || calls.Load() != 2 {
		t.Fatalf("embedding = %v, calls = %d", got, calls.Load())
	}
}

func TestEmbedBatchPreservesOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		json.NewDecoder(r.Body).Decode(&req)
		// Vector length encodes the prompt length so order is observable.
		json.NewEncoder(w).Encode(embedResponse{Embedding: make([]float32, len(req.Prompt))})
	}))
	defer srv.Close()

	c := New(testOptions(srv.URL))
	got, err := c.EmbedBatch(context.Background(), []string{"a", "abc", "ab"}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || len(got[0]) != 1 || len(got[1]) != 3 || len(got[2]) != 2 {
		t.Fatalf("batch = %v", got)
	}
}
