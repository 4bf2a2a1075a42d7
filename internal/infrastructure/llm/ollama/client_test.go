package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
	"github.com/kirillkom/funding-rag-assistant/internal/infrastructure/resilience"
)

func fastExecutor(attempts int) *resilience.Executor {
	return resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    attempts,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	})
}

func TestGeneratorSendsPromptAndTokenBudget(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"response":"  Razorpay raised ₹5 Cr [1].  "}`))
	}))
	defer server.Close()

	gen := NewGenerator(New(server.URL, "gen", "embed"))
	out, err := gen.Generate(context.Background(), "question with context", 256)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if out != "Razorpay raised ₹5 Cr [1]." {
		t.Fatalf("unexpected answer: %q", out)
	}
	if payload["prompt"] != "question with context" || payload["model"] != "gen" {
		t.Fatalf("unexpected payload: %v", payload)
	}
	options, _ := payload["options"].(map[string]any)
	if options["num_predict"] != float64(256) {
		t.Fatalf("expected num_predict=256, got %v", options)
	}
}

func TestEmbedIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "gen", "embed"))
	_, err := embedder.Embed(context.Background(), []string{"hello"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected 502 to be marked temporary, got %v", err)
	}
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected HTTPStatusError, got %v", err)
	}
}

func TestEmbedRetriesTransientStatus(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2],[0.3,0.4]]}`))
	}))
	defer server.Close()

	client := NewWithOptions(server.URL, "gen", "embed", Options{
		Executor:  fastExecutor(3),
		EmbedPool: resilience.NewLimiter("embed", 1, 0, 0),
	})
	vectors, err := NewEmbedder(client).Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 2 || vectors[1][1] != 0.4 {
		t.Fatalf("unexpected vectors: %v", vectors)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected one retry, got %d calls", calls)
	}
}

func TestEmbedRejectsCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[[0.1]]}`))
	}))
	defer server.Close()

	_, err := NewEmbedder(New(server.URL, "gen", "embed")).Embed(context.Background(), []string{"a", "b"})
	if err == nil {
		t.Fatalf("expected mismatch error")
	}
}

func TestGenerateDoesNotRetryBadRequest(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad prompt", http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewWithOptions(server.URL, "gen", "embed", Options{Executor: fastExecutor(3)})
	_, err := NewGenerator(client).Generate(context.Background(), "x", 0)
	if err == nil {
		t.Fatalf("expected error")
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("400 must not be temporary: %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

func TestGenerateReportsMissingModelWithoutRetry(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model \"llama3\" not found, try pulling it first"}`))
	}))
	defer server.Close()

	client := NewWithOptions(server.URL, "llama3", "embed", Options{Executor: fastExecutor(3)})
	_, err := NewGenerator(client).Generate(context.Background(), "x", 0)
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || !statusErr.ModelMissing() {
		t.Fatalf("expected missing model error, got %v", err)
	}
	if !strings.Contains(err.Error(), "try pulling it first") {
		t.Fatalf("expected server message in error, got %v", err)
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("missing model must not be temporary: %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

func TestGenerateTimeoutIsRetriedPerAttempt(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
			return
		}
		_, _ = w.Write([]byte(`{"response":"done"}`))
	}))
	defer server.Close()

	exec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		RetryMultiplier:     2,
		AttemptTimeout:      50 * time.Millisecond,
	})
	client := NewWithOptions(server.URL, "gen", "embed", Options{GenerateExecutor: exec})
	out, err := NewGenerator(client).Generate(context.Background(), "slow", 0)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if out != "done" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestSaturatedPoolDoesNotOpenBreaker(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"response":"ok"}`))
	}))
	defer server.Close()

	exec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    1,
		BreakerEnabled:      true,
		BreakerMinRequests:  2,
		BreakerFailureRatio: 0.5,
		BreakerOpenTimeout:  time.Minute,
	})
	client := NewWithOptions(server.URL, "gen", "embed", Options{
		GenerateExecutor: exec,
		GeneratePool:     resilience.NewLimiter("generate", 4, 0.01, 1),
	})
	gen := NewGenerator(client)

	for i := 0; i < 6; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		_, err := gen.Generate(ctx, "question", 0)
		cancel()
		if i == 0 {
			if err != nil {
				t.Fatalf("first Generate() error = %v", err)
			}
			continue
		}
		if resilience.IsCircuitOpen(err) {
			t.Fatalf("call %d: breaker opened on pool saturation: %v", i, err)
		}
		if !errors.Is(err, resilience.ErrPoolSaturated) {
			t.Fatalf("call %d: expected ErrPoolSaturated, got %v", i, err)
		}
		if !domain.IsKind(err, domain.ErrTemporary) {
			t.Fatalf("call %d: expected temporary error, got %v", i, err)
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected one request to reach the server, got %d", got)
	}
}

func TestEmbedUsesItsOwnExecutor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			return
		case <-time.After(80 * time.Millisecond):
		}
		_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2]]}`))
	}))
	defer server.Close()

	short := resilience.NewExecutor(resilience.Config{RetryMaxAttempts: 1, AttemptTimeout: 10 * time.Millisecond})
	long := resilience.NewExecutor(resilience.Config{RetryMaxAttempts: 1, AttemptTimeout: time.Second})
	client := NewWithOptions(server.URL, "gen", "embed", Options{Executor: short, EmbedExecutor: long})

	vectors, err := NewEmbedder(client).Embed(context.Background(), []string{"fintech in bangalore"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 1 || len(vectors[0]) != 2 {
		t.Fatalf("unexpected vectors %v", vectors)
	}
}

func TestTranslatorBuildsPromptAndCleansOutput(t *testing.T) {
	var prompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		prompt, _ = payload["prompt"].(string)
		_, _ = w.Write([]byte(`{"response":"Translation: \"Total funding of fintech startups in Bangalore\""}`))
	}))
	defer server.Close()

	tr := NewTranslator(New(server.URL, "gen", "embed"))
	out, err := tr.Translate(context.Background(), "बेंगलुरु में फिनटेक स्टार्टअप्स की कुल फंडिंग", "hi", "en")
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if out != "Total funding of fintech startups in Bangalore" {
		t.Fatalf("unexpected translation %q", out)
	}
	if !strings.Contains(prompt, "from Hindi to English") {
		t.Fatalf("expected language names in prompt, got %q", prompt)
	}
}
