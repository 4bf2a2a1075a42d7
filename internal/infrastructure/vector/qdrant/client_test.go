package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
	"github.com/kirillkom/funding-rag-assistant/internal/infrastructure/resilience"
)

func sampleChunks() []domain.Chunk {
	return []domain.Chunk{
		{ID: "row-1", Text: "Razorpay raised", Metadata: domain.ChunkMetadata{Company: "Razorpay", City: "Bangalore", Sector: "fintech", Investors: []string{"Sequoia Capital"}, Amount: 5e7, Year: 2020}},
		{ID: "row-2", Text: "Cred raised", Metadata: domain.ChunkMetadata{Company: "Cred", City: "Bangalore", Sector: "fintech", Amount: 8e7, Year: 2021}},
	}
}

func TestUpsertEnsuresCollectionOncePerVectorSize(t *testing.T) {
	var ensureCalls int32
	var ids []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/funding":
			atomic.AddInt32(&ensureCalls, 1)
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/funding/points":
			var body struct {
				Points []struct {
					ID      string         `json:"id"`
					Payload map[string]any `json:"payload"`
				} `json:"points"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			for _, p := range body.Points {
				ids = append(ids, p.ID)
			}
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(server.URL, "funding")
	vectors := [][]float32{{0.1, 0.2}, {0.3, 0.4}}

	if err := client.Upsert(context.Background(), sampleChunks(), vectors); err != nil {
		t.Fatalf("first Upsert() error = %v", err)
	}
	if err := client.Upsert(context.Background(), sampleChunks(), vectors); err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}
	if got := atomic.LoadInt32(&ensureCalls); got != 1 {
		t.Fatalf("expected ensure collection called once, got %d", got)
	}
	if len(ids) != 4 || ids[0] != ids[2] || ids[0] != PointID("row-1") {
		t.Fatalf("expected deterministic point ids, got %v", ids)
	}
}

func TestEnsureCollectionIncludesResponseBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && r.URL.Path == "/collections/funding" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := New(server.URL, "funding")
	err := client.Upsert(context.Background(), sampleChunks()[:1], [][]float32{{0.1, 0.2}})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected error to include body, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestEnsureCollectionAcceptsConflict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/collections/funding" {
			w.WriteHeader(http.StatusConflict)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	if err := New(server.URL, "funding").Upsert(context.Background(), sampleChunks()[:1], [][]float32{{1, 0}}); err != nil {
		t.Fatalf("expected 409 to count as existing collection, got %v", err)
	}
}

func TestSearchTranslatesFilterAndDecodesPayload(t *testing.T) {
	var request map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/funding/points/search" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&request)
		_, _ = w.Write([]byte(`{"result":[
			{"score":0.91,"payload":{"chunk_id":"row-2","text":"Cred raised","company":"Cred","city":"Bangalore","sector":"fintech","investors":["Tiger Global"],"amount":80000000,"year":2021}},
			{"score":0.72,"payload":{"chunk_id":"row-1","company":"Razorpay","city":"Bangalore","amount":50000000,"year":2020}}
		]}`))
	}))
	defer server.Close()

	client := New(server.URL, "funding")
	got, err := client.Search(context.Background(), []float32{0.1, 0.2}, 5, domain.Filter{
		City:   "Bangalore",
		Sector: "FinTech",
		Years:  &domain.YearRange{From: 2020, To: 2021},
		Amount: &domain.AmountFilter{Op: domain.AmountLT, Value: 1e8},
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 2 || got[0].Chunk.ID != "row-2" || got[0].Rank != 1 || got[1].Rank != 2 {
		t.Fatalf("unexpected candidates: %+v", got)
	}
	if got[0].Similarity != 0.91 || got[0].Chunk.Metadata.Year != 2021 || got[0].Chunk.Metadata.Investors[0] != "Tiger Global" {
		t.Fatalf("unexpected decoded chunk: %+v", got[0])
	}

	filter, _ := request["filter"].(map[string]any)
	must, _ := filter["must"].([]any)
	if len(must) != 4 {
		t.Fatalf("expected 4 conditions, got %v", must)
	}
	sector, _ := must[1].(map[string]any)
	if sector["key"] != "sector_key" || sector["match"].(map[string]any)["value"] != "fintech" {
		t.Fatalf("expected lowercased sector match, got %v", sector)
	}
	amount, _ := must[3].(map[string]any)
	rng, _ := amount["range"].(map[string]any)
	if rng["gt"] != float64(0) || rng["lt"] != float64(1e8) {
		t.Fatalf("expected amount range excluding undisclosed, got %v", rng)
	}
}

func TestBuildFilterMatchesCompanyKey(t *testing.T) {
	got := buildFilter(domain.Filter{Company: " Ola Electric "})
	want := map[string]any{"must": []map[string]any{
		{"key": "company_key", "match": map[string]any{"value": "ola electric"}},
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected filter (-want +got):\n%s", diff)
	}
	if key := chunkPayload(domain.Chunk{Metadata: domain.ChunkMetadata{Company: "Ola Electric"}})["company_key"]; key != "ola electric" {
		t.Fatalf("expected lowercased company key in payload, got %v", key)
	}
}

func TestSearchWithoutFilterOmitsFilter(t *testing.T) {
	var request map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&request)
		_, _ = w.Write([]byte(`{"result":[]}`))
	}))
	defer server.Close()

	if _, err := New(server.URL, "funding").Search(context.Background(), []float32{1}, 3, domain.Filter{}); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if _, ok := request["filter"]; ok {
		t.Fatalf("expected no filter in request, got %v", request["filter"])
	}
}

func TestSearchRetriesUnavailableAndWrapsFailure(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewWithOptions(server.URL, "funding", Options{Executor: resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
		RetryMultiplier:     2,
	})})
	_, err := client.Search(context.Background(), []float32{1}, 3, domain.Filter{})
	if !domain.IsKind(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}
