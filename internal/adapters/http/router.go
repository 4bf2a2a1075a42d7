package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kirillkom/funding-rag-assistant/internal/config"
	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
	"github.com/kirillkom/funding-rag-assistant/internal/core/ports"
	"github.com/kirillkom/funding-rag-assistant/internal/observability/metrics"
)

const maxRequestBytes = 64 << 10

type Router struct {
	cfg       config.Config
	queryUC   ports.QueryService
	cache     ports.CacheAdmin
	companies ports.CompanyService
	metrics   *metrics.HTTPServerMetrics
}

// NewRouter builds the API router. cache and httpMetrics may be nil.
func NewRouter(
	cfg config.Config,
	queryUC ports.QueryService,
	cache ports.CacheAdmin,
	httpMetrics *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		cfg:     cfg,
		queryUC: queryUC,
		cache:   cache,
		metrics: httpMetrics,
	}
}

// WithCompanies enables GET /v1/companies/{name}.
func (rt *Router) WithCompanies(svc ports.CompanyService) *Router {
	rt.companies = svc
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/query", rt.query)
	mux.HandleFunc("POST /v1/cache/invalidate", rt.invalidateCache)
	mux.HandleFunc("GET /v1/cache/stats", rt.cacheStats)
	if rt.companies != nil {
		mux.HandleFunc("GET /v1/companies/{name}", rt.company)
	}
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if validator, err := newOpenAPIValidator(); err != nil {
		slog.Error("openapi_validator_disabled", "error", err)
	} else {
		handler = validator.middleware(handler)
	}
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, rt.cfg.APIBackpressureWait)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) query(w http.ResponseWriter, r *http.Request) {
	var req domain.QueryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	resp, err := rt.queryUC.Answer(r.Context(), req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		status := mapErrorToHTTPStatus(err)
		if status >= http.StatusInternalServerError {
			slog.Error("query_failed",
				"request_id", domain.RequestIDFromContext(r.Context()),
				"error", err,
			)
		}
		writeError(w, status, publicMessage(status, err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) company(w http.ResponseWriter, r *http.Request) {
	profile, err := rt.companies.CompanyProfile(r.Context(), r.PathValue("name"))
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		status := mapErrorToHTTPStatus(err)
		if status >= http.StatusInternalServerError {
			slog.Error("company_profile_failed",
				"request_id", domain.RequestIDFromContext(r.Context()),
				"error", err,
			)
		}
		writeError(w, status, publicMessage(status, err))
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (rt *Router) invalidateCache(w http.ResponseWriter, r *http.Request) {
	if rt.cache == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
		return
	}
	if err := rt.cache.InvalidateAll(r.Context()); err != nil {
		slog.Error("cache_invalidate_failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "cache invalidation failed")
		return
	}
	slog.Info("cache_invalidated", "request_id", domain.RequestIDFromContext(r.Context()))
	writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (rt *Router) cacheStats(w http.ResponseWriter, _ *http.Request) {
	if rt.cache == nil {
		writeJSON(w, http.StatusOK, domain.CacheStats{Backend: "none"})
		return
	}
	writeJSON(w, http.StatusOK, rt.cache.Stats())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
