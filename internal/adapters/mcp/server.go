// Package mcpadapter exposes the funding pipeline as MCP tools.
package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
	"github.com/kirillkom/funding-rag-assistant/internal/core/gazetteer"
	"github.com/kirillkom/funding-rag-assistant/internal/core/money"
	"github.com/kirillkom/funding-rag-assistant/internal/core/ports"
)

const (
	ToolQuery = "funding_query"
	ToolStats   = "funding_stats"
	ToolCompany = "funding_company"
)

type Server struct {
	query     ports.QueryService
	stats     ports.StatsService
	companies ports.CompanyService
	currency  string
	mcp       *server.MCPServer
}

func NewServer(name, version string, query ports.QueryService, stats ports.StatsService, currency string) *Server {
	s := &Server{
		query:    query,
		stats:    stats,
		currency: currency,
		mcp: server.NewMCPServer(name, version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
			server.WithInstructions("Answers questions about startup funding rounds in any supported Indian language, with cited records."),
		),
	}

	s.mcp.AddTool(mcp.NewTool(ToolQuery,
		mcp.WithDescription("Answer a natural-language question about startup funding. Replies in the question's language and cites the funding records used."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Question, e.g. \"Top 5 fintech startups in Bangalore\".")),
		mcp.WithString("language", mcp.Description("Optional ISO 639-1 code (en, hi, te, ta, kn, mr, gu, bn, ml, pa).")),
	), s.handleQuery)

	s.mcp.AddTool(mcp.NewTool(ToolStats,
		mcp.WithDescription("Exact funding totals over structured filters: deal count, sum, average, min, max, top investors and companies."),
		mcp.WithString("company", mcp.Description("Exact company name, e.g. Razorpay.")),
		mcp.WithString("city", mcp.Description("City, e.g. Bangalore.")),
		mcp.WithString("state", mcp.Description("State, e.g. Karnataka.")),
		mcp.WithString("sector", mcp.Description("Sector, e.g. fintech.")),
		mcp.WithString("investor", mcp.Description("Investor name.")),
		mcp.WithString("round", mcp.Description("Funding round, e.g. Series A.")),
		mcp.WithNumber("year_from", mcp.Description("First year, inclusive.")),
		mcp.WithNumber("year_to", mcp.Description("Last year, inclusive.")),
	), s.handleStats)

	return s
}

// WithCompanies registers the company profile tool.
func (s *Server) WithCompanies(svc ports.CompanyService) *Server {
	s.companies = svc
	s.mcp.AddTool(mcp.NewTool(ToolCompany,
		mcp.WithDescription("Every funding round of one company with its total funding and round count."),
		mcp.WithString("company", mcp.Required(), mcp.Description("Company name as it appears in the dataset, e.g. Ola Electric.")),
	), s.handleCompany)
	return s
}

func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// ServeStdio serves JSON-RPC over in and out until ctx is done or in closes.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	if err := stdio.Listen(ctx, in, out); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp stdio: %w", err)
	}
	return nil
}

func (s *Server) handleQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp, err := s.query.Answer(ctx, domain.QueryRequest{
		Query:    query,
		Language: req.GetString("language", ""),
	})
	if err != nil {
		if domain.IsKind(err, domain.ErrInvalidInput) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		slog.Error("mcp_query_failed", "error", err)
		return mcp.NewToolResultError("funding query failed"), nil
	}
	return jsonResult(resp)
}

func (s *Server) handleStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := statsFilter(req)
	agg, err := s.stats.Stats(ctx, filter)
	if err != nil {
		if domain.IsKind(err, domain.ErrInvalidInput) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		slog.Error("mcp_stats_failed", "error", err)
		return mcp.NewToolResultError("funding stats failed"), nil
	}

	return jsonResult(struct {
		Filter    domain.Filter    `json:"filter"`
		Aggregate domain.Aggregate `json:"aggregate"`
		Summary   string           `json:"summary"`
	}{
		Filter:    filter,
		Aggregate: agg,
		Summary:   summarize(agg, s.currency),
	})
}

func (s *Server) handleCompany(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("company")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	profile, err := s.companies.CompanyProfile(ctx, name)
	if err != nil {
		if domain.IsKind(err, domain.ErrInvalidInput) || domain.IsKind(err, domain.ErrNotFound) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		slog.Error("mcp_company_failed", "error", err)
		return mcp.NewToolResultError("company lookup failed"), nil
	}

	return jsonResult(struct {
		domain.CompanyProfile
		Summary string `json:"summary"`
	}{
		CompanyProfile: profile,
		Summary: fmt.Sprintf("%s: %d rounds, total %s over %d disclosed amounts.",
			profile.Company, profile.TotalRounds, money.Format(profile.TotalFunding, s.currency), profile.DisclosedRounds),
	})
}

func statsFilter(req mcp.CallToolRequest) domain.Filter {
	filter := domain.Filter{
		Company:  strings.TrimSpace(req.GetString("company", "")),
		Investor: strings.TrimSpace(req.GetString("investor", "")),
	}
	if city := strings.TrimSpace(req.GetString("city", "")); city != "" {
		filter.City = city
		if canonical, ok := gazetteer.CanonicalCity(city); ok {
			filter.City = canonical
		}
	}
	if state := strings.TrimSpace(req.GetString("state", "")); state != "" {
		filter.State = state
		if canonical, ok := gazetteer.CanonicalState(state); ok {
			filter.State = canonical
		}
	}
	if sector := strings.TrimSpace(req.GetString("sector", "")); sector != "" {
		filter.Sector = gazetteer.CanonicalSector(sector)
	}
	if round := strings.TrimSpace(req.GetString("round", "")); round != "" {
		filter.Round = gazetteer.CanonicalRound(round)
	}

	from, to := req.GetInt("year_from", 0), req.GetInt("year_to", 0)
	switch {
	case from > 0 && to > 0:
		filter.Years = &domain.YearRange{From: from, To: to}
	case from > 0:
		filter.Years = &domain.YearRange{From: from, To: 9999}
	case to > 0:
		filter.Years = &domain.YearRange{From: 0, To: to}
	}
	return filter
}

func summarize(agg domain.Aggregate, currency string) string {
	if agg.Count == 0 {
		return "No funding records match these filters."
	}
	return fmt.Sprintf("%d deals, total %s (%s), average %s over %d disclosed amounts.",
		agg.Count,
		money.Format(agg.Sum, currency),
		money.FormatExact(agg.Sum, currency),
		money.Format(agg.Average, currency),
		agg.AmountCount,
	)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}
