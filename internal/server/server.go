// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes research runs over HTTP. POST /api/research
// streams the same NDJSON snapshot protocol the CLI writes; stored reports
// are served as JSON.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/pdiddy/equity-research/internal/metrics"
	"github.com/pdiddy/equity-research/internal/research"
	"github.com/pdiddy/equity-research/internal/store"
	"github.com/pdiddy/equity-research/internal/stream"
	"github.com/pdiddy/equity-research/pkg/types"
)

// Runner runs one investigation, publishing snapshots as it goes.
type Runner interface {
	Run(ctx context.Context, ticker string, lang types.Language, pub research.Publisher) types.State
}

// Reports reads persisted runs.
type Reports interface {
	Load(ctx context.Context, id string) (types.StoredReport, error)
	List(ctx context.Context, opts store.ListOptions) ([]types.ReportSummary, error)
	SearchFacts(ctx context.Context, query string, limit int) ([]store.FactHit, error)
}

var tickerPattern = regexp.MustCompile(`^[A-Za-z0-9.\-^=]{1,16}$`)

// Server is the HTTP API.
type Server struct {
	echo    *echo.Echo
	runner  Runner
	reports Reports
	logger  *zap.Logger
}

// New builds the API. reports may be nil when persistence is disabled;
// report endpoints then answer 503.
func New(runner Runner, reports Reports, m *metrics.Metrics, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{echo: echo.New(), runner: runner, reports: reports, logger: logger}
	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = s.handleError

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	api := e.Group("/api")
	api.POST("/research", s.research)
	api.GET("/reports", s.listReports)
	api.GET("/reports/:id", s.getReport)
	api.GET("/facts", s.searchFacts)
	return s
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler { return s.echo }

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Info("listening", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the listener and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleError(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
	}
	req := c.Request()
	s.logger.Warn("request failed",
		zap.Int("status", code),
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Error(err))
	if !c.Response().Committed {
		_ = c.JSON(code, map[string]string{"error": msg})
	}
}

type researchRequest struct {
	Ticker   string `json:"ticker" query:"ticker"`
	Language string `json:"language" query:"language"`
}

func (s *Server) research(c echo.Context) error {
	var req researchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))
	if !tickerPattern.MatchString(ticker) {
		return echo.NewHTTPError(http.StatusBadRequest, "ticker is required")
	}
	lang := types.Language(req.Language)
	if lang == "" {
		lang = types.LanguageEnglish
	}
	if !lang.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unsupported language %q", req.Language))
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, stream.ContentType)
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set("X-Content-Type-Options", "nosniff")
	resp.WriteHeader(http.StatusOK)

	final := s.runner.Run(c.Request().Context(), ticker, lang, stream.NewPublisher(resp))
	s.logger.Info("research stream finished",
		zap.String("ticker", ticker),
		zap.String("status", string(final.Status)))
	return nil
}

func (s *Server) getReport(c echo.Context) error {
	if s.reports == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "persistence disabled")
	}
	r, err := s.reports.Load(c.Request().Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "report not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r)
}

func (s *Server) listReports(c echo.Context) error {
	if s.reports == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "persistence disabled")
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	rows, err := s.reports.List(c.Request().Context(), store.ListOptions{Ticker: c.QueryParam("ticker"), Limit: limit})
	if err != nil {
		return err
	}
	if rows == nil {
		rows = []types.ReportSummary{}
	}
	return c.JSON(http.StatusOK, rows)
}

func (s *Server) searchFacts(c echo.Context) error {
	if s.reports == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "persistence disabled")
	}
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q is required")
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	hits, err := s.reports.SearchFacts(c.Request().Context(), q, limit)
	if err != nil {
		return err
	}
	if hits == nil {
		hits = []store.FactHit{}
	}
	return c.JSON(http.StatusOK, hits)
}

func queryInt(c echo.Context, name string) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid %s", name))
	}
	return n, nil
}
