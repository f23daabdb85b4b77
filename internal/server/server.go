// Package server provides the HTTP API for readygate: running
// assessments, querying history, and inspecting trends.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/readygate/internal/assessment"
	"github.com/fyrsmithlabs/readygate/internal/config"
	"github.com/fyrsmithlabs/readygate/internal/risk"
	"github.com/fyrsmithlabs/readygate/internal/workflow"
)

// Runner executes assessment workflows.
type Runner interface {
	Run(ctx context.Context, req workflow.Request) (*workflow.Report, error)
}

// Sink receives finished reports. Sink failures are logged and never
// affect the HTTP response: the decision was already made.
type Sink interface {
	Publish(ctx context.Context, report *workflow.Report) error
}

// Server provides the readygate HTTP endpoints.
type Server struct {
	echo    *echo.Echo
	runner  Runner
	store   assessment.Store
	sinks   []Sink
	logger  *zap.Logger
	metrics *Metrics
	config  config.ServerConfig
}

// New creates the HTTP server. The store may be nil, which disables the
// history and trend endpoints.
func New(cfg config.ServerConfig, runner Runner, store assessment.Store, logger *zap.Logger, sinks ...Sink) (*Server, error) {
	if runner == nil {
		return nil, errors.New("runner is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	if cfg.ReadTimeout.Duration() > 0 {
		e.Server.ReadTimeout = cfg.ReadTimeout.Duration()
	}
	if cfg.WriteTimeout.Duration() > 0 {
		e.Server.WriteTimeout = cfg.WriteTimeout.Duration()
	}

	s := &Server{
		echo:    e,
		runner:  runner,
		store:   store,
		sinks:   sinks,
		logger:  logger,
		metrics: NewMetrics(),
		config:  cfg,
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.observe)
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/assessments", s.handleAssess)
	v1.GET("/assessments", s.handleHistory)
	v1.GET("/targets/:target/trend", s.handleTrend)
}

// observe logs and measures every request.
func (s *Server) observe(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		duration := time.Since(start)

		status := c.Response().Status
		if err != nil {
			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				status = httpErr.Code
			}
		}

		s.metrics.RequestsTotal.WithLabelValues(
			c.Request().Method, c.Path(), strconv.Itoa(status)).Inc()
		s.metrics.RequestDuration.WithLabelValues(
			c.Request().Method, c.Path()).Observe(duration.Seconds())

		s.logger.Info("http request",
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI),
			zap.Int("status", status),
			zap.Duration("duration", duration),
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
		)
		return err
	}
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleAssess runs one assessment workflow and returns the full report.
// The HTTP status reflects transport validity only; the gate outcome is
// in the body.
func (s *Server) handleAssess(c echo.Context) error {
	var req workflow.Request
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid assessment request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	report, err := s.runner.Run(c.Request().Context(), req)
	if err != nil {
		s.logger.Warn("assessment rejected", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if a := report.Assessment; a != nil {
		s.metrics.AssessmentsTotal.WithLabelValues(
			strconv.FormatBool(report.DeploymentReady), string(a.Decision.Tier)).Inc()
	}
	s.dispatch(c.Request().Context(), report)
	return c.JSON(http.StatusOK, report)
}

// dispatch fans the report out to the configured sinks.
func (s *Server) dispatch(ctx context.Context, report *workflow.Report) {
	for _, sink := range s.sinks {
		if err := sink.Publish(ctx, report); err != nil {
			s.logger.Warn("report sink failed",
				zap.String("run_id", report.RunID),
				zap.Error(err))
		}
	}
}

// HistoryResponse is the response body for GET /api/v1/assessments.
type HistoryResponse struct {
	Target      string                   `json:"target,omitempty"`
	Assessments []*assessment.Assessment `json:"assessments"`
}

func (s *Server) handleHistory(c echo.Context) error {
	if s.store == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "persistence is disabled")
	}

	tr, err := parseRange(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	target := c.QueryParam("target")

	records, err := s.store.Query(c.Request().Context(), target, tr)
	if err != nil {
		s.logger.Error("history query failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "history query failed")
	}
	return c.JSON(http.StatusOK, HistoryResponse{Target: target, Assessments: records})
}

// TrendResponse is the response body for GET /api/v1/targets/:target/trend.
type TrendResponse struct {
	Target  string              `json:"target"`
	Trend   risk.Trend          `json:"trend"`
	History []risk.HistoryPoint `json:"history"`
}

func (s *Server) handleTrend(c echo.Context) error {
	if s.store == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "persistence is disabled")
	}
	target := c.Param("target")
	if target == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "target is required")
	}

	tr, err := parseRange(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	records, err := s.store.Query(c.Request().Context(), target, tr)
	if err != nil {
		s.logger.Error("trend query failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "trend query failed")
	}

	points := assessment.History(records)
	return c.JSON(http.StatusOK, TrendResponse{
		Target:  target,
		Trend:   risk.AnalyzeTrend(points),
		History: points,
	})
}

func parseRange(c echo.Context) (assessment.TimeRange, error) {
	var tr assessment.TimeRange
	if from := c.QueryParam("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return tr, errors.New("from must be RFC3339")
		}
		tr.From = t
	}
	if to := c.QueryParam("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return tr, errors.New("to must be RFC3339")
		}
		tr.To = t
	}
	return tr, nil
}

// Start starts the HTTP server and blocks.
func (s *Server) Start() error {
	s.logger.Info("starting http server", zap.String("addr", s.config.Addr))
	return s.echo.Start(s.config.Addr)
}

// Shutdown gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

// Echo exposes the router for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
