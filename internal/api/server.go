package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/lockstep/internal/dispatch"
	"github.com/samcharles93/lockstep/internal/inference"
	"github.com/samcharles93/lockstep/internal/logger"
)

// MaxSteps bounds a single completion request.
const MaxSteps = 1024

type Server struct {
	engine *inference.Engine
	reg    *dispatch.Registry
	log    logger.Logger
	clock  func() time.Time
}

func NewServer(engine *inference.Engine, reg *dispatch.Registry, log logger.Logger) *Server {
	if log == nil {
		log = logger.Default()
	}
	return &Server{
		engine: engine,
		reg:    reg,
		log:    log,
		clock:  time.Now,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/health", s.handleHealth)
	e.GET("/v1/invariance", s.handleInvariance)
	e.POST("/v1/completions", s.handleCompletion)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInvariance(c *echo.Context) error {
	return c.JSON(http.StatusOK, InvarianceResponse{Enabled: s.reg.IsEnabled()})
}

func (s *Server) handleCompletion(c *echo.Context) error {
	if s.engine == nil {
		return writeError(c, http.StatusInternalServerError, "server_error", "inference engine not configured")
	}
	req, err := decodeJSON[CompletionRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if len(req.Tokens) == 0 {
		return writeBadRequest(c, "tokens must not be empty")
	}
	if req.Steps <= 0 || req.Steps > MaxSteps {
		return writeBadRequest(c, "steps must be in (0, 1024]")
	}
	if req.Temperature != nil && *req.Temperature != 0 {
		// The serving surface is greedy-only; refusing is better than a
		// silently different configuration.
		return writeBadRequest(c, "only temperature=0 (greedy) is supported")
	}

	toks, stats, err := s.engine.Decode(c.Request().Context(), req.Tokens, req.Steps)
	if err != nil {
		s.log.Error("completion failed", "error", err)
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error())
	}

	return c.JSON(http.StatusOK, CompletionResponse{
		ID:        "cmpl-" + uuid.NewString(),
		Object:    "completion",
		Created:   s.clock().Unix(),
		Tokens:    toks,
		Invariant: s.reg.IsEnabled(),
		TPS:       stats.TPS,
	})
}
