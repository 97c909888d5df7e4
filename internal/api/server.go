package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cloneselect/app"
	"cloneselect/domain/workflow"
	"cloneselect/internal"
	"cloneselect/internal/errors"
)

// Server exposes the simulation services over JSON HTTP
type Server struct {
	router      *gin.Engine
	simulation  *app.SimulationService
	sensitivity *app.SensitivityService
	sweep       *app.SweepService
	hub         *SSEHub
	baseCtx     context.Context
	defaultSeed int64
	logger      *internal.Logger
}

// NewServer wires the handlers onto a fresh gin engine
func NewServer(simulation *app.SimulationService, sensitivity *app.SensitivityService, sweep *app.SweepService, defaultSeed int64, logger *internal.Logger) *Server {
	s := &Server{
		router:      gin.New(),
		simulation:  simulation,
		sensitivity: sensitivity,
		sweep:       sweep,
		hub:         NewSSEHub(logger),
		baseCtx:     context.Background(),
		defaultSeed: defaultSeed,
		logger:      logger.WithComponent("API"),
	}
	s.router.Use(gin.Recovery(), s.requestLogger())
	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is canceled, then shuts down gracefully. Background
// sweeps started through the API are canceled with ctx.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.baseCtx = ctx
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/simulate", s.handleSimulate)
		v1.POST("/sweep", s.handleSweep)
		v1.POST("/sweep/async", s.handleSweepAsync)
		v1.GET("/runs/:id/events", s.handleRunEvents)
		v1.POST("/sensitivity", s.handleSensitivity)
		v1.POST("/compare", s.handleCompare)
		v1.POST("/synthetic", s.handleSynthetic)
		v1.POST("/efficiency", s.handleEfficiency)
		v1.POST("/validate", s.handleValidate)
		v1.POST("/profile", s.handleProfile)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("%s %s -> %d in %v", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

func (s *Server) defaultConfig() workflow.Config {
	cfg := workflow.DefaultConfig()
	cfg.Seed = s.defaultSeed
	return cfg
}

// statusFor maps an error code to an HTTP status
func statusFor(code string) int {
	switch code {
	case errors.CodeValidationError, errors.CodeConfigInvalid:
		return http.StatusUnprocessableEntity
	case errors.CodeInvalidInput:
		return http.StatusBadRequest
	case errors.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := statusFor(code)
	if status == http.StatusInternalServerError {
		s.logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}
