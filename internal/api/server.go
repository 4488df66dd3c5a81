// Package api exposes the review dashboard's HTTP surface over gin.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/study-review-server/internal/analytics"
	"github.com/study-review-server/internal/dashboard"
	"github.com/study-review-server/internal/domain"
	"github.com/study-review-server/internal/middleware"
	"github.com/study-review-server/internal/reports"
	"github.com/study-review-server/internal/service"
)

// Server is the HTTP server fronting the review service.
type Server struct {
	config    *domain.Config
	service   *service.ReviewService
	engine    *analytics.Engine
	selection *reports.Selection
	generator *reports.Generator
	view      *dashboard.State
	logger    *logrus.Logger

	router *gin.Engine
	server *http.Server
}

// NewServer builds the router and wires every route group.
func NewServer(
	cfg *domain.Config,
	reviewService *service.ReviewService,
	engine *analytics.Engine,
	selection *reports.Selection,
	generator *reports.Generator,
	logger *logrus.Logger,
) *Server {
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.AuditLogger())
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	if cfg.Server.RequestTimeout > 0 {
		router.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout))
	}

	s := &Server{
		config:    cfg,
		service:   reviewService,
		engine:    engine,
		selection: selection,
		generator: generator,
		view:      dashboard.NewState(),
		logger:    logger,
		router:    router,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		studies := v1.Group("/studies")
		{
			studies.GET("", s.handleListStudies)
			studies.GET("/:uid", s.handleGetStudy)
			studies.PUT("/:uid", s.handleUpdateStudy)
			studies.GET("/:uid/pathologies", s.handleGetPathologies)
			studies.GET("/:uid/progress", s.handleDecisionProgress)
			studies.POST("/:uid/pathologies/:key/decision", s.handleDecide)
			studies.POST("/:uid/pathologies/:key/correction", s.handleBeginCorrection)
			studies.PUT("/:uid/pathologies/:key/correction", s.handleSaveCorrection)
			studies.DELETE("/:uid/pathologies/:key/correction", s.handleCancelCorrection)
			studies.POST("/:uid/decisions/submit", s.handleSubmitDecisions)
		}

		analyticsGroup := v1.Group("/analytics")
		{
			analyticsGroup.GET("/daily", s.handleDailyCounts)
			analyticsGroup.GET("/pathologies", s.handlePathologyFrequency)
			analyticsGroup.GET("/statuses", s.handleStatusRatio)
			analyticsGroup.GET("/summary", s.handleSummary)
		}

		reportsGroup := v1.Group("/reports")
		{
			reportsGroup.GET("/selection", s.handleGetSelection)
			reportsGroup.POST("/selection/:uid", s.handleSelect)
			reportsGroup.DELETE("/selection/:uid", s.handleDeselect)
			reportsGroup.DELETE("/selection", s.handleClearSelection)
			reportsGroup.POST("/generate", s.handleGenerateReport)
		}

		reference := v1.Group("/reference")
		{
			reference.GET("/pathologies", s.handlePathologyReference)
			reference.GET("/physicians", s.handlePhysicianReference)
		}

		s.setupLogRoutes(v1)
		s.setupViewRoutes(v1)
	}
}

// Start runs the server until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.config.Server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	s.logger.WithField("addr", addr).Info("Review server listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

// Router exposes the underlying handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	status := "healthy"
	code := http.StatusOK
	if !s.service.CacheHealthy(c.Request.Context()) {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
	})
}
