// Package api serves the batch upload API over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/lettermerge/internal/core/ports/driven"
	"github.com/custodia-labs/lettermerge/internal/core/ports/driving"
	"github.com/custodia-labs/lettermerge/internal/logger"
)

// DefaultMaxUpload bounds an uploaded table.
const DefaultMaxUpload = 32 << 20

// ErrMissingPorts is returned when a required service is not provided.
var ErrMissingPorts = errors.New("api: generate and batch services are required")

// Ports aggregates the services the API calls.
type Ports struct {
	Generate driving.GenerateService
	Batches  driving.BatchService

	// Auth gates every route. Required.
	Auth driven.Authorizer
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Generate == nil || p.Batches == nil {
		return ErrMissingPorts
	}
	if p.Auth == nil {
		return errors.New("api: an authorizer is required")
	}
	return nil
}

// Server is the HTTP API.
type Server struct {
	ports     *Ports
	router    *gin.Engine
	maxUpload int64
}

// NewServer creates the API server and its routes.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLog())
	router.MaxMultipartMemory = 8 << 20

	s := &Server{
		ports:     ports,
		router:    router,
		maxUpload: DefaultMaxUpload,
	}

	api := router.Group("/api", s.authenticate())
	{
		api.POST("/batches", s.handleCreateBatch)
		api.GET("/batches", s.handleListBatches)
		api.GET("/batches/:id", s.handleGetBatch)
		api.GET("/batches/:id/archive", s.handleGetArchive)
	}

	return s, nil
}

// Handler returns the router, for tests and custom servers.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	logger.Info("API listening on %s", addr)
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// requestLog writes one debug line per request through the application logger.
func requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
