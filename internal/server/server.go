/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package server exposes pagination, preview and export over HTTP. Each
// request carries its own element list; nothing is shared between requests
// except the optional Postgres store.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"goscreenwriter/internal/backend"
	"goscreenwriter/internal/export"
	applog "goscreenwriter/internal/log"
	"goscreenwriter/internal/preview"
	"goscreenwriter/internal/telemetry"
)

// MaxBodyBytes bounds request bodies and websocket messages.
const MaxBodyBytes = 32 << 20

type Options struct {
	Addr string
	// Store enables the /api/projects routes when set.
	Store *backend.Store
	// BatchSize is passed to PDF exports.
	BatchSize  int
	PreviewDPI float64
	FontPath   string
	// Debounce is the quiet time before a live edit session repaginates.
	Debounce  time.Duration
	Telemetry *telemetry.Client
	Debug     bool
}

type Server struct {
	opts   Options
	engine *gin.Engine
	log    *slog.Logger
	// afterExport observes finished websocket exports.
	afterExport func(export.Stats, error)
}

func New(opts Options) *Server {
	if opts.BatchSize <= 0 {
		opts.BatchSize = export.DefaultBatchSize
	}
	if opts.PreviewDPI <= 0 {
		opts.PreviewDPI = preview.DefaultDPI
	}
	if opts.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{opts: opts, log: applog.WithComponent("server")}
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), bodyLimit(MaxBodyBytes))

	r.GET("/healthz", s.health)
	r.GET("/readyz", s.ready)
	r.GET("/version", s.version)

	api := r.Group("/api")
	api.POST("/paginate", s.paginate)
	api.POST("/preview", s.preview)
	api.POST("/preview/png", s.previewPNG)
	api.POST("/export/:format", s.export)
	if opts.Store != nil {
		api.GET("/projects", s.listProjects)
		api.GET("/projects/:id/script", s.loadScript)
		api.PUT("/projects/:id/script", s.saveScript)
		api.POST("/projects/:id/paginate", s.paginateStored)
		api.GET("/projects/:id/search", s.searchStored)
	}
	r.GET("/ws/export", s.wsExport)
	r.GET("/ws/edit", s.wsEdit)
	s.engine = r
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", s.opts.Addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		lvl := slog.LevelDebug
		if c.Writer.Status() >= http.StatusInternalServerError {
			lvl = slog.LevelError
		}
		s.log.Log(c.Request.Context(), lvl, "request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"took", time.Since(start))
	}
}

func bodyLimit(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

func (s *Server) health(c *gin.Context) { c.String(http.StatusOK, "ok") }

func (s *Server) ready(c *gin.Context) {
	if s.opts.Store == nil {
		c.String(http.StatusOK, "ready")
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := s.opts.Store.Ping(ctx); err != nil {
		c.String(http.StatusServiceUnavailable, "db not ready")
		return
	}
	c.String(http.StatusOK, "ready")
}

func abortError(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// exportStatus maps export error kinds onto HTTP codes.
func exportStatus(err error) int {
	switch {
	case export.IsKind(err, export.KindContent):
		return http.StatusUnprocessableEntity
	case export.IsKind(err, export.KindCancelled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}
