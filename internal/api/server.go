// Package api serves the messaging REST surface over gin.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hitoq/hitoq/internal/identity"
	"github.com/hitoq/hitoq/internal/messaging"
	"github.com/hitoq/hitoq/internal/metrics"
	"github.com/rs/zerolog"
)

// StartOpts holds configuration for the API server.
type StartOpts struct {
	Service  *messaging.Service
	Resolver identity.Resolver
	Log      zerolog.Logger
	Port     int
	Mode     string // gin mode; release when empty
	Out      io.Writer
}

// Start launches the HTTP server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Service == nil {
		return fmt.Errorf("api: service is required")
	}
	if opts.Resolver == nil {
		return fmt.Errorf("api: resolver is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}
	if opts.Mode == "" {
		opts.Mode = gin.ReleaseMode
	}
	gin.SetMode(opts.Mode)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           NewRouter(opts.Service, opts.Resolver, opts.Log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "hitoq API listening on http://localhost:%d\n", opts.Port)
	}
	opts.Log.Info().Int("port", opts.Port).Msg("api server starting")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(svc *messaging.Service, resolver identity.Resolver, log zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), RequestLogger(log), Metrics())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	h := &handlers{svc: svc}
	authed := router.Group("/", Authenticate(resolver))
	registerRoutes(authed, h)
	return router
}
