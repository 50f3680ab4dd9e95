// Package server exposes the sweep over HTTP for an external scheduler.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dev-tams/blobsweep/internal/app"
	"github.com/dev-tams/blobsweep/internal/config"
	"github.com/dev-tams/blobsweep/internal/reportstore"
	"github.com/dev-tams/blobsweep/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

type Runner interface {
	Run(ctx context.Context, opt app.Options) (*app.Report, error)
}

type ReportReader interface {
	Last(ctx context.Context) (reportstore.Record, bool, error)
}

type Deps struct {
	Runner Runner
	// Reports is optional; without it /api/cron/retention/last always 404s.
	Reports ReportReader
	Metrics http.Handler
	Secret  string
}

type handler struct {
	runner  Runner
	reports ReportReader
}

func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(Recovery())
	router.Use(Logger())

	h := &handler{runner: d.Runner, reports: d.Reports}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.Metrics != nil {
		router.GET("/metrics", gin.WrapH(d.Metrics))
	}

	cron := router.Group("/api/cron", BearerAuth(d.Secret))
	{
		cron.GET("/retention", h.runRetention)
		cron.POST("/retention", h.runRetention)
		cron.GET("/retention/last", h.lastReport)
	}

	return router
}

func (h *handler) runRetention(c *gin.Context) {
	dryRun, err := parseDryRun(c.Query("dryRun"))
	if err != nil {
		c.JSON(http.StatusBadRequest, failure(err.Error()))
		return
	}

	report, err := h.runner.Run(c.Request.Context(), app.Options{DryRun: dryRun})
	if err != nil {
		logger.Log.Error().Err(err).Bool("dry_run", dryRun).Msg("retention run failed")
		c.JSON(http.StatusInternalServerError, failure(err.Error()))
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *handler) lastReport(c *gin.Context) {
	if h.reports == nil {
		c.JSON(http.StatusNotFound, failure("report storage is not configured"))
		return
	}

	rec, ok, err := h.reports.Last(c.Request.Context())
	if err != nil {
		logger.Log.Error().Err(err).Msg("failed to read last report")
		c.JSON(http.StatusInternalServerError, failure(err.Error()))
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, failure("no report stored yet"))
		return
	}
	c.JSON(http.StatusOK, rec)
}

func parseDryRun(raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errors.New("dryRun must be true or false")
	}
	return v, nil
}

func failure(msg string) gin.H {
	return gin.H{"success": false, "error": msg}
}

// New wraps handler in an http.Server configured from cfg.
func New(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// ListenAndServe runs srv until ctx is cancelled, then shuts it down
// gracefully, letting an in-flight run finish.
func ListenAndServe(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
