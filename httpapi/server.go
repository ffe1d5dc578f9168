// Package httpapi exposes the orchestrator over JSON HTTP endpoints.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vivaneiona/menulens"
)

const (
	EndPointHealth       = "/health"
	EndPointMenu         = "/api/menu"
	EndPointOCR          = "/api/ocr"
	EndPointDishDetails  = "/api/dish-details"
	EndPointBatchDetails = "/api/batch-dish-details"
	EndPointTranslate    = "/api/translate"
)

// Config holds server settings.
type Config struct {
	FetchTimeout    time.Duration // image_url download budget
	ShutdownTimeout time.Duration
	HTTPClient      *http.Client // used for image_url downloads
	Version         string
	Logger          *slog.Logger
}

// Server routes requests to an Orchestrator.
type Server struct {
	o      *menulens.Orchestrator
	cfg    Config
	log    *slog.Logger
	router *gin.Engine
}

// New builds the router.
func New(o *menulens.Orchestrator, cfg Config) *Server {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 15 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Server{o: o, cfg: cfg, log: cfg.Logger}

	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), RequestLogger(s.log), CORS())

	router.GET(EndPointHealth, s.health)
	api := router.Group("/")
	{
		api.POST(EndPointMenu, s.menu)
		api.POST(EndPointOCR, s.ocr)
		api.POST(EndPointDishDetails, s.dishDetails)
		api.POST(EndPointBatchDetails, s.batchDishDetails)
		api.POST(EndPointTranslate, s.translate)
	}
	s.router = router
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Server listening", "addr", addr,
			"extractor", s.o.ExtractorName(), "ocr", s.o.OCRName())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
