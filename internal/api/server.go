// Package api serves the SignMaker HTTP interface: product CRUD, previews,
// background image generation and marketplace exports.
//
// Errors are returned as {"error": {"code": "...", "message": "..."}} with
// a status derived from the error code.
package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/northbynortheast/signmaker/pkg/errors"
	"github.com/northbynortheast/signmaker/pkg/jobs"
	"github.com/northbynortheast/signmaker/pkg/pipeline"
	"github.com/northbynortheast/signmaker/pkg/product"
)

const shutdownTimeout = 10 * time.Second

// Options wires a Server. Store, Runner and Jobs are required.
type Options struct {
	Store  product.Store
	Runner *pipeline.Runner
	Jobs   *jobs.Queue

	// Uploader publishes generated images. Nil disables uploads.
	Uploader pipeline.Uploader
	// PublicURL is the image base URL used in listing exports.
	PublicURL string

	Logger *log.Logger
}

// Server is the HTTP API.
type Server struct {
	store     product.Store
	runner    *pipeline.Runner
	jobs      *jobs.Queue
	uploader  pipeline.Uploader
	publicURL string
	logger    *log.Logger
	router    chi.Router
}

// New builds the router.
func New(opts Options) (*Server, error) {
	switch {
	case opts.Store == nil:
		return nil, errors.New(errors.ErrCodeConfiguration, "api: store is required")
	case opts.Runner == nil:
		return nil, errors.New(errors.ErrCodeConfiguration, "api: runner is required")
	case opts.Jobs == nil:
		return nil, errors.New(errors.ErrCodeConfiguration, "api: job queue is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	s := &Server{
		store:     opts.Store,
		runner:    opts.Runner,
		jobs:      opts.Jobs,
		uploader:  opts.Uploader,
		publicURL: opts.PublicURL,
		logger:    opts.Logger,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/api/health", s.health)

	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", s.listProducts)
		r.Post("/", s.createProduct)
		r.Route("/{m}", func(r chi.Router) {
			r.Get("/", s.getProduct)
			r.Patch("/", s.updateProduct)
			r.Delete("/", s.deleteProduct)
			r.Patch("/scale", s.updateScale)
			r.Patch("/position", s.updatePosition)
			r.Patch("/qa", s.updateQA)
		})
	})

	r.Get("/api/preview/{m}", s.previewPNG)
	r.Get("/api/preview/{m}/svg", s.previewSVG)

	r.Post("/api/generate/images", s.generateImages)
	r.Get("/api/jobs", s.listJobs)
	r.Get("/api/jobs/{id}", s.getJob)

	r.Route("/api/export", func(r chi.Router) {
		r.Post("/amazon", s.exportAmazon)
		r.Post("/etsy", s.exportEtsy)
		r.Post("/ebay", s.exportEbay)
		r.Get("/images/{m}", s.exportImages)
		r.Post("/m-number-folders", s.exportFolders)
		r.Get("/m-number-folders/{m}", s.exportFolder)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, errors.New(errors.ErrCodeNotFound, "no route for %s %s", r.Method, r.URL.Path))
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then drains
// in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		fields := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		}
		if ww.Status() >= http.StatusInternalServerError {
			s.logger.Warn("request", fields...)
		} else {
			s.logger.Debug("request", fields...)
		}
	})
}
