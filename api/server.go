package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dodoricogino/INMO-enlaces-PDF/events"
	"github.com/dodoricogino/INMO-enlaces-PDF/models"
	"github.com/dodoricogino/INMO-enlaces-PDF/services"
	"github.com/dodoricogino/INMO-enlaces-PDF/utils"
)

// Extractor turns a listing URL into a payload. scraper.Service implements it.
type Extractor interface {
	Extract(ctx context.Context, url string) (*models.ExtractedPayload, error)
}

// Deps are the collaborators the HTTP handlers call into.
type Deps struct {
	Extractor  Extractor
	Properties *services.PropertyService
	Brochures  *services.BrochureRenderer
	Pages      *services.PublicPageRenderer
	Publisher  events.Publisher
	Retry      utils.RetryConfig
	Logger     *utils.Logger
}

// Server is the REST API server.
type Server struct {
	httpServer *http.Server
	logger     *utils.Logger
}

// NewServer wires the router and the HTTP server listening on port.
func NewServer(port string, deps Deps) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + port,
			Handler:           NewRouter(deps),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: deps.Logger,
	}
}

// NewRouter builds the route table. It is exported for tests and embedding.
func NewRouter(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = utils.NewNopLogger()
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NopPublisher{}
	}
	h := &handlers{deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.RealIP, LoggerMiddleware(deps.Logger), middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Trace-ID"},
		ExposedHeaders: []string{"X-Trace-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/extract", h.Extract)
		r.Post("/properties", h.SaveProperty)
		r.Get("/properties/{id}", h.GetProperty)
		r.Get("/properties/{id}/pdf", h.PropertyPDF)
	})

	r.Get("/p/{slug}", h.PublicPage)

	return r
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	s.logger.Info("starting REST API server", "address", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("could not start server: %w", err)
	}
	return nil
}

// Stop drains in-flight requests until ctx ends.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping REST API server")
	return s.httpServer.Shutdown(ctx)
}
