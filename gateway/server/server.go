// Package server exposes the onboarding HTTP API: quote previews priced by
// the engine and the checkout/order workflow around them.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"terranet/gateway/middleware"
	"terranet/orders"
	"terranet/pricing"
)

// Config captures the dependencies required to construct the server.
type Config struct {
	Store         *orders.Store
	Schedule      *pricing.Schedule
	Logger        *slog.Logger
	CORS          middleware.CORSConfig
	RateLimits    map[string]middleware.RateLimit
	Observability middleware.ObservabilityConfig
}

// Server encapsulates dependencies for the HTTP API.
type Server struct {
	store    *orders.Store
	schedule *pricing.Schedule
	logger   *slog.Logger
	obs      *middleware.Observability

	router http.Handler
}

// New constructs a configured HTTP router with CORS, throttling, and
// observability middleware applied.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	srv := &Server{
		store:    cfg.Store,
		schedule: cfg.Schedule,
		logger:   logger,
		obs:      middleware.NewObservability(cfg.Observability, logger),
	}
	srv.router = srv.buildRouter(cfg)
	return srv
}

// Handler exposes the configured HTTP router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter(cfg Config) http.Handler {
	limiter := middleware.NewRateLimiter(cfg.RateLimits, s.logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(cfg.CORS))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.obs.MetricsHandler())

	r.Route("/api/v1", func(api chi.Router) {
		api.With(limiter.Middleware("quotes"), s.obs.Middleware("quote_preview")).
			Post("/quotes/preview", s.QuotePreview)
		api.With(limiter.Middleware("checkout"), s.obs.Middleware("checkout_start")).
			Post("/checkout/start", s.StartCheckout)

		api.Group(func(ord chi.Router) {
			ord.Use(s.obs.Middleware("orders"))
			ord.Get("/orders", s.ListOrders)
			ord.Get("/orders/{quoteID}", s.GetOrder)
			ord.Delete("/orders/{quoteID}", s.DeleteOrder)
			ord.Get("/orders/{quoteID}/status", s.GetOrderStatus)
			ord.Post("/orders/{quoteID}/status", s.UpdateOrderStatus)
			ord.Post("/orders/{quoteID}/packet", s.BuildPacket)
			ord.Get("/orders/{quoteID}/download/{filename}", s.DownloadExport)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "err", err)
	}
}

// respondError translates the typed error taxonomy into HTTP statuses:
// validation faults are the caller's problem, configuration faults ours.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	var ve *pricing.ValidationError
	switch {
	case errors.As(err, &ve):
		s.respondJSON(w, http.StatusBadRequest, errorResponse{Error: ve.Msg})
	case errors.Is(err, orders.ErrInvalidStatus):
		s.respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, orders.ErrNotFound):
		s.respondJSON(w, http.StatusNotFound, errorResponse{Error: "order not found"})
	default:
		var ce *pricing.ConfigurationError
		if errors.As(err, &ce) {
			s.logger.Error("pricing schedule fault", "err", err)
		} else {
			s.logger.Error("internal error", "err", err)
		}
		s.respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
