// Package api exposes the scheduling engine over HTTP. The transport is a
// thin shell: every handler decodes, calls the service, renders.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"terminplan/internal/service"
)

// Server holds the handler dependencies.
type Server struct {
	svc      *service.Service
	source   *service.MemorySource
	logger   *zerolog.Logger
	validate *validator.Validate
	limiter  *rate.Limiter
}

// New builds the server. rps 0 disables rate limiting.
func New(svc *service.Service, source *service.MemorySource, logger *zerolog.Logger, rps float64, burst int) *Server {
	var limiter *rate.Limiter
	if rps > 0 {
		if burst <= 0 {
			burst = int(rps)
		}
		limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return &Server{
		svc:      svc,
		source:   source,
		logger:   logger,
		validate: validator.New(),
		limiter:  limiter,
	}
}

// Router assembles the chi routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.rateLimit)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/practitioners", s.handlePractitioners)
		r.Get("/availability/{practitionerID}", s.handleAvailability)
		r.Get("/next-slot/{practitionerID}", s.handleNextSlot)
		r.Get("/best-match", s.handleBestMatch)
		r.Get("/optimize/{practitionerID}", s.handleOptimize)
		r.Get("/balance", s.handleBalance)
		r.Post("/conflict-check", s.handleConflictCheck)
		r.Post("/reservations", s.handleReserve)
		r.Delete("/reservations", s.handleRelease)
		r.Post("/events", s.handleEvent)
		r.Post("/bookings", s.handleAddBooking)
		r.Put("/bookings", s.handleReplaceBookings)
		r.Get("/cache/stats", s.handleCacheStats)
		r.Get("/cache/export", s.handleCacheExport)
		r.Post("/cache/import", s.handleCacheImport)
		r.Get("/reports/day", s.handleDayReport)
	})
	return r
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			w.WriteHeader(http.StatusTooManyRequests)
			render.JSON(w, r, errResp(CodeRateLimited, "too many requests"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
