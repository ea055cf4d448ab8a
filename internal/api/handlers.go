package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"terminplan/internal/cache"
	"terminplan/internal/events"
	"terminplan/internal/model"
	"terminplan/internal/report"
	"terminplan/internal/service"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04"
)

func (s *Server) handlePractitioners(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.svc.Practitioners())
}

// GET /api/v1/availability/{practitionerID}?date=YYYY-MM-DD&granularity=30&buffer=0&include_holidays=false&include_overtime=false
func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	practitionerID := chi.URLParam(r, "practitionerID")

	date, err := time.Parse(dateLayout, r.URL.Query().Get("date"))
	if err != nil {
		s.badRequest(w, r, "date must be YYYY-MM-DD")
		return
	}

	opts := service.AvailabilityOptions{
		Granularity:     queryInt(r, "granularity"),
		Buffer:          queryInt(r, "buffer"),
		IncludeHolidays: queryBool(r, "include_holidays"),
		IncludeOvertime: queryBool(r, "include_overtime"),
	}

	result, err := s.svc.Availability(practitionerID, date, opts)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

type conflictCheckRequest struct {
	PractitionerID  string `json:"practitioner_id" validate:"required"`
	Start           string `json:"start" validate:"required"` // "2006-01-02T15:04"
	DurationMinutes int    `json:"duration_minutes" validate:"gt=0"`
}

func (s *Server) handleConflictCheck(w http.ResponseWriter, r *http.Request) {
	var req conflictCheckRequest
	if !s.decode(w, r, &req) {
		return
	}

	start, err := time.Parse(dateTimeLayout, req.Start)
	if err != nil {
		s.badRequest(w, r, "start must be YYYY-MM-DDTHH:MM")
		return
	}

	result, err := s.svc.CheckConflict(req.PractitionerID, start, req.DurationMinutes)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// GET /api/v1/next-slot/{practitionerID}?duration=60&from=2026-09-01T09:00&max_days=14
func (s *Server) handleNextSlot(w http.ResponseWriter, r *http.Request) {
	practitionerID := chi.URLParam(r, "practitionerID")

	duration := queryInt(r, "duration")
	if duration <= 0 {
		s.badRequest(w, r, "duration must be a positive number of minutes")
		return
	}

	from, err := time.Parse(dateTimeLayout, r.URL.Query().Get("from"))
	if err != nil {
		s.badRequest(w, r, "from must be YYYY-MM-DDTHH:MM")
		return
	}

	slot, err := s.svc.NextSlot(practitionerID, duration, from, queryInt(r, "max_days"))
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	if slot == nil {
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, errResp(CodeNotFound, "no slot available within the horizon"))
		return
	}
	render.JSON(w, r, slot)
}

// GET /api/v1/best-match?service=coloring&preferred=2026-09-01T10:00&duration=60&exclude=p2
func (s *Server) handleBestMatch(w http.ResponseWriter, r *http.Request) {
	serviceType := r.URL.Query().Get("service")
	if serviceType == "" {
		s.badRequest(w, r, "service is required")
		return
	}

	preferred, err := time.Parse(dateTimeLayout, r.URL.Query().Get("preferred"))
	if err != nil {
		s.badRequest(w, r, "preferred must be YYYY-MM-DDTHH:MM")
		return
	}

	duration := queryInt(r, "duration")
	if duration <= 0 {
		duration = 30
	}

	matches := s.svc.BestMatch(serviceType, preferred, duration, r.URL.Query().Get("exclude"))
	render.JSON(w, r, matches)
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	practitionerID := chi.URLParam(r, "practitionerID")

	date, err := time.Parse(dateLayout, r.URL.Query().Get("date"))
	if err != nil {
		s.badRequest(w, r, "date must be YYYY-MM-DD")
		return
	}

	analysis, err := s.svc.Optimize(practitionerID, date)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	render.JSON(w, r, analysis)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	date, err := time.Parse(dateLayout, r.URL.Query().Get("date"))
	if err != nil {
		s.badRequest(w, r, "date must be YYYY-MM-DD")
		return
	}
	render.JSON(w, r, s.svc.Balance(date))
}

type reserveRequest struct {
	PractitionerID  string `json:"practitioner_id" validate:"required"`
	Start           string `json:"start" validate:"required"`
	DurationMinutes int    `json:"duration_minutes" validate:"gt=0"`
	UserID          string `json:"user_id" validate:"required"`
}

func (s *Server) handleReserve(w http.ResponseWriter, r *http.Request) {
	var req reserveRequest
	if !s.decode(w, r, &req) {
		return
	}

	at, err := time.Parse(dateTimeLayout, req.Start)
	if err != nil {
		s.badRequest(w, r, "start must be YYYY-MM-DDTHH:MM")
		return
	}

	ok, err := s.svc.Reserve(r.Context(), req.PractitionerID, at, req.DurationMinutes, req.UserID)
	if err != nil {
		s.serviceError(w, r, err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusConflict)
		render.JSON(w, r, errResp(CodeSlotLocked, "slot is reserved by another user"))
		return
	}
	render.JSON(w, r, map[string]bool{"reserved": true})
}

type releaseRequest struct {
	PractitionerID string `json:"practitioner_id" validate:"required"`
	Start          string `json:"start" validate:"required"`
	UserID         string `json:"user_id" validate:"required"`
}

func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	var req releaseRequest
	if !s.decode(w, r, &req) {
		return
	}

	at, err := time.Parse(dateTimeLayout, req.Start)
	if err != nil {
		s.badRequest(w, r, "start must be YYYY-MM-DDTHH:MM")
		return
	}

	if err := s.svc.Release(r.Context(), req.PractitionerID, at, req.UserID); err != nil {
		s.serviceError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]bool{"released": true})
}

type eventRequest struct {
	Type           string `json:"type" validate:"required"`
	PractitionerID string `json:"practitioner_id" validate:"required"`
	BookingID      string `json:"booking_id"`
}

// handleEvent is the push-update ingestion point: booking notifications land
// here and trigger targeted cache invalidation.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if !s.decode(w, r, &req) {
		return
	}

	event := events.Event{
		ID:             uuid.NewString(),
		Type:           events.Type(req.Type),
		PractitionerID: req.PractitionerID,
		BookingID:      req.BookingID,
		CreatedAt:      time.Now(),
	}
	if err := s.svc.Apply(event); err != nil {
		s.badRequest(w, r, err.Error())
		return
	}
	render.JSON(w, r, map[string]string{"event_id": event.ID})
}

func (s *Server) handleAddBooking(w http.ResponseWriter, r *http.Request) {
	var b model.Booking
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		s.badRequest(w, r, "invalid JSON body")
		return
	}
	if b.PractitionerID == "" || !b.Status.Valid() {
		s.badRequest(w, r, "practitioner_id and a valid status are required")
		return
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}

	s.source.Add(b)
	s.svc.Invalidate(b.PractitionerID)
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, b)
}

func (s *Server) handleReplaceBookings(w http.ResponseWriter, r *http.Request) {
	var bookings []model.Booking
	if err := json.NewDecoder(r.Body).Decode(&bookings); err != nil {
		s.badRequest(w, r, "invalid JSON body")
		return
	}

	s.source.Replace(bookings)
	// A full refresh can touch anyone; invalidate across the board.
	for _, p := range s.svc.Practitioners() {
		s.svc.Invalidate(p.ID)
	}
	render.JSON(w, r, map[string]int{"count": len(bookings)})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.svc.CacheStats())
}

func (s *Server) handleCacheExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.svc.ExportCache(w); err != nil {
		s.logger.Error().Err(err).Msg("cache export failed")
	}
}

func (s *Server) handleCacheImport(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ImportCache(r.Body); err != nil {
		if errors.Is(err, cache.ErrCacheImport) {
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, errResp(CodeInvalidImport, "malformed cache snapshot"))
			return
		}
		s.serviceError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]bool{"imported": true})
}

// GET /api/v1/reports/day?date=YYYY-MM-DD
func (s *Server) handleDayReport(w http.ResponseWriter, r *http.Request) {
	date, err := time.Parse(dateLayout, r.URL.Query().Get("date"))
	if err != nil {
		s.badRequest(w, r, "date must be YYYY-MM-DD")
		return
	}

	var entries []report.Entry
	for _, p := range s.svc.Practitioners() {
		result, err := s.svc.Availability(p.ID, date, service.AvailabilityOptions{})
		if err != nil {
			s.serviceError(w, r, err)
			return
		}
		entries = append(entries, report.Entry{Practitioner: p, Result: result})
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=schedule_%s.xlsx", date.Format(dateLayout)))
	if err := report.WriteDay(w, date, entries); err != nil {
		s.logger.Error().Err(err).Msg("day report failed")
	}
}

// decode reads and validates a JSON request body, writing the error response
// itself on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.badRequest(w, r, "invalid JSON body")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		s.badRequest(w, r, err.Error())
		return false
	}
	return true
}

func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, message string) {
	w.WriteHeader(http.StatusBadRequest)
	render.JSON(w, r, errResp(CodeBadRequest, message))
}

func (s *Server) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, service.ErrPractitionerNotFound) {
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, errResp(CodeNotFound, err.Error()))
		return
	}
	s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	w.WriteHeader(http.StatusInternalServerError)
	render.JSON(w, r, errResp(CodeInternal, "internal error"))
}

func queryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return n
}

func queryBool(r *http.Request, name string) bool {
	return r.URL.Query().Get(name) == "true"
}
