// Package service assembles the scheduling engine behind one constructed
// facade: the availability cache, the reservation ledger, the practitioner
// directory and the background sweeps all live here, with an explicit
// Start/Stop lifecycle instead of package-level timers.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"terminplan/internal/cache"
	"terminplan/internal/calendar"
	"terminplan/internal/conflict"
	"terminplan/internal/events"
	"terminplan/internal/finder"
	"terminplan/internal/metrics"
	"terminplan/internal/model"
	"terminplan/internal/optimizer"
	"terminplan/internal/reservation"
	"terminplan/internal/slots"
)

// ErrPractitionerNotFound reports an id with no matching practitioner.
var ErrPractitionerNotFound = errors.New("practitioner not found")

// BookingSource supplies the externally-owned booking list. The engine never
// fetches bookings itself; the host keeps the source current.
type BookingSource interface {
	Snapshot() []model.Booking
}

// MemorySource is a mutex-guarded in-memory BookingSource the host updates
// from its push channel.
type MemorySource struct {
	mu       sync.RWMutex
	bookings []model.Booking
}

// NewMemorySource builds a source preloaded with the given bookings.
func NewMemorySource(bookings []model.Booking) *MemorySource {
	return &MemorySource{bookings: bookings}
}

// Replace swaps the whole booking list.
func (s *MemorySource) Replace(bookings []model.Booking) {
	s.mu.Lock()
	s.bookings = bookings
	s.mu.Unlock()
}

// Add appends one booking.
func (s *MemorySource) Add(b model.Booking) {
	s.mu.Lock()
	s.bookings = append(s.bookings, b)
	s.mu.Unlock()
}

// Snapshot returns a copy of the current list.
func (s *MemorySource) Snapshot() []model.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Booking, len(s.bookings))
	copy(out, s.bookings)
	return out
}

// Config tunes the service.
type Config struct {
	// CacheTTL is how long a computed availability result stays valid.
	CacheTTL time.Duration
	// CacheSweepInterval drives the proactive expiry sweep.
	CacheSweepInterval time.Duration
	// ReservationSweepInterval drives the reservation expiry sweep. Only
	// the in-memory ledger needs sweeping.
	ReservationSweepInterval time.Duration
	// DefaultGranularity and DefaultBuffer apply when a caller passes none.
	DefaultGranularity int
	DefaultBuffer      int
}

func (c *Config) applyDefaults() {
	if c.CacheTTL <= 0 {
		c.CacheTTL = 5 * time.Minute
	}
	if c.CacheSweepInterval <= 0 {
		c.CacheSweepInterval = time.Minute
	}
	if c.ReservationSweepInterval <= 0 {
		c.ReservationSweepInterval = time.Minute
	}
	if c.DefaultGranularity <= 0 {
		c.DefaultGranularity = slots.DefaultGranularity
	}
}

// Service is the engine facade. All shared mutable state (cache, ledger)
// is private; callers go through the methods.
type Service struct {
	cfg    Config
	logger *zerolog.Logger

	rules     *calendar.Rules
	gen       *slots.Generator
	finder    *finder.Finder
	detector  *conflict.Detector
	optimizer *optimizer.Optimizer

	cache     *cache.Cache
	ledger    reservation.Ledger
	memLedger *reservation.MemoryLedger // non-nil when the ledger is in-memory
	bus       *events.Bus

	directory map[string]*model.Practitioner
	ordered   []model.Practitioner
	source    BookingSource

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// New wires the engine. The practitioner list is validated and then
// immutable for the session.
func New(cfg Config, rules *calendar.Rules, gen *slots.Generator, c *cache.Cache, ledger reservation.Ledger, practitioners []model.Practitioner, source BookingSource, logger *zerolog.Logger) (*Service, error) {
	cfg.applyDefaults()

	directory := make(map[string]*model.Practitioner, len(practitioners))
	ordered := make([]model.Practitioner, len(practitioners))
	for i := range practitioners {
		if err := practitioners[i].Validate(); err != nil {
			return nil, err
		}
		ordered[i] = practitioners[i]
		directory[practitioners[i].ID] = &ordered[i]
	}

	f := finder.New(gen)
	svc := &Service{
		cfg:       cfg,
		logger:    logger,
		rules:     rules,
		gen:       gen,
		finder:    f,
		detector:  conflict.New(rules, f),
		optimizer: optimizer.New(),
		cache:     c,
		ledger:    ledger,
		bus:       events.NewBus(),
		directory: directory,
		ordered:   ordered,
		source:    source,
		stopCh:    make(chan struct{}),
	}
	if mem, ok := ledger.(*reservation.MemoryLedger); ok {
		svc.memLedger = mem
	}
	return svc, nil
}

// Start launches the background maintenance sweeps. Idempotent.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	go s.sweepLoop(ctx, s.cfg.CacheSweepInterval, s.sweepCache)
	if s.memLedger != nil {
		go s.sweepLoop(ctx, s.cfg.ReservationSweepInterval, s.sweepReservations)
	}
	s.logger.Info().
		Dur("cache_sweep", s.cfg.CacheSweepInterval).
		Dur("reservation_sweep", s.cfg.ReservationSweepInterval).
		Msg("availability service started")
}

// Stop halts the sweeps. Idempotent.
func (s *Service) Stop() {
	s.mu.Lock()
	if s.running {
		s.running = false
		close(s.stopCh)
	}
	s.mu.Unlock()
}

func (s *Service) sweepLoop(ctx context.Context, interval time.Duration, sweep func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			// A failed sweep must never take the host down.
			func() {
				defer func() {
					if r := recover(); r != nil {
						s.logger.Error().Interface("panic", r).Msg("sweep failed")
					}
				}()
				sweep()
			}()
		}
	}
}

func (s *Service) sweepCache() {
	if n := s.cache.RemoveExpired(); n > 0 {
		s.logger.Debug().Int("removed", n).Msg("cache sweep")
	}
}

func (s *Service) sweepReservations() {
	if n := s.memLedger.RemoveExpired(); n > 0 {
		s.logger.Debug().Int("removed", n).Msg("reservation sweep")
	}
}

// Practitioner resolves an id.
func (s *Service) Practitioner(id string) (*model.Practitioner, error) {
	p, ok := s.directory[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPractitionerNotFound, id)
	}
	return p, nil
}

// Practitioners lists the directory in load order.
func (s *Service) Practitioners() []model.Practitioner {
	return s.ordered
}

// AvailabilityOptions selects the generation parameters for one query.
type AvailabilityOptions struct {
	Granularity     int
	Buffer          int
	IncludeHolidays bool
	IncludeOvertime bool
}

func cacheKey(practitionerID string, date time.Time, opts slots.Options) string {
	return fmt.Sprintf("availability:%s:%s:%d:%d:%t:%t",
		practitionerID, date.Format("2006-01-02"),
		opts.Granularity, opts.Buffer, opts.IncludeHolidays, opts.IncludeOvertime)
}

// Availability computes (or serves from cache) the slot list for one
// practitioner and date.
func (s *Service) Availability(practitionerID string, date time.Time, opts AvailabilityOptions) (model.AvailabilityResult, error) {
	p, err := s.Practitioner(practitionerID)
	if err != nil {
		return model.AvailabilityResult{}, err
	}

	genOpts := slots.Options{
		Granularity:     opts.Granularity,
		Buffer:          opts.Buffer,
		IncludeHolidays: opts.IncludeHolidays,
		IncludeOvertime: opts.IncludeOvertime,
	}
	if genOpts.Granularity <= 0 {
		genOpts.Granularity = s.cfg.DefaultGranularity
	}
	if genOpts.Buffer <= 0 {
		genOpts.Buffer = s.cfg.DefaultBuffer
	}

	key := cacheKey(practitionerID, date, genOpts)
	if v, ok := s.cache.Get(key); ok {
		if result, ok := v.(model.AvailabilityResult); ok {
			metrics.IncCacheHit()
			return result, nil
		}
		// Type mismatch (e.g. a restored snapshot); recompute below.
		s.cache.Delete(key)
	}
	metrics.IncCacheMiss()

	evictionsBefore := s.cache.Stats().Evictions
	result := s.gen.Generate(p, date, s.source.Snapshot(), genOpts)
	s.cache.Set(key, result, s.cfg.CacheTTL)
	if d := s.cache.Stats().Evictions - evictionsBefore; d > 0 {
		metrics.AddCacheEvictions(int(d))
	}
	return result, nil
}

// CheckConflict validates a proposed booking for a known practitioner.
func (s *Service) CheckConflict(practitionerID string, start time.Time, durationMinutes int) (conflict.Result, error) {
	p, err := s.Practitioner(practitionerID)
	if err != nil {
		return conflict.Result{}, err
	}

	result := s.detector.Check(practitionerID, start, durationMinutes, s.source.Snapshot(), p)
	if result.HasConflict {
		metrics.IncConflict(string(result.Kind))
	}
	return result, nil
}

// NextSlot finds the first bookable slot sequence for the duration.
func (s *Service) NextSlot(practitionerID string, durationMinutes int, from time.Time, maxDaysAhead int) (*model.TimeSlot, error) {
	p, err := s.Practitioner(practitionerID)
	if err != nil {
		return nil, err
	}
	return s.finder.NextAvailable(p, durationMinutes, from, maxDaysAhead, s.source.Snapshot(), s.cfg.DefaultBuffer), nil
}

// BestMatch ranks alternative practitioners for a service type.
func (s *Service) BestMatch(serviceType string, preferred time.Time, durationMinutes int, excludeID string) []finder.Match {
	return s.finder.BestMatch(serviceType, preferred, durationMinutes, s.ordered, s.source.Snapshot(), excludeID)
}

// Optimize analyzes one practitioner's day for reducible gaps.
func (s *Service) Optimize(practitionerID string, date time.Time) (optimizer.Analysis, error) {
	p, err := s.Practitioner(practitionerID)
	if err != nil {
		return optimizer.Analysis{}, err
	}
	return s.optimizer.AnalyzeDay(p, date, s.source.Snapshot()), nil
}

// Balance flags overloaded practitioners for a date.
func (s *Service) Balance(date time.Time) []optimizer.OffloadCandidate {
	return s.optimizer.BalanceWorkload(s.ordered, date, s.source.Snapshot())
}

// Reserve takes a soft lock on a slot for a user.
func (s *Service) Reserve(ctx context.Context, practitionerID string, at time.Time, durationMinutes int, userID string) (bool, error) {
	if _, err := s.Practitioner(practitionerID); err != nil {
		return false, err
	}
	ok, err := s.ledger.Reserve(ctx, practitionerID, at, durationMinutes, userID)
	if err != nil {
		return false, err
	}
	metrics.IncReservation(ok)
	return ok, nil
}

// Release drops a soft lock if the user holds it.
func (s *Service) Release(ctx context.Context, practitionerID string, at time.Time, userID string) error {
	return s.ledger.Release(ctx, practitionerID, at, userID)
}

// Invalidate drops every cached availability entry for one practitioner and
// returns how many went away. Idempotent.
func (s *Service) Invalidate(practitionerID string) int {
	n := s.cache.DeleteMatching(fmt.Sprintf("availability:%s:*", practitionerID))
	if n > 0 {
		metrics.AddCacheInvalidations(n)
	}
	return n
}

// Apply consumes one push-channel event. Unknown event types are rejected;
// the engine-side effect of any booking event is targeted invalidation, then
// fan-out to bus subscribers.
func (s *Service) Apply(event events.Event) error {
	if !event.Type.Valid() {
		return fmt.Errorf("unknown event type %q", event.Type)
	}
	n := s.Invalidate(event.PractitionerID)
	s.bus.Publish(event)
	s.logger.Debug().
		Str("type", string(event.Type)).
		Str("practitioner", event.PractitionerID).
		Int("invalidated", n).
		Msg("event applied")
	return nil
}

// Events returns the bus Apply publishes to, for host-side subscribers.
func (s *Service) Events() *events.Bus {
	return s.bus
}

// CacheStats exposes the cache counters.
func (s *Service) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// ExportCache writes a cache snapshot.
func (s *Service) ExportCache(w io.Writer) error {
	return s.cache.Export(w)
}

// ImportCache restores a snapshot; a malformed one is logged and ignored,
// leaving the cache as it was.
func (s *Service) ImportCache(r io.Reader) error {
	if err := s.cache.Import(r); err != nil {
		s.logger.Warn().Err(err).Msg("cache import rejected")
		return err
	}
	return nil
}

// Finder exposes the underlying finder, mainly so hosts can inject a clock
// in tests.
func (s *Service) Finder() *finder.Finder {
	return s.finder
}
