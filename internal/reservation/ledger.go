// Package reservation implements the short-lived soft locks a UI takes on a
// slot while the user finishes their selection. Advisory only: the ledger is
// no substitute for a transactional check at booking-commit time.
package reservation

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultHold is how long a reservation lives without renewal.
const DefaultHold = 5 * time.Minute

// Ledger is the soft-lock contract. Reserve returns false when a live
// reservation for the same slot is held by a different user; re-reserving by
// the same user renews the hold. Release is owner-checked and idempotent.
type Ledger interface {
	Reserve(ctx context.Context, practitionerID string, at time.Time, durationMinutes int, userID string) (bool, error)
	Release(ctx context.Context, practitionerID string, at time.Time, userID string) error
}

// SlotKey derives the ledger key for a practitioner and slot start.
func SlotKey(practitionerID string, at time.Time) string {
	return fmt.Sprintf("reservation:%s:%s", practitionerID, at.Format("2006-01-02T15:04"))
}

type hold struct {
	userID    string
	expiresAt time.Time
}

// MemoryLedger keeps reservations in a mutex-guarded map. The host runs
// RemoveExpired on a periodic sweep; expired holds also lose on contention
// lazily.
type MemoryLedger struct {
	mu    sync.Mutex
	holds map[string]hold
	ttl   time.Duration
	now   func() time.Time
}

// NewMemoryLedger builds a ledger; ttl <= 0 selects DefaultHold.
func NewMemoryLedger(ttl time.Duration) *MemoryLedger {
	if ttl <= 0 {
		ttl = DefaultHold
	}
	return &MemoryLedger{
		holds: make(map[string]hold),
		ttl:   ttl,
		now:   time.Now,
	}
}

// SetClock injects a clock for tests.
func (l *MemoryLedger) SetClock(now func() time.Time) {
	l.mu.Lock()
	l.now = now
	l.mu.Unlock()
}

// Reserve takes or renews the soft lock on a slot.
func (l *MemoryLedger) Reserve(_ context.Context, practitionerID string, at time.Time, _ int, userID string) (bool, error) {
	key := SlotKey(practitionerID, at)

	l.mu.Lock()
	defer l.mu.Unlock()

	if h, ok := l.holds[key]; ok && h.expiresAt.After(l.now()) && h.userID != userID {
		return false, nil
	}
	l.holds[key] = hold{userID: userID, expiresAt: l.now().Add(l.ttl)}
	return true, nil
}

// Release drops the reservation if the caller holds it. A stale client
// releasing someone else's lock is a no-op.
func (l *MemoryLedger) Release(_ context.Context, practitionerID string, at time.Time, userID string) error {
	key := SlotKey(practitionerID, at)

	l.mu.Lock()
	defer l.mu.Unlock()

	if h, ok := l.holds[key]; ok && h.userID == userID {
		delete(l.holds, key)
	}
	return nil
}

// RemoveExpired purges expired holds and reports how many.
func (l *MemoryLedger) RemoveExpired() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	n := 0
	for key, h := range l.holds {
		if !h.expiresAt.After(now) {
			delete(l.holds, key)
			n++
		}
	}
	return n
}

// Len reports the number of live holds, counting not-yet-swept expired ones.
func (l *MemoryLedger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.holds)
}
