// Package quota tracks per-user storage budgets. The consumed counter
// lives in the users table and is mutated only by store transactions;
// the ledger adds in-memory reservations on top of it so concurrent
// uploads cannot jointly overshoot a user's limit. Reservations are
// never persisted: a crash simply forgets them.
package quota

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/photokeepapp/photokeep-server/internal/domain"
	apperrors "github.com/photokeepapp/photokeep-server/internal/errors"
)

// UserReader is the slice of the store the ledger needs.
type UserReader interface {
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

// Reservation is a hold on part of a user's quota for one in-flight
// upload. It must be resolved exactly once, with Commit after the store
// transaction charged the bytes, or Release on any failure path.
type Reservation struct {
	Token  string
	UserID string
	Bytes  int64
}

// Ledger serializes quota decisions per user.
type Ledger struct {
	users UserReader

	mu      sync.Mutex
	entries map[string]*userEntry
}

type userEntry struct {
	mu       sync.Mutex
	reserved map[string]int64 // reservation token -> bytes
}

// NewLedger creates an empty ledger backed by the given user reader.
func NewLedger(users UserReader) *Ledger {
	return &Ledger{
		users:   users,
		entries: make(map[string]*userEntry),
	}
}

// entry returns the per-user bookkeeping record, creating it on first use.
func (l *Ledger) entry(userID string) *userEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[userID]
	if !ok {
		e = &userEntry{reserved: make(map[string]int64)}
		l.entries[userID] = e
	}
	return e
}

// Reserve places a hold of the given size against the user's quota.
// The admission check sees the durable consumed counter plus every
// other active reservation, so two concurrent uploads cannot both pass
// when only one fits.
func (l *Ledger) Reserve(ctx context.Context, userID string, bytes int64) (*Reservation, error) {
	if bytes < 0 {
		return nil, apperrors.Validation("reservation size must not be negative")
	}

	e := l.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()

	user, err := l.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var active int64
	for _, b := range e.reserved {
		active += b
	}

	if user.QuotaConsumed+active+bytes > user.QuotaLimit {
		return nil, apperrors.QuotaExceededf(
			"upload of %d bytes exceeds quota: %d consumed, %d reserved, %d limit",
			bytes, user.QuotaConsumed, active, user.QuotaLimit,
		).WithDetails(map[string]int64{
			"requested_bytes": bytes,
			"consumed_bytes":  user.QuotaConsumed,
			"reserved_bytes":  active,
			"limit_bytes":     user.QuotaLimit,
		})
	}

	res := &Reservation{
		Token:  uuid.NewString(),
		UserID: userID,
		Bytes:  bytes,
	}
	e.reserved[res.Token] = bytes
	return res, nil
}

// Commit discards a reservation after the bytes were durably charged to
// the user's consumed counter by the metadata commit. Idempotent.
func (l *Ledger) Commit(res *Reservation) {
	l.drop(res)
}

// Release discards a reservation without charging anything, freeing the
// held bytes for other uploads. Idempotent.
func (l *Ledger) Release(res *Reservation) {
	l.drop(res)
}

func (l *Ledger) drop(res *Reservation) {
	if res == nil {
		return
	}
	e := l.entry(res.UserID)
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.reserved, res.Token)
}

// Active returns the total bytes currently reserved for the user.
func (l *Ledger) Active(userID string) int64 {
	e := l.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()

	var active int64
	for _, b := range e.reserved {
		active += b
	}
	return active
}
