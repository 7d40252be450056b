package quota

import (
	"context"
	"sync"
	"testing"

	"github.com/photokeepapp/photokeep-server/internal/domain"
	apperrors "github.com/photokeepapp/photokeep-server/internal/errors"
)

// fakeUsers serves a single user with a mutable consumed counter.
type fakeUsers struct {
	mu       sync.Mutex
	limit    int64
	consumed int64
}

func (f *fakeUsers) GetUser(_ context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &domain.User{
		Username:      "test",
		QuotaLimit:    f.limit,
		QuotaConsumed: f.consumed,
	}
	u.ID = id
	return u, nil
}

func (f *fakeUsers) charge(bytes int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.consumed += bytes
}

func TestReserveWithinLimit(t *testing.T) {
	users := &fakeUsers{limit: 1000}
	l := NewLedger(users)

	res, err := l.Reserve(context.Background(), "usr_1", 600)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if res.Bytes != 600 || res.Token == "" {
		t.Errorf("bad reservation: %+v", res)
	}
	if l.Active("usr_1") != 600 {
		t.Errorf("expected 600 active, got %d", l.Active("usr_1"))
	}
}

func TestReserveExceedsLimit(t *testing.T) {
	users := &fakeUsers{limit: 1000, consumed: 800}
	l := NewLedger(users)

	_, err := l.Reserve(context.Background(), "usr_1", 300)
	if !apperrors.Is(err, apperrors.ErrQuotaExceeded) {
		t.Fatalf("expected quota exceeded, got %v", err)
	}
}

func TestReserveCountsActiveReservations(t *testing.T) {
	users := &fakeUsers{limit: 1000}
	l := NewLedger(users)
	ctx := context.Background()

	if _, err := l.Reserve(ctx, "usr_1", 600); err != nil {
		t.Fatalf("first reserve: %v", err)
	}

	// 600 held, 500 more would overshoot even though consumed is zero.
	_, err := l.Reserve(ctx, "usr_1", 500)
	if !apperrors.Is(err, apperrors.ErrQuotaExceeded) {
		t.Fatalf("expected quota exceeded, got %v", err)
	}

	// 400 still fits exactly.
	if _, err := l.Reserve(ctx, "usr_1", 400); err != nil {
		t.Fatalf("exact fit reserve: %v", err)
	}
}

func TestReleaseFreesBytes(t *testing.T) {
	users := &fakeUsers{limit: 1000}
	l := NewLedger(users)
	ctx := context.Background()

	res, err := l.Reserve(ctx, "usr_1", 900)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	l.Release(res)
	if l.Active("usr_1") != 0 {
		t.Errorf("expected 0 active after release, got %d", l.Active("usr_1"))
	}

	// Released bytes are available again.
	if _, err := l.Reserve(ctx, "usr_1", 900); err != nil {
		t.Fatalf("re-reserve: %v", err)
	}

	// Double release is harmless.
	l.Release(res)
	l.Release(nil)
}

func TestCommitAfterDurableCharge(t *testing.T) {
	users := &fakeUsers{limit: 1000}
	l := NewLedger(users)
	ctx := context.Background()

	res, err := l.Reserve(ctx, "usr_1", 700)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	// The store transaction moves the counter, then the hold is dropped.
	users.charge(700)
	l.Commit(res)

	if l.Active("usr_1") != 0 {
		t.Errorf("expected 0 active after commit, got %d", l.Active("usr_1"))
	}

	// 700 of 1000 durably consumed: 300 fits, 400 does not.
	if _, err := l.Reserve(ctx, "usr_1", 300); err != nil {
		t.Fatalf("reserve remainder: %v", err)
	}
	if _, err := l.Reserve(ctx, "usr_1", 400); !apperrors.Is(err, apperrors.ErrQuotaExceeded) {
		t.Fatalf("expected quota exceeded, got %v", err)
	}
}

func TestReserveUsersIndependent(t *testing.T) {
	users := &fakeUsers{limit: 1000}
	l := NewLedger(users)
	ctx := context.Background()

	if _, err := l.Reserve(ctx, "usr_1", 1000); err != nil {
		t.Fatalf("reserve usr_1: %v", err)
	}
	if _, err := l.Reserve(ctx, "usr_2", 1000); err != nil {
		t.Fatalf("reserve usr_2: %v", err)
	}
}

func TestConcurrentReservesNeverOvershoot(t *testing.T) {
	users := &fakeUsers{limit: 1000}
	l := NewLedger(users)
	ctx := context.Background()

	const attempts = 50
	var wg sync.WaitGroup
	granted := make(chan *Reservation, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if res, err := l.Reserve(ctx, "usr_1", 100); err == nil {
				granted <- res
			}
		}()
	}
	wg.Wait()
	close(granted)

	var total int64
	for res := range granted {
		total += res.Bytes
	}
	if total > 1000 {
		t.Errorf("granted %d bytes over a 1000 byte limit", total)
	}
	if total != l.Active("usr_1") {
		t.Errorf("active %d disagrees with granted %d", l.Active("usr_1"), total)
	}
}

func TestReserveNegative(t *testing.T) {
	l := NewLedger(&fakeUsers{limit: 1000})

	if _, err := l.Reserve(context.Background(), "usr_1", -1); err == nil {
		t.Error("expected error for negative reservation")
	}
}
