package codes

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
	"vetlink/entity"
	"vetlink/internal/database/memory"
	"vetlink/lib/clock"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scripted replays the given codes in order, wrapping around.
type scripted struct {
	mu    sync.Mutex
	codes []int
	next  int
}

func (s *scripted) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.codes[s.next%len(s.codes)] - minCode
	s.next++
	if v < 0 || v >= n {
		panic("scripted code out of range")
	}
	return v
}

// countingStore wraps a store and lets a test override single operations.
type countingStore struct {
	Store
	creates atomic.Int32
	marks   atomic.Int32

	createErr error
	getErr    error
	markErr   error
	// returned by GetCode instead of the stored record when set
	stale *entity.ConnectionCode
}

func (s *countingStore) CreateCode(ctx context.Context, code *entity.ConnectionCode) error {
	s.creates.Add(1)
	if s.createErr != nil {
		return s.createErr
	}
	return s.Store.CreateCode(ctx, code)
}

func (s *countingStore) GetCode(ctx context.Context, code string) (*entity.ConnectionCode, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	if s.stale != nil {
		c := *s.stale
		return &c, nil
	}
	return s.Store.GetCode(ctx, code)
}

func (s *countingStore) MarkCodeUsed(ctx context.Context, code, usedBy string, usedAt time.Time) error {
	s.marks.Add(1)
	if s.markErr != nil {
		return s.markErr
	}
	return s.Store.MarkCodeUsed(ctx, code, usedBy, usedAt)
}

var baseTime = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

// movableClock starts at baseTime and can be advanced by a test.
type movableClock struct {
	mu  sync.Mutex
	now time.Time
}

func newMovableClock() *movableClock {
	return &movableClock{now: baseTime}
}

func (c *movableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *movableClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var _ clock.Clock = (*movableClock)(nil)

func newTestService(store Store, opts ...Option) *Service {
	return New(store, Config{DefaultTtlMinutes: 60, MaxAttempts: 50}, discardLogger(), opts...)
}

func record(code, target string, status entity.CodeStatus, createdAt time.Time, ttl int) *entity.ConnectionCode {
	return &entity.ConnectionCode{
		Code:       code,
		TargetId:   target,
		Status:     status,
		CreatedAt:  &createdAt,
		TtlMinutes: &ttl,
	}
}

func intPtr(v int) *int {
	return &v
}

var _ Store = (*memory.Store)(nil)
