// Package memory is a process-local code store for the local environment and
// tests. The mutex stands in for the per-document atomicity a real database
// provides; the code service itself never locks.
package memory

import (
	"context"
	"sync"
	"time"
	"vetlink/entity"
)

type Store struct {
	mu    sync.Mutex
	codes map[string]entity.ConnectionCode
}

func New() *Store {
	return &Store{
		codes: make(map[string]entity.ConnectionCode),
	}
}

func (s *Store) CreateCode(ctx context.Context, code *entity.ConnectionCode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.codes[code.Code]; ok {
		return entity.ErrCodeExists
	}
	s.codes[code.Code] = clone(code)
	return nil
}

func (s *Store) GetCode(ctx context.Context, code string) (*entity.ConnectionCode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.codes[code]
	if !ok {
		return nil, entity.ErrCodeNotFound
	}
	c := clone(&record)
	return &c, nil
}

func (s *Store) MarkCodeUsed(ctx context.Context, code, usedBy string, usedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.codes[code]
	if !ok || record.Status != entity.CodeOpen {
		return entity.ErrCodeNotOpen
	}
	record.Status = entity.CodeUsed
	record.UsedBy = usedBy
	record.UsedAt = &usedAt
	s.codes[code] = record
	return nil
}

// Put writes a record as is, overwriting any existing one. Seeding only;
// it bypasses the create-if-absent rule.
func (s *Store) Put(code *entity.ConnectionCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code.Code] = clone(code)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.codes)
}

func clone(code *entity.ConnectionCode) entity.ConnectionCode {
	c := *code
	if code.CreatedAt != nil {
		t := *code.CreatedAt
		c.CreatedAt = &t
	}
	if code.TtlMinutes != nil {
		ttl := *code.TtlMinutes
		c.TtlMinutes = &ttl
	}
	if code.UsedAt != nil {
		t := *code.UsedAt
		c.UsedAt = &t
	}
	return c
}

func (s *Store) Close() {}
