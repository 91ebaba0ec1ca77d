// Package codes issues and redeems single-use connection codes.
//
// A code is a 6-digit number that links a second party to a target resource
// (an office, a vet). Generate persists an OPEN record with create-if-absent
// semantics and retries on collision. Claim validates the record and flips it
// to USED with a conditional write, so of any number of concurrent claimants
// exactly one receives the target id.
//
// The service holds no locks and no cache: every guarantee comes from the two
// atomic primitives of the Store.
package codes

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"
	"vetlink/entity"
	"vetlink/lib/clock"
	"vetlink/lib/sl"
)

const (
	CodeLength = 6
	minCode    = 100000
	maxCode    = 999999

	DefaultTtlMinutes  = 60
	DefaultMaxAttempts = 50
)

// Store is the document store holding one record per code.
type Store interface {
	// CreateCode inserts the record only if no record exists under its code,
	// otherwise it returns entity.ErrCodeExists and leaves the existing one untouched.
	CreateCode(ctx context.Context, code *entity.ConnectionCode) error
	// GetCode returns entity.ErrCodeNotFound when there is no record.
	GetCode(ctx context.Context, code string) (*entity.ConnectionCode, error)
	// MarkCodeUsed sets status USED only if the current status is OPEN,
	// otherwise it returns entity.ErrCodeNotOpen.
	MarkCodeUsed(ctx context.Context, code, usedBy string, usedAt time.Time) error
}

// Random is the source of code numbers; IntN returns a value in [0, n).
type Random interface {
	IntN(n int) int
}

type runtimeRandom struct{}

// IntN uses the runtime's ChaCha8 generator, safe for concurrent use.
func (runtimeRandom) IntN(n int) int {
	return rand.IntN(n)
}

// Config fields that are zero or negative fall back to DefaultTtlMinutes and
// DefaultMaxAttempts. A per-call ttl may still be non-positive.
type Config struct {
	DefaultTtlMinutes int
	MaxAttempts       int
}

type Option func(*Service)

func WithRandom(r Random) Option {
	return func(s *Service) {
		s.random = r
	}
}

func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

type Service struct {
	store       Store
	random      Random
	clock       clock.Clock
	defaultTtl  int
	maxAttempts int
	log         *slog.Logger
}

func New(store Store, conf Config, log *slog.Logger, opts ...Option) *Service {
	if store == nil {
		panic("codes store is nil")
	}
	s := &Service{
		store:       store,
		random:      runtimeRandom{},
		clock:       clock.System{},
		defaultTtl:  conf.DefaultTtlMinutes,
		maxAttempts: conf.MaxAttempts,
		log:         log.With(sl.Module("codes")),
	}
	if s.defaultTtl <= 0 {
		s.defaultTtl = DefaultTtlMinutes
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = DefaultMaxAttempts
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) DefaultTtlMinutes() int {
	return s.defaultTtl
}

// ValidCode reports whether code has the shape of a generated code.
func ValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
