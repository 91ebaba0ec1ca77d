package entity

import (
	"errors"
	"math"
	"time"
)

// CodeStatus is the lifecycle flag of a connection code.
// The only allowed transition is CodeOpen -> CodeUsed.
type CodeStatus string

const (
	CodeOpen CodeStatus = "OPEN"
	CodeUsed CodeStatus = "USED"
)

func (s CodeStatus) IsValid() bool {
	return s == CodeOpen || s == CodeUsed
}

// Store contract errors, returned by every database backend.
var (
	ErrCodeExists   = errors.New("code already exists")
	ErrCodeNotFound = errors.New("code not found")
	ErrCodeNotOpen  = errors.New("code is not open")
)

// ConnectionCode links a short numeric code to the resource it grants access to
// (an office, a vet, a farm). Documents are keyed by Code and never deleted;
// a redeemed code stays in the store with status USED.
//
// CreatedAt and TtlMinutes are pointers so that a document missing either field
// can be told apart from one holding a zero value.
type ConnectionCode struct {
	Code       string     `json:"code" bson:"_id"`
	TargetId   string     `json:"target_id" bson:"target_id"`
	Status     CodeStatus `json:"status" bson:"status"`
	CreatedAt  *time.Time `json:"created_at,omitempty" bson:"created_at,omitempty"`
	TtlMinutes *int       `json:"ttl_minutes,omitempty" bson:"ttl_minutes,omitempty"`
	CreatedBy  string     `json:"created_by,omitempty" bson:"created_by,omitempty"`
	UsedBy     string     `json:"used_by,omitempty" bson:"used_by,omitempty"`
	UsedAt     *time.Time `json:"used_at,omitempty" bson:"used_at,omitempty"`
}

// largest ttl whose duration still fits in time.Duration
const maxTtlMinutes = int64(math.MaxInt64 / int64(time.Minute))

// ExpiresAt returns the moment after which the code can no longer be claimed.
// Zero time when the record lacks CreatedAt or TtlMinutes. TTLs beyond the
// range of time.Duration saturate at roughly 292 years either way.
func (c *ConnectionCode) ExpiresAt() time.Time {
	if c.CreatedAt == nil || c.TtlMinutes == nil {
		return time.Time{}
	}
	return c.CreatedAt.Add(ttlDuration(int64(*c.TtlMinutes)))
}

func ttlDuration(minutes int64) time.Duration {
	switch {
	case minutes > maxTtlMinutes:
		return time.Duration(math.MaxInt64)
	case minutes < -maxTtlMinutes:
		return time.Duration(math.MinInt64)
	}
	return time.Duration(minutes) * time.Minute
}

func (c *ConnectionCode) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt())
}
