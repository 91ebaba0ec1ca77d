package entity

import (
	"net/http"
	"time"
	"vetlink/lib/validate"
)

// CodeRequest is the body of POST /v1/codes.
// TtlMinutes is optional; nil selects the configured default.
type CodeRequest struct {
	TargetId   string `json:"target_id" validate:"required"`
	TtlMinutes *int   `json:"ttl_minutes,omitempty" validate:"omitempty"`
}

func (c *CodeRequest) Bind(_ *http.Request) error {
	return validate.Struct(c)
}

type GeneratedCode struct {
	Code      string    `json:"code"`
	TargetId  string    `json:"target_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ClaimResult struct {
	Code     string `json:"code"`
	TargetId string `json:"target_id"`
}
