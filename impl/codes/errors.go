package codes

import (
	"errors"
)

// Kind classifies a failed Generate or Claim call.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindGenerationExhausted
	KindNotFound
	KindMissingCreatedAt
	KindMissingTtl
	KindInvalidTarget
	KindInvalidStatus
	KindExpired
	KindAlreadyUsed
	KindStoreUnavailable
)

var kindNames = map[Kind]string{
	KindUnknown:             "unknown",
	KindInvalidInput:        "invalid_input",
	KindGenerationExhausted: "generation_exhausted",
	KindNotFound:            "not_found",
	KindMissingCreatedAt:    "missing_created_at",
	KindMissingTtl:          "missing_ttl",
	KindInvalidTarget:       "invalid_target",
	KindInvalidStatus:       "invalid_status",
	KindExpired:             "expired",
	KindAlreadyUsed:         "already_used",
	KindStoreUnavailable:    "store_unavailable",
}

// user-facing text; UI copy is keyed off these
var kindMessages = map[Kind]string{
	KindUnknown:             "unexpected error",
	KindInvalidInput:        "invalid input",
	KindGenerationExhausted: "no free code available, try again",
	KindNotFound:            "invalid code",
	KindMissingCreatedAt:    "Missing createdAt",
	KindMissingTtl:          "Missing TTL",
	KindInvalidTarget:       "Invalid office ID",
	KindInvalidStatus:       "Invalid status",
	KindExpired:             "code expired",
	KindAlreadyUsed:         "code already used",
	KindStoreUnavailable:    "store unavailable",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

func (k Kind) Message() string {
	if msg, ok := kindMessages[k]; ok {
		return msg
	}
	return kindMessages[KindUnknown]
}

// Retryable reports whether repeating the whole call may succeed.
func (k Kind) Retryable() bool {
	return k == KindGenerationExhausted || k == KindStoreUnavailable
}

// IsIntegrity reports a malformed record in the store.
func (k Kind) IsIntegrity() bool {
	switch k {
	case KindMissingCreatedAt, KindMissingTtl, KindInvalidTarget, KindInvalidStatus:
		return true
	}
	return false
}

// Error is returned by Service for every failure. The code itself is kept out
// of the message so errors can be logged as is.
type Error struct {
	Kind Kind
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.Message()
	}
	return e.Kind.Message() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrInvalidInput        = &Error{Kind: KindInvalidInput}
	ErrGenerationExhausted = &Error{Kind: KindGenerationExhausted}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrMissingCreatedAt    = &Error{Kind: KindMissingCreatedAt}
	ErrMissingTtl          = &Error{Kind: KindMissingTtl}
	ErrInvalidTarget       = &Error{Kind: KindInvalidTarget}
	ErrInvalidStatus       = &Error{Kind: KindInvalidStatus}
	ErrExpired             = &Error{Kind: KindExpired}
	ErrAlreadyUsed         = &Error{Kind: KindAlreadyUsed}
	ErrStoreUnavailable    = &Error{Kind: KindStoreUnavailable}
)

// KindOf extracts the kind from err, KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func newError(kind Kind, code string, err error) *Error {
	return &Error{Kind: kind, Code: code, Err: err}
}
