package clock

import (
	"time"
)

const layout = "2006-01-02T15:04:05Z"

// Clock is the time source used by the code service.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock in UTC.
type System struct{}

func (System) Now() time.Time {
	return time.Now().UTC()
}

// Func adapts a plain function to Clock, handy for tests that move time.
type Func func() time.Time

func (f Func) Now() time.Time {
	return f()
}

// Timestamp current UTC time formatted for API responses
func Timestamp() string {
	return Format(time.Now())
}

func Format(t time.Time) string {
	return t.UTC().Format(layout)
}
