package response

import "vetlink/lib/clock"

type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Success       bool        `json:"success" validate:"required"`
	StatusMessage string      `json:"status_message"`
	Error         string      `json:"error,omitempty"`
	Timestamp     string      `json:"timestamp"`
}

func Ok(data interface{}) Response {
	return Response{
		Data:          data,
		Success:       true,
		StatusMessage: "Success",
		Timestamp:     clock.Timestamp(),
	}
}

func Error(message string) Response {
	return Response{
		Success:       false,
		StatusMessage: message,
		Timestamp:     clock.Timestamp(),
	}
}

// Fail is Error with a machine-readable error kind, so clients don't have to
// match on the message text.
func Fail(kind, message string) Response {
	r := Error(message)
	r.Error = kind
	return r
}
