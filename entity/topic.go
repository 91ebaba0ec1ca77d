// Package entity defines domain types shared across the application.

package entity

import "time"

// Event topics published after a successful code operation.
// The full NATS subject is "<prefix>.<topic>".
const (
	TopicGenerated = "generated"
	TopicClaimed   = "claimed"
)

var allTopics = []string{
	TopicGenerated,
	TopicClaimed,
}

func IsValidTopic(topic string) bool {
	for _, t := range allTopics {
		if t == topic {
			return true
		}
	}
	return false
}

// CodeEvent is the payload published on a topic.
type CodeEvent struct {
	Id        string    `json:"id"`
	Topic     string    `json:"topic"`
	Code      string    `json:"code"`
	TargetId  string    `json:"target_id"`
	Actor     string    `json:"actor,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
