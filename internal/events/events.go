package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"vetlink/entity"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Conn is the part of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSPublisher sends code events as JSON to "<subject>.<topic>".
type NATSPublisher struct {
	conn    Conn
	subject string
	now     func() time.Time
}

func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("vetlink"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return newPublisher(conn, subject), nil
}

func newPublisher(conn Conn, subject string) *NATSPublisher {
	return &NATSPublisher{
		conn:    conn,
		subject: subject,
		now:     time.Now,
	}
}

func (p *NATSPublisher) Publish(ctx context.Context, topic string, code, targetId, actor string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !entity.IsValidTopic(topic) {
		return fmt.Errorf("unknown topic %q", topic)
	}
	event := entity.CodeEvent{
		Id:        uuid.New().String(),
		Topic:     topic,
		Code:      code,
		TargetId:  targetId,
		Actor:     actor,
		Timestamp: p.now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err = p.conn.Publish(p.Subject(topic), payload); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

func (p *NATSPublisher) Subject(topic string) string {
	return p.subject + "." + topic
}

func (p *NATSPublisher) Close() {
	_ = p.conn.Drain()
}
