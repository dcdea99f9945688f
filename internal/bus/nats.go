// Package bus fans accepted auth events out over NATS.
package bus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/rusenback/nodewatch/internal/model"
)

// DefaultSubject is used when none is configured
const DefaultSubject = "nodewatch.auth.events"

type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
	Close()
}

// Publisher publishes events as JSON on one subject
type Publisher struct {
	conn    conn
	subject string
}

// AuthEventMessage is the wire form of an event
type AuthEventMessage struct {
	Timestamp  int64  `json:"timestamp"`
	Time       string `json:"time"`
	Identifier string `json:"identifier"`
	Status     string `json:"status"`
	Host       string `json:"host,omitempty"`
}

// NewPublisher connects to url
func NewPublisher(url, subject string) (*Publisher, error) {
	c, err := nats.Connect(url, nats.Name("nodewatch"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return newPublisher(c, subject), nil
}

func newPublisher(c conn, subject string) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Publisher{conn: c, subject: subject}
}

// Publish sends one event
func (p *Publisher) Publish(ev model.AuthEvent, host string) error {
	data, err := json.Marshal(AuthEventMessage{
		Timestamp:  ev.Timestamp,
		Time:       ev.Time().UTC().Format(time.RFC3339),
		Identifier: ev.Identifier,
		Status:     string(ev.Status),
		Host:       host,
	})
	if err != nil {
		return err
	}
	return p.conn.Publish(p.subject, data)
}

// Subject returns the subject events are published on
func (p *Publisher) Subject() string {
	return p.subject
}

// Close drains pending messages and closes the connection
func (p *Publisher) Close() {
	if p.conn != nil {
		_ = p.conn.Drain()
		p.conn.Close()
	}
}
