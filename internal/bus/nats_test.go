package bus

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/rusenback/nodewatch/internal/model"
)

type fakeConn struct {
	subjects []string
	payloads [][]byte
	err      error
	drained  bool
	closed   bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return nil
}

func (f *fakeConn) Drain() error {
	f.drained = true
	return nil
}

func (f *fakeConn) Close() {
	f.closed = true
}

func TestPublish(t *testing.T) {
	c := &fakeConn{}
	p := newPublisher(c, "")

	ev := model.AuthEvent{Timestamp: 1_700_000_000, Identifier: "10.0.0.5", Status: model.AuthFailed}
	if err := p.Publish(ev, "node-1"); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(c.subjects) != 1 || c.subjects[0] != DefaultSubject {
		t.Fatalf("subjects = %v", c.subjects)
	}

	var msg AuthEventMessage
	if err := json.Unmarshal(c.payloads[0], &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := AuthEventMessage{
		Timestamp:  1_700_000_000,
		Time:       "2023-11-14T22:13:20Z",
		Identifier: "10.0.0.5",
		Status:     "Failed",
		Host:       "node-1",
	}
	if msg != want {
		t.Fatalf("message = %+v, want %+v", msg, want)
	}
}

func TestPublishError(t *testing.T) {
	c := &fakeConn{err: errors.New("nats: connection closed")}
	p := newPublisher(c, "custom")
	if p.Subject() != "custom" {
		t.Fatalf("subject = %s", p.Subject())
	}
	if err := p.Publish(model.AuthEvent{}, ""); err == nil {
		t.Fatal("expected error")
	}
}

func TestClose(t *testing.T) {
	c := &fakeConn{}
	newPublisher(c, "").Close()
	if !c.drained || !c.closed {
		t.Fatalf("drained=%v closed=%v", c.drained, c.closed)
	}
}
