package authcore

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/hermesgsc/authcore/refresh"
)

// stubIdentityStore is an empty identity store for in-package tests. The
// full implementation lives in the identity package, which depends on this
// one and cannot be imported here.
type stubIdentityStore struct{}

func (stubIdentityStore) Create(context.Context, CreateIdentityInput) (*Identity, error) {
	return nil, ErrEmailConflict
}

func (stubIdentityStore) GetByID(context.Context, string) (*Identity, error) {
	return nil, ErrIdentityNotFound
}

func (stubIdentityStore) GetByEmail(context.Context, string) (*Identity, error) {
	return nil, ErrIdentityNotFound
}

func (stubIdentityStore) Update(context.Context, string, IdentityPatch) (*Identity, error) {
	return nil, ErrIdentityNotFound
}

func (stubIdentityStore) Delete(context.Context, string) error {
	return ErrIdentityNotFound
}

func (stubIdentityStore) List(context.Context) ([]Identity, error) {
	return nil, nil
}

func collectEvent(t *testing.T, sink *ChannelSink) AuditEvent {
	t.Helper()

	select {
	case event := <-sink.Events():
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audit event")
		return AuditEvent{}
	}
}

func TestDispatcherDeliversToSink(t *testing.T) {
	sink := NewChannelSink(8)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 8, DropIfFull: true}, sink)
	defer d.Close()

	d.Emit(context.Background(), AuditEvent{EventType: auditEventLogin, Success: true})

	event := collectEvent(t, sink)
	if event.EventType != auditEventLogin || !event.Success {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestDispatcherDisabled(t *testing.T) {
	d := newAuditDispatcher(AuditConfig{Enabled: false}, NewChannelSink(1))
	if d != nil {
		t.Fatal("disabled config must produce a nil dispatcher")
	}

	// Nil dispatcher methods are all safe.
	d.Emit(context.Background(), AuditEvent{})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher reported drops")
	}
}

func TestDispatcherCloseFlushes(t *testing.T) {
	sink := NewChannelSink(16)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 16, DropIfFull: true}, sink)

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: auditEventLogout})
	}
	d.Close()

	for i := 0; i < 5; i++ {
		collectEvent(t, sink)
	}

	// After Close, emits are dropped silently without counting.
	d.Emit(context.Background(), AuditEvent{EventType: auditEventLogout})
	select {
	case <-sink.Events():
		t.Fatal("event delivered after Close")
	case <-time.After(50 * time.Millisecond):
	}
}

// blockingSink stalls deliveries until released, so the dispatcher buffer
// can be filled deterministically.
type blockingSink struct {
	release chan struct{}
}

func (s *blockingSink) Emit(_ context.Context, _ AuditEvent) {
	<-s.release
}

func TestDispatcherDropsUnderBackpressure(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	// One event in flight inside the sink, one in the buffer; everything
	// past that is dropped.
	deadline := time.Now().Add(2 * time.Second)
	for d.Dropped() == 0 && time.Now().Before(deadline) {
		d.Emit(context.Background(), AuditEvent{EventType: auditEventRefresh})
	}

	if d.Dropped() == 0 {
		t.Fatal("expected drops once the buffer filled")
	}

	close(sink.release)
	d.Close()
}

func TestEngineAuditTrail(t *testing.T) {
	sink := NewChannelSink(32)

	engine, err := New().
		WithSecret([]byte("0123456789abcdef0123456789abcdef")).
		WithTokenStore(refresh.NewMemoryStore()).
		WithIdentityStore(stubIdentityStore{}).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	ctx := WithClientIP(context.Background(), "203.0.113.7")

	if _, err := engine.Login(ctx, "nobody@x.com", "pw"); err == nil {
		t.Fatal("expected login failure")
	}

	event := collectEvent(t, sink)
	if event.EventType != auditEventLogin {
		t.Fatalf("event type = %q, want login", event.EventType)
	}
	if event.Success {
		t.Fatal("failed login audited as success")
	}
	if event.IP != "203.0.113.7" {
		t.Fatalf("ip = %q", event.IP)
	}
	if event.Metadata["reason"] != "unknown_email" {
		t.Fatalf("metadata = %+v, want reason unknown_email", event.Metadata)
	}
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: auditEventLogout,
		Success:   true,
	})
	sink.Emit(context.Background(), AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: auditEventLogin,
		Success:   false,
		Error:     "invalid credentials",
	})

	scanner := bufio.NewScanner(&buf)
	var lines int
	for scanner.Scan() {
		lines++
		var event AuditEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", lines, err)
		}
	}
	if lines != 2 {
		t.Fatalf("lines = %d, want 2", lines)
	}
}
