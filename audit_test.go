package mvauth

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestAuditDispatcherDeliversToSink(t *testing.T) {
	sink := NewChannelSink(8)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 8, DropIfFull: true}, sink)
	defer d.Close()

	d.Emit(context.Background(), AuditEvent{EventType: "login", UserID: "user-1", Success: true})

	select {
	case got := <-sink.Events():
		if got.EventType != "login" || got.UserID != "user-1" || !got.Success {
			t.Fatalf("unexpected event: %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event never reached sink")
	}
}

func TestAuditDispatcherDropsWhenFull(t *testing.T) {
	// The sink never consumes, so the channel backs up and overflow is
	// counted instead of blocking.
	blocked := make(chan struct{})
	sink := blockingSink{release: blocked}
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	for i := 0; i < 50; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: "login"})
	}

	if d.Dropped() == 0 {
		t.Fatal("expected drops under backpressure")
	}

	close(blocked)
	d.Close()
}

type blockingSink struct {
	release chan struct{}
}

func (s blockingSink) Emit(context.Context, AuditEvent) {
	<-s.release
}

func TestAuditDispatcherCloseDrains(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 16, DropIfFull: false}, sink)

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: "logout"})
	}
	d.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 drained events, got %d: %q", len(lines), buf.String())
	}
}

func TestAuditDispatcherDisabled(t *testing.T) {
	d := newAuditDispatcher(AuditConfig{Enabled: false}, NoOpSink{})
	if d != nil {
		t.Fatal("disabled audit must not start a dispatcher")
	}

	// Nil receivers are inert.
	d.Emit(context.Background(), AuditEvent{})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher reported drops")
	}
}

func TestAuditDispatcherEmitAfterClose(t *testing.T) {
	sink := NewChannelSink(4)
	d := newAuditDispatcher(AuditConfig{Enabled: true, BufferSize: 4, DropIfFull: true}, sink)
	d.Close()

	d.Emit(context.Background(), AuditEvent{EventType: "login"})

	select {
	case got := <-sink.Events():
		t.Fatalf("closed dispatcher delivered event: %+v", got)
	default:
	}
}

func TestJSONWriterSinkOutput(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sink.Emit(context.Background(), AuditEvent{
		Timestamp: at,
		EventType: "login",
		UserID:    "user-1",
		IP:        "10.0.0.1",
		Success:   true,
		Metadata:  map[string]string{"provider": "otp"},
	})

	var decoded AuditEvent
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.EventType != "login" || decoded.UserID != "user-1" || decoded.IP != "10.0.0.1" {
		t.Fatalf("unexpected decoded event: %+v", decoded)
	}
	if !decoded.Timestamp.Equal(at) {
		t.Fatalf("timestamp mangled: %v", decoded.Timestamp)
	}
	if decoded.Metadata["provider"] != "otp" {
		t.Fatalf("metadata dropped: %+v", decoded.Metadata)
	}
}

func TestChannelSinkGivesUpOnDoneContext(t *testing.T) {
	sink := NewChannelSink(1)
	sink.Emit(context.Background(), AuditEvent{EventType: "first"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		sink.Emit(ctx, AuditEvent{EventType: "second"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked on full channel despite done context")
	}
}
