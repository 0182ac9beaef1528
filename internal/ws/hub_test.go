package ws

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type testSubscriber struct {
	mu       sync.Mutex
	received [][]byte
	sendErr  error
	closed   bool
}

func (s *testSubscriber) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.received = append(s.received, payload)
	return nil
}

func (s *testSubscriber) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *testSubscriber) messages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.received)
}

func (s *testSubscriber) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func TestHubRoutesByService(t *testing.T) {
	hub := NewHub()
	defer hub.Shutdown()

	db := &testSubscriber{}
	app := &testSubscriber{}
	hub.Register("database", db)
	hub.Register("wordpress", app)

	hub.Broadcast("database", []byte("mysqld: ready for connections"))
	hub.Broadcast("wordpress", []byte("NOTICE: fpm is running"))
	hub.Broadcast("wordpress", []byte("NOTICE: ready to handle connections"))

	if got := db.messages(); got != 1 {
		t.Fatalf("database subscriber got %d messages, want 1", got)
	}
	if got := app.messages(); got != 2 {
		t.Fatalf("wordpress subscriber got %d messages, want 2", got)
	}
}

func TestHubDropsFailingSubscribers(t *testing.T) {
	hub := NewHub()
	defer hub.Shutdown()

	bad := &testSubscriber{sendErr: errors.New("connection reset")}
	good := &testSubscriber{}
	hub.Register("nginx", bad)
	hub.Register("nginx", good)

	hub.Broadcast("nginx", []byte("request"))
	hub.Broadcast("nginx", []byte("request"))

	if !bad.isClosed() {
		t.Fatalf("failing subscriber must be closed")
	}
	if got := good.messages(); got != 2 {
		t.Fatalf("healthy subscriber got %d messages, want 2", got)
	}
}

func TestHubUnregisterStopsDelivery(t *testing.T) {
	hub := NewHub()
	defer hub.Shutdown()

	sub := &testSubscriber{}
	hub.Register("database", sub)
	hub.Broadcast("database", []byte("one"))
	hub.Unregister("database", sub)
	hub.Broadcast("database", []byte("two"))

	if got := sub.messages(); got != 1 {
		t.Fatalf("unregistered subscriber got %d messages, want 1", got)
	}
}

func TestHubShutdownClosesSubscribers(t *testing.T) {
	hub := NewHub()
	sub := &testSubscriber{}
	hub.Register("database", sub)
	hub.Shutdown()

	// Broadcast after shutdown must not block.
	hub.Broadcast("database", []byte("late"))
}

func TestHubRegisterAndUnregisterAfterShutdownDoNotBlock(t *testing.T) {
	hub := NewHub()
	sub := &testSubscriber{}
	hub.Register("nginx", sub)
	hub.Shutdown()

	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Register("nginx", &testSubscriber{})
		hub.Unregister("nginx", sub)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("register/unregister blocked after shutdown")
	}
}
