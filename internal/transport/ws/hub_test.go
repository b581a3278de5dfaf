package ws

import (
	"fmt"
	"sync"
	"testing"
)

// fakeConn записывает отправленные события; используется во всех тестах пакета.
type fakeConn struct {
	mu     sync.Mutex
	id     string
	userID int64
	events []Event
	failed bool // Send возвращает ошибку
	closed bool
}

func newFakeConn(userID int64) *fakeConn {
	return &fakeConn{id: fmt.Sprintf("conn-%d", userID), userID: userID}
}

func (c *fakeConn) Send(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failed {
		return fmt.Errorf("send failed")
	}
	c.events = append(c.events, ev)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) UserID() int64 { return c.userID }
func (c *fakeConn) ID() string    { return c.id }

func (c *fakeConn) sent() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

func (c *fakeConn) sentOfType(eventType string) []Event {
	var out []Event
	for _, ev := range c.sent() {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func TestHub_BroadcastScopedToRoom(t *testing.T) {
	hub := NewHub()
	a, b, c := newFakeConn(1), newFakeConn(2), newFakeConn(3)

	hub.Join(10, a)
	hub.Join(10, b)
	hub.Join(20, c)

	hub.Broadcast(10, Event{Type: EventMessageNew})

	if got := len(a.sent()); got != 1 {
		t.Fatalf("conn a: expected 1 event, got %d", got)
	}
	if got := len(b.sent()); got != 1 {
		t.Fatalf("conn b: expected 1 event, got %d", got)
	}
	if got := len(c.sent()); got != 0 {
		t.Fatalf("conn c in another room: expected 0 events, got %d", got)
	}
}

func TestHub_BroadcastExcept_SkipsSender(t *testing.T) {
	hub := NewHub()
	a, b := newFakeConn(1), newFakeConn(2)
	hub.Join(10, a)
	hub.Join(10, b)

	hub.BroadcastExcept(10, Event{Type: EventTypingStart}, a)

	if got := len(a.sent()); got != 0 {
		t.Fatalf("sender should not receive own typing event, got %d", got)
	}
	if got := len(b.sent()); got != 1 {
		t.Fatalf("other member: expected 1 event, got %d", got)
	}
}

func TestHub_BroadcastBestEffort_FailedConnDoesNotBlockOthers(t *testing.T) {
	hub := NewHub()
	bad, good := newFakeConn(1), newFakeConn(2)
	bad.failed = true
	hub.Join(10, bad)
	hub.Join(10, good)

	hub.Broadcast(10, Event{Type: EventMessageNew})

	if got := len(good.sent()); got != 1 {
		t.Fatalf("healthy conn: expected 1 event, got %d", got)
	}
}

func TestHub_LeaveAll_RemovesFromEveryRoom(t *testing.T) {
	hub := NewHub()
	a := newFakeConn(1)
	hub.Join(10, a)
	hub.Join(20, a)

	if got := len(hub.Rooms(a)); got != 2 {
		t.Fatalf("expected 2 rooms before LeaveAll, got %d", got)
	}

	hub.LeaveAll(a)

	if got := len(hub.Rooms(a)); got != 0 {
		t.Fatalf("expected 0 rooms after LeaveAll, got %d", got)
	}
	hub.Broadcast(10, Event{Type: EventMessageNew})
	hub.Broadcast(20, Event{Type: EventMessageNew})
	if got := len(a.sent()); got != 0 {
		t.Fatalf("removed conn must not receive events, got %d", got)
	}
}

func TestHub_DoubleJoinIsIdempotent(t *testing.T) {
	hub := NewHub()
	a := newFakeConn(1)
	hub.Join(10, a)
	hub.Join(10, a)

	hub.Broadcast(10, Event{Type: EventMessageNew})
	if got := len(a.sent()); got != 1 {
		t.Fatalf("double join must not duplicate delivery, got %d events", got)
	}
}
