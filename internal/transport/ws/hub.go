package ws

import (
	"sync"
)

// Conn — абстракция над транспортом соединения; сессии и хаб работают
// только через неё.
type Conn interface {
	Send(ev Event) error
	Close() error
	UserID() int64
	ID() string
}

// Hub — room broadcaster: chatID -> множество подписанных соединений.
// Подписка живёт только в памяти и восстанавливается при каждом подключении
// из durable membership.
type Hub struct {
	mu    sync.RWMutex
	rooms map[int64]map[Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[int64]map[Conn]struct{})}
}

// Join подписывает соединение на комнату; повторный Join безопасен.
func (h *Hub) Join(chatID int64, c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rs, ok := h.rooms[chatID]
	if !ok {
		rs = make(map[Conn]struct{})
		h.rooms[chatID] = rs
	}
	rs[c] = struct{}{}
}

func (h *Hub) Leave(chatID int64, c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if rs, ok := h.rooms[chatID]; ok {
		delete(rs, c)
		if len(rs) == 0 {
			delete(h.rooms, chatID)
		}
	}
}

// LeaveAll снимает соединение со всех комнат (teardown при дисконнекте).
func (h *Hub) LeaveAll(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for chatID, rs := range h.rooms {
		delete(rs, c)
		if len(rs) == 0 {
			delete(h.rooms, chatID)
		}
	}
}

// Rooms возвращает комнаты, на которые подписано соединение.
func (h *Hub) Rooms(c Conn) []int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []int64
	for chatID, rs := range h.rooms {
		if _, ok := rs[c]; ok {
			out = append(out, chatID)
		}
	}
	return out
}

func (h *Hub) Broadcast(chatID int64, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if rs, ok := h.rooms[chatID]; ok {
		for c := range rs {
			_ = c.Send(ev) // best-effort
		}
	}
}

// BroadcastExcept — рассылка всем в комнате, кроме указанного соединения
// (typing-события не возвращаются отправителю).
func (h *Hub) BroadcastExcept(chatID int64, ev Event, except Conn) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if rs, ok := h.rooms[chatID]; ok {
		for c := range rs {
			if c == except {
				continue
			}
			_ = c.Send(ev)
		}
	}
}
