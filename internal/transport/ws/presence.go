package ws

import "sync"

// Registry — process-wide присутствие: userID -> живое соединение.
// Не владеет соединением, только слабая ссылка для lookup-а и fan-out-а.
type Registry struct {
	mu    sync.RWMutex
	users map[int64]Conn
}

func NewRegistry() *Registry {
	return &Registry{users: make(map[int64]Conn)}
}

// Register привязывает соединение к пользователю. Повторная регистрация
// заменяет старую ссылку: для presence действует last connection wins.
func (r *Registry) Register(userID int64, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[userID] = c
}

// Deregister убирает запись только если хранится именно это соединение.
// Teardown устаревшего (перезаписанного) соединения не должен выбивать
// из presence пользователя, который всё ещё подключён.
func (r *Registry) Deregister(userID int64, c Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.users[userID]
	if !ok || cur != c {
		return false
	}
	delete(r.users, userID)
	return true
}

func (r *Registry) IsPresent(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[userID]
	return ok
}

// Snapshot — копия текущих записей; снимается под локом, итерация снаружи.
func (r *Registry) Snapshot() map[int64]Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[int64]Conn, len(r.users))
	for id, c := range r.users {
		out[id] = c
	}
	return out
}

// ForEach вызывает fn для каждого присутствующего пользователя.
func (r *Registry) ForEach(fn func(userID int64, c Conn)) {
	for id, c := range r.Snapshot() {
		fn(id, c)
	}
}
