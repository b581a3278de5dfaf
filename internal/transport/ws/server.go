package ws

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// TokenVerifier резолвит user id из токена handshake-а.
type TokenVerifier interface {
	Verify(token string) (int64, error)
}

// Server — гейтвей: владеет единственными Hub и Registry процесса, проводит
// handshake и привязывает принятые соединения к сессиям.
type Server struct {
	upgrader websocket.Upgrader

	hub      *Hub
	presence *Registry

	members  MembershipService
	messages MessageStore
	users    UserDirectory
	files    BlobStore
	tokens   TokenVerifier

	pingEvery time.Duration
}

func NewServer(hub *Hub, presence *Registry, members MembershipService,
	messages MessageStore, users UserDirectory, files BlobStore, tokens TokenVerifier,
	pingEvery time.Duration) *Server {
	if pingEvery <= 0 {
		pingEvery = 15 * time.Second
	}
	return &Server{
		hub:      hub,
		presence: presence,
		members:  members,
		messages: messages,
		users:    users,
		files:    files,
		tokens:   tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery: pingEvery,
	}
}

// WS endpoint: GET /ws?token=...
// Handshake: без валидного токена соединение отклоняется до upgrade-а,
// ни одно событие не обрабатывается.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			token = strings.TrimSpace(auth[7:])
		}
	}
	if token == "" {
		// браузерный клиент шлёт cookie из HTTP-сессии
		if c, err := r.Cookie("token"); err == nil {
			token = c.Value
		}
	}
	if token == "" {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	userID, err := s.tokens.Verify(token)
	if err != nil {
		http.Error(w, "authentication failed", http.StatusUnauthorized)
		return
	}
	user, err := s.users.GetByID(r.Context(), userID)
	if err != nil {
		http.Error(w, "authentication failed", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "user", userID, "err", err)
		return
	}

	c := newWsConn(conn, userID)
	sess := newSession(c, user, s.hub, s.presence, s.members, s.messages, s.users, s.files)
	sess.start(r.Context())

	slog.Info("ws connected", "user", userID, "conn", c.ID())

	go s.writeLoop(c)
	s.readLoop(r.Context(), c, sess)

	sess.close()
	if err := c.Close(); err != nil {
		slog.Debug("ws close failed", "user", userID, "err", err)
	}
	slog.Info("ws disconnected", "user", userID, "conn", c.ID())
}

// readLoop — единственный читатель соединения: события одного клиента
// обрабатываются строго в порядке прихода.
func (s *Server) readLoop(ctx context.Context, c *wsConn, sess *session) {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(1 << 20)
	c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		sess.dispatch(ctx, data)
	}
}

func (s *Server) writeLoop(c *wsConn) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		case <-c.closed:
			return
		}
	}
}
