package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/service"
)

// Интерфейсы внешних коллабораторов гейтвея. Durable membership авторитетна,
// сессия ходит в неё перед каждой мутацией.
type MembershipService interface {
	IsMember(ctx context.Context, chatID, userID int64) (bool, error)
	ListUserChatIDs(ctx context.Context, userID int64) ([]int64, error)
	AddMember(ctx context.Context, chatID, userID int64) error
	RemoveMember(ctx context.Context, chatID, userID int64) error
}

type MessageStore interface {
	Send(ctx context.Context, chatID, senderID int64, content string, atts []service.AttachmentInput) (*domain.MessageView, error)
	Edit(ctx context.Context, messageID, userID int64, content string) (*domain.MessageView, error)
	Delete(ctx context.Context, messageID, userID int64) (int64, error)
}

type UserDirectory interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

type BlobStore interface {
	SaveAttachment(data []byte, name, declaredType string) (fileURL, fileType string, err error)
}

// session — состояние одного аутентифицированного соединения. Жизненный цикл:
// конструируется только после успешного handshake (Authenticated), start()
// переводит в Active, close() — в Closed. События одного соединения
// обрабатываются последовательно в readLoop, поэтому внутри session
// синхронизация не нужна; общие Hub и Registry защищены своими локами.
type session struct {
	conn     Conn
	user     *domain.User
	hub      *Hub
	presence *Registry
	members  MembershipService
	messages MessageStore
	users    UserDirectory
	files    BlobStore
}

func newSession(conn Conn, user *domain.User, hub *Hub, presence *Registry,
	members MembershipService, messages MessageStore, users UserDirectory, files BlobStore) *session {
	return &session{
		conn:     conn,
		user:     user,
		hub:      hub,
		presence: presence,
		members:  members,
		messages: messages,
		users:    users,
		files:    files,
	}
}

// start подписывает соединение на комнаты всех чатов пользователя (один
// запрос к membership), регистрирует presence и рассылает online-статусы.
func (s *session) start(ctx context.Context) {
	chatIDs, err := s.members.ListUserChatIDs(ctx, s.user.ID)
	if err != nil {
		// соединение живёт дальше без авто-подписок; явный chat:join доступен
		slog.Warn("ws list user chats failed", "user", s.user.ID, "err", err)
	}
	for _, id := range chatIDs {
		s.hub.Join(id, s.conn)
	}

	s.presence.Register(s.user.ID, s.conn)

	// online-статус каждого присутствующего — каждому присутствующему;
	// O(active users), осознанная цена рассылки полной presence-картины
	snapshot := s.presence.Snapshot()
	for userID := range snapshot {
		ev := Event{Type: EventPresenceUpdate, Payload: PresencePayload{UserID: userID, Status: StatusOnline}}
		for _, c := range snapshot {
			_ = c.Send(ev)
		}
	}
}

// close — teardown при обрыве транспорта или idle timeout.
func (s *session) close() {
	s.hub.LeaveAll(s.conn)

	// offline рассылается только если ушло именно последнее живое
	// соединение пользователя, а не перезаписанное старое
	if s.presence.Deregister(s.user.ID, s.conn) {
		ev := Event{Type: EventPresenceUpdate, Payload: PresencePayload{UserID: s.user.ID, Status: StatusOffline}}
		s.presence.ForEach(func(_ int64, c Conn) {
			_ = c.Send(ev)
		})
	}
}

// dispatch разбирает входящий кадр и вызывает обработчик. Ошибки валидации
// и авторизации уходят только инициатору и не рвут соединение.
func (s *session) dispatch(ctx context.Context, raw []byte) {
	var ev inboundEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		s.sendError("invalid event payload")
		return
	}

	switch ev.Type {
	case EventChatJoin:
		s.handleChatJoin(ctx, ev.Payload)
	case EventChatLeave:
		s.handleChatLeave(ctx, ev.Payload)
	case EventMessageSend:
		s.handleSendMessage(ctx, ev.Payload)
	case EventMessageEdit:
		s.handleEditMessage(ctx, ev.Payload)
	case EventMessageDelete:
		s.handleDeleteMessage(ctx, ev.Payload)
	case EventTypingStart:
		s.handleTyping(ctx, ev.Payload, true)
	case EventTypingStop:
		s.handleTyping(ctx, ev.Payload, false)
	default:
		// неизвестные события игнорируются
	}
}

func (s *session) handleSendMessage(ctx context.Context, raw json.RawMessage) {
	var p SendMessagePayload
	if err := json.Unmarshal(raw, &p); err != nil || p.ChatID == 0 {
		s.sendError("chat id is required")
		return
	}

	member, err := s.members.IsMember(ctx, p.ChatID, s.user.ID)
	if err != nil {
		s.internalError("sending message", err)
		return
	}
	if !member {
		s.sendError("access denied to this chat")
		return
	}

	if err := domain.ValidateContent(p.Content, len(p.Attachments)); err != nil {
		s.sendError(validationMessage(err))
		return
	}

	// blob-ы пишутся до сборки сообщения; метаданные уходят в message store
	atts := make([]service.AttachmentInput, 0, len(p.Attachments))
	for _, a := range p.Attachments {
		if len(a.Data) == 0 {
			s.sendError("invalid attachment payload")
			return
		}
		url, fileType, err := s.files.SaveAttachment(a.Data, a.Name, a.Type)
		if err != nil {
			s.internalError("sending message", err)
			return
		}
		atts = append(atts, service.AttachmentInput{FileURL: url, FileType: fileType})
	}

	view, err := s.messages.Send(ctx, p.ChatID, s.user.ID, p.Content, atts)
	if err != nil {
		if msg := validationMessage(err); msg != "" {
			s.sendError(msg)
			return
		}
		s.internalError("sending message", err)
		return
	}

	// broadcast — единственное уведомление; отправитель получает то же
	// room-событие, что и остальные
	s.hub.Broadcast(p.ChatID, Event{Type: EventMessageNew, Payload: messageToWire(view)})
}

func (s *session) handleEditMessage(ctx context.Context, raw json.RawMessage) {
	var p EditMessagePayload
	if err := json.Unmarshal(raw, &p); err != nil || p.MessageID == 0 {
		s.sendError("message id is required")
		return
	}

	view, err := s.messages.Edit(ctx, p.MessageID, s.user.ID, p.Content)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmptyMessage):
			s.sendError("message content cannot be empty")
		case errors.Is(err, domain.ErrContentTooLong):
			s.sendError(validationMessage(err))
		case errors.Is(err, domain.ErrMessageNotFound):
			s.sendError("message not found")
		case errors.Is(err, domain.ErrAccessDenied):
			s.sendError("cannot edit this message")
		case errors.Is(err, domain.ErrEditWindowExpired):
			s.sendError("edit window expired")
		default:
			s.internalError("editing message", err)
		}
		return
	}

	s.hub.Broadcast(view.ChatID, Event{Type: EventMessageEdit, Payload: messageToWire(view)})
}

func (s *session) handleDeleteMessage(ctx context.Context, raw json.RawMessage) {
	var p DeleteMessagePayload
	if err := json.Unmarshal(raw, &p); err != nil || p.MessageID == 0 {
		s.sendError("message id is required")
		return
	}

	chatID, err := s.messages.Delete(ctx, p.MessageID, s.user.ID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMessageNotFound):
			s.sendError("message not found")
		case errors.Is(err, domain.ErrAccessDenied):
			s.sendError("cannot delete this message")
		default:
			s.internalError("deleting message", err)
		}
		return
	}

	s.hub.Broadcast(chatID, Event{Type: EventMessageDelete, Payload: DeleteMessagePayload{MessageID: p.MessageID}})
}

func (s *session) handleTyping(ctx context.Context, raw json.RawMessage, start bool) {
	var p ChatRefPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.ChatID == 0 {
		s.sendError("chat id is required")
		return
	}

	member, err := s.members.IsMember(ctx, p.ChatID, s.user.ID)
	if err != nil {
		s.internalError("handling typing", err)
		return
	}
	if !member {
		s.sendError("access denied to this chat")
		return
	}

	payload := TypingPayload{ChatID: p.ChatID, UserID: s.user.ID}
	eventType := EventTypingStop
	if start {
		eventType = EventTypingStart
		user, err := s.users.GetByID(ctx, s.user.ID)
		if err != nil {
			s.internalError("handling typing", err)
			return
		}
		info := user.Info()
		payload.UserInfo = &info
	}

	// эфемерно и best-effort: без персиста, без ретраев, отправитель исключён
	s.hub.BroadcastExcept(p.ChatID, Event{Type: eventType, Payload: payload}, s.conn)
}

func (s *session) handleChatJoin(ctx context.Context, raw json.RawMessage) {
	var p ChatRefPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.ChatID == 0 {
		s.sendError("chat id is required")
		return
	}

	// подписка до записи членства: повторный join безопасен
	s.hub.Join(p.ChatID, s.conn)

	member, err := s.members.IsMember(ctx, p.ChatID, s.user.ID)
	if err != nil {
		s.internalError("joining chat", err)
		return
	}
	if !member {
		// self-service join: membership-строка добавляется как side effect
		if err := s.members.AddMember(ctx, p.ChatID, s.user.ID); err != nil {
			if errors.Is(err, domain.ErrChatNotFound) {
				s.hub.Leave(p.ChatID, s.conn)
				s.sendError("chat not found")
				return
			}
			s.internalError("joining chat", err)
			return
		}
	}

	s.hub.Broadcast(p.ChatID, Event{Type: EventUserJoined, Payload: MemberEventPayload{ChatID: p.ChatID, UserID: s.user.ID}})
}

func (s *session) handleChatLeave(ctx context.Context, raw json.RawMessage) {
	var p ChatRefPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.ChatID == 0 {
		s.sendError("chat id is required")
		return
	}

	member, err := s.members.IsMember(ctx, p.ChatID, s.user.ID)
	if err != nil {
		s.internalError("leaving chat", err)
		return
	}
	if !member {
		s.sendError("not a member of this chat")
		return
	}

	if err := s.members.RemoveMember(ctx, p.ChatID, s.user.ID); err != nil {
		if errors.Is(err, domain.ErrNotMember) {
			s.sendError("not a member of this chat")
			return
		}
		s.internalError("leaving chat", err)
		return
	}

	// ушедший ещё подписан и тоже получает user:left, потом снимается с комнаты
	s.hub.Broadcast(p.ChatID, Event{Type: EventUserLeft, Payload: MemberEventPayload{ChatID: p.ChatID, UserID: s.user.ID}})
	s.hub.Leave(p.ChatID, s.conn)
}

// sendError — структурная ошибка только инициатору.
func (s *session) sendError(msg string) {
	_ = s.conn.Send(Event{Type: EventError, Payload: ErrorPayload{Message: msg}})
}

// internalError: generic ответ вызывающему + лог; соединение живёт дальше.
func (s *session) internalError(action string, err error) {
	slog.Error("ws "+action+" failed", "user", s.user.ID, "conn", s.conn.ID(), "err", err)
	s.sendError("server error while " + action)
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyMessage):
		return "message content or attachments are required"
	case errors.Is(err, domain.ErrContentTooLong):
		return fmt.Sprintf("message content too long (max %d characters)", domain.MaxContentLength)
	default:
		return ""
	}
}
