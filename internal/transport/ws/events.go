package ws

import (
	"encoding/json"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

// Имена событий совпадают с wire-протоколом фронтенда.
const (
	// входящие
	EventChatJoin      = "chat:join"
	EventChatLeave     = "chat:leave"
	EventMessageSend   = "message:send"
	EventMessageEdit   = "message:edit"
	EventMessageDelete = "message:delete"
	EventTypingStart   = "typing:start"
	EventTypingStop    = "typing:stop"

	// исходящие
	EventMessageNew     = "message:new"
	EventUserJoined     = "user:joined"
	EventUserLeft       = "user:left"
	EventPresenceUpdate = "presence:update"
	EventError          = "error"
)

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// Event — исходящий конверт.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// inboundEvent — входящий конверт; payload декодируется по типу события.
type inboundEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// --- входящие payload-ы ---

type ChatRefPayload struct {
	ChatID int64 `json:"chat_id"`
}

type AttachmentUpload struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Data []byte `json:"data"` // base64 в JSON
}

type SendMessagePayload struct {
	ChatID      int64              `json:"chat_id"`
	Content     string             `json:"content"`
	Attachments []AttachmentUpload `json:"attachments,omitempty"`
}

type EditMessagePayload struct {
	MessageID int64  `json:"message_id"`
	Content   string `json:"content"`
}

type DeleteMessagePayload struct {
	MessageID int64 `json:"message_id"`
}

// --- исходящие payload-ы ---

type MemberEventPayload struct {
	ChatID int64 `json:"chat_id"`
	UserID int64 `json:"user_id"`
}

type TypingPayload struct {
	ChatID   int64            `json:"chat_id"`
	UserID   int64            `json:"user_id"`
	UserInfo *domain.UserInfo `json:"user_info,omitempty"`
}

type PresencePayload struct {
	UserID int64  `json:"user_id"`
	Status string `json:"status"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type AttachmentItem struct {
	FileURL   string    `json:"file_url"`
	FileType  string    `json:"file_type"`
	CreatedAt time.Time `json:"created_at"`
}

// MessagePayload — гидрированное сообщение, как его видят клиенты.
type MessagePayload struct {
	ID          int64            `json:"id"`
	ChatID      int64            `json:"chat_id"`
	SenderID    int64            `json:"sender_id"`
	Content     string           `json:"content"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	EditedAt    *time.Time       `json:"edited_at,omitempty"`
	DisplayName string           `json:"display_name"`
	Username    string           `json:"username"`
	AvatarURL   *string          `json:"avatar_url,omitempty"`
	Attachments []AttachmentItem `json:"attachments"`
}

func messageToWire(v *domain.MessageView) MessagePayload {
	// attachments всегда массив, даже пустой
	atts := make([]AttachmentItem, 0, len(v.Attachments))
	for _, a := range v.Attachments {
		atts = append(atts, AttachmentItem{
			FileURL:   a.FileURL,
			FileType:  a.FileType,
			CreatedAt: a.CreatedAt,
		})
	}
	return MessagePayload{
		ID:          v.ID,
		ChatID:      v.ChatID,
		SenderID:    v.SenderID,
		Content:     v.Content,
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
		EditedAt:    v.EditedAt,
		DisplayName: v.Sender.DisplayName,
		Username:    v.Sender.Username,
		AvatarURL:   v.Sender.AvatarURL,
		Attachments: atts,
	}
}
