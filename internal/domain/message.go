package domain

import (
	"strings"
	"time"
)

const (
	// MaxContentLength — лимит длины текста сообщения.
	MaxContentLength = 1000

	// EditWindow — окно, в течение которого отправитель может править сообщение.
	EditWindow = 5 * time.Minute
)

type Message struct {
	ID        int64      `db:"id"`
	ChatID    int64      `db:"chat_id"`
	SenderID  int64      `db:"sender_id"`
	Content   string     `db:"content"`
	ReplyTo   *int64     `db:"reply_to"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
	EditedAt  *time.Time `db:"edited_at"`
	DeletedAt *time.Time `db:"deleted_at"`
}

type Attachment struct {
	ID        int64     `db:"id" json:"id,omitempty"`
	MessageID int64     `db:"message_id" json:"-"`
	FileURL   string    `db:"file_url" json:"file_url"`
	FileType  string    `db:"file_type" json:"file_type"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// MessageView — сообщение, гидрированное профилем отправителя и вложениями;
// именно в таком виде оно уходит в broadcast и в историю.
type MessageView struct {
	Message
	Sender      UserInfo
	Attachments []Attachment
}

// ValidateContent enforces the non-empty-or-attachment and max-length rules
// for send and edit payloads.
func ValidateContent(content string, attachmentCount int) error {
	if strings.TrimSpace(content) == "" && attachmentCount == 0 {
		return ErrEmptyMessage
	}
	if len(content) > MaxContentLength {
		return ErrContentTooLong
	}
	return nil
}

// Editable reports whether the message can still be edited by sender at now.
func (m *Message) Editable(sender int64, now time.Time) error {
	if m.DeletedAt != nil {
		return ErrMessageNotFound
	}
	if m.SenderID != sender {
		return ErrAccessDenied
	}
	if now.Sub(m.CreatedAt) > EditWindow {
		return ErrEditWindowExpired
	}
	return nil
}
