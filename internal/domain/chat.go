package domain

import "time"

type Chat struct {
	ID        int64     `db:"id"`
	IsGroup   bool      `db:"is_group"`
	Name      *string   `db:"name"` // nil для direct-чатов
	CreatedBy int64     `db:"created_by"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type ChatMember struct {
	ChatID   int64     `db:"chat_id"`
	UserID   int64     `db:"user_id"`
	JoinedAt time.Time `db:"joined_at"`
}

// ChatWithMembers — чат вместе с профилями участников.
type ChatWithMembers struct {
	Chat
	Members []User
}

// ChatPreview — элемент списка чатов пользователя с последним сообщением.
type ChatPreview struct {
	Chat
	LastMessage *Message
}

// DirectChat — DM с точки зрения одного из двух участников.
type DirectChat struct {
	Chat
	OtherUser User
}
