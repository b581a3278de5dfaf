package http

import (
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
)

// --- auth ---

type SignUpRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	Username    string `json:"username" validate:"required,min=3"`
	DisplayName string `json:"display_name" validate:"required,min=1"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// --- users ---

type UserItem struct {
	ID          int64   `json:"id"`
	Email       string  `json:"email,omitempty"`
	Username    string  `json:"username"`
	DisplayName string  `json:"display_name"`
	Phone       *string `json:"phone,omitempty"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
	Bio         *string `json:"bio,omitempty"`
}

func toUserItem(u *domain.User, withEmail bool) UserItem {
	it := UserItem{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Phone:       u.Phone,
		AvatarURL:   u.AvatarURL,
		Bio:         u.Bio,
	}
	if withEmail {
		it.Email = u.Email
	}
	return it
}

type UpdateUserRequest struct {
	DisplayName *string `json:"display_name" validate:"omitempty,min=1"`
	Username    *string `json:"username" validate:"omitempty,min=3"`
	Phone       *string `json:"phone"`
	Bio         *string `json:"bio"`
}

// --- chats ---

type CreateGroupChatRequest struct {
	Name      string  `json:"name" validate:"required,min=1,max=100"`
	MemberIDs []int64 `json:"member_ids" validate:"omitempty,max=100"`
}

type CreateDirectChatRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}

type RenameChatRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

type MembersRequest struct {
	UserIDs []int64 `json:"user_ids" validate:"required,min=1,max=100"`
}

type ChatItem struct {
	ID          int64            `json:"id"`
	IsGroup     bool             `json:"is_group"`
	Name        *string          `json:"name,omitempty"`
	CreatedBy   int64            `json:"created_by"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	Members     []UserItem       `json:"members,omitempty"`
	LastMessage *LastMessageItem `json:"last_message,omitempty"`
}

type LastMessageItem struct {
	ID        int64     `json:"id"`
	SenderID  int64     `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func toChatItem(c domain.Chat) ChatItem {
	return ChatItem{
		ID:        c.ID,
		IsGroup:   c.IsGroup,
		Name:      c.Name,
		CreatedBy: c.CreatedBy,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// --- messages ---

type AttachmentItem struct {
	FileURL   string    `json:"file_url"`
	FileType  string    `json:"file_type"`
	CreatedAt time.Time `json:"created_at"`
}

type MessageItem struct {
	ID          int64            `json:"id"`
	ChatID      int64            `json:"chat_id"`
	SenderID    int64            `json:"sender_id"`
	Content     string           `json:"content"`
	CreatedAt   time.Time        `json:"created_at"`
	EditedAt    *time.Time       `json:"edited_at,omitempty"`
	DisplayName string           `json:"display_name"`
	Username    string           `json:"username"`
	AvatarURL   *string          `json:"avatar_url,omitempty"`
	Attachments []AttachmentItem `json:"attachments"`
}

func toMessageItem(v domain.MessageView) MessageItem {
	atts := make([]AttachmentItem, 0, len(v.Attachments))
	for _, a := range v.Attachments {
		atts = append(atts, AttachmentItem{FileURL: a.FileURL, FileType: a.FileType, CreatedAt: a.CreatedAt})
	}
	return MessageItem{
		ID:          v.ID,
		ChatID:      v.ChatID,
		SenderID:    v.SenderID,
		Content:     v.Content,
		CreatedAt:   v.CreatedAt,
		EditedAt:    v.EditedAt,
		DisplayName: v.Sender.DisplayName,
		Username:    v.Sender.Username,
		AvatarURL:   v.Sender.AvatarURL,
		Attachments: atts,
	}
}
