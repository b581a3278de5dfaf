package service

import (
	"context"
	"strings"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/postgres"
)

// MessageService — message store гейтвея: создание, правка в пределах окна,
// soft delete и гидрированные чтения.
type MessageService struct {
	messageRepo *postgres.MessageRepository
}

func NewMessageService(messageRepo *postgres.MessageRepository) *MessageService {
	return &MessageService{messageRepo: messageRepo}
}

// AttachmentInput — уже сохранённый в blob-хранилище файл.
type AttachmentInput struct {
	FileURL  string
	FileType string
}

// Send персистит сообщение с вложениями и возвращает гидрированный вид.
// Авторизация (членство в чате) — ответственность вызывающего.
func (s *MessageService) Send(ctx context.Context, chatID, senderID int64, content string, atts []AttachmentInput) (*domain.MessageView, error) {
	if err := domain.ValidateContent(content, len(atts)); err != nil {
		return nil, err
	}

	m := &domain.Message{
		ChatID:   chatID,
		SenderID: senderID,
		Content:  strings.TrimSpace(content),
	}
	if err := s.messageRepo.Create(ctx, m); err != nil {
		return nil, err
	}

	if len(atts) > 0 {
		rows := make([]domain.Attachment, 0, len(atts))
		for _, a := range atts {
			rows = append(rows, domain.Attachment{FileURL: a.FileURL, FileType: a.FileType})
		}
		if err := s.messageRepo.AddAttachments(ctx, m.ID, rows); err != nil {
			return nil, err
		}
	}

	return s.messageRepo.GetView(ctx, m.ID)
}

// Edit правит текст сообщения: только отправитель, только в пределах окна,
// только не удалённое.
func (s *MessageService) Edit(ctx context.Context, messageID, userID int64, content string) (*domain.MessageView, error) {
	if err := domain.ValidateContent(content, 0); err != nil {
		return nil, err
	}

	m, err := s.messageRepo.Get(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if err := m.Editable(userID, time.Now()); err != nil {
		return nil, err
	}

	if err := s.messageRepo.UpdateContent(ctx, messageID, strings.TrimSpace(content), time.Now()); err != nil {
		return nil, err
	}
	return s.messageRepo.GetView(ctx, messageID)
}

// Delete — soft delete; разрешён отправителю и создателю чата.
// Возвращает chat_id для broadcast-а.
func (s *MessageService) Delete(ctx context.Context, messageID, userID int64) (int64, error) {
	auth, err := s.messageRepo.GetDeleteAuth(ctx, messageID)
	if err != nil {
		return 0, err
	}
	if auth.SenderID != userID && auth.ChatCreatedBy != userID {
		return 0, domain.ErrAccessDenied
	}
	if err := s.messageRepo.SoftDelete(ctx, messageID, time.Now()); err != nil {
		return 0, err
	}
	return auth.ChatID, nil
}

// GetChatMessages — история чата без удалённых сообщений.
func (s *MessageService) GetChatMessages(ctx context.Context, chatID int64) ([]domain.MessageView, error) {
	return s.messageRepo.ListByChat(ctx, chatID)
}
