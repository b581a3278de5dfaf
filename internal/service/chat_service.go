package service

import (
	"context"
	"errors"
	"strings"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/postgres"
)

// ChatService владеет chats/chat_members; для гейтвея это оракул членства:
// durable membership авторитетна, live-подписка комнаты — лишь кэш поверх неё.
type ChatService struct {
	chatRepo    *postgres.ChatRepository
	messageRepo *postgres.MessageRepository
}

func NewChatService(chatRepo *postgres.ChatRepository, messageRepo *postgres.MessageRepository) *ChatService {
	return &ChatService{chatRepo: chatRepo, messageRepo: messageRepo}
}

// --- membership oracle (гейтвей ходит только сюда) ---

func (s *ChatService) IsMember(ctx context.Context, chatID, userID int64) (bool, error) {
	return s.chatRepo.IsMember(ctx, chatID, userID)
}

func (s *ChatService) ListUserChatIDs(ctx context.Context, userID int64) ([]int64, error) {
	return s.chatRepo.ListChatIDsByUser(ctx, userID)
}

// AddMember — идемпотентный self-service join.
func (s *ChatService) AddMember(ctx context.Context, chatID, userID int64) error {
	if _, err := s.chatRepo.Get(ctx, chatID); err != nil {
		return err
	}
	return s.chatRepo.AddMembers(ctx, chatID, []int64{userID})
}

func (s *ChatService) RemoveMember(ctx context.Context, chatID, userID int64) error {
	return s.chatRepo.RemoveMember(ctx, chatID, userID)
}

// --- chat CRUD ---

func (s *ChatService) CreateGroupChat(ctx context.Context, name string, createdBy int64, memberIDs []int64) (*domain.Chat, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("chat name is required")
	}

	chat := &domain.Chat{IsGroup: true, Name: &name, CreatedBy: createdBy}
	if err := s.chatRepo.Create(ctx, chat); err != nil {
		return nil, err
	}

	members := append([]int64{createdBy}, memberIDs...)
	if err := s.chatRepo.AddMembers(ctx, chat.ID, members); err != nil {
		return nil, err
	}
	return chat, nil
}

// GetOrCreateDirectChat находит существующий DM между двумя пользователями
// или создаёт новый.
func (s *ChatService) GetOrCreateDirectChat(ctx context.Context, userID, otherID int64) (*domain.Chat, bool, error) {
	chat, err := s.chatRepo.FindDirectChat(ctx, userID, otherID)
	if err == nil {
		return chat, false, nil
	}
	if !errors.Is(err, domain.ErrChatNotFound) {
		return nil, false, err
	}

	chat = &domain.Chat{IsGroup: false, CreatedBy: userID}
	if err := s.chatRepo.Create(ctx, chat); err != nil {
		return nil, false, err
	}
	if err := s.chatRepo.AddMembers(ctx, chat.ID, []int64{userID, otherID}); err != nil {
		return nil, false, err
	}
	return chat, true, nil
}

func (s *ChatService) GetChatWithMembers(ctx context.Context, chatID int64) (*domain.ChatWithMembers, error) {
	chat, err := s.chatRepo.Get(ctx, chatID)
	if err != nil {
		return nil, err
	}
	members, err := s.chatRepo.ListMembers(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return &domain.ChatWithMembers{Chat: *chat, Members: members}, nil
}

// ListUserChats — чаты пользователя с превью последнего сообщения.
func (s *ChatService) ListUserChats(ctx context.Context, userID int64) ([]domain.ChatPreview, error) {
	chats, err := s.chatRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ChatPreview, 0, len(chats))
	for _, c := range chats {
		p := domain.ChatPreview{Chat: c}
		last, err := s.messageRepo.GetLastByChat(ctx, c.ID)
		if err == nil {
			p.LastMessage = last
		} else if !errors.Is(err, domain.ErrMessageNotFound) {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *ChatService) ListDirectChats(ctx context.Context, userID int64) ([]domain.DirectChat, error) {
	return s.chatRepo.ListDirectByUser(ctx, userID)
}

func (s *ChatService) ListUnjoinedGroups(ctx context.Context, userID int64) ([]domain.Chat, error) {
	return s.chatRepo.ListUnjoinedGroups(ctx, userID)
}

// RenameChat — только участник может переименовать групповой чат.
func (s *ChatService) RenameChat(ctx context.Context, chatID, userID int64, name string) error {
	member, err := s.chatRepo.IsMember(ctx, chatID, userID)
	if err != nil {
		return err
	}
	if !member {
		return domain.ErrNotMember
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("chat name is required")
	}
	return s.chatRepo.UpdateName(ctx, chatID, name)
}

// DeleteChat — только создатель.
func (s *ChatService) DeleteChat(ctx context.Context, chatID, userID int64) error {
	chat, err := s.chatRepo.Get(ctx, chatID)
	if err != nil {
		return err
	}
	if chat.CreatedBy != userID {
		return domain.ErrAccessDenied
	}
	return s.chatRepo.Delete(ctx, chatID)
}

// AddMembers — участник добавляет других пользователей в групповой чат.
func (s *ChatService) AddMembers(ctx context.Context, chatID, userID int64, memberIDs []int64) error {
	member, err := s.chatRepo.IsMember(ctx, chatID, userID)
	if err != nil {
		return err
	}
	if !member {
		return domain.ErrNotMember
	}
	return s.chatRepo.AddMembers(ctx, chatID, memberIDs)
}
