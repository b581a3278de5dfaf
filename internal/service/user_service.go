package service

import (
	"context"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/postgres"
)

type UserService struct {
	userRepo *postgres.UserRepository
}

func NewUserService(userRepo *postgres.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	return s.userRepo.List(ctx)
}

type ProfileUpdate struct {
	DisplayName *string
	Username    *string
	Phone       *string
	Bio         *string
}

func (s *UserService) UpdateProfile(ctx context.Context, id int64, upd ProfileUpdate) (*domain.User, error) {
	err := s.userRepo.UpdateProfile(ctx, id, upd.DisplayName, upd.Username, upd.Phone, upd.Bio, time.Now())
	if err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, id)
}

func (s *UserService) UpdateAvatar(ctx context.Context, id int64, avatarURL string) error {
	return s.userRepo.UpdateAvatar(ctx, id, avatarURL, time.Now())
}
