package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cwrk-planet/chat-service/internal/domain"
	"github.com/cwrk-planet/chat-service/internal/errs"
	"github.com/cwrk-planet/chat-service/internal/postgres"
	"github.com/cwrk-planet/chat-service/internal/security"
)

type AuthService struct {
	userRepo *postgres.UserRepository
	tokens   *security.TokenManager
	bcrypt   *security.BcryptConfig
}

func NewAuthService(userRepo *postgres.UserRepository, tokens *security.TokenManager, bcrypt *security.BcryptConfig) *AuthService {
	return &AuthService{userRepo: userRepo, tokens: tokens, bcrypt: bcrypt}
}

// SignUp создаёт пользователя и сразу выпускает токен.
func (s *AuthService) SignUp(ctx context.Context, email, password, username, displayName string) (*domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, "", errs.ErrInvalidEmail
	}

	hash, err := security.HashPassword(password, s.bcrypt)
	if err != nil {
		return nil, "", err
	}

	u := &domain.User{
		Email:        email,
		Username:     strings.TrimSpace(username),
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: hash,
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		if constraint, ok := postgres.IsUniqueViolation(err); ok {
			if strings.Contains(constraint, "email") {
				return nil, "", errs.ErrEmailTaken
			}
			return nil, "", errs.ErrUsernameTaken
		}
		return nil, "", err
	}

	token, err := s.tokens.Sign(u.ID, time.Now())
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	u, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, "", errs.ErrInvalidCredentials
		}
		return nil, "", err
	}
	if err := security.ComparePassword(u.PasswordHash, password); err != nil {
		return nil, "", errs.ErrInvalidCredentials
	}

	token, err := s.tokens.Sign(u.ID, time.Now())
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// TokenTTL — срок жизни cookie.
func (s *AuthService) TokenTTL() time.Duration {
	return s.tokens.TTL()
}
