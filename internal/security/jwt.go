package security

import (
	"fmt"
	"time"

	"github.com/cwrk-planet/chat-service/internal/errs"

	"github.com/golang-jwt/jwt"
)

// Используется SigningMethodHS256: один секрет на сервис, как и в
// остальных частях платформы, где нет разделения issuer/consumer.
type TokenManager struct {
	secret    []byte
	issuer    string
	ttl       time.Duration
	clockSkew time.Duration
}

func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret:    []byte(secret),
		issuer:    issuer,
		ttl:       ttl,
		clockSkew: 30 * time.Second,
	}
}

func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Sign выпускает JWT с sub=userID и exp=now+ttl.
func (m *TokenManager) Sign(userID int64, now time.Time) (string, error) {
	claims := jwt.StandardClaims{
		Subject:   fmt.Sprint(userID),
		Issuer:    m.issuer,
		IssuedAt:  now.Unix(),
		NotBefore: now.Add(-m.clockSkew).Unix(),
		ExpiresAt: now.Add(m.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(m.secret)
}

// Verify проверяет подпись и временные клеймы, возвращает userID из sub.
func (m *TokenManager) Verify(tokenStr string) (int64, error) {
	claims := &jwt.StandardClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errs.ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil {
		return 0, errs.ErrInvalidToken
	}
	if !token.Valid {
		return 0, errs.ErrInvalidToken
	}
	if m.issuer != "" && !claims.VerifyIssuer(m.issuer, true) {
		return 0, errs.ErrInvalidToken
	}

	now := time.Now()
	nbf := time.Unix(claims.NotBefore, 0).Add(-m.clockSkew)
	exp := time.Unix(claims.ExpiresAt, 0).Add(m.clockSkew) // даём люфт на «часы»
	if now.Before(nbf) || now.After(exp) {
		return 0, errs.ErrTokenExpired
	}

	if claims.Subject == "" {
		return 0, errs.ErrInvalidSubject
	}
	var id int64
	if _, err := fmt.Sscan(claims.Subject, &id); err != nil || id <= 0 {
		return 0, errs.ErrInvalidSubject
	}

	return id, nil
}
