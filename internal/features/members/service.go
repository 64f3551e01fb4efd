// Package members — service.go содержит бизнес-логику участников:
// резолв сессии, выдачу токенов, смену ролей.
package members

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"serotonyl.ru/scrapyard/internal/common"
)

// Время жизни сессионного токена.
const sessionTTL = 30 * 24 * time.Hour

// Service управляет участниками.
type Service struct {
	repo *Repository
}

// NewService создаёт новый сервис участников.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// ResolveSession резолвит сессионный токен в {userID, role}.
// Возвращает nil, если токена нет, сессия истекла или участник забанен.
// Это единственная точка, через которую движок экономики узнаёт,
// кто делает запрос.
func (s *Service) ResolveSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, nil
	}
	sess, err := s.repo.GetSessionByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.Role == RoleBanned {
		return nil, nil
	}
	return sess, nil
}

// Login создаёт (или обновляет) участника по внешнему ID
// и выдаёт новый сессионный токен.
func (s *Service) Login(ctx context.Context, externalID, username string) (string, error) {
	if externalID == "" {
		return "", common.ErrInvalidInput("пустой внешний ID")
	}

	userID, err := s.repo.EnsureUser(ctx, externalID, username)
	if err != nil {
		return "", err
	}

	token, err := newToken()
	if err != nil {
		return "", err
	}
	if err := s.repo.CreateSession(ctx, userID, token, sessionTTL); err != nil {
		return "", err
	}
	return token, nil
}

// GetUser возвращает участника по ID.
func (s *Service) GetUser(ctx context.Context, userID int64) (*User, error) {
	return s.repo.GetByID(ctx, userID)
}

// SetRole меняет роль участника. Допустимые роли перечислены в models.go.
func (s *Service) SetRole(ctx context.Context, userID int64, role string) error {
	switch role {
	case RoleMember, RoleReviewer, RoleAdmin, RoleBanned:
	default:
		return common.ErrInvalidInput(fmt.Sprintf("неизвестная роль %q", role))
	}
	return s.repo.SetRole(ctx, userID, role)
}

// ExternalIDs отдаёт соответствие внутренних ID внешним (для синка часов).
func (s *Service) ExternalIDs(ctx context.Context) (map[int64]string, error) {
	return s.repo.ExternalIDs(ctx)
}

// newToken генерирует криптослучайный сессионный токен (32 байта в hex).
func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("ошибка генерации токена: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
