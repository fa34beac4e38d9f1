// Package users — service.go содержит бизнес-логику работы с покупателями.
// Регистрация при первом /start, выдача реферального кода,
// привязка реферала к пригласившему.
package users

import (
	"context"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Service управляет покупателями магазина.
type Service struct {
	repo *Repository
}

// NewService создаёт новый сервис покупателей.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Register регистрирует пользователя при первом обращении.
// refPayload — полезная нагрузка из ссылки t.me/bot?start=ref_xxx:
// если она указывает на чужой реферальный код, привязываем реферала.
// Повторный вызов безопасен: обновится только username.
func (s *Service) Register(ctx context.Context, userID int64, username, refPayload string) (*User, error) {
	exists, err := s.repo.Exists(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !exists {
		var referredBy *int64
		if code := strings.TrimSpace(refPayload); code != "" {
			referrer, err := s.repo.GetByAffiliateCode(ctx, code)
			// Свой собственный код рефералом не считается
			if err == nil && referrer.UserID != userID {
				referredBy = &referrer.UserID
			}
		}

		code := newAffiliateCode()
		u := &User{
			UserID:        userID,
			Username:      username,
			AffiliateCode: &code,
			ReferredBy:    referredBy,
		}
		if err := s.repo.Create(ctx, u); err != nil {
			return nil, err
		}

		log.WithFields(log.Fields{
			"user_id":  userID,
			"username": username,
			"referred": referredBy != nil,
		}).Info("Новый покупатель зарегистрирован")
	} else {
		// Обновляем username — он мог поменяться
		if err := s.repo.Create(ctx, &User{UserID: userID, Username: username}); err != nil {
			return nil, err
		}
	}

	return s.repo.GetByUserID(ctx, userID)
}

// GetByUserID возвращает пользователя по Telegram user ID.
func (s *Service) GetByUserID(ctx context.Context, userID int64) (*User, error) {
	return s.repo.GetByUserID(ctx, userID)
}

// CountReferrals возвращает число приглашённых пользователем.
func (s *Service) CountReferrals(ctx context.Context, userID int64) (int, error) {
	return s.repo.CountReferrals(ctx, userID)
}

// ListUserIDs возвращает всех покупателей (для админской рассылки).
func (s *Service) ListUserIDs(ctx context.Context) ([]int64, error) {
	return s.repo.ListUserIDs(ctx)
}

// newAffiliateCode генерирует короткий реферальный код вида "ref_1a2b3c4d".
func newAffiliateCode() string {
	return "ref_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
