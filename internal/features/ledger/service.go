// Package ledger — service.go оркестрирует операции леджера:
// генерация выдаваемых доступов, реферальная ставка из конфига,
// коды подарочных карт.
package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/shop-bot/internal/config"
)

// Store — транзакционные операции, которые сервису нужны от репозитория.
type Store interface {
	Purchase(ctx context.Context, userID, productID int64, quantity int, credentials string) (*Order, error)
	ConfirmRecharge(ctx context.Context, paymentRef string, commissionRate decimal.Decimal) (*RechargeCredit, error)
	RedeemGiftCard(ctx context.Context, userID int64, code string) (decimal.Decimal, error)
	CreateGiftCard(ctx context.Context, code string, amount decimal.Decimal) error
	GetUserOrders(ctx context.Context, userID int64) ([]*Order, error)
}

// Service — фасад леджера для обработчиков, вебхука и планировщика.
type Service struct {
	store Store
	cfg   *config.Config
}

// NewService создаёт сервис леджера.
func NewService(store Store, cfg *config.Config) *Service {
	return &Service{store: store, cfg: cfg}
}

// Purchase проводит покупку одной единицы товара.
// Выдаваемые доступы пока синтезируются на месте: отдельного склада
// кредов у магазина нет.
func (s *Service) Purchase(ctx context.Context, userID, productID int64) (*Order, error) {
	credentials := fmt.Sprintf("Логин: user%d@service.com\nПароль: %s", userID, newSecret())

	order, err := s.store.Purchase(ctx, userID, productID, 1, credentials)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id":    userID,
		"product_id": productID,
		"order_id":   order.ID,
		"total":      order.TotalPrice.StringFixed(2),
	}).Info("Покупка проведена")
	return order, nil
}

// ConfirmRecharge зачисляет подтверждённое пополнение.
// Повторный вызов с тем же референсом — ErrRechargeAlreadyApplied,
// вызывающие трактуют его как успех без побочных эффектов.
func (s *Service) ConfirmRecharge(ctx context.Context, paymentRef string) (*RechargeCredit, error) {
	credit, err := s.store.ConfirmRecharge(ctx, paymentRef, s.cfg.AffiliateCommission)
	if err != nil {
		return nil, err
	}

	fields := log.Fields{
		"payment_ref": paymentRef,
		"user_id":     credit.UserID,
		"amount":      credit.Amount.StringFixed(2),
	}
	if credit.ReferrerID != nil {
		fields["referrer_id"] = *credit.ReferrerID
		fields["bonus"] = credit.ReferralBonus.StringFixed(2)
	}
	log.WithFields(fields).Info("Пополнение зачислено")
	return credit, nil
}

// RedeemGiftCard активирует подарочный код.
func (s *Service) RedeemGiftCard(ctx context.Context, userID int64, code string) (decimal.Decimal, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return decimal.Zero, fmt.Errorf("пустой код")
	}
	return s.store.RedeemGiftCard(ctx, userID, code)
}

// CreateGiftCard создаёт подарочный код на сумму (админка).
func (s *Service) CreateGiftCard(ctx context.Context, amount decimal.Decimal) (string, error) {
	code := newGiftCode()
	if err := s.store.CreateGiftCard(ctx, code, amount); err != nil {
		return "", err
	}
	log.WithField("amount", amount.StringFixed(2)).Info("Гифт-код создан")
	return code, nil
}

// OrderHistory возвращает заказы пользователя.
func (s *Service) OrderHistory(ctx context.Context, userID int64) ([]*Order, error) {
	return s.store.GetUserOrders(ctx, userID)
}

func newGiftCode() string {
	return "GIFT-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

func newSecret() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
