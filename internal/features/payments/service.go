package payments

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/shop-bot/internal/common"
	"serotonyl.ru/shop-bot/internal/config"
	"serotonyl.ru/shop-bot/internal/features/ledger"
)

// RechargeStore — что сервису нужно от репозитория пополнений.
type RechargeStore interface {
	Create(ctx context.Context, userID int64, amount decimal.Decimal, paymentRef string) (*Recharge, error)
	GetByRef(ctx context.Context, paymentRef string) (*Recharge, error)
	ListPending(ctx context.Context, limit int) ([]*Recharge, error)
	ExpireStale(ctx context.Context, ttl time.Duration) (int64, error)
}

// Crediter — зачисление подтверждённого пополнения (леджер).
type Crediter interface {
	ConfirmRecharge(ctx context.Context, paymentRef string) (*ledger.RechargeCredit, error)
}

// Service связывает заявки, провайдера и леджер.
// Подтверждение приходит двумя путями — вебхук и фоновый опрос, —
// оба сходятся в Crediter, который зачисляет не более одного раза.
type Service struct {
	store   RechargeStore
	gateway Gateway
	credits Crediter
	cfg     *config.Config
}

// NewService создаёт платёжный сервис.
func NewService(store RechargeStore, gateway Gateway, credits Crediter, cfg *config.Config) *Service {
	return &Service{store: store, gateway: gateway, credits: credits, cfg: cfg}
}

// InitiateRecharge создаёт платёж у провайдера и заявку в БД.
// Сумма приходит текстом из диалога, валидируем здесь же.
func (s *Service) InitiateRecharge(ctx context.Context, userID int64, rawAmount string) (*Recharge, error) {
	amount, err := common.ParseAmount(rawAmount)
	if err != nil {
		return nil, err
	}
	if amount.LessThan(s.cfg.MinRecharge) {
		return nil, common.ErrAmountBelowMinimum
	}

	intent, err := s.gateway.Initiate(ctx, userID, amount)
	if err != nil {
		return nil, err
	}

	recharge, err := s.store.Create(ctx, userID, amount, intent.Reference)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id":     userID,
		"amount":      amount.StringFixed(2),
		"payment_ref": recharge.PaymentRef,
	}).Info("Заявка на пополнение создана")
	return recharge, nil
}

// ExpiresAt возвращает момент, когда неоплаченная заявка протухнет.
func (s *Service) ExpiresAt(recharge *Recharge) time.Time {
	return recharge.CreatedAt.Add(s.cfg.RechargeTTL)
}

// CheckAndConfirm спрашивает провайдера про платёж и при подтверждении
// зачисляет его. Кнопка «Проверить оплату» и фоновый опрос ходят сюда.
func (s *Service) CheckAndConfirm(ctx context.Context, paymentRef string) (*ledger.RechargeCredit, error) {
	recharge, err := s.store.GetByRef(ctx, paymentRef)
	if err != nil {
		return nil, err
	}
	switch recharge.Status {
	case RechargeStatusCompleted:
		return nil, common.ErrRechargeAlreadyApplied
	case RechargeStatusFailed:
		return nil, common.ErrPaymentNotConfirmed
	}

	confirmed, err := s.gateway.Check(ctx, paymentRef)
	if err != nil {
		return nil, err
	}
	if !confirmed {
		return nil, common.ErrPaymentNotConfirmed
	}

	return s.credits.ConfirmRecharge(ctx, paymentRef)
}

// ConfirmFromWebhook зачисляет платёж, подтверждение которого принёс
// вебхук провайдера. Провайдеру уже верим, повторно его не опрашиваем.
func (s *Service) ConfirmFromWebhook(ctx context.Context, paymentRef string) (*ledger.RechargeCredit, error) {
	return s.credits.ConfirmRecharge(ctx, paymentRef)
}

// PollPending опрашивает провайдера по незакрытым заявкам.
// Резервный путь на случай потерянного вебхука.
func (s *Service) PollPending(ctx context.Context) {
	pending, err := s.store.ListPending(ctx, 100)
	if err != nil {
		log.WithError(err).Error("Ошибка чтения незакрытых заявок")
		return
	}

	for _, recharge := range pending {
		confirmed, err := s.gateway.Check(ctx, recharge.PaymentRef)
		if err != nil {
			log.WithError(err).WithField("payment_ref", recharge.PaymentRef).
				Warn("Провайдер недоступен, заявка останется на следующий круг")
			continue
		}
		if !confirmed {
			continue
		}

		_, err = s.credits.ConfirmRecharge(ctx, recharge.PaymentRef)
		if err != nil && !errors.Is(err, common.ErrRechargeAlreadyApplied) {
			log.WithError(err).WithField("payment_ref", recharge.PaymentRef).
				Error("Ошибка зачисления при фоновом опросе")
		}
	}
}

// ExpireStale закрывает заявки, не оплаченные за отведённое время.
func (s *Service) ExpireStale(ctx context.Context) {
	n, err := s.store.ExpireStale(ctx, s.cfg.RechargeTTL)
	if err != nil {
		log.WithError(err).Error("Ошибка закрытия протухших заявок")
		return
	}
	if n > 0 {
		log.WithField("count", n).Info("Закрыты протухшие заявки на пополнение")
	}
}
