// Package webhook принимает подтверждения оплат от платёжного
// провайдера и отдаёт healthcheck. Это второй вход в приложение
// наряду с Telegram-апдейтами.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v76"
	stripewebhook "github.com/stripe/stripe-go/v76/webhook"

	"serotonyl.ru/shop-bot/internal/common"
	"serotonyl.ru/shop-bot/internal/config"
	"serotonyl.ru/shop-bot/internal/features/ledger"
)

// Тело вебхука больше мегабайта — это не Stripe
const maxBodyBytes = 1 << 20

// Confirmer — зачисление платежа, подтверждённого вебхуком.
type Confirmer interface {
	ConfirmFromWebhook(ctx context.Context, paymentRef string) (*ledger.RechargeCredit, error)
}

// Notifier — уведомление пользователя в Telegram.
type Notifier interface {
	SendMessageToUser(userID int64, text string)
}

// Server — HTTP-сервер вебхуков и healthcheck.
type Server struct {
	httpServer *http.Server
	cfg        *config.Config
	confirmer  Confirmer
	notifier   Notifier
	db         *pgxpool.Pool
}

// NewServer создаёт сервер на роутере chi.
func NewServer(cfg *config.Config, confirmer Confirmer, notifier Notifier, db *pgxpool.Pool) *Server {
	s := &Server{cfg: cfg, confirmer: confirmer, notifier: notifier, db: db}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Post("/webhook/stripe", s.handleStripeWebhook)
	r.Get("/healthz", s.handleHealthz)

	s.httpServer = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start блокирует до остановки сервера.
func (s *Server) Start() error {
	log.WithField("addr", s.httpServer.Addr).Info("HTTP-сервер запущен")
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown останавливает сервер, дождавшись активных запросов.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// handleStripeWebhook проверяет подпись и зачисляет оплату.
// Повторная доставка события — тоже 2xx, иначе Stripe будет
// ретраить до бесконечности.
func (s *Server) handleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "тело запроса не читается", http.StatusRequestEntityTooLarge)
		return
	}

	event, err := stripewebhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), s.cfg.StripeWebhookSecret)
	if err != nil {
		log.WithError(err).Warn("Вебхук с невалидной подписью")
		http.Error(w, "невалидная подпись", http.StatusBadRequest)
		return
	}

	if event.Type != "payment_intent.succeeded" {
		// Остальные события нам не интересны, но подтверждаем доставку
		w.WriteHeader(http.StatusOK)
		return
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		log.WithError(err).Error("Ошибка разбора payment_intent")
		http.Error(w, "невалидное тело события", http.StatusBadRequest)
		return
	}

	credit, err := s.confirmer.ConfirmFromWebhook(r.Context(), intent.ID)
	switch {
	case err == nil:
		s.notifier.SendMessageToUser(credit.UserID,
			fmt.Sprintf("✅ Оплата получена! Зачислено: %s", common.FormatMoney(credit.Amount)))
		if credit.ReferrerID != nil {
			s.notifier.SendMessageToUser(*credit.ReferrerID,
				fmt.Sprintf("🤝 Ваш реферал пополнил баланс, вам начислено: %s", common.FormatMoney(credit.ReferralBonus)))
		}
	case errors.Is(err, common.ErrRechargeAlreadyApplied):
		// Дубликат доставки, зачисление уже прошло
	case errors.Is(err, common.ErrRechargeNotFound):
		// Платёж не из нашей базы (например, другой инстанс того же аккаунта)
		log.WithField("payment_ref", intent.ID).Warn("Вебхук по неизвестному платежу")
	default:
		log.WithError(err).WithField("payment_ref", intent.ID).Error("Ошибка зачисления из вебхука")
		http.Error(w, "ошибка обработки", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		http.Error(w, "база недоступна", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
