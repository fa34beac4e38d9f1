package payments

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/shop-bot/internal/common"
	"serotonyl.ru/shop-bot/internal/config"
)

// Handler обрабатывает диалог пополнения баланса.
type Handler struct {
	service *Service
	cfg     *config.Config
	bot     *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик пополнений.
func NewHandler(service *Service, cfg *config.Config, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, cfg: cfg, bot: bot}
}

// HandleRechargeMenu показывает приглашение ввести сумму.
// Перевод диалога в режим ожидания суммы делает вызывающая сторона.
func (h *Handler) HandleRechargeMenu(chatID int64, messageID int) {
	text := fmt.Sprintf(
		"💰 Пополнение баланса\n\n"+
			"Введите сумму пополнения (минимум %s):",
		common.FormatMoney(h.cfg.MinRecharge),
	)
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("↩️ Назад", "back"),
		),
	)
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, markup)
	if _, err := h.bot.Send(edit); err != nil {
		log.WithError(err).Error("Ошибка отправки меню пополнения")
	}
}

// HandleAmountInput обрабатывает введённую сумму.
// Возвращает true, если заявка создана и диалог можно закрывать;
// false — сумма кривая, остаёмся в режиме ожидания.
func (h *Handler) HandleAmountInput(ctx context.Context, chatID, userID int64, raw string) bool {
	recharge, err := h.service.InitiateRecharge(ctx, userID, raw)
	switch {
	case err == nil:
	case errors.Is(err, common.ErrInvalidAmount):
		h.sendMessage(chatID, "❌ Не понял сумму. Введите число, например: 500 или 99.90")
		return false
	case errors.Is(err, common.ErrAmountBelowMinimum):
		h.sendMessage(chatID, fmt.Sprintf("❌ Минимальная сумма пополнения — %s", common.FormatMoney(h.cfg.MinRecharge)))
		return false
	case errors.Is(err, common.ErrGatewayUnavailable):
		h.sendMessage(chatID, "❌ Платёжная система временно недоступна, попробуйте позже")
		return true
	default:
		log.WithError(err).Error("Ошибка создания заявки на пополнение")
		h.sendMessage(chatID, "❌ Не удалось создать платёж, попробуйте позже")
		return true
	}

	expires := h.service.ExpiresAt(recharge)
	text := fmt.Sprintf(
		"🧾 Платёж создан\n\n"+
			"💵 Сумма: %s\n"+
			"🆔 Платёж: ...%s\n"+
			"⏳ Оплатить до: %s\n\n"+
			"После оплаты баланс зачислится автоматически.\n"+
			"Если этого не произошло — нажмите «Проверить оплату».",
		common.FormatMoney(recharge.Amount),
		refTail(recharge.PaymentRef),
		common.FormatDateTime(expires),
	)
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Проверить оплату", "check_"+recharge.PaymentRef),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("↩️ В меню", "back"),
		),
	)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = markup
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки платёжного сообщения")
	}
	return true
}

// HandleCheck обрабатывает кнопку «Проверить оплату».
func (h *Handler) HandleCheck(ctx context.Context, chatID int64, messageID int, paymentRef string) {
	credit, err := h.service.CheckAndConfirm(ctx, paymentRef)
	switch {
	case err == nil:
		text := fmt.Sprintf("✅ Оплата получена! Зачислено: %s", common.FormatMoney(credit.Amount))
		markup := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🪪 Профиль", "profile"),
			),
		)
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, markup)
		if _, sendErr := h.bot.Send(edit); sendErr != nil {
			log.WithError(sendErr).Error("Ошибка отправки подтверждения")
		}
		h.notifyReferrer(credit.ReferrerID, credit.ReferralBonus)
	case errors.Is(err, common.ErrRechargeAlreadyApplied):
		h.sendMessage(chatID, "✅ Этот платёж уже зачислен")
	case errors.Is(err, common.ErrPaymentNotConfirmed):
		h.sendMessage(chatID, "⏳ Оплата пока не видна. Подождите минуту и проверьте ещё раз.")
	case errors.Is(err, common.ErrRechargeNotFound):
		h.sendMessage(chatID, "❌ Платёж не найден")
	case errors.Is(err, common.ErrGatewayUnavailable):
		h.sendMessage(chatID, "❌ Платёжная система временно недоступна, попробуйте позже")
	default:
		log.WithError(err).Error("Ошибка проверки оплаты")
		h.sendMessage(chatID, "❌ Не удалось проверить оплату, попробуйте позже")
	}
}

func (h *Handler) notifyReferrer(referrerID *int64, bonus decimal.Decimal) {
	if referrerID == nil {
		return
	}
	msg := tgbotapi.NewMessage(*referrerID, fmt.Sprintf("🤝 Ваш реферал пополнил баланс, вам начислено: %s", common.FormatMoney(bonus)))
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).WithField("referrer_id", *referrerID).Debug("Не удалось уведомить пригласившего")
	}
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}

// refTail — хвост референса для показа пользователю, весь не светим.
func refTail(ref string) string {
	if len(ref) <= 6 {
		return ref
	}
	return ref[len(ref)-6:]
}
