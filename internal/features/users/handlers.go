// Package users — handlers.go обрабатывает профиль, /id и /afiliados.
package users

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/shop-bot/internal/common"
	"serotonyl.ru/shop-bot/internal/config"
)

// Handler обрабатывает команды, связанные с аккаунтом покупателя.
type Handler struct {
	service *Service
	cfg     *config.Config
	bot     *tgbotapi.BotAPI
}

// NewHandler создаёт новый обработчик.
func NewHandler(service *Service, cfg *config.Config, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, cfg: cfg, bot: bot}
}

// HandleProfile показывает карточку профиля (кнопка «Профиль»).
func (h *Handler) HandleProfile(ctx context.Context, chatID, userID int64) (string, tgbotapi.InlineKeyboardMarkup, bool) {
	u, err := h.service.GetByUserID(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка получения профиля")
		return "❌ Профиль не найден, отправьте /start", tgbotapi.InlineKeyboardMarkup{}, false
	}

	text := fmt.Sprintf(
		"🪪 Мой профиль\n\n"+
			"🆔 ID кошелька: %d\n"+
			"👤 Пользователь: %s\n"+
			"💰 Текущий баланс: %s\n\n"+
			"📊 Движения:\n"+
			"— 🛒 Покупок: %d\n"+
			"— 💠 Пополнено: %s\n"+
			"— 🎁 Получено по гифт-кодам: %s",
		u.UserID, u.DisplayName(), common.FormatMoney(u.Balance),
		u.TotalPurchases,
		common.FormatMoney(u.TotalRecharged),
		common.FormatMoney(u.TotalGiftRescued),
	)

	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🛍️ История покупок", "history"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("↩️ Назад", "back"),
		),
	)
	return text, markup, true
}

// HandleIDCommand обрабатывает команду /id.
func (h *Handler) HandleIDCommand(chatID, userID int64) {
	h.sendMessage(chatID, fmt.Sprintf("🆔 Ваш ID: %d", userID))
}

// HandleAffiliateCommand обрабатывает команду /afiliados —
// показывает реферальную ссылку и статистику приглашений.
func (h *Handler) HandleAffiliateCommand(ctx context.Context, chatID, userID int64, botUsername string) {
	u, err := h.service.GetByUserID(ctx, userID)
	if err != nil {
		h.sendMessage(chatID, "❌ Сначала отправьте /start")
		return
	}

	code := fmt.Sprintf("ref_%d", userID)
	if u.AffiliateCode != nil {
		code = *u.AffiliateCode
	}

	total, err := h.service.CountReferrals(ctx, userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("Ошибка подсчёта рефералов")
	}

	commissionPct := h.cfg.AffiliateCommission.Shift(2).StringFixed(0)

	text := fmt.Sprintf(
		"ℹ️ Реферальная программа\n\n"+
			"📊 Комиссия за приглашение: %s%%\n"+
			"👥 Всего приглашено: %d\n"+
			"🔗 Ссылка для приглашения:\nhttps://t.me/%s?start=%s\n\n"+
			"Как это работает?\n"+
			"Отправьте свою ссылку другим людям. Каждый раз, когда приглашённый "+
			"вами пользователь пополняет баланс, вы получаете процент от суммы!",
		commissionPct, total, botUsername, code,
	)
	h.sendMessage(chatID, text)
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}
