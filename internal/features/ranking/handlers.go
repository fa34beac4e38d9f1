package ranking

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// Handler обрабатывает меню рейтингов и его подразделы.
type Handler struct {
	service *Service
	bot     *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик рейтингов.
func NewHandler(service *Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, bot: bot}
}

// HandleMenu показывает меню выбора рейтинга.
func (h *Handler) HandleMenu(chatID int64, messageID int) {
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏆 Товары месяца", "ranking_products"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💰 Пополнения", "ranking_recharges"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🛍️ Покупатели", "ranking_buyers"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏦 Балансы", "ranking_balance"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("↩️ Назад", "back"),
		),
	)
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, "📊 Рейтинги магазина", markup)
	if _, err := h.bot.Send(edit); err != nil {
		log.WithError(err).Error("Ошибка отправки меню рейтингов")
	}
}

// HandleSection показывает конкретный рейтинг по суффиксу колбэка.
func (h *Handler) HandleSection(ctx context.Context, chatID int64, messageID int, section string) {
	var (
		text string
		err  error
	)
	switch section {
	case "products":
		text, err = h.service.ProductsText(ctx)
	case "recharges":
		text, err = h.service.RechargersText(ctx)
	case "buyers":
		text, err = h.service.BuyersText(ctx)
	case "balance":
		text, err = h.service.RichestText(ctx)
	default:
		return
	}
	if err != nil {
		log.WithError(err).WithField("section", section).Error("Ошибка построения рейтинга")
		text = "❌ Не удалось построить рейтинг"
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("↩️ К рейтингам", "ranking"),
		),
	)
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, markup)
	if _, err := h.bot.Send(edit); err != nil {
		log.WithError(err).Error("Ошибка отправки рейтинга")
	}
}
