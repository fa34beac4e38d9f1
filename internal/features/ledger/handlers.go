// Package ledger — handlers.go обрабатывает покупку, историю заказов
// и активацию гифт-кодов.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/shop-bot/internal/common"
	"serotonyl.ru/shop-bot/internal/config"
)

// Handler обрабатывает команды и колбэки леджера.
type Handler struct {
	service *Service
	cfg     *config.Config
	bot     *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик леджера.
func NewHandler(service *Service, cfg *config.Config, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, cfg: cfg, bot: bot}
}

// HandleBuy обрабатывает кнопку «Купить».
// Ошибки покупки не валят диалог: пользователь получает понятное
// сообщение и кнопки для следующего шага.
func (h *Handler) HandleBuy(ctx context.Context, chatID int64, messageID int, userID, productID int64) {
	order, err := h.service.Purchase(ctx, userID, productID)
	if err != nil {
		h.replyPurchaseError(chatID, messageID, productID, err)
		return
	}

	text := fmt.Sprintf(
		"✅ Покупка прошла успешно!\n\n"+
			"📦 Товар: %s\n"+
			"💰 Сумма: %s\n"+
			"🆔 Заказ: #%d\n\n"+
			"🔐 Доступы:\n%s\n\n"+
			"♻️ Гарантия: %d %s\n\n"+
			"📞 Поддержка: %s",
		order.ProductName, common.FormatMoney(order.TotalPrice), order.ID,
		order.Credentials,
		order.WarrantyDays, common.PluralizeDays(order.WarrantyDays),
		h.cfg.SupportLink,
	)

	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🛍️ Ещё товары", "shop"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🪪 Профиль", "profile"),
		),
	)
	h.editTextAndMarkup(chatID, messageID, text, markup)
}

func (h *Handler) replyPurchaseError(chatID int64, messageID int, productID int64, err error) {
	if ife, ok := common.AsInsufficientFunds(err); ok {
		text := fmt.Sprintf(
			"❌ Недостаточно средств! Не хватает %s\n\n"+
				"Пополните баланс и попробуйте снова.",
			common.FormatMoney(ife.Missing),
		)
		markup := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("💰 Пополнить", "recharge"),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("↩️ Назад", fmt.Sprintf("product_%d", productID)),
			),
		)
		h.editTextAndMarkup(chatID, messageID, text, markup)
		return
	}

	switch {
	case errors.Is(err, common.ErrOutOfStock):
		h.editText(chatID, messageID, "❌ Товар закончился!")
	case errors.Is(err, common.ErrProductNotFound):
		h.editText(chatID, messageID, "❌ Товар не найден!")
	case errors.Is(err, common.ErrUserNotFound):
		h.editText(chatID, messageID, "❌ Кошелёк не найден, отправьте /start")
	default:
		log.WithError(err).Error("Ошибка проведения покупки")
		h.editText(chatID, messageID, "❌ Не удалось провести покупку, попробуйте позже")
	}
}

// HandlePurchaseHistory отправляет историю заказов файлом.
func (h *Handler) HandlePurchaseHistory(ctx context.Context, chatID, userID int64) {
	orders, err := h.service.OrderHistory(ctx, userID)
	if err != nil {
		log.WithError(err).Error("Ошибка получения истории заказов")
		h.sendMessage(chatID, "❌ Не удалось получить историю покупок")
		return
	}
	if len(orders) == 0 {
		h.sendMessage(chatID, "📋 У вас пока нет покупок")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("ИСТОРИЯ ПОКУПОК\n%s\n%s\n\n", h.cfg.ShopName, strings.Repeat("_", 30)))
	for _, o := range orders {
		sb.WriteString(fmt.Sprintf("📦 %s\n", o.ProductName))
		sb.WriteString(fmt.Sprintf("   💵 %s\n", common.FormatMoney(o.TotalPrice)))
		sb.WriteString(fmt.Sprintf("   📅 %s\n", common.FormatDateTime(o.CreatedAt)))
		sb.WriteString(fmt.Sprintf("   🆔 #%d\n", o.ID))
		sb.WriteString(strings.Repeat("-", 20) + "\n")
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  "history.txt",
		Bytes: []byte(sb.String()),
	})
	doc.Caption = fmt.Sprintf("📄 Ваши покупки (%d %s)", len(orders), common.PluralizeOrders(len(orders)))
	if _, err := h.bot.Send(doc); err != nil {
		log.WithError(err).Error("Ошибка отправки истории")
	}
}

// HandleGiftInput обрабатывает введённый гифт-код.
func (h *Handler) HandleGiftInput(ctx context.Context, chatID, userID int64, code string) {
	amount, err := h.service.RedeemGiftCard(ctx, userID, code)
	switch {
	case err == nil:
		h.sendMessage(chatID, fmt.Sprintf("🎁 Код активирован! Зачислено: %s", common.FormatMoney(amount)))
	case errors.Is(err, common.ErrGiftCardAlreadyUsed):
		h.sendMessage(chatID, "❌ Этот код уже был активирован")
	case errors.Is(err, common.ErrGiftCardNotFound):
		h.sendMessage(chatID, "❌ Код не найден, проверьте написание")
	case errors.Is(err, common.ErrUserNotFound):
		h.sendMessage(chatID, "❌ Сначала отправьте /start")
	default:
		log.WithError(err).Error("Ошибка активации гифт-кода")
		h.sendMessage(chatID, "❌ Не удалось активировать код, попробуйте позже")
	}
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}

func (h *Handler) editText(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if _, err := h.bot.Send(edit); err != nil {
		log.WithError(err).Error("Ошибка редактирования сообщения")
	}
}

func (h *Handler) editTextAndMarkup(chatID int64, messageID int, text string, markup tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, markup)
	if _, err := h.bot.Send(edit); err != nil {
		log.WithError(err).Error("Ошибка редактирования сообщения")
	}
}
