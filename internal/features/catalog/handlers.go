// Package catalog — handlers.go рисует витрину: список товаров,
// карточку товара и результаты поиска.
package catalog

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/shop-bot/internal/common"
	"serotonyl.ru/shop-bot/internal/features/users"
)

// Handler обрабатывает витринные колбэки и поиск.
type Handler struct {
	service     *Service
	userService *users.Service
	bot         *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик витрины.
func NewHandler(service *Service, userService *users.Service, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{service: service, userService: userService, bot: bot}
}

// HandleCatalog показывает список активных товаров (кнопка «Товары»).
func (h *Handler) HandleCatalog(ctx context.Context, chatID int64, messageID int, userID int64) {
	balance := "0.00 ₽"
	if u, err := h.userService.GetByUserID(ctx, userID); err == nil {
		balance = common.FormatMoney(u.Balance)
	}

	products, err := h.service.List(ctx)
	if err != nil {
		log.WithError(err).Error("Ошибка загрузки витрины")
		h.editText(chatID, messageID, "❌ Не удалось загрузить витрину, попробуйте позже")
		return
	}

	text := fmt.Sprintf(
		"🎟️ Премиум-доступы\n\n"+
			"🏦 Кошелёк\n"+
			"💸 Текущий баланс: %s\n\n"+
			"Доступные товары:",
		balance,
	)
	if len(products) == 0 {
		text += "\n\nПока пусто — загляните позже."
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, p := range products {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("%s — %s", p.Name, common.FormatMoney(p.Price)),
				fmt.Sprintf("product_%d", p.ID),
			),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("↩️ Назад", "back"),
	))

	h.editTextAndMarkup(chatID, messageID, text, tgbotapi.NewInlineKeyboardMarkup(rows...))
}

// HandleProduct показывает карточку товара.
func (h *Handler) HandleProduct(ctx context.Context, chatID int64, messageID int, userID, productID int64) {
	p, err := h.service.Get(ctx, productID)
	if err != nil || !p.IsActive {
		h.editText(chatID, messageID, "❌ Товар не найден")
		return
	}

	balance := "0.00 ₽"
	if u, err := h.userService.GetByUserID(ctx, userID); err == nil {
		balance = common.FormatMoney(u.Balance)
	}

	text := fmt.Sprintf(
		"⚜️ ДОСТУП: %s ⚜️\n\n"+
			"💵 Цена: %s\n"+
			"💼 Текущий баланс: %s\n"+
			"📥 В наличии: %d\n\n"+
			"🗒️ Описание: %s\n\n"+
			"♻️ Гарантия: %d %s",
		p.Name, common.FormatMoney(p.Price), balance, p.Stock,
		p.Description, p.WarrantyDays, common.PluralizeDays(p.WarrantyDays),
	)

	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🛒 Купить", fmt.Sprintf("buy_%d", p.ID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("↩️ Назад", "shop"),
		),
	)
	h.editTextAndMarkup(chatID, messageID, text, markup)
}

// HandleSearchInput обрабатывает введённый поисковый запрос.
func (h *Handler) HandleSearchInput(ctx context.Context, chatID int64, term string) {
	found, err := h.service.Search(ctx, term)
	if err != nil {
		h.sendMessage(chatID, "❌ Введите непустой запрос, например: Netflix")
		return
	}
	if len(found) == 0 {
		h.sendMessage(chatID, "❌ Ничего не найдено")
		return
	}

	var sb strings.Builder
	sb.WriteString("🔍 Результаты поиска:\n\n")
	for _, p := range found {
		desc := p.Description
		if len([]rune(desc)) > 50 {
			desc = string([]rune(desc)[:50]) + "..."
		}
		sb.WriteString(fmt.Sprintf("%s — %s\n%s\n\n", p.Name, common.FormatMoney(p.Price), desc))
	}

	msg := tgbotapi.NewMessage(chatID, sb.String())
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🛒 К товарам", "shop"),
		),
	)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки результатов поиска")
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
