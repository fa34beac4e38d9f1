// Package admin — handlers.go обрабатывает взаимодействие с админ-панелью.
// Поток: /admin → аутентификация → инлайн-панель → пошаговый диалог.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/shop-bot/internal/common"
	"serotonyl.ru/shop-bot/internal/config"
	"serotonyl.ru/shop-bot/internal/features/catalog"
	"serotonyl.ru/shop-bot/internal/features/ledger"
	"serotonyl.ru/shop-bot/internal/features/users"
)

// Handler обрабатывает админ-команды.
type Handler struct {
	service    *Service
	catalogSvc *catalog.Service
	ledgerSvc  *ledger.Service
	userSvc    *users.Service
	cfg        *config.Config
	bot        *tgbotapi.BotAPI
}

// NewHandler создаёт обработчик админ-панели.
func NewHandler(service *Service, catalogSvc *catalog.Service, ledgerSvc *ledger.Service,
	userSvc *users.Service, cfg *config.Config, bot *tgbotapi.BotAPI) *Handler {
	return &Handler{
		service:    service,
		catalogSvc: catalogSvc,
		ledgerSvc:  ledgerSvc,
		userSvc:    userSvc,
		cfg:        cfg,
		bot:        bot,
	}
}

// HandleAdminCommand обрабатывает /admin: либо панель, либо запрос пароля.
func (h *Handler) HandleAdminCommand(ctx context.Context, chatID, userID int64) {
	if !h.cfg.IsAdmin(userID) {
		return // Для посторонних команда молчит
	}
	if !h.service.HasActiveSession(ctx, userID) {
		h.sendMessage(chatID, "🔐 Введите пароль для доступа к админ-панели:")
		h.service.SetState(userID, StateAwaitingPassword, nil)
		return
	}
	h.showPanel(chatID)
}

// HandleAdminMessage обрабатывает текст от администратора по состоянию
// диалога. Возвращает true, если сообщение поглощено панелью.
func (h *Handler) HandleAdminMessage(ctx context.Context, chatID, userID int64, text string) bool {
	if !h.cfg.IsAdmin(userID) {
		return false
	}

	state := h.service.GetState(userID)
	if state == nil {
		return false
	}

	if state.State == StateAwaitingPassword {
		h.handlePasswordInput(ctx, chatID, userID, text)
		return true
	}

	// Остальные шаги требуют живую сессию
	if !h.service.HasActiveSession(ctx, userID) {
		h.service.ClearState(userID)
		h.sendMessage(chatID, "🔐 Сессия истекла, отправьте /admin заново")
		return true
	}
	h.service.repo.UpdateActivity(ctx, userID)

	switch state.State {
	case StateAddProduct:
		h.handleAddProduct(ctx, chatID, userID, text)
	case StateUpdateProduct:
		h.handleUpdateProduct(ctx, chatID, userID, text)
	case StateGiftAmount:
		h.handleGiftAmount(ctx, chatID, userID, text)
	case StateBroadcast:
		h.handleBroadcast(ctx, chatID, userID, text)
	default:
		return false
	}
	return true
}

// HandleCallback обрабатывает кнопки панели (колбэки admin_*).
func (h *Handler) HandleCallback(ctx context.Context, chatID int64, userID int64, action string) {
	if !h.cfg.IsAdmin(userID) || !h.service.HasActiveSession(ctx, userID) {
		return
	}
	h.service.repo.UpdateActivity(ctx, userID)

	switch action {
	case "add_product":
		h.sendMessage(chatID, "📦 Отправьте товар одной строкой:\n\nНазвание|Описание|Цена|Остаток|Дни гарантии")
		h.service.SetState(userID, StateAddProduct, nil)
	case "update_product":
		h.sendMessage(chatID, "✏️ Отправьте изменение в формате:\n\nid|поле|значение\n\nПоля: name, description, price, stock, warranty_days, category, is_active")
		h.service.SetState(userID, StateUpdateProduct, nil)
	case "gift":
		h.sendMessage(chatID, "🎁 Введите номинал гифт-кода:")
		h.service.SetState(userID, StateGiftAmount, nil)
	case "broadcast":
		h.sendMessage(chatID, "📢 Введите текст рассылки:")
		h.service.SetState(userID, StateBroadcast, nil)
	case "stats":
		h.showStats(ctx, chatID)
	case "logout":
		if err := h.service.Logout(ctx, userID); err != nil {
			log.WithError(err).Error("Ошибка выхода из админ-панели")
		}
		h.sendMessage(chatID, "👋 Сессия закрыта")
	}
}

func (h *Handler) handlePasswordInput(ctx context.Context, chatID, userID int64, password string) {
	err := h.service.VerifyPassword(ctx, userID, password)
	switch {
	case err == nil:
		h.service.ClearState(userID)
		h.sendMessage(chatID, "✅ Аутентификация успешна!")
		h.showPanel(chatID)
	case errors.Is(err, common.ErrTooManyAttempts):
		h.service.ClearState(userID)
		h.sendMessage(chatID, "❌ Слишком много попыток, подождите час")
	case errors.Is(err, common.ErrWrongPassword):
		h.service.ClearState(userID)
		h.sendMessage(chatID, "❌ Неверный пароль")
	default:
		log.WithError(err).Error("Ошибка проверки пароля")
		h.service.ClearState(userID)
		h.sendMessage(chatID, "❌ Ошибка аутентификации, попробуйте позже")
	}
}

func (h *Handler) showPanel(chatID int64) {
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📦 Добавить товар", "admin_add_product"),
			tgbotapi.NewInlineKeyboardButtonData("✏️ Изменить товар", "admin_update_product"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎁 Гифт-код", "admin_gift"),
			tgbotapi.NewInlineKeyboardButtonData("📢 Рассылка", "admin_broadcast"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Статистика", "admin_stats"),
			tgbotapi.NewInlineKeyboardButtonData("🚪 Выйти", "admin_logout"),
		),
	)
	msg := tgbotapi.NewMessage(chatID, "⚙️ Админ-панель")
	msg.ReplyMarkup = markup
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки панели")
	}
}

func (h *Handler) handleAddProduct(ctx context.Context, chatID, userID int64, text string) {
	input, err := catalog.ParseProductSpec(text)
	if err != nil {
		h.sendMessage(chatID, fmt.Sprintf("❌ %s\n\nФормат: Название|Описание|Цена|Остаток|Дни гарантии", err.Error()))
		return // Остаёмся в состоянии, дадим поправить строку
	}

	id, err := h.catalogSvc.Create(ctx, input)
	if err != nil {
		log.WithError(err).Error("Ошибка создания товара")
		h.sendMessage(chatID, "❌ Не удалось создать товар")
		h.service.ClearState(userID)
		return
	}

	h.service.ClearState(userID)
	h.sendMessage(chatID, fmt.Sprintf("✅ Товар #%d создан: %s — %s",
		id, input.Name, common.FormatMoney(input.Price)))
}

func (h *Handler) handleUpdateProduct(ctx context.Context, chatID, userID int64, text string) {
	parts := strings.SplitN(text, "|", 3)
	if len(parts) != 3 {
		h.sendMessage(chatID, "❌ Нужно три части: id|поле|значение")
		return
	}

	id, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		h.sendMessage(chatID, "❌ id должен быть числом")
		return
	}
	field := strings.TrimSpace(parts[1])
	raw := strings.TrimSpace(parts[2])

	value, err := parseFieldValue(field, raw)
	if err != nil {
		h.sendMessage(chatID, fmt.Sprintf("❌ %s", err.Error()))
		return
	}

	if err := h.catalogSvc.UpdateField(ctx, id, field, value); err != nil {
		if errors.Is(err, common.ErrProductNotFound) {
			h.sendMessage(chatID, "❌ Товар не найден")
		} else {
			log.WithError(err).Error("Ошибка обновления товара")
			h.sendMessage(chatID, "❌ Не удалось обновить товар")
		}
		h.service.ClearState(userID)
		return
	}

	h.service.ClearState(userID)
	h.sendMessage(chatID, fmt.Sprintf("✅ Товар #%d обновлён: %s = %s", id, field, raw))
}

// parseFieldValue приводит значение к типу колонки.
func parseFieldValue(field, raw string) (interface{}, error) {
	switch field {
	case "price":
		price, err := common.ParseAmount(raw)
		if err != nil {
			return nil, fmt.Errorf("цена должна быть положительным числом")
		}
		return price, nil
	case "stock", "warranty_days":
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%s должен быть целым числом >= 0", field)
		}
		return n, nil
	case "is_active":
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("is_active: true или false")
		}
		return b, nil
	case "name", "description", "category":
		if raw == "" {
			return nil, fmt.Errorf("%s не может быть пустым", field)
		}
		return raw, nil
	default:
		return nil, fmt.Errorf("неизвестное поле: %s", field)
	}
}

func (h *Handler) handleGiftAmount(ctx context.Context, chatID, userID int64, text string) {
	amount, err := common.ParseAmount(text)
	if err != nil {
		h.sendMessage(chatID, "❌ Введите положительную сумму, например: 500")
		return
	}

	code, err := h.ledgerSvc.CreateGiftCard(ctx, amount)
	if err != nil {
		log.WithError(err).Error("Ошибка создания гифт-кода")
		h.sendMessage(chatID, "❌ Не удалось создать гифт-код")
		h.service.ClearState(userID)
		return
	}

	h.service.ClearState(userID)
	h.sendMessage(chatID, fmt.Sprintf("🎁 Код на %s создан:\n\n`%s`", common.FormatMoney(amount), code))
}

func (h *Handler) handleBroadcast(ctx context.Context, chatID, userID int64, text string) {
	h.service.ClearState(userID)

	ids, err := h.userSvc.ListUserIDs(ctx)
	if err != nil {
		log.WithError(err).Error("Ошибка чтения получателей рассылки")
		h.sendMessage(chatID, "❌ Не удалось получить список получателей")
		return
	}

	sent := 0
	for _, id := range ids {
		msg := tgbotapi.NewMessage(id, text)
		if _, err := h.bot.Send(msg); err != nil {
			// Пользователь мог заблокировать бота, это нормально
			log.WithError(err).WithField("user_id", id).Debug("Получатель недоступен")
			continue
		}
		sent++
	}

	h.sendMessage(chatID, fmt.Sprintf("📢 Рассылка завершена: %d из %d", sent, len(ids)))
}

func (h *Handler) showStats(ctx context.Context, chatID int64) {
	stats, err := h.service.GetStats(ctx)
	if err != nil {
		log.WithError(err).Error("Ошибка чтения статистики")
		h.sendMessage(chatID, "❌ Не удалось получить статистику")
		return
	}

	text := fmt.Sprintf(
		"📊 Статистика %s\n\n"+
			"👥 Пользователей: %d\n"+
			"🛍️ Заказов: %d\n"+
			"💵 Выручка: %s\n"+
			"💰 Пополнено: %s\n"+
			"⏳ Заявок в ожидании: %d\n"+
			"📦 Активных товаров: %d (остаток %d шт.)",
		h.cfg.ShopName,
		stats.Users, stats.Orders,
		common.FormatMoney(stats.Revenue), common.FormatMoney(stats.Recharged),
		stats.PendingRecharges, stats.ActiveProducts, stats.StockTotal,
	)
	h.sendMessage(chatID, text)
}

func (h *Handler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки сообщения")
	}
}
