// Package bot содержит главный модуль бота — инициализацию, запуск и
// остановку. bot.go принимает апдейты Telegram и маршрутизирует их по
// фичам: витрина, кошелёк, пополнения, рейтинги, админка.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/shop-bot/internal/bot/middleware"
	"serotonyl.ru/shop-bot/internal/config"
	"serotonyl.ru/shop-bot/internal/features/admin"
	"serotonyl.ru/shop-bot/internal/features/catalog"
	"serotonyl.ru/shop-bot/internal/features/ledger"
	"serotonyl.ru/shop-bot/internal/features/payments"
	"serotonyl.ru/shop-bot/internal/features/ranking"
	"serotonyl.ru/shop-bot/internal/features/users"
)

// Bot — главная структура бота, объединяющая все компоненты.
type Bot struct {
	api *tgbotapi.BotAPI
	cfg *config.Config

	rateLimiter *middleware.RateLimiter
	sessions    *Sessions

	userHandler    *users.Handler
	catalogHandler *catalog.Handler
	ledgerHandler  *ledger.Handler
	paymentHandler *payments.Handler
	rankingHandler *ranking.Handler
	adminHandler   *admin.Handler

	userService *users.Service

	// ограничитель параллелизма обработки апдейтов
	inflight chan struct{}
}

// New создаёт новый экземпляр бота со всеми зависимостями.
func New(
	api *tgbotapi.BotAPI,
	cfg *config.Config,
	userService *users.Service,
	userHandler *users.Handler,
	catalogHandler *catalog.Handler,
	ledgerHandler *ledger.Handler,
	paymentHandler *payments.Handler,
	rankingHandler *ranking.Handler,
	adminHandler *admin.Handler,
) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}

	return &Bot{
		api:            api,
		cfg:            cfg,
		rateLimiter:    middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		sessions:       NewSessions(),
		userHandler:    userHandler,
		catalogHandler: catalogHandler,
		ledgerHandler:  ledgerHandler,
		paymentHandler: paymentHandler,
		rankingHandler: rankingHandler,
		adminHandler:   adminHandler,
		userService:    userService,
		inflight:       make(chan struct{}, maxInFlight),
	}
}

// Sessions отдаёт хранилище диалогов (планировщику нужен Sweep).
func (b *Bot) Sessions() *Sessions {
	return b.sessions
}

// Start запускает polling обновлений от Telegram.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.BotUpdateTimeoutSeconds

	updates := b.api.GetUpdatesChan(u)

	log.WithFields(log.Fields{
		"max_inflight": b.cfg.BotMaxInflight,
		"timeout_sec":  b.cfg.BotUpdateTimeoutSeconds,
	}).Info("Бот запущен и ожидает сообщения...")

	for {
		select {
		case <-ctx.Done():
			log.Info("Бот останавливается (ctx done)...")
			b.api.StopReceivingUpdates()
			b.rateLimiter.Close()
			return

		case update, ok := <-updates:
			if !ok {
				log.Info("Канал updates закрыт, бот остановлен")
				return
			}

			// лимит параллелизма
			b.inflight <- struct{}{}
			go func(upd tgbotapi.Update) {
				defer func() { <-b.inflight }()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// handleUpdate обрабатывает одно обновление от Telegram.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer middleware.RecoverFromPanic()

	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}

	if update.Message == nil || update.Message.Text == "" {
		return
	}
	message := update.Message

	middleware.LogMessage(message)

	// Магазин работает только в личке
	if !message.Chat.IsPrivate() {
		return
	}

	if message.From == nil {
		return
	}
	userID := message.From.ID
	if !b.rateLimiter.Allow(userID) {
		log.WithField("user_id", userID).Debug("rate limited")
		return
	}

	chatID := message.Chat.ID

	if message.IsCommand() {
		b.routeCommand(ctx, chatID, userID, message)
		return
	}

	// Сначала админ-диалог, потом пользовательский
	if b.adminHandler.HandleAdminMessage(ctx, chatID, userID, message.Text) {
		return
	}
	b.routeInput(ctx, chatID, userID, message.Text)
}

// routeCommand маршрутизирует слэш-команду.
func (b *Bot) routeCommand(ctx context.Context, chatID, userID int64, message *tgbotapi.Message) {
	cmd := message.Command()
	args := message.CommandArguments()

	log.WithFields(log.Fields{
		"cmd":  cmd,
		"args": args,
	}).Debug("routing command")

	// Любая команда сбрасывает незавершённый диалог
	b.sessions.Clear(userID)

	switch cmd {
	case "start":
		b.handleStart(ctx, chatID, userID, message.From.UserName, args)

	case "pix":
		// Сумму можно дать сразу аргументом, без диалога
		if strings.TrimSpace(args) == "" {
			b.sendMessage(chatID, fmt.Sprintf("💰 Введите сумму пополнения (минимум %s):", b.cfg.MinRecharge.StringFixed(2)))
			b.sessions.Set(userID, StateAwaitingRechargeAmount)
			return
		}
		b.paymentHandler.HandleAmountInput(ctx, chatID, userID, args)

	case "id":
		b.userHandler.HandleIDCommand(chatID, userID)

	case "afiliados":
		b.userHandler.HandleAffiliateCommand(ctx, chatID, userID, b.api.Self.UserName)

	case "gift":
		if strings.TrimSpace(args) == "" {
			b.sendMessage(chatID, "🎁 Введите гифт-код:")
			b.sessions.Set(userID, StateAwaitingGiftCode)
			return
		}
		b.ledgerHandler.HandleGiftInput(ctx, chatID, userID, args)

	case "admin", "login":
		b.adminHandler.HandleAdminCommand(ctx, chatID, userID)

	case "help":
		b.sendMessage(chatID, "Команды:\n/start — главное меню\n/pix <сумма> — пополнить баланс\n/gift <код> — активировать гифт-код\n/afiliados — партнёрская ссылка\n/id — мой ID")

	default:
		b.sendMessage(chatID, "Не знаю такую команду, отправьте /help")
	}
}

// routeInput обрабатывает обычный текст по состоянию диалога.
func (b *Bot) routeInput(ctx context.Context, chatID, userID int64, text string) {
	switch b.sessions.Get(userID) {
	case StateAwaitingRechargeAmount:
		if done := b.paymentHandler.HandleAmountInput(ctx, chatID, userID, text); done {
			b.sessions.Clear(userID)
		}
	case StateAwaitingSearchTerm:
		b.catalogHandler.HandleSearchInput(ctx, chatID, text)
		b.sessions.Clear(userID)
	case StateAwaitingGiftCode:
		b.ledgerHandler.HandleGiftInput(ctx, chatID, userID, text)
		b.sessions.Clear(userID)
	default:
		b.sendMessage(chatID, "Не понял. Отправьте /start для главного меню.")
	}
}

// handleStart регистрирует пользователя и показывает главное меню.
// Аргумент /start — реферальный код пригласившего (диплинк).
func (b *Bot) handleStart(ctx context.Context, chatID, userID int64, username, refPayload string) {
	if _, err := b.userService.Register(ctx, userID, username, strings.TrimSpace(refPayload)); err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка регистрации пользователя")
		b.sendMessage(chatID, "❌ Что-то пошло не так, попробуйте позже")
		return
	}

	msg := tgbotapi.NewMessage(chatID, b.welcomeText())
	msg.ReplyMarkup = b.mainMenuMarkup()
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).Error("Ошибка отправки главного меню")
	}
}

// handleCallback обрабатывает нажатие инлайн-кнопки.
func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	// Снимаем «часики» с кнопки
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		log.WithError(err).Debug("Ошибка подтверждения колбэка")
	}

	if query.Message == nil || query.From == nil {
		return
	}
	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID
	userID := query.From.ID
	data := query.Data

	middleware.LogCallback(query)

	if !b.rateLimiter.Allow(userID) {
		log.WithField("user_id", userID).Debug("rate limited")
		return
	}

	// Нажатие любой кнопки меню сбрасывает незавершённый ввод;
	// состояния «жду сумму» и «жду запрос» ставятся заново ниже.
	b.sessions.Clear(userID)

	switch {
	case data == "shop":
		b.catalogHandler.HandleCatalog(ctx, chatID, messageID, userID)

	case strings.HasPrefix(data, "product_"):
		if id, err := strconv.ParseInt(strings.TrimPrefix(data, "product_"), 10, 64); err == nil {
			b.catalogHandler.HandleProduct(ctx, chatID, messageID, userID, id)
		}

	case strings.HasPrefix(data, "buy_"):
		if id, err := strconv.ParseInt(strings.TrimPrefix(data, "buy_"), 10, 64); err == nil {
			b.ledgerHandler.HandleBuy(ctx, chatID, messageID, userID, id)
		}

	case data == "profile":
		text, markup, ok := b.userHandler.HandleProfile(ctx, chatID, userID)
		if !ok {
			b.sendMessage(chatID, text)
			return
		}
		b.editTextAndMarkup(chatID, messageID, text, markup)

	case data == "history":
		b.ledgerHandler.HandlePurchaseHistory(ctx, chatID, userID)

	case data == "recharge":
		b.paymentHandler.HandleRechargeMenu(chatID, messageID)
		b.sessions.Set(userID, StateAwaitingRechargeAmount)

	case strings.HasPrefix(data, "check_"):
		b.paymentHandler.HandleCheck(ctx, chatID, messageID, strings.TrimPrefix(data, "check_"))

	case data == "ranking":
		b.rankingHandler.HandleMenu(chatID, messageID)

	case strings.HasPrefix(data, "ranking_"):
		b.rankingHandler.HandleSection(ctx, chatID, messageID, strings.TrimPrefix(data, "ranking_"))

	case data == "search":
		b.editText(chatID, messageID, "🔎 Введите название товара:")
		b.sessions.Set(userID, StateAwaitingSearchTerm)

	case data == "info":
		b.editTextAndMarkup(chatID, messageID, b.infoText(), backMarkup())

	case data == "back":
		b.editTextAndMarkup(chatID, messageID, b.welcomeText(), b.mainMenuMarkup())

	case strings.HasPrefix(data, "admin_"):
		b.adminHandler.HandleCallback(ctx, chatID, userID, strings.TrimPrefix(data, "admin_"))
	}
}

func (b *Bot) welcomeText() string {
	return fmt.Sprintf(
		"👋 Добро пожаловать в %s!\n\n"+
			"Цифровые товары с мгновенной выдачей:\n"+
			"пополните баланс и покупайте в пару нажатий.\n\n"+
			"📞 Поддержка: %s\n"+
			"💬 Чат покупателей: %s",
		b.cfg.ShopName, b.cfg.SupportLink, b.cfg.CustomerChatLink,
	)
}

func (b *Bot) infoText() string {
	return fmt.Sprintf(
		"ℹ️ О магазине %s\n\n"+
			"— Баланс пополняется через платёжную систему\n"+
			"— Покупки списываются с баланса мгновенно\n"+
			"— На товары действует гарантия\n\n"+
			"📞 Поддержка: %s",
		b.cfg.ShopName, b.cfg.SupportLink,
	)
}

func (b *Bot) mainMenuMarkup() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🛍️ Магазин", "shop"),
			tgbotapi.NewInlineKeyboardButtonData("🔎 Поиск", "search"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🪪 Профиль", "profile"),
			tgbotapi.NewInlineKeyboardButtonData("💰 Пополнить", "recharge"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Рейтинги", "ranking"),
			tgbotapi.NewInlineKeyboardButtonData("ℹ️ Инфо", "info"),
		),
	)
}

func backMarkup() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("↩️ Назад", "back"),
		),
	)
}

// sendMessage — утилита для отправки сообщений.
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).WithField("chat_id", chatID).Error("Ошибка отправки сообщения")
	}
}

func (b *Bot) editText(chatID int64, messageID int, text string) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	if _, err := b.api.Send(edit); err != nil {
		log.WithError(err).Error("Ошибка редактирования сообщения")
	}
}

func (b *Bot) editTextAndMarkup(chatID int64, messageID int, text string, markup tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, markup)
	if _, err := b.api.Send(edit); err != nil {
		log.WithError(err).Error("Ошибка редактирования сообщения")
	}
}

// SendMessageToUser отправляет сообщение пользователю (для уведомлений).
func (b *Bot) SendMessageToUser(userID int64, text string) {
	msg := tgbotapi.NewMessage(userID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.WithError(err).WithField("user_id", userID).Debug("Не удалось отправить сообщение")
	}
}
