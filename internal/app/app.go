// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, репозитории, сервисы,
// обработчики и собирает всё в Bot, Scheduler и HTTP-сервер.
package app

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/shop-bot/internal/bot"
	"serotonyl.ru/shop-bot/internal/config"
	"serotonyl.ru/shop-bot/internal/db/postgres"
	"serotonyl.ru/shop-bot/internal/features/admin"
	"serotonyl.ru/shop-bot/internal/features/catalog"
	"serotonyl.ru/shop-bot/internal/features/ledger"
	"serotonyl.ru/shop-bot/internal/features/payments"
	"serotonyl.ru/shop-bot/internal/features/ranking"
	"serotonyl.ru/shop-bot/internal/features/users"
	"serotonyl.ru/shop-bot/internal/jobs"
	"serotonyl.ru/shop-bot/internal/webhook"
)

// App содержит все компоненты приложения.
type App struct {
	Bot       *bot.Bot
	Scheduler *jobs.Scheduler
	Webhook   *webhook.Server
	DB        *pgxpool.Pool
	BotAPI    *tgbotapi.BotAPI
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	// Запускаем миграции
	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Telegram Bot API ===
	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	botAPI.Debug = cfg.AppEnv == "development"
	log.Infof("Авторизован как @%s", botAPI.Self.UserName)

	// === 3. Репозитории ===
	userRepo := users.NewRepository(pool)
	catalogRepo := catalog.NewRepository(pool)
	ledgerRepo := ledger.NewRepository(pool)
	rechargeRepo := payments.NewRepository(pool)
	rankingRepo := ranking.NewRepository(pool)
	adminRepo := admin.NewRepository(pool)

	// === 4. Сервисы ===
	userService := users.NewService(userRepo)
	catalogService := catalog.NewService(catalogRepo)
	ledgerService := ledger.NewService(ledgerRepo, cfg)
	gateway := payments.NewStripeGateway(cfg.StripeAPIKey, cfg.Currency, cfg.GatewayTimeout)
	paymentService := payments.NewService(rechargeRepo, gateway, ledgerService, cfg)
	rankingService := ranking.NewService(rankingRepo)
	adminService := admin.NewService(adminRepo, cfg)

	// === 5. Обработчики ===
	userHandler := users.NewHandler(userService, cfg, botAPI)
	catalogHandler := catalog.NewHandler(catalogService, userService, botAPI)
	ledgerHandler := ledger.NewHandler(ledgerService, cfg, botAPI)
	paymentHandler := payments.NewHandler(paymentService, cfg, botAPI)
	rankingHandler := ranking.NewHandler(rankingService, botAPI)
	adminHandler := admin.NewHandler(adminService, catalogService, ledgerService, userService, cfg, botAPI)

	// === 6. Собираем бота ===
	b := bot.New(
		botAPI, cfg,
		userService, userHandler,
		catalogHandler,
		ledgerHandler,
		paymentHandler,
		rankingHandler,
		adminHandler,
	)

	// === 7. Планировщик задач ===
	scheduler := jobs.NewScheduler(cfg.AppTimezone, paymentService, b.Sessions())

	// === 8. HTTP-сервер (вебхуки платёжки + healthcheck) ===
	srv := webhook.NewServer(cfg, paymentService, b, pool)

	return &App{
		Bot:       b,
		Scheduler: scheduler,
		Webhook:   srv,
		DB:        pool,
		BotAPI:    botAPI,
	}, nil
}

// runMigrations выполняет все SQL-миграции по порядку.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	return postgres.ApplyMigrations(ctx, pool, []postgres.Migration{
		{Version: 1, SQL: migration001Users},
		{Version: 2, SQL: migration002Products},
		{Version: 3, SQL: migration003Orders},
		{Version: 4, SQL: migration004Recharges},
		{Version: 5, SQL: migration005GiftCards},
		{Version: 6, SQL: migration006Admin},
	})
}
