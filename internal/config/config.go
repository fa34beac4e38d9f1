// Package config загружает конфигурацию магазина из переменных окружения.
// Используется envconfig для маппинга переменных окружения на поля структуры.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// Config содержит ВСЕ настройки приложения.
// Загружается один раз при старте процесса и дальше не меняется.
type Config struct {
	// --- Telegram ---
	TelegramBotToken string  `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	AdminIDsRaw      string  `envconfig:"ADMIN_IDS" required:"true"`
	AdminIDs         []int64 `envconfig:"-"` // заполним вручную

	// --- Database ---
	// В Docker внутри контейнера "localhost" почти всегда неправильно.
	// Дефолт ставим "postgres" (имя сервиса в docker-compose), а для локалки переопределяй DB_HOST=localhost.
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"botuser"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"shop_bot"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"debug"`
	AppTimezone string `envconfig:"APP_TIMEZONE" default:"Europe/Moscow"`

	// --- Bot runtime ---
	// Сколько апдейтов обрабатываем параллельно. Иначе "go на каждый апдейт" = утечка памяти при флуде.
	BotMaxInflight int `envconfig:"BOT_MAX_INFLIGHT" default:"64"`
	// Таймаут long polling (секунды)
	BotUpdateTimeoutSeconds int `envconfig:"BOT_UPDATE_TIMEOUT_SECONDS" default:"60"`

	// --- Shop ---
	ShopName         string `envconfig:"SHOP_NAME" default:"@shop_bot"`
	SupportLink      string `envconfig:"SHOP_SUPPORT_LINK" default:"https://t.me/shop_support"`
	CustomerChatLink string `envconfig:"SHOP_CUSTOMER_LINK" default:"https://t.me/shop_customers"`
	// Минимальная сумма пополнения
	MinRecharge decimal.Decimal `envconfig:"SHOP_MIN_RECHARGE" default:"1.00"`
	// Доля от пополнения реферала, которая начисляется пригласившему (0..1)
	AffiliateCommission decimal.Decimal `envconfig:"SHOP_AFFILIATE_COMMISSION" default:"0.5"`

	// --- Payments ---
	StripeAPIKey        string `envconfig:"STRIPE_API_KEY" required:"true"`
	StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET" required:"true"`
	// Валюта фиксирована для всего деплоя (ISO-код в нижнем регистре)
	Currency string `envconfig:"PAYMENT_CURRENCY" default:"rub"`
	// Таймаут одного обращения к платёжному провайдеру
	GatewayTimeout time.Duration `envconfig:"PAYMENT_GATEWAY_TIMEOUT" default:"10s"`
	// Сколько живёт неоплаченная заявка на пополнение
	RechargeTTL time.Duration `envconfig:"PAYMENT_RECHARGE_TTL" default:"30m"`

	// --- HTTP (вебхуки платёжки + healthcheck) ---
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	// --- Admin ---
	AdminPasswordHash string `envconfig:"ADMIN_PASSWORD_HASH" required:"true"`

	// --- Rate Limiting ---
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"10"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// IsAdmin проверяет, входит ли пользователь в список администраторов.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (c *Config) Validate() error {
	if c.BotMaxInflight <= 0 {
		return fmt.Errorf("BOT_MAX_INFLIGHT должен быть > 0")
	}
	if c.BotUpdateTimeoutSeconds <= 0 {
		return fmt.Errorf("BOT_UPDATE_TIMEOUT_SECONDS должен быть > 0")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
	}
	if len(c.AdminIDs) == 0 {
		return fmt.Errorf("ADMIN_IDS пуст")
	}
	if !c.MinRecharge.IsPositive() {
		return fmt.Errorf("SHOP_MIN_RECHARGE должен быть > 0")
	}
	if c.AffiliateCommission.IsNegative() || c.AffiliateCommission.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("SHOP_AFFILIATE_COMMISSION должен быть в диапазоне 0..1")
	}
	if c.GatewayTimeout <= 0 {
		return fmt.Errorf("PAYMENT_GATEWAY_TIMEOUT должен быть > 0")
	}
	if c.RechargeTTL <= 0 {
		return fmt.Errorf("PAYMENT_RECHARGE_TTL должен быть > 0")
	}
	return nil
}

// Load читает переменные окружения и заполняет структуру Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	ids, err := parseInt64CSV(cfg.AdminIDsRaw)
	if err != nil {
		return nil, fmt.Errorf("ADMIN_IDS parse: %w", err)
	}
	cfg.AdminIDs = ids

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parseInt64CSV(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad int64 %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}
