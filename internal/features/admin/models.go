// Package admin реализует админ-панель с парольной аутентификацией.
// models.go описывает структуры сессий и попыток входа.
package admin

import (
	"time"

	"github.com/shopspring/decimal"
)

// AdminSession — активная сессия администратора.
type AdminSession struct {
	ID              int64     `db:"id"`
	UserID          int64     `db:"user_id"`
	SessionToken    string    `db:"session_token"`
	AuthenticatedAt time.Time `db:"authenticated_at"`
	ExpiresAt       time.Time `db:"expires_at"`
	LastActivity    time.Time `db:"last_activity"`
	IsActive        bool      `db:"is_active"`
}

// LoginAttempt — попытка входа (для защиты от brute-force).
type LoginAttempt struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	AttemptTime time.Time `db:"attempt_time"`
	Success     bool      `db:"success"`
}

// AdminState — состояние диалога с админом (конечный автомат).
// Панель работает по шагам: выбор действия → ввод данных.
type AdminState struct {
	State     string      // Текущее состояние ("", "awaiting_password", ...)
	Data      interface{} // Данные контекста (например, id выбранного товара)
	ExpiresAt time.Time   // Когда состояние истекает (5 минут)
}

// Возможные состояния админ-диалога
const (
	StateNone             = ""                     // Нет активного состояния
	StateAwaitingPassword = "awaiting_password"    // Ждём пароль
	StateAddProduct       = "add_product"          // Ждём описание товара одной строкой
	StateUpdateProduct    = "update_product"       // Ждём "id|поле|значение"
	StateGiftAmount       = "gift_amount"          // Ждём сумму гифт-кода
	StateBroadcast        = "broadcast"            // Ждём текст рассылки
)

// Stats — сводка магазина для панели.
type Stats struct {
	Users            int
	Orders           int
	Revenue          decimal.Decimal
	Recharged        decimal.Decimal
	PendingRecharges int
	ActiveProducts   int
	StockTotal       int
}
