// Package users управляет покупателями магазина: регистрацией, кошельком,
// реферальной программой. models.go описывает структуры таблицы users.
package users

import (
	"time"

	"github.com/shopspring/decimal"
)

// User представляет покупателя в базе данных.
// Создаётся при первом /start и никогда не удаляется.
// Баланс меняют ТОЛЬКО операции леджера — напрямую его не трогает никто.
type User struct {
	ID               int64           `db:"id"`                 // Автоинкрементный ID записи в БД
	UserID           int64           `db:"user_id"`            // Telegram user ID (уникальный)
	Username         string          `db:"username"`           // @username (может быть пустым)
	Balance          decimal.Decimal `db:"balance"`            // Текущий баланс, всегда >= 0
	AffiliateCode    *string         `db:"affiliate_code"`     // Реферальный код (уникальный)
	ReferredBy       *int64          `db:"referred_by"`        // Кто пригласил (user_id, может быть nil)
	TotalRecharged   decimal.Decimal `db:"total_recharged"`    // Сколько всего пополнено
	TotalPurchases   int             `db:"total_purchases"`    // Сколько покупок совершено
	TotalGiftRescued decimal.Decimal `db:"total_gift_rescued"` // Сколько получено по гифт-кодам
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

// DisplayName возвращает отображаемое имя пользователя.
func (u *User) DisplayName() string {
	if u.Username != "" {
		return "@" + u.Username
	}
	return "не указан"
}
