// Package ledger — единственное место, где баланс, остатки и заказы
// меняются вместе. Все операции атомарны: две конкурирующие покупки
// не могут обе пройти проверку и увести баланс или остаток в минус.
// models.go описывает структуры таблиц orders и gift_cards.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order — покупка. Создаётся атомарно со списанием баланса и
// уменьшением остатка; после создания не меняется и не удаляется.
type Order struct {
	ID          int64           `db:"id"`
	UserID      int64           `db:"user_id"`
	ProductID   int64           `db:"product_id"`
	Quantity    int             `db:"quantity"`
	TotalPrice  decimal.Decimal `db:"total_price"` // Снимок цены на момент покупки
	Status      string          `db:"status"`
	Credentials string          `db:"credentials"` // Выданные доступы (непрозрачный текст)
	CreatedAt   time.Time       `db:"created_at"`

	// Денормализованные поля для отображения (JOIN с products)
	ProductName  string `db:"product_name"`
	WarrantyDays int    `db:"warranty_days"`
}

// GiftCard — подарочный код. Активируется не более одного раза.
type GiftCard struct {
	ID        int64           `db:"id"`
	Code      string          `db:"code"`
	Amount    decimal.Decimal `db:"amount"`
	IsUsed    bool            `db:"is_used"`
	UsedBy    *int64          `db:"used_by"`
	UsedAt    *time.Time      `db:"used_at"`
	CreatedAt time.Time       `db:"created_at"`
}

// RechargeCredit — результат подтверждения пополнения.
type RechargeCredit struct {
	RechargeID int64
	UserID     int64
	Amount     decimal.Decimal
	// Комиссия, начисленная пригласившему (ноль, если реферера нет)
	ReferralBonus decimal.Decimal
	ReferrerID    *int64
}

// Статусы заказов
const (
	OrderStatusCompleted = "completed"
)
