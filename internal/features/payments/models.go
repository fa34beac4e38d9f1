// Package payments — заявки на пополнение и интеграция с платёжным
// провайдером. Деньги здесь не зачисляются: пакет только создаёт
// заявки и выясняет у провайдера их судьбу, а зачисление делает леджер.
package payments

import (
	"time"

	"github.com/shopspring/decimal"
)

// Recharge — заявка на пополнение баланса. payment_ref — референс
// платежа у провайдера, он же ключ идемпотентности зачисления.
type Recharge struct {
	ID          int64           `db:"id"`
	UserID      int64           `db:"user_id"`
	Amount      decimal.Decimal `db:"amount"`
	PaymentRef  string          `db:"payment_ref"`
	Status      string          `db:"status"`
	CreatedAt   time.Time       `db:"created_at"`
	CompletedAt *time.Time      `db:"completed_at"`
}

// Статусы заявок на пополнение
const (
	RechargeStatusPending   = "pending"
	RechargeStatusCompleted = "completed"
	RechargeStatusFailed    = "failed"
)

// Intent — созданный у провайдера платёж: референс для последующих
// проверок и client secret для оплаты на стороне клиента.
type Intent struct {
	Reference    string
	ClientSecret string
}
