// Package catalog управляет витриной товаров.
// models.go описывает структуры таблицы products.
package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product представляет товар в базе данных.
// Остаток stock уменьшает только леджер внутри транзакции покупки;
// витрина читает его без блокировок — небольшое устаревание допустимо,
// решающая проверка всё равно происходит при покупке.
type Product struct {
	ID           int64           `db:"id"`
	Name         string          `db:"name"`
	Description  string          `db:"description"`
	Price        decimal.Decimal `db:"price"` // Всегда > 0
	Stock        int             `db:"stock"` // Всегда >= 0
	WarrantyDays int             `db:"warranty_days"`
	Category     string          `db:"category"`
	IsActive     bool            `db:"is_active"`
	SalesCount   int             `db:"sales_count"` // Монотонно растёт
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

// ProductInput — данные нового товара, введённые администратором.
type ProductInput struct {
	Name         string
	Description  string
	Price        decimal.Decimal
	Stock        int
	WarrantyDays int
	Category     string
}

// Категория по умолчанию — как в витрине «Премиум».
const DefaultCategory = "premium"
