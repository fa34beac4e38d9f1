// Package ranking — рейтинги магазина: топ товаров месяца,
// топ пополнений, топ покупателей, топ балансов.
package ranking

import "github.com/shopspring/decimal"

// ProductRank — позиция товара в рейтинге продаж.
type ProductRank struct {
	Name  string
	Sales int
}

// UserRank — позиция пользователя в денежном рейтинге.
type UserRank struct {
	UserID   int64
	Username string
	Amount   decimal.Decimal
}

// BuyerRank — позиция пользователя по числу покупок.
type BuyerRank struct {
	UserID   int64
	Username string
	Orders   int
}
