// Package common — money.go содержит работу с денежными суммами.
// Все суммы в магазине — decimal с двумя знаками после запятой,
// float здесь запрещён принципиально.
package common

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatMoney форматирует сумму в читабельную строку.
// Пример: FormatMoney(129.9) → "129.90 ₽"
func FormatMoney(amount decimal.Decimal) string {
	return amount.StringFixed(2) + " ₽"
}

// ParseAmount разбирает введённую пользователем сумму.
// Принимает и точку, и запятую как разделитель ("10.50" и "10,50").
//
// Возвращает ErrInvalidAmount, если:
//   - строка не является числом
//   - сумма не положительная
//   - больше двух знаков после запятой
func ParseAmount(text string) (decimal.Decimal, error) {
	text = strings.TrimSpace(strings.ReplaceAll(text, ",", "."))

	amount, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	// Копейки — минимальная единица, тысячные не принимаем
	if !amount.Equal(amount.Round(2)) {
		return decimal.Zero, ErrInvalidAmount
	}
	return amount, nil
}

// MinorUnits переводит сумму в минимальные единицы валюты (копейки).
// Платёжный провайдер работает только с целыми.
// Пример: MinorUnits(10.50) → 1050
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
