// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях магазина.
// Эти ошибки позволяют обработчикам различать типы проблем
// и отправлять пользователю понятные сообщения.
package common

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Ошибки каталога и покупок
var (
	// ErrProductNotFound — товар не найден или снят с продажи
	ErrProductNotFound = errors.New("товар не найден")
	// ErrOutOfStock — товар закончился
	ErrOutOfStock = errors.New("товар закончился")
	// ErrInvalidAmount — некорректная сумма (не число, ноль или отрицательная)
	ErrInvalidAmount = errors.New("сумма должна быть положительным числом")
	// ErrAmountBelowMinimum — сумма пополнения меньше минимальной
	ErrAmountBelowMinimum = errors.New("сумма меньше минимального пополнения")
	// ErrUserNotFound — пользователь не найден в базе
	ErrUserNotFound = errors.New("пользователь не найден")
)

// Ошибки платежей
var (
	// ErrPaymentNotConfirmed — платёж ещё не подтверждён провайдером
	ErrPaymentNotConfirmed = errors.New("платёж не подтверждён")
	// ErrGatewayUnavailable — платёжный провайдер недоступен или не ответил вовремя
	ErrGatewayUnavailable = errors.New("платёжный сервис недоступен")
	// ErrRechargeNotFound — заявка на пополнение с таким референсом не найдена
	ErrRechargeNotFound = errors.New("заявка на пополнение не найдена")
	// ErrRechargeAlreadyApplied — пополнение уже зачислено (повторная доставка
	// подтверждения). Это НЕ сбой: вызывающая сторона трактует как успех.
	ErrRechargeAlreadyApplied = errors.New("пополнение уже зачислено")
)

// Ошибки гифт-кодов
var (
	// ErrGiftCardNotFound — код не существует
	ErrGiftCardNotFound = errors.New("гифт-код не найден")
	// ErrGiftCardAlreadyUsed — код уже был активирован
	ErrGiftCardAlreadyUsed = errors.New("гифт-код уже активирован")
)

// Ошибки админки
var (
	// ErrNotAdmin — пользователь не является администратором
	ErrNotAdmin = errors.New("у вас нет прав администратора")
	// ErrWrongPassword — неверный пароль
	ErrWrongPassword = errors.New("неверный пароль")
	// ErrTooManyAttempts — слишком много неудачных попыток входа
	ErrTooManyAttempts = errors.New("слишком много попыток, подождите 1 час")
	// ErrSessionExpired — сессия истекла
	ErrSessionExpired = errors.New("сессия истекла, авторизуйтесь заново")
)

// InsufficientFundsError — на балансе не хватает средств на покупку.
// Несёт размер нехватки, чтобы показать пользователю, сколько докинуть.
type InsufficientFundsError struct {
	Missing decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("недостаточно средств: не хватает %s", e.Missing.StringFixed(2))
}

// AsInsufficientFunds достаёт InsufficientFundsError из цепочки ошибок.
func AsInsufficientFunds(err error) (*InsufficientFundsError, bool) {
	var ife *InsufficientFundsError
	if errors.As(err, &ife) {
		return ife, true
	}
	return nil, false
}
