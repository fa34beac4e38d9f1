// Package ledger — repository.go выполняет многострочные мутации
// баланса, остатков и заказов. Каждая операция — одна транзакция БД
// с блокировкой строк SELECT ... FOR UPDATE: проверка и запись не
// разрываются, поэтому конкурирующие запросы не могут пройти проверку
// по одному и тому же остатку или балансу одновременно.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"serotonyl.ru/shop-bot/internal/common"
)

// Repository выполняет транзакционные операции леджера.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий леджера.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Purchase проводит покупку как единое целое:
// списание баланса + уменьшение остатка + счётчик продаж + строка заказа.
// Порядок блокировок: сначала строка пользователя, потом строка товара —
// одинаковый во всех операциях, чтобы не ловить взаимные блокировки.
func (r *Repository) Purchase(ctx context.Context, userID, productID int64, quantity int, credentials string) (*Order, error) {
	if quantity <= 0 {
		return nil, common.ErrInvalidAmount
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	// Блокируем строку покупателя
	var balance decimal.Decimal
	err = tx.QueryRow(ctx, `
		SELECT balance FROM users WHERE user_id = $1 FOR UPDATE
	`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("ошибка чтения баланса: %w", err)
	}

	// Блокируем строку товара — решающая проверка остатка именно здесь,
	// витрина могла показать устаревшие данные
	var (
		name         string
		price        decimal.Decimal
		stock        int
		warrantyDays int
		isActive     bool
	)
	err = tx.QueryRow(ctx, `
		SELECT name, price, stock, warranty_days, is_active
		FROM products WHERE id = $1 FOR UPDATE
	`, productID).Scan(&name, &price, &stock, &warrantyDays, &isActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrProductNotFound
		}
		return nil, fmt.Errorf("ошибка чтения товара: %w", err)
	}
	if !isActive {
		return nil, common.ErrProductNotFound
	}
	if stock < quantity {
		return nil, common.ErrOutOfStock
	}

	total := price.Mul(decimal.NewFromInt(int64(quantity)))
	if balance.LessThan(total) {
		return nil, &common.InsufficientFundsError{Missing: total.Sub(balance)}
	}

	// Списываем баланс и считаем покупку
	_, err = tx.Exec(ctx, `
		UPDATE users
		SET balance = balance - $2, total_purchases = total_purchases + 1, updated_at = NOW()
		WHERE user_id = $1
	`, userID, total)
	if err != nil {
		return nil, fmt.Errorf("ошибка списания баланса: %w", err)
	}

	// Уменьшаем остаток, увеличиваем счётчик продаж
	_, err = tx.Exec(ctx, `
		UPDATE products
		SET stock = stock - $2, sales_count = sales_count + $2, updated_at = NOW()
		WHERE id = $1
	`, productID, quantity)
	if err != nil {
		return nil, fmt.Errorf("ошибка уменьшения остатка: %w", err)
	}

	// Фиксируем заказ со снимком цены
	order := &Order{
		UserID:       userID,
		ProductID:    productID,
		Quantity:     quantity,
		TotalPrice:   total,
		Status:       OrderStatusCompleted,
		Credentials:  credentials,
		ProductName:  name,
		WarrantyDays: warrantyDays,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (user_id, product_id, quantity, total_price, status, credentials)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, userID, productID, quantity, total, OrderStatusCompleted, credentials).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания заказа: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка фиксации покупки: %w", err)
	}
	return order, nil
}

// ConfirmRecharge зачисляет пополнение не более одного раза на внешний
// платёжный референс. Повторная доставка подтверждения возвращает
// ErrRechargeAlreadyApplied — вызывающая сторона трактует это как успех.
// Комиссия пригласившему начисляется в той же транзакции.
func (r *Repository) ConfirmRecharge(ctx context.Context, paymentRef string, commissionRate decimal.Decimal) (*RechargeCredit, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	// Блокируем заявку по внешнему референсу — это и есть ключ идемпотентности
	var (
		rechargeID int64
		userID     int64
		amount     decimal.Decimal
		status     string
	)
	err = tx.QueryRow(ctx, `
		SELECT id, user_id, amount, status
		FROM recharges WHERE payment_ref = $1 FOR UPDATE
	`, paymentRef).Scan(&rechargeID, &userID, &amount, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrRechargeNotFound
		}
		return nil, fmt.Errorf("ошибка чтения заявки: %w", err)
	}

	switch status {
	case "completed":
		return nil, common.ErrRechargeAlreadyApplied
	case "failed":
		// Просроченную заявку уже не зачисляем
		return nil, common.ErrPaymentNotConfirmed
	}

	_, err = tx.Exec(ctx, `
		UPDATE recharges SET status = 'completed', completed_at = NOW() WHERE id = $1
	`, rechargeID)
	if err != nil {
		return nil, fmt.Errorf("ошибка обновления заявки: %w", err)
	}

	// Зачисляем баланс и общий тотал пополнений
	var referredBy *int64
	err = tx.QueryRow(ctx, `
		UPDATE users
		SET balance = balance + $2, total_recharged = total_recharged + $2, updated_at = NOW()
		WHERE user_id = $1
		RETURNING referred_by
	`, userID, amount).Scan(&referredBy)
	if err != nil {
		return nil, fmt.Errorf("ошибка зачисления баланса: %w", err)
	}

	credit := &RechargeCredit{
		RechargeID:    rechargeID,
		UserID:        userID,
		Amount:        amount,
		ReferralBonus: decimal.Zero,
	}

	// Реферальная комиссия — в той же транзакции, чтобы при повторной
	// доставке подтверждения она тоже не задвоилась
	if referredBy != nil && commissionRate.IsPositive() {
		bonus := amount.Mul(commissionRate).Round(2)
		if bonus.IsPositive() {
			_, err = tx.Exec(ctx, `
				UPDATE users SET balance = balance + $2, updated_at = NOW() WHERE user_id = $1
			`, *referredBy, bonus)
			if err != nil {
				return nil, fmt.Errorf("ошибка начисления комиссии: %w", err)
			}
			credit.ReferralBonus = bonus
			credit.ReferrerID = referredBy
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка фиксации пополнения: %w", err)
	}
	return credit, nil
}

// RedeemGiftCard активирует подарочный код. Код одноразовый:
// повторная активация возвращает ErrGiftCardAlreadyUsed без зачисления.
func (r *Repository) RedeemGiftCard(ctx context.Context, userID int64, code string) (decimal.Decimal, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	// Блокируем строку покупателя (единый порядок: сначала users)
	var exists bool
	err = tx.QueryRow(ctx, `
		SELECT TRUE FROM users WHERE user_id = $1 FOR UPDATE
	`, userID).Scan(&exists)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, common.ErrUserNotFound
		}
		return decimal.Zero, fmt.Errorf("ошибка чтения пользователя: %w", err)
	}

	var (
		giftID int64
		amount decimal.Decimal
		isUsed bool
	)
	err = tx.QueryRow(ctx, `
		SELECT id, amount, is_used FROM gift_cards WHERE code = $1 FOR UPDATE
	`, code).Scan(&giftID, &amount, &isUsed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, common.ErrGiftCardNotFound
		}
		return decimal.Zero, fmt.Errorf("ошибка чтения гифт-кода: %w", err)
	}
	if isUsed {
		return decimal.Zero, common.ErrGiftCardAlreadyUsed
	}

	_, err = tx.Exec(ctx, `
		UPDATE gift_cards SET is_used = TRUE, used_by = $2, used_at = NOW() WHERE id = $1
	`, giftID, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ошибка активации гифт-кода: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE users
		SET balance = balance + $2, total_gift_rescued = total_gift_rescued + $2, updated_at = NOW()
		WHERE user_id = $1
	`, userID, amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ошибка зачисления гифт-кода: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("ошибка фиксации активации: %w", err)
	}
	return amount, nil
}

// CreateGiftCard создаёт подарочный код (админка).
func (r *Repository) CreateGiftCard(ctx context.Context, code string, amount decimal.Decimal) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO gift_cards (code, amount) VALUES ($1, $2)
	`, code, amount)
	if err != nil {
		return fmt.Errorf("ошибка создания гифт-кода: %w", err)
	}
	return nil
}

// GetUserOrders возвращает заказы пользователя, свежие сверху.
func (r *Repository) GetUserOrders(ctx context.Context, userID int64) ([]*Order, error) {
	query := `
		SELECT o.id, o.user_id, o.product_id, o.quantity, o.total_price,
		       o.status, o.credentials, o.created_at, p.name, p.warranty_days
		FROM orders o
		JOIN products p ON o.product_id = p.id
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса заказов: %w", err)
	}
	defer rows.Close()

	var out []*Order
	for rows.Next() {
		var o Order
		err := rows.Scan(
			&o.ID, &o.UserID, &o.ProductID, &o.Quantity, &o.TotalPrice,
			&o.Status, &o.Credentials, &o.CreatedAt, &o.ProductName, &o.WarrantyDays,
		)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования заказа: %w", err)
		}
		out = append(out, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}
