package ranking

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository читает агрегаты для рейтингов. Только чтение,
// никаких блокировок.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий рейтингов.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// TopProductsThisMonth — товары по числу продаж с начала месяца.
func (r *Repository) TopProductsThisMonth(ctx context.Context, limit int) ([]*ProductRank, error) {
	rows, err := r.db.Query(ctx, `
		SELECT p.name, SUM(o.quantity)::int AS sales
		FROM orders o
		JOIN products p ON o.product_id = p.id
		WHERE o.created_at >= date_trunc('month', NOW())
		GROUP BY p.id, p.name
		ORDER BY sales DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса топа товаров: %w", err)
	}
	defer rows.Close()

	var out []*ProductRank
	for rows.Next() {
		var p ProductRank
		if err := rows.Scan(&p.Name, &p.Sales); err != nil {
			return nil, fmt.Errorf("ошибка сканирования: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

// TopRechargers — пользователи по сумме подтверждённых пополнений
// с начала месяца.
func (r *Repository) TopRechargers(ctx context.Context, limit int) ([]*UserRank, error) {
	return r.queryUserRanks(ctx, `
		SELECT u.user_id, COALESCE(u.username, ''), SUM(rc.amount) AS recharged
		FROM recharges rc
		JOIN users u ON rc.user_id = u.user_id
		WHERE rc.status = 'completed'
		  AND rc.created_at >= date_trunc('month', NOW())
		GROUP BY u.user_id, u.username
		ORDER BY recharged DESC
		LIMIT $1
	`, limit)
}

// Richest — пользователи по текущему балансу.
func (r *Repository) Richest(ctx context.Context, limit int) ([]*UserRank, error) {
	return r.queryUserRanks(ctx, `
		SELECT user_id, COALESCE(username, ''), balance
		FROM users
		WHERE balance > 0
		ORDER BY balance DESC
		LIMIT $1
	`, limit)
}

// TopBuyers — пользователи по числу заказов с начала месяца.
func (r *Repository) TopBuyers(ctx context.Context, limit int) ([]*BuyerRank, error) {
	rows, err := r.db.Query(ctx, `
		SELECT u.user_id, COALESCE(u.username, ''), COUNT(*)::int AS orders
		FROM orders o
		JOIN users u ON o.user_id = u.user_id
		WHERE o.created_at >= date_trunc('month', NOW())
		GROUP BY u.user_id, u.username
		ORDER BY orders DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса топа покупателей: %w", err)
	}
	defer rows.Close()

	var out []*BuyerRank
	for rows.Next() {
		var b BuyerRank
		if err := rows.Scan(&b.UserID, &b.Username, &b.Orders); err != nil {
			return nil, fmt.Errorf("ошибка сканирования: %w", err)
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

func (r *Repository) queryUserRanks(ctx context.Context, query string, limit int) ([]*UserRank, error) {
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса рейтинга: %w", err)
	}
	defer rows.Close()

	var out []*UserRank
	for rows.Next() {
		var u UserRank
		if err := rows.Scan(&u.UserID, &u.Username, &u.Amount); err != nil {
			return nil, fmt.Errorf("ошибка сканирования: %w", err)
		}
		out = append(out, &u)
	}
	return out, rows.Err()
}
