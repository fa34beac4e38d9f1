// Package users — repository.go отвечает за все операции с таблицей users в БД.
// Каждая функция выполняет один SQL-запрос и возвращает результат или ошибку.
// Баланс здесь только читается: многострочные мутации живут в леджере.
package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/shop-bot/internal/common"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const userColumns = `id, user_id, username, balance, affiliate_code, referred_by,
       total_recharged, total_purchases, total_gift_rescued, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.UserID, &u.Username, &u.Balance, &u.AffiliateCode, &u.ReferredBy,
		&u.TotalRecharged, &u.TotalPurchases, &u.TotalGiftRescued, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create добавляет нового покупателя.
// На конфликте по user_id обновляет только username — баланс, тоталы
// и привязку к рефереру первый INSERT фиксирует навсегда.
func (r *Repository) Create(ctx context.Context, u *User) error {
	query := `
		INSERT INTO users (user_id, username, affiliate_code, referred_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET username = EXCLUDED.username,
		    updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query, u.UserID, u.Username, u.AffiliateCode, u.ReferredBy)
	if err != nil {
		return fmt.Errorf("ошибка создания/обновления пользователя: %w", err)
	}
	return nil
}

// GetByUserID возвращает пользователя по Telegram user ID.
func (r *Repository) GetByUserID(ctx context.Context, userID int64) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`
	u, err := scanUser(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("ошибка чтения пользователя (user_id=%d): %w", userID, err)
	}
	return u, nil
}

// GetByAffiliateCode находит владельца реферального кода.
func (r *Repository) GetByAffiliateCode(ctx context.Context, code string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE affiliate_code = $1`
	u, err := scanUser(r.db.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrUserNotFound
		}
		return nil, fmt.Errorf("ошибка поиска по реферальному коду: %w", err)
	}
	return u, nil
}

// Exists проверяет, зарегистрирован ли пользователь.
func (r *Repository) Exists(ctx context.Context, userID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE user_id = $1)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("ошибка проверки существования: %w", err)
	}
	return exists, nil
}

// CountReferrals возвращает число приглашённых пользователем.
func (r *Repository) CountReferrals(ctx context.Context, userID int64) (int, error) {
	query := `SELECT COUNT(*) FROM users WHERE referred_by = $1`
	var n int
	if err := r.db.QueryRow(ctx, query, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта рефералов: %w", err)
	}
	return n, nil
}

// ListUserIDs возвращает Telegram ID всех покупателей (для рассылки).
func (r *Repository) ListUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT user_id FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки пользователей: %w", err)
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}
