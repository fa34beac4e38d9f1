package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"serotonyl.ru/shop-bot/internal/common"
)

// Repository работает с таблицей recharges.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий пополнений.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const rechargeColumns = `id, user_id, amount, payment_ref, status, created_at, completed_at`

func scanRecharge(row pgx.Row) (*Recharge, error) {
	var r Recharge
	err := row.Scan(&r.ID, &r.UserID, &r.Amount, &r.PaymentRef, &r.Status, &r.CreatedAt, &r.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Create записывает новую заявку в статусе pending.
func (r *Repository) Create(ctx context.Context, userID int64, amount decimal.Decimal, paymentRef string) (*Recharge, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO recharges (user_id, amount, payment_ref, status)
		VALUES ($1, $2, $3, $4)
		RETURNING `+rechargeColumns,
		userID, amount, paymentRef, RechargeStatusPending)

	recharge, err := scanRecharge(row)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания заявки: %w", err)
	}
	return recharge, nil
}

// GetByRef возвращает заявку по платёжному референсу.
func (r *Repository) GetByRef(ctx context.Context, paymentRef string) (*Recharge, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+rechargeColumns+` FROM recharges WHERE payment_ref = $1
	`, paymentRef)

	recharge, err := scanRecharge(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrRechargeNotFound
		}
		return nil, fmt.Errorf("ошибка чтения заявки: %w", err)
	}
	return recharge, nil
}

// ListPending возвращает незакрытые заявки, старые сверху.
func (r *Repository) ListPending(ctx context.Context, limit int) ([]*Recharge, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+rechargeColumns+`
		FROM recharges
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`, RechargeStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса заявок: %w", err)
	}
	defer rows.Close()

	var out []*Recharge
	for rows.Next() {
		recharge, err := scanRecharge(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования заявки: %w", err)
		}
		out = append(out, recharge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}

// ExpireStale переводит протухшие pending-заявки в failed.
// Возвращает количество закрытых заявок.
func (r *Repository) ExpireStale(ctx context.Context, ttl time.Duration) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE recharges
		SET status = $1
		WHERE status = $2 AND created_at < NOW() - make_interval(secs => $3)
	`, RechargeStatusFailed, RechargeStatusPending, ttl.Seconds())
	if err != nil {
		return 0, fmt.Errorf("ошибка закрытия протухших заявок: %w", err)
	}
	return tag.RowsAffected(), nil
}
