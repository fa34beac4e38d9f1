// Package catalog — repository.go выполняет операции с таблицей products.
package catalog

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

const productColumns = `id, name, description, price, stock, warranty_days,
       category, is_active, sales_count, created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.WarrantyDays,
		&p.Category, &p.IsActive, &p.SalesCount, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListActive возвращает активные товары категории с ненулевым остатком.
// Чтение без блокировок: это витрина, а не источник истины для покупки.
func (r *Repository) ListActive(ctx context.Context, category string) ([]*Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE category = $1 AND is_active = TRUE AND stock > 0
		ORDER BY sales_count DESC, id
	`
	return r.queryProducts(ctx, query, category)
}

// GetByID возвращает товар по ID (включая неактивные — для админки).
func (r *Repository) GetByID(ctx context.Context, id int64) (*Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	p, err := scanProduct(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrProductNotFound
		}
		return nil, fmt.Errorf("ошибка чтения товара (id=%d): %w", id, err)
	}
	return p, nil
}

// Search ищет активные товары по подстроке имени (без учёта регистра).
func (r *Repository) Search(ctx context.Context, term string, limit int) ([]*Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE is_active = TRUE AND name ILIKE '%' || $1 || '%'
		ORDER BY sales_count DESC, id
		LIMIT $2
	`
	return r.queryProducts(ctx, query, term, limit)
}

// Create добавляет новый товар и возвращает его ID.
func (r *Repository) Create(ctx context.Context, in *ProductInput) (int64, error) {
	query := `
		INSERT INTO products (name, description, price, stock, warranty_days, category)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRow(ctx, query,
		in.Name, in.Description, in.Price, in.Stock, in.WarrantyDays, in.Category,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("ошибка создания товара: %w", err)
	}
	return id, nil
}

// Допустимые для обновления поля. Имя колонки подставляется в запрос,
// поэтому список закрыт — никакого ввода администратора напрямую в SQL.
var updatableFields = map[string]struct{}{
	"name":          {},
	"description":   {},
	"price":         {},
	"stock":         {},
	"warranty_days": {},
	"category":      {},
	"is_active":     {},
}

// UpdateField обновляет одно поле товара.
func (r *Repository) UpdateField(ctx context.Context, id int64, field string, value interface{}) error {
	if _, ok := updatableFields[field]; !ok {
		return fmt.Errorf("поле %q нельзя обновлять", field)
	}
	query := fmt.Sprintf(`UPDATE products SET %s = $2, updated_at = NOW() WHERE id = $1`, field)
	tag, err := r.db.Exec(ctx, query, id, value)
	if err != nil {
		return fmt.Errorf("ошибка обновления товара: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrProductNotFound
	}
	return nil
}

func (r *Repository) queryProducts(ctx context.Context, query string, args ...interface{}) ([]*Product, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса товаров: %w", err)
	}
	defer rows.Close()

	var out []*Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}
