package ledger

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/shop-bot/internal/common"
)

// Интеграционные тесты гоняются против живого Postgres:
//
//	TEST_DATABASE_DSN=postgres://... go test ./internal/features/ledger/
//
// Без переменной окружения тесты пропускаются.

const testSchema = `
	CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT UNIQUE NOT NULL,
		username VARCHAR(255),
		balance NUMERIC(12,2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
		affiliate_code VARCHAR(64) UNIQUE,
		referred_by BIGINT,
		total_recharged NUMERIC(12,2) NOT NULL DEFAULT 0,
		total_purchases INT NOT NULL DEFAULT 0,
		total_gift_rescued NUMERIC(12,2) NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE TABLE IF NOT EXISTS products (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price NUMERIC(12,2) NOT NULL CHECK (price > 0),
		stock INT NOT NULL DEFAULT 0 CHECK (stock >= 0),
		warranty_days INT NOT NULL DEFAULT 0,
		category VARCHAR(64) NOT NULL DEFAULT 'premium',
		sales_count INT NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE TABLE IF NOT EXISTS orders (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		product_id BIGINT NOT NULL REFERENCES products(id),
		quantity INT NOT NULL DEFAULT 1,
		total_price NUMERIC(12,2) NOT NULL,
		status VARCHAR(32) NOT NULL DEFAULT 'completed',
		credentials TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE TABLE IF NOT EXISTS recharges (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		amount NUMERIC(12,2) NOT NULL CHECK (amount > 0),
		payment_ref VARCHAR(255) UNIQUE NOT NULL,
		status VARCHAR(32) NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		completed_at TIMESTAMPTZ
	);
	CREATE TABLE IF NOT EXISTS gift_cards (
		id BIGSERIAL PRIMARY KEY,
		code VARCHAR(64) UNIQUE NOT NULL,
		amount NUMERIC(12,2) NOT NULL CHECK (amount > 0),
		is_used BOOLEAN NOT NULL DEFAULT FALSE,
		used_by BIGINT,
		used_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
`

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN не задан, пропускаем интеграционные тесты")
	}

	ctx := context.Background()
	poolConfig, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)
	poolConfig.AfterConnect = func(_ context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, testSchema)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `TRUNCATE users, products, orders, recharges, gift_cards RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return pool
}

func insertUser(t *testing.T, pool *pgxpool.Pool, userID int64, balance string) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `
		INSERT INTO users (user_id, username, balance) VALUES ($1, $2, $3)
	`, userID, "tester", decimal.RequireFromString(balance))
	require.NoError(t, err)
}

func insertProduct(t *testing.T, pool *pgxpool.Pool, price string, stock int) int64 {
	t.Helper()
	var id int64
	err := pool.QueryRow(context.Background(), `
		INSERT INTO products (name, description, price, stock, warranty_days)
		VALUES ('Netflix Premium', '4K UHD', $1, $2, 30)
		RETURNING id
	`, decimal.RequireFromString(price), stock).Scan(&id)
	require.NoError(t, err)
	return id
}

func userBalance(t *testing.T, pool *pgxpool.Pool, userID int64) decimal.Decimal {
	t.Helper()
	var balance decimal.Decimal
	err := pool.QueryRow(context.Background(),
		`SELECT balance FROM users WHERE user_id = $1`, userID).Scan(&balance)
	require.NoError(t, err)
	return balance
}

func TestPurchaseDebitsAndDecrements(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewRepository(pool)
	ctx := context.Background()

	insertUser(t, pool, 100, "500.00")
	productID := insertProduct(t, pool, "199.90", 5)

	order, err := repo.Purchase(ctx, 100, productID, 1, "логин/пароль")
	require.NoError(t, err)

	assert.True(t, order.TotalPrice.Equal(decimal.RequireFromString("199.90")))
	assert.Equal(t, "Netflix Premium", order.ProductName)
	assert.Equal(t, 30, order.WarrantyDays)

	assert.True(t, userBalance(t, pool, 100).Equal(decimal.RequireFromString("300.10")))

	var stock, salesCount int
	err = pool.QueryRow(ctx, `SELECT stock, sales_count FROM products WHERE id = $1`, productID).
		Scan(&stock, &salesCount)
	require.NoError(t, err)
	assert.Equal(t, 4, stock)
	assert.Equal(t, 1, salesCount)
}

func TestPurchaseExactBalance(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewRepository(pool)

	insertUser(t, pool, 101, "199.90")
	productID := insertProduct(t, pool, "199.90", 1)

	_, err := repo.Purchase(context.Background(), 101, productID, 1, "x")
	require.NoError(t, err)
	assert.True(t, userBalance(t, pool, 101).IsZero())
}

func TestPurchaseInsufficientFundsNoMutation(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewRepository(pool)
	ctx := context.Background()

	insertUser(t, pool, 102, "100.00")
	productID := insertProduct(t, pool, "149.50", 3)

	_, err := repo.Purchase(ctx, 102, productID, 1, "x")
	ife, ok := common.AsInsufficientFunds(err)
	require.True(t, ok, "ожидалась ошибка нехватки средств, получено: %v", err)
	assert.True(t, ife.Missing.Equal(decimal.RequireFromString("49.50")))

	// Ничего не изменилось
	assert.True(t, userBalance(t, pool, 102).Equal(decimal.RequireFromString("100.00")))
	var stock int
	require.NoError(t, pool.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1`, productID).Scan(&stock))
	assert.Equal(t, 3, stock)
	var orderCount int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&orderCount))
	assert.Zero(t, orderCount)
}

func TestPurchaseInactiveProduct(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewRepository(pool)
	ctx := context.Background()

	insertUser(t, pool, 103, "500.00")
	productID := insertProduct(t, pool, "100.00", 5)
	_, err := pool.Exec(ctx, `UPDATE products SET is_active = FALSE WHERE id = $1`, productID)
	require.NoError(t, err)

	_, err = repo.Purchase(ctx, 103, productID, 1, "x")
	assert.ErrorIs(t, err, common.ErrProductNotFound)
}

// Последняя единица товара достаётся ровно одному из конкурирующих
// покупателей; остаток не уходит в минус.
func TestPurchaseConcurrentLastUnit(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewRepository(pool)
	ctx := context.Background()

	insertUser(t, pool, 200, "1000.00")
	insertUser(t, pool, 201, "1000.00")
	productID := insertProduct(t, pool, "300.00", 1)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, userID := range []int64{200, 201} {
		wg.Add(1)
		go func(i int, userID int64) {
			defer wg.Done()
			_, errs[i] = repo.Purchase(ctx, userID, productID, 1, "x")
		}(i, userID)
	}
	wg.Wait()

	var succeeded, outOfStock int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, common.ErrOutOfStock):
			outOfStock++
		default:
			t.Fatalf("неожиданная ошибка: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, outOfStock)

	var stock int
	require.NoError(t, pool.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1`, productID).Scan(&stock))
	assert.Zero(t, stock)
	var orderCount int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&orderCount))
	assert.Equal(t, 1, orderCount)
}

func TestConfirmRechargeIdempotent(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewRepository(pool)
	ctx := context.Background()

	insertUser(t, pool, 300, "0.00")
	_, err := pool.Exec(ctx, `
		INSERT INTO recharges (user_id, amount, payment_ref) VALUES (300, 250.00, 'pi_test_300')
	`)
	require.NoError(t, err)

	credit, err := repo.ConfirmRecharge(ctx, "pi_test_300", decimal.Zero)
	require.NoError(t, err)
	assert.True(t, credit.Amount.Equal(decimal.RequireFromString("250.00")))

	// Повторная доставка того же подтверждения
	_, err = repo.ConfirmRecharge(ctx, "pi_test_300", decimal.Zero)
	assert.ErrorIs(t, err, common.ErrRechargeAlreadyApplied)

	assert.True(t, userBalance(t, pool, 300).Equal(decimal.RequireFromString("250.00")),
		"баланс должен быть зачислен ровно один раз")
}

func TestConfirmRechargeReferralBonus(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewRepository(pool)
	ctx := context.Background()

	insertUser(t, pool, 400, "0.00") // пригласивший
	insertUser(t, pool, 401, "0.00")
	_, err := pool.Exec(ctx, `UPDATE users SET referred_by = 400 WHERE user_id = 401`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `
		INSERT INTO recharges (user_id, amount, payment_ref) VALUES (401, 100.00, 'pi_test_401')
	`)
	require.NoError(t, err)

	credit, err := repo.ConfirmRecharge(ctx, "pi_test_401", decimal.RequireFromString("0.5"))
	require.NoError(t, err)

	require.NotNil(t, credit.ReferrerID)
	assert.Equal(t, int64(400), *credit.ReferrerID)
	assert.True(t, credit.ReferralBonus.Equal(decimal.RequireFromString("50.00")))

	assert.True(t, userBalance(t, pool, 401).Equal(decimal.RequireFromString("100.00")))
	assert.True(t, userBalance(t, pool, 400).Equal(decimal.RequireFromString("50.00")))
}

func TestConfirmRechargeFailedNotCredited(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewRepository(pool)
	ctx := context.Background()

	insertUser(t, pool, 500, "0.00")
	_, err := pool.Exec(ctx, `
		INSERT INTO recharges (user_id, amount, payment_ref, status)
		VALUES (500, 100.00, 'pi_test_500', 'failed')
	`)
	require.NoError(t, err)

	_, err = repo.ConfirmRecharge(ctx, "pi_test_500", decimal.Zero)
	assert.ErrorIs(t, err, common.ErrPaymentNotConfirmed)
	assert.True(t, userBalance(t, pool, 500).IsZero())
}

func TestRedeemGiftCardSingleUse(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewRepository(pool)
	ctx := context.Background()

	insertUser(t, pool, 600, "0.00")
	insertUser(t, pool, 601, "0.00")
	require.NoError(t, repo.CreateGiftCard(ctx, "GIFT-AAAA11112222", decimal.RequireFromString("75.00")))

	amount, err := repo.RedeemGiftCard(ctx, 600, "GIFT-AAAA11112222")
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.RequireFromString("75.00")))

	_, err = repo.RedeemGiftCard(ctx, 601, "GIFT-AAAA11112222")
	assert.ErrorIs(t, err, common.ErrGiftCardAlreadyUsed)

	assert.True(t, userBalance(t, pool, 600).Equal(decimal.RequireFromString("75.00")))
	assert.True(t, userBalance(t, pool, 601).IsZero())
}

func TestRedeemGiftCardUnknownCode(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewRepository(pool)

	insertUser(t, pool, 700, "0.00")
	_, err := repo.RedeemGiftCard(context.Background(), 700, "GIFT-NOPE00000000")
	assert.ErrorIs(t, err, common.ErrGiftCardNotFound)
}
