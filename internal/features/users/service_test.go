package users

import (
	"context"
	"os"
	"strings"
	"testing"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Тесты регистрации гоняются против живого Postgres через
// TEST_DATABASE_DSN, без переменной окружения пропускаются.

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

	_, err = pool.Exec(ctx, `
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
		)
	`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `TRUNCATE users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return pool
}

func TestRegisterNewUser(t *testing.T) {
	pool := setupTestDB(t)
	svc := NewService(NewRepository(pool))
	ctx := context.Background()

	u, err := svc.Register(ctx, 100, "ivan", "")
	require.NoError(t, err)

	assert.Equal(t, int64(100), u.UserID)
	assert.Equal(t, "ivan", u.Username)
	require.NotNil(t, u.AffiliateCode)
	assert.True(t, strings.HasPrefix(*u.AffiliateCode, "ref_"))
	assert.True(t, u.Balance.IsZero())
	assert.Nil(t, u.ReferredBy)
}

func TestRegisterRepeatUpdatesUsernameOnly(t *testing.T) {
	pool := setupTestDB(t)
	svc := NewService(NewRepository(pool))
	ctx := context.Background()

	first, err := svc.Register(ctx, 100, "ivan", "")
	require.NoError(t, err)

	second, err := svc.Register(ctx, 100, "ivan_new", "")
	require.NoError(t, err)

	assert.Equal(t, "ivan_new", second.Username)
	// Реферальный код при повторной регистрации не перегенерируется
	require.NotNil(t, second.AffiliateCode)
	assert.Equal(t, *first.AffiliateCode, *second.AffiliateCode)
}

func TestRegisterWithReferral(t *testing.T) {
	pool := setupTestDB(t)
	svc := NewService(NewRepository(pool))
	ctx := context.Background()

	referrer, err := svc.Register(ctx, 100, "ivan", "")
	require.NoError(t, err)

	u, err := svc.Register(ctx, 200, "olga", *referrer.AffiliateCode)
	require.NoError(t, err)

	require.NotNil(t, u.ReferredBy)
	assert.Equal(t, int64(100), *u.ReferredBy)

	count, err := svc.CountReferrals(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRegisterSelfReferralIgnored(t *testing.T) {
	pool := setupTestDB(t)
	repo := NewRepository(pool)
	svc := NewService(repo)
	ctx := context.Background()

	// Пользователя ещё нет, но код формально валидный по формату
	u, err := svc.Register(ctx, 100, "ivan", "ref_deadbeef")
	require.NoError(t, err)
	assert.Nil(t, u.ReferredBy, "несуществующий код не должен привязывать реферала")
}

func TestAffiliateCodeFormat(t *testing.T) {
	code := newAffiliateCode()
	assert.True(t, strings.HasPrefix(code, "ref_"))
	assert.Len(t, code, len("ref_")+8)
}
