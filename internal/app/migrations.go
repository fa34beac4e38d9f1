// Package app — migrations.go содержит SQL-миграции схемы.
// Миграции встроены в бинарник и применяются при старте по порядку.
package app

const migration001Users = `
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

	CREATE INDEX IF NOT EXISTS idx_users_affiliate_code ON users(affiliate_code)
		WHERE affiliate_code IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_users_referred_by ON users(referred_by)
		WHERE referred_by IS NOT NULL;
`

const migration002Products = `
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

	CREATE INDEX IF NOT EXISTS idx_products_active ON products(is_active, stock);
`

const migration003Orders = `
	CREATE TABLE IF NOT EXISTS orders (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		product_id BIGINT NOT NULL REFERENCES products(id),
		quantity INT NOT NULL DEFAULT 1 CHECK (quantity > 0),
		total_price NUMERIC(12,2) NOT NULL,
		status VARCHAR(32) NOT NULL DEFAULT 'completed',
		credentials TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_orders_created ON orders(created_at);
`

const migration004Recharges = `
	CREATE TABLE IF NOT EXISTS recharges (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		amount NUMERIC(12,2) NOT NULL CHECK (amount > 0),
		payment_ref VARCHAR(255) UNIQUE NOT NULL,
		status VARCHAR(32) NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		completed_at TIMESTAMPTZ
	);

	CREATE INDEX IF NOT EXISTS idx_recharges_pending ON recharges(created_at)
		WHERE status = 'pending';
`

const migration005GiftCards = `
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

const migration006Admin = `
	CREATE TABLE IF NOT EXISTS admin_sessions (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		session_token VARCHAR(255) UNIQUE NOT NULL,
		authenticated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		expires_at TIMESTAMPTZ NOT NULL,
		last_activity TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	);

	CREATE TABLE IF NOT EXISTS admin_login_attempts (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		attempt_time TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		success BOOLEAN NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_admin_sessions_user ON admin_sessions(user_id, is_active);
	CREATE INDEX IF NOT EXISTS idx_admin_attempts_user ON admin_login_attempts(user_id, attempt_time);
`
