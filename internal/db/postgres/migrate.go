// Package postgres — migrate.go: встроенный прогон SQL-миграций.
// Без golang-migrate: схемы немного, а лишняя зависимость и отдельные
// файлы миграций усложняют деплой бота.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// Migration — одна версионированная миграция схемы.
type Migration struct {
	Version int
	SQL     string
}

// ApplyMigrations создаёт таблицу schema_migrations (если её нет)
// и применяет миграции по порядку. Уже применённые версии
// пропускаются, так что повторный запуск безопасен.
func ApplyMigrations(ctx context.Context, pool *pgxpool.Pool, migrations []Migration) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("ошибка создания таблицы миграций: %w", err)
	}

	applied := 0
	for _, m := range migrations {
		ok, err := applyOne(ctx, pool, m)
		if err != nil {
			return err
		}
		if ok {
			applied++
		}
	}

	log.WithFields(log.Fields{
		"total":   len(migrations),
		"applied": applied,
	}).Info("Миграции применены")
	return nil
}

// applyOne выполняет одну миграцию в транзакции. Возвращает false,
// если эта версия уже была применена раньше.
func applyOne(ctx context.Context, pool *pgxpool.Pool, m Migration) (bool, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", m.Version,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки миграции %d: %w", m.Version, err)
	}
	if exists {
		return false, nil
	}

	if _, err := tx.Exec(ctx, m.SQL); err != nil {
		return false, fmt.Errorf("ошибка выполнения миграции %d: %w", m.Version, err)
	}
	if _, err := tx.Exec(ctx,
		"INSERT INTO schema_migrations (version) VALUES ($1)", m.Version,
	); err != nil {
		return false, fmt.Errorf("ошибка записи версии миграции %d: %w", m.Version, err)
	}

	return true, tx.Commit(ctx)
}
