// Package repository содержит реализации key-value хранилища состояния магазина.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Ключи хранилища. Значения по ключам — JSON-документы.
const (
	// KeyUserPrefix — профиль пользователя по идентификатору.
	KeyUserPrefix = "freshVeggies_user:"
	// KeyLoginPrefix — индекс email -> идентификатор пользователя.
	KeyLoginPrefix = "freshVeggies_login:"
	// KeyCartPrefix — корзина пользователя.
	KeyCartPrefix = "freshVeggies_cart:"
	// KeyOrdersPrefix — история заказов пользователя, новые в начале.
	KeyOrdersPrefix = "freshVeggies_orders:"
	// KeyPendingDeliveries — заказы, ожидающие обновления статуса доставки.
	KeyPendingDeliveries = "freshVeggies_pendingDeliveries"
)

// PostgresRepository реализует key-value хранилище поверх PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		// Если ошибка контекста — выходим сразу
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					time.Sleep(delays[i])
					continue
				}
			}
		}

		if isConnectionError(err) {
			if i < len(delays) {
				time.Sleep(delays[i])
				continue
			}
		}

		break
	}
	return err
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// Load возвращает значение по ключу. Второй результат сообщает, найден ли ключ.
func (r *PostgresRepository) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`SELECT value FROM kv_store WHERE key = $1`,
			key,
		).Scan(&value)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load key %q: %w", key, err)
	}
	return value, true, nil
}

// Save записывает значение по ключу, заменяя существующее.
func (r *PostgresRepository) Save(ctx context.Context, key string, value []byte) error {
	err := r.withRetry(ctx, func() error {
		_, execErr := r.pool.Exec(ctx,
			`INSERT INTO kv_store (key, value, updated_at) VALUES ($1, $2, now())
			 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
			key, value,
		)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("save key %q: %w", key, err)
	}
	return nil
}

// Remove удаляет ключ. Удаление отсутствующего ключа не является ошибкой.
func (r *PostgresRepository) Remove(ctx context.Context, key string) error {
	err := r.withRetry(ctx, func() error {
		_, execErr := r.pool.Exec(ctx, `DELETE FROM kv_store WHERE key = $1`, key)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("remove key %q: %w", key, err)
	}
	return nil
}
