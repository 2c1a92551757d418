// Пакет database — PostgreSQL для хранилища токенов портала (LT_TOKEN_STORE=postgres).
// Open применяет миграции таблицы portal_tokens и открывает пул pgxpool.
package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/luckytrip/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrationsTable — таблица версий миграций портала.
const migrationsTable = "portal_schema_migrations"

// DB — пул подключений и адаптер *sql.DB над ним (SQL checker dephealth).
type DB struct {
	Pool *pgxpool.Pool
	SQL  *sql.DB
}

// Open применяет миграции и подключается к PostgreSQL.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*DB, error) {
	logger = logger.With(slog.String("component", "database"))

	if err := migrateUp(cfg, logger); err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("разбор DSN: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("создание пула подключений: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("подключение к PostgreSQL: %w", err)
	}

	logger.Info("PostgreSQL подключён", slog.String("url", cfg.DatabaseURL()))
	return &DB{Pool: pool, SQL: stdlib.OpenDBFromPool(pool)}, nil
}

// Close закрывает адаптер и пул.
func (db *DB) Close() {
	_ = db.SQL.Close()
	db.Pool.Close()
}

// CheckReady реализует handlers.ReadinessChecker.
func (db *DB) CheckReady() (string, string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := db.Pool.Ping(ctx); err != nil {
		return "fail", fmt.Sprintf("PostgreSQL недоступен: %v", err)
	}
	return "ok", "хранилище токенов доступно"
}

// migrateUp применяет встроенные миграции. Повторный запуск — не ошибка.
func migrateUp(cfg *config.Config, logger *slog.Logger) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("источник миграций: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, migrateURL(cfg))
	if err != nil {
		return fmt.Errorf("инициализация миграций: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("применение миграций: %w", err)
	}

	version, dirty, _ := m.Version()
	logger.Info("Миграции применены",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}

// migrateURL — URL golang-migrate (pgx5://) с экранированными учётными данными.
func migrateURL(cfg *config.Config) string {
	u := url.URL{
		Scheme: "pgx5",
		User:   url.UserPassword(cfg.DBUser, cfg.DBPassword),
		Host:   net.JoinHostPort(cfg.DBHost, strconv.Itoa(cfg.DBPort)),
		Path:   "/" + cfg.DBName,
		RawQuery: url.Values{
			"sslmode":            {cfg.DBSSLMode},
			"x-migrations-table": {migrationsTable},
		}.Encode(),
	}
	return u.String()
}
