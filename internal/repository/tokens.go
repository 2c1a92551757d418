package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/luckytrip/internal/domain/model"
)

// TokenRepository — CRUD для таблицы portal_tokens.
type TokenRepository interface {
	// Get возвращает действующий токен по ключу. Истёкшая запись — ErrNotFound.
	Get(ctx context.Context, key string, now time.Time) (*model.StoredToken, error)
	// Upsert сохраняет токен под ключом, заменяя предыдущий.
	Upsert(ctx context.Context, t *model.StoredToken) error
	// Delete удаляет запись. Отсутствие записи — не ошибка.
	Delete(ctx context.Context, key string) error
	// DeleteExpired удаляет записи с истёкшим сроком и возвращает их количество.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// tokenRepo — реализация TokenRepository.
type tokenRepo struct {
	db DBTX
}

// NewTokenRepository создаёт репозиторий токенов.
func NewTokenRepository(db DBTX) TokenRepository {
	return &tokenRepo{db: db}
}

func (r *tokenRepo) Get(ctx context.Context, key string, now time.Time) (*model.StoredToken, error) {
	query := `
		SELECT key, token, expires_at, created_at
		FROM portal_tokens
		WHERE key = $1 AND (expires_at IS NULL OR expires_at > $2)`

	t := &model.StoredToken{}
	var expiresAt *time.Time
	err := r.db.QueryRow(ctx, query, key, now).Scan(&t.Key, &t.Token, &expiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения токена: %w", err)
	}
	if expiresAt != nil {
		t.ExpiresAt = *expiresAt
	}
	return t, nil
}

func (r *tokenRepo) Upsert(ctx context.Context, t *model.StoredToken) error {
	query := `
		INSERT INTO portal_tokens (key, token, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET
			token = EXCLUDED.token,
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()
		RETURNING created_at`

	var expiresAt *time.Time
	if !t.ExpiresAt.IsZero() {
		expiresAt = &t.ExpiresAt
	}
	if err := r.db.QueryRow(ctx, query, t.Key, t.Token, expiresAt).Scan(&t.CreatedAt); err != nil {
		return fmt.Errorf("ошибка сохранения токена: %w", err)
	}
	return nil
}

func (r *tokenRepo) Delete(ctx context.Context, key string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM portal_tokens WHERE key = $1`, key); err != nil {
		return fmt.Errorf("ошибка удаления токена: %w", err)
	}
	return nil
}

func (r *tokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM portal_tokens WHERE expires_at IS NOT NULL AND expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("ошибка очистки истёкших токенов: %w", err)
	}
	return tag.RowsAffected(), nil
}
