package tokenstore

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bigkaa/luckytrip/internal/domain/model"
	"github.com/bigkaa/luckytrip/internal/repository"
)

// PostgresStore — токены в таблице portal_tokens.
type PostgresStore struct {
	repo   repository.TokenRepository
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewPostgresStore создаёт хранилище поверх репозитория токенов.
// ttl <= 0 — без срока действия.
func NewPostgresStore(repo repository.TokenRepository, ttl time.Duration, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{
		repo:   repo,
		ttl:    ttl,
		now:    time.Now,
		logger: logger.With(slog.String("component", "token_store_pg")),
	}
}

func (s *PostgresStore) Get(ctx context.Context, key string) (string, error) {
	t, err := s.repo.Get(ctx, key, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			observe("postgres", ErrNotFound)
			return "", ErrNotFound
		}
		return "", err
	}
	observe("postgres", nil)
	return t.Token, nil
}

func (s *PostgresStore) Set(ctx context.Context, key, token string) error {
	t := &model.StoredToken{Key: key, Token: token}
	if s.ttl > 0 {
		t.ExpiresAt = s.now().Add(s.ttl)
	}
	return s.repo.Upsert(ctx, t)
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	return s.repo.Delete(ctx, key)
}

// RunCleanup периодически удаляет истёкшие записи до отмены ctx.
func (s *PostgresStore) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.repo.DeleteExpired(ctx, s.now())
			if err != nil {
				s.logger.Error("Ошибка очистки истёкших токенов", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				s.logger.Info("Истёкшие токены удалены", slog.Int64("count", n))
			}
		}
	}
}
