package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore — токены в Redis с TTL. Общее хранилище для нескольких
// экземпляров портала.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore создаёт хранилище поверх клиента Redis.
// prefix добавляется к каждому ключу, ttl <= 0 — без срока действия.
func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

// NewRedisClient создаёт клиент и проверяет подключение.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ошибка подключения к Redis %s: %w", addr, err)
	}
	return client, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	token, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			observe("redis", ErrNotFound)
			return "", ErrNotFound
		}
		return "", fmt.Errorf("чтение токена из Redis: %w", err)
	}
	observe("redis", nil)
	return token, nil
}

func (s *RedisStore) Set(ctx context.Context, key, token string) error {
	if err := s.client.Set(ctx, s.prefix+key, token, s.ttl).Err(); err != nil {
		return fmt.Errorf("запись токена в Redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("удаление токена из Redis: %w", err)
	}
	return nil
}

// CheckReady проверяет подключение к Redis для health endpoint.
func (s *RedisStore) CheckReady() (status string, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := s.client.Ping(ctx).Err(); err != nil {
		return "fail", fmt.Sprintf("Redis недоступен: %v", err)
	}
	return "ok", "подключение активно"
}
