package tokenstore

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryStore — in-memory LRU с автоматическим TTL.
// Каждый экземпляр портала имеет собственное хранилище: после рестарта
// все сессии становятся анонимными.
type MemoryStore struct {
	cache *expirable.LRU[string, string]
}

// NewMemoryStore создаёт хранилище на maxSize записей с временем жизни ttl.
// ttl <= 0 — без ограничения по времени.
func NewMemoryStore(maxSize int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{cache: expirable.NewLRU[string, string](maxSize, nil, ttl)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	token, ok := s.cache.Get(key)
	if !ok {
		observe("memory", ErrNotFound)
		return "", ErrNotFound
	}
	observe("memory", nil)
	return token, nil
}

func (s *MemoryStore) Set(_ context.Context, key, token string) error {
	s.cache.Add(key, token)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.cache.Remove(key)
	return nil
}

// Len возвращает количество записей.
func (s *MemoryStore) Len() int {
	return s.cache.Len()
}
