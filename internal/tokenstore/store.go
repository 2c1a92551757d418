// Пакет tokenstore — хранение bearer-токена backend под фиксированным ключом.
// Реализации: MemoryStore (LRU с TTL), RedisStore, PostgresStore (портал)
// и FileStore (CLI, ~/.luckytrip/token).
package tokenstore

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ErrNotFound — под ключом нет токена (или срок его хранения истёк).
var ErrNotFound = errors.New("токен не найден")

// Store — хранилище токенов.
type Store interface {
	// Get возвращает токен по ключу или ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set сохраняет токен под ключом, заменяя предыдущий.
	Set(ctx context.Context, key, token string) error
	// Delete удаляет токен. Отсутствие ключа — не ошибка.
	Delete(ctx context.Context, key string) error
}

// Prometheus-метрики хранилища токенов.
var (
	tokenHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lt_token_store_hits_total",
		Help: "Количество найденных токенов по типу хранилища.",
	}, []string{"store"})
	tokenMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lt_token_store_misses_total",
		Help: "Количество промахов хранилища токенов по типу хранилища.",
	}, []string{"store"})
)

// observe обновляет метрики hit/miss по результату Get.
func observe(store string, err error) {
	switch {
	case err == nil:
		tokenHitsTotal.WithLabelValues(store).Inc()
	case errors.Is(err, ErrNotFound):
		tokenMissesTotal.WithLabelValues(store).Inc()
	}
}
