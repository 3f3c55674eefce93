package registry

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

// Prometheus-метрики кэша тел схем.
var (
	bodyCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aa_schema_cache_hits_total",
		Help: "Общее количество попаданий в Redis-кэш тел схем.",
	})
	bodyCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aa_schema_cache_misses_total",
		Help: "Общее количество промахов Redis-кэша тел схем.",
	})
)

const cacheKeyPrefix = "aa:schema:"

// CachedFetcher — Fetcher, кэширующий тела схем в Redis с TTL.
// Ошибки Redis не прерывают запрос: тело загружается из реестра напрямую.
// Ошибки реестра не кэшируются.
type CachedFetcher struct {
	next   Fetcher
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedFetcher создаёт кэширующую обёртку над next.
func NewCachedFetcher(next Fetcher, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedFetcher {
	return &CachedFetcher{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "schema_cache")),
	}
}

// Get возвращает тело схемы из кэша или из реестра.
func (f *CachedFetcher) Get(ctx context.Context, url string) (json.RawMessage, error) {
	key := cacheKeyPrefix + url

	cached, err := f.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		bodyCacheHitsTotal.Inc()
		return json.RawMessage(cached), nil
	case errors.Is(err, redis.Nil):
		bodyCacheMissesTotal.Inc()
	default:
		bodyCacheMissesTotal.Inc()
		f.logger.Warn("Ошибка чтения кэша схем",
			slog.String("url", url),
			slog.String("error", err.Error()),
		)
	}

	body, err := f.next.Get(ctx, url)
	if err != nil {
		return nil, err
	}

	if err := f.client.Set(ctx, key, []byte(body), f.ttl).Err(); err != nil {
		f.logger.Warn("Ошибка записи в кэш схем",
			slog.String("url", url),
			slog.String("error", err.Error()),
		)
	}
	return body, nil
}

// Invalidate удаляет тело схемы из кэша (после создания новой версии).
func (f *CachedFetcher) Invalidate(ctx context.Context, url string) error {
	return f.client.Del(ctx, cacheKeyPrefix+url).Err()
}

// NewRedisClient создаёт клиент Redis и проверяет соединение.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
