// Пакет service — бизнес-логика api-api.
// TeamCache — LRU-кэш членства в командах с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus-метрики кэша команд.
var (
	teamCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aa_team_cache_hits_total",
		Help: "Общее количество попаданий в кэш членства в командах.",
	})
	teamCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aa_team_cache_misses_total",
		Help: "Общее количество промахов кэша членства в командах.",
	})
)

// TeamCache — кэш списка команд по идентификатору вызывающего.
// Каждый экземпляр api-api имеет собственный in-memory кэш.
// Ошибки identity service не кэшируются.
type TeamCache struct {
	cache *expirable.LRU[string, []string]
}

// NewTeamCache создаёт кэш с указанным максимальным размером и TTL.
func NewTeamCache(maxSize int, ttl time.Duration) *TeamCache {
	return &TeamCache{cache: expirable.NewLRU[string, []string](maxSize, nil, ttl)}
}

// Get возвращает команды вызывающего из кэша.
func (c *TeamCache) Get(callerID string) ([]string, bool) {
	teams, ok := c.cache.Get(callerID)
	if ok {
		teamCacheHitsTotal.Inc()
		return teams, true
	}
	teamCacheMissesTotal.Inc()
	return nil, false
}

// Set сохраняет команды вызывающего.
func (c *TeamCache) Set(callerID string, teams []string) {
	c.cache.Add(callerID, teams)
}
