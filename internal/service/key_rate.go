package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Dan9191/deposit-service/internal/models"
	"github.com/Dan9191/deposit-service/internal/repository"
)

const keyRateCacheKey = "cbr:key_rate"

// KeyRateSource fetches the central bank key rate
type KeyRateSource interface {
	GetKeyRate(ctx context.Context) (models.KeyRate, error)
}

// KeyRateService serves the reference key rate from cache
type KeyRateService struct {
	source KeyRateSource
	cache  repository.CacheRepository
	ttl    time.Duration
	log    *logrus.Logger
}

func NewKeyRateService(source KeyRateSource, cache repository.CacheRepository, ttl time.Duration, log *logrus.Logger) *KeyRateService {
	return &KeyRateService{source: source, cache: cache, ttl: ttl, log: log}
}

// Current returns the cached key rate, fetching it on a miss
func (k *KeyRateService) Current(ctx context.Context) (models.KeyRate, error) {
	if raw, ok := k.cache.Get(ctx, keyRateCacheKey); ok {
		var rate models.KeyRate
		if err := json.Unmarshal([]byte(raw), &rate); err == nil {
			return rate, nil
		}
		k.log.Warnf("Discarding unreadable cached key rate: %q", raw)
	}
	return k.Refresh(ctx)
}

// Refresh fetches the key rate from the source and caches it
func (k *KeyRateService) Refresh(ctx context.Context) (models.KeyRate, error) {
	rate, err := k.source.GetKeyRate(ctx)
	if err != nil {
		return models.KeyRate{}, fmt.Errorf("failed to get key rate: %w", err)
	}

	raw, err := json.Marshal(rate)
	if err != nil {
		return models.KeyRate{}, fmt.Errorf("failed to encode key rate: %w", err)
	}
	if err := k.cache.Set(ctx, keyRateCacheKey, string(raw), k.ttl); err != nil {
		k.log.Warnf("Failed to cache key rate: %v", err)
	}
	return rate, nil
}
