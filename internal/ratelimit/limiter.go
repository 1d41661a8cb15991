package ratelimit

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/feral-file/ff-mint-indexer/internal/adapter"
	"github.com/feral-file/ff-mint-indexer/internal/logger"
)

const (
	DEFAULT_KEY_PREFIX     = "mint-indexer:limiter:"
	DEFAULT_PROBE_INTERVAL = 10 * time.Second
)

// Limiter blocks until a request may be made
type Limiter interface {
	Wait(ctx context.Context) error
}

// NewLocalLimiter creates an in-process token bucket. A non-positive rate disables limiting.
func NewLocalLimiter(requestsPerSecond float64, burst int) Limiter {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(limit, burst)
}

// Config holds the configuration of a distributed limiter
type Config struct {
	// Name identifies the limited resource; instances sharing a name share the budget
	Name              string
	RequestsPerSecond int
	Burst             int
	KeyPrefix         string
	// LocalFallbackMultiplier scales the per-instance rate used while redis is unreachable
	LocalFallbackMultiplier float64
	// ProbeInterval is how long the local fallback is used before redis is tried again
	ProbeInterval time.Duration
}

// distributedLimiter shares a request budget across instances through redis and falls back to a
// local token bucket while redis is unreachable
type distributedLimiter struct {
	config      Config
	key         string
	distributed adapter.RedisRateLimiter
	clock       adapter.Clock
	// preFilter keeps a single instance from hammering redis faster than the whole budget
	preFilter *rate.Limiter
	local     *rate.Limiter

	mu          sync.Mutex
	unavailable bool
	failedAt    time.Time
}

// NewDistributedLimiter creates a redis-backed limiter
func NewDistributedLimiter(rc adapter.RedisClient, clock adapter.Clock, cfg Config) (Limiter, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Minimum rate of 1.0
	localRate := max(float64(cfg.RequestsPerSecond)*cfg.LocalFallbackMultiplier, 1.0)

	logger.Info("Distributed rate limiter initialized",
		zap.String("name", cfg.Name),
		zap.Int("requests_per_second", cfg.RequestsPerSecond),
		zap.Int("burst", cfg.Burst),
	)

	return &distributedLimiter{
		config:      cfg,
		key:         cfg.KeyPrefix + cfg.Name,
		distributed: rc.NewRateLimiter(),
		clock:       clock,
		preFilter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		local:       rate.NewLimiter(rate.Limit(localRate), cfg.Burst),
	}, nil
}

// Wait acquires a token, blocking until one is available or ctx is done
func (l *distributedLimiter) Wait(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if !l.redisAvailable() {
			return l.local.Wait(ctx)
		}

		allowed, retryAfter, err := l.tryDistributed(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.markUnavailable(err)
			continue
		}
		if allowed {
			return nil
		}

		// Spread retries over 50-150% of retryAfter
		jitter := time.Duration(float64(retryAfter) * (0.5 + rand.Float64())) //nolint:gosec,G404
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.clock.After(jitter):
		}
	}
}

// tryDistributed returns (allowed, retryAfter, error)
func (l *distributedLimiter) tryDistributed(ctx context.Context) (bool, time.Duration, error) {
	if err := l.preFilter.Wait(ctx); err != nil {
		return false, 0, err
	}

	res, err := l.distributed.Allow(ctx, l.key, redis_rate.Limit{
		Rate:   l.config.RequestsPerSecond,
		Burst:  l.config.Burst,
		Period: time.Second,
	})
	if err != nil {
		return false, 0, err
	}

	if res.Allowed == 0 {
		logger.Debug("Rate limit token unavailable, waiting",
			zap.String("name", l.config.Name),
			zap.Duration("retry_after", res.RetryAfter),
			zap.Int("remaining", res.Remaining),
		)
		retryAfter := res.RetryAfter
		if retryAfter <= 0 {
			retryAfter = time.Second / time.Duration(l.config.RequestsPerSecond)
		}
		return false, retryAfter, nil
	}

	return true, 0, nil
}

// redisAvailable reports whether redis should be asked, re-probing once ProbeInterval has passed
func (l *distributedLimiter) redisAvailable() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.unavailable {
		return true
	}
	if l.clock.Since(l.failedAt) >= l.config.ProbeInterval {
		l.unavailable = false
		logger.Info("Retrying redis rate limiter", zap.String("name", l.config.Name))
		return true
	}
	return false
}

func (l *distributedLimiter) markUnavailable(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.unavailable {
		logger.Warn("Redis rate limiter error, falling back to local",
			zap.String("name", l.config.Name),
			zap.Error(err),
		)
	}
	l.unavailable = true
	l.failedAt = l.clock.Now()
}

// validateConfig validates and sets defaults for the configuration
func validateConfig(cfg *Config) error {
	if cfg.Name == "" {
		return fmt.Errorf("name is required")
	}
	if cfg.RequestsPerSecond <= 0 {
		return fmt.Errorf("requests_per_second must be positive")
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.RequestsPerSecond
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DEFAULT_KEY_PREFIX
	}
	if cfg.LocalFallbackMultiplier <= 0 {
		cfg.LocalFallbackMultiplier = 1.0
	}
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = DEFAULT_PROBE_INTERVAL
	}
	return nil
}
