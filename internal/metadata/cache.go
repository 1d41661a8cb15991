package metadata

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/ff-mint-indexer/internal/adapter"
	"github.com/feral-file/ff-mint-indexer/internal/domain"
	"github.com/feral-file/ff-mint-indexer/internal/logger"
)

const cacheKeyPrefix = "mint-indexer:metadata:"

// cachedFetcher serves documents from redis before delegating to the wrapped fetcher.
// Cache failures degrade to a direct fetch.
type cachedFetcher struct {
	next        Fetcher
	redis       adapter.RedisClient
	jcs         adapter.JCS
	ttl         time.Duration
	ipfsGateway string
}

// NewCachedFetcher wraps next with a redis-backed document cache
func NewCachedFetcher(next Fetcher, redis adapter.RedisClient, jcs adapter.JCS, ttl time.Duration, ipfsGateway string) Fetcher {
	if ipfsGateway == "" {
		ipfsGateway = domain.DEFAULT_IPFS_GATEWAY
	}
	return &cachedFetcher{
		next:        next,
		redis:       redis,
		jcs:         jcs,
		ttl:         ttl,
		ipfsGateway: ipfsGateway,
	}
}

func (c *cachedFetcher) Fetch(ctx context.Context, uri string) (*domain.MetadataDocument, error) {
	// Inline documents are cheaper to decode than to look up
	if strings.HasPrefix(uri, "data:") {
		return c.next.Fetch(ctx, uri)
	}

	key := cacheKey(uri)
	cached, err := c.redis.Get(ctx, key)
	switch {
	case err == nil:
		doc, parseErr := parseDocument(cached, c.ipfsGateway)
		if parseErr == nil {
			doc.Hash, _ = hashDocument(c.jcs, cached)
			logger.DebugCtx(ctx, "metadata cache hit", zap.String("uri", uri))
			return doc, nil
		}
		logger.WarnCtx(ctx, "discarding undecodable cached metadata", zap.String("uri", uri), zap.Error(parseErr))
	case !errors.Is(err, adapter.ErrCacheMiss):
		logger.WarnCtx(ctx, "metadata cache unavailable", zap.String("uri", uri), zap.Error(err))
	}

	doc, err := c.next.Fetch(ctx, uri)
	if err != nil {
		return nil, err
	}

	if len(doc.Raw) > 0 {
		if err := c.redis.Set(ctx, key, doc.Raw, c.ttl); err != nil {
			logger.WarnCtx(ctx, "failed to cache metadata", zap.String("uri", uri), zap.Error(err))
		}
	}

	return doc, nil
}

func cacheKey(uri string) string {
	sum := sha256.Sum256([]byte(uri))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}
