package availability

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wolfman30/soonest-slot/internal/meevo"
	"github.com/wolfman30/soonest-slot/internal/observability/metrics"
	"github.com/wolfman30/soonest-slot/pkg/logging"
)

const (
	// DefaultTokenRefreshMargin is how long before expiry a cached token stops being used.
	DefaultTokenRefreshMargin = 5 * time.Minute

	// refreshTimeout bounds a shared fetch, which runs detached from any one caller.
	refreshTimeout = 30 * time.Second
)

// TokenSource performs the provider's credential exchange.
type TokenSource interface {
	FetchToken(ctx context.Context) (meevo.Token, error)
}

// TokenCache holds one bearer token and refreshes it ahead of expiry.
type TokenCache struct {
	source  TokenSource
	margin  time.Duration
	now     func() time.Time
	metrics *metrics.AvailabilityMetrics
	logger  *logging.Logger

	current atomic.Pointer[meevo.Token]
	group   singleflight.Group
}

func NewTokenCache(source TokenSource, margin time.Duration, m *metrics.AvailabilityMetrics, logger *logging.Logger) *TokenCache {
	if margin <= 0 {
		margin = DefaultTokenRefreshMargin
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &TokenCache{
		source:  source,
		margin:  margin,
		now:     time.Now,
		metrics: m,
		logger:  logger,
	}
}

// Get returns a usable token, fetching a new one when none is cached or the
// cached one is within the refresh margin. Concurrent refreshes share one fetch,
// and a caller giving up does not cancel it for the others.
func (c *TokenCache) Get(ctx context.Context) (string, error) {
	if tok, ok := c.cached(); ok {
		return tok, nil
	}

	ch := c.group.DoChan("token", func() (interface{}, error) {
		// another caller may have refreshed while we waited
		if tok, ok := c.cached(); ok {
			return tok, nil
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		fresh, err := c.source.FetchToken(fetchCtx)
		c.metrics.ObserveTokenFetch(err == nil)
		if err != nil {
			return "", fmt.Errorf("availability: fetch token: %w", err)
		}
		c.current.Store(&fresh)
		c.logger.Info("meevo token refreshed", "expires_at", fresh.ExpiresAt)
		return fresh.AccessToken, nil
	})
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("availability: wait for token: %w", ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return "", r.Err
		}
		return r.Val.(string), nil
	}
}

// Invalidate drops the cached token so the next Get re-authenticates.
func (c *TokenCache) Invalidate() {
	c.current.Store(nil)
}

func (c *TokenCache) cached() (string, bool) {
	tok := c.current.Load()
	if tok == nil || tok.AccessToken == "" {
		return "", false
	}
	if !c.now().Before(tok.ExpiresAt.Add(-c.margin)) {
		return "", false
	}
	return tok.AccessToken, true
}
