// Package verdictcache is the content-addressed verdict store.
//
// Keys are text fingerprints, deliberately ignoring author, media, and
// comments: two posts quoting the same text share one cached verdict. Entries
// older than the TTL are evicted on read and reported absent; a read before
// expiry is the only freshness guarantee. Store failures degrade to
// always-absent so every request becomes a live computation instead of an
// error.
package verdictcache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/contextlens/core/internal/models"
	"github.com/contextlens/core/internal/pkg/kv"
	"go.uber.org/zap"
)

const (
	deepPrefix  = "cl:verdict:deep:"
	quickPrefix = "cl:verdict:quick:"

	// DefaultTTL bounds verdict staleness at one day.
	DefaultTTL = 24 * time.Hour
)

type entry struct {
	StoredAt time.Time       `json:"storedAt"`
	Verdict  json.RawMessage `json:"verdict"`
}

// Cache stores verdicts keyed by content fingerprint.
type Cache struct {
	store  kv.Store
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// New creates a Cache. ttl <= 0 selects DefaultTTL.
func New(store kv.Store, ttl time.Duration, logger *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{store: store, ttl: ttl, logger: logger, now: time.Now}
}

// SetClock overrides the time source. Test hook.
func (c *Cache) SetClock(now func() time.Time) { c.now = now }

func (c *Cache) get(ctx context.Context, key string, out interface{}) bool {
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("verdict cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if raw == "" {
		return false
	}

	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		c.logger.Warn("verdict cache entry corrupt, evicting", zap.String("key", key), zap.Error(err))
		_ = c.store.Del(ctx, key)
		return false
	}
	// The backing store expires keys on its own; the storedAt guard makes that
	// behavior explicit and covers stores whose expiry lags.
	if c.now().Sub(e.StoredAt) >= c.ttl {
		_ = c.store.Del(ctx, key)
		return false
	}
	if err := json.Unmarshal(e.Verdict, out); err != nil {
		_ = c.store.Del(ctx, key)
		return false
	}
	return true
}

func (c *Cache) put(ctx context.Context, key string, verdict interface{}) {
	raw, err := json.Marshal(verdict)
	if err != nil {
		c.logger.Warn("verdict cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}
	data, _ := json.Marshal(entry{StoredAt: c.now(), Verdict: raw})
	// Last writer for a fingerprint wins; concurrent writers hold verdicts for
	// identical text, so either result is acceptable.
	if err := c.store.Set(ctx, key, string(data), c.ttl); err != nil {
		c.logger.Warn("verdict cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// GetDeep returns the cached deep verdict for a fingerprint, if fresh.
func (c *Cache) GetDeep(ctx context.Context, fp string) (*models.DeepVerdict, bool) {
	var v models.DeepVerdict
	if !c.get(ctx, deepPrefix+fp, &v) {
		return nil, false
	}
	return &v, true
}

// PutDeep stores a deep verdict under a fingerprint.
func (c *Cache) PutDeep(ctx context.Context, fp string, v *models.DeepVerdict) {
	c.put(ctx, deepPrefix+fp, v)
}

// GetQuick returns the cached quick verdict for a fingerprint, if fresh.
func (c *Cache) GetQuick(ctx context.Context, fp string) (*models.QuickVerdict, bool) {
	var v models.QuickVerdict
	if !c.get(ctx, quickPrefix+fp, &v) {
		return nil, false
	}
	return &v, true
}

// PutQuick stores a quick verdict under a fingerprint.
func (c *Cache) PutQuick(ctx context.Context, fp string, v *models.QuickVerdict) {
	c.put(ctx, quickPrefix+fp, v)
}
