// Package quota enforces the per-caller daily analysis ceiling.
//
// Counters are keyed by (scope, local calendar date), so the reset happens at
// local-date rollover rather than 24h after first use. Only a forward call to
// the judgment stage consumes quota; cache hits never touch the guard.
package quota

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/contextlens/core/internal/pkg/kv"
	"go.uber.org/zap"
)

const (
	keyPrefix = "cl:quota:"
	// counterTTL keeps dead counters from accumulating. Two days covers any
	// timezone skew around midnight; correctness comes from the date key.
	counterTTL = 48 * time.Hour
)

// Guard counts analysis calls per scope per local calendar day.
type Guard struct {
	store  kv.Store
	limit  int
	logger *zap.Logger
	now    func() time.Time
}

// New creates a Guard with the given daily ceiling.
func New(store kv.Store, limit int, logger *zap.Logger) *Guard {
	return &Guard{store: store, limit: limit, logger: logger, now: time.Now}
}

// SetClock overrides the time source. Test hook.
func (g *Guard) SetClock(now func() time.Time) { g.now = now }

// Limit returns the configured daily ceiling.
func (g *Guard) Limit() int { return g.limit }

func (g *Guard) key(scope string) string {
	return fmt.Sprintf("%s%s:%s", keyPrefix, scope, g.now().Format("2006-01-02"))
}

// Allow consumes one unit of quota for scope if any remains. At the ceiling it
// returns false without incrementing further.
//
// Failure policy: if the counter store is unreachable the guard is permissive
// (the read failure is treated as "not yet counted today"). A stuck store must
// not take the analysis surface down with it; the burst rate limiter still
// bounds abuse.
func (g *Guard) Allow(ctx context.Context, scope string) bool {
	key := g.key(scope)

	raw, err := g.store.Get(ctx, key)
	if err != nil {
		g.logger.Warn("quota store read failed, allowing request", zap.String("scope", scope), zap.Error(err))
		return true
	}
	count, _ := strconv.Atoi(raw)
	if count >= g.limit {
		return false
	}

	n, err := g.store.Incr(ctx, key)
	if err != nil {
		g.logger.Warn("quota store incr failed, allowing request", zap.String("scope", scope), zap.Error(err))
		return true
	}
	if n == 1 {
		if err := g.store.Expire(ctx, key, counterTTL); err != nil {
			g.logger.Warn("quota counter expire failed", zap.String("scope", scope), zap.Error(err))
		}
	}
	// Two callers can race past the read check; the counter may overshoot the
	// ceiling by the number of concurrent requests, never by more.
	return n <= int64(g.limit)
}

// Remaining reports how many calls scope has left today without consuming any.
func (g *Guard) Remaining(ctx context.Context, scope string) int {
	raw, err := g.store.Get(ctx, g.key(scope))
	if err != nil {
		g.logger.Warn("quota store read failed", zap.String("scope", scope), zap.Error(err))
		return g.limit
	}
	count, _ := strconv.Atoi(raw)
	remaining := g.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// ResetsAt returns the next local-midnight rollover.
func (g *Guard) ResetsAt() time.Time {
	now := g.now()
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
}
