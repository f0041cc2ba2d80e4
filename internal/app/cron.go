package app

import (
	"context"
	"errors"
	"time"

	"github.com/contextlens/core/internal/config"
	"github.com/contextlens/core/internal/pkg/alert"
	pkgcron "github.com/contextlens/core/internal/pkg/cron"
	"github.com/contextlens/core/internal/pkg/kv"
	"go.uber.org/zap"
)

// registerCronJobs registers all scheduled background jobs.
func registerCronJobs(sched *pkgcron.Scheduler, cfg *config.AppConfig, store kv.Store, alerts *alert.Service, logger *zap.Logger) {
	cronLogger := logger.Named("CronService")

	if mem, ok := store.(*kv.Memory); ok {
		sched.Register(pkgcron.Job{
			Name:        "sweep_memory_store",
			Description: "Evict expired quota counters and verdicts from the in-memory store",
			Interval:    30 * time.Minute,
			Fn: func(ctx context.Context) error {
				removed := mem.Sweep()
				if removed > 0 {
					cronLogger.Info("memory store sweep", zap.Int("removed", removed), zap.Int("remaining", mem.Len()))
				}
				return nil
			},
		})
	}

	sched.Register(pkgcron.Job{
		Name:        "check_ai_providers",
		Description: "Verify at least one judgment provider is enabled",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			for _, p := range cfg.AI.Providers {
				if p.Enabled && p.APIKey != "" {
					return nil
				}
			}
			cronLogger.Warn("no enabled AI provider, analysis will return fallback verdicts")
			alerts.ThrottlePush("no_ai_provider", "ContextLens", "No enabled AI provider configured; all analyses fall back.")
			return errors.New("no enabled AI provider")
		},
	})
}
