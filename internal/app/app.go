package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/contextlens/core/internal/config"
	"github.com/contextlens/core/internal/middleware"
	"github.com/contextlens/core/internal/modules/analysis"
	"github.com/contextlens/core/internal/modules/capability/search"
	"github.com/contextlens/core/internal/modules/capability/vision"
	"github.com/contextlens/core/internal/modules/judgment"
	"github.com/contextlens/core/internal/pkg/alert"
	pkgcron "github.com/contextlens/core/internal/pkg/cron"
	"github.com/contextlens/core/internal/pkg/kv"
	"github.com/contextlens/core/internal/pkg/quota"
	pkgredis "github.com/contextlens/core/internal/pkg/redis"
	"github.com/contextlens/core/internal/pkg/verdictcache"
	"go.uber.org/zap"
)

// App holds all application dependencies.
type App struct {
	cfg    *config.AppConfig
	router *gin.Engine
	orch   *analysis.Orchestrator
	logger *zap.Logger
	cancel context.CancelFunc
	sched  *pkgcron.Scheduler
}

// New initializes the application: config → stores → adapters → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	applyRuntimeSettings(cfg, logger)

	var store kv.Store
	var rc *pkgredis.Client
	if cfg.RedisURL != "" {
		var err error
		rc, err = pkgredis.Connect(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		store = rc
	} else {
		logger.Warn("redis_url is empty, quota and verdict cache run in-memory")
		store = kv.NewMemory()
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Scope())

	alerts := alert.New(func() (string, string, string) {
		return cfg.Alert.Key, cfg.Alert.ServerURL, cfg.Alert.Title
	})
	if rc != nil {
		router.Use(middleware.RateLimit(rc.Raw(), alerts))
	}

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-Id"},
		AllowCredentials: true,
	}
	if len(cfg.AllowedOrigins) > 0 && !cfg.IsDev() {
		patterns := cfg.AllowedOrigins
		corsConfig.AllowOriginFunc = func(origin string) bool {
			host := extractOriginHost(origin)
			for _, pattern := range patterns {
				if matchOriginPattern(pattern, host) {
					return true
				}
			}
			return false
		}
	} else {
		corsConfig.AllowOriginFunc = func(origin string) bool { return true }
	}
	router.Use(cors.New(corsConfig))

	guard := quota.New(store, cfg.Quota.DailyLimit, logger)
	cache := verdictcache.New(store, cfg.Cache.TTL(), logger)
	visionClient := vision.New(vision.Config{
		Endpoint: cfg.Vision.Endpoint,
		APIKey:   cfg.Vision.APIKey,
		Model:    cfg.Vision.Model,
	}, logger)
	searchClient := search.New(search.Config{
		Endpoint:        cfg.Search.Endpoint,
		APIKey:          cfg.Search.APIKey,
		ResultCap:       cfg.Search.ResultCap,
		MinTextLen:      cfg.Search.MinTextLen,
		ExtraExclusions: cfg.Search.ExcludedDomains,
	}, logger)
	judge := judgment.New(cfg.AI, logger)

	orch := analysis.New(judge, visionClient, searchClient, cache, guard, alerts, logger)

	ctx, cancel := context.WithCancel(context.Background())

	sched := pkgcron.New()
	registerCronJobs(sched, cfg, store, alerts, logger)
	go sched.Start(ctx)

	app := &App{cfg: cfg, router: router, orch: orch, logger: logger, cancel: cancel, sched: sched}
	app.registerRoutes()

	return app, nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown cleans up background goroutines.
func (a *App) Shutdown() { a.cancel() }

var processStart = time.Now()
