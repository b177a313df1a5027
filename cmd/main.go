package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/rryowa/blog_auth/internal/api"
	"github.com/rryowa/blog_auth/internal/controller"
	"github.com/rryowa/blog_auth/internal/migrations"
	"github.com/rryowa/blog_auth/internal/service"
	"github.com/rryowa/blog_auth/internal/storage/postgres"
	"github.com/rryowa/blog_auth/internal/storage/redis"
	"github.com/rryowa/blog_auth/internal/util"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logger := util.NewZapLogger()

	db, dbCleanup, err := util.NewDBConnection(logger, util.NewDBConfig())
	if err != nil {
		logger.Fatalw("Failed to connect to database", "error", err)
	}
	if err := migrations.RunMigrations(db, logger); err != nil {
		logger.Fatalw("Failed to run migrations", "error", err)
	}

	redisClient, redisCleanup, err := util.NewRedisClient(logger, util.NewRedisConfig())
	if err != nil {
		logger.Fatalw("Failed to connect to redis", "error", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := service.NewMetrics(registry)

	tokenCfg := util.NewTokenConfig()
	lockoutCfg := util.NewLockoutConfig()
	sweeperCfg := util.NewSweeperConfig()

	storage := postgres.NewStorage(db)
	clock := service.NewSyncedClock(postgres.NewClock(db), sweeperCfg.ClockSyncInterval, logger)
	if err := clock.Sync(ctx); err != nil {
		logger.Fatalw("Failed to sync clock with database", "error", err)
	}
	logger.Infow("Clock synced with database", "offset", clock.Offset())

	codec := service.NewTokenCodec(tokenCfg)
	refreshTokens := service.NewRefreshTokens(storage, tokenCfg.RefreshTTL, logger)
	captchaService := service.NewCaptchaService(storage, util.NewCaptchaConfig(), logger)
	webhookService := service.NewWebhookService(logger, lockoutCfg.WebhookURL)
	lockout := service.NewLockout(
		redis.NewLockoutStorage(redisClient),
		service.DefaultPolicies(lockoutCfg),
		clock,
		metrics,
		webhookService,
		logger,
	)

	authService := service.NewAuthService(service.AuthDeps{
		Codec:          codec,
		RefreshTokens:  refreshTokens,
		Users:          storage,
		Lockout:        lockout,
		Captcha:        captchaService,
		Tickets:        redis.NewTicketStorage(redisClient),
		Clock:          clock,
		Metrics:        metrics,
		ResetTicketTTL: sweeperCfg.ResetTicketTTL,
	}, logger)
	contentService := service.NewContentService(authService, storage)

	sweeper := service.NewSweeper(sweeperCfg.Interval, refreshTokens, captchaService, clock, metrics, logger)
	sweeper.Start(ctx)

	ctrl := controller.NewController(logger, authService, captchaService, contentService, util.NewCookieConfig(tokenCfg.RefreshTTL))

	stopSweeper := func() {
		cancel()
		sweeper.Wait()
	}
	cleanupFuncs := []func(){stopSweeper, redisCleanup, dbCleanup}

	apiServer, err := api.NewAPI(ctrl, authService, registry, util.NewServerConfig(), logger, cleanupFuncs)
	if err != nil {
		logger.Fatalw("Failed to build API", "error", err)
	}
	apiServer.Run(ctx)
}
