package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"stampbot/internal/akashi"
	"stampbot/internal/attendance"
	"stampbot/internal/auth"
	"stampbot/internal/config"
	"stampbot/internal/dedupe"
	"stampbot/internal/handler"
	"stampbot/internal/httpmiddleware"
	"stampbot/internal/logging"
	"stampbot/internal/metrics"
	"stampbot/internal/refresh"
	"stampbot/internal/slackapi"
	"stampbot/internal/store"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Env, cfg.LogLevel)

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("http server failed")
	}
}

func runHTTP(cfg config.App, logger zerolog.Logger) error {
	if err := cfg.ValidateAPI(); err != nil {
		return err
	}

	ctx := context.Background()
	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	health := map[string]handler.HealthChecker{"db": db}

	var guard dedupe.Guard
	if cfg.DedupeBackend == "redis" {
		redisClient, err := store.NewRedis(cfg.RedisAddr)
		if err != nil {
			return err
		}
		if redisClient == nil {
			return errors.New("DEDUPE_BACKEND=redis requires REDIS_ADDR")
		}
		defer redisClient.Close()
		guard = dedupe.NewRedis(redisClient.Client, "stampbot:dedupe:", cfg.DedupeTTL)
		health["redis"] = redisClient
	} else {
		guard = dedupe.NewInMemory(cfg.DedupeTTL)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	repo := attendance.NewRepository(db.Client)
	api := akashi.New(cfg.AkashiBaseURL, cfg.AkashiCompanyID, cfg.AkashiTimeout, cfg.Location(), logger)
	att := attendance.NewService(repo, api)
	job := refresh.New(repo, api, logger, refresh.WithLookahead(cfg.RefreshLookahead), refresh.WithMetrics(m))

	h := handler.New(handler.Deps{
		Attendance: att,
		Chat:       slackapi.New(cfg.SlackBotToken),
		Guard:      guard,
		Tokens:     repo,
		Refresher:  job,
		Health:     health,
		Metrics:    m,
		Log:        logger,
		ChannelID:  cfg.SlackChannelID,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(logger, "/healthz", "/metrics"))
	r.Use(securityHeaders())

	r.GET("/", h.Root)
	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limiter := httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	slackGroup := r.Group("/",
		httpmiddleware.SlackSignature(cfg.SlackSigningSecret),
		limiter.GinMiddleware(httpmiddleware.SlackUserKey),
	)
	slackGroup.POST("/slash", h.Slash)
	slackGroup.POST("/actions", h.Actions)

	admin := r.Group("/admin", auth.AdminAuth(cfg.JWTSigningKey, cfg.JWTIssuer))
	admin.GET("/tokens", h.AdminTokens)
	admin.POST("/refresh", h.AdminRefresh)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced shutdown")
	}

	logger.Info().Msg("server exited")
	return nil
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
