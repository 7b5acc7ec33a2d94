package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"stampbot/internal/akashi"
	"stampbot/internal/attendance"
	"stampbot/internal/config"
	"stampbot/internal/logging"
	"stampbot/internal/refresh"
	"stampbot/internal/store"
)

// Worker reissues AKASHI tokens on a cron schedule, or once with --once.
func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Env, cfg.LogLevel)

	if err := run(cfg, logger, os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		logger.Fatal().Err(err).Msg("worker failed")
	}
}

func run(cfg config.App, logger zerolog.Logger, args []string) error {
	var (
		once     bool
		schedule string
	)
	flags := pflag.NewFlagSet("stampbot-worker", pflag.ContinueOnError)
	flags.BoolVar(&once, "once", false, "run a single refresh batch and exit")
	flags.StringVar(&schedule, "schedule", cfg.RefreshSchedule, "cron spec with seconds field, e.g. \"0 0 4 * * *\"")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := cfg.ValidateWorker(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db connect failed: %w", err)
	}
	defer db.Close()

	repo := attendance.NewRepository(db.Client)
	api := akashi.New(cfg.AkashiBaseURL, cfg.AkashiCompanyID, cfg.AkashiTimeout, cfg.Location(), logger)
	job := refresh.New(repo, api, logger, refresh.WithLookahead(cfg.RefreshLookahead))

	if once {
		_, err := job.Run(ctx)
		return err
	}

	c := cron.New(
		cron.WithLocation(cfg.Location()),
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(schedule, func() {
		jobCtx, cancel := context.WithTimeout(ctx, 30*time.Minute)
		defer cancel()
		if _, err := job.Run(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("refresh run failed")
		}
	}); err != nil {
		return fmt.Errorf("schedule %q: %w", schedule, err)
	}

	c.Start()
	logger.Info().Str("schedule", schedule).Msg("worker started")
	<-ctx.Done()

	logger.Info().Msg("shutdown signal received")
	<-c.Stop().Done()
	logger.Info().Msg("worker stopped")
	return nil
}
