package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/joho/godotenv"

	"toptours-server/internal/domain"
	"toptours-server/internal/infra"
	"toptours-server/internal/sqlinline"
)

// The worker is a safety net: allowance resets normally happen lazily on
// the first spend of the day, and analytics rollups are incremental.
// Both jobs are idempotent, so overlapping runs are harmless.
func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	clock := domain.SystemClock{Loc: cfg.ResetLocation()}

	sched, err := gocron.NewScheduler()
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: scheduler init failed")
	}

	_, err = sched.NewJob(
		gocron.DurationJob(cfg.SweepInterval),
		gocron.NewTask(func() {
			jobCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
			defer cancel()
			today := domain.CivilDate(clock.Now())
			tag, err := runner.Exec(jobCtx, sqlinline.QSweepStaleAllowances, today)
			if err != nil {
				logger.Error().Err(err).Msg("worker: allowance sweep failed")
				return
			}
			if n := tag.RowsAffected(); n > 0 {
				logger.Info().Int64("accounts", n).Msg("worker: refilled stale allowances")
			}
		}),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to schedule allowance sweep")
	}

	_, err = sched.NewJob(
		gocron.DurationJob(cfg.RollupInterval),
		gocron.NewTask(func() {
			jobCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
			defer cancel()
			// Roll up today and re-roll yesterday to catch late writes
			// around midnight.
			for _, day := range []time.Time{
				domain.CivilDate(clock.Now()),
				domain.CivilDate(clock.Now().AddDate(0, 0, -1)),
			} {
				if _, err := runner.Exec(jobCtx, sqlinline.QRollupDailyAnalytics, day); err != nil {
					logger.Error().Err(err).Str("day", day.Format("2006-01-02")).Msg("worker: analytics rollup failed")
				}
			}
		}),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to schedule analytics rollup")
	}

	sched.Start()
	logger.Info().
		Dur("sweep_interval", cfg.SweepInterval).
		Dur("rollup_interval", cfg.RollupInterval).
		Msg("worker started")

	<-ctx.Done()

	if err := sched.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("worker: scheduler shutdown failed")
	}
	logger.Info().Msg("worker stopped")
}
