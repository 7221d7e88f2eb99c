// cmd/scheduler/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/agrilink/agrilink-backend/internal/config"
	"github.com/agrilink/agrilink-backend/internal/database"
	"github.com/agrilink/agrilink-backend/internal/logging"
	"github.com/agrilink/agrilink-backend/internal/services"
)

// sweepTimeout bounds a single overdue sweep.
const sweepTimeout = 10 * time.Minute

type sweeper interface {
	Sweep(ctx context.Context) (*services.SweepResult, error)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	logging.Setup(cfg)

	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize database")
	}
	defer database.Close(db)

	notifier := services.NewNotificationService(cfg)
	loans := services.NewLoanService(db, notifier)
	overdue := services.NewOverdueService(db, cfg.Loan, loans)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := newScheduler()
	if err := scheduleSweep(ctx, c, cfg.Loan.OverdueSweepSchedule, overdue); err != nil {
		logrus.WithError(err).WithField("schedule", cfg.Loan.OverdueSweepSchedule).Fatal("Invalid overdue sweep schedule")
	}

	c.Start()
	logrus.WithField("schedule", cfg.Loan.OverdueSweepSchedule).Info("Scheduler started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down scheduler...")
	cancel()
	<-c.Stop().Done()
	logrus.Info("Scheduler stopped")
}

// newScheduler parses six-field specs and never overlaps runs of one job.
func newScheduler() *cron.Cron {
	logger := cron.PrintfLogger(logrus.StandardLogger())
	return cron.New(
		cron.WithSeconds(),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
}

func scheduleSweep(ctx context.Context, c *cron.Cron, spec string, s sweeper) error {
	_, err := c.AddFunc(spec, func() {
		runSweep(ctx, s)
	})
	return err
}

func runSweep(ctx context.Context, s sweeper) {
	if ctx.Err() != nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	start := time.Now()
	result, err := s.Sweep(ctx)
	if err != nil {
		logrus.WithError(err).Error("Overdue sweep failed")
		return
	}

	logrus.WithFields(logrus.Fields{
		"marked_overdue": result.MarkedOverdue,
		"defaulted":      result.Defaulted,
		"failed":         result.Failed,
		"duration_ms":    time.Since(start).Milliseconds(),
	}).Info("Overdue sweep completed")
}
