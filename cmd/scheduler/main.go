// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carterperez-dev/printshop/internal/auth"
	"github.com/carterperez-dev/printshop/internal/config"
	"github.com/carterperez-dev/printshop/internal/core"
	"github.com/carterperez-dev/printshop/internal/notify"
	"github.com/carterperez-dev/printshop/internal/printjob"
	"github.com/carterperez-dev/printshop/internal/report"
	"github.com/carterperez-dev/printshop/internal/storage"
	"github.com/carterperez-dev/printshop/internal/user"
)

const tokenGrace = 24 * time.Hour

type jobs struct {
	reports   *report.Service
	mailer    notify.Sender
	admins    report.Recipients
	tokens    auth.Repository
	printJobs *printjob.Service
	logger    *slog.Logger
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	once := flag.Bool("once", false, "run the daily jobs for today and exit")
	purge := flag.Bool("purge", false, "also purge print jobs older than the retention window")
	flag.Parse()

	if err := run(*configPath, *once, *purge); err != nil {
		slog.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, once, purge bool) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := core.NewLogger(cfg.Log)
	slog.SetDefault(logger)

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // process is exiting

	loc := cfg.Report.Location()

	j := &jobs{
		reports: report.NewService(report.NewRepository(db.DB), cfg.Report.TopN, loc, logger),
		mailer:  notify.NewMailer(cfg.SMTP),
		admins:  user.NewService(user.NewRepository(db.DB), logger),
		tokens:  auth.NewRepository(db.DB),
		logger:  logger,
	}

	if purge {
		blobs, err := storage.New(cfg.Storage)
		if err != nil {
			return err
		}
		j.printJobs = printjob.NewService(printjob.NewRepository(db.DB), blobs, logger)
	}

	if once {
		j.run(ctx, time.Now())
		return nil
	}

	logger.Info("scheduler started",
		"daily_at", cfg.Report.DailyAt,
		"timezone", loc.String(),
		"purge", purge,
	)

	for {
		next, err := report.NextRun(time.Now(), cfg.Report.DailyAt, loc)
		if err != nil {
			return err
		}
		logger.Info("next run scheduled", "at", next)

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info("scheduler stopped")
			return nil
		case fired := <-timer.C:
			j.run(ctx, fired)
		}
	}
}

// run executes every daily job. A failing job is logged and does not stop
// the others.
func (j *jobs) run(ctx context.Context, now time.Time) {
	snap, err := j.reports.RunDaily(ctx, now, j.mailer, j.admins)
	switch {
	case err != nil && snap != nil:
		j.logger.Error("daily report stored but not delivered", "report_id", snap.ID, "error", err)
	case err != nil:
		j.logger.Error("daily report failed", "error", err)
	default:
		j.logger.Info("daily report done", "report_id", snap.ID)
	}

	n, err := j.tokens.DeleteExpired(ctx, now.Add(-tokenGrace))
	if err != nil {
		j.logger.Error("prune refresh tokens failed", "error", err)
	} else {
		j.logger.Info("pruned refresh tokens", "deleted", n)
	}

	if j.printJobs == nil {
		return
	}
	res, err := j.printJobs.Purge(ctx, printjob.DefaultRetentionDays)
	if err != nil {
		j.logger.Error("print job purge failed", "error", err)
		return
	}
	j.logger.Info("print jobs purged",
		"removed", res.Removed,
		"storage_failures", res.StorageFailures,
	)
}
