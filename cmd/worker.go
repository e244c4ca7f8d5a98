package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fslarfn/toto-backend-sub000/config"
	"github.com/fslarfn/toto-backend-sub000/internal/database"
	"github.com/fslarfn/toto-backend-sub000/internal/repositories"
	"github.com/fslarfn/toto-backend-sub000/internal/services"
	"github.com/fslarfn/toto-backend-sub000/internal/tracing"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Start the background worker that deactivates expired subscriptions and sends renewal reminders`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close(db)

	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		tracer, _ = tracing.NewTracer(config.TracingConfig{})
	}
	defer tracer.Close()

	users := repositories.NewUserRepository(db, database.NewRetrier(cfg.DB.Retry))
	subscriptions := services.NewSubscriptionService(users, newSender(cfg), cfg.Subscription)

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return errors.Wrap(err, "failed to create scheduler")
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(cfg.Subscription.SweepInterval),
		gocron.NewTask(func() {
			runJob(ctx, tracer, "subscriptions.sweep", func(ctx context.Context) error {
				_, err := subscriptions.SweepExpired(ctx, time.Now())
				return err
			})
		}),
		gocron.WithName("subscriptions.sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return errors.Wrap(err, "failed to schedule expiry sweep")
	}

	_, err = scheduler.NewJob(
		gocron.CronJob(cfg.Subscription.ReminderCron, false),
		gocron.NewTask(func() {
			runJob(ctx, tracer, "subscriptions.reminders", func(ctx context.Context) error {
				_, err := subscriptions.SendReminders(ctx, time.Now())
				return err
			})
		}),
		gocron.WithName("subscriptions.reminders"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return errors.Wrap(err, "failed to schedule reminders")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().
			Dur("sweep_interval", cfg.Subscription.SweepInterval).
			Str("reminder_cron", cfg.Subscription.ReminderCron).
			Msg("Starting subscription scheduler")
		scheduler.Start()

		<-ctx.Done()
		return scheduler.Shutdown()
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}

// runJob wraps one scheduled run in a background transaction
func runJob(ctx context.Context, tracer tracing.Tracer, name string, job func(context.Context) error) {
	txn := tracer.StartTransaction(name)
	defer txn.End()
	ctx = newrelic.NewContext(ctx, txn)

	start := time.Now()
	if err := job(ctx); err != nil {
		txn.NoticeError(err)
		log.Error().Err(err).Str("job", name).Msg("Scheduled job failed")
		return
	}
	log.Info().Str("job", name).Dur("took", time.Since(start)).Msg("Scheduled job finished")
}
