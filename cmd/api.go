package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fslarfn/toto-backend-sub000/config"
	"github.com/fslarfn/toto-backend-sub000/internal/api"
	"github.com/fslarfn/toto-backend-sub000/internal/auth"
	"github.com/fslarfn/toto-backend-sub000/internal/database"
	"github.com/fslarfn/toto-backend-sub000/internal/events"
	"github.com/fslarfn/toto-backend-sub000/internal/messaging"
	"github.com/fslarfn/toto-backend-sub000/internal/notify"
	"github.com/fslarfn/toto-backend-sub000/internal/realtime"
	"github.com/fslarfn/toto-backend-sub000/internal/repositories"
	"github.com/fslarfn/toto-backend-sub000/internal/search"
	"github.com/fslarfn/toto-backend-sub000/internal/services"
	"github.com/fslarfn/toto-backend-sub000/internal/tracing"
)

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long:  `Start the HTTP API server with the realtime websocket hub`,
	RunE:  runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
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

	instance := uuid.New().String()

	// Cross-instance relay
	var relay realtime.Relay
	redisRelay, err := newRedisRelay(cfg, instance)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis relay, realtime stays local to this instance")
	}
	if redisRelay != nil {
		relay = redisRelay
		defer redisRelay.Close()
	}

	hub := realtime.NewHub(realtime.Options{Relay: relay})

	sinks := []events.Sink{hub}
	if cfg.Elastic.Enabled {
		elasticClient, err := search.NewElasticClient(cfg.Elastic)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without search indexing")
		} else {
			sinks = append(sinks, elasticClient)
		}
	}
	if cfg.Azure.QueueConnStr != "" {
		busClient, err := messaging.NewServiceBusClient(cfg.Azure)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize Azure Service Bus, continuing without change feed")
		} else {
			feed := messaging.NewChangeFeed(busClient, "toto-api")
			sinks = append(sinks, feed)
			defer feed.Close()
		}
	}
	publisher := events.NewFanout(sinks...)

	retry := database.NewRetrier(cfg.DB.Retry)
	orders := repositories.NewWorkOrderRepository(db, retry)
	notes := repositories.NewDeliveryNoteRepository(db, retry)
	users := repositories.NewUserRepository(db, retry)
	issuer := auth.NewIssuer(cfg.Auth)

	server := api.NewServer(cfg, api.Dependencies{
		WorkOrders:    services.NewWorkOrderService(orders, publisher, tracer, cfg.Grid),
		DeliveryNotes: services.NewDeliveryNoteService(notes, publisher, tracer),
		Auth:          services.NewAuthService(users, issuer),
		Subscriptions: services.NewSubscriptionService(users, newSender(cfg), cfg.Subscription),
		Hub:           hub,
		Verifier:      issuer,
		Tracer:        tracer,
	})

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(ctx)
	})
	if redisRelay != nil {
		g.Go(func() error {
			return redisRelay.Run(ctx, hub)
		})
	}
	g.Go(func() error {
		return server.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		hub.Close()
		return server.Shutdown(context.Background())
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("API server error")
		return err
	}

	log.Info().Msg("Shutting down API server")
	return nil
}

func newRedisRelay(cfg config.Config, instance string) (*realtime.RedisRelay, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	return realtime.NewRedisRelay(cfg.Redis, instance)
}

// newSender returns the WhatsApp gateway, or nil when no token is configured
func newSender(cfg config.Config) notify.Sender {
	if cfg.WhatsApp.Token == "" {
		log.Warn().Msg("WhatsApp token not configured, subscription reminders are disabled")
		return nil
	}
	client, err := notify.NewWhatsAppClient(cfg.WhatsApp)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize WhatsApp client")
		return nil
	}
	return client
}
