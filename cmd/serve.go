package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/job-alerts/internal/api"
	"github.com/maxaizer/job-alerts/internal/broker"
	"github.com/maxaizer/job-alerts/internal/config"
	"github.com/maxaizer/job-alerts/internal/logger"
	"github.com/maxaizer/job-alerts/internal/metrics"
	"github.com/maxaizer/job-alerts/internal/repositories"
	"github.com/maxaizer/job-alerts/internal/services"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the notification worker",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		serve(cfg)
		return nil
	},
}

func runWorker(ctx context.Context, cfg *config.Config, conn *broker.Connection, bus EventBus.Bus,
	dbContext *repositories.DbContext) *broker.Consumer {

	notifier, err := services.NewNotifier(
		repositories.NewCandidatesRepository(dbContext.DB),
		repositories.NewMailboxRepository(dbContext.DB),
		cfg.Notifier.ContextMaxLength,
		cfg.Notifier.CandidatesPageSize,
	)
	if err != nil {
		log.Fatalf("can't create notifier: %v", err)
	}

	consumer, err := broker.NewConsumer(conn, bus, cfg.Broker, notifier,
		repositories.NewFailedDeliveriesRepository(dbContext.DB))
	if err != nil {
		log.Fatalf("can't create consumer: %v", err)
	}

	if err = consumer.Start(ctx); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeBroker).
			Errorf("notification worker not started, notifications are unavailable: %v", err)
	}
	return consumer
}

func serve(cfg *config.Config) {

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Setup(cfg.Logger)
	defer logger.Cleanup()

	metrics.StartMetricsServer(cfg.Server.MetricsAddress)

	dbContext, err := repositories.NewDbContext(cfg.DB.ConnectionString)
	if err != nil {
		log.Fatalf("can't create db context: %v", err)
	}
	defer dbContext.Close()

	if err = dbContext.Migrate(); err != nil {
		log.Fatalf("can't migrate db context: %v", err)
	}

	bus := EventBus.New()

	conn := broker.NewConnection(cfg.Broker, bus)
	defer conn.Close()

	publisher := broker.NewPublisher(conn, cfg.Broker.Subject)
	publisher.SetRateLimit(cfg.Broker.MaxPublishesPerSecond)
	if err = publisher.SubscribeToJobCreated(bus); err != nil {
		log.Fatalf("can't subscribe publisher: %v", err)
	}

	consumer := runWorker(ctx, cfg, conn, bus, dbContext)

	cleaner, err := services.NewDeadLettersCleaner(
		repositories.NewFailedDeliveriesRepository(dbContext.DB), cfg.Notifier.DeadLetterExpirationDays)
	if err != nil {
		log.Fatalf("can't create dead letters cleaner: %v", err)
	}
	defer cleaner.Stop()

	filters := services.NewFilters(
		repositories.NewSettingsRepository(dbContext.DB),
		repositories.NewMailboxRepository(dbContext.DB),
	)
	server := api.NewServer(filters, bus)
	go func() {
		if err := server.Listen(cfg.Server.Address); err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeHttp).Errorf("http server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down services...")
	consumer.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err = server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("http server shutdown: %v", err)
	}
	bus.WaitAsync()
	log.Info("Services stopped.")
}
