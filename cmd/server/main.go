package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rcarvalho-pb/payment_processor-go/internal/application/processing"
	"github.com/rcarvalho-pb/payment_processor-go/internal/config"
	"github.com/rcarvalho-pb/payment_processor-go/internal/domain/event"
	"github.com/rcarvalho-pb/payment_processor-go/internal/infra/logging"
	"github.com/rcarvalho-pb/payment_processor-go/internal/infra/metrics"
	"github.com/rcarvalho-pb/payment_processor-go/internal/infrastructure/eventbus"
	httpapi "github.com/rcarvalho-pb/payment_processor-go/internal/infrastructure/http"
	"github.com/rcarvalho-pb/payment_processor-go/internal/infrastructure/outbox"
	"github.com/rcarvalho-pb/payment_processor-go/internal/infrastructure/persistence/inmemory"
	"github.com/rcarvalho-pb/payment_processor-go/internal/infrastructure/persistence/postgres"
	"github.com/rcarvalho-pb/payment_processor-go/internal/infrastructure/persistence/sqlite"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	logger := &logging.StdoutLogger{}

	registry := prometheus.NewRegistry()
	counters := metrics.NewCounters(registry)

	var (
		store      processing.Store
		outboxRepo outbox.Repository
	)
	switch cfg.Backend {
	case "sqlite":
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			log.Fatal(err)
		}
		defer db.Close()
		if err := sqlite.RunMigrations(db); err != nil {
			log.Fatal(err)
		}
		store = sqlite.NewPaymentStore(db)
		outboxRepo = outbox.NewSQLiteRepository(db)

	case "postgres":
		if err := postgres.RunMigrations(cfg.PostgresDSN); err != nil {
			log.Fatal(err)
		}
		pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal(err)
		}
		defer pool.Close()
		store = postgres.NewPaymentStore(pool)
		outboxRepo = outbox.NewInMemoryRepository()

	default:
		store = inmemory.NewPaymentStore()
		outboxRepo = outbox.NewInMemoryRepository()
	}

	var publisher outbox.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := eventbus.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	} else {
		bus := eventbus.NewInMemoryBus()
		subscribeAuditLog(bus, logger)
		publisher = bus
	}

	dispatcher := &outbox.Dispatcher{
		Repo:         outboxRepo,
		EventBus:     publisher,
		Logger:       logger,
		PollInterval: time.Second,
		BatchSize:    100,
	}
	go dispatcher.Run(ctx)

	service := &processing.Service{
		Store:           store,
		Validator:       processing.NewValidator(cfg),
		Gateway:         &processing.RandomGateway{},
		Recorder:        &outbox.Recorder{Repo: outboxRepo},
		Logger:          logger,
		Metrics:         counters,
		ConflictRetries: cfg.ConflictRetries,
	}

	handler := &httpapi.PaymentHandler{Service: service}
	router := httpapi.NewRouter(handler, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	log.Printf("HTTP server running on %s (backend: %s)", cfg.HTTPAddr, cfg.Backend)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, router))
}

func subscribeAuditLog(bus *eventbus.InMemoryBus, logger logging.Logger) {
	for _, t := range []event.Type{
		event.PaymentCreated,
		event.PaymentCaptured,
		event.PaymentRefunded,
		event.PaymentFailed,
	} {
		bus.Subscribe(t, func(evt event.Event) error {
			logger.Info("event published", map[string]any{
				"event-type": string(evt.Type),
				"payload":    evt.Payload,
			})
			return nil
		})
	}
}
