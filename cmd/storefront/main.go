package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/config"
	"github.com/vasiliy-maslov/storefront/internal/db"
	storefrontHttp "github.com/vasiliy-maslov/storefront/internal/handler/http"
	"github.com/vasiliy-maslov/storefront/internal/inventory"
	"github.com/vasiliy-maslov/storefront/internal/notify"
	"github.com/vasiliy-maslov/storefront/internal/order"
	"github.com/vasiliy-maslov/storefront/internal/payment"
	"github.com/vasiliy-maslov/storefront/internal/reporting"
)

func setupLogger(cfg config.AppConfig) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	log.Logger = log.With().Str("service", cfg.Name).Logger()
}

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	setupLogger(cfg.App)

	log.Info().Msg("Storefront starting...")

	if err := db.ApplyMigrations(cfg.Postgres); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 10*time.Second)
	pg, err := db.New(startCtx, cfg.Postgres)
	cancelStart()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pg.Close()

	var (
		sink  notify.Dispatcher = notify.LogDispatcher{}
		kafka *notify.KafkaDispatcher
	)
	if cfg.Kafka.Enabled {
		kafka = notify.NewKafkaDispatcher(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic, cfg.Kafka.AdminTopic)
		sink = kafka
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Msg("Publishing order notifications to Kafka")
	}
	orderRepo := order.NewRepository(pg.Pool)
	dispatcher := notify.NewAsync(notify.NewWithRecipient(orderRepo, sink), cfg.Notify.Timeout)

	transactor := db.NewTransactor(pg.Pool, db.TxOptions{
		MaxAttempts:     cfg.Tx.MaxAttempts,
		InitialInterval: cfg.Tx.InitialInterval,
	})

	orderSvc := order.NewService(
		transactor,
		orderRepo,
		inventory.NewLedger(),
		payment.NewBinder(),
		dispatcher,
	)
	paymentSvc := payment.NewService(payment.NewRepository(pg.Pool))
	reportingSvc := reporting.NewService(reporting.NewRepository(pg.SQLX()))

	router := storefrontHttp.NewRouter(storefrontHttp.HeaderAuthenticator{}, storefrontHttp.Handlers{
		Orders:   storefrontHttp.NewOrderHandler(orderSvc),
		Admin:    storefrontHttp.NewAdminHandler(orderSvc, reportingSvc),
		Payments: storefrontHttp.NewPaymentHandler(paymentSvc),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Shutdown failed")
	}

	// In-flight notifications finish before the broker connection goes away.
	if err := dispatcher.Wait(ctx); err != nil {
		log.Warn().Err(err).Msg("Pending notifications abandoned")
	}
	if kafka != nil {
		if err := kafka.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close Kafka writer")
		}
	}

	log.Info().Msg("Server stopped")
}
