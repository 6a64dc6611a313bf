package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/bookstore/ledger/internal/config"
	"github.com/bookstore/ledger/internal/db"
	"github.com/bookstore/ledger/internal/events"
	grpcserver "github.com/bookstore/ledger/internal/grpc"
	"github.com/bookstore/ledger/internal/httpapi"
	"github.com/bookstore/ledger/internal/ledger"
	"github.com/bookstore/ledger/internal/metrics"
	"github.com/bookstore/ledger/internal/repo"
	"github.com/bookstore/ledger/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log := logger.NewLogger(cfg.ServiceName, cfg.LogLevel)
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("Ledger service stopped with error", zap.Error(err))
	}
	log.Info("Server stopped")
}

func run(cfg *config.Config, log *zap.Logger) error {
	log.Info("Ledger service starting",
		zap.String("http_port", cfg.HTTPPort),
		zap.String("grpc_port", cfg.GRPCPort),
	)

	store := ledger.New()
	opts := httpapi.Options{Metrics: metrics.New()}

	var (
		journalPinger grpcserver.Pinger
		brokerHealth  grpcserver.BrokerHealth
	)

	// Open the audit journal
	if cfg.JournalEnabled() {
		journal, database, err := openJournal(cfg, log)
		if err != nil {
			log.Warn("Journal unavailable, audit trail disabled", zap.Error(err))
		} else {
			defer database.Close()
			opts.Journal = journal
			journalPinger = journal
		}
	}

	// Connect to RabbitMQ
	if cfg.EventsEnabled() {
		publisher, err := events.NewPublisher(cfg.RabbitMQURL, log)
		if err != nil {
			log.Warn("RabbitMQ unavailable, events disabled", zap.Error(err))
		} else {
			defer publisher.Close()
			opts.Publisher = publisher
			brokerHealth = publisher
		}
	}

	health := grpcserver.NewHealthServer(journalPinger, brokerHealth, log)
	opts.Health = health

	api := httpapi.NewServer(store, log, opts)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      api.Routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	grpcServer := grpcserver.NewServer(health, log)
	grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
	if err != nil {
		return fmt.Errorf("failed to listen on gRPC port: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Starting HTTP server", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve HTTP: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info("Starting gRPC server", zap.String("address", grpcListener.Addr().String()))
		if err := grpcServer.Serve(grpcListener); err != nil {
			return fmt.Errorf("failed to serve gRPC: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		err := httpServer.Shutdown(shutdownCtx)
		if err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}
		grpcServer.GracefulStop()

		// Let in-flight event publishes finish before the broker connection closes
		api.Wait()
		return err
	})

	return g.Wait()
}

func openJournal(cfg *config.Config, log *zap.Logger) (*repo.JournalRepository, *db.DB, error) {
	log.Info("Connecting to journal", zap.String("driver", cfg.JournalDriver))
	database, err := db.Connect(cfg.JournalDriver, cfg.JournalDSN)
	if err != nil {
		return nil, nil, err
	}

	if err := db.RunMigrations(database); err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo.NewJournalRepository(database, log), database, nil
}
