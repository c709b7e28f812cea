package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sheikh-saqib/escrow-ledger/internal/api"
	"github.com/sheikh-saqib/escrow-ledger/internal/config"
	"github.com/sheikh-saqib/escrow-ledger/internal/events/kafka"
	interfaces "github.com/sheikh-saqib/escrow-ledger/internal/interfaces"
	"github.com/sheikh-saqib/escrow-ledger/internal/ledger"
	"github.com/sheikh-saqib/escrow-ledger/internal/lock"
	"github.com/sheikh-saqib/escrow-ledger/internal/logging"
	"github.com/sheikh-saqib/escrow-ledger/internal/storage/memory"
	"github.com/sheikh-saqib/escrow-ledger/internal/storage/postgres"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	var store interfaces.AccountStore = memory.NewMemoryAccountStore()
	if cfg.Store == config.StorePostgres {
		db, err := postgres.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
		store = postgres.NewPostgresAccountStore(db)
	}

	opts := []ledger.Option{
		ledger.WithLogger(logger),
		ledger.WithRent(cfg.Rent()),
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer client.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return err
		}
		logger.Info("redis connected", zap.String("addr", cfg.RedisAddr))
		opts = append(opts, ledger.WithLocker(lock.NewRedis(client, cfg.LockTTL, logger)))
	}

	if len(cfg.KafkaBrokers) > 0 {
		publisher := kafka.NewPublisher(cfg.KafkaBrokers)
		defer publisher.Close()
		opts = append(opts, ledger.WithPublisher(publisher, cfg.KafkaTopic))
	}

	ledgerService := ledger.NewLedger(store, opts...)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewHandler(ledgerService, logger, cfg.AirdropEnabled).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("store", cfg.Store),
			zap.Bool("airdrop", cfg.AirdropEnabled),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
