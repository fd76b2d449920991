package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mcoot/triviapool/internal/api"
	"github.com/mcoot/triviapool/internal/config"
	"github.com/mcoot/triviapool/internal/factory"
	"github.com/mcoot/triviapool/internal/model"
	"github.com/mcoot/triviapool/internal/services/auth"
	"github.com/mcoot/triviapool/internal/services/settlement"
	redisstorage "github.com/mcoot/triviapool/internal/storage/redis"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	factoryCfg := factory.Config{
		Logger:        logger,
		StorageType:   cfg.StorageType,
		LedgerType:    cfg.LedgerType,
		SQLitePath:    cfg.SQLitePath,
		EventsChannel: cfg.EventsChannel,
		Admin:         model.Address(cfg.Admin),
		Escrow:        model.Address(cfg.Escrow),
		EntryFee:      model.Amount(cfg.EntryFee),
		AuthConfig: auth.Config{
			AdminKeyHash:    cfg.AdminKeyHash,
			SessionDuration: cfg.AuthTTL,
		},
		Settlement: settlement.Config{
			MaxAttempts:     cfg.RetryMaxAttempts,
			InitialInterval: cfg.RetryInitialInterval,
			MaxInterval:     cfg.RetryMaxInterval,
		},
	}

	if cfg.NeedsRedis() {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		factoryCfg.RedisConfig = &redisCfg
	}

	app, err := factory.New(factoryCfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	router := api.NewRouter(api.RouterConfig{
		Logger:            logger,
		AuthService:       app.AuthService,
		SessionController: app.SessionController,
		Ledger:            app.Ledger,
		HubManager:        app.HubManager,
		DevLedger:         cfg.DevLedger,
		CORSOrigins:       cfg.CORSOrigins,
	})

	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.Host
	serverConfig.Port = cfg.Port
	serverConfig.ShutdownTimeout = cfg.ShutdownTimeout
	server := api.NewServer(router, serverConfig, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(server.Start)

	g.Go(func() error {
		app.RunMaintenance(gctx, time.Minute)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		// Ends open event streams so Shutdown does not wait on them
		app.HubManager.Close()
		return server.Shutdown(context.Background())
	})

	logger.Info("server configured",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.StorageType),
		slog.String("ledger", cfg.LedgerType),
		slog.Bool("dev_ledger", cfg.DevLedger))

	exitCode := 0
	if err := g.Wait(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		exitCode = 1
	}

	if err := app.Close(); err != nil {
		logger.Error("close error", slog.String("error", err.Error()))
		exitCode = 1
	}

	logger.Info("server stopped")
	stop()
	os.Exit(exitCode)
}
