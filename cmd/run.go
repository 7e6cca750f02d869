package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"casino/api"
	"casino/bot"
	"casino/config"
	"casino/database"
	"casino/events"
	"casino/observability"
	"casino/repository"
	"casino/repository/sqlitestore"
	"casino/service"

	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const minesSweepInterval = time.Minute

// store bundles the unit of work factory with its lifecycle hooks
type store struct {
	factory service.UnitOfWorkFactory
	ping    api.HealthCheck
	close   func()
}

// ConfigureLogging applies the configured level and formatter to logrus
func ConfigureLogging(cfg *config.Config) {
	log.SetOutput(os.Stdout)
	if strings.EqualFold(cfg.LogFormat, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warnf("Unknown LOG_LEVEL %q, using info", cfg.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

// Run initializes and starts the application
func Run(ctx context.Context) error {
	// Load configuration
	cfg := config.Get()
	ConfigureLogging(cfg)
	log.Info("Starting casino bot...")

	// Initialize event bus
	eventBus := events.NewBus()

	// Initialize ledger store
	log.WithField("driver", cfg.StoreDriver).Info("Opening ledger store...")
	st, err := openStore(ctx, cfg, eventBus)
	if err != nil {
		return err
	}
	defer st.close()
	log.Info("Ledger store ready")

	// Forward committed events to NATS when configured
	if cfg.NATSURL != "" {
		nc, err := events.ConnectNATS(cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer drainNATS(nc)
		events.NewNATSForwarder(nc).Attach(eventBus)
		log.WithField("url", cfg.NATSURL).Info("Forwarding events to NATS")
	}

	// Record committed events as metrics
	metrics, err := observability.NewMetricsProvider(ctx, observability.MetricsConfig{
		Exporter:       cfg.MetricsExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		ServiceName:    "casino",
		Environment:    cfg.Environment,
		ExportInterval: cfg.MetricsInterval(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	metrics.Attach(eventBus)

	// Initialize services
	log.Info("Initializing services...")
	economy := service.NewEconomyService(st.factory, service.EconomyConfig{
		Daily:         service.DailyPolicyFromConfig(cfg),
		RetryAttempts: cfg.StoreRetryAttempts,
	})
	if err := economy.LoadCache(ctx); err != nil {
		return fmt.Errorf("failed to load accounts: %w", err)
	}
	games := service.NewGameService(economy, nil, decimal.NewFromFloat(cfg.LimboMaxTarget))
	mines := service.NewMinesService(economy, nil, cfg.MinesSessionTTL(), nil)

	sweeper, err := mines.StartSweeper(minesSweepInterval)
	if err != nil {
		return err
	}
	log.Info("Services initialized successfully")

	// Start the admin API when an address is configured
	httpErr := make(chan error, 1)
	if cfg.HTTPAddr != "" {
		server := api.NewServer(economy, st.ping)
		go func() {
			httpErr <- server.ListenAndServe(ctx, cfg.HTTPAddr)
		}()
	}

	// Initialize Discord bot
	log.Info("Initializing Discord bot...")
	discordBot, err := bot.New(bot.Config{
		Token:   cfg.DiscordToken,
		GuildID: cfg.GuildID,
	}, economy, games, mines)
	if err != nil {
		_ = sweeper.Shutdown()
		return fmt.Errorf("failed to initialize Discord bot: %w", err)
	}
	log.Info("Discord bot initialized successfully")

	// Wait for context cancellation or a fatal API error
	log.Infof("Bot is running in %s mode...", cfg.Environment)
	select {
	case <-ctx.Done():
	case err := <-httpErr:
		if err != nil {
			log.WithError(err).Error("HTTP API stopped")
		}
		<-ctx.Done()
	}

	log.Info("Shutting down bot...")
	if err := discordBot.Close(); err != nil {
		log.Errorf("Error closing Discord bot: %v", err)
	}

	// Sessions are in memory only, so settle every open game before the store closes
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sweeper.Shutdown(); err != nil {
		log.Errorf("Error stopping mines sweeper: %v", err)
	}
	mines.SettleAll(shutdownCtx)

	if err := metrics.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Error flushing metrics: %v", err)
	}

	log.Info("Shutdown completed")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, eventBus *events.Bus) (*store, error) {
	switch cfg.StoreDriver {
	case database.DriverSQLite:
		db, err := database.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return &store{
			factory: sqlitestore.NewUnitOfWorkFactory(db, eventBus),
			ping:    db.PingContext,
			close: func() {
				if err := db.Close(); err != nil {
					log.Errorf("Error closing sqlite store: %v", err)
				}
			},
		}, nil
	default:
		db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return &store{
			factory: repository.NewUnitOfWorkFactory(db, eventBus),
			ping:    db.Ping,
			close:   db.Close,
		}, nil
	}
}

func drainNATS(nc *nats.Conn) {
	if err := nc.Drain(); err != nil {
		log.WithError(err).Warn("Failed to drain NATS connection")
	}
}
