package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/19722009abc/HelpyBot/internal/config"
	idiscord "github.com/19722009abc/HelpyBot/internal/discord"
	"github.com/19722009abc/HelpyBot/internal/logging"
	"github.com/19722009abc/HelpyBot/internal/rng"
	"github.com/19722009abc/HelpyBot/pkg/db"
	"github.com/19722009abc/HelpyBot/pkg/db/migrations"
	"github.com/19722009abc/HelpyBot/pkg/discord"
	"github.com/19722009abc/HelpyBot/pkg/repositories/analytics"
	bankRepo "github.com/19722009abc/HelpyBot/pkg/repositories/bank"
	"github.com/19722009abc/HelpyBot/pkg/repositories/inventory"
	ledgerRepo "github.com/19722009abc/HelpyBot/pkg/repositories/ledger"
	raffleRepo "github.com/19722009abc/HelpyBot/pkg/repositories/raffle"
	robberyRepo "github.com/19722009abc/HelpyBot/pkg/repositories/robbery"
	"github.com/19722009abc/HelpyBot/pkg/scheduler"
	"github.com/19722009abc/HelpyBot/pkg/services/accrual"
	"github.com/19722009abc/HelpyBot/pkg/services/bank"
	"github.com/19722009abc/HelpyBot/pkg/services/casino"
	"github.com/19722009abc/HelpyBot/pkg/services/ledger"
	"github.com/19722009abc/HelpyBot/pkg/services/leveling"
	"github.com/19722009abc/HelpyBot/pkg/services/raffle"
	"github.com/19722009abc/HelpyBot/pkg/services/robbery"
	"github.com/19722009abc/HelpyBot/pkg/services/shop"
	"github.com/19722009abc/HelpyBot/pkg/services/statistics"
	"github.com/19722009abc/HelpyBot/pkg/storage"
	"github.com/19722009abc/HelpyBot/pkg/storage/file"
)

func main() {
	logger := logging.Default.With("main")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	logging.Default.SetLevel(logging.ParseLevel(cfg.LogLevel))
	logger.Info("Starting HelpyBot (%s)", cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.LogError(err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	conn, err := db.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := migrations.Migrate(ctx, conn); err != nil {
		return err
	}
	logger.Info("Database ready at %s", cfg.DatabasePath)

	src, err := rng.New()
	if err != nil {
		return err
	}

	var sink analytics.Sink
	var indices *analytics.ElasticsearchRepository
	if cfg.Elasticsearch.Enabled {
		indices, err = analytics.NewElasticsearchRepository(&analytics.ElasticsearchConfig{
			URL:             cfg.Elasticsearch.URL,
			Username:        cfg.Elasticsearch.Username,
			Password:        cfg.Elasticsearch.Password,
			IndexPrefix:     cfg.Elasticsearch.IndexPrefix,
			RetentionPeriod: cfg.Elasticsearch.RetentionPeriod,
		})
		if err != nil {
			logger.Warn("Elasticsearch unavailable, analytics disabled: %v", err)
			indices = nil
		} else {
			sink = indices
			logger.Info("Publishing analytics to %s", cfg.Elasticsearch.URL)
		}
	}
	publisher := analytics.NewPublisher(sink)

	sessions, err := file.New(&storage.Options{Path: cfg.SessionPath, TTL: cfg.SessionTTL})
	if err != nil {
		return err
	}

	accounts := ledgerRepo.NewSQLiteRepository(conn)
	items := inventory.NewSQLiteRepository(conn)

	shopService := shop.NewService(items, accounts, src, publisher)
	if err := shopService.SeedDefaults(ctx); err != nil {
		return err
	}
	levelingService := leveling.NewService(accounts, items, src)
	raffleService := raffle.NewService(raffleRepo.NewSQLiteRepository(conn), accounts, src, publisher)

	services := discord.Services{
		Ledger:     ledger.NewService(accounts, publisher),
		Accrual:    accrual.NewService(accounts, src, publisher),
		Leveling:   levelingService,
		Casino:     casino.NewService(accounts, shopService, levelingService, sessions, src, publisher),
		Robbery:    robbery.NewService(robberyRepo.NewSQLiteRepository(conn), accounts, src, publisher),
		Bank:       bank.NewService(bankRepo.NewSQLiteRepository(conn), accounts, src, publisher),
		Raffle:     raffleService,
		Shop:       shopService,
		Statistics: statistics.NewService(accounts),
	}

	jobs := scheduler.NewScheduler()
	scheduler.AddMaintenanceTasks(jobs, scheduler.Maintenance{
		Sessions: sessions,
		Raffle:   raffleService,
		Shop:     shopService,
		Interval: cfg.MaintenanceInterval,
		Clock:    time.Now,
	})
	if indices != nil {
		scheduler.AddIndexTasks(jobs, indices, cfg.Elasticsearch.RotationPeriod, time.Now)
	}

	session, err := idiscord.NewSession(cfg.Token)
	if err != nil {
		return err
	}
	bot := discord.NewBot(session, services, discord.Options{
		AppID:         cfg.AppID,
		GuildID:       cfg.GuildID,
		RatePerSecond: cfg.RateLimitPerSecond,
		Burst:         cfg.RateLimitBurst,
	})

	if err := bot.Start(); err != nil {
		return err
	}
	jobs.Start(ctx)
	logger.Info("Bot is running. Press Ctrl+C to exit")

	<-ctx.Done()

	logger.Info("Shutting down...")
	jobs.Stop()
	if err := bot.Stop(); err != nil {
		logger.Error("Error stopping bot: %v", err)
	}
	return nil
}
