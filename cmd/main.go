package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cardkeep/cardkeep_bot/config"
	"github.com/cardkeep/cardkeep_bot/data"
	"github.com/cardkeep/cardkeep_bot/data/cache"
	"github.com/cardkeep/cardkeep_bot/data/repository/postgres"
	"github.com/cardkeep/cardkeep_bot/data/session"
	"github.com/cardkeep/cardkeep_bot/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/cardkeep/cardkeep_bot/internal/externalApi/collectionApi"
	"github.com/cardkeep/cardkeep_bot/internal/reportGenerator/xlsxGenerator"
	"github.com/cardkeep/cardkeep_bot/internal/scheduler"
	"github.com/cardkeep/cardkeep_bot/internal/service/cardkeepService"
	"github.com/cardkeep/cardkeep_bot/internal/tgbot"
	"github.com/cardkeep/cardkeep_bot/internal/transport/telegram"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgClient := data.NewPostgresClient(cfg)
	defer pgClient.Close()

	pgRepo := postgres.New(cfg, pgClient)

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, cfg)
	redisSession := session.NewRedisSession(redisClient, cfg)

	collectionApiClient := collectionApi.New(cfg)

	reportGenerator := xlsxGenerator.New()

	googleCloudStorage := googleDriveApi.New(ctx, cfg)

	cardkeepSrv := cardkeepService.New(cfg, pgRepo, redisCache, collectionApiClient, reportGenerator, googleCloudStorage)

	sched := scheduler.New()
	sched.NewIntervalJob("fill price cache", cardkeepSrv.FillPriceCache, cfg.Jobs.FillPriceCacheInterval, true)
	sched.NewCrontabJob("drive cleanup", cardkeepSrv.CleanupOldReports, cfg.Jobs.DriveCleanupCrontab, false)
	sched.Start()
	defer sched.Stop()

	tgController := telegram.NewController(cfg, cardkeepSrv, redisSession)

	tgBot := tgbot.New(cfg, tgController, redisSession)
	tgBot.Start()
	defer tgBot.Stop()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
