// Package main is the entry point for the coinwatch market data service.
// It imports ranked market data from CoinGecko on a schedule, fetches per-coin
// metadata through a delayed job queue, and serves the cached read API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/coinwatch/coinwatch/internal/coingecko"
	"github.com/coinwatch/coinwatch/internal/coins"
	coinhandlers "github.com/coinwatch/coinwatch/internal/coins/handlers"
	"github.com/coinwatch/coinwatch/internal/config"
	"github.com/coinwatch/coinwatch/internal/database"
	"github.com/coinwatch/coinwatch/internal/queue"
	"github.com/coinwatch/coinwatch/internal/reliability"
	"github.com/coinwatch/coinwatch/internal/respcache"
	"github.com/coinwatch/coinwatch/internal/scheduler"
	"github.com/coinwatch/coinwatch/internal/server"
	"github.com/coinwatch/coinwatch/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: !cfg.IsProduction(),
	})

	log.Info().Str("environment", cfg.Environment).Msg("Starting coinwatch")

	// Databases: market data and the response cache live in separate files so
	// cache churn never bloats the data file's WAL.
	coinsDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "coins.db"),
		Profile: database.ProfileStandard,
		Name:    "coins",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open coins database")
	}
	defer coinsDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	for _, db := range []*database.DB{coinsDB, cacheDB} {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Str("database", db.Name()).Msg("Failed to migrate database")
		}
	}

	// Upstream client with the shared rate-limit retry protocol
	client := coingecko.NewClient(cfg.CoinGeckoBaseURL(), cfg.CoinGeckoAuthHeader(), cfg.CoinGeckoAPIKey, log)
	caller := coingecko.NewCaller(client, log)

	// Repositories and domain services
	coinRepo := coins.NewRepository(coinsDB.Conn(), log)
	metadataRepo := coins.NewMetadataRepository(coinsDB.Conn(), log)
	cacheRepo := respcache.NewRepository(cacheDB.Conn())
	navigator := coins.NewNavigator(coinRepo)

	// The queue handler and the import service reference each other, so the
	// queue closes over the service variable assigned right after.
	var importService *coins.ImportService
	metadataQueue := queue.New(func(ctx context.Context, job queue.Job) error {
		return importService.ImportMetadata(ctx, job.Slug)
	}, log)
	importService = coins.NewImportService(caller, coinRepo, metadataRepo, cacheRepo, metadataQueue, log)

	queueCtx, cancelQueue := context.WithCancel(context.Background())
	metadataQueue.Start(queueCtx, 2)
	log.Info().Msg("Metadata queue started")

	// Scheduled jobs
	sched := scheduler.New(log)

	importJob := scheduler.NewFuncJob("market_data_import", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
		defer cancel()
		_, err := importService.ImportMarketData(ctx, coins.ImportOptions{})
		return err
	})
	if err := sched.AddJob(fmt.Sprintf("@every %s", cfg.ImportInterval), scheduler.NewNonOverlapping(importJob, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register import job")
	}

	sweepJob := scheduler.NewFuncJob("cache_sweep", func() error {
		_, err := cacheRepo.DeleteAllExpired()
		return err
	})
	if err := sched.AddJob("30 0 * * *", sweepJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register cache sweep job")
	}

	if cfg.Backup.Enabled() {
		r2Client, err := reliability.NewR2Client(
			cfg.Backup.AccountID,
			cfg.Backup.AccessKeyID,
			cfg.Backup.SecretAccessKey,
			cfg.Backup.Bucket,
			log,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create object storage client")
		}

		backupService := reliability.NewBackupService(r2Client, []*database.DB{coinsDB}, cfg.DataDir, log)
		backupJob := scheduler.NewFuncJob("database_backup", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
			defer cancel()
			if err := backupService.CreateAndUploadBackup(ctx); err != nil {
				return err
			}
			return backupService.RotateOldBackups(ctx, 30)
		})
		if err := sched.AddJob("0 3 * * *", backupJob); err != nil {
			log.Fatal().Err(err).Msg("Failed to register backup job")
		}
	} else {
		log.Info().Msg("Backup credentials not configured, backups disabled")
	}

	sched.Start()

	// HTTP server
	handler := coinhandlers.NewHandler(coinRepo, metadataRepo, navigator, cacheRepo, log)
	srv := server.New(server.Config{
		Log:          log,
		CoinsDB:      coinsDB,
		CacheDB:      cacheDB,
		CoinHandlers: handler,
		Port:         cfg.Port,
		DevMode:      cfg.DevMode,
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	case err := <-serverErr:
		log.Error().Err(err).Msg("HTTP server stopped unexpectedly")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shut down HTTP server cleanly")
	}

	sched.Stop()
	cancelQueue()
	metadataQueue.Stop()

	log.Info().Msg("Shutdown complete")
}
