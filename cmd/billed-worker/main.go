// Command billed-worker exports submitted bills to the accounting sheet.
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"billed/internal/amqp"
	"billed/internal/cli"
	"billed/internal/log"
	gsheet "billed/internal/sheets/google"
	"billed/internal/worker"

	"golang.org/x/sync/errgroup"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting billed-worker", log.FieldOperation, log.OpStartup)

	cfg := cli.LoadAndValidateWorkerConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	sheetsClient, err := gsheet.NewFromEnv(context.Background())
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "sheet", sheetsClient.Sheet())

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(repo, sheetsClient, sheetsClient, cfg.SyncBatchSize, cfg.SyncConcurrency)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// Bills submitted while the worker was down have no message left.
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Startup sync check failed", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeBillSync(gctx, syncWorker.HandleSyncMessage)
	})
	g.Go(func() error {
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				res, err := syncWorker.ProcessPendingBills(gctx)
				if err != nil {
					logger.Error("Periodic sync failed", log.FieldError, err)
					continue
				}
				if res.Total > 0 {
					if stats, err := repo.SyncStats(gctx); err == nil {
						logger.Info("Periodic sync done", "synced", res.Synced, "errors", res.Errors, "stats", stats)
					}
				}
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
