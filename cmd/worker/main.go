package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeforge_arena/internal/app/bootstrap"
	"codeforge_arena/internal/app/worker"
	"codeforge_arena/internal/platform/config"
	"codeforge_arena/internal/platform/database"
	"codeforge_arena/internal/platform/queue"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func workerMain(cmd *cobra.Command, _ []string) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	config.Load(envFile)
	cfg := config.AppConfig
	if catalog, _ := cmd.Flags().GetString("catalog"); catalog != "" {
		cfg.CatalogFile = catalog
	}

	database.Connect()
	defer database.Close()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := queue.ConnectRedis(ctx); err != nil {
		return err
	}
	defer queue.CloseRedis()

	stores, err := bootstrap.NewStores(ctx, database.DB, cfg)
	if err != nil {
		return err
	}
	w := worker.NewTopicStatWorker(queue.RDB, stores.TopicStats, worker.TopicStatWorkerConfig{
		QueueName:  cfg.SubmissionEventQueue,
		LockPrefix: cfg.TopicLockPrefix,
		LockTTL:    time.Duration(cfg.TopicLockTTLSeconds) * time.Second,
		PopTimeout: 5 * time.Second,
	})
	w.Start(ctx)
	log.Info("Worker exited cleanly.")
	return nil
}

func main() {
	rootCmd := cobra.Command{
		Use:          "codeforge-worker",
		Short:        "Recomputes topic statistics from queued submission events",
		RunE:         workerMain,
		SilenceUsage: true,
	}
	rootCmd.Flags().String("env-file", "", "dotenv file to load before reading the environment")
	rootCmd.Flags().String("catalog", "", "TOML problem catalog (defaults to the built-in catalog)")
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
