package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeforge_arena/internal/api"
	"codeforge_arena/internal/app/bootstrap"
	"codeforge_arena/internal/app/duel"
	"codeforge_arena/internal/app/judge"
	"codeforge_arena/internal/app/service"
	"codeforge_arena/internal/app/worker"
	"codeforge_arena/internal/common/security"
	"codeforge_arena/internal/platform/config"
	"codeforge_arena/internal/platform/database"
	"codeforge_arena/internal/platform/queue"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// sinks are the shared-state backends: Redis when enabled, process memory otherwise.
type sinks struct {
	console     service.ConsoleLog
	leaderboard service.DuelLeaderboard
	publisher   service.EventPublisher
}

func newSinks(cfg *config.Config, stats *service.TopicStatService) sinks {
	if !cfg.RedisEnabled {
		log.Warn("WARN: Redis disabled, console, leaderboard and stat updates stay in this process")
		return sinks{
			console:     service.NewMemoryConsoleLog(),
			leaderboard: service.NewMemoryDuelLeaderboard(),
			publisher:   service.NewInlineEventPublisher(stats),
		}
	}
	return sinks{
		console:     service.NewRedisConsoleLog(queue.RDB, cfg.ConsoleLogKey),
		leaderboard: service.NewRedisDuelLeaderboard(queue.RDB, cfg.DuelLeaderboardKey),
		publisher:   service.NewRedisEventPublisher(queue.RDB, cfg.SubmissionEventQueue),
	}
}

func loadConfig(cmd *cobra.Command) {
	envFile, _ := cmd.Flags().GetString("env-file")
	config.Load(envFile)
	if catalog, _ := cmd.Flags().GetString("catalog"); catalog != "" {
		config.AppConfig.CatalogFile = catalog
	}
}

func serverMain(cmd *cobra.Command, _ []string) error {
	loadConfig(cmd)
	cfg := config.AppConfig
	security.InitJWT()

	database.Connect()
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := bootstrap.NewStores(ctx, database.DB, cfg)
	if err != nil {
		return err
	}
	if cfg.RedisEnabled {
		if err := queue.ConnectRedis(ctx); err != nil {
			return err
		}
		defer queue.CloseRedis()
	}
	out := newSinks(cfg, stores.TopicStats)

	submissions := service.NewSubmissionService(stores.Submissions, out.publisher, database.DB)
	judges := judge.NewRegistry(judge.NewEvaluatorFromConfig(cfg), submissions, out.console)
	arena := duel.NewArena(duel.Options{
		Interval:    cfg.DuelTick,
		Random:      duel.NewRandomSource(time.Now().UnixNano()),
		Console:     out.console,
		Leaderboard: out.leaderboard,
	}, judges)
	defer arena.Shutdown()

	router := api.NewRouter(api.Services{
		Problems:        service.NewProblemService(stores.Problems),
		Submissions:     submissions,
		TopicStats:      stores.TopicStats,
		Recommendations: service.NewRecommendationService(stores.Problems, stores.TopicStats),
		Judges:          judges,
		Arena:           arena,
		Leaderboard:     out.leaderboard,
		Console:         out.console,
	})
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.EvaluatorTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infof("Server starting on port %s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if cfg.RedisEnabled && cfg.WorkerEnabled {
		w := worker.NewTopicStatWorker(queue.RDB, stores.TopicStats, workerConfig(cfg))
		g.Go(func() error {
			w.Start(gctx)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	out.console.Append(ctx, "Connected to CodeForge Arena")
	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("Server and worker stopped gracefully.")
	return nil
}

func workerConfig(cfg *config.Config) worker.TopicStatWorkerConfig {
	return worker.TopicStatWorkerConfig{
		QueueName:  cfg.SubmissionEventQueue,
		LockPrefix: cfg.TopicLockPrefix,
		LockTTL:    time.Duration(cfg.TopicLockTTLSeconds) * time.Second,
		PopTimeout: 5 * time.Second,
	}
}

func main() {
	rootCmd := cobra.Command{
		Use:          "codeforge-server",
		Short:        "Serves the judging, recommendation and duel API",
		RunE:         serverMain,
		SilenceUsage: true,
	}
	rootCmd.Flags().String("env-file", "", "dotenv file to load before reading the environment")
	rootCmd.Flags().String("catalog", "", "TOML problem catalog (defaults to the built-in catalog)")
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
