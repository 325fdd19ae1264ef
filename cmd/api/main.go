package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Dan9191/deposit-service/internal/config"
	"github.com/Dan9191/deposit-service/internal/handler"
	"github.com/Dan9191/deposit-service/internal/integrations/cbr"
	"github.com/Dan9191/deposit-service/internal/integrations/genai"
	"github.com/Dan9191/deposit-service/internal/metrics"
	"github.com/Dan9191/deposit-service/internal/repository"
	"github.com/Dan9191/deposit-service/internal/scheduler"
	"github.com/Dan9191/deposit-service/internal/service"
	"github.com/Dan9191/deposit-service/internal/utils/email"
)

const shutdownTimeout = 30 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Errorf("Failed to load config: %v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Calculation history
	var repo repository.CalculationRepository
	if cfg.DBConn != "" {
		db, err := sql.Open("postgres", cfg.DBConn)
		if err != nil {
			logger.Errorf("Failed to connect to database: %v", err)
			return 1
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			logger.Errorf("Failed to ping database: %v", err)
			return 1
		}
		repo = repository.NewRepository(db)
		logger.Info("Calculation history stored in PostgreSQL")
	} else {
		repo = repository.NewMemoryRepository()
		logger.Warn("DB_CONN is not set, calculation history is kept in memory")
	}

	// Explanation and key rate cache
	var cache repository.CacheRepository
	if cfg.RedisAddr != "" {
		redisCache := repository.NewRedisCache(cfg.RedisAddr, logger)
		defer redisCache.Close()
		if err := redisCache.Ping(ctx); err != nil {
			logger.Errorf("Failed to ping redis: %v", err)
			return 1
		}
		cache = redisCache
	} else {
		cache = repository.NewMemoryCache()
	}

	// Initialize layers
	m := metrics.New()
	genaiClient := genai.NewClient(cfg, logger)
	if !genaiClient.Enabled() {
		logger.Warn("LLM_API_KEY is not set, explanations will use the fallback text")
	}
	explainer := service.NewExplainer(genaiClient, cache, cfg.ExplanationTimeout, cfg.ExplanationCacheTTL, logger, m)
	svc := service.NewService(repo, explainer, newNotifier(cfg, logger), logger, cfg, m)
	keyRates := service.NewKeyRateService(cbr.NewCBRClient(cfg, logger), cache, cfg.KeyRateCacheTTL, logger)
	h := handler.NewHandler(svc, keyRates, logger)

	sched, err := scheduler.New(cfg.KeyRateSchedule, keyRates, svc, logger)
	if err != nil {
		logger.Errorf("Failed to create scheduler: %v", err)
		return 1
	}

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler.NewRouter(h, cfg, m, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.ExplanationTimeout + 10*time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		sched.Start()
		go sched.RefreshKeyRate()
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("Shutting down")
		sched.Stop(shutdownCtx)
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		svc.Wait()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Errorf("Service stopped with error: %v", err)
		return 1
	}
	logger.Info("Service stopped")
	return 0
}

// newNotifier returns nil when SMTP is not configured so that summaries
// are reported as disabled
func newNotifier(cfg *config.Config, logger *logrus.Logger) service.Notifier {
	if cfg.SMTPHost == "" {
		logger.Warn("SMTP_HOST is not set, email summaries are disabled")
		return nil
	}
	return email.NewSender(cfg, logger)
}
