package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tripchat/internal/api"
	"tripchat/internal/bus"
	"tripchat/internal/cache"
	"tripchat/internal/config"
	"tripchat/internal/filestore"
	"tripchat/internal/models"
	"tripchat/internal/retry"
	"tripchat/internal/service"
	"tripchat/internal/store"
	"tripchat/internal/tracing"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// CLI flags
	verbose    = flag.Bool("verbose", false, "Enable verbose logging (includes sensitive information)")
	configPath = flag.String("config", "config.json", "Path to configuration file")
	version    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("tripchat %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	// Best effort; a missing .env file is fine.
	_ = godotenv.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting tripchat")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
		logger.Info("Verbose logging enabled - sensitive information will be logged")
	} else if cfg.LogLevel != "" {
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			logger.Warnf("Invalid log level %q, defaulting to info", cfg.LogLevel)
			logger.SetLevel(logrus.InfoLevel)
		} else {
			if level > logrus.InfoLevel {
				level = logrus.InfoLevel
			}
			logger.SetLevel(level)
		}
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	tracingManager := tracing.NewManager(cfg.Tracing, Version, logger)
	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	// Config reloads feed the store layer; the primary settings are re-read
	// on every persistence call.
	watcher := config.NewConfigWatcher(*configPath, logger)
	go func() {
		if err := watcher.Start(ctx); err != nil {
			logger.WithError(err).Error("Configuration watcher stopped")
		}
	}()

	fallback, err := filestore.New(cfg.Fallback.Dir)
	if err != nil {
		return fmt.Errorf("failed to initialize fallback store: %w", err)
	}

	primary := store.NewSQLProvider(func() models.PrimaryConfig {
		// Until the watcher has loaded, use the config read at startup.
		if current := watcher.GetConfig(); current != nil {
			return current.Primary
		}
		return cfg.Primary
	}, logger)

	dual := store.NewDualStore(primary, fallback, logger)

	unreadCache := cache.New(cfg.Redis.Addr, time.Duration(cfg.Redis.TTLSec)*time.Second, logger)
	if unreadCache != nil {
		defer func() {
			if err := unreadCache.Close(); err != nil {
				logger.Warnf("Failed to close cache: %v", err)
			}
		}()
	}

	eventBus := bus.New()

	var svcCache service.UnreadCache
	if unreadCache != nil {
		svcCache = unreadCache
	}
	chatService := service.NewChatService(dual, eventBus, svcCache, cfg.Chat.AgentName, logger)

	server := api.NewServer(
		chatService,
		eventBus,
		time.Duration(cfg.Chat.PollIntervalSec)*time.Second,
		retry.FromRetryConfig(cfg.Retry),
		cfg.Chat.SupportPhone,
		logger,
	)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.Handler(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logger.Info("Shutdown complete")
	return nil
}
