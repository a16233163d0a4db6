// Package main runs the DexWatch monitor: it polls Dexcom Share on an
// interval, records readings in PostgreSQL and Redis when configured, and
// serves them over HTTP.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atinyakov/DexWatch/internal/cache"
	"github.com/atinyakov/DexWatch/internal/client/share"
	"github.com/atinyakov/DexWatch/internal/config"
	"github.com/atinyakov/DexWatch/internal/db"
	"github.com/atinyakov/DexWatch/internal/logger"
	"github.com/atinyakov/DexWatch/internal/repository"
	"github.com/atinyakov/DexWatch/internal/server/handler/http"
	"github.com/atinyakov/DexWatch/internal/service"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The monitor is long-running, so the controller always absorbs
	// transport and payload errors.
	ctrlCfg := options.Controller()
	ctrlCfg.Mode = share.Continuous
	client := share.NewClient(share.NewHTTPClient(options.RequestTimeout.Std()), options.ShareURL, options.Credentials())
	controller := share.NewController(client, ctrlCfg, zapLogger.Named("share"))

	// Reading history is optional.
	var repo service.ReadingRepository
	if options.DatabaseDSN != "" {
		postgresDB, err := db.InitPostgres(options.DatabaseDSN)
		if err != nil {
			zapLogger.Fatal("cannot init database", zap.Error(err))
		}
		defer postgresDB.Close()

		db.StartRetentionCleaner(ctx, postgresDB, time.Hour, options.Retention.Std(), zapLogger)
		repo = repository.NewPostgresReadingRepository(postgresDB)
	}

	// The latest-reading cache is optional.
	var readingCache service.ReadingCache
	if options.RedisAddr != "" {
		redisClient, err := cache.Connect(ctx, options.RedisAddr)
		if err != nil {
			zapLogger.Fatal("cannot connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
		readingCache = cache.NewRedisReadingCache(redisClient, options.StaleAfter.Std())
	}

	readingService := service.NewReadingService(controller, repo, readingCache, zapLogger)
	service.StartPolling(ctx, readingService, options.PollInterval.Std(), zapLogger)

	router := http.NewRouter(&http.ReadingHandler{ReadingService: readingService}, zapLogger)
	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	zapLogger.Info("starting monitor",
		zap.String("addr", options.Port),
		zap.Duration("interval", options.PollInterval.Std()),
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("failed to start HTTP server", zap.Error(err))
	}
}
