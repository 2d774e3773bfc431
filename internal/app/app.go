// Package app initializes and runs the main application service.
// It configures logging, storage, the background flusher, and routing,
// and handles graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prepdeck/prepdeck/internal/config"
	"github.com/prepdeck/prepdeck/internal/db/jsondb"
	"github.com/prepdeck/prepdeck/internal/db/memorystorage"
	"github.com/prepdeck/prepdeck/internal/db/postgresdb"
	"github.com/prepdeck/prepdeck/internal/db/redisdb"
	"github.com/prepdeck/prepdeck/internal/db/storage"
	"github.com/prepdeck/prepdeck/internal/flusher"
	"github.com/prepdeck/prepdeck/internal/ipchecker"
	"github.com/prepdeck/prepdeck/internal/logger"
	"github.com/prepdeck/prepdeck/internal/models"
	"github.com/prepdeck/prepdeck/internal/router"
	"github.com/prepdeck/prepdeck/internal/service"
)

type flushable interface {
	Flush(ctx context.Context) error
}

// App encapsulates the configuration, HTTP handler, storage backend, and the
// background flusher needed to run the backend.
type App struct {
	cfg         *config.Config
	db          storage.Storage
	theFlusher  *flusher.Flusher
	stopFlusher context.CancelFunc
	httpHandler http.Handler
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger
// - selecting and setting up storage
// - setting up the background flusher for file-backed storage
// - setting up the router and middleware
func New() (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New()
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	app.db, err = getStorageByType(app.cfg)
	if err != nil {
		return nil, err
	}

	ipChecker, err := ipchecker.New(app.cfg.TrustedSubnet)
	if err != nil {
		return nil, err
	}

	var svc *service.Service
	if flushableDB, ok := app.db.(flushable); ok {
		app.theFlusher = flusher.New(
			flushableDB,
			app.cfg.FlushQueueCapacity,
			app.cfg.FlushInterval,
		)
		flusherRunCtx, stopFlusher := context.WithCancel(context.Background())
		app.stopFlusher = stopFlusher

		app.theFlusher.Run(flusherRunCtx)
		app.theFlusher.ListenErrors(func(err error) {
			logger.Log.Debugln("Error passed from the `app.theFlusher.ListenErrors()`:", err)
		})

		svc = service.New(app.db, app.theFlusher)
	} else {
		svc = service.New(app.db, nil)
	}

	app.httpHandler = router.New(svc, ipChecker)

	return app, nil
}

// Run starts the HTTP server with graceful shutdown support.
// It listens for system signals and cleans up resources upon termination.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Log.Infoln("server running", "RunAddr", a.cfg.RunAddr)

	server := &http.Server{
		Addr:    a.cfg.RunAddr,
		Handler: a.httpHandler,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Saving database and exiting...")
		if a.stopFlusher != nil {
			a.stopFlusher()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		return a.db.Close()

	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func getAvailableStorageType(cfg *config.Config) int {
	if cfg.DatabaseDSN != "" {
		return models.StorageTypePostgresql
	}

	if cfg.RedisAddr != "" {
		return models.StorageTypeRedis
	}

	if cfg.DBFileName != "" {
		return models.StorageTypeFile
	}

	return models.StorageTypeMemory
}

func getStorageByType(cfg *config.Config) (storage.Storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case models.StorageTypePostgresql:
		return postgresdb.New(
			context.Background(),
			cfg.DatabaseDSN,
			cfg.DBConnectionTimeout,
			cfg.MigrationsDir,
		)

	case models.StorageTypeRedis:
		return redisdb.New(
			context.Background(),
			cfg.RedisAddr,
			cfg.RedisPassword,
			cfg.DBConnectionTimeout,
		)

	case models.StorageTypeFile:
		return jsondb.New(cfg.DBFileName)
	}

	return memorystorage.New()
}
