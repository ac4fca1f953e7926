// Package main provides the entry point for boardmesh-server.
//
// boardmesh-server is the synchronization service for BoardMesh: it
// fans out whiteboard snapshot updates to every connected viewer of a
// document and persists each accepted write with a monotonically
// increasing version.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/yndnr/boardmesh-go/internal/core/service"
	"github.com/yndnr/boardmesh-go/internal/infra/buildinfo"
	"github.com/yndnr/boardmesh-go/internal/infra/confloader"
	"github.com/yndnr/boardmesh-go/internal/infra/shutdown"
	"github.com/yndnr/boardmesh-go/internal/server/config"
	"github.com/yndnr/boardmesh-go/internal/server/httpserver"
	"github.com/yndnr/boardmesh-go/internal/server/wsserver"
	"github.com/yndnr/boardmesh-go/internal/storage"
	"github.com/yndnr/boardmesh-go/internal/telemetry/logger"
	"github.com/yndnr/boardmesh-go/internal/telemetry/metric"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("boardmesh-server %s\n", buildinfo.String())
		return nil
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	log.Info("starting boardmesh-server",
		"version", buildinfo.Version,
		"commit", buildinfo.Commit,
		"config", *configFile,
		"storage_backend", cfg.Storage.Backend,
	)

	metrics := metric.New()

	store, err := initStorage(cfg, log)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	docSvc := service.NewDocumentService(store, cfg.Sync.MaxSnapshotBytes)

	authSvc := service.NewAuthService()
	for _, entry := range cfg.Auth.Tokens {
		authSvc.Register(entry.Hash, entry.UserID, entry.Documents)
	}
	log.Info("auth tokens registered", "count", authSvc.Count())

	syncSrv := wsserver.New(syncConfig(cfg), authSvc, docSvc, metrics, log)
	syncSrv.Start()

	router := httpserver.NewRouter(&httpserver.RouterConfig{
		DocumentService:    docSvc,
		AuthService:        authSvc,
		Publisher:          syncSrv,
		SyncHandler:        syncSrv.HandleSync,
		Metrics:            metrics,
		Logger:             log,
		CORSAllowedOrigins: cfg.HTTP.CORSAllowedOrigins,
		GlobalRateLimit:    cfg.HTTP.RateLimit,
		EnableAudit:        cfg.HTTP.EnableAudit,
	})
	httpSrv := httpserver.New(cfg.Server.Addr, router)

	shutdownHandler := shutdown.NewHandler(cfg.Server.ShutdownTimeout)

	// Hooks run in reverse order: HTTP stops accepting, the sync
	// server drains its connections, then storage closes.
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("closing storage")
		return store.Close()
	})
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("draining sync connections")
		return syncSrv.Shutdown(ctx)
	})
	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down HTTP server")
		return httpSrv.Shutdown(ctx)
	})

	if *configFile != "" {
		watcher, err := startConfigWatcher(*configFile, log)
		if err != nil {
			log.Warn("config watcher disabled", "error", err)
		} else {
			shutdownHandler.OnShutdown(func(ctx context.Context) error {
				return watcher.Stop()
			})
		}
	}

	go func() {
		log.Info("HTTP server listening", "addr", cfg.Server.Addr)

		var err error
		if cfg.Server.TLSCertFile != "" && cfg.Server.TLSKeyFile != "" {
			err = httpSrv.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			err = httpSrv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
			shutdownHandler.Trigger()
		}
	}()

	log.Info("server started, press Ctrl+C to stop")
	if err := shutdownHandler.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// loadConfig loads configuration from file and environment.
func loadConfig(configFile string) (*config.ServerConfig, error) {
	cfg := config.Default()

	opts := []confloader.Option{}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}

	loader := confloader.NewLoader(opts...)
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// initLogger initializes the structured logger and installs it as the
// process default.
func initLogger(cfg *config.ServerConfig) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	if err != nil {
		return nil, err
	}
	logger.SetDefault(log)
	return log, nil
}

// documentStore is what main needs from a storage backend.
type documentStore interface {
	service.DocumentRepository
	Close() error
}

// initStorage selects and opens the configured storage backend.
func initStorage(cfg *config.ServerConfig, log logger.Logger) (documentStore, error) {
	switch cfg.Storage.Backend {
	case "memory":
		return storage.NewMemoryStore(), nil

	case "badger":
		bcfg := storage.DefaultBadgerConfig(cfg.Storage.DataDir)
		bcfg.EncryptionKey = cfg.Storage.EncryptionKey
		if cfg.Storage.GCInterval > 0 {
			bcfg.GCInterval = cfg.Storage.GCInterval
		}
		return storage.NewBadgerStore(bcfg, log)

	case "postgres":
		return storage.NewPostgresStore(context.Background(), cfg.Storage.PostgresDSN, log)

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// syncConfig maps the sync section onto the WebSocket server config.
func syncConfig(cfg *config.ServerConfig) wsserver.Config {
	wcfg := wsserver.DefaultConfig()
	if cfg.Sync.HeartbeatInterval > 0 {
		wcfg.HeartbeatInterval = cfg.Sync.HeartbeatInterval
	}
	if cfg.Sync.HeartbeatTimeout > 0 {
		wcfg.HeartbeatTimeout = cfg.Sync.HeartbeatTimeout
	}
	if cfg.Sync.SendBuffer > 0 {
		wcfg.SendBuffer = cfg.Sync.SendBuffer
	}
	if cfg.Sync.InboundRate > 0 {
		wcfg.InboundRate = cfg.Sync.InboundRate
	}
	if cfg.Sync.InboundBurst > 0 {
		wcfg.InboundBurst = cfg.Sync.InboundBurst
	}
	return wcfg
}

// startConfigWatcher hot-reloads the log level when the config file
// changes.
func startConfigWatcher(configFile string, log logger.Logger) (*confloader.Watcher, error) {
	watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := watcher.Watch(configFile); err != nil {
		return nil, err
	}

	watcher.OnChange(func(path string) {
		loader := confloader.NewLoader(confloader.WithConfigFile(configFile))
		cfg := config.Default()
		if err := loader.Load(cfg); err != nil {
			log.Warn("config reload failed", "error", err)
			return
		}
		if cfg.Log.Level != logger.GetLevel() {
			log.Info("log level changed", "level", cfg.Log.Level)
			logger.SetLevel(cfg.Log.Level)
		}
	})

	watcher.StartAsync()
	return watcher, nil
}
