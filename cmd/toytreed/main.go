// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command toytreed starts the toytree API server.
//
// The server exposes the tree toolkit over HTTP:
//   - Session trees parsed from Newick/NHX text
//   - Topology mutations (reroot, unroot, drop tips, ladderize,
//     resolve, collapse)
//   - Comparative metrics (Robinson-Foulds, quartet, consensus,
//     distance matrices)
//   - Random tree generation
//   - A persistent BadgerDB-backed treebank with an optional watch
//     directory for drag-and-drop ingestion
//
// Usage:
//
//	go run ./cmd/toytreed
//	go run ./cmd/toytreed -port 9090 -bank /var/lib/toytree/bank
//	go run ./cmd/toytreed -config toytreed.yaml
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8080/healthz
//
//	# Parse a tree into a session
//	curl -X POST http://localhost:8080/v1/toytree/trees \
//	  -H "Content-Type: application/json" \
//	  -d '{"newick": "(A:1,(B:2,C:3)90:4);"}'
//
//	# Reroot the session tree on tip B
//	curl -X POST http://localhost:8080/v1/toytree/trees/<id>/reroot \
//	  -H "Content-Type: application/json" \
//	  -d '{"target": "B"}'
//
//	# Robinson-Foulds distance between two inline trees
//	curl -X POST http://localhost:8080/v1/toytree/distance/rf \
//	  -H "Content-Type: application/json" \
//	  -d '{"a": {"newick": "((A,B),(C,D));"}, "b": {"newick": "((A,C),(B,D));"}}'
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gopkg.in/yaml.v3"

	"github.com/eaton-lab/toytree-sub003/pkg/logging"
	"github.com/eaton-lab/toytree-sub003/services/toytree"
	badgerstore "github.com/eaton-lab/toytree-sub003/services/toytree/storage/badger"
	"github.com/eaton-lab/toytree-sub003/services/toytree/telemetry"
	"github.com/eaton-lab/toytree-sub003/services/toytree/treebank"
)

// serverConfig is the full daemon configuration, loadable from YAML.
type serverConfig struct {
	Port     int    `yaml:"port"`
	Debug    bool   `yaml:"debug"`
	BankPath string `yaml:"bank_path"`
	WatchDir string `yaml:"watch_dir"`

	Service   toytree.ServiceConfig `yaml:"service"`
	Telemetry telemetry.Config      `yaml:"telemetry"`
}

func defaultServerConfig() serverConfig {
	return serverConfig{
		Port:      8080,
		Service:   toytree.DefaultServiceConfig(),
		Telemetry: telemetry.DefaultConfig(),
	}
}

func main() {
	port := flag.Int("port", 0, "Port to listen on (overrides config)")
	debug := flag.Bool("debug", false, "Enable debug mode")
	configPath := flag.String("config", "", "Path to YAML config file")
	bankPath := flag.String("bank", "", "BadgerDB directory for the treebank (overrides config; empty disables)")
	watchDir := flag.String("watch", "", "Directory to watch for tree files to ingest (overrides config)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *debug {
		cfg.Debug = true
	}
	if *bankPath != "" {
		cfg.BankPath = *bankPath
	}
	if *watchDir != "" {
		cfg.WatchDir = *watchDir
	}

	baseLogger := logging.New(logging.Config{
		Level:   logLevel(cfg.Debug),
		Service: "toytreed",
		JSON:    true,
	})
	defer baseLogger.Close()
	logger := baseLogger.Slog()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg serverConfig, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			logger.Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	svc, err := toytree.NewService(cfg.Service, logger)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	// Optional persistent treebank.
	var watcher *treebank.Watcher
	if cfg.BankPath != "" {
		bcfg := badgerstore.DefaultConfig()
		bcfg.Path = cfg.BankPath
		bcfg.Logger = logger
		db, err := badgerstore.Open(bcfg)
		if err != nil {
			return fmt.Errorf("open treebank: %w", err)
		}
		go badgerstore.RunGC(ctx, db, bcfg, logger)

		bank := treebank.New(db, logger)
		defer bank.Close()
		svc.WithBank(bank)

		if cfg.WatchDir != "" {
			watcher = treebank.NewWatcher(bank, cfg.WatchDir, logger)
			if err := watcher.Start(ctx); err != nil {
				return fmt.Errorf("start watcher: %w", err)
			}
			defer watcher.Stop()
		}
	} else if cfg.WatchDir != "" {
		logger.Warn("Watch directory set but treebank disabled; ignoring", slog.String("dir", cfg.WatchDir))
	}

	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	router.Use(toytree.RequestIDMiddleware())
	router.Use(toytree.MetricsMiddleware())
	router.Use(toytree.LoggingMiddleware(logger))
	router.Use(toytree.RateLimitMiddleware(cfg.Service.RequestsPerSecond, cfg.Service.Burst))

	handlers := toytree.NewHandlers(svc, logger)
	toytree.RegisterRoutes(router.Group("/v1/toytree"), handlers)
	router.GET("/healthz", handlers.Healthz)
	if mh := telemetry.MetricsHandler(); mh != nil {
		router.GET("/metrics", gin.WrapH(mh))
	}

	printBanner(cfg.Port, cfg.BankPath != "")

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting toytree server", slog.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down toytree server")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(sctx)
}

// loadConfig reads the YAML config at path, or returns defaults when
// path is empty.
func loadConfig(path string) (serverConfig, error) {
	cfg := defaultServerConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func logLevel(debug bool) logging.Level {
	if debug {
		return logging.LevelDebug
	}
	return logging.LevelInfo
}

func printBanner(port int, bankEnabled bool) {
	bankStatus := "DISABLED (pass -bank <dir> to enable)"
	if bankEnabled {
		bankStatus = "ENABLED"
	}

	banner := `
╔═══════════════════════════════════════════════════════════════════╗
║                        TOYTREE API SERVER                         ║
╠═══════════════════════════════════════════════════════════════════╣
║                                                                   ║
║  Phylogenetic tree toolkit over HTTP.                             ║
║  Treebank: %-52s ║
║                                                                   ║
║  Quick Start:                                                     ║
║  ┌─────────────────────────────────────────────────────────────┐  ║
║  │ # Health check                                              │  ║
║  │ curl http://localhost:%d/healthz                          │  ║
║  │                                                             │  ║
║  │ # Parse a tree                                              │  ║
║  │ curl -X POST http://localhost:%d/v1/toytree/trees \       │  ║
║  │   -H "Content-Type: application/json" \                     │  ║
║  │   -d '{"newick": "(A:1,(B:2,C:3)90:4);"}'                   │  ║
║  └─────────────────────────────────────────────────────────────┘  ║
║                                                                   ║
║  Endpoints:                                                       ║
║  ├── Trees: /trees, /trees/:id, /trees/:id/nodes                 ║
║  ├── Mutate: reroot, unroot, drop_tips, ladderize, resolve       ║
║  ├── Distance: /distance/rf, /distance/quartet, consensus        ║
║  ├── Generate: /random                                           ║
║  └── Bank: /bank/trees, /bank/trees/:name, /bank/stats           ║
║                                                                   ║
║  Press Ctrl+C to stop                                             ║
╚═══════════════════════════════════════════════════════════════════╝
`
	fmt.Printf(banner, bankStatus, port, port)
}
