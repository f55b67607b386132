package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/danielhkuo/cla-access/claapi"
	"github.com/danielhkuo/cla-access/cliparse"
	"github.com/danielhkuo/cla-access/coordinator"
	"github.com/danielhkuo/cla-access/db"
	"github.com/danielhkuo/cla-access/middleware"
	"github.com/danielhkuo/cla-access/router"
)

func main() {
	var err error

	// Parse configuration (.env, environment, flags)
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	// Connect to the event store
	dbConn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "type", cfg.DatabaseType, "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Create schema (tables)
	if err := db.CreateSchema(dbConn); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	// CLA backend client
	limit := rate.Inf
	if cfg.CLAAPIRate > 0 {
		limit = rate.Limit(cfg.CLAAPIRate)
	}
	client := claapi.New(cfg.CLAAPIURL,
		claapi.WithTimeout(cfg.CLAAPITimeout),
		claapi.WithRateLimit(limit, cfg.CLAAPIBurst),
		claapi.WithUserAgent("cla-access/1"),
	)
	slog.Info("CLA backend configured", "url", client.BaseURL(), "timeout", cfg.CLAAPITimeout)

	registry := coordinator.NewRegistry(coordinator.WithIdleTTL(cfg.FlowIdleTTL))
	evictCtx, stopEvict := context.WithCancel(context.Background())
	go registry.Run(evictCtx)

	// Create router
	mux := router.NewRouter(dbConn, registry, client, cfg)

	// Create server
	server := http.Server{
		Handler:           middleware.CORS(mux),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		// Wait for Ctrl-C signal
		<-ctrlc
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown incomplete", "error", err)
		}
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port, "flow_idle_ttl", cfg.FlowIdleTTL)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		// ListenAndServe returns as soon as Shutdown starts; let handlers finish
		<-shutdownDone
		slog.Info("Server closed")
	}

	// Dismiss open flows and let pending submits and whitelist requests finish
	stopEvict()
	registry.Shutdown()
	slog.Info("Flows drained")
}
