// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/danielhkuo/cla-access/claapi"
	"github.com/danielhkuo/cla-access/cliparse"
	"github.com/danielhkuo/cla-access/coordinator"
	"github.com/danielhkuo/cla-access/db"
	"github.com/danielhkuo/cla-access/handlers"
	"github.com/danielhkuo/cla-access/middleware"
)

func NewRouter(conn *sql.DB, registry *coordinator.Registry, client *claapi.Client, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	store := db.NewEventStore(conn, cfg.DatabaseType)
	flowHandler := handlers.NewFlowHandler(registry, coordinator.ClientServices(client), store, cfg)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Flow lifecycle
	mux.HandleFunc("POST /flows", middleware.WithLogging(flowHandler.CreateFlow))
	mux.HandleFunc("GET /flows/{id}", middleware.WithLogging(flowHandler.GetFlow))
	mux.HandleFunc("DELETE /flows/{id}", middleware.WithLogging(flowHandler.DismissFlow))

	// Request form (requires X-Flow-Key)
	mux.HandleFunc("PUT /flows/{id}/mode", middleware.WithLogging(flowHandler.SetMode))
	mux.HandleFunc("PATCH /flows/{id}/form", middleware.WithLogging(flowHandler.UpdateForm))
	mux.HandleFunc("POST /flows/{id}/submit", middleware.WithLogging(flowHandler.Submit))

	// Event log
	mux.HandleFunc("GET /flows/{id}/events", middleware.WithLogging(flowHandler.ListEvents))

	// Root endpoint
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("cla-access API v1"))
	})

	return mux
}
