// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the CLA access request API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(conn, registry, client, cfg)

# Endpoints

Health:

	GET /health

Flow lifecycle:

	POST   /flows      - Create a flow and start loading reference data
	GET    /flows/{id} - Snapshot (?wait=true blocks until loaded)
	DELETE /flows/{id} - Dismiss

Request form:

	PUT   /flows/{id}/mode   - Choose select-existing or enter-manually
	PATCH /flows/{id}/form   - Update form fields
	POST  /flows/{id}/submit - Validate and send to the company manager

Event log:

	GET /flows/{id}/events - Fetch failures, submissions, whitelist outcomes

Every /flows/{id} route requires the X-Flow-Key header returned by
POST /flows.

# Handler Initialization

The router builds the event store and the CLA service bundle, then hands
them to the flow handler:

	store := db.NewEventStore(conn, cfg.DatabaseType)
	flowHandler := handlers.NewFlowHandler(registry, coordinator.ClientServices(client), store, cfg)
*/
package router
