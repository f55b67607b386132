// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the CLA access request API.

# Flow Handler

FlowHandler exposes request-access flows over HTTP. It is created with the
flow registry, the CLA service bundle, the event store and the config:

	flowHandler := handlers.NewFlowHandler(registry, coordinator.ClientServices(client), store, cfg)

# Flow Lifecycle

	POST   /flows              → CreateFlow (returns flow_id and flow_key)
	GET    /flows/{id}         → GetFlow (?wait=true blocks until loaded)
	PUT    /flows/{id}/mode    → SetMode
	PATCH  /flows/{id}/form    → UpdateForm
	POST   /flows/{id}/submit  → Submit
	DELETE /flows/{id}         → DismissFlow
	GET    /flows/{id}/events  → ListEvents

CreateFlow starts the four reference-data fetches and returns immediately.
Flows created with "authenticated": true must carry an
"Authorization: Bearer <token>" header; the token is forwarded to the CLA
backend's authenticated user lookup.

Every /flows/{id} route requires the X-Flow-Key header.

# Error Mapping

  - 400: malformed JSON, missing ids, unknown manager mode
  - 401: missing or wrong flow key, missing bearer token
  - 404: unknown, dismissed, evicted or already submitted flow
  - 409: a submission already in progress
  - 410: flow dismissed while the request was in flight
  - 422: form failed validation; the body lists field errors
  - 503: flow creation during shutdown
  - 502: the CLA backend rejected or failed the request

A 502 from Submit leaves the flow editable so it can be submitted again.
A 200 from Submit releases the flow; its events stay readable.
Whitelist failures after a successful submit are never returned; they are
recorded as whitelist_failed events.
*/
package handlers
