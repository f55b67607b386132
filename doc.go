// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the CLA access request server.

A contributor who is not yet covered by their company's Corporate CLA asks
the company's CLA managers to add them to the approved list. The server
drives that request: it loads the project, company, user emails and the
corporate signature's access list from the CLA backend, lets the contributor
pick a listed manager or name one manually, sends the message, and records a
whitelist request in the background.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	CLA_API_URL=https://api.example.org FLOW_KEY_SALT=... go run .

Or with flags:

	go run . -p 3318 -api https://api.example.org -flow-salt dev

A .env file in the working directory is loaded first if present.

# Configuration

Required settings:

  - CLA_API_URL (-api): CLA backend base URL
  - FLOW_KEY_SALT (-flow-salt): Secret for flow key HMAC

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t), DATABASE_URL (-d): Event store (default: SQLite file)
  - CLA_API_TIMEOUT, CLA_API_RATE, CLA_API_BURST: Outbound client limits

# Architecture

  - coordinator: Request-access flow state, validation and submission
  - claapi: Typed CLA backend client (rate limited, traced)
  - events: Event reporting for fetch failures and background outcomes
  - handlers: HTTP handlers for flows and their events
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, JSON helpers
  - models: Wire and request/response types
  - auth: Flow IDs, flow keys and bearer tokens
  - db: Connections, schema creation and the event store
  - cliparse: Configuration parsing

On SIGINT or SIGTERM the server stops accepting requests, dismisses every
open flow and waits for background whitelist requests to finish.

See package documentation for each component.
*/
package main
