// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles database connections, schema creation and the event store.

# Connections

Open accepts "sqlite" (modernc.org/sqlite, the default) or "postgres"
(github.com/lib/pq):

	conn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - flow_event: one row per coordinator event (fetch failures, submissions,
    whitelist outcomes, dismissals). created_at is Unix nanoseconds.

# Event Store

EventStore implements events.Reporter, so it can be handed straight to a
coordinator:

	store := db.NewEventStore(conn, cfg.DatabaseType)
	evts, err := store.ListByFlow(ctx, flowID)

Queries are written with ? placeholders and rebound to $n for postgres.
*/
package db
