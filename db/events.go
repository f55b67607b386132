// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/cla-access/events"
	"github.com/danielhkuo/cla-access/models"
)

// EventStore persists coordinator events. It implements events.Reporter.
type EventStore struct {
	db     *sql.DB
	dbType string
}

func NewEventStore(db *sql.DB, dbType string) *EventStore {
	return &EventStore{db: db, dbType: dbType}
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *EventStore) rebind(query string) string {
	if s.dbType != TypePostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Insert stores e and returns the stored record.
func (s *EventStore) Insert(ctx context.Context, e events.Event) (models.Event, error) {
	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	rec := models.Event{
		ID:        uuid.NewString(),
		FlowID:    e.FlowID,
		Kind:      string(e.Kind),
		Operation: e.Operation,
		Detail:    e.Detail(),
		CreatedAt: at.UTC(),
	}

	var detail *string
	if rec.Detail != "" {
		detail = &rec.Detail
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO flow_event (id, flow_id, kind, operation, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), rec.ID, rec.FlowID, rec.Kind, rec.Operation, detail, at.UnixNano())
	if err != nil {
		return models.Event{}, fmt.Errorf("failed to insert event: %w", err)
	}
	return rec, nil
}

// Report stores e, logging instead of returning failures. The write is not
// tied to ctx's cancellation.
func (s *EventStore) Report(ctx context.Context, e events.Event) {
	if _, err := s.Insert(context.WithoutCancel(ctx), e); err != nil {
		slog.Error("failed to record event",
			"flow_id", e.FlowID,
			"kind", e.Kind,
			"operation", e.Operation,
			"error", err,
		)
	}
}

// ListByFlow returns a flow's events, oldest first.
func (s *EventStore) ListByFlow(ctx context.Context, flowID string) ([]models.Event, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, flow_id, kind, operation, detail, created_at
		FROM flow_event
		WHERE flow_id = ?
		ORDER BY created_at, id
	`), flowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	out := []models.Event{}
	for rows.Next() {
		var (
			e      models.Event
			detail sql.NullString
			nanos  int64
		)
		if err := rows.Scan(&e.ID, &e.FlowID, &e.Kind, &e.Operation, &detail, &nanos); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Detail = detail.String
		e.CreatedAt = time.Unix(0, nanos).UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	return out, nil
}
