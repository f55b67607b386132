// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package events

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Kind classifies a coordinator event.
type Kind string

const (
	KindFetchFailed       Kind = "fetch_failed"
	KindValidationFailed  Kind = "validation_failed"
	KindSubmitted         Kind = "submitted"
	KindSubmitFailed      Kind = "submit_failed"
	KindWhitelistRecorded Kind = "whitelist_recorded"
	KindWhitelistFailed   Kind = "whitelist_failed"
	KindDismissed         Kind = "dismissed"
)

// Operation names used in events
const (
	OpGetUser       = "get_user"
	OpGetProject    = "get_project"
	OpGetCompany    = "get_company"
	OpGetSignatures = "get_signatures"
	OpSubmit        = "submit"
	OpWhitelist     = "whitelist"
	OpDismiss       = "dismiss"
)

type Event struct {
	FlowID    string
	Kind      Kind
	Operation string
	Err       error
	At        time.Time
}

// Detail returns the error text, or "" for successful events.
func (e Event) Detail() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// Reporter receives coordinator events. Implementations must be safe for
// concurrent use and must not block the caller for long.
type Reporter interface {
	Report(ctx context.Context, e Event)
}

// ReporterFunc adapts a function to a Reporter.
type ReporterFunc func(ctx context.Context, e Event)

func (f ReporterFunc) Report(ctx context.Context, e Event) {
	f(ctx, e)
}

// Discard drops every event.
var Discard Reporter = ReporterFunc(func(context.Context, Event) {})

// Channel is a Reporter that forwards events to a buffered channel.
// Events are dropped (and logged) when the buffer is full.
type Channel struct {
	ch     chan Event
	mu     sync.Mutex
	closed bool
}

func NewChannel(size int) *Channel {
	return &Channel{ch: make(chan Event, size)}
}

func (c *Channel) Report(_ context.Context, e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.ch <- e:
	default:
		slog.Warn("event dropped", "flow_id", e.FlowID, "kind", e.Kind, "operation", e.Operation)
	}
}

// Events returns the receive side of the channel.
func (c *Channel) Events() <-chan Event {
	return c.ch
}

// Close stops delivery and closes the channel. Safe to call more than once.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
}
