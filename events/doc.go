/*
Package events is the error-reporting channel between a request coordinator
and its host.

Coordinators never surface background failures to the user. Instead every
notable outcome (a failed initial fetch, a submission, a whitelist
registration that did or did not go through) is sent to a Reporter:

	store := db.NewEventStore(conn, dbType) // persists events
	c := coordinator.New(params, svc, store)

	ch := events.NewChannel(16) // in-process observer
	c = coordinator.New(params, svc, ch)

Channel buffers events for tests and in-process observers; db.EventStore
persists them so the flow API can list them later.
*/
package events
