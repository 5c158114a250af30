// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Status labels shared by the delivery counters.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Subscription lifecycle
	IncSubscriptionCreated()
	IncSubscriptionConfirmed()
	IncConfirmationEmail(status string) // status: "success" or "failed"

	// Broadcasts
	IncAuthFailure()
	IncNewsletterDelivery(status string) // status: "success" or "failed"
	ObserveBroadcastDuration(duration time.Duration)

	// HTTP
	ObserveHTTPRequest(route, method string, status int, duration time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
