package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	SubscriptionsCreated      uint64
	SubscriptionsConfirmed    uint64
	ConfirmationEmailsSent    uint64
	ConfirmationEmailsFailed  uint64
	AuthFailures              uint64
	NewsletterDeliveries      uint64
	NewsletterDeliveryFailure uint64
	BroadcastCount            uint64
	BroadcastTotalNs          int64
	HTTPRequests              uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	subscriptionsCreated      uint64
	subscriptionsConfirmed    uint64
	confirmationEmailsSent    uint64
	confirmationEmailsFailed  uint64
	authFailures              uint64
	newsletterDeliveries      uint64
	newsletterDeliveryFailure uint64
	broadcastCount            uint64
	broadcastTotalNs          int64
	httpRequests              uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		SubscriptionsCreated:      atomic.LoadUint64(&m.subscriptionsCreated),
		SubscriptionsConfirmed:    atomic.LoadUint64(&m.subscriptionsConfirmed),
		ConfirmationEmailsSent:    atomic.LoadUint64(&m.confirmationEmailsSent),
		ConfirmationEmailsFailed:  atomic.LoadUint64(&m.confirmationEmailsFailed),
		AuthFailures:              atomic.LoadUint64(&m.authFailures),
		NewsletterDeliveries:      atomic.LoadUint64(&m.newsletterDeliveries),
		NewsletterDeliveryFailure: atomic.LoadUint64(&m.newsletterDeliveryFailure),
		BroadcastCount:            atomic.LoadUint64(&m.broadcastCount),
		BroadcastTotalNs:          atomic.LoadInt64(&m.broadcastTotalNs),
		HTTPRequests:              atomic.LoadUint64(&m.httpRequests),
	}
}

// IncSubscriptionCreated increments the created counter.
func (m *InMemoryRecorder) IncSubscriptionCreated() {
	atomic.AddUint64(&m.subscriptionsCreated, 1)
}

// IncSubscriptionConfirmed increments the confirmed counter.
func (m *InMemoryRecorder) IncSubscriptionConfirmed() {
	atomic.AddUint64(&m.subscriptionsConfirmed, 1)
}

// IncConfirmationEmail counts a confirmation email by outcome.
func (m *InMemoryRecorder) IncConfirmationEmail(status string) {
	if status == StatusSuccess {
		atomic.AddUint64(&m.confirmationEmailsSent, 1)
		return
	}
	atomic.AddUint64(&m.confirmationEmailsFailed, 1)
}

// IncAuthFailure increments the rejected-credentials counter.
func (m *InMemoryRecorder) IncAuthFailure() {
	atomic.AddUint64(&m.authFailures, 1)
}

// IncNewsletterDelivery counts one newsletter email by outcome.
func (m *InMemoryRecorder) IncNewsletterDelivery(status string) {
	if status == StatusSuccess {
		atomic.AddUint64(&m.newsletterDeliveries, 1)
		return
	}
	atomic.AddUint64(&m.newsletterDeliveryFailure, 1)
}

// ObserveBroadcastDuration records broadcast duration.
func (m *InMemoryRecorder) ObserveBroadcastDuration(duration time.Duration) {
	atomic.AddUint64(&m.broadcastCount, 1)
	atomic.AddInt64(&m.broadcastTotalNs, duration.Nanoseconds())
}

// ObserveHTTPRequest counts a served request.
func (m *InMemoryRecorder) ObserveHTTPRequest(route, method string, status int, duration time.Duration) {
	atomic.AddUint64(&m.httpRequests, 1)
}
