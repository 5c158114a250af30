package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncSubscriptionCreated() {}
func (n *NoopRecorder) IncSubscriptionConfirmed() {}
func (n *NoopRecorder) IncConfirmationEmail(status string) {}
func (n *NoopRecorder) IncAuthFailure() {}
func (n *NoopRecorder) IncNewsletterDelivery(status string) {}
func (n *NoopRecorder) ObserveBroadcastDuration(duration time.Duration) {}

func (n *NoopRecorder) ObserveHTTPRequest(route, method string, status int, duration time.Duration) {}
