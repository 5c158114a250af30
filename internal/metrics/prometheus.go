package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "letterbox"

// PrometheusRecorder exports Recorder events as Prometheus collectors.
type PrometheusRecorder struct {
	subscriptionsCreated   prometheus.Counter
	subscriptionsConfirmed prometheus.Counter
	confirmationEmails     *prometheus.CounterVec
	authFailures           prometheus.Counter
	newsletterDeliveries   *prometheus.CounterVec
	broadcastDuration      prometheus.Histogram
	httpDuration           *prometheus.HistogramVec
}

// NewPrometheus registers all collectors with reg and returns the recorder.
// Registering twice against the same registerer panics, as promauto does.
func NewPrometheus(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		subscriptionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscriptions_created_total",
			Help:      "Total number of pending subscriptions stored.",
		}),
		subscriptionsConfirmed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscriptions_confirmed_total",
			Help:      "Total number of subscriptions moved to confirmed.",
		}),
		confirmationEmails: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "confirmation_emails_total",
			Help:      "Confirmation emails handed to the email API, by outcome.",
		}, []string{"status"}),
		authFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Publish requests rejected for bad credentials.",
		}),
		newsletterDeliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "newsletter_deliveries_total",
			Help:      "Newsletter emails handed to the email API, by outcome.",
		}, []string{"status"}),
		broadcastDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "broadcast_duration_seconds",
			Help:      "Wall time of a complete newsletter broadcast.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}
}

func (p *PrometheusRecorder) IncSubscriptionCreated() {
	p.subscriptionsCreated.Inc()
}

func (p *PrometheusRecorder) IncSubscriptionConfirmed() {
	p.subscriptionsConfirmed.Inc()
}

func (p *PrometheusRecorder) IncConfirmationEmail(status string) {
	p.confirmationEmails.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) IncAuthFailure() {
	p.authFailures.Inc()
}

func (p *PrometheusRecorder) IncNewsletterDelivery(status string) {
	p.newsletterDeliveries.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) ObserveBroadcastDuration(duration time.Duration) {
	p.broadcastDuration.Observe(duration.Seconds())
}

func (p *PrometheusRecorder) ObserveHTTPRequest(route, method string, status int, duration time.Duration) {
	p.httpDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(duration.Seconds())
}
