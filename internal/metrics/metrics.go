// Package metrics holds the Prometheus instruments for logbook activity.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pkordes/trucklog/internal/domain"
)

const namespace = "trucklog"

// Recorder counts journey lifecycle, quota and billing events.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	journeysStarted   prometheus.Counter
	journeysCompleted prometheus.Counter
	eventsAttached    *prometheus.CounterVec
	quotaDenied       prometheus.Counter
	premiumUpgrades   *prometheus.CounterVec
	webhookRequests   *prometheus.CounterVec
}

// New registers the instruments on reg and returns a Recorder.
// Pass prometheus.DefaultRegisterer to expose them via promhttp.Handler.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		journeysStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journeys",
			Name:      "started_total",
			Help:      "Journeys created.",
		}),
		journeysCompleted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journeys",
			Name:      "completed_total",
			Help:      "Journeys completed.",
		}),
		eventsAttached: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journeys",
			Name:      "events_total",
			Help:      "Events attached to in-progress journeys by kind.",
		}, []string{"kind"}),
		quotaDenied: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quota",
			Name:      "denied_total",
			Help:      "Journey creations refused by the free quota.",
		}),
		premiumUpgrades: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "premium_upgrades_total",
			Help:      "Premium confirmations by source (verify, webhook).",
		}, []string{"source"}),
		webhookRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "webhook_requests_total",
			Help:      "Stripe webhook requests by event type and HTTP status.",
		}, []string{"event_type", "status"}),
	}
}

func (r *Recorder) JourneyStarted() {
	if r == nil {
		return
	}
	r.journeysStarted.Inc()
}

func (r *Recorder) JourneyCompleted() {
	if r == nil {
		return
	}
	r.journeysCompleted.Inc()
}

func (r *Recorder) EventAttached(kind domain.EventKind) {
	if r == nil {
		return
	}
	r.eventsAttached.WithLabelValues(string(kind)).Inc()
}

func (r *Recorder) QuotaDenied() {
	if r == nil {
		return
	}
	r.quotaDenied.Inc()
}

// PremiumUpgraded counts a confirmation that actually flipped the flag.
func (r *Recorder) PremiumUpgraded(source string) {
	if r == nil {
		return
	}
	r.premiumUpgrades.WithLabelValues(source).Inc()
}

func (r *Recorder) WebhookRequest(eventType string, status int) {
	if r == nil {
		return
	}
	if eventType == "" {
		eventType = "unknown"
	}
	r.webhookRequests.WithLabelValues(eventType, strconv.Itoa(status)).Inc()
}
