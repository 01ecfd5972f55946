// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Form submissions by form and outcome (accepted, invalid, error).
	FormsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ppecatalog_forms_total",
			Help: "Form submissions by form and outcome",
		},
		[]string{"form", "outcome"},
	)

	// Outbox deliveries by notification kind and result (sent, retry, failed).
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ppecatalog_notifications_total",
			Help: "Notification delivery attempts by kind and result",
		},
		[]string{"kind", "result"},
	)

	MailSendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ppecatalog_mail_send_duration_seconds",
			Help:    "Time spent handing one message to the SMTP server",
			Buckets: prometheus.DefBuckets,
		},
	)

	ListingResults = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ppecatalog_listing_results",
			Help:    "Products matched per listing request",
			Buckets: []float64{0, 1, 3, 6, 9, 12, 24, 48, 96},
		},
		[]string{"view"},
	)
)
