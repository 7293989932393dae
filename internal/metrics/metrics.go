package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Updates counts Telegram updates by kind (message, callback, other).
	Updates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_bot_updates_total",
			Help: "Total number of Telegram updates received",
		},
		[]string{"kind"},
	)

	// Reports counts report attempts by outcome
	// (notified, fallback, nobody, no_target, self_report, target_admin, reporter_admin, throttled, error).
	Reports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_bot_reports_total",
			Help: "Total number of report requests by outcome",
		},
		[]string{"outcome"},
	)

	// AdminsNotified tracks how many admins were tagged per report.
	AdminsNotified = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "report_bot_admins_notified",
			Help:    "Number of admins mentioned per report",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
	)

	// ConfigSteps counts unavailability-window configuration steps by result.
	ConfigSteps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_bot_config_steps_total",
			Help: "Total number of unavailability configuration callbacks",
		},
		[]string{"result"}, // prompt, configured, invalid, no_timezone, error
	)

	// TimezoneFailures counts availability checks that failed open on an unresolvable zone.
	TimezoneFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "report_bot_timezone_failures_total",
			Help: "Total number of timezone resolution failures during availability checks",
		},
	)

	// HandlerErrors counts failures talking to Telegram or the store.
	HandlerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "report_bot_handler_errors_total",
			Help: "Total number of handler errors",
		},
		[]string{"handler"},
	)
)
