package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "entryguard"

// modes lists every mode label so the gauge always exports all of them.
var modes = []string{"idle", "greeting", "awaiting_credential", "emergency"}

// Recorder exports controller activity as Prometheus metrics.
//
// Thread Safety: all methods are safe for concurrent use.
type Recorder struct {
	cycles        prometheus.Counter
	cycleDuration prometheus.Histogram
	mode          *prometheus.GaugeVec
	emergency     prometheus.Gauge
	credentials   *prometheus.CounterVec
	lockouts      prometheus.Counter
	deliveries    *prometheus.CounterVec
}

// NewRecorder registers the metrics with reg. Pass prometheus.NewRegistry()
// in tests to keep them isolated.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	r := &Recorder{
		cycles: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cycles_total",
			Help:      "Control cycles executed.",
		}),
		cycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Time spent inside one control cycle.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
		}),
		mode: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "mode",
			Help:      "1 for the current controller mode, 0 for the others.",
		}, []string{"mode"}),
		emergency: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "emergency_active",
			Help:      "1 while a hazard emergency is active.",
		}),
		credentials: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "credential_attempts_total",
			Help:      "Completed credential entries by outcome.",
		}, []string{"outcome"}),
		lockouts: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "credential_lockouts_total",
			Help:      "Times the consecutive failure threshold was reached.",
		}),
		deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "notification_deliveries_total",
			Help:      "Notification delivery attempts by channel, category and result.",
		}, []string{"channel", "category", "ok"}),
	}
	for _, m := range modes {
		r.mode.WithLabelValues(m).Set(0)
	}
	return r
}

// ObserveCycle records one cycle and the mode it ended in.
func (r *Recorder) ObserveCycle(mode string, emergency bool, duration time.Duration) {
	r.cycles.Inc()
	r.cycleDuration.Observe(duration.Seconds())
	for _, m := range modes {
		v := 0.0
		if m == mode {
			v = 1
		}
		r.mode.WithLabelValues(m).Set(v)
	}
	if emergency {
		r.emergency.Set(1)
	} else {
		r.emergency.Set(0)
	}
}

// CountCredential records one accepted or rejected entry.
func (r *Recorder) CountCredential(outcome string, lockout bool) {
	r.credentials.WithLabelValues(outcome).Inc()
	if lockout {
		r.lockouts.Inc()
	}
}

// CountDelivery records one channel attempt for one event.
func (r *Recorder) CountDelivery(channel, category string, ok bool) {
	r.deliveries.WithLabelValues(channel, category, strconv.FormatBool(ok)).Inc()
}
