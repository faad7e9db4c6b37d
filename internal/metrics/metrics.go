package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics - инструменты Prometheus бота. У каждого экземпляра свой реестр,
// поэтому несколько ботов (и тестов) уживаются в одном процессе.
type Metrics struct {
	Registry *prometheus.Registry

	Updates        *prometheus.CounterVec
	HandlerErrors  *prometheus.CounterVec
	HandleDuration prometheus.Histogram
	TaskEvents     *prometheus.CounterVec
	ActiveDialogs  prometheus.Gauge
}

func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		Updates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Telegram updates received by kind.",
		}, []string{"kind"}),
		HandlerErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_errors_total",
			Help:      "Failed update handlers by reason.",
		}, []string{"reason"}),
		HandleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "update_handle_seconds",
			Help:      "Time spent handling one update.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		TaskEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_events_total",
			Help:      "Task lifecycle events: added, rejected, deleted, not_found.",
		}, []string{"event"}),
		ActiveDialogs: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_dialogs",
			Help:      "Dialogs currently waiting for task text.",
		}),
	}
}

func (m *Metrics) ObserveHandle(d time.Duration) {
	m.HandleDuration.Observe(d.Seconds())
}

// Handler отдает содержимое собственного реестра в формате Prometheus
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
