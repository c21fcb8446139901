package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Instrument wraps next with scrape counters registered on reg, so the
// endpoint reports its own traffic. It panics if the collectors are already
// registered on reg. A nil reg creates unregistered collectors.
func Instrument(reg prometheus.Registerer, next http.Handler) http.Handler {
	factory := promauto.With(reg)

	inFlight := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "metricsd",
		Name:      "scrapes_in_flight",
		Help:      "Scrape requests currently being served.",
	})

	total := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "metricsd",
		Name:      "scrapes_total",
		Help:      "Scrape requests handled, by status code and method.",
	}, []string{"code", "method"})

	duration := factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "metricsd",
		Name:      "scrape_duration_seconds",
		Help:      "Time spent rendering and writing scrape responses.",
		Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"code", "method"})

	return promhttp.InstrumentHandlerInFlight(inFlight,
		promhttp.InstrumentHandlerDuration(duration,
			promhttp.InstrumentHandlerCounter(total, next),
		),
	)
}
