package cmd

import (
	"fmt"

	vm "github.com/VictoriaMetrics/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/smazurov/metricsd/internal/metrics"
	"github.com/smazurov/metricsd/internal/metrics/exporters"
	"github.com/smazurov/metricsd/internal/version"
)

// sources is the metric data behind the responder.
type sources struct {
	metrics metrics.FmtMetrics

	// registry is nil when only the VictoriaMetrics set is served.
	registry *prometheus.Registry

	// reloaded counts config reloads on whichever backend is active.
	reloaded func()
}

func buildSources(source, namespace string) (*sources, error) {
	switch source {
	case SourcePrometheus:
		reg := exporters.NewProcessRegistry("")
		reg.MustRegister(version.NewCollector(namespace))
		reloads := promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "config_reloads_total",
			Help:      "Configuration reloads applied.",
		})
		return &sources{
			metrics:  exporters.NewGatherer(reg),
			registry: reg,
			reloaded: reloads.Inc,
		}, nil

	case SourceVictoria:
		victoria := exporters.NewVictoriaSet(vm.NewSet(), true)
		reloads := victoria.Set().NewCounter(metricName(namespace, "config_reloads_total"))
		return &sources{
			metrics:  victoria,
			reloaded: reloads.Inc,
		}, nil

	case SourceBoth:
		// Process metrics come from the registry only; both libraries
		// export go_* and process_* under the same names.
		reg := exporters.NewProcessRegistry("")
		reg.MustRegister(version.NewCollector(namespace))
		victoria := exporters.NewVictoriaSet(vm.NewSet(), false)
		reloads := victoria.Set().NewCounter(metricName(namespace, "config_reloads_total"))
		return &sources{
			metrics:  metrics.Multi(exporters.NewGatherer(reg), victoria),
			registry: reg,
			reloaded: reloads.Inc,
		}, nil
	}
	return nil, fmt.Errorf("unknown metrics source %q (want %s, %s or %s)",
		source, SourcePrometheus, SourceVictoria, SourceBoth)
}

func metricName(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "_" + name
}
