// Package exporters adapts metric registries to metrics.FmtMetrics.
package exporters

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/common/expfmt"
)

// Gatherer renders a prometheus.Gatherer in the text exposition format.
type Gatherer struct {
	gatherer prometheus.Gatherer
}

// NewGatherer wraps g. A nil g uses prometheus.DefaultGatherer.
func NewGatherer(g prometheus.Gatherer) *Gatherer {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return &Gatherer{gatherer: g}
}

// FmtMetrics gathers and encodes every metric family. A gathering error
// fails the whole render; partial snapshots are never written.
func (g *Gatherer) FmtMetrics(w io.Writer) error {
	families, err := g.gatherer.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// NewProcessRegistry returns a registry carrying the Go runtime and process
// collectors. namespace prefixes the process_* series; it may be empty.
func NewProcessRegistry(namespace string) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: namespace}),
	)
	return reg
}
