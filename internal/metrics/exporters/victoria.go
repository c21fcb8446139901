package exporters

import (
	"io"

	"github.com/VictoriaMetrics/metrics"
)

// VictoriaSet renders a VictoriaMetrics metrics.Set.
type VictoriaSet struct {
	set     *metrics.Set
	process bool
}

// NewVictoriaSet wraps set. With process true the go_* and process_* series
// from metrics.WriteProcessMetrics are appended; leave it off when a
// prometheus registry already exports them.
func NewVictoriaSet(set *metrics.Set, process bool) *VictoriaSet {
	return &VictoriaSet{set: set, process: process}
}

// Set returns the wrapped set so callers can register metrics on it.
func (v *VictoriaSet) Set() *metrics.Set {
	return v.set
}

// FmtMetrics writes the set. metrics.Set does not report write errors, so
// the first one is captured here.
func (v *VictoriaSet) FmtMetrics(w io.Writer) error {
	ew := &errWriter{w: w}
	v.set.WritePrometheus(ew)
	if v.process {
		metrics.WriteProcessMetrics(ew)
	}
	return ew.err
}

// errWriter remembers the first write error and drops later writes.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}
