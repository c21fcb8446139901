package exporters

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/VictoriaMetrics/metrics"
)

func TestVictoriaSet(t *testing.T) {
	set := metrics.NewSet()
	set.NewCounter(`metricsd_config_reloads_total`).Add(2)
	set.NewCounter(`jobs_total{queue="default"}`).Inc()

	var buf bytes.Buffer
	if err := NewVictoriaSet(set, false).FmtMetrics(&buf); err != nil {
		t.Fatalf("FmtMetrics: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"metricsd_config_reloads_total 2\n",
		`jobs_total{queue="default"} 1` + "\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "go_goroutines") {
		t.Error("process metrics written without being requested")
	}
}

func TestVictoriaSetProcessMetrics(t *testing.T) {
	var buf bytes.Buffer
	if err := NewVictoriaSet(metrics.NewSet(), true).FmtMetrics(&buf); err != nil {
		t.Fatalf("FmtMetrics: %v", err)
	}
	if !strings.Contains(buf.String(), "go_goroutines") {
		t.Errorf("expected go_goroutines in process metrics:\n%s", buf.String())
	}
}

func TestVictoriaSetAccessor(t *testing.T) {
	set := metrics.NewSet()
	if NewVictoriaSet(set, false).Set() != set {
		t.Error("Set() should return the wrapped set")
	}
}

type failingWriter struct {
	calls int
}

func (f *failingWriter) Write(p []byte) (int, error) {
	f.calls++
	return 0, errors.New("disk full")
}

func TestVictoriaSetWriteError(t *testing.T) {
	set := metrics.NewSet()
	set.NewCounter("a_total").Inc()
	set.NewCounter("b_total").Inc()

	w := &failingWriter{}
	err := NewVictoriaSet(set, true).FmtMetrics(w)
	if err == nil || err.Error() != "disk full" {
		t.Fatalf("err = %v, want disk full", err)
	}
	if w.calls != 1 {
		t.Errorf("writer called %d times after failure, want 1", w.calls)
	}
}
