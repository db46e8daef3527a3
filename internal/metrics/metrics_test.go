package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_SessionLifecycleAndProbes(t *testing.T) {
	m := New()
	m.SessionStarted()
	m.SessionStarted()
	m.SessionFinished()
	m.Tick()
	m.Probe(false, nil)
	lat := 12.0
	m.Probe(true, &lat)
	m.StorageError()

	if got := testutil.ToFloat64(m.SessionsActive); got != 1 {
		t.Fatalf("active=%v want 1", got)
	}
	if got := testutil.ToFloat64(m.SessionsStarted); got != 2 {
		t.Fatalf("started=%v want 2", got)
	}
	if got := testutil.ToFloat64(m.ProbeFailures); got != 1 {
		t.Fatalf("failures=%v want 1", got)
	}
	if got := testutil.ToFloat64(m.StorageErrors); got != 1 {
		t.Fatalf("storage errors=%v want 1", got)
	}
	if n := testutil.CollectAndCount(m.ProbeLatency); n != 1 {
		t.Fatalf("latency histogram series=%d want 1", n)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.SessionStarted()
	m.Tick()
	m.Probe(true, nil)
	m.FanoutError()
	m.SetSubscribers(3)
}

func TestMetrics_HandlerExposesCollectors(t *testing.T) {
	m := New()
	m.Tick()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rr.Body)
	if !strings.Contains(string(body), "pingmonitor_ticks_total 1") {
		t.Fatalf("ticks counter missing from exposition:\n%s", body)
	}
}
