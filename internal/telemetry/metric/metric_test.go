package metric

import (
	"bytes"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r.registry == nil {
		t.Fatal("registry is nil")
	}
	if r.RequestsTotal == nil || r.RequestDuration == nil || r.ConnectionsRejected == nil {
		t.Fatal("metrics not initialized")
	}

	families, err := r.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	var sawGo bool
	for _, mf := range families {
		if strings.HasPrefix(mf.GetName(), "go_") {
			sawGo = true
		}
	}
	if !sawGo {
		t.Error("runtime collector not registered")
	}
}

func TestRegistry_Recording(t *testing.T) {
	r := NewBareRegistry()

	r.RequestsTotal.WithLabelValues("kkm", "200").Inc()
	r.RequestsTotal.WithLabelValues("kkm", "200").Inc()
	r.ConnectionsRejected.WithLabelValues(ReasonConcurrency).Inc()
	r.CacheLookups.WithLabelValues("kkm", CacheHit).Inc()
	r.Inflight.Set(3)

	if got := testutil.ToFloat64(r.RequestsTotal.WithLabelValues("kkm", "200")); got != 2 {
		t.Errorf("requests_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.ConnectionsRejected.WithLabelValues(ReasonConcurrency)); got != 1 {
		t.Errorf("connections_rejected_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.Inflight); got != 3 {
		t.Errorf("inflight = %v, want 3", got)
	}
}

func TestCollector(t *testing.T) {
	r := NewBareRegistry()
	entries := 7
	c := NewCollector(Sources{
		CacheEntries: func() int { return entries },
		Devices:      func() int { return 2 },
		State:        func() string { return "running" },
	})
	r.MustRegister(c)

	// ConcurrencyLimit is nil and must be skipped.
	if got := testutil.CollectAndCount(c); got != 3 {
		t.Errorf("CollectAndCount() = %d, want 3", got)
	}

	want := `
# HELP kkmgate_cache_entries Entries in the response cache
# TYPE kkmgate_cache_entries gauge
kkmgate_cache_entries 7
`
	if err := testutil.CollectAndCompare(c, strings.NewReader(want), "kkmgate_cache_entries"); err != nil {
		t.Error(err)
	}

	entries = 9
	if err := testutil.CollectAndCompare(c, strings.NewReader(strings.Replace(want, " 7\n", " 9\n", 1)), "kkmgate_cache_entries"); err != nil {
		t.Errorf("collector did not resample: %v", err)
	}
}

func TestWriteText(t *testing.T) {
	r := NewBareRegistry()
	r.RequestsTotal.WithLabelValues("ping", "200").Inc()

	var buf bytes.Buffer
	if err := WriteText(&buf, r.Gatherer()); err != nil {
		t.Fatalf("WriteText() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `kkmgate_requests_total{area="ping",status="200"} 1`) {
		t.Errorf("output missing counter:\n%s", out)
	}
	if !strings.Contains(out, "# TYPE kkmgate_requests_total counter") {
		t.Errorf("output missing TYPE line:\n%s", out)
	}
}
