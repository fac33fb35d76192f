package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Sources are read at scrape time. Nil functions are skipped.
type Sources struct {
	CacheEntries     func() int
	Devices          func() int
	ConcurrencyLimit func() int
	State            func() string
}

// Collector samples live component state on every scrape instead of keeping
// gauges in sync on each mutation.
type Collector struct {
	src Sources

	cacheEntries *prometheus.Desc
	devices      *prometheus.Desc
	limit        *prometheus.Desc
	state        *prometheus.Desc
}

// NewCollector creates a collector over src.
func NewCollector(src Sources) *Collector {
	return &Collector{
		src: src,
		cacheEntries: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "entries"),
			"Entries in the response cache", nil, nil),
		devices: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "registered_devices"),
			"Devices in the connection-parameter registry", nil, nil),
		limit: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "concurrency_limit"),
			"Configured connection concurrency limit", nil, nil),
		state: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "server_state"),
			"Lifecycle state of the server; the current state is 1", []string{"state"}, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.cacheEntries
	ch <- c.devices
	ch <- c.limit
	ch <- c.state
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	gauge := func(d *prometheus.Desc, f func() int) {
		if f != nil {
			ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, float64(f()))
		}
	}
	gauge(c.cacheEntries, c.src.CacheEntries)
	gauge(c.devices, c.src.Devices)
	gauge(c.limit, c.src.ConcurrencyLimit)
	if c.src.State != nil {
		ch <- prometheus.MustNewConstMetric(c.state, prometheus.GaugeValue, 1, c.src.State())
	}
}
