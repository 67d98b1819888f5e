package buffer

import "github.com/prometheus/client_golang/prometheus"

// StatsCollector exposes buffer pool statistics to Prometheus. Values are
// read from source at scrape time.
type StatsCollector struct {
	source     func() Stats
	hits       *prometheus.Desc
	misses     *prometheus.Desc
	evictions  *prometheus.Desc
	writeBacks *prometheus.Desc
	hitRate    *prometheus.Desc
	cached     *prometheus.Desc
	dirty      *prometheus.Desc
	capacity   *prometheus.Desc
}

func NewStatsCollector(namespace string, source func() Stats) *StatsCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "buffer_pool", name), help, nil, nil)
	}
	return &StatsCollector{
		source:     source,
		hits:       desc("hits_total", "Page requests served from the buffer pool."),
		misses:     desc("misses_total", "Page requests that had to read from disk."),
		evictions:  desc("evictions_total", "Pages evicted to make room."),
		writeBacks: desc("write_backs_total", "Dirty pages written to disk."),
		hitRate:    desc("hit_rate", "Hits divided by all page requests."),
		cached:     desc("cached_pages", "Pages currently cached."),
		dirty:      desc("dirty_pages", "Cached pages not yet written back."),
		capacity:   desc("capacity_pages", "Maximum number of cached pages."),
	}
}

func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.evictions
	ch <- c.writeBacks
	ch <- c.hitRate
	ch <- c.cached
	ch <- c.dirty
	ch <- c.capacity
}

func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.source()
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(stats.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(stats.Misses))
	ch <- prometheus.MustNewConstMetric(c.evictions, prometheus.CounterValue, float64(stats.Evictions))
	ch <- prometheus.MustNewConstMetric(c.writeBacks, prometheus.CounterValue, float64(stats.WriteBacks))
	ch <- prometheus.MustNewConstMetric(c.hitRate, prometheus.GaugeValue, stats.HitRate)
	ch <- prometheus.MustNewConstMetric(c.cached, prometheus.GaugeValue, float64(stats.Cached))
	ch <- prometheus.MustNewConstMetric(c.dirty, prometheus.GaugeValue, float64(stats.Dirty))
	ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(stats.Capacity))
}
