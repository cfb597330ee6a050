package cache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector 把 StoryCache 的统计快照导出为 Prometheus 指标。
// 每次抓取时读取一次快照，不额外维护状态。
type Collector struct {
	cache StoryCache

	hits        *prometheus.Desc
	misses      *prometheus.Desc
	hitRatio    *prometheus.Desc
	lastPreload *prometheus.Desc
}

func NewCollector(cache StoryCache, namespace string) *Collector {
	return &Collector{
		cache: cache,
		hits: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "hits_total"),
			"Number of page cache hits.", []string{"feed"}, nil),
		misses: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "misses_total"),
			"Number of page cache misses.", []string{"feed"}, nil),
		hitRatio: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "hit_ratio"),
			"Total hits divided by total lookups, 0 when nothing was looked up.", nil, nil),
		lastPreload: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "cache", "last_preload_timestamp_seconds"),
			"Unix time of the last completed preload, 0 if none.", nil, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.hitRatio
	ch <- c.lastPreload
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.cache.Stats()
	for feed, fs := range s.Feeds {
		ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(fs.Hits), feed.String())
		ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(fs.Misses), feed.String())
	}
	ch <- prometheus.MustNewConstMetric(c.hitRatio, prometheus.GaugeValue, s.HitRatio())

	var ts float64
	if s.HasPreloaded() {
		ts = float64(s.LastPreloadTime.UnixNano()) / 1e9
	}
	ch <- prometheus.MustNewConstMetric(c.lastPreload, prometheus.GaugeValue, ts)
}

var _ prometheus.Collector = (*Collector)(nil)
