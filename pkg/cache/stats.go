package cache

import (
	"sync"
	"time"

	"go.uber.org/atomic"

	"hnpulse/biz/model"
)

// FeedStats 是单个 feed 的命中计数
type FeedStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// Stats 是缓存统计的时间点快照。
// 快照与并发写入之间不保证线性一致，但单个计数器不会被读到一半。
type Stats struct {
	Feeds           map[model.Feed]FeedStats
	LastPreloadTime time.Time // 零值表示尚未完成过预加载
}

// Feed 返回 f 的计数，没有记录时为零值
func (s Stats) Feed(f model.Feed) FeedStats {
	return s.Feeds[f]
}

func (s Stats) TotalHits() int64 {
	var n int64
	for _, fs := range s.Feeds {
		n += fs.Hits
	}
	return n
}

func (s Stats) TotalMisses() int64 {
	var n int64
	for _, fs := range s.Feeds {
		n += fs.Misses
	}
	return n
}

// HitRatio 返回 总命中/(总命中+总未命中)，没有任何观测时为 0
func (s Stats) HitRatio() float64 {
	hits, misses := s.TotalHits(), s.TotalMisses()
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}

// HasPreloaded 报告是否记录过预加载时间
func (s Stats) HasPreloaded() bool {
	return !s.LastPreloadTime.IsZero()
}

type feedCounters struct {
	hits   atomic.Int64
	misses atomic.Int64
}

// statsRecorder 独立于条目存储做同步，统计记账不会阻塞数据写入。
type statsRecorder struct {
	mu          sync.RWMutex // 只保护 counters 映射本身
	counters    map[model.Feed]*feedCounters
	lastPreload atomic.Time
}

func newStatsRecorder() *statsRecorder {
	r := &statsRecorder{counters: make(map[model.Feed]*feedCounters)}
	for _, f := range model.AllFeeds() {
		r.counters[f] = &feedCounters{}
	}
	return r
}

func (r *statsRecorder) forFeed(f model.Feed) *feedCounters {
	r.mu.RLock()
	c, ok := r.counters[f]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok = r.counters[f]; !ok {
		c = &feedCounters{}
		r.counters[f] = c
	}
	return c
}

func (r *statsRecorder) hit(f model.Feed)  { r.forFeed(f).hits.Inc() }
func (r *statsRecorder) miss(f model.Feed) { r.forFeed(f).misses.Inc() }

func (r *statsRecorder) markPreloaded(at time.Time) {
	r.lastPreload.Store(at)
}

func (r *statsRecorder) snapshot() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Stats{
		Feeds:           make(map[model.Feed]FeedStats, len(r.counters)),
		LastPreloadTime: r.lastPreload.Load(),
	}
	for f, c := range r.counters {
		s.Feeds[f] = FeedStats{Hits: c.hits.Load(), Misses: c.misses.Load()}
	}
	return s
}
