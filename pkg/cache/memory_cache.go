package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"hnpulse/biz/model"
)

type pageEntry struct {
	items    []*model.Item
	storedAt time.Time
}

// feedPartition 保存单个 feed 的所有页。同一 feed 的写入在 mu 下串行，
// Invalidate 整体替换 pages 映射，读取者只会看到替换前或替换后的完整状态。
type feedPartition struct {
	mu    sync.RWMutex
	pages map[int]pageEntry
	gen   uint64
}

// memoryCache 是进程内的 StoryCache 实现。
// 缓存没有容量上限和过期策略：条目只会被 Invalidate 按 feed 整体清除，生命周期与进程相同。
type memoryCache struct {
	mu    sync.RWMutex // 只保护 feeds 映射，不保护分区内容
	feeds map[model.Feed]*feedPartition
	stats *statsRecorder
	now   func() time.Time
}

// NewMemoryCache 创建一个空的进程内缓存实例。
// 每个调用方应显式持有并传递该实例，而不是依赖全局变量。
func NewMemoryCache() StoryCache {
	return &memoryCache{
		feeds: make(map[model.Feed]*feedPartition),
		stats: newStatsRecorder(),
		now:   time.Now,
	}
}

func (c *memoryCache) partition(feed model.Feed) *feedPartition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.feeds[feed]
}

func (c *memoryCache) partitionOrCreate(feed model.Feed) *feedPartition {
	if p := c.partition(feed); p != nil {
		return p
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.feeds[feed]
	if !ok {
		p = &feedPartition{pages: make(map[int]pageEntry)}
		c.feeds[feed] = p
	}
	return p
}

// Get 实现 StoryCache 的 Get 方法
func (c *memoryCache) Get(_ context.Context, feed model.Feed, page, size int) ([]*model.Item, error) {
	p := c.partition(feed)
	if p == nil {
		c.stats.miss(feed)
		return nil, ErrNotFound
	}

	p.mu.RLock()
	entry, ok := p.pages[page]
	p.mu.RUnlock()

	if !ok {
		c.stats.miss(feed)
		return nil, ErrNotFound
	}
	c.stats.hit(feed)

	n := len(entry.items)
	if size > 0 && n > size {
		n = size
	}
	// 返回副本，调用方对切片的修改不会影响缓存
	items := make([]*model.Item, n)
	copy(items, entry.items)
	return items, nil
}

// Put 实现 StoryCache 的 Put 方法
func (c *memoryCache) Put(_ context.Context, feed model.Feed, items []*model.Item, page int) error {
	if page < 1 {
		return ErrInvalidPage
	}
	entry := c.entryOf(items)

	p := c.partitionOrCreate(feed)
	p.mu.Lock()
	p.pages[page] = entry
	p.mu.Unlock()
	return nil
}

func (c *memoryCache) PutIfGeneration(_ context.Context, feed model.Feed, items []*model.Item, page int, gen uint64) error {
	if page < 1 {
		return ErrInvalidPage
	}
	entry := c.entryOf(items)

	p := c.partitionOrCreate(feed)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gen != gen {
		return ErrStaleGeneration
	}
	p.pages[page] = entry
	return nil
}

func (c *memoryCache) entryOf(items []*model.Item) pageEntry {
	stored := make([]*model.Item, len(items))
	copy(stored, items)
	return pageEntry{items: stored, storedAt: c.now()}
}

func (c *memoryCache) Generation(_ context.Context, feed model.Feed) uint64 {
	p := c.partition(feed)
	if p == nil {
		return 0
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.gen
}

// Invalidate 实现 StoryCache 的 Invalidate 方法。
// 从未写入过的 feed 也会推进代数，保证之前读取的代数全部失效。
func (c *memoryCache) Invalidate(_ context.Context, feed model.Feed) error {
	p := c.partitionOrCreate(feed)
	p.mu.Lock()
	p.pages = make(map[int]pageEntry)
	p.gen++
	p.mu.Unlock()
	return nil
}

// HasData 实现 StoryCache 的 HasData 方法
func (c *memoryCache) HasData(_ context.Context, feed model.Feed) bool {
	p := c.partition(feed)
	if p == nil {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.pages) > 0
}

// Entries 实现 StoryCache 的 Entries 方法
func (c *memoryCache) Entries(_ context.Context, feed model.Feed) []EntryInfo {
	p := c.partition(feed)
	if p == nil {
		return nil
	}

	p.mu.RLock()
	infos := make([]EntryInfo, 0, len(p.pages))
	for page, e := range p.pages {
		infos = append(infos, EntryInfo{Page: page, Size: len(e.items), StoredAt: e.storedAt})
	}
	p.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].Page < infos[j].Page })
	return infos
}

func (c *memoryCache) Stats() Stats {
	return c.stats.snapshot()
}

func (c *memoryCache) MarkPreloaded(at time.Time) {
	c.stats.markPreloaded(at)
}

var _ StoryCache = (*memoryCache)(nil)
