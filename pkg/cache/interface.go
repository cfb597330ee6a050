package cache

import (
	"context"
	"time"

	"hnpulse/biz/model"
)

// StoryCache 定义按 (feed, page) 存取条目页的缓存操作接口。
// 它不关心分页策略，也不访问网络。
type StoryCache interface {
	// Get 返回 (feed, page) 缓存的条目，超过 size 时截断为前 size 条（size <= 0 表示不截断）。
	// 未命中返回 ErrNotFound。每次调用恰好记录一次命中或一次未命中。
	Get(ctx context.Context, feed model.Feed, page, size int) ([]*model.Item, error)

	// Put 无条件地用 items 替换 (feed, page) 的条目，不做长度或顺序校验。
	Put(ctx context.Context, feed model.Feed, items []*model.Item, page int) error

	// Generation 返回 feed 当前的代数，每次 Invalidate 加一。
	Generation(ctx context.Context, feed model.Feed) uint64

	// PutIfGeneration 同 Put，但仅当 feed 的代数仍为 gen 时写入，否则返回 ErrStaleGeneration。
	// 加载方在拉取 ID 列表之前读取代数，之后用它写入，刷新前开始的加载就不会把旧数据写回。
	PutIfGeneration(ctx context.Context, feed model.Feed, items []*model.Item, page int, gen uint64) error

	// Invalidate 清空 feed 的所有页并推进代数，不重置命中统计。
	// 并发的 Get 要么看到清空前的完整数据，要么看到空集。
	Invalidate(ctx context.Context, feed model.Feed) error

	// HasData 报告 feed 是否至少有一页缓存。
	HasData(ctx context.Context, feed model.Feed) bool

	// Entries 列出 feed 当前缓存的页（按页码升序），用于诊断。
	Entries(ctx context.Context, feed model.Feed) []EntryInfo

	// Stats 返回统计快照。
	Stats() Stats

	// MarkPreloaded 记录最近一次完整预加载的时间。
	MarkPreloaded(at time.Time)
}

// EntryInfo 描述一个缓存页
type EntryInfo struct {
	Page     int       `json:"page"`
	Size     int       `json:"size"`
	StoredAt time.Time `json:"stored_at"`
}
