package repo

import (
	"context"

	"hnpulse/biz/model"
	"hnpulse/pkg/cache"
)

// FeedRepository 是表现层使用的入口：按 feed 提供可续读的分页流，
// 并把刷新和统计请求转发给缓存。它本身不持有状态。
type FeedRepository interface {
	// Pages 为 feed 创建一个新的分页流，背后是一个全新的 FeedSource。
	Pages(feed model.Feed) *PageStream

	// Invalidate 清空 feed 的缓存页。返回时旧页已不可见。
	Invalidate(ctx context.Context, feed model.Feed) error

	// Stats 返回缓存统计快照。
	Stats() cache.Stats

	// Entries 列出 feed 当前缓存的页。
	Entries(ctx context.Context, feed model.Feed) []cache.EntryInfo
}
