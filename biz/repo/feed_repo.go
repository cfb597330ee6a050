package repo

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"hnpulse/biz/model"
	"hnpulse/biz/paging"
	"hnpulse/biz/remote"
	"hnpulse/pkg/cache"
)

// DefaultPageSize 分页流默认的每页条数
const DefaultPageSize = 10

// Options 配置 FeedRepository
type Options struct {
	PageSize         int
	FetchConcurrency int
}

type feedRepo struct {
	cache  cache.StoryCache
	source remote.ItemSource
	opts   Options
	logger *zap.Logger
}

// NewFeedRepository 创建 FeedRepository 实例
// 依赖注入缓存实例和上游数据源
func NewFeedRepository(c cache.StoryCache, source remote.ItemSource, opts Options, logger *zap.Logger) FeedRepository {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &feedRepo{
		cache:  c,
		source: source,
		opts:   opts,
		logger: logger.Named("feed_repo"),
	}
}

func (r *feedRepo) Pages(feed model.Feed) *PageStream {
	src := paging.NewFeedSource(feed, r.cache, r.source, paging.Options{FetchConcurrency: r.opts.FetchConcurrency}, r.logger)
	return newPageStream(src, r.opts.PageSize, r.logger)
}

func (r *feedRepo) Invalidate(ctx context.Context, feed model.Feed) error {
	if err := r.cache.Invalidate(ctx, feed); err != nil {
		return fmt.Errorf("repo: invalidate %s: %w", feed, err)
	}
	r.logger.Info("已清空 feed 缓存", zap.Stringer("feed", feed))
	return nil
}

func (r *feedRepo) Stats() cache.Stats {
	return r.cache.Stats()
}

func (r *feedRepo) Entries(ctx context.Context, feed model.Feed) []cache.EntryInfo {
	return r.cache.Entries(ctx, feed)
}
