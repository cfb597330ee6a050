package paging

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"hnpulse/biz/model"
	"hnpulse/biz/remote"
	"hnpulse/pkg/cache"
)

// DefaultFetchConcurrency 是单页并发获取条目的默认上限
const DefaultFetchConcurrency = 10

// Options 配置 FeedSource
type Options struct {
	FetchConcurrency int
}

// FeedSource 为单个 feed 提供缓存优先的分页加载。
// 实例在首次缓存未命中时拉取并记住完整 ID 列表，之后的页都基于同一份列表切片。
type FeedSource struct {
	feed        model.Feed
	cache       cache.StoryCache
	source      remote.ItemSource
	concurrency int
	logger      *zap.Logger

	mu    sync.Mutex
	ids   []int64
	gen   uint64 // 拉取 ids 之前读取的缓存代数
	group singleflight.Group
}

type idList struct {
	ids []int64
	gen uint64
}

// NewFeedSource 创建一个新的 FeedSource，ID 列表尚未加载
func NewFeedSource(feed model.Feed, c cache.StoryCache, source remote.ItemSource, opts Options, logger *zap.Logger) *FeedSource {
	if opts.FetchConcurrency < 1 {
		opts.FetchConcurrency = DefaultFetchConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedSource{
		feed:        feed,
		cache:       c,
		source:      source,
		concurrency: opts.FetchConcurrency,
		logger:      logger.Named("feed_source").With(zap.Stringer("feed", feed)),
	}
}

// Feed 返回该实例服务的 feed
func (s *FeedSource) Feed() model.Feed {
	return s.feed
}

// Load 加载一页数据：
//  1. 先查缓存，命中且非空时直接返回，不访问网络；
//  2. 未命中时确保 ID 列表已加载，计算切片范围，越界返回空的终止页；
//  3. 并发获取切片内所有条目，全部成功才算成功；
//  4. 写入缓存后返回。
//
// 任何失败都只影响本次调用，已记住的 ID 列表和缓存保持不变，可以重试。
func (s *FeedSource) Load(ctx context.Context, params model.LoadParams) (*model.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	size := params.LoadSize
	if size <= 0 {
		return nil, ErrInvalidPageSize
	}
	page := params.PageKey()

	// 1. 缓存优先
	cached, err := s.cache.Get(ctx, s.feed, page, size)
	switch {
	case err == nil && len(cached) > 0:
		s.logger.Debug("缓存命中", zap.Int("page", page), zap.Int("count", len(cached)))
		// 短页视为最后一页，直到被 Invalidate
		next := model.NoKey
		if len(cached) == size {
			next = page + 1
		}
		return &model.Page{Items: cached, PrevKey: model.PrevKeyOf(page), NextKey: next}, nil
	case err != nil && !errors.Is(err, cache.ErrNotFound):
		s.logger.Warn("读取缓存失败，改为从网络加载", zap.Int("page", page), zap.Error(err))
	}

	// 2. 计算切片
	list, err := s.storyIDs(ctx)
	if err != nil {
		s.logger.Warn("拉取 ID 列表失败", zap.Error(err))
		return nil, fmt.Errorf("paging: load %s page %d: %w", s.feed, page, err)
	}
	ids := list.ids
	// 先比较页序号再相乘，页码很大时 (page-1)*size 会溢出
	if page-1 >= pageCount(len(ids), size) {
		return model.EmptyPage(), nil
	}
	from := (page - 1) * size
	to := from + min(size, len(ids)-from)
	s.logger.Debug("从网络加载", zap.Int("page", page), zap.Int("from", from), zap.Int("to", to))

	// 3. 并发获取
	items, err := remote.FetchAll(ctx, s.source, ids[from:to], s.concurrency)
	if err != nil {
		s.logger.Warn("获取条目失败", zap.Int("page", page), zap.Error(err))
		return nil, fmt.Errorf("paging: load %s page %d: %w", s.feed, page, err)
	}

	// 4. 写穿缓存。ID 列表读取之后 feed 被刷新过时不再写入
	switch err := s.cache.PutIfGeneration(ctx, s.feed, items, page, list.gen); {
	case errors.Is(err, cache.ErrStaleGeneration):
		s.logger.Debug("feed 已刷新，丢弃旧列表的分页", zap.Int("page", page))
	case err != nil:
		s.logger.Warn("写入缓存失败", zap.Int("page", page), zap.Error(err))
	}

	next := page + 1
	if to >= len(ids) {
		next = model.NoKey
	}
	return &model.Page{Items: items, PrevKey: model.PrevKeyOf(page), NextKey: next}, nil
}

// pageCount 返回 n 个 ID 按 size 分页后的页数
func pageCount(n, size int) int {
	if n == 0 {
		return 0
	}
	return (n-1)/size + 1
}

// storyIDs 返回记住的 ID 列表，没有时从上游拉取。
// 空列表和失败都不会被记住，下次调用会重新拉取。
// 并发的首次加载共享一次上游请求；请求不随任何一个调用方取消，每个调用方只等待自己的 ctx。
func (s *FeedSource) storyIDs(ctx context.Context) (idList, error) {
	s.mu.Lock()
	list := idList{ids: s.ids, gen: s.gen}
	s.mu.Unlock()
	if len(list.ids) > 0 {
		return list, nil
	}

	ch := s.group.DoChan("ids", func() (any, error) {
		detached := context.WithoutCancel(ctx)
		gen := s.cache.Generation(detached, s.feed)
		ids, err := s.source.ListIDs(detached, s.feed)
		if err != nil {
			return nil, err
		}
		if len(ids) > 0 {
			s.mu.Lock()
			s.ids, s.gen = ids, gen
			s.mu.Unlock()
		}
		return idList{ids: ids, gen: gen}, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return idList{}, res.Err
		}
		return res.Val.(idList), nil
	case <-ctx.Done():
		return idList{}, ctx.Err()
	}
}
