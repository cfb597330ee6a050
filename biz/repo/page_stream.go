package repo

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hnpulse/biz/model"
	"hnpulse/biz/paging"
)

// PageStream 是一个 feed 的连续分页序列，支持滚动时逐页追加。
// 加载失败时不前进，下一次 Next 会重试同一页。
type PageStream struct {
	id       string
	source   *paging.FeedSource
	pageSize int
	logger   *zap.Logger

	mu     sync.Mutex
	next   int // 下一次要加载的页码，NoKey 表示已到末尾
	loaded []*model.Item
	pages  int
}

func newPageStream(source *paging.FeedSource, pageSize int, logger *zap.Logger) *PageStream {
	id := uuid.NewString()
	return &PageStream{
		id:       id,
		source:   source,
		pageSize: pageSize,
		next:     1,
		logger:   logger.With(zap.String("stream", id), zap.Stringer("feed", source.Feed())),
	}
}

// ID 返回分页流的唯一标识
func (s *PageStream) ID() string {
	return s.id
}

// Feed 返回分页流对应的 feed
func (s *PageStream) Feed() model.Feed {
	return s.source.Feed()
}

// PageSize 返回每页条数
func (s *PageStream) PageSize() int {
	return s.pageSize
}

// Next 加载并追加下一页。已到末尾时返回空的终止页。
// ctx 被取消时放弃本次加载，结果不会被追加。
func (s *PageStream) Next(ctx context.Context) (*model.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.next == model.NoKey {
		return model.EmptyPage(), nil
	}

	page, err := s.source.Load(ctx, model.LoadParams{Key: s.next, LoadSize: s.pageSize})
	if err != nil {
		s.logger.Warn("加载分页失败，可重试", zap.Int("page", s.next), zap.Error(err))
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		// 消费方已经离开，不再交付结果
		return nil, err
	}

	s.loaded = append(s.loaded, page.Items...)
	s.pages++
	s.next = page.NextKey
	return page, nil
}

// Load 按页码随机访问，复用同一个 FeedSource（以及它记住的 ID 列表），不影响 Next 的进度。
func (s *PageStream) Load(ctx context.Context, key int) (*model.Page, error) {
	return s.source.Load(ctx, model.LoadParams{Key: key, LoadSize: s.pageSize})
}

// Done 报告是否已经交付了最后一页
func (s *PageStream) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next == model.NoKey
}

// Loaded 返回目前为止追加的全部条目
func (s *PageStream) Loaded() []*model.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]*model.Item, len(s.loaded))
	copy(items, s.loaded)
	return items
}

// PagesLoaded 返回已成功加载的页数
func (s *PageStream) PagesLoaded() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pages
}
