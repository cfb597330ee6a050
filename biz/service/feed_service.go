package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"hnpulse/biz/model"
	"hnpulse/biz/repo"
	"hnpulse/pkg/cache"
)

// EventPublisher 发布缓存事件，由消息队列实现
type EventPublisher interface {
	PublishCacheEvent(ctx context.Context, event model.CacheEvent) error
}

// FeedService 定义了 feed 浏览的业务逻辑接口，handler 和消息消费者都通过它访问数据
type FeedService interface {
	// GetPage 随机访问 feed 的某一页
	GetPage(ctx context.Context, feed model.Feed, page int) (*model.Page, error)
	// Next 推进 feed 当前分页流，返回下一页
	Next(ctx context.Context, feed model.Feed) (*StreamPage, error)
	// Refresh 清空 feed 缓存并换上新的分页流
	Refresh(ctx context.Context, feed model.Feed) error
	// Stats 返回缓存统计
	Stats() cache.Stats
	// Entries 列出 feed 当前缓存的页
	Entries(ctx context.Context, feed model.Feed) []cache.EntryInfo
	// OnPreloaded 在预加载结束后发布事件
	OnPreloaded(ctx context.Context, at time.Time, loaded []model.Feed)
}

// StreamPage 是 Next 的结果，附带分页流的进度
type StreamPage struct {
	StreamID string
	Page     *model.Page
	Loaded   int
	Done     bool
}

// feedService 实现了 FeedService 接口
type feedService struct {
	repo      repo.FeedRepository
	publisher EventPublisher // 可以为 nil
	now       func() time.Time
	logger    *zap.Logger

	mu      sync.Mutex
	streams map[model.Feed]*repo.PageStream
}

var _ FeedService = (*feedService)(nil)

// NewFeedService 创建一个新的 FeedService 实例
// publisher 为 nil 时不发布事件
func NewFeedService(feedRepo repo.FeedRepository, publisher EventPublisher, logger *zap.Logger) FeedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &feedService{
		repo:      feedRepo,
		publisher: publisher,
		now:       time.Now,
		logger:    logger.Named("feed_service"),
		streams:   make(map[model.Feed]*repo.PageStream),
	}
}

// stream 返回 feed 当前的分页流，没有时创建
func (s *feedService) stream(feed model.Feed) *repo.PageStream {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.streams[feed]
	if !ok {
		st = s.repo.Pages(feed)
		s.streams[feed] = st
		s.logger.Debug("创建分页流", zap.Stringer("feed", feed), zap.String("stream", st.ID()))
	}
	return st
}

func (s *feedService) GetPage(ctx context.Context, feed model.Feed, page int) (*model.Page, error) {
	if !feed.Valid() {
		return nil, &model.UnknownFeedError{Name: feed.String()}
	}
	if page < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPage, page)
	}
	p, err := s.stream(feed).Load(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("service: load %s page %d: %w", feed, page, err)
	}
	return p, nil
}

func (s *feedService) Next(ctx context.Context, feed model.Feed) (*StreamPage, error) {
	if !feed.Valid() {
		return nil, &model.UnknownFeedError{Name: feed.String()}
	}
	st := s.stream(feed)
	p, err := st.Next(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: next page of %s: %w", feed, err)
	}
	return &StreamPage{
		StreamID: st.ID(),
		Page:     p,
		Loaded:   len(st.Loaded()),
		Done:     st.Done(),
	}, nil
}

// Refresh 先清空缓存，再替换分页流。
// 替换后新的请求会重新拉取 ID 列表；旧流上正在进行的加载不会被中断。
func (s *feedService) Refresh(ctx context.Context, feed model.Feed) error {
	if !feed.Valid() {
		return &model.UnknownFeedError{Name: feed.String()}
	}
	if err := s.repo.Invalidate(ctx, feed); err != nil {
		return fmt.Errorf("service: refresh %s: %w", feed, err)
	}

	st := s.repo.Pages(feed)
	s.mu.Lock()
	s.streams[feed] = st
	s.mu.Unlock()
	s.logger.Info("feed 已刷新", zap.Stringer("feed", feed), zap.String("stream", st.ID()))

	s.publish(ctx, model.NewCacheEvent(model.EventCacheInvalidated, feed, s.now()))
	return nil
}

func (s *feedService) Stats() cache.Stats {
	return s.repo.Stats()
}

func (s *feedService) Entries(ctx context.Context, feed model.Feed) []cache.EntryInfo {
	return s.repo.Entries(ctx, feed)
}

func (s *feedService) OnPreloaded(ctx context.Context, at time.Time, loaded []model.Feed) {
	for _, f := range loaded {
		s.publish(ctx, model.NewCacheEvent(model.EventCachePreloaded, f, at))
	}
}

// publish 尽力发布事件，失败只记录日志
func (s *feedService) publish(ctx context.Context, event model.CacheEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishCacheEvent(ctx, event); err != nil {
		s.logger.Warn("发布缓存事件失败",
			zap.String("type", string(event.Type)),
			zap.String("feed", event.Feed),
			zap.Error(err),
		)
	}
}
