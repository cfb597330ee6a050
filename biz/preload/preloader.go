package preload

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sourcegraph/conc"
	"go.uber.org/zap"

	"hnpulse/biz/model"
	"hnpulse/biz/remote"
	"hnpulse/pkg/cache"
)

const (
	// DefaultPageSize 预加载第一页的条目数
	DefaultPageSize = 10
	firstPage       = 1
)

// errNoIDs 表示上游返回了空列表，属于正常情况，只记录日志
var errNoIDs = errors.New("preload: empty id list")

// Listener 在一次完整预加载结束后被调用，用于发布事件等附加动作
type Listener func(ctx context.Context, at time.Time, loaded []model.Feed)

// Options 配置 Preloader
type Options struct {
	Feeds            []model.Feed
	PageSize         int
	FetchConcurrency int
	Listener         Listener
}

// Preloader 在启动时为每个 feed 预热第一页缓存。
// 每个 feed 独立进行，一个 feed 失败不影响其他 feed，错误只记录日志，不向调用方传播。
type Preloader struct {
	cache       cache.StoryCache
	source      remote.ItemSource
	feeds       []model.Feed
	pageSize    int
	concurrency int
	listener    Listener
	now         func() time.Time
	logger      *zap.Logger
}

// NewPreloader 创建 Preloader。Feeds 为空时预加载所有已知 feed。
func NewPreloader(c cache.StoryCache, source remote.ItemSource, opts Options, logger *zap.Logger) *Preloader {
	if len(opts.Feeds) == 0 {
		opts.Feeds = model.AllFeeds()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.FetchConcurrency < 1 {
		opts.FetchConcurrency = opts.PageSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Preloader{
		cache:       c,
		source:      source,
		feeds:       opts.Feeds,
		pageSize:    opts.PageSize,
		concurrency: opts.FetchConcurrency,
		listener:    opts.Listener,
		now:         time.Now,
		logger:      logger.Named("preloader"),
	}
}

// StartPreloading 在后台启动预加载并立即返回。
// 后台任务与调用方脱离：调用方无法等待或取消它，它的结果只用于记录日志。
// 返回的通道在后台任务结束后关闭，调用方可以忽略它。
func (p *Preloader) StartPreloading() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("后台预加载异常退出", zap.Any("panic", r))
			}
		}()
		p.run(context.Background())
	}()
	return done
}

// PreloadSync 执行与 StartPreloading 相同的工作，但等待完成。失败同样只记录日志。
func (p *Preloader) PreloadSync(ctx context.Context) {
	p.run(ctx)
}

func (p *Preloader) run(ctx context.Context) {
	start := p.now()
	p.logger.Info("开始预加载缓存", zap.Int("feeds", len(p.feeds)), zap.Int("page_size", p.pageSize))

	loaded := make([]bool, len(p.feeds))
	var wg conc.WaitGroup
	for i, feed := range p.feeds {
		wg.Go(func() {
			err := p.preloadFeed(ctx, feed)
			switch {
			case errors.Is(err, errNoIDs):
				p.logger.Info("feed 没有条目，跳过预加载", zap.Stringer("feed", feed))
			case errors.Is(err, cache.ErrStaleGeneration):
				p.logger.Info("feed 在预加载期间被刷新，丢弃结果", zap.Stringer("feed", feed))
			case err != nil:
				p.logger.Warn("预加载 feed 失败", zap.Stringer("feed", feed), zap.Error(err))
			default:
				loaded[i] = true
			}
		})
	}
	// 单个 feed 的 panic 被 conc 收集后在这里统一恢复，不影响其他 feed
	if r := wg.WaitAndRecover(); r != nil {
		p.logger.Error("预加载 feed 时发生 panic", zap.String("panic", r.String()))
	}

	if ctx.Err() != nil {
		p.logger.Warn("预加载被取消", zap.Error(ctx.Err()))
	}

	// 无论各 feed 成功与否都记录时间
	at := p.now()
	p.cache.MarkPreloaded(at)

	var feeds []model.Feed
	for i, ok := range loaded {
		if ok {
			feeds = append(feeds, p.feeds[i])
		}
	}
	p.logger.Info("预加载完成",
		zap.Duration("elapsed", at.Sub(start)),
		zap.Int("loaded", len(feeds)),
		zap.Int("total", len(p.feeds)),
	)
	if p.listener != nil {
		p.listener(ctx, at, feeds)
	}
}

func (p *Preloader) preloadFeed(ctx context.Context, feed model.Feed) error {
	gen := p.cache.Generation(ctx, feed)
	ids, err := p.source.ListIDs(ctx, feed)
	if err != nil {
		return fmt.Errorf("preload: list %s ids: %w", feed, err)
	}
	if len(ids) == 0 {
		return errNoIDs
	}
	if len(ids) > p.pageSize {
		ids = ids[:p.pageSize]
	}

	items, err := remote.FetchAll(ctx, p.source, ids, p.concurrency)
	if err != nil {
		return fmt.Errorf("preload: %s: %w", feed, err)
	}
	if err := p.cache.PutIfGeneration(ctx, feed, items, firstPage, gen); err != nil {
		return fmt.Errorf("preload: cache %s: %w", feed, err)
	}
	p.logger.Info("预加载 feed 完成", zap.Stringer("feed", feed), zap.Int("count", len(items)))
	return nil
}
