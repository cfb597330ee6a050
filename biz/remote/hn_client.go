package remote

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"hnpulse/biz/model"
)

const (
	// DefaultBaseURL 是 Hacker News Firebase API 的地址
	DefaultBaseURL = "https://hacker-news.firebaseio.com/"
	defaultTimeout = 10 * time.Second
)

var feedPaths = map[model.Feed]string{
	model.FeedTop:  "v0/topstories.json",
	model.FeedNew:  "v0/newstories.json",
	model.FeedBest: "v0/beststories.json",
}

// ClientOptions 配置上游 HTTP 客户端
type ClientOptions struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
}

// HNClient 是基于 resty 的 ItemSource 实现。
// 对同一 feed 的 ID 列表请求、对同一条目的请求在并发时共享一次上游调用。
type HNClient struct {
	http   *resty.Client
	group  singleflight.Group
	logger *zap.Logger
}

// NewHNClient 创建上游客户端
func NewHNClient(opts ClientOptions, logger *zap.Logger) *HNClient {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			// 只重试 5xx 和 429，4xx 重试没有意义
			return resp != nil && (resp.StatusCode() >= http.StatusInternalServerError ||
				resp.StatusCode() == http.StatusTooManyRequests)
		})

	return &HNClient{
		http:   client,
		logger: logger.Named("hn_client"),
	}
}

// ListIDs 实现 ItemSource 的 ListIDs 方法
func (c *HNClient) ListIDs(ctx context.Context, feed model.Feed) ([]int64, error) {
	path, ok := feedPaths[feed]
	if !ok {
		return nil, fmt.Errorf("remote: list ids: %w", &model.UnknownFeedError{Name: feed.String()})
	}

	v, err := c.shared(ctx, "ids:"+feed.String(), func(ctx context.Context) (any, error) {
		var ids []int64
		resp, err := c.http.R().
			SetContext(ctx).
			ForceContentType("application/json").
			SetResult(&ids).
			Get(path)
		if err != nil {
			return nil, fmt.Errorf("remote: list %s ids: %w", feed, err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("remote: list %s ids: %w: %d", feed, ErrUnexpectedStatus, resp.StatusCode())
		}
		c.logger.Debug("拉取 ID 列表完成", zap.Stringer("feed", feed), zap.Int("count", len(ids)))
		return ids, nil
	})
	if err != nil {
		return nil, err
	}

	// 多个调用方共享同一结果，返回各自的副本
	shared := v.([]int64)
	ids := make([]int64, len(shared))
	copy(ids, shared)
	return ids, nil
}

// GetItem 实现 ItemSource 的 GetItem 方法
func (c *HNClient) GetItem(ctx context.Context, id int64) (*model.Item, error) {
	key := strconv.FormatInt(id, 10)
	v, err := c.shared(ctx, "item:"+key, func(ctx context.Context) (any, error) {
		var item model.Item
		resp, err := c.http.R().
			SetContext(ctx).
			ForceContentType("application/json").
			SetResult(&item).
			SetPathParam("id", key).
			Get("v0/item/{id}.json")
		if err != nil {
			return nil, fmt.Errorf("remote: get item %d: %w", id, err)
		}
		if resp.StatusCode() == http.StatusNotFound {
			return nil, fmt.Errorf("remote: get item %d: %w", id, ErrItemNotFound)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("remote: get item %d: %w: %d", id, ErrUnexpectedStatus, resp.StatusCode())
		}
		// 上游对不存在的条目返回 JSON null
		if item.ID == 0 {
			return nil, fmt.Errorf("remote: get item %d: %w", id, ErrItemNotFound)
		}
		return &item, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Item), nil
}

// shared 让同一 key 的并发请求只访问一次上游。
// 上游请求不随任一调用方的 ctx 取消（由客户端超时兜底），但每个调用方在自己的 ctx 结束时立即返回。
func (c *HNClient) shared(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, error) {
	ch := c.group.DoChan(key, func() (any, error) {
		return fn(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Shared {
			c.logger.Debug("复用进行中的上游请求", zap.String("key", key))
		}
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

var _ ItemSource = (*HNClient)(nil)
