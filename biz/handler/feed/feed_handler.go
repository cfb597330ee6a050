package feed

import (
	"context"
	"errors"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"go.uber.org/zap"

	"hnpulse/biz/model"
	"hnpulse/biz/paging"
	"hnpulse/biz/service"
)

var (
	feedService service.FeedService
	logger      = zap.NewNop()
)

// SetFeedService 注入 handler 使用的服务和 logger，在注册路由前调用
func SetFeedService(svc service.FeedService, l *zap.Logger) {
	feedService = svc
	if l != nil {
		logger = l.Named("feed_handler")
	}
}

// statusOf 把业务错误映射为 HTTP 状态码
func statusOf(err error) int {
	switch {
	case errors.Is(err, model.ErrUnknownFeed),
		errors.Is(err, service.ErrInvalidPage),
		errors.Is(err, paging.ErrInvalidPageSize):
		return consts.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return consts.StatusGatewayTimeout
	default:
		return consts.StatusBadGateway
	}
}

func fail(c *app.RequestContext, err error) {
	status := statusOf(err)
	if status >= consts.StatusInternalServerError {
		logger.Warn("请求处理失败", zap.ByteString("path", c.Path()), zap.Error(err))
	}
	c.JSON(status, BaseResponse{Success: false, Message: err.Error()})
}

func parseFeed(c *app.RequestContext) (model.Feed, error) {
	return model.ParseFeed(c.Param("feed"))
}

func parsePage(raw string) (int, error) {
	if raw == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0, service.ErrInvalidPage
	}
	return page, nil
}

// GetPage .
// @router /api/v1/feeds/:feed/pages/:page [GET]
func GetPage(ctx context.Context, c *app.RequestContext) {
	feed, err := parseFeed(c)
	if err != nil {
		fail(c, err)
		return
	}
	page, err := parsePage(c.Param("page"))
	if err != nil {
		fail(c, err)
		return
	}

	p, err := feedService.GetPage(ctx, feed, page)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(consts.StatusOK, PageResponse{
		BaseResponse: BaseResponse{Success: true, Message: "ok"},
		Feed:         feed.String(),
		Page:         p,
	})
}

// NextPage .
// @router /api/v1/feeds/:feed/next [POST]
func NextPage(ctx context.Context, c *app.RequestContext) {
	feed, err := parseFeed(c)
	if err != nil {
		fail(c, err)
		return
	}

	sp, err := feedService.Next(ctx, feed)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(consts.StatusOK, NextResponse{
		BaseResponse: BaseResponse{Success: true, Message: "ok"},
		Feed:         feed.String(),
		StreamID:     sp.StreamID,
		Page:         sp.Page,
		Loaded:       sp.Loaded,
		Done:         sp.Done,
	})
}

// Refresh .
// @router /api/v1/feeds/:feed/refresh [POST]
func Refresh(ctx context.Context, c *app.RequestContext) {
	feed, err := parseFeed(c)
	if err != nil {
		fail(c, err)
		return
	}
	if err := feedService.Refresh(ctx, feed); err != nil {
		fail(c, err)
		return
	}
	c.JSON(consts.StatusOK, BaseResponse{Success: true, Message: "feed " + feed.String() + " refreshed"})
}

// CacheStats .
// @router /api/v1/cache/stats [GET]
func CacheStats(ctx context.Context, c *app.RequestContext) {
	stats := feedService.Stats()

	resp := StatsResponse{
		BaseResponse: BaseResponse{Success: true, Message: "ok"},
		Feeds:        make(map[string]FeedStats, len(stats.Feeds)),
		TotalHits:    stats.TotalHits(),
		TotalMisses:  stats.TotalMisses(),
		HitRatio:     stats.HitRatio(),
	}
	for _, f := range model.AllFeeds() {
		fs := stats.Feed(f)
		resp.Feeds[f.String()] = FeedStats{
			Hits:    fs.Hits,
			Misses:  fs.Misses,
			Entries: feedService.Entries(ctx, f),
		}
	}
	if stats.HasPreloaded() {
		at := stats.LastPreloadTime
		resp.LastPreloadTime = &at
	}
	c.JSON(consts.StatusOK, resp)
}

// Healthz .
// @router /healthz [GET]
func Healthz(_ context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, BaseResponse{Success: true, Message: "ok"})
}
