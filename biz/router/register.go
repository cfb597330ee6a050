package router

import (
	"github.com/cloudwego/hertz/pkg/app/middlewares/server/recovery"
	"github.com/cloudwego/hertz/pkg/route"

	"hnpulse/biz/handler/feed"
)

// Register 注册中间件和所有 HTTP 路由。handler 中的 panic 由 recovery 转为 500。
func Register(r *route.Engine) {
	r.Use(recovery.Recovery())

	r.GET("/healthz", feed.Healthz)

	v1 := r.Group("/api/v1")
	{
		feeds := v1.Group("/feeds/:feed")
		feeds.GET("/pages/:page", feed.GetPage)
		feeds.POST("/next", feed.NextPage)
		feeds.POST("/refresh", feed.Refresh)
		feeds.GET("/rss", feed.FeedRSS)

		v1.GET("/cache/stats", feed.CacheStats)
	}
}
