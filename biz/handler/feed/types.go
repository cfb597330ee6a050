package feed

import (
	"time"

	"hnpulse/biz/model"
	"hnpulse/pkg/cache"
)

// BaseResponse 所有 JSON 响应共有的字段
type BaseResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// PageResponse 分页查询的响应
type PageResponse struct {
	BaseResponse
	Feed string      `json:"feed,omitempty"`
	Page *model.Page `json:"page,omitempty"`
}

// NextResponse 推进分页流的响应
type NextResponse struct {
	BaseResponse
	Feed     string      `json:"feed,omitempty"`
	StreamID string      `json:"stream_id,omitempty"`
	Page     *model.Page `json:"page,omitempty"`
	Loaded   int         `json:"loaded"`
	Done     bool        `json:"done"`
}

// FeedStats 单个 feed 的统计和缓存页列表
type FeedStats struct {
	Hits    int64             `json:"hits"`
	Misses  int64             `json:"misses"`
	Entries []cache.EntryInfo `json:"entries"`
}

// StatsResponse 缓存统计的响应
type StatsResponse struct {
	BaseResponse
	Feeds           map[string]FeedStats `json:"feeds"`
	TotalHits       int64                `json:"total_hits"`
	TotalMisses     int64                `json:"total_misses"`
	HitRatio        float64              `json:"hit_ratio"`
	LastPreloadTime *time.Time           `json:"last_preload_time"`
}
