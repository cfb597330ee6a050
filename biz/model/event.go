package model

import (
	"time"

	"github.com/google/uuid"
)

// EventType 缓存事件类型
type EventType string

const (
	EventCacheInvalidated EventType = "cache.invalidated"
	EventCachePreloaded   EventType = "cache.preloaded"
)

// CacheEvent 描述一次缓存状态变化，通过消息队列广播给其他实例
type CacheEvent struct {
	ID   string    `json:"id"`
	Type EventType `json:"type"`
	Feed string    `json:"feed"`
	At   time.Time `json:"at"`
}

// NewCacheEvent 创建带有随机 ID 的事件
func NewCacheEvent(t EventType, feed Feed, at time.Time) CacheEvent {
	return CacheEvent{
		ID:   uuid.NewString(),
		Type: t,
		Feed: feed.String(),
		At:   at.UTC(),
	}
}

// RefreshCommand 是外部请求刷新某个 feed 的消息体
type RefreshCommand struct {
	Feed string `json:"feed"`
}
