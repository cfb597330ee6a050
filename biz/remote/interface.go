package remote

import (
	"context"

	"hnpulse/biz/model"
)

// ItemSource 是上游内容接口的抽象：按 feed 列出条目 ID，按 ID 获取单个条目。
// 两个调用都可能很慢或失败。
type ItemSource interface {
	// ListIDs 返回 feed 当前的有序 ID 列表，可能为空。
	ListIDs(ctx context.Context, feed model.Feed) ([]int64, error)

	// GetItem 获取单个条目。条目不存在时返回 ErrItemNotFound。
	GetItem(ctx context.Context, id int64) (*model.Item, error)
}
