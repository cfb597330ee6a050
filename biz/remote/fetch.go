package remote

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc/pool"

	"hnpulse/biz/model"
)

// FetchAll 并发获取 ids 对应的条目，结果顺序与 ids 一致。
// 任意一个条目失败时取消其余请求并返回第一个错误，不返回部分结果。
// concurrency 限制同时进行的请求数，小于 1 时按 1 处理。
func FetchAll(ctx context.Context, source ItemSource, ids []int64, concurrency int) ([]*model.Item, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	items := make([]*model.Item, len(ids))
	if len(ids) == 0 {
		return items, nil
	}

	p := pool.New().
		WithMaxGoroutines(concurrency).
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError()
	for i, id := range ids {
		p.Go(func(ctx context.Context) error {
			item, err := source.GetItem(ctx, id)
			if err != nil {
				return fmt.Errorf("remote: fetch item %d: %w", id, err)
			}
			items[i] = item
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}
