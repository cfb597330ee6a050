package cache

import "errors"

var (
	// ErrNotFound 表示缓存中没有对应 (feed, page) 的条目。
	// feed 从未被填充和该页缺失这两种情况都返回它，调用方无法区分。
	ErrNotFound = errors.New("cache: page not found")

	// ErrInvalidPage 表示页码不合法（页码从 1 开始）。
	ErrInvalidPage = errors.New("cache: invalid page number")

	// ErrStaleGeneration 表示写入基于的数据在 Invalidate 之前读取，已被丢弃。
	ErrStaleGeneration = errors.New("cache: stale generation")
)
