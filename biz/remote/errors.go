package remote

import "errors"

var (
	// ErrItemNotFound 表示上游没有该条目（返回 null 或 404）。
	ErrItemNotFound = errors.New("remote: item not found")

	// ErrUnexpectedStatus 表示上游返回了非 2xx 状态码。
	ErrUnexpectedStatus = errors.New("remote: unexpected status code")

	// ErrCacheMiss 表示 KVStore 中不存在该 key。
	ErrCacheMiss = errors.New("remote: kv key not found")
)
