package paging

import "errors"

// ErrInvalidPageSize 表示请求的每页条数不合法
var ErrInvalidPageSize = errors.New("paging: page size must be positive")
