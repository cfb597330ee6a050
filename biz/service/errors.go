package service

import "errors"

// ErrInvalidPage 表示页码小于 1
var ErrInvalidPage = errors.New("service: page must be >= 1")
