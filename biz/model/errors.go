package model

import (
	"errors"
	"fmt"
)

// ErrUnknownFeed 表示无法识别的 Feed 名称
var ErrUnknownFeed = errors.New("model: unknown feed")

// UnknownFeedError 携带无法识别的名称，可通过 errors.Is(err, ErrUnknownFeed) 判断
type UnknownFeedError struct {
	Name string
}

func (e *UnknownFeedError) Error() string {
	return fmt.Sprintf("model: unknown feed %q", e.Name)
}

func (e *UnknownFeedError) Is(target error) bool {
	return target == ErrUnknownFeed
}
