package model

import (
	"strconv"
	"strings"
)

// Feed 标识一个排行列表。不同 Feed 之间的缓存互相独立。
type Feed int

const (
	FeedTop Feed = iota + 1
	FeedNew
	FeedBest
)

var feedNames = map[Feed]string{
	FeedTop:  "top",
	FeedNew:  "new",
	FeedBest: "best",
}

// AllFeeds 返回所有已知的 Feed，顺序固定
func AllFeeds() []Feed {
	return []Feed{FeedTop, FeedNew, FeedBest}
}

func (f Feed) String() string {
	if name, ok := feedNames[f]; ok {
		return name
	}
	return "Feed(" + strconv.Itoa(int(f)) + ")"
}

// Valid 报告 f 是否为已知的 Feed
func (f Feed) Valid() bool {
	_, ok := feedNames[f]
	return ok
}

// ParseFeed 按名称（不区分大小写）解析 Feed
func ParseFeed(name string) (Feed, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for f, n := range feedNames {
		if n == name {
			return f, nil
		}
	}
	return 0, &UnknownFeedError{Name: name}
}

// ParseFeeds 解析一组 Feed 名称，遇到未知名称立即返回错误
func ParseFeeds(names []string) ([]Feed, error) {
	feeds := make([]Feed, 0, len(names))
	for _, n := range names {
		f, err := ParseFeed(n)
		if err != nil {
			return nil, err
		}
		feeds = append(feeds, f)
	}
	return feeds, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
