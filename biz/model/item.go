package model

// Item 是上游返回的一条内容记录（story/job/poll 等）。
// 除 ID 外的字段均可能缺失（例如已删除的条目或 job 类型），因此使用指针表示可选。
// Item 在拉取后不会再被修改。
type Item struct {
	ID          int64   `json:"id"`
	By          *string `json:"by,omitempty"`
	Score       *int    `json:"score,omitempty"`
	Time        *int64  `json:"time,omitempty"` // Unix 秒
	Title       *string `json:"title,omitempty"`
	URL         *string `json:"url,omitempty"`
	Type        *string `json:"type,omitempty"`
	Kids        []int64 `json:"kids,omitempty"`
	Descendants *int    `json:"descendants,omitempty"`
}

// CommentsURL 返回该条目在 Hacker News 上的讨论页地址
func (i *Item) CommentsURL() string {
	return "https://news.ycombinator.com/item?id=" + formatID(i.ID)
}

// StringValue 解引用可选字符串，nil 时返回空串
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// IntValue 解引用可选整数，nil 时返回 0
func IntValue(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}
