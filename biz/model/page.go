package model

// NoKey 表示没有上一页/下一页
const NoKey = 0

// LoadParams 是一次分页加载请求。Key 为 1 起始的页码，0 表示第一页。
type LoadParams struct {
	Key      int
	LoadSize int
}

// PageKey 返回实际请求的页码，缺省为第一页
func (p LoadParams) PageKey() int {
	if p.Key <= 0 {
		return 1
	}
	return p.Key
}

// Page 是一次分页加载的结果。PrevKey/NextKey 为 NoKey 时表示不存在。
type Page struct {
	Items   []*Item `json:"items"`
	PrevKey int     `json:"prev_key,omitempty"`
	NextKey int     `json:"next_key,omitempty"`
}

// HasNext 报告是否还有下一页
func (p *Page) HasNext() bool {
	return p.NextKey != NoKey
}

// EmptyPage 返回终止页：没有数据，也没有前后页
func EmptyPage() *Page {
	return &Page{Items: []*Item{}}
}

// PrevKeyOf 计算 page 的上一页页码
func PrevKeyOf(page int) int {
	if page > 1 {
		return page - 1
	}
	return NoKey
}
