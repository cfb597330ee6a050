// Package remotetest 提供 remote.ItemSource 的测试替身。
package remotetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/stretchr/testify/mock"

	"hnpulse/biz/model"
	"hnpulse/biz/remote"
)

// MockItemSource 是基于 testify/mock 的 ItemSource
type MockItemSource struct {
	mock.Mock
}

func (m *MockItemSource) ListIDs(ctx context.Context, feed model.Feed) ([]int64, error) {
	args := m.Called(ctx, feed)
	ids, _ := args.Get(0).([]int64)
	return ids, args.Error(1)
}

func (m *MockItemSource) GetItem(ctx context.Context, id int64) (*model.Item, error) {
	args := m.Called(ctx, id)
	item, _ := args.Get(0).(*model.Item)
	return item, args.Error(1)
}

// FakeSource 是并发安全的内存 ItemSource，会记录每个调用的次数。
// 条目按 ID 生成，标题为 "item <id>"。
type FakeSource struct {
	mu        sync.Mutex
	ids       map[model.Feed][]int64
	listErr   map[model.Feed]error
	itemErr   map[int64]error
	listCalls map[model.Feed]int
	itemCalls map[int64]int

	// Gate 非 nil 时，每次 GetItem 都会等待它被关闭
	Gate chan struct{}
	// ListGate 非 nil 时，每次 ListIDs 计数后等待它被关闭
	ListGate chan struct{}
}

func NewFakeSource() *FakeSource {
	return &FakeSource{
		ids:       make(map[model.Feed][]int64),
		listErr:   make(map[model.Feed]error),
		itemErr:   make(map[int64]error),
		listCalls: make(map[model.Feed]int),
		itemCalls: make(map[int64]int),
	}
}

// SetIDs 设置 feed 的 ID 列表
func (f *FakeSource) SetIDs(feed model.Feed, ids []int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids[feed] = ids
}

// SetSequentialIDs 设置 feed 的 ID 列表为 start, start+1, ... 共 n 个
func (f *FakeSource) SetSequentialIDs(feed model.Feed, start int64, n int) {
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = start + int64(i)
	}
	f.SetIDs(feed, ids)
}

// FailList 让 feed 的 ListIDs 返回 err，err 为 nil 时恢复正常
func (f *FakeSource) FailList(feed model.Feed, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr[feed] = err
}

// FailItem 让 id 的 GetItem 返回 err，err 为 nil 时恢复正常
func (f *FakeSource) FailItem(id int64, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.itemErr[id] = err
}

func (f *FakeSource) ListCalls(feed model.Feed) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls[feed]
}

func (f *FakeSource) ItemCalls(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.itemCalls[id]
}

// TotalItemCalls 返回 GetItem 的总调用次数
func (f *FakeSource) TotalItemCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.itemCalls {
		n += c
	}
	return n
}

func (f *FakeSource) ListIDs(ctx context.Context, feed model.Feed) ([]int64, error) {
	f.mu.Lock()
	f.listCalls[feed]++
	f.mu.Unlock()

	if f.ListGate != nil {
		select {
		case <-f.ListGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.listErr[feed]; err != nil {
		return nil, err
	}
	ids := make([]int64, len(f.ids[feed]))
	copy(ids, f.ids[feed])
	return ids, nil
}

func (f *FakeSource) GetItem(ctx context.Context, id int64) (*model.Item, error) {
	if f.Gate != nil {
		select {
		case <-f.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	f.itemCalls[id]++
	err := f.itemErr[id]
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return NewItem(id), nil
}

// NewItem 构造一个测试用条目
func NewItem(id int64) *model.Item {
	title := fmt.Sprintf("item %d", id)
	by := "tester"
	score := int(id % 500)
	return &model.Item{ID: id, Title: &title, By: &by, Score: &score}
}

var (
	_ remote.ItemSource = (*MockItemSource)(nil)
	_ remote.ItemSource = (*FakeSource)(nil)
)
