// Package cachetest 提供 cache.StoryCache 的 testify mock。
package cachetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"hnpulse/biz/model"
	"hnpulse/pkg/cache"
)

type MockStoryCache struct {
	mock.Mock
}

func (m *MockStoryCache) Get(ctx context.Context, feed model.Feed, page, size int) ([]*model.Item, error) {
	args := m.Called(ctx, feed, page, size)
	items, _ := args.Get(0).([]*model.Item)
	return items, args.Error(1)
}

func (m *MockStoryCache) Put(ctx context.Context, feed model.Feed, items []*model.Item, page int) error {
	args := m.Called(ctx, feed, items, page)
	return args.Error(0)
}

func (m *MockStoryCache) PutIfGeneration(ctx context.Context, feed model.Feed, items []*model.Item, page int, gen uint64) error {
	args := m.Called(ctx, feed, items, page, gen)
	return args.Error(0)
}

func (m *MockStoryCache) Generation(ctx context.Context, feed model.Feed) uint64 {
	args := m.Called(ctx, feed)
	gen, _ := args.Get(0).(uint64)
	return gen
}

func (m *MockStoryCache) Invalidate(ctx context.Context, feed model.Feed) error {
	args := m.Called(ctx, feed)
	return args.Error(0)
}

func (m *MockStoryCache) HasData(ctx context.Context, feed model.Feed) bool {
	args := m.Called(ctx, feed)
	return args.Bool(0)
}

func (m *MockStoryCache) Entries(ctx context.Context, feed model.Feed) []cache.EntryInfo {
	args := m.Called(ctx, feed)
	entries, _ := args.Get(0).([]cache.EntryInfo)
	return entries
}

func (m *MockStoryCache) Stats() cache.Stats {
	args := m.Called()
	stats, _ := args.Get(0).(cache.Stats)
	return stats
}

func (m *MockStoryCache) MarkPreloaded(at time.Time) {
	m.Called(at)
}

var _ cache.StoryCache = (*MockStoryCache)(nil)
