// Package servicetest 提供 service.FeedService 的测试替身。
package servicetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"hnpulse/biz/model"
	"hnpulse/biz/service"
	"hnpulse/pkg/cache"
)

type MockFeedService struct {
	mock.Mock
}

var _ service.FeedService = (*MockFeedService)(nil)

func (m *MockFeedService) GetPage(ctx context.Context, feed model.Feed, page int) (*model.Page, error) {
	args := m.Called(ctx, feed, page)
	p, _ := args.Get(0).(*model.Page)
	return p, args.Error(1)
}

func (m *MockFeedService) Next(ctx context.Context, feed model.Feed) (*service.StreamPage, error) {
	args := m.Called(ctx, feed)
	p, _ := args.Get(0).(*service.StreamPage)
	return p, args.Error(1)
}

func (m *MockFeedService) Refresh(ctx context.Context, feed model.Feed) error {
	args := m.Called(ctx, feed)
	return args.Error(0)
}

func (m *MockFeedService) Stats() cache.Stats {
	args := m.Called()
	s, _ := args.Get(0).(cache.Stats)
	return s
}

func (m *MockFeedService) Entries(ctx context.Context, feed model.Feed) []cache.EntryInfo {
	args := m.Called(ctx, feed)
	e, _ := args.Get(0).([]cache.EntryInfo)
	return e
}

func (m *MockFeedService) OnPreloaded(ctx context.Context, at time.Time, loaded []model.Feed) {
	m.Called(ctx, at, loaded)
}
