package router

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/route"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"hnpulse/biz/handler/feed"
	"hnpulse/biz/model"
	"hnpulse/biz/remote"
	"hnpulse/biz/remote/remotetest"
	"hnpulse/biz/repo"
	"hnpulse/biz/service"
	"hnpulse/biz/service/servicetest"
	"hnpulse/pkg/cache"
)

func newEngine(svc service.FeedService) *route.Engine {
	feed.SetFeedService(svc, nil)
	r := route.NewEngine(config.NewOptions([]config.Option{}))
	Register(r)
	return r
}

func newRealEngine(t *testing.T, n int) (*route.Engine, *remotetest.FakeSource) {
	t.Helper()
	src := remotetest.NewFakeSource()
	src.SetSequentialIDs(model.FeedTop, 1, n)
	r := repo.NewFeedRepository(cache.NewMemoryCache(), src, repo.Options{PageSize: 10}, nil)
	return newEngine(service.NewFeedService(r, nil, nil)), src
}

func decode(t *testing.T, body []byte, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(body, v), string(body))
}

func TestHealthz(t *testing.T) {
	r, _ := newRealEngine(t, 0)
	w := ut.PerformRequest(r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Result().StatusCode())
}

func TestGetPage(t *testing.T) {
	r, _ := newRealEngine(t, 25)

	w := ut.PerformRequest(r, http.MethodGet, "/api/v1/feeds/top/pages/2", nil)
	resp := w.Result()
	require.Equal(t, http.StatusOK, resp.StatusCode())

	var body feed.PageResponse
	decode(t, resp.Body(), &body)
	assert.True(t, body.Success)
	assert.Equal(t, "top", body.Feed)
	require.NotNil(t, body.Page)
	require.Len(t, body.Page.Items, 10)
	assert.Equal(t, int64(11), body.Page.Items[0].ID)
	assert.Equal(t, 1, body.Page.PrevKey)
	assert.Equal(t, 3, body.Page.NextKey)
}

func TestGetPage_BadRequests(t *testing.T) {
	r, _ := newRealEngine(t, 25)

	for _, path := range []string{
		"/api/v1/feeds/ask/pages/1",
		"/api/v1/feeds/top/pages/0",
		"/api/v1/feeds/top/pages/abc",
	} {
		w := ut.PerformRequest(r, http.MethodGet, path, nil)
		resp := w.Result()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode(), path)

		var body feed.BaseResponse
		decode(t, resp.Body(), &body)
		assert.False(t, body.Success)
		assert.NotEmpty(t, body.Message)
	}
}

func TestGetPage_UpstreamFailureIsBadGateway(t *testing.T) {
	r, src := newRealEngine(t, 25)
	src.FailList(model.FeedTop, remote.ErrUnexpectedStatus)

	w := ut.PerformRequest(r, http.MethodGet, "/api/v1/feeds/top/pages/1", nil)
	assert.Equal(t, http.StatusBadGateway, w.Result().StatusCode())
}

func TestNextPage(t *testing.T) {
	r, _ := newRealEngine(t, 15)

	var first, second feed.NextResponse
	decode(t, ut.PerformRequest(r, http.MethodPost, "/api/v1/feeds/top/next", nil).Result().Body(), &first)
	decode(t, ut.PerformRequest(r, http.MethodPost, "/api/v1/feeds/top/next", nil).Result().Body(), &second)

	assert.Equal(t, 10, first.Loaded)
	assert.False(t, first.Done)
	assert.Equal(t, first.StreamID, second.StreamID)
	assert.Equal(t, 15, second.Loaded)
	assert.True(t, second.Done)
}

func TestRefresh(t *testing.T) {
	svc := new(servicetest.MockFeedService)
	svc.On("Refresh", mock.Anything, model.FeedNew).Return(nil).Once()
	svc.On("Refresh", mock.Anything, model.FeedTop).Return(errors.New("store unavailable")).Once()
	r := newEngine(svc)

	w := ut.PerformRequest(r, http.MethodPost, "/api/v1/feeds/new/refresh", nil)
	assert.Equal(t, http.StatusOK, w.Result().StatusCode())

	w = ut.PerformRequest(r, http.MethodPost, "/api/v1/feeds/top/refresh", nil)
	assert.Equal(t, http.StatusBadGateway, w.Result().StatusCode())

	w = ut.PerformRequest(r, http.MethodPost, "/api/v1/feeds/nope/refresh", nil)
	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode())

	svc.AssertExpectations(t)
}

func TestCacheStats(t *testing.T) {
	r, _ := newRealEngine(t, 25)
	ut.PerformRequest(r, http.MethodGet, "/api/v1/feeds/top/pages/1", nil)
	ut.PerformRequest(r, http.MethodGet, "/api/v1/feeds/top/pages/1", nil)

	w := ut.PerformRequest(r, http.MethodGet, "/api/v1/cache/stats", nil)
	require.Equal(t, http.StatusOK, w.Result().StatusCode())

	var body feed.StatsResponse
	decode(t, w.Result().Body(), &body)
	assert.Equal(t, int64(1), body.TotalHits)
	assert.Equal(t, int64(1), body.TotalMisses)
	assert.InDelta(t, 0.5, body.HitRatio, 1e-9)
	assert.Nil(t, body.LastPreloadTime)

	top := body.Feeds["top"]
	assert.Equal(t, int64(1), top.Hits)
	require.Len(t, top.Entries, 1)
	assert.Equal(t, 1, top.Entries[0].Page)
	assert.Contains(t, body.Feeds, "best")
}

func TestFeedRSS(t *testing.T) {
	r, _ := newRealEngine(t, 25)

	w := ut.PerformRequest(r, http.MethodGet, "/api/v1/feeds/top/rss?page=3", nil)
	resp := w.Result()
	require.Equal(t, http.StatusOK, resp.StatusCode())
	assert.True(t, strings.HasPrefix(string(resp.Header.ContentType()), "application/rss+xml"))

	doc := string(resp.Body())
	assert.Contains(t, doc, "<rss")
	assert.Contains(t, doc, "Hacker News Top Stories")
	assert.Contains(t, doc, "item 21")
	assert.Equal(t, 5, strings.Count(doc, "<item>"))

	w = ut.PerformRequest(r, http.MethodGet, "/api/v1/feeds/top/rss?page=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode())
}

func TestGetPage_HugePageNumberIsEmpty(t *testing.T) {
	r, src := newRealEngine(t, 25)

	w := ut.PerformRequest(r, http.MethodGet, "/api/v1/feeds/top/pages/922337203685477582", nil)
	resp := w.Result()
	require.Equal(t, http.StatusOK, resp.StatusCode())

	var body feed.PageResponse
	decode(t, resp.Body(), &body)
	require.NotNil(t, body.Page)
	assert.Empty(t, body.Page.Items)
	assert.Zero(t, body.Page.NextKey)
	assert.Zero(t, src.TotalItemCalls())
}

func TestHandlerPanicBecomesServerError(t *testing.T) {
	svc := new(servicetest.MockFeedService)
	svc.On("GetPage", mock.Anything, model.FeedTop, 1).Run(func(mock.Arguments) {
		panic("unexpected state")
	})
	r := newEngine(svc)

	w := ut.PerformRequest(r, http.MethodGet, "/api/v1/feeds/top/pages/1", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Result().StatusCode())

	w = ut.PerformRequest(r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Result().StatusCode(), "the engine keeps serving after a panic")
}
