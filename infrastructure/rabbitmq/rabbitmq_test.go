package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hnpulse/biz/model"
)

type mockRefresher struct {
	mock.Mock
}

func (m *mockRefresher) Refresh(ctx context.Context, feed model.Feed) error {
	return m.Called(ctx, feed).Error(0)
}

func TestRefreshHandler(t *testing.T) {
	r := new(mockRefresher)
	r.On("Refresh", mock.Anything, model.FeedTop).Return(nil).Once()
	r.On("Refresh", mock.Anything, model.FeedBest).Return(errors.New("busy")).Once()
	h := NewRefreshHandler(r, zap.NewNop())
	ctx := context.Background()

	assert.NoError(t, h(ctx, amqp.Delivery{Body: []byte(`{"feed":"top"}`)}))
	assert.Error(t, h(ctx, amqp.Delivery{Body: []byte(`{"feed":"best"}`)}))

	err := h(ctx, amqp.Delivery{Body: []byte(`{"feed":"jobs"}`)})
	assert.ErrorIs(t, err, model.ErrUnknownFeed)

	assert.Error(t, h(ctx, amqp.Delivery{Body: []byte(`not json`)}))

	r.AssertExpectations(t)
}

func TestEncodeEvent(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	event := model.NewCacheEvent(model.EventCacheInvalidated, model.FeedNew, at)

	msg, err := encodeEvent(event)
	require.NoError(t, err)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, event.ID, msg.MessageId)
	assert.Equal(t, "cache.invalidated", msg.Type)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)

	var decoded model.CacheEvent
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, event.ID, decoded.ID)
	assert.Equal(t, "new", decoded.Feed)
	assert.True(t, at.Equal(decoded.At))
}
