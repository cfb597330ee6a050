package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"hnpulse/biz/model"
)

// Refresher 是刷新命令的执行者，通常为 service.FeedService
type Refresher interface {
	Refresh(ctx context.Context, feed model.Feed) error
}

// NewRefreshHandler 返回处理 {"feed":"top"} 刷新命令的 MessageHandler
func NewRefreshHandler(r Refresher, logger *zap.Logger) MessageHandler {
	logger = logger.Named("refresh_handler")
	return func(ctx context.Context, d amqp.Delivery) error {
		var cmd model.RefreshCommand
		if err := json.Unmarshal(d.Body, &cmd); err != nil {
			return fmt.Errorf("rabbitmq: decode refresh command: %w", err)
		}
		feed, err := model.ParseFeed(cmd.Feed)
		if err != nil {
			return err
		}
		if err := r.Refresh(ctx, feed); err != nil {
			return err
		}
		logger.Info("已处理刷新命令", zap.Stringer("feed", feed), zap.String("messageId", d.MessageId))
		return nil
	}
}
