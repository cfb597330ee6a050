package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// PingTimeout 建立连接时 Ping 的时限
const PingTimeout = 5 * time.Second

// RedisConfig 保存 Redis 连接所需的配置信息
type RedisConfig struct {
	Addr     string // 例如 "localhost:6379"
	Password string // 如果没有密码则为空
	DB       int
}

// InitRedis 初始化 Redis 客户端连接，Ping 失败时关闭客户端并返回错误
func InitRedis(ctx context.Context, cfg RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, PingTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("database: ping redis %s: %w", cfg.Addr, err)
	}

	logger.Info("成功连接到 Redis", zap.String("address", cfg.Addr), zap.Int("db", cfg.DB))
	return rdb, nil
}
