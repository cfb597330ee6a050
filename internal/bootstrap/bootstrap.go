package bootstrap

import (
	"context"
	"fmt"
	"log"

	"github.com/cloudwego/hertz/pkg/app/server"
	hertzconfig "github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/common/tracer"
	monitor "github.com/hertz-contrib/monitor-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"hnpulse/biz/handler/feed"
	"hnpulse/biz/model"
	"hnpulse/biz/preload"
	"hnpulse/biz/remote"
	"hnpulse/biz/repo"
	"hnpulse/biz/router"
	"hnpulse/biz/service"
	dbInfra "hnpulse/infrastructure/database"
	"hnpulse/infrastructure/rabbitmq"
	"hnpulse/pkg/cache"
	"hnpulse/pkg/config"
	"hnpulse/pkg/logger"
)

// MetricsNamespace 自定义指标的前缀
const MetricsNamespace = "hnpulse"

// App 持有启动后的所有组件
type App struct {
	Config  *config.AppConfig
	Logger  *zap.Logger
	Server  *server.Hertz
	Cache   cache.StoryCache
	Service service.FeedService

	// PreloadDone 在启动预加载结束后关闭
	PreloadDone <-chan struct{}
}

// Init 函数执行所有应用程序的初始化步骤
func Init(configPath string) (*App, error) {
	// 1. 加载配置
	loader, err := config.Load(configPath)
	if err != nil {
		// 在 logger 初始化前，只能用标准 log
		log.Printf("Error: 加载配置失败: %v", err)
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}
	cfg := loader.Config()

	// 2. 初始化 Zap Logger
	zl, level, err := logger.New(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	zl.Info("Zap Logger 初始化完成", zap.String("level", cfg.Logging.Level))
	loader.Watch(zl, func(next *config.AppConfig) {
		if l, err := logger.ParseLevel(next.Logging.Level); err == nil {
			level.SetLevel(l)
		}
	})

	var shutdown []func(ctx context.Context)

	// 3. 初始化页缓存
	storyCache := cache.NewMemoryCache()
	zl.Info("页缓存初始化完成")

	// 4. 初始化上游数据源，启用 Redis 时在外面包一层条目缓存
	var source remote.ItemSource = remote.NewHNClient(remote.ClientOptions{
		BaseURL:    cfg.Upstream.BaseURL,
		Timeout:    cfg.Upstream.Timeout(),
		RetryCount: cfg.Upstream.RetryCount,
	}, zl)
	if cfg.Database.Redis.Enabled {
		rdb, cached, err := InitItemCache(zl, source, cfg)
		if err != nil {
			zl.Error("初始化 Redis 条目缓存失败", zap.Error(err))
			return nil, fmt.Errorf("初始化 Redis 条目缓存失败: %w", err)
		}
		source = cached
		shutdown = append(shutdown, func(context.Context) {
			if err := rdb.Close(); err != nil {
				zl.Warn("关闭 Redis 失败", zap.Error(err))
			}
		})
	}
	zl.Info("上游数据源初始化完成", zap.String("baseURL", cfg.Upstream.BaseURL), zap.Bool("redis", cfg.Database.Redis.Enabled))

	// 5. 初始化 Repository
	feedRepo := repo.NewFeedRepository(storyCache, source, repo.Options{
		PageSize:         cfg.Paging.PageSize,
		FetchConcurrency: cfg.Paging.FetchConcurrency,
	}, zl)

	// 6. 初始化事件发布（可选）和 Service
	var publisher service.EventPublisher
	if cfg.RabbitMQ.Enabled {
		p, err := rabbitmq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, zl)
		if err != nil {
			zl.Error("初始化 RabbitMQ Publisher 失败", zap.Error(err))
			return nil, fmt.Errorf("初始化 RabbitMQ Publisher 失败: %w", err)
		}
		publisher = p
		shutdown = append(shutdown, func(context.Context) { p.Close() })
	}
	feedSvc := service.NewFeedService(feedRepo, publisher, zl)
	zl.Info("Service 初始化完成")

	// 7. 订阅刷新命令（可选）
	if cfg.RabbitMQ.Enabled {
		consumer, err := rabbitmq.NewConsumer(cfg.RabbitMQ.URL, rabbitmq.NewRefreshHandler(feedSvc, zl), rabbitmq.ConsumerOptions{
			ExchangeName: cfg.RabbitMQ.Exchange,
			QueueName:    cfg.RabbitMQ.Queue,
			RoutingKey:   cfg.RabbitMQ.RoutingKey,
		}, zl)
		if err != nil {
			zl.Error("初始化 RabbitMQ Consumer 失败", zap.Error(err))
			return nil, fmt.Errorf("初始化 RabbitMQ Consumer 失败: %w", err)
		}
		// 先停止消费，再关闭 publisher
		shutdown = append([]func(context.Context){func(ctx context.Context) { _ = consumer.Shutdown(ctx) }}, shutdown...)
	}

	// 8. 注入依赖到 Handler
	feed.SetFeedService(feedSvc, zl)

	// 9. 初始化 Hertz 服务器并注册路由
	opts := []hertzconfig.Option{server.WithHostPorts(cfg.Server.Address)}
	if cfg.Metrics.Enabled {
		opts = append(opts, server.WithTracer(InitMetrics(zl, storyCache, cfg.Metrics)))
	}
	h := server.New(opts...)
	router.Register(h.Engine)
	for _, fn := range shutdown {
		h.OnShutdown = append(h.OnShutdown, fn)
	}
	h.OnShutdown = append(h.OnShutdown, func(context.Context) { _ = zl.Sync() })
	zl.Info("Hertz 服务器实例创建完成", zap.String("address", cfg.Server.Address))

	// 10. 后台预加载，不阻塞启动
	app := &App{
		Config:  cfg,
		Logger:  zl,
		Server:  h,
		Cache:   storyCache,
		Service: feedSvc,
	}
	if cfg.Preload.Enabled {
		feeds, err := model.ParseFeeds(cfg.Preload.Feeds)
		if err != nil {
			return nil, fmt.Errorf("解析预加载 feed 失败: %w", err)
		}
		p := preload.NewPreloader(storyCache, source, preload.Options{
			Feeds:            feeds,
			PageSize:         cfg.Paging.PageSize,
			FetchConcurrency: cfg.Paging.FetchConcurrency,
			Listener:         feedSvc.OnPreloaded,
		}, zl)
		app.PreloadDone = p.StartPreloading()
	} else {
		done := make(chan struct{})
		close(done)
		app.PreloadDone = done
	}
	return app, nil
}

// InitItemCache 连接 Redis 并把 source 包装为 CachedSource
func InitItemCache(logger *zap.Logger, source remote.ItemSource, cfg *config.AppConfig) (*redis.Client, *remote.CachedSource, error) {
	rdb, err := dbInfra.InitRedis(context.Background(), dbInfra.RedisConfig{
		Addr:     cfg.Database.Redis.Addr,
		Password: cfg.Database.Redis.Password,
		DB:       cfg.Database.Redis.DB,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	kv, err := remote.NewRedisKV(rdb)
	if err != nil {
		rdb.Close()
		return nil, nil, err
	}
	cached, err := remote.NewCachedSource(source, kv, remote.CachedSourceOptions{
		Prefix:        cfg.Cache.Prefix,
		TTL:           cfg.Cache.ItemTTL(),
		EstimatedKeys: cfg.Cache.EstimatedKeys,
		FpRate:        cfg.Cache.FpRate,
	}, logger)
	if err != nil {
		rdb.Close()
		return nil, nil, err
	}
	return rdb, cached, nil
}

// InitMetrics 创建请求指标 tracer，缓存统计注册在同一个 registry 中
func InitMetrics(logger *zap.Logger, c cache.StoryCache, cfg config.MetricsConfig) tracer.Tracer {
	reg := prometheus.NewRegistry()
	reg.MustRegister(cache.NewCollector(c, MetricsNamespace))
	logger.Info("Prometheus 指标已启用", zap.String("address", cfg.Address), zap.String("path", cfg.Path))
	return monitor.NewServerTracer(cfg.Address, cfg.Path, monitor.WithRegistry(reg))
}
