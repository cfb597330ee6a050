package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/willf/bloom"
	"go.uber.org/zap"

	"hnpulse/biz/model"
)

const (
	// NilValuePlaceholder 用于在 Redis 中标记上游不存在的条目，以区分 key 不存在和条目不存在。
	NilValuePlaceholder = "__NIL_VALUE__"
	// NilValueTTL 设置空值的较短 TTL，已删除的条目也可能被恢复。
	NilValueTTL = 5 * time.Minute
	// DefaultItemTTL 条目记录的默认缓存时间
	DefaultItemTTL = 10 * time.Minute
	// DefaultTTLJitterPercent 在基础 TTL 上增加 0% 到 10% 的随机时间，防止缓存雪崩
	DefaultTTLJitterPercent = 0.1

	defaultEstimatedKeys = 100000
	defaultFpRate        = 0.01
)

// KVStore 是 CachedSource 需要的最小键值存储操作。
// 未命中时 Get 必须返回 ErrCacheMiss。
type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// redisKV 用 go-redis 客户端实现 KVStore
type redisKV struct {
	client *redis.Client
}

// NewRedisKV 把 redis 客户端包装为 KVStore
func NewRedisKV(client *redis.Client) (KVStore, error) {
	if client == nil {
		return nil, errors.New("remote: redis client cannot be nil")
	}
	return &redisKV{client: client}, nil
}

func (r *redisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	if err != nil {
		return "", fmt.Errorf("remote: redis get failed for key %s: %w", key, err)
	}
	return val, nil
}

func (r *redisKV) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("remote: redis set failed for key %s: %w", key, err)
	}
	return nil
}

// CachedSourceOptions 配置 CachedSource
type CachedSourceOptions struct {
	Prefix        string
	TTL           time.Duration
	EstimatedKeys uint
	FpRate        float64
}

// CachedSource 在 ItemSource 前面加一层 Redis 读旁路缓存，只缓存单个条目记录。
// ID 列表总是直接访问上游，保证刷新拿到的是最新排序。
// Redis 出错时退化为直接访问上游，不会让一次加载失败。
type CachedSource struct {
	inner  ItemSource
	kv     KVStore
	prefix string
	ttl    time.Duration

	// known 记录本进程写入过 Redis 的条目 ID，不在其中的 ID 跳过一次 Redis 往返。
	// 误判只会多查一次 Redis。
	mu    sync.Mutex
	known *bloom.BloomFilter

	logger *zap.Logger
}

// NewCachedSource 创建带 Redis 缓存的 ItemSource
func NewCachedSource(inner ItemSource, kv KVStore, opts CachedSourceOptions, logger *zap.Logger) (*CachedSource, error) {
	if inner == nil {
		return nil, errors.New("remote: inner item source cannot be nil")
	}
	if kv == nil {
		return nil, errors.New("remote: kv store cannot be nil")
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultItemTTL
	}
	if opts.EstimatedKeys == 0 {
		opts.EstimatedKeys = defaultEstimatedKeys
	}
	if opts.FpRate <= 0 || opts.FpRate >= 1 {
		opts.FpRate = defaultFpRate
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CachedSource{
		inner:  inner,
		kv:     kv,
		prefix: opts.Prefix,
		ttl:    opts.TTL,
		known:  bloom.NewWithEstimates(opts.EstimatedKeys, opts.FpRate),
		logger: logger.Named("cached_source"),
	}, nil
}

func (s *CachedSource) itemKey(id int64) string {
	return fmt.Sprintf("%sitem:%d", s.prefix, id)
}

func (s *CachedSource) mayBeCached(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.known.TestString(strconv.FormatInt(id, 10))
}

func (s *CachedSource) remember(id int64) {
	s.mu.Lock()
	s.known.AddString(strconv.FormatInt(id, 10))
	s.mu.Unlock()
}

// ListIDs 直接透传到上游
func (s *CachedSource) ListIDs(ctx context.Context, feed model.Feed) ([]int64, error) {
	return s.inner.ListIDs(ctx, feed)
}

// GetItem 先查 Redis，未命中再访问上游并回填
func (s *CachedSource) GetItem(ctx context.Context, id int64) (*model.Item, error) {
	key := s.itemKey(id)

	// 1. 尝试从缓存获取
	if s.mayBeCached(id) {
		val, err := s.kv.Get(ctx, key)
		switch {
		case err == nil && val == NilValuePlaceholder:
			return nil, fmt.Errorf("remote: get item %d: %w", id, ErrItemNotFound)
		case err == nil:
			var item model.Item
			jsonErr := json.Unmarshal([]byte(val), &item)
			if jsonErr == nil {
				return &item, nil
			}
			// 数据损坏，继续从上游获取并覆盖
			s.logger.Warn("缓存的条目无法解析", zap.String("key", key), zap.Error(jsonErr))
		case !errors.Is(err, ErrCacheMiss):
			s.logger.Warn("读取 Redis 缓存失败，回退到上游", zap.String("key", key), zap.Error(err))
		}
	}

	// 2. 访问上游
	item, err := s.inner.GetItem(ctx, id)
	if errors.Is(err, ErrItemNotFound) {
		if setErr := s.kv.Set(ctx, key, NilValuePlaceholder, addJitter(NilValueTTL)); setErr != nil {
			s.logger.Warn("缓存空值失败", zap.String("key", key), zap.Error(setErr))
		} else {
			s.remember(id)
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	// 3. 回填缓存，失败不影响主流程
	data, err := json.Marshal(item)
	if err != nil {
		s.logger.Warn("序列化条目失败", zap.Int64("id", id), zap.Error(err))
		return item, nil
	}
	if setErr := s.kv.Set(ctx, key, string(data), addJitter(s.ttl)); setErr != nil {
		s.logger.Warn("写入 Redis 缓存失败", zap.String("key", key), zap.Error(setErr))
		return item, nil
	}
	s.remember(id)
	return item, nil
}

// addJitter 为 TTL 增加随机偏移
func addJitter(baseTTL time.Duration) time.Duration {
	if baseTTL <= 0 {
		return baseTTL
	}
	jitter := time.Duration(rand.Float64() * DefaultTTLJitterPercent * float64(baseTTL))
	return baseTTL + jitter
}

var _ ItemSource = (*CachedSource)(nil)
var _ KVStore = (*redisKV)(nil)
