package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"poi-miner/internal/logger"
	"poi-miner/internal/provider"
)

// 文档注释：Redis 页缓存
// 背景：多实例部署时共享已取回的页，值以 JSON 存储并设置 TTL。
// 约束：Redis 故障一律视为未命中，不向上传播；TTL <= 0 时不写入。
type Redis struct {
	rc  *redis.Client
	ttl time.Duration
}

// NewRedis 包装已建立的客户端；rc 为空时返回 nil
func NewRedis(rc *redis.Client, ttl time.Duration) *Redis {
	if rc == nil {
		return nil
	}
	return &Redis{rc: rc, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, k string) (provider.Page, bool) {
	s, err := r.rc.Get(ctx, k).Result()
	if err != nil {
		if err != redis.Nil {
			logger.L().Warn("page_cache_get_error", "key", k, "err", err)
		}
		return provider.Page{}, false
	}
	var p provider.Page
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		logger.L().Warn("page_cache_decode_error", "key", k, "err", err)
		return provider.Page{}, false
	}
	return p, true
}

func (r *Redis) Set(ctx context.Context, k string, p provider.Page) {
	if r.ttl <= 0 {
		return
	}
	b, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := r.rc.Set(ctx, k, b, r.ttl).Err(); err != nil {
		logger.L().Warn("page_cache_set_error", "key", k, "err", err)
	}
}

// New 选择缓存后端：优先 Redis，其次进程内 LRU；两者都不可用时返回 nil
func New(rc *redis.Client, ttl time.Duration, lruSize int) provider.PageCache {
	if ttl <= 0 {
		return nil
	}
	if r := NewRedis(rc, ttl); r != nil {
		return r
	}
	if l := NewLRU(lruSize, ttl); l != nil {
		return l
	}
	return nil
}
