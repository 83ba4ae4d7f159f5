package provider

import (
	"context"
	"fmt"

	"poi-miner/internal/logger"
	"poi-miner/internal/metrics"
)

// PageCache：单页结果缓存后端（Redis 或进程内 LRU）
// 约束：Get 未命中或后端故障均返回 false；Set 失败只记录日志，不影响检索
type PageCache interface {
	Get(ctx context.Context, key string) (Page, bool)
	Set(ctx context.Context, key string, p Page)
}

// 文档注释：带页缓存的服务商装饰器
// 背景：同一区域反复挖掘时大部分格子与页码完全一致，缓存可直接节省服务商配额。
// 约束：仅缓存 success/no_data 页；error 页与传输错误从不写入缓存，下次仍会真实请求。
type Cached struct {
	next  Provider
	cache PageCache
}

// NewCached 包装服务商；cache 为空时直接返回原服务商
func NewCached(next Provider, cache PageCache) Provider {
	if cache == nil {
		return next
	}
	return &Cached{next: next, cache: cache}
}

func (c *Cached) Search(ctx context.Context, req Request) (Page, error) {
	k := CacheKey(req)
	if p, ok := c.cache.Get(ctx, k); ok {
		metrics.CacheTotal.WithLabelValues("hit").Inc()
		logger.L().Debug("page_cache_hit", "key", k)
		return p, nil
	}
	metrics.CacheTotal.WithLabelValues("miss").Inc()
	p, err := c.next.Search(ctx, req)
	if err != nil || p.Status == StatusError {
		return p, err
	}
	c.cache.Set(ctx, k, p)
	return p, nil
}

// Available 透传被包装服务商的可用性检查
func (c *Cached) Available() error {
	if a, ok := c.next.(Availability); ok {
		return a.Available()
	}
	return nil
}

// CacheKey 由类型、关键字、矩形（6 位小数）、页码与页大小构造缓存键
func CacheKey(req Request) string {
	return fmt.Sprintf("poi:page:%s:%s:%.6f,%.6f,%.6f,%.6f:%d:%d",
		req.Types, req.Keywords,
		req.Bounds.Min.Lon(), req.Bounds.Min.Lat(), req.Bounds.Max.Lon(), req.Bounds.Max.Lat(),
		req.Page, req.PageSize)
}
