// 包 bootstrap：按配置组装服务商、页缓存与聚合引擎，供服务端与命令行共用
package bootstrap

import (
	"net/http"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"poi-miner/internal/amap"
	"poi-miner/internal/cache"
	"poi-miner/internal/config"
	"poi-miner/internal/logger"
	"poi-miner/internal/miner"
	"poi-miner/internal/provider"
)

// Provider 组装高德客户端并按配置叠加页缓存；rc 为空时回退到进程内 LRU
func Provider(cfg config.Config, rc *redis.Client) provider.Provider {
	client := amap.New(cfg.AMapKey,
		amap.WithBaseURL(cfg.AMapBaseURL),
		amap.WithHTTPClient(&http.Client{Timeout: cfg.AMapTimeout}),
		amap.WithQPS(cfg.AMapQPS),
	)
	pc := cache.New(rc, cfg.CacheTTL, cfg.CacheSize)
	switch pc.(type) {
	case *cache.Redis:
		logger.L().Info("page_cache", "backend", "redis", "ttl", cfg.CacheTTL)
	case *cache.LRU:
		logger.L().Info("page_cache", "backend", "lru", "size", cfg.CacheSize, "ttl", cfg.CacheTTL)
	default:
		logger.L().Info("page_cache", "backend", "none")
	}
	return provider.NewCached(client, pc)
}

// Engine 按配置创建聚合引擎
// 约束：AMAP_QPS 已在客户端限速，此处不再叠加引擎级限速
func Engine(cfg config.Config) *miner.Engine {
	return miner.New(EngineOptions(cfg))
}

func EngineOptions(cfg config.Config) miner.Options {
	return miner.Options{
		Step:        cfg.GridStep,
		PageSize:    cfg.PageSize,
		MaxPages:    cfg.MaxPages,
		PageDelay:   cfg.PageDelay,
		CellDelay:   cfg.CellDelay,
		Concurrency: cfg.Concurrency,
		MaxCells:    cfg.MaxCells,
	}
}

// Limiter 返回每秒 qps 的共享限速器；qps <= 0 返回 nil
func Limiter(qps float64) *rate.Limiter {
	if qps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(qps), 1)
}
