package miner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/paulmach/orb"
	"golang.org/x/time/rate"

	"poi-miner/internal/logger"
	"poi-miner/internal/metrics"
	"poi-miner/internal/poi"
	"poi-miner/internal/provider"
)

const (
	DefaultPageSize  = 50
	DefaultMaxPages  = 20
	DefaultPageDelay = 50 * time.Millisecond
	DefaultCellDelay = 50 * time.Millisecond
	// DefaultMaxCells 单次挖掘的格数上限，0.02° 步长下约 4°×4° 范围
	DefaultMaxCells = 40000
)

// FetchStats：单个格子的分页统计
type FetchStats struct {
	Pages int // 实际发出的请求数
	Total int // 服务商最后一次声明的总条数
}

// 文档注释：单格子分页检索器
// 背景：服务商单次检索最多返回一页，且可翻页数有上限；密集区域需按页累积直到服务商声明的总数或页数上限。
// 约束：零值字段使用默认页大小与页数上限；PageDelay 为 0 时不等待；Limiter 非空时每页请求前取令牌。
type Fetcher struct {
	Provider  provider.Provider
	PageSize  int
	MaxPages  int
	PageDelay time.Duration
	Limiter   *rate.Limiter
	Log       *slog.Logger
}

// 文档注释：拉取一个格子的全部候选记录
// 参数：types 为所选编码以 | 连接；keywords 原样透传。
// 返回：已累积的候选记录、分页统计；某页出错时返回已累积结果并附带包装 ErrProviderPage 的错误；
// ctx 取消时返回 ctx 错误。
// 约束：从第 1 页开始；仅当 total > page*pageSize 且 page < maxPages 时继续翻页，翻页前等待 PageDelay。
func (f *Fetcher) FetchCell(ctx context.Context, cell orb.Bound, types, keywords string) ([]poi.Candidate, FetchStats, error) {
	size := f.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	maxPages := f.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	l := f.Log
	if l == nil {
		l = logger.L()
	}
	var (
		acc   []poi.Candidate
		stats FetchStats
	)
	defer func() { metrics.PagesPerCell.Observe(float64(stats.Pages)) }()
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return acc, stats, err
		}
		if f.Limiter != nil {
			if err := f.Limiter.Wait(ctx); err != nil {
				return acc, stats, err
			}
		}
		req := provider.Request{Keywords: keywords, Types: types, Bounds: cell, Page: page, PageSize: size}
		p, err := f.Provider.Search(ctx, req)
		stats.Pages++
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return acc, stats, ctxErr
			}
			l.Warn("page_fetch_error", "page", page, "err", err)
			return acc, stats, fmt.Errorf("%w: page %d: %w", ErrProviderPage, page, err)
		}
		switch p.Status {
		case provider.StatusSuccess:
		case provider.StatusNoData:
			return acc, stats, nil
		default:
			l.Warn("page_status_error", "page", page, "status", p.Status, "info", p.Info)
			return acc, stats, fmt.Errorf("%w: page %d: %s", ErrProviderPage, page, p.Info)
		}
		if len(p.Records) == 0 {
			return acc, stats, nil
		}
		acc = append(acc, p.Records...)
		stats.Total = p.Total
		if p.Total <= page*size || page >= maxPages {
			return acc, stats, nil
		}
		if err := sleepCtx(ctx, f.PageDelay); err != nil {
			return acc, stats, err
		}
	}
}

// sleepCtx 等待 d 或 ctx 结束
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
