// 包 miner：多边形约束的 POI 聚合引擎
package miner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"poi-miner/internal/category"
	"poi-miner/internal/geo"
	"poi-miner/internal/logger"
	"poi-miner/internal/metrics"
	"poi-miner/internal/poi"
	"poi-miner/internal/provider"
)

// Options：一次挖掘的网格、分页、节奏与并发参数
type Options struct {
	Step        float64
	PageSize    int
	MaxPages    int
	PageDelay   time.Duration
	CellDelay   time.Duration
	Concurrency int
	MaxCells    int
	Keywords    string
	Limiter     *rate.Limiter
	Logger      *slog.Logger
}

// DefaultOptions 返回与高德配额相匹配的默认参数（串行、每页/每格 50ms 间隔）
func DefaultOptions() Options {
	return Options{
		Step:        geo.DefaultStep,
		PageSize:    DefaultPageSize,
		MaxPages:    DefaultMaxPages,
		PageDelay:   DefaultPageDelay,
		CellDelay:   DefaultCellDelay,
		Concurrency: 1,
		MaxCells:    DefaultMaxCells,
	}
}

// Engine：聚合引擎；自身无状态，可被多次并发调用，每次 Run 的去重集合与结果互相独立
type Engine struct {
	opts Options
	log  *slog.Logger
}

// New 创建引擎；网格步长、页大小、页数上限、并发度与格数上限的非正值回退到默认值，间隔按原值使用
func New(opts Options) *Engine {
	if opts.Step <= 0 {
		opts.Step = geo.DefaultStep
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultMaxPages
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.MaxCells <= 0 {
		opts.MaxCells = DefaultMaxCells
	}
	l := opts.Logger
	if l == nil {
		l = logger.L()
	}
	return &Engine{opts: opts, log: l}
}

// Options 返回生效参数
func (e *Engine) Options() Options { return e.opts }

// WithKeywords 返回使用指定关键字的引擎副本
func (e *Engine) WithKeywords(kw string) *Engine {
	cp := *e
	cp.opts.Keywords = kw
	return &cp
}

// 文档注释：在多边形内挖掘所选分类的全部 POI
// 背景：服务商只支持矩形检索且单次可翻页数有限，故将多边形外接矩形切成小格逐格分页拉取，
// 再以原多边形做精确点面判定，并按服务商 id 跨格去重。
// 参数：
// - polygon：隐式闭合的顶点环，至少 3 个顶点；
// - codes：所选两位分类编码；
// - p：服务商；实现 provider.Availability 时先检查可用性；
// - r：进度接收方，可为空。
// 返回：按格子顺序、格内服务商顺序排列的结果；前置校验失败时不发起任何请求。
// 约束：
// - 单格错误或 panic 只记录日志并计为失败格，挖掘继续，最终状态仍为 complete；
// - ctx 在格子之间检查；被取消打断的格子整格丢弃，返回已接受的结果与 ctx 错误，状态为 error；
// - 并发模式下结果仍按格子顺序合并，输出与串行一致。
func (e *Engine) Run(ctx context.Context, polygon orb.Ring, codes []string, p provider.Provider, r Reporter) ([]poi.Record, error) {
	if r == nil {
		r = nopReporter{}
	}
	rn := &run{polygon: polygon, rep: r, log: e.log, started: time.Now()}

	bbox, m, err := e.preflight(polygon, codes, p)
	if err != nil {
		return nil, rn.fail(err)
	}
	rn.matcher = m
	rn.seen = make(map[string]struct{})

	cells := geo.Decompose(bbox, e.opts.Step)
	rn.snap = Snapshot{TotalCells: len(cells), Status: StatusFetching, Message: scanningMessage(0, len(cells), 0)}
	rn.report()
	e.log.Info("run_start", "cells", len(cells), "types", m.Types(), "keywords", e.opts.Keywords, "concurrency", e.opts.Concurrency)

	metrics.ActiveRuns.Inc()
	defer metrics.ActiveRuns.Dec()

	f := &Fetcher{
		Provider:  p,
		PageSize:  e.opts.PageSize,
		MaxPages:  e.opts.MaxPages,
		PageDelay: e.opts.PageDelay,
		Limiter:   e.opts.Limiter,
		Log:       e.log,
	}
	if e.opts.Concurrency > 1 && len(cells) > 1 {
		err = e.runParallel(ctx, rn, f, cells, m.Types())
	} else {
		err = e.runSequential(ctx, rn, f, cells, m.Types())
	}
	if err != nil {
		return rn.records, rn.cancel(err)
	}
	return rn.records, rn.complete()
}

// Preflight 执行 Run 的前置校验（几何、格数上限、分类、服务商可用性），不发起任何请求
func (e *Engine) Preflight(polygon orb.Ring, codes []string, p provider.Provider) error {
	_, _, err := e.preflight(polygon, codes, p)
	return err
}

func (e *Engine) preflight(polygon orb.Ring, codes []string, p provider.Provider) (orb.Bound, *category.Matcher, error) {
	bbox, err := geo.BoundingBox(polygon)
	if err != nil {
		return orb.Bound{}, nil, err
	}
	if n := geo.CellCount(bbox, e.opts.Step); n > e.opts.MaxCells {
		return orb.Bound{}, nil, fmt.Errorf("%w: %d cells at step %g, limit %d", ErrTooManyCells, n, e.opts.Step, e.opts.MaxCells)
	}
	m := category.NewMatcher(codes)
	if m.Empty() {
		return orb.Bound{}, nil, ErrNoCategorySelected
	}
	if p == nil {
		return orb.Bound{}, nil, ErrProviderUnavailable
	}
	if a, ok := p.(provider.Availability); ok {
		if err := a.Available(); err != nil {
			return orb.Bound{}, nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
		}
	}
	return bbox, m, nil
}

func (e *Engine) runSequential(ctx context.Context, rn *run, f *Fetcher, cells []orb.Bound, types string) error {
	for i, cell := range cells {
		if err := ctx.Err(); err != nil {
			return err
		}
		res := e.fetchCell(ctx, f, i, cell, types)
		if err := ctx.Err(); err != nil {
			return err
		}
		rn.apply(res)
		if i < len(cells)-1 {
			if err := sleepCtx(ctx, e.opts.CellDelay); err != nil {
				return err
			}
		}
	}
	return nil
}

// runParallel 受限并发拉取，结果由当前 goroutine 按格子顺序合并
func (e *Engine) runParallel(ctx context.Context, rn *run, f *Fetcher, cells []orb.Bound, types string) error {
	results := make(chan cellResult, len(cells))
	go func() {
		defer close(results)
		var g errgroup.Group
		g.SetLimit(e.opts.Concurrency)
		for i, cell := range cells {
			if ctx.Err() != nil {
				break
			}
			i, cell := i, cell
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				res := e.fetchCell(ctx, f, i, cell, types)
				results <- res
				_ = sleepCtx(ctx, e.opts.CellDelay)
				return nil
			})
		}
		_ = g.Wait()
	}()

	pending := make(map[int]cellResult)
	next := 0
	for res := range results {
		if ctx.Err() != nil {
			continue
		}
		pending[res.idx] = res
		for {
			r, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			rn.apply(r)
			next++
		}
	}
	return ctx.Err()
}

type cellResult struct {
	idx   int
	cands []poi.Candidate
	stats FetchStats
	err   error
}

// fetchCell 拉取单格并把 panic 转为 ErrCellFetch
func (e *Engine) fetchCell(ctx context.Context, f *Fetcher, idx int, cell orb.Bound, types string) (res cellResult) {
	res.idx = idx
	defer func() {
		if v := recover(); v != nil {
			res.cands = nil
			res.err = fmt.Errorf("%w: cell %d: panic: %v", ErrCellFetch, idx, v)
		}
	}()
	cands, stats, err := f.FetchCell(ctx, cell, types, e.opts.Keywords)
	res.cands, res.stats = cands, stats
	if err != nil {
		res.err = fmt.Errorf("%w: cell %d: %w", ErrCellFetch, idx, err)
	}
	return res
}

// run：一次 Run 的私有状态，仅由合并 goroutine 访问
type run struct {
	polygon orb.Ring
	matcher *category.Matcher
	seen    map[string]struct{}
	records []poi.Record
	snap    Snapshot
	rep     Reporter
	log     *slog.Logger
	started time.Time
}

func (rn *run) report() { rn.rep.Report(rn.snap) }

// apply 合并一个格子的结果并推进进度
func (rn *run) apply(res cellResult) {
	rn.snap.Requests += res.stats.Pages
	if res.err != nil {
		rn.snap.FailedCells++
		rn.log.Error("cell_fetch_error", "cell", res.idx, "err", res.err)
		if errors.Is(res.err, ErrProviderPage) {
			metrics.CellsTotal.WithLabelValues("partial").Inc()
		} else {
			metrics.CellsTotal.WithLabelValues("failed").Inc()
		}
	} else {
		metrics.CellsTotal.WithLabelValues("ok").Inc()
	}
	accepted := rn.absorb(res.cands)
	rn.snap.CompletedCells++
	rn.snap.TotalFound = len(rn.records)
	rn.snap.Message = scanningMessage(rn.snap.CompletedCells, rn.snap.TotalCells, rn.snap.TotalFound)
	rn.log.Debug("cell_done", "cell", res.idx, "candidates", len(res.cands), "accepted", accepted, "pages", res.stats.Pages)
	rn.report()
}

// 文档注释：过滤并接受候选记录
// 约束：缺 id 或坐标的候选直接跳过；已接受过的 id 跳过；依次做点面判定与分类判定，
// 只有通过两项的候选才写入去重集合，被拒绝的 id 可在后续格子中再次参与判定。
func (rn *run) absorb(cands []poi.Candidate) int {
	n := 0
	for _, c := range cands {
		if c.ID == "" || c.Location == nil {
			metrics.RecordsTotal.WithLabelValues("invalid").Inc()
			continue
		}
		if _, dup := rn.seen[c.ID]; dup {
			metrics.RecordsTotal.WithLabelValues("duplicate").Inc()
			continue
		}
		if !geo.PointInRing(*c.Location, rn.polygon) {
			metrics.RecordsTotal.WithLabelValues("outside").Inc()
			continue
		}
		if !rn.matcher.IsSelected(c.TypeCode, c.Type) {
			metrics.RecordsTotal.WithLabelValues("category").Inc()
			continue
		}
		rn.seen[c.ID] = struct{}{}
		rn.records = append(rn.records, poi.Normalize(c))
		metrics.RecordsTotal.WithLabelValues("accepted").Inc()
		n++
	}
	return n
}

func (rn *run) fail(err error) error {
	rn.snap.Status = StatusError
	rn.snap.Message = failedMessage(err)
	rn.report()
	rn.log.Warn("run_rejected", "err", err)
	metrics.RunsTotal.WithLabelValues("rejected").Inc()
	return err
}

func (rn *run) cancel(err error) error {
	rn.snap.Status = StatusError
	rn.snap.Message = cancelledMessage(rn.snap.CompletedCells, rn.snap.TotalCells, rn.snap.TotalFound)
	rn.report()
	rn.log.Warn("run_cancelled", "completed", rn.snap.CompletedCells, "total", rn.snap.TotalCells, "found", rn.snap.TotalFound, "err", err)
	metrics.RunsTotal.WithLabelValues("cancelled").Inc()
	metrics.RunDurationSec.Observe(time.Since(rn.started).Seconds())
	return err
}

func (rn *run) complete() error {
	rn.snap.Status = StatusComplete
	rn.snap.Message = completeMessage(len(rn.records))
	rn.report()
	rn.log.Info("run_complete", "cells", rn.snap.TotalCells, "failed", rn.snap.FailedCells, "found", len(rn.records), "requests", rn.snap.Requests)
	metrics.RunsTotal.WithLabelValues("complete").Inc()
	metrics.RunDurationSec.Observe(time.Since(rn.started).Seconds())
	return nil
}
