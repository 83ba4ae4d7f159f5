package api

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"poi-miner/internal/logger"
	"poi-miner/internal/miner"
	"poi-miner/internal/poi"
	"poi-miner/internal/provider"
	"poi-miner/internal/store"
)

var (
	ErrTooManyRuns    = errors.New("too many active runs")
	ErrRunNotFound    = errors.New("run not found")
	ErrRunNotFinished = errors.New("run not finished")
)

// RunRecorder：运行摘要落库接口，由 store.Store 实现
type RunRecorder interface {
	RecordRun(ctx context.Context, r store.RunSummary) error
}

// Run：一次后台挖掘；快照与结果由 mu 保护
type Run struct {
	ID         string
	Name       string
	Categories []string
	Keywords   string
	StartedAt  time.Time

	cancel context.CancelFunc
	done   chan struct{}

	mu         sync.Mutex
	snap       miner.Snapshot
	records    []poi.Record
	err        error
	finishedAt time.Time
}

// Report 实现 miner.Reporter
func (r *Run) Report(s miner.Snapshot) {
	r.mu.Lock()
	r.snap = s
	r.mu.Unlock()
}

// Snapshot 返回最新进度
func (r *Run) Snapshot() miner.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snap
}

// Finished 是否已结束（完成、失败或取消）
func (r *Run) Finished() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Done 结束信号
func (r *Run) Done() <-chan struct{} { return r.done }

// Result 返回结果；未结束时返回 ErrRunNotFinished
func (r *Run) Result() ([]poi.Record, error) {
	if !r.Finished() {
		return nil, ErrRunNotFinished
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records, r.err
}

// RunView：对外返回的运行视图
type RunView struct {
	ID         string         `json:"id"`
	Name       string         `json:"name,omitempty"`
	Categories []string       `json:"categories"`
	Keywords   string         `json:"keywords,omitempty"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt *time.Time     `json:"finishedAt,omitempty"`
	Progress   miner.Snapshot `json:"progress"`
}

func (r *Run) View() RunView {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := RunView{ID: r.ID, Name: r.Name, Categories: r.Categories, Keywords: r.Keywords, StartedAt: r.StartedAt, Progress: r.snap}
	if !r.finishedAt.IsZero() {
		t := r.finishedAt
		v.FinishedAt = &t
	}
	return v
}

// 文档注释：后台挖掘任务管理器
// 背景：一次挖掘可能持续数分钟，HTTP 请求只负责发起与轮询；结果仅保存在内存，过期后清理。
// 约束：
// - 同时进行的任务数不超过 maxActive；
// - 已结束任务在 ttl 后被清理；
// - 任务上下文独立于发起请求的上下文，只能通过 Cancel 取消。
type Manager struct {
	engine    *miner.Engine
	provider  provider.Provider
	recorder  RunRecorder
	maxActive int
	ttl       time.Duration
	now       func() time.Time

	mu   sync.Mutex
	runs map[string]*Run
}

// NewManager 创建管理器；recorder 可为空（不落库）
func NewManager(engine *miner.Engine, p provider.Provider, recorder RunRecorder, maxActive int, ttl time.Duration) *Manager {
	if maxActive <= 0 {
		maxActive = 1
	}
	return &Manager{
		engine:    engine,
		provider:  p,
		recorder:  recorder,
		maxActive: maxActive,
		ttl:       ttl,
		now:       time.Now,
		runs:      make(map[string]*Run),
	}
}

// StartRequest：发起挖掘的参数
type StartRequest struct {
	Name       string
	Polygon    orb.Ring
	Categories []string
	Keywords   string
}

// 文档注释：校验并在后台启动一次挖掘
// 返回：前置校验失败时返回 miner 的哨兵错误；并发已满返回 ErrTooManyRuns。
func (m *Manager) Start(req StartRequest) (*Run, error) {
	if err := m.engine.Preflight(req.Polygon, req.Categories, m.provider); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.sweepLocked()
	if m.activeLocked() >= m.maxActive {
		m.mu.Unlock()
		return nil, ErrTooManyRuns
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Run{
		ID:         uuid.NewString(),
		Name:       req.Name,
		Categories: append([]string(nil), req.Categories...),
		Keywords:   req.Keywords,
		StartedAt:  m.now(),
		cancel:     cancel,
		done:       make(chan struct{}),
		snap:       miner.Snapshot{Status: miner.StatusIdle},
	}
	m.runs[r.ID] = r
	m.mu.Unlock()

	logger.L().Info("run_accepted", "id", r.ID, "categories", r.Categories, "vertices", len(req.Polygon))
	go m.execute(ctx, r, req.Polygon)
	return r, nil
}

func (m *Manager) execute(ctx context.Context, r *Run, polygon orb.Ring) {
	defer close(r.done)
	defer r.cancel()
	defer func() {
		if rec := recover(); rec != nil {
			logger.L().Error("run_panic", "id", r.ID, "panic", rec)
			r.mu.Lock()
			r.err = fmt.Errorf("run panic: %v", rec)
			r.finishedAt = m.now()
			r.snap.Status = miner.StatusError
			r.snap.Message = fmt.Sprintf("失败: %v", rec)
			r.mu.Unlock()
		}
	}()
	recs, err := m.engine.WithKeywords(r.Keywords).Run(ctx, polygon, r.Categories, m.provider, r)
	r.mu.Lock()
	r.records, r.err = recs, err
	r.finishedAt = m.now()
	snap := r.snap
	r.mu.Unlock()

	if err != nil {
		logger.L().Warn("run_finished_with_error", "id", r.ID, "err", err, "found", len(recs))
	}
	if m.recorder == nil {
		return
	}
	sum := store.RunSummary{
		ID:          r.ID,
		Status:      string(snap.Status),
		Categories:  r.Categories,
		Keywords:    r.Keywords,
		TotalCells:  snap.TotalCells,
		FailedCells: snap.FailedCells,
		Found:       len(recs),
		Requests:    snap.Requests,
		Message:     snap.Message,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.finishedAt,
	}
	rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.recorder.RecordRun(rctx, sum); err != nil {
		logger.L().Error("run_record_error", "id", r.ID, "err", err)
	}
}

// Get 按 id 查找任务
func (m *Manager) Get(id string) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()
	r, ok := m.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return r, nil
}

// List 返回全部任务视图，按开始时间倒序
func (m *Manager) List() []RunView {
	m.mu.Lock()
	m.sweepLocked()
	runs := make([]*Run, 0, len(m.runs))
	for _, r := range m.runs {
		runs = append(runs, r)
	}
	m.mu.Unlock()
	out := make([]RunView, 0, len(runs))
	for _, r := range runs {
		out = append(out, r.View())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out
}

// Cancel 协作式取消；已结束的任务直接返回
func (m *Manager) Cancel(id string) error {
	r, err := m.Get(id)
	if err != nil {
		return err
	}
	r.cancel()
	return nil
}

// Janitor 周期清理过期任务，直到 ctx 结束
func (m *Manager) Janitor(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.mu.Lock()
			m.sweepLocked()
			m.mu.Unlock()
		}
	}
}

// Shutdown 取消全部进行中的任务
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.runs {
		r.cancel()
	}
}

func (m *Manager) activeLocked() int {
	n := 0
	for _, r := range m.runs {
		if !r.Finished() {
			n++
		}
	}
	return n
}

func (m *Manager) sweepLocked() {
	if m.ttl <= 0 {
		return
	}
	now := m.now()
	for id, r := range m.runs {
		if !r.Finished() {
			continue
		}
		r.mu.Lock()
		expired := now.Sub(r.finishedAt) > m.ttl
		r.mu.Unlock()
		if expired {
			delete(m.runs, id)
			logger.L().Debug("run_evicted", "id", id)
		}
	}
}
