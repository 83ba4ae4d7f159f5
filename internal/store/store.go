// 包 store: 提供与 PostgreSQL 的数据访问层，记录挖掘运行摘要与日统计
package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"poi-miner/internal/logger"
)

// Store: 数据库访问入口，持有连接池并提供摘要写入/统计接口
type Store struct {
	db *sql.DB
}

func AttachDB(db *sql.DB) *Store { return &Store{db: db} }

// Open: 使用 DSN 打开数据库连接并配置连接池参数
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	return &Store{db: db}, nil
}

// Close: 关闭数据库连接
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// RunSummary: 一次挖掘结束时的摘要
type RunSummary struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	Categories  []string  `json:"categories"`
	Keywords    string    `json:"keywords"`
	TotalCells  int       `json:"totalCells"`
	FailedCells int       `json:"failedCells"`
	Found       int       `json:"found"`
	Requests    int       `json:"requests"`
	Message     string    `json:"message"`
	StartedAt   time.Time `json:"startedAt"`
	FinishedAt  time.Time `json:"finishedAt"`
}

// 文档注释：写入运行摘要并累加当日统计
// 约束：两条语句在同一事务内；重复 id 以后写为准（取消后重试的场景）。
func (s *Store) RecordRun(ctx context.Context, r RunSummary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	_, err = tx.ExecContext(ctx, `INSERT INTO _poi_runs(id, status, categories, keywords, total_cells, failed_cells, found, requests, message, started_at, finished_at)
        VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        ON CONFLICT (id) DO UPDATE SET status=EXCLUDED.status, failed_cells=EXCLUDED.failed_cells, found=EXCLUDED.found, requests=EXCLUDED.requests, message=EXCLUDED.message, finished_at=EXCLUDED.finished_at`,
		r.ID, r.Status, strings.Join(r.Categories, ","), r.Keywords, r.TotalCells, r.FailedCells, r.Found, r.Requests, r.Message, r.StartedAt, r.FinishedAt,
	)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO _poi_stats_daily(day, runs, records, requests) VALUES(current_date, 1, $1, $2)
        ON CONFLICT (day) DO UPDATE SET runs=_poi_stats_daily.runs+1, records=_poi_stats_daily.records+EXCLUDED.records, requests=_poi_stats_daily.requests+EXCLUDED.requests`,
		r.Found, r.Requests,
	)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	logger.L().Debug("run_recorded", "id", r.ID, "status", r.Status, "found", r.Found)
	return nil
}

// Totals: 累计与当日统计
type Totals struct {
	Runs         int64 `json:"runs"`
	Records      int64 `json:"records"`
	Requests     int64 `json:"requests"`
	TodayRuns    int64 `json:"todayRuns"`
	TodayRecords int64 `json:"todayRecords"`
}

// GetTotals: 读取累计与当日统计；当日无记录时为 0
func (s *Store) GetTotals(ctx context.Context) (*Totals, error) {
	var t Totals
	row := s.db.QueryRowContext(ctx, "SELECT COALESCE(SUM(runs),0), COALESCE(SUM(records),0), COALESCE(SUM(requests),0) FROM _poi_stats_daily")
	if err := row.Scan(&t.Runs, &t.Records, &t.Requests); err != nil {
		return nil, err
	}
	row2 := s.db.QueryRowContext(ctx, "SELECT runs, records FROM _poi_stats_daily WHERE day=current_date")
	if err := row2.Scan(&t.TodayRuns, &t.TodayRecords); err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	logger.L().Debug("stats_totals", "runs", t.Runs, "records", t.Records, "today_runs", t.TodayRuns)
	return &t, nil
}

// RecentRuns: 按开始时间倒序返回最近的运行摘要
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, status, categories, keywords, total_cells, failed_cells, found, requests, message, started_at, finished_at
        FROM _poi_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var cats string
		if err := rows.Scan(&r.ID, &r.Status, &cats, &r.Keywords, &r.TotalCells, &r.FailedCells, &r.Found, &r.Requests, &r.Message, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		if cats != "" {
			r.Categories = strings.Split(cats, ",")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
