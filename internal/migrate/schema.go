package migrate

import (
	"database/sql"

	"poi-miner/internal/logger"
)

// 背景：首次运行自动创建挖掘摘要与日统计表
// 约束：使用 IF NOT EXISTS 避免与既有结构冲突；只存运行摘要，不存 POI 明细
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS _poi_runs (
            id UUID PRIMARY KEY,
            status TEXT NOT NULL,
            categories TEXT NOT NULL,
            keywords TEXT NOT NULL DEFAULT '',
            total_cells INT NOT NULL DEFAULT 0,
            failed_cells INT NOT NULL DEFAULT 0,
            found INT NOT NULL DEFAULT 0,
            requests INT NOT NULL DEFAULT 0,
            message TEXT NOT NULL DEFAULT '',
            started_at TIMESTAMPTZ NOT NULL,
            finished_at TIMESTAMPTZ NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_poi_runs_started ON _poi_runs(started_at DESC)`,
		`CREATE TABLE IF NOT EXISTS _poi_stats_daily (
            day DATE PRIMARY KEY,
            runs BIGINT NOT NULL DEFAULT 0,
            records BIGINT NOT NULL DEFAULT 0,
            requests BIGINT NOT NULL DEFAULT 0
        )`,
	}
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
