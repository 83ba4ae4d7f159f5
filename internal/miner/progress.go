package miner

import "fmt"

// Status：挖掘进度状态
type Status string

const (
	StatusIdle     Status = "idle"
	StatusDrawing  Status = "drawing"
	StatusFetching Status = "fetching"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

// 文档注释：进度快照
// 约束：CompletedCells 单调不减且不超过 TotalCells；TotalFound 等于当前已接受记录数。
type Snapshot struct {
	TotalCells     int    `json:"totalCells"`
	CompletedCells int    `json:"completedCells"`
	TotalFound     int    `json:"totalFound"`
	FailedCells    int    `json:"failedCells"`
	Requests       int    `json:"requests"`
	Status         Status `json:"status"`
	Message        string `json:"message"`
}

// Reporter：进度接收方，由引擎所在 goroutine 同步调用
type Reporter interface {
	Report(Snapshot)
}

// ReporterFunc 将函数适配为 Reporter
type ReporterFunc func(Snapshot)

func (f ReporterFunc) Report(s Snapshot) { f(s) }

type nopReporter struct{}

func (nopReporter) Report(Snapshot) {}

func scanningMessage(done, total, found int) string {
	return fmt.Sprintf("扫描中... (%d/%d) 已获: %d", done, total, found)
}

func completeMessage(found int) string {
	if found == 0 {
		return "完成！未找到数据 (0条)。可能是API配额耗尽或Key配置限制。"
	}
	return fmt.Sprintf("完成！共挖掘到 %d 条数据。", found)
}

func failedMessage(err error) string { return fmt.Sprintf("失败: %v", err) }

func cancelledMessage(done, total, found int) string {
	return fmt.Sprintf("已取消 (%d/%d) 已获: %d", done, total, found)
}
