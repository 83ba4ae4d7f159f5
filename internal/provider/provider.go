// 包 provider：POI 检索服务商端口与通用装饰器
package provider

import (
	"context"

	"github.com/paulmach/orb"

	"poi-miner/internal/poi"
)

// Status：单页检索结果状态
type Status string

const (
	StatusSuccess Status = "success"
	StatusNoData  Status = "no_data"
	StatusError   Status = "error"
)

// Request：单页矩形范围检索请求
// 约束：Page 从 1 开始；Types 为多个两位编码以 | 连接
type Request struct {
	Keywords string    `json:"keywords"`
	Types    string    `json:"types"`
	Bounds   orb.Bound `json:"bounds"`
	Page     int       `json:"page"`
	PageSize int       `json:"pageSize"`
}

// Page：单页检索结果
// 约束：Total 为服务商声明的总条数，可能大于实际可翻页条数；Info 携带服务商的错误说明
type Page struct {
	Status  Status          `json:"status"`
	Records []poi.Candidate `json:"records,omitempty"`
	Total   int             `json:"total"`
	Info    string          `json:"info,omitempty"`
}

// 文档注释：POI 检索服务商端口
// 背景：聚合引擎只依赖该接口，具体服务商（高德 REST、缓存装饰、测试桩）可替换。
// 约束：传输层错误通过 error 返回；服务商业务错误可通过 Page.Status=error 表达，两者由调用方同等对待。
type Provider interface {
	Search(ctx context.Context, req Request) (Page, error)
}

// Availability：可选能力，服务商未就绪（如未配置密钥）时返回错误
type Availability interface {
	Available() error
}

// Func 将函数适配为 Provider，便于测试与组合
type Func func(ctx context.Context, req Request) (Page, error)

func (f Func) Search(ctx context.Context, req Request) (Page, error) { return f(ctx, req) }
