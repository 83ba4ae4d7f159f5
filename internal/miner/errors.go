package miner

import (
	"errors"

	"poi-miner/internal/geo"
)

var (
	// ErrInvalidGeometry 多边形顶点不足 3 个或坐标非法
	ErrInvalidGeometry = geo.ErrInvalidGeometry
	// ErrTooManyCells 范围按当前步长切分后超出格数上限
	ErrTooManyCells = errors.New("too many grid cells")
	// ErrNoCategorySelected 未选择任何分类
	ErrNoCategorySelected = errors.New("no category selected")
	// ErrProviderUnavailable 服务商未配置或不可用
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrCellFetch 单个格子处理失败（分页错误或 panic），不会中止整次挖掘
	ErrCellFetch = errors.New("cell fetch failed")
	// ErrProviderPage 服务商某一页返回错误状态或传输失败
	ErrProviderPage = errors.New("provider page failed")
)
