// 包 geo：挖掘范围的几何运算（包围盒、点入多边形、网格切分）
// 坐标统一为 orb.Point{lng, lat}（度），与地图绘制端输出的 [经度, 纬度] 顺序一致。
package geo

import (
	"errors"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// DefaultStep 网格默认步长（度），约 2.2km
const DefaultStep = 0.02

// ErrInvalidGeometry 多边形顶点不足或含非法坐标
var ErrInvalidGeometry = errors.New("invalid geometry")

// 文档注释：计算多边形包围盒
// 约束：少于 3 个顶点、存在 NaN/Inf 坐标或经纬度超出 [-180,180]/[-90,90] 时返回 ErrInvalidGeometry；调用方无需重复首点闭合。
func BoundingBox(ring orb.Ring) (orb.Bound, error) {
	if len(ring) < 3 {
		return orb.Bound{}, ErrInvalidGeometry
	}
	for _, p := range ring {
		if !finite(p[0]) || !finite(p[1]) || !validDegrees(p) {
			return orb.Bound{}, ErrInvalidGeometry
		}
	}
	return ring.Bound(), nil
}

// 文档注释：点入多边形判定（射线法）
// 背景：网格只是覆盖范围的外接矩形，候选点必须回到原始多边形上复核。
// 约束：环按隐式闭合处理；凹多边形与自接触环均可；点恰在边或顶点上视为在内（含边界）。
func PointInRing(p orb.Point, ring orb.Ring) bool {
	if len(ring) < 3 {
		return false
	}
	return planar.RingContains(ring, p)
}

func validDegrees(p orb.Point) bool {
	return p.Lon() >= -180 && p.Lon() <= 180 && p.Lat() >= -90 && p.Lat() <= 90
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
