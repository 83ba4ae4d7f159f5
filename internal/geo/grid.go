package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// 网格数量的浮点容差，避免 1/0.02 之类的舍入多切出一条极窄网格
const countEpsilon = 1e-9

// MaxCellCount CellCount 的饱和上限
const MaxCellCount = math.MaxInt32

// 文档注释：计算 Decompose 将产生的网格数，不分配内存
// 约束：超过 MaxCellCount 时返回 MaxCellCount；调用方应先据此限制范围再调用 Decompose。
func CellCount(b orb.Bound, step float64) int {
	step = normalizeStep(step)
	n := spanCells(b.Max.Lat()-b.Min.Lat(), step) * spanCells(b.Max.Lon()-b.Min.Lon(), step)
	if n >= MaxCellCount {
		return MaxCellCount
	}
	return int(n)
}

func normalizeStep(step float64) float64 {
	if step <= 0 || !finite(step) {
		return DefaultStep
	}
	return step
}

// 文档注释：按固定步长切分包围盒
// 背景：服务商单次检索有分页上限，大范围需拆为小网格逐个检索。
// 约束：从西南角开始，纬度为外层、经度为内层（行优先）；每格东北角截断到包围盒边界，不越界。
// 网格起点按下标计算而非累加，保证格数确定，末行末列贴合包围盒边界；零面积包围盒返回单个网格；step<=0 时使用 DefaultStep。
// 不限制格数，大范围须先经 CellCount 校验。
func Decompose(b orb.Bound, step float64) []orb.Bound {
	step = normalizeStep(step)
	rows := int(spanCells(b.Max.Lat()-b.Min.Lat(), step))
	cols := int(spanCells(b.Max.Lon()-b.Min.Lon(), step))
	cells := make([]orb.Bound, 0, rows*cols)
	for r := 0; r < rows; r++ {
		lat := b.Min.Lat() + float64(r)*step
		north := math.Min(lat+step, b.Max.Lat())
		if r == rows-1 {
			north = b.Max.Lat()
		}
		for c := 0; c < cols; c++ {
			lng := b.Min.Lon() + float64(c)*step
			east := math.Min(lng+step, b.Max.Lon())
			if c == cols-1 {
				east = b.Max.Lon()
			}
			cells = append(cells, orb.Bound{Min: orb.Point{lng, lat}, Max: orb.Point{east, north}})
		}
	}
	return cells
}

// spanCells 以浮点返回单轴格数，避免极小步长下整数溢出
func spanCells(span, step float64) float64 {
	if !(span > 0) {
		return 1
	}
	n := math.Ceil(span/step - countEpsilon)
	if n < 1 {
		return 1
	}
	if n > MaxCellCount {
		return MaxCellCount
	}
	return n
}
