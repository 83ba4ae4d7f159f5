// 包 export：挖掘结果导出（xlsx / GeoJSON / CSV）
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"poi-miner/internal/poi"
)

// Format：导出格式
type Format string

const (
	FormatXLSX    Format = "xlsx"
	FormatGeoJSON Format = "geojson"
	FormatCSV     Format = "csv"
)

// DefaultBase 默认文件名前缀
const DefaultBase = "poi_data"

var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat 解析格式名，大小写不敏感；空串视为 xlsx
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "xlsx", "excel":
		return FormatXLSX, nil
	case "geojson", "json":
		return FormatGeoJSON, nil
	case "csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ContentType 返回 HTTP 下载使用的 MIME 类型
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatGeoJSON:
		return "application/geo+json"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	}
	return "application/octet-stream"
}

// Filename 生成 "<base>_<YYYY-MM-DD>.<ext>"，日期取 UTC
func Filename(base string, f Format, now time.Time) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = DefaultBase
	}
	return base + "_" + now.UTC().Format("2006-01-02") + "." + string(f)
}

// Write 按格式写出全部记录
func Write(w io.Writer, f Format, recs []poi.Record) error {
	switch f {
	case FormatXLSX:
		return WriteXLSX(w, recs)
	case FormatGeoJSON:
		return WriteGeoJSON(w, recs)
	case FormatCSV:
		return WriteCSV(w, recs)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
}

// 表格列：中英双语表头，类型拆成三级
var headers = []string{
	"名称 (Name)",
	"大类 (Category)",
	"中类 (Sub-Cat 1)",
	"小类 (Sub-Cat 2)",
	"完整类型 (Full Type)",
	"地址 (Address)",
	"经度 (Lng)",
	"纬度 (Lat)",
	"电话 (Tel)",
	"省份 (Province)",
	"城市 (City)",
	"区域 (District)",
}

func row(r poi.Record) []interface{} {
	lv := r.TypeLevels()
	return []interface{}{
		r.Name, lv[0], lv[1], lv[2], r.Type, r.Address,
		r.Location.Lon(), r.Location.Lat(),
		r.Tel, r.PName, r.CityName, r.AdName,
	}
}
