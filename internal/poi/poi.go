// 包 poi：服务商原始候选记录与挖掘结果记录
package poi

import (
	"strings"

	"github.com/paulmach/orb"

	"poi-miner/internal/category"
)

// Candidate：服务商返回的原始 POI，尚未经过去重、范围与分类过滤
// 约束：Location 为空表示服务商未返回坐标；Address/Tel 可能被拆成多段
type Candidate struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Type     string     `json:"type"`
	TypeCode string     `json:"typecode"`
	Location *orb.Point `json:"location,omitempty"`
	Address  []string   `json:"address,omitempty"`
	Tel      []string   `json:"tel,omitempty"`
	PName    string     `json:"pname"`
	CityName string     `json:"cityname"`
	AdName   string     `json:"adname"`
}

// Record：通过去重、范围与分类校验后的结果，交给导出使用
type Record struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Type          string    `json:"type"`
	TypeCode      string    `json:"typecode"`
	Address       string    `json:"address"`
	Location      orb.Point `json:"location"`
	Tel           string    `json:"tel"`
	PName         string    `json:"pname"`
	CityName      string    `json:"cityname"`
	AdName        string    `json:"adname"`
	CategoryIndex int       `json:"categoryIndex"`
}

// 文档注释：将候选记录整理为结果记录
// 约束：地址多段直接拼接，电话多段以 ; 拼接；typecode 补齐到 6 位；未能归类时 CategoryIndex 为 -1。
// 调用方须保证 Location 非空。
func Normalize(c Candidate) Record {
	r := Record{
		ID:            c.ID,
		Name:          c.Name,
		Type:          c.Type,
		TypeCode:      category.NormalizeCode(c.TypeCode),
		Address:       strings.Join(c.Address, ""),
		Tel:           strings.Join(c.Tel, ";"),
		PName:         c.PName,
		CityName:      c.CityName,
		AdName:        c.AdName,
		CategoryIndex: -1,
	}
	if c.Location != nil {
		r.Location = *c.Location
	}
	if cat, ok := category.ResolveCategory(c.TypeCode); ok {
		r.CategoryIndex = cat.Index
	}
	return r
}

// TypeLevels 将 "大类;中类;小类" 拆为三级，缺失层级为空串
func (r Record) TypeLevels() [3]string {
	var out [3]string
	parts := strings.Split(r.Type, ";")
	for i := 0; i < len(out) && i < len(parts); i++ {
		out[i] = parts[i]
	}
	return out
}
