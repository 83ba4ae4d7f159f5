// 包 category：高德 POI 一级分类表与分类匹配规则
package category

// Category：一级分类（编码前两位）
type Category struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	NameEN string `json:"nameEn"`
	Color  string `json:"color"`
	Index  int    `json:"index"`
}

// Label 返回展示用的中英文标签，例如 "餐饮服务 (Dining)"
func (c Category) Label() string { return c.Name + " (" + c.NameEN + ")" }

// 文档注释：高德一级分类表
// 背景：对齐高德官方 POI 分类编码表（01-99）的大类；颜色用于前端打点着色。
// 约束：进程内只读；Index 与表内顺序一致。
var taxonomy = []Category{
	{Code: "01", Name: "汽车服务", NameEN: "Auto Service", Color: "#3B82F6"},
	{Code: "02", Name: "汽车销售", NameEN: "Auto Sales", Color: "#2563EB"},
	{Code: "03", Name: "汽车维修", NameEN: "Auto Repair", Color: "#1D4ED8"},
	{Code: "04", Name: "摩托车服务", NameEN: "Motorcycle", Color: "#1E40AF"},
	{Code: "05", Name: "餐饮服务", NameEN: "Dining", Color: "#EF4444"},
	{Code: "06", Name: "购物服务", NameEN: "Shopping", Color: "#F59E0B"},
	{Code: "07", Name: "生活服务", NameEN: "Life Service", Color: "#10B981"},
	{Code: "08", Name: "体育休闲", NameEN: "Sports", Color: "#8B5CF6"},
	{Code: "09", Name: "医疗保健", NameEN: "Medical", Color: "#EC4899"},
	{Code: "10", Name: "住宿服务", NameEN: "Hotel", Color: "#6366F1"},
	{Code: "11", Name: "风景名胜", NameEN: "Scenic", Color: "#22C55E"},
	{Code: "12", Name: "商务住宅", NameEN: "Business", Color: "#0EA5E9"},
	{Code: "13", Name: "政府机构", NameEN: "Government", Color: "#64748B"},
	{Code: "14", Name: "科教文化", NameEN: "Education", Color: "#A855F7"},
	{Code: "15", Name: "交通设施", NameEN: "Transport", Color: "#06B6D4"},
	{Code: "16", Name: "金融保险", NameEN: "Finance", Color: "#EAB308"},
	{Code: "17", Name: "公司企业", NameEN: "Company", Color: "#14B8A6"},
	{Code: "18", Name: "道路附属", NameEN: "Road Furniture", Color: "#78716C"},
	{Code: "19", Name: "地名地址", NameEN: "Address", Color: "#9CA3AF"},
	{Code: "20", Name: "公共设施", NameEN: "Public", Color: "#4B5563"},
	{Code: "22", Name: "事件活动", NameEN: "Events", Color: "#F43F5E"},
	{Code: "97", Name: "室内设施", NameEN: "Indoor", Color: "#D4D4D8"},
	{Code: "98", Name: "通行设施", NameEN: "Pass", Color: "#52525B"},
}

func init() {
	for i := range taxonomy {
		taxonomy[i].Index = i
	}
}

// All 返回分类表副本
func All() []Category {
	out := make([]Category, len(taxonomy))
	copy(out, taxonomy)
	return out
}

// Lookup 按两位编码查表
func Lookup(code string) (Category, bool) {
	for _, c := range taxonomy {
		if c.Code == code {
			return c, true
		}
	}
	return Category{}, false
}
