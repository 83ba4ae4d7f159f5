package category

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// 文档注释：标准化分类编码
// 背景：服务商返回的 typecode 可能丢失前导零（050100 → 50100），比较前需补齐到 6 位。
func NormalizeCode(raw string) string {
	c := strings.TrimSpace(raw)
	if len(c) == 5 {
		c = "0" + c
	}
	return c
}

// 文档注释：解析原始编码所属的一级分类
// 约束：取标准化编码前两位查表；编码不足两位或表中不存在时返回 false。
func ResolveCategory(raw string) (Category, bool) {
	c := NormalizeCode(raw)
	if len(c) < 2 {
		return Category{}, false
	}
	return Lookup(c[:2])
}

// Matcher：针对一次挖掘所选分类的过滤器
type Matcher struct {
	codes  []string
	labels []string
}

// NewMatcher 按所选两位编码构造过滤器；空白、重复以及非两位数字的编码被忽略，中文名称取自分类表用于兜底匹配
func NewMatcher(codes []string) *Matcher {
	m := &Matcher{}
	seen := make(map[string]bool, len(codes))
	for _, raw := range codes {
		c := strings.TrimSpace(raw)
		if !isTopLevelCode(c) || seen[c] {
			continue
		}
		seen[c] = true
		m.codes = append(m.codes, c)
		if cat, ok := Lookup(c); ok {
			m.labels = append(m.labels, normalizeLabel(cat.Name))
		}
	}
	return m
}

// 一级分类编码固定为两位数字；更短的编码会前缀匹配多个大类
func isTopLevelCode(c string) bool {
	return len(c) == 2 && c[0] >= '0' && c[0] <= '9' && c[1] >= '0' && c[1] <= '9'
}

// Codes 返回去重后的所选编码
func (m *Matcher) Codes() []string { return append([]string(nil), m.codes...) }

// Types 返回服务商 types 参数（多个编码以 | 连接）
func (m *Matcher) Types() string { return strings.Join(m.codes, "|") }

// Empty 是否未选择任何分类
func (m *Matcher) Empty() bool { return len(m.codes) == 0 }

// 文档注释：判断候选 POI 是否属于所选分类
// 背景：编码是稳定的分类依据，优先使用；类型名称是自由文本，仅在编码缺失或非法时兜底。
// 约束：标准化编码长度 >= 2 时，编码须以某个所选编码开头；否则类型名称须以某个所选分类中文名开头。
func (m *Matcher) IsSelected(rawCode, rawLabel string) bool {
	code := NormalizeCode(rawCode)
	if len(code) >= 2 {
		for _, c := range m.codes {
			if strings.HasPrefix(code, c) {
				return true
			}
		}
		return false
	}
	label := normalizeLabel(rawLabel)
	for _, l := range m.labels {
		if strings.HasPrefix(label, l) {
			return true
		}
	}
	return false
}

// 全角/半角等兼容字符统一后再比较，避免数据源混用字符导致前缀失配
func normalizeLabel(s string) string {
	return norm.NFKC.String(strings.TrimSpace(s))
}
