package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "050100", NormalizeCode("50100"))
	assert.Equal(t, "050100", NormalizeCode(" 050100 "))
	assert.Equal(t, "1001", NormalizeCode("1001"))
	assert.Equal(t, "", NormalizeCode(""))
}

func TestResolveCategory(t *testing.T) {
	c, ok := ResolveCategory("50100")
	require.True(t, ok)
	assert.Equal(t, "05", c.Code)
	assert.Equal(t, "餐饮服务", c.Name)

	c, ok = ResolveCategory("970000")
	require.True(t, ok)
	assert.Equal(t, "室内设施", c.Name)

	_, ok = ResolveCategory("210000")
	assert.False(t, ok, "21 is not in the table")
	_, ok = ResolveCategory("5")
	assert.False(t, ok)
}

func TestTaxonomyIndexes(t *testing.T) {
	all := All()
	require.Len(t, all, 23)
	for i, c := range all {
		assert.Equal(t, i, c.Index)
	}
	assert.Equal(t, "餐饮服务 (Dining)", all[4].Label())
}

func TestMatcherCodePath(t *testing.T) {
	m := NewMatcher([]string{"05", " 06", "05", ""})
	assert.Equal(t, []string{"05", "06"}, m.Codes())
	assert.Equal(t, "05|06", m.Types())

	assert.True(t, m.IsSelected("50100", "餐饮服务;中餐厅;中餐厅"))
	assert.True(t, m.IsSelected("060101", ""))
	assert.False(t, m.IsSelected("070000", "餐饮服务;中餐厅"), "code is authoritative over label")
	assert.False(t, m.IsSelected("10", "餐饮服务"))
}

func TestMatcherLabelFallback(t *testing.T) {
	m := NewMatcher([]string{"06"})
	assert.True(t, m.IsSelected("", "购物服务;便民商店/便利店;便民商店/便利店"))
	assert.True(t, m.IsSelected("x", "购物服务"))
	assert.False(t, m.IsSelected("", "餐饮服务;快餐厅"))
	assert.False(t, m.IsSelected("", ""))
}

func TestMatcherLabelFallbackNormalizesWidth(t *testing.T) {
	m := NewMatcher([]string{"19"})
	// 全角空格前缀与 NFKC 兼容字符
	assert.True(t, m.IsSelected("", "　地名地址;普通地名"))
}

func TestMatcherUnknownCodeHasNoLabel(t *testing.T) {
	m := NewMatcher([]string{"99"})
	assert.True(t, m.IsSelected("990000", ""))
	assert.False(t, m.IsSelected("", "99"))
}

func TestMatcherEmpty(t *testing.T) {
	assert.True(t, NewMatcher(nil).Empty())
	assert.True(t, NewMatcher([]string{" "}).Empty())
	assert.False(t, NewMatcher([]string{"05"}).Empty())
}

func TestMatcherDropsMalformedCodes(t *testing.T) {
	m := NewMatcher([]string{"0", "050", "5", "ab", "０５", "06"})
	assert.Equal(t, []string{"06"}, m.Codes())
	assert.False(t, m.IsSelected("050100", ""), "a one-digit selection must not widen to every 0x category")
	assert.False(t, m.IsSelected("", "餐饮服务"))
	assert.True(t, m.IsSelected("060101", ""))

	assert.True(t, NewMatcher([]string{"0"}).Empty())
}
