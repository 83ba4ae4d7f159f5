package poi

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	loc := orb.Point{116.397, 39.909}
	r := Normalize(Candidate{
		ID:       "B000A7BD6C",
		Name:     "测试餐厅",
		Type:     "餐饮服务;中餐厅;中餐厅",
		TypeCode: "50100",
		Location: &loc,
		Address:  []string{"东长安街", "1号"},
		Tel:      []string{"010-1234", "010-5678"},
		PName:    "北京市",
	})
	assert.Equal(t, "050100", r.TypeCode)
	assert.Equal(t, "东长安街1号", r.Address)
	assert.Equal(t, "010-1234;010-5678", r.Tel)
	assert.Equal(t, loc, r.Location)
	assert.Equal(t, "北京市", r.PName)
	assert.Equal(t, "", r.CityName)
	assert.Equal(t, 4, r.CategoryIndex)
}

func TestNormalizeMissingFields(t *testing.T) {
	r := Normalize(Candidate{ID: "x"})
	assert.Equal(t, "", r.Address)
	assert.Equal(t, "", r.Tel)
	assert.Equal(t, -1, r.CategoryIndex)
}

func TestTypeLevels(t *testing.T) {
	assert.Equal(t, [3]string{"购物服务", "便民商店/便利店", "便民商店/便利店"},
		Record{Type: "购物服务;便民商店/便利店;便民商店/便利店"}.TypeLevels())
	assert.Equal(t, [3]string{"餐饮服务", "", ""}, Record{Type: "餐饮服务"}.TypeLevels())
	assert.Equal(t, [3]string{"", "", ""}, Record{}.TypeLevels())
}
