package geo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// 文档注释：解析挖掘范围
// 背景：绘制端输出 [[lng,lat],...] 顶点数组；离线脚本常用 GeoJSON（Polygon/MultiPolygon/Feature/FeatureCollection）。
// 约束：GeoJSON 仅取第一个面要素的外环，洞忽略；顶点不足 3 个返回 ErrInvalidGeometry。
func ParsePolygon(data []byte) (orb.Ring, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrInvalidGeometry
	}
	var ring orb.Ring
	if data[0] == '[' {
		var pts [][]float64
		if err := json.Unmarshal(data, &pts); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
		}
		for _, p := range pts {
			if len(p) < 2 {
				return nil, fmt.Errorf("%w: vertex needs [lng, lat]", ErrInvalidGeometry)
			}
			ring = append(ring, orb.Point{p[0], p[1]})
		}
	} else {
		g, err := parseGeoJSON(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
		}
		ring = outerRing(g)
	}
	if _, err := BoundingBox(ring); err != nil {
		return nil, err
	}
	return ring, nil
}

func parseGeoJSON(data []byte) (orb.Geometry, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}
	switch strings.ToLower(head.Type) {
	case "featurecollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, err
		}
		for _, f := range fc.Features {
			if outerRing(f.Geometry) != nil {
				return f.Geometry, nil
			}
		}
		return nil, fmt.Errorf("no polygon feature")
	case "feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, err
		}
		return f.Geometry, nil
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, err
		}
		return g.Geometry(), nil
	}
}

func outerRing(g orb.Geometry) orb.Ring {
	switch v := g.(type) {
	case orb.Polygon:
		if len(v) > 0 {
			return v[0]
		}
	case orb.MultiPolygon:
		if len(v) > 0 && len(v[0]) > 0 {
			return v[0][0]
		}
	case orb.Ring:
		return v
	}
	return nil
}
