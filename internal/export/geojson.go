package export

import (
	"io"

	"github.com/paulmach/orb/geojson"

	"poi-miner/internal/poi"
)

// ToFeatureCollection 每条记录一个 Point 要素
func ToFeatureCollection(recs []poi.Record) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range recs {
		lv := r.TypeLevels()
		f := geojson.NewFeature(r.Location)
		f.Properties = geojson.Properties{
			"id":             r.ID,
			"name":           r.Name,
			"category_big":   lv[0],
			"category_mid":   lv[1],
			"category_small": lv[2],
			"full_type":      r.Type,
			"address":        r.Address,
			"tel":            r.Tel,
			"city":           r.CityName,
		}
		fc.Append(f)
	}
	return fc
}

func WriteGeoJSON(w io.Writer, recs []poi.Record) error {
	b, err := ToFeatureCollection(recs).MarshalJSON()
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}
