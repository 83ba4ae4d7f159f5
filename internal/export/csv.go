package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"poi-miner/internal/poi"
)

// utf8BOM 便于 Excel 直接以 UTF-8 打开中文内容
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV 列与 xlsx 一致，首行为表头
func WriteCSV(w io.Writer, recs []poi.Record) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return err
	}
	for _, r := range recs {
		lv := r.TypeLevels()
		rec := []string{
			r.Name, lv[0], lv[1], lv[2], r.Type, r.Address,
			strconv.FormatFloat(r.Location.Lon(), 'f', -1, 64),
			strconv.FormatFloat(r.Location.Lat(), 'f', -1, 64),
			r.Tel, r.PName, r.CityName, r.AdName,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
