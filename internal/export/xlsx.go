package export

import (
	"io"

	"github.com/xuri/excelize/v2"

	"poi-miner/internal/poi"
)

// SheetName 工作表名
const SheetName = "POI Data"

// WriteXLSX 以流式写入单个工作表，首行为表头
func WriteXLSX(w io.Writer, recs []poi.Record) error {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return err
	}
	head := make([]interface{}, len(headers))
	for i, h := range headers {
		head[i] = h
	}
	if err := sw.SetRow("A1", head); err != nil {
		return err
	}
	for i, r := range recs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row(r)); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return err
	}
	return f.Write(w)
}
