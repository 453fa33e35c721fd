package notifier

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"GapSentinel/internal/model"
)

// SheetName is the worksheet written by ExportXLSX.
const SheetName = "Stock Data"

// ExportXLSX writes results to a workbook at path, one row per result under a
// header of field labels. Available numbers are stored as numeric cells.
func ExportXLSX(path string, results []*model.MetricsResult) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	var header []any
	for _, fld := range (&model.MetricsResult{}).Fields() {
		header = append(header, fld.Label)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, res := range results {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := xlsxRow(res)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func xlsxRow(res *model.MetricsResult) []any {
	num := func(valid bool, v func() float64) any {
		if !valid {
			return model.NotAvailable
		}
		return v()
	}
	return []any{
		res.Symbol,
		res.Date.Format(model.DateLayout),
		num(res.OpenPrice.Valid, res.OpenPrice.Decimal.InexactFloat64),
		num(res.ClosePrice.Valid, res.ClosePrice.Decimal.InexactFloat64),
		num(res.RelativeVolume.Valid, res.RelativeVolume.Decimal.InexactFloat64),
		num(res.Volume.Valid, func() float64 { return float64(res.Volume.Int64) }),
		num(res.AvgVolume10D.Valid, res.AvgVolume10D.Decimal.InexactFloat64),
		res.GapToday.String(),
		res.GapTomorrow.String(),
		res.ChangeFromOpen.String(),
		res.ChangeForWeek.String(),
	}
}
