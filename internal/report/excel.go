package report

import (
	"fmt"

	"github.com/natefinch/atomic"
	"github.com/xuri/excelize/v2"

	"chartscan/internal/config"
	"chartscan/internal/engine"
)

const sheetName = "Daily Report"

// WriteExcel renders res as a one-sheet workbook and writes it to path
// atomically, so a report opened mid-write never shows a torn file.
func WriteExcel(path string, cfg *config.Config, res *engine.Result) error {
	f := excelize.NewFile()

	defer func() { _ = f.Close() }()

	renameErr := f.SetSheetName(f.GetSheetName(0), sheetName)
	if renameErr != nil {
		return fmt.Errorf("naming sheet: %w", renameErr)
	}

	rows := buildRows(cfg, res)

	for i, row := range rows {
		cell, cellErr := excelize.CoordinatesToCellName(1, i+1)
		if cellErr != nil {
			return fmt.Errorf("row %d: %w", i+1, cellErr)
		}

		rowErr := f.SetSheetRow(sheetName, cell, &row)
		if rowErr != nil {
			return fmt.Errorf("row %d: %w", i+1, rowErr)
		}
	}

	widthErr := f.SetColWidth(sheetName, "A", "A", 28)
	if widthErr != nil {
		return fmt.Errorf("column width: %w", widthErr)
	}

	buf, bufErr := f.WriteToBuffer()
	if bufErr != nil {
		return fmt.Errorf("rendering workbook: %w", bufErr)
	}

	writeErr := atomic.WriteFile(path, buf)
	if writeErr != nil {
		return fmt.Errorf("writing %s: %w", path, writeErr)
	}

	return nil
}

// buildRows lays the report out top to bottom: date header, one row per
// item in configuration order, then notes and warnings.
func buildRows(cfg *config.Config, res *engine.Result) [][]any {
	rows := [][]any{
		{"Date", res.Date.Format("2006-01-02")},
		{},
		{"Item", "Patients"},
	}

	for i := range cfg.Sources {
		src := &cfg.Sources[i]
		rows = append(rows, []any{src.DisplayName(), res.Sources[src.ID].Count})
	}

	for i := range cfg.SpecialItems {
		item := &cfg.SpecialItems[i]
		rows = append(rows, []any{item.DisplayName(), res.Specials[item.ID].Count})
	}

	if len(res.Notes) > 0 {
		rows = append(rows, []any{}, []any{"Notes"})

		for _, note := range res.Notes {
			rows = append(rows, []any{note})
		}
	}

	if len(res.Warnings) > 0 {
		rows = append(rows, []any{}, []any{"Warnings"})

		for _, warning := range res.Warnings {
			rows = append(rows, []any{warning})
		}
	}

	return rows
}
