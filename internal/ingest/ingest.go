//-------------------------------------------------------------------------
//
// pgEdge DuckLens
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package ingest reads point-of-sale workbooks into raw staging rows.
package ingest

import (
	"fmt"

	"github.com/tealeg/xlsx/v2"

	"github.com/pgEdge/pgedge-ducklens/internal/logging"
	"github.com/pgEdge/pgedge-ducklens/internal/sales"
)

// Options configures the workbook reader.
type Options struct {
	// Sheet selects a sheet by name. The first sheet is used when empty.
	Sheet string
}

// ReadWorkbook reads every data row of a POS workbook. The first row must
// be the header row.
func ReadWorkbook(path string, opts Options) ([]sales.RawRow, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}

	sheet, err := selectSheet(f, opts.Sheet)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheet.Name)
	}

	header := cellValues(sheet.Rows[0])
	data := make([][]string, 0, len(sheet.Rows)-1)
	for _, row := range sheet.Rows[1:] {
		data = append(data, cellValues(row))
	}

	rows, err := ParseRows(header, data, f.Date1904)
	if err != nil {
		return nil, fmt.Errorf("failed to parse sheet %q: %w", sheet.Name, err)
	}

	logging.Debug().
		Str("file", path).
		Str("sheet", sheet.Name).
		Int("rows", len(rows)).
		Int("blank_rows", len(data)-len(rows)).
		Msg("Read workbook")

	return rows, nil
}

func selectSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		sheet, ok := f.Sheet[name]
		if !ok {
			return nil, fmt.Errorf("sheet %q not found", name)
		}
		return sheet, nil
	}
	if len(f.Sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return f.Sheets[0], nil
}

// cellValues returns the raw cell values. Numeric and date cells keep their
// unformatted value so serial dates and full precision survive.
func cellValues(row *xlsx.Row) []string {
	if row == nil {
		return nil
	}
	cells := make([]string, len(row.Cells))
	for i, cell := range row.Cells {
		cells[i] = cell.Value
	}
	return cells
}
