//-------------------------------------------------------------------------
//
// pgEdge DuckLens
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package datagen

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tealeg/xlsx/v2"

	"github.com/pgEdge/pgedge-ducklens/internal/ingest"
	"github.com/pgEdge/pgedge-ducklens/internal/logging"
	"github.com/pgEdge/pgedge-ducklens/internal/sales"
)

// SheetName is the sheet written by WriteWorkbook.
const SheetName = "Sales"

// WriteWorkbook writes rows to an xlsx file using the ingestion headers.
// Null numerics and dates are written as blank cells.
func WriteWorkbook(path string, rows []sales.RawRow) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(SheetName)
	if err != nil {
		return fmt.Errorf("failed to add sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, h := range ingest.Headers {
		header.AddCell().SetString(h)
	}

	for i := range rows {
		writeRow(sheet.AddRow(), &rows[i])
	}

	if err := f.Save(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}

	logging.Info().
		Str("file", path).
		Int("rows", len(rows)).
		Msg("Wrote workbook")

	return nil
}

// writeRow emits cells in ingest.Headers order.
func writeRow(row *xlsx.Row, r *sales.RawRow) {
	for _, s := range []string{
		r.StoreName, r.ItemCode, r.ItemBarcode, r.Description, r.Category,
		r.Department, r.SubDepartment, r.Section,
	} {
		row.AddCell().SetString(s)
	}
	numberCell(row, r.Quantity)
	numberCell(row, r.TotalSales)
	numberCell(row, r.RRP)
	row.AddCell().SetString(r.Supplier)

	c := row.AddCell()
	if r.DateOfSale.Valid {
		c.SetDate(r.DateOfSale.Time)
	}
}

func numberCell(row *xlsx.Row, v pgtype.Float8) {
	c := row.AddCell()
	if v.Valid {
		c.SetFloat(v.Float64)
	}
}

// GenerateWorkbook generates a dataset for cfg and writes it to path.
func GenerateWorkbook(path string, cfg Config) (Stats, error) {
	g, err := NewGenerator(cfg)
	if err != nil {
		return Stats{}, err
	}
	rows, stats := g.Generate()
	if err := WriteWorkbook(path, rows); err != nil {
		return Stats{}, err
	}
	return stats, nil
}
