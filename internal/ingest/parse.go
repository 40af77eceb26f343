//-------------------------------------------------------------------------
//
// pgEdge DuckLens
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tealeg/xlsx/v2"

	"github.com/pgEdge/pgedge-ducklens/internal/sales"
)

// Column names used by the staging table.
const (
	ColStoreName     = "store_name"
	ColItemCode      = "item_code"
	ColItemBarcode   = "item_barcode"
	ColDescription   = "description"
	ColCategory      = "category"
	ColDepartment    = "department"
	ColSubDepartment = "sub_department"
	ColSection       = "section"
	ColQuantity      = "quantity"
	ColTotalSales    = "total_sales"
	ColRRP           = "rrp"
	ColSupplier      = "supplier"
	ColDateOfSale    = "date_of_sale"
)

// HeaderMap maps workbook headers to staging columns.
var HeaderMap = map[string]string{
	"Store Name":     ColStoreName,
	"Item_Code":      ColItemCode,
	"Item Barcode":   ColItemBarcode,
	"Description":    ColDescription,
	"Category":       ColCategory,
	"Department":     ColDepartment,
	"Sub-Department": ColSubDepartment,
	"Section":        ColSection,
	"Quantity":       ColQuantity,
	"Total Sales":    ColTotalSales,
	"RRP":            ColRRP,
	"Supplier":       ColSupplier,
	"Date Of Sale":   ColDateOfSale,
}

// Headers lists the workbook headers in the order the sample generator
// writes them.
var Headers = []string{
	"Store Name", "Item_Code", "Item Barcode", "Description", "Category",
	"Department", "Sub-Department", "Section", "Quantity", "Total Sales",
	"RRP", "Supplier", "Date Of Sale",
}

// requiredColumns must be present in the header row.
var requiredColumns = []string{
	ColStoreName, ColItemCode, ColSupplier, ColQuantity, ColTotalSales,
	ColRRP, ColDateOfSale, ColSubDepartment, ColSection,
}

// dateLayouts are tried in order for text dates. Ambiguous numeric dates
// are read month first.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	sales.DateLayout,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"1/2/06",
	"01-02-06",
	"02-Jan-2006",
	"2 Jan 2006",
	"Jan 2, 2006",
}

// columnIndex maps staging columns to cell positions.
type columnIndex map[string]int

func newColumnIndex(header []string) (columnIndex, error) {
	idx := make(columnIndex)
	for i, h := range header {
		if col, ok := HeaderMap[strings.TrimSpace(h)]; ok {
			if _, dup := idx[col]; !dup {
				idx[col] = i
			}
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

func (c columnIndex) get(cells []string, col string) string {
	i, ok := c[col]
	if !ok || i >= len(cells) {
		return ""
	}
	return cells[i]
}

// ParseRows converts a header row and data rows into raw staging rows.
// Fully blank rows are skipped. date1904 selects the workbook date epoch
// for serial dates.
func ParseRows(header []string, rows [][]string, date1904 bool) ([]sales.RawRow, error) {
	idx, err := newColumnIndex(header)
	if err != nil {
		return nil, err
	}

	out := make([]sales.RawRow, 0, len(rows))
	for _, cells := range rows {
		if blank(cells) {
			continue
		}
		out = append(out, sales.RawRow{
			StoreName:     idx.get(cells, ColStoreName),
			ItemCode:      idx.get(cells, ColItemCode),
			ItemBarcode:   idx.get(cells, ColItemBarcode),
			Description:   idx.get(cells, ColDescription),
			Category:      idx.get(cells, ColCategory),
			Department:    idx.get(cells, ColDepartment),
			SubDepartment: idx.get(cells, ColSubDepartment),
			Section:       idx.get(cells, ColSection),
			Supplier:      idx.get(cells, ColSupplier),
			Quantity:      ParseNumber(idx.get(cells, ColQuantity)),
			TotalSales:    ParseNumber(idx.get(cells, ColTotalSales)),
			RRP:           ParseNumber(idx.get(cells, ColRRP)),
			DateOfSale:    ParseDate(idx.get(cells, ColDateOfSale), date1904),
		})
	}
	return out, nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ParseNumber parses a numeric cell. Thousands separators and surrounding
// spaces are ignored; anything else that does not parse is null.
func ParseNumber(s string) pgtype.Float8 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return pgtype.Float8{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return pgtype.Float8{}
	}
	return pgtype.Float8{Float64: v, Valid: true}
}

// ParseDate parses an Excel serial date or a text date. The time of day is
// discarded. Unparsable values are null.
func ParseDate(s string, date1904 bool) pgtype.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Date{}
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial <= 0 || serial > 2958465 {
			return pgtype.Date{}
		}
		return dateOf(xlsx.TimeFromExcelTime(serial, date1904))
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return dateOf(t)
		}
	}
	return pgtype.Date{}
}

func dateOf(t time.Time) pgtype.Date {
	return pgtype.Date{
		Time:  time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
		Valid: true,
	}
}
