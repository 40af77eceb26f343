//-------------------------------------------------------------------------
//
// pgEdge DuckLens
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package staging manages the raw landing table staging.stg_sales_raw.
package staging

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pgEdge/pgedge-ducklens/internal/db"
	"github.com/pgEdge/pgedge-ducklens/internal/logging"
	"github.com/pgEdge/pgedge-ducklens/internal/sales"
)

// Schema and Table name the staging table.
const (
	Schema = "staging"
	Table  = "stg_sales_raw"
)

// Columns is the staging table column order used by COPY and SELECT.
var Columns = []string{
	"store_name", "item_code", "item_barcode", "description", "category",
	"department", "sub_department", "section", "quantity", "total_sales",
	"rrp", "supplier", "date_of_sale",
}

const selectSQL = `
SELECT store_name, item_code, item_barcode, description, category,
       department, sub_department, section, quantity, total_sales,
       rrp, supplier, date_of_sale
FROM staging.stg_sales_raw
ORDER BY id`

// Replace swaps the staging snapshot for rows in a single transaction.
func Replace(ctx context.Context, pool db.Pool, rows []sales.RawRow) (int64, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "TRUNCATE TABLE staging.stg_sales_raw RESTART IDENTITY"); err != nil {
		return 0, fmt.Errorf("failed to truncate staging table: %w", err)
	}

	values := make([][]any, len(rows))
	for i := range rows {
		values[i] = copyValues(&rows[i])
	}

	n, err := db.CopyFrom(ctx, tx, Schema, Table, Columns, values)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit staging load: %w", err)
	}

	logging.Info().
		Int64("rows", n).
		Msg("Replaced staging snapshot")

	return n, nil
}

func copyValues(r *sales.RawRow) []any {
	return []any{
		r.StoreName, r.ItemCode, r.ItemBarcode, r.Description, r.Category,
		r.Department, r.SubDepartment, r.Section, r.Quantity, r.TotalSales,
		r.RRP, r.Supplier, r.DateOfSale,
	}
}

// Load reads the full staging snapshot in insertion order.
func Load(ctx context.Context, pool db.Pool) ([]sales.RawRow, error) {
	rows, err := pool.Query(ctx, selectSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query staging table: %w", err)
	}
	defer rows.Close()

	var out []sales.RawRow
	for rows.Next() {
		var r sales.RawRow
		var store, item, barcode, desc, cat, dept, subDept, section, supplier pgtype.Text
		if err := rows.Scan(
			&store, &item, &barcode, &desc, &cat,
			&dept, &subDept, &section, &r.Quantity, &r.TotalSales,
			&r.RRP, &supplier, &r.DateOfSale,
		); err != nil {
			return nil, fmt.Errorf("failed to scan staging row: %w", err)
		}
		r.StoreName = store.String
		r.ItemCode = item.String
		r.ItemBarcode = barcode.String
		r.Description = desc.String
		r.Category = cat.String
		r.Department = dept.String
		r.SubDepartment = subDept.String
		r.Section = section.String
		r.Supplier = supplier.String
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read staging rows: %w", err)
	}

	logging.Debug().
		Int("rows", len(out)).
		Msg("Loaded staging snapshot")

	return out, nil
}
