//-------------------------------------------------------------------------
//
// pgEdge DuckLens
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package warehouse

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pgEdge/pgedge-ducklens/internal/db"
	"github.com/pgEdge/pgedge-ducklens/internal/logging"
	"github.com/pgEdge/pgedge-ducklens/internal/sales"
)

// FactColumns is the COPY column order for dw.fact_sales_enriched.
var FactColumns = slices.Concat(
	[]string{
		"store_id", "item_id", "supplier_id", "date_id",
		"quantity", "total_sales", "rrp", "unit_price",
	},
	sales.EnrichmentColumns,
	[]string{"data_quality_flag", "run_id"},
)

// TopSupplierLimit is the number of suppliers reported after a load.
const TopSupplierLimit = 5

const (
	insertStoresSQL = `
INSERT INTO dw.dim_store (store_name)
SELECT unnest($1::text[])
ON CONFLICT (store_name) DO NOTHING`

	insertSuppliersSQL = `
INSERT INTO dw.dim_supplier (supplier_name)
SELECT unnest($1::text[])
ON CONFLICT (supplier_name) DO NOTHING`

	insertDatesSQL = `
INSERT INTO dw.dim_date (date_id, full_date, year, month, day, weekday_name, is_weekend)
SELECT * FROM unnest($1::integer[], $2::date[], $3::integer[], $4::integer[],
                     $5::integer[], $6::text[], $7::boolean[])
ON CONFLICT (date_id) DO NOTHING`

	insertItemsSQL = `
INSERT INTO dw.dim_item (item_code, item_barcode, description, category,
                         department, sub_department, section, is_bidco)
SELECT * FROM unnest($1::text[], $2::text[], $3::text[], $4::text[],
                     $5::text[], $6::text[], $7::text[], $8::boolean[])
ON CONFLICT (item_code) DO NOTHING`

	selectStoreKeysSQL    = `SELECT store_id, store_name FROM dw.dim_store`
	selectSupplierKeysSQL = `SELECT supplier_id, supplier_name FROM dw.dim_supplier`
	selectItemKeysSQL     = `SELECT item_id, item_code FROM dw.dim_item`
	selectDateKeysSQL     = `SELECT date_id FROM dw.dim_date`

	truncateFactSQL = `TRUNCATE TABLE dw.fact_sales_enriched RESTART IDENTITY`
)

// SupplierCount is a supplier and its loaded transaction count.
type SupplierCount struct {
	Supplier     string `json:"supplier"`
	Transactions int    `json:"transactions"`
}

// LoadResult reports what a load wrote.
type LoadResult struct {
	Stores    int `json:"stores"`
	Suppliers int `json:"suppliers"`
	Dates     int `json:"dates"`
	Items     int `json:"items"`

	Loaded  int64 `json:"loaded"`
	Skipped int   `json:"skipped"`

	// Unresolved counts skipped rows per missing key kind. A row missing
	// several keys is counted under each of them.
	Unresolved map[string]int `json:"unresolved"`

	TopSuppliers []SupplierCount `json:"top_suppliers"`
}

// Date dimension attributes.
type dateDim struct {
	id        int32
	date      time.Time
	year      int32
	month     int32
	day       int32
	weekday   string
	isWeekend bool
}

// DateID returns the yyyymmdd surrogate key of a date.
func DateID(t time.Time) int32 {
	return int32(t.Year()*10000 + int(t.Month())*100 + t.Day())
}

func newDateDim(t time.Time) dateDim {
	wd := t.Weekday()
	return dateDim{
		id:        DateID(t),
		date:      t,
		year:      int32(t.Year()),
		month:     int32(t.Month()),
		day:       int32(t.Day()),
		weekday:   wd.String(),
		isWeekend: wd == time.Saturday || wd == time.Sunday,
	}
}

// dimensions holds the distinct dimension members of a batch, in first
// appearance order.
type dimensions struct {
	stores    []string
	suppliers []string
	dates     []dateDim
	items     []*sales.Enriched
}

func collectDimensions(rows []sales.Enriched) dimensions {
	var d dimensions
	seenStore := make(map[string]struct{})
	seenSupplier := make(map[string]struct{})
	seenDate := make(map[int32]struct{})
	seenItem := make(map[string]struct{})

	for i := range rows {
		r := &rows[i]
		if r.StoreName != "" {
			if _, ok := seenStore[r.StoreName]; !ok {
				seenStore[r.StoreName] = struct{}{}
				d.stores = append(d.stores, r.StoreName)
			}
		}
		if r.Supplier != "" {
			if _, ok := seenSupplier[r.Supplier]; !ok {
				seenSupplier[r.Supplier] = struct{}{}
				d.suppliers = append(d.suppliers, r.Supplier)
			}
		}
		if !r.SaleDate.IsZero() {
			id := DateID(r.SaleDate)
			if _, ok := seenDate[id]; !ok {
				seenDate[id] = struct{}{}
				d.dates = append(d.dates, newDateDim(r.SaleDate))
			}
		}
		// The first row of an item supplies its attributes.
		if r.ItemCode != "" {
			if _, ok := seenItem[r.ItemCode]; !ok {
				seenItem[r.ItemCode] = struct{}{}
				d.items = append(d.items, r)
			}
		}
	}
	return d
}

// Load writes one enriched snapshot to the warehouse in a single
// transaction: dimensions are upserted, surrogate keys resolved, and the
// fact table is replaced. Rows with an unresolvable key are skipped.
func Load(ctx context.Context, pool db.Pool, rows []sales.Enriched, runID string) (*LoadResult, error) {
	dims := collectDimensions(rows)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := upsertDimensions(ctx, tx, dims); err != nil {
		return nil, err
	}

	keys, err := readKeys(ctx, tx)
	if err != nil {
		return nil, err
	}

	result := &LoadResult{
		Stores:     len(dims.stores),
		Suppliers:  len(dims.suppliers),
		Dates:      len(dims.dates),
		Items:      len(dims.items),
		Unresolved: make(map[string]int),
	}

	facts := make([][]any, 0, len(rows))
	supplierCounts := make(map[string]int)
	for i := range rows {
		r := &rows[i]
		fk, missing := keys.resolve(r)
		if len(missing) > 0 {
			result.Skipped++
			for _, m := range missing {
				result.Unresolved[m]++
			}
			continue
		}
		facts = append(facts, factValues(r, fk, runID))
		supplierCounts[r.Supplier]++
	}

	for kind, n := range result.Unresolved {
		logging.Warn().
			Str("key", kind).
			Int("rows", n).
			Msg("Skipping rows with unresolved dimension key")
	}

	if _, err := tx.Exec(ctx, truncateFactSQL); err != nil {
		return nil, fmt.Errorf("failed to truncate fact table: %w", err)
	}

	result.Loaded, err = db.CopyFrom(ctx, tx, "dw", "fact_sales_enriched", FactColumns, facts)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit warehouse load: %w", err)
	}

	result.TopSuppliers = topSuppliers(supplierCounts, TopSupplierLimit)

	logging.Info().
		Int("stores", result.Stores).
		Int("suppliers", result.Suppliers).
		Int("dates", result.Dates).
		Int("items", result.Items).
		Int64("facts", result.Loaded).
		Int("skipped", result.Skipped).
		Msg("Loaded warehouse snapshot")

	return result, nil
}

func upsertDimensions(ctx context.Context, tx pgx.Tx, d dimensions) error {
	if _, err := tx.Exec(ctx, insertStoresSQL, d.stores); err != nil {
		return fmt.Errorf("failed to load dim_store: %w", err)
	}
	if _, err := tx.Exec(ctx, insertSuppliersSQL, d.suppliers); err != nil {
		return fmt.Errorf("failed to load dim_supplier: %w", err)
	}

	n := len(d.dates)
	ids, years, months, days := make([]int32, n), make([]int32, n), make([]int32, n), make([]int32, n)
	dates, names, weekend := make([]time.Time, n), make([]string, n), make([]bool, n)
	for i, dd := range d.dates {
		ids[i], dates[i], years[i], months[i] = dd.id, dd.date, dd.year, dd.month
		days[i], names[i], weekend[i] = dd.day, dd.weekday, dd.isWeekend
	}
	if _, err := tx.Exec(ctx, insertDatesSQL, ids, dates, years, months, days, names, weekend); err != nil {
		return fmt.Errorf("failed to load dim_date: %w", err)
	}

	n = len(d.items)
	codes, barcodes, descs := make([]string, n), make([]string, n), make([]string, n)
	cats, depts, subDepts, sections := make([]string, n), make([]string, n), make([]string, n), make([]string, n)
	bidco := make([]bool, n)
	for i, it := range d.items {
		codes[i], barcodes[i], descs[i] = it.ItemCode, it.ItemBarcode, it.Description
		cats[i], depts[i], subDepts[i], sections[i] = it.Category, it.Department, it.SubDepartment, it.Section
		bidco[i] = it.IsBidco
	}
	if _, err := tx.Exec(ctx, insertItemsSQL,
		codes, barcodes, descs, cats, depts, subDepts, sections, bidco); err != nil {
		return fmt.Errorf("failed to load dim_item: %w", err)
	}

	return nil
}

// Key kinds reported in LoadResult.Unresolved.
const (
	KeyStore    = "store"
	KeySupplier = "supplier"
	KeyDate     = "date"
	KeyItem     = "item"
)

type keyMaps struct {
	stores    map[string]int32
	suppliers map[string]int32
	items     map[string]int32
	dates     map[int32]struct{}
}

type foreignKeys struct {
	store, item, supplier, date int32
}

func (k *keyMaps) resolve(r *sales.Enriched) (foreignKeys, []string) {
	var fk foreignKeys
	var missing []string
	var ok bool

	if fk.store, ok = k.stores[r.StoreName]; !ok {
		missing = append(missing, KeyStore)
	}
	if fk.item, ok = k.items[r.ItemCode]; !ok {
		missing = append(missing, KeyItem)
	}
	if fk.supplier, ok = k.suppliers[r.Supplier]; !ok {
		missing = append(missing, KeySupplier)
	}
	if r.SaleDate.IsZero() {
		missing = append(missing, KeyDate)
	} else {
		fk.date = DateID(r.SaleDate)
		if _, ok = k.dates[fk.date]; !ok {
			missing = append(missing, KeyDate)
		}
	}
	return fk, missing
}

func readKeys(ctx context.Context, tx pgx.Tx) (*keyMaps, error) {
	var k keyMaps
	var err error

	if k.stores, err = readNameKeys(ctx, tx, selectStoreKeysSQL); err != nil {
		return nil, fmt.Errorf("failed to read store keys: %w", err)
	}
	if k.suppliers, err = readNameKeys(ctx, tx, selectSupplierKeysSQL); err != nil {
		return nil, fmt.Errorf("failed to read supplier keys: %w", err)
	}
	if k.items, err = readNameKeys(ctx, tx, selectItemKeysSQL); err != nil {
		return nil, fmt.Errorf("failed to read item keys: %w", err)
	}

	rows, err := tx.Query(ctx, selectDateKeysSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to read date keys: %w", err)
	}
	defer rows.Close()
	k.dates = make(map[int32]struct{})
	for rows.Next() {
		var id int32
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan date key: %w", err)
		}
		k.dates[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read date keys: %w", err)
	}

	logging.Debug().
		Int("stores", len(k.stores)).
		Int("suppliers", len(k.suppliers)).
		Int("items", len(k.items)).
		Int("dates", len(k.dates)).
		Msg("Resolved dimension keys")

	return &k, nil
}

func readNameKeys(ctx context.Context, tx pgx.Tx, sql string) (map[string]int32, error) {
	rows, err := tx.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[string]int32)
	for rows.Next() {
		var id int32
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		keys[name] = id
	}
	return keys, rows.Err()
}

func factValues(r *sales.Enriched, fk foreignKeys, runID string) []any {
	return []any{
		fk.store, fk.item, fk.supplier, fk.date,
		r.Quantity, r.TotalSales, r.RRP, r.UnitPrice,
		r.DiscountPct, r.IsPromo, int32(r.PromoDaysCount),
		r.BaselineUnits, r.PromoAvgUnits, r.PromoUpliftPct,
		r.IsBidco, r.GroupAvgPrice, r.PriceIndexVsComp,
		int32(r.PromoStoreCount), r.PromoCoveragePct,
		string(r.Quality), runID,
	}
}

// topSuppliers returns the n suppliers with the most transactions,
// ties broken by name.
func topSuppliers(counts map[string]int, n int) []SupplierCount {
	out := make([]SupplierCount, 0, len(counts))
	for s, c := range counts {
		out = append(out, SupplierCount{Supplier: s, Transactions: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Transactions != out[j].Transactions {
			return out[i].Transactions > out[j].Transactions
		}
		return out[i].Supplier < out[j].Supplier
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

