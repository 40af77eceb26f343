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
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pgEdge/pgedge-ducklens/internal/logging"
	"github.com/pgEdge/pgedge-ducklens/internal/sales"
)

// BidcoSupplier is the supplier name used for the focus brand.
const BidcoSupplier = "Bidco Africa Ltd"

// Config controls the shape of a generated dataset.
type Config struct {
	Rows   int
	Stores int
	Items  int
	Days   int
	Seed   uint64

	// Start is the first sale date. Defaults to 2025-09-22.
	Start time.Time

	// BidcoShare is the fraction of items supplied by Bidco.
	BidcoShare float64

	// PromoShare is the fraction of items that run a promotion.
	PromoShare float64

	// DirtyRate is the fraction of rows deliberately corrupted.
	DirtyRate float64
}

// DefaultConfig returns a small dataset that exercises every pipeline stage.
func DefaultConfig() Config {
	return Config{
		Rows:       5000,
		Stores:     12,
		Items:      60,
		Days:       7,
		Seed:       42,
		Start:      time.Date(2025, 9, 22, 0, 0, 0, 0, time.UTC),
		BidcoShare: 0.3,
		PromoShare: 0.35,
		DirtyRate:  0.02,
	}
}

// Validate checks the generator configuration.
func (c Config) Validate() error {
	if c.Rows < 1 {
		return fmt.Errorf("rows must be at least 1")
	}
	if c.Stores < 1 {
		return fmt.Errorf("stores must be at least 1")
	}
	if c.Items < 2 {
		return fmt.Errorf("items must be at least 2")
	}
	if c.Days < 1 {
		return fmt.Errorf("days must be at least 1")
	}
	for name, v := range map[string]float64{
		"bidco_share": c.BidcoShare,
		"promo_share": c.PromoShare,
		"dirty_rate":  c.DirtyRate,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be between 0 and 1", name)
		}
	}
	return nil
}

// segment is one leaf of the product hierarchy.
type segment struct {
	category, department, subDepartment, section string
}

var segments = []segment{
	{"Foods", "Grocery", "Cooking Oil", "Vegetable Oil"},
	{"Foods", "Grocery", "Cooking Fat", "Solid Fats"},
	{"Foods", "Grocery", "Spreads", "Margarine"},
	{"Foods", "Grocery", "Noodles", "Instant Noodles"},
	{"Home Care", "Household", "Laundry", "Bar Soap"},
	{"Home Care", "Household", "Laundry", "Detergent Powder"},
	{"Personal Care", "Toiletries", "Bath", "Toilet Soap"},
	{"Personal Care", "Toiletries", "Skin Care", "Petroleum Jelly"},
}

var competitorSuppliers = []string{
	"Pwani Oil Products", "Kapa Oil Refineries", "Unilever Kenya", "Menengai Oil Refineries",
}

var dirtyKinds = []string{DirtyNegativeQuantity, DirtyMissingRRP, DirtyDuplicate, DirtyMissingDate}

// Kinds of deliberately dirty rows.
const (
	DirtyNegativeQuantity = "negative_quantity"
	DirtyMissingRRP       = "missing_rrp"
	DirtyDuplicate        = "duplicate"
	DirtyMissingDate      = "missing_date"
)

type catalogItem struct {
	code, barcode, description string
	segment                    segment
	supplier                   string
	rrp                        float64
	promo                      bool
	promoDays                  map[int]bool
}

// Stats describes a generated dataset.
type Stats struct {
	Rows       int            `json:"rows"`
	Stores     int            `json:"stores"`
	Items      int            `json:"items"`
	BidcoItems int            `json:"bidco_items"`
	PromoItems int            `json:"promo_items"`
	Dirty      map[string]int `json:"dirty"`
}

// Generator produces reproducible POS rows.
type Generator struct {
	cfg    Config
	faker  *Faker
	stores []string
	items  []catalogItem
}

// NewGenerator builds the store list and item catalog for cfg.
func NewGenerator(cfg Config) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Start.IsZero() {
		cfg.Start = DefaultConfig().Start
	}

	g := &Generator{cfg: cfg, faker: NewFakerWithSeed(cfg.Seed)}
	g.stores = g.buildStores()
	g.items = g.buildCatalog()
	return g, nil
}

func (g *Generator) buildStores() []string {
	seen := make(map[string]bool)
	stores := make([]string, 0, g.cfg.Stores)
	for len(stores) < g.cfg.Stores {
		name := g.faker.City()
		if seen[name] {
			name = fmt.Sprintf("%s %d", name, len(stores)+1)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		stores = append(stores, name)
	}
	return stores
}

// buildCatalog spreads items across segments so every segment carries
// both Bidco and competitor products when there are enough items.
func (g *Generator) buildCatalog() []catalogItem {
	items := make([]catalogItem, g.cfg.Items)
	bidcoEvery := 0
	if g.cfg.BidcoShare > 0 {
		bidcoEvery = int(1/g.cfg.BidcoShare + 0.5)
	}

	for i := range items {
		seg := segments[i%len(segments)]
		supplier := Choose(g.faker, competitorSuppliers)
		if bidcoEvery > 0 && (i/len(segments))%bidcoEvery == 0 {
			supplier = BidcoSupplier
		}

		item := catalogItem{
			code:        fmt.Sprintf("%06d", 100000+i),
			barcode:     "616" + g.faker.Digits(10),
			description: g.faker.ProductName(),
			segment:     seg,
			supplier:    supplier,
			rrp:         Round2(g.faker.Price(50, 900)),
			promo:       g.faker.Chance(g.cfg.PromoShare),
		}
		if item.promo {
			item.promoDays = make(map[int]bool)
			span := g.faker.Int(2, max(2, g.cfg.Days))
			start := g.faker.Int(0, max(0, g.cfg.Days-span))
			for d := start; d < start+span && d < g.cfg.Days; d++ {
				item.promoDays[d] = true
			}
		}
		items[i] = item
	}
	return items
}

// Generate produces cfg.Rows raw rows in sale order.
func (g *Generator) Generate() ([]sales.RawRow, Stats) {
	stats := Stats{
		Stores: len(g.stores),
		Items:  len(g.items),
		Dirty:  make(map[string]int),
	}
	for _, it := range g.items {
		if it.supplier == BidcoSupplier {
			stats.BidcoItems++
		}
		if it.promo {
			stats.PromoItems++
		}
	}

	progress := NewProgressReporter("pos_rows", int64(g.cfg.Rows), progressInterval(g.cfg.Rows))
	rows := make([]sales.RawRow, 0, g.cfg.Rows)
	for len(rows) < g.cfg.Rows {
		if len(rows) > 0 && g.faker.Chance(g.cfg.DirtyRate) {
			kind := Choose(g.faker, dirtyKinds)
			if kind == DirtyDuplicate {
				rows = append(rows, rows[len(rows)-1])
			} else {
				r := g.row()
				corrupt(&r, kind)
				rows = append(rows, r)
			}
			stats.Dirty[kind]++
		} else {
			rows = append(rows, g.row())
		}
		progress.Update(1)
	}
	progress.Done()

	stats.Rows = len(rows)
	return rows, stats
}

func (g *Generator) row() sales.RawRow {
	item := &g.items[g.faker.Int(0, len(g.items)-1)]
	store := Choose(g.faker, g.stores)
	day := g.faker.Int(0, g.cfg.Days-1)

	qty := float64(g.faker.Int(1, 6))
	price := item.rrp * g.faker.Float64(0.95, 1.05)
	if item.promoDays[day] {
		price = item.rrp * (1 - g.faker.Float64(0.12, 0.30))
		qty += float64(g.faker.Int(1, 6))
	}

	return sales.RawRow{
		StoreName:     store,
		ItemCode:      item.code,
		ItemBarcode:   item.barcode,
		Description:   item.description,
		Category:      item.segment.category,
		Department:    item.segment.department,
		SubDepartment: item.segment.subDepartment,
		Section:       item.segment.section,
		Supplier:      item.supplier,
		Quantity:      pgtype.Float8{Float64: qty, Valid: true},
		TotalSales:    pgtype.Float8{Float64: Round2(qty * price), Valid: true},
		RRP:           pgtype.Float8{Float64: item.rrp, Valid: true},
		DateOfSale:    pgtype.Date{Time: g.cfg.Start.AddDate(0, 0, day), Valid: true},
	}
}

func corrupt(r *sales.RawRow, kind string) {
	switch kind {
	case DirtyNegativeQuantity:
		r.Quantity.Float64 = -r.Quantity.Float64
		r.TotalSales.Float64 = -r.TotalSales.Float64
	case DirtyMissingRRP:
		r.RRP = pgtype.Float8{}
	case DirtyMissingDate:
		r.DateOfSale = pgtype.Date{}
	}
}

func progressInterval(rows int) int64 {
	if rows < 10 {
		return 1
	}
	return int64(rows / 10)
}

// ProgressReporter tracks and reports data generation progress.
type ProgressReporter struct {
	name             string
	totalRows        int64
	currentRow       int64
	progressInterval int64
}

// NewProgressReporter creates a new progress reporter.
func NewProgressReporter(name string, totalRows int64, interval int64) *ProgressReporter {
	if interval < 1 {
		interval = 1
	}
	return &ProgressReporter{
		name:             name,
		totalRows:        totalRows,
		progressInterval: interval,
	}
}

// Update updates the progress and logs if necessary.
func (p *ProgressReporter) Update(rows int64) {
	oldRow := p.currentRow
	p.currentRow += rows

	if p.currentRow/p.progressInterval > oldRow/p.progressInterval {
		pct := float64(p.currentRow) / float64(p.totalRows) * 100
		logging.Debug().
			Str("dataset", p.name).
			Int64("rows", p.currentRow).
			Int64("total", p.totalRows).
			Float64("percent", pct).
			Msg("Generating data")
	}
}

// Done logs completion.
func (p *ProgressReporter) Done() {
	logging.Info().
		Str("dataset", p.name).
		Int64("rows", p.currentRow).
		Msg("Dataset complete")
}
