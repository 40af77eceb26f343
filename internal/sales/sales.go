//-------------------------------------------------------------------------
//
// pgEdge DuckLens
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package sales defines the point-of-sale row types that flow between the
// pipeline stages: raw staging rows, cleaned transactions and enriched
// records.
package sales

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// QualityTier is a coarse reliability label assigned during cleaning.
type QualityTier string

// Data-quality tiers.
const (
	QualityHigh   QualityTier = "high"
	QualityMedium QualityTier = "medium"
	QualityLow    QualityTier = "low"
)

// DateLayout is the layout used for date keys and the date dimension.
const DateLayout = "2006-01-02"

// RawRow is one row of the staging table exactly as ingested. Numeric and
// date cells that were blank or unparsable are invalid (null).
type RawRow struct {
	StoreName     string
	ItemCode      string
	ItemBarcode   string
	Description   string
	Category      string
	Department    string
	SubDepartment string
	Section       string
	Supplier      string
	Quantity      pgtype.Float8
	TotalSales    pgtype.Float8
	RRP           pgtype.Float8
	DateOfSale    pgtype.Date
}

// Transaction is a cleaned sale observation, unique per store, item and
// sale date.
type Transaction struct {
	StoreName     string
	ItemCode      string
	ItemBarcode   string
	Description   string
	Category      string
	Department    string
	SubDepartment string
	Section       string
	Supplier      string

	// SaleDate is the zero time when the source date was missing.
	SaleDate time.Time

	Quantity   float64
	TotalSales float64

	// RRP is null when the source had no recommended retail price.
	RRP pgtype.Float8

	UnitPrice float64
	Quality   QualityTier
}

// DateKey returns the sale date as a yyyy-mm-dd key, or "" when missing.
func (t Transaction) DateKey() string {
	if t.SaleDate.IsZero() {
		return ""
	}
	return t.SaleDate.Format(DateLayout)
}

// RRPValue returns the RRP, treating a missing value as 0.
func (t Transaction) RRPValue() float64 {
	if !t.RRP.Valid {
		return 0
	}
	return t.RRP.Float64
}

// Enriched is a transaction carrying the promo, uplift, price index and
// coverage fields computed by the transformation core.
type Enriched struct {
	Transaction

	DiscountPct    float64
	IsPromo        bool
	PromoDaysCount int

	BaselineUnits  float64
	PromoAvgUnits  float64
	PromoUpliftPct float64

	IsBidco          bool
	GroupAvgPrice    float64
	PriceIndexVsComp float64

	PromoStoreCount  int
	PromoCoveragePct float64
}

// EnrichmentColumns lists the columns added by the transformation core, in
// the order of the Enriched fields.
var EnrichmentColumns = []string{
	"discount_pct", "is_promo", "promo_days_count", "baseline_units",
	"promo_avg_units", "promo_uplift_pct", "is_bidco", "group_avg_price",
	"price_index_vs_comp", "promo_store_count", "promo_coverage_pct",
}
