//-------------------------------------------------------------------------
//
// pgEdge DuckLens
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package cleaning turns raw staging rows into cleaned transactions.
package cleaning

import (
	"math"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pgEdge/pgedge-ducklens/internal/sales"
)

// MaxRRPDeviation is the relative distance between unit price and RRP above
// which a row is downgraded to medium quality.
const MaxRRPDeviation = 0.5

// Summary holds the counters collected while cleaning.
type Summary struct {
	InputRows  int `json:"input_rows"`
	OutputRows int `json:"output_rows"`

	HighQuality   int `json:"high_quality"`
	MediumQuality int `json:"medium_quality"`
	LowQuality    int `json:"low_quality"`

	NegativeQuantity  int `json:"negative_quantity"`
	NegativeSales     int `json:"negative_sales"`
	MissingRRP        int `json:"missing_rrp"`
	HighRRPDeviation  int `json:"high_rrp_deviation"`
	CriticalMissing   int `json:"critical_missing"`
	DuplicatesRemoved int `json:"duplicates_removed"`

	// CoercedNumerics counts null quantity or total sales cells set to 0.
	CoercedNumerics int `json:"coerced_numerics"`

	FirstDate time.Time `json:"first_date"`
	LastDate  time.Time `json:"last_date"`

	Stores          int     `json:"stores"`
	Items           int     `json:"items"`
	TotalSalesValue float64 `json:"total_sales_value"`
}

type dedupeKey struct {
	store string
	item  string
	date  string
}

// Clean standardises text, derives the unit price, assigns a quality tier to
// every row and removes duplicate (store, item, date) rows, keeping the
// first occurrence. Rows are flagged, never dropped for quality reasons.
func Clean(raw []sales.RawRow) ([]sales.Transaction, Summary) {
	s := Summary{InputRows: len(raw)}
	title := cases.Title(language.Und)

	seen := make(map[dedupeKey]struct{}, len(raw))
	out := make([]sales.Transaction, 0, len(raw))

	for i := range raw {
		t := normalize(&raw[i], title, &s)
		t.Quality = classify(&t, &s)

		key := dedupeKey{store: t.StoreName, item: t.ItemCode, date: t.DateKey()}
		if _, dup := seen[key]; dup {
			s.DuplicatesRemoved++
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}

	summarize(out, &s)
	return out, s
}

func normalize(r *sales.RawRow, title cases.Caser, s *Summary) sales.Transaction {
	t := sales.Transaction{
		StoreName:     titleCase(title, r.StoreName),
		ItemCode:      strings.ToUpper(strings.TrimSpace(r.ItemCode)),
		ItemBarcode:   strings.TrimSpace(r.ItemBarcode),
		Description:   titleCase(title, r.Description),
		Category:      titleCase(title, r.Category),
		Department:    titleCase(title, r.Department),
		SubDepartment: titleCase(title, r.SubDepartment),
		Section:       titleCase(title, r.Section),
		Supplier:      titleCase(title, r.Supplier),
		RRP:           r.RRP,
	}

	if r.DateOfSale.Valid {
		d := r.DateOfSale.Time
		t.SaleDate = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	}

	t.Quantity = coerce(r.Quantity.Float64, r.Quantity.Valid, s)
	t.TotalSales = coerce(r.TotalSales.Float64, r.TotalSales.Valid, s)

	if t.RRP.Valid && (math.IsNaN(t.RRP.Float64) || math.IsInf(t.RRP.Float64, 0)) {
		t.RRP.Valid = false
	}

	if t.Quantity > 0 {
		t.UnitPrice = t.TotalSales / t.Quantity
	}
	return t
}

func titleCase(c cases.Caser, v string) string {
	return c.String(strings.TrimSpace(v))
}

func coerce(v float64, valid bool, s *Summary) float64 {
	if !valid || math.IsNaN(v) || math.IsInf(v, 0) {
		s.CoercedNumerics++
		return 0
	}
	return v
}

// classify applies the quality rules in order. Later rules only downgrade
// rows that are still high, except missing critical fields which always
// force low.
func classify(t *sales.Transaction, s *Summary) sales.QualityTier {
	tier := sales.QualityHigh

	negQty := t.Quantity < 0
	negSales := t.TotalSales < 0
	if negQty {
		s.NegativeQuantity++
	}
	if negSales {
		s.NegativeSales++
	}
	if negQty || negSales {
		tier = sales.QualityLow
	}

	rrp := t.RRPValue()
	if !t.RRP.Valid || rrp <= 0 {
		s.MissingRRP++
		if tier == sales.QualityHigh {
			tier = sales.QualityMedium
		}
	} else if math.Abs(t.UnitPrice-rrp)/rrp > MaxRRPDeviation {
		s.HighRRPDeviation++
		if tier == sales.QualityHigh {
			tier = sales.QualityMedium
		}
	}

	if t.StoreName == "" || t.ItemCode == "" || t.SaleDate.IsZero() {
		s.CriticalMissing++
		tier = sales.QualityLow
	}
	return tier
}

func summarize(rows []sales.Transaction, s *Summary) {
	s.OutputRows = len(rows)
	stores := make(map[string]struct{})
	items := make(map[string]struct{})

	for i := range rows {
		r := &rows[i]
		switch r.Quality {
		case sales.QualityHigh:
			s.HighQuality++
		case sales.QualityMedium:
			s.MediumQuality++
		case sales.QualityLow:
			s.LowQuality++
		}

		if r.StoreName != "" {
			stores[r.StoreName] = struct{}{}
		}
		if r.ItemCode != "" {
			items[r.ItemCode] = struct{}{}
		}
		s.TotalSalesValue += r.TotalSales

		if !r.SaleDate.IsZero() {
			if s.FirstDate.IsZero() || r.SaleDate.Before(s.FirstDate) {
				s.FirstDate = r.SaleDate
			}
			if r.SaleDate.After(s.LastDate) {
				s.LastDate = r.SaleDate
			}
		}
	}

	s.Stores = len(stores)
	s.Items = len(items)
}
