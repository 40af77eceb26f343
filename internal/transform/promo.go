//-------------------------------------------------------------------------
//
// pgEdge DuckLens
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package transform

import (
	"math"

	"github.com/pgEdge/pgedge-ducklens/internal/sales"
)

// DetectPromos sets DiscountPct, PromoDaysCount and IsPromo on every row.
//
// A row is a promo candidate when its discount vs RRP reaches
// PromoMinDiscount. An item's promo day count is the number of distinct
// sale dates, across all stores, with at least one candidate row. A row is
// promotional only if it is itself a candidate and its item reaches
// PromoMinDays, so a promo that qualifies in one store makes every
// candidate row of that item promotional in every store.
func DetectPromos(rows []sales.Enriched, rules Rules) {
	candidate := make([]bool, len(rows))
	days := newDistinctIndex[string, string]()

	for i := range rows {
		r := &rows[i]
		r.DiscountPct = discountPct(r.RRPValue(), r.UnitPrice)
		candidate[i] = r.DiscountPct >= rules.PromoMinDiscount

		// Missing dates never count towards the day total.
		if candidate[i] {
			if key := r.DateKey(); key != "" {
				days.add(r.ItemCode, key)
			}
		}
	}

	for i := range rows {
		r := &rows[i]
		r.PromoDaysCount = days.count(r.ItemCode)
		r.IsPromo = candidate[i] && r.PromoDaysCount >= rules.PromoMinDays
	}
}

// discountPct is (rrp - price) / rrp, or 0 when rrp is not positive.
func discountPct(rrp, unitPrice float64) float64 {
	if !(rrp > 0) || math.IsInf(rrp, 0) {
		return 0
	}
	d := (rrp - unitPrice) / rrp
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return 0
	}
	return d
}
