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
	"github.com/pgEdge/pgedge-ducklens/internal/sales"
)

// CalculateUplift sets BaselineUnits, PromoAvgUnits and PromoUpliftPct.
// It requires IsPromo, so DetectPromos must run first.
//
//   - BaselineUnits is the item's mean quantity over non-promo rows. An
//     item with no non-promo rows falls back to the row's own quantity.
//   - PromoAvgUnits is the item's mean quantity over promo rows, else 0.
//   - PromoUpliftPct is the relative change in percent, computed only for
//     promo rows with a positive baseline, else 0.
func CalculateUplift(rows []sales.Enriched) {
	baseline := newMeanIndex[string]()
	promo := newMeanIndex[string]()

	for i := range rows {
		r := &rows[i]
		if r.IsPromo {
			promo.add(r.ItemCode, r.Quantity)
		} else {
			baseline.add(r.ItemCode, r.Quantity)
		}
	}

	for i := range rows {
		r := &rows[i]

		base, ok := baseline.mean(r.ItemCode)
		if !ok {
			base = r.Quantity
		}
		promoAvg, ok := promo.mean(r.ItemCode)
		if !ok {
			promoAvg = 0
		}

		r.BaselineUnits = base
		r.PromoAvgUnits = promoAvg
		r.PromoUpliftPct = 0
		if r.IsPromo && base > 0 {
			r.PromoUpliftPct = (promoAvg - base) / base * 100
		}
	}
}
