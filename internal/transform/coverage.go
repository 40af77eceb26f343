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

// CalculatePromoCoverage sets PromoStoreCount and PromoCoveragePct on every
// row of an item, promo or not. It requires IsPromo.
//
// The denominator is the number of distinct stores in the whole dataset.
func CalculatePromoCoverage(rows []sales.Enriched) {
	stores := make(map[string]struct{})
	promoStores := newDistinctIndex[string, string]()

	for i := range rows {
		r := &rows[i]
		stores[r.StoreName] = struct{}{}
		if r.IsPromo {
			promoStores.add(r.ItemCode, r.StoreName)
		}
	}

	totalStores := len(stores)
	for i := range rows {
		r := &rows[i]
		r.PromoStoreCount = promoStores.count(r.ItemCode)
		r.PromoCoveragePct = 0
		if totalStores > 0 {
			r.PromoCoveragePct = float64(r.PromoStoreCount) / float64(totalStores) * 100
		}
	}
}
