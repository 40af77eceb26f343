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

// Summary describes one transformation run. It is observability output
// only and is not part of the enriched data.
type Summary struct {
	TotalRows  int     `json:"total_rows"`
	PromoRows  int     `json:"promo_rows"`
	PromoPct   float64 `json:"promo_pct"`
	PromoItems int     `json:"promo_items"`

	// AvgUpliftPct and TopUpliftPct cover promo rows with positive uplift.
	AvgUpliftPct float64 `json:"avg_uplift_pct"`
	TopUpliftPct float64 `json:"top_uplift_pct"`

	BidcoRows          int     `json:"bidco_rows"`
	BidcoPct           float64 `json:"bidco_pct"`
	BidcoAvgPriceIndex float64 `json:"bidco_avg_price_index"`
	BidcoPremiumRows   int     `json:"bidco_premium_rows"`
	BidcoDiscountRows  int     `json:"bidco_discount_rows"`

	// BidcoPositioning counts Bidco rows per fine positioning label.
	BidcoPositioning map[Positioning]int `json:"bidco_positioning"`

	TotalStores int `json:"total_stores"`

	// AvgPromoCoveragePct is the mean coverage over distinct promo items.
	AvgPromoCoveragePct float64 `json:"avg_promo_coverage_pct"`
}

// Run enriches a full snapshot of cleaned transactions. The passes run in
// a fixed order: promo detection, uplift, price index, promo coverage.
// The input slice is not modified and rows are never dropped.
func Run(txns []sales.Transaction, rules Rules) ([]sales.Enriched, Summary) {
	rows := make([]sales.Enriched, len(txns))
	for i, t := range txns {
		rows[i] = sales.Enriched{Transaction: t}
	}

	DetectPromos(rows, rules)
	CalculateUplift(rows)
	CalculatePriceIndex(rows, rules)
	CalculatePromoCoverage(rows)

	return rows, Summarize(rows, rules)
}

// Summarize computes run statistics over enriched rows.
func Summarize(rows []sales.Enriched, rules Rules) Summary {
	s := Summary{
		TotalRows:        len(rows),
		BidcoPositioning: make(map[Positioning]int),
	}

	promoItems := make(map[string]struct{})
	stores := make(map[string]struct{})
	var upliftSum float64
	var upliftRows int
	var indexSum float64
	var coverageSum float64

	for i := range rows {
		r := &rows[i]
		stores[r.StoreName] = struct{}{}

		if r.IsPromo {
			s.PromoRows++
			if _, seen := promoItems[r.ItemCode]; !seen {
				promoItems[r.ItemCode] = struct{}{}
				coverageSum += r.PromoCoveragePct
			}
			if r.PromoUpliftPct > 0 {
				upliftSum += r.PromoUpliftPct
				upliftRows++
				if upliftRows == 1 || r.PromoUpliftPct > s.TopUpliftPct {
					s.TopUpliftPct = r.PromoUpliftPct
				}
			}
		}

		if r.IsBidco {
			s.BidcoRows++
			indexSum += r.PriceIndexVsComp
			switch rules.Band(r.PriceIndexVsComp) {
			case BandPremium:
				s.BidcoPremiumRows++
			case BandDiscount:
				s.BidcoDiscountRows++
			}
			s.BidcoPositioning[rules.Positioning(r.PriceIndexVsComp)]++
		}
	}

	s.PromoItems = len(promoItems)
	s.TotalStores = len(stores)
	s.PromoPct = percent(s.PromoRows, s.TotalRows)
	s.BidcoPct = percent(s.BidcoRows, s.TotalRows)
	if upliftRows > 0 {
		s.AvgUpliftPct = upliftSum / float64(upliftRows)
	}
	if s.BidcoRows > 0 {
		s.BidcoAvgPriceIndex = indexSum / float64(s.BidcoRows)
	}
	if s.PromoItems > 0 {
		s.AvgPromoCoveragePct = coverageSum / float64(s.PromoItems)
	}

	return s
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
