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
	"strings"

	"github.com/pgEdge/pgedge-ducklens/internal/sales"
)

// cohortKey identifies a comparable product/location group.
type cohortKey struct {
	subDepartment string
	section       string
	store         string
}

func cohortOf(r *sales.Enriched) cohortKey {
	return cohortKey{
		subDepartment: r.SubDepartment,
		section:       r.Section,
		store:         r.StoreName,
	}
}

// CalculatePriceIndex sets IsBidco, GroupAvgPrice and PriceIndexVsComp.
//
// GroupAvgPrice is the mean unit price of the row's (sub-department,
// section, store) cohort. Bidco rows are part of that mean: it is a market
// average, not a competitor-only one. The index defaults to 1.0 when the
// cohort average is not positive.
func CalculatePriceIndex(rows []sales.Enriched, rules Rules) {
	avg := newMeanIndex[cohortKey]()
	for i := range rows {
		avg.add(cohortOf(&rows[i]), rows[i].UnitPrice)
	}

	for i := range rows {
		r := &rows[i]
		r.IsBidco = IsBrand(r.Supplier, rules.BrandMatch)

		groupAvg, _ := avg.mean(cohortOf(r))
		r.GroupAvgPrice = groupAvg
		r.PriceIndexVsComp = 1.0
		if groupAvg > 0 {
			r.PriceIndexVsComp = r.UnitPrice / groupAvg
		}
	}
}

// IsBrand reports whether supplier contains brand, ignoring case.
func IsBrand(supplier, brand string) bool {
	if brand == "" {
		return false
	}
	return strings.Contains(strings.ToLower(supplier), strings.ToLower(brand))
}
