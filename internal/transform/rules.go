//-------------------------------------------------------------------------
//
// pgEdge DuckLens
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package transform implements the business-rule engine that enriches
// cleaned transactions with promo flags, uplift, Bidco price indices and
// promo coverage.
//
// Every pass is a pure function of the full cleaned dataset: aggregates are
// built as key -> value maps in one pass over the rows and then applied as
// lookups, so the output does not depend on anything but the input rows and
// the Rules.
package transform

import (
	"fmt"
	"math"
)

// Rules holds the tunable business thresholds.
type Rules struct {
	// PromoMinDiscount is the minimum fractional discount vs RRP for a row
	// to be a promo candidate.
	PromoMinDiscount float64

	// PromoMinDays is the minimum number of distinct sale dates with a
	// candidate row for an item to count as promotional.
	PromoMinDays int

	// BrandMatch is matched case-insensitively against the supplier name.
	BrandMatch string

	// PremiumThreshold and DiscountThreshold bound the at-market band.
	PremiumThreshold  float64
	DiscountThreshold float64

	// SlightPremiumThreshold and SlightDiscountThreshold split the finer
	// reporting bands.
	SlightPremiumThreshold  float64
	SlightDiscountThreshold float64
}

// DefaultRules returns the standard DuckLens thresholds.
func DefaultRules() Rules {
	return Rules{
		PromoMinDiscount:        0.10,
		PromoMinDays:            2,
		BrandMatch:              "Bidco",
		PremiumThreshold:        1.10,
		DiscountThreshold:       0.90,
		SlightPremiumThreshold:  1.05,
		SlightDiscountThreshold: 0.95,
	}
}

// Validate checks that the thresholds are usable and correctly ordered.
func (r Rules) Validate() error {
	if math.IsNaN(r.PromoMinDiscount) || r.PromoMinDiscount <= 0 || r.PromoMinDiscount >= 1 {
		return fmt.Errorf("promo_min_discount must be between 0 and 1")
	}
	if r.PromoMinDays < 1 {
		return fmt.Errorf("promo_min_days must be at least 1")
	}
	if r.BrandMatch == "" {
		return fmt.Errorf("brand_match is required")
	}
	if !(r.DiscountThreshold <= r.SlightDiscountThreshold &&
		r.SlightDiscountThreshold <= 1 &&
		1 <= r.SlightPremiumThreshold &&
		r.SlightPremiumThreshold <= r.PremiumThreshold) {
		return fmt.Errorf("price index thresholds must satisfy " +
			"discount <= slight_discount <= 1 <= slight_premium <= premium")
	}
	return nil
}

// Band is the coarse price positioning of an index.
type Band string

// Coarse positioning bands.
const (
	BandPremium  Band = "premium"
	BandAtMarket Band = "at-market"
	BandDiscount Band = "discount"
)

// Band classifies a price index into premium, discount or at-market.
func (r Rules) Band(index float64) Band {
	switch {
	case index > r.PremiumThreshold:
		return BandPremium
	case index < r.DiscountThreshold:
		return BandDiscount
	default:
		return BandAtMarket
	}
}

// Positioning is the fine-grained reporting label of an index.
type Positioning string

// Fine positioning labels, as exposed by the query API.
const (
	PositionPremium        Positioning = "PREMIUM"
	PositionSlightPremium  Positioning = "SLIGHT PREMIUM"
	PositionAtMarket       Positioning = "AT MARKET"
	PositionSlightDiscount Positioning = "SLIGHT DISCOUNT"
	PositionDeepDiscount   Positioning = "DEEP DISCOUNT"
)

// Positioning classifies a price index into the five reporting bands.
func (r Rules) Positioning(index float64) Positioning {
	switch {
	case index > r.PremiumThreshold:
		return PositionPremium
	case index > r.SlightPremiumThreshold:
		return PositionSlightPremium
	case index >= r.SlightDiscountThreshold:
		return PositionAtMarket
	case index >= r.DiscountThreshold:
		return PositionSlightDiscount
	default:
		return PositionDeepDiscount
	}
}
