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
	"strconv"
	"strings"

	"github.com/pgEdge/pgedge-ducklens/internal/db"
	"github.com/pgEdge/pgedge-ducklens/internal/transform"
)

// DataQuality summarises the loaded fact table.
type DataQuality struct {
	TotalRecords     int64   `json:"total_records"`
	QualityScore     float64 `json:"data_quality_score"`
	MissingPromoFlag int64   `json:"missing_promo_flag"`
	NegativeQuantity int64   `json:"negative_quantity"`
	NegativeSales    int64   `json:"negative_sales"`
	HighQuality      int64   `json:"high_quality"`
	MediumQuality    int64   `json:"medium_quality"`
	LowQuality       int64   `json:"low_quality"`
}

// PromoSummary is the single row of dw.v_bidco_promo_kpi_metrics.
type PromoSummary struct {
	PromoRevenue        float64 `json:"promo_revenue"`
	PromoPenetrationPct float64 `json:"promo_penetration_pct"`
	AvgDiscountPct      float64 `json:"avg_discount_pct"`
	StoresWithPromo     int64   `json:"stores_with_promo"`
	SKUsOnPromo         int64   `json:"skus_on_promo"`
	UnitsUpliftPct      float64 `json:"units_uplift_pct"`
	TotalStores         int64   `json:"total_stores"`
	TotalSKUs           int64   `json:"total_skus"`
	PromoTransactions   int64   `json:"promo_transactions"`
	TotalTransactions   int64   `json:"total_transactions"`
}

// SKUPerformance is one row of dw.v_top_performing_skus.
type SKUPerformance struct {
	ItemCode         string  `json:"item_code"`
	ItemDescription  string  `json:"item_description"`
	Category         string  `json:"category"`
	UpliftPct        float64 `json:"uplift_pct"`
	CoveragePct      float64 `json:"coverage_pct"`
	PromoRevenue     float64 `json:"promo_revenue"`
	PerformanceScore float64 `json:"performance_score"`
	PerformanceTier  string  `json:"performance_tier"`
	OverallRank      int32   `json:"overall_rank"`
}

// StoreLevelFilter narrows the store-level price index. Empty fields do
// not filter; set fields match case-insensitive substrings.
type StoreLevelFilter struct {
	Store         string
	SubDepartment string
	Positioning   string
	Limit         int
}

// StoreLevelIndex is one row of dw.v_price_index_store_level.
type StoreLevelIndex struct {
	StoreName                  string  `json:"store_name"`
	SubDepartment              string  `json:"sub_department"`
	Section                    string  `json:"section"`
	BidcoAvgPrice              float64 `json:"bidco_avg_price"`
	CompetitorAvgPrice         float64 `json:"competitor_avg_price"`
	PriceIndex                 float64 `json:"price_index"`
	PricePositioning           string  `json:"price_positioning"`
	BidcoDiscountVsRRPPct      float64 `json:"bidco_discount_vs_rrp_pct"`
	CompetitorDiscountVsRRPPct float64 `json:"competitor_discount_vs_rrp_pct"`
	PriceDifference            float64 `json:"price_difference"`
	PriceDifferencePct         float64 `json:"price_difference_pct"`
	BidcoTransactions          int64   `json:"bidco_transactions"`
	CompetitorTransactions     int64   `json:"competitor_transactions"`
}

// OverallIndex is one row of dw.v_price_index_overall.
type OverallIndex struct {
	Category              string  `json:"category"`
	SubDepartment         string  `json:"sub_department"`
	Section               string  `json:"section"`
	BidcoAvgPrice         float64 `json:"bidco_avg_price"`
	CompetitorAvgPrice    float64 `json:"competitor_avg_price"`
	PriceIndex            float64 `json:"price_index"`
	OverallPositioning    string  `json:"overall_positioning"`
	BidcoDiscountPct      float64 `json:"bidco_discount_pct"`
	CompetitorDiscountPct float64 `json:"competitor_discount_pct"`
	BidcoTxnSharePct      float64 `json:"bidco_txn_share_pct"`
	BidcoRevenueSharePct  float64 `json:"bidco_revenue_share_pct"`
	BidcoStores           int64   `json:"bidco_stores"`
	CompetitorStores      int64   `json:"competitor_stores"`
}

// CategoryIndex is a per-category rollup of the overall price index.
type CategoryIndex struct {
	Category               string                `json:"category"`
	SegmentCount           int64                 `json:"segment_count"`
	AvgPriceIndex          float64               `json:"avg_price_index"`
	AvgBidcoPrice          float64               `json:"avg_bidco_price"`
	AvgCompetitorPrice     float64               `json:"avg_competitor_price"`
	OverallPositioning     transform.Positioning `json:"overall_positioning"`
	TotalBidcoRevenue      float64               `json:"total_bidco_revenue"`
	TotalCompetitorRevenue float64               `json:"total_competitor_revenue"`
}

// Store runs the read-only analytical queries.
type Store struct {
	pool  db.Pool
	rules transform.Rules
}

// NewStore creates a query store. rules supply the positioning bands of
// the category rollup.
func NewStore(pool db.Pool, rules transform.Rules) *Store {
	return &Store{pool: pool, rules: rules}
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// DataQuality returns fact table quality counters.
func (s *Store) DataQuality(ctx context.Context) (*DataQuality, error) {
	var q DataQuality
	err := s.pool.QueryRow(ctx, `
        SELECT
            COUNT(*),
            COALESCE(ROUND(AVG(CASE WHEN quantity > 0 AND total_sales > 0
                THEN 100.0 ELSE 0 END), 2), 0)::double precision,
            COUNT(*) FILTER (WHERE is_promo IS NULL),
            COUNT(*) FILTER (WHERE quantity < 0),
            COUNT(*) FILTER (WHERE total_sales < 0),
            COUNT(*) FILTER (WHERE data_quality_flag = 'high'),
            COUNT(*) FILTER (WHERE data_quality_flag = 'medium'),
            COUNT(*) FILTER (WHERE data_quality_flag = 'low')
        FROM dw.fact_sales_enriched
    `).Scan(
		&q.TotalRecords, &q.QualityScore, &q.MissingPromoFlag,
		&q.NegativeQuantity, &q.NegativeSales,
		&q.HighQuality, &q.MediumQuality, &q.LowQuality,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query data quality: %w", err)
	}
	return &q, nil
}

// PromoSummary returns the Bidco promo KPI row.
func (s *Store) PromoSummary(ctx context.Context) (*PromoSummary, error) {
	var p PromoSummary
	err := s.pool.QueryRow(ctx, `
        SELECT promo_revenue, promo_penetration_pct, avg_discount_pct,
               bidco_stores_with_promo, bidco_skus_on_promo, units_uplift_pct,
               total_stores, total_skus, promo_transactions, total_transactions
        FROM dw.v_bidco_promo_kpi_metrics
    `).Scan(
		&p.PromoRevenue, &p.PromoPenetrationPct, &p.AvgDiscountPct,
		&p.StoresWithPromo, &p.SKUsOnPromo, &p.UnitsUpliftPct,
		&p.TotalStores, &p.TotalSKUs, &p.PromoTransactions, &p.TotalTransactions,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query promo summary: %w", err)
	}
	return &p, nil
}

// TopPromoSKUs returns the best Bidco promo SKUs by performance score.
func (s *Store) TopPromoSKUs(ctx context.Context, limit int) ([]SKUPerformance, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT item_code, item_description, category, uplift_pct, coverage_pct,
               promo_revenue, performance_score, performance_tier, overall_rank
        FROM dw.v_top_performing_skus
        WHERE is_bidco = TRUE
        ORDER BY performance_score DESC, item_code
        LIMIT $1
    `, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top SKUs: %w", err)
	}
	defer rows.Close()

	out := []SKUPerformance{}
	for rows.Next() {
		var r SKUPerformance
		if err := rows.Scan(
			&r.ItemCode, &r.ItemDescription, &r.Category, &r.UpliftPct, &r.CoveragePct,
			&r.PromoRevenue, &r.PerformanceScore, &r.PerformanceTier, &r.OverallRank,
		); err != nil {
			return nil, fmt.Errorf("failed to scan top SKU: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// StoreLevelIndex returns store-level Bidco vs competitor price rows,
// highest index first.
func (s *Store) StoreLevelIndex(ctx context.Context, f StoreLevelFilter) ([]StoreLevelIndex, error) {
	var sb strings.Builder
	sb.WriteString(`
        SELECT store_name, sub_department, section, bidco_avg_price,
               competitor_avg_price, price_index, price_positioning,
               bidco_discount_vs_rrp_pct, competitor_discount_vs_rrp_pct,
               price_difference, price_difference_pct,
               bidco_transactions, competitor_transactions
        FROM dw.v_price_index_store_level
        WHERE 1=1`)

	var args []any
	addLike := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		sb.WriteString(" AND " + column + " ILIKE '%' || $" + strconv.Itoa(len(args)) + " || '%'")
	}
	addLike("store_name", f.Store)
	addLike("sub_department", f.SubDepartment)
	addLike("price_positioning", f.Positioning)

	args = append(args, f.Limit)
	sb.WriteString(" ORDER BY price_index DESC LIMIT $" + strconv.Itoa(len(args)))

	rows, err := s.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query store level price index: %w", err)
	}
	defer rows.Close()

	out := []StoreLevelIndex{}
	for rows.Next() {
		var r StoreLevelIndex
		if err := rows.Scan(
			&r.StoreName, &r.SubDepartment, &r.Section, &r.BidcoAvgPrice,
			&r.CompetitorAvgPrice, &r.PriceIndex, &r.PricePositioning,
			&r.BidcoDiscountVsRRPPct, &r.CompetitorDiscountVsRRPPct,
			&r.PriceDifference, &r.PriceDifferencePct,
			&r.BidcoTransactions, &r.CompetitorTransactions,
		); err != nil {
			return nil, fmt.Errorf("failed to scan store level price index: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// OverallIndex returns the cross-store price index per segment, optionally
// filtered by a category substring.
func (s *Store) OverallIndex(ctx context.Context, category string) ([]OverallIndex, error) {
	query := `
        SELECT category, sub_department, section, bidco_avg_price,
               competitor_avg_price, price_index, overall_positioning,
               bidco_discount_pct, competitor_discount_pct,
               bidco_txn_share_pct, bidco_revenue_share_pct,
               bidco_stores, competitor_stores
        FROM dw.v_price_index_overall`
	var args []any
	if category != "" {
		query += ` WHERE category ILIKE '%' || $1 || '%'`
		args = append(args, category)
	}
	query += ` ORDER BY bidco_revenue_share_pct DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query overall price index: %w", err)
	}
	defer rows.Close()

	out := []OverallIndex{}
	for rows.Next() {
		var r OverallIndex
		if err := rows.Scan(
			&r.Category, &r.SubDepartment, &r.Section, &r.BidcoAvgPrice,
			&r.CompetitorAvgPrice, &r.PriceIndex, &r.OverallPositioning,
			&r.BidcoDiscountPct, &r.CompetitorDiscountPct,
			&r.BidcoTxnSharePct, &r.BidcoRevenueSharePct,
			&r.BidcoStores, &r.CompetitorStores,
		); err != nil {
			return nil, fmt.Errorf("failed to scan overall price index: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// IndexByCategory rolls the overall price index up to category level and
// classifies each category with the configured positioning bands.
func (s *Store) IndexByCategory(ctx context.Context) ([]CategoryIndex, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT category,
               COUNT(*),
               ROUND(AVG(price_index)::numeric, 4)::double precision,
               ROUND(AVG(bidco_avg_price)::numeric, 2)::double precision,
               ROUND(AVG(competitor_avg_price)::numeric, 2)::double precision,
               ROUND(SUM(bidco_revenue)::numeric, 2)::double precision AS total_bidco_revenue,
               ROUND(SUM(competitor_revenue)::numeric, 2)::double precision
        FROM dw.v_price_index_overall
        GROUP BY category
        ORDER BY total_bidco_revenue DESC
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to query category price index: %w", err)
	}
	defer rows.Close()

	out := []CategoryIndex{}
	for rows.Next() {
		var r CategoryIndex
		if err := rows.Scan(
			&r.Category, &r.SegmentCount, &r.AvgPriceIndex, &r.AvgBidcoPrice,
			&r.AvgCompetitorPrice, &r.TotalBidcoRevenue, &r.TotalCompetitorRevenue,
		); err != nil {
			return nil, fmt.Errorf("failed to scan category price index: %w", err)
		}
		r.OverallPositioning = s.rules.Positioning(r.AvgPriceIndex)
		out = append(out, r)
	}
	return out, rows.Err()
}
