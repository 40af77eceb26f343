//-------------------------------------------------------------------------
//
// pgEdge DuckLens
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package warehouse manages the DuckLens star schema: DDL, the analytical
// views, the dimension and fact loader, and the read queries behind the API.
package warehouse

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pgEdge/pgedge-ducklens/internal/db"
	"github.com/pgEdge/pgedge-ducklens/internal/transform"
)

// Schema SQL for the staging landing table and the dw star schema.
const createSchemaSQL = `
CREATE SCHEMA IF NOT EXISTS staging;
CREATE SCHEMA IF NOT EXISTS dw;

-- Raw POS rows exactly as ingested
CREATE TABLE IF NOT EXISTS staging.stg_sales_raw (
    id              BIGSERIAL PRIMARY KEY,
    store_name      TEXT,
    item_code       TEXT,
    item_barcode    TEXT,
    description     TEXT,
    category        TEXT,
    department      TEXT,
    sub_department  TEXT,
    section         TEXT,
    quantity        DOUBLE PRECISION,
    total_sales     DOUBLE PRECISION,
    rrp             DOUBLE PRECISION,
    supplier        TEXT,
    date_of_sale    DATE,
    loaded_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

-- Store Dimension
CREATE TABLE IF NOT EXISTS dw.dim_store (
    store_id    SERIAL PRIMARY KEY,
    store_name  TEXT NOT NULL UNIQUE
);

-- Supplier Dimension
CREATE TABLE IF NOT EXISTS dw.dim_supplier (
    supplier_id    SERIAL PRIMARY KEY,
    supplier_name  TEXT NOT NULL UNIQUE
);

-- Date Dimension (date_id is yyyymmdd)
CREATE TABLE IF NOT EXISTS dw.dim_date (
    date_id       INTEGER PRIMARY KEY,
    full_date     DATE NOT NULL UNIQUE,
    year          INTEGER NOT NULL,
    month         INTEGER NOT NULL,
    day           INTEGER NOT NULL,
    weekday_name  VARCHAR(9) NOT NULL,
    is_weekend    BOOLEAN NOT NULL
);

-- Item Dimension
CREATE TABLE IF NOT EXISTS dw.dim_item (
    item_id         SERIAL PRIMARY KEY,
    item_code       TEXT NOT NULL UNIQUE,
    item_barcode    TEXT,
    description     TEXT,
    category        TEXT,
    department      TEXT,
    sub_department  TEXT,
    section         TEXT,
    is_bidco        BOOLEAN NOT NULL DEFAULT FALSE
);

-- Enriched sales facts, one row per store, item and day
CREATE TABLE IF NOT EXISTS dw.fact_sales_enriched (
    sales_id             BIGSERIAL PRIMARY KEY,
    store_id             INTEGER NOT NULL REFERENCES dw.dim_store(store_id),
    item_id              INTEGER NOT NULL REFERENCES dw.dim_item(item_id),
    supplier_id          INTEGER NOT NULL REFERENCES dw.dim_supplier(supplier_id),
    date_id              INTEGER NOT NULL REFERENCES dw.dim_date(date_id),
    quantity             DOUBLE PRECISION NOT NULL,
    total_sales          DOUBLE PRECISION NOT NULL,
    rrp                  DOUBLE PRECISION,
    unit_price           DOUBLE PRECISION NOT NULL,
    discount_pct         DOUBLE PRECISION NOT NULL,
    is_promo             BOOLEAN NOT NULL,
    promo_days_count     INTEGER NOT NULL,
    baseline_units       DOUBLE PRECISION NOT NULL,
    promo_avg_units      DOUBLE PRECISION NOT NULL,
    promo_uplift_pct     DOUBLE PRECISION NOT NULL,
    is_bidco             BOOLEAN NOT NULL,
    group_avg_price      DOUBLE PRECISION NOT NULL,
    price_index_vs_comp  DOUBLE PRECISION NOT NULL,
    promo_store_count    INTEGER NOT NULL,
    promo_coverage_pct   DOUBLE PRECISION NOT NULL,
    data_quality_flag    VARCHAR(6) NOT NULL,
    run_id               TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fact_store ON dw.fact_sales_enriched(store_id);
CREATE INDEX IF NOT EXISTS idx_fact_item ON dw.fact_sales_enriched(item_id);
CREATE INDEX IF NOT EXISTS idx_fact_date ON dw.fact_sales_enriched(date_id);
CREATE INDEX IF NOT EXISTS idx_fact_promo ON dw.fact_sales_enriched(is_promo) WHERE is_promo;
`

// The views are rendered with the configured positioning thresholds.
// Arguments: 1 premium, 2 slight premium, 3 slight discount, 4 discount.
const createViewsSQL = `
CREATE OR REPLACE VIEW dw.v_bidco_promo_kpi_metrics AS
SELECT
    ROUND(COALESCE(SUM(f.total_sales) FILTER (WHERE f.is_promo), 0)::numeric, 2)::double precision
        AS promo_revenue,
    ROUND(COALESCE(100.0 * COUNT(*) FILTER (WHERE f.is_promo) / NULLIF(COUNT(*), 0), 0)::numeric, 2)::double precision
        AS promo_penetration_pct,
    ROUND(COALESCE(100.0 * AVG(f.discount_pct) FILTER (WHERE f.is_promo), 0)::numeric, 2)::double precision
        AS avg_discount_pct,
    COUNT(DISTINCT f.store_id) FILTER (WHERE f.is_promo) AS bidco_stores_with_promo,
    COUNT(DISTINCT f.item_id) FILTER (WHERE f.is_promo) AS bidco_skus_on_promo,
    ROUND(COALESCE(100.0 * (AVG(f.quantity) FILTER (WHERE f.is_promo)
        - AVG(f.quantity) FILTER (WHERE NOT f.is_promo))
        / NULLIF(AVG(f.quantity) FILTER (WHERE NOT f.is_promo), 0), 0)::numeric, 2)::double precision
        AS units_uplift_pct,
    (SELECT COUNT(*) FROM dw.dim_store) AS total_stores,
    COUNT(DISTINCT f.item_id) AS total_skus,
    COUNT(*) FILTER (WHERE f.is_promo) AS promo_transactions,
    COUNT(*) AS total_transactions
FROM dw.fact_sales_enriched f
WHERE f.is_bidco;

CREATE OR REPLACE VIEW dw.v_top_performing_skus AS
WITH sku AS (
    SELECT
        i.item_code,
        i.description AS item_description,
        i.category,
        i.is_bidco,
        COALESCE(AVG(f.promo_uplift_pct) FILTER (WHERE f.is_promo), 0) AS uplift_pct,
        MAX(f.promo_coverage_pct) AS coverage_pct,
        COALESCE(SUM(f.total_sales) FILTER (WHERE f.is_promo), 0) AS promo_revenue
    FROM dw.fact_sales_enriched f
    JOIN dw.dim_item i ON i.item_id = f.item_id
    GROUP BY i.item_code, i.description, i.category, i.is_bidco
    HAVING COUNT(*) FILTER (WHERE f.is_promo) > 0
), scored AS (
    SELECT sku.*,
        0.5 * GREATEST(LEAST(uplift_pct, 100), -100) + 0.5 * coverage_pct AS performance_score
    FROM sku
)
SELECT
    item_code,
    item_description,
    category,
    is_bidco,
    ROUND(uplift_pct::numeric, 2)::double precision AS uplift_pct,
    ROUND(coverage_pct::numeric, 2)::double precision AS coverage_pct,
    ROUND(promo_revenue::numeric, 2)::double precision AS promo_revenue,
    ROUND(performance_score::numeric, 2)::double precision AS performance_score,
    CASE
        WHEN performance_score >= 50 THEN 'STAR'
        WHEN performance_score >= 20 THEN 'STRONG'
        WHEN performance_score >= 0 THEN 'MODERATE'
        ELSE 'UNDERPERFORMING'
    END AS performance_tier,
    RANK() OVER (ORDER BY performance_score DESC)::integer AS overall_rank
FROM scored;

CREATE OR REPLACE VIEW dw.v_price_index_store_level AS
WITH seg AS (
    SELECT
        s.store_name,
        i.sub_department,
        i.section,
        AVG(f.unit_price) FILTER (WHERE f.is_bidco) AS bidco_avg_price,
        AVG(f.unit_price) FILTER (WHERE NOT f.is_bidco) AS competitor_avg_price,
        100.0 * AVG(f.discount_pct) FILTER (WHERE f.is_bidco) AS bidco_discount,
        100.0 * AVG(f.discount_pct) FILTER (WHERE NOT f.is_bidco) AS competitor_discount,
        COUNT(*) FILTER (WHERE f.is_bidco) AS bidco_transactions,
        COUNT(*) FILTER (WHERE NOT f.is_bidco) AS competitor_transactions
    FROM dw.fact_sales_enriched f
    JOIN dw.dim_store s ON s.store_id = f.store_id
    JOIN dw.dim_item i ON i.item_id = f.item_id
    WHERE f.unit_price > 0
    GROUP BY s.store_name, i.sub_department, i.section
), idx AS (
    SELECT seg.*, bidco_avg_price / competitor_avg_price AS price_index
    FROM seg
    WHERE bidco_transactions > 0 AND competitor_transactions > 0 AND competitor_avg_price > 0
)
SELECT
    store_name,
    sub_department,
    section,
    ROUND(bidco_avg_price::numeric, 2)::double precision AS bidco_avg_price,
    ROUND(competitor_avg_price::numeric, 2)::double precision AS competitor_avg_price,
    ROUND(price_index::numeric, 4)::double precision AS price_index,
    CASE
        WHEN price_index > %[1]s THEN 'PREMIUM'
        WHEN price_index > %[2]s THEN 'SLIGHT PREMIUM'
        WHEN price_index >= %[3]s THEN 'AT MARKET'
        WHEN price_index >= %[4]s THEN 'SLIGHT DISCOUNT'
        ELSE 'DEEP DISCOUNT'
    END AS price_positioning,
    ROUND(COALESCE(bidco_discount, 0)::numeric, 2)::double precision AS bidco_discount_vs_rrp_pct,
    ROUND(COALESCE(competitor_discount, 0)::numeric, 2)::double precision AS competitor_discount_vs_rrp_pct,
    ROUND((bidco_avg_price - competitor_avg_price)::numeric, 2)::double precision AS price_difference,
    ROUND((100.0 * (price_index - 1))::numeric, 2)::double precision AS price_difference_pct,
    bidco_transactions,
    competitor_transactions
FROM idx;

CREATE OR REPLACE VIEW dw.v_price_index_overall AS
WITH seg AS (
    SELECT
        i.category,
        i.sub_department,
        i.section,
        AVG(f.unit_price) FILTER (WHERE f.is_bidco AND f.unit_price > 0) AS bidco_avg_price,
        AVG(f.unit_price) FILTER (WHERE NOT f.is_bidco AND f.unit_price > 0) AS competitor_avg_price,
        100.0 * AVG(f.discount_pct) FILTER (WHERE f.is_bidco) AS bidco_discount,
        100.0 * AVG(f.discount_pct) FILTER (WHERE NOT f.is_bidco) AS competitor_discount,
        COUNT(*) FILTER (WHERE f.is_bidco) AS bidco_txns,
        COUNT(*) AS total_txns,
        COALESCE(SUM(f.total_sales) FILTER (WHERE f.is_bidco), 0) AS bidco_revenue,
        COALESCE(SUM(f.total_sales) FILTER (WHERE NOT f.is_bidco), 0) AS competitor_revenue,
        COUNT(DISTINCT f.store_id) FILTER (WHERE f.is_bidco) AS bidco_stores,
        COUNT(DISTINCT f.store_id) FILTER (WHERE NOT f.is_bidco) AS competitor_stores
    FROM dw.fact_sales_enriched f
    JOIN dw.dim_item i ON i.item_id = f.item_id
    GROUP BY i.category, i.sub_department, i.section
), idx AS (
    SELECT seg.*, bidco_avg_price / competitor_avg_price AS price_index
    FROM seg
    WHERE bidco_avg_price IS NOT NULL AND competitor_avg_price > 0
)
SELECT
    category,
    sub_department,
    section,
    ROUND(bidco_avg_price::numeric, 2)::double precision AS bidco_avg_price,
    ROUND(competitor_avg_price::numeric, 2)::double precision AS competitor_avg_price,
    ROUND(price_index::numeric, 4)::double precision AS price_index,
    CASE
        WHEN price_index > %[1]s THEN 'PREMIUM'
        WHEN price_index > %[2]s THEN 'SLIGHT PREMIUM'
        WHEN price_index >= %[3]s THEN 'AT MARKET'
        WHEN price_index >= %[4]s THEN 'SLIGHT DISCOUNT'
        ELSE 'DEEP DISCOUNT'
    END AS overall_positioning,
    ROUND(COALESCE(bidco_discount, 0)::numeric, 2)::double precision AS bidco_discount_pct,
    ROUND(COALESCE(competitor_discount, 0)::numeric, 2)::double precision AS competitor_discount_pct,
    ROUND((100.0 * bidco_txns / NULLIF(total_txns, 0))::numeric, 2)::double precision AS bidco_txn_share_pct,
    ROUND(COALESCE(100.0 * bidco_revenue / NULLIF(bidco_revenue + competitor_revenue, 0), 0)::numeric, 2)::double precision
        AS bidco_revenue_share_pct,
    bidco_stores,
    competitor_stores,
    ROUND(bidco_revenue::numeric, 2)::double precision AS bidco_revenue,
    ROUND(competitor_revenue::numeric, 2)::double precision AS competitor_revenue
FROM idx;
`

const dropSchemaSQL = `
DROP VIEW IF EXISTS dw.v_price_index_overall;
DROP VIEW IF EXISTS dw.v_price_index_store_level;
DROP VIEW IF EXISTS dw.v_top_performing_skus;
DROP VIEW IF EXISTS dw.v_bidco_promo_kpi_metrics;
DROP TABLE IF EXISTS dw.fact_sales_enriched CASCADE;
DROP TABLE IF EXISTS dw.dim_item CASCADE;
DROP TABLE IF EXISTS dw.dim_date CASCADE;
DROP TABLE IF EXISTS dw.dim_supplier CASCADE;
DROP TABLE IF EXISTS dw.dim_store CASCADE;
DROP TABLE IF EXISTS staging.stg_sales_raw CASCADE;
`

// ViewsSQL renders the analytical view definitions for the given
// positioning thresholds.
func ViewsSQL(rules transform.Rules) string {
	return fmt.Sprintf(createViewsSQL,
		sqlFloat(rules.PremiumThreshold),
		sqlFloat(rules.SlightPremiumThreshold),
		sqlFloat(rules.SlightDiscountThreshold),
		sqlFloat(rules.DiscountThreshold),
	)
}

func sqlFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// CreateSchema creates the staging and warehouse tables and the views.
func CreateSchema(ctx context.Context, pool db.Pool, rules transform.Rules) error {
	if _, err := pool.Exec(ctx, createSchemaSQL); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	if _, err := pool.Exec(ctx, ViewsSQL(rules)); err != nil {
		return fmt.Errorf("failed to create views: %w", err)
	}
	if _, err := pool.Exec(ctx, db.CreateMetadataTableSQL); err != nil {
		return fmt.Errorf("failed to create metadata table: %w", err)
	}
	return nil
}

// DropSchema drops the warehouse views and tables. The schemas themselves
// are left in place.
func DropSchema(ctx context.Context, pool db.Pool) error {
	_, err := pool.Exec(ctx, dropSchemaSQL)
	return err
}
