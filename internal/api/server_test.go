package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-ducklens/internal/transform"
	"github.com/pgEdge/pgedge-ducklens/internal/warehouse"
)

type fakeStore struct {
	pingErr  error
	queryErr error

	lastLimit    int
	lastFilter   warehouse.StoreLevelFilter
	lastCategory string
}

func (f *fakeStore) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeStore) DataQuality(ctx context.Context) (*warehouse.DataQuality, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return &warehouse.DataQuality{TotalRecords: 100, QualityScore: 97.5, NegativeQuantity: 2}, nil
}

func (f *fakeStore) PromoSummary(ctx context.Context) (*warehouse.PromoSummary, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return &warehouse.PromoSummary{PromoRevenue: 293717.19, PromoPenetrationPct: 28.54, StoresWithPromo: 35}, nil
}

func (f *fakeStore) TopPromoSKUs(ctx context.Context, limit int) ([]warehouse.SKUPerformance, error) {
	f.lastLimit = limit
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return []warehouse.SKUPerformance{{ItemCode: "SKU1", PerformanceTier: "STAR", OverallRank: 1}}, nil
}

func (f *fakeStore) StoreLevelIndex(ctx context.Context, filter warehouse.StoreLevelFilter) ([]warehouse.StoreLevelIndex, error) {
	f.lastFilter = filter
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return []warehouse.StoreLevelIndex{
		{StoreName: "Kilimani", PriceIndex: 0.8, PricePositioning: "DEEP DISCOUNT"},
		{StoreName: "Karen", PriceIndex: 1.0, PricePositioning: "AT MARKET"},
	}, nil
}

func (f *fakeStore) OverallIndex(ctx context.Context, category string) ([]warehouse.OverallIndex, error) {
	f.lastCategory = category
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return []warehouse.OverallIndex{}, nil
}

func (f *fakeStore) IndexByCategory(ctx context.Context) ([]warehouse.CategoryIndex, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return []warehouse.CategoryIndex{
		{Category: "Foods", AvgPriceIndex: 1.2, OverallPositioning: transform.PositionPremium},
	}, nil
}

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec, body
}

func TestRoot(t *testing.T) {
	srv := NewServer(&fakeStore{}, Config{})
	rec, body := get(t, srv.Handler(), "/")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, Version, body["version"])
	endpoints := body["endpoints"].(map[string]any)
	assert.Equal(t, "/price_index/by_category", endpoints["price_index_by_category"])
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name    string
		pingErr error
		want    string
	}{
		{"connected", nil, "connected"},
		{"disconnected", fmt.Errorf("connection refused"), "disconnected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(&fakeStore{pingErr: tt.pingErr}, Config{})
			rec, body := get(t, srv.Handler(), "/health")

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "ok", body["status"])
			assert.Equal(t, tt.want, body["database"])
			assert.Equal(t, "2.0.0", body["api_version"])
		})
	}
}

func TestDataQuality(t *testing.T) {
	srv := NewServer(&fakeStore{}, Config{})
	rec, body := get(t, srv.Handler(), "/data_quality")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "data_quality", body["metric"])
	data := body["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, float64(100), data[0].(map[string]any)["total_records"])
}

func TestPromoSummary(t *testing.T) {
	srv := NewServer(&fakeStore{}, Config{})
	rec, body := get(t, srv.Handler(), "/promo_summary")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 293717.19, body["promo_revenue"])
	assert.Equal(t, float64(35), body["stores_with_promo"])
}

func TestPromoKPIsLimit(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		status    int
		wantLimit int
	}{
		{"default", "/promo_kpis", http.StatusOK, 20},
		{"explicit", "/promo_kpis?limit=5", http.StatusOK, 5},
		{"upper bound", "/promo_kpis?limit=100", http.StatusOK, 100},
		{"too large", "/promo_kpis?limit=101", http.StatusBadRequest, 0},
		{"zero", "/promo_kpis?limit=0", http.StatusBadRequest, 0},
		{"not a number", "/promo_kpis?limit=ten", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			srv := NewServer(store, Config{})
			rec, body := get(t, srv.Handler(), tt.target)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, tt.wantLimit, store.lastLimit)
				assert.Equal(t, "top_promo_skus", body["metric"])
			} else {
				assert.NotEmpty(t, body["error"])
				assert.Equal(t, 0, store.lastLimit)
			}
		})
	}
}

func TestPromoKPIsConfiguredDefault(t *testing.T) {
	store := &fakeStore{}
	srv := NewServer(store, Config{PromoLimit: 7})
	rec, _ := get(t, srv.Handler(), "/promo_kpis")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 7, store.lastLimit)
}

func TestStoreLevel(t *testing.T) {
	store := &fakeStore{}
	srv := NewServer(store, Config{})
	rec, body := get(t, srv.Handler(),
		"/price_index/store_level?store=kili&sub_department=Cooking%20Oil&positioning=premium&limit=500")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), body["count"])
	assert.Equal(t, warehouse.StoreLevelFilter{
		Store:         "kili",
		SubDepartment: "Cooking Oil",
		Positioning:   "premium",
		Limit:         500,
	}, store.lastFilter)

	rec, _ = get(t, srv.Handler(), "/price_index/store_level?limit=501")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, _ = get(t, srv.Handler(), "/price_index/store_level")
	assert.Equal(t, DefaultStoreLimit, store.lastFilter.Limit)
}

func TestOverall(t *testing.T) {
	store := &fakeStore{}
	srv := NewServer(store, Config{})
	rec, body := get(t, srv.Handler(), "/price_index/overall?category=Foods")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Foods", store.lastCategory)
	assert.Equal(t, float64(0), body["count"])
	assert.NotNil(t, body["data"])
}

func TestByCategory(t *testing.T) {
	srv := NewServer(&fakeStore{}, Config{})
	rec, body := get(t, srv.Handler(), "/price_index/by_category")

	assert.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, "PREMIUM", data[0].(map[string]any)["overall_positioning"])
}

func TestQueryErrors(t *testing.T) {
	srv := NewServer(&fakeStore{queryErr: fmt.Errorf("failed to query promo summary: boom")}, Config{})

	for _, target := range []string{
		"/data_quality",
		"/promo_summary",
		"/promo_kpis",
		"/price_index/store_level",
		"/price_index/overall",
		"/price_index/by_category",
	} {
		rec, body := get(t, srv.Handler(), target)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, target)
		assert.NotEmpty(t, body["error"], target)
	}
}

func TestNotFound(t *testing.T) {
	srv := NewServer(&fakeStore{}, Config{})
	rec, body := get(t, srv.Handler(), "/nope")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", body["error"])
}

func TestCORS(t *testing.T) {
	srv := NewServer(&fakeStore{}, Config{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://dashboard.local")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	srv = NewServer(&fakeStore{}, Config{CORSOrigins: []string{"http://allowed.local"}})
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://other.local")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
