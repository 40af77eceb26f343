package ingest

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func createTestWorkbook(t *testing.T, sheets map[string][][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	for name, rows := range sheets {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range rows {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				row.AddCell().SetString(cellData)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "pos.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func sampleHeader() []string {
	return append([]string(nil), Headers...)
}

func TestReadWorkbook_Basic(t *testing.T) {
	path := createTestWorkbook(t, map[string][][]string{
		"Sheet1": {
			sampleHeader(),
			{"Kilimani", "SKU1", "616", "Oil 1L", "Foods", "Grocery", "Oils", "Cooking",
				"2", "170", "100", "Bidco Africa Ltd", "2024-01-05"},
			{"", "", "", "", "", "", "", "", "", "", "", "", ""},
			{"Karen", "SKU2", "617", "Soap", "Home", "Care", "Soaps", "Bar",
				"1", "55.5", "", "Unilever", "not a date"},
		},
	})

	rows, err := ReadWorkbook(path, Options{})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Kilimani", rows[0].StoreName)
	assert.Equal(t, "Bidco Africa Ltd", rows[0].Supplier)
	assert.True(t, rows[0].Quantity.Valid)
	assert.Equal(t, 2.0, rows[0].Quantity.Float64)
	assert.Equal(t, 170.0, rows[0].TotalSales.Float64)
	assert.True(t, rows[0].DateOfSale.Valid)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), rows[0].DateOfSale.Time)

	assert.False(t, rows[1].RRP.Valid)
	assert.False(t, rows[1].DateOfSale.Valid)
	assert.Equal(t, 55.5, rows[1].TotalSales.Float64)
}

func TestReadWorkbook_NumericAndDateCells(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("POS")
	require.NoError(t, err)

	header := sheet.AddRow()
	for _, h := range Headers {
		header.AddCell().SetString(h)
	}
	row := sheet.AddRow()
	for _, v := range []string{"Westlands", "SKU9", "1", "Ketchup", "Foods", "Grocery", "Sauces", "Table"} {
		row.AddCell().SetString(v)
	}
	row.AddCell().SetFloat(3)
	row.AddCell().SetFloat(297)
	row.AddCell().SetFloat(110)
	row.AddCell().SetString("Kenafric")
	row.AddCell().SetDate(time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC))

	path := filepath.Join(t.TempDir(), "typed.xlsx")
	require.NoError(t, f.Save(path))

	rows, err := ReadWorkbook(path, Options{Sheet: "POS"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 3.0, rows[0].Quantity.Float64)
	assert.Equal(t, 110.0, rows[0].RRP.Float64)
	require.True(t, rows[0].DateOfSale.Valid)
	assert.Equal(t, "2024-02-29", rows[0].DateOfSale.Time.Format("2006-01-02"))
}

func TestReadWorkbook_SheetNotFound(t *testing.T) {
	path := createTestWorkbook(t, map[string][][]string{
		"Sheet1": {sampleHeader()},
	})

	_, err := ReadWorkbook(path, Options{Sheet: "Missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestReadWorkbook_MissingFile(t *testing.T) {
	_, err := ReadWorkbook(filepath.Join(t.TempDir(), "nope.xlsx"), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open workbook")
}

func TestParseRows_MissingColumns(t *testing.T) {
	_, err := ParseRows([]string{"Store Name", "Item_Code"}, nil, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "supplier")
	assert.Contains(t, err.Error(), "date_of_sale")
}

func TestParseRows_IgnoresUnknownHeadersAndShortRows(t *testing.T) {
	header := append([]string{"Till"}, sampleHeader()...)
	rows, err := ParseRows(header, [][]string{{"T1", "Karen", "SKU3"}}, false)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Karen", rows[0].StoreName)
	assert.Equal(t, "SKU3", rows[0].ItemCode)
	assert.False(t, rows[0].Quantity.Valid)
	assert.Equal(t, "", rows[0].Supplier)
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in    string
		want  float64
		valid bool
	}{
		{"12", 12, true},
		{" 1,250.50 ", 1250.5, true},
		{"-3", -3, true},
		{"", 0, false},
		{"n/a", 0, false},
		{"NaN", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseNumber(tt.in)
			assert.Equal(t, tt.valid, got.Valid)
			if tt.valid {
				assert.Equal(t, tt.want, got.Float64)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2024-01-05", "2024-01-05"},
		{"2024-01-05 13:45:00", "2024-01-05"},
		{"01/05/2024", "2024-01-05"},
		{"5 Jan 2024", "2024-01-05"},
		{"45296", "2024-01-05"},
		{"45296.75", "2024-01-05"},
		{"", ""},
		{"0", ""},
		{"yesterday", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseDate(tt.in, false)
			if tt.want == "" {
				assert.False(t, got.Valid)
				return
			}
			require.True(t, got.Valid)
			assert.Equal(t, tt.want, got.Time.Format("2006-01-02"))
		})
	}
}
