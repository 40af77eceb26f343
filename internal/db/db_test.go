package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgEdge/pgedge-ducklens/pkg/version"
)

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.Background(), nil, "dw", "fact_sales_enriched", []string{"a"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"staging", "stg_sales_raw"}, []string{"a", "b"}).WillReturnResult(2)

	n, err := CopyFrom(context.Background(), mock, "staging", "stg_sales_raw",
		[]string{"a", "b"}, [][]any{{1, "x"}, {2, "y"}})
	assert.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom(pgx.Identifier{"dw", "fact"}, []string{"a"}).WillReturnError(fmt.Errorf("permission denied"))

	_, err = CopyFrom(context.Background(), mock, "dw", "fact", []string{"a"}, [][]any{{1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dw.fact")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveMetadata(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS etl_metadata").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("INSERT INTO etl_metadata").
		WithArgs(KeyLastRunID, "abc").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO etl_metadata").
		WithArgs(KeyVersion, version.Short()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = SaveMetadata(context.Background(), mock, map[string]string{KeyLastRunID: "abc"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveMetadata_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS etl_metadata").
		WillReturnError(fmt.Errorf("read-only transaction"))

	err = SaveMetadata(context.Background(), mock, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create metadata table")
}

func TestGetMetadataValue(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT value FROM etl_metadata").
		WithArgs(KeyLastRunRows).
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow("1200"))
	mock.ExpectQuery("SELECT value FROM etl_metadata").
		WithArgs(KeyLastRunID).
		WillReturnRows(pgxmock.NewRows([]string{"value"}))

	v, err := GetMetadataValue(context.Background(), mock, KeyLastRunRows)
	require.NoError(t, err)
	assert.Equal(t, "1200", v)

	_, err = GetMetadataValue(context.Background(), mock, KeyLastRunID)
	assert.ErrorIs(t, err, ErrNoMetadata)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAllMetadata(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT key, value FROM etl_metadata").
		WillReturnRows(pgxmock.NewRows([]string{"key", "value"}).
			AddRow(KeyVersion, "1.0.0").
			AddRow(KeyLastRunRows, "42"))

	m, err := GetAllMetadata(context.Background(), mock)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{KeyVersion: "1.0.0", KeyLastRunRows: "42"}, m)
	assert.NoError(t, mock.ExpectationsWereMet())
}
