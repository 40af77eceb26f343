//-------------------------------------------------------------------------
//
// pgEdge DuckLens
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package testutil provides utilities for integration testing against a
// live PostgreSQL server.
package testutil

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgEdge/pgedge-ducklens/internal/db"
)

const (
	// DefaultTestConnString is used when PGEDGE_TEST_CONN is not set.
	DefaultTestConnString = "postgres://postgres@localhost:5432/postgres"

	// TestDBPrefix is the prefix for throwaway test databases.
	TestDBPrefix = "ducklens_test_"
)

// BaseConnString returns the server connection string for tests.
func BaseConnString() string {
	if s := os.Getenv("PGEDGE_TEST_CONN"); s != "" {
		return s
	}
	return DefaultTestConnString
}

// PostgresAvailable reports whether the test server accepts connections.
func PostgresAvailable(connStr string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := db.ConnectWithMaxConns(ctx, connStr, 1)
	if err != nil {
		return false
	}
	pool.Close()
	return true
}

// TestDB is a throwaway database created for one test.
type TestDB struct {
	Name    string
	ConnStr string
	Pool    *pgxpool.Pool

	t       *testing.T
	baseStr string
}

// NewTestDB creates a fresh database, connects to it and registers its
// cleanup with t. The test is skipped when no server is reachable.
func NewTestDB(t *testing.T, suffix string) *TestDB {
	t.Helper()

	base := BaseConnString()
	if !PostgresAvailable(base) {
		t.Skip("PostgreSQL not available, skipping integration test")
	}

	name := TestDBPrefix + suffix + "_" + strings.ReplaceAll(uuid.NewString()[:13], "-", "")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	admin, err := db.ConnectWithMaxConns(ctx, base, 1)
	if err != nil {
		t.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer admin.Close()

	if _, err := admin.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize()); err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	connStr, err := withDatabase(base, name)
	if err != nil {
		t.Fatalf("Failed to build test connection string: %v", err)
	}

	tdb := &TestDB{Name: name, ConnStr: connStr, t: t, baseStr: base}
	t.Cleanup(tdb.cleanup)

	tdb.Pool, err = db.Connect(ctx, connStr)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	return tdb
}

// withDatabase swaps the database name of a URL or keyword/value
// connection string.
func withDatabase(connStr, name string) (string, error) {
	if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
		u, err := url.Parse(connStr)
		if err != nil {
			return "", fmt.Errorf("failed to parse connection string: %w", err)
		}
		u.Path = "/" + name
		return u.String(), nil
	}

	var parts []string
	for _, field := range strings.Fields(connStr) {
		if !strings.HasPrefix(field, "dbname=") {
			parts = append(parts, field)
		}
	}
	return strings.Join(append(parts, "dbname="+name), " "), nil
}

// CountRows returns the number of rows in a table or view.
func (d *TestDB) CountRows(relation string) int64 {
	d.t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var n int64
	if err := d.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+relation).Scan(&n); err != nil {
		d.t.Fatalf("Failed to count rows in %s: %v", relation, err)
	}
	return n
}

// cleanup closes the pool and drops the database. On failure the
// database is kept for diagnostics.
func (d *TestDB) cleanup() {
	if d.Pool != nil {
		d.Pool.Close()
	}
	if d.t.Failed() {
		d.t.Logf("Test failed - keeping database %s for diagnostics", d.Name)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	admin, err := db.ConnectWithMaxConns(ctx, d.baseStr, 1)
	if err != nil {
		d.t.Logf("Warning: Failed to connect to drop test database: %v", err)
		return
	}
	defer admin.Close()

	_, err = admin.Exec(ctx, "DROP DATABASE IF EXISTS "+pgx.Identifier{d.Name}.Sanitize()+" WITH (FORCE)")
	if err != nil {
		d.t.Logf("Warning: Failed to drop test database: %v", err)
	}
}
