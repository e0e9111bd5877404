package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDB opens a migrated sqlite database in a temp dir.
func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	ctx := context.Background()

	db, err := Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "qb.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = MigrateUp(ctx, db)
	require.NoError(t, err)
	return db
}

func TestParseURL(t *testing.T) {
	tests := []struct {
		url        string
		driver     string
		dataSource string
		wantErr    bool
	}{
		{"sqlite://qb.db", "sqlite3", "file:qb.db?_busy_timeout=5000", false},
		{"sqlite://data/qb.db", "sqlite3", "file:data/qb.db?_busy_timeout=5000", false},
		{"sqlite:///var/lib/qb.db", "sqlite3", "file:/var/lib/qb.db?_busy_timeout=5000", false},
		{"postgres://qb@localhost/qb?sslmode=disable", "postgres", "postgres://qb@localhost/qb?sslmode=disable", false},
		{"sqlite://", "", "", true},
		{"mysql://localhost/qb", "", "", true},
		{"://bad", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			driver, ds, err := parseURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.driver, driver)
			assert.Equal(t, tt.dataSource, ds)
		})
	}
}

func TestOpen_UnsupportedScheme(t *testing.T) {
	_, err := Open(context.Background(), "mysql://localhost/qb")
	assert.ErrorContains(t, err, "unsupported database scheme")
}
