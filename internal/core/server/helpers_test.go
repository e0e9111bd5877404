package server_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/solatis/querybuilder/internal/core/api"
	"github.com/solatis/querybuilder/internal/core/config"
	"github.com/solatis/querybuilder/internal/core/db"
	"github.com/solatis/querybuilder/internal/rules"
	"github.com/solatis/querybuilder/internal/schema"
)

const demoYAML = "../../../testdata/demo.yaml"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.ServiceConfig {
	cfg := config.DefaultServiceConfig()
	cfg.Host = "127.0.0.1"
	cfg.RequestTimeout = 5 * time.Second
	return cfg
}

// newService builds a compile service over the demo schema and a fresh sqlite store.
func newService(t *testing.T) *api.CompilerService {
	t.Helper()
	ctx := context.Background()

	model, err := schema.Load(demoYAML, rules.Builtins())
	require.NoError(t, err)

	database, err := db.Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "qb.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	_, err = db.MigrateUp(ctx, database)
	require.NoError(t, err)
	store, err := db.NewStore(database)
	require.NoError(t, err)

	service, err := api.NewCompilerService(rules.NewEngine(schema.NewHolder(model)), store, testLogger())
	require.NoError(t, err)
	return service
}
