package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/solatis/querybuilder/internal/core/api"
	"github.com/solatis/querybuilder/internal/core/config"
	"github.com/solatis/querybuilder/internal/core/db"
	"github.com/solatis/querybuilder/internal/rules"
	"github.com/solatis/querybuilder/internal/schema"
	"github.com/solatis/querybuilder/internal/types"
)

// loadHolder loads the configured schema into a fresh holder.
func loadHolder(cfg *config.ServiceConfig) (*schema.Holder, error) {
	if err := cfg.RequireSchema(); err != nil {
		return nil, err
	}
	model, err := schema.Load(cfg.SchemaPath, rules.Builtins())
	if err != nil {
		return nil, err
	}
	slog.Debug("schema loaded",
		slog.String("path", cfg.SchemaPath),
		slog.String("checksum", model.Checksum()))
	return schema.NewHolder(model), nil
}

// openStore opens the saved-query store. Migrations must have been applied.
func openStore(ctx context.Context, cfg *config.ServiceConfig) (*db.Store, func() error, error) {
	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	statuses, err := db.MigrateStatus(ctx, database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to check migrations: %w", err)
	}
	for _, s := range statuses {
		if !s.Applied {
			database.Close()
			return nil, nil, fmt.Errorf("migration %s not applied - run 'querybuilder migrate' first", s.ID)
		}
	}

	store, err := db.NewStore(database)
	if err != nil {
		database.Close()
		return nil, nil, err
	}
	return store, database.Close, nil
}

// newService wires a compile service; withStore opens the saved-query store too.
func newService(ctx context.Context, cfg *config.ServiceConfig, withStore bool) (*api.CompilerService, *schema.Holder, func() error, error) {
	holder, err := loadHolder(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	var store *db.Store
	closeFn := func() error { return nil }
	if withStore {
		if store, closeFn, err = openStore(ctx, cfg); err != nil {
			return nil, nil, nil, err
		}
	}

	service, err := api.NewCompilerService(rules.NewEngine(holder), store, slog.Default())
	if err != nil {
		closeFn()
		return nil, nil, nil, err
	}
	return service, holder, closeFn, nil
}

// readTree reads a JSON rule tree from path, or stdin when path is "-" or empty.
func readTree(path string, stdin io.Reader) (*types.GroupNode, error) {
	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read tree: %w", err)
	}
	return api.DecodeTree(data)
}
