// Package api provides the compile service shared by the gRPC, HTTP and CLI surfaces.
package api

import (
	"fmt"
	"log/slog"

	"github.com/solatis/querybuilder/internal/core/db"
	"github.com/solatis/querybuilder/internal/rules"
)

// CompilerService compiles rule trees against the current schema and manages saved
// queries. Thin orchestration layer over rules.Engine and db.Store.
type CompilerService struct {
	engine *rules.Engine
	store  *db.Store
	logger *slog.Logger
}

// NewCompilerService creates a service. store may be nil, in which case saved-query
// operations fail with codes.Unimplemented.
func NewCompilerService(engine *rules.Engine, store *db.Store, logger *slog.Logger) (*CompilerService, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CompilerService{
		engine: engine,
		store:  store,
		logger: logger,
	}, nil
}

// SchemaChecksum identifies the schema currently in force.
func (s *CompilerService) SchemaChecksum() string {
	return s.engine.Model().Checksum()
}
