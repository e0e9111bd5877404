package api

import (
	"context"
	"log/slog"

	"github.com/solatis/querybuilder/internal/types"
)

// SaveQuery compiles tree and stores it under name together with the compiled text and
// the schema checksum. A tree that does not compile is never stored.
func (s *CompilerService) SaveQuery(ctx context.Context, name string, tree *types.GroupNode) (*types.SavedQuery, error) {
	if s.store == nil {
		return nil, errNoStore
	}

	res, err := s.CompileTree(ctx, tree)
	if err != nil {
		return nil, err
	}

	saved, err := s.store.Save(ctx, &types.SavedQuery{
		Name:           name,
		Tree:           tree,
		Compiled:       res.Query,
		SchemaChecksum: res.SchemaChecksum,
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "saved query",
		slog.String("query_id", string(saved.ID)),
		slog.String("name", saved.Name))
	return saved, nil
}

// GetQuery returns a saved query by id or name. With recompile set, the stored tree is
// compiled against the current schema and Compiled/SchemaChecksum reflect that run; the
// stored record is left unchanged.
func (s *CompilerService) GetQuery(ctx context.Context, ref string, recompile bool) (*types.SavedQuery, error) {
	if s.store == nil {
		return nil, errNoStore
	}

	saved, err := s.store.Get(ctx, ref)
	if err != nil || !recompile {
		return saved, err
	}

	res, err := s.CompileTree(ctx, saved.Tree)
	if err != nil {
		return nil, err
	}
	saved.Compiled = res.Query
	saved.SchemaChecksum = res.SchemaChecksum
	return saved, nil
}

// ListQueries returns every saved query, oldest first.
func (s *CompilerService) ListQueries(ctx context.Context) ([]*types.SavedQuery, error) {
	if s.store == nil {
		return nil, errNoStore
	}
	return s.store.List(ctx)
}

// DeleteQuery removes a saved query by id or name.
func (s *CompilerService) DeleteQuery(ctx context.Context, ref string) error {
	if s.store == nil {
		return errNoStore
	}
	return s.store.Delete(ctx, ref)
}
