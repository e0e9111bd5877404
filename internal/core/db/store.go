package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/solatis/querybuilder/internal/types"
)

// Store persists saved queries. It stores what it is given; compiling a tree before saving
// is the caller's job.
type Store struct {
	q   *Queries
	now func() time.Time
}

// savedQueryRow is the column layout of saved_queries. Timestamps travel as RFC3339 text
// so the same row type serves both drivers.
type savedQueryRow struct {
	ID             string `db:"query_id"`
	Name           string `db:"name"`
	Tree           string `db:"tree"`
	Compiled       string `db:"compiled"`
	SchemaChecksum string `db:"schema_checksum"`
	CreatedAt      string `db:"created_at"`
	UpdatedAt      string `db:"updated_at"`
}

// NewStore loads the named queries for db. Migrations must already be applied.
func NewStore(db *sqlx.DB) (*Store, error) {
	q, err := LoadQueries(db)
	if err != nil {
		return nil, err
	}
	return &Store{q: q, now: time.Now}, nil
}

// Save inserts sq, or replaces the tree, compiled text and checksum of the saved query
// with the same name. The stored record is returned; an existing record keeps its id and
// creation time.
func (s *Store) Save(ctx context.Context, sq *types.SavedQuery) (*types.SavedQuery, error) {
	name := strings.TrimSpace(sq.Name)
	if name == "" {
		return nil, types.ErrInvalidQueryName
	}
	if sq.Tree == nil {
		return nil, fmt.Errorf("saved query %q: %w", name, types.ErrEmptyNode)
	}

	tree, err := json.Marshal(sq.Tree)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tree: %w", err)
	}

	id := sq.ID
	if id == "" {
		id = types.NewQueryID()
	}
	now := s.now().UTC().Format(time.RFC3339)

	_, err = s.q.Exec(ctx, "upsert-saved-query",
		string(id), name, string(tree), sq.Compiled, sq.SchemaChecksum, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to save query %q: %w", name, err)
	}

	return s.getBy(ctx, "get-saved-query-by-name", name)
}

// Get returns the saved query with the given id or, when ref is not a query id, name.
func (s *Store) Get(ctx context.Context, ref string) (*types.SavedQuery, error) {
	if id, err := types.ParseQueryID(ref); err == nil {
		sq, err := s.getBy(ctx, "get-saved-query-by-id", string(id))
		if !errors.Is(err, types.ErrSavedQueryNotFound) {
			return sq, err
		}
	}
	return s.getBy(ctx, "get-saved-query-by-name", ref)
}

// List returns every saved query, oldest first.
func (s *Store) List(ctx context.Context) ([]*types.SavedQuery, error) {
	var rows []savedQueryRow
	if err := s.q.Select(ctx, "list-saved-queries", &rows); err != nil {
		return nil, fmt.Errorf("failed to list saved queries: %w", err)
	}

	out := make([]*types.SavedQuery, 0, len(rows))
	for _, r := range rows {
		sq, err := r.decode()
		if err != nil {
			return nil, err
		}
		out = append(out, sq)
	}
	return out, nil
}

// Delete removes the saved query with the given id or name.
func (s *Store) Delete(ctx context.Context, ref string) error {
	sq, err := s.Get(ctx, ref)
	if err != nil {
		return err
	}
	if _, err := s.q.Exec(ctx, "delete-saved-query", string(sq.ID)); err != nil {
		return fmt.Errorf("failed to delete query %q: %w", sq.Name, err)
	}
	return nil
}

func (s *Store) getBy(ctx context.Context, query, arg string) (*types.SavedQuery, error) {
	var row savedQueryRow
	if err := s.q.Get(ctx, query, &row, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", types.ErrSavedQueryNotFound, arg)
		}
		return nil, fmt.Errorf("failed to load query %q: %w", arg, err)
	}
	return row.decode()
}

func (r savedQueryRow) decode() (*types.SavedQuery, error) {
	var tree types.GroupNode
	if err := json.Unmarshal([]byte(r.Tree), &tree); err != nil {
		return nil, fmt.Errorf("saved query %q: corrupt tree: %w", r.Name, err)
	}

	sq := &types.SavedQuery{
		ID:             types.QueryID(r.ID),
		Name:           r.Name,
		Tree:           &tree,
		Compiled:       r.Compiled,
		SchemaChecksum: r.SchemaChecksum,
	}

	var err error
	if sq.CreatedAt, err = time.Parse(time.RFC3339, r.CreatedAt); err != nil {
		return nil, fmt.Errorf("saved query %q: bad created_at: %w", r.Name, err)
	}
	if sq.UpdatedAt, err = time.Parse(time.RFC3339, r.UpdatedAt); err != nil {
		return nil, fmt.Errorf("saved query %q: bad updated_at: %w", r.Name, err)
	}
	return sq, nil
}
