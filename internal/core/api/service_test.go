package api_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/querybuilder/internal/core/api"
	"github.com/solatis/querybuilder/internal/core/db"
	"github.com/solatis/querybuilder/internal/rules"
	"github.com/solatis/querybuilder/internal/schema"
	"github.com/solatis/querybuilder/internal/types"
)

const (
	demoYAML = "../../../testdata/demo.yaml"
	demoCUE  = "../../../testdata/demo.cue"
)

type fixture struct {
	holder  *schema.Holder
	service *api.CompilerService
}

func newFixture(t *testing.T, withStore bool) *fixture {
	t.Helper()
	model, err := schema.Load(demoYAML, rules.Builtins())
	require.NoError(t, err)
	holder := schema.NewHolder(model)

	var store *db.Store
	if withStore {
		ctx := context.Background()
		database, err := db.Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "qb.db"))
		require.NoError(t, err)
		t.Cleanup(func() { database.Close() })
		_, err = db.MigrateUp(ctx, database)
		require.NoError(t, err)
		store, err = db.NewStore(database)
		require.NoError(t, err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service, err := api.NewCompilerService(rules.NewEngine(holder), store, logger)
	require.NoError(t, err)
	return &fixture{holder: holder, service: service}
}

func notEqualTree() *types.GroupNode {
	return &types.GroupNode{
		Conjunction: "AND",
		Children: []types.Node{
			{Rule: &types.RuleNode{Field: "name", Operator: "not_equal", Values: []any{"foo"}}},
		},
	}
}

func TestNewCompilerService_RequiresEngine(t *testing.T) {
	_, err := api.NewCompilerService(nil, nil, nil)
	assert.Error(t, err)
}

func TestCompileTree(t *testing.T) {
	f := newFixture(t, false)

	res, err := f.service.CompileTree(context.Background(), notEqualTree())
	require.NoError(t, err)
	assert.Equal(t, "name!=foo", res.Query)
	assert.Equal(t, 1, res.Stats.Rules)
	assert.Equal(t, 1, res.Stats.Groups)
	assert.Equal(t, f.holder.Load().Checksum(), res.SchemaChecksum)
}

func TestCompileTree_CancelledContext(t *testing.T) {
	f := newFixture(t, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.service.CompileTree(ctx, notEqualTree())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, codes.Canceled, api.Code(err))
}

func TestDecodeTree(t *testing.T) {
	tree, err := api.DecodeTree([]byte(`{"conjunction":"OR","children":[{"type":"rule","field":"name","operator":"equal","values":["x"]}]}`))
	require.NoError(t, err)
	assert.Equal(t, "OR", tree.Conjunction)
	require.Len(t, tree.Children, 1)
	assert.Equal(t, "name", tree.Children[0].Rule.Field)

	tests := map[string]string{
		"not json":     `{`,
		"rule as root": `{"type":"rule","field":"name","operator":"equal","values":["x"]}`,
		"unknown type": `{"children":[{"type":"leaf"}]}`,
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := api.DecodeTree([]byte(src))
			require.Error(t, err)
			assert.Equal(t, codes.InvalidArgument, api.Code(err))
		})
	}
}

func TestCompile_GRPCHandler(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	req, err := api.TreeRequest(map[string]any{
		"type":        "group",
		"conjunction": "AND",
		"children": []any{
			map[string]any{
				"type":            "rule",
				"field":           "members.subname",
				"operator":        "proximity",
				"values":          []any{"hello world", "foo"},
				"operatorOptions": map[string]any{"proximity": 3},
			},
		},
	})
	require.NoError(t, err)

	out, err := f.service.Compile(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, `members.subname:"(\"hello world\") (foo)"~3`, out.GetValue())
}

func TestCompile_GRPCErrors(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	t.Run("missing tree", func(t *testing.T) {
		_, err := f.service.Compile(ctx, &structpb.Struct{})
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("cardinality mismatch", func(t *testing.T) {
		req, err := api.TreeRequest(map[string]any{
			"children": []any{
				map[string]any{"type": "rule", "id": "r1", "field": "name", "operator": "equal", "values": []any{}},
			},
		})
		require.NoError(t, err)

		_, err = f.service.Compile(ctx, req)
		st, ok := status.FromError(err)
		require.True(t, ok)
		assert.Equal(t, codes.InvalidArgument, st.Code())
		assert.Equal(t, `rule r1 field=name operator=equal: cardinality mismatch: "equal" takes 1 values, got 0`, st.Message())
	})
}

func TestSavedQueries(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	saved, err := f.service.SaveQuery(ctx, "not foo", notEqualTree())
	require.NoError(t, err)
	assert.Equal(t, "name!=foo", saved.Compiled)
	assert.Equal(t, f.holder.Load().Checksum(), saved.SchemaChecksum)

	got, err := f.service.GetQuery(ctx, "not foo", false)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, got.ID)

	list, err := f.service.ListQueries(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, f.service.DeleteQuery(ctx, string(saved.ID)))
	_, err = f.service.GetQuery(ctx, "not foo", false)
	assert.ErrorIs(t, err, types.ErrSavedQueryNotFound)
	assert.Equal(t, codes.NotFound, api.Code(err))
}

func TestSaveQuery_RejectsUncompilableTree(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	bad := &types.GroupNode{Children: []types.Node{
		{Rule: &types.RuleNode{Field: "nope", Operator: "equal", Values: []any{"x"}}},
	}}
	_, err := f.service.SaveQuery(ctx, "broken", bad)
	assert.ErrorIs(t, err, types.ErrFieldNotFound)

	list, err := f.service.ListQueries(ctx)
	require.NoError(t, err)
	assert.Empty(t, list, "a tree that does not compile is never stored")
}

func TestGetQuery_Recompile(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	saved, err := f.service.SaveQuery(ctx, "q", notEqualTree())
	require.NoError(t, err)

	cueModel, err := schema.Load(demoCUE, rules.Builtins())
	require.NoError(t, err)
	f.holder.Swap(cueModel)

	fresh, err := f.service.GetQuery(ctx, "q", true)
	require.NoError(t, err)
	assert.Equal(t, "name!=foo", fresh.Compiled)
	assert.Equal(t, cueModel.Checksum(), fresh.SchemaChecksum)

	stored, err := f.service.GetQuery(ctx, "q", false)
	require.NoError(t, err)
	assert.Equal(t, saved.SchemaChecksum, stored.SchemaChecksum, "recompiling does not rewrite the record")
	assert.NotEqual(t, stored.SchemaChecksum, fresh.SchemaChecksum)
}

func TestSavedQueries_WithoutStore(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.service.ListQueries(context.Background())
	assert.Equal(t, codes.Unimplemented, api.Code(err))
	assert.Equal(t, http.StatusNotImplemented, api.HTTPStatus(err))
}

func TestCodeMapping(t *testing.T) {
	compileErr := &types.CompileError{NodeID: "g1", Depth: 11, Err: types.ErrNestingTooDeep}

	tests := []struct {
		name string
		err  error
		code codes.Code
		http int
	}{
		{"nil", nil, codes.OK, http.StatusOK},
		{"compile error", compileErr, codes.InvalidArgument, http.StatusBadRequest},
		{"wrapped compile error", fmt.Errorf("outer: %w", compileErr), codes.InvalidArgument, http.StatusBadRequest},
		{"bad name", types.ErrInvalidQueryName, codes.InvalidArgument, http.StatusBadRequest},
		{"not found", types.ErrSavedQueryNotFound, codes.NotFound, http.StatusNotFound},
		{"deadline", context.DeadlineExceeded, codes.DeadlineExceeded, http.StatusGatewayTimeout},
		{"other", errors.New("disk on fire"), codes.Internal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, api.Code(tt.err))
			assert.Equal(t, tt.http, api.HTTPStatus(tt.err))
		})
	}

	st, ok := status.FromError(api.GRPCError(compileErr))
	require.True(t, ok)
	assert.Equal(t, "group g1: nesting too deep", st.Message())
}
