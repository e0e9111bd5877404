package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/solatis/querybuilder/internal/rules"
	"github.com/solatis/querybuilder/internal/types"
)

// errBadRequest marks requests that never reached the compiler.
var errBadRequest = errors.New("bad request")

// CompileResult is a compiled tree plus diagnostics about the run.
type CompileResult struct {
	Query          string
	Stats          rules.Stats
	SchemaChecksum string
}

// DecodeTree parses a JSON rule tree. The root must be a group; its "type" tag may be
// omitted.
func DecodeTree(data []byte) (*types.GroupNode, error) {
	var head struct {
		Type types.NodeType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: tree: %v", errBadRequest, err)
	}
	if head.Type != "" && head.Type != types.NodeGroup {
		return nil, fmt.Errorf("%w: root node must be a group, got %q", errBadRequest, head.Type)
	}

	var tree types.GroupNode
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("%w: tree: %w", errBadRequest, err)
	}
	return &tree, nil
}

// CompileTree compiles tree against the current schema snapshot.
func (s *CompilerService) CompileTree(ctx context.Context, tree *types.GroupNode) (*CompileResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query, stats, checksum, err := s.engine.CompileWithStats(tree)
	if err != nil {
		s.logCompileError(ctx, err)
		return nil, err
	}

	s.logger.DebugContext(ctx, "compiled rule tree",
		slog.Int("rules", stats.Rules),
		slog.Int("groups", stats.Groups),
		slog.Int("depth", stats.MaxDepth),
		slog.String("schema", checksum))

	return &CompileResult{Query: query, Stats: stats, SchemaChecksum: checksum}, nil
}

// Compile implements the gRPC Compile method. The request carries the tree under "tree".
func (s *CompilerService) Compile(ctx context.Context, req *structpb.Struct) (*wrapperspb.StringValue, error) {
	raw, ok := req.GetFields()["tree"]
	if !ok {
		return nil, GRPCError(fmt.Errorf("%w: missing tree", errBadRequest))
	}

	data, err := raw.MarshalJSON()
	if err != nil {
		return nil, GRPCError(fmt.Errorf("%w: tree: %v", errBadRequest, err))
	}

	tree, err := DecodeTree(data)
	if err != nil {
		return nil, GRPCError(err)
	}

	res, err := s.CompileTree(ctx, tree)
	if err != nil {
		return nil, GRPCError(err)
	}
	return wrapperspb.String(res.Query), nil
}

func (s *CompilerService) logCompileError(ctx context.Context, err error) {
	var compileErr *types.CompileError
	if !errors.As(err, &compileErr) {
		s.logger.ErrorContext(ctx, "compile failed", slog.Any("error", err))
		return
	}
	s.logger.InfoContext(ctx, "rule tree rejected",
		slog.String("node", string(compileErr.NodeID)),
		slog.String("field", compileErr.Field),
		slog.String("operator", compileErr.Operator),
		slog.Int("depth", compileErr.Depth),
		slog.Any("error", compileErr.Err))
}
