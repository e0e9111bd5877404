// internal/rules/engine.go
package rules

import (
	"github.com/solatis/querybuilder/internal/schema"
	"github.com/solatis/querybuilder/internal/types"
)

// Engine compiles rule trees against the model currently published by a schema.Holder.
// Each call takes one model snapshot, so a concurrent reload is seen whole or not at all.
// Safe for concurrent use.
type Engine struct {
	holder *schema.Holder
}

// NewEngine creates an engine reading models from holder.
func NewEngine(holder *schema.Holder) *Engine {
	return &Engine{holder: holder}
}

// Model returns the current schema snapshot.
func (e *Engine) Model() *schema.Model {
	return e.holder.Load()
}

// Compile renders tree against the current schema.
func (e *Engine) Compile(tree *types.GroupNode) (string, error) {
	return Compile(e.holder.Load(), tree)
}

// CompileWithStats renders tree against the current schema and reports tree statistics
// plus the checksum of the schema used.
func (e *Engine) CompileWithStats(tree *types.GroupNode) (string, Stats, string, error) {
	model := e.holder.Load()
	out, stats, err := CompileWithStats(model, tree)
	return out, stats, model.Checksum(), err
}
