// Package types provides the schema and rule-tree models shared across querybuilder components.
//
// Schema types (FieldSchema, OperatorSchema, WidgetSchema, ConjunctionSchema, Settings) are
// decoded from configuration by internal/schema and are read-only once a Model is built.
// Rule-tree types (RuleNode, GroupNode) are produced by an external editor and handed to
// internal/rules as an immutable snapshot per compile call.
//
// Ordering: every mapping that affects compiled output (fields, subfields, listValues,
// operators, sub-operators) uses OrderedMap so declaration order survives decoding.
package types

import (
	"github.com/spf13/cast"
)

// Resource limits enforced by schema construction and compilation.
const (
	// DefaultMaxNesting applies when settings.maxNesting is omitted.
	// Matches the demo editor configuration.
	DefaultMaxNesting = 10

	// MaxNestingCeiling bounds settings.maxNesting so recursion depth stays small
	// regardless of configuration.
	MaxNestingCeiling = 64

	// MaxPathDepth bounds struct nesting in field paths.
	MaxPathDepth = 16

	// MaxSelectValues limits the number of keys a multi-select value may carry.
	MaxSelectValues = 64
)

// StructWidget marks a field that only groups subfields and is never queryable itself.
const StructWidget = "!struct"

// Options is an operator-scoped or slot-scoped option bag (e.g. {"proximity": 2}).
type Options map[string]any

// Merge returns a new bag holding o overlaid with over. Neither input is modified.
func (o Options) Merge(over Options) Options {
	merged := make(Options, len(o)+len(over))
	for k, v := range o {
		merged[k] = v
	}
	for k, v := range over {
		merged[k] = v
	}
	return merged
}

// String returns the option as text, or def when absent.
func (o Options) String(key, def string) string {
	v, ok := o[key]
	if !ok || v == nil {
		return def
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return def
	}
	return s
}

// Int returns the option as an int, or def when absent.
// A present value that is not integral, including a bool, is an error rather than a silent default.
func (o Options) Int(key string, def int) (int, error) {
	v, ok := o[key]
	if !ok || v == nil {
		return def, nil
	}
	switch x := v.(type) {
	case bool:
		return 0, ErrInvalidValue
	case float64:
		if x != float64(int(x)) {
			return 0, ErrInvalidValue
		}
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, ErrInvalidValue
	}
	return n, nil
}

// CompileFunc renders one rule into a query fragment.
//
// Every operator is invoked with the same positional arguments so operators can be swapped
// and composed without the compiler knowing operator-specific shapes:
//
//	values       rule values, len(values) == operator cardinality
//	field        field key joined with the storage separator
//	opts         operator defaults merged with rule overrides
//	valueOpts    per-slot options (e.g. sub-operator selection)
//	op           operator name
//	model        the schema model the rule is compiled against
//	def          the resolved leaf field
type CompileFunc func(values []any, field string, opts Options, valueOpts map[int]Options, op string, model Model, def *FieldSchema) (string, error)

// TransformFunc rewrites a single slot value for a composite operator.
type TransformFunc func(value string) (string, error)

// Model is the read-only schema view handed to compile functions.
// Implemented by *schema.Model.
type Model interface {
	ResolveField(path []string) (*FieldSchema, error)
	ResolveOperator(name string) (*OperatorSchema, error)
	ResolveWidget(widgetType string) (*WidgetSchema, error)
	Conjunction(name string) (*ConjunctionSchema, error)
	Settings() Settings
}
