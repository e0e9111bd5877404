package schema

import "github.com/solatis/querybuilder/internal/types"

// Config is the declarative schema as read from a configuration file, before validation.
// All five keys are required; an absent or empty key is reported by New.
type Config struct {
	Conjunctions types.OrderedMap[*types.ConjunctionSchema] `yaml:"conjunctions"`
	Fields       types.OrderedMap[*types.FieldSchema]       `yaml:"fields"`
	Operators    types.OrderedMap[*types.OperatorSchema]    `yaml:"operators"`
	Widgets      types.OrderedMap[*types.WidgetSchema]      `yaml:"widgets"`
	Settings     *types.Settings                            `yaml:"settings"`
}
