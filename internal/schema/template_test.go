package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solatis/querybuilder/internal/rules"
	"github.com/solatis/querybuilder/internal/schema"
	"github.com/solatis/querybuilder/internal/types"
)

const templateSchema = `
conjunctions:
  AND: {}
fields:
  name:
    widget: text
    operators: [like]
  color:
    widget: select
    operators: [color_is]
    listValues:
      green: Green
  words:
    widget: text
    operators: [near, wild, sum]
operators:
  like:
    template: 'field + ":" + quote(values[0])'
  color_is:
    template: 'field + ":" + label(values[0])'
  near:
    cardinality: 2
    template: 'field + ":\"" + phrase(values) + "\"~" + str(options.window)'
    options:
      defaults:
        window: 4
  wild:
    cardinality: 2
    builtin: complexQuery
    valueOptions:
      operators:
        fuzzy:
          template: 'value + "?"'
      defaults:
        operator: fuzzy
  sum:
    template: '1 + 2'
widgets:
  text:
    operators: [like, near, wild, sum]
  select:
    operators: [color_is]
settings: {}
`

func TestTemplates_Compile(t *testing.T) {
	model, err := schema.New(parseYAML(t, templateSchema), rules.Builtins())
	require.NoError(t, err)

	tests := []struct {
		name string
		rule *types.RuleNode
		want string
	}{
		{"quote helper", &types.RuleNode{Field: "name", Operator: "like", Values: []any{"hello there"}}, `name:"hello there"`},
		{"label helper", &types.RuleNode{Field: "color", Operator: "color_is", Values: []any{"green"}}, "color:Green"},
		{"phrase helper and options", &types.RuleNode{Field: "words", Operator: "near", Values: []any{"a b", "c"}}, `words:"(\"a b\") (c)"~4`},
		{
			"rule options override defaults",
			&types.RuleNode{Field: "words", Operator: "near", Values: []any{"a", "c"}, OperatorOptions: types.Options{"window": 1}},
			`words:"(a) (c)"~1`,
		},
		{"sub-operator template", &types.RuleNode{Field: "words", Operator: "wild", Values: []any{"ab", "cd"}}, `{!complexphrase}words:"(ab?) (cd?)"~2`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := rules.CompileRule(model, tt.rule)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTemplates_RuntimeErrors(t *testing.T) {
	model, err := schema.New(parseYAML(t, templateSchema), rules.Builtins())
	require.NoError(t, err)

	_, err = rules.CompileRule(model, &types.RuleNode{Field: "color", Operator: "color_is", Values: []any{"purple"}})
	var ce *types.CompileError
	require.ErrorAs(t, err, &ce)
	assert.ErrorContains(t, err, "unknown list value")

	_, err = rules.CompileRule(model, &types.RuleNode{Field: "words", Operator: "sum", Values: []any{"x"}})
	assert.ErrorIs(t, err, types.ErrInvalidValue, "non-string template result")
}

func TestTemplates_InvalidAtConstruction(t *testing.T) {
	cfg := parseYAML(t, `
conjunctions:
  AND: {}
fields:
  name:
    widget: text
operators:
  broken:
    template: 'field +'
  unknown_var:
    template: 'nope + field'
  wild:
    cardinality: 2
    builtin: complexQuery
    valueOptions:
      operators:
        bad:
          template: 'value +'
        missing:
          builtin: nowhere
      defaults:
        operator: absent
widgets:
  text:
    operators: [broken]
settings: {}
`)

	_, err := schema.New(cfg, rules.Builtins())
	require.Error(t, err)

	var se *types.SchemaError
	require.ErrorAs(t, err, &se)
	assert.ErrorIs(t, err, types.ErrInvalidTemplate)
	assert.ErrorIs(t, err, types.ErrCompileFuncNotFound)
	assert.ErrorIs(t, err, types.ErrUnknownSubOperator)
	assert.Contains(t, err.Error(), "operators.broken.template")
	assert.Contains(t, err.Error(), "operators.unknown_var.template")
	assert.Contains(t, err.Error(), "operators.wild.valueOptions.operators.bad.template")
	assert.Contains(t, err.Error(), "operators.wild.valueOptions.operators.missing")
}
