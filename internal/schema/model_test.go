package schema_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solatis/querybuilder/internal/rules"
	"github.com/solatis/querybuilder/internal/schema"
	"github.com/solatis/querybuilder/internal/types"
)

const demoSchemaPath = "../../testdata/demo.yaml"

func parseYAML(t *testing.T, src string) *schema.Config {
	t.Helper()
	cfg, err := schema.ParseConfig([]byte(src), schema.FormatYAML, "inline.yaml")
	require.NoError(t, err)
	return cfg
}

const minimalSchema = `
conjunctions:
  AND: {}
fields:
  name:
    widget: text
operators:
  equal: {}
widgets:
  text:
    operators: [equal]
settings: {}
`

func TestNew_Demo(t *testing.T) {
	model, err := schema.Load(demoSchemaPath, rules.Builtins())
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"members", "name", "num", "date", "time", "datetime", "color", "multicolor"},
		model.Fields().Keys(), "fields keep declaration order")
	assert.Equal(t, []string{"AND", "OR"}, model.Conjunctions().Keys())

	op, err := model.ResolveOperator("complexQuery")
	require.NoError(t, err)
	assert.Equal(t, 2, op.Cardinality)
	assert.NotNil(t, op.Compile)
	assert.Equal(t, []string{"contains", "startsWith", "endsWith"}, op.ValueOptions.Operators.Keys())
	for _, key := range op.ValueOptions.Operators.Keys() {
		sub, _ := op.ValueOptions.Operators.Get(key)
		assert.NotNil(t, sub.Transform, "sub-operator %s is bound", key)
	}

	equal, err := model.ResolveOperator("equal")
	require.NoError(t, err)
	assert.Equal(t, 1, equal.Cardinality, "omitted cardinality defaults to 1")

	w, err := model.ResolveWidget("date")
	require.NoError(t, err)
	assert.Equal(t, "ru", w.Locale)
	assert.Equal(t, "YYYY-MM-DD", w.ValueFormat)

	f, err := model.ResolveField([]string{"members", "subname"})
	require.NoError(t, err)
	assert.Equal(t, []string{"members", "subname"}, f.Path)
	assert.Equal(t, "subname", f.Label, "label defaults to key")
	assert.Equal(t, "MemberName", f.Label2)

	s := model.Settings()
	assert.Equal(t, 10, s.MaxNesting)
	assert.Equal(t, types.EmptyGroupError, s.EmptyGroup)
	assert.Equal(t, types.NegationWrap, s.Negation)
	assert.Equal(t, "NOT", s.NotToken)
	assert.Equal(t, "small", s.Editor["renderSize"], "editor settings are carried")

	assert.True(t, model.IsListBacked("select_in"))
	assert.False(t, model.IsListBacked("equal"))
	assert.Len(t, model.Checksum(), 64)
}

func TestNew_Lookups(t *testing.T) {
	model, err := schema.New(parseYAML(t, minimalSchema), rules.Builtins())
	require.NoError(t, err)

	_, err = model.ResolveField([]string{"nope"})
	assert.ErrorIs(t, err, types.ErrFieldNotFound)
	_, err = model.ResolveField(nil)
	assert.ErrorIs(t, err, types.ErrFieldNotFound)
	_, err = model.ResolveOperator("nope")
	assert.ErrorIs(t, err, types.ErrOperatorNotFound)
	_, err = model.ResolveWidget("nope")
	assert.ErrorIs(t, err, types.ErrWidgetNotFound)
	_, err = model.Conjunction("XOR")
	assert.ErrorIs(t, err, types.ErrConjunctionNotFound)

	c, err := model.Conjunction("")
	require.NoError(t, err)
	assert.Equal(t, "AND", c.Token)
	assert.Equal(t, "AND", c.Label)

	s := model.Settings()
	assert.Equal(t, types.DefaultMaxNesting, s.MaxNesting)
	assert.Equal(t, ".", s.FieldSeparator)
	assert.Equal(t, "->", s.FieldSeparatorDisplay)
	assert.Equal(t, "*:*", s.EmptyGroupMarker)
}

func TestNew_AggregatesAllIssues(t *testing.T) {
	cfg := parseYAML(t, `
conjunctions:
  AND: {}
fields:
  name:
    widget: slider
  color:
    widget: select
  group:
    widget: "!struct"
  nested:
    widget: text
    subfields:
      inner:
        widget: text
  tagged:
    widget: text
    defaultOperator: between
    valueLabels:
      equal: [a, b]
operators:
  equal: {}
  between:
    cardinality: 2
    valueLabels: [from]
  triple:
    cardinality: 3
  mystery: {}
  select_equals: {}
  proxy:
    builtin: proximity
    reversedOp: equal
    cardinality: 2
widgets:
  text:
    operators: [equal, like]
    defaultOperator: between
  select:
    operators: [select_equals]
settings:
  maxNesting: 0
  fieldSeparator: "/"
  fieldSeparatorDisplay: "/"
  setOpOnChangeField: [sometimes]
  emptyGroup: ignore
  negation: invert
  valueNormalization: nfd
`)

	_, err := schema.New(cfg, rules.Builtins())
	require.Error(t, err)

	var se *types.SchemaError
	require.True(t, errors.As(err, &se), "error %T is not a SchemaError", err)

	wantSentinels := map[string]error{
		"settings.fieldSeparatorDisplay":  types.ErrInvalidSettings,
		"settings.setOpOnChangeField":     types.ErrInvalidSettings,
		"settings.emptyGroup":             types.ErrInvalidSettings,
		"settings.negation":               types.ErrInvalidSettings,
		"settings.valueNormalization":     types.ErrInvalidSettings,
		"operators.between.valueLabels":   types.ErrInvalidSchema,
		"operators.triple":                types.ErrInvalidSchema,
		"operators.mystery":               types.ErrCompileFuncNotFound,
		"operators.proxy.reversedOp":      types.ErrInvalidSchema,
		"widgets.text.operators":          types.ErrOperatorNotFound,
		"widgets.text.defaultOperator":    types.ErrOperatorNotApplicable,
		"fields.name.widget":              types.ErrWidgetNotFound,
		"fields.color.listValues":         types.ErrInvalidSchema,
		"fields.group":                    types.ErrInvalidSchema,
		"fields.nested":                   types.ErrInvalidSchema,
		"fields.tagged.defaultOperator":   types.ErrOperatorNotApplicable,
		"fields.tagged.valueLabels.equal": types.ErrInvalidSchema,
	}

	issues := se.Issues()
	for prefix, sentinel := range wantSentinels {
		found := false
		for _, issue := range issues {
			if strings.HasPrefix(issue.Error(), prefix+":") && errors.Is(issue, sentinel) {
				found = true
				break
			}
		}
		assert.True(t, found, "missing issue %s (%v) in %v", prefix, sentinel, err)
	}
	assert.GreaterOrEqual(t, len(issues), len(wantSentinels))
	assert.ErrorIs(t, err, types.ErrWidgetNotFound, "SchemaError unwraps to every issue")
	assert.Contains(t, err.Error(), "invalid schema (")
}

func TestNew_IssueOrderIsStable(t *testing.T) {
	src := `
conjunctions:
  AND: {}
fields:
  tagged:
    widget: text
    valueLabels:
      equal: [a, b]
      between: [from]
      alpha: [x]
operators:
  equal: {}
  between:
    cardinality: 2
widgets:
  text:
    operators: [equal, between]
settings: {}
`
	want := []string{
		"fields.tagged.valueLabels: ",
		"fields.tagged.valueLabels.between: ",
		"fields.tagged.valueLabels.equal: ",
	}
	for i := 0; i < 20; i++ {
		_, err := schema.New(parseYAML(t, src), rules.Builtins())
		require.Error(t, err)

		var se *types.SchemaError
		require.True(t, errors.As(err, &se))
		var got []string
		for _, issue := range se.Issues() {
			for _, prefix := range want {
				if strings.HasPrefix(issue.Error(), prefix) {
					got = append(got, prefix)
				}
			}
		}
		require.Equal(t, want, got, "run %d: %v", i, err)
	}
}

func TestNew_RequiredKeys(t *testing.T) {
	_, err := schema.New(&schema.Config{}, rules.Builtins())
	require.Error(t, err)

	var se *types.SchemaError
	require.True(t, errors.As(err, &se))
	for _, key := range []string{"conjunctions", "fields", "operators", "widgets", "settings"} {
		assert.Contains(t, err.Error(), key+": ")
	}
	assert.Len(t, se.Issues(), 5)
}

func TestNew_MaxNestingRange(t *testing.T) {
	for _, n := range []int{-1, types.MaxNestingCeiling + 1} {
		cfg := parseYAML(t, minimalSchema)
		cfg.Settings.MaxNesting = n
		_, err := schema.New(cfg, rules.Builtins())
		assert.ErrorIs(t, err, types.ErrInvalidSettings, "maxNesting %d", n)
	}
}

func TestNew_ChecksumTracksContent(t *testing.T) {
	a, err := schema.New(parseYAML(t, minimalSchema), rules.Builtins())
	require.NoError(t, err)
	b, err := schema.New(parseYAML(t, minimalSchema), rules.Builtins())
	require.NoError(t, err)
	assert.Equal(t, a.Checksum(), b.Checksum())

	cfg := parseYAML(t, minimalSchema)
	cfg.Settings.MaxNesting = 3
	c, err := schema.New(cfg, rules.Builtins())
	require.NoError(t, err)
	assert.NotEqual(t, a.Checksum(), c.Checksum())
}

func TestNew_DoesNotAliasConfig(t *testing.T) {
	cfg := parseYAML(t, minimalSchema)
	model, err := schema.New(cfg, rules.Builtins())
	require.NoError(t, err)

	w, _ := cfg.Widgets.Get("text")
	w.Operators[0] = "changed"

	got, err := model.ResolveWidget("text")
	require.NoError(t, err)
	assert.Equal(t, []string{"equal"}, got.Operators)
}
