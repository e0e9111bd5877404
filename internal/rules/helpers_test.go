// internal/rules/helpers_test.go
package rules

import (
	"os"
	"testing"

	"github.com/solatis/querybuilder/internal/schema"
	"github.com/solatis/querybuilder/internal/types"
)

const demoSchemaPath = "../../testdata/demo.yaml"

// demoModel loads the demo schema shared by the rules tests.
func demoModel(t testing.TB) *schema.Model {
	t.Helper()
	model, err := schema.Load(demoSchemaPath, Builtins())
	if err != nil {
		t.Fatalf("schema.Load(%s) error = %v", demoSchemaPath, err)
	}
	return model
}

// rule builds a rule node without an id so error messages stay stable.
func rule(field, op string, values ...any) *types.RuleNode {
	if values == nil {
		values = []any{}
	}
	return &types.RuleNode{Field: field, Operator: op, Values: values}
}

func ruleNode(field, op string, values ...any) types.Node {
	return types.Node{Rule: rule(field, op, values...)}
}

func group(conj string, children ...types.Node) *types.GroupNode {
	return &types.GroupNode{Conjunction: conj, Children: children}
}

// chain builds depth nested groups around a single rule.
func chain(depth int) *types.GroupNode {
	inner := group("AND", ruleNode("name", "not_equal", "foo"))
	for i := 1; i < depth; i++ {
		inner = group("AND", inner.AsNode())
	}
	return inner
}

// demoModelWith loads the demo schema with adjusted settings.
func demoModelWith(t testing.TB, adjust func(*types.Settings)) *schema.Model {
	t.Helper()
	return demoModelFrom(t, func(cfg *schema.Config) { adjust(cfg.Settings) })
}

// demoModelFrom loads the demo schema after adjusting the parsed config.
func demoModelFrom(t testing.TB, adjust func(*schema.Config)) *schema.Model {
	t.Helper()
	data, err := os.ReadFile(demoSchemaPath)
	if err != nil {
		t.Fatalf("ReadFile(%s) error = %v", demoSchemaPath, err)
	}
	cfg, err := schema.ParseConfig(data, schema.FormatYAML, demoSchemaPath)
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	adjust(cfg)
	model, err := schema.New(cfg, Builtins())
	if err != nil {
		t.Fatalf("schema.New() error = %v", err)
	}
	return model
}
