// internal/rules/values.go
package rules

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/solatis/querybuilder/internal/schema"
	"github.com/solatis/querybuilder/internal/types"
)

/*
 * Value compilation.
 *
 * Every operator renders through the same positional contract (types.CompileFunc), so the
 * builtins below and expression templates are interchangeable. Output syntax:
 *
 *   equal, not_equal, less, ...     field==v   field!=v   field<v   field<=v   field>v   field>=v
 *   between / not_between           field:[a TO b]   NOT field:[a TO b]
 *   is_empty / is_not_empty         NOT field:[* TO *]   field:[* TO *]
 *   select_equals                   field:Label
 *   select_in                       field:(A OR B)
 *   proximity                       field:"(a) (b)"~N
 *   complexQuery                    {!complexphrase}field:"(a*) (*b*)"~N
 *
 * Composite operators resolve the sub-operator of each slot by, in order: the slot value's
 * own {"operator": ...} selection, valueOptions[slot].operator, the operator's declared
 * default. A selection missing from valueOptions.operators is ErrUnknownSubOperator.
 *
 * The negation token of not_between and is_empty follows settings.notToken.
 */

// DefaultProximity applies when neither the operator defaults nor the rule set a window.
const DefaultProximity = 2

// ComplexPhrasePrefix is the query-parser directive prepended by composite phrase operators.
const ComplexPhrasePrefix = "{!complexphrase}"

// Builtins returns a registry holding every builtin operator, sub-operator and template
// helper.
func Builtins() *schema.Registry {
	reg := schema.NewRegistry()

	for name, sym := range map[string]string{
		"equal":            "==",
		"not_equal":        "!=",
		"less":             "<",
		"less_or_equal":    "<=",
		"greater":          ">",
		"greater_or_equal": ">=",
	} {
		reg.RegisterOperator(name, comparison(sym))
	}

	reg.RegisterOperator("between", rangeOp(false))
	reg.RegisterOperator("not_between", rangeOp(true))
	reg.RegisterOperator("is_empty", existence(true))
	reg.RegisterOperator("is_not_empty", existence(false))
	reg.RegisterListOperator("select_equals", selectEquals)
	reg.RegisterListOperator("select_in", selectIn)
	reg.RegisterOperator("proximity", proximity)
	reg.RegisterOperator("complexQuery", complexQuery)

	reg.RegisterSubOperator("contains", func(v string) (string, error) { return "*" + v + "*", nil })
	reg.RegisterSubOperator("startsWith", func(v string) (string, error) { return v + "*", nil })
	reg.RegisterSubOperator("endsWith", func(v string) (string, error) { return "*" + v, nil })

	reg.RegisterHelper("str", CoerceText)
	reg.RegisterHelper("quote", Term)
	reg.RegisterHelper("phrase", func(values []any) (string, error) {
		texts, err := slotTexts(values)
		if err != nil {
			return "", err
		}
		return Phrase(texts), nil
	})

	return reg
}

func comparison(sym string) types.CompileFunc {
	return func(values []any, field string, _ types.Options, _ map[int]types.Options, _ string, _ types.Model, _ *types.FieldSchema) (string, error) {
		v, err := Term(values[0])
		if err != nil {
			return "", err
		}
		return field + sym + v, nil
	}
}

func rangeOp(negate bool) types.CompileFunc {
	return func(values []any, field string, _ types.Options, _ map[int]types.Options, _ string, model types.Model, _ *types.FieldSchema) (string, error) {
		lo, err := Term(values[0])
		if err != nil {
			return "", err
		}
		hi, err := Term(values[1])
		if err != nil {
			return "", err
		}
		out := fmt.Sprintf("%s:[%s TO %s]", field, lo, hi)
		if negate {
			out = model.Settings().NotToken + " " + out
		}
		return out, nil
	}
}

func existence(negate bool) types.CompileFunc {
	return func(_ []any, field string, _ types.Options, _ map[int]types.Options, _ string, model types.Model, _ *types.FieldSchema) (string, error) {
		out := field + ":[* TO *]"
		if negate {
			out = model.Settings().NotToken + " " + out
		}
		return out, nil
	}
}

func listLabel(def *types.FieldSchema, key string) (string, error) {
	label, ok := def.ListValues.Get(key)
	if !ok {
		return "", fmt.Errorf("%w: %q", types.ErrUnknownListValue, key)
	}
	return quoteTerm(label), nil
}

func selectEquals(values []any, field string, _ types.Options, _ map[int]types.Options, _ string, _ types.Model, def *types.FieldSchema) (string, error) {
	key, err := CoerceText(values[0])
	if err != nil {
		return "", err
	}
	label, err := listLabel(def, key)
	if err != nil {
		return "", err
	}
	return field + ":" + label, nil
}

func selectIn(values []any, field string, _ types.Options, _ map[int]types.Options, _ string, _ types.Model, def *types.FieldSchema) (string, error) {
	keys, err := CoerceList(values[0])
	if err != nil {
		return "", err
	}
	if len(keys) == 0 {
		return "", types.ErrEmptyValueList
	}
	if len(keys) > types.MaxSelectValues {
		return "", fmt.Errorf("%w: %d keys, max %d", types.ErrTooManyValues, len(keys), types.MaxSelectValues)
	}

	labels := make([]string, len(keys))
	for i, key := range keys {
		if labels[i], err = listLabel(def, key); err != nil {
			return "", err
		}
	}
	return field + ":(" + strings.Join(labels, " OR ") + ")", nil
}

func proximityWindow(opts types.Options) (int, error) {
	n, err := opts.Int("proximity", DefaultProximity)
	if err != nil {
		return 0, fmt.Errorf("%w: proximity %v", types.ErrInvalidValue, opts["proximity"])
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: proximity %d is negative", types.ErrInvalidValue, n)
	}
	return n, nil
}

func phraseFragment(field string, texts []string, window int) string {
	return field + `:"` + Phrase(texts) + `"~` + strconv.Itoa(window)
}

func slotTexts(values []any) ([]string, error) {
	texts := make([]string, len(values))
	for i, v := range values {
		s, err := CoerceText(v)
		if err != nil {
			return nil, err
		}
		texts[i] = s
	}
	return texts, nil
}

func proximity(values []any, field string, opts types.Options, _ map[int]types.Options, _ string, _ types.Model, _ *types.FieldSchema) (string, error) {
	window, err := proximityWindow(opts)
	if err != nil {
		return "", err
	}
	texts, err := slotTexts(values)
	if err != nil {
		return "", err
	}
	return phraseFragment(field, texts, window), nil
}

func complexQuery(values []any, field string, opts types.Options, valueOpts map[int]types.Options, op string, model types.Model, _ *types.FieldSchema) (string, error) {
	window, err := proximityWindow(opts)
	if err != nil {
		return "", err
	}
	operator, err := model.ResolveOperator(op)
	if err != nil {
		return "", err
	}
	if operator.ValueOptions == nil {
		return "", fmt.Errorf("%w: operator %q declares no sub-operators", types.ErrUnknownSubOperator, op)
	}

	texts := make([]string, len(values))
	for i, v := range values {
		raw, selected := slotSelection(v)
		if selected == "" {
			selected = valueOpts[i].String("operator", "")
		}
		if selected == "" {
			selected = operator.ValueOptions.DefaultSubOperator()
		}

		sub, ok := operator.ValueOptions.Operators.Get(selected)
		if !ok || sub.Transform == nil {
			return "", fmt.Errorf("%w: %q in slot %d", types.ErrUnknownSubOperator, selected, i)
		}
		text, err := CoerceText(raw)
		if err != nil {
			return "", err
		}
		if texts[i], err = sub.Transform(text); err != nil {
			return "", err
		}
	}

	return ComplexPhrasePrefix + phraseFragment(field, texts, window), nil
}

// slotSelection unpacks a composite slot given as {"value": v, "operator": name}.
func slotSelection(v any) (any, string) {
	m, ok := v.(map[string]any)
	if !ok {
		return v, ""
	}
	op, _ := m["operator"].(string)
	return m["value"], op
}

// CompileRule renders one rule against model. Every failure is a *types.CompileError.
func CompileRule(model *schema.Model, rule *types.RuleNode) (string, error) {
	return compileRule(model, rule, "", 1)
}

// compileRule renders rule, optionally with a replacement operator (negation folding).
func compileRule(model *schema.Model, rule *types.RuleNode, opOverride string, depth int) (string, error) {
	opName := rule.Operator
	if opOverride != "" {
		opName = opOverride
	}
	fail := func(err error) error {
		return &types.CompileError{
			NodeID:   rule.ID,
			Field:    rule.Field,
			Operator: opName,
			Depth:    depth,
			Err:      err,
		}
	}

	resolved, err := ResolveField(model, rule.Field)
	if err != nil {
		return "", fail(err)
	}
	if err := ValidateOperator(model, resolved.Schema, rule.Operator, len(rule.Values)); err != nil {
		return "", fail(err)
	}
	// A folded operator must itself apply to the field.
	if opName != rule.Operator {
		if err := ValidateOperator(model, resolved.Schema, opName, len(rule.Values)); err != nil {
			return "", fail(err)
		}
	}
	operator, err := model.ResolveOperator(opName)
	if err != nil {
		return "", fail(err)
	}
	if operator.Compile == nil {
		return "", fail(fmt.Errorf("%w: %q", types.ErrCompileFuncNotFound, opName))
	}

	opts := operator.DefaultOptions().Merge(rule.OperatorOptions)
	valueOpts := rule.ValueOptions
	if valueOpts == nil {
		valueOpts = map[int]types.Options{}
	}

	values := normalizeValues(rule.Values, model.Settings().ValueNormalization)
	out, err := operator.Compile(values, resolved.Key, opts, valueOpts, operator.Name, model, resolved.Schema)
	if err != nil {
		var ce *types.CompileError
		if errors.As(err, &ce) {
			return "", err
		}
		return "", fail(err)
	}
	return out, nil
}
