package schema

import (
	"fmt"
	"strconv"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/spf13/cast"

	"github.com/solatis/querybuilder/internal/types"
)

/*
 * Operator templates.
 *
 * An operator (or composite sub-operator) may declare `template:` instead of naming a
 * builtin. The template is an expr-lang expression compiled once at schema construction and
 * run per rule with an environment mirroring the compile-function arguments:
 *
 *   field         string            field key (storage separator)
 *   values        []any             rule values
 *   options       map[string]any    merged operator options
 *   valueOptions  map[string]any    per-slot options keyed by slot index ("0", "1")
 *   operator      string            operator name
 *   listValues    map[string]any    field listValues (key -> label)
 *   label(key)                      listValues lookup, fails on unknown keys
 *
 * plus every helper registered on the Registry (str, quote, ...). Sub-operator templates
 * see only `value` and the helpers. Templates must evaluate to a string.
 */

// operatorEnv returns the environment used for both compile-time checking and execution.
func operatorEnv(reg *Registry) map[string]any {
	env := map[string]any{
		"field":        "",
		"values":       []any{},
		"options":      map[string]any{},
		"valueOptions": map[string]any{},
		"operator":     "",
		"listValues":   map[string]any{},
		"label":        func(key any) (string, error) { return "", nil },
	}
	for name, fn := range reg.helpers {
		env[name] = fn
	}
	return env
}

func subOperatorEnv(reg *Registry) map[string]any {
	env := map[string]any{"value": ""}
	for name, fn := range reg.helpers {
		env[name] = fn
	}
	return env
}

// compileOperatorTemplate turns a template into a CompileFunc.
func compileOperatorTemplate(src string, reg *Registry) (types.CompileFunc, error) {
	program, err := expr.Compile(src, expr.Env(operatorEnv(reg)))
	if err != nil {
		return nil, err
	}

	return func(values []any, field string, opts types.Options, valueOpts map[int]types.Options, op string, model types.Model, def *types.FieldSchema) (string, error) {
		env := operatorEnv(reg)
		env["field"] = field
		env["values"] = values
		env["options"] = map[string]any(opts)
		env["operator"] = op

		slots := make(map[string]any, len(valueOpts))
		for i, o := range valueOpts {
			slots[strconv.Itoa(i)] = map[string]any(o)
		}
		env["valueOptions"] = slots

		labels := make(map[string]any, def.ListValues.Len())
		def.ListValues.Each(func(k, v string) bool {
			labels[k] = v
			return true
		})
		env["listValues"] = labels
		env["label"] = func(key any) (string, error) {
			k := cast.ToString(key)
			lbl, ok := def.ListValues.Get(k)
			if !ok {
				return "", fmt.Errorf("%w: %q", types.ErrUnknownListValue, k)
			}
			return lbl, nil
		}

		return runTemplate(program, env)
	}, nil
}

// compileSubOperatorTemplate turns a sub-operator template into a TransformFunc.
func compileSubOperatorTemplate(src string, reg *Registry) (types.TransformFunc, error) {
	program, err := expr.Compile(src, expr.Env(subOperatorEnv(reg)))
	if err != nil {
		return nil, err
	}

	return func(value string) (string, error) {
		env := subOperatorEnv(reg)
		env["value"] = value
		return runTemplate(program, env)
	}, nil
}

func runTemplate(program *vm.Program, env map[string]any) (string, error) {
	out, err := expr.Run(program, env)
	if err != nil {
		return "", err
	}
	s, ok := out.(string)
	if !ok {
		return "", fmt.Errorf("%w: template returned %T, want string", types.ErrInvalidValue, out)
	}
	return s, nil
}
