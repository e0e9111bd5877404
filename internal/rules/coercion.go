// internal/rules/coercion.go
package rules

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/spf13/cast"

	"github.com/solatis/querybuilder/internal/types"
)

/*
 * Value coercion to query text.
 *
 * Rule values arrive as decoded JSON (string, float64, bool) or as typed Go values from
 * programmatic callers. Scalars become text through spf13/cast: 2.0 -> "2", true -> "true".
 * Nil, maps and slices are not scalars and fail with ErrInvalidValue; list-valued slots
 * (select_in) use CoerceList instead.
 *
 * A scalar that would split into several query tokens (whitespace), contains a quote, or is
 * empty is emitted as a quoted term with `\` and `"` escaped.
 */

// CoerceText renders a scalar rule value as text.
func CoerceText(value any) (string, error) {
	switch value.(type) {
	case nil:
		return "", fmt.Errorf("%w: null value", types.ErrInvalidValue)
	case map[string]any, []any, []string:
		return "", fmt.Errorf("%w: %T is not a scalar", types.ErrInvalidValue, value)
	}
	s, err := cast.ToStringE(value)
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrInvalidValue, err)
	}
	return s, nil
}

// CoerceList renders a list-valued slot as text keys. A lone scalar is a one-element list.
func CoerceList(value any) ([]string, error) {
	var items []any
	switch v := value.(type) {
	case nil:
		return nil, fmt.Errorf("%w: null value", types.ErrInvalidValue)
	case []any:
		items = v
	case []string:
		items = make([]any, len(v))
		for i, s := range v {
			items[i] = s
		}
	default:
		items = []any{v}
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		s, err := CoerceText(item)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Term renders a scalar as a single query term, quoting when needed.
func Term(value any) (string, error) {
	s, err := CoerceText(value)
	if err != nil {
		return "", err
	}
	return quoteTerm(s), nil
}

func quoteTerm(s string) string {
	if !needsQuoting(s) {
		return s
	}
	return `"` + escapeQuoted(s) + `"`
}

func needsQuoting(s string) bool {
	return s == "" || strings.ContainsFunc(s, unicode.IsSpace) || strings.ContainsRune(s, '"')
}

var quotedEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func escapeQuoted(s string) string {
	return quotedEscaper.Replace(s)
}
