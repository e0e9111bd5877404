// internal/rules/normalize.go
package rules

import (
	"golang.org/x/text/unicode/norm"

	"github.com/solatis/querybuilder/internal/types"
)

// normalizeValues returns values with every string brought to form, descending into
// composite slots and lists. The input is never modified. NormalizeNone returns values as is.
func normalizeValues(values []any, form types.NormalizationForm) []any {
	if form != types.NormalizeNFC {
		return values
	}
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch x := v.(type) {
	case string:
		return norm.NFC.String(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalizeValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = normalizeValue(e)
		}
		return out
	default:
		return v
	}
}
