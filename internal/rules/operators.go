// internal/rules/operators.go
package rules

import (
	"fmt"
	"slices"

	"github.com/solatis/querybuilder/internal/schema"
	"github.com/solatis/querybuilder/internal/types"
)

/*
 * Operator resolution.
 *
 * A field's applicable operators are its own `operators` list when declared, otherwise its
 * widget's list, in declaration order. Default operator precedence:
 *
 *   field.defaultOperator > widget.defaultOperator (if applicable) > first applicable
 *
 * Validation is strict: cardinality 0 takes no values, 2 takes exactly two. Values are
 * never truncated or padded.
 */

// ApplicableOperators returns the operators declared for a widget.
func ApplicableOperators(model *schema.Model, widgetType string) ([]string, error) {
	w, err := model.ResolveWidget(widgetType)
	if err != nil {
		return nil, err
	}
	return slices.Clone(w.Operators), nil
}

// FieldOperators returns the operators offered for a leaf field.
func FieldOperators(model *schema.Model, field *types.FieldSchema) ([]string, error) {
	if len(field.Operators) > 0 {
		return slices.Clone(field.Operators), nil
	}
	return ApplicableOperators(model, field.Widget)
}

// DefaultOperator picks the operator a new rule on field starts with.
// Returns ErrOperatorNotApplicable when the field offers no operators.
func DefaultOperator(model *schema.Model, field *types.FieldSchema) (string, error) {
	ops, err := FieldOperators(model, field)
	if err != nil {
		return "", err
	}
	if field.DefaultOperator != "" {
		return field.DefaultOperator, nil
	}
	if w, err := model.ResolveWidget(field.Widget); err == nil && w.DefaultOperator != "" && slices.Contains(ops, w.DefaultOperator) {
		return w.DefaultOperator, nil
	}
	if len(ops) == 0 {
		return "", fmt.Errorf("%w: field %q offers no operators", types.ErrOperatorNotApplicable, field.Key())
	}
	return ops[0], nil
}

// ValidateOperator checks that op is offered for field and accepts valueCount values.
func ValidateOperator(model *schema.Model, field *types.FieldSchema, op string, valueCount int) error {
	operator, err := model.ResolveOperator(op)
	if err != nil {
		return err
	}
	ops, err := FieldOperators(model, field)
	if err != nil {
		return err
	}
	if !slices.Contains(ops, op) {
		return fmt.Errorf("%w: %q not offered for widget %q", types.ErrOperatorNotApplicable, op, field.Widget)
	}
	if valueCount != operator.Cardinality {
		return fmt.Errorf("%w: %q takes %d values, got %d", types.ErrCardinalityMismatch, op, operator.Cardinality, valueCount)
	}
	return nil
}

// OperatorOnFieldChange picks the operator an editor keeps when a rule switches to field,
// following settings.setOpOnChangeField. Policies are tried in order and the first that
// yields an operator wins; an empty result means the editor clears the operator.
func OperatorOnFieldChange(model *schema.Model, prevOp string, field *types.FieldSchema) (string, error) {
	ops, err := FieldOperators(model, field)
	if err != nil {
		return "", err
	}

	for _, policy := range model.Settings().SetOpOnChangeField {
		switch policy {
		case types.OpOnChangeKeep:
			if prevOp != "" && slices.Contains(ops, prevOp) {
				return prevOp, nil
			}
		case types.OpOnChangeDefault:
			if op, err := DefaultOperator(model, field); err == nil {
				return op, nil
			}
		case types.OpOnChangeFirst:
			if len(ops) > 0 {
				return ops[0], nil
			}
		case types.OpOnChangeNone:
			return "", nil
		}
	}
	return "", nil
}
