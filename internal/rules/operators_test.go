// internal/rules/operators_test.go
package rules

import (
	"errors"
	"strings"
	"testing"

	"github.com/solatis/querybuilder/internal/types"
)

func TestApplicableOperators(t *testing.T) {
	model := demoModel(t)

	got, err := ApplicableOperators(model, "text")
	if err != nil {
		t.Fatalf("ApplicableOperators() error = %v, want nil", err)
	}
	want := "equal,not_equal,is_empty,is_not_empty"
	if strings.Join(got, ",") != want {
		t.Errorf("ApplicableOperators(text) = %v, want %v", got, want)
	}

	if _, err := ApplicableOperators(model, "slider"); !errors.Is(err, types.ErrWidgetNotFound) {
		t.Errorf("ApplicableOperators(slider) error = %v, want %v", err, types.ErrWidgetNotFound)
	}
}

func TestDefaultOperator_Precedence(t *testing.T) {
	model := demoModel(t)

	tests := []struct {
		field string
		want  string
	}{
		{"name", "not_equal"},            // field default
		{"num", "less"},                  // widget default
		{"date", "equal"},                // first applicable
		{"members.subname", "proximity"}, // first of the field's own list
		{"color", "select_equals"},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			resolved, err := ResolveField(model, tt.field)
			if err != nil {
				t.Fatalf("ResolveField() error = %v", err)
			}
			got, err := DefaultOperator(model, resolved.Schema)
			if err != nil {
				t.Fatalf("DefaultOperator() error = %v, want nil", err)
			}
			if got != tt.want {
				t.Errorf("DefaultOperator(%s) = %v, want %v", tt.field, got, tt.want)
			}
		})
	}
}

func TestValidateOperator(t *testing.T) {
	model := demoModel(t)

	tests := []struct {
		name       string
		field      string
		op         string
		valueCount int
		wantErr    error
	}{
		{"unary ok", "name", "equal", 1, nil},
		{"binary ok", "num", "between", 2, nil},
		{"nullary ok", "date", "is_empty", 0, nil},
		{"field list replaces widget list", "members.subname", "proximity", 2, nil},
		{"not offered by field list", "name", "is_empty", 0, types.ErrOperatorNotApplicable},
		{"not offered by widget", "num", "is_empty", 0, types.ErrOperatorNotApplicable},
		{"unknown operator", "name", "like", 1, types.ErrOperatorNotFound},
		{"too few values", "num", "between", 1, types.ErrCardinalityMismatch},
		{"too many values", "num", "less", 2, types.ErrCardinalityMismatch},
		{"values on nullary", "date", "is_not_empty", 1, types.ErrCardinalityMismatch},
		{"missing value", "name", "equal", 0, types.ErrCardinalityMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved, err := ResolveField(model, tt.field)
			if err != nil {
				t.Fatalf("ResolveField() error = %v", err)
			}
			err = ValidateOperator(model, resolved.Schema, tt.op, tt.valueCount)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateOperator() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateOperator() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestOperatorOnFieldChange(t *testing.T) {
	model := demoModel(t)

	num, err := ResolveField(model, "num")
	if err != nil {
		t.Fatalf("ResolveField() error = %v", err)
	}

	// demo settings: setOpOnChangeField = [default]
	got, err := OperatorOnFieldChange(model, "equal", num.Schema)
	if err != nil {
		t.Fatalf("OperatorOnFieldChange() error = %v", err)
	}
	if got != "less" {
		t.Errorf("OperatorOnFieldChange() = %v, want less", got)
	}
}
