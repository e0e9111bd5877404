package types

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// Schema construction errors. Reported together inside a SchemaError.
var (
	// ErrFieldNotFound indicates a field path does not resolve to a field.
	ErrFieldNotFound = errors.New("field not found")

	// ErrOperatorNotFound indicates an operator name is not declared.
	ErrOperatorNotFound = errors.New("operator not found")

	// ErrWidgetNotFound indicates a widget type is not declared.
	ErrWidgetNotFound = errors.New("widget not found")

	// ErrConjunctionNotFound indicates a conjunction name is not declared.
	ErrConjunctionNotFound = errors.New("conjunction not found")

	// ErrCompileFuncNotFound indicates an operator has neither a registered builtin nor a template.
	ErrCompileFuncNotFound = errors.New("no compile function for operator")

	// ErrInvalidTemplate indicates an operator template failed to compile.
	ErrInvalidTemplate = errors.New("invalid operator template")

	// ErrInvalidSchema covers structural schema problems (missing keys, bad cardinality, ...).
	ErrInvalidSchema = errors.New("invalid schema")

	// ErrInvalidSettings indicates settings values are out of range or unknown.
	ErrInvalidSettings = errors.New("invalid settings")
)

// Compile errors. Always wrapped in a CompileError naming the failing node.
var (
	// ErrCardinalityMismatch indicates len(values) differs from the operator cardinality.
	ErrCardinalityMismatch = errors.New("cardinality mismatch")

	// ErrOperatorNotApplicable indicates the operator is not offered for the field's widget.
	ErrOperatorNotApplicable = errors.New("operator not applicable to widget")

	// ErrUnknownListValue indicates a stored key is missing from the field's listValues.
	ErrUnknownListValue = errors.New("unknown list value")

	// ErrUnknownSubOperator indicates a composite slot selected an undeclared sub-operator.
	ErrUnknownSubOperator = errors.New("unknown sub-operator")

	// ErrNestingTooDeep indicates group depth exceeds settings.maxNesting.
	ErrNestingTooDeep = errors.New("nesting too deep")

	// ErrEmptyGroup indicates a group without children under the error policy.
	ErrEmptyGroup = errors.New("empty group")

	// ErrUnknownConjunction indicates a group uses an undeclared conjunction.
	ErrUnknownConjunction = errors.New("unknown conjunction")

	// ErrEmptyValueList indicates a multi-value slot holds no keys.
	ErrEmptyValueList = errors.New("empty value list")

	// ErrTooManyValues indicates a multi-value slot exceeds MaxSelectValues.
	ErrTooManyValues = errors.New("too many values")

	// ErrInvalidValue indicates a value or option cannot be rendered as query text.
	ErrInvalidValue = errors.New("invalid value")

	// ErrPathTooDeep indicates a field path exceeds MaxPathDepth.
	ErrPathTooDeep = errors.New("field path exceeds maximum depth")

	// ErrUnknownNodeType indicates a tree node with an unknown "type" tag.
	ErrUnknownNodeType = errors.New("unknown node type")

	// ErrEmptyNode indicates a Node with neither Rule nor Group set.
	ErrEmptyNode = errors.New("empty node")
)

// Saved-query store errors.
var (
	// ErrSavedQueryNotFound indicates no saved query matches the given id or name.
	ErrSavedQueryNotFound = errors.New("saved query not found")

	// ErrInvalidQueryName indicates an empty or whitespace-only saved query name.
	ErrInvalidQueryName = errors.New("invalid saved query name")
)

// CompileError reports the node that failed compilation. Err is one of the sentinels above,
// possibly wrapped with detail.
type CompileError struct {
	NodeID   NodeID
	Field    string // empty for group errors
	Operator string // empty for group errors
	Depth    int    // group depth of the node, root = 1
	Err      error
}

func (e *CompileError) Error() string {
	var b strings.Builder
	if e.Field != "" || e.Operator != "" {
		b.WriteString("rule")
	} else {
		b.WriteString("group")
	}
	if e.NodeID != "" {
		fmt.Fprintf(&b, " %s", e.NodeID)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " field=%s", e.Field)
	}
	if e.Operator != "" {
		fmt.Fprintf(&b, " operator=%s", e.Operator)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// SchemaError aggregates every problem found while constructing a schema model.
type SchemaError struct {
	Err error // multierr aggregate
}

func (e *SchemaError) Error() string {
	issues := e.Issues()
	msgs := make([]string, len(issues))
	for i, issue := range issues {
		msgs[i] = issue.Error()
	}
	return fmt.Sprintf("invalid schema (%d issues): %s", len(issues), strings.Join(msgs, "; "))
}

// Issues returns the individual problems in detection order.
func (e *SchemaError) Issues() []error {
	return multierr.Errors(e.Err)
}

func (e *SchemaError) Unwrap() []error {
	return e.Issues()
}
