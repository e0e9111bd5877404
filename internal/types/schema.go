package types

import "gopkg.in/yaml.v3"

// FieldSchema describes one queryable field or a struct of subfields.
// Only leaf fields (no subfields) are queryable.
type FieldSchema struct {
	Path            []string                 `yaml:"-"` // set at construction: parent path + key
	Label           string                   `yaml:"label"`
	Label2          string                   `yaml:"label2"`
	Widget          string                   `yaml:"widget"`
	Operators       []string                 `yaml:"operators"` // replaces the widget list when set
	DefaultOperator string                   `yaml:"defaultOperator"`
	ListValues      OrderedMap[string]       `yaml:"listValues"` // stored key -> display label
	Subfields       OrderedMap[*FieldSchema] `yaml:"subfields"`
	WidgetProps     map[string]any           `yaml:"widgetProps"`
	ValueLabels     map[string][]string      `yaml:"valueLabels"` // operator -> per-slot labels
}

// Key returns the last path segment.
func (f *FieldSchema) Key() string {
	if len(f.Path) == 0 {
		return ""
	}
	return f.Path[len(f.Path)-1]
}

// IsStruct reports whether the field only groups subfields.
func (f *FieldSchema) IsStruct() bool {
	return f.Widget == StructWidget || f.Subfields.Len() > 0
}

// OperatorOptions holds operator-scoped editor metadata and default option values.
type OperatorOptions struct {
	OptionLabel string  `yaml:"optionLabel"`
	Defaults    Options `yaml:"defaults"`
}

// SubOperatorSchema is one entry of a composite operator's valueOptions.operators.
type SubOperatorSchema struct {
	Name      string        `yaml:"-"`
	Label     string        `yaml:"label"`
	Builtin   string        `yaml:"builtin"`  // registry name, defaults to Name
	Template  string        `yaml:"template"` // expression over `value`, replaces Builtin
	Transform TransformFunc `yaml:"-" json:"-"`
}

// ValueOptionsSchema configures per-slot sub-operators of a composite operator.
type ValueOptionsSchema struct {
	Operators OrderedMap[*SubOperatorSchema] `yaml:"operators"`
	Defaults  Options                        `yaml:"defaults"`
}

// DefaultSubOperator returns the declared default sub-operator key, if any.
func (v *ValueOptionsSchema) DefaultSubOperator() string {
	if v == nil {
		return ""
	}
	return v.Defaults.String("operator", "")
}

// OperatorSchema describes an operator and carries its bound compile function.
type OperatorSchema struct {
	Name         string              `yaml:"-"`
	Label        string              `yaml:"label"`
	Cardinality  int                 `yaml:"cardinality"` // 0, 1 or 2; 1 when omitted in config
	ValueLabels  []string            `yaml:"valueLabels"`
	ReversedOp   string              `yaml:"reversedOp"`
	Builtin      string              `yaml:"builtin"`  // registry name, defaults to Name
	Template     string              `yaml:"template"` // expression, replaces Builtin
	Options      *OperatorOptions    `yaml:"options"`
	ValueOptions *ValueOptionsSchema `yaml:"valueOptions"`
	Compile      CompileFunc         `yaml:"-" json:"-"`
}

// UnmarshalYAML applies the default cardinality of 1 when the key is omitted.
func (o *OperatorSchema) UnmarshalYAML(node *yaml.Node) error {
	type plain OperatorSchema
	p := plain{Cardinality: 1}
	if err := node.Decode(&p); err != nil {
		return err
	}
	*o = OperatorSchema(p)
	return nil
}

// DefaultOptions returns the operator's option defaults (never nil).
func (o *OperatorSchema) DefaultOptions() Options {
	if o.Options == nil || o.Options.Defaults == nil {
		return Options{}
	}
	return o.Options.Defaults
}

// WidgetSchema describes an external value widget. Format metadata is carried for the
// widget layer and never read during compilation.
type WidgetSchema struct {
	Type            string   `yaml:"-"`
	Operators       []string `yaml:"operators"`
	DefaultOperator string   `yaml:"defaultOperator"`
	DateFormat      string   `yaml:"dateFormat"`
	TimeFormat      string   `yaml:"timeFormat"`
	ValueFormat     string   `yaml:"valueFormat"`
	Locale          string   `yaml:"locale"`
}

// ConjunctionSchema describes a group conjunction. Token defaults to the conjunction name.
type ConjunctionSchema struct {
	Name  string `yaml:"-"`
	Label string `yaml:"label"`
	Token string `yaml:"token"`
}

// EmptyGroupPolicy controls how a group without children compiles.
type EmptyGroupPolicy string

const (
	EmptyGroupError  EmptyGroupPolicy = "error"
	EmptyGroupMarker EmptyGroupPolicy = "marker"
)

// NegationPolicy controls how a negated group combines with negatable operators.
type NegationPolicy string

const (
	// NegationWrap prefixes the group with the not token, leaving rules untouched.
	NegationWrap NegationPolicy = "wrap"
	// NegationFold swaps a single negatable rule for its reversed operator.
	NegationFold NegationPolicy = "fold"
)

// NormalizationForm selects the Unicode form string rule values are brought to before compiling.
type NormalizationForm string

const (
	NormalizeNone NormalizationForm = "none"
	NormalizeNFC  NormalizationForm = "nfc"
)

// SetOpOnChangeField values, consumed by external editors only.
const (
	OpOnChangeDefault = "default"
	OpOnChangeKeep    = "keep"
	OpOnChangeFirst   = "first"
	OpOnChangeNone    = "none"
)

// Settings holds compiler settings plus editor-only settings carried verbatim.
type Settings struct {
	MaxNesting            int               `yaml:"maxNesting"`
	FieldSeparator        string            `yaml:"fieldSeparator"`
	FieldSeparatorDisplay string            `yaml:"fieldSeparatorDisplay"`
	SetOpOnChangeField    []string          `yaml:"setOpOnChangeField"`
	EmptyGroup            EmptyGroupPolicy  `yaml:"emptyGroup"`
	EmptyGroupMarker      string            `yaml:"emptyGroupMarker"`
	Negation              NegationPolicy    `yaml:"negation"`
	NotToken              string            `yaml:"notToken"`
	ValueNormalization    NormalizationForm `yaml:"valueNormalization"`
	Editor                map[string]any    `yaml:",inline"`
}
