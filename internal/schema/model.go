package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"go.uber.org/multierr"

	"github.com/solatis/querybuilder/internal/types"
)

/*
 * Schema construction.
 *
 * New validates a Config in full and binds every operator and sub-operator to a compile
 * function, either a registry builtin or an expression template. Validation never stops at
 * the first problem: each issue is appended to one multierr aggregate and returned as a
 * *types.SchemaError so a broken configuration is fixed in one pass.
 *
 * Order of checks: settings, conjunctions, operators, widgets, fields. Fields come last
 * because their checks consult the bound operators (cardinality, list-backed builtins).
 *
 * The returned Model is never mutated. Schema types are copied during construction so the
 * caller's Config can be discarded or reused.
 */

// Model is a validated, immutable schema. Safe for concurrent use.
type Model struct {
	conjunctions types.OrderedMap[*types.ConjunctionSchema]
	fields       types.OrderedMap[*types.FieldSchema]
	operators    types.OrderedMap[*types.OperatorSchema]
	widgets      types.OrderedMap[*types.WidgetSchema]
	settings     types.Settings
	listBacked   map[string]bool
	checksum     string
}

var _ types.Model = (*Model)(nil)

var opOnChangePolicies = []string{
	types.OpOnChangeDefault,
	types.OpOnChangeKeep,
	types.OpOnChangeFirst,
	types.OpOnChangeNone,
}

type builder struct {
	cfg   *Config
	reg   *Registry
	model *Model
	errs  error
}

func (b *builder) issue(path string, sentinel error, format string, args ...any) {
	b.errs = multierr.Append(b.errs, fmt.Errorf("%s: %w: %s", path, sentinel, fmt.Sprintf(format, args...)))
}

// New validates cfg and builds a Model whose operators are bound through reg.
func New(cfg *Config, reg *Registry) (*Model, error) {
	if cfg == nil {
		return nil, &types.SchemaError{Err: fmt.Errorf("%w: nil config", types.ErrInvalidSchema)}
	}
	if reg == nil {
		reg = NewRegistry()
	}

	b := &builder{
		cfg:   cfg,
		reg:   reg,
		model: &Model{listBacked: make(map[string]bool)},
	}

	b.buildSettings()
	b.buildConjunctions()
	b.buildOperators()
	b.buildWidgets()
	b.buildFields()

	if b.errs != nil {
		return nil, &types.SchemaError{Err: b.errs}
	}

	sum, err := checksum(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to checksum schema: %w", err)
	}
	b.model.checksum = sum

	return b.model, nil
}

func (b *builder) buildSettings() {
	if b.cfg.Settings == nil {
		b.issue("settings", types.ErrInvalidSchema, "required key missing")
		b.model.settings = withSettingDefaults(types.Settings{})
		return
	}

	s := withSettingDefaults(*b.cfg.Settings)

	if s.MaxNesting < 1 || s.MaxNesting > types.MaxNestingCeiling {
		b.issue("settings.maxNesting", types.ErrInvalidSettings, "%d not in [1, %d]", s.MaxNesting, types.MaxNestingCeiling)
	}
	if s.FieldSeparator == s.FieldSeparatorDisplay {
		b.issue("settings.fieldSeparatorDisplay", types.ErrInvalidSettings, "must differ from fieldSeparator %q", s.FieldSeparator)
	}
	for _, policy := range s.SetOpOnChangeField {
		if !slices.Contains(opOnChangePolicies, policy) {
			b.issue("settings.setOpOnChangeField", types.ErrInvalidSettings, "unknown policy %q", policy)
		}
	}
	switch s.EmptyGroup {
	case types.EmptyGroupError, types.EmptyGroupMarker:
	default:
		b.issue("settings.emptyGroup", types.ErrInvalidSettings, "unknown policy %q", s.EmptyGroup)
	}
	switch s.Negation {
	case types.NegationWrap, types.NegationFold:
	default:
		b.issue("settings.negation", types.ErrInvalidSettings, "unknown policy %q", s.Negation)
	}
	switch s.ValueNormalization {
	case types.NormalizeNone, types.NormalizeNFC:
	default:
		b.issue("settings.valueNormalization", types.ErrInvalidSettings, "unknown form %q", s.ValueNormalization)
	}

	b.model.settings = s
}

// withSettingDefaults fills omitted settings. Negative or explicit invalid values are left
// for validation to report.
func withSettingDefaults(s types.Settings) types.Settings {
	if s.MaxNesting == 0 {
		s.MaxNesting = types.DefaultMaxNesting
	}
	if s.FieldSeparator == "" {
		s.FieldSeparator = "."
	}
	if s.FieldSeparatorDisplay == "" {
		s.FieldSeparatorDisplay = "->"
	}
	if s.EmptyGroup == "" {
		s.EmptyGroup = types.EmptyGroupError
	}
	if s.EmptyGroupMarker == "" {
		s.EmptyGroupMarker = "*:*"
	}
	if s.Negation == "" {
		s.Negation = types.NegationWrap
	}
	if s.NotToken == "" {
		s.NotToken = "NOT"
	}
	if s.ValueNormalization == "" {
		s.ValueNormalization = types.NormalizeNone
	}
	return s
}

func (b *builder) buildConjunctions() {
	if b.cfg.Conjunctions.Len() == 0 {
		b.issue("conjunctions", types.ErrInvalidSchema, "required key missing or empty")
		return
	}
	b.cfg.Conjunctions.Each(func(name string, src *types.ConjunctionSchema) bool {
		c := types.ConjunctionSchema{}
		if src != nil {
			c = *src
		}
		c.Name = name
		if c.Token == "" {
			c.Token = name
		}
		if c.Label == "" {
			c.Label = name
		}
		b.model.conjunctions.Set(name, &c)
		return true
	})
}

func (b *builder) buildOperators() {
	if b.cfg.Operators.Len() == 0 {
		b.issue("operators", types.ErrInvalidSchema, "required key missing or empty")
		return
	}

	b.cfg.Operators.Each(func(name string, src *types.OperatorSchema) bool {
		path := "operators." + name
		op := types.OperatorSchema{Cardinality: 1}
		if src != nil {
			op = *src
		}
		op.Name = name
		if op.Label == "" {
			op.Label = name
		}

		if op.Cardinality < 0 || op.Cardinality > 2 {
			b.issue(path, types.ErrInvalidSchema, "cardinality %d not in {0, 1, 2}", op.Cardinality)
		}
		if len(op.ValueLabels) > 0 && len(op.ValueLabels) != op.Cardinality {
			b.issue(path+".valueLabels", types.ErrInvalidSchema, "%d labels for cardinality %d", len(op.ValueLabels), op.Cardinality)
		}

		b.bindOperator(path, &op)
		op.ValueOptions = b.bindSubOperators(path, op.ValueOptions)

		if op.ReversedOp != "" {
			rev, ok := b.cfg.Operators.Get(op.ReversedOp)
			switch {
			case !ok:
				b.issue(path+".reversedOp", types.ErrOperatorNotFound, "%q", op.ReversedOp)
			case rev != nil && rev.Cardinality != op.Cardinality:
				b.issue(path+".reversedOp", types.ErrInvalidSchema, "%q has cardinality %d, want %d", op.ReversedOp, rev.Cardinality, op.Cardinality)
			}
		}

		b.model.operators.Set(name, &op)
		return true
	})
}

func (b *builder) bindOperator(path string, op *types.OperatorSchema) {
	if op.Template != "" {
		fn, err := compileOperatorTemplate(op.Template, b.reg)
		if err != nil {
			b.issue(path+".template", types.ErrInvalidTemplate, "%v", err)
			return
		}
		op.Compile = fn
		return
	}

	builtin := op.Builtin
	if builtin == "" {
		builtin = op.Name
	}
	fn, ok := b.reg.Operator(builtin)
	if !ok {
		b.issue(path, types.ErrCompileFuncNotFound, "builtin %q", builtin)
		return
	}
	op.Compile = fn
	if b.reg.IsListBacked(builtin) {
		b.model.listBacked[op.Name] = true
	}
}

func (b *builder) bindSubOperators(path string, src *types.ValueOptionsSchema) *types.ValueOptionsSchema {
	if src == nil {
		return nil
	}
	vo := &types.ValueOptionsSchema{Defaults: src.Defaults}

	src.Operators.Each(func(name string, s *types.SubOperatorSchema) bool {
		subPath := path + ".valueOptions.operators." + name
		sub := types.SubOperatorSchema{}
		if s != nil {
			sub = *s
		}
		sub.Name = name
		if sub.Label == "" {
			sub.Label = name
		}

		if sub.Template != "" {
			fn, err := compileSubOperatorTemplate(sub.Template, b.reg)
			if err != nil {
				b.issue(subPath+".template", types.ErrInvalidTemplate, "%v", err)
			}
			sub.Transform = fn
		} else {
			builtin := sub.Builtin
			if builtin == "" {
				builtin = name
			}
			fn, ok := b.reg.SubOperator(builtin)
			if !ok {
				b.issue(subPath, types.ErrCompileFuncNotFound, "builtin %q", builtin)
			}
			sub.Transform = fn
		}

		vo.Operators.Set(name, &sub)
		return true
	})

	if def := vo.DefaultSubOperator(); def != "" && !vo.Operators.Has(def) {
		b.issue(path+".valueOptions.defaults.operator", types.ErrUnknownSubOperator, "%q", def)
	}
	return vo
}

func (b *builder) buildWidgets() {
	if b.cfg.Widgets.Len() == 0 {
		b.issue("widgets", types.ErrInvalidSchema, "required key missing or empty")
		return
	}

	b.cfg.Widgets.Each(func(name string, src *types.WidgetSchema) bool {
		path := "widgets." + name
		w := types.WidgetSchema{}
		if src != nil {
			w = *src
		}
		w.Type = name
		w.Operators = slices.Clone(w.Operators)

		for _, op := range w.Operators {
			if !b.cfg.Operators.Has(op) {
				b.issue(path+".operators", types.ErrOperatorNotFound, "%q", op)
			}
		}
		if w.DefaultOperator != "" && !slices.Contains(w.Operators, w.DefaultOperator) {
			b.issue(path+".defaultOperator", types.ErrOperatorNotApplicable, "%q not in widget operators", w.DefaultOperator)
		}

		b.model.widgets.Set(name, &w)
		return true
	})
}

func (b *builder) buildFields() {
	if b.cfg.Fields.Len() == 0 {
		b.issue("fields", types.ErrInvalidSchema, "required key missing or empty")
		return
	}
	b.model.fields = b.buildFieldMap(nil, b.cfg.Fields)
}

func (b *builder) buildFieldMap(parent []string, src types.OrderedMap[*types.FieldSchema]) types.OrderedMap[*types.FieldSchema] {
	var out types.OrderedMap[*types.FieldSchema]
	src.Each(func(key string, s *types.FieldSchema) bool {
		path := append(slices.Clone(parent), key)
		if f := b.buildField(path, s); f != nil {
			out.Set(key, f)
		}
		return true
	})
	return out
}

func (b *builder) buildField(path []string, src *types.FieldSchema) *types.FieldSchema {
	where := "fields." + strings.Join(path, ".")
	if len(path) > types.MaxPathDepth {
		b.issue(where, types.ErrPathTooDeep, "depth %d exceeds %d", len(path), types.MaxPathDepth)
		return nil
	}
	if src == nil {
		b.issue(where, types.ErrInvalidSchema, "empty field definition")
		return nil
	}

	f := *src
	f.Path = path
	f.Operators = slices.Clone(f.Operators)
	if f.Label == "" {
		f.Label = f.Key()
	}

	if f.IsStruct() {
		if f.Widget != "" && f.Widget != types.StructWidget {
			b.issue(where, types.ErrInvalidSchema, "field with subfields cannot use widget %q", f.Widget)
		}
		if f.Subfields.Len() == 0 {
			b.issue(where, types.ErrInvalidSchema, "struct field has no subfields")
		}
		if len(f.Operators) > 0 || f.DefaultOperator != "" || f.ListValues.Len() > 0 {
			b.issue(where, types.ErrInvalidSchema, "struct field cannot declare operators or listValues")
		}
		f.Subfields = b.buildFieldMap(path, src.Subfields)
		return &f
	}

	if f.Widget == "" {
		b.issue(where+".widget", types.ErrInvalidSchema, "leaf field has no widget")
		return &f
	}
	w, ok := b.cfg.Widgets.Get(f.Widget)
	if !ok {
		b.issue(where+".widget", types.ErrWidgetNotFound, "%q", f.Widget)
		return &f
	}

	for _, op := range f.Operators {
		if !b.cfg.Operators.Has(op) {
			b.issue(where+".operators", types.ErrOperatorNotFound, "%q", op)
		}
	}

	applicable := f.Operators
	if len(applicable) == 0 && w != nil {
		applicable = w.Operators
	}
	if f.DefaultOperator != "" && !slices.Contains(applicable, f.DefaultOperator) {
		b.issue(where+".defaultOperator", types.ErrOperatorNotApplicable, "%q", f.DefaultOperator)
	}
	for _, op := range applicable {
		if b.model.listBacked[op] && f.ListValues.Len() == 0 {
			b.issue(where+".listValues", types.ErrInvalidSchema, "operator %q requires listValues", op)
		}
	}

	for _, opName := range slices.Sorted(maps.Keys(f.ValueLabels)) {
		labels := f.ValueLabels[opName]
		op, ok := b.model.operators.Get(opName)
		if !ok {
			b.issue(where+".valueLabels", types.ErrOperatorNotFound, "%q", opName)
			continue
		}
		if len(labels) != op.Cardinality {
			b.issue(where+".valueLabels."+opName, types.ErrInvalidSchema, "%d labels for cardinality %d", len(labels), op.Cardinality)
		}
	}

	return &f
}

func checksum(cfg *Config) (string, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// ResolveField walks path through fields and subfields. Only leaf fields resolve.
func (m *Model) ResolveField(path []string) (*types.FieldSchema, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("%w: empty path", types.ErrFieldNotFound)
	}
	if len(path) > types.MaxPathDepth {
		return nil, fmt.Errorf("%w: %d segments", types.ErrPathTooDeep, len(path))
	}

	level := m.fields
	var f *types.FieldSchema
	for i, seg := range path {
		next, ok := level.Get(seg)
		if !ok {
			return nil, fmt.Errorf("%w: %q", types.ErrFieldNotFound, strings.Join(path[:i+1], m.settings.FieldSeparator))
		}
		if i < len(path)-1 && !next.IsStruct() {
			return nil, fmt.Errorf("%w: %q has no subfields", types.ErrFieldNotFound, strings.Join(path[:i+1], m.settings.FieldSeparator))
		}
		f = next
		level = next.Subfields
	}

	if f.IsStruct() {
		return nil, fmt.Errorf("%w: %q is a struct field", types.ErrFieldNotFound, strings.Join(path, m.settings.FieldSeparator))
	}
	return f, nil
}

// ResolveOperator returns the operator declared under name.
func (m *Model) ResolveOperator(name string) (*types.OperatorSchema, error) {
	op, ok := m.operators.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrOperatorNotFound, name)
	}
	return op, nil
}

// ResolveWidget returns the widget declared under widgetType.
func (m *Model) ResolveWidget(widgetType string) (*types.WidgetSchema, error) {
	w, ok := m.widgets.Get(widgetType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrWidgetNotFound, widgetType)
	}
	return w, nil
}

// Conjunction returns the conjunction declared under name. An empty name selects the first
// declared conjunction.
func (m *Model) Conjunction(name string) (*types.ConjunctionSchema, error) {
	if name == "" {
		keys := m.conjunctions.Keys()
		if len(keys) == 0 {
			return nil, types.ErrConjunctionNotFound
		}
		name = keys[0]
	}
	c, ok := m.conjunctions.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", types.ErrConjunctionNotFound, name)
	}
	return c, nil
}

// Settings returns the settings with defaults applied.
func (m *Model) Settings() types.Settings {
	return m.settings
}

// Fields returns the top-level fields in declaration order.
func (m *Model) Fields() types.OrderedMap[*types.FieldSchema] {
	return m.fields
}

// Operators returns all operators in declaration order.
func (m *Model) Operators() types.OrderedMap[*types.OperatorSchema] {
	return m.operators
}

// Widgets returns all widgets in declaration order.
func (m *Model) Widgets() types.OrderedMap[*types.WidgetSchema] {
	return m.widgets
}

// Conjunctions returns all conjunctions in declaration order.
func (m *Model) Conjunctions() types.OrderedMap[*types.ConjunctionSchema] {
	return m.conjunctions
}

// IsListBacked reports whether operator name translates keys through listValues.
func (m *Model) IsListBacked(name string) bool {
	return m.listBacked[name]
}

// Checksum identifies the configuration the model was built from (hex SHA-256).
func (m *Model) Checksum() string {
	return m.checksum
}
