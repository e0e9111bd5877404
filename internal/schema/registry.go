package schema

import "github.com/solatis/querybuilder/internal/types"

// Registry maps builtin names to compile functions. Operators and composite sub-operators
// resolve their behaviour through it at construction time, so a composite operator reaches
// its sub-operators through the same table as every other operator.
type Registry struct {
	operators    map[string]types.CompileFunc
	subOperators map[string]types.TransformFunc
	listBacked   map[string]bool
	helpers      map[string]any
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		operators:    make(map[string]types.CompileFunc),
		subOperators: make(map[string]types.TransformFunc),
		listBacked:   make(map[string]bool),
		helpers:      make(map[string]any),
	}
}

// RegisterOperator binds a builtin operator name.
func (r *Registry) RegisterOperator(name string, fn types.CompileFunc) {
	r.operators[name] = fn
}

// RegisterListOperator binds a builtin that translates keys through the field's listValues.
// Fields using it must declare listValues.
func (r *Registry) RegisterListOperator(name string, fn types.CompileFunc) {
	r.operators[name] = fn
	r.listBacked[name] = true
}

// RegisterSubOperator binds a builtin composite sub-operator name.
func (r *Registry) RegisterSubOperator(name string, fn types.TransformFunc) {
	r.subOperators[name] = fn
}

// RegisterHelper exposes a function to operator templates under name.
func (r *Registry) RegisterHelper(name string, fn any) {
	r.helpers[name] = fn
}

// Operator returns the builtin operator bound to name.
func (r *Registry) Operator(name string) (types.CompileFunc, bool) {
	fn, ok := r.operators[name]
	return fn, ok
}

// SubOperator returns the builtin sub-operator bound to name.
func (r *Registry) SubOperator(name string) (types.TransformFunc, bool) {
	fn, ok := r.subOperators[name]
	return fn, ok
}

// IsListBacked reports whether the builtin requires listValues on the field.
func (r *Registry) IsListBacked(name string) bool {
	return r.listBacked[name]
}
