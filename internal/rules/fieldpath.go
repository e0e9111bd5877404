// internal/rules/fieldpath.go
package rules

import (
	"strings"

	"github.com/solatis/querybuilder/internal/schema"
	"github.com/solatis/querybuilder/internal/types"
)

/*
 * Field path resolution against the schema.
 *
 * A stored rule addresses its field with a dotted path joined by settings.fieldSeparator
 * ("members.subname"). Resolution walks fields then subfields one segment at a time and
 * only succeeds on a leaf: struct fields group subfields and are never queryable.
 *
 * Key is the path joined with the storage separator and is what compile functions render.
 * DisplayPath joins the resolved labels with settings.fieldSeparatorDisplay
 * ("Members->subname") and never reaches compiled output.
 *
 * The walk itself and the MaxPathDepth (16) check belong to schema.Model.ResolveField.
 */

// ResolvedField is a leaf field plus both renderings of its path.
type ResolvedField struct {
	Schema      *types.FieldSchema
	Path        []string
	Key         string
	DisplayPath string
}

// ResolveField resolves a stored field path to its leaf schema through model.ResolveField.
// Returns ErrPathTooDeep if the path exceeds MaxPathDepth.
// Returns ErrFieldNotFound for a missing segment, a segment without subfields that is not
// last, or a path ending on a struct field.
func ResolveField(model *schema.Model, dotted string) (ResolvedField, error) {
	settings := model.Settings()
	path := strings.Split(dotted, settings.FieldSeparator)

	field, err := model.ResolveField(path)
	if err != nil {
		return ResolvedField{}, err
	}

	// Every segment exists once the model has resolved the leaf.
	labels := make([]string, 0, len(path))
	level := model.Fields()
	for _, seg := range path {
		f, _ := level.Get(seg)
		labels = append(labels, f.Label)
		level = f.Subfields
	}

	return ResolvedField{
		Schema:      field,
		Path:        path,
		Key:         dotted,
		DisplayPath: strings.Join(labels, settings.FieldSeparatorDisplay),
	}, nil
}

// LeafFields lists every queryable field path in declaration order, depth first.
func LeafFields(model *schema.Model) []ResolvedField {
	settings := model.Settings()
	var out []ResolvedField

	var walk func(level types.OrderedMap[*types.FieldSchema], labels []string)
	walk = func(level types.OrderedMap[*types.FieldSchema], labels []string) {
		level.Each(func(_ string, f *types.FieldSchema) bool {
			display := append(append([]string(nil), labels...), f.Label)
			if f.IsStruct() {
				walk(f.Subfields, display)
				return true
			}
			out = append(out, ResolvedField{
				Schema:      f,
				Path:        f.Path,
				Key:         strings.Join(f.Path, settings.FieldSeparator),
				DisplayPath: strings.Join(display, settings.FieldSeparatorDisplay),
			})
			return true
		})
	}
	walk(model.Fields(), nil)

	return out
}
