package types

import "time"

// SavedQuery is a named rule tree stored together with the query text it compiled to.
// Compiled and SchemaChecksum describe the schema in force when the tree was saved; a
// later schema may compile the same tree differently.
type SavedQuery struct {
	ID             QueryID    `json:"id"`
	Name           string     `json:"name"`
	Tree           *GroupNode `json:"tree"`
	Compiled       string     `json:"compiled"`
	SchemaChecksum string     `json:"schemaChecksum"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}
