// Package entity defines the searchable entity kinds.
package entity

// Type is the kind of record a search targets.
type Type string

const (
	// Company searches company records.
	Company Type = "company"
	// Contact searches contact (person) records.
	Contact Type = "contact"
)

// IsValid reports whether the type is a known entity kind.
func (t Type) IsValid() bool {
	return t == Company || t == Contact
}

// All returns every valid entity type.
func All() []Type {
	return []Type{Company, Contact}
}
