// Package schema holds the canonical column schema: the fixed set of
// logical fields every source table is normalized onto, together with
// the alias vocabulary used to recognize arbitrary source headers.
//
// A Registry is an immutable snapshot. Mutating operations return a new
// Registry so that concurrent readers never observe a half-applied
// configuration change; the Store swaps snapshots atomically.
package schema

import (
	"fmt"
	"strings"

	"github.com/ordercheck/ordercheck/internal/table"
)

// Well-known canonical field names.
const (
	FieldItemID      = "item_id"
	FieldProductName = "product_name"
	FieldSize        = "size"
	FieldColor       = "color"
	FieldUnitPrice   = "standard_unit_price"
)

// CanonicalField is one logical column of the canonical schema.
type CanonicalField struct {
	Name     string   `json:"name"`
	Aliases  []string `json:"aliases"`
	Required bool     `json:"required"`
}

// Registry is an ordered set of canonical fields.
type Registry struct {
	fields []CanonicalField
}

// NewRegistry builds a registry from the given fields, preserving order.
func NewRegistry(fields []CanonicalField) *Registry {
	out := make([]CanonicalField, len(fields))
	for i, f := range fields {
		out[i] = CanonicalField{
			Name:     f.Name,
			Aliases:  append([]string(nil), f.Aliases...),
			Required: f.Required,
		}
	}
	return &Registry{fields: out}
}

// Fields returns the canonical fields in definition order.
func (r *Registry) Fields() []CanonicalField {
	out := make([]CanonicalField, len(r.fields))
	copy(out, r.fields)
	return out
}

// FieldNames returns the canonical field names in definition order.
func (r *Registry) FieldNames() []string {
	names := make([]string, len(r.fields))
	for i, f := range r.fields {
		names[i] = f.Name
	}
	return names
}

// RequiredFields returns the names of all required fields.
func (r *Registry) RequiredFields() []string {
	var names []string
	for _, f := range r.fields {
		if f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}

// OptionalFields returns the names of all optional fields.
func (r *Registry) OptionalFields() []string {
	var names []string
	for _, f := range r.fields {
		if !f.Required {
			names = append(names, f.Name)
		}
	}
	return names
}

// Field returns the named field and whether it exists.
func (r *Registry) Field(name string) (CanonicalField, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f, true
		}
	}
	return CanonicalField{}, false
}

// ReverseIndex maps every lower-cased alias and field name to its
// canonical field name. Field names themselves are always valid aliases;
// when an alias string is claimed by more than one field, the first
// definition wins.
func (r *Registry) ReverseIndex() map[string]string {
	idx := make(map[string]string)
	for _, f := range r.fields {
		for _, a := range f.Aliases {
			key := table.NormalizeKey(a)
			if _, taken := idx[key]; !taken {
				idx[key] = f.Name
			}
		}
		key := table.NormalizeKey(f.Name)
		if _, taken := idx[key]; !taken {
			idx[key] = f.Name
		}
	}
	return idx
}

// Vocabulary returns every alias and field name, lower-cased, in a
// deterministic order (definition order, aliases before the field name).
func (r *Registry) Vocabulary() []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range r.fields {
		for _, a := range f.Aliases {
			key := table.NormalizeKey(a)
			if !seen[key] {
				seen[key] = true
				out = append(out, key)
			}
		}
		key := table.NormalizeKey(f.Name)
		if !seen[key] {
			seen[key] = true
			out = append(out, key)
		}
	}
	return out
}

// WithField returns a copy of the registry with the field appended.
func (r *Registry) WithField(f CanonicalField) (*Registry, error) {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return nil, fmt.Errorf("field name is empty")
	}
	if _, exists := r.Field(name); exists {
		return nil, fmt.Errorf("field %q already exists", name)
	}
	fields := r.Fields()
	f.Name = name
	fields = append(fields, f)
	return NewRegistry(fields), nil
}

// WithoutField returns a copy of the registry with the named field
// removed.
func (r *Registry) WithoutField(name string) (*Registry, error) {
	fields := r.Fields()
	for i, f := range fields {
		if f.Name == name {
			return NewRegistry(append(fields[:i], fields[i+1:]...)), nil
		}
	}
	return nil, fmt.Errorf("field %q not found", name)
}

// WithAlias returns a copy of the registry with the alias added to the
// named field. Duplicate aliases on the same field are rejected.
func (r *Registry) WithAlias(field, alias string) (*Registry, error) {
	alias = strings.TrimSpace(alias)
	if alias == "" {
		return nil, fmt.Errorf("alias is empty")
	}
	fields := r.Fields()
	for i, f := range fields {
		if f.Name != field {
			continue
		}
		for _, a := range f.Aliases {
			if strings.EqualFold(a, alias) {
				return nil, fmt.Errorf("alias %q already exists on %q", alias, field)
			}
		}
		fields[i].Aliases = append(append([]string(nil), f.Aliases...), alias)
		return NewRegistry(fields), nil
	}
	return nil, fmt.Errorf("field %q not found", field)
}

// WithoutAlias returns a copy of the registry with the alias removed
// from the named field.
func (r *Registry) WithoutAlias(field, alias string) (*Registry, error) {
	fields := r.Fields()
	for i, f := range fields {
		if f.Name != field {
			continue
		}
		for j, a := range f.Aliases {
			if strings.EqualFold(a, alias) {
				aliases := append([]string(nil), f.Aliases[:j]...)
				fields[i].Aliases = append(aliases, f.Aliases[j+1:]...)
				return NewRegistry(fields), nil
			}
		}
		return nil, fmt.Errorf("alias %q not found on %q", alias, field)
	}
	return nil, fmt.Errorf("field %q not found", field)
}
