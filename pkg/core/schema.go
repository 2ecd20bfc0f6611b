package core

import "sort"

// IDColumn is the primary key column every table exposes.
const IDColumn = "id"

// =============================================================================
// Template
// =============================================================================

// FieldSchema describes one stored column of a table.
type FieldSchema struct {
	DisplayName string    `json:"displayName,omitempty" mapstructure:"displayName"`
	Type        FieldType `json:"type" mapstructure:"type"`
	Comment     string    `json:"comment,omitempty" mapstructure:"comment"`
	Description string    `json:"description,omitempty" mapstructure:"description"`

	// Readonly blocks editing of the column.
	Readonly bool `json:"readonly,omitempty" mapstructure:"readonly"`
	// Min, Max and Step override the bounds of Counter and Progress columns.
	Min  *float64 `json:"min,omitempty" mapstructure:"min"`
	Max  *float64 `json:"max,omitempty" mapstructure:"max"`
	Step *float64 `json:"step,omitempty" mapstructure:"step"`
}

// HasRange reports whether any bound is set.
func (f FieldSchema) HasRange() bool {
	return f.Min != nil || f.Max != nil || f.Step != nil
}

// TableSchema describes a table and its fields.
type TableSchema struct {
	ID           string                 `json:"id,omitempty" mapstructure:"id"`
	Category     string                 `json:"category,omitempty" mapstructure:"category"`
	DisplayField string                 `json:"displayField,omitempty" mapstructure:"displayField"`
	Description  string                 `json:"description,omitempty" mapstructure:"description"`
	Fields       map[string]FieldSchema `json:"fields" mapstructure:"fields"`

	// FieldOrder is the declaration order of Fields. Empty means sorted by name.
	FieldOrder []string `json:"-" mapstructure:"-"`
}

// OrderedFields returns field names in declaration order.
func (t *TableSchema) OrderedFields() []string {
	if t == nil {
		return nil
	}
	if len(t.FieldOrder) > 0 {
		out := make([]string, 0, len(t.FieldOrder))
		for _, name := range t.FieldOrder {
			if _, ok := t.Fields[name]; ok {
				out = append(out, name)
			}
		}
		return out
	}
	out := make([]string, 0, len(t.Fields))
	for name := range t.Fields {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// RelationType is the cardinality of a relation.
type RelationType string

// Relation cardinalities.
const (
	RelationManyToMany RelationType = "M:N"
	RelationOneToMany  RelationType = "1:M"
	RelationOneToOne   RelationType = "1:1"
)

// RelationEnd is one side of a relation. As is the column name the relation
// is exposed under on Table.
type RelationEnd struct {
	Table    string `json:"table" mapstructure:"table"`
	Name     string `json:"name,omitempty" mapstructure:"name"`
	Relation string `json:"relation,omitempty" mapstructure:"relation"`
	As       string `json:"as" mapstructure:"as"`
}

// ToMany reports whether this end holds a list of related rows.
func (e RelationEnd) ToMany() bool {
	return e.Relation == "hasMany" || e.Relation == "belongsToMany"
}

// Relation links two tables.
type Relation struct {
	Type       RelationType `json:"type" mapstructure:"type"`
	Source     RelationEnd  `json:"source" mapstructure:"source"`
	Target     RelationEnd  `json:"target" mapstructure:"target"`
	Through    string       `json:"through,omitempty" mapstructure:"through"`
	ForeignKey string       `json:"foreignKey,omitempty" mapstructure:"foreignKey"`
}

// Template is a full schema: tables plus the relations between them.
type Template struct {
	Tables    map[string]*TableSchema `json:"tables" mapstructure:"tables"`
	Relations []Relation              `json:"relations" mapstructure:"relations"`
}

// Table returns the named table schema.
func (t *Template) Table(name string) (*TableSchema, bool) {
	if t == nil {
		return nil, false
	}
	ts, ok := t.Tables[name]
	return ts, ok && ts != nil
}

// TableNames returns all table names, sorted.
func (t *Template) TableNames() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.Tables))
	for name := range t.Tables {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Columns returns the columns of a table: id, declared fields, then relation columns.
func (t *Template) Columns(table string) []string {
	ts, ok := t.Table(table)
	if !ok {
		return nil
	}

	seen := map[string]bool{IDColumn: true}
	out := []string{IDColumn}
	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		out = append(out, name)
	}
	for _, name := range ts.OrderedFields() {
		add(name)
	}
	for _, rel := range t.Relations {
		if rel.Source.Table == table {
			add(rel.Source.As)
		} else if rel.Target.Table == table {
			add(rel.Target.As)
		}
	}
	return out
}

// Relation returns the relation exposed on table under column, with the local
// and remote ends.
func (t *Template) Relation(table, column string) (rel Relation, local, remote RelationEnd, ok bool) {
	if t == nil {
		return Relation{}, RelationEnd{}, RelationEnd{}, false
	}
	for _, r := range t.Relations {
		if r.Source.Table == table && r.Source.As == column {
			return r, r.Source, r.Target, true
		}
		if r.Target.Table == table && r.Target.As == column {
			return r, r.Target, r.Source, true
		}
	}
	return Relation{}, RelationEnd{}, RelationEnd{}, false
}

// IsRelationColumn reports whether any relation exposes a column with this name.
func (t *Template) IsRelationColumn(column string) bool {
	if t == nil {
		return false
	}
	for _, r := range t.Relations {
		if r.Source.As == column || r.Target.As == column {
			return true
		}
	}
	return false
}

// FieldType resolves the type of a column. The id column is Text, relation
// columns are Relationship. Unknown columns return a SchemaMismatchError
// alongside FieldText so callers can fall back.
func (t *Template) FieldType(table, column string) (FieldType, error) {
	ts, ok := t.Table(table)
	if !ok {
		return FieldText, &SchemaMismatchError{Table: table, Column: column}
	}
	if column == IDColumn {
		return FieldText, nil
	}
	if f, ok := ts.Fields[column]; ok {
		return f.Type.Normalize(), nil
	}
	if _, _, _, ok := t.Relation(table, column); ok {
		return FieldRelationship, nil
	}
	return FieldText, &SchemaMismatchError{Table: table, Column: column}
}
