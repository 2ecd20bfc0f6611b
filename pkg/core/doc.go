// Package core defines the shared language of the gridcell system.
//
// This package contains:
//   - Schema entities (Template, TableSchema, Relation, FieldType)
//   - Cell values (Value, Record) and their raw storage shapes
//   - Editing entities (EditTarget, CommitEvent)
//   - View entities (ViewConfig, ColumnDescriptor)
//   - The error taxonomy (ValidationError, SchemaMismatchError)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
