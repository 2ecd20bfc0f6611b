// Package field implements the per-type value pipelines:
// raw input -> sanitize -> validate -> canonical value -> display string.
//
// Pipelines register themselves in init(); callers look them up by field type.
// Unknown types resolve to the Text pipeline.
package field

import (
	"fmt"
	"sort"
	"sync"

	"github.com/leapstack-labs/gridcell/pkg/core"
)

// Pipeline transforms values for one field type.
type Pipeline interface {
	// Type returns the field type this pipeline serves.
	Type() core.FieldType
	// Sanitize strips characters the type never accepts. It must be idempotent.
	Sanitize(input string) string
	// Parse turns typed or pasted text into a canonical value.
	Parse(input string, col core.ColumnDescriptor) (core.Value, error)
	// Normalize canonicalizes a staged value of any kind. Strings go through Parse.
	Normalize(v core.Value, col core.ColumnDescriptor) (core.Value, error)
	// Display renders a canonical value for a cell.
	Display(v core.Value) string
	// Valid reports whether a stored value still satisfies the type, for warnings.
	Valid(v core.Value, col core.ColumnDescriptor) bool
}

var (
	registryMu sync.RWMutex
	registry   = make(map[core.FieldType]Pipeline)
)

// Register adds a pipeline to the registry, replacing any previous one for the same type.
// Called by pipeline implementations in their init() functions.
func Register(p Pipeline) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[p.Type()] = p
}

// Lookup retrieves the pipeline for a field type.
func Lookup(t core.FieldType) (Pipeline, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	p, ok := registry[t]
	if !ok {
		return nil, &UnknownFieldTypeError{Type: t, Available: typesLocked()}
	}
	return p, nil
}

// For returns the pipeline for a field type, falling back to Text.
func For(t core.FieldType) Pipeline {
	if p, err := Lookup(t); err == nil {
		return p
	}
	p, _ := Lookup(core.FieldText)
	return p
}

// Types returns every registered field type (sorted).
func Types() []core.FieldType {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return typesLocked()
}

func typesLocked() []core.FieldType {
	out := make([]core.FieldType, 0, len(registry))
	for t := range registry {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// UnknownFieldTypeError is returned when no pipeline is registered for a type.
type UnknownFieldTypeError struct {
	Type      core.FieldType
	Available []core.FieldType
}

func (e *UnknownFieldTypeError) Error() string {
	return fmt.Sprintf("unknown field type %q\nAvailable field types: %v", e.Type, e.Available)
}

// Canonicalize runs the column's pipeline on a staged value.
func Canonicalize(col core.ColumnDescriptor, v core.Value) (core.Value, error) {
	return For(col.Type).Normalize(v, col)
}

// Display renders a value with the column's pipeline.
func Display(col core.ColumnDescriptor, v core.Value) string {
	return For(col.Type).Display(v)
}

func invalid(col core.ColumnDescriptor, t core.FieldType, input, reason string) error {
	return &core.ValidationError{Column: col.Name, Type: t, Input: input, Reason: reason}
}
