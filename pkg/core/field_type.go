package core

import "strings"

// =============================================================================
// FieldType
// =============================================================================

// FieldType names how a column's values are sanitized, validated and displayed.
// The set is closed: anything outside it degrades to FieldText.
type FieldType string

// Field types recognised in schema templates.
const (
	FieldText         FieldType = "Text"
	FieldLongText     FieldType = "Long Text"
	FieldURL          FieldType = "Url"
	FieldImage        FieldType = "Image"
	FieldNumber       FieldType = "Number"
	FieldFloat        FieldType = "Float"
	FieldDate         FieldType = "Date"
	FieldBoolean      FieldType = "Boolean"
	FieldJSON         FieldType = "JSON"
	FieldBadge        FieldType = "Badge"
	FieldSingleSelect FieldType = "Single select"
	FieldMultiSelect  FieldType = "Multi select"
	FieldRelationship FieldType = "Relationship"
	FieldProgress     FieldType = "Progress"
	FieldCounter      FieldType = "Counter"
)

var allFieldTypes = []FieldType{
	FieldText, FieldLongText, FieldURL, FieldImage, FieldNumber, FieldFloat,
	FieldDate, FieldBoolean, FieldJSON, FieldBadge, FieldSingleSelect,
	FieldMultiSelect, FieldRelationship, FieldProgress, FieldCounter,
}

// FieldTypes returns every recognised field type in declaration order.
func FieldTypes() []FieldType {
	out := make([]FieldType, len(allFieldTypes))
	copy(out, allFieldTypes)
	return out
}

// ParseFieldType converts a schema type name to a FieldType.
// Matching ignores case, spaces, underscores and dashes, so "long_text",
// "LongText" and "Long Text" are equivalent.
// Returns FieldText and false for unknown names.
func ParseFieldType(s string) (FieldType, bool) {
	want := normalizeTypeName(s)
	if want == "" {
		return FieldText, false
	}
	for _, ft := range allFieldTypes {
		if normalizeTypeName(string(ft)) == want {
			return ft, true
		}
	}
	return FieldText, false
}

func normalizeTypeName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch r {
		case ' ', '_', '-':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// String returns the schema name of the field type.
func (t FieldType) String() string {
	return string(t)
}

// Known reports whether t is a member of the closed set.
func (t FieldType) Known() bool {
	for _, ft := range allFieldTypes {
		if ft == t {
			return true
		}
	}
	return false
}

// Normalize returns t when known, FieldText otherwise.
func (t FieldType) Normalize() FieldType {
	if t.Known() {
		return t
	}
	return FieldText
}

// IsNumeric reports whether values of this type are numbers for aggregation.
func (t FieldType) IsNumeric() bool {
	switch t {
	case FieldNumber, FieldFloat, FieldCounter, FieldProgress:
		return true
	}
	return false
}

// IsSelect reports whether values are stored as an array of option strings.
func (t FieldType) IsSelect() bool {
	return t == FieldSingleSelect || t == FieldMultiSelect
}

// IsRanged reports whether the type carries min/max/step bounds.
func (t FieldType) IsRanged() bool {
	return t == FieldCounter || t == FieldProgress
}

// Editable reports whether cells of this type accept edits through the pipeline.
func (t FieldType) Editable() bool {
	return t != FieldRelationship
}
