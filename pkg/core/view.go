package core

// =============================================================================
// ViewConfig
// =============================================================================

// ColumnVisibility is one entry of a view's visibility list.
type ColumnVisibility struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// PinnedColumns lists columns pinned to either edge of the grid.
type PinnedColumns struct {
	Start []string `json:"start"`
	End   []string `json:"end"`
}

// ViewConfig is a persisted per-view column layout.
type ViewConfig struct {
	ColumnOrder    []string           `json:"columnOrder"`
	VisibleColumns []ColumnVisibility `json:"visibleColumns"`
	Pinned         PinnedColumns      `json:"pinnedColumns"`
	GroupBy        []string           `json:"groupBy,omitempty"`
}

// Clone returns a deep copy so reducers never share slices with their input.
func (c ViewConfig) Clone() ViewConfig {
	var out ViewConfig
	out.GroupBy = append([]string(nil), c.GroupBy...)
	out.ColumnOrder = append([]string(nil), c.ColumnOrder...)
	out.VisibleColumns = append([]ColumnVisibility(nil), c.VisibleColumns...)
	out.Pinned.Start = append([]string(nil), c.Pinned.Start...)
	out.Pinned.End = append([]string(nil), c.Pinned.End...)
	return out
}

// IsVisible reports whether a column is shown. Columns missing from the list are visible.
func (c ViewConfig) IsVisible(name string) bool {
	for _, vc := range c.VisibleColumns {
		if vc.Name == name {
			return vc.Enabled
		}
	}
	return true
}

// PinOf returns where a column is pinned.
func (c ViewConfig) PinOf(name string) Pin {
	for _, n := range c.Pinned.Start {
		if n == name {
			return PinStart
		}
	}
	for _, n := range c.Pinned.End {
		if n == name {
			return PinEnd
		}
	}
	return PinNone
}

// =============================================================================
// ColumnDescriptor
// =============================================================================

// Pin is the edge a column is pinned to.
type Pin string

// Pin positions.
const (
	PinNone  Pin = ""
	PinStart Pin = "start"
	PinEnd   Pin = "end"
)

// NumericRange bounds Counter and Progress values.
type NumericRange struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

// ColumnDescriptor is the rendering and editing metadata for one column,
// derived from the schema and the view configuration.
type ColumnDescriptor struct {
	Name        string        `json:"name"`
	DisplayName string        `json:"displayName"`
	Type        FieldType     `json:"fieldType"`
	Readonly    bool          `json:"readonly"`
	Hidden      bool          `json:"hidden"`
	Relation    bool          `json:"relation"`
	Range       *NumericRange `json:"range,omitempty"`
	Pin         Pin           `json:"pin,omitempty"`
	Width       int           `json:"width"`
}
