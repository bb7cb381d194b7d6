package plate

import "strings"

// WellKey identifies a well position independent of plate.
type WellKey struct {
	Row string
	Col int
}

// NewWellKey normalises the row letter so "a" and " A" match "A".
func NewWellKey(row string, col int) WellKey {
	return WellKey{Row: strings.ToUpper(strings.TrimSpace(row)), Col: col}
}

// ControlLayout maps well positions to control-type labels. Wells absent from
// the map are ordinary compounds.
type ControlLayout struct {
	labels map[WellKey]string
}

// NewControlLayout creates an empty layout.
func NewControlLayout() *ControlLayout {
	return &ControlLayout{labels: make(map[WellKey]string)}
}

// Set assigns a label to a well position. It reports false if the position
// already carried a different label.
func (l *ControlLayout) Set(key WellKey, label string) bool {
	if prev, ok := l.labels[key]; ok && prev != label {
		return false
	}
	l.labels[key] = label
	return true
}

// Label returns the control type for a well, or fallback for unmapped wells.
func (l *ControlLayout) Label(key WellKey, fallback string) string {
	if l == nil {
		return fallback
	}
	if label, ok := l.labels[key]; ok {
		return label
	}
	return fallback
}

// Len returns the number of mapped wells.
func (l *ControlLayout) Len() int {
	if l == nil {
		return 0
	}
	return len(l.labels)
}
