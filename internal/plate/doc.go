// Package plate holds the microplate data model shared by every pipeline
// stage: plate geometries and row-major reshaping, the control layout, and
// the compiled long table of well readings.
package plate
