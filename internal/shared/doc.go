// Package shared groups helpers that are used across htsqc packages but
// belong to no pipeline stage.
//
// The testutil subpackage provides:
//
//	- a buffered slog handler for asserting on structured log output
//	- plate-reader CSV and control-layout fixtures written into t.TempDir()
//
// Example usage:
//
//	func TestLoader(t *testing.T) {
//	    dir := t.TempDir()
//	    testutil.WritePlateCSV(t, dir, "plate_01.csv", testutil.UniformPlate(96, 1000))
//	    layout := testutil.WriteControlLayout(t, dir, testutil.EdgeControls(96))
//	    ...
//	}
package shared
