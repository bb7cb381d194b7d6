// Package analysis computes per-plate control statistics and the QC metrics
// derived from them: signal-to-background, Z' factor and robust Z' factor.
//
// Everything here is pure. Undefined results are NaN and are explained in
// the plate's flags rather than returned as errors.
package analysis
