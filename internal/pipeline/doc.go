// Package pipeline runs the QC steps in order: load, aggregate, metrics,
// export and render. Steps share a State and nothing else; the first step
// that fails ends the run and the remaining steps are skipped.
package pipeline
