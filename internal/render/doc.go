// Package render draws the diagnostic figures of a run as PNG files.
//
// Box plots, the grouped control bar chart, the Z' bar charts and the plate
// heatmaps are drawn with gonum/plot; the control regression plot uses
// go-chart, which provides the least-squares fit series. All files are
// written through a files.Sink.
//
// A figure that cannot be drawn never stops the others. Every attempt ends
// in a RenderOutcome, and heatmaps of plates with an unsupported well count
// are reported with a PLATE_FORMAT error.
package render
