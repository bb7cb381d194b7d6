package render

import (
	"image/color"

	"github.com/wcharczuk/go-chart/v2/drawing"
	"gonum.org/v1/plot/plotutil"
)

// grey is the colour of reference lines and annotations.
var grey = color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xff}

// seriesColor returns the i-th categorical colour.
func seriesColor(i int) color.Color {
	return plotutil.Color(i)
}

// chartColor converts a categorical colour for go-chart.
func chartColor(i int) drawing.Color {
	r, g, b, a := seriesColor(i).RGBA()
	return drawing.Color{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}
}
