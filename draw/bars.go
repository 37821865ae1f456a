package draw

import (
	"image"
	"image/color"
)

// BarColors are the 75% color bars, left to right.
var BarColors = []color.Color{
	color.RGBA{R: 0xbf, G: 0xbf, B: 0xbf, A: 0xff}, // gray
	color.RGBA{R: 0xbf, G: 0xbf, A: 0xff},          // yellow
	color.RGBA{G: 0xbf, B: 0xbf, A: 0xff},          // cyan
	color.RGBA{G: 0xbf, A: 0xff},                   // green
	color.RGBA{R: 0xbf, B: 0xbf, A: 0xff},          // magenta
	color.RGBA{R: 0xbf, A: 0xff},                   // red
	color.RGBA{B: 0xbf, A: 0xff},                   // blue
}

// Bars fills dst with vertical color bars, a white border and a center cross.
func Bars(dst Image) {
	var (
		r = dst.Bounds()
		n = len(BarColors)
	)
	if r.Empty() {
		return
	}
	for i, c := range BarColors {
		Box(dst, image.Rect(
			r.Min.X+r.Dx()*i/n, r.Min.Y,
			r.Min.X+r.Dx()*(i+1)/n, r.Max.Y,
		), c)
	}
	Rectangle(dst, r, color.White)
	Cross(dst, r, color.White)
}
