package draw

import (
	"image"
	"image/color"
	"sync"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	defaultFontOnce sync.Once
	defaultFont     *truetype.Font
	defaultFontErr  error
)

// DefaultFont is the Go Regular font.
func DefaultFont() (*truetype.Font, error) {
	defaultFontOnce.Do(func() {
		defaultFont, defaultFontErr = truetype.Parse(goregular.TTF)
	})
	return defaultFont, defaultFontErr
}

// Text draws s in the default font, with size in points at 72 DPI. The baseline
// starts at pt; the returned point is where the next glyph would be drawn.
func Text(dst Image, pt image.Point, size float64, c color.Color, s string) (image.Point, error) {
	f, err := DefaultFont()
	if err != nil {
		return pt, err
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(72)
	ctx.SetFont(f)
	ctx.SetFontSize(size)
	ctx.SetClip(dst.Bounds())
	ctx.SetDst(dst)
	ctx.SetSrc(image.NewUniform(c))

	end, err := ctx.DrawString(s, freetype.Pt(pt.X, pt.Y))
	if err != nil {
		return pt, err
	}
	return image.Pt(end.X.Round(), end.Y.Round()), nil
}
