package pixel

import (
	"encoding/binary"
	"errors"
	"image"
	"image/color"

	"github.com/BeatGlow/hwc/draw"
)

// Errors
var (
	ErrShortBuffer = errors.New("pixel: buffer too small for image")
)

type Image interface {
	draw.Image

	// Clear the image.
	Clear()

	// Fill the image with a single color.
	Fill(color.Color)
}

// Buffer holds the pixel values and is a container that is used by all image formats in this package.
type Buffer struct {
	// Rect is the image bounding box.
	Rect image.Rectangle

	// Pix are the image pixels.
	Pix []byte

	// Stride is the Pix stride (in bytes) between vertically adjacent pixels.
	Stride int
}

// NewBuffer wraps pix, typically mapped buffer memory, as a w x h image with the given stride.
func NewBuffer(pix []byte, w, h, stride, bytesPerPixel int) (Buffer, error) {
	if w < 0 || h < 0 || stride < w*bytesPerPixel {
		return Buffer{}, ErrShortBuffer
	}
	if h > 0 && len(pix) < (h-1)*stride+w*bytesPerPixel {
		return Buffer{}, ErrShortBuffer
	}
	return Buffer{
		Rect:   image.Rect(0, 0, w, h),
		Pix:    pix,
		Stride: stride,
	}, nil
}

func (p *Buffer) Bounds() image.Rectangle {
	return p.Rect
}

func (p *Buffer) Clear() {
	for i := range p.Pix {
		p.Pix[i] = 0x00
	}
}

func makeBuffer(w, h, bytesPerPixel int) Buffer {
	return Buffer{
		Rect:   image.Rect(0, 0, w, h),
		Pix:    make([]byte, w*h*bytesPerPixel),
		Stride: w * bytesPerPixel,
	}
}

// fill32 repeats a 4-byte pixel over every row.
func (p *Buffer) fill32(v [4]byte) {
	w := p.Rect.Dx()
	for y := 0; y < p.Rect.Dy(); y++ {
		row := p.Pix[y*p.Stride:]
		for x := 0; x < w; x++ {
			copy(row[x*4:], v[:])
		}
	}
}

// RGB565Image is a 16-bits per pixel 5-6-5-bit RGB image (DRM_FORMAT_RGB565).
type RGB565Image struct {
	Buffer
	Order binary.ByteOrder
}

// NewRGB565Image allocates a little endian RGB565 image.
func NewRGB565Image(w, h int) *RGB565Image {
	return &RGB565Image{
		Buffer: makeBuffer(w, h, 2),
		Order:  binary.LittleEndian,
	}
}

func (p *RGB565Image) ColorModel() color.Model {
	return RGB565Model
}

func (p *RGB565Image) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}).In(p.Rect) {
		return color.Transparent
	}

	v := p.Order.Uint16(p.Pix[x*2+y*p.Stride:])
	return RGB565{v}
}

func (p *RGB565Image) Set(x, y int, c color.Color) {
	if !(image.Point{X: x, Y: y}).In(p.Rect) {
		return
	}

	v := rgb565Model(c).(RGB565).V
	p.Order.PutUint16(p.Pix[x*2+y*p.Stride:], v)
}

func (p *RGB565Image) Fill(c color.Color) {
	value := rgb565Model(c).(RGB565).V
	bytes := make([]byte, 2)
	p.Order.PutUint16(bytes, value)
	for y := 0; y < p.Rect.Dy(); y++ {
		row := p.Pix[y*p.Stride:]
		for x := 0; x < p.Rect.Dx(); x++ {
			copy(row[x*2:], bytes)
		}
	}
}

// XRGB8888Image is a 32-bits per pixel image with an unused alpha byte
// (DRM_FORMAT_XRGB8888), stored as B, G, R, X bytes.
type XRGB8888Image struct {
	Buffer
}

func NewXRGB8888Image(w, h int) *XRGB8888Image {
	return &XRGB8888Image{Buffer: makeBuffer(w, h, 4)}
}

func (p *XRGB8888Image) ColorModel() color.Model {
	return OpaqueModel
}

func (p *XRGB8888Image) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}).In(p.Rect) {
		return color.Transparent
	}

	i := x*4 + y*p.Stride
	return color.RGBA{R: p.Pix[i+2], G: p.Pix[i+1], B: p.Pix[i], A: 0xff}
}

func (p *XRGB8888Image) Set(x, y int, c color.Color) {
	if !(image.Point{X: x, Y: y}).In(p.Rect) {
		return
	}

	v := opaqueModel(c).(color.RGBA)
	i := x*4 + y*p.Stride
	p.Pix[i+0] = v.B
	p.Pix[i+1] = v.G
	p.Pix[i+2] = v.R
	p.Pix[i+3] = 0xff
}

func (p *XRGB8888Image) Fill(c color.Color) {
	v := opaqueModel(c).(color.RGBA)
	p.fill32([4]byte{v.B, v.G, v.R, 0xff})
}

// ARGB8888Image is a 32-bits per pixel image with premultiplied alpha
// (DRM_FORMAT_ARGB8888), stored as B, G, R, A bytes.
type ARGB8888Image struct {
	Buffer
}

func NewARGB8888Image(w, h int) *ARGB8888Image {
	return &ARGB8888Image{Buffer: makeBuffer(w, h, 4)}
}

func (p *ARGB8888Image) ColorModel() color.Model {
	return color.RGBAModel
}

func (p *ARGB8888Image) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}).In(p.Rect) {
		return color.Transparent
	}

	i := x*4 + y*p.Stride
	return color.RGBA{R: p.Pix[i+2], G: p.Pix[i+1], B: p.Pix[i], A: p.Pix[i+3]}
}

func (p *ARGB8888Image) Set(x, y int, c color.Color) {
	if !(image.Point{X: x, Y: y}).In(p.Rect) {
		return
	}

	v := color.RGBAModel.Convert(c).(color.RGBA)
	i := x*4 + y*p.Stride
	p.Pix[i+0] = v.B
	p.Pix[i+1] = v.G
	p.Pix[i+2] = v.R
	p.Pix[i+3] = v.A
}

func (p *ARGB8888Image) Fill(c color.Color) {
	v := color.RGBAModel.Convert(c).(color.RGBA)
	p.fill32([4]byte{v.B, v.G, v.R, v.A})
}

// Interface checks.
var (
	_ Image = (*RGB565Image)(nil)
	_ Image = (*XRGB8888Image)(nil)
	_ Image = (*ARGB8888Image)(nil)
)
