package framebuffer

import (
	"fmt"

	"github.com/BeatGlow/hwc/drm"
)

// FixScreenInfo is the fixed screen information (struct fb_fix_screeninfo).
type FixScreenInfo struct {
	ID           [16]byte // Identification string eg "TT Builtin"
	SmemStart    uintptr  // Start of frame buffer mem
	SmemLen      uint32   // Length of frame buffer mem
	Type         uint32   // FB_TYPE_
	TypeAux      uint32   // Interleave for interleaved Planes
	Visual       uint32   // FB_VISUAL_
	Xpanstep     uint16   // Zero if no hardware panning
	Ypanstep     uint16   // Zero if no hardware panning
	Ywrapstep    uint16   // Zero if no hardware ywrap
	LineLength   uint32   // Length of a line in bytes
	MmioStart    uintptr  // Start of Memory Mapped I/O (physical address)
	MmioLen      uint32   // Length of Memory Mapped I/O
	Accel        uint32   // Type of acceleration available
	Capabilities uint16
	Reserved     [2]uint16 // Reserved for future compatibility
}

// BitField describes the position of a color component in a pixel.
type BitField struct {
	Offset   uint32 // Beginning of bitfield
	Length   uint32 // Length of bitfield
	MsbRight uint32 // != 0 : Most significant bit is right
}

func (f BitField) is(offset, length uint32) bool {
	return f.Offset == offset && f.Length == length && f.MsbRight == 0
}

// VarScreenInfo is the variable screen information (struct fb_var_screeninfo).
type VarScreenInfo struct {
	Xres                    uint32
	Yres                    uint32
	XresVirtual             uint32
	YresVirtual             uint32
	Xoffset                 uint32
	Yoffset                 uint32
	BitsPerPixel            uint32
	Grayscale               uint32
	Red, Green, Blue, Alpha BitField
	Nonstd                  uint32
	Activate                uint32
	Height                  uint32
	Width                   uint32
	AccelFlags              uint32
	Pixclock                uint32
	LeftMargin              uint32
	RightMargin             uint32
	UpperMargin             uint32
	LowerMargin             uint32
	HsyncLen                uint32
	VsyncLen                uint32
	Sync                    uint32
	Vmode                   uint32
	Rotate                  uint32
	Colorspace              uint32
	Reserved                [4]uint32
}

// Format maps the color layout to a DRM pixel format.
func (info *VarScreenInfo) Format() (drm.Fourcc, error) {
	if info.Grayscale == 0 {
		switch info.BitsPerPixel {
		case 16:
			switch {
			case info.Red.is(11, 5) && info.Green.is(5, 6) && info.Blue.is(0, 5):
				return drm.FormatRGB565, nil
			case info.Blue.is(11, 5) && info.Green.is(5, 6) && info.Red.is(0, 5):
				return drm.FormatBGR565, nil
			}

		case 24:
			switch {
			case info.Red.is(16, 8) && info.Green.is(8, 8) && info.Blue.is(0, 8):
				return drm.FormatRGB888, nil
			case info.Blue.is(16, 8) && info.Green.is(8, 8) && info.Red.is(0, 8):
				return drm.FormatBGR888, nil
			}

		case 32:
			alpha := info.Alpha.is(24, 8)
			switch {
			case info.Red.is(16, 8) && info.Green.is(8, 8) && info.Blue.is(0, 8):
				if alpha {
					return drm.FormatARGB8888, nil
				}
				return drm.FormatXRGB8888, nil
			case info.Blue.is(16, 8) && info.Green.is(8, 8) && info.Red.is(0, 8):
				if alpha {
					return drm.FormatABGR8888, nil
				}
				return drm.FormatXBGR8888, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: %d bpp, red %+v, green %+v, blue %+v", ErrUnsupportedFormat, info.BitsPerPixel, info.Red, info.Green, info.Blue)
}
