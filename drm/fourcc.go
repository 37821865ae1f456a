package drm

import (
	"fmt"
	"strings"
)

// Fourcc is a DRM pixel format code, see <drm/drm_fourcc.h>.
type Fourcc uint32

// NewFourcc builds a format code from its four characters.
func NewFourcc(a, b, c, d byte) Fourcc {
	return Fourcc(a) | Fourcc(b)<<8 | Fourcc(c)<<16 | Fourcc(d)<<24
}

// Supported formats.
var (
	FormatRGB565   = NewFourcc('R', 'G', '1', '6')
	FormatBGR565   = NewFourcc('B', 'G', '1', '6')
	FormatRGB888   = NewFourcc('R', 'G', '2', '4')
	FormatBGR888   = NewFourcc('B', 'G', '2', '4')
	FormatXRGB8888 = NewFourcc('X', 'R', '2', '4')
	FormatXBGR8888 = NewFourcc('X', 'B', '2', '4')
	FormatARGB8888 = NewFourcc('A', 'R', '2', '4')
	FormatABGR8888 = NewFourcc('A', 'B', '2', '4')
	FormatNV12     = NewFourcc('N', 'V', '1', '2')
	FormatYUV420   = NewFourcc('Y', 'U', '1', '2')
)

type formatInfo struct {
	name   string
	bpp    uint32
	planes int
}

var formats = map[Fourcc]formatInfo{
	FormatRGB565:   {"RGB565", 16, 1},
	FormatBGR565:   {"BGR565", 16, 1},
	FormatRGB888:   {"RGB888", 24, 1},
	FormatBGR888:   {"BGR888", 24, 1},
	FormatXRGB8888: {"XRGB8888", 32, 1},
	FormatXBGR8888: {"XBGR8888", 32, 1},
	FormatARGB8888: {"ARGB8888", 32, 1},
	FormatABGR8888: {"ABGR8888", 32, 1},
	FormatNV12:     {"NV12", 8, 2},
	FormatYUV420:   {"YUV420", 8, 3},
}

// String returns the four character code, or the hex value if it is not printable.
func (f Fourcc) String() string {
	var b [4]byte
	for i := range b {
		b[i] = byte(f >> (8 * i))
		if b[i] < 0x20 || b[i] > 0x7e {
			return fmt.Sprintf("0x%08x", uint32(f))
		}
	}
	return string(b[:])
}

// Name is the long format name (such as "XRGB8888"), or the four character code if unknown.
func (f Fourcc) Name() string {
	if info, ok := formats[f]; ok {
		return info.name
	}
	return f.String()
}

// BitsPerPixel of the first plane, 0 for unknown formats.
func (f Fourcc) BitsPerPixel() uint32 {
	return formats[f].bpp
}

// Planes is the number of planes the format uses, 0 for unknown formats.
func (f Fourcc) Planes() int {
	return formats[f].planes
}

// ParseFourcc parses a long format name ("XRGB8888") or a four character code ("XR24").
func ParseFourcc(s string) (Fourcc, error) {
	for f, info := range formats {
		if strings.EqualFold(info.name, s) {
			return f, nil
		}
	}
	if len(s) == 4 {
		return NewFourcc(s[0], s[1], s[2], s[3]), nil
	}
	return 0, fmt.Errorf("drm: invalid pixel format %q", s)
}
