// Package framebuffer provides access to a Linux framebuffer device (fbdev).
//
// A framebuffer can be used to preview buffer contents on systems where the
// DRM device is not driving the console. The framebuffer is opened with [Open]
// and mapped as a regular image.
package framebuffer

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
	"periph.io/x/host/v3/fs"

	"github.com/BeatGlow/hwc/drm"
	"github.com/BeatGlow/hwc/internal/ioctl"
	"github.com/BeatGlow/hwc/pixel"
)

// ErrUnsupportedFormat is returned for framebuffers with a pixel layout that has no image type.
var ErrUnsupportedFormat = errors.New("framebuffer: unsupported pixel format")

// From <linux/fb.h>
const (
	ioctlGetVScreenInfo ioctl.Command = 0x4600
	ioctlGetFScreenInfo ioctl.Command = 0x4602
)

// Framebuffer is a mapped framebuffer device.
type Framebuffer struct {
	pixel.Image
	f      *fs.File
	name   string
	mem    []byte
	format drm.Fourcc
	fix    FixScreenInfo
	info   VarScreenInfo
}

// Open a Linux framebuffer device by name, typically /dev/fb[0..x].
func Open(name string) (*Framebuffer, error) {
	f, err := fs.Open(name, unix.O_RDWR|unix.O_CLOEXEC)
	if err != nil {
		return nil, err
	}

	fb := &Framebuffer{
		f:    f,
		name: name,
	}
	ioc := ioctl.File(f.Fd())
	if err = ioctl.Do(ioc, ioctlGetFScreenInfo, &fb.fix); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err = ioctl.Do(ioc, ioctlGetVScreenInfo, &fb.info); err != nil {
		_ = f.Close()
		return nil, err
	}
	if fb.format, err = fb.info.Format(); err != nil {
		_ = f.Close()
		return nil, err
	}

	if fb.mem, err = unix.Mmap(int(f.Fd()), 0, int(fb.fix.SmemLen), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED); err != nil {
		_ = f.Close()
		return nil, err
	}
	if fb.Image, err = newImage(fb.mem, fb.format, &fb.fix, &fb.info); err != nil {
		_ = fb.Close()
		return nil, err
	}
	return fb, nil
}

func (fb *Framebuffer) String() string {
	return fmt.Sprintf("framebuffer %s (%dx%d %s)", fb.name, fb.info.Xres, fb.info.Yres, fb.format.Name())
}

// Format is the pixel format of the framebuffer.
func (fb *Framebuffer) Format() drm.Fourcc {
	return fb.format
}

// Close unmaps and closes the framebuffer device.
func (fb *Framebuffer) Close() error {
	var errs []error
	if fb.mem != nil {
		errs = append(errs, unix.Munmap(fb.mem))
		fb.mem = nil
	}
	errs = append(errs, fb.f.Close())
	return errors.Join(errs...)
}

func newImage(mem []byte, format drm.Fourcc, fix *FixScreenInfo, info *VarScreenInfo) (pixel.Image, error) {
	// Skip to the visible part of the virtual screen.
	offset := int(info.Yoffset)*int(fix.LineLength) + int(info.Xoffset)*int(info.BitsPerPixel/8)
	if offset > len(mem) {
		return nil, fmt.Errorf("framebuffer: offset %d out of range", offset)
	}

	buf, err := pixel.NewBuffer(mem[offset:], int(info.Xres), int(info.Yres), int(fix.LineLength), int(info.BitsPerPixel/8))
	if err != nil {
		return nil, err
	}
	switch format {
	case drm.FormatRGB565:
		return &pixel.RGB565Image{Buffer: buf, Order: binary.LittleEndian}, nil
	case drm.FormatXRGB8888:
		return &pixel.XRGB8888Image{Buffer: buf}, nil
	case drm.FormatARGB8888:
		return &pixel.ARGB8888Image{Buffer: buf}, nil
	default:
		return nil, fmt.Errorf("%w %s", ErrUnsupportedFormat, format.Name())
	}
}
