package gralloc

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/BeatGlow/hwc/drm"
	"github.com/BeatGlow/hwc/pixel"
)

// Errors
var (
	ErrUnsupportedFormat = errors.New("gralloc: unsupported pixel format")
	ErrInvalidHandle     = errors.New("gralloc: invalid buffer handle")
)

// DumbDevice is the part of a DRM device used to allocate dumb buffers.
type DumbDevice interface {
	String() string
	CreateDumb(width, height, bpp uint32) (drm.Dumb, error)
	MapDumb(handle uint32) (uint64, error)
	DestroyDumb(handle uint32) error
	PrimeHandleToFD(handle, flags uint32) (int, error)
	Mmap(offset uint64, size int) ([]byte, error)
	Munmap(b []byte) error
}

type dumbBuffer struct {
	drm.Dumb
	width  uint32
	height uint32
	format drm.Fourcc
	usage  Usage
	fd     int
	mem    []byte
}

// DumbAllocator is a Module that allocates single plane DRM dumb buffers and
// shares them as prime file descriptors.
//
// The allocator keeps its own GEM handle for every buffer. Importers should use
// a separate DRM device file, as GEM handles are per file and importing a buffer
// on the allocating file returns the allocator's own handle.
type DumbAllocator struct {
	dev     DumbDevice
	log     logrus.FieldLogger
	next    Handle
	buffers map[Handle]*dumbBuffer
}

// NewDumbAllocator allocates buffers on dev. A nil log uses the logrus standard logger.
func NewDumbAllocator(dev DumbDevice, log logrus.FieldLogger) *DumbAllocator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &DumbAllocator{
		dev:     dev,
		log:     log.WithField("module", "dumb"),
		next:    1,
		buffers: make(map[Handle]*dumbBuffer),
	}
}

func (a *DumbAllocator) String() string {
	return fmt.Sprintf("dumb buffer allocator on %s", a.dev)
}

// Allocate a width x height buffer.
func (a *DumbAllocator) Allocate(width, height uint32, format drm.Fourcc, usage Usage) (Handle, error) {
	bpp := format.BitsPerPixel()
	if bpp == 0 || format.Planes() != 1 {
		return 0, fmt.Errorf("%w %s", ErrUnsupportedFormat, format)
	}

	dumb, err := a.dev.CreateDumb(width, height, bpp)
	if err != nil {
		return 0, fmt.Errorf("gralloc: create dumb buffer: %w", err)
	}

	fd, err := a.dev.PrimeHandleToFD(dumb.Handle, drm.PrimeCloExec|drm.PrimeRDWR)
	if err != nil {
		_ = a.dev.DestroyDumb(dumb.Handle)
		return 0, fmt.Errorf("gralloc: export dumb buffer: %w", err)
	}

	h := a.next
	a.next++
	a.buffers[h] = &dumbBuffer{
		Dumb:   dumb,
		width:  width,
		height: height,
		format: format,
		usage:  usage,
		fd:     fd,
	}
	a.log.WithFields(logrus.Fields{
		"handle": h,
		"width":  width,
		"height": height,
		"format": format,
		"pitch":  dumb.Pitch,
		"fd":     fd,
	}).Debug("allocated buffer")
	return h, nil
}

// Map the buffer into memory and return it as an image. The mapping stays valid
// until the buffer is freed.
func (a *DumbAllocator) Map(h Handle) (pixel.Image, error) {
	b, ok := a.buffers[h]
	if !ok {
		return nil, ErrInvalidHandle
	}

	if b.mem == nil {
		offset, err := a.dev.MapDumb(b.Handle)
		if err != nil {
			return nil, fmt.Errorf("gralloc: map dumb buffer: %w", err)
		}
		if b.mem, err = a.dev.Mmap(offset, int(b.Size)); err != nil {
			return nil, fmt.Errorf("gralloc: mmap dumb buffer: %w", err)
		}
	}

	bpp := int(b.format.BitsPerPixel()+7) / 8
	buf, err := pixel.NewBuffer(b.mem, int(b.width), int(b.height), int(b.Pitch), bpp)
	if err != nil {
		return nil, err
	}
	switch b.format {
	case drm.FormatRGB565:
		return &pixel.RGB565Image{Buffer: buf, Order: binary.LittleEndian}, nil
	case drm.FormatXRGB8888:
		return &pixel.XRGB8888Image{Buffer: buf}, nil
	case drm.FormatARGB8888:
		return &pixel.ARGB8888Image{Buffer: buf}, nil
	default:
		return nil, fmt.Errorf("%w %s", ErrUnsupportedFormat, b.format)
	}
}

// Free the buffer, its mapping and its file descriptor.
func (a *DumbAllocator) Free(h Handle) error {
	b, ok := a.buffers[h]
	if !ok {
		return ErrInvalidHandle
	}
	delete(a.buffers, h)

	var errs []error
	if b.mem != nil {
		if err := a.dev.Munmap(b.mem); err != nil {
			errs = append(errs, err)
		}
	}
	if err := unix.Close(b.fd); err != nil {
		errs = append(errs, fmt.Errorf("gralloc: close prime fd %d: %w", b.fd, err))
	}
	if err := a.dev.DestroyDumb(b.Handle); err != nil {
		errs = append(errs, fmt.Errorf("gralloc: destroy dumb buffer: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		a.log.WithField("handle", h).WithError(err).Error("failed to free buffer")
		return err
	}
	a.log.WithField("handle", h).Debug("freed buffer")
	return nil
}

// Len is the number of allocated buffers.
func (a *DumbAllocator) Len() int {
	return len(a.buffers)
}

// Halt frees all buffers.
func (a *DumbAllocator) Halt() error {
	var errs []error
	for h := range a.buffers {
		if err := a.Free(h); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *DumbAllocator) FD(h Handle, plane int) int {
	if b, ok := a.buffers[h]; ok && plane == 0 {
		return b.fd
	}
	return -1
}

func (a *DumbAllocator) Dimensions(h Handle) (width, height uint32) {
	if b, ok := a.buffers[h]; ok {
		return b.width, b.height
	}
	return 0, 0
}

func (a *DumbAllocator) Format(h Handle) drm.Fourcc {
	if b, ok := a.buffers[h]; ok {
		return b.format
	}
	return 0
}

func (a *DumbAllocator) Usage(h Handle) Usage {
	if b, ok := a.buffers[h]; ok {
		return b.usage
	}
	return 0
}

func (a *DumbAllocator) Stride(h Handle, plane int) uint32 {
	if b, ok := a.buffers[h]; ok && plane == 0 {
		return b.Pitch
	}
	return 0
}

var _ Module = (*DumbAllocator)(nil)
