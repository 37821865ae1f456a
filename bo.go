package hwc

import (
	"errors"
	"fmt"

	"github.com/BeatGlow/hwc/drm"
	"github.com/BeatGlow/hwc/gralloc"
)

// MaxPlanes is the number of planes a BufferObject describes.
const MaxPlanes = drm.MaxPlanes

// BufferObject describes an imported buffer. It is either zero, or populated
// with a framebuffer id and at least one GEM handle.
//
// The scan-out path reads the GEM handles and framebuffer id directly; the
// kernel objects they refer to are released by Importer.Release.
type BufferObject struct {
	Width  uint32
	Height uint32
	Format drm.Fourcc
	Usage  gralloc.Usage

	Pitches    [MaxPlanes]uint32
	Offsets    [MaxPlanes]uint32
	GemHandles [MaxPlanes]uint32

	FbID uint32
}

// IsZero reports whether bo holds no kernel objects and no geometry.
func (bo BufferObject) IsZero() bool {
	return bo == BufferObject{}
}

// Valid reports whether bo holds a framebuffer and at least one GEM handle.
func (bo BufferObject) Valid() bool {
	if bo.FbID == 0 {
		return false
	}
	for _, handle := range bo.GemHandles {
		if handle != 0 {
			return true
		}
	}
	return false
}

func (bo BufferObject) String() string {
	return fmt.Sprintf("fb %d %dx%d %s gem %v pitch %v", bo.FbID, bo.Width, bo.Height, bo.Format, bo.GemHandles, bo.Pitches)
}

// ReleaseReport is the outcome of Importer.Release.
type ReleaseReport struct {
	// Framebuffer is the framebuffer removal error, nil on success or if there was none.
	Framebuffer error

	// Planes are the GEM handle close errors per plane slot.
	Planes [MaxPlanes]error

	// Closed is the number of GEM handles closed.
	Closed int
}

// OK reports whether every release step succeeded.
func (r ReleaseReport) OK() bool {
	return r.Err() == nil
}

// Err joins all release errors, nil if there were none.
func (r ReleaseReport) Err() error {
	errs := []error{r.Framebuffer}
	errs = append(errs, r.Planes[:]...)
	return errors.Join(errs...)
}
