package drm

import (
	"golang.org/x/sys/unix"

	"github.com/BeatGlow/hwc/internal/ioctl"
)

// MaxPlanes is the number of buffer planes a framebuffer can reference.
const MaxPlanes = 4

// From <drm/drm.h>
const (
	ioctlBase = 'd'

	// CapDumbBuffer reports dumb buffer support.
	CapDumbBuffer = 0x1
	// CapPrime reports a bitmask of PrimeCapImport and PrimeCapExport.
	CapPrime = 0x5

	PrimeCapImport = 0x1
	PrimeCapExport = 0x2

	// PrimeCloExec and PrimeRDWR are flags for PrimeHandleToFD.
	PrimeCloExec = unix.O_CLOEXEC
	PrimeRDWR    = unix.O_RDWR
)

// VersionArgs is struct drm_version.
type VersionArgs struct {
	Major, Minor, Patch int32
	NameLen             uintptr
	Name                *byte
	DateLen             uintptr
	Date                *byte
	DescLen             uintptr
	Desc                *byte
}

// GetCapArgs is struct drm_get_cap.
type GetCapArgs struct {
	Capability uint64
	Value      uint64
}

// GemCloseArgs is struct drm_gem_close.
type GemCloseArgs struct {
	Handle uint32
	Pad    uint32
}

// PrimeHandleArgs is struct drm_prime_handle.
type PrimeHandleArgs struct {
	Handle uint32
	Flags  uint32
	FD     int32
}

// FBCmd2Args is struct drm_mode_fb_cmd2.
type FBCmd2Args struct {
	FbID        uint32
	Width       uint32
	Height      uint32
	PixelFormat uint32
	Flags       uint32
	Handles     [MaxPlanes]uint32
	Pitches     [MaxPlanes]uint32
	Offsets     [MaxPlanes]uint32
	Modifier    [MaxPlanes]uint64
}

// CreateDumbArgs is struct drm_mode_create_dumb.
type CreateDumbArgs struct {
	Height, Width uint32
	BPP           uint32
	Flags         uint32

	// returned values
	Handle uint32
	Pitch  uint32
	Size   uint64
}

// MapDumbArgs is struct drm_mode_map_dumb.
type MapDumbArgs struct {
	Handle uint32
	Pad    uint32

	// Fake offset to use for the subsequent mmap call.
	Offset uint64
}

// DestroyDumbArgs is struct drm_mode_destroy_dumb.
type DestroyDumbArgs struct {
	Handle uint32
}

func iowr(ref interface{}, nr uintptr) ioctl.Command {
	return ioctl.Pointer(ioctl.Read|ioctl.Write, ref, ioctlBase<<8|nr)
}

func iow(ref interface{}, nr uintptr) ioctl.Command {
	return ioctl.Pointer(ioctl.Write, ref, ioctlBase<<8|nr)
}

// ioctl commands
var (
	IOCTLVersion         = iowr(&VersionArgs{}, 0x00)
	IOCTLGemClose        = iow(&GemCloseArgs{}, 0x09)
	IOCTLGetCap          = iowr(&GetCapArgs{}, 0x0c)
	IOCTLPrimeHandleToFD = iowr(&PrimeHandleArgs{}, 0x2d)
	IOCTLPrimeFDToHandle = iowr(&PrimeHandleArgs{}, 0x2e)
	IOCTLModeRmFB        = iowr(new(uint32), 0xaf)
	IOCTLModeCreateDumb  = iowr(&CreateDumbArgs{}, 0xb2)
	IOCTLModeMapDumb     = iowr(&MapDumbArgs{}, 0xb3)
	IOCTLModeDestroyDumb = iowr(&DestroyDumbArgs{}, 0xb4)
	IOCTLModeAddFB2      = iowr(&FBCmd2Args{}, 0xb8)
)
