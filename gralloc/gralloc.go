// Package gralloc defines the platform graphics memory allocator contract.
//
// Buffers are allocated by a Module and referred to by opaque Handles. Other
// subsystems only see the buffer through the Module query methods and through
// the shareable (prime) file descriptor backing it.
package gralloc

import (
	"fmt"
	"strings"

	"periph.io/x/conn/v3"

	"github.com/BeatGlow/hwc/drm"
)

// HardwareModuleID is the id under which the platform allocator module is registered.
const HardwareModuleID = "gralloc"

// Handle is an opaque reference to a buffer owned by a Module.
type Handle uint64

// Module is a graphics memory allocator module.
//
// The query methods return zero values (and -1 for FD) for handles the module
// does not know.
type Module interface {
	conn.Resource

	// FD is the prime file descriptor backing the plane, or -1. The module keeps
	// ownership of the descriptor.
	FD(h Handle, plane int) int

	// Dimensions of the buffer in pixels.
	Dimensions(h Handle) (width, height uint32)

	// Format is the DRM pixel format of the buffer.
	Format(h Handle) drm.Fourcc

	// Usage the buffer was allocated for.
	Usage(h Handle) Usage

	// Stride is the plane pitch in bytes.
	Stride(h Handle, plane int) uint32
}

// Usage is a bitmask describing how a buffer is used, see <hardware/gralloc.h>.
type Usage uint32

// Usage flags.
const (
	UsageSWReadRarely  Usage = 0x00000002
	UsageSWReadOften   Usage = 0x00000003
	UsageSWWriteRarely Usage = 0x00000020
	UsageSWWriteOften  Usage = 0x00000030
	UsageHWTexture     Usage = 0x00000100
	UsageHWRender      Usage = 0x00000200
	UsageHWComposer    Usage = 0x00000800
	UsageHWFB          Usage = 0x00001000
	UsageProtected     Usage = 0x00004000
	UsageCursor        Usage = 0x00008000
)

var usageNames = []struct {
	mask  Usage
	value Usage
	name  string
}{
	{0x0000000f, UsageSWReadOften, "SW_READ_OFTEN"},
	{0x0000000f, UsageSWReadRarely, "SW_READ_RARELY"},
	{0x000000f0, UsageSWWriteOften, "SW_WRITE_OFTEN"},
	{0x000000f0, UsageSWWriteRarely, "SW_WRITE_RARELY"},
	{UsageHWTexture, UsageHWTexture, "HW_TEXTURE"},
	{UsageHWRender, UsageHWRender, "HW_RENDER"},
	{UsageHWComposer, UsageHWComposer, "HW_COMPOSER"},
	{UsageHWFB, UsageHWFB, "HW_FB"},
	{UsageProtected, UsageProtected, "PROTECTED"},
	{UsageCursor, UsageCursor, "CURSOR"},
}

func (u Usage) String() string {
	if u == 0 {
		return "0"
	}
	var (
		names []string
		seen  Usage
	)
	for _, n := range usageNames {
		if u&n.mask == n.value && seen&n.mask == 0 {
			names = append(names, n.name)
			seen |= n.mask
		}
	}
	if rest := u &^ seen; rest != 0 {
		names = append(names, fmt.Sprintf("%#x", uint32(rest)))
	}
	return strings.Join(names, "|")
}
