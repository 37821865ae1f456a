// Package drm provides access to the Linux Direct Rendering Manager device.
//
// Only the parts needed to turn shared buffers into scan-out framebuffers are
// implemented: prime buffer sharing, GEM handle lifetime, framebuffer objects and
// dumb buffers. Mode setting is out of scope.
package drm

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
	"periph.io/x/conn/v3"
	"periph.io/x/host/v3/fs"

	"github.com/BeatGlow/hwc/internal/ioctl"
)

// DefaultCardPath is the path prefix of DRM card nodes.
const DefaultCardPath = "/dev/dri/card"

// Errors
var (
	ErrNotMappable = errors.New("drm: device can not be memory mapped")
)

// Device is an open DRM device.
//
// All methods issue synchronous ioctls; Device does no locking of its own.
type Device struct {
	f    *fs.File
	ioc  fs.Ioctler
	name string
}

// Open a DRM device node by name, typically /dev/dri/card[0..x].
func Open(name string) (*Device, error) {
	f, err := fs.Open(name, os.O_RDWR|unix.O_CLOEXEC)
	if err != nil {
		return nil, err
	}
	return &Device{
		f:    f,
		ioc:  ioctl.File(f.Fd()),
		name: name,
	}, nil
}

// OpenCard opens the numbered DRM card.
func OpenCard(n int) (*Device, error) {
	return Open(fmt.Sprintf("%s%d", DefaultCardPath, n))
}

// NewDevice uses an already open ioctl handle as DRM device. The caller keeps
// ownership of the handle; Close on the returned Device is a no-op.
func NewDevice(ioc fs.Ioctler, name string) *Device {
	return &Device{
		ioc:  ioc,
		name: name,
	}
}

func (d *Device) String() string {
	return fmt.Sprintf("DRM device %s", d.name)
}

// Halt does nothing, all device operations complete before returning.
func (d *Device) Halt() error {
	return nil
}

// Close the device, if it was opened by this package.
func (d *Device) Close() error {
	if d.f == nil {
		return nil
	}
	return d.f.Close()
}

// Fd returns the device file descriptor, or false if the device is not backed by a file.
func (d *Device) Fd() (uintptr, bool) {
	if d.f == nil {
		return 0, false
	}
	return d.f.Fd(), true
}

func (d *Device) ioctl(cmd ioctl.Command, arg interface{}) error {
	return ioctl.Do(d.ioc, cmd, arg)
}

// Version describes the kernel driver.
type Version struct {
	Major, Minor, Patch int
	Name                string
	Date                string
	Description         string
}

func (v Version) String() string {
	return fmt.Sprintf("%s %d.%d.%d (%s)", v.Name, v.Major, v.Minor, v.Patch, v.Description)
}

// Version queries the driver name and version.
func (d *Device) Version() (Version, error) {
	args := &VersionArgs{}
	if err := d.ioctl(IOCTLVersion, args); err != nil {
		return Version{}, err
	}

	var name, date, desc []byte
	if args.NameLen > 0 {
		name = make([]byte, args.NameLen)
		args.Name = &name[0]
	}
	if args.DateLen > 0 {
		date = make([]byte, args.DateLen)
		args.Date = &date[0]
	}
	if args.DescLen > 0 {
		desc = make([]byte, args.DescLen)
		args.Desc = &desc[0]
	}
	if err := d.ioctl(IOCTLVersion, args); err != nil {
		return Version{}, err
	}

	return Version{
		Major:       int(args.Major),
		Minor:       int(args.Minor),
		Patch:       int(args.Patch),
		Name:        string(name),
		Date:        string(date),
		Description: string(desc),
	}, nil
}

// Capability queries a driver capability value, such as CapPrime.
func (d *Device) Capability(capability uint64) (uint64, error) {
	args := &GetCapArgs{Capability: capability}
	if err := d.ioctl(IOCTLGetCap, args); err != nil {
		return 0, err
	}
	return args.Value, nil
}

// PrimeFDToHandle imports a prime (dma-buf) file descriptor and returns its GEM handle.
//
// Importing the same buffer twice on one device file returns the same handle.
func (d *Device) PrimeFDToHandle(fd int) (uint32, error) {
	args := &PrimeHandleArgs{FD: int32(fd)}
	if err := d.ioctl(IOCTLPrimeFDToHandle, args); err != nil {
		return 0, err
	}
	return args.Handle, nil
}

// PrimeHandleToFD exports a GEM handle as a prime file descriptor. The caller owns the
// returned descriptor.
func (d *Device) PrimeHandleToFD(handle uint32, flags uint32) (int, error) {
	args := &PrimeHandleArgs{Handle: handle, Flags: flags, FD: -1}
	if err := d.ioctl(IOCTLPrimeHandleToFD, args); err != nil {
		return -1, err
	}
	return int(args.FD), nil
}

// GemClose drops the GEM handle.
func (d *Device) GemClose(handle uint32) error {
	return d.ioctl(IOCTLGemClose, &GemCloseArgs{Handle: handle})
}

// AddFB2 registers a framebuffer object for the planes described by handles,
// pitches and offsets, and returns its id.
func (d *Device) AddFB2(width, height uint32, format Fourcc, handles, pitches, offsets [MaxPlanes]uint32, flags uint32) (uint32, error) {
	args := &FBCmd2Args{
		Width:       width,
		Height:      height,
		PixelFormat: uint32(format),
		Flags:       flags,
		Handles:     handles,
		Pitches:     pitches,
		Offsets:     offsets,
	}
	if err := d.ioctl(IOCTLModeAddFB2, args); err != nil {
		return 0, err
	}
	return args.FbID, nil
}

// RmFB removes a framebuffer object.
func (d *Device) RmFB(id uint32) error {
	return d.ioctl(IOCTLModeRmFB, &id)
}

// Dumb is a dumb buffer allocated by the kernel.
type Dumb struct {
	Handle uint32
	Pitch  uint32
	Size   uint64
}

// CreateDumb allocates a linear, CPU accessible scan-out buffer.
func (d *Device) CreateDumb(width, height, bpp uint32) (Dumb, error) {
	args := &CreateDumbArgs{
		Width:  width,
		Height: height,
		BPP:    bpp,
	}
	if err := d.ioctl(IOCTLModeCreateDumb, args); err != nil {
		return Dumb{}, err
	}
	return Dumb{
		Handle: args.Handle,
		Pitch:  args.Pitch,
		Size:   args.Size,
	}, nil
}

// MapDumb returns the mmap offset for a dumb buffer handle.
func (d *Device) MapDumb(handle uint32) (uint64, error) {
	args := &MapDumbArgs{Handle: handle}
	if err := d.ioctl(IOCTLModeMapDumb, args); err != nil {
		return 0, err
	}
	return args.Offset, nil
}

// DestroyDumb releases a dumb buffer.
func (d *Device) DestroyDumb(handle uint32) error {
	return d.ioctl(IOCTLModeDestroyDumb, &DestroyDumbArgs{Handle: handle})
}

// Mmap maps size bytes of device memory at the offset returned by MapDumb.
func (d *Device) Mmap(offset uint64, size int) ([]byte, error) {
	fd, ok := d.Fd()
	if !ok {
		return nil, ErrNotMappable
	}
	return unix.Mmap(int(fd), int64(offset), size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}

// Munmap unmaps memory returned by Mmap.
func (d *Device) Munmap(b []byte) error {
	return unix.Munmap(b)
}

var _ conn.Resource = (*Device)(nil)
