// Package drmtest implements an in-memory DRM device for tests.
//
// The fake decodes the same ioctl commands and argument structures the drm
// package sends to the kernel, and keeps account of open GEM handles and
// registered framebuffers so tests can verify nothing leaked.
package drmtest

import (
	"sort"
	"unsafe"

	"golang.org/x/sys/unix"
	"periph.io/x/host/v3/fs"

	"github.com/BeatGlow/hwc/drm"
	"github.com/BeatGlow/hwc/internal/ioctl"
)

// Driver identification reported by the fake.
const (
	DriverName = "drmtest"
	DriverDate = "20150101"
	DriverDesc = "in-memory DRM device"
)

// pitchAlign is the row alignment used for dumb buffers.
const pitchAlign = 64

type object struct {
	size   uint64
	handle uint32 // 0 while not open on this device
}

// Framebuffer is a registered framebuffer object.
type Framebuffer struct {
	ID      uint32
	Width   uint32
	Height  uint32
	Format  drm.Fourcc
	Handles [drm.MaxPlanes]uint32
	Pitches [drm.MaxPlanes]uint32
	Offsets [drm.MaxPlanes]uint32
}

// Device is a fake DRM device. It is not safe for concurrent use.
type Device struct {
	buffers      map[int]*object
	handles      map[uint32]*object
	framebuffers map[uint32]Framebuffer
	nextHandle   uint32
	nextFB       uint32

	calls    map[ioctl.Command]int
	inject   map[ioctl.Command]unix.Errno
	gemClose map[uint32]unix.Errno
}

// New returns an empty fake device.
func New() *Device {
	return &Device{
		buffers:      make(map[int]*object),
		handles:      make(map[uint32]*object),
		framebuffers: make(map[uint32]Framebuffer),
		nextHandle:   1,
		nextFB:       1,
		calls:        make(map[ioctl.Command]int),
		inject:       make(map[ioctl.Command]unix.Errno),
		gemClose:     make(map[uint32]unix.Errno),
	}
}

// AddPrimeFD makes fd importable as a shared buffer of size bytes, as if it was
// exported by another device. A size of 0 disables buffer size checks.
func (d *Device) AddPrimeFD(fd int, size uint64) {
	d.buffers[fd] = &object{size: size}
}

// Inject makes every following cmd fail with errno. An errno of 0 clears the failure.
func (d *Device) Inject(cmd ioctl.Command, errno unix.Errno) {
	if errno == 0 {
		delete(d.inject, cmd)
		return
	}
	d.inject[cmd] = errno
}

// InjectGemClose makes closing handle fail with errno. An errno of 0 clears the failure.
func (d *Device) InjectGemClose(handle uint32, errno unix.Errno) {
	if errno == 0 {
		delete(d.gemClose, handle)
		return
	}
	d.gemClose[handle] = errno
}

// Calls is the number of times cmd was issued, including failed calls.
func (d *Device) Calls(cmd ioctl.Command) int {
	return d.calls[cmd]
}

// TotalCalls is the number of ioctls issued.
func (d *Device) TotalCalls() (n int) {
	for _, v := range d.calls {
		n += v
	}
	return
}

// Handles returns the open GEM handles in ascending order.
func (d *Device) Handles() []uint32 {
	handles := make([]uint32, 0, len(d.handles))
	for h := range d.handles {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	return handles
}

// Framebuffers is the number of registered framebuffers.
func (d *Device) Framebuffers() int {
	return len(d.framebuffers)
}

// Framebuffer looks up a registered framebuffer.
func (d *Device) Framebuffer(id uint32) (Framebuffer, bool) {
	fb, ok := d.framebuffers[id]
	return fb, ok
}

// Ioctl implements fs.Ioctler.
func (d *Device) Ioctl(op uint, data uintptr) error {
	cmd := ioctl.Command(op)
	d.calls[cmd]++
	if errno, ok := d.inject[cmd]; ok {
		return errno
	}

	// data is the argument pointer ioctl.Do passes as uintptr, as the kernel
	// would receive it. The caller keeps the argument alive for the call.
	ptr := unsafe.Pointer(data)
	switch cmd {
	case drm.IOCTLVersion:
		return d.version((*drm.VersionArgs)(ptr))
	case drm.IOCTLGetCap:
		return d.getCap((*drm.GetCapArgs)(ptr))
	case drm.IOCTLGemClose:
		return d.gemCloseHandle((*drm.GemCloseArgs)(ptr).Handle)
	case drm.IOCTLPrimeFDToHandle:
		return d.primeFDToHandle((*drm.PrimeHandleArgs)(ptr))
	case drm.IOCTLPrimeHandleToFD:
		return d.primeHandleToFD((*drm.PrimeHandleArgs)(ptr))
	case drm.IOCTLModeAddFB2:
		return d.addFB2((*drm.FBCmd2Args)(ptr))
	case drm.IOCTLModeRmFB:
		return d.rmFB(*(*uint32)(ptr))
	case drm.IOCTLModeCreateDumb:
		return d.createDumb((*drm.CreateDumbArgs)(ptr))
	case drm.IOCTLModeMapDumb:
		return d.mapDumb((*drm.MapDumbArgs)(ptr))
	case drm.IOCTLModeDestroyDumb:
		return d.gemCloseHandle((*drm.DestroyDumbArgs)(ptr).Handle)
	default:
		return unix.ENOTTY
	}
}

func copyString(dst *byte, n uintptr, s string) {
	if dst == nil || n == 0 {
		return
	}
	copy(unsafe.Slice(dst, n), s)
}

func (d *Device) version(args *drm.VersionArgs) error {
	args.Major, args.Minor, args.Patch = 1, 0, 0
	copyString(args.Name, args.NameLen, DriverName)
	copyString(args.Date, args.DateLen, DriverDate)
	copyString(args.Desc, args.DescLen, DriverDesc)
	args.NameLen = uintptr(len(DriverName))
	args.DateLen = uintptr(len(DriverDate))
	args.DescLen = uintptr(len(DriverDesc))
	return nil
}

func (d *Device) getCap(args *drm.GetCapArgs) error {
	switch args.Capability {
	case drm.CapDumbBuffer:
		args.Value = 1
	case drm.CapPrime:
		args.Value = drm.PrimeCapImport | drm.PrimeCapExport
	default:
		return unix.EINVAL
	}
	return nil
}

func (d *Device) open(obj *object) uint32 {
	if obj.handle == 0 {
		obj.handle = d.nextHandle
		d.nextHandle++
		d.handles[obj.handle] = obj
	}
	return obj.handle
}

func (d *Device) gemCloseHandle(handle uint32) error {
	if errno, ok := d.gemClose[handle]; ok {
		return errno
	}
	obj, ok := d.handles[handle]
	if !ok {
		return unix.EINVAL
	}
	delete(d.handles, handle)
	obj.handle = 0
	return nil
}

func (d *Device) primeFDToHandle(args *drm.PrimeHandleArgs) error {
	obj, ok := d.buffers[int(args.FD)]
	if !ok {
		return unix.EBADF
	}
	args.Handle = d.open(obj)
	return nil
}

// primeHandleToFD exports a memfd, the caller owns it like a real dma-buf fd.
func (d *Device) primeHandleToFD(args *drm.PrimeHandleArgs) error {
	obj, ok := d.handles[args.Handle]
	if !ok {
		return unix.ENOENT
	}
	fd, err := unix.MemfdCreate("drmtest-prime", unix.MFD_CLOEXEC)
	if err != nil {
		return err
	}
	d.buffers[fd] = obj
	args.FD = int32(fd)
	return nil
}

func (d *Device) addFB2(args *drm.FBCmd2Args) error {
	format := drm.Fourcc(args.PixelFormat)
	if args.Width == 0 || args.Height == 0 || format.BitsPerPixel() == 0 {
		return unix.EINVAL
	}
	for i := 0; i < drm.MaxPlanes; i++ {
		handle := args.Handles[i]
		if i >= format.Planes() {
			if handle != 0 {
				return unix.EINVAL
			}
			continue
		}
		obj, ok := d.handles[handle]
		if !ok {
			return unix.ENOENT
		}
		if i == 0 && uint64(args.Pitches[0]) < uint64(args.Width)*uint64(format.BitsPerPixel())/8 {
			return unix.EINVAL
		}
		if obj.size > 0 && uint64(args.Offsets[i])+uint64(args.Pitches[i])*uint64(args.Height) > obj.size {
			return unix.EINVAL
		}
	}

	fb := Framebuffer{
		ID:      d.nextFB,
		Width:   args.Width,
		Height:  args.Height,
		Format:  format,
		Handles: args.Handles,
		Pitches: args.Pitches,
		Offsets: args.Offsets,
	}
	d.nextFB++
	d.framebuffers[fb.ID] = fb
	args.FbID = fb.ID
	return nil
}

func (d *Device) rmFB(id uint32) error {
	if _, ok := d.framebuffers[id]; !ok {
		return unix.ENOENT
	}
	delete(d.framebuffers, id)
	return nil
}

func (d *Device) createDumb(args *drm.CreateDumbArgs) error {
	if args.Width == 0 || args.Height == 0 || args.BPP == 0 {
		return unix.EINVAL
	}
	pitch := (args.Width*((args.BPP+7)/8) + pitchAlign - 1) &^ (pitchAlign - 1)
	obj := &object{size: uint64(pitch) * uint64(args.Height)}
	args.Handle = d.open(obj)
	args.Pitch = pitch
	args.Size = obj.size
	return nil
}

func (d *Device) mapDumb(args *drm.MapDumbArgs) error {
	if _, ok := d.handles[args.Handle]; !ok {
		return unix.ENOENT
	}
	args.Offset = uint64(args.Handle) << 12
	return nil
}

var _ fs.Ioctler = (*Device)(nil)
