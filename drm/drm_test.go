package drm_test

import (
	"errors"
	"testing"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/BeatGlow/hwc/drm"
	"github.com/BeatGlow/hwc/drm/drmtest"
	"github.com/BeatGlow/hwc/internal/ioctl"
)

func TestCommands(t *testing.T) {
	tests := []struct {
		Name string
		Cmd  ioctl.Command
		Want ioctl.Command
	}{
		{"GEM_CLOSE", drm.IOCTLGemClose, 0x40086409},
		{"GET_CAP", drm.IOCTLGetCap, 0xc010640c},
		{"PRIME_HANDLE_TO_FD", drm.IOCTLPrimeHandleToFD, 0xc00c642d},
		{"PRIME_FD_TO_HANDLE", drm.IOCTLPrimeFDToHandle, 0xc00c642e},
		{"MODE_RMFB", drm.IOCTLModeRmFB, 0xc00464af},
		{"MODE_CREATE_DUMB", drm.IOCTLModeCreateDumb, 0xc02064b2},
		{"MODE_MAP_DUMB", drm.IOCTLModeMapDumb, 0xc01064b3},
		{"MODE_DESTROY_DUMB", drm.IOCTLModeDestroyDumb, 0xc00464b4},
		{"MODE_ADDFB2", drm.IOCTLModeAddFB2, 0xc06864b8},
	}
	if unsafe.Sizeof(uintptr(0)) == 8 {
		tests = append(tests, struct {
			Name string
			Cmd  ioctl.Command
			Want ioctl.Command
		}{"VERSION", drm.IOCTLVersion, 0xc0406400})
	}
	for _, test := range tests {
		t.Run(test.Name, func(it *testing.T) {
			if test.Cmd != test.Want {
				it.Errorf("expected %#08x, got %#08x", uintptr(test.Want), uintptr(test.Cmd))
			}
		})
	}
}

func newDevice(t *testing.T) (*drm.Device, *drmtest.Device) {
	t.Helper()
	fake := drmtest.New()
	return drm.NewDevice(fake, "test"), fake
}

func TestVersion(t *testing.T) {
	d, _ := newDevice(t)
	v, err := d.Version()
	if err != nil {
		t.Fatal(err)
	}
	if v.Name != drmtest.DriverName {
		t.Errorf("expected driver %q, got %q", drmtest.DriverName, v.Name)
	}
	if v.Description != drmtest.DriverDesc {
		t.Errorf("expected description %q, got %q", drmtest.DriverDesc, v.Description)
	}
	if v.Major != 1 {
		t.Errorf("expected major version 1, got %d", v.Major)
	}
}

func TestCapability(t *testing.T) {
	d, _ := newDevice(t)
	v, err := d.Capability(drm.CapPrime)
	if err != nil {
		t.Fatal(err)
	}
	if v&drm.PrimeCapImport == 0 {
		t.Errorf("expected prime import capability, got %#x", v)
	}
	if _, err = d.Capability(0xffff); !errors.Is(err, unix.EINVAL) {
		t.Errorf("expected EINVAL for unknown capability, got %v", err)
	}
}

func TestPrimeImport(t *testing.T) {
	d, fake := newDevice(t)
	fake.AddPrimeFD(42, 0)

	handle, err := d.PrimeFDToHandle(42)
	if err != nil {
		t.Fatal(err)
	}
	if handle == 0 {
		t.Fatal("expected non-zero GEM handle")
	}

	again, err := d.PrimeFDToHandle(42)
	if err != nil {
		t.Fatal(err)
	}
	if again != handle {
		t.Errorf("expected same handle %d for same buffer, got %d", handle, again)
	}

	if err = d.GemClose(handle); err != nil {
		t.Fatal(err)
	}
	if err = d.GemClose(handle); !errors.Is(err, unix.EINVAL) {
		t.Errorf("expected EINVAL closing a closed handle, got %v", err)
	}
	if v := fake.Handles(); len(v) != 0 {
		t.Errorf("expected no open handles, got %v", v)
	}

	_, err = d.PrimeFDToHandle(7)
	var ioctlErr *ioctl.Error
	if !errors.As(err, &ioctlErr) {
		t.Fatalf("expected *ioctl.Error, got %T: %v", err, err)
	}
	if ioctlErr.Errno != unix.EBADF {
		t.Errorf("expected EBADF, got %v", ioctlErr.Errno)
	}
}

func TestFramebuffer(t *testing.T) {
	d, fake := newDevice(t)
	fake.AddPrimeFD(3, 0)

	handle, err := d.PrimeFDToHandle(3)
	if err != nil {
		t.Fatal(err)
	}

	var (
		handles = [drm.MaxPlanes]uint32{handle}
		pitches = [drm.MaxPlanes]uint32{640 * 4}
		offsets [drm.MaxPlanes]uint32
	)
	id, err := d.AddFB2(640, 480, drm.FormatXRGB8888, handles, pitches, offsets, 0)
	if err != nil {
		t.Fatal(err)
	}
	if id == 0 {
		t.Fatal("expected non-zero framebuffer id")
	}
	fb, ok := fake.Framebuffer(id)
	if !ok {
		t.Fatalf("framebuffer %d not registered", id)
	}
	if fb.Width != 640 || fb.Height != 480 || fb.Format != drm.FormatXRGB8888 || fb.Handles[0] != handle {
		t.Errorf("unexpected framebuffer %+v", fb)
	}

	if err = d.RmFB(id); err != nil {
		t.Fatal(err)
	}
	if err = d.RmFB(id); !errors.Is(err, unix.ENOENT) {
		t.Errorf("expected ENOENT removing a removed framebuffer, got %v", err)
	}

	pitches[0] = 16
	if _, err = d.AddFB2(640, 480, drm.FormatXRGB8888, handles, pitches, offsets, 0); !errors.Is(err, unix.EINVAL) {
		t.Errorf("expected EINVAL for short pitch, got %v", err)
	}
}

func TestDumb(t *testing.T) {
	d, fake := newDevice(t)

	dumb, err := d.CreateDumb(100, 10, 32)
	if err != nil {
		t.Fatal(err)
	}
	if dumb.Pitch < 400 {
		t.Errorf("expected pitch of at least 400, got %d", dumb.Pitch)
	}
	if dumb.Size != uint64(dumb.Pitch)*10 {
		t.Errorf("expected size %d, got %d", dumb.Pitch*10, dumb.Size)
	}
	if _, err = d.MapDumb(dumb.Handle); err != nil {
		t.Fatal(err)
	}

	fd, err := d.PrimeHandleToFD(dumb.Handle, drm.PrimeCloExec)
	if err != nil {
		t.Fatal(err)
	}
	if fd < 0 {
		t.Fatalf("expected valid prime fd, got %d", fd)
	}
	defer unix.Close(fd)

	if err = d.DestroyDumb(dumb.Handle); err != nil {
		t.Fatal(err)
	}
	if v := fake.Handles(); len(v) != 0 {
		t.Errorf("expected no open handles, got %v", v)
	}

	if _, err = d.Mmap(0, 4096); !errors.Is(err, drm.ErrNotMappable) {
		t.Errorf("expected ErrNotMappable, got %v", err)
	}
}
