package gralloc

import (
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/BeatGlow/hwc/drm"
	"github.com/BeatGlow/hwc/drm/drmtest"
)

func TestUsageString(t *testing.T) {
	tests := []struct {
		Usage Usage
		Want  string
	}{
		{0, "0"},
		{UsageHWFB, "HW_FB"},
		{UsageHWComposer | UsageHWRender, "HW_RENDER|HW_COMPOSER"},
		{UsageSWReadOften | UsageSWWriteRarely, "SW_READ_OFTEN|SW_WRITE_RARELY"},
		{UsageHWFB | 0x10000000, "HW_FB|0x10000000"},
	}
	for _, test := range tests {
		t.Run(test.Want, func(it *testing.T) {
			if v := test.Usage.String(); v != test.Want {
				it.Errorf("expected %q, got %q", test.Want, v)
			}
		})
	}
}

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestAllocator(t *testing.T) (*DumbAllocator, *drmtest.Device) {
	t.Helper()
	fake := drmtest.New()
	a := NewDumbAllocator(drm.NewDevice(fake, "test"), testLogger())
	t.Cleanup(func() { _ = a.Halt() })
	return a, fake
}

func TestDumbAllocator(t *testing.T) {
	a, fake := newTestAllocator(t)

	h, err := a.Allocate(1920, 1080, drm.FormatXRGB8888, UsageHWFB|UsageHWComposer)
	if err != nil {
		t.Fatal(err)
	}

	if fd := a.FD(h, 0); fd < 0 {
		t.Errorf("expected prime fd for plane 0, got %d", fd)
	}
	if fd := a.FD(h, 1); fd != -1 {
		t.Errorf("expected no fd for plane 1, got %d", fd)
	}
	if width, height := a.Dimensions(h); width != 1920 || height != 1080 {
		t.Errorf("expected 1920x1080, got %dx%d", width, height)
	}
	if v := a.Format(h); v != drm.FormatXRGB8888 {
		t.Errorf("expected format %s, got %s", drm.FormatXRGB8888, v)
	}
	if v := a.Usage(h); v != UsageHWFB|UsageHWComposer {
		t.Errorf("expected usage HW_FB|HW_COMPOSER, got %s", v)
	}
	if v := a.Stride(h, 0); v < 1920*4 {
		t.Errorf("expected stride of at least %d, got %d", 1920*4, v)
	}
	if v := fake.Calls(drm.IOCTLPrimeHandleToFD); v != 1 {
		t.Errorf("expected 1 export, got %d", v)
	}

	if _, err = a.Map(h); !errors.Is(err, drm.ErrNotMappable) {
		t.Errorf("expected ErrNotMappable on fake device, got %v", err)
	}

	if err = a.Free(h); err != nil {
		t.Fatal(err)
	}
	if v := fake.Handles(); len(v) != 0 {
		t.Errorf("expected no open GEM handles, got %v", v)
	}
	if err = a.Free(h); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("expected ErrInvalidHandle, got %v", err)
	}
	if fd := a.FD(h, 0); fd != -1 {
		t.Errorf("expected no fd for freed buffer, got %d", fd)
	}
}

func TestDumbAllocatorErrors(t *testing.T) {
	a, fake := newTestAllocator(t)

	if _, err := a.Allocate(16, 16, drm.FormatNV12, 0); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat for NV12, got %v", err)
	}
	if v := fake.TotalCalls(); v != 0 {
		t.Errorf("expected no ioctls, got %d", v)
	}

	fake.Inject(drm.IOCTLPrimeHandleToFD, unix.ENOSYS)
	if _, err := a.Allocate(16, 16, drm.FormatRGB565, 0); !errors.Is(err, unix.ENOSYS) {
		t.Errorf("expected ENOSYS, got %v", err)
	}
	if v := fake.Handles(); len(v) != 0 {
		t.Errorf("expected dumb buffer to be destroyed after failed export, got handles %v", v)
	}
	if v := a.Len(); v != 0 {
		t.Errorf("expected no buffers, got %d", v)
	}
}

func TestDumbAllocatorHalt(t *testing.T) {
	a, fake := newTestAllocator(t)
	for i := 0; i < 3; i++ {
		if _, err := a.Allocate(64, 64, drm.FormatARGB8888, 0); err != nil {
			t.Fatal(err)
		}
	}
	if err := a.Halt(); err != nil {
		t.Fatal(err)
	}
	if v := a.Len(); v != 0 {
		t.Errorf("expected no buffers after halt, got %d", v)
	}
	if v := fake.Handles(); len(v) != 0 {
		t.Errorf("expected no open GEM handles after halt, got %v", v)
	}
}

type haltModule struct {
	*DumbAllocator
	halted int
}

func (m *haltModule) Halt() error {
	m.halted++
	return nil
}

func TestRegistry(t *testing.T) {
	var (
		r      = NewRegistry()
		opened int
		m      = &haltModule{DumbAllocator: NewDumbAllocator(drm.NewDevice(drmtest.New(), "test"), testLogger())}
	)
	if err := r.Register(HardwareModuleID, func() (Module, error) {
		opened++
		return m, nil
	}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(HardwareModuleID, func() (Module, error) { return m, nil }); !errors.Is(err, ErrModuleExists) {
		t.Errorf("expected ErrModuleExists, got %v", err)
	}
	if err := r.Register("", nil); !errors.Is(err, ErrInvalidModuleID) {
		t.Errorf("expected ErrInvalidModuleID, got %v", err)
	}

	for i := 0; i < 2; i++ {
		v, err := r.Open(HardwareModuleID)
		if err != nil {
			t.Fatal(err)
		}
		if v != m {
			t.Errorf("expected registered module, got %v", v)
		}
	}
	if opened != 1 {
		t.Errorf("expected module to be opened once, got %d", opened)
	}

	if _, err := r.Open("vendor"); !errors.Is(err, ErrModuleNotFound) {
		t.Errorf("expected ErrModuleNotFound, got %v", err)
	}

	if err := r.Halt(); err != nil {
		t.Fatal(err)
	}
	if m.halted != 1 {
		t.Errorf("expected module to be halted once, got %d", m.halted)
	}
	if _, err := r.Open(HardwareModuleID); err != nil {
		t.Fatal(err)
	}
	if opened != 2 {
		t.Errorf("expected module to be reopened after halt, got %d opens", opened)
	}
	if ids := r.IDs(); len(ids) != 1 || ids[0] != HardwareModuleID {
		t.Errorf("expected ids [%s], got %v", HardwareModuleID, ids)
	}
}

func TestRegistryOpenError(t *testing.T) {
	r := NewRegistry()
	cause := errors.New("no device")
	_ = r.Register(HardwareModuleID, func() (Module, error) { return nil, cause })
	if _, err := r.Open(HardwareModuleID); !errors.Is(err, cause) {
		t.Errorf("expected open error to wrap cause, got %v", err)
	}
}
