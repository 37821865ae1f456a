package hwc

import (
	"errors"

	"golang.org/x/sys/unix"

	"github.com/BeatGlow/hwc/internal/ioctl"
)

// Errors
var (
	ErrUnsupportedKind         = errors.New("hwc: unsupported importer kind")
	ErrNoResources             = errors.New("hwc: no display resources")
	ErrModuleUnavailable       = errors.New("hwc: allocator module unavailable")
	ErrInvalidHandle           = errors.New("hwc: buffer handle has no file descriptor")
	ErrImportFailed            = errors.New("hwc: prime import failed")
	ErrFramebufferCreateFailed = errors.New("hwc: framebuffer create failed")
	ErrFramebufferRemoveFailed = errors.New("hwc: framebuffer remove failed")
	ErrGemCloseFailed          = errors.New("hwc: GEM handle close failed")
)

// Error is an importer failure. Kind is one of the package errors and Err the
// underlying cause, if any; errors.Is matches both.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (err *Error) Error() string {
	s := err.Kind.Error()
	if err.Op != "" {
		s += ": " + err.Op
	}
	if err.Err != nil {
		s += ": " + err.Err.Error()
	}
	return s
}

func (err *Error) Unwrap() []error {
	if err.Err == nil {
		return []error{err.Kind}
	}
	return []error{err.Kind, err.Err}
}

// Errno is the device error code that caused the failure, or 0.
func (err *Error) Errno() unix.Errno {
	if err.Err == nil {
		return 0
	}
	return ioctl.Errno(err.Err)
}
