// Package hwc imports graphics buffers into the display subsystem.
//
// An Importer turns buffers allocated by a platform allocator module (see
// package gralloc) into GEM handles and framebuffer objects on a DRM device,
// ready to be scanned out, and releases them again when they leave the screen.
package hwc

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/BeatGlow/hwc/drm"
	"github.com/BeatGlow/hwc/gralloc"
)

var debug bool

func init() {
	debug = os.Getenv("HWC_DEBUG") != ""
}

// Resources is the display resource handle buffers are imported into. It is
// implemented by *drm.Device; the importer never opens or closes it.
type Resources interface {
	// PrimeFDToHandle imports a prime file descriptor as GEM handle.
	PrimeFDToHandle(fd int) (uint32, error)

	// AddFB2 registers a framebuffer object.
	AddFB2(width, height uint32, format drm.Fourcc, handles, pitches, offsets [drm.MaxPlanes]uint32, flags uint32) (uint32, error)

	// RmFB removes a framebuffer object.
	RmFB(id uint32) error

	// GemClose drops a GEM handle.
	GemClose(handle uint32) error
}

// Importer imports buffers as framebuffers.
//
// Importers do no locking: a BufferObject must not be released concurrently
// with another Release of, or any other use of, the same BufferObject.
type Importer interface {
	String() string

	// Import the buffer as a framebuffer. Every successfully imported
	// BufferObject must be passed to Release exactly once.
	Import(h gralloc.Handle) (BufferObject, error)

	// Release the framebuffer and GEM handles of bo. Release never stops at a
	// failure; the report has the outcome of every step.
	Release(bo *BufferObject) ReleaseReport
}

// Kind selects an Importer implementation.
type Kind uint8

// Importer kinds.
const (
	// KindGeneric imports buffers through prime file descriptors, which works
	// with any driver supporting prime import.
	KindGeneric Kind = iota
)

func (k Kind) String() string {
	switch k {
	case KindGeneric:
		return "generic"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// ParseKind parses an importer kind name.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "", "generic", "drm-generic":
		return KindGeneric, nil
	default:
		return 0, fmt.Errorf("%w %q", ErrUnsupportedKind, s)
	}
}

// Config is the importer configuration.
type Config struct {
	// Kind of importer.
	Kind Kind

	// Modules resolves the allocator module.
	Modules *gralloc.Registry

	// ModuleID of the allocator module, defaults to gralloc.HardwareModuleID.
	ModuleID string

	// Logger for import failures and teardown errors. Defaults to a logger
	// writing to stderr, logging at debug level if HWC_DEBUG is set.
	Logger logrus.FieldLogger
}

func defaultLogger() logrus.FieldLogger {
	log := logrus.New()
	if debug {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

// New creates and initializes the importer selected by config. A nil res fails
// with ErrNoResources. A nil config selects a generic importer without
// allocator modules, which fails with ErrModuleUnavailable.
func New(res Resources, config *Config) (Importer, error) {
	if res == nil {
		return nil, &Error{Kind: ErrNoResources, Op: "new importer"}
	}
	if config == nil {
		config = new(Config)
	}

	log := config.Logger
	if log == nil {
		log = defaultLogger()
	}
	log = log.WithField("importer", config.Kind.String())

	id := config.ModuleID
	if id == "" {
		id = gralloc.HardwareModuleID
	}

	switch config.Kind {
	case KindGeneric:
		imp := &genericImporter{
			res: res,
			log: log,
		}
		if err := imp.init(config.Modules, id); err != nil {
			log.WithError(err).Error("failed to initialize importer")
			return nil, err
		}
		return imp, nil
	default:
		return nil, fmt.Errorf("%w %s", ErrUnsupportedKind, config.Kind)
	}
}
