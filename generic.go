package hwc

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/BeatGlow/hwc/gralloc"
)

var errZeroFramebuffer = errors.New("driver returned framebuffer id 0")

// genericImporter imports buffers by their prime file descriptor. Only the
// first plane of a buffer is imported, with offset 0.
type genericImporter struct {
	res     Resources
	gralloc gralloc.Module
	log     logrus.FieldLogger
}

func (imp *genericImporter) init(modules *gralloc.Registry, id string) error {
	if modules == nil {
		return &Error{Kind: ErrModuleUnavailable, Op: fmt.Sprintf("open module %q", id)}
	}
	m, err := modules.Open(id)
	if err != nil {
		return &Error{Kind: ErrModuleUnavailable, Op: fmt.Sprintf("open module %q", id), Err: err}
	}
	imp.gralloc = m
	imp.log.WithField("module", m.String()).Debug("opened allocator module")
	return nil
}

func (imp *genericImporter) String() string {
	return fmt.Sprintf("generic importer for %s", imp.gralloc)
}

func (imp *genericImporter) Import(h gralloc.Handle) (BufferObject, error) {
	log := imp.log.WithField("handle", h)

	fd := imp.gralloc.FD(h, 0)
	if fd < 0 {
		err := &Error{Kind: ErrInvalidHandle, Op: fmt.Sprintf("buffer %d", h)}
		log.WithError(err).Error("failed to import buffer")
		return BufferObject{}, err
	}

	gem, err := imp.res.PrimeFDToHandle(fd)
	if err != nil {
		log.WithField("fd", fd).WithError(err).Error("failed to import prime fd")
		return BufferObject{}, &Error{Kind: ErrImportFailed, Op: fmt.Sprintf("prime fd %d", fd), Err: err}
	}

	var bo BufferObject
	bo.Width, bo.Height = imp.gralloc.Dimensions(h)
	bo.Format = imp.gralloc.Format(h)
	bo.Usage = imp.gralloc.Usage(h)
	bo.Pitches[0] = imp.gralloc.Stride(h, 0)
	bo.Offsets[0] = 0
	bo.GemHandles[0] = gem

	id, err := imp.res.AddFB2(bo.Width, bo.Height, bo.Format, bo.GemHandles, bo.Pitches, bo.Offsets, 0)
	if err == nil && id == 0 {
		err = errZeroFramebuffer
	}
	if err != nil {
		log.WithFields(logrus.Fields{
			"width":  bo.Width,
			"height": bo.Height,
			"format": bo.Format,
			"pitch":  bo.Pitches[0],
		}).WithError(err).Error("could not create framebuffer")
		err = &Error{
			Kind: ErrFramebufferCreateFailed,
			Op:   fmt.Sprintf("%dx%d %s pitch %d", bo.Width, bo.Height, bo.Format, bo.Pitches[0]),
			Err:  err,
		}

		// The GEM handle is ours to close; hand it to the caller only if that fails.
		if cerr := imp.res.GemClose(gem); cerr != nil {
			log.WithField("gem_handle", gem).WithError(cerr).Error("failed to close GEM handle")
			return bo, err
		}
		return BufferObject{}, err
	}

	bo.FbID = id
	log.WithFields(logrus.Fields{
		"fb_id":      bo.FbID,
		"gem_handle": gem,
	}).Debug("imported buffer")
	return bo, nil
}

func (imp *genericImporter) Release(bo *BufferObject) (report ReleaseReport) {
	if bo == nil {
		return
	}

	if bo.FbID != 0 {
		if err := imp.res.RmFB(bo.FbID); err != nil {
			imp.log.WithFields(logrus.Fields{
				"fb_id": bo.FbID,
				"error": err,
			}).Error("failed to remove framebuffer")
			report.Framebuffer = &Error{Kind: ErrFramebufferRemoveFailed, Op: fmt.Sprintf("fb %d", bo.FbID), Err: err}
		} else {
			bo.FbID = 0
		}
	}

	for plane, handle := range bo.GemHandles {
		if handle == 0 {
			continue
		}
		if err := imp.res.GemClose(handle); err != nil {
			imp.log.WithFields(logrus.Fields{
				"plane":      plane,
				"gem_handle": handle,
				"error":      err,
			}).Error("failed to close GEM handle")
			report.Planes[plane] = &Error{Kind: ErrGemCloseFailed, Op: fmt.Sprintf("plane %d handle %d", plane, handle), Err: err}
			continue
		}
		bo.GemHandles[plane] = 0
		report.Closed++
	}
	return
}
