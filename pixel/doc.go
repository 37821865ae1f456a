// Package pixel implements images over mapped graphics buffers.
//
// The images use the memory layout of the DRM pixel formats they are named after
// and are compatible with Go's native [image.Image] / [draw.Image] interfaces, so
// buffers can be drawn into directly after mapping.
package pixel
