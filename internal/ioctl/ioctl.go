package ioctl

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"

	"golang.org/x/sys/unix"
	"periph.io/x/host/v3/fs"
)

// Mode is the IOCTL mode.
type Mode uint8

// Modes
const (
	None Mode = iota
	Write
	Read
)

// Command to be sent over ioctl.
type Command uintptr

// Type is the ioctl type (magic) byte.
func (c Command) Type() uint8 {
	return uint8(c >> 8 & 0xff)
}

// Nr is the ioctl sequence number.
func (c Command) Nr() uint8 {
	return uint8(c & 0xff)
}

// Size of the argument structure.
func (c Command) Size() uint16 {
	return uint16(c >> 16 & 0x3fff)
}

func (c Command) String() string {
	var (
		mode = Mode(c >> 30 & 0x03)
		str  string
	)
	if mode&Write > 0 {
		str += " write"
	}
	if mode&Read > 0 {
		str += " read"
	}
	return fmt.Sprintf("ioctl%s (%d bytes) %q 0x%02x", str, c.Size(), rune(c.Type()), c.Nr())
}

// Error is returned by a failed ioctl call.
type Error struct {
	Command Command
	Errno   unix.Errno
}

func (err *Error) Error() string {
	return fmt.Sprintf("%s failed: %v", err.Command, err.Errno)
}

func (err *Error) Unwrap() error {
	return err.Errno
}

// Errno returns the errno carried by err, or 0 if there is none.
func Errno(err error) unix.Errno {
	var errno unix.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return 0
}

// File is a raw file descriptor that implements fs.Ioctler.
type File uintptr

// Ioctl sends a linux ioctl on the file descriptor.
func (f File) Ioctl(op uint, data uintptr) error {
	return Call(uintptr(f), uintptr(op), data)
}

var _ fs.Ioctler = File(0)

// Do executes the ioctl call on f with a pointer argument.
func Do(f fs.Ioctler, command Command, ptr interface{}) error {
	var p uintptr

	if ptr != nil {
		v := reflect.ValueOf(ptr)
		p = v.Pointer()
	}

	err := f.Ioctl(uint(command), p)
	runtime.KeepAlive(ptr)
	if err != nil {
		var ioctlErr *Error
		if errors.As(err, &ioctlErr) {
			return err
		}
		var errno unix.Errno
		if errors.As(err, &errno) {
			return &Error{Command: command, Errno: errno}
		}
		return fmt.Errorf("%s failed: %w", command, err)
	}
	return nil
}

// Call does a plain ioctl system call. Interrupted calls are restarted.
func Call(fd, command, arg uintptr) error {
	for {
		_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, command, arg)
		switch errno {
		case 0:
			return nil
		case unix.EINTR, unix.EAGAIN:
			continue
		default:
			return &Error{Command: Command(command), Errno: errno}
		}
	}
}

// Encode an ioctl command.
func Encode(mode Mode, size uint16, cmd uintptr) Command {
	return Command(mode)<<30 | Command(size)<<16 | Command(cmd)
}

// Pointer to a value.
func Pointer(mode Mode, ref interface{}, cmd uintptr) Command {
	size := uint16(reflect.TypeOf(ref).Elem().Size())
	return Encode(mode, size, cmd)
}
