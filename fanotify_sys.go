//go:build linux
// +build linux

package fanotify

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"unsafe"

	"github.com/lunixbochs/struc"
	"golang.org/x/sys/unix"
)

// MarkFlag holds the flags passed to fanotify_mark.
type MarkFlag uint32

const (
	MarkAdd               MarkFlag = unix.FAN_MARK_ADD
	MarkRemove            MarkFlag = unix.FAN_MARK_REMOVE
	MarkDontFollow        MarkFlag = unix.FAN_MARK_DONT_FOLLOW
	MarkOnlyDir           MarkFlag = unix.FAN_MARK_ONLYDIR
	MarkMount             MarkFlag = unix.FAN_MARK_MOUNT
	MarkIgnoredMask       MarkFlag = unix.FAN_MARK_IGNORED_MASK
	MarkIgnoredSurvModify MarkFlag = unix.FAN_MARK_IGNORED_SURV_MODIFY
	MarkFlush             MarkFlag = unix.FAN_MARK_FLUSH
	MarkFilesystem        MarkFlag = unix.FAN_MARK_FILESYSTEM
)

// InitFlag holds the flags passed to fanotify_init. Exactly one of the
// Class* values is part of every flag set.
type InitFlag uint32

const (
	InitCloexec     InitFlag = unix.FAN_CLOEXEC
	InitNonblock    InitFlag = unix.FAN_NONBLOCK
	ClassNotif      InitFlag = unix.FAN_CLASS_NOTIF
	ClassContent    InitFlag = unix.FAN_CLASS_CONTENT
	ClassPreContent InitFlag = unix.FAN_CLASS_PRE_CONTENT
	UnlimitedQueue  InitFlag = unix.FAN_UNLIMITED_QUEUE
	UnlimitedMarks  InitFlag = unix.FAN_UNLIMITED_MARKS
)

const (
	// MetadataVersion is the only event record layout this package decodes.
	MetadataVersion = unix.FANOTIFY_METADATA_VERSION
	// NoFD is the descriptor value of events that carry no file, e.g. QueueOverflow.
	NoFD = unix.FAN_NOFD

	sizeOfFanotifyEventMetadata = int(unsafe.Sizeof(unix.FanotifyEventMetadata{}))
	procFdPath                  = "/proc/self/fd/%d"
)

// eventMetadata is the fixed 24 byte prefix of every record read from the
// group descriptor. Fields are in native byte order.
type eventMetadata struct {
	EventLen    uint32
	Vers        uint8
	Reserved    uint8
	MetadataLen uint16
	Mask        uint64
	Fd          int32
	Pid         int32
}

var _popts = struc.Options{Order: binary.NativeEndian}

// eventOK reports whether buf starts with a complete record. buf holds the
// bytes that have not been framed yet.
func eventOK(buf []byte) bool {
	if len(buf) < sizeOfFanotifyEventMetadata {
		return false
	}
	n := binary.NativeEndian.Uint32(buf)
	return n >= uint32(sizeOfFanotifyEventMetadata) && uint64(n) <= uint64(len(buf))
}

// eventNext returns the bytes following the record at the start of buf. It
// must only be called after eventOK(buf) returned true.
func eventNext(buf []byte) []byte {
	return buf[binary.NativeEndian.Uint32(buf):]
}

func decodeMetadata(buf []byte) (eventMetadata, error) {
	var meta eventMetadata
	r := bytes.NewReader(buf[:sizeOfFanotifyEventMetadata])
	if err := struc.UnpackWithOptions(r, &meta, &_popts); err != nil {
		return meta, err
	}
	return meta, nil
}

// syscalls is the kernel surface used by Group.
type syscalls interface {
	FanotifyInit(flags InitFlag, eventFlags uint) (int, error)
	FanotifyMark(fd int, flags MarkFlag, mask EventMask, path string) error
	ReadableBytes(fd int) (int, error)
	Read(fd int, buf []byte) (int, error)
	Readlink(fd int) (string, error)
	Close(fd int) error
}

type unixSyscalls struct{}

func (unixSyscalls) FanotifyInit(flags InitFlag, eventFlags uint) (int, error) {
	fd, err := unix.FanotifyInit(uint(flags), eventFlags)
	if err != nil {
		return -1, os.NewSyscallError("fanotify_init", err)
	}
	return fd, nil
}

func (unixSyscalls) FanotifyMark(fd int, flags MarkFlag, mask EventMask, path string) error {
	if err := unix.FanotifyMark(fd, uint(flags), uint64(mask), unix.AT_FDCWD, path); err != nil {
		return os.NewSyscallError("fanotify_mark", err)
	}
	return nil
}

func (unixSyscalls) ReadableBytes(fd int) (int, error) {
	// TIOCINQ is the Linux name of FIONREAD
	n, err := unix.IoctlGetInt(fd, unix.TIOCINQ)
	if err != nil {
		return 0, os.NewSyscallError("ioctl FIONREAD", err)
	}
	return n, nil
}

func (unixSyscalls) Read(fd int, buf []byte) (int, error) {
	for {
		n, err := unix.Read(fd, buf)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, os.NewSyscallError("read", err)
		}
		return n, nil
	}
}

func (unixSyscalls) Readlink(fd int) (string, error) {
	var name [unix.PathMax]byte
	n, err := unix.Readlink(fmt.Sprintf(procFdPath, fd), name[:])
	if err != nil {
		return "", os.NewSyscallError("readlink", err)
	}
	return string(name[:n]), nil
}

func (unixSyscalls) Close(fd int) error {
	return unix.Close(fd)
}
