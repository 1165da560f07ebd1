//go:build linux
// +build linux

package fanotify

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

var (
	// ErrCapSysAdmin indicates caller is missing CAP_SYS_ADMIN permissions
	ErrCapSysAdmin = errors.New("require CAP_SYS_ADMIN capability")
	// ErrNilGroup indicates the group is nil
	ErrNilGroup = errors.New("nil group")
	// ErrClosed indicates the group has already been closed
	ErrClosed = errors.New("group closed")
	// ErrNothingToRead indicates the group has no queued events. It wraps
	// unix.EAGAIN; callers usually poll again.
	ErrNothingToRead = fmt.Errorf("nothing to read: %w", unix.EAGAIN)
	// ErrInvalidPath indicates a path that cannot be handed to the kernel
	ErrInvalidPath = errors.New("invalid path")
	// ErrInvalidEvent indicates an event record that could not be decoded
	ErrInvalidEvent = errors.New("invalid event")
)

// Group represents a fanotify notification group. It owns the descriptor
// returned by fanotify_init and accumulates the events of all its marks.
//
// GetEvents must not be called concurrently on the same group. Mark
// operations may be interleaved with reads.
type Group struct {
	// fd returned by fanotify_init
	fd       int
	blocking bool
	closed   atomic.Bool
	sys      syscalls
	logger   *zap.Logger
}

// NewBlocking returns a notification group whose GetEvents blocks the calling
// goroutine until at least one event is queued.
//
// NOTE that this call requires CAP_SYS_ADMIN privilege
func NewBlocking(opts ...Option) (*Group, error) {
	return newGroup(ClassNotif|UnlimitedQueue|UnlimitedMarks, 0, true, opts)
}

// NewNonblocking returns a notification group whose GetEvents returns
// immediately. An empty queue is reported as ErrNothingToRead.
//
// NOTE that this call requires CAP_SYS_ADMIN privilege
func NewNonblocking(opts ...Option) (*Group, error) {
	return newGroup(InitNonblock|UnlimitedQueue|UnlimitedMarks, 0, false, opts)
}

func newGroup(flags InitFlag, eventFlags uint, blocking bool, opts []Option) (*Group, error) {
	g := &Group{
		fd:       -1,
		blocking: blocking,
		sys:      unixSyscalls{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	fd, err := g.sys.FanotifyInit(flags, eventFlags)
	if err != nil {
		if errors.Is(err, unix.EPERM) {
			if capSysAdmin, capErr := checkCapSysAdmin(); capErr == nil && !capSysAdmin {
				err = fmt.Errorf("%w: %w", ErrCapSysAdmin, err)
			}
		}
		return nil, err
	}
	g.fd = fd
	runtime.SetFinalizer(g, func(g *Group) { _ = g.Close() })
	g.logger.Debug("fanotify group created",
		zap.Int("fd", fd),
		zap.Uint32("flags", uint32(flags)),
		zap.Bool("blocking", blocking))
	return g, nil
}

// Fd returns the group descriptor, e.g. for use in a caller's poll loop.
// The descriptor stays owned by the group. Fd returns -1 once the group is
// closed.
func (g *Group) Fd() int {
	if g.closed.Load() {
		return -1
	}
	return g.fd
}

// Blocking reports whether the group was created with NewBlocking.
func (g *Group) Blocking() bool {
	return g.blocking
}

// AddFile marks the file or directory at path; events in mask on that inode
// are reported.
func (g *Group) AddFile(mask EventMask, path string) error {
	return g.mark(MarkAdd, mask, path)
}

// AddMount marks the mount containing path; events in mask on any object
// under that mount are reported.
func (g *Group) AddMount(mask EventMask, path string) error {
	return g.mark(MarkAdd|MarkMount, mask, path)
}

// AddFilesystem marks the whole filesystem containing path.
// Requires Linux kernel 4.20 or later.
func (g *Group) AddFilesystem(mask EventMask, path string) error {
	return g.mark(MarkAdd|MarkFilesystem, mask, path)
}

// AddDir marks the directory at path. It fails if path is not a directory.
func (g *Group) AddDir(mask EventMask, path string) error {
	return g.mark(MarkAdd|MarkOnlyDir, mask, path)
}

// RemoveDir removes mask from the mark on the directory at path.
func (g *Group) RemoveDir(mask EventMask, path string) error {
	return g.mark(MarkRemove|MarkOnlyDir, mask, path)
}

// AddLink marks the symbolic link at path itself. The link is not followed.
func (g *Group) AddLink(mask EventMask, path string) error {
	return g.mark(MarkAdd|MarkDontFollow, mask, path)
}

// RemoveLink removes mask from the mark on the symbolic link at path.
func (g *Group) RemoveLink(mask EventMask, path string) error {
	return g.mark(MarkRemove|MarkDontFollow, mask, path)
}

// RemoveFile removes mask from the inode mark on path.
func (g *Group) RemoveFile(mask EventMask, path string) error {
	return g.mark(MarkRemove, mask, path)
}

// RemoveMount removes mask from the mount mark containing path.
func (g *Group) RemoveMount(mask EventMask, path string) error {
	return g.mark(MarkRemove|MarkMount, mask, path)
}

// Flush removes all inode marks of the group.
func (g *Group) Flush() error {
	if err := g.check(); err != nil {
		return err
	}
	if err := g.sys.FanotifyMark(g.fd, MarkFlush, 0, ""); err != nil {
		return err
	}
	g.logger.Debug("fanotify marks flushed", zap.Int("fd", g.fd))
	return nil
}

// Close closes the group descriptor. Marks do not need to be removed first;
// the kernel drops them with the group.
//
// Closing does not interrupt a GetEvents already blocked in read on another
// goroutine. Callers that need to cancel a wait should use a nonblocking group
// and poll Fd in their own loop.
func (g *Group) Close() error {
	if g == nil {
		return ErrNilGroup
	}
	if !g.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	runtime.SetFinalizer(g, nil)
	g.logger.Debug("fanotify group closed", zap.Int("fd", g.fd))
	return g.sys.Close(g.fd)
}

func (g *Group) check() error {
	if g == nil {
		return ErrNilGroup
	}
	if g.closed.Load() {
		return ErrClosed
	}
	return nil
}

func (g *Group) mark(flags MarkFlag, mask EventMask, path string) error {
	if err := g.check(); err != nil {
		return err
	}
	if path == "" {
		return fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	if strings.IndexByte(path, 0) >= 0 {
		return fmt.Errorf("%w: %q contains NUL byte", ErrInvalidPath, path)
	}
	if err := g.sys.FanotifyMark(g.fd, flags, mask, path); err != nil {
		return fmt.Errorf("mark %s: %w", path, err)
	}
	g.logger.Debug("fanotify mark",
		zap.String("path", path),
		zap.Uint32("flags", uint32(flags)),
		zap.Stringer("mask", mask))
	return nil
}
