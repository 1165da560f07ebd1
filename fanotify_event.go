//go:build linux
// +build linux

package fanotify

import (
	"errors"
	"fmt"
	"runtime"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// blockingReadSize is the buffer used when a blocking group has nothing
// queued yet and the size of the next batch is unknown.
const blockingReadSize = 4096 * sizeOfFanotifyEventMetadata

// Event represents a notification from the kernel for a marked file, mount or
// filesystem.
//
// An Event owns the descriptor the kernel opened for the accessed object. The
// descriptor is closed by Close, or when the Event is garbage collected. An
// Event must not be copied; pass it by pointer.
type Event struct {
	// Filename is the path of the accessed object, resolved through /proc/self/fd
	// when the events were read. Empty for events without a descriptor.
	Filename string
	// Mask holds bit mask representing the event
	Mask EventMask
	// Pid is the process ID of the process that caused the event
	Pid int32

	noCopy noCopy
	fd     int
	sys    syscalls
}

// noCopy lets go vet's copylocks check flag Event values being copied.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Fd returns the descriptor owned by the event, or NoFD when the event
// carries none or has been closed.
func (e *Event) Fd() int {
	return e.fd
}

// Close releases the descriptor owned by the event. Calling Close more than
// once is a no-op.
func (e *Event) Close() error {
	if e == nil || e.sys == nil || e.fd < 0 {
		return nil
	}
	fd := e.fd
	e.fd = NoFD
	runtime.SetFinalizer(e, nil)
	return e.sys.Close(fd)
}

// Events holds the events decoded from a single read, in kernel delivery order.
type Events []*Event

// Close releases the descriptors of all events.
func (es Events) Close() error {
	var errs []error
	for _, e := range es {
		if err := e.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// GetEvents drains the group descriptor once and returns the decoded events.
//
// A nonblocking group with an empty queue returns ErrNothingToRead. A blocking
// group waits in read until at least one event is queued.
//
// A record whose path cannot be resolved, or resolves to a path that is not
// valid UTF-8, is skipped and its descriptor closed. A record with an unknown
// metadata version aborts the batch with ErrInvalidEvent; the events decoded
// before it are closed, but the descriptors of that record and of every record
// after it are left open because their layout cannot be trusted.
func (g *Group) GetEvents() (Events, error) {
	if err := g.check(); err != nil {
		return nil, err
	}
	n, err := g.sys.ReadableBytes(g.fd)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		if !g.blocking {
			return nil, ErrNothingToRead
		}
		n = blockingReadSize
	}
	buf := make([]byte, n)
	nr, err := g.sys.Read(g.fd, buf)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) {
			return nil, ErrNothingToRead
		}
		return nil, err
	}
	return g.decodeEvents(buf[:nr])
}

func (g *Group) decodeEvents(buf []byte) (Events, error) {
	events := make(Events, 0, len(buf)/sizeOfFanotifyEventMetadata)
	for ; eventOK(buf); buf = eventNext(buf) {
		meta, err := decodeMetadata(buf)
		if err != nil {
			events.Close()
			return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
		}
		if meta.Vers != MetadataVersion {
			events.Close()
			return nil, fmt.Errorf("%w: metadata version %d does not match %d", ErrInvalidEvent, meta.Vers, MetadataVersion)
		}
		event, err := g.newEvent(meta)
		if err != nil {
			g.logger.Warn("skipping fanotify event",
				zap.Int32("fd", meta.Fd),
				zap.Int32("pid", meta.Pid),
				zap.Stringer("mask", EventMask(meta.Mask)),
				zap.Error(err))
			continue
		}
		if event.Mask.Has(QueueOverflow) {
			g.logger.Warn("fanotify event queue overflowed", zap.Int("fd", g.fd))
		}
		events = append(events, event)
	}
	if len(buf) > 0 {
		g.logger.Debug("discarding partial fanotify record", zap.Int("bytes", len(buf)))
	}
	g.logger.Debug("fanotify events read", zap.Int("count", len(events)))
	return events, nil
}

// newEvent resolves the path of the record's descriptor and transfers the
// descriptor to the returned Event. On error the descriptor has been closed.
func (g *Group) newEvent(meta eventMetadata) (*Event, error) {
	event := &Event{
		Mask: EventMask(meta.Mask),
		Pid:  meta.Pid,
		fd:   int(meta.Fd),
		sys:  g.sys,
	}
	if event.fd < 0 {
		event.fd = NoFD
		return event, nil
	}
	name, err := g.sys.Readlink(event.fd)
	if err == nil && !utf8.ValidString(name) {
		err = fmt.Errorf("path %q is not valid UTF-8", name)
	}
	if err != nil {
		_ = g.sys.Close(event.fd)
		return nil, fmt.Errorf("%w: fd %d: %w", ErrInvalidEvent, meta.Fd, err)
	}
	event.Filename = name
	runtime.SetFinalizer(event, func(e *Event) { _ = e.Close() })
	return event, nil
}
