//go:build linux
// +build linux

package fanotify

import (
	"fmt"
	"strings"

	"golang.org/x/sys/unix"
)

// EventMask is the bit mask of filesystem events carried by a mark or
// reported by an event. Several bits may be set on a single event.
type EventMask uint64

const (
	// Access event when a file is accessed (read)
	Access EventMask = unix.FAN_ACCESS

	// Modify event when a file is modified
	Modify EventMask = unix.FAN_MODIFY

	// CloseWrite event when a file opened for writing is closed
	CloseWrite EventMask = unix.FAN_CLOSE_WRITE

	// CloseNoWrite event when a file opened read only is closed
	CloseNoWrite EventMask = unix.FAN_CLOSE_NOWRITE

	// Open event when a file is opened
	Open EventMask = unix.FAN_OPEN

	// QueueOverflow is reported by the kernel when the event queue overflowed.
	// Overflow events carry no file descriptor.
	QueueOverflow EventMask = unix.FAN_Q_OVERFLOW

	// OpenPermission event when permission to open a file is requested.
	// Permission events need a response written back to the group, which this
	// package does not implement; do not mark for them.
	OpenPermission EventMask = unix.FAN_OPEN_PERM

	// AccessPermission event when permission to read a file is requested.
	// See OpenPermission.
	AccessPermission EventMask = unix.FAN_ACCESS_PERM

	// EventOnChild requests events for the immediate children of a marked directory
	EventOnChild EventMask = unix.FAN_EVENT_ON_CHILD

	// OnDir requests (and reports) events on directories
	OnDir EventMask = unix.FAN_ONDIR

	// Close event when a file is closed after write or no write
	Close EventMask = CloseWrite | CloseNoWrite
)

var eventMaskNames = []struct {
	mask EventMask
	name string
}{
	{Access, "ACCESS"},
	{Modify, "MODIFY"},
	{CloseWrite, "CLOSE_WRITE"},
	{CloseNoWrite, "CLOSE_NOWRITE"},
	{Open, "OPEN"},
	{QueueOverflow, "Q_OVERFLOW"},
	{OpenPermission, "OPEN_PERM"},
	{AccessPermission, "ACCESS_PERM"},
	{EventOnChild, "EVENT_ON_CHILD"},
	{OnDir, "ONDIR"},
}

// Has returns true if all the bits of mask are set.
func (m EventMask) Has(mask EventMask) bool {
	return m&mask == mask
}

// Or appends the specified mask to the set of masks.
func (m EventMask) Or(mask EventMask) EventMask {
	return m | mask
}

// String returns the set bits joined by "|", e.g. "OPEN|MODIFY". Bits without
// a name are rendered in hex.
func (m EventMask) String() string {
	if m == 0 {
		return "0"
	}
	var names []string
	rest := m
	for _, n := range eventMaskNames {
		if m&n.mask == n.mask {
			names = append(names, n.name)
			rest &^= n.mask
		}
	}
	if rest != 0 {
		names = append(names, fmt.Sprintf("0x%x", uint64(rest)))
	}
	return strings.Join(names, "|")
}
