// Package fanotify provides a small, synchronous API over the Linux fanotify
// notification facility.
//
// A Group is a fanotify notification group. Files, mounts and filesystems are
// marked on the group with an EventMask; GetEvents then drains the group once
// and returns the queued events in kernel delivery order.
//
// Every Event owns the descriptor the kernel opened for the accessed object and
// must be closed by the caller:
//   - Events are closed with Event.Close or Events.Close. Closing twice is a no-op.
//   - A nonblocking group with an empty queue returns ErrNothingToRead.
//   - A blocking group waits in read until an event is queued.
//
// Permission events (OpenPermission, AccessPermission) require a response that
// this package does not write; groups are always created in the notification class.
package fanotify
