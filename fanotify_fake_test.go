//go:build linux
// +build linux

package fanotify

import (
	"bytes"
	"testing"

	"github.com/lunixbochs/struc"
	"github.com/stretchr/testify/require"
)

type fakeMark struct {
	fd    int
	flags MarkFlag
	mask  EventMask
	path  string
}

// fakeSyscalls stands in for the kernel. Every descriptor passed to Close is
// counted so that tests can check it is released exactly once.
type fakeSyscalls struct {
	initFd    int
	initFlags InitFlag
	initErr   error

	marks   []fakeMark
	markErr error

	readable    int
	readableErr error
	data        []byte
	readErr     error
	readSize    int
	reads       int

	links   map[int]string
	linkErr map[int]error

	closed map[int]int
}

func withSyscalls(sys syscalls) Option {
	return func(g *Group) {
		g.sys = sys
	}
}

func newFakeSyscalls() *fakeSyscalls {
	return &fakeSyscalls{
		initFd:  3,
		links:   make(map[int]string),
		linkErr: make(map[int]error),
		closed:  make(map[int]int),
	}
}

func (f *fakeSyscalls) FanotifyInit(flags InitFlag, eventFlags uint) (int, error) {
	f.initFlags = flags
	if f.initErr != nil {
		return -1, f.initErr
	}
	return f.initFd, nil
}

func (f *fakeSyscalls) FanotifyMark(fd int, flags MarkFlag, mask EventMask, path string) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.marks = append(f.marks, fakeMark{fd: fd, flags: flags, mask: mask, path: path})
	return nil
}

func (f *fakeSyscalls) ReadableBytes(fd int) (int, error) {
	return f.readable, f.readableErr
}

func (f *fakeSyscalls) Read(fd int, buf []byte) (int, error) {
	f.reads++
	f.readSize = len(buf)
	if f.readErr != nil {
		return 0, f.readErr
	}
	return copy(buf, f.data), nil
}

func (f *fakeSyscalls) Readlink(fd int) (string, error) {
	if err, ok := f.linkErr[fd]; ok {
		return "", err
	}
	return f.links[fd], nil
}

func (f *fakeSyscalls) Close(fd int) error {
	f.closed[fd]++
	return nil
}

// queue makes the records readable by the next GetEvents.
func (f *fakeSyscalls) queue(records ...[]byte) {
	f.data = bytes.Join(records, nil)
	f.readable = len(f.data)
}

func newFakeGroup(t *testing.T, f *fakeSyscalls, blocking bool, opts ...Option) *Group {
	t.Helper()
	flags := InitNonblock | UnlimitedQueue | UnlimitedMarks
	if blocking {
		flags = ClassNotif | UnlimitedQueue | UnlimitedMarks
	}
	g, err := newGroup(flags, 0, blocking, append(opts, withSyscalls(f)))
	require.NoError(t, err)
	return g
}

func metadata(mask EventMask, fd, pid int32) eventMetadata {
	return eventMetadata{
		EventLen:    uint32(sizeOfFanotifyEventMetadata),
		Vers:        MetadataVersion,
		MetadataLen: uint16(sizeOfFanotifyEventMetadata),
		Mask:        uint64(mask),
		Fd:          fd,
		Pid:         pid,
	}
}

// packRecord encodes meta followed by pad reserved bytes. EventLen is taken
// from meta as is so that malformed records can be built.
func packRecord(t *testing.T, meta eventMetadata, pad int) []byte {
	t.Helper()
	var b bytes.Buffer
	require.NoError(t, struc.PackWithOptions(&b, &meta, &_popts))
	b.Write(make([]byte, pad))
	return b.Bytes()
}
