//go:build linux
// +build linux

package fanotify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventMask(t *testing.T) {
	var mask EventMask
	mask = Open.Or(Modify.Or(CloseWrite))
	assert.True(t, mask.Has(Open))
	assert.True(t, mask.Has(Modify))
	assert.True(t, mask.Has(CloseWrite))
	assert.False(t, mask.Has(Close))
	assert.True(t, mask.Or(CloseNoWrite).Has(Close))
}

func TestEventMaskString(t *testing.T) {
	assert.Equal(t, "0", EventMask(0).String())
	assert.Equal(t, "OPEN", Open.String())
	assert.Equal(t, "MODIFY|OPEN", (Open | Modify).String())
	assert.Equal(t, "CLOSE_WRITE|CLOSE_NOWRITE", Close.String())
	assert.Equal(t, "ACCESS|0x100", (Access | 0x100).String())
}

func TestEventMaskValues(t *testing.T) {
	assert.Equal(t, EventMask(0x1), Access)
	assert.Equal(t, EventMask(0x2), Modify)
	assert.Equal(t, EventMask(0x8), CloseWrite)
	assert.Equal(t, EventMask(0x10), CloseNoWrite)
	assert.Equal(t, EventMask(0x18), Close)
	assert.Equal(t, EventMask(0x20), Open)
	assert.Equal(t, EventMask(0x4000), QueueOverflow)
	assert.Equal(t, EventMask(0x1_0000), OpenPermission)
	assert.Equal(t, EventMask(0x2_0000), AccessPermission)
	assert.Equal(t, EventMask(0x0800_0000), EventOnChild)
	assert.Equal(t, EventMask(0x4000_0000), OnDir)
}
