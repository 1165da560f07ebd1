//go:build linux
// +build linux

package fanotify

import (
	"os"

	"github.com/syndtr/gocapability/capability"
)

// return true if process has CAP_SYS_ADMIN privilege
// else return false
func checkCapSysAdmin() (bool, error) {
	capabilities, err := capability.NewPid2(os.Getpid())
	if err != nil {
		return false, err
	}
	if err := capabilities.Load(); err != nil {
		return false, err
	}
	return capabilities.Get(capability.EFFECTIVE, capability.CAP_SYS_ADMIN), nil
}
