//go:build linux

package platform

import (
	"golang.org/x/sys/unix"
)

// Machine returns the kernel's machine identifier, as uname -m prints it.
func Machine() string {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return goarchMachine()
	}
	return unix.ByteSliceToString(u.Machine[:])
}
