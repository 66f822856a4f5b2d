//go:build linux

package hardware

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// probe reports whether the FPGA manager node can be read and written.
func probe(path string) error {
	if err := unix.Access(path, unix.R_OK|unix.W_OK); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNoFPGA, path, err)
	}
	return nil
}
