//go:build !linux

package hardware

import (
	"fmt"
	"os"
)

// probe only checks existence; FPGA managers are a Linux sysfs concept.
func probe(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrNoFPGA, path, err)
	}
	return nil
}
