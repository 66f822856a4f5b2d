// Package hardware is the board-side implementation of the capability set.
//
// Open verifies that the FPGA manager is reachable and that the firmware and
// its descriptor are installed; clocks and DDS widths then come from the
// descriptor. Register-level programming of the fabric is handled elsewhere.
package hardware

import (
	"errors"
	"fmt"
	"os"

	"github.com/qick-go/qick/internal/board"
	"github.com/qick-go/qick/internal/soc"
)

// DefaultFPGAManager is the sysfs node of the Zynq FPGA manager.
const DefaultFPGAManager = "/sys/class/fpga_manager/fpga0/state"

// ErrNoFPGA is returned when the FPGA manager cannot be accessed.
var ErrNoFPGA = errors.New("fpga manager not accessible")

// Options configures Open.
type Options struct {
	// Bitfile is the absolute firmware path; its descriptor sits next to it.
	Bitfile string

	// FPGAManager defaults to DefaultFPGAManager.
	FPGAManager string
}

// SoC drives a board.
type SoC struct {
	*Config
	bitfile string
}

// Open constructs the hardware implementation.
func Open(opts Options) (*SoC, error) {
	if opts.FPGAManager == "" {
		opts.FPGAManager = DefaultFPGAManager
	}
	if err := probe(opts.FPGAManager); err != nil {
		return nil, err
	}

	if _, err := os.Stat(opts.Bitfile); err != nil {
		return nil, fmt.Errorf("firmware: %w", err)
	}

	desc, err := LoadDescriptor(board.DescriptorPath(opts.Bitfile))
	if err != nil {
		return nil, fmt.Errorf("firmware descriptor: %w", err)
	}

	return &SoC{Config: newConfig(desc), bitfile: opts.Bitfile}, nil
}

// Bitfile returns the firmware path the SoC was opened with.
func (s *SoC) Bitfile() string {
	return s.bitfile
}

// Exposed marks the operations remote clients may call.
func (*SoC) Exposed() []string {
	return []string{soc.OpGetConfig, soc.OpAdjustFreq, soc.OpUsToCycles, soc.OpCyclesToUs}
}

func (s *SoC) String() string {
	return fmt.Sprintf("QickSoc(%s)", s.bitfile)
}
