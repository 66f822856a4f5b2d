// Package qick is the entry point for controlling an RFSoC signal-processing
// board. It presents one capability set whether the process runs on the board
// itself or on a host, where a stand-in with the same contract is bound.
//
// New detects the platform once and returns a Handle that owns the bound
// implementation and the registry of remote-callable operations:
//
//	h, err := qick.New()
//	if err != nil {
//		log.Fatal(err)
//	}
//	s, err := h.SoC()
//	if err != nil {
//		// hardware driver failed to initialize; err wraps ErrUnavailable
//	}
//	cycles := s.UsToCycles(2.5, qick.WithGen(0))
package qick

import (
	"fmt"
	"log"
	"os"

	"github.com/qick-go/qick/internal/board"
	"github.com/qick-go/qick/internal/logging"
	"github.com/qick-go/qick/internal/platform"
	"github.com/qick-go/qick/internal/remote"
	"github.com/qick-go/qick/internal/soc"
	"github.com/qick-go/qick/internal/soc/hardware"
	"github.com/qick-go/qick/internal/soc/standin"
)

type (
	SoC           = soc.SoC
	Snapshot      = soc.Snapshot
	ChannelOption = soc.ChannelOption
	Mode          = platform.Mode
	State         = platform.State
)

const (
	HardwareAbsent  = platform.HardwareAbsent
	HardwarePresent = platform.HardwarePresent

	StateUnbound       = platform.StateUnbound
	StateHardwareBound = platform.StateHardwareBound
	StateStandinBound  = platform.StateStandinBound
)

var (
	WithGen     = soc.WithGen
	WithReadout = soc.WithReadout

	ErrUnavailable    = soc.ErrUnavailable
	ErrInvalidChannel = soc.ErrInvalidChannel
)

// OpenFunc constructs the hardware implementation for a bitfile.
type OpenFunc func(bitfile string) (SoC, error)

type options struct {
	getenv      func(string) string
	board       *string
	firmwareDir string
	fpgaManager string
	machine     string
	docsBuild   *bool
	logger      *log.Logger
	open        OpenFunc
}

// Option configures New.
type Option func(*options)

// WithBoard names the board model instead of the BOARD environment variable.
func WithBoard(name string) Option {
	return func(o *options) { o.board = &name }
}

// WithFirmwareDir sets the directory holding the bitfiles.
func WithFirmwareDir(dir string) Option {
	return func(o *options) { o.firmwareDir = dir }
}

// WithFPGAManager sets the FPGA manager node probed by the hardware driver.
func WithFPGAManager(path string) Option {
	return func(o *options) { o.fpgaManager = path }
}

// WithMachine replaces the detected machine identifier.
func WithMachine(machine string) Option {
	return func(o *options) { o.machine = machine }
}

// WithDocsBuild sets the documentation-build flag instead of READTHEDOCS.
func WithDocsBuild(docs bool) Option {
	return func(o *options) { o.docsBuild = &docs }
}

// WithLogger sets the logger for selection diagnostics.
func WithLogger(logger *log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithOpen replaces the hardware driver constructor.
func WithOpen(open OpenFunc) Option {
	return func(o *options) { o.open = open }
}

// WithGetenv replaces os.Getenv for the environment signals.
func WithGetenv(getenv func(string) string) Option {
	return func(o *options) { o.getenv = getenv }
}

func newOptions(opts []Option) *options {
	o := &options{getenv: os.Getenv}
	for _, opt := range opts {
		opt(o)
	}
	if o.board == nil {
		b := o.getenv(board.Env)
		o.board = &b
	}
	if o.docsBuild == nil {
		docs := o.getenv("READTHEDOCS") == "True"
		o.docsBuild = &docs
	}
	if o.firmwareDir == "" {
		o.firmwareDir = o.getenv("QICK_FIRMWARE_DIR")
	}
	if o.firmwareDir == "" {
		o.firmwareDir = DefaultFirmwareDir
	}
	if o.logger == nil {
		o.logger = logging.Discard()
	}
	if o.open == nil {
		manager := o.fpgaManager
		o.open = func(bitfile string) (SoC, error) {
			s, err := hardware.Open(hardware.Options{Bitfile: bitfile, FPGAManager: manager})
			if err != nil {
				return nil, err
			}
			return s, nil
		}
	}
	return o
}

// Handle owns the implementation bound for the process. It is immutable after
// New and safe for concurrent use.
type Handle struct {
	binding  platform.Binding
	bitfile  string
	registry *remote.Registry
}

// New detects the platform and binds exactly one implementation.
//
// An unknown board name is a fatal configuration error, as is a missing board
// name on the board itself. A hardware driver that fails to initialize leaves
// the handle unbound; SoC then reports ErrUnavailable. Documentation builds
// never fail here.
func New(opts ...Option) (*Handle, error) {
	o := newOptions(opts)
	env := platform.CurrentEnv(o.machine, *o.docsBuild)
	mode := platform.Detect(env)

	if *o.board != "" {
		if _, err := board.Firmware(*o.board); err != nil && !env.DocsBuild {
			return nil, err
		}
	}

	h := &Handle{}
	var open platform.OpenFunc
	if mode == HardwarePresent {
		bitfile, err := BitfilePath(*o.board, o.firmwareDir)
		switch {
		case err != nil && !env.DocsBuild:
			return nil, err
		case err != nil:
			open = func() (soc.SoC, error) { return nil, err }
		default:
			h.bitfile = bitfile
			open = func() (soc.SoC, error) { return o.open(bitfile) }
		}
	}

	h.binding = platform.Bind(mode, open, o.logger)
	h.registry = remote.NewRegistry(h.binding.Impl, o.logger)
	return h, nil
}

// Mode reports the detected platform mode.
func (h *Handle) Mode() Mode {
	return h.binding.Mode
}

// State reports which implementation is bound.
func (h *Handle) State() State {
	return h.binding.State()
}

// SoC returns the bound implementation, or an error wrapping ErrUnavailable
// and the initialization cause when none is bound.
func (h *Handle) SoC() (SoC, error) {
	if h.binding.Impl == nil {
		if h.binding.Cause == nil {
			return nil, ErrUnavailable
		}
		return nil, &soc.InitError{Cause: h.binding.Cause}
	}
	return h.binding.Impl, nil
}

// Cause returns why the hardware driver could not be bound, if it was not.
func (h *Handle) Cause() error {
	return h.binding.Cause
}

// Bitfile returns the firmware path chosen on a board, or "" on a host.
func (h *Handle) Bitfile() string {
	return h.bitfile
}

// Registry returns the operations the bound implementation exposes to remote
// clients. It is empty when nothing is bound.
func (h *Handle) Registry() *remote.Registry {
	return h.registry
}

// NewConfig builds the conversion-only view of a board from its snapshot,
// typically one fetched from a remote board with get_cfg. On a host without
// hardware support the stand-in view is returned and the snapshot is ignored.
func (h *Handle) NewConfig(snap Snapshot) (SoC, error) {
	if h.Mode() == HardwareAbsent {
		return standin.NewConfig(snap), nil
	}
	cfg, err := hardware.NewConfig(snap)
	if err != nil {
		return nil, fmt.Errorf("board config: %w", err)
	}
	return cfg, nil
}

func (h *Handle) String() string {
	return fmt.Sprintf("qick %s (%s, %s)", Version, h.Mode(), h.State())
}
