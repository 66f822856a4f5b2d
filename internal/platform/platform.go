// Package platform decides, once per process, whether the board is present and
// binds the matching implementation of the capability set.
package platform

import (
	"fmt"
	"log"

	"github.com/qick-go/qick/internal/logging"
	"github.com/qick-go/qick/internal/soc"
	"github.com/qick-go/qick/internal/soc/standin"
)

// Mode classifies the process.
type Mode int

const (
	HardwareAbsent Mode = iota
	HardwarePresent
)

func (m Mode) String() string {
	if m == HardwarePresent {
		return "hardware-present"
	}
	return "hardware-absent"
}

// boardMachines are the machine identifiers of the boards' application
// processors.
var boardMachines = map[string]bool{
	"aarch64": true,
	"armv7l":  true,
}

// Env holds the inputs of detection.
type Env struct {
	Machine   string
	DocsBuild bool
}

// CurrentEnv returns the running process's environment. A non-empty machine
// replaces the detected identifier.
func CurrentEnv(machine string, docsBuild bool) Env {
	if machine == "" {
		machine = Machine()
	}
	return Env{Machine: machine, DocsBuild: docsBuild}
}

// Detect classifies env. Documentation builds take the hardware branch so the
// driver's surface is visible, even though it cannot initialize there.
func Detect(env Env) Mode {
	if boardMachines[env.Machine] || env.DocsBuild {
		return HardwarePresent
	}
	return HardwareAbsent
}

// State is the outcome of binding.
type State int

const (
	StateUnbound State = iota
	StateHardwareBound
	StateStandinBound
)

func (s State) String() string {
	switch s {
	case StateHardwareBound:
		return "hardware-bound"
	case StateStandinBound:
		return "standin-bound"
	default:
		return "unbound"
	}
}

// OpenFunc constructs the hardware implementation.
type OpenFunc func() (soc.SoC, error)

// Binding is the result of Bind. It is never modified afterwards.
type Binding struct {
	Mode  Mode
	Impl  soc.SoC
	Cause error
	state State
}

// State reports which implementation, if any, is bound.
func (b Binding) State() State {
	return b.state
}

// Select detects the mode from env and binds accordingly.
func Select(env Env, open OpenFunc, logger *log.Logger) Binding {
	return Bind(Detect(env), open, logger)
}

// Bind constructs exactly one implementation for mode. A failing or panicking
// open leaves the binding unbound with the failure kept as Cause; the stand-in
// path cannot fail. A nil logger discards.
func Bind(mode Mode, open OpenFunc, logger *log.Logger) Binding {
	if logger == nil {
		logger = logging.Discard()
	}
	if mode == HardwareAbsent {
		logger.Printf("platform: %s, binding stand-in", mode)
		return Binding{Mode: mode, Impl: standin.New(), state: StateStandinBound}
	}

	impl, err := safeOpen(open)
	if err != nil {
		logger.Printf("platform: %s, could not initialize hardware driver: %v", mode, err)
		return Binding{Mode: mode, Cause: err, state: StateUnbound}
	}
	logger.Printf("platform: %s, hardware driver bound", mode)
	return Binding{Mode: mode, Impl: impl, state: StateHardwareBound}
}

func safeOpen(open OpenFunc) (impl soc.SoC, err error) {
	if open == nil {
		return nil, fmt.Errorf("no hardware driver configured")
	}
	defer func() {
		if r := recover(); r != nil {
			impl, err = nil, fmt.Errorf("hardware driver panicked: %v", r)
		}
	}()
	impl, err = open()
	if err == nil && impl == nil {
		err = fmt.Errorf("hardware driver returned no implementation")
	}
	return impl, err
}
