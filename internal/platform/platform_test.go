package platform

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/qick-go/qick/internal/soc"
	"github.com/qick-go/qick/internal/soc/standin"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		env  Env
		want Mode
	}{
		{Env{Machine: "aarch64"}, HardwarePresent},
		{Env{Machine: "armv7l"}, HardwarePresent},
		{Env{Machine: "x86_64"}, HardwareAbsent},
		{Env{Machine: "arm64"}, HardwareAbsent},
		{Env{Machine: ""}, HardwareAbsent},
		{Env{Machine: "x86_64", DocsBuild: true}, HardwarePresent},
	}

	for _, tt := range tests {
		if got := Detect(tt.env); got != tt.want {
			t.Errorf("Detect(%+v) = %v, want %v", tt.env, got, tt.want)
		}
	}
}

func TestCurrentEnvOverride(t *testing.T) {
	env := CurrentEnv("armv7l", false)
	if env.Machine != "armv7l" {
		t.Errorf("expected override, got %q", env.Machine)
	}
	if env := CurrentEnv("", true); env.Machine == "" || !env.DocsBuild {
		t.Errorf("expected detected machine and docs flag, got %+v", env)
	}
}

func TestBindAbsentUsesStandin(t *testing.T) {
	var buf bytes.Buffer
	opened := false
	b := Bind(HardwareAbsent, func() (soc.SoC, error) {
		opened = true
		return nil, nil
	}, log.New(&buf, "", 0))

	if opened {
		t.Error("hardware driver must not be opened on an absent platform")
	}
	if b.State() != StateStandinBound {
		t.Fatalf("expected standin-bound, got %v", b.State())
	}
	if _, ok := b.Impl.(*standin.SoC); !ok {
		t.Errorf("expected stand-in implementation, got %T", b.Impl)
	}
	if len(b.Impl.GetConfig()) != 0 {
		t.Error("expected empty configuration")
	}
}

func TestBindPresentUsesDriver(t *testing.T) {
	driver := standin.New()
	b := Bind(HardwarePresent, func() (soc.SoC, error) { return driver, nil }, log.New(&bytes.Buffer{}, "", 0))

	if b.State() != StateHardwareBound {
		t.Fatalf("expected hardware-bound, got %v", b.State())
	}
	if b.Impl != soc.SoC(driver) {
		t.Error("expected the opened driver to be bound")
	}
}

func TestBindPresentFailureDegrades(t *testing.T) {
	cause := errors.New("no /dev/mem")
	var buf bytes.Buffer

	b := Bind(HardwarePresent, func() (soc.SoC, error) { return nil, cause }, log.New(&buf, "", 0))

	if b.State() != StateUnbound {
		t.Fatalf("expected unbound, got %v", b.State())
	}
	if b.Impl != nil {
		t.Error("expected no implementation")
	}
	if !errors.Is(b.Cause, cause) {
		t.Errorf("expected cause to be kept, got %v", b.Cause)
	}
	if !strings.Contains(buf.String(), "could not initialize hardware driver") {
		t.Errorf("expected diagnostic, got %q", buf.String())
	}
}

func TestBindPresentPanicDegrades(t *testing.T) {
	b := Bind(HardwarePresent, func() (soc.SoC, error) { panic("driver bug") }, log.New(&bytes.Buffer{}, "", 0))

	if b.State() != StateUnbound {
		t.Fatalf("expected unbound, got %v", b.State())
	}
	if b.Cause == nil || !strings.Contains(b.Cause.Error(), "driver bug") {
		t.Errorf("expected panic cause, got %v", b.Cause)
	}
}

func TestBindPresentNilDriver(t *testing.T) {
	for name, open := range map[string]OpenFunc{
		"nil func":           nil,
		"nil implementation": func() (soc.SoC, error) { return nil, nil },
	} {
		t.Run(name, func(t *testing.T) {
			b := Bind(HardwarePresent, open, log.New(&bytes.Buffer{}, "", 0))
			if b.State() != StateUnbound || b.Cause == nil {
				t.Errorf("expected unbound with cause, got %v / %v", b.State(), b.Cause)
			}
		})
	}
}

func TestSelect(t *testing.T) {
	b := Select(Env{Machine: "x86_64"}, nil, log.New(&bytes.Buffer{}, "", 0))
	if b.Mode != HardwareAbsent || b.State() != StateStandinBound {
		t.Errorf("unexpected binding %v/%v", b.Mode, b.State())
	}
}

func TestStrings(t *testing.T) {
	if HardwarePresent.String() != "hardware-present" || HardwareAbsent.String() != "hardware-absent" {
		t.Error("unexpected mode strings")
	}
	if StateUnbound.String() != "unbound" || StateStandinBound.String() != "standin-bound" || StateHardwareBound.String() != "hardware-bound" {
		t.Error("unexpected state strings")
	}
}

func TestBindNilLogger(t *testing.T) {
	if b := Bind(HardwareAbsent, nil, nil); b.State() != StateStandinBound {
		t.Errorf("absent: state %v, want standin-bound", b.State())
	}
	b := Select(Env{Machine: "aarch64"}, func() (soc.SoC, error) {
		return nil, errors.New("no fpga")
	}, nil)
	if b.State() != StateUnbound || b.Cause == nil {
		t.Errorf("present: state %v, cause %v", b.State(), b.Cause)
	}
}
