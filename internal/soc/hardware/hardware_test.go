package hardware

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/qick-go/qick/internal/soc"
	"github.com/qick-go/qick/internal/soc/soctest"
)

const testDescriptor = `
board: ZCU216
fw_timestamp: "2024-01-01"
tproc:
  f_time: 400
gens:
  - {fs: 256, b_dds: 8, f_fabric: 250}
  - {fs: 9830.4, b_dds: 32, f_fabric: 614.4}
readouts:
  - {fs: 512, b_dds: 8, f_fabric: 500}
`

// installBoard lays out an FPGA manager node, a bitfile and its descriptor.
func installBoard(t *testing.T, descriptor string) Options {
	t.Helper()
	dir := t.TempDir()

	fpga := filepath.Join(dir, "state")
	if err := os.WriteFile(fpga, []byte("operating\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	bit := filepath.Join(dir, "qick_216.bit")
	if err := os.WriteFile(bit, []byte{0xff}, 0o644); err != nil {
		t.Fatal(err)
	}
	if descriptor != "" {
		if err := os.WriteFile(filepath.Join(dir, "qick_216.yaml"), []byte(descriptor), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return Options{Bitfile: bit, FPGAManager: fpga}
}

func openTestSoC(t *testing.T) *SoC {
	t.Helper()
	s, err := Open(installBoard(t, testDescriptor))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return s
}

func TestHardwareConformance(t *testing.T) {
	opts := installBoard(t, testDescriptor)
	soctest.RunConformance(t, func() soc.SoC {
		s, err := Open(opts)
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		return s
	}, soctest.Capabilities{
		Name:              "hardware",
		ClockMHz:          400,
		IdentityFrequency: true,
		Exposed:           []string{soc.OpGetConfig, soc.OpAdjustFreq, soc.OpUsToCycles, soc.OpCyclesToUs},
		ChannelClocks: []soctest.ChannelClock{
			{Opts: []soc.ChannelOption{soc.WithGen(0)}, ClockMHz: 250},
			{Opts: []soc.ChannelOption{soc.WithGen(1)}, ClockMHz: 614.4},
			{Opts: []soc.ChannelOption{soc.WithReadout(0)}, ClockMHz: 500},
			{Opts: []soc.ChannelOption{soc.WithGen(1), soc.WithReadout(0)}, ClockMHz: 500},
		},
	})
}

func TestOpenFailures(t *testing.T) {
	t.Run("missing fpga manager", func(t *testing.T) {
		opts := installBoard(t, testDescriptor)
		opts.FPGAManager = filepath.Join(t.TempDir(), "absent")
		if _, err := Open(opts); !errors.Is(err, ErrNoFPGA) {
			t.Errorf("expected ErrNoFPGA, got %v", err)
		}
	})

	t.Run("missing bitfile", func(t *testing.T) {
		opts := installBoard(t, testDescriptor)
		opts.Bitfile = filepath.Join(filepath.Dir(opts.Bitfile), "qick_111.bit")
		if _, err := Open(opts); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected os.ErrNotExist, got %v", err)
		}
	})

	t.Run("missing descriptor", func(t *testing.T) {
		opts := installBoard(t, "")
		_, err := Open(opts)
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("expected os.ErrNotExist, got %v", err)
		}
	})

	t.Run("invalid descriptor", func(t *testing.T) {
		opts := installBoard(t, "tproc:\n  f_time: 0\n")
		_, err := Open(opts)
		if err == nil || !strings.Contains(err.Error(), "f_time") {
			t.Errorf("expected f_time validation error, got %v", err)
		}
	})
}

func TestAdjustFrequency(t *testing.T) {
	s := openTestSoC(t)

	tests := []struct {
		name string
		f    float64
		opts []soc.ChannelOption
		want float64
	}{
		{name: "no channel is identity", f: 10.4, want: 10.4},
		{name: "gen step 1 MHz", f: 10.4, opts: []soc.ChannelOption{soc.WithGen(0)}, want: 10},
		{name: "gen rounds to nearest step", f: 10.6, opts: []soc.ChannelOption{soc.WithGen(0)}, want: 11},
		{name: "readout step 2 MHz", f: 11.2, opts: []soc.ChannelOption{soc.WithReadout(0)}, want: 12},
		{name: "common step of gen and readout", f: 10.9, opts: []soc.ChannelOption{soc.WithGen(0), soc.WithReadout(0)}, want: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.AdjustFrequency(tt.f, tt.opts...); got != tt.want {
				t.Errorf("AdjustFrequency(%v) = %v, want %v", tt.f, got, tt.want)
			}
		})
	}
}

func TestAdjustFrequencyFineStep(t *testing.T) {
	s := openTestSoC(t)
	step := 9830.4 / math.Pow(2, 32)

	for _, f := range []float64{100, 1234.5678, 4321.000001} {
		got := s.AdjustFrequency(f, soc.WithGen(1))
		if math.Abs(got-f) > step/2+1e-9 {
			t.Errorf("AdjustFrequency(%v) = %v, off by more than half a step (%v)", f, got, step)
		}
		if n := got / step; math.Abs(n-math.Round(n)) > 1e-3 {
			t.Errorf("AdjustFrequency(%v) = %v is not a multiple of the DDS step", f, got)
		}
	}
}

func TestInvalidChannelPanics(t *testing.T) {
	s := openTestSoC(t)

	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, soc.ErrInvalidChannel) {
			t.Fatalf("expected ErrInvalidChannel panic, got %v", r)
		}
	}()
	s.UsToCycles(1, soc.WithGen(7))
}

func TestCheckChannels(t *testing.T) {
	s := openTestSoC(t)

	if err := s.CheckChannels(soc.ResolveChannels(soc.WithGen(1), soc.WithReadout(0))); err != nil {
		t.Errorf("expected valid channels, got %v", err)
	}
	if err := s.CheckChannels(soc.ResolveChannels(soc.WithReadout(1))); !errors.Is(err, soc.ErrInvalidChannel) {
		t.Errorf("expected ErrInvalidChannel, got %v", err)
	}
	if err := s.CheckChannels(soc.ResolveChannels(soc.WithGen(-1))); !errors.Is(err, soc.ErrInvalidChannel) {
		t.Errorf("expected ErrInvalidChannel for negative index, got %v", err)
	}
}

func TestGetConfigSnapshot(t *testing.T) {
	s := openTestSoC(t)
	snap := s.GetConfig()

	if snap["board"] != "ZCU216" {
		t.Errorf("expected board ZCU216, got %v", snap["board"])
	}
	if gens, ok := snap["gens"].([]any); !ok || len(gens) != 2 {
		t.Errorf("expected 2 gens, got %v", snap["gens"])
	}
	if snap["fw_timestamp"] != "2024-01-01" {
		t.Errorf("expected fw_timestamp, got %v", snap["fw_timestamp"])
	}
}

func TestNewConfigFromRemoteSnapshot(t *testing.T) {
	s := openTestSoC(t)

	// Simulate the snapshot crossing the wire.
	data, err := json.Marshal(s.GetConfig())
	if err != nil {
		t.Fatal(err)
	}
	var snap soc.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewConfig(snap)
	if err != nil {
		t.Fatalf("NewConfig failed: %v", err)
	}
	if got, want := cfg.UsToCycles(10, soc.WithGen(0)), s.UsToCycles(10, soc.WithGen(0)); got != want {
		t.Errorf("mirror UsToCycles = %d, board = %d", got, want)
	}
	if got, want := cfg.AdjustFrequency(11.2, soc.WithReadout(0)), s.AdjustFrequency(11.2, soc.WithReadout(0)); got != want {
		t.Errorf("mirror AdjustFrequency = %v, board = %v", got, want)
	}
	if !strings.Contains(cfg.String(), "ZCU216") {
		t.Errorf("String() = %q", cfg.String())
	}
	if soc.ExposedOf(cfg) != nil {
		t.Error("expected Config to expose nothing")
	}
}

func TestNewConfigRejectsEmptySnapshot(t *testing.T) {
	if _, err := NewConfig(soc.Snapshot{}); err == nil {
		t.Error("expected error for empty snapshot")
	}
}
