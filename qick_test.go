package qick

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"testing"

	"github.com/qick-go/qick/internal/soc"
	"github.com/qick-go/qick/internal/soc/hardware"
	"github.com/qick-go/qick/internal/soc/standin"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

// fakeBoard records the bitfile it was opened with.
type fakeBoard struct {
	*standin.SoC
	bitfile string
}

func (fakeBoard) Exposed() []string {
	return []string{soc.OpGetConfig, soc.OpUsToCycles}
}

func TestVersion(t *testing.T) {
	if !regexp.MustCompile(`^\d+\.\d+\.\d+$`).MatchString(Version) {
		t.Errorf("Version = %q, want major.minor.PR", Version)
	}
	v, err := ReadVersion("VERSION")
	if err != nil {
		t.Fatalf("ReadVersion failed: %v", err)
	}
	if v != Version {
		t.Errorf("ReadVersion = %q, embedded %q", v, Version)
	}
}

func TestReadVersionMissing(t *testing.T) {
	_, err := ReadVersion(filepath.Join(t.TempDir(), "VERSION"))
	if !errors.Is(err, ErrVersionMissing) {
		t.Errorf("error = %v, want ErrVersionMissing", err)
	}
}

func TestReadVersionTrims(t *testing.T) {
	path := filepath.Join(t.TempDir(), "VERSION")
	if err := os.WriteFile(path, []byte("  1.2.3\n\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if v, err := ReadVersion(path); err != nil || v != "1.2.3" {
		t.Errorf("ReadVersion = %q, %v", v, err)
	}
}

func TestBitfilePath(t *testing.T) {
	path, err := BitfilePath("ZCU216", "/opt/qick/firmware")
	if err != nil {
		t.Fatalf("BitfilePath failed: %v", err)
	}
	if !strings.HasSuffix(path, "qick_216.bit") || !filepath.IsAbs(path) {
		t.Errorf("path = %q", path)
	}

	_, err = BitfilePath("ZCU999", "/opt/qick/firmware")
	if !errors.Is(err, ErrUnknownBoard) {
		t.Errorf("error = %v, want ErrUnknownBoard", err)
	}
	var be *BoardError
	if !errors.As(err, &be) || be.Board != "ZCU999" {
		t.Errorf("expected *BoardError for ZCU999, got %v", err)
	}
}

func TestBitfilePathFromEnv(t *testing.T) {
	t.Setenv("BOARD", "RFSoC4x2")
	path, err := BitfilePathFromEnv(t.TempDir())
	if err != nil || !strings.HasSuffix(path, "qick_4x2.bit") {
		t.Errorf("BitfilePathFromEnv = %q, %v", path, err)
	}

	t.Setenv("BOARD", "")
	if _, err := BitfilePathFromEnv(t.TempDir()); !errors.Is(err, ErrNoBoard) {
		t.Errorf("error = %v, want ErrNoBoard", err)
	}
}

func TestBoards(t *testing.T) {
	want := []string{"RFSoC4x2", "ZCU111", "ZCU216"}
	if got := Boards(); !reflect.DeepEqual(got, want) {
		t.Errorf("Boards() = %v, want %v", got, want)
	}
}

func TestNewOnHost(t *testing.T) {
	opened := false
	h, err := New(
		WithGetenv(envMap(nil)),
		WithMachine("x86_64"),
		WithOpen(func(string) (SoC, error) { opened = true; return nil, nil }),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if opened {
		t.Error("hardware driver opened on a host")
	}
	if h.Mode() != HardwareAbsent || h.State() != StateStandinBound {
		t.Errorf("mode %v, state %v", h.Mode(), h.State())
	}
	if h.Bitfile() != "" {
		t.Errorf("Bitfile() = %q on a host", h.Bitfile())
	}

	s, err := h.SoC()
	if err != nil {
		t.Fatalf("SoC failed: %v", err)
	}
	if got := s.UsToCycles(1.5); got != 1500 {
		t.Errorf("UsToCycles(1.5) = %d, want 1500", got)
	}
	if got := s.CyclesToUsBulk([]int{1000, 2500}); !reflect.DeepEqual(got, []float64{1, 2.5}) {
		t.Errorf("CyclesToUsBulk = %v", got)
	}
	if got := s.AdjustFrequency(123.456, WithGen(0)); got != 123.456 {
		t.Errorf("AdjustFrequency = %v", got)
	}
	if names := h.Registry().Names(); !reflect.DeepEqual(names, []string{soc.OpGetConfig}) {
		t.Errorf("exposed = %v, want [get_cfg]", names)
	}
	if !strings.Contains(h.String(), Version) {
		t.Errorf("String() = %q", h.String())
	}
}

func TestNewOnBoard(t *testing.T) {
	dir := t.TempDir()
	var board *fakeBoard
	h, err := New(
		WithGetenv(envMap(map[string]string{"BOARD": "ZCU216", "QICK_FIRMWARE_DIR": dir})),
		WithMachine("aarch64"),
		WithOpen(func(bitfile string) (SoC, error) {
			board = &fakeBoard{SoC: standin.New(), bitfile: bitfile}
			return board, nil
		}),
	)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if h.Mode() != HardwarePresent || h.State() != StateHardwareBound {
		t.Fatalf("mode %v, state %v", h.Mode(), h.State())
	}
	if want := filepath.Join(dir, "qick_216.bit"); board.bitfile != want || h.Bitfile() != want {
		t.Errorf("bitfile = %q, want %q", board.bitfile, want)
	}
	s, err := h.SoC()
	if err != nil || s != board {
		t.Errorf("SoC() = %v, %v", s, err)
	}
	if names := h.Registry().Names(); !reflect.DeepEqual(names, []string{soc.OpGetConfig, soc.OpUsToCycles}) {
		t.Errorf("exposed = %v", names)
	}
}

func TestNewOnBoardDriverFailure(t *testing.T) {
	cause := errors.New("fpga manager busy")
	h, err := New(
		WithGetenv(envMap(nil)),
		WithBoard("ZCU111"),
		WithMachine("armv7l"),
		WithOpen(func(string) (SoC, error) { return nil, cause }),
	)
	if err != nil {
		t.Fatalf("New must not fail on driver error: %v", err)
	}
	if h.State() != StateUnbound {
		t.Errorf("state = %v, want unbound", h.State())
	}
	if !errors.Is(h.Cause(), cause) {
		t.Errorf("Cause() = %v", h.Cause())
	}

	s, err := h.SoC()
	if s != nil {
		t.Error("expected no implementation")
	}
	if !errors.Is(err, ErrUnavailable) || !errors.Is(err, cause) {
		t.Errorf("SoC() error = %v, want ErrUnavailable wrapping cause", err)
	}
	if names := h.Registry().Names(); len(names) != 0 {
		t.Errorf("exposed = %v, want none", names)
	}
}

func TestNewFatalBoardErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		machine string
		want    error
	}{
		{"unknown board on board", map[string]string{"BOARD": "ZCU999"}, "aarch64", ErrUnknownBoard},
		{"unknown board on host", map[string]string{"BOARD": "ZCU999"}, "x86_64", ErrUnknownBoard},
		{"missing board on board", nil, "aarch64", ErrNoBoard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(WithGetenv(envMap(tt.env)), WithMachine(tt.machine))
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNewDocsBuild(t *testing.T) {
	h, err := New(
		WithGetenv(envMap(map[string]string{"READTHEDOCS": "True"})),
		WithMachine("x86_64"),
	)
	if err != nil {
		t.Fatalf("docs build must not fail: %v", err)
	}
	if h.Mode() != HardwarePresent || h.State() != StateUnbound {
		t.Errorf("mode %v, state %v", h.Mode(), h.State())
	}
	if !errors.Is(h.Cause(), ErrNoBoard) {
		t.Errorf("Cause() = %v, want ErrNoBoard", h.Cause())
	}

	// Any other value leaves the host on the stand-in.
	h, err = New(WithGetenv(envMap(map[string]string{"READTHEDOCS": "true"})), WithMachine("x86_64"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if h.State() != StateStandinBound {
		t.Errorf("READTHEDOCS=true: state %v, want stand-in", h.State())
	}
}

func TestNewConfig(t *testing.T) {
	host, err := New(WithGetenv(envMap(nil)), WithMachine("x86_64"))
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := host.NewConfig(Snapshot{"board": "ZCU216"})
	if err != nil {
		t.Fatalf("NewConfig failed: %v", err)
	}
	if got := cfg.UsToCycles(2); got != 2000 {
		t.Errorf("host UsToCycles(2) = %d, want 2000", got)
	}

	d, err := hardware.ParseDescriptor([]byte(`
board: ZCU216
tproc: {f_time: 430.08}
gens: [{fs: 9830.4, b_dds: 32, f_fabric: 614.4}]
readouts: [{fs: 2457.6, b_dds: 32, f_fabric: 307.2}]
`))
	if err != nil {
		t.Fatal(err)
	}
	board, err := New(
		WithGetenv(envMap(nil)),
		WithBoard("ZCU216"),
		WithMachine("aarch64"),
		WithOpen(func(string) (SoC, error) { return nil, errors.New("not on a board") }),
	)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err = board.NewConfig(d.Snapshot())
	if err != nil {
		t.Fatalf("NewConfig failed: %v", err)
	}
	if got := cfg.UsToCycles(1, WithReadout(0)); got != 307 {
		t.Errorf("board UsToCycles(1, ro 0) = %d, want 307", got)
	}
	if _, err := board.NewConfig(Snapshot{}); err == nil {
		t.Error("expected error for empty snapshot on a board")
	}
}
