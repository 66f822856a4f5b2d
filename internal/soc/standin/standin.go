// Package standin provides the implementation of the capability set used when
// no board is present: documentation builds, host-side development, tests.
//
// It holds no mutable state and every operation is total.
package standin

import (
	"github.com/qick-go/qick/internal/soc"
	"github.com/qick-go/qick/units"
)

var conv = units.New(units.StandinClock)

// SoC stands in for the hardware driver.
type SoC struct{}

// New returns the stand-in SoC.
func New() *SoC {
	return &SoC{}
}

// Exposed marks the operations remote clients may call.
func (*SoC) Exposed() []string {
	return []string{soc.OpGetConfig}
}

// GetConfig always returns a fresh empty snapshot.
func (*SoC) GetConfig() soc.Snapshot {
	return soc.Snapshot{}
}

// AdjustFrequency returns f unchanged; there is no DDS to quantize against.
func (*SoC) AdjustFrequency(f float64, _ ...soc.ChannelOption) float64 {
	return f
}

func (*SoC) UsToCycles(us float64, _ ...soc.ChannelOption) int {
	return conv.UsToCycles(us)
}

func (*SoC) UsToCyclesBulk(us []float64, _ ...soc.ChannelOption) []int {
	return conv.UsToCyclesBulk(us)
}

func (*SoC) CyclesToUs(cycles int, _ ...soc.ChannelOption) float64 {
	return conv.CyclesToUs(cycles)
}

func (*SoC) CyclesToUsBulk(cycles []int, _ ...soc.ChannelOption) []float64 {
	return conv.CyclesToUsBulk(cycles)
}

// Config is the host-side configuration mirror used without hardware. It
// ignores the snapshot it is built from.
type Config struct {
	SoC
}

// NewConfig returns a stand-in Config.
func NewConfig(soc.Snapshot) *Config {
	return &Config{}
}

func (*Config) String() string {
	return "Dummy QickConfig"
}

// Exposed returns nil: a Config is never served remotely.
func (*Config) Exposed() []string {
	return nil
}
