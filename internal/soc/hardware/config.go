package hardware

import (
	"fmt"
	"math"
	"math/big"

	"github.com/qick-go/qick/internal/soc"
	"github.com/qick-go/qick/units"
)

// Config answers the capability set from a descriptor alone. It backs the
// on-board SoC and serves as the host-side mirror of a remote board's
// configuration.
//
// Operations panic if a channel option names a channel the board does not
// have; callers handling untrusted input should use CheckChannels first.
type Config struct {
	desc *Descriptor
}

// NewConfig builds a Config from a snapshot, typically obtained from a remote
// board's get_cfg.
func NewConfig(snap soc.Snapshot) (*Config, error) {
	d, err := descriptorFromSnapshot(snap)
	if err != nil {
		return nil, err
	}
	return &Config{desc: d}, nil
}

func newConfig(d *Descriptor) *Config {
	return &Config{desc: d}
}

func (c *Config) String() string {
	return fmt.Sprintf("QickConfig(%s: %d gens, %d readouts, tproc %.2f MHz)",
		c.desc.Board, len(c.desc.Gens), len(c.desc.Readouts), c.desc.TProc.FTime)
}

// Descriptor returns the descriptor c was built from.
func (c *Config) Descriptor() *Descriptor {
	return c.desc
}

// CheckChannels reports whether every selected channel exists.
func (c *Config) CheckChannels(ch soc.Channels) error {
	if ch.Gen != nil && (*ch.Gen < 0 || *ch.Gen >= len(c.desc.Gens)) {
		return fmt.Errorf("%w: gen %d (board has %d)", soc.ErrInvalidChannel, *ch.Gen, len(c.desc.Gens))
	}
	if ch.Readout != nil && (*ch.Readout < 0 || *ch.Readout >= len(c.desc.Readouts)) {
		return fmt.Errorf("%w: readout %d (board has %d)", soc.ErrInvalidChannel, *ch.Readout, len(c.desc.Readouts))
	}
	return nil
}

func (c *Config) mustChannels(opts []soc.ChannelOption) soc.Channels {
	ch := soc.ResolveChannels(opts...)
	if err := c.CheckChannels(ch); err != nil {
		panic(err)
	}
	return ch
}

// GetConfig returns a fresh snapshot of the descriptor.
func (c *Config) GetConfig() soc.Snapshot {
	return c.desc.Snapshot()
}

// converter picks the clock for a selection: readout fabric, then generator
// fabric, then the timed processor.
func (c *Config) converter(ch soc.Channels) units.Converter {
	switch {
	case ch.Readout != nil:
		return units.New(c.desc.Readouts[*ch.Readout].FFabric)
	case ch.Gen != nil:
		return units.New(c.desc.Gens[*ch.Gen].FFabric)
	default:
		return units.New(c.desc.TProc.FTime)
	}
}

func (c *Config) UsToCycles(us float64, opts ...soc.ChannelOption) int {
	return c.converter(c.mustChannels(opts)).UsToCycles(us)
}

func (c *Config) UsToCyclesBulk(us []float64, opts ...soc.ChannelOption) []int {
	return c.converter(c.mustChannels(opts)).UsToCyclesBulk(us)
}

func (c *Config) CyclesToUs(cycles int, opts ...soc.ChannelOption) float64 {
	return c.converter(c.mustChannels(opts)).CyclesToUs(cycles)
}

func (c *Config) CyclesToUsBulk(cycles []int, opts ...soc.ChannelOption) []float64 {
	return c.converter(c.mustChannels(opts)).CyclesToUsBulk(cycles)
}

// AdjustFrequency rounds f to the nearest frequency every selected channel can
// produce. With no channel selected f is returned unchanged.
func (c *Config) AdjustFrequency(f float64, opts ...soc.ChannelOption) float64 {
	ch := c.mustChannels(opts)
	var steps []Channel
	if ch.Gen != nil {
		steps = append(steps, c.desc.Gens[*ch.Gen])
	}
	if ch.Readout != nil {
		steps = append(steps, c.desc.Readouts[*ch.Readout])
	}
	if len(steps) == 0 {
		return f
	}
	step := commonStep(steps)
	return math.Round(f/step) * step
}

// commonStep returns the smallest frequency (MHz) that is an integer multiple
// of the DDS step fs/2^b_dds of every channel. Sampling rates are taken with
// kHz precision so the least common multiple is computed on exact rationals.
func commonStep(chs []Channel) float64 {
	var num, den *big.Int
	for _, ch := range chs {
		r := new(big.Rat).SetFrac(
			big.NewInt(int64(math.Round(ch.FS*1000))),
			new(big.Int).Lsh(big.NewInt(1), uint(ch.BDDS)),
		)
		if num == nil {
			num, den = new(big.Int).Set(r.Num()), new(big.Int).Set(r.Denom())
			continue
		}
		num = lcm(num, r.Num())
		den = new(big.Int).GCD(nil, nil, den, r.Denom())
	}
	step, _ := new(big.Rat).SetFrac(num, den).Float64()
	return step / 1000
}

func lcm(a, b *big.Int) *big.Int {
	g := new(big.Int).GCD(nil, nil, a, b)
	out := new(big.Int).Mul(a, b)
	return out.Div(out, g)
}
