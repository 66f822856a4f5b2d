// Package soc defines the capability set every board implementation satisfies,
// whether it drives real hardware or stands in for it on a host.
package soc

// Snapshot is a board configuration: keys to opaque values.
type Snapshot map[string]any

// SoC is the capability set shared by the hardware driver and the stand-in.
//
// Conversions come in scalar and bulk pairs; bulk results always have the
// length of their input and are computed element-wise like the scalar form.
type SoC interface {
	// GetConfig returns a best-effort configuration snapshot. It never fails.
	GetConfig() Snapshot

	// AdjustFrequency returns the frequency (MHz) closest to f that the
	// selected channels can actually produce.
	AdjustFrequency(f float64, opts ...ChannelOption) float64

	// UsToCycles converts microseconds to clock cycles, truncating toward zero.
	UsToCycles(us float64, opts ...ChannelOption) int
	UsToCyclesBulk(us []float64, opts ...ChannelOption) []int

	// CyclesToUs converts clock cycles to microseconds.
	CyclesToUs(cycles int, opts ...ChannelOption) float64
	CyclesToUsBulk(cycles []int, opts ...ChannelOption) []float64
}

// Exposer is implemented by SoCs that mark operations as callable by remote
// clients. The list is static for the lifetime of the implementation.
type Exposer interface {
	Exposed() []string
}

// Operation names used by remote callers.
const (
	OpGetConfig  = "get_cfg"
	OpAdjustFreq = "adcfreq"
	OpUsToCycles = "us2cycles"
	OpCyclesToUs = "cycles2us"
)

// Operations lists every operation of the capability set by remote name.
var Operations = []string{OpGetConfig, OpAdjustFreq, OpUsToCycles, OpCyclesToUs}

// ExposedOf returns the operations s marks as remote-callable, or nil if s
// does not implement Exposer.
func ExposedOf(s SoC) []string {
	e, ok := s.(Exposer)
	if !ok {
		return nil
	}
	return e.Exposed()
}
