// Package units converts between board time (microseconds) and clock cycles.
//
// Forward conversion truncates toward zero; the reverse conversion is a plain
// floating-point division. A round trip is exact only when us*clock is already
// an integer.
package units

// StandinClock is the clock used when no hardware is present: 1000 cycles per
// microsecond, i.e. a 1 GHz reference.
const StandinClock = 1000.0

// Converter converts with a fixed clock expressed in cycles per microsecond
// (equivalently, MHz).
type Converter struct {
	CyclesPerUs float64
}

// New returns a converter for the given clock in MHz.
func New(mhz float64) Converter {
	return Converter{CyclesPerUs: mhz}
}

// UsToCycles converts a duration in microseconds to an integer cycle count.
func (c Converter) UsToCycles(us float64) int {
	return int(us * c.CyclesPerUs)
}

// UsToCyclesBulk converts element-wise; the result has len(us) elements.
func (c Converter) UsToCyclesBulk(us []float64) []int {
	if us == nil {
		return nil
	}
	out := make([]int, len(us))
	for i, v := range us {
		out[i] = c.UsToCycles(v)
	}
	return out
}

// CyclesToUs converts a cycle count to microseconds.
func (c Converter) CyclesToUs(cycles int) float64 {
	return float64(cycles) / c.CyclesPerUs
}

// CyclesToUsBulk converts element-wise; the result has len(cycles) elements.
func (c Converter) CyclesToUsBulk(cycles []int) []float64 {
	if cycles == nil {
		return nil
	}
	out := make([]float64, len(cycles))
	for i, v := range cycles {
		out[i] = c.CyclesToUs(v)
	}
	return out
}
