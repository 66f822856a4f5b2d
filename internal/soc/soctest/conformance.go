// Package soctest provides a conformance suite every soc.SoC implementation
// must pass, so that the hardware driver and the stand-in stay numerically
// interchangeable.
package soctest

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/qick-go/qick/internal/soc"
)

// Capabilities describes what the implementation under test is expected to do.
type Capabilities struct {
	// Name is used in the report.
	Name string

	// ClockMHz is the clock used by conversions with no channel selected.
	ClockMHz float64

	// ChannelClocks maps channel selections to the clock conversions must use.
	ChannelClocks []ChannelClock

	// IdentityFrequency is true when AdjustFrequency must return its input.
	IdentityFrequency bool

	// EmptyConfig is true when GetConfig must always return an empty snapshot.
	EmptyConfig bool

	// Exposed is the exact set of remote-callable operations expected.
	Exposed []string
}

// ChannelClock pairs a channel selection with its expected clock.
type ChannelClock struct {
	Opts     []soc.ChannelOption
	ClockMHz float64
}

// Result is the outcome of a single conformance check.
type Result struct {
	TestName string
	Passed   bool
	Error    string
	Duration time.Duration
}

// Report collects the results of a run.
type Report struct {
	Name          string
	Results       []Result
	PassedTests   int
	FailedTests   int
	OverallPassed bool
}

func (r *Report) add(res Result) {
	r.Results = append(r.Results, res)
	if res.Passed {
		r.PassedTests++
	} else {
		r.FailedTests++
		r.OverallPassed = false
	}
}

type check func(s soc.SoC, caps Capabilities) error

// RunConformance runs every check against a fresh implementation from newSoC.
func RunConformance(t *testing.T, newSoC func() soc.SoC, caps Capabilities) {
	t.Helper()

	report := &Report{Name: caps.Name, OverallPassed: true}
	checks := []struct {
		name string
		fn   check
	}{
		{"GetConfig_Stable", checkGetConfig},
		{"AdjustFrequency", checkAdjustFrequency},
		{"UsToCycles_Truncates", checkUsToCycles},
		{"CyclesToUs_Divides", checkCyclesToUs},
		{"Bulk_ShapeAndElementwise", checkBulk},
		{"RoundTrip_IntegerCycles", checkRoundTrip},
		{"RoundTrip_ExactMicroseconds", checkExactRoundTrip},
		{"ChannelClocks", checkChannelClocks},
		{"Exposed", checkExposed},
	}

	for _, c := range checks {
		start := time.Now()
		err := c.fn(newSoC(), caps)
		res := Result{TestName: c.name, Passed: err == nil, Duration: time.Since(start)}
		if err != nil {
			res.Error = err.Error()
		}
		report.add(res)
	}

	for _, r := range report.Results {
		status := "PASS"
		if !r.Passed {
			status = "FAIL"
		}
		t.Logf("[%s] %s %s %s", caps.Name, status, r.TestName, r.Error)
	}
	if !report.OverallPassed {
		t.Fatalf("%s conformance failed: %d/%d checks passed", caps.Name, report.PassedTests, len(report.Results))
	}
}

func checkGetConfig(s soc.SoC, caps Capabilities) error {
	first := s.GetConfig()
	if first == nil {
		return fmt.Errorf("GetConfig returned nil")
	}
	second := s.GetConfig()
	if len(first) != len(second) {
		return fmt.Errorf("GetConfig not stable: %d then %d keys", len(first), len(second))
	}
	if caps.EmptyConfig && len(first) != 0 {
		return fmt.Errorf("expected empty snapshot, got %d keys", len(first))
	}
	return nil
}

func checkAdjustFrequency(s soc.SoC, caps Capabilities) error {
	for _, f := range []float64{0, 100, 1234.5678, 6000} {
		got := s.AdjustFrequency(f)
		if caps.IdentityFrequency && got != f {
			return fmt.Errorf("AdjustFrequency(%v) = %v, want identity", f, got)
		}
		if math.IsNaN(got) {
			return fmt.Errorf("AdjustFrequency(%v) returned NaN", f)
		}
	}
	return nil
}

func checkUsToCycles(s soc.SoC, caps Capabilities) error {
	for _, us := range []float64{0, 0.25, 1, 1.0005, 7.3, 1000} {
		want := int(math.Floor(us * caps.ClockMHz))
		if got := s.UsToCycles(us); got != want {
			return fmt.Errorf("UsToCycles(%v) = %d, want %d", us, got, want)
		}
	}
	return nil
}

func checkCyclesToUs(s soc.SoC, caps Capabilities) error {
	for _, c := range []int{0, 1, 999, 1000, 43008} {
		want := float64(c) / caps.ClockMHz
		if got := s.CyclesToUs(c); got != want {
			return fmt.Errorf("CyclesToUs(%d) = %v, want %v", c, got, want)
		}
	}
	return nil
}

func checkBulk(s soc.SoC, _ Capabilities) error {
	us := []float64{0, 0.5, 2.25, 9.9999}
	cycles := s.UsToCyclesBulk(us)
	if len(cycles) != len(us) {
		return fmt.Errorf("UsToCyclesBulk length %d, want %d", len(cycles), len(us))
	}
	for i := range us {
		if cycles[i] != s.UsToCycles(us[i]) {
			return fmt.Errorf("UsToCyclesBulk[%d] = %d, scalar %d", i, cycles[i], s.UsToCycles(us[i]))
		}
	}
	back := s.CyclesToUsBulk(cycles)
	if len(back) != len(cycles) {
		return fmt.Errorf("CyclesToUsBulk length %d, want %d", len(back), len(cycles))
	}
	for i := range cycles {
		if back[i] != s.CyclesToUs(cycles[i]) {
			return fmt.Errorf("CyclesToUsBulk[%d] = %v, scalar %v", i, back[i], s.CyclesToUs(cycles[i]))
		}
	}
	return nil
}

func checkRoundTrip(s soc.SoC, caps Capabilities) error {
	for _, c := range []int{0, 1, 500, 1000, 123456} {
		us := s.CyclesToUs(c)
		if got := s.UsToCycles(us); got != c && math.Abs(float64(got-c)) > 1 {
			return fmt.Errorf("round trip of %d cycles gave %d", c, got)
		}
	}
	return nil
}

// checkExactRoundTrip converts microseconds to cycles and back; whenever
// us*clock is exactly an integer the result must equal us.
func checkExactRoundTrip(s soc.SoC, caps Capabilities) error {
	clocks := []ChannelClock{{ClockMHz: caps.ClockMHz}}
	clocks = append(clocks, caps.ChannelClocks...)

	checked := 0
	for _, cc := range clocks {
		for _, us := range []float64{0.5, 1, 2.5, 4, 10, 25, 128, 1000} {
			p := us * cc.ClockMHz
			if p != math.Trunc(p) || math.FMA(us, cc.ClockMHz, -p) != 0 {
				continue
			}
			checked++
			if got := s.CyclesToUs(s.UsToCycles(us, cc.Opts...), cc.Opts...); got != us {
				return fmt.Errorf("round trip of %v us with %+v gave %v", us, soc.ResolveChannels(cc.Opts...), got)
			}
			bulk := s.CyclesToUsBulk(s.UsToCyclesBulk([]float64{us}, cc.Opts...), cc.Opts...)
			if len(bulk) != 1 || bulk[0] != us {
				return fmt.Errorf("bulk round trip of %v us with %+v gave %v", us, soc.ResolveChannels(cc.Opts...), bulk)
			}
		}
	}
	if checked == 0 {
		return fmt.Errorf("no exact microsecond value for clock %v", caps.ClockMHz)
	}
	return nil
}

func checkChannelClocks(s soc.SoC, caps Capabilities) error {
	for _, cc := range caps.ChannelClocks {
		us := 10.0
		want := int(us * cc.ClockMHz)
		if got := s.UsToCycles(us, cc.Opts...); got != want {
			return fmt.Errorf("UsToCycles(%v) with %+v = %d, want %d", us, soc.ResolveChannels(cc.Opts...), got, want)
		}
		if got := s.CyclesToUs(want, cc.Opts...); got != float64(want)/cc.ClockMHz {
			return fmt.Errorf("CyclesToUs(%d) with %+v = %v", want, soc.ResolveChannels(cc.Opts...), got)
		}
	}
	return nil
}

func checkExposed(s soc.SoC, caps Capabilities) error {
	got := soc.ExposedOf(s)
	if len(got) != len(caps.Exposed) {
		return fmt.Errorf("exposed %v, want %v", got, caps.Exposed)
	}
	want := make(map[string]bool, len(caps.Exposed))
	for _, name := range caps.Exposed {
		want[name] = true
	}
	for _, name := range got {
		if !want[name] {
			return fmt.Errorf("unexpected exposed operation %q", name)
		}
	}
	return nil
}
