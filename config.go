package phase

import (
	"fmt"
	"math"
	"math/bits"
	"time"
)

const (
	minProcessLength     = 512
	maxProcessLength     = 65536
	defaultProcessLength = 8192

	defaultNumFuture = 1024

	minModelOrder     = 1
	maxModelOrder     = 256
	defaultModelOrder = 20

	minCalcInterval     = time.Millisecond
	defaultCalcInterval = 50 * time.Millisecond

	defaultGlitchLimit = 200

	minCutoffHz    = 0.01
	maxCutoffHz    = 10000.0
	minBandwidthHz = 0.01
	defaultLowCut  = 4.0
	defaultHighCut = 8.0
)

// OutputMode selects the quantity written back by Process.
type OutputMode int

const (
	// OutputPhaseDegrees emits the instantaneous phase in degrees,
	// unwrapped and smoothed across buffer boundaries.
	OutputPhaseDegrees OutputMode = iota
	// OutputEnvelope emits the instantaneous amplitude of the analytic
	// signal. No cross-buffer continuity is applied.
	OutputEnvelope
)

func (m OutputMode) String() string {
	switch m {
	case OutputPhaseDegrees:
		return "phase"
	case OutputEnvelope:
		return "envelope"
	default:
		return "unknown"
	}
}

// Config holds the engine tunables. Out-of-range values are clamped to the
// nearest valid bound rather than rejected; DefaultConfig returns the
// recommended starting point.
type Config struct {
	ProcessLength int           // analysis window length in samples, power of two in [512, 65536]
	NumFuture     int           // forecast tail length in samples, in [0, ProcessLength-ModelOrder]
	ModelOrder    int           // autoregressive model order, in [1, 256]
	CalcInterval  time.Duration // estimator wake period, at least 1ms
	GlitchLimit   int           // longest sample run eligible for unwrap/smooth correction
	LowCut        float64       // bandpass low cutoff in Hz, in [0.01, 10000]
	HighCut       float64       // bandpass high cutoff in Hz, above LowCut
	IncludeAux    bool          // process auxiliary channels too
	Output        OutputMode    // quantity written back by Process
}

// DefaultConfig returns the default engine tunables: an 8192-sample window
// with a 1024-sample forecast tail, an order-20 model refit every 50ms, and
// a 4-8 Hz passband.
func DefaultConfig() Config {
	return Config{
		ProcessLength: defaultProcessLength,
		NumFuture:     defaultNumFuture,
		ModelOrder:    defaultModelOrder,
		CalcInterval:  defaultCalcInterval,
		GlitchLimit:   defaultGlitchLimit,
		LowCut:        defaultLowCut,
		HighCut:       defaultHighCut,
	}
}

// applyConfig clamps cfg and installs it on the engine. It does not rebuild
// per-channel state; callers do that once all fields are in place.
func (e *Engine) applyConfig(cfg Config) error {
	switch cfg.Output {
	case OutputPhaseDegrees, OutputEnvelope:
	default:
		return fmt.Errorf("phase: invalid output mode: %d", cfg.Output)
	}

	e.processLength = clampProcessLength(cfg.ProcessLength)
	e.modelOrder = clampInt(cfg.ModelOrder, minModelOrder, maxModelOrder)
	e.numFuture = clampNumFuture(cfg.NumFuture, e.processLength, e.modelOrder)
	e.lowCut, e.highCut = clampBand(cfg.LowCut, cfg.HighCut)
	e.output = cfg.Output

	interval := cfg.CalcInterval
	if interval < minCalcInterval {
		interval = minCalcInterval
	}
	e.calcInterval.Store(int64(interval))

	limit := cfg.GlitchLimit
	if limit < 0 {
		limit = 0
	}
	e.glitchLimit.Store(int64(limit))
	e.includeAux.Store(cfg.IncludeAux)

	return nil
}

// clampProcessLength bounds n to [minProcessLength, maxProcessLength] and
// rounds to the nearest power of two, ties upward.
func clampProcessLength(n int) int {
	if n < minProcessLength {
		return minProcessLength
	}
	if n > maxProcessLength {
		return maxProcessLength
	}
	if n&(n-1) == 0 {
		return n
	}
	floor := 1 << (bits.Len(uint(n)) - 1)
	ceil := floor << 1
	if n-floor < ceil-n {
		return floor
	}
	return ceil
}

// clampNumFuture bounds the forecast tail so the remaining history always
// covers the model order.
func clampNumFuture(n, processLength, modelOrder int) int {
	return clampInt(n, 0, processLength-modelOrder)
}

// clampBand bounds both cutoffs to [minCutoffHz, maxCutoffHz] while keeping
// the passband at least minBandwidthHz wide.
func clampBand(low, high float64) (float64, float64) {
	low = clampFloat(low, minCutoffHz, maxCutoffHz-minBandwidthHz)
	high = clampFloat(high, low+minBandwidthHz, maxCutoffHz)
	return low, high
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	switch {
	case math.IsNaN(v), v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}
