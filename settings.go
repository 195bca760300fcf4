package phase

import (
	"fmt"
	"math"
	"time"
)

// Settings externalizes every engine tunable plus the per-channel enable
// flags as a plain struct. Serialization is up to the host.
type Settings struct {
	Config
	Enabled []bool // per-channel enables; nil leaves them unchanged on apply
}

// Settings returns a snapshot of the current tunables and channel enables.
func (e *Engine) Settings() Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	enabled := make([]bool, len(e.channels))
	for i, c := range e.channels {
		enabled[i] = c.enabled.Load()
	}
	return Settings{Config: e.configLocked(), Enabled: enabled}
}

func (e *Engine) configLocked() Config {
	return Config{
		ProcessLength: e.processLength,
		NumFuture:     e.numFuture,
		ModelOrder:    e.modelOrder,
		CalcInterval:  time.Duration(e.calcInterval.Load()),
		GlitchLimit:   int(e.glitchLimit.Load()),
		LowCut:        e.lowCut,
		HighCut:       e.highCut,
		IncludeAux:    e.includeAux.Load(),
		Output:        e.output,
	}
}

// ApplySettings installs s wholesale, clamping values the same way the
// individual setters do. Enabled must be nil or match the registered
// channel count. Stopped only.
func (e *Engine) ApplySettings(s Settings) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running.Load() {
		return ErrRunning
	}
	if s.Enabled != nil && len(s.Enabled) != len(e.channels) {
		return ErrChannelCount
	}
	if err := e.applyConfig(s.Config); err != nil {
		return err
	}
	for i, enabled := range s.Enabled {
		e.channels[i].enabled.Store(enabled)
	}
	if err := e.applyBand(); err != nil {
		return err
	}
	return e.rebuildState()
}

// SetProcessLength resizes the analysis window, rounding to the nearest
// power of two in [512, 65536]. The forecast tail is rescaled to preserve
// NumFuture/ProcessLength before clamping, so the history region always
// covers the model order. Returns the applied length. Stopped only.
func (e *Engine) SetProcessLength(n int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running.Load() {
		return e.processLength, ErrRunning
	}
	n = clampProcessLength(n)
	if n == e.processLength {
		return n, nil
	}
	ratio := float64(e.numFuture) / float64(e.processLength)
	e.processLength = n
	e.numFuture = clampNumFuture(int(math.Round(ratio*float64(n))), n, e.modelOrder)
	return n, e.rebuildState()
}

// ProcessLength returns the analysis window length in samples.
func (e *Engine) ProcessLength() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.processLength
}

// SetNumFuture resizes the forecast tail, clamped to
// [0, ProcessLength-ModelOrder]. Returns the applied value. Stopped only.
func (e *Engine) SetNumFuture(n int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running.Load() {
		return e.numFuture, ErrRunning
	}
	n = clampNumFuture(n, e.processLength, e.modelOrder)
	if n == e.numFuture {
		return n, nil
	}
	e.numFuture = n
	return n, e.rebuildState()
}

// NumFuture returns the forecast tail length in samples.
func (e *Engine) NumFuture() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.numFuture
}

// HistoryLength returns ProcessLength minus NumFuture, the number of real
// samples in the analysis window.
func (e *Engine) HistoryLength() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.processLength - e.numFuture
}

// RatioFuture returns the fraction of the analysis window occupied by the
// forecast tail.
func (e *Engine) RatioFuture() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return float64(e.numFuture) / float64(e.processLength)
}

// SetModelOrder changes the autoregressive model order, clamped to
// [1, 256]. The forecast tail is re-clamped if the new order no longer
// fits the history region. Returns the applied order. Stopped only.
func (e *Engine) SetModelOrder(order int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running.Load() {
		return e.modelOrder, ErrRunning
	}
	order = clampInt(order, minModelOrder, maxModelOrder)
	if order == e.modelOrder {
		return order, nil
	}
	e.modelOrder = order
	e.numFuture = clampNumFuture(e.numFuture, e.processLength, order)
	return order, e.rebuildState()
}

// ModelOrder returns the autoregressive model order.
func (e *Engine) ModelOrder() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.modelOrder
}

// SetLowCut moves the bandpass low cutoff, clamped to keep the passband
// inside [0.01, 10000] Hz and at least 0.01 Hz wide. Channel filters are
// retuned in place. Returns the applied cutoff. Stopped only.
func (e *Engine) SetLowCut(hz float64) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running.Load() {
		return e.lowCut, ErrRunning
	}
	hz = clampFloat(hz, minCutoffHz, e.highCut-minBandwidthHz)
	if hz == e.lowCut {
		return hz, nil
	}
	e.lowCut = hz
	return hz, e.applyBand()
}

// LowCut returns the bandpass low cutoff in Hz.
func (e *Engine) LowCut() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lowCut
}

// SetHighCut moves the bandpass high cutoff, clamped to keep the passband
// inside [0.01, 10000] Hz and at least 0.01 Hz wide. Channel filters are
// retuned in place. Returns the applied cutoff. Stopped only.
func (e *Engine) SetHighCut(hz float64) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running.Load() {
		return e.highCut, ErrRunning
	}
	hz = clampFloat(hz, e.lowCut+minBandwidthHz, maxCutoffHz)
	if hz == e.highCut {
		return hz, nil
	}
	e.highCut = hz
	return hz, e.applyBand()
}

// HighCut returns the bandpass high cutoff in Hz.
func (e *Engine) HighCut() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.highCut
}

// SetOutputMode switches between phase and envelope output. Stopped only.
func (e *Engine) SetOutputMode(mode OutputMode) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running.Load() {
		return ErrRunning
	}
	switch mode {
	case OutputPhaseDegrees, OutputEnvelope:
	default:
		return fmt.Errorf("phase: invalid output mode: %d", mode)
	}
	e.output = mode
	return nil
}

// Output returns the configured output mode.
func (e *Engine) Output() OutputMode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.output
}

// SetCalcInterval changes the estimator wake period, clamped to at least
// 1ms. It takes effect during the current idle wait. Returns the applied
// interval. Safe at any time.
func (e *Engine) SetCalcInterval(d time.Duration) time.Duration {
	if d < minCalcInterval {
		d = minCalcInterval
	}
	e.calcInterval.Store(int64(d))
	select {
	case e.kick <- struct{}{}:
	default:
	}
	return d
}

// CalcInterval returns the estimator wake period.
func (e *Engine) CalcInterval() time.Duration {
	return time.Duration(e.calcInterval.Load())
}

// SetGlitchLimit changes the longest sample run eligible for unwrap and
// smooth correction, clamped to be non-negative. Returns the applied limit.
// Safe at any time.
func (e *Engine) SetGlitchLimit(limit int) int {
	if limit < 0 {
		limit = 0
	}
	e.glitchLimit.Store(int64(limit))
	return limit
}

// GlitchLimit returns the unwrap/smooth correction limit in samples.
func (e *Engine) GlitchLimit() int {
	return int(e.glitchLimit.Load())
}

// SetIncludeAux controls whether auxiliary channels are processed. Safe at
// any time.
func (e *Engine) SetIncludeAux(include bool) {
	e.includeAux.Store(include)
}

// IncludeAux reports whether auxiliary channels are processed.
func (e *Engine) IncludeAux() bool {
	return e.includeAux.Load()
}

// SetChannelEnabled toggles processing for one channel. Disabled channels
// pass through Process untouched. Safe at any time.
func (e *Engine) SetChannelEnabled(index int, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if index < 0 || index >= len(e.channels) {
		return ErrChannelIndex
	}
	e.channels[index].enabled.Store(enabled)
	return nil
}

// ChannelEnabled reports whether one channel is processed.
func (e *Engine) ChannelEnabled(index int) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if index < 0 || index >= len(e.channels) {
		return false, ErrChannelIndex
	}
	return e.channels[index].enabled.Load(), nil
}

// ChannelCount returns the number of registered channels.
func (e *Engine) ChannelCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.channels)
}

// ChannelState returns the processing readiness of one channel.
func (e *Engine) ChannelState(index int) (ChannelState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if index < 0 || index >= len(e.channels) {
		return StateNotFull, ErrChannelIndex
	}
	return ChannelState(e.channels[index].state.Load()), nil
}

// Running reports whether the estimator goroutine is running.
func (e *Engine) Running() bool {
	return e.running.Load()
}
