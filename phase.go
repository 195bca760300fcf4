package phase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-phase/dsp/analytic"
	"github.com/cwbudde/algo-phase/dsp/arburg"
	"github.com/cwbudde/algo-phase/dsp/continuity"
	"github.com/cwbudde/algo-phase/dsp/forecast"
)

var (
	// ErrRunning is returned when a stopped-only operation is attempted
	// while the estimator is running.
	ErrRunning = errors.New("phase: engine is running")
	// ErrChannelIndex is returned for channel indices outside the
	// registered set.
	ErrChannelIndex = errors.New("phase: channel index out of range")
	// ErrChannelCount is returned when a per-channel argument does not
	// match the registered channel count.
	ErrChannelCount = errors.New("phase: channel count mismatch")
)

// Engine estimates the instantaneous phase of band-limited signals across
// multiple channels in real time. Incoming buffers are bandpass filtered and
// appended to a per-channel sliding window; a background estimator
// periodically refits an autoregressive model to each full window, and
// Process uses the latest model to forecast past the window edge before
// taking the analytic signal, so the phase at the newest samples does not
// suffer the Hilbert transform's edge distortion.
//
// Process is wait-free with respect to the estimator. Structural
// reconfiguration (window geometry, model order, passband, output mode,
// channel set) is allowed only while stopped and must not overlap a Process
// call; the lightweight tunables (CalcInterval, GlitchLimit, IncludeAux,
// per-channel enables) may change at any time from any goroutine.
type Engine struct {
	mu sync.Mutex

	processLength int
	numFuture     int
	modelOrder    int
	lowCut        float64
	highCut       float64
	output        OutputMode

	calcInterval atomic.Int64 // nanoseconds
	glitchLimit  atomic.Int64
	includeAux   atomic.Bool

	channels  []*channel
	transform *analytic.Transform

	// Estimator goroutine state. series and coeffs are owned by the
	// goroutine while running; rebuildState touches them only when stopped.
	est     *arburg.Estimator
	series  []float64
	coeffs  []float64
	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
	kick    chan struct{}

	warnSent atomic.Bool
	status   StatusFunc
}

// New returns an engine with cfg clamped into range and no channels
// registered. Call SetChannels before Process and Start to launch the
// estimator.
func New(cfg Config, opts ...Option) (*Engine, error) {
	e := &Engine{
		kick: make(chan struct{}, 1),
	}
	if err := e.applyConfig(cfg); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	if err := e.rebuildState(); err != nil {
		return nil, err
	}
	return e, nil
}

// rebuildState resizes the transform, the estimator scratch, and every
// channel for the current window geometry. Callers hold e.mu (or are still
// constructing the engine) and have verified the estimator is stopped.
func (e *Engine) rebuildState() error {
	hist := e.processLength - e.numFuture

	if e.transform != nil {
		e.transform.Close()
	}
	transform, err := analytic.New(e.processLength)
	if err != nil {
		return fmt.Errorf("phase: failed to create analytic transform: %w", err)
	}
	e.transform = transform

	est, err := arburg.New(hist, e.modelOrder)
	if err != nil {
		return fmt.Errorf("phase: failed to create model estimator: %w", err)
	}
	e.est = est
	e.series = make([]float64, hist)
	e.coeffs = make([]float64, e.modelOrder)

	for i, c := range e.channels {
		if err := c.rebuild(hist, e.processLength); err != nil {
			return fmt.Errorf("phase: channel %d: %w", i, err)
		}
	}
	return nil
}

// applyBand retunes every channel filter to the current passband, keeping
// filter state. Callers hold e.mu.
func (e *Engine) applyBand() error {
	center := (e.lowCut + e.highCut) / 2
	bandwidth := e.highCut - e.lowCut
	for i, c := range e.channels {
		if err := c.filter.SetBand(center, bandwidth); err != nil {
			return fmt.Errorf("phase: channel %d: %w", i, err)
		}
	}
	return nil
}

// SetChannels replaces the registered channel set. Channels that keep their
// index keep their enabled flag; all other per-channel state starts fresh.
// Stopped only.
func (e *Engine) SetChannels(infos []ChannelInfo) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running.Load() {
		return ErrRunning
	}

	hist := e.processLength - e.numFuture
	center := (e.lowCut + e.highCut) / 2
	bandwidth := e.highCut - e.lowCut

	channels := make([]*channel, len(infos))
	for i, info := range infos {
		c, err := newChannel(info, center, bandwidth)
		if err != nil {
			return fmt.Errorf("phase: channel %d: %w", i, err)
		}
		if i < len(e.channels) {
			c.enabled.Store(e.channels[i].enabled.Load())
		}
		if err := c.rebuild(hist, e.processLength); err != nil {
			return fmt.Errorf("phase: channel %d: %w", i, err)
		}
		channels[i] = c
	}
	e.channels = channels
	return nil
}

// Process filters each active channel's buffer in place, advances its
// sliding window, and overwrites the buffer with the engine output: zeros
// until the channel reaches StateFullWithModel, then instantaneous phase in
// degrees (or envelope, per OutputMode). buffers must hold one slice per
// registered channel. Disabled channels and aux channels excluded by
// IncludeAux pass through untouched.
//
// Process is the real-time path. It never blocks on the estimator and must
// not overlap with itself or with stopped-only reconfiguration.
func (e *Engine) Process(buffers [][]float64) error {
	if len(buffers) != len(e.channels) {
		return ErrChannelCount
	}
	includeAux := e.includeAux.Load()
	for i, buf := range buffers {
		c := e.channels[i]
		if !c.enabled.Load() || (c.aux && !includeAux) {
			continue
		}
		e.processChannel(c, buf)
	}
	return nil
}

func (e *Engine) processChannel(c *channel, buf []float64) {
	n := len(buf)
	if n == 0 {
		return
	}

	c.filter.ProcessBlock(buf)

	// If the buffer outruns the history window, only the most recent
	// window-length samples survive; the dropped prefix is zeroed.
	hist := len(c.snapshot)
	start := 0
	if n > hist {
		start = n - hist
		clear(buf[:start])
		e.warnOverrun()
	}
	toProcess := n - start

	willFill := ChannelState(c.state.Load()) == StateNotFull && toProcess >= c.ring.Free()
	c.ring.Push(buf[start:])

	// Refresh the estimator-visible snapshot before the state transition
	// publishes the window as full.
	if willFill || ChannelState(c.state.Load()) != StateNotFull {
		c.ring.Snapshot(c.window[:hist])
		c.snapMu.Lock()
		copy(c.snapshot, c.window[:hist])
		c.snapMu.Unlock()
	}
	if willFill {
		c.state.Store(int32(StateFullNoModel))
	}

	if ChannelState(c.state.Load()) != StateFullWithModel {
		clear(buf[start:])
		c.lastOut = buf[n-1]
		return
	}

	model := c.model.Load()
	err := forecast.Extend(c.window, hist, *model)
	if err == nil {
		err = e.transform.Transform(c.out, c.window)
	}
	if err != nil {
		clear(buf[start:])
		c.lastOut = buf[n-1]
		e.sendStatus("phase: analytic transform failed: " + err.Error())
		return
	}

	recent := c.out[hist-toProcess : hist]
	if e.output == OutputEnvelope {
		analytic.Envelope(buf[start:], recent)
	} else {
		analytic.PhaseDeg(buf[start:], recent)
		limit := int(e.glitchLimit.Load())
		continuity.Unwrap(buf, c.lastOut, limit)
		continuity.Smooth(buf, c.lastOut, limit)
	}
	c.lastOut = buf[n-1]
}

func (e *Engine) warnOverrun() {
	if e.warnSent.Swap(true) {
		return
	}
	e.sendStatus("phase: input buffer exceeds the history window; oldest samples dropped")
}

func (e *Engine) sendStatus(msg string) {
	if e.status != nil {
		e.status(msg)
	}
}
