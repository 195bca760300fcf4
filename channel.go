package phase

import (
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-phase/dsp/bandpass"
	"github.com/cwbudde/algo-phase/dsp/history"
)

// ChannelInfo describes one input channel registered with SetChannels.
type ChannelInfo struct {
	SampleRate float64 // channel sample rate in Hz
	Aux        bool    // auxiliary channel, skipped unless IncludeAux is set
}

// ChannelState is the processing readiness of a channel. Output stays at
// exact zero until the channel reaches StateFullWithModel.
type ChannelState int32

const (
	// StateNotFull means the sliding window has not yet filled.
	StateNotFull ChannelState = iota
	// StateFullNoModel means the window is full but no model has been
	// published yet.
	StateFullNoModel
	// StateFullWithModel means forecast and phase output are live.
	StateFullWithModel
)

func (s ChannelState) String() string {
	switch s {
	case StateNotFull:
		return "not-full"
	case StateFullNoModel:
		return "full-no-model"
	case StateFullWithModel:
		return "full-with-model"
	default:
		return "unknown"
	}
}

// channel holds the per-channel processing state. The snapshot buffer is the
// only data shared with the estimator goroutine by copy; the model slot is
// shared by atomic pointer swap.
type channel struct {
	sampleRate float64
	aux        bool

	enabled atomic.Bool
	state   atomic.Int32

	filter *bandpass.Filter
	ring   *history.Buffer

	snapMu   sync.Mutex
	snapshot []float64

	model atomic.Pointer[[]float64]

	window  []float64
	out     []complex128
	lastOut float64
}

func newChannel(info ChannelInfo, centerHz, bandwidthHz float64) (*channel, error) {
	filter, err := bandpass.New(info.SampleRate, centerHz, bandwidthHz)
	if err != nil {
		return nil, err
	}
	c := &channel{
		sampleRate: info.SampleRate,
		aux:        info.Aux,
		filter:     filter,
	}
	c.enabled.Store(true)
	return c, nil
}

// rebuild sizes the channel's buffers for the given window geometry and
// resets its processing state. The filter keeps its state.
func (c *channel) rebuild(historyLength, processLength int) error {
	ring, err := history.New(historyLength)
	if err != nil {
		return err
	}
	c.ring = ring
	c.snapshot = make([]float64, historyLength)
	c.window = make([]float64, processLength)
	c.out = make([]complex128, processLength)
	c.state.Store(int32(StateNotFull))
	c.model.Store(nil)
	c.lastOut = 0
	return nil
}

// resetRun rewinds the channel to the start-of-run state. The published
// model and the filter state survive, matching a pause rather than a
// reconfiguration.
func (c *channel) resetRun() {
	c.state.Store(int32(StateNotFull))
	c.ring.Reset()
	c.lastOut = 0
}
