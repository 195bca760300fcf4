package phase

import (
	"context"
	"time"
)

// Start launches the background estimator goroutine. It returns ErrRunning
// if the estimator is already running.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running.Load() {
		return ErrRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	done := make(chan struct{})
	e.done = done
	e.running.Store(true)
	go e.run(ctx, done)
	return nil
}

// Stop cancels the estimator goroutine, waits for it to exit, and rewinds
// every channel to StateNotFull with an empty window. Published models and
// filter state survive, so a later Start resumes cleanly once the windows
// refill. Stop on a stopped engine is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running.Swap(false) {
		return
	}
	e.cancel()
	<-e.done
	e.cancel = nil
	e.done = nil

	for _, c := range e.channels {
		c.resetRun()
	}
	e.warnSent.Store(false)
}

// run is the estimator loop. done is goroutine-local so a restart can never
// close the wrong channel. The wake deadline is recomputed from the same
// cycle start whenever SetCalcInterval kicks, so a shorter interval takes
// effect during the current wait.
func (e *Engine) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(e.CalcInterval())
	defer timer.Stop()
	cycleStart := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.kick:
			remain := e.CalcInterval() - time.Since(cycleStart)
			if remain < 0 {
				remain = 0
			}
			timer.Reset(remain)
		case <-timer.C:
			e.estimateChannels(ctx)
			cycleStart = time.Now()
			timer.Reset(e.CalcInterval())
		}
	}
}

// estimateChannels refits the model of every channel whose window is full.
func (e *Engine) estimateChannels(ctx context.Context) {
	for _, c := range e.channels {
		if ctx.Err() != nil {
			return
		}
		if ChannelState(c.state.Load()) == StateNotFull {
			continue
		}
		e.estimateChannel(c)
	}
}

// estimateChannel copies the channel's snapshot, fits the model on the
// copy, and publishes the coefficients. The snapshot lock is held only for
// the copy; the fit runs on estimator-local scratch. Publication stores a
// freshly allocated vector, so Process can never observe a partial update,
// and it happens before the state reaches StateFullWithModel.
func (e *Engine) estimateChannel(c *channel) {
	c.snapMu.Lock()
	copy(e.series, c.snapshot)
	c.snapMu.Unlock()

	if err := e.est.Fit(e.coeffs, e.series); err != nil {
		return
	}

	model := make([]float64, len(e.coeffs))
	copy(model, e.coeffs)
	c.model.Store(&model)
	c.state.CompareAndSwap(int32(StateFullNoModel), int32(StateFullWithModel))
}
