// Package phase provides a streaming instantaneous-phase estimation engine
// for band-limited multichannel signals.
//
// Each channel's samples are bandpass filtered and collected in a sliding
// window. A background estimator periodically fits an autoregressive model
// to the window (Burg's method) and publishes the coefficients; the
// processing path uses the latest model to forecast the signal past the
// window edge, computes the analytic signal of history plus forecast with
// an FFT-based Hilbert transform, and emits the instantaneous phase in
// degrees, unwrapped and smoothed across buffer boundaries. Forecasting
// past the edge keeps the Hilbert transform's wrap-around distortion inside
// the predicted region, so phase estimates stay usable right up to the
// newest sample.
//
// The engine is built from the leaf packages under dsp/:
//   - github.com/cwbudde/algo-phase/dsp/analytic
//   - github.com/cwbudde/algo-phase/dsp/arburg
//   - github.com/cwbudde/algo-phase/dsp/bandpass
//   - github.com/cwbudde/algo-phase/dsp/continuity
//   - github.com/cwbudde/algo-phase/dsp/forecast
//   - github.com/cwbudde/algo-phase/dsp/history
//
// Typical use: configure once, register channels, Start, then stream
// buffers through Process. Output is all zeros for a channel until its
// window has filled and a first model has been published.
package phase
