// Package bandpass provides a streaming second-order bandpass filter built
// from the RBJ cookbook biquad, parameterized by center frequency and
// bandwidth in Hz. Peak gain at the center frequency is unity, so passband
// amplitude survives filtering. One Filter carries the state of one channel.
package bandpass
