package bandpass

import (
	"fmt"
	"math"
)

// Filter is a single second-order bandpass section with Direct Form II
// Transposed state. It is not safe for concurrent use.
type Filter struct {
	sampleRate  float64
	centerHz    float64
	bandwidthHz float64

	b0, b1, b2 float64
	a1, a2     float64

	d0, d1 float64
}

// New returns a Filter for the given sample rate, centered at centerHz with
// the given bandwidth. Q is centerHz/bandwidthHz. A center at or above
// Nyquist is pulled just below it rather than rejected.
func New(sampleRate, centerHz, bandwidthHz float64) (*Filter, error) {
	f := &Filter{
		sampleRate:  sampleRate,
		centerHz:    centerHz,
		bandwidthHz: bandwidthHz,
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	f.rebuildCoefficients()
	return f, nil
}

// SampleRate returns the sample rate in Hz.
func (f *Filter) SampleRate() float64 {
	return f.sampleRate
}

// Center returns the center frequency in Hz.
func (f *Filter) Center() float64 {
	return f.centerHz
}

// Bandwidth returns the bandwidth in Hz.
func (f *Filter) Bandwidth() float64 {
	return f.bandwidthHz
}

// Q returns the quality factor centerHz/bandwidthHz.
func (f *Filter) Q() float64 {
	return f.centerHz / f.bandwidthHz
}

// SetBand recomputes the coefficients for a new center frequency and
// bandwidth. Filter state is kept so streaming can continue.
func (f *Filter) SetBand(centerHz, bandwidthHz float64) error {
	if centerHz <= 0 || math.IsNaN(centerHz) || math.IsInf(centerHz, 0) {
		return fmt.Errorf("bandpass: center frequency must be positive, got %v", centerHz)
	}
	if bandwidthHz <= 0 || math.IsNaN(bandwidthHz) || math.IsInf(bandwidthHz, 0) {
		return fmt.Errorf("bandpass: bandwidth must be positive, got %v", bandwidthHz)
	}
	f.centerHz = centerHz
	f.bandwidthHz = bandwidthHz
	f.rebuildCoefficients()
	return nil
}

// ProcessSample filters one sample and returns the output.
func (f *Filter) ProcessSample(x float64) float64 {
	y := f.b0*x + f.d0
	f.d0 = f.b1*x - f.a1*y + f.d1
	f.d1 = f.b2*x - f.a2*y
	return y
}

// ProcessBlock filters a block of samples in place. Zero-alloc.
func (f *Filter) ProcessBlock(buf []float64) {
	d0, d1 := f.d0, f.d1
	for i, x := range buf {
		y := f.b0*x + d0
		d0 = f.b1*x - f.a1*y + d1
		d1 = f.b2*x - f.a2*y
		buf[i] = y
	}
	f.d0, f.d1 = d0, d1
}

// Reset clears the filter state.
func (f *Filter) Reset() {
	f.d0 = 0
	f.d1 = 0
}

func (f *Filter) validate() error {
	if f.sampleRate <= 0 || math.IsNaN(f.sampleRate) || math.IsInf(f.sampleRate, 0) {
		return fmt.Errorf("bandpass: sample rate must be positive, got %v", f.sampleRate)
	}
	if f.centerHz <= 0 || math.IsNaN(f.centerHz) || math.IsInf(f.centerHz, 0) {
		return fmt.Errorf("bandpass: center frequency must be positive, got %v", f.centerHz)
	}
	if f.bandwidthHz <= 0 || math.IsNaN(f.bandwidthHz) || math.IsInf(f.bandwidthHz, 0) {
		return fmt.Errorf("bandpass: bandwidth must be positive, got %v", f.bandwidthHz)
	}
	return nil
}

func (f *Filter) rebuildCoefficients() {
	w0 := 2 * math.Pi * f.centerHz / f.sampleRate
	if w0 >= math.Pi {
		w0 = math.Pi * 0.99
	}
	q := f.centerHz / f.bandwidthHz
	cw := math.Cos(w0)
	sw := math.Sin(w0)
	alpha := sw / (2 * q)

	a0 := 1 + alpha
	f.b0 = alpha / a0
	f.b1 = 0
	f.b2 = -alpha / a0
	f.a1 = -2 * cw / a0
	f.a2 = (1 - alpha) / a0
}
