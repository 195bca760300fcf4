package analytic

import (
	"errors"
	"fmt"
	"math"
	"sync"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"
)

// ErrClosed is returned by Transform after Close has released its FFT plan.
var ErrClosed = errors.New("analytic: transform is closed")

// Transform computes analytic signals for windows of one fixed length.
// It is not safe for concurrent use; create one per goroutine or serialize
// calls externally.
type Transform struct {
	n      int
	plan   *algofft.Plan[complex128]
	work   []complex128
	closed bool
}

// New returns a Transform for windows of length n samples. Close must be
// called when the Transform is no longer needed so the underlying FFT plan
// can be released.
func New(n int) (*Transform, error) {
	if n < 2 {
		return nil, fmt.Errorf("analytic: window length must be at least 2, got %d", n)
	}
	plan, err := acquirePlan(n)
	if err != nil {
		return nil, fmt.Errorf("analytic: failed to create FFT plan: %w", err)
	}
	return &Transform{
		n:    n,
		plan: plan,
		work: make([]complex128, n),
	}, nil
}

// Len returns the window length.
func (t *Transform) Len() int {
	return t.n
}

// Transform writes the analytic signal of src to dst. Both slices must have
// the Transform's length. src is not modified.
func (t *Transform) Transform(dst []complex128, src []float64) error {
	if t.closed {
		return ErrClosed
	}
	if len(src) != t.n {
		return fmt.Errorf("analytic: input length mismatch: got %d, want %d", len(src), t.n)
	}
	if len(dst) != t.n {
		return fmt.Errorf("analytic: output length mismatch: got %d, want %d", len(dst), t.n)
	}

	for i, x := range src {
		t.work[i] = complex(x, 0)
	}
	if err := t.plan.Forward(t.work, t.work); err != nil {
		return fmt.Errorf("analytic: forward FFT failed: %w", err)
	}
	hilbertWeights(t.work)
	if err := t.plan.Inverse(dst, t.work); err != nil {
		return fmt.Errorf("analytic: inverse FFT failed: %w", err)
	}
	return nil
}

// Close releases the Transform's cached FFT plan. Further Transform calls
// return ErrClosed. Close is idempotent.
func (t *Transform) Close() {
	if t.closed {
		return
	}
	t.closed = true
	t.plan = nil
	releasePlan(t.n)
}

// hilbertWeights rewrites a spectrum in place so the inverse transform
// yields the analytic signal: DC and Nyquist pass through, positive
// frequencies double, negative frequencies vanish. The inverse transform is
// 1/n normalized, so no additional scaling is applied here.
func hilbertWeights(freq []complex128) {
	n := len(freq)
	lastPos := (n+1)/2 - 1
	firstNeg := n/2 + 1
	for i := 1; i <= lastPos; i++ {
		freq[i] *= 2
	}
	for i := firstNeg; i < n; i++ {
		freq[i] = 0
	}
}

// PhaseDeg writes the instantaneous phase of each analytic sample to dst in
// degrees, in [-180, 180]. dst and src must have the same length.
func PhaseDeg(dst []float64, src []complex128) {
	const radToDeg = 180 / math.Pi
	for i, c := range src {
		dst[i] = math.Atan2(imag(c), real(c)) * radToDeg
	}
}

// scratchBuf holds pooled scratch memory for complex-to-real unpacking.
type scratchBuf struct {
	data []float64
}

var scratchPool = sync.Pool{
	New: func() any { return &scratchBuf{} },
}

func getScratch(n int) (re, im []float64, buf *scratchBuf) {
	buf = scratchPool.Get().(*scratchBuf)
	need := 2 * n
	if cap(buf.data) < need {
		buf.data = make([]float64, need)
	} else {
		buf.data = buf.data[:need]
	}
	return buf.data[:n], buf.data[n:need], buf
}

func putScratch(buf *scratchBuf) {
	scratchPool.Put(buf)
}

// Envelope writes the instantaneous amplitude |src[i]| of each analytic
// sample to dst using the SIMD magnitude kernel. dst and src must have the
// same length. Scratch is pooled, so in steady state this allocates nothing.
func Envelope(dst []float64, src []complex128) {
	if len(src) == 0 {
		return
	}
	re, im, buf := getScratch(len(src))
	for i, c := range src {
		re[i] = real(c)
		im[i] = imag(c)
	}
	vecmath.Magnitude(dst, re, im)
	putScratch(buf)
}
