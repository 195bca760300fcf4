package arburg

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Estimator fits AR models of a fixed order to series of a fixed length.
// It is not safe for concurrent use.
type Estimator struct {
	length int
	order  int

	// Forward and backward prediction errors carried across orders.
	per []float64
	pef []float64
	// Stage scratch: summed error terms and reflection work vectors.
	// g and h use 1-based indexing internally, hence order+1 slots.
	fwd []float64
	bwd []float64
	g   []float64
	h   []float64
}

// New returns an Estimator for series of the given length and the given
// model order. The length must cover the order; recursion stages that run
// out of error terms contribute zero reflection coefficients.
func New(length, order int) (*Estimator, error) {
	if order < 1 {
		return nil, fmt.Errorf("arburg: model order must be at least 1, got %d", order)
	}
	if length < order {
		return nil, fmt.Errorf("arburg: series length must cover order %d, got %d", order, length)
	}
	return &Estimator{
		length: length,
		order:  order,
		per:    make([]float64, length),
		pef:    make([]float64, length),
		fwd:    make([]float64, length),
		bwd:    make([]float64, length),
		g:      make([]float64, order+1),
		h:      make([]float64, order+1),
	}, nil
}

// Length returns the expected series length.
func (e *Estimator) Length() int {
	return e.length
}

// Order returns the model order.
func (e *Estimator) Order() int {
	return e.order
}

// Fit estimates AR coefficients for series and writes them to dst. The
// series length and len(dst) must match the Estimator's length and order.
// A series with no prediction-error energy (for example all zeros) yields
// all-zero coefficients rather than NaN.
func (e *Estimator) Fit(dst, series []float64) error {
	if len(series) != e.length {
		return fmt.Errorf("arburg: series length mismatch: got %d, want %d", len(series), e.length)
	}
	if len(dst) != e.order {
		return fmt.Errorf("arburg: coefficient length mismatch: got %d, want %d", len(dst), e.order)
	}

	for i := range e.per {
		e.per[i] = 0
		e.pef[i] = 0
	}
	for i := range e.g {
		e.g[i] = 0
		e.h[i] = 0
	}

	for n := 1; n <= e.order; n++ {
		jj := e.length - n

		// Combined forward/backward error terms for this stage. bwd gets
		// one extra element; the error update below reads index jj when
		// n == 1.
		f := e.fwd[:jj]
		bx := e.bwd[:jj+1]
		floats.AddTo(f, series[n:n+jj], e.pef[:jj])
		floats.AddTo(bx, series[:jj+1], e.per[:jj+1])
		b := bx[:jj]

		k := 0.0
		if sd := floats.Dot(f, f) + floats.Dot(b, b); sd != 0 {
			k = -2 * floats.Dot(f, b) / sd
		}
		e.g[n] = k

		if n != 1 {
			for j := 1; j < n; j++ {
				e.h[j] = e.g[j] + k*e.g[n-j]
			}
			copy(e.g[1:n], e.h[1:n])
			if jj--; jj < 0 {
				jj = 0
			}
		}

		// Error recursion: per absorbs the forward term, pef shifts down
		// one slot and absorbs the backward term. Both read only the
		// pre-stage values captured in f and bx.
		floats.AddScaled(e.per[:jj], k, f[:jj])
		copy(e.pef[:jj], e.pef[1:jj+1])
		floats.AddScaled(e.pef[:jj], k, bx[1:jj+1])
	}

	copy(dst, e.g[1:e.order+1])
	return nil
}
