// Package analytic computes the analytic signal of a real-valued window via
// the FFT: forward transform, suppression of negative-frequency bins, inverse
// transform. The imaginary part of the result is the Hilbert transform of the
// input, so instantaneous phase and envelope fall out of each complex sample
// directly; [PhaseDeg] and [Envelope] extract them.
//
// FFT plans are shared process-wide through a reference-counted cache keyed
// by length. [New] acquires a plan and [Transform.Close] releases it; the
// last release for a length frees its plan.
package analytic
