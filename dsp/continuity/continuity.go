// Package continuity stitches per-buffer phase sequences into a continuous
// stream. Unwrap removes artificial 360-degree discontinuities introduced by
// angle wraparound, and Smooth replaces short spurious dips at the buffer
// start with a linear ramp. Both take the final value emitted for the
// previous buffer as the continuity anchor.
package continuity

import "math"

// Unwrap corrects wraparound discontinuities in phase, comparing each sample
// to its predecessor (prev for the first sample). A jump larger than 180 in
// magnitude opens a correction run; the run closes at the next opposite
// wrap within glitchLimit samples, and every sample in between is shifted by
// 360 against the jump direction. A run that reaches the end of the buffer
// unresolved is carried through only when it wrapped downward, since that
// corresponds to a genuine rise; unresolved falls are left alone. The
// asymmetry is a deliberate boundary policy.
func Unwrap(phase []float64, prev float64, glitchLimit int) {
	n := len(phase)
	for start := 0; start < n; start++ {
		p := prev
		if start > 0 {
			p = phase[start-1]
		}
		diff := phase[start] - p
		if math.Abs(diff) <= 180 {
			continue
		}

		end := -1
		scan := start + 1
		for ; scan <= start+glitchLimit && scan < n; scan++ {
			d2 := phase[scan] - phase[scan-1]
			if math.Abs(d2) > 180 && (diff > 0) != (d2 > 0) {
				end = scan
				break
			}
		}
		if end == -1 && diff < 0 && scan == n {
			end = n
		}
		if end == -1 {
			continue
		}

		correction := 360.0
		if diff > 0 {
			correction = -360.0
		}
		for i := start; i < end; i++ {
			phase[i] += correction
		}
		// Resume scanning from the jump that closed the run.
		start = end - 1
	}
}

// Smooth replaces a short anomalous dip at the start of phase with a linear
// ramp. It applies only when the first sample sits below prev by less than
// 180 degrees; the ramp runs from prev to the first sample within
// glitchLimit that climbs back above it. A falling wrap encountered inside
// the dip is folded up a full turn before the ramp is laid down.
func Smooth(phase []float64, prev float64, glitchLimit int) {
	n := len(phase)
	if n == 0 {
		return
	}
	diff := phase[0] - prev
	if diff >= 0 || diff <= -180 {
		return
	}

	maxRun := glitchLimit
	if m := n - 1; m < maxRun {
		maxRun = m
	}
	end := -1
	for i := 1; i <= maxRun; i++ {
		if phase[i] > prev {
			end = i
			break
		}
		if phase[i]-phase[i-1] > 180 && phase[i]+360 > prev {
			phase[i] += 360
			end = i
			break
		}
	}
	if end == -1 {
		return
	}

	slope := (phase[end] - prev) / float64(end+1)
	for i := 0; i < end; i++ {
		phase[i] = prev + float64(i+1)*slope
	}
}
