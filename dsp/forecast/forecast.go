// Package forecast extends a sample window causally with the predictions of
// an autoregressive model, so that a transform over the whole window can
// look a short distance past the last observed sample.
package forecast

import "fmt"

// Extend fills window[history:] with AR predictions seeded by the preceding
// samples, each prediction feeding the next:
//
//	window[i] = -(coeffs[0]*window[i-1] + coeffs[1]*window[i-2] + ...)
//
// The first history samples are left untouched and must already hold
// observed data. history must cover the model order so every prediction has
// enough context. Extend allocates nothing.
func Extend(window []float64, history int, coeffs []float64) error {
	if len(coeffs) == 0 {
		return fmt.Errorf("forecast: need at least one coefficient")
	}
	if history < len(coeffs) {
		return fmt.Errorf("forecast: history %d must cover the model order %d", history, len(coeffs))
	}
	if history > len(window) {
		return fmt.Errorf("forecast: history %d exceeds window length %d", history, len(window))
	}
	for i := history; i < len(window); i++ {
		s := 0.0
		for k, c := range coeffs {
			s -= c * window[i-1-k]
		}
		window[i] = s
	}
	return nil
}
