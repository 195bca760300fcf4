// Package arburg estimates autoregressive model coefficients with Burg's
// maximum-entropy method (Kay, 1988).
//
// An [Estimator] is sized once for a fixed series length and model order and
// reused across fits; all recursion scratch is preallocated. Coefficients
// follow the prediction convention x[i] = -sum(coef[k]*x[i-1-k]), matching
// the forecast extension in dsp/forecast.
package arburg
