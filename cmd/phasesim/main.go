// Command phasesim streams a synthetic sinusoid through the phase engine
// and reports how closely the emitted phase tracks the ground truth.
//
// Usage:
//
//	phasesim [flags]
//
// The signal is a sine of known frequency, optionally with additive noise,
// processed block by block as a live source would deliver it. Once the
// engine has filled its window and published a first model, a settling
// period is skipped and every following sample's phase (or envelope) is
// compared against the analytically known value.
//
// Examples:
//
//	phasesim
//	phasesim -freq 7 -rate 30000 -seconds 10
//	phasesim -noise 0.2 -block 256
//	phasesim -envelope
package main

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"text/tabwriter"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/algo-phase"
)

func main() {
	rate := flag.Float64("rate", 30000, "sample rate in Hz")
	freq := flag.Float64("freq", 6, "sinusoid frequency in Hz")
	amp := flag.Float64("amp", 1, "sinusoid amplitude")
	noise := flag.Float64("noise", 0, "additive uniform noise amplitude")
	seed := flag.Uint64("seed", 1, "noise generator seed")
	block := flag.Int("block", 512, "samples per processed block")
	seconds := flag.Float64("seconds", 5, "signal length to evaluate after warm-up, in seconds")
	settle := flag.Float64("settle", 1, "warm-up skipped after the first model, in seconds")
	length := flag.Int("length", 8192, "analysis window length in samples (rounded to a power of two)")
	future := flag.Int("future", 1024, "forecast tail length in samples")
	order := flag.Int("order", 20, "autoregressive model order")
	interval := flag.Duration("interval", 50*time.Millisecond, "estimator refit interval")
	low := flag.Float64("low", 4, "bandpass low cutoff in Hz")
	high := flag.Float64("high", 8, "bandpass high cutoff in Hz")
	envelope := flag.Bool("envelope", false, "report envelope tracking instead of phase")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: phasesim [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Streams a synthetic sinusoid through the phase engine and reports\n")
		fmt.Fprintf(os.Stderr, "phase-tracking error statistics against the known ground truth.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  phasesim -freq 7 -seconds 10\n")
		fmt.Fprintf(os.Stderr, "  phasesim -noise 0.2 -block 256\n")
		fmt.Fprintf(os.Stderr, "  phasesim -envelope\n")
	}
	flag.Parse()

	cfg := phase.Config{
		ProcessLength: *length,
		NumFuture:     *future,
		ModelOrder:    *order,
		CalcInterval:  *interval,
		GlitchLimit:   200,
		LowCut:        *low,
		HighCut:       *high,
	}
	if *envelope {
		cfg.Output = phase.OutputEnvelope
	}

	eng, err := phase.New(cfg, phase.WithStatusFunc(func(msg string) {
		fmt.Fprintln(os.Stderr, "status:", msg)
	}))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := eng.SetChannels([]phase.ChannelInfo{{SampleRate: *rate}}); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	p := simParams{
		rate:          *rate,
		freq:          *freq,
		amp:           *amp,
		noise:         *noise,
		seed:          *seed,
		block:         *block,
		evalSamples:   int(*seconds * *rate),
		settleSamples: int(*settle * *rate),
		envelope:      *envelope,
	}
	if p.block < 1 || p.evalSamples < 2 {
		fmt.Fprintf(os.Stderr, "error: evaluation window too short\n")
		os.Exit(2)
	}

	fmt.Printf("phasesim: %.0f Hz, sine %.2f Hz, band %.2f-%.2f Hz, window %d (future %d, order %d)\n\n",
		*rate, *freq, eng.LowCut(), eng.HighCut(), eng.ProcessLength(), eng.NumFuture(), eng.ModelOrder())

	if err := eng.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer eng.Stop()

	errs, err := run(eng, p)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	report(errs, p.envelope)
}

type simParams struct {
	rate, freq, amp, noise float64
	seed                   uint64
	block                  int
	evalSamples            int
	settleSamples          int
	envelope               bool
}

// run streams the synthetic signal until the model is live, skips the
// settling period, and collects one tracking error per evaluated sample.
func run(eng *phase.Engine, p simParams) ([]float64, error) {
	rng := rand.New(rand.NewPCG(p.seed, 0))
	omega := 2 * math.Pi * p.freq / p.rate
	slopeDeg := 360 * p.freq / p.rate

	buf := make([]float64, p.block)
	buffers := [][]float64{buf}
	n := 0
	fill := func() int {
		first := n
		for i := range buf {
			buf[i] = p.amp * math.Sin(omega*float64(n))
			if p.noise > 0 {
				buf[i] += (rng.Float64()*2 - 1) * p.noise
			}
			n++
		}
		return first
	}

	deadline := time.Now().Add(10 * time.Second)
	for {
		fill()
		if err := eng.Process(buffers); err != nil {
			return nil, err
		}
		state, err := eng.ChannelState(0)
		if err != nil {
			return nil, err
		}
		if state == phase.StateFullWithModel {
			break
		}
		if time.Now().After(deadline) {
			return nil, errors.New("model was never published")
		}
	}

	evalStart := n + p.settleSamples
	errs := make([]float64, 0, p.evalSamples)
	for len(errs) < p.evalSamples {
		first := fill()
		if err := eng.Process(buffers); err != nil {
			return nil, err
		}
		for i, got := range buf {
			abs := first + i
			if abs < evalStart || len(errs) == p.evalSamples {
				continue
			}
			if p.envelope {
				errs = append(errs, got-p.amp)
				continue
			}
			// The analytic phase of a sine lags its argument by 90 degrees.
			want := slopeDeg*float64(abs) - 90
			errs = append(errs, foldDeg(got-want))
		}
	}
	return errs, nil
}

// foldDeg folds a degree value into [-180, 180).
func foldDeg(d float64) float64 {
	d = math.Mod(d, 360)
	if d < -180 {
		d += 360
	} else if d >= 180 {
		d -= 360
	}
	return d
}

func report(errs []float64, envelope bool) {
	maxAbs := 0.0
	within := 0
	threshold := 5.0
	if envelope {
		threshold = 0.05
	}
	for _, e := range errs {
		a := math.Abs(e)
		if a > maxAbs {
			maxAbs = a
		}
		if a <= threshold {
			within++
		}
	}
	mean, std := stat.MeanStdDev(errs, nil)
	rms := math.Sqrt(mean*mean + std*std)

	unit := " [deg]"
	thresholdLabel := "within 5 deg"
	if envelope {
		unit = ""
		thresholdLabel = "within 0.05"
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"Metric", "Value"},
		{"------", "-----"},
		{"samples evaluated", fmt.Sprintf("%d", len(errs))},
		{"mean offset" + unit, fmt.Sprintf("%+.4f", mean)},
		{"rms error" + unit, fmt.Sprintf("%.4f", rms)},
		{"jitter (std)" + unit, fmt.Sprintf("%.4f", std)},
		{"max |error|" + unit, fmt.Sprintf("%.4f", maxAbs)},
		{thresholdLabel, fmt.Sprintf("%.1f%%", 100*float64(within)/float64(len(errs)))},
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(tw, "%s\t%s\n", r[0], r[1]); err != nil {
			fmt.Fprintf(os.Stderr, "error: failed to write output row: %v\n", err)
			return
		}
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to flush output: %v\n", err)
	}
}
