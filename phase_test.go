package phase

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/algo-phase/internal/testutil"
)

// testConfig returns a small, fast geometry: a 512-sample window with a
// 384-sample history region and a quick estimator.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ProcessLength = 512
	cfg.NumFuture = 128
	cfg.ModelOrder = 10
	cfg.CalcInterval = time.Millisecond
	return cfg
}

func newTestEngine(t testing.TB, cfg Config, infos []ChannelInfo) *Engine {
	t.Helper()
	eng, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := eng.SetChannels(infos); err != nil {
		t.Fatalf("SetChannels failed: %v", err)
	}
	return eng
}

func waitForState(t testing.TB, eng *Engine, index int, want ChannelState) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		got, err := eng.ChannelState(index)
		if err != nil {
			t.Fatalf("ChannelState(%d): %v", index, err)
		}
		if got == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("channel %d stuck in %v, want %v", index, got, want)
		}
		time.Sleep(time.Millisecond)
	}
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

func TestNewDefaults(t *testing.T) {
	eng, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if got := eng.ProcessLength(); got != 8192 {
		t.Errorf("ProcessLength = %d, want 8192", got)
	}
	if got := eng.NumFuture(); got != 1024 {
		t.Errorf("NumFuture = %d, want 1024", got)
	}
	if got := eng.HistoryLength(); got != 7168 {
		t.Errorf("HistoryLength = %d, want 7168", got)
	}
	if got := eng.ModelOrder(); got != 20 {
		t.Errorf("ModelOrder = %d, want 20", got)
	}
	if got := eng.CalcInterval(); got != 50*time.Millisecond {
		t.Errorf("CalcInterval = %v, want 50ms", got)
	}
	if got := eng.GlitchLimit(); got != 200 {
		t.Errorf("GlitchLimit = %d, want 200", got)
	}
	if got := eng.LowCut(); got != 4 {
		t.Errorf("LowCut = %v, want 4", got)
	}
	if got := eng.HighCut(); got != 8 {
		t.Errorf("HighCut = %v, want 8", got)
	}
	if eng.IncludeAux() {
		t.Error("IncludeAux = true, want false")
	}
	if got := eng.Output(); got != OutputPhaseDegrees {
		t.Errorf("Output = %v, want %v", got, OutputPhaseDegrees)
	}
	if got := eng.ChannelCount(); got != 0 {
		t.Errorf("ChannelCount = %d, want 0", got)
	}
	if eng.Running() {
		t.Error("Running = true for a fresh engine")
	}
}

func TestNewClampsConfig(t *testing.T) {
	t.Run("zero", func(t *testing.T) {
		eng, err := New(Config{})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		if got := eng.ProcessLength(); got != 512 {
			t.Errorf("ProcessLength = %d, want 512", got)
		}
		if got := eng.NumFuture(); got != 0 {
			t.Errorf("NumFuture = %d, want 0", got)
		}
		if got := eng.ModelOrder(); got != 1 {
			t.Errorf("ModelOrder = %d, want 1", got)
		}
		if got := eng.CalcInterval(); got != time.Millisecond {
			t.Errorf("CalcInterval = %v, want 1ms", got)
		}
		if got := eng.LowCut(); got != 0.01 {
			t.Errorf("LowCut = %v, want 0.01", got)
		}
		if got := eng.HighCut(); math.Abs(got-0.02) > 1e-12 {
			t.Errorf("HighCut = %v, want 0.02", got)
		}
	})

	t.Run("extreme", func(t *testing.T) {
		eng, err := New(Config{
			ProcessLength: 1 << 20,
			NumFuture:     1 << 30,
			ModelOrder:    1000,
			CalcInterval:  -time.Second,
			GlitchLimit:   -7,
			LowCut:        -3,
			HighCut:       99999,
		})
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		if got := eng.ProcessLength(); got != 65536 {
			t.Errorf("ProcessLength = %d, want 65536", got)
		}
		if got := eng.ModelOrder(); got != 256 {
			t.Errorf("ModelOrder = %d, want 256", got)
		}
		if got := eng.NumFuture(); got != 65536-256 {
			t.Errorf("NumFuture = %d, want %d", got, 65536-256)
		}
		if got := eng.CalcInterval(); got != time.Millisecond {
			t.Errorf("CalcInterval = %v, want 1ms", got)
		}
		if got := eng.GlitchLimit(); got != 0 {
			t.Errorf("GlitchLimit = %d, want 0", got)
		}
		if got := eng.LowCut(); got != 0.01 {
			t.Errorf("LowCut = %v, want 0.01", got)
		}
		if got := eng.HighCut(); got != 10000 {
			t.Errorf("HighCut = %v, want 10000", got)
		}
	})
}

func TestNewInvalidOutputMode(t *testing.T) {
	if _, err := New(Config{Output: OutputMode(7)}); err == nil {
		t.Fatal("expected error for invalid output mode")
	}
}

func TestProcessChannelCountMismatch(t *testing.T) {
	eng := newTestEngine(t, testConfig(), []ChannelInfo{{SampleRate: 512}})
	bufs := [][]float64{make([]float64, 64), make([]float64, 64)}
	if err := eng.Process(bufs); !errors.Is(err, ErrChannelCount) {
		t.Fatalf("Process with 2 buffers = %v, want ErrChannelCount", err)
	}
	if err := eng.Process(nil); !errors.Is(err, ErrChannelCount) {
		t.Fatalf("Process with no buffers = %v, want ErrChannelCount", err)
	}
}

func TestOutputZeroUntilModel(t *testing.T) {
	eng := newTestEngine(t, testConfig(), []ChannelInfo{{SampleRate: 512}})
	src := testutil.DeterministicSine(6, 512, 1, 512)
	zero := make([]float64, 128)

	// The estimator never runs, so the channel fills but no model arrives
	// and every output stays at exact zero.
	states := []ChannelState{StateNotFull, StateNotFull, StateFullNoModel, StateFullNoModel}
	for i, want := range states {
		buf := make([]float64, 128)
		copy(buf, src[i*128:(i+1)*128])
		if err := eng.Process([][]float64{buf}); err != nil {
			t.Fatalf("Process chunk %d: %v", i, err)
		}
		testutil.RequireSliceNearlyEqual(t, buf, zero, 0)
		got, err := eng.ChannelState(0)
		if err != nil {
			t.Fatalf("ChannelState: %v", err)
		}
		if got != want {
			t.Fatalf("after chunk %d: state = %v, want %v", i, got, want)
		}
	}
}

func TestPhaseTrackingSinusoid(t *testing.T) {
	const (
		sampleRate = 512.0
		freq       = 6.0
		chunk      = 128
	)
	eng := newTestEngine(t, testConfig(), []ChannelInfo{{SampleRate: sampleRate}})
	if err := eng.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer eng.Stop()

	src := testutil.DeterministicSine(freq, sampleRate, 1, 8*chunk)
	pos := 0
	for ; pos < 3*chunk; pos += chunk {
		buf := make([]float64, chunk)
		copy(buf, src[pos:pos+chunk])
		if err := eng.Process([][]float64{buf}); err != nil {
			t.Fatalf("Process: %v", err)
		}
	}
	waitForState(t, eng, 0, StateFullWithModel)

	var phases []float64
	for ; pos < 8*chunk; pos += chunk {
		buf := make([]float64, chunk)
		copy(buf, src[pos:pos+chunk])
		if err := eng.Process([][]float64{buf}); err != nil {
			t.Fatalf("Process: %v", err)
		}
		testutil.RequireFinite(t, buf)
		phases = append(phases, buf...)
	}

	// Successive increments, folded back to [-180, 180), must match the
	// oscillation rate no matter how the wrap bookkeeping shifted each
	// buffer.
	slope := 360 * freq / sampleRate
	diffs := make([]float64, len(phases)-1)
	for i := range diffs {
		diffs[i] = foldDeg(phases[i+1] - phases[i])
		if math.Abs(diffs[i]-slope) > 1 {
			t.Fatalf("increment %d = %.3f deg, want %.3f", i, diffs[i], slope)
		}
	}

	// Rebuilding the ramp from the folded increments gives a clean line.
	xs := make([]float64, len(phases))
	unwrapped := make([]float64, len(phases))
	unwrapped[0] = foldDeg(phases[0])
	for i := 1; i < len(phases); i++ {
		xs[i] = float64(i)
		unwrapped[i] = unwrapped[i-1] + diffs[i-1]
	}
	alpha, beta := stat.LinearRegression(xs, unwrapped, nil, false)
	if math.Abs(beta-slope) > 0.05 {
		t.Fatalf("regression slope = %.4f deg/sample, want %.4f", beta, slope)
	}

	// A sine's analytic phase lags its argument by 90 degrees. The first
	// live sample is number 384 = 4.5 cycles = 1620 degrees, so its phase
	// folds to 90.
	if d := math.Abs(foldDeg(alpha - 90)); d > 15 {
		t.Fatalf("start phase off by %.2f deg", d)
	}
}

func TestEnvelopeMode(t *testing.T) {
	const (
		sampleRate = 512.0
		freq       = 6.0
		chunk      = 128
	)
	cfg := testConfig()
	cfg.Output = OutputEnvelope
	eng := newTestEngine(t, cfg, []ChannelInfo{{SampleRate: sampleRate}})
	if err := eng.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer eng.Stop()

	src := testutil.DeterministicSine(freq, sampleRate, 1, 8*chunk)
	pos := 0
	for ; pos < 3*chunk; pos += chunk {
		buf := make([]float64, chunk)
		copy(buf, src[pos:pos+chunk])
		if err := eng.Process([][]float64{buf}); err != nil {
			t.Fatalf("Process: %v", err)
		}
	}
	waitForState(t, eng, 0, StateFullWithModel)

	var last []float64
	for ; pos < 8*chunk; pos += chunk {
		buf := make([]float64, chunk)
		copy(buf, src[pos:pos+chunk])
		if err := eng.Process([][]float64{buf}); err != nil {
			t.Fatalf("Process: %v", err)
		}
		last = buf
	}

	// The filter passes the center frequency at unity, so the analytic
	// envelope of a unit sine sits near 1 once everything has settled.
	testutil.RequireFinite(t, last)
	for i, v := range last {
		if v < 0.85 || v > 1.15 {
			t.Fatalf("envelope[%d] = %.4f, want about 1", i, v)
		}
	}
}

func TestOverlongBufferWarnsOnce(t *testing.T) {
	var msgs []string
	eng, err := New(testConfig(), WithStatusFunc(func(msg string) {
		msgs = append(msgs, msg)
	}))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := eng.SetChannels([]ChannelInfo{{SampleRate: 512}}); err != nil {
		t.Fatalf("SetChannels failed: %v", err)
	}

	// History region is 384 samples; a 500-sample buffer overruns it.
	long := testutil.DeterministicNoise(3, 1, 500)
	buf := make([]float64, 500)
	copy(buf, long)
	if err := eng.Process([][]float64{buf}); err != nil {
		t.Fatalf("Process: %v", err)
	}
	testutil.RequireSliceNearlyEqual(t, buf, make([]float64, 500), 0)
	if got, _ := eng.ChannelState(0); got != StateFullNoModel {
		t.Fatalf("state = %v, want %v", got, StateFullNoModel)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d status messages, want 1", len(msgs))
	}
	if !strings.Contains(msgs[0], "input buffer exceeds") {
		t.Fatalf("unexpected status message %q", msgs[0])
	}

	// Still just one message for repeated overruns.
	copy(buf, long)
	if err := eng.Process([][]float64{buf}); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d status messages after second overrun, want 1", len(msgs))
	}

	// A Start/Stop cycle re-arms the warning.
	if err := eng.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	eng.Stop()
	copy(buf, long)
	if err := eng.Process([][]float64{buf}); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d status messages after restart, want 2", len(msgs))
	}
}

func TestDisabledChannelPassthrough(t *testing.T) {
	infos := []ChannelInfo{{SampleRate: 512}, {SampleRate: 512}}
	eng := newTestEngine(t, testConfig(), infos)
	if err := eng.SetChannelEnabled(1, false); err != nil {
		t.Fatalf("SetChannelEnabled failed: %v", err)
	}
	if enabled, err := eng.ChannelEnabled(1); err != nil || enabled {
		t.Fatalf("ChannelEnabled(1) = %v, %v, want false", enabled, err)
	}

	buf0 := testutil.DeterministicNoise(1, 1, 128)
	buf1 := testutil.DeterministicNoise(2, 1, 128)
	want1 := make([]float64, 128)
	copy(want1, buf1)

	if err := eng.Process([][]float64{buf0, buf1}); err != nil {
		t.Fatalf("Process: %v", err)
	}
	testutil.RequireSliceNearlyEqual(t, buf0, make([]float64, 128), 0)
	testutil.RequireSliceNearlyEqual(t, buf1, want1, 0)

	if got, _ := eng.ChannelState(1); got != StateNotFull {
		t.Fatalf("disabled channel state = %v, want %v", got, StateNotFull)
	}

	if err := eng.SetChannelEnabled(-1, true); !errors.Is(err, ErrChannelIndex) {
		t.Fatalf("SetChannelEnabled(-1) = %v, want ErrChannelIndex", err)
	}
	if err := eng.SetChannelEnabled(2, true); !errors.Is(err, ErrChannelIndex) {
		t.Fatalf("SetChannelEnabled(2) = %v, want ErrChannelIndex", err)
	}
	if _, err := eng.ChannelEnabled(5); !errors.Is(err, ErrChannelIndex) {
		t.Fatalf("ChannelEnabled(5) = %v, want ErrChannelIndex", err)
	}
}

func TestAuxChannelGating(t *testing.T) {
	infos := []ChannelInfo{{SampleRate: 512}, {SampleRate: 512, Aux: true}}
	eng := newTestEngine(t, testConfig(), infos)
	src := testutil.DeterministicSine(6, 512, 1, 384)

	feed := func() {
		t.Helper()
		for pos := 0; pos < 384; pos += 128 {
			buf0 := make([]float64, 128)
			buf1 := make([]float64, 128)
			copy(buf0, src[pos:pos+128])
			copy(buf1, src[pos:pos+128])
			if err := eng.Process([][]float64{buf0, buf1}); err != nil {
				t.Fatalf("Process: %v", err)
			}
		}
	}

	feed()
	if got, _ := eng.ChannelState(0); got != StateFullNoModel {
		t.Fatalf("main channel state = %v, want %v", got, StateFullNoModel)
	}
	if got, _ := eng.ChannelState(1); got != StateNotFull {
		t.Fatalf("aux channel state = %v, want %v (excluded by default)", got, StateNotFull)
	}

	eng.SetIncludeAux(true)
	feed()
	if got, _ := eng.ChannelState(1); got != StateFullNoModel {
		t.Fatalf("aux channel state after include = %v, want %v", got, StateFullNoModel)
	}
}

func TestSetChannelsPreservesEnables(t *testing.T) {
	eng := newTestEngine(t, testConfig(), []ChannelInfo{{SampleRate: 512}, {SampleRate: 512}})
	if err := eng.SetChannelEnabled(0, false); err != nil {
		t.Fatalf("SetChannelEnabled failed: %v", err)
	}

	infos := []ChannelInfo{{SampleRate: 512}, {SampleRate: 512}, {SampleRate: 1024}}
	if err := eng.SetChannels(infos); err != nil {
		t.Fatalf("SetChannels failed: %v", err)
	}
	wantEnabled := []bool{false, true, true}
	for i, want := range wantEnabled {
		if got, err := eng.ChannelEnabled(i); err != nil || got != want {
			t.Fatalf("ChannelEnabled(%d) = %v, %v, want %v", i, got, err, want)
		}
	}

	// A bad sample rate fails without touching the registered set.
	if err := eng.SetChannels([]ChannelInfo{{SampleRate: 0}}); err == nil {
		t.Fatal("expected error for zero sample rate")
	} else if !strings.Contains(err.Error(), "channel 0") {
		t.Fatalf("error %q does not name the channel", err)
	}
	if got := eng.ChannelCount(); got != 3 {
		t.Fatalf("ChannelCount after failed SetChannels = %d, want 3", got)
	}
}
