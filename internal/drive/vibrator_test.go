package drive

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/relabs-tech/lra_haptics/internal/calibration"
	"github.com/relabs-tech/lra_haptics/internal/hwapi"
	"github.com/relabs-tech/lra_haptics/internal/motion"
)

func u32(v uint32) *uint32 { return &v }
func str(v string) *string { return &v }

// dynamicValues gives effect clamps [28 55 60 90 112] and steady clamps
// [125 125 64] at period 262.
func dynamicValues() calibration.Values {
	return calibration.Values{
		DynamicConfig: true,
		LraPeriod:     u32(262),
		EffectCoeffs:  []float64{0.5, 0, 0, 0},
		SteadyCoeffs:  []float64{0, 0, 0.78125, 0.5},
		SteadyTargetG: []float64{2.15, 1.145, 1.5},
	}
}

func newTestVibrator(t *testing.T, v calibration.Values, ms MotionSource) (*Vibrator, *hwapi.Mock) {
	t.Helper()
	store, err := calibration.FromValues(v)
	if err != nil {
		t.Fatalf("FromValues: %v", err)
	}
	hw := hwapi.NewMock()
	vib := New(hw, store, ms, DefaultBounds)
	hw.Reset()
	return vib, hw
}

func ops(ws []hwapi.Write) []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.String()
	}
	return out
}

func TestNewInitialisesAmplifier(t *testing.T) {
	store, _ := calibration.FromValues(calibration.Values{
		Autocal:   str("13 109 26"),
		LraPeriod: u32(270),
	})
	hw := hwapi.NewMock()
	vib := New(hw, store, nil, DefaultBounds)

	want := []string{"state=1", "autocal=13 109 26", "ol_lra_period=270", "lp_trigger_effect=1"}
	if got := ops(hw.Writes()); !reflect.DeepEqual(got, want) {
		t.Errorf("writes = %v, want %v", got, want)
	}
	if vib.Tables() != nil {
		t.Error("tables built with dynamic config off")
	}
}

func TestNewSurvivesFailedInit(t *testing.T) {
	store, _ := calibration.FromValues(dynamicValues())
	hw := hwapi.NewMock()
	hw.FailOn(hwapi.OpState, errors.New("EIO"))
	hw.FailOn(hwapi.OpLpTrigger, errors.New("EIO"))
	vib := New(hw, store, nil, DefaultBounds)
	if vib.Tables() == nil {
		t.Fatal("tables not built")
	}
	if _, ok := hw.Last(hwapi.OpOlLraPeriod); ok {
		t.Error("period written at construction with dynamic config on")
	}
}

func TestOnWriteSequence(t *testing.T) {
	vib, hw := newTestVibrator(t, dynamicValues(), nil)

	p, err := vib.On(500, nil)
	if err != nil {
		t.Fatalf("On: %v", err)
	}
	want := []string{
		"ctrl_loop=0", "duration=500", "mode=rtp",
		"lra_wave_shape=0", "od_clamp=125", "ol_lra_period=262",
		"activate=1",
	}
	if got := ops(hw.Writes()); !reflect.DeepEqual(got, want) {
		t.Errorf("writes = %v, want %v", got, want)
	}
	if p.Thermal != ThermalNormal || p.Loop != hwapi.LoopClosed {
		t.Errorf("plan = %+v", p)
	}
}

func TestOnShortVibrationUsesOpenLoop(t *testing.T) {
	vib, hw := newTestVibrator(t, dynamicValues(), nil)
	if _, err := vib.On(20, nil); err != nil {
		t.Fatalf("On: %v", err)
	}
	if v, _ := hw.Last(hwapi.OpCtrlLoop); v != "1" {
		t.Errorf("ctrl_loop = %s, want open", v)
	}
}

func TestOnAdaptsToTemperature(t *testing.T) {
	tests := []struct {
		name       string
		milliC     int32
		state      motion.State
		wantClamp  string
		wantPeriod string
	}{
		{"hot static", DefaultBounds.Upper + 1, motion.Static, "64", "262"},
		{"hot moving", DefaultBounds.Upper + 1, motion.Moving, "125", "262"},
		{"cold", DefaultBounds.Lower - 1, motion.Static, "90", "280"},
		{"normal", 7500, motion.Static, "125", "262"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vib, hw := newTestVibrator(t, dynamicValues(), &fakeMotion{state: tt.state})
			hw.SetTemperature(tt.milliC)
			if _, err := vib.On(500, nil); err != nil {
				t.Fatalf("On: %v", err)
			}
			if v, _ := hw.Last(hwapi.OpOdClamp); v != tt.wantClamp {
				t.Errorf("od_clamp = %s, want %s", v, tt.wantClamp)
			}
			if v, _ := hw.Last(hwapi.OpOlLraPeriod); v != tt.wantPeriod {
				t.Errorf("ol_lra_period = %s, want %s", v, tt.wantPeriod)
			}
		})
	}
}

func TestOnTemperatureFailureIsNormal(t *testing.T) {
	fm := &fakeMotion{state: motion.Static}
	vib, hw := newTestVibrator(t, dynamicValues(), fm)
	hw.SetTemperatureError(errors.New("no sensor"))
	p, err := vib.On(500, nil)
	if err != nil {
		t.Fatalf("On: %v", err)
	}
	if p.Thermal != ThermalNormal || p.Clamp != 125 || fm.calls != 0 {
		t.Errorf("plan = %+v, classifier calls %d", p, fm.calls)
	}
}

func TestOnWriteFailureAborts(t *testing.T) {
	vib, hw := newTestVibrator(t, dynamicValues(), nil)
	eio := errors.New("EIO")
	hw.FailOn(hwapi.OpMode, eio)

	_, err := vib.On(500, nil)
	var hwErr *HardwareWriteError
	if !errors.As(err, &hwErr) || hwErr.Op != hwapi.OpMode {
		t.Fatalf("err = %v, want HardwareWriteError on mode", err)
	}
	if !errors.Is(err, eio) {
		t.Error("cause not wrapped")
	}
	if _, ok := hw.Last(hwapi.OpActivate); ok {
		t.Error("activated after failed write")
	}
	if vib.Status().LastPlan != nil {
		t.Error("failed plan recorded")
	}
}

func TestOnWithoutDynamicConfig(t *testing.T) {
	vib, hw := newTestVibrator(t, calibration.Values{}, &fakeMotion{state: motion.Static})
	hw.SetTemperature(40000)
	if _, err := vib.On(500, nil); err != nil {
		t.Fatalf("On: %v", err)
	}
	want := []string{"ctrl_loop=0", "duration=500", "mode=rtp", "activate=1"}
	if got := ops(hw.Writes()); !reflect.DeepEqual(got, want) {
		t.Errorf("writes = %v, want %v", got, want)
	}
}

func TestOnRejectsBadRequests(t *testing.T) {
	vib, hw := newTestVibrator(t, dynamicValues(), nil)
	if _, err := vib.On(100, func() {}); !errors.Is(err, ErrUnsupportedOperation) {
		t.Errorf("callback: err = %v", err)
	}
	if _, err := vib.On(-1, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("negative duration: err = %v", err)
	}
	if n := len(hw.Writes()); n != 0 {
		t.Errorf("%d writes for rejected requests", n)
	}
}

func TestPerform(t *testing.T) {
	tests := []struct {
		effect   Effect
		strength Strength
		seq      string
		clamp    string
		duration uint32
	}{
		{EffectTextureTick, StrengthStrong, "2 0", "28", calibration.DefaultTickDuration},
		{EffectTick, StrengthLight, "2 0", "55", calibration.DefaultTickDuration},
		{EffectClick, StrengthLight, "1 0", "60", calibration.DefaultClickDuration},
		{EffectClick, StrengthMedium, "1 0", "90", calibration.DefaultClickDuration},
		{EffectDoubleClick, StrengthLight, "3 0", "60", calibration.DefaultDoubleClickDuration},
		{EffectHeavyClick, StrengthStrong, "4 0", "112", calibration.DefaultHeavyClickDuration},
	}
	for _, tt := range tests {
		t.Run(tt.effect.String()+"/"+tt.strength.String(), func(t *testing.T) {
			vib, hw := newTestVibrator(t, dynamicValues(), nil)
			d, err := vib.Perform(tt.effect, tt.strength, nil)
			if err != nil {
				t.Fatalf("Perform: %v", err)
			}
			if d != tt.duration {
				t.Errorf("duration = %d, want %d", d, tt.duration)
			}
			got := ops(hw.Writes())
			if got[0] != "set_sequencer="+tt.seq {
				t.Errorf("first write = %s", got[0])
			}
			if v, _ := hw.Last(hwapi.OpOdClamp); v != tt.clamp {
				t.Errorf("od_clamp = %s, want %s", v, tt.clamp)
			}
			if v, _ := hw.Last(hwapi.OpMode); v != hwapi.ModeWaveform {
				t.Errorf("mode = %s", v)
			}
			if v, _ := hw.Last(hwapi.OpCtrlLoop); v != "1" {
				t.Errorf("ctrl_loop = %s, want open", v)
			}
		})
	}
}

// Medium and strong currently resolve to the same row. This documents the
// behaviour so a change to it is deliberate.
func TestPerformMediumAndStrongShareRow(t *testing.T) {
	for _, e := range SupportedEffects() {
		medium, _, err := effectRow(e, StrengthMedium)
		if err != nil {
			t.Fatal(err)
		}
		strong, _, _ := effectRow(e, StrengthStrong)
		if medium != strong {
			t.Errorf("%v: medium row %d, strong row %d", e, medium, strong)
		}
	}
}

func TestPerformRejectsUnknownInput(t *testing.T) {
	vib, hw := newTestVibrator(t, dynamicValues(), nil)
	if _, err := vib.Perform(Effect(42), StrengthLight, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("effect: err = %v", err)
	}
	if _, err := vib.Perform(EffectClick, Strength(9), nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("strength: err = %v", err)
	}
	if _, err := vib.Perform(EffectClick, StrengthLight, func() {}); !errors.Is(err, ErrUnsupportedOperation) {
		t.Errorf("callback: err = %v", err)
	}
	if n := len(hw.Writes()); n != 0 {
		t.Errorf("%d writes for rejected requests", n)
	}
}

func TestSetAmplitude(t *testing.T) {
	vib, hw := newTestVibrator(t, dynamicValues(), nil)
	for a, want := range map[float64]string{0.5: "64", 1: "127", 0.01: "1"} {
		if err := vib.SetAmplitude(a); err != nil {
			t.Fatalf("SetAmplitude(%v): %v", a, err)
		}
		if v, _ := hw.Last(hwapi.OpRtpInput); v != want {
			t.Errorf("SetAmplitude(%v) wrote %s, want %s", a, v, want)
		}
	}

	hw.Reset()
	for _, a := range []float64{0, -0.5, 1.01, math.NaN()} {
		if err := vib.SetAmplitude(a); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("SetAmplitude(%v) err = %v", a, err)
		}
	}
	if n := len(hw.Writes()); n != 0 {
		t.Errorf("%d writes for rejected amplitudes", n)
	}
}

func TestOff(t *testing.T) {
	vib, hw := newTestVibrator(t, dynamicValues(), nil)
	if err := vib.Off(); err != nil {
		t.Fatal(err)
	}
	if v, _ := hw.Last(hwapi.OpActivate); v != "0" {
		t.Errorf("activate = %s", v)
	}
	hw.FailOn(hwapi.OpActivate, errors.New("EIO"))
	var hwErr *HardwareWriteError
	if err := vib.Off(); !errors.As(err, &hwErr) {
		t.Errorf("err = %v", err)
	}
}

func TestCapabilitiesAndResonance(t *testing.T) {
	vib, hw := newTestVibrator(t, dynamicValues(), nil)
	c := vib.Capabilities()
	if !c.Has(CapAmplitudeControl) || !c.Has(CapResonantFrequency) {
		t.Errorf("capabilities = %b", c)
	}
	hw.SetRtpSupport(false)
	if vib.Capabilities().Has(CapAmplitudeControl) {
		t.Error("amplitude control without RTP input")
	}

	f, err := vib.ResonantFrequency()
	if err != nil || math.Abs(f-155.06) > 0.01 {
		t.Errorf("ResonantFrequency = %v, %v", f, err)
	}

	uncal, _ := newTestVibrator(t, calibration.Values{}, nil)
	if _, err := uncal.ResonantFrequency(); !errors.Is(err, ErrNotCalibrated) {
		t.Errorf("uncalibrated err = %v", err)
	}
}

func TestUnsupportedOperations(t *testing.T) {
	vib, _ := newTestVibrator(t, dynamicValues(), nil)
	_, qErr := vib.QFactor()
	errs := []error{
		vib.SetExternalControl(true),
		vib.AlwaysOnEnable(0, EffectClick, StrengthLight),
		vib.AlwaysOnDisable(0),
		vib.Compose([]Effect{EffectClick}, nil),
		qErr,
	}
	for i, err := range errs {
		if !errors.Is(err, ErrUnsupportedOperation) {
			t.Errorf("op %d: err = %v", i, err)
		}
	}
}

func TestStatusRecordsLastPlan(t *testing.T) {
	vib, _ := newTestVibrator(t, dynamicValues(), nil)
	if _, err := vib.Perform(EffectHeavyClick, StrengthLight, nil); err != nil {
		t.Fatal(err)
	}
	s := vib.Status()
	if !s.Dynamic || s.LastPlan == nil || s.LastPlan.Effect != "heavy_click" || s.LastPlan.Row != 3 {
		t.Errorf("status = %+v", s)
	}
	if s.Durations.DoubleClick != calibration.DefaultDoubleClickDuration {
		t.Errorf("durations = %+v", s.Durations)
	}
}

func TestParseEffectAndStrength(t *testing.T) {
	if e, err := ParseEffect(" Double_Click "); err != nil || e != EffectDoubleClick {
		t.Errorf("ParseEffect = %v, %v", e, err)
	}
	if _, err := ParseEffect("buzz"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("ParseEffect(buzz) err = %v", err)
	}
	if s, err := ParseStrength("STRONG"); err != nil || s != StrengthStrong {
		t.Errorf("ParseStrength = %v, %v", s, err)
	}
}
