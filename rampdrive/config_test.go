package rampdrive

import (
	"testing"
	"time"

	"go.viam.com/test"
)

func intPtr(v int) *int {
	return &v
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{
		Pins:      PinConfig{InA: "11", InB: "13", PWM: "15"},
		BoardName: "local",
	}
	deps, _, err := cfg.Validate("path")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, deps, test.ShouldResemble, []string{"local"})

	noBoard := cfg
	noBoard.BoardName = ""
	_, _, err = noBoard.Validate("path")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "board")

	noPin := cfg
	noPin.Pins.PWM = ""
	_, _, err = noPin.Validate("path")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "pins.pwm")

	badMin := cfg
	badMin.MinStart = 101
	_, _, err = badMin.Validate("path")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "min_start")
}

func TestTimingParametersValidate(t *testing.T) {
	var tp *timingParameters
	test.That(t, tp.validate(), test.ShouldBeNil)
	test.That(t, (&timingParameters{}).validate(), test.ShouldBeNil)

	good := &timingParameters{QuickMs: intPtr(500), DirectionDelayMs: intPtr(0)}
	test.That(t, good.validate(), test.ShouldBeNil)

	bad := &timingParameters{TickMs: intPtr(0)}
	err := bad.validate()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "tick_ms")

	bad = &timingParameters{MomentumAccelMs: intPtr(120000)}
	test.That(t, bad.validate(), test.ShouldNotBeNil)
}

func TestKickParametersValidate(t *testing.T) {
	var kp *kickParameters
	test.That(t, kp.validate(), test.ShouldBeNil)

	good := &kickParameters{Throttle: intPtr(60), DurationMs: intPtr(200)}
	test.That(t, good.validate(), test.ShouldBeNil)

	bad := &kickParameters{Throttle: intPtr(101)}
	err := bad.validate()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "throttle")

	bad = &kickParameters{DurationMs: intPtr(maxKickDurationMs + 1)}
	test.That(t, bad.validate(), test.ShouldNotBeNil)
}

func TestResolveTimings(t *testing.T) {
	defaults := resolveTimings(nil)
	test.That(t, defaults.momentumAccel, test.ShouldEqual, defaultMomentumAccel)
	test.That(t, defaults.quick, test.ShouldEqual, defaultQuick)
	test.That(t, defaults.tickPeriod, test.ShouldEqual, defaultTickPeriod)

	// overrides replace only the fields that are set
	merged := resolveTimings(&timingParameters{
		QuickMs:     intPtr(300),
		LinkGraceMs: intPtr(1000),
	})
	test.That(t, merged.quick, test.ShouldEqual, 300*time.Millisecond)
	test.That(t, merged.linkGrace, test.ShouldEqual, time.Second)
	test.That(t, merged.momentumAccel, test.ShouldEqual, defaultMomentumAccel)
	test.That(t, merged.brake, test.ShouldEqual, defaultBrake)
}

func TestResolveKick(t *testing.T) {
	defaults := resolveKick(nil)
	test.That(t, defaults.throttle, test.ShouldEqual, 0)
	test.That(t, defaults.duration, test.ShouldEqual, time.Duration(0))
	test.That(t, defaults.rampDown, test.ShouldEqual, defaultKickRampDown)
	test.That(t, defaults.maxApply, test.ShouldEqual, defaultKickMaxApply)

	merged := resolveKick(&kickParameters{
		Throttle:   intPtr(70),
		DurationMs: intPtr(150),
		RampDownMs: intPtr(0),
	})
	test.That(t, merged.throttle, test.ShouldEqual, 70)
	test.That(t, merged.duration, test.ShouldEqual, 150*time.Millisecond)
	test.That(t, merged.rampDown, test.ShouldEqual, time.Duration(0))
	test.That(t, merged.maxApply, test.ShouldEqual, defaultKickMaxApply)
}
