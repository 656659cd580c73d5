package rampdrive

import (
	"time"

	"github.com/pkg/errors"
	"go.viam.com/rdk/resource"
)

// PinConfig defines the wiring of the H-bridge.
type PinConfig struct {
	InA          string `json:"in_a"`
	InB          string `json:"in_b"`
	PWM          string `json:"pwm"`
	EnablePinLow string `json:"en_low,omitempty"`
}

// timingParameters overrides the ramp and failsafe timing, all in
// milliseconds. Nil fields keep their defaults.
type timingParameters struct {
	MomentumAccelMs  *int `json:"momentum_accel_ms,omitempty"`
	MomentumDecelMs  *int `json:"momentum_decel_ms,omitempty"`
	QuickMs          *int `json:"quick_ms,omitempty"`
	BrakeMs          *int `json:"brake_ms,omitempty"`
	DirectionDelayMs *int `json:"direction_delay_ms,omitempty"`
	LinkGraceMs      *int `json:"link_grace_ms,omitempty"`
	TickMs           *int `json:"tick_ms,omitempty"`
}

// validate checks that all non-nil timing overrides are within range.
func (tp *timingParameters) validate() error {
	if tp == nil {
		return nil
	}

	checkRange := func(name string, val *int, min, max int) error {
		if val != nil && (*val < min || *val > max) {
			return errors.Errorf("%s must be between %d and %d, got %d", name, min, max, *val)
		}
		return nil
	}

	if err := checkRange("momentum_accel_ms", tp.MomentumAccelMs, 1, 60000); err != nil {
		return err
	}
	if err := checkRange("momentum_decel_ms", tp.MomentumDecelMs, 1, 60000); err != nil {
		return err
	}
	if err := checkRange("quick_ms", tp.QuickMs, 1, 60000); err != nil {
		return err
	}
	if err := checkRange("brake_ms", tp.BrakeMs, 1, 60000); err != nil {
		return err
	}
	if err := checkRange("direction_delay_ms", tp.DirectionDelayMs, 0, 10000); err != nil {
		return err
	}
	if err := checkRange("link_grace_ms", tp.LinkGraceMs, 0, 60000); err != nil {
		return err
	}
	if err := checkRange("tick_ms", tp.TickMs, 1, 1000); err != nil {
		return err
	}

	return nil
}

// kickParameters is the persistent start-assist config. The wire protocol's K
// command mutates the same values at runtime.
type kickParameters struct {
	Throttle   *int `json:"throttle,omitempty"`
	DurationMs *int `json:"duration_ms,omitempty"`
	RampDownMs *int `json:"ramp_down_ms,omitempty"`
	MaxApply   *int `json:"max_apply,omitempty"`
}

func (kp *kickParameters) validate() error {
	if kp == nil {
		return nil
	}

	checkRange := func(name string, val *int, max int) error {
		if val != nil && (*val < 0 || *val > max) {
			return errors.Errorf("%s must be between 0 and %d, got %d", name, max, *val)
		}
		return nil
	}

	if err := checkRange("throttle", kp.Throttle, maxKickThrottle); err != nil {
		return err
	}
	if err := checkRange("duration_ms", kp.DurationMs, maxKickDurationMs); err != nil {
		return err
	}
	if err := checkRange("ramp_down_ms", kp.RampDownMs, maxKickRampDownMs); err != nil {
		return err
	}
	if err := checkRange("max_apply", kp.MaxApply, maxKickApply); err != nil {
		return err
	}

	return nil
}

// Config describes the configuration of the drive.
type Config struct {
	Pins       PinConfig         `json:"pins"`
	BoardName  string            `json:"board"`
	PWMFreq    uint              `json:"pwm_freq,omitempty"`
	MinStart   int               `json:"min_start,omitempty"`
	Kick       *kickParameters   `json:"kick,omitempty"`
	Timing     *timingParameters `json:"timing,omitempty"`
	IDFragment string            `json:"id_fragment,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (config *Config) Validate(path string) ([]string, []string, error) {
	var deps []string
	if config.BoardName == "" {
		return nil, nil, resource.NewConfigValidationFieldRequiredError(path, "board")
	}
	deps = append(deps, config.BoardName)
	if config.Pins.InA == "" {
		return nil, nil, resource.NewConfigValidationFieldRequiredError(path, "pins.in_a")
	}
	if config.Pins.InB == "" {
		return nil, nil, resource.NewConfigValidationFieldRequiredError(path, "pins.in_b")
	}
	if config.Pins.PWM == "" {
		return nil, nil, resource.NewConfigValidationFieldRequiredError(path, "pins.pwm")
	}
	if config.MinStart < 0 || config.MinStart > 100 {
		return nil, nil, errors.New("min_start must be between 0 and 100")
	}
	if err := config.Kick.validate(); err != nil {
		return nil, nil, err
	}
	if err := config.Timing.validate(); err != nil {
		return nil, nil, err
	}
	return deps, nil, nil
}

// Timing defaults.
const (
	defaultMomentumAccel  = 3000 * time.Millisecond
	defaultMomentumDecel  = 2500 * time.Millisecond
	defaultQuick          = 800 * time.Millisecond
	defaultBrake          = 1500 * time.Millisecond
	defaultDirectionDelay = 150 * time.Millisecond
	defaultLinkGrace      = 2500 * time.Millisecond
	defaultTickPeriod     = 10 * time.Millisecond
)

// Kick defaults: the pulse itself is off until configured, the recovery
// ramp-down and the apply ceiling are not.
const (
	defaultKickRampDown = 250 * time.Millisecond
	defaultKickMaxApply = 40
)

func resolveTimings(tp *timingParameters) timings {
	t := timings{
		momentumAccel:  defaultMomentumAccel,
		momentumDecel:  defaultMomentumDecel,
		quick:          defaultQuick,
		brake:          defaultBrake,
		directionDelay: defaultDirectionDelay,
		linkGrace:      defaultLinkGrace,
		tickPeriod:     defaultTickPeriod,
	}
	if tp == nil {
		return t
	}
	ms := func(dst *time.Duration, val *int) {
		if val != nil {
			*dst = time.Duration(*val) * time.Millisecond
		}
	}
	ms(&t.momentumAccel, tp.MomentumAccelMs)
	ms(&t.momentumDecel, tp.MomentumDecelMs)
	ms(&t.quick, tp.QuickMs)
	ms(&t.brake, tp.BrakeMs)
	ms(&t.directionDelay, tp.DirectionDelayMs)
	ms(&t.linkGrace, tp.LinkGraceMs)
	ms(&t.tickPeriod, tp.TickMs)
	return t
}

func resolveKick(kp *kickParameters) kickConfig {
	k := kickConfig{
		rampDown: defaultKickRampDown,
		maxApply: defaultKickMaxApply,
	}
	if kp == nil {
		return k
	}
	if kp.Throttle != nil {
		k.throttle = *kp.Throttle
	}
	if kp.DurationMs != nil {
		k.duration = time.Duration(*kp.DurationMs) * time.Millisecond
	}
	if kp.RampDownMs != nil {
		k.rampDown = time.Duration(*kp.RampDownMs) * time.Millisecond
	}
	if kp.MaxApply != nil {
		k.maxApply = *kp.MaxApply
	}
	return k
}
