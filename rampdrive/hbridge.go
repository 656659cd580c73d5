package rampdrive

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/rdk/components/board"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"
)

// Output is the boundary to the H-bridge driver stage.
type Output interface {
	// SetDrive applies a direction and a duty magnitude in [0,100].
	SetDrive(ctx context.Context, dir Direction, throttle int) error
	// EnableBridge switches the power stage on or off.
	EnableBridge(ctx context.Context, enabled bool) error
	// Status reads the direction and duty actually present on the hardware.
	Status(ctx context.Context) (Direction, int, error)
}

// gpioBridge drives an H-bridge through two direction legs and a PWM pin,
// with an optional active-low enable line.
type gpioBridge struct {
	inA    board.GPIOPin
	inB    board.GPIOPin
	pwm    board.GPIOPin
	enLow  board.GPIOPin
	logger logging.Logger
}

func newGPIOBridge(ctx context.Context, deps resource.Dependencies, conf *Config, logger logging.Logger) (Output, error) {
	b, err := board.FromDependencies(deps, conf.BoardName)
	if err != nil {
		return nil, errors.Errorf("%q is not a board", conf.BoardName)
	}

	g := &gpioBridge{logger: logger}
	if g.inA, err = b.GPIOPinByName(conf.Pins.InA); err != nil {
		return nil, err
	}
	if g.inB, err = b.GPIOPinByName(conf.Pins.InB); err != nil {
		return nil, err
	}
	if g.pwm, err = b.GPIOPinByName(conf.Pins.PWM); err != nil {
		return nil, err
	}
	if conf.Pins.EnablePinLow != "" {
		if g.enLow, err = b.GPIOPinByName(conf.Pins.EnablePinLow); err != nil {
			return nil, err
		}
	}
	if conf.PWMFreq > 0 {
		if err := g.pwm.SetPWMFreq(ctx, conf.PWMFreq, nil); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (g *gpioBridge) SetDrive(ctx context.Context, dir Direction, throttle int) error {
	throttle = clampInt(throttle, 0, 100)
	aHigh := dir == DirForward
	bHigh := dir == DirReverse
	return multierr.Combine(
		g.inA.Set(ctx, aHigh, nil),
		g.inB.Set(ctx, bHigh, nil),
		g.pwm.SetPWM(ctx, float64(throttle)/100, nil),
	)
}

// EnableBridge pulls the enable line low to activate the power stage. With no
// enable pin configured the bridge is considered always on.
func (g *gpioBridge) EnableBridge(ctx context.Context, enabled bool) error {
	if g.enLow == nil {
		return nil
	}
	return g.enLow.Set(ctx, !enabled, nil)
}

func (g *gpioBridge) Status(ctx context.Context) (Direction, int, error) {
	a, err := g.inA.Get(ctx, nil)
	if err != nil {
		return DirStop, 0, errors.Wrap(err, "error reading direction leg A")
	}
	bv, err := g.inB.Get(ctx, nil)
	if err != nil {
		return DirStop, 0, errors.Wrap(err, "error reading direction leg B")
	}
	duty, err := g.pwm.PWM(ctx, nil)
	if err != nil {
		return DirStop, 0, errors.Wrap(err, "error reading duty cycle")
	}

	throttle := clampInt(int(math.Round(duty*100)), 0, 100)
	switch {
	case throttle == 0:
		return DirStop, 0, nil
	case a && !bv:
		return DirForward, throttle, nil
	case bv && !a:
		return DirReverse, throttle, nil
	default:
		return DirStop, 0, nil
	}
}
