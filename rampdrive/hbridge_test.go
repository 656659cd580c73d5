package rampdrive

import (
	"context"
	"testing"

	"go.viam.com/rdk/logging"
	"go.viam.com/test"
)

// fakePin is an in-memory board.GPIOPin.
type fakePin struct {
	high bool
	duty float64
	freq uint
}

func (p *fakePin) Set(ctx context.Context, high bool, extra map[string]interface{}) error {
	p.high = high
	return nil
}

func (p *fakePin) Get(ctx context.Context, extra map[string]interface{}) (bool, error) {
	return p.high, nil
}

func (p *fakePin) PWM(ctx context.Context, extra map[string]interface{}) (float64, error) {
	return p.duty, nil
}

func (p *fakePin) SetPWM(ctx context.Context, dutyCyclePct float64, extra map[string]interface{}) error {
	p.duty = dutyCyclePct
	return nil
}

func (p *fakePin) PWMFreq(ctx context.Context, extra map[string]interface{}) (uint, error) {
	return p.freq, nil
}

func (p *fakePin) SetPWMFreq(ctx context.Context, freqHz uint, extra map[string]interface{}) error {
	p.freq = freqHz
	return nil
}

func newTestBridge(t *testing.T) (*gpioBridge, *fakePin, *fakePin, *fakePin, *fakePin) {
	t.Helper()
	inA, inB, pwm, enLow := &fakePin{}, &fakePin{}, &fakePin{}, &fakePin{high: true}
	g := &gpioBridge{inA: inA, inB: inB, pwm: pwm, enLow: enLow, logger: logging.NewTestLogger(t)}
	return g, inA, inB, pwm, enLow
}

func TestGPIOBridgeSetDrive(t *testing.T) {
	ctx := context.Background()
	g, inA, inB, pwm, _ := newTestBridge(t)

	test.That(t, g.SetDrive(ctx, DirForward, 35), test.ShouldBeNil)
	test.That(t, inA.high, test.ShouldBeTrue)
	test.That(t, inB.high, test.ShouldBeFalse)
	test.That(t, pwm.duty, test.ShouldEqual, 0.35)

	test.That(t, g.SetDrive(ctx, DirReverse, 100), test.ShouldBeNil)
	test.That(t, inA.high, test.ShouldBeFalse)
	test.That(t, inB.high, test.ShouldBeTrue)
	test.That(t, pwm.duty, test.ShouldEqual, 1.0)

	test.That(t, g.SetDrive(ctx, DirStop, 0), test.ShouldBeNil)
	test.That(t, inA.high, test.ShouldBeFalse)
	test.That(t, inB.high, test.ShouldBeFalse)
	test.That(t, pwm.duty, test.ShouldEqual, 0.0)
}

func TestGPIOBridgeStatus(t *testing.T) {
	ctx := context.Background()
	g, _, _, _, _ := newTestBridge(t)

	test.That(t, g.SetDrive(ctx, DirForward, 47), test.ShouldBeNil)
	dir, throttle, err := g.Status(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dir, test.ShouldEqual, DirForward)
	test.That(t, throttle, test.ShouldEqual, 47)

	test.That(t, g.SetDrive(ctx, DirReverse, 12), test.ShouldBeNil)
	dir, throttle, err = g.Status(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dir, test.ShouldEqual, DirReverse)
	test.That(t, throttle, test.ShouldEqual, 12)

	// zero duty always reads back as stopped
	test.That(t, g.SetDrive(ctx, DirStop, 0), test.ShouldBeNil)
	dir, throttle, err = g.Status(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dir, test.ShouldEqual, DirStop)
	test.That(t, throttle, test.ShouldEqual, 0)
}

func TestGPIOBridgeEnable(t *testing.T) {
	ctx := context.Background()
	g, _, _, _, enLow := newTestBridge(t)

	// the enable line is active low
	test.That(t, g.EnableBridge(ctx, true), test.ShouldBeNil)
	test.That(t, enLow.high, test.ShouldBeFalse)
	test.That(t, g.EnableBridge(ctx, false), test.ShouldBeNil)
	test.That(t, enLow.high, test.ShouldBeTrue)

	// without an enable pin the bridge is always on
	g.enLow = nil
	test.That(t, g.EnableBridge(ctx, true), test.ShouldBeNil)
}
