// Package rampdrive implements a ramped brushed-DC drive for an H-bridge
// driver, with start-assist, stop-first reversing and a link-loss failsafe,
// commanded either through the Viam motor API or a line-based text protocol.
package rampdrive

import (
	"context"
	"fmt"
	"math"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.viam.com/rdk/components/motor"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/operation"
	"go.viam.com/rdk/resource"
)

// Model for the viam supported hbridge-drive brushed motor.
var Model = resource.NewModel("viam", "hbridge-drive", "brushed")

const firmwareVersion = "1.4.2"

func init() {
	resource.RegisterComponent(motor.API, Model, resource.Registration[motor.Motor, *Config]{
		Constructor: newDrive,
	})
}

// Drive exposes the motion engine as a Viam motor.
type Drive struct {
	resource.Named
	resource.AlwaysRebuild
	logger    logging.Logger
	opMgr     *operation.SingleOperationManager
	engine    *Engine
	driveName string
}

// newDrive returns an H-bridge drive backed by board GPIO pins.
func newDrive(ctx context.Context, deps resource.Dependencies, c resource.Config, logger logging.Logger,
) (motor.Motor, error) {
	conf, err := resource.NativeConfig[*Config](c)
	if err != nil {
		return nil, err
	}
	bridge, err := newGPIOBridge(ctx, deps, conf, logger)
	if err != nil {
		return nil, err
	}
	return makeDrive(ctx, conf, c.ResourceName(), logger, bridge, clock.New())
}

// makeDrive assembles the drive. It is separate from newDrive, above, so you
// can inject a fake bridge and clock in here during testing.
func makeDrive(ctx context.Context, conf *Config, name resource.Name,
	logger logging.Logger, out Output, clk clock.Clock,
) (motor.Motor, error) {
	ident := conf.IDFragment
	if ident == "" {
		ident = name.ShortName()
	}

	engine := newEngine(out, resolveTimings(conf.Timing), resolveKick(conf.Kick),
		conf.MinStart, firmwareVersion, ident, clk, logger)
	if err := engine.Start(ctx); err != nil {
		return nil, err
	}

	return &Drive{
		Named:     name.AsNamed(),
		logger:    logger,
		opMgr:     operation.NewSingleOperationManager(),
		engine:    engine,
		driveName: name.ShortName(),
	}, nil
}

// Engine returns the underlying motion engine, for wiring a transport.
func (d *Drive) Engine() *Engine {
	return d.engine
}

func (d *Drive) send(ctx context.Context, line string) error {
	resp, err := d.engine.HandleLine(ctx, line)
	if err != nil {
		return errors.Wrapf(err, "error sending %q to drive (%s)", line, d.driveName)
	}
	if resp != ackResponse(line) {
		return errors.Errorf("drive (%s) rejected %q: %s", d.driveName, line, resp)
	}
	return nil
}

// SetPower drives at a duty magnitude given by powerPct (between -1 and 1),
// eased in by the momentum ramp. Zero power is a quick stop.
func (d *Drive) SetPower(ctx context.Context, powerPct float64, extra map[string]interface{}) error {
	d.opMgr.CancelRunning(ctx)
	if math.IsNaN(powerPct) {
		return errors.Errorf("power percent is NaN for drive (%s)", d.driveName)
	}
	if powerPct > 1 {
		powerPct = 1
	} else if powerPct < -1 {
		powerPct = -1
	}

	throttle := int(math.Round(math.Abs(powerPct) * 100))
	if throttle == 0 {
		return d.send(ctx, "S")
	}
	verb := "F"
	if powerPct < 0 {
		verb = "R"
	}
	return d.send(ctx, fmt.Sprintf("%s%d", verb, throttle))
}

// Stop ramps the drive to zero at the quickstop rate.
func (d *Drive) Stop(ctx context.Context, extra map[string]interface{}) error {
	d.opMgr.CancelRunning(ctx)
	return d.send(ctx, "S")
}

// IsMoving returns true if the drive currently applies a nonzero throttle.
func (d *Drive) IsMoving(ctx context.Context) (bool, error) {
	return d.engine.State().Throttle > 0, nil
}

// IsPowered returns whether the drive is on and the signed applied power in
// [-1, 1].
func (d *Drive) IsPowered(ctx context.Context, extra map[string]interface{}) (bool, float64, error) {
	state := d.engine.State()
	power := float64(state.Throttle) / 100
	if state.Direction == DirReverse {
		power = -power
	}
	return state.Throttle > 0, power, nil
}

// Properties returns the status of optional properties on the drive. The
// throttle is open loop, so there is no position reporting.
func (d *Drive) Properties(ctx context.Context, extra map[string]interface{}) (motor.Properties, error) {
	return motor.Properties{
		PositionReporting: false,
	}, nil
}

// Position is not supported: the drive has no encoder.
func (d *Drive) Position(ctx context.Context, extra map[string]interface{}) (float64, error) {
	return 0, nil
}

// GoFor is not supported: the drive has no encoder.
func (d *Drive) GoFor(ctx context.Context, rpm, revolutions float64, extra map[string]interface{}) error {
	return errors.Errorf("drive (%s) does not support GoFor: no encoder", d.driveName)
}

// GoTo is not supported: the drive has no encoder.
func (d *Drive) GoTo(ctx context.Context, rpm, positionRevolutions float64, extra map[string]interface{}) error {
	return motor.NewGoToUnsupportedError(d.driveName)
}

// SetRPM is not supported: the throttle is an open-loop duty cycle.
func (d *Drive) SetRPM(ctx context.Context, rpm float64, extra map[string]interface{}) error {
	return motor.NewSetRPMUnsupportedError(d.driveName)
}

// ResetZeroPosition is not supported: the drive has no encoder.
func (d *Drive) ResetZeroPosition(ctx context.Context, offset float64, extra map[string]interface{}) error {
	return motor.NewResetZeroPositionUnsupportedError(d.driveName)
}

// DoCommand() related constants.
const (
	Command  = "command"
	SendLine = "send"
	LineVal  = "line"
	LinkUp   = "link_up"
	LinkDown = "link_down"
	GetState = "state"
)

// DoCommand carries the wire protocol and link notifications beyond the
// Motor{} interface.
func (d *Drive) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	name, ok := cmd[Command]
	if !ok {
		return nil, errors.Errorf("missing %s value", Command)
	}
	switch name {
	case SendLine:
		lineRaw, ok := cmd[LineVal]
		if !ok {
			return nil, errors.Errorf("need %s value for send", LineVal)
		}
		line, ok := lineRaw.(string)
		if !ok {
			return nil, errors.New("line value must be a string")
		}
		resp, err := d.engine.HandleLine(ctx, line)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"response": resp}, nil
	case LinkUp:
		d.engine.LinkUp()
		return nil, nil
	case LinkDown:
		d.engine.LinkDown()
		return nil, nil
	case GetState:
		state := d.engine.State()
		return map[string]interface{}{
			"throttle":         state.Throttle,
			"direction":        state.Direction.String(),
			"target_throttle":  state.TargetThrottle,
			"target_direction": state.TargetDirection.String(),
		}, nil
	default:
		return nil, errors.Errorf("no such command: %s", name)
	}
}

// Close stops the drive and disables the bridge.
func (d *Drive) Close(ctx context.Context) error {
	return d.engine.Close(ctx)
}
