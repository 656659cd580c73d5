package rampdrive

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.viam.com/rdk/logging"
	goutils "go.viam.com/utils"
)

// timings holds the resolved temporal tuning: one full-scale constant per
// ramp flavor plus the fixed delays. Ramp durations are derived from the
// full-scale constants, scaled by the throttle delta.
type timings struct {
	momentumAccel  time.Duration
	momentumDecel  time.Duration
	quick          time.Duration
	brake          time.Duration
	directionDelay time.Duration
	linkGrace      time.Duration
	tickPeriod     time.Duration
}

// motionState is what is currently being output plus the commanded
// destination. The target pair exists for reporting only, never for control.
// Invariant: appliedThrottle == 0 exactly when appliedDir == DirStop.
type motionState struct {
	appliedThrottle int
	appliedDir      Direction
	targetThrottle  int
	targetDir       Direction
}

// startMode qualifies how a start-from-rest request reaches its target.
type startMode struct {
	quick        bool
	instant      bool
	suppressKick bool
	rampUp       time.Duration
}

type requestKind int

const (
	reqLine requestKind = iota
	reqDeliver
	reqLinkUp
	reqLinkDown
)

type engineRequest struct {
	kind requestKind
	line string
	resp chan string
}

// Engine is the motion and connectivity state engine. All mutable state is
// owned by a single run goroutine that drains the request channel and
// advances a fixed-period tick; commands arriving from other goroutines are
// serialized through that channel and never touch state directly.
type Engine struct {
	logger  logging.Logger
	clk     clock.Clock
	out     Output
	link    linkState
	linkOut Link
	timing  timings
	version string
	ident   string

	reqs    chan engineRequest
	cancel  context.CancelFunc
	workers sync.WaitGroup

	// owned by the run loop
	motion   motionState
	ramp     rampState
	kick     kickState
	kickCfg  kickConfig
	pending  pendingReverse
	minStart int
	diag     bool

	snapMu sync.RWMutex
	snap   motionState
}

func newEngine(out Output, timing timings, kickCfg kickConfig, minStart int,
	version, ident string, clk clock.Clock, logger logging.Logger,
) *Engine {
	return &Engine{
		logger:   logger,
		clk:      clk,
		out:      out,
		timing:   timing,
		version:  version,
		ident:    ident,
		reqs:     make(chan engineRequest, 16),
		kickCfg:  kickCfg,
		minStart: minStart,
		link:     linkState{connected: true},
	}
}

// AttachLink sets the outbound transport used to answer lines delivered via
// Deliver. Must be called before Start.
func (e *Engine) AttachLink(l Link) {
	e.linkOut = l
}

// Start enables the bridge and launches the run loop. The loop lives until
// Close; the passed context only scopes the enable write.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.out.EnableBridge(ctx, true); err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.workers.Add(1)
	goutils.ManagedGo(func() {
		e.run(runCtx)
	}, e.workers.Done)
	return nil
}

// Close stops the run loop, zeroes the drive and disables the bridge.
func (e *Engine) Close(ctx context.Context) error {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
		e.workers.Wait()
	}
	return multierr.Combine(
		e.out.SetDrive(ctx, DirStop, 0),
		e.out.EnableBridge(ctx, false),
	)
}

// HandleLine submits one protocol line and waits for its response.
func (e *Engine) HandleLine(ctx context.Context, line string) (string, error) {
	resp := make(chan string, 1)
	select {
	case e.reqs <- engineRequest{kind: reqLine, line: line, resp: resp}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	select {
	case r := <-resp:
		return r, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Deliver submits one protocol line from the transport's delivery context.
// The response is pushed back over the attached link in payload-sized chunks.
func (e *Engine) Deliver(line string) {
	e.reqs <- engineRequest{kind: reqDeliver, line: line}
}

// LinkUp notifies the engine that the wireless link connected.
func (e *Engine) LinkUp() {
	e.reqs <- engineRequest{kind: reqLinkUp}
}

// LinkDown notifies the engine that the wireless link dropped, starting the
// grace countdown.
func (e *Engine) LinkDown() {
	e.reqs <- engineRequest{kind: reqLinkDown}
}

// DriveState is a point-in-time copy of the engine's motion state.
type DriveState struct {
	Throttle        int
	Direction       Direction
	TargetThrottle  int
	TargetDirection Direction
}

// State returns the most recently published motion snapshot.
func (e *Engine) State() DriveState {
	e.snapMu.RLock()
	defer e.snapMu.RUnlock()
	return DriveState{
		Throttle:        e.snap.appliedThrottle,
		Direction:       e.snap.appliedDir,
		TargetThrottle:  e.snap.targetThrottle,
		TargetDirection: e.snap.targetDir,
	}
}

func (e *Engine) run(ctx context.Context) {
	ticker := e.clk.Ticker(e.timing.tickPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-e.reqs:
			e.handleRequest(ctx, req)
		case <-ticker.C:
			e.step(ctx, e.clk.Now())
		}
	}
}

func (e *Engine) handleRequest(ctx context.Context, req engineRequest) {
	now := e.clk.Now()
	switch req.kind {
	case reqLine, reqDeliver:
		resp := e.dispatchLine(ctx, req.line, now)
		e.assertOutput(ctx)
		e.publishSnapshot()
		if req.resp != nil {
			req.resp <- resp
		} else if e.linkOut != nil {
			if err := sendResponse(ctx, e.linkOut, resp); err != nil {
				e.logger.CError(ctx, err)
			}
		}
	case reqLinkUp:
		e.setLinkUp()
	case reqLinkDown:
		e.setLinkDown(now)
	}
}

// step advances one tick. The sub-step order is fixed and significant: the
// failsafe may pre-empt everything, an expiring kick may start the ramp that
// this same tick must advance, and both must settle before the pending
// reverse is evaluated. The current output is re-asserted every tick.
func (e *Engine) step(ctx context.Context, now time.Time) {
	e.failsafeStep(now)
	e.kickStep(now)
	e.rampStep(now)
	e.pendingStep(now)
	e.assertOutput(ctx)
	e.publishSnapshot()
}

// dispatchLine parses and executes one protocol line, returning the response
// text. State queries bypass the ACK/ERR envelope.
func (e *Engine) dispatchLine(ctx context.Context, line string, now time.Time) string {
	cmd := parseLine(line)
	if e.diag {
		e.logger.Debugf("command %q", cmd.raw)
	}

	switch cmd.kind {
	case cmdInvalid:
		return errResponse(cmd.raw)
	case cmdHWState:
		return e.hardwareStateResponse(ctx)
	case cmdState:
		return e.storedStateResponse()
	case cmdVersion:
		return ackResponse(e.version)
	case cmdIdent:
		return e.ident
	case cmdDiagOn:
		e.diag = true
		return ackResponse(cmd.raw)
	case cmdDiagOff:
		e.diag = false
		return ackResponse(cmd.raw)
	case cmdMinStart:
		e.minStart = cmd.value
		return ackResponse(cmd.raw)
	case cmdKick:
		e.applyKickConfig(cmd)
		return ackResponse(cmd.raw)
	}

	e.dispatchMotion(cmd, now)
	if e.diag {
		e.logger.Debugf("state %s", e.String())
	}
	return ackResponse(cmd.raw)
}

// dispatchMotion routes an accepted motion command through the failsafe
// policy, the reverse sequencer, the start-assist sequencer or a plain ramp.
func (e *Engine) dispatchMotion(cmd command, now time.Time) {
	// Policy override while latched and disconnected: directional commands
	// are acknowledged but converted to an immediate hard stop. Plain stops
	// are honored as normal ramps regardless of the latch.
	if e.link.latched && !e.link.connected && cmd.kind.isDirectional() {
		e.hardStop()
		return
	}
	if e.link.latched && e.link.connected && cmd.kind.isDirectional() {
		e.link.latched = false
		e.logger.Warnf("forced-stop latch cleared by %q", cmd.raw)
	}

	// A new motion command unconditionally supersedes whatever was staged.
	e.pending = pendingReverse{}

	switch cmd.kind {
	case cmdStop:
		e.setTarget(0, DirStop)
		e.startRamp(now, 0, e.motion.appliedDir,
			scaledRampDuration(e.timing.quick, e.motion.appliedThrottle, 0), rampQuickStop)
		return
	case cmdBrake:
		e.setTarget(0, DirStop)
		e.startRamp(now, 0, e.motion.appliedDir,
			scaledRampDuration(e.timing.brake, e.motion.appliedThrottle, 0), rampBrake)
		return
	}

	dir := cmd.kind.direction()
	quick := cmd.kind.isQuick()

	// F0/R0 stop via the momentum-decel flavor and never stage a reversal.
	if cmd.value == 0 {
		e.setTarget(0, DirStop)
		e.startRamp(now, 0, e.motion.appliedDir,
			scaledRampDuration(e.timing.momentumDecel, e.motion.appliedThrottle, 0), rampMomentum)
		return
	}

	if e.motion.appliedDir != DirStop && e.motion.appliedDir != dir {
		e.beginReversal(now, dir, cmd.value, quick)
		return
	}

	if e.motion.appliedDir == DirStop {
		e.beginFromRest(now, dir, cmd.value, startMode{quick: quick, rampUp: e.timing.momentumAccel})
		return
	}

	// Same-direction retarget from motion; min-start never applies here.
	e.setTarget(cmd.value, dir)
	if quick {
		e.startRamp(now, cmd.value, dir,
			scaledRampDuration(e.timing.quick, e.motion.appliedThrottle, cmd.value), rampQuickStop)
		return
	}
	full := e.timing.momentumAccel
	if cmd.value < e.motion.appliedThrottle {
		full = e.timing.momentumDecel
	}
	e.startRamp(now, cmd.value, dir,
		scaledRampDuration(full, e.motion.appliedThrottle, cmd.value), rampMomentum)
}

// beginFromRest executes a start-from-stop. The min-start floor is applied
// once here, and the result decides both kick qualification and the ramp or
// instant destination.
func (e *Engine) beginFromRest(now time.Time, dir Direction, requested int, mode startMode) {
	eff := requested
	if eff < e.minStart {
		eff = e.minStart
	}
	e.setTarget(eff, dir)

	if !mode.suppressKick && e.kickQualifies(eff) {
		e.startKick(now, dir, eff, mode.quick || mode.instant)
		return
	}

	switch {
	case mode.instant:
		e.ramp = rampState{}
		e.kick = kickState{}
		e.applyOutput(eff, dir)
	case mode.quick:
		e.startRamp(now, eff, dir, scaledRampDuration(e.timing.quick, 0, eff), rampQuickStop)
	default:
		e.startRamp(now, eff, dir, scaledRampDuration(mode.rampUp, 0, eff), rampMomentum)
	}
}

// applyOutput mutates the applied throttle/direction pair, enforcing the
// zero-throttle/stop-direction invariant.
func (e *Engine) applyOutput(throttle int, dir Direction) {
	throttle = clampInt(throttle, 0, 100)
	if throttle == 0 {
		dir = DirStop
	}
	e.motion.appliedThrottle = throttle
	e.motion.appliedDir = dir
}

func (e *Engine) setTarget(throttle int, dir Direction) {
	if throttle == 0 {
		dir = DirStop
	}
	e.motion.targetThrottle = throttle
	e.motion.targetDir = dir
}

// hardStop cuts the drive to zero immediately, clearing every sequencer.
// Used only for the latched-while-disconnected policy override.
func (e *Engine) hardStop() {
	e.ramp = rampState{}
	e.kick = kickState{}
	e.pending = pendingReverse{}
	e.setTarget(0, DirStop)
	e.applyOutput(0, DirStop)
}

func (e *Engine) assertOutput(ctx context.Context) {
	if err := e.out.SetDrive(ctx, e.motion.appliedDir, e.motion.appliedThrottle); err != nil {
		e.logger.CError(ctx, err)
	}
}

func (e *Engine) publishSnapshot() {
	e.snapMu.Lock()
	e.snap = e.motion
	e.snapMu.Unlock()
}

func (e *Engine) hardwareStateResponse(ctx context.Context) string {
	dir, throttle, err := e.out.Status(ctx)
	if err != nil {
		// Fall back to the engine's own applied state rather than fail the query.
		e.logger.CError(ctx, err)
		dir, throttle = e.motion.appliedDir, e.motion.appliedThrottle
	}
	switch dir {
	case DirForward:
		return fmt.Sprintf("HW-FORWARD %d", throttle)
	case DirReverse:
		return fmt.Sprintf("HW-REVERSE %d", throttle)
	default:
		return "HW-STOPPED"
	}
}

func (e *Engine) storedStateResponse() string {
	switch e.motion.targetDir {
	case DirForward:
		return fmt.Sprintf("FORWARD %d", e.motion.targetThrottle)
	case DirReverse:
		return fmt.Sprintf("REVERSE %d", e.motion.targetThrottle)
	default:
		return "STOPPED"
	}
}

func (e *Engine) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "applied=%d/%s target=%d/%s",
		e.motion.appliedThrottle, e.motion.appliedDir,
		e.motion.targetThrottle, e.motion.targetDir)
	if e.ramp.active {
		fmt.Fprintf(&b, " ramp(%s->%d)", e.ramp.kind, e.ramp.target)
	}
	if e.kick.active {
		fmt.Fprintf(&b, " kick(%d)", e.kick.hold)
	}
	if e.pending.pending {
		fmt.Fprintf(&b, " pending(%s %d)", e.pending.dir, e.pending.throttle)
	}
	return b.String()
}
