package rampdrive

import "time"

type reverseStage int

const (
	stageNone reverseStage = iota
	stageWaitingDirectionDelay
)

// pendingReverse is the queued final action to run once a stop-ramp reaches
// zero and, unless suppressed, the direction-change delay has elapsed. At
// most one may exist; any new motion command cancels and replaces it.
type pendingReverse struct {
	pending  bool
	stage    reverseStage
	deadline time.Time

	dir      Direction
	throttle int
	instant  bool
	momentum bool
	rampUp   time.Duration // full-scale constant for the final ramp-up

	skipDelayOnce    bool
	suppressKickOnce bool
}

// beginReversal stages the requested final action and forces a stop-ramp.
// The stop flavor follows the triggering command: quick commands decelerate
// at the quickstop rate, momentum commands at the momentum-decel rate.
func (e *Engine) beginReversal(now time.Time, dir Direction, throttle int, quick bool) {
	e.pending = pendingReverse{
		pending:  true,
		dir:      dir,
		throttle: throttle,
		instant:  quick,
		momentum: !quick,
		rampUp:   e.timing.momentumAccel,
	}
	e.setTarget(throttle, dir)
	if e.diag {
		e.logger.Debugf("reversal staged: %s %d (instant=%t)", dir, throttle, quick)
	}
	oldDir := e.motion.appliedDir
	if quick {
		e.startRamp(now, 0, oldDir, scaledRampDuration(e.timing.quick, e.motion.appliedThrottle, 0), rampQuickStop)
		return
	}
	e.startRamp(now, 0, oldDir, scaledRampDuration(e.timing.momentumDecel, e.motion.appliedThrottle, 0), rampMomentum)
}

// stageContinuation records a post-kick resume as a pending reverse. The
// direction-change pause is suppressed and the final ramp-up always uses
// momentum pacing, regardless of the original command's flavor.
func (e *Engine) stageContinuation(dir Direction, throttle int) {
	e.pending = pendingReverse{
		pending:          true,
		dir:              dir,
		throttle:         throttle,
		momentum:         true,
		rampUp:           e.timing.momentumAccel,
		skipDelayOnce:    true,
		suppressKickOnce: true,
	}
}

// armDirectionDelay moves the pending reverse into its delay stage, entered
// the instant the stop-ramp lands on zero. Continuations skip the pause.
func (e *Engine) armDirectionDelay(now time.Time) {
	delay := e.timing.directionDelay
	if e.pending.skipDelayOnce {
		delay = 0
		e.pending.skipDelayOnce = false
	}
	e.pending.stage = stageWaitingDirectionDelay
	e.pending.deadline = now.Add(delay)
}

// pendingStep executes the staged final action once the delay has elapsed.
// Min-start and kick qualification are re-evaluated exactly as for a fresh
// start-from-rest command.
func (e *Engine) pendingStep(now time.Time) {
	if !e.pending.pending || e.pending.stage != stageWaitingDirectionDelay || now.Before(e.pending.deadline) {
		return
	}
	p := e.pending
	e.pending = pendingReverse{}
	e.beginFromRest(now, p.dir, p.throttle, startMode{
		instant:      p.instant,
		suppressKick: p.suppressKickOnce,
		rampUp:       p.rampUp,
	})
}
