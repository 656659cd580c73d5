package rampdrive

import "time"

// kickConfig holds the start-assist parameters. All values are clamped to
// their documented ranges when set over the wire.
type kickConfig struct {
	throttle int
	duration time.Duration
	rampDown time.Duration
	maxApply int
}

type kickState struct {
	active bool
	hold   int
	dir    Direction
	endsAt time.Time

	// recovery data, captured when the kick starts
	finalTarget int
	instant     bool
}

// kickQualifies reports whether a start-from-rest command with the given
// effective target gets the start-assist pulse. Both kick parameters must be
// configured and the target must sit at or below the apply ceiling.
func (e *Engine) kickQualifies(effectiveTarget int) bool {
	return e.kickCfg.throttle > 0 &&
		e.kickCfg.duration > 0 &&
		effectiveTarget <= e.kickCfg.maxApply
}

// startKick applies the kick level immediately and holds it verbatim until
// the configured duration elapses.
func (e *Engine) startKick(now time.Time, dir Direction, finalTarget int, instant bool) {
	hold := e.kickCfg.throttle
	if hold < e.minStart {
		hold = e.minStart
	}
	e.ramp = rampState{}
	e.kick = kickState{
		active:      true,
		hold:        hold,
		dir:         dir,
		endsAt:      now.Add(e.kickCfg.duration),
		finalTarget: finalTarget,
		instant:     instant,
	}
	e.applyOutput(hold, dir)
	if e.diag {
		e.logger.Debugf("kick: hold %d %s for %v, then %d", hold, dir, e.kickCfg.duration, finalTarget)
	}
}

// kickStep runs the recovery transition once the hold expires. An instant
// original heads straight for its final target. A ramped original recovers to
// zero instead and stages a continuation that replays the target as a
// suppressed-delay reversal, always with momentum pacing.
func (e *Engine) kickStep(now time.Time) {
	if !e.kick.active || now.Before(e.kick.endsAt) {
		return
	}
	k := e.kick
	e.kick = kickState{}

	if k.instant {
		if e.kickCfg.rampDown == 0 {
			e.applyOutput(k.finalTarget, k.dir)
			return
		}
		e.startRamp(now, k.finalTarget, k.dir, e.kickCfg.rampDown, rampQuickStop)
		return
	}

	// The continuation must be staged before any ramp is started: startRamp
	// clears kick bookkeeping, and only the pending reverse survives it.
	e.stageContinuation(k.dir, k.finalTarget)
	if e.kickCfg.rampDown == 0 {
		e.applyOutput(0, DirStop)
		e.armDirectionDelay(now)
		return
	}
	e.startRamp(now, 0, k.dir, e.kickCfg.rampDown, rampQuickStop)
}

// applyKickConfig folds a parsed K command into the stored config. The 2-arg
// form leaves ramp-down and the apply ceiling untouched.
func (e *Engine) applyKickConfig(cmd command) {
	e.kickCfg.throttle = cmd.kick[0]
	e.kickCfg.duration = time.Duration(cmd.kick[1]) * time.Millisecond
	if cmd.kickArgs == 4 {
		e.kickCfg.rampDown = time.Duration(cmd.kick[2]) * time.Millisecond
		e.kickCfg.maxApply = cmd.kick[3]
	}
}
