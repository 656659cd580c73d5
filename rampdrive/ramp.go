package rampdrive

import "time"

type rampKind int

const (
	rampMomentum rampKind = iota
	rampBrake
	rampQuickStop
)

func (k rampKind) String() string {
	switch k {
	case rampBrake:
		return "brake"
	case rampQuickStop:
		return "quickstop"
	default:
		return "momentum"
	}
}

type rampState struct {
	active    bool
	start     int
	target    int
	dir       Direction
	kind      rampKind
	startedAt time.Time
	duration  time.Duration
}

// startRamp begins an eased ramp from the currently applied throttle to
// target. It unconditionally clears ramp and kick bookkeeping, so anything
// that must survive the restart (a post-kick continuation, a staged reversal)
// has to be captured in the pending reverse beforehand; the pending reverse
// itself is deliberately left untouched here.
func (e *Engine) startRamp(now time.Time, target int, dir Direction, duration time.Duration, kind rampKind) {
	e.kick = kickState{}
	from := e.motion.appliedThrottle
	if duration <= 0 || from == target {
		e.completeRamp(now, target, dir)
		return
	}
	e.ramp = rampState{
		active:    true,
		start:     from,
		target:    target,
		dir:       dir,
		kind:      kind,
		startedAt: now,
		duration:  duration,
	}
	if e.diag {
		e.logger.Debugf("ramp %s: %d -> %d over %v", kind, from, target, duration)
	}
}

// rampStep advances an active ramp. On completion the applied state snaps
// exactly to the requested end value, and a stop-ramp that lands on zero with
// a reverse pending arms the direction-delay stage at that instant.
func (e *Engine) rampStep(now time.Time) {
	if !e.ramp.active {
		return
	}
	elapsed := now.Sub(e.ramp.startedAt)
	if elapsed >= e.ramp.duration {
		e.completeRamp(now, e.ramp.target, e.ramp.dir)
		return
	}
	v := easedThrottle(e.ramp.start, e.ramp.target, elapsed, e.ramp.duration)
	e.applyOutput(v, e.ramp.dir)
}

func (e *Engine) completeRamp(now time.Time, target int, dir Direction) {
	e.ramp = rampState{}
	e.applyOutput(target, dir)
	if target == 0 && e.pending.pending {
		e.armDirectionDelay(now)
	}
}
