package rampdrive

import "time"

// linkState tracks the wireless connection for the failsafe. The forced-stop
// latch is cleared only by the next accepted forward/reverse command while
// connected, never by reconnection alone.
type linkState struct {
	connected     bool
	graceActive   bool
	graceDeadline time.Time
	latched       bool
}

func (e *Engine) setLinkUp() {
	e.link.connected = true
	e.link.graceActive = false
	if e.diag {
		e.logger.Debugf("link up (latched=%t)", e.link.latched)
	}
}

func (e *Engine) setLinkDown(now time.Time) {
	if !e.link.connected {
		return
	}
	e.link.connected = false
	e.link.graceActive = true
	e.link.graceDeadline = now.Add(e.timing.linkGrace)
	if e.diag {
		e.logger.Debugf("link down, grace %v", e.timing.linkGrace)
	}
}

// failsafeStep latches out motion once the grace countdown expires while
// disconnected. The stop is an eased quickstop ramp, not an abrupt cut, and
// any staged resume is discarded: motion must never restart on its own after
// the link is gone.
func (e *Engine) failsafeStep(now time.Time) {
	if e.link.connected || !e.link.graceActive || now.Before(e.link.graceDeadline) {
		return
	}
	e.link.graceActive = false
	e.link.latched = true
	e.logger.Warnf("link grace expired, forcing stop from %d %s", e.motion.appliedThrottle, e.motion.appliedDir)
	e.pending = pendingReverse{}
	e.setTarget(0, DirStop)
	e.startRamp(now, 0, e.motion.appliedDir,
		scaledRampDuration(e.timing.quick, e.motion.appliedThrottle, 0), rampQuickStop)
}
