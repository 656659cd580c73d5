package rampdrive

import "time"

// easeScale is the fixed-point scale for normalized ramp progress. The easing
// polynomial is evaluated in int64 so the cubic term cannot overflow.
const easeScale = 1000

// easedThrottle computes the smoothstep-interpolated throttle between start
// and end at the given point in a ramp. A zero duration or a zero delta
// yields the end value immediately.
func easedThrottle(start, end int, elapsed, duration time.Duration) int {
	if duration <= 0 || start == end {
		return clampInt(end, 0, 100)
	}
	p := int64(elapsed) * easeScale / int64(duration)
	if p < 0 {
		p = 0
	}
	if p > easeScale {
		p = easeScale
	}
	// e = 3p^2 - 2p^3 on the easeScale fixed-point scale.
	e := (3*p*p)/easeScale - (2*p*p*p)/(easeScale*easeScale)
	v := int64(start) + (int64(end-start)*e)/easeScale
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return int(v)
}

// scaledRampDuration derives a ramp duration from a full-scale constant,
// scaled linearly by the throttle delta. Nonzero deltas are floored to 1ms so
// the easing step never divides by zero.
func scaledRampDuration(fullScale time.Duration, from, to int) time.Duration {
	delta := to - from
	if delta < 0 {
		delta = -delta
	}
	if delta == 0 {
		return 0
	}
	d := fullScale * time.Duration(delta) / 100
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return d
}
