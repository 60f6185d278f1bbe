package workflow

import "time"

// DelayMinutes is the one delay rule shared by heat checkpoints and pipe steps:
// zero when actual <= standard, otherwise the overrun rounded up to whole minutes.
// Rounding up keeps "delay > 0" and "actual > standard" equivalent, so a reason is
// demanded for any overrun, however small.
func DelayMinutes(actual, standard time.Duration) int {
	over := actual - standard
	if over <= 0 {
		return 0
	}
	return ceilMinutes(over)
}

// DurationMinutes rounds an elapsed time up to whole minutes, never negative.
func DurationMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return ceilMinutes(d)
}

func ceilMinutes(d time.Duration) int {
	m := int(d / time.Minute)
	if d%time.Minute != 0 {
		m++
	}
	return m
}
